package mutex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gofrs/flock"
)

// Status describes the observable state of a named lock.
type Status struct {
	Name   string
	Method Method
	Path   string
	Held   bool
	// Owner is only known for the dir backend.
	Owner *Owner
	// Stale is set when Owner is a dead process on this host.
	Stale bool
}

// Inspect reports whether the named lock is currently held without
// acquiring it for longer than a probe.
func Inspect(opts Options) (Status, error) {
	opts, err := opts.normalized()
	if err != nil {
		return Status{}, err
	}
	switch opts.Method {
	case MethodDir:
		return inspectDir(opts)
	case MethodFlock:
		return inspectFlock(opts)
	default:
		return Status{}, fmt.Errorf("unsupported lock method %q", opts.Method)
	}
}

func inspectDir(opts Options) (Status, error) {
	status := Status{Name: opts.Name, Method: MethodDir, Path: dirMarkerPath(opts.Dir, opts.Name)}
	if _, err := os.Stat(status.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return status, nil
		}
		return status, fmt.Errorf("stat lock marker: %w", err)
	}
	status.Held = true
	owner, err := readOwner(status.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Marker without owner record: held by a cooperating tool that does
		// not write one, or mid-acquisition.
	case err != nil:
		return status, err
	default:
		status.Owner = &owner
		status.Stale = isStale(owner)
	}
	return status, nil
}

func inspectFlock(opts Options) (Status, error) {
	status := Status{Name: opts.Name, Method: MethodFlock, Path: flockPath(opts.Dir, opts.Name)}
	if _, err := os.Stat(status.Path); errors.Is(err, fs.ErrNotExist) {
		return status, nil
	}
	probe := flock.New(status.Path)
	ok, err := probe.TryLock()
	if err != nil {
		return status, fmt.Errorf("probe flock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return status, nil
	}
	status.Held = true
	return status, nil
}

// ForceRelease removes a dir lock marker regardless of owner. Operators use
// it after confirming the holder is gone. Flock locks cannot be forced; the
// kernel releases them when the holder exits.
func ForceRelease(opts Options) error {
	opts, err := opts.normalized()
	if err != nil {
		return err
	}
	if opts.Method != MethodDir {
		return fmt.Errorf("%s locks are released when the holding process exits and cannot be forced", opts.Method)
	}
	marker := dirMarkerPath(opts.Dir, opts.Name)
	if _, err := os.Stat(marker); errors.Is(err, fs.ErrNotExist) {
		return ErrNotHeld
	}
	if err := os.RemoveAll(marker); err != nil {
		return fmt.Errorf("remove lock marker: %w", err)
	}
	return nil
}
