package mutex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"ctbb/internal/logging"
)

const ownerFileName = "owner"

var errBusy = errors.New("lock busy")

// Owner describes the process holding a dir lock.
type Owner struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	Token      string    `json:"token"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// DirLock represents a lock as a marker directory. os.Mkdir is atomic on
// local and NFS filesystems, so exactly one process can create the marker.
type DirLock struct {
	opts Options
	path string

	mu    sync.Mutex
	held  bool
	token string
}

func newDirLock(opts Options) *DirLock {
	return &DirLock{opts: opts, path: dirMarkerPath(opts.Dir, opts.Name)}
}

func dirMarkerPath(dir, name string) string {
	return filepath.Join(dir, name+".lock")
}

func (l *DirLock) Name() string { return l.opts.Name }

func (l *DirLock) Path() string { return l.path }

func (l *DirLock) Lock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return ErrAlreadyHeld
	}
	if err := os.MkdirAll(l.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	owner := newOwner()
	logger := l.opts.Logger.With(
		logging.String(logging.FieldLockName, l.opts.Name),
		logging.String(logging.FieldLockPath, l.path),
	)
	start := time.Now()
	waiting := false

	var backoff retry.Backoff = retry.NewConstant(l.opts.PollInterval)
	if l.opts.Timeout > 0 {
		backoff = retry.WithMaxDuration(l.opts.Timeout, backoff)
	}
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := os.Mkdir(l.path, 0o755)
		if err == nil {
			if err := writeOwner(l.path, owner); err != nil {
				_ = os.RemoveAll(l.path)
				return fmt.Errorf("record lock owner: %w", err)
			}
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create lock marker: %w", err)
		}
		if l.opts.BreakStale {
			broken, breakErr := breakStale(l.opts.Dir, l.opts.Name)
			if breakErr != nil {
				logging.WarnWithContext(logger, "stale lock check failed", "lock_stale_check_failed",
					logging.Error(breakErr),
					logging.String(logging.FieldImpact, "lock wait continues; stale markers are not removed"),
					logging.String(logging.FieldErrorHint, "check permissions on the mutex directory"),
				)
			} else if broken != nil {
				logging.WarnWithContext(logger, "removed stale lock", "lock_stale_removed",
					logging.Int("stale_pid", broken.PID),
					logging.String("stale_host", broken.Host),
					logging.String(logging.FieldImpact, "a crashed holder left the lock behind"),
					logging.String(logging.FieldErrorHint, "none; the lock was reclaimed"),
				)
			}
		}
		if !waiting {
			waiting = true
			logger.Debug("waiting for lock", logging.String(logging.FieldEventType, "lock_wait"))
		}
		return retry.RetryableError(errBusy)
	})
	if err != nil {
		if errors.Is(err, errBusy) {
			return &TimeoutError{
				Name:      l.opts.Name,
				Path:      l.path,
				Waited:    time.Since(start),
				Ownerless: ownerless(l.path),
			}
		}
		return err
	}

	l.held = true
	l.token = owner.Token
	logger.Debug("lock acquired",
		logging.String(logging.FieldEventType, "lock_acquired"),
		logging.Duration("waited", time.Since(start)),
	)
	return nil
}

func (l *DirLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return ErrNotHeld
	}
	l.held = false

	current, err := readOwner(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: marker %s is gone", ErrOwnershipLost, l.path)
	case err != nil:
		return fmt.Errorf("read lock owner: %w", err)
	case current.Token != l.token:
		return fmt.Errorf("%w: marker %s now belongs to pid %d", ErrOwnershipLost, l.path, current.PID)
	}
	if err := os.RemoveAll(l.path); err != nil {
		return fmt.Errorf("remove lock marker: %w", err)
	}
	l.opts.Logger.Debug("lock released",
		logging.String(logging.FieldEventType, "lock_released"),
		logging.String(logging.FieldLockName, l.opts.Name),
	)
	return nil
}

func newOwner() Owner {
	host, _ := os.Hostname()
	return Owner{
		PID:        os.Getpid(),
		Host:       host,
		Token:      uuid.NewString(),
		AcquiredAt: time.Now().UTC(),
	}
}

func writeOwner(marker string, owner Owner) error {
	data, err := json.Marshal(owner)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(marker, ownerFileName), append(data, '\n'), 0o644)
}

func readOwner(marker string) (Owner, error) {
	data, err := os.ReadFile(filepath.Join(marker, ownerFileName))
	if err != nil {
		return Owner{}, err
	}
	var owner Owner
	if err := json.Unmarshal(data, &owner); err != nil {
		return Owner{}, fmt.Errorf("decode %s: %w", filepath.Join(marker, ownerFileName), err)
	}
	return owner, nil
}

// isStale reports whether owner is a process on this host that no longer
// exists. Owners on other hosts are never considered stale.
func isStale(owner Owner) bool {
	if owner.PID <= 0 {
		return false
	}
	host, err := os.Hostname()
	if err != nil || owner.Host != host {
		return false
	}
	return !processAlive(owner.PID)
}

// breakStale removes the marker when its owner is dead. The check and the
// removal happen under a flock guard so two waiters cannot both decide the
// same marker is stale and one of them delete the other's fresh lock.
// Markers without an owner record are never broken: the daemon's own tools
// create them that way.
func breakStale(dir, name string) (*Owner, error) {
	marker := dirMarkerPath(dir, name)
	owner, err := readOwner(marker)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if !isStale(owner) {
		return nil, nil
	}

	guard := flock.New(filepath.Join(dir, name+".break"))
	locked, err := guard.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock stale guard: %w", err)
	}
	if !locked {
		return nil, nil
	}
	defer func() { _ = guard.Unlock() }()

	current, err := readOwner(marker)
	if err != nil || current.Token != owner.Token {
		return nil, nil
	}
	if err := os.RemoveAll(marker); err != nil {
		return nil, fmt.Errorf("remove stale marker: %w", err)
	}
	return &owner, nil
}

// ownerless reports whether marker exists without an owner file.
func ownerless(marker string) bool {
	if _, err := os.Stat(marker); err != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(marker, ownerFileName))
	return errors.Is(err, fs.ErrNotExist)
}
