package mutex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ctbb/internal/logging"
)

// Method selects the on-disk lock representation.
type Method string

const (
	MethodDir   Method = "dir"
	MethodFlock Method = "flock"
)

const defaultPollInterval = 100 * time.Millisecond

// Locker is a named lock over a directory-scoped resource.
type Locker interface {
	// Lock blocks until the lock is held, the wait bound elapses, or ctx is done.
	Lock(ctx context.Context) error
	// Unlock releases a held lock. It returns ErrNotHeld otherwise.
	Unlock() error
	Name() string
	// Path is the filesystem token that represents the lock.
	Path() string
}

// Options configures a Locker.
type Options struct {
	Method Method
	Name   string
	Dir    string
	// Timeout bounds the wait in Lock. Zero waits until ctx is done.
	Timeout      time.Duration
	PollInterval time.Duration
	// BreakStale lets the dir backend remove markers left by dead processes
	// on this host.
	BreakStale bool
	Logger     *slog.Logger
}

func (o Options) normalized() (Options, error) {
	o.Name = strings.TrimSpace(o.Name)
	o.Dir = strings.TrimSpace(o.Dir)
	if o.Name == "" {
		return o, errors.New("lock name is required")
	}
	if strings.ContainsAny(o.Name, `/\`) || o.Name == "." || o.Name == ".." {
		return o, fmt.Errorf("lock name %q must be a plain file name", o.Name)
	}
	if o.Dir == "" {
		return o, errors.New("lock directory is required")
	}
	if o.Method == "" {
		o.Method = MethodDir
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.Timeout < 0 {
		o.Timeout = 0
	}
	o.Logger = logging.NewComponentLogger(o.Logger, "mutex")
	return o, nil
}

// New constructs a Locker for the configured backend.
func New(opts Options) (Locker, error) {
	opts, err := opts.normalized()
	if err != nil {
		return nil, err
	}
	switch opts.Method {
	case MethodDir:
		return newDirLock(opts), nil
	case MethodFlock:
		return newFileLock(opts), nil
	default:
		return nil, fmt.Errorf("unsupported lock method %q", opts.Method)
	}
}

// With runs fn while holding l. The lock is released on every exit path,
// including panics, and a release failure is joined into the returned error.
func With(ctx context.Context, l Locker, fn func() error) (err error) {
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if unlockErr := l.Unlock(); unlockErr != nil {
			err = errors.Join(err, fmt.Errorf("release lock %s: %w", l.Name(), unlockErr))
		}
	}()
	return fn()
}
