package mutex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"ctbb/internal/logging"
)

// FileLock holds an advisory lock on <dir>/<name>.flock. The kernel drops the
// lock when the holding process exits, so there are no stale markers to
// clean up; the lock file itself is left in place.
type FileLock struct {
	opts Options
	path string

	mu   sync.Mutex
	fl   *flock.Flock
	held bool
}

func newFileLock(opts Options) *FileLock {
	path := flockPath(opts.Dir, opts.Name)
	return &FileLock{opts: opts, path: path, fl: flock.New(path)}
}

func flockPath(dir, name string) string {
	return filepath.Join(dir, name+".flock")
}

func (l *FileLock) Name() string { return l.opts.Name }

func (l *FileLock) Path() string { return l.path }

func (l *FileLock) Lock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return ErrAlreadyHeld
	}
	if err := os.MkdirAll(l.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	waitCtx := ctx
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	ok, err := l.fl.TryLockContext(waitCtx, l.opts.PollInterval)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return &TimeoutError{Name: l.opts.Name, Path: l.path, Waited: time.Since(start)}
		}
		return fmt.Errorf("acquire flock %s: %w", l.path, err)
	}
	if !ok {
		return &TimeoutError{Name: l.opts.Name, Path: l.path, Waited: time.Since(start)}
	}

	l.held = true
	l.opts.Logger.Debug("lock acquired",
		logging.String(logging.FieldEventType, "lock_acquired"),
		logging.String(logging.FieldLockName, l.opts.Name),
		logging.String(logging.FieldLockPath, l.path),
		logging.Duration("waited", time.Since(start)),
	)
	return nil
}

func (l *FileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return ErrNotHeld
	}
	l.held = false
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release flock %s: %w", l.path, err)
	}
	return nil
}
