package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ctbb/internal/jobs"
	"ctbb/internal/logging"
	"ctbb/internal/mutex"
	"ctbb/internal/queue"
)

// Target names the queue file and the lock that guards it.
type Target struct {
	QueueFile string
	LockName  string
	LockDir   string
}

// LockOptions tunes how the queue lock is taken. Name and directory come
// from the Target.
type LockOptions struct {
	Method       mutex.Method
	Timeout      time.Duration
	PollInterval time.Duration
	BreakStale   bool
}

// Result describes a completed commit.
type Result struct {
	ID        uuid.UUID
	QueueFile string
	Priority  queue.Priority
	Entries   int
	StartedAt time.Time
	Duration  time.Duration
}

// Recorder stores completed commits. It runs after the lock is released.
type Recorder interface {
	Record(ctx context.Context, result Result) error
}

// Committer runs queue commits. The zero value commits with the dir lock
// backend, default polling, no timeout and no history.
type Committer struct {
	Lock     LockOptions
	Writer   queue.Writer
	Recorder Recorder
	Logger   *slog.Logger
}

func (c *Committer) logger() *slog.Logger {
	return logging.NewComponentLogger(c.Logger, "commit")
}

func (c *Committer) locker(target Target) (mutex.Locker, error) {
	return mutex.New(mutex.Options{
		Method:       c.Lock.Method,
		Name:         target.LockName,
		Dir:          target.LockDir,
		Timeout:      c.Lock.Timeout,
		PollInterval: c.Lock.PollInterval,
		BreakStale:   c.Lock.BreakStale,
		Logger:       c.Logger,
	})
}

// FlushJobsToQueue enumerates params and commits the entries to the target
// queue under its lock. An unknown priority or an unwritable case id is
// rejected before the lock is requested. The lock is released whether the
// write succeeds or not; a release failure is joined into the returned error.
func (c *Committer) FlushJobsToQueue(ctx context.Context, params jobs.ParameterSet, target Target, priority string) (Result, error) {
	logger := c.logger().With(
		logging.String(logging.FieldQueueFile, target.QueueFile),
		logging.String(logging.FieldLockName, target.LockName),
	)
	result := Result{ID: uuid.New(), QueueFile: target.QueueFile, StartedAt: time.Now()}
	logger = logger.With(logging.String(logging.FieldCommitID, result.ID.String()))

	p, err := queue.ParsePriority(priority)
	if err != nil {
		logging.ErrorWithContext(logger, "queue commit rejected", "commit_rejected",
			logging.Error(err),
			logging.String(logging.FieldPriority, priority),
			logging.String(logging.FieldImpact, "no jobs were queued"),
			logging.String(logging.FieldErrorHint, "set pipeline.priority to normal or high"),
		)
		return result, err
	}
	result.Priority = p
	if err := params.Validate(); err != nil {
		err = &queue.ConfigurationError{Field: "cases", Msg: err.Error()}
		logging.ErrorWithContext(logger, "queue commit rejected", "commit_rejected",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no jobs were queued"),
			logging.String(logging.FieldErrorHint, "remove commas and line breaks from case identifiers"),
		)
		return result, err
	}

	locker, err := c.locker(target)
	if err != nil {
		return result, fmt.Errorf("queue lock: %w", err)
	}

	err = mutex.With(ctx, locker, func() error {
		entries := params.Collect()
		result.Entries = len(entries)
		return c.Writer.Commit(target.QueueFile, entries, p)
	})
	result.Duration = time.Since(result.StartedAt)
	if err != nil {
		logging.ErrorWithContext(logger, "queue commit failed", "commit_failed",
			logging.Error(err),
			logging.String(logging.FieldPriority, p.String()),
			logging.String(logging.FieldImpact, "no jobs were queued by this commit"),
			logging.String(logging.FieldErrorHint, errorHint(err)),
		)
		return result, err
	}

	logger.Info("queue commit complete",
		logging.String(logging.FieldEventType, "commit_complete"),
		logging.String(logging.FieldPriority, p.String()),
		logging.Int(logging.FieldEntryCount, result.Entries),
		logging.Duration("duration", result.Duration),
	)
	c.record(ctx, logger, result)
	return result, nil
}

func (c *Committer) record(ctx context.Context, logger *slog.Logger, result Result) {
	if c.Recorder == nil {
		return
	}
	if err := c.Recorder.Record(ctx, result); err != nil {
		logging.WarnWithContext(logger, "commit history not recorded", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the queue was updated but the commit is missing from history"),
			logging.String(logging.FieldErrorHint, "check the history database under .proc"),
		)
	}
}

// Snapshot reads the queue under its lock.
func (c *Committer) Snapshot(ctx context.Context, target Target) ([]jobs.Entry, error) {
	locker, err := c.locker(target)
	if err != nil {
		return nil, fmt.Errorf("queue lock: %w", err)
	}
	var entries []jobs.Entry
	err = mutex.With(ctx, locker, func() error {
		var readErr error
		entries, readErr = queue.Read(target.QueueFile)
		return readErr
	})
	return entries, err
}

func errorHint(err error) string {
	var timeout *mutex.TimeoutError
	switch {
	case errors.As(err, &timeout) && timeout.Ownerless:
		return "the queue lock marker has no owner record; if no producer or daemon is running, clear it with 'ctbb lock release --force'"
	case errors.Is(err, mutex.ErrTimeout):
		return "another producer or the daemon holds the queue lock; run 'ctbb lock status'"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "the commit was interrupted while waiting for the queue lock"
	case queue.Kind(err) == "io":
		return "check that the library .proc directory exists and is writable"
	default:
		return "inspect the error and rerun the launcher"
	}
}
