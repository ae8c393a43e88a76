package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ctbb/internal/commit"
)

// Store persists commit records in SQLite.
type Store struct {
	db   *sql.DB
	path string
	host string
	pid  int
}

// Record is one completed commit.
type Record struct {
	ID        string        `json:"id"`
	QueueFile string        `json:"queue_file"`
	Priority  string        `json:"priority"`
	Entries   int           `json:"entries"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Host      string        `json:"host"`
	PID       int           `json:"pid"`
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// Fixed-width UTC timestamps sort lexically in time order.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy absorbs short write contention between producers that finish
// at the same moment.
func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the ledger at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	host, _ := os.Hostname()
	store := &Store{db: db, path: path, host: host, pid: os.Getpid()}
	if err := retryOnBusy(context.Background(), func() error {
		return store.initSchema(context.Background())
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a completed commit. It satisfies commit.Recorder.
func (s *Store) Record(ctx context.Context, result commit.Result) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO commits (id, queue_file, priority, entry_count, started_at, duration_ms, host, pid)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			result.ID.String(),
			result.QueueFile,
			result.Priority.String(),
			result.Entries,
			result.StartedAt.UTC().Format(timestampLayout),
			result.Duration.Milliseconds(),
			s.host,
			s.pid,
		)
		if err != nil {
			return fmt.Errorf("insert commit %s: %w", result.ID, err)
		}
		return nil
	})
}

// List returns the most recent records first. A non-positive limit returns
// every record.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, queue_file, priority, entry_count, started_at, duration_ms, host, pid
		FROM commits ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.QueueFile, &rec.Priority, &rec.Entries, &startedAt, &durationMS, &rec.Host, &rec.PID); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		rec.StartedAt, err = time.Parse(timestampLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at for %s: %w", rec.ID, err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}
