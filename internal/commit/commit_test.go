package commit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ctbb/internal/commit"
	"ctbb/internal/jobs"
	"ctbb/internal/mutex"
	"ctbb/internal/queue"
)

type fixture struct {
	target commit.Target
	lock   commit.LockOptions
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".proc"), 0o755); err != nil {
		t.Fatal(err)
	}
	return fixture{
		target: commit.Target{
			QueueFile: filepath.Join(root, ".proc", "queue"),
			LockName:  "queue",
			LockDir:   filepath.Join(root, ".proc", "mutex"),
		},
		lock: commit.LockOptions{Timeout: 5 * time.Second, PollInterval: time.Millisecond},
	}
}

func (f fixture) lockFree(t *testing.T) {
	t.Helper()
	status, err := mutex.Inspect(mutex.Options{Name: f.target.LockName, Dir: f.target.LockDir})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if status.Held {
		t.Fatalf("queue lock still held at %s", status.Path)
	}
}

func exampleParams() jobs.ParameterSet {
	return jobs.ParameterSet{
		Cases:       []string{"A", "B"},
		Doses:       []int{100},
		Thicknesses: []float64{0.6},
		Kernels:     []int{1},
	}
}

func readQueue(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	return string(data)
}

func TestFlushNormalIntoEmptyQueue(t *testing.T) {
	f := newFixture(t)
	c := &commit.Committer{Lock: f.lock}

	result, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "normal")
	if err != nil {
		t.Fatalf("FlushJobsToQueue: %v", err)
	}
	if got := readQueue(t, f.target.QueueFile); got != "A,100,1,0.6\nB,100,1,0.6\n" {
		t.Fatalf("unexpected queue %q", got)
	}
	if result.Entries != 2 || result.Priority != queue.PriorityNormal || result.ID.String() == "" {
		t.Fatalf("unexpected result %+v", result)
	}
	f.lockFree(t)
}

func TestFlushHighPrependsExistingBacklog(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(f.target.QueueFile, []byte("X,50,2,1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := &commit.Committer{Lock: f.lock}

	if _, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "high"); err != nil {
		t.Fatalf("FlushJobsToQueue: %v", err)
	}
	if got := readQueue(t, f.target.QueueFile); got != "A,100,1,0.6\nB,100,1,0.6\nX,50,2,1.0\n" {
		t.Fatalf("unexpected queue %q", got)
	}
	f.lockFree(t)
}

func TestFlushRejectsUnknownPriority(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(f.target.QueueFile, []byte("X,50,2,1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := &commit.Committer{Lock: f.lock}

	_, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "urgent")
	var cfgErr *queue.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if got := readQueue(t, f.target.QueueFile); got != "X,50,2,1.0\n" {
		t.Fatalf("queue modified: %q", got)
	}
	f.lockFree(t)

	// The next commit must not be blocked by the rejected one.
	if _, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "normal"); err != nil {
		t.Fatalf("follow-up commit: %v", err)
	}
}

func TestFlushRejectsUnwritableCaseIDs(t *testing.T) {
	f := newFixture(t)
	params := exampleParams()
	params.Cases = []string{"A", "B,C"}
	c := &commit.Committer{Lock: f.lock}

	_, err := c.FlushJobsToQueue(context.Background(), params, f.target, "normal")
	if !errors.Is(err, queue.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := os.Stat(f.target.QueueFile); !os.IsNotExist(err) {
		t.Fatal("queue file created for rejected commit")
	}
}

func TestFlushEmptyParametersLeavesQueueUnchanged(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(f.target.QueueFile, []byte("X,50,2,1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := &commit.Committer{Lock: f.lock}

	params := []jobs.ParameterSet{
		{Doses: []int{100}, Thicknesses: []float64{0.6}, Kernels: []int{1}},
		{Cases: []string{"A"}, Thicknesses: []float64{0.6}, Kernels: []int{1}},
		{Cases: []string{"", "  "}, Doses: []int{100}, Thicknesses: []float64{0.6}, Kernels: []int{1}},
	}
	for i, p := range params {
		for _, priority := range []string{"normal", "high"} {
			result, err := c.FlushJobsToQueue(context.Background(), p, f.target, priority)
			if err != nil {
				t.Fatalf("params %d %s: %v", i, priority, err)
			}
			if result.Entries != 0 {
				t.Fatalf("params %d: expected zero entries, got %d", i, result.Entries)
			}
		}
	}
	if got := readQueue(t, f.target.QueueFile); got != "X,50,2,1.0\n" {
		t.Fatalf("queue modified: %q", got)
	}
	f.lockFree(t)
}

func TestFlushReleasesLockOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.target.QueueFile = filepath.Join(filepath.Dir(f.target.QueueFile), "missing", "queue")
	c := &commit.Committer{Lock: f.lock}

	for _, priority := range []string{"normal", "high"} {
		_, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, priority)
		var ioErr *queue.IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("%s: expected IOError, got %v", priority, err)
		}
		f.lockFree(t)
	}
}

func TestFlushTimesOutWhenLockHeld(t *testing.T) {
	f := newFixture(t)
	holder, err := mutex.New(mutex.Options{Name: f.target.LockName, Dir: f.target.LockDir})
	if err != nil {
		t.Fatal(err)
	}
	if err := holder.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer holder.Unlock()

	c := &commit.Committer{Lock: commit.LockOptions{Timeout: 30 * time.Millisecond, PollInterval: 5 * time.Millisecond}}
	_, err = c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "normal")
	if !errors.Is(err, mutex.ErrTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
	if _, err := os.Stat(f.target.QueueFile); !os.IsNotExist(err) {
		t.Fatal("queue written without the lock")
	}
}

func TestSequentialCommitsDoNotDeadlock(t *testing.T) {
	for _, method := range []mutex.Method{mutex.MethodDir, mutex.MethodFlock} {
		t.Run(string(method), func(t *testing.T) {
			f := newFixture(t)
			f.lock.Method = method
			c := &commit.Committer{Lock: f.lock}
			for i := 0; i < 3; i++ {
				if _, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "normal"); err != nil {
					t.Fatalf("commit %d: %v", i, err)
				}
			}
			entries, err := queue.Read(f.target.QueueFile)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 6 {
				t.Fatalf("expected 6 entries, got %d", len(entries))
			}
		})
	}
}

func TestConcurrentCommitsNeverInterleave(t *testing.T) {
	for _, method := range []mutex.Method{mutex.MethodDir, mutex.MethodFlock} {
		t.Run(string(method), func(t *testing.T) {
			f := newFixture(t)
			f.lock.Method = method
			f.lock.Timeout = 30 * time.Second

			const producers = 8
			var wg sync.WaitGroup
			var mu sync.Mutex
			expected := 0
			errs := make(chan error, producers)
			for i := 0; i < producers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					params := jobs.ParameterSet{
						Cases:       []string{fmt.Sprintf("case-%02d-a", i), fmt.Sprintf("case-%02d-b", i)},
						Doses:       []int{100, 10},
						Thicknesses: []float64{0.6, 5.0},
						Kernels:     []int{1, 3},
					}
					priority := "normal"
					if i%2 == 1 {
						priority = "high"
					}
					c := &commit.Committer{Lock: f.lock}
					result, err := c.FlushJobsToQueue(context.Background(), params, f.target, priority)
					if err != nil {
						errs <- err
						return
					}
					mu.Lock()
					expected += result.Entries
					mu.Unlock()
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Fatalf("producer failed: %v", err)
			}

			content := readQueue(t, f.target.QueueFile)
			if !strings.HasSuffix(content, "\n") {
				t.Fatal("queue ends with a partial line")
			}
			lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
			if len(lines) != expected || expected != producers*16 {
				t.Fatalf("expected %d lines, got %d", producers*16, len(lines))
			}
			for i, line := range lines {
				if _, err := jobs.ParseEntry(line); err != nil {
					t.Fatalf("line %d corrupted: %v", i+1, err)
				}
			}
			f.lockFree(t)
		})
	}
}

type recorderFunc func(ctx context.Context, result commit.Result) error

func (f recorderFunc) Record(ctx context.Context, result commit.Result) error { return f(ctx, result) }

func TestRecorderRunsAfterLockRelease(t *testing.T) {
	f := newFixture(t)
	var recorded []commit.Result
	c := &commit.Committer{
		Lock: f.lock,
		Recorder: recorderFunc(func(_ context.Context, result commit.Result) error {
			f.lockFree(t)
			recorded = append(recorded, result)
			return errors.New("ledger unavailable")
		}),
	}

	result, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "HIGH")
	if err != nil {
		t.Fatalf("recorder failure must not fail the commit: %v", err)
	}
	if len(recorded) != 1 || recorded[0].ID != result.ID || recorded[0].Priority != queue.PriorityHigh {
		t.Fatalf("unexpected recorded results %+v", recorded)
	}
}

func TestFlushLogsCommitOutcome(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	c := &commit.Committer{Lock: f.lock, Logger: logger}

	result, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "normal")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "urgent"); err == nil {
		t.Fatal("expected error")
	}

	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 log records, got %d: %s", len(records), buf.String())
	}
	info := records[0]
	if info["level"] != "INFO" || info["commit_id"] != result.ID.String() || info["entry_count"] != float64(2) || info["component"] != "commit" {
		t.Fatalf("unexpected success record %v", info)
	}
	if records[1]["level"] != "ERROR" || records[1]["event_type"] != "commit_rejected" {
		t.Fatalf("unexpected failure record %v", records[1])
	}
}

func TestSnapshotReadsUnderLock(t *testing.T) {
	f := newFixture(t)
	c := &commit.Committer{Lock: f.lock}
	if _, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "normal"); err != nil {
		t.Fatal(err)
	}
	entries, err := c.Snapshot(context.Background(), f.target)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(entries) != 2 || entries[0].Case != "A" || entries[1].Case != "B" {
		t.Fatalf("unexpected snapshot %+v", entries)
	}
	f.lockFree(t)
}

func TestFlushTimeoutOnOwnerlessMarkerPointsAtForceRelease(t *testing.T) {
	f := newFixture(t)
	marker := filepath.Join(f.target.LockDir, f.target.LockName+".lock")
	if err := os.MkdirAll(marker, 0o755); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(marker, old, old); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	c := &commit.Committer{
		Lock:   commit.LockOptions{Timeout: 30 * time.Millisecond, PollInterval: 5 * time.Millisecond, BreakStale: true},
		Logger: logger,
	}
	_, err := c.FlushJobsToQueue(context.Background(), exampleParams(), f.target, "normal")
	var timeout *mutex.TimeoutError
	if !errors.As(err, &timeout) || !timeout.Ownerless {
		t.Fatalf("expected ownerless lock timeout, got %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("ownerless marker must not be removed: %v", err)
	}

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("decode log %q: %v", buf.String(), err)
	}
	hint, _ := rec["error_hint"].(string)
	if rec["event_type"] != "commit_failed" || !strings.Contains(hint, "ctbb lock release --force") {
		t.Fatalf("unexpected failure record %v", rec)
	}
}
