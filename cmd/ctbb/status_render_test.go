package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"ctbb/internal/history"
	"ctbb/internal/jobs"
	"ctbb/internal/mutex"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Queue", statusError, "Unreadable", false)
	want := fmt.Sprintf("  %-*s %s", statusLabelWidth, "Queue:", "[ERROR] Unreadable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Queue", statusOK, "3 entries", true)
	want := text.FgGreen.Sprint(renderStatusLine("Queue", statusOK, "3 entries", false))
	if got != want {
		t.Fatalf("expected green line %q, got %q", want, got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestLockStatusLines(t *testing.T) {
	free := lockStatusLines(mutex.Status{Name: "queue", Method: mutex.MethodDir, Path: "/lib/.proc/mutex/queue.lock"}, false)
	if !strings.Contains(strings.Join(free, "\n"), "[OK] Free") {
		t.Fatalf("expected free state, got %q", free)
	}

	stale := lockStatusLines(mutex.Status{
		Name:   "queue",
		Method: mutex.MethodDir,
		Held:   true,
		Stale:  true,
		Owner:  &mutex.Owner{PID: 4242, Host: "recon-01", AcquiredAt: time.Now()},
	}, false)
	joined := strings.Join(stale, "\n")
	if !strings.Contains(joined, "[WARN]") || !strings.Contains(joined, "pid 4242 on recon-01") {
		t.Fatalf("unexpected stale lines %q", stale)
	}
}

func TestRenderTablesPadRows(t *testing.T) {
	rows := queueRows([]jobs.Entry{{Case: "A", Dose: 100, Kernel: 1, Thickness: 5}})
	if len(rows) != 1 || rows[0][4] != "5.0" || rows[0][0] != "1" {
		t.Fatalf("unexpected queue rows %q", rows)
	}
	out := renderTable([]string{"#", "Case", "Dose", "Kernel", "Thickness"}, [][]string{{"1", "A"}}, nil)
	if !strings.Contains(out, "THICKNESS") || !strings.Contains(out, "A") {
		t.Fatalf("unexpected table %q", out)
	}
	if renderTable(nil, rows, nil) != "" {
		t.Fatal("expected empty output without headers")
	}

	hist := historyRows([]history.Record{{ID: "abc", Priority: "high", Entries: 16, Duration: 1500 * time.Millisecond, PID: 7}})
	if hist[0][1] != "high" || hist[0][2] != "16" || hist[0][3] != "1.5s" {
		t.Fatalf("unexpected history rows %q", hist)
	}
}
