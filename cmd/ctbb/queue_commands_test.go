package main

import (
	"encoding/json"
	"testing"

	"ctbb/internal/testsupport"
)

func TestQueueListAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	if _, _, err := runCLI(t, []string{"launch"}, env.configPath); err != nil {
		t.Fatalf("launch: %v", err)
	}

	out, _, err = runCLI(t, []string{"queue", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}
	var items []queueEntryJSON
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(items) != 16 {
		t.Fatalf("expected 16 items, got %d", len(items))
	}
	first := items[0]
	if first.Position != 1 || first.Case != "case-a" || first.Dose != 100 || first.Kernel != 1 || first.Thickness != 0.6 {
		t.Fatalf("unexpected first item %+v", first)
	}

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "case-b")
	requireContains(t, out, "5.0")

	out, _, err = runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "16 entries")
}

func TestQueueAddUsesFlagsAndConfigDefaults(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithParameters([]int{100}, []float64{0.6}, []int{1}))
	testsupport.WriteFile(t, env.queuePath, "X,50,2,1.0\n")

	out, _, err := runCLI(t, []string{"queue", "add", "--case", "Z", "--dose", "50,25", "--thickness", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "Queued 2 jobs (priority normal)")
	if got := testsupport.ReadFile(t, env.queuePath); got != "X,50,2,1.0\nZ,50,1,1.0\nZ,25,1,1.0\n" {
		t.Fatalf("unexpected queue %q", got)
	}

	if _, _, err := runCLI(t, []string{"queue", "add", "Y", "--priority", "high"}, env.configPath); err != nil {
		t.Fatalf("queue add high: %v", err)
	}
	lines := queueLines(t, env.queuePath)
	if lines[0] != "Y,100,1,0.6" {
		t.Fatalf("expected high priority add at head, got %q", lines[0])
	}

	if _, _, err := runCLI(t, []string{"queue", "add"}, env.configPath); err == nil {
		t.Fatal("expected error without cases")
	}
	if _, _, err := runCLI(t, []string{"queue", "add", "--case", "bad,case"}, env.configPath); err == nil {
		t.Fatal("expected error for case containing a comma")
	}
}
