package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ctbb/internal/mutex"
	"ctbb/internal/testsupport"
)

func TestLockStatusAndForceRelease(t *testing.T) {
	env := setupCLITestEnv(t)
	// Load the layout once so the mutex directory exists.
	if _, _, err := runCLI(t, []string{"lock", "status"}, env.configPath); err != nil {
		t.Fatalf("lock status: %v", err)
	}

	holder, err := mutex.New(mutex.Options{Name: "queue", Dir: env.cfg.MutexPath()})
	if err != nil {
		t.Fatal(err)
	}
	if err := holder.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"lock", "status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("lock status --json: %v", err)
	}
	var status lockStatusJSON
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !status.Held || status.OwnerPID == 0 || status.Method != "dir" {
		t.Fatalf("unexpected status %+v", status)
	}

	if _, _, err := runCLI(t, []string{"lock", "release"}, env.configPath); err == nil {
		t.Fatal("expected release without --force to fail")
	}
	out, _, err = runCLI(t, []string{"lock", "release", "--force"}, env.configPath)
	if err != nil {
		t.Fatalf("lock release --force: %v", err)
	}
	requireContains(t, out, "Queue lock released")

	out, _, err = runCLI(t, []string{"lock", "release", "--force"}, env.configPath)
	if err != nil {
		t.Fatalf("second release: %v", err)
	}
	requireContains(t, out, "not held")

	out, _, err = runCLI(t, []string{"lock", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("lock status: %v", err)
	}
	requireContains(t, out, "Free")
}

func TestLaunchTimesOutWhileLockHeld(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Lock.TimeoutSeconds = 1
	env.configPath = testsupport.WriteConfigFile(t, env.cfg)

	holder, err := mutex.New(mutex.Options{Name: "queue", Dir: env.cfg.MutexPath()})
	if err != nil {
		t.Fatal(err)
	}
	if err := holder.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer holder.Unlock()

	_, _, err = runCLI(t, []string{"launch"}, env.configPath)
	if err == nil {
		t.Fatal("expected lock timeout")
	}
	var timeoutErr *mutex.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *mutex.TimeoutError, got %v", err)
	}
}
