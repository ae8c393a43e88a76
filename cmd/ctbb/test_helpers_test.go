package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"ctbb/internal/config"
	"ctbb/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	queuePath  string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	return &cliTestEnv{
		cfg:        cfg,
		configPath: testsupport.WriteConfigFile(t, cfg),
		queuePath:  filepath.Join(cfg.Pipeline.Library, ".proc", "queue"),
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func queueLines(t *testing.T, path string) []string {
	t.Helper()
	content := testsupport.ReadFile(t, path)
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}
