package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ctbb/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
	cases   []string
}

// NewConfig produces a config rooted in a fresh temp directory with a case
// list, a library path and fast lock polling. The case list holds "case-a"
// and "case-b" unless WithCases overrides it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Pipeline.CaseList = filepath.Join(base, "cases.txt")
	cfgVal.Pipeline.Library = filepath.Join(base, "library")
	cfgVal.Lock.TimeoutSeconds = 5
	cfgVal.Lock.PollIntervalMS = 5
	cfgVal.Daemon.LogFile = filepath.Join(base, "library", ".proc", "daemon.log")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
		cases:   []string{"case-a", "case-b"},
	}
	for _, opt := range opts {
		opt(builder)
	}

	WriteCaseList(t, builder.cfg.Pipeline.CaseList, builder.cases...)
	return builder.cfg
}

// WithCases replaces the case identifiers written to the case list.
func WithCases(cases ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cases = cases
	}
}

// WithParameters overrides the dose, thickness and kernel sets.
func WithParameters(doses []int, thicknesses []float64, kernels []int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Doses = doses
		b.cfg.Pipeline.SliceThicknesses = thicknesses
		b.cfg.Pipeline.Kernels = kernels
	}
}

// WithPriority sets the configured commit priority.
func WithPriority(priority string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Priority = priority
	}
}

// WithLockMethod selects the lock backend.
func WithLockMethod(method string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Lock.Method = method
	}
}

// WithHistory toggles the commit ledger.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// WithDaemonScript enables the daemon and points it at a shell script
// written under the base directory.
func WithDaemonScript(script string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "bin", "daemon.sh")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
			b.t.Fatalf("write daemon script: %v", err)
		}
		b.cfg.Daemon.Enabled = true
		b.cfg.Daemon.Command = []string{path}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Pipeline.CaseList)
}

// WriteConfigFile encodes cfg as TOML next to the case list and returns the
// file path.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "ctbb.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// WriteCaseList writes one case per line to path.
func WriteCaseList(t testing.TB, path string, cases ...string) {
	t.Helper()

	content := strings.Join(cases, "\n")
	if len(cases) > 0 {
		content += "\n"
	}
	WriteFile(t, path, content)
}
