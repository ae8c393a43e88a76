package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ctbb/internal/jobs"
)

//go:embed sample_config.toml
var sampleConfig string

// Pipeline describes one launch: which cases to queue and the processing
// parameter cross-product applied to each of them.
type Pipeline struct {
	CaseList         string    `toml:"case_list" validate:"required"`
	Library          string    `toml:"library" validate:"required"`
	Doses            []int     `toml:"doses" validate:"dive,gt=0"`
	SliceThicknesses []float64 `toml:"slice_thicknesses" validate:"dive,gt=0"`
	Kernels          []int     `toml:"kernels" validate:"dive,gte=0"`
	Priority         string    `toml:"priority" validate:"oneof=normal high"`
}

// Lock configures the named lock that guards the queue file.
type Lock struct {
	Method string `toml:"method" validate:"oneof=dir flock"`
	// MutexDir is resolved against the library root when relative.
	MutexDir       string `toml:"mutex_dir" validate:"required"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=0"`
	PollIntervalMS int    `toml:"poll_interval_ms" validate:"gt=0"`
	BreakStale     bool   `toml:"break_stale"`
}

// Daemon configures the consumer daemon started after a launch.
type Daemon struct {
	Enabled bool     `toml:"enabled"`
	Command []string `toml:"command" validate:"required_if=Enabled true"`
	LogFile string   `toml:"log_file"`
}

// History controls the commit ledger kept next to the queue file.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" validate:"oneof=console json"`
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	// Outputs are "stderr", "stdout" or file paths. Empty means stderr.
	Outputs []string `toml:"outputs"`
}

// Config encapsulates all configuration values for the launcher.
type Config struct {
	Pipeline Pipeline `toml:"pipeline"`
	Lock     Lock     `toml:"lock"`
	Daemon   Daemon   `toml:"daemon"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	} else if path != "" {
		return nil, "", false, fmt.Errorf("config file %s not found", resolvedPath)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the library root when it does not exist yet and
// reports whether it had to.
func (c *Config) EnsureDirectories() (bool, error) {
	library := strings.TrimSpace(c.Pipeline.Library)
	if library == "" {
		return false, nil
	}
	info, err := os.Stat(library)
	switch {
	case err == nil && info.IsDir():
		return false, nil
	case err == nil:
		return false, fmt.Errorf("library path %q is not a directory", library)
	case !os.IsNotExist(err):
		return false, fmt.Errorf("stat library %q: %w", library, err)
	}
	if err := os.MkdirAll(library, 0o755); err != nil {
		return false, fmt.Errorf("create library directory %q: %w", library, err)
	}
	return true, nil
}

// MutexPath returns the absolute lock directory.
func (c *Config) MutexPath() string {
	dir := c.Lock.MutexDir
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Pipeline.Library, dir)
}

// LockTimeout converts the configured wait bound. Zero means no bound.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Lock.TimeoutSeconds) * time.Second
}

// LockPollInterval converts the configured retry interval.
func (c *Config) LockPollInterval() time.Duration {
	return time.Duration(c.Lock.PollIntervalMS) * time.Millisecond
}

// Parameters builds the job parameter set for the given cases.
func (c *Config) Parameters(cases []string) jobs.ParameterSet {
	return jobs.ParameterSet{
		Cases:       cases,
		Doses:       append([]int(nil), c.Pipeline.Doses...),
		Thicknesses: append([]float64(nil), c.Pipeline.SliceThicknesses...),
		Kernels:     append([]int(nil), c.Pipeline.Kernels...),
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
