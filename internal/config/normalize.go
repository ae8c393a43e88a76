package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePipeline(); err != nil {
		return err
	}
	c.normalizeLock()
	c.normalizeDaemon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePipeline() error {
	if strings.TrimSpace(c.Pipeline.CaseList) == "" {
		if value, ok := os.LookupEnv("CTBB_CASE_LIST"); ok {
			c.Pipeline.CaseList = value
		}
	}
	if strings.TrimSpace(c.Pipeline.Library) == "" {
		if value, ok := os.LookupEnv("CTBB_LIBRARY"); ok {
			c.Pipeline.Library = value
		}
	}

	var err error
	if c.Pipeline.CaseList, err = expandPath(strings.TrimSpace(c.Pipeline.CaseList)); err != nil {
		return fmt.Errorf("pipeline.case_list: %w", err)
	}
	if c.Pipeline.Library, err = expandPath(strings.TrimSpace(c.Pipeline.Library)); err != nil {
		return fmt.Errorf("pipeline.library: %w", err)
	}

	c.Pipeline.Doses = dedupe(c.Pipeline.Doses)
	c.Pipeline.SliceThicknesses = dedupe(c.Pipeline.SliceThicknesses)
	c.Pipeline.Kernels = dedupe(c.Pipeline.Kernels)

	c.Pipeline.Priority = strings.ToLower(strings.TrimSpace(c.Pipeline.Priority))
	if c.Pipeline.Priority == "" {
		c.Pipeline.Priority = defaultPriority
	}
	return nil
}

func (c *Config) normalizeLock() {
	c.Lock.Method = strings.ToLower(strings.TrimSpace(c.Lock.Method))
	if c.Lock.Method == "" {
		c.Lock.Method = defaultLockMethod
	}
	c.Lock.MutexDir = strings.TrimSpace(c.Lock.MutexDir)
	if c.Lock.MutexDir == "" {
		c.Lock.MutexDir = defaultMutexDir
	}
	if strings.HasPrefix(c.Lock.MutexDir, "~") {
		if expanded, err := expandPath(c.Lock.MutexDir); err == nil {
			c.Lock.MutexDir = expanded
		}
	}
	c.Lock.MutexDir = filepath.Clean(c.Lock.MutexDir)
	if c.Lock.PollIntervalMS <= 0 {
		c.Lock.PollIntervalMS = defaultLockPollInterval
	}
}

func (c *Config) normalizeDaemon() {
	command := c.Daemon.Command[:0]
	for _, arg := range c.Daemon.Command {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	c.Daemon.Command = command
	c.Daemon.LogFile = strings.TrimSpace(c.Daemon.LogFile)
	if c.Daemon.LogFile == "" && c.Pipeline.Library != "" {
		c.Daemon.LogFile = filepath.Join(c.Pipeline.Library, ".proc", "daemon.log")
	} else if c.Daemon.LogFile != "" {
		if expanded, err := expandPath(c.Daemon.LogFile); err == nil {
			c.Daemon.LogFile = expanded
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	outputs := make([]string, 0, len(c.Logging.Outputs))
	for _, out := range c.Logging.Outputs {
		out = strings.TrimSpace(out)
		switch out {
		case "":
			continue
		case "stderr", "stdout":
		default:
			if expanded, err := expandPath(out); err == nil {
				out = expanded
			}
		}
		outputs = append(outputs, out)
	}
	c.Logging.Outputs = dedupe(outputs)
}

// dedupe drops repeated values, keeping first-seen order.
func dedupe[T comparable](values []T) []T {
	if values == nil {
		return nil
	}
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
