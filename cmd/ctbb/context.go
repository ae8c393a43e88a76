package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ctbb/internal/commit"
	"ctbb/internal/config"
	"ctbb/internal/history"
	"ctbb/internal/library"
	"ctbb/internal/logging"
	"ctbb/internal/mutex"
	"ctbb/internal/queue"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		created, err := cfg.EnsureDirectories()
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		if created {
			logging.WarnWithContext(c.loggerValue(), "created library directory", "library_created",
				logging.String("library", cfg.Pipeline.Library),
				logging.String(logging.FieldImpact, "the library was empty; the daemon has no raw data yet"),
				logging.String(logging.FieldErrorHint, "check pipeline.library if this path is unexpected"),
			)
		}
	})
	return c.config, c.configErr
}

func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) openLibrary() (*config.Config, *library.Library, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	lib, err := library.Open(cfg.Pipeline.Library, cfg.Lock.MutexDir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, lib, nil
}

func (c *commandContext) lockOptions(cfg *config.Config, lib *library.Library) mutex.Options {
	return mutex.Options{
		Method:       mutex.Method(cfg.Lock.Method),
		Name:         library.QueueLockName,
		Dir:          lib.MutexDir,
		Timeout:      cfg.LockTimeout(),
		PollInterval: cfg.LockPollInterval(),
		BreakStale:   cfg.Lock.BreakStale,
		Logger:       c.loggerValue(),
	}
}

func queueTarget(lib *library.Library) commit.Target {
	return commit.Target{
		QueueFile: lib.QueuePath(),
		LockName:  library.QueueLockName,
		LockDir:   lib.MutexDir,
	}
}

// newCommitter wires the configured lock policy and, when enabled, the
// history ledger. The returned close function is always safe to call.
func (c *commandContext) newCommitter(cfg *config.Config, lib *library.Library) (*commit.Committer, func()) {
	logger := c.loggerValue()
	committer := &commit.Committer{
		Lock: commit.LockOptions{
			Method:       mutex.Method(cfg.Lock.Method),
			Timeout:      cfg.LockTimeout(),
			PollInterval: cfg.LockPollInterval(),
			BreakStale:   cfg.Lock.BreakStale,
		},
		Writer: queue.Writer{Sync: true},
		Logger: logger,
	}
	if !cfg.History.Enabled {
		return committer, func() {}
	}
	store, err := history.Open(lib.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "commit history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "commits are queued but not recorded in history"),
			logging.String(logging.FieldErrorHint, "delete "+lib.HistoryPath()+" or set history.enabled = false"),
		)
		return committer, func() {}
	}
	committer.Recorder = store
	return committer, func() { _ = store.Close() }
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
