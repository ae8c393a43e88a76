package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ctbb/internal/config"
	"ctbb/internal/deps"
	"ctbb/internal/jobs"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the launcher configuration",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check %s: %w", target, err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(cmd.OutOrStdout(), "Set pipeline.case_list and pipeline.library, then run 'ctbb config validate'.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default ~/.config/ctbb/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	if flagValue = strings.TrimSpace(flagValue); flagValue == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(flagValue)
}

// config validate loads the file itself so a broken config is reported
// with its path instead of failing in the root pre-run.
func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and summarise what a launch would do",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Config path: %s\n", path)
			} else {
				fmt.Fprintf(out, "Config path: %s (not present; defaults and environment used)\n", path)
			}
			fmt.Fprintf(out, "Library: %s\n", cfg.Pipeline.Library)
			fmt.Fprintf(out, "Jobs per case: %d (doses %v, thicknesses %s, kernels %v)\n",
				cfg.Parameters([]string{"case"}).Count(), cfg.Pipeline.Doses,
				formatThicknesses(cfg.Pipeline.SliceThicknesses), cfg.Pipeline.Kernels)
			fmt.Fprintf(out, "Lock: %s in %s (timeout %s)\n", cfg.Lock.Method, cfg.MutexPath(), lockTimeoutLabel(cfg))

			if cfg.Daemon.Enabled {
				status := deps.CheckBinaries([]deps.Requirement{deps.DaemonRequirement(cfg.Daemon.Command, false)})[0]
				if !status.Available {
					return fmt.Errorf("daemon.command: %s", status.Detail)
				}
				fmt.Fprintf(out, "Daemon: %s\n", status.Path)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func lockTimeoutLabel(cfg *config.Config) string {
	if cfg.LockTimeout() == 0 {
		return "none"
	}
	return cfg.LockTimeout().String()
}

func formatThicknesses(values []float64) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, jobs.FormatThickness(v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
