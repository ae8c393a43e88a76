package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ctbb/internal/caselist"
	"ctbb/internal/config"
	"ctbb/internal/daemonctl"
	"ctbb/internal/deps"
	"ctbb/internal/library"
	"ctbb/internal/queue"
)

func newLaunchCommand(ctx *commandContext) *cobra.Command {
	var priority string
	var noDaemon bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Queue every case in the case list and start the daemon",
		Long: "Reads pipeline.case_list, expands each case into the configured dose, " +
			"slice thickness and kernel combinations, and commits the jobs to the library queue. " +
			"With daemon.enabled the consumer daemon is started afterwards unless it is already running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			cases, err := caselist.Load(cfg.Pipeline.CaseList)
			if err != nil {
				return err
			}
			params := cfg.Parameters(cases)

			p := cfg.Pipeline.Priority
			if cmd.Flags().Changed("priority") {
				p = priority
			}

			out := cmd.OutOrStdout()
			if dryRun {
				if _, err := queue.ParsePriority(p); err != nil {
					return err
				}
				fmt.Fprintf(out, "Would queue %d jobs for %d cases (priority %s) to %s\n",
					params.Count(), len(cases), strings.ToLower(strings.TrimSpace(p)), lib.QueuePath())
				return nil
			}

			committer, closeHistory := ctx.newCommitter(cfg, lib)
			defer closeHistory()
			result, err := committer.FlushJobsToQueue(cmd.Context(), params, queueTarget(lib), p)
			if err != nil {
				return fmt.Errorf("queue jobs: %w", err)
			}
			fmt.Fprintf(out, "Queued %d jobs for %d cases (priority %s) to %s\n",
				result.Entries, len(cases), result.Priority, result.QueueFile)

			if !cfg.Daemon.Enabled || noDaemon {
				return nil
			}
			return startDaemon(cmd, cfg, lib)
		},
	}

	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Override pipeline.priority (normal or high)")
	cmd.Flags().BoolVar(&noDaemon, "no-daemon", false, "Do not start the daemon after queueing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report how many jobs would be queued without writing")
	return cmd
}

func daemonOptions(cfg *config.Config, lib *library.Library) daemonctl.Options {
	return daemonctl.Options{
		Command:     cfg.Daemon.Command,
		LibraryPath: lib.Root,
		LogFile:     cfg.Daemon.LogFile,
		PIDFile:     lib.DaemonPIDPath(),
	}
}

func startDaemon(cmd *cobra.Command, cfg *config.Config, lib *library.Library) error {
	if len(cfg.Daemon.Command) == 0 {
		return fmt.Errorf("daemon.command is not configured")
	}
	if status := deps.CheckBinaries([]deps.Requirement{deps.DaemonRequirement(cfg.Daemon.Command, false)})[0]; !status.Available {
		return fmt.Errorf("start daemon: %s", status.Detail)
	}
	result, err := daemonctl.EnsureStarted(daemonOptions(cfg, lib))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch result.State {
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
	default:
		fmt.Fprintf(out, "Daemon started (pid %d), logging to %s\n", result.PID, cfg.Daemon.LogFile)
	}
	return nil
}
