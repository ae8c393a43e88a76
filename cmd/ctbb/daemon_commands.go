package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ctbb/internal/daemonctl"
	"ctbb/internal/deps"
	"ctbb/internal/logs"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start or check the queue consumer daemon",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon unless it is already running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			return startDaemon(cmd, cfg, lib)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon recorded in the library is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			alive, pid, err := daemonctl.ProcessInfo(lib.DaemonPIDPath())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			switch {
			case alive:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", pid), colorize))
			case pid > 0:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, fmt.Sprintf("Not running (last pid %d)", pid), colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "Never started from this library", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Auto start", statusInfo, yesNo(cfg.Daemon.Enabled), colorize))
			cmdStatus := deps.CheckBinaries([]deps.Requirement{deps.DaemonRequirement(cfg.Daemon.Command, !cfg.Daemon.Enabled)})[0]
			switch {
			case cmdStatus.Available:
				fmt.Fprintln(out, renderStatusLine("Command", statusOK, cmdStatus.Path, colorize))
			case cmdStatus.Optional:
				fmt.Fprintln(out, renderStatusLine("Command", statusInfo, cmdStatus.Detail, colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Command", statusError, cmdStatus.Detail, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Log", statusInfo, cfg.Daemon.LogFile, colorize))
			return nil
		},
	}

	var lines int
	var follow bool
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Print the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tail, offset, err := logs.Last(cfg.Daemon.LogFile, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), cfg.Daemon.LogFile, offset, 250*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	logCmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	logCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are appended")

	daemonCmd.AddCommand(startCmd, statusCmd, logCmd)
	return daemonCmd
}
