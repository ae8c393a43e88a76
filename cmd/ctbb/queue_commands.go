package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ctbb/internal/jobs"
	"ctbb/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and add to the job queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue size",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			stats, err := queue.Stat(lib.QueuePath())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			kind := statusOK
			detail := fmt.Sprintf("%d entries (%d bytes)", stats.Entries, stats.Bytes)
			if !stats.Exists || stats.Entries == 0 {
				kind = statusInfo
				detail = "Empty"
			}
			fmt.Fprintln(out, renderStatusLine("Queue", kind, detail, colorize))
			fmt.Fprintln(out, renderStatusLine("Path", statusInfo, stats.Path, colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type queueEntryJSON struct {
	Position  int     `json:"position"`
	Case      string  `json:"case"`
	Dose      int     `json:"dose"`
	Kernel    int     `json:"kernel"`
	Thickness float64 `json:"thickness"`
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs in consumption order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			committer, closeHistory := ctx.newCommitter(cfg, lib)
			defer closeHistory()
			entries, err := committer.Snapshot(cmd.Context(), queueTarget(lib))
			if err != nil {
				return err
			}

			if jsonOutput {
				items := make([]queueEntryJSON, 0, len(entries))
				for i, e := range entries {
					items = append(items, queueEntryJSON{Position: i + 1, Case: e.Case, Dose: e.Dose, Kernel: e.Kernel, Thickness: e.Thickness})
				}
				return writeJSON(cmd, items)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Case", "Dose", "Kernel", "Thickness"},
				queueRows(entries),
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
				"", fmt.Sprintf("%d jobs", len(entries)),
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func queueRows(entries []jobs.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.Case,
			strconv.Itoa(e.Dose),
			strconv.Itoa(e.Kernel),
			jobs.FormatThickness(e.Thickness),
		})
	}
	return rows
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var (
		cases       []string
		doses       []int
		thicknesses []float64
		kernels     []int
		priority    string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue jobs for specific cases",
		Long: "Queues the cross-product for the given cases. Parameter sets that are not " +
			"given on the command line come from the configuration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cases = append(cases, args...)
			if len(cases) == 0 {
				return fmt.Errorf("at least one --case is required")
			}
			cfg, lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			params := cfg.Parameters(cases)
			if cmd.Flags().Changed("dose") {
				params.Doses = doses
			}
			if cmd.Flags().Changed("thickness") {
				params.Thicknesses = thicknesses
			}
			if cmd.Flags().Changed("kernel") {
				params.Kernels = kernels
			}
			p := cfg.Pipeline.Priority
			if cmd.Flags().Changed("priority") {
				p = priority
			}

			committer, closeHistory := ctx.newCommitter(cfg, lib)
			defer closeHistory()
			result, err := committer.FlushJobsToQueue(cmd.Context(), params, queueTarget(lib), p)
			if err != nil {
				return fmt.Errorf("queue jobs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %d jobs (priority %s)\n", result.Entries, result.Priority)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&cases, "case", nil, "Case identifier (repeatable)")
	cmd.Flags().IntSliceVar(&doses, "dose", nil, "Dose levels (default from config)")
	cmd.Flags().Float64SliceVar(&thicknesses, "thickness", nil, "Slice thicknesses (default from config)")
	cmd.Flags().IntSliceVar(&kernels, "kernel", nil, "Reconstruction kernels (default from config)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Override pipeline.priority (normal or high)")
	return cmd
}
