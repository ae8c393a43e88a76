package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ctbb/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent queue commits",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, lib, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			store, err := history.Open(lib.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if records == nil {
					records = []history.Record{}
				}
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No commits recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Started", "Priority", "Jobs", "Duration", "Host", "PID", "ID"},
				historyRows(records),
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of commits to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func historyRows(records []history.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.StartedAt.Local().Format(time.DateTime),
			r.Priority,
			strconv.Itoa(r.Entries),
			r.Duration.Round(time.Millisecond).String(),
			r.Host,
			strconv.Itoa(r.PID),
			r.ID,
		})
	}
	return rows
}
