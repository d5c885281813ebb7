package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"transmute/internal/history"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		limit     int
		pruneDays int
	)

	cmd := &cobra.Command{
		Use:   "history [batch-id]",
		Short: "Show past conversion batches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if cmd.Flags().Changed("prune") {
				cutoff := time.Now().AddDate(0, 0, -pruneDays)
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return fmt.Errorf("prune history: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d batches older than %d days.\n", removed, pruneDays)
				return nil
			}

			if len(args) == 1 {
				return printBatchJobs(cmd, store, args[0])
			}
			return printBatches(cmd, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of batches to list")
	cmd.Flags().IntVar(&pruneDays, "prune", 0, "Delete batches older than this many days and exit")
	return cmd
}

func printBatches(cmd *cobra.Command, store *history.Store, limit int) error {
	batches, err := store.RecentBatches(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No batches recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(batches))
	for _, batch := range batches {
		finished := "running"
		if !batch.FinishedAt.IsZero() {
			finished = batch.FinishedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			batch.ID,
			batch.StartedAt.Local().Format(time.DateTime),
			finished,
			fmt.Sprintf("%d", batch.Succeeded),
			fmt.Sprintf("%d", batch.Failed),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"BATCH", "STARTED", "FINISHED", "OK", "FAILED"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight}))
	return nil
}

func printBatchJobs(cmd *cobra.Command, store *history.Store, batchID string) error {
	jobs, err := store.BatchJobs(cmd.Context(), batchID)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No jobs recorded for batch %s.\n", batchID)
		return nil
	}

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		result := "ok"
		if !job.Success {
			result = "failed"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.JobID),
			job.Filename,
			job.Routine,
			result,
			job.Message,
		})
	}
	sortRowsBy(rows, 1)
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"JOB", "FILE", "ROUTINE", "RESULT", "DETAIL"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
	return nil
}
