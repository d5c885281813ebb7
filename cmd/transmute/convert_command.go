package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"transmute/internal/config"
	"transmute/internal/engine"
	"transmute/internal/fileutil"
	"transmute/internal/history"
	"transmute/internal/logging"
	"transmute/internal/routines"
	"transmute/internal/workspace"
)

// Workspaces older than this are leftovers from a crashed run.
const staleWorkspaceAge = 24 * time.Hour

func newConvertCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		routineFlag  string
		outputFlag   string
		workersFlag  int
		overwrite    bool
		deleteSource bool
		copyLocal    bool
		noProgress   bool
	)

	cmd := &cobra.Command{
		Use:   "convert [flags] INPUT...",
		Short: "Convert media images with a pool of workers",
		Long: `Convert runs the selected conversion routine over every input across a
fixed-size worker pool. Inputs may be files or directories; directories are
scanned for files matching the routine's input extensions. Each job stages
into its own scratch directory, so one bad file never aborts the batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			routineID := routines.ID(strings.TrimSpace(routineFlag))
			routine, ok := routines.Get(routineID)
			if !ok {
				return fmt.Errorf("unknown routine %q (run 'transmute routines' for the list)", routineFlag)
			}
			desc := routine.Describe()

			if cmd.Flags().Changed("workers") {
				cfg.Workers.Count = workersFlag
			}
			if cmd.Flags().Changed("overwrite") {
				cfg.Behavior.OverwriteOutputs = overwrite
			}
			if cmd.Flags().Changed("delete-source") {
				cfg.Behavior.DeleteSourceOnSuccess = deleteSource
			}
			if cmd.Flags().Changed("copy-local") {
				cfg.Behavior.CopyLocally = copyLocal
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			inputs, err := collectInputs(desc, args)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no inputs matching %s found", strings.Join(desc.InputExts, "/"))
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			checkFreeSpace(cmd, cfg)

			// One batch at a time per scratch base.
			batchLock := flock.New(filepath.Join(cfg.Paths.TempDir, "transmute.lock"))
			locked, err := batchLock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire batch lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another transmute batch is already using %s", cfg.Paths.TempDir)
			}
			defer batchLock.Unlock()

			workspace.CleanStale(cmd.Context(), cfg.Paths.TempDir, staleWorkspaceAge, logger)

			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			batchID := uuid.NewString()
			if err := store.StartBatch(cmd.Context(), batchID); err != nil {
				return fmt.Errorf("record batch: %w", err)
			}

			renderer := newProgressRenderer(cmd.OutOrStdout(), len(inputs), noProgress)
			coordinator := engine.New(cfg, logger,
				engine.WithRecorder(&historyRecorder{store: store, batchID: batchID, logger: logger}),
				engine.WithObserver(renderer.observe))

			for _, input := range inputs {
				if _, err := coordinator.Submit(input, routineID, outputFlag); err != nil {
					return err
				}
			}

			signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			renderer.start()
			coordinator.Start()
			summary := coordinator.Wait(signalCtx)
			coordinator.Stop()
			coordinator.Tick()
			renderer.stop()

			if err := store.FinishBatch(context.Background(), batchID, summary.Succeeded, summary.Failed); err != nil {
				logger.Warn("could not finalize batch record", logging.Error(err))
			}

			printSummary(cmd, summary)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", summary.Failed, summary.Failed+summary.Succeeded)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&routineFlag, "routine", "r", "", "Conversion routine id (see 'transmute routines')")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory (defaults to the configured output dir)")
	cmd.Flags().IntVar(&workersFlag, "workers", 0, "Worker pool size override")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing outputs instead of suffixing")
	cmd.Flags().BoolVar(&deleteSource, "delete-source", false, "Delete sources after successful conversion")
	cmd.Flags().BoolVar(&copyLocal, "copy-local", false, "Copy inputs into the scratch dir before converting")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the live progress display")
	_ = cmd.MarkFlagRequired("routine")

	return cmd
}

// collectInputs expands directory arguments into the files the routine
// accepts and validates file arguments against its input extensions.
func collectInputs(desc routines.Description, args []string) ([]string, error) {
	accepted := map[string]bool{}
	for _, ext := range desc.InputExts {
		accepted["."+strings.ToLower(ext)] = true
	}

	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", arg, err)
		}
		if !info.IsDir() {
			if !accepted[strings.ToLower(filepath.Ext(arg))] {
				return nil, fmt.Errorf("input %q does not match routine extensions (%s)",
					arg, strings.Join(desc.InputExts, "/"))
			}
			inputs = append(inputs, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("scan %q: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if accepted[strings.ToLower(filepath.Ext(entry.Name()))] {
				inputs = append(inputs, filepath.Join(arg, entry.Name()))
			}
		}
	}
	sort.Strings(inputs)
	return inputs, nil
}

func checkFreeSpace(cmd *cobra.Command, cfg *config.Config) {
	if cfg.Workers.MinFreeSpaceGiB <= 0 {
		return
	}
	free, err := fileutil.FreeSpace(cfg.Paths.TempDir)
	if err != nil {
		return
	}
	floor := uint64(cfg.Workers.MinFreeSpaceGiB) << 30
	if free < floor {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"warning: only %.1f GiB free under %s (floor is %d GiB)\n",
			float64(free)/(1<<30), cfg.Paths.TempDir, cfg.Workers.MinFreeSpaceGiB)
	}
}

func printSummary(cmd *cobra.Command, summary engine.Summary) {
	rows := make([][]string, 0, len(summary.Results))
	for _, result := range summary.Results {
		status := "ok"
		if result.Status != engine.StatusCompletedSuccess {
			status = "failed"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", result.JobID),
			result.Filename,
			status,
			result.Message,
		})
	}
	sortRowsBy(rows, 1)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"JOB", "FILE", "RESULT", "DETAIL"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
	fmt.Fprintf(out, "%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
}

// historyRecorder adapts the history store to the engine's Recorder.
type historyRecorder struct {
	store   *history.Store
	batchID string
	logger  *slog.Logger
}

func (r *historyRecorder) RecordJob(jobID int64, filename, routine string, success bool, message string) {
	err := r.store.RecordJob(context.Background(), r.batchID, jobID, filename, routine, success, message)
	if err != nil {
		r.logger.Warn("could not record job outcome",
			logging.Int64(logging.FieldJobID, jobID),
			logging.Error(err))
	}
}
