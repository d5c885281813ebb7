package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"transmute/internal/config"
	"transmute/internal/logging"
	"transmute/internal/routines"
	"transmute/internal/services"
)

// Recorder persists terminal job outcomes. The engine calls it from the
// coordinator goroutine only.
type Recorder interface {
	RecordJob(jobID int64, filename string, routineID string, success bool, message string)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithExtractor overrides the archive extractor handed to workers.
func WithExtractor(extractor routines.Extractor) Option {
	return func(c *Coordinator) { c.extractor = extractor }
}

// WithRecorder attaches a terminal-outcome recorder.
func WithRecorder(recorder Recorder) Option {
	return func(c *Coordinator) { c.recorder = recorder }
}

// WithObserver attaches a callback invoked for every drained event with
// the updated state of the job it belongs to. Used by the CLI progress
// renderer; runs on the coordinator goroutine.
func WithObserver(observer func(Event, JobState)) Option {
	return func(c *Coordinator) { c.observer = observer }
}

// WithWorkerCount overrides the configured pool size.
func WithWorkerCount(count int) Option {
	return func(c *Coordinator) { c.workerCount = count }
}

// Coordinator owns the batch: it submits jobs, drains worker events on a
// fixed tick, aggregates per-job state, and decides batch completion.
type Coordinator struct {
	cfg         *config.Config
	logger      *slog.Logger
	jobLogger   *slog.Logger
	queue       *Queue
	bus         *Bus
	pool        *Pool
	extractor   routines.Extractor
	recorder    Recorder
	observer    func(Event, JobState)
	workerCount int

	mu        sync.Mutex
	states    map[int64]*JobState
	order     []int64
	nextJobID int64
	succeeded int
	failed    int
	canceled  bool
}

func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "coordinator"),
		jobLogger:   logging.NewComponentLogger(logger, "job"),
		queue:       NewQueue(),
		bus:         NewBus(),
		states:      map[int64]*JobState{},
		workerCount: cfg.Workers.Count,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pool = NewPool(c.workerCount, c.queue, c.bus, c.extractor, logger)
	return c
}

// Start launches the worker pool. The pool runs on its own background
// context: cancelling a batch stops pending jobs but lets running
// conversions finish naturally.
func (c *Coordinator) Start() {
	c.pool.Start(context.Background())
	c.logger.Info("worker pool started", logging.Int("workers", c.pool.Size()))
}

// Submit enqueues one conversion job and returns its id. The job carries
// an immutable snapshot of the current configuration.
func (c *Coordinator) Submit(inputPath string, routineID routines.ID, outputDir string) (int64, error) {
	routine, ok := routines.Get(routineID)
	if !ok {
		return 0, services.Wrap(services.ErrValidation, "", "submit",
			fmt.Sprintf("unknown routine %q", routineID), nil)
	}
	if _, err := os.Lstat(inputPath); err != nil {
		return 0, services.Wrap(services.ErrValidation, "", "submit",
			fmt.Sprintf("input %q not found", inputPath), err)
	}
	desc := routine.Describe()
	if outputDir == "" {
		outputDir = c.cfg.Paths.OutputDir
	}
	if outputDir == "" {
		outputDir = filepath.Dir(inputPath)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.canceled {
		return 0, services.Wrap(services.ErrValidation, "", "submit",
			"batch already canceled", nil)
	}
	c.nextJobID++
	job := Descriptor{
		JobID:            c.nextJobID,
		InputPath:        inputPath,
		RoutineID:        routineID,
		OutputDir:        outputDir,
		PrimaryExt:       primaryExt(desc, c.cfg),
		SecondaryExt:     desc.SecondaryExt,
		OverwriteAllowed: c.cfg.Behavior.OverwriteOutputs,
		MultiFileInput:   desc.MultiFile,
		Settings:         c.cfg.Snapshot(),
	}
	c.states[job.JobID] = &JobState{
		JobID:     job.JobID,
		Filename:  job.Filename(),
		RoutineID: routineID,
		Status:    StatusQueued,
	}
	c.order = append(c.order, job.JobID)
	c.queue.Enqueue(job)
	c.logger.Info("job submitted",
		logging.Int64("job_id", job.JobID),
		logging.String("routine", string(routineID)),
		logging.String("input", job.Filename()))
	return job.JobID, nil
}

// primaryExt resolves the expected primary output extension, which for
// the Dolphin compressor depends on the configured target format.
func primaryExt(desc routines.Description, cfg *config.Config) string {
	if desc.ID == routines.CompressDolphin && cfg.Dolphin.Format != "" {
		return cfg.Dolphin.Format
	}
	return desc.OutputExt
}

// Tick drains all buffered events without blocking and folds them into
// per-job state.
func (c *Coordinator) Tick() {
	for _, event := range c.bus.Drain() {
		c.handleEvent(event)
	}
}

func (c *Coordinator) handleEvent(event Event) {
	c.mu.Lock()
	state, ok := c.states[event.JobID]
	if !ok {
		c.mu.Unlock()
		c.logger.Warn("event for unknown job", logging.Int64("job_id", event.JobID))
		return
	}

	switch event.Type {
	case EventJobStarted:
		state.Status = StatusRunning
	case EventStatusUpdate:
		c.jobLogger.Debug(event.Status, logging.Int64("job_id", event.JobID))
	case EventFileProgress:
		if event.StagesDone > state.StagesDone {
			state.StagesDone = event.StagesDone
		}
	case EventOutputLine:
		c.jobLogger.Info(event.Line, logging.Int64("job_id", event.JobID))
	case EventErrorLine:
		c.jobLogger.Warn(event.Line, logging.Int64("job_id", event.JobID))
	case EventJobCompleted:
		c.completeLocked(state, event.Success, event.Message)
	}
	snapshot := *state
	c.mu.Unlock()

	if c.observer != nil {
		c.observer(event, snapshot)
	}
}

func (c *Coordinator) completeLocked(state *JobState, success bool, message string) {
	if state.Status.Terminal() {
		return
	}
	state.Message = message
	state.StagesDone = NumStages
	if success {
		state.Status = StatusCompletedSuccess
		c.succeeded++
	} else {
		state.Status = StatusCompletedFailure
		c.failed++
	}
	if c.recorder != nil {
		c.recorder.RecordJob(state.JobID, state.Filename, string(state.RoutineID), success, message)
	}
}

// BatchComplete holds iff no job is waiting in the queue, no event is
// still buffered, and every submitted job has reached a terminal status.
func (c *Coordinator) BatchComplete() bool {
	if c.queue.Len() > 0 || c.bus.Pending() > 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, state := range c.states {
		if !state.Status.Terminal() {
			return false
		}
	}
	return true
}

// Cancel drops every job not yet dequeued. Dropped jobs are marked failed
// so batch completion still holds; running jobs are untouched and run to
// their natural end.
func (c *Coordinator) Cancel() {
	dropped := c.queue.DropPending()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled = true
	for _, job := range dropped {
		state, ok := c.states[job.JobID]
		if !ok || state.Status.Terminal() {
			continue
		}
		c.completeLocked(state, false, "canceled before start")
	}
	c.logger.Info("batch canceled", logging.Int("dropped", len(dropped)))
}

// Wait polls on the configured tick until the batch completes. A
// cancelled context triggers Cancel and keeps draining until the running
// jobs finish.
func (c *Coordinator) Wait(ctx context.Context) Summary {
	tick := time.Duration(c.cfg.Workers.PollIntervalMS) * time.Millisecond
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	cancelRequested := false
	for {
		c.Tick()
		if c.BatchComplete() {
			return c.Summary()
		}
		select {
		case <-ctx.Done():
			if !cancelRequested {
				cancelRequested = true
				c.Cancel()
			}
			time.Sleep(tick)
		case <-time.After(tick):
		}
	}
}

// Stop shuts the pool down with one sentinel per worker and blocks until
// all workers exit.
func (c *Coordinator) Stop() {
	c.pool.Stop()
	c.logger.Info("worker pool stopped")
}

// JobResult is one row of the batch summary.
type JobResult struct {
	JobID    int64
	Filename string
	Status   Status
	Message  string
}

// Summary is the final tally of a batch.
type Summary struct {
	Succeeded int
	Failed    int
	Results   []JobResult
}

// Summary builds the batch tally in submission order.
func (c *Coordinator) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary := Summary{Succeeded: c.succeeded, Failed: c.failed}
	for _, id := range c.order {
		state := c.states[id]
		summary.Results = append(summary.Results, JobResult{
			JobID:    state.JobID,
			Filename: state.Filename,
			Status:   state.Status,
			Message:  state.Message,
		})
	}
	return summary
}

// States returns a snapshot of all job states in submission order.
func (c *Coordinator) States() []JobState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]JobState, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.states[id])
	}
	return out
}

// Counts returns the current success and failure tallies.
func (c *Coordinator) Counts() (succeeded, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.succeeded, c.failed
}
