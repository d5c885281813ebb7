package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"transmute/internal/config"
	"transmute/internal/extcmd"
	"transmute/internal/logging"
	"transmute/internal/routines"
	"transmute/internal/services"
	"transmute/internal/workspace"
)

// NumStages is the fixed number of progress stages every job reports:
// prepared, converted, finalized. Progress percentage is stages done over
// NumStages, and every job emits exactly NumStages progress events
// regardless of where it fails.
const NumStages = 3

// pipeline executes one job start to finish inside a worker. The stage
// counter is threaded through explicitly so catch-up events can be
// synthesized when an early stage fails.
type pipeline struct {
	job       Descriptor
	cfg       *config.Config
	bus       *Bus
	extractor routines.Extractor
	logger    *slog.Logger

	stagesDone int
}

func newPipeline(job Descriptor, bus *Bus, extractor routines.Extractor, logger *slog.Logger) *pipeline {
	cfg := config.FromSnapshot(job.Settings)
	p := &pipeline{
		job:    job,
		cfg:    cfg,
		bus:    bus,
		logger: logger,
	}
	p.extractor = extractor
	if p.extractor == nil {
		p.extractor = &routines.SevenZipExtractor{
			Binary: cfg.Tools.SevenZip,
			Runner: newRunner(cfg),
		}
	}
	return p
}

func newRunner(cfg *config.Config) *extcmd.Runner {
	return extcmd.NewRunner(time.Duration(cfg.Workers.SubprocessTimeout) * time.Second)
}

// run drives the state machine and always terminates with exactly
// NumStages progress events plus one job_completed event.
func (p *pipeline) run(ctx context.Context) bool {
	ctx = services.WithJobID(ctx, p.job.JobID)
	p.logger = logging.WithContext(ctx, p.logger)
	p.publish(Event{Type: EventJobStarted})

	routine, ok := routines.Get(p.job.RoutineID)
	if !ok {
		return p.fail(services.Wrap(services.ErrSetup, "prepare", "resolve routine",
			fmt.Sprintf("unknown routine %q", p.job.RoutineID), nil))
	}
	desc := routine.Describe()

	p.status("preparing")
	ws, err := workspace.Allocate(p.cfg.Paths.TempDir, p.job.InputPath)
	if err != nil {
		return p.fail(services.Wrap(services.ErrSetup, "prepare", "workspace",
			"allocate workspace", err))
	}
	defer workspace.Remove(ws, p.logger)

	p.status("staging")
	staged, err := p.stage(services.WithStage(ctx, "staging"), ws)
	if err != nil {
		return p.fail(err)
	}
	p.progress()

	p.status("converting")
	if err := p.convert(services.WithStage(ctx, "converting"), routine, staged, ws); err != nil {
		return p.fail(err)
	}
	p.progress()

	p.status("finalizing")
	placed, err := p.finalize(desc, ws)
	if err != nil {
		return p.fail(err)
	}
	p.progress()

	if p.cfg.Behavior.DeleteSourceOnSuccess {
		p.deleteSource()
	}

	message := "done"
	if len(placed) > 0 {
		message = strings.Join(placed, ", ")
	}
	p.publish(Event{Type: EventJobCompleted, Success: true, Message: message})
	return true
}

// fail surfaces the error as events, tops the progress counter up to
// NumStages, and marks the job failed. It never lets the error escape.
func (p *pipeline) fail(err error) bool {
	p.logger.Error("job failed",
		logging.String(logging.FieldStage, services.Stage(err)),
		logging.Error(err))
	p.publish(Event{Type: EventErrorLine, Line: err.Error()})
	for p.stagesDone < NumStages {
		p.progress()
	}
	p.publish(Event{Type: EventJobCompleted, Success: false, Message: err.Error()})
	return false
}

func (p *pipeline) convert(ctx context.Context, routine routines.Routine, staged, ws string) error {
	baseName := strings.TrimSuffix(filepath.Base(p.job.InputPath), filepath.Ext(p.job.InputPath))
	req := routines.Request{
		InputPath:    staged,
		WorkspaceDir: ws,
		BaseName:     baseName,
		Config:       p.cfg,
		Runner:       newRunner(p.cfg),
		Extractor:    p.extractor,
		OnOutput: func(line string) {
			p.publish(Event{Type: EventOutputLine, Line: line})
		},
		OnError: func(line string) {
			p.publish(Event{Type: EventErrorLine, Line: line})
		},
	}
	if err := routine.Convert(ctx, req); err != nil {
		return services.Wrap(services.ErrConversion, "convert", string(p.job.RoutineID),
			"conversion routine failed", err)
	}
	return nil
}

func (p *pipeline) progress() {
	p.stagesDone++
	p.publish(Event{Type: EventFileProgress, StagesDone: p.stagesDone})
}

func (p *pipeline) status(stage string) {
	p.publish(Event{Type: EventStatusUpdate, Status: stage})
}

func (p *pipeline) publish(event Event) {
	event.JobID = p.job.JobID
	p.bus.Publish(event)
}
