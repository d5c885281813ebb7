package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"transmute/internal/logging"
	"transmute/internal/routines"
)

// Pool is the fixed-size set of workers. Each worker loops on the queue,
// runs one pipeline per job, and exits on a sentinel. Shutdown requires
// exactly one sentinel per worker.
type Pool struct {
	size      int
	queue     *Queue
	bus       *Bus
	extractor routines.Extractor
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func NewPool(size int, queue *Queue, bus *Bus, extractor routines.Extractor, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:      size,
		queue:     queue,
		bus:       bus,
		extractor: extractor,
		logger:    logging.NewComponentLogger(logger, "worker"),
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}
}

// Stop enqueues one sentinel per worker and waits for all of them to
// drain their current job and exit.
func (p *Pool) Stop() {
	for i := 0; i < p.size; i++ {
		p.queue.EnqueueSentinel()
	}
	p.wg.Wait()
}

func (p *Pool) workerLoop(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With(logging.Int("worker", id))
	for {
		job, ok := p.queue.Dequeue()
		if !ok {
			logger.Debug("worker exiting")
			return
		}
		p.runJob(ctx, job, logger)
	}
}

var runPipeline = func(ctx context.Context, pipe *pipeline) bool {
	return pipe.run(ctx)
}

// runJob executes one pipeline, recovering any panic at this boundary so
// a malformed job never kills the worker. A recovered panic is reported
// like any other failure, with the progress protocol kept intact.
func (p *Pool) runJob(ctx context.Context, job Descriptor, logger *slog.Logger) {
	pipe := newPipeline(job, p.bus, p.extractor, logger)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker recovered from panic",
				logging.Int64("job_id", job.JobID),
				logging.Any("panic", r))
			p.bus.Publish(Event{JobID: job.JobID, Type: EventErrorLine,
				Line: fmt.Sprintf("unexpected worker fault: %v", r)})
			for stage := pipe.stagesDone + 1; stage <= NumStages; stage++ {
				p.bus.Publish(Event{JobID: job.JobID, Type: EventFileProgress, StagesDone: stage})
			}
			p.bus.Publish(Event{JobID: job.JobID, Type: EventJobCompleted,
				Success: false, Message: fmt.Sprintf("unexpected worker fault: %v", r)})
		}
	}()
	runPipeline(ctx, pipe)
}
