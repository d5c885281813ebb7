package main

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/mattn/go-isatty"

	"transmute/internal/engine"
)

// progressRenderer drives the live per-job progress display. Rendering is
// only enabled on terminals; otherwise observe is a no-op and results show
// up in the summary table and the log.
type progressRenderer struct {
	writer  progress.Writer
	enabled bool

	mu       sync.Mutex
	trackers map[int64]*progress.Tracker
}

func newProgressRenderer(out io.Writer, expected int, disabled bool) *progressRenderer {
	r := &progressRenderer{trackers: map[int64]*progress.Tracker{}}
	if disabled || !writerIsTerminal(out) {
		return r
	}

	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetNumTrackersExpected(expected)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetTrackerLength(25)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Value = false
	r.writer = pw
	r.enabled = true
	return r
}

func writerIsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (r *progressRenderer) start() {
	if r.enabled {
		go r.writer.Render()
	}
}

func (r *progressRenderer) stop() {
	if r.enabled {
		r.writer.Stop()
	}
}

// observe runs on the coordinator goroutine for every drained event.
func (r *progressRenderer) observe(event engine.Event, state engine.JobState) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tracker, ok := r.trackers[event.JobID]
	if !ok {
		if event.Type != engine.EventJobStarted {
			return
		}
		tracker = &progress.Tracker{
			Message: state.Filename,
			Total:   int64(engine.NumStages),
		}
		r.trackers[event.JobID] = tracker
		r.writer.AppendTracker(tracker)
		return
	}

	switch event.Type {
	case engine.EventFileProgress:
		tracker.SetValue(int64(event.StagesDone))
	case engine.EventJobCompleted:
		tracker.SetValue(int64(engine.NumStages))
		if event.Success {
			tracker.MarkAsDone()
		} else {
			tracker.MarkAsErrored()
		}
	}
}
