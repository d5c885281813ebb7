package engine

import "sync"

// EventType tags the payload of an Event.
type EventType string

const (
	EventJobStarted   EventType = "job_started"
	EventStatusUpdate EventType = "status_update"
	EventFileProgress EventType = "file_progress_update"
	EventOutputLine   EventType = "output_update"
	EventErrorLine    EventType = "error_update"
	EventJobCompleted EventType = "job_completed"
)

// Event is one message from a worker to the coordinator. Events for a
// single JobID are strictly ordered; ordering across jobs is unspecified.
type Event struct {
	JobID int64
	Type  EventType

	// Status carries the pipeline stage name for status updates.
	Status string
	// StagesDone carries the cumulative stage count for progress updates.
	StagesDone int
	// Line carries one cleaned tool output or error line.
	Line string
	// Success and Message are set on job_completed.
	Success bool
	Message string
}

// Bus is the results channel between workers and the coordinator: an
// unbounded multi-producer buffer drained without blocking. Workers must
// never stall on a slow coordinator, so Publish only appends.
type Bus struct {
	mu     sync.Mutex
	events []Event
}

func NewBus() *Bus {
	return &Bus{}
}

// Publish appends one event. Safe for concurrent use.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

// Drain returns all buffered events and clears the buffer. It never
// blocks; an empty buffer yields nil.
func (b *Bus) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	drained := b.events
	b.events = nil
	return drained
}

// Pending reports the number of buffered events.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
