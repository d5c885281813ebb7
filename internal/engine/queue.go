package engine

import "sync"

type queueEntry struct {
	sentinel bool
	job      Descriptor
}

// Queue is the unbounded FIFO connecting the coordinator to the worker
// pool. Sentinel entries instruct a worker to exit its loop; the
// coordinator enqueues exactly one per live worker at shutdown.
type Queue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	entries  []queueEntry
}

func NewQueue() *Queue {
	q := &Queue{}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a job.
func (q *Queue) Enqueue(job Descriptor) {
	q.mu.Lock()
	q.entries = append(q.entries, queueEntry{job: job})
	q.mu.Unlock()
	q.nonEmpty.Signal()
}

// EnqueueSentinel appends one worker-exit marker.
func (q *Queue) EnqueueSentinel() {
	q.mu.Lock()
	q.entries = append(q.entries, queueEntry{sentinel: true})
	q.mu.Unlock()
	q.nonEmpty.Signal()
}

// Dequeue blocks until an entry is available. The second return is false
// when the entry is a sentinel and the calling worker must exit.
func (q *Queue) Dequeue() (Descriptor, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.entries) == 0 {
		q.nonEmpty.Wait()
	}
	entry := q.entries[0]
	q.entries = q.entries[1:]
	if entry.sentinel {
		return Descriptor{}, false
	}
	return entry.job, true
}

// Len reports the number of pending job entries, sentinels excluded.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, entry := range q.entries {
		if !entry.sentinel {
			n++
		}
	}
	return n
}

// DropPending removes every not-yet-dequeued job, leaving sentinels in
// place, and returns the dropped descriptors. Jobs already claimed by a
// worker are unaffected.
func (q *Queue) DropPending() []Descriptor {
	q.mu.Lock()
	defer q.mu.Unlock()
	var dropped []Descriptor
	kept := q.entries[:0]
	for _, entry := range q.entries {
		if entry.sentinel {
			kept = append(kept, entry)
			continue
		}
		dropped = append(dropped, entry.job)
	}
	q.entries = kept
	return dropped
}
