// Package engine implements the concurrent batch conversion engine: job
// descriptors and queue, a fixed-size worker pool, the per-job pipeline
// state machine (prepare, stage, convert, finalize, cleanup), the event
// protocol between workers and the coordinator, and the coordinator that
// submits jobs, drains events, and decides batch completion.
package engine
