package engine

import (
	"path/filepath"

	"transmute/internal/config"
	"transmute/internal/routines"
)

// Status is the coordinator-side lifecycle state of a job.
type Status string

const (
	StatusQueued           Status = "queued"
	StatusRunning          Status = "running"
	StatusCompletedSuccess Status = "completed_success"
	StatusCompletedFailure Status = "completed_failure"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompletedSuccess || s == StatusCompletedFailure
}

// Descriptor is the immutable payload a worker receives for one job. It is
// copied by value into the queue; workers never share memory with the
// coordinator beyond the queue and the event bus.
type Descriptor struct {
	JobID     int64
	InputPath string
	RoutineID routines.ID
	OutputDir string

	PrimaryExt       string
	SecondaryExt     string
	OverwriteAllowed bool
	MultiFileInput   bool

	// Settings is the flat configuration snapshot taken at submission
	// time. Workers rebuild their configuration from it so later
	// coordinator-side changes never leak into running jobs.
	Settings config.Snapshot
}

// Filename returns the display name of the job's input.
func (d Descriptor) Filename() string {
	return filepath.Base(d.InputPath)
}

// JobState is the coordinator's per-job bookkeeping. It is created on
// submission, mutated only by the coordinator on event receipt, and kept
// until the batch summary is built.
type JobState struct {
	JobID      int64
	Filename   string
	RoutineID  routines.ID
	Status     Status
	StagesDone int
	Message    string
}

// Percent returns the job's progress as a 0-100 value derived from the
// fixed stage count.
func (s *JobState) Percent() int {
	if s.StagesDone >= NumStages {
		return 100
	}
	return s.StagesDone * 100 / NumStages
}
