package history

import (
	"context"
	"fmt"
	"time"
)

// Batch is one recorded conversion run.
type Batch struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
}

// Job is one recorded job outcome within a batch.
type Job struct {
	BatchID    string
	JobID      int64
	Filename   string
	Routine    string
	Success    bool
	Message    string
	RecordedAt time.Time
}

const timeLayout = time.RFC3339

// StartBatch records the beginning of a run under the given id.
func (s *Store) StartBatch(ctx context.Context, batchID string) error {
	return s.execWithRetry(ctx,
		"INSERT INTO batches (id, started_at) VALUES (?, ?)",
		batchID, time.Now().UTC().Format(timeLayout))
}

// FinishBatch stores the final tally for a run.
func (s *Store) FinishBatch(ctx context.Context, batchID string, succeeded, failed int) error {
	return s.execWithRetry(ctx,
		"UPDATE batches SET finished_at = ?, succeeded = ?, failed = ? WHERE id = ?",
		time.Now().UTC().Format(timeLayout), succeeded, failed, batchID)
}

// RecordJob stores one terminal job outcome.
func (s *Store) RecordJob(ctx context.Context, batchID string, jobID int64, filename, routine string, success bool, message string) error {
	return s.execWithRetry(ctx,
		`INSERT INTO jobs (batch_id, job_id, filename, routine, success, message, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(batch_id, job_id) DO UPDATE SET
		   success = excluded.success, message = excluded.message, recorded_at = excluded.recorded_at`,
		batchID, jobID, filename, routine, boolToInt(success), message,
		time.Now().UTC().Format(timeLayout))
}

// RecentBatches returns up to limit batches, newest first.
func (s *Store) RecentBatches(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, ''), succeeded, failed
		 FROM batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var (
			batch             Batch
			started, finished string
		)
		if err := rows.Scan(&batch.ID, &started, &finished, &batch.Succeeded, &batch.Failed); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batch.StartedAt = parseTime(started)
		batch.FinishedAt = parseTime(finished)
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// BatchJobs returns the recorded jobs of one batch in job order.
func (s *Store) BatchJobs(ctx context.Context, batchID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, job_id, filename, routine, success, message, recorded_at
		 FROM jobs WHERE batch_id = ? ORDER BY job_id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			job      Job
			success  int
			recorded string
		)
		if err := rows.Scan(&job.BatchID, &job.JobID, &job.Filename, &job.Routine, &success, &job.Message, &recorded); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Success = success != 0
		job.RecordedAt = parseTime(recorded)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Prune deletes batches older than the cutoff, cascading to their jobs.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			"DELETE FROM batches WHERE started_at < ?", before.UTC().Format(timeLayout))
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune batches: %w", err)
	}
	return affected, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
