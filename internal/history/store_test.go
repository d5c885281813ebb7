package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"transmute/internal/history"
	"transmute/internal/testsupport"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	return testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
}

func TestBatchRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	batchID := uuid.NewString()

	if err := store.StartBatch(ctx, batchID); err != nil {
		t.Fatalf("StartBatch: %v", err)
	}
	if err := store.RecordJob(ctx, batchID, 1, "disc.iso", "chd-dvd-compress", true, "done"); err != nil {
		t.Fatalf("RecordJob: %v", err)
	}
	if err := store.RecordJob(ctx, batchID, 2, "bad.iso", "chd-dvd-compress", false, "tool error"); err != nil {
		t.Fatalf("RecordJob: %v", err)
	}
	if err := store.FinishBatch(ctx, batchID, 1, 1); err != nil {
		t.Fatalf("FinishBatch: %v", err)
	}

	batches, err := store.RecentBatches(ctx, 10)
	if err != nil {
		t.Fatalf("RecentBatches: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	batch := batches[0]
	if batch.ID != batchID || batch.Succeeded != 1 || batch.Failed != 1 {
		t.Errorf("batch = %+v", batch)
	}
	if batch.FinishedAt.IsZero() {
		t.Error("finished batch has zero FinishedAt")
	}

	jobs, err := store.BatchJobs(ctx, batchID)
	if err != nil {
		t.Fatalf("BatchJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if !jobs[0].Success || jobs[1].Success {
		t.Errorf("job outcomes = %v/%v, want true/false", jobs[0].Success, jobs[1].Success)
	}
	if jobs[1].Message != "tool error" {
		t.Errorf("failure message = %q", jobs[1].Message)
	}
}

func TestRecordJobUpsert(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	batchID := uuid.NewString()

	if err := store.StartBatch(ctx, batchID); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordJob(ctx, batchID, 1, "disc.iso", "chd-verify", false, "first"); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordJob(ctx, batchID, 1, "disc.iso", "chd-verify", true, "second"); err != nil {
		t.Fatal(err)
	}

	jobs, err := store.BatchJobs(ctx, batchID)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs after upsert, want 1", len(jobs))
	}
	if !jobs[0].Success || jobs[0].Message != "second" {
		t.Errorf("job = %+v, want second recording", jobs[0])
	}
}

func TestPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	batchID := uuid.NewString()
	if err := store.StartBatch(ctx, batchID); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 0 {
		t.Errorf("pruned %d recent batches, want 0", removed)
	}

	removed, err = store.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("pruned %d batches, want 1", removed)
	}
}
