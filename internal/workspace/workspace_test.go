package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"transmute/internal/logging"
	"transmute/internal/workspace"
)

func TestAllocateCreatesUniqueDirs(t *testing.T) {
	base := filepath.Join(t.TempDir(), "work")

	first, err := workspace.Allocate(base, "/data/Game (USA).cue")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	second, err := workspace.Allocate(base, "/data/Game (USA).cue")
	if err != nil {
		t.Fatalf("Allocate second: %v", err)
	}
	if first == second {
		t.Fatalf("expected unique workspaces, both %q", first)
	}
	for _, dir := range []string{first, second} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("workspace %q not a directory: %v", dir, err)
		}
		if !strings.HasPrefix(filepath.Base(dir), "Game_") {
			t.Fatalf("workspace name should embed sanitized stem: %q", dir)
		}
	}
}

func TestAllocateRequiresBase(t *testing.T) {
	if _, err := workspace.Allocate("  ", "in.iso"); err == nil {
		t.Fatal("expected error for empty base")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	base := t.TempDir()
	dir, err := workspace.Allocate(base, "thing.iso")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scratch.chd"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	logger := logging.NewNop()
	if err := workspace.Remove(dir, logger); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("workspace should be gone")
	}
	// Second removal of an already-removed workspace must not error.
	if err := workspace.Remove(dir, logger); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if err := workspace.Remove("", logger); err != nil {
		t.Fatalf("Remove empty path: %v", err)
	}
}

func TestCleanStaleRemovesOnlyOldDirs(t *testing.T) {
	base := t.TempDir()
	stale := filepath.Join(base, "old-job")
	fresh := filepath.Join(base, "new-job")
	for _, dir := range []string{stale, fresh} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result := workspace.CleanStale(context.Background(), base, 24*time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("removed = %v, want [%s]", result.Removed, stale)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh workspace should survive: %v", err)
	}
}

func TestCleanStaleMissingBase(t *testing.T) {
	result := workspace.CleanStale(context.Background(), filepath.Join(t.TempDir(), "absent"), time.Hour, nil)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
