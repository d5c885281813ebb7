package config_test

import (
	"testing"

	"transmute/internal/config"
)

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.TempDir = "/scratch/transmute"
	cfg.Workers.SubprocessTimeout = 120
	cfg.Behavior.CopyLocally = false
	cfg.Behavior.DeleteSourceOnSuccess = true
	cfg.Tools.Chdman = "/opt/mame/chdman"
	cfg.Tools.Maxcso = "/opt/cso/maxcso"
	cfg.CHDMan.CDHunkSize = 18816
	cfg.CHDMan.CDCompression = "cdfl"
	cfg.Dolphin.Format = "wia"

	restored := config.FromSnapshot(cfg.Snapshot())

	if restored.Paths.TempDir != cfg.Paths.TempDir {
		t.Fatalf("temp_dir = %q, want %q", restored.Paths.TempDir, cfg.Paths.TempDir)
	}
	if restored.Workers.SubprocessTimeout != 120 {
		t.Fatalf("subprocess_timeout = %d, want 120", restored.Workers.SubprocessTimeout)
	}
	if restored.Behavior.CopyLocally {
		t.Fatal("copy_locally should restore as false")
	}
	if !restored.Behavior.DeleteSourceOnSuccess {
		t.Fatal("delete_source should restore as true")
	}
	if restored.Tools.Chdman != "/opt/mame/chdman" {
		t.Fatalf("chdman = %q", restored.Tools.Chdman)
	}
	if restored.Tools.Maxcso != "/opt/cso/maxcso" {
		t.Fatalf("maxcso = %q", restored.Tools.Maxcso)
	}
	if restored.CHDMan.CDHunkSize != 18816 || restored.CHDMan.CDCompression != "cdfl" {
		t.Fatalf("chdman cd settings not restored: %+v", restored.CHDMan)
	}
	if restored.Dolphin.Format != "wia" {
		t.Fatalf("dolphin format = %q, want wia", restored.Dolphin.Format)
	}
}

func TestFromSnapshotNilAndMalformed(t *testing.T) {
	restored := config.FromSnapshot(nil)
	defaults := config.Default()
	if restored.Tools.Chdman != defaults.Tools.Chdman {
		t.Fatalf("nil snapshot should yield defaults, got chdman=%q", restored.Tools.Chdman)
	}

	s := config.Snapshot{
		"workers.subprocess_timeout": "not-a-number",
		"behavior.copy_locally":      "maybe",
	}
	restored = config.FromSnapshot(s)
	if restored.Workers.SubprocessTimeout != defaults.Workers.SubprocessTimeout {
		t.Fatalf("malformed int should fall back to default, got %d", restored.Workers.SubprocessTimeout)
	}
	if restored.Behavior.CopyLocally != defaults.Behavior.CopyLocally {
		t.Fatal("malformed bool should fall back to default")
	}
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	cfg := config.Default()
	original := cfg.Snapshot()
	clone := original.Clone()
	clone["tools.chdman"] = "elsewhere"
	if original["tools.chdman"] == "elsewhere" {
		t.Fatal("mutating clone must not affect original")
	}
}
