package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"transmute/internal/config"
	"transmute/internal/logging"
	"transmute/internal/routines"
	"transmute/internal/services"
	"transmute/internal/testsupport"
)

func newTestPipeline(t *testing.T, cfg *config.Config, job Descriptor) (*pipeline, *Bus) {
	t.Helper()
	bus := NewBus()
	if job.Settings == nil {
		job.Settings = cfg.Snapshot()
	}
	return newPipeline(job, bus, nil, logging.NewNop()), bus
}

func TestStageCanceledContextFailsAsStaging(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCopyLocally(true))
	input := filepath.Join(testsupport.BaseDir(cfg), "game.iso")
	testsupport.WriteFile(t, input, 64)

	pipe, _ := newTestPipeline(t, cfg, Descriptor{
		JobID:     1,
		InputPath: input,
		RoutineID: routines.CompressDVDToCHD,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipe.stage(ctx, t.TempDir())
	if !errors.Is(err, services.ErrStaging) {
		t.Fatalf("expected staging error under canceled context, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestStageCopiesCueDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCopyLocally(true))
	srcDir := filepath.Join(testsupport.BaseDir(cfg), "src")
	cue := filepath.Join(srcDir, "game.cue")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cue, []byte("FILE \"game.bin\" BINARY\n  TRACK 01 MODE1/2352\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(srcDir, "game.bin"), 128)

	pipe, _ := newTestPipeline(t, cfg, Descriptor{
		JobID:          1,
		InputPath:      cue,
		RoutineID:      routines.CompressCDToCHD,
		MultiFileInput: true,
	})

	ws := t.TempDir()
	staged, err := pipe.stage(context.Background(), ws)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if staged != filepath.Join(ws, "game.cue") {
		t.Errorf("staged path = %q", staged)
	}
	if _, err := os.Stat(filepath.Join(ws, "game.bin")); err != nil {
		t.Errorf("referenced data file not co-located: %v", err)
	}
}

func TestStageInPlaceWhenCopyDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCopyLocally(false))
	input := filepath.Join(testsupport.BaseDir(cfg), "disc.iso")
	testsupport.WriteFile(t, input, 16)

	pipe, _ := newTestPipeline(t, cfg, Descriptor{JobID: 1, InputPath: input})
	staged, err := pipe.stage(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if staged != input {
		t.Errorf("staged = %q, want the original input", staged)
	}
}

func TestFinalizeMovesPrimarySecondaryAndCompanions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ws := t.TempDir()
	for _, name := range []string{"game.cue", "game.bin", "game.raw", "scratch.tmp"} {
		testsupport.WriteFile(t, filepath.Join(ws, name), 8)
	}

	routine, _ := routines.Get(routines.ExtractCHDToCD)
	desc := routine.Describe()
	pipe, _ := newTestPipeline(t, cfg, Descriptor{
		JobID:        1,
		InputPath:    "/library/game.chd",
		RoutineID:    routines.ExtractCHDToCD,
		OutputDir:    cfg.Paths.OutputDir,
		PrimaryExt:   desc.OutputExt,
		SecondaryExt: desc.SecondaryExt,
	})

	placed, err := pipe.finalize(desc, ws)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(placed) != 3 {
		t.Fatalf("placed %d files, want 3", len(placed))
	}
	for _, name := range []string{"game.cue", "game.bin", "game.raw"} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, name)); err != nil {
			t.Errorf("%s not placed: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "scratch.tmp")); !os.IsNotExist(err) {
		t.Error("unrelated workspace file was moved")
	}
}

func TestFinalizeFailsWithoutPrimaryOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ws := t.TempDir()

	routine, _ := routines.Get(routines.CompressDVDToCHD)
	desc := routine.Describe()
	pipe, _ := newTestPipeline(t, cfg, Descriptor{
		JobID:      1,
		InputPath:  "/library/disc.iso",
		RoutineID:  routines.CompressDVDToCHD,
		OutputDir:  cfg.Paths.OutputDir,
		PrimaryExt: desc.OutputExt,
	})

	if _, err := pipe.finalize(desc, ws); err == nil {
		t.Fatal("finalize should fail when the routine produced nothing")
	}
}

func TestFinalizeSkipsStagedInputCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCopyLocally(true))
	ws := t.TempDir()
	// Staged input and product share the workspace; only the product moves.
	testsupport.WriteFile(t, filepath.Join(ws, "album.zip"), 8)
	testsupport.WriteFile(t, filepath.Join(ws, "album.7z"), 8)

	routine, _ := routines.Get(routines.ArchiveTo7z)
	desc := routine.Describe()
	pipe, _ := newTestPipeline(t, cfg, Descriptor{
		JobID:      1,
		InputPath:  "/library/album.zip",
		RoutineID:  routines.ArchiveTo7z,
		OutputDir:  cfg.Paths.OutputDir,
		PrimaryExt: desc.OutputExt,
	})

	placed, err := pipe.finalize(desc, ws)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(placed) != 1 || filepath.Base(placed[0]) != "album.7z" {
		t.Errorf("placed = %v, want just album.7z", placed)
	}
}

func TestDeleteSourceRemovesDescriptorCompanions(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeleteSource(true))
	srcDir := filepath.Join(testsupport.BaseDir(cfg), "src")
	cue := filepath.Join(srcDir, "game.cue")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cue, []byte("FILE \"game.bin\" BINARY\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(srcDir, "game.bin"), 64)

	pipe, _ := newTestPipeline(t, cfg, Descriptor{
		JobID:          1,
		InputPath:      cue,
		RoutineID:      routines.CompressCDToCHD,
		MultiFileInput: true,
	})
	pipe.deleteSource()

	for _, name := range []string{"game.cue", "game.bin"} {
		if _, err := os.Stat(filepath.Join(srcDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be deleted", name)
		}
	}
}
