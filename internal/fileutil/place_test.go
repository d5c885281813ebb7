package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlaceNoCollision(t *testing.T) {
	dir := t.TempDir()
	src := writeTemp(t, dir, "out.chd", "new")
	dst := filepath.Join(dir, "final", "out.chd")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}

	placed, err := Place(src, dst, false)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placed != dst {
		t.Errorf("placed at %q, want %q", placed, dst)
	}
}

func TestPlaceSuffixesWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "out.chd", "original")
	writeTemp(t, dir, "out_1.chd", "first suffix")
	src := writeTemp(t, dir, "incoming.chd", "new")

	placed, err := Place(src, filepath.Join(dir, "out.chd"), false)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if filepath.Base(placed) != "out_2.chd" {
		t.Errorf("placed as %q, want out_2.chd", filepath.Base(placed))
	}

	original, err := os.ReadFile(filepath.Join(dir, "out.chd"))
	if err != nil || string(original) != "original" {
		t.Errorf("original file modified: %q %v", original, err)
	}
}

func TestPlaceOverwriteReplaces(t *testing.T) {
	dir := t.TempDir()
	dst := writeTemp(t, dir, "out.chd", "old content")
	src := writeTemp(t, dir, "incoming.chd", "new content")

	placed, err := Place(src, dst, true)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placed != dst {
		t.Errorf("placed at %q, want %q", placed, dst)
	}
	content, err := os.ReadFile(dst)
	if err != nil || string(content) != "new content" {
		t.Errorf("destination content = %q %v, want replaced", content, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone after move")
	}
}

func TestPlaceMovesDirectories(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "extracted")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTemp(t, src, "file.bin", "x")

	existing := filepath.Join(dir, "final")
	if err := os.MkdirAll(existing, 0o755); err != nil {
		t.Fatal(err)
	}

	placed, err := Place(src, existing, false)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if filepath.Base(placed) != "final_1" {
		t.Errorf("placed as %q, want final_1", filepath.Base(placed))
	}
	if _, err := os.Stat(filepath.Join(placed, "file.bin")); err != nil {
		t.Errorf("directory content missing after move: %v", err)
	}
}

func TestSuffixed(t *testing.T) {
	cases := map[string]string{
		"/out/game.chd": "/out/game_3.chd",
		"/out/folder":   "/out/folder_3",
	}
	for in, want := range cases {
		if got := suffixed(in, 3); got != want {
			t.Errorf("suffixed(%q, 3) = %q, want %q", in, got, want)
		}
	}
}

func TestPlaceConcurrentSameBasename(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "final")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	const n = 8
	var wg sync.WaitGroup
	placed := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		src := writeTemp(t, dir, fmt.Sprintf("src_%d.chd", i), fmt.Sprintf("content %d", i))
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			placed[i], errs[i] = Place(src, filepath.Join(outDir, "disc.chd"), false)
		}(i, src)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Place %d: %v", i, errs[i])
		}
		if seen[placed[i]] {
			t.Fatalf("destination %q assigned twice", placed[i])
		}
		seen[placed[i]] = true
		if _, err := os.Stat(placed[i]); err != nil {
			t.Fatalf("placed file %q missing: %v", placed[i], err)
		}
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != n {
		t.Fatalf("expected %d distinct outputs, found %d", n, len(entries))
	}
}
