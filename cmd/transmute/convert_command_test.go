package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transmute/internal/testsupport"
)

func writeTestConfig(t *testing.T, chdman string) (configPath, outputDir, inputDir string) {
	t.Helper()
	base := t.TempDir()
	outputDir = filepath.Join(base, "out")
	inputDir = filepath.Join(base, "in")
	for _, dir := range []string{outputDir, inputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	configPath = filepath.Join(base, "transmute.toml")
	content := fmt.Sprintf(`[paths]
temp_dir = %q
output_dir = %q
log_dir = %q

[workers]
count = 2
poll_interval_ms = 10
subprocess_timeout = 30

[tools]
chdman = %q

[logging]
format = "console"
level = "error"
`, filepath.Join(base, "work"), outputDir, filepath.Join(base, "logs"), chdman)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath, outputDir, inputDir
}

func TestConvertCommandEndToEnd(t *testing.T) {
	configPath, outputDir, inputDir := writeTestConfig(t, testsupport.FakeConverter(t))
	for _, name := range []string{"alpha.iso", "beta.iso"} {
		testsupport.WriteFile(t, filepath.Join(inputDir, name), 64)
	}

	out, err := runCommand(t,
		"convert", "--config", configPath,
		"--routine", "chd-dvd-compress", "--no-progress",
		inputDir)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 succeeded, 0 failed") {
		t.Errorf("summary missing from output:\n%s", out)
	}
	for _, name := range []string{"alpha.chd", "beta.chd"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Errorf("output %s not placed: %v", name, err)
		}
	}
}

func TestConvertCommandReportsFailures(t *testing.T) {
	configPath, _, inputDir := writeTestConfig(t, testsupport.FailingConverter(t))
	testsupport.WriteFile(t, filepath.Join(inputDir, "bad.iso"), 64)

	out, err := runCommand(t,
		"convert", "--config", configPath,
		"--routine", "chd-dvd-compress", "--no-progress",
		inputDir)
	if err == nil {
		t.Fatalf("convert should report the failed job\n%s", out)
	}
	if !strings.Contains(err.Error(), "1 of 1 jobs failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConvertCommandRejectsUnknownRoutine(t *testing.T) {
	configPath, _, inputDir := writeTestConfig(t, "/bin/true")
	testsupport.WriteFile(t, filepath.Join(inputDir, "a.iso"), 8)

	_, err := runCommand(t,
		"convert", "--config", configPath,
		"--routine", "nope", "--no-progress", inputDir)
	if err == nil || !strings.Contains(err.Error(), "unknown routine") {
		t.Errorf("expected unknown routine error, got %v", err)
	}
}

func TestConvertBatchRecordedInHistory(t *testing.T) {
	configPath, _, inputDir := writeTestConfig(t, testsupport.FakeConverter(t))
	testsupport.WriteFile(t, filepath.Join(inputDir, "disc.iso"), 64)

	if out, err := runCommand(t,
		"convert", "--config", configPath,
		"--routine", "chd-dvd-compress", "--no-progress",
		inputDir); err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}

	out, err := runCommand(t, "history", "--config", configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "1") || strings.Contains(out, "No batches recorded") {
		t.Errorf("history does not show the batch:\n%s", out)
	}
}
