package extcmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"transmute/internal/services"
)

func TestRunCapturesOutputLines(t *testing.T) {
	var out, errLines []string
	runner := NewRunner(10 * time.Second)

	err := runner.Run(context.Background(), Command{
		Binary: "sh",
		Args:   []string{"-c", "echo one; echo two >&2; echo three"},
		OnOutput: func(line string) {
			out = append(out, line)
		},
		OnError: func(line string) {
			errLines = append(errLines, line)
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 2 || out[0] != "one" || out[1] != "three" {
		t.Fatalf("stdout lines = %v", out)
	}
	if len(errLines) != 1 || errLines[0] != "two" {
		t.Fatalf("stderr lines = %v", errLines)
	}
}

func TestRunSplitsCarriageReturnProgress(t *testing.T) {
	var out []string
	runner := NewRunner(10 * time.Second)

	err := runner.Run(context.Background(), Command{
		Binary: "sh",
		Args:   []string{"-c", `printf 'Compressing, 10%% complete\rCompressing, 99%% complete\rdone\n'`},
		OnOutput: func(line string) {
			out = append(out, line)
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"Compressing, 10% complete", "Compressing, 99% complete", "done"}
	if len(out) != len(want) {
		t.Fatalf("stdout lines = %v", out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, out[i], want[i])
		}
	}
}

func TestRunSurvivesOversizedOutputLine(t *testing.T) {
	runner := NewRunner(30 * time.Second)

	// 2MB with no line terminator at all, then a marker. The reader must
	// keep draining past the buffer cap or the child wedges on a full pipe
	// and Run never returns.
	var lines []string
	err := runner.Run(context.Background(), Command{
		Binary: "sh",
		Args: []string{"-c",
			`head -c 2097152 /dev/zero | tr '\0' 'x'; printf '\nMARKER\n'`},
		OnOutput: func(line string) {
			lines = append(lines, line)
		},
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error for oversized line, got %v", err)
	}
}

func TestRunNonZeroExitTaggedExternalTool(t *testing.T) {
	runner := NewRunner(10 * time.Second)
	err := runner.Run(context.Background(), Command{Binary: "sh", Args: []string{"-c", "exit 3"}})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRunTimeoutTagged(t *testing.T) {
	runner := NewRunner(100 * time.Millisecond)
	err := runner.Run(context.Background(), Command{Binary: "sleep", Args: []string{"5"}})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestRunEmptyBinaryRejected(t *testing.T) {
	runner := NewRunner(time.Second)
	err := runner.Run(context.Background(), Command{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestStripANSI(t *testing.T) {
	in := "\x1b[32mcompressing\x1b[0m 42%"
	if got := StripANSI(in); got != "compressing 42%" {
		t.Fatalf("StripANSI = %q", got)
	}
}
