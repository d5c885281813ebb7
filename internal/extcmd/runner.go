// Package extcmd runs external conversion tools with line-oriented output
// capture, ANSI stripping, and a configurable hard timeout.
package extcmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"transmute/internal/services"
)

var commandContext = exec.CommandContext

var ansiEscapeRe = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// Command describes one external tool invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string

	// OnOutput and OnError receive one cleaned line per call. Either may be
	// nil; lines are then discarded.
	OnOutput func(line string)
	OnError  func(line string)
}

// Runner executes commands under a per-invocation timeout.
type Runner struct {
	timeout time.Duration
}

// NewRunner constructs a Runner. A non-positive timeout disables the ceiling.
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{timeout: timeout}
}

// Run executes the command and waits for it to exit. A non-zero exit status
// yields an ErrExternalTool-tagged error; hitting the timeout yields an
// ErrTimeout-tagged error. Stdout and stderr are streamed line by line to the
// command's callbacks with ANSI escapes removed.
func (r *Runner) Run(ctx context.Context, command Command) error {
	if strings.TrimSpace(command.Binary) == "" {
		return services.Wrap(services.ErrConfiguration, "", "run", "empty binary name", nil)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := commandContext(runCtx, command.Binary, command.Args...) //nolint:gosec
	cmd.Dir = command.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "", command.Binary, "start failed", err)
	}

	var wg sync.WaitGroup
	var stdoutErr, stderrErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdoutErr = scanLines(stdout, command.OnOutput)
	}()
	go func() {
		defer wg.Done()
		stderrErr = scanLines(stderr, command.OnError)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	if waitErr == nil {
		if readErr := errors.Join(stdoutErr, stderrErr); readErr != nil {
			return services.Wrap(services.ErrExternalTool, "", command.Binary,
				"read tool output", readErr)
		}
		return nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "", command.Binary,
			fmt.Sprintf("exceeded %s", r.timeout), waitErr)
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return services.Wrap(services.ErrExternalTool, "", command.Binary,
			fmt.Sprintf("exit status %d", exitErr.ExitCode()), waitErr)
	}
	return services.Wrap(services.ErrExternalTool, "", command.Binary, "wait failed", waitErr)
}

func scanLines(reader io.Reader, emit func(string)) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanToolLines)
	for scanner.Scan() {
		if emit == nil {
			continue
		}
		line := StripANSI(scanner.Text())
		if strings.TrimSpace(line) == "" {
			continue
		}
		emit(line)
	}
	if err := scanner.Err(); err != nil {
		// The pipe must be drained to completion or the child blocks on a
		// full pipe buffer and Wait never returns.
		io.Copy(io.Discard, reader) //nolint:errcheck
		return err
	}
	return nil
}

// scanToolLines splits on newlines and bare carriage returns. Conversion
// tools rewrite progress lines in place with \r and may emit a real newline
// only rarely, which would otherwise accumulate into one oversized token.
func scanToolLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' && advance < len(data) && data[advance] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// StripANSI removes terminal escape sequences from a line.
func StripANSI(line string) string {
	if line == "" {
		return line
	}
	return ansiEscapeRe.ReplaceAllString(line, "")
}
