// Package workspace manages per-job scratch directories.
//
// Every job owns exactly one workspace, created during the prepare stage and
// removed during cleanup on every exit path. Removal is idempotent and retried
// with backoff because external tools occasionally hold handles briefly after
// exit. CleanStale sweeps leftovers from crashed runs.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"transmute/internal/logging"
)

const (
	removeAttempts = 3
	removeBackoff  = 500 * time.Millisecond
)

// Allocate creates a uniquely named scratch directory for inputPath under
// baseDir, creating baseDir first when needed. The directory name embeds the
// input stem so operators can attribute leftovers after a crash.
func Allocate(baseDir, inputPath string) (string, error) {
	if strings.TrimSpace(baseDir) == "" {
		return "", fmt.Errorf("workspace base directory not configured")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace base %q: %w", baseDir, err)
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	stem = sanitizeStem(stem)
	dir, err := os.MkdirTemp(baseDir, stem+"-")
	if err != nil {
		return "", fmt.Errorf("create workspace in %q: %w", baseDir, err)
	}
	return dir, nil
}

// Remove deletes a workspace directory. Missing directories are not an error;
// transient removal failures are retried with backoff.
func Remove(path string, logger *slog.Logger) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= removeAttempts; attempt++ {
		lastErr = os.RemoveAll(path)
		if lastErr == nil {
			return nil
		}
		if attempt < removeAttempts {
			if logger != nil {
				logger.Warn("workspace removal failed, retrying",
					logging.String("path", path),
					logging.Int("attempt", attempt),
					logging.Error(lastErr),
				)
			}
			time.Sleep(removeBackoff)
		}
	}
	return fmt.Errorf("remove workspace %q: %w", path, lastErr)
}

// CleanStaleResult contains the outcome of a stale workspace sweep.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes workspaces under baseDir older than maxAge. It returns
// the list of removed directories and any errors encountered.
func CleanStale(ctx context.Context, baseDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return result
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: baseDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(baseDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale workspace",
					logging.String("path", dirPath),
					logging.Error(err),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale workspace",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
			)
		}
	}

	return result
}

func sanitizeStem(stem string) string {
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, stem)
	if stem == "" {
		return "job"
	}
	if len(stem) > 48 {
		stem = stem[:48]
	}
	return stem
}
