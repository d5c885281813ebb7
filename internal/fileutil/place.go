package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MaxSuffixAttempts bounds the free-suffix search when placing outputs
// without overwrite permission.
const MaxSuffixAttempts = 999

// placeMu serializes the probe-then-move in Place. Workers finalizing jobs
// with the same basename concurrently must not both observe a name as free.
var placeMu sync.Mutex

// MovePath moves a file or directory, falling back to copy-and-remove when
// the rename crosses filesystems.
func MovePath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return MoveFile(src, dst)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// Place moves src to dst applying the output collision policy. With
// overwrite enabled an existing dst is removed first. Otherwise the first
// free numeric suffix (name_1, name_2, ...) is used, bounded by
// MaxSuffixAttempts. The final destination path is returned.
func Place(src, dst string, overwrite bool) (string, error) {
	placeMu.Lock()
	defer placeMu.Unlock()

	if overwrite {
		if err := os.RemoveAll(dst); err != nil {
			return "", fmt.Errorf("remove existing %s: %w", dst, err)
		}
		if err := MovePath(src, dst); err != nil {
			return "", err
		}
		return dst, nil
	}

	candidate := dst
	for attempt := 1; ; attempt++ {
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			if err := MovePath(src, candidate); err != nil {
				return "", err
			}
			return candidate, nil
		}
		if attempt > MaxSuffixAttempts {
			return "", fmt.Errorf("no free name for %s after %d attempts", dst, MaxSuffixAttempts)
		}
		candidate = suffixed(dst, attempt)
	}
}

func suffixed(path string, n int) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}
