package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MoveToTrash moves path into the freedesktop trash directory
// (~/.local/share/Trash), writing the matching .trashinfo record. Callers
// that need a hard guarantee should fall back to Remove when this fails
// (cross-device moves into the home trash are handled, but the trash dir
// itself may be unavailable).
func MoveToTrash(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, err := os.Lstat(abs); err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("locate home directory: %w", err)
	}
	trashFiles := filepath.Join(home, ".local", "share", "Trash", "files")
	trashInfo := filepath.Join(home, ".local", "share", "Trash", "info")
	for _, dir := range []string{trashFiles, trashInfo} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create trash dir %s: %w", dir, err)
		}
	}

	name := trashName(trashFiles, filepath.Base(abs))
	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		abs, time.Now().Format("2006-01-02T15:04:05"))
	infoPath := filepath.Join(trashInfo, name+".trashinfo")
	if err := os.WriteFile(infoPath, []byte(info), 0o600); err != nil {
		return fmt.Errorf("write trashinfo: %w", err)
	}
	if err := MovePath(abs, filepath.Join(trashFiles, name)); err != nil {
		os.Remove(infoPath)
		return err
	}
	return nil
}

// Remove permanently deletes a file or directory tree.
func Remove(path string) error {
	return os.RemoveAll(path)
}

func trashName(trashFiles, base string) string {
	candidate := base
	for n := 1; ; n++ {
		if _, err := os.Lstat(filepath.Join(trashFiles, candidate)); os.IsNotExist(err) {
			return candidate
		}
		ext := filepath.Ext(base)
		candidate = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(base, ext), n, ext)
	}
}
