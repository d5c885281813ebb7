// Package discimage resolves the sibling data files referenced by multi-file
// disc image descriptors (.cue sheets and .gdi track lists).
//
// Staging uses the resolved set to co-locate dependencies next to the
// descriptor inside a job workspace; source deletion uses it to remove
// companions together with the descriptor.
package discimage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	cueFileRe  = regexp.MustCompile(`(?i)^FILE\s+"?([^"]+?)"?\s+\w+\s*$`)
	gdiTrackRe = regexp.MustCompile(`^\s*\d+\s+\S+\s+\S+\s+\S+\s+(?:"([^"]+)"|([^\s"]+))(?:\s+.*)?$`)
)

// IsDescriptor reports whether path names a known multi-file descriptor format.
func IsDescriptor(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue", ".gdi":
		return true
	default:
		return false
	}
}

// Dependencies returns the absolute paths of the data files a descriptor
// references, in file order. Non-descriptor inputs yield an empty set.
// Referenced files that do not exist on disk are still returned; callers
// decide whether a missing dependency is fatal.
func Dependencies(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return parse(path, parseCueLine)
	case ".gdi":
		return parse(path, parseGdiLine)
	default:
		return nil, nil
	}
}

func parse(path string, parseLine func(string) (string, bool)) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open descriptor: %w", err)
	}
	defer file.Close()

	dir := filepath.Dir(path)
	var deps []string
	seen := map[string]struct{}{}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name, ok := parseLine(strings.TrimSpace(scanner.Text()))
		if !ok {
			continue
		}
		resolved := name
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(dir, resolved)
		}
		resolved = filepath.Clean(resolved)
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		deps = append(deps, resolved)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	return deps, nil
}

func parseCueLine(line string) (string, bool) {
	if !strings.HasPrefix(strings.ToUpper(line), "FILE") {
		return "", false
	}
	if match := cueFileRe.FindStringSubmatch(line); match != nil {
		return strings.TrimSpace(match[1]), true
	}
	// Fallback for unquoted names containing no type keyword.
	parts := strings.Fields(line)
	if len(parts) >= 2 {
		return strings.Trim(parts[1], `"`), true
	}
	return "", false
}

func parseGdiLine(line string) (string, bool) {
	match := gdiTrackRe.FindStringSubmatch(line)
	if match == nil {
		// First line (track count), comments, malformed rows.
		return "", false
	}
	name := match[1]
	if name == "" {
		name = match[2]
	}
	name = strings.TrimSpace(name)
	return name, name != ""
}
