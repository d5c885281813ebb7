package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"transmute/internal/config"
)

// Requirement defines an external tool transmute relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a tool.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// Requirements builds the tool requirement list from the configured binaries.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "chdman",
			Command:     cfg.Tools.Chdman,
			Description: "MAME CHD compression tool",
		},
		{
			Name:        "dolphin-tool",
			Command:     cfg.Tools.DolphinTool,
			Description: "Dolphin disc image converter",
		},
		{
			Name:        "7z",
			Command:     cfg.Tools.SevenZip,
			Description: "7-Zip archiver",
		},
		{
			Name:        "maxcso",
			Command:     cfg.Tools.Maxcso,
			Description: "CSO compressor for PSP/PS2 ISOs",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Commands given as absolute paths are stat'ed directly; bare names resolve
// through PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := Resolve(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		results = append(results, status)
	}
	return results
}

// Resolve locates a configured binary, returning its resolved path.
func Resolve(command string) (string, error) {
	if filepath.IsAbs(command) {
		if _, err := os.Stat(command); err != nil {
			return "", err
		}
		return command, nil
	}
	return exec.LookPath(command)
}
