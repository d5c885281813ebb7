package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"transmute/internal/discimage"
	"transmute/internal/fileutil"
	"transmute/internal/logging"
	"transmute/internal/routines"
	"transmute/internal/services"
)

// finalize moves the routine's products from the workspace to the job's
// output directory, applying the collision policy, and returns the final
// paths.
func (p *pipeline) finalize(desc routines.Description, ws string) ([]string, error) {
	if desc.Mode == routines.OutputNone {
		return nil, nil
	}
	if err := os.MkdirAll(p.job.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFinalize, "finalize", "output dir",
			fmt.Sprintf("create %q", p.job.OutputDir), err)
	}

	baseName := strings.TrimSuffix(filepath.Base(p.job.InputPath), filepath.Ext(p.job.InputPath))

	if desc.Mode == routines.OutputFolder {
		src := filepath.Join(ws, baseName)
		placed, err := fileutil.Place(src, filepath.Join(p.job.OutputDir, baseName), p.job.OverwriteAllowed)
		if err != nil {
			return nil, services.Wrap(services.ErrFinalize, "finalize", "move",
				fmt.Sprintf("place output folder %q", baseName), err)
		}
		return []string{placed}, nil
	}

	wantExts := map[string]bool{}
	addExt := func(ext string) {
		if ext != "" {
			wantExts["."+strings.ToLower(ext)] = true
		}
	}
	addExt(p.job.PrimaryExt)
	addExt(p.job.SecondaryExt)
	for _, ext := range desc.CompanionExts {
		addExt(ext)
	}

	entries, err := os.ReadDir(ws)
	if err != nil {
		return nil, services.Wrap(services.ErrFinalize, "finalize", "scan",
			"list workspace products", err)
	}

	var placed []string
	primaryFound := false
	primaryExt := "." + strings.ToLower(p.job.PrimaryExt)
	stagedName := filepath.Base(p.job.InputPath)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// The staged input copy is a workspace resident, not a product.
		if p.cfg.Behavior.CopyLocally && name == stagedName {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !wantExts[ext] {
			continue
		}
		dest, err := fileutil.Place(filepath.Join(ws, name), filepath.Join(p.job.OutputDir, name), p.job.OverwriteAllowed)
		if err != nil {
			return nil, services.Wrap(services.ErrFinalize, "finalize", "move",
				fmt.Sprintf("place output %q", name), err)
		}
		if ext == primaryExt {
			primaryFound = true
		}
		placed = append(placed, dest)
		p.logger.Info("output placed", logging.String("path", dest))
	}

	if !primaryFound {
		return nil, services.Wrap(services.ErrFinalize, "finalize", "collect",
			fmt.Sprintf("no %s output produced", p.job.PrimaryExt), nil)
	}
	return placed, nil
}

// deleteSource removes the input after a fully successful job, trash
// first when enabled, including descriptor companions. Failures are
// logged and reported as error events but never fail the job.
func (p *pipeline) deleteSource() {
	targets := []string{p.job.InputPath}
	if p.job.MultiFileInput && discimage.IsDescriptor(p.job.InputPath) {
		if deps, err := discimage.Dependencies(p.job.InputPath); err == nil {
			targets = append(targets, deps...)
		}
	}

	for _, target := range targets {
		if _, err := os.Lstat(target); err != nil {
			continue
		}
		if p.cfg.Behavior.UseTrash {
			if err := fileutil.MoveToTrash(target); err == nil {
				p.logger.Info("source moved to trash", logging.String("path", target))
				continue
			}
		}
		if err := fileutil.Remove(target); err != nil {
			p.publish(Event{Type: EventErrorLine,
				Line: fmt.Sprintf("could not delete source %s: %v", target, err)})
			continue
		}
		p.logger.Info("source deleted", logging.String("path", target))
	}
}
