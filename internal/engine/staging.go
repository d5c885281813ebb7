package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"transmute/internal/discimage"
	"transmute/internal/fileutil"
	"transmute/internal/logging"
	"transmute/internal/services"
)

// stage prepares the conversion input. In local-copy mode the input (and,
// for descriptor formats, its sibling data files) is copied into the
// workspace; otherwise the routine reads the source in place.
func (p *pipeline) stage(ctx context.Context, ws string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrStaging, "stage", "input", "staging canceled", err)
	}

	info, err := os.Stat(p.job.InputPath)
	if err != nil {
		return "", services.Wrap(services.ErrStaging, "stage", "input",
			fmt.Sprintf("input %q not readable", p.job.InputPath), err)
	}

	if !p.cfg.Behavior.CopyLocally {
		return p.job.InputPath, nil
	}

	staged := filepath.Join(ws, filepath.Base(p.job.InputPath))
	if info.IsDir() {
		if err := fileutil.CopyTree(p.job.InputPath, staged); err != nil {
			return "", services.Wrap(services.ErrStaging, "stage", "copy",
				"copy input directory into workspace", err)
		}
		return staged, nil
	}

	if err := fileutil.CopyFile(p.job.InputPath, staged); err != nil {
		return "", services.Wrap(services.ErrStaging, "stage", "copy",
			"copy input into workspace", err)
	}

	if p.job.MultiFileInput && discimage.IsDescriptor(p.job.InputPath) {
		if err := p.stageDependencies(ctx, ws); err != nil {
			return "", err
		}
	}
	return staged, nil
}

// stageDependencies co-locates the data files a cue or gdi descriptor
// references so the conversion tool finds them next to the copy.
func (p *pipeline) stageDependencies(ctx context.Context, ws string) error {
	deps, err := discimage.Dependencies(p.job.InputPath)
	if err != nil {
		return services.Wrap(services.ErrStaging, "stage", "dependencies",
			fmt.Sprintf("resolve files referenced by %q", filepath.Base(p.job.InputPath)), err)
	}
	for _, dep := range deps {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrStaging, "stage", "dependencies", "staging canceled", err)
		}
		dst := filepath.Join(ws, filepath.Base(dep))
		if err := fileutil.CopyFile(dep, dst); err != nil {
			return services.Wrap(services.ErrStaging, "stage", "dependencies",
				fmt.Sprintf("copy referenced file %q", filepath.Base(dep)), err)
		}
		p.logger.Debug("staged dependency", logging.String("file", filepath.Base(dep)))
	}
	return nil
}
