package routines

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"transmute/internal/extcmd"
	"transmute/internal/services"
)

var archiveExts = map[string]bool{
	".7z":  true,
	".zip": true,
	".rar": true,
	".gz":  true,
}

func isArchive(path string) bool {
	return archiveExts[strings.ToLower(filepath.Ext(path))]
}

// SevenZipExtractor unpacks archives with the 7z binary.
type SevenZipExtractor struct {
	Binary string
	Runner *extcmd.Runner
}

func (e *SevenZipExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if e.Binary == "" {
		return services.Wrap(services.ErrConfiguration, "stage", "7z",
			"7z binary not configured", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrStaging, "stage", "7z",
			fmt.Sprintf("create extraction dir %q", destDir), err)
	}
	return e.Runner.Run(ctx, extcmd.Command{
		Binary: e.Binary,
		Args:   []string{"x", archivePath, "-o" + destDir, "-y"},
	})
}

// resolveArchiveInput unpacks an archive input into a workspace
// subdirectory and locates the payload file by extension. The returned
// cleanup removes the unpacked tree and is non-nil whenever extraction
// was attempted.
func resolveArchiveInput(ctx context.Context, req Request, wantExts []string) (string, func(), error) {
	if req.Extractor == nil {
		return "", nil, services.Wrap(services.ErrConfiguration, "stage", "unpack",
			"archive input requires a configured extractor", nil)
	}
	dest := filepath.Join(req.WorkspaceDir, "unpacked")
	cleanup := func() { os.RemoveAll(dest) }

	req.emitOutput(fmt.Sprintf(">> unpacking %q", filepath.Base(req.InputPath)))
	if err := req.Extractor.Extract(ctx, req.InputPath, dest); err != nil {
		return "", cleanup, services.Wrap(services.ErrStaging, "stage", "unpack",
			fmt.Sprintf("unpack %q", req.InputPath), err)
	}

	found, err := findByExtension(dest, wantExts)
	if err != nil {
		return "", cleanup, err
	}
	return found, cleanup, nil
}

func findByExtension(root string, wantExts []string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range wantExts {
			if ext == want {
				found = path
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return "", services.Wrap(services.ErrStaging, "stage", "unpack",
			fmt.Sprintf("scan %q", root), err)
	}
	if found == "" {
		return "", services.Wrap(services.ErrStaging, "stage", "unpack",
			fmt.Sprintf("no %s file found in unpacked archive", strings.Join(wantExts, "/")), nil)
	}
	return found, nil
}

type archiveRoutine struct {
	desc     Description
	compress bool
}

func archiveRoutines() []Routine {
	return []Routine{
		&archiveRoutine{
			desc: Description{
				ID: ExtractArchive, Name: "Extract archive", Job: JobExtract, Media: "Archive",
				InputExts: []string{"7z", "zip", "rar", "gz"},
				Mode:      OutputFolder, Tool: "7z",
			},
		},
		&archiveRoutine{
			desc: Description{
				ID: ArchiveTo7z, Name: "Repack archive as 7z", Job: JobCompress, Media: "Archive",
				InputExts: []string{"zip", "rar", "gz", "7z"},
				OutputExt: "7z", Mode: OutputFiles, Tool: "7z",
			},
			compress: true,
		},
	}
}

func (r *archiveRoutine) Describe() Description { return r.desc }

func (r *archiveRoutine) Convert(ctx context.Context, req Request) error {
	if _, err := os.Stat(req.InputPath); err != nil {
		return services.Wrap(services.ErrConversion, "convert", "7z",
			fmt.Sprintf("input %q is not readable", req.InputPath), err)
	}

	if !r.compress {
		dest := filepath.Join(req.WorkspaceDir, req.BaseName)
		req.emitOutput(fmt.Sprintf(">> extracting %q", filepath.Base(req.InputPath)))
		if err := req.Runner.Run(ctx, extcmd.Command{
			Binary:   req.Config.Tools.SevenZip,
			Args:     []string{"x", req.InputPath, "-o" + dest, "-y"},
			OnOutput: req.OnOutput,
			OnError:  req.OnError,
		}); err != nil {
			return err
		}
		info, err := os.Stat(dest)
		if err != nil || !info.IsDir() {
			return services.Wrap(services.ErrConversion, "convert", "7z",
				fmt.Sprintf("expected extraction dir %q missing", dest), err)
		}
		return nil
	}

	// Repack: unpack first, then compress the contents into a fresh 7z.
	unpacked := filepath.Join(req.WorkspaceDir, "unpacked")
	if err := req.Runner.Run(ctx, extcmd.Command{
		Binary:   req.Config.Tools.SevenZip,
		Args:     []string{"x", req.InputPath, "-o" + unpacked, "-y"},
		OnOutput: req.OnOutput,
		OnError:  req.OnError,
	}); err != nil {
		return err
	}
	defer os.RemoveAll(unpacked)

	out := filepath.Join(req.WorkspaceDir, req.BaseName+".7z")
	req.emitOutput(fmt.Sprintf(">> repacking %q as 7z", filepath.Base(req.InputPath)))
	if err := req.Runner.Run(ctx, extcmd.Command{
		Binary:   req.Config.Tools.SevenZip,
		Args:     []string{"a", out, filepath.Join(unpacked, "*")},
		OnOutput: req.OnOutput,
		OnError:  req.OnError,
	}); err != nil {
		return err
	}
	return requireNonEmptyOutput(out)
}
