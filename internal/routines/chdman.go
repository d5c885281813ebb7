package routines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"transmute/internal/config"
	"transmute/internal/extcmd"
	"transmute/internal/services"
)

// chdmanMedia selects the per-media tuning block from the chdman config.
type chdmanMedia string

const (
	mediaCD  chdmanMedia = "cd"
	mediaDVD chdmanMedia = "dvd"
	mediaHD  chdmanMedia = "hd"
	mediaLD  chdmanMedia = "ld"
	mediaRaw chdmanMedia = "raw"
)

func (m chdmanMedia) tuning(cfg *config.Config) (hunkSize int, compression string) {
	switch m {
	case mediaCD:
		return cfg.CHDMan.CDHunkSize, cfg.CHDMan.CDCompression
	case mediaDVD:
		return cfg.CHDMan.DVDHunkSize, cfg.CHDMan.DVDCompression
	case mediaHD:
		return cfg.CHDMan.HDHunkSize, cfg.CHDMan.HDCompression
	case mediaLD:
		return cfg.CHDMan.LDHunkSize, cfg.CHDMan.LDCompression
	default:
		return cfg.CHDMan.RawHunkSize, cfg.CHDMan.RawCompression
	}
}

type chdmanRoutine struct {
	desc  Description
	verb  string
	media chdmanMedia
	// secondaryFlag adds a second output file flag (extractcd writes the cue
	// plus its bin track image via -ob).
	secondaryFlag string
	// mediaExts are the payload extensions searched for after an archive
	// input is unpacked.
	mediaExts []string
}

func chdmanRoutines() []Routine {
	return []Routine{
		&chdmanRoutine{
			desc: Description{
				ID: CompressCDToCHD, Name: "CD image to CHD", Job: JobCompress, Media: "CD image",
				InputExts: []string{"iso", "img", "cue", "toc", "gdi", "7z", "zip", "rar"},
				OutputExt: "chd", Mode: OutputFiles, MultiFile: true, Tool: "chdman",
			},
			verb: "createcd", media: mediaCD,
			mediaExts: []string{".iso", ".cue", ".img", ".toc", ".gdi"},
		},
		&chdmanRoutine{
			desc: Description{
				ID: CompressDVDToCHD, Name: "DVD image to CHD", Job: JobCompress, Media: "DVD image",
				InputExts: []string{"iso", "7z", "zip", "rar", "gz"},
				OutputExt: "chd", Mode: OutputFiles, Tool: "chdman",
			},
			verb: "createdvd", media: mediaDVD,
			mediaExts: []string{".iso"},
		},
		&chdmanRoutine{
			desc: Description{
				ID: CompressHDToCHD, Name: "Hard disk image to CHD", Job: JobCompress, Media: "Hard disk image",
				InputExts: []string{"img", "7z", "zip", "rar"},
				OutputExt: "chd", Mode: OutputFiles, Tool: "chdman",
			},
			verb: "createhd", media: mediaHD,
			mediaExts: []string{".img"},
		},
		&chdmanRoutine{
			desc: Description{
				ID: CompressLDToCHD, Name: "LaserDisc image to CHD", Job: JobCompress, Media: "LaserDisc image",
				InputExts: []string{"raw", "7z", "zip", "rar"},
				OutputExt: "chd", Mode: OutputFiles, Tool: "chdman",
			},
			verb: "createld", media: mediaLD,
			mediaExts: []string{".raw"},
		},
		&chdmanRoutine{
			desc: Description{
				ID: CompressRawToCHD, Name: "Raw image to CHD", Job: JobCompress, Media: "Raw image",
				InputExts: []string{"img", "raw", "7z", "zip", "rar"},
				OutputExt: "chd", Mode: OutputFiles, Tool: "chdman",
			},
			verb: "createraw", media: mediaRaw,
			mediaExts: []string{".img", ".raw"},
		},
		&chdmanRoutine{
			desc: Description{
				ID: ExtractCHDToCD, Name: "CHD to CD image", Job: JobExtract, Media: "CD image",
				InputExts: []string{"chd"}, OutputExt: "cue", SecondaryExt: "bin",
				CompanionExts: []string{"raw"}, Mode: OutputFiles, Tool: "chdman",
			},
			verb: "extractcd", media: mediaCD, secondaryFlag: "-ob",
		},
		&chdmanRoutine{
			desc: Description{
				ID: ExtractCHDToDVD, Name: "CHD to DVD image", Job: JobExtract, Media: "DVD image",
				InputExts: []string{"chd"}, OutputExt: "iso", Mode: OutputFiles, Tool: "chdman",
			},
			verb: "extractdvd", media: mediaDVD,
		},
		&chdmanRoutine{
			desc: Description{
				ID: ExtractCHDToHD, Name: "CHD to hard disk image", Job: JobExtract, Media: "Hard disk image",
				InputExts: []string{"chd"}, OutputExt: "img", Mode: OutputFiles, Tool: "chdman",
			},
			verb: "extracthd", media: mediaHD,
		},
		&chdmanRoutine{
			desc: Description{
				ID: ExtractCHDToLD, Name: "CHD to LaserDisc image", Job: JobExtract, Media: "LaserDisc image",
				InputExts: []string{"chd"}, OutputExt: "raw", Mode: OutputFiles, Tool: "chdman",
			},
			verb: "extractld", media: mediaLD,
		},
		&chdmanRoutine{
			desc: Description{
				ID: ExtractCHDToRaw, Name: "CHD to raw image", Job: JobExtract, Media: "Raw image",
				InputExts: []string{"chd"}, OutputExt: "img", Mode: OutputFiles, Tool: "chdman",
			},
			verb: "extractraw", media: mediaRaw,
		},
		&chdmanRoutine{
			desc: Description{
				ID: VerifyCHD, Name: "Verify CHD integrity", Job: JobVerify, Media: "CHD",
				InputExts: []string{"chd"}, Mode: OutputNone, Tool: "chdman",
			},
			verb: "verify", media: mediaRaw,
		},
		&chdmanRoutine{
			desc: Description{
				ID: InfoCHD, Name: "Show CHD metadata", Job: JobVerify, Media: "CHD",
				InputExts: []string{"chd"}, Mode: OutputNone, Tool: "chdman",
			},
			verb: "info", media: mediaRaw,
		},
	}
}

func (r *chdmanRoutine) Describe() Description { return r.desc }

func (r *chdmanRoutine) Convert(ctx context.Context, req Request) error {
	input := req.InputPath
	if len(r.mediaExts) > 0 && isArchive(input) {
		resolved, cleanup, err := resolveArchiveInput(ctx, req, r.mediaExts)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return err
		}
		input = resolved
	}

	if info, err := os.Stat(input); err != nil || info.IsDir() {
		return services.Wrap(services.ErrConversion, "convert", r.verb,
			fmt.Sprintf("input %q is not a readable file", input), err)
	}

	args := r.buildArgs(input, req)
	req.emitOutput(fmt.Sprintf(">> chdman %s %q", r.verb, filepath.Base(input)))

	if err := req.Runner.Run(ctx, extcmd.Command{
		Binary:   req.Config.Tools.Chdman,
		Args:     args,
		OnOutput: req.OnOutput,
		OnError:  req.OnError,
	}); err != nil {
		return err
	}

	if r.desc.Mode == OutputNone {
		return nil
	}
	return requireNonEmptyOutput(filepath.Join(req.WorkspaceDir, req.BaseName+"."+r.desc.OutputExt))
}

func (r *chdmanRoutine) buildArgs(input string, req Request) []string {
	out := filepath.Join(req.WorkspaceDir, req.BaseName+"."+r.desc.OutputExt)

	args := []string{r.verb, "-i", input}
	if r.desc.Mode != OutputNone {
		args = append(args, "-o", out)
	}
	if r.secondaryFlag != "" && r.desc.SecondaryExt != "" {
		args = append(args, r.secondaryFlag,
			filepath.Join(req.WorkspaceDir, req.BaseName+"."+r.desc.SecondaryExt))
	}

	cfg := req.Config
	if r.desc.Job == JobCompress {
		if cfg.CHDMan.NumProcessors > 0 {
			args = append(args, "--numprocessors", strconv.Itoa(cfg.CHDMan.NumProcessors))
		}
		hunkSize, compression := r.media.tuning(cfg)
		if hunkSize > 0 {
			args = append(args, "--hunksize", strconv.Itoa(hunkSize))
		}
		if compression != "" {
			args = append(args, "--compression", compression)
		}
	}
	return args
}

func requireNonEmptyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrConversion, "convert", "output check",
			fmt.Sprintf("expected output %q missing", path), err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrConversion, "convert", "output check",
			fmt.Sprintf("output %q is empty", path), nil)
	}
	return nil
}
