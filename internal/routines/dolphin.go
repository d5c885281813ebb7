package routines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"transmute/internal/extcmd"
	"transmute/internal/services"
)

type dolphinRoutine struct {
	desc    Description
	extract bool
}

func dolphinRoutines() []Routine {
	return []Routine{
		&dolphinRoutine{
			desc: Description{
				ID: CompressDolphin, Name: "GameCube/Wii image to RVZ", Job: JobCompress,
				Media: "GameCube/Wii image",
				InputExts: []string{"iso", "gcm", "wbfs", "7z", "zip", "rar"},
				OutputExt: "rvz", Mode: OutputFiles, Tool: "dolphin-tool",
			},
		},
		&dolphinRoutine{
			desc: Description{
				ID: ExtractDolphin, Name: "RVZ/GCZ/WIA to ISO", Job: JobExtract,
				Media: "GameCube/Wii image",
				InputExts: []string{"rvz", "gcz", "wia"},
				OutputExt: "iso", Mode: OutputFiles, Tool: "dolphin-tool",
			},
			extract: true,
		},
	}
}

func (r *dolphinRoutine) Describe() Description { return r.desc }

func (r *dolphinRoutine) Convert(ctx context.Context, req Request) error {
	input := req.InputPath
	if !r.extract && isArchive(input) {
		resolved, cleanup, err := resolveArchiveInput(ctx, req, []string{".iso", ".gcm", ".wbfs"})
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return err
		}
		input = resolved
	}

	if info, err := os.Stat(input); err != nil || info.IsDir() {
		return services.Wrap(services.ErrConversion, "convert", "dolphin-tool",
			fmt.Sprintf("input %q is not a readable file", input), err)
	}

	outExt := r.desc.OutputExt
	format := "iso"
	if !r.extract {
		format = req.Config.Dolphin.Format
		outExt = format
	}
	out := filepath.Join(req.WorkspaceDir, req.BaseName+"."+outExt)

	args := []string{"convert", "-i", input, "-o", out, "-f", format}
	if !r.extract && format == "rvz" {
		args = append(args, "-c", "zstd")
		if lvl := req.Config.Dolphin.CompressionLevel; lvl > 0 {
			args = append(args, "-l", strconv.Itoa(lvl))
		}
	}
	req.emitOutput(fmt.Sprintf(">> dolphin-tool convert %q -> %s", filepath.Base(input), format))

	if err := req.Runner.Run(ctx, extcmd.Command{
		Binary:   req.Config.Tools.DolphinTool,
		Args:     args,
		OnOutput: req.OnOutput,
		OnError:  req.OnError,
	}); err != nil {
		return err
	}
	return requireNonEmptyOutput(out)
}
