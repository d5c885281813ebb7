package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"transmute/internal/deps"
	"transmute/internal/fileutil"
)

func newDoctorCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			problems := 0

			for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
				if status.Available {
					fmt.Fprintf(out, "ok   %-12s %s\n", status.Name, status.Path)
					continue
				}
				if status.Optional {
					fmt.Fprintf(out, "warn %-12s %s (optional)\n", status.Name, status.Detail)
					continue
				}
				problems++
				fmt.Fprintf(out, "FAIL %-12s %s\n", status.Name, status.Detail)
			}

			for label, dir := range map[string]string{
				"temp dir":   cfg.Paths.TempDir,
				"output dir": cfg.Paths.OutputDir,
			} {
				if err := checkWritable(dir); err != nil {
					problems++
					fmt.Fprintf(out, "FAIL %-12s %s: %v\n", label, dir, err)
				} else {
					fmt.Fprintf(out, "ok   %-12s %s\n", label, dir)
				}
			}

			if free, err := fileutil.FreeSpace(cfg.Paths.TempDir); err == nil {
				fmt.Fprintf(out, "ok   free space   %.1f GiB under %s\n",
					float64(free)/(1<<30), cfg.Paths.TempDir)
			}

			if problems > 0 {
				return fmt.Errorf("%d problems found", problems)
			}
			fmt.Fprintln(out, "All checks passed.")
			return nil
		},
	}
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	probe.Close()
	return os.Remove(probe.Name())
}
