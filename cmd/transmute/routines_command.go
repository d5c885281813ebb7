package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"transmute/internal/routines"
)

func newRoutinesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "routines",
		Short:       "List available conversion routines",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0)
			for _, desc := range routines.All() {
				output := desc.OutputExt
				switch desc.Mode {
				case routines.OutputFolder:
					output = "(folder)"
				case routines.OutputNone:
					output = "-"
				}
				rows = append(rows, []string{
					string(desc.ID),
					desc.Name,
					desc.Tool,
					strings.Join(desc.InputExts, ", "),
					output,
				})
			}
			sortRowsBy(rows, 0)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "DESCRIPTION", "TOOL", "INPUTS", "OUTPUT"},
				rows,
				nil))
			return nil
		},
	}
}
