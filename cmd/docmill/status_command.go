package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docmill/internal/preflight"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check batch readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{result.Name, yesNo(result.Passed), result.Detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Check", "Ready", "Detail"}, rows))
			fmt.Fprintf(out, "Config: %s\n", cmdCtx.configPath)

			if !preflight.Passed(results) {
				failed := make([]string, 0, len(results))
				for _, result := range results {
					if !result.Passed {
						failed = append(failed, result.Name)
					}
				}
				return fmt.Errorf("not ready: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}
