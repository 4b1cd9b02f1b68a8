package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeusync/grab/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Check scenario files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var all error
			for _, p := range args {
				if _, err := config.LoadScenarioFile(p); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", failStyle.Render("FAIL"), p, err)
					all = errors.Join(all, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", passStyle.Render("ok"), p)
			}
			return all
		},
	}
}
