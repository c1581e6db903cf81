package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition>...",
	Short: "Check workflow definitions for consistency",
	Long: `Compiles YAML or JSON workflow definitions against the registered steps
and routers, reporting unknown names, dangling edges, uncovered router
outcomes and unreachable steps.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), cmd, cli.Overrides{Definitions: args})
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		defer rt.Close()

		for _, path := range args {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid! ✅\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
