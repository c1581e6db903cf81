package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/cli"
	"github.com/aretw0/waypoint/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <workflow>",
	Short: "Export the workflow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of a workflow. With --run the
steps visited by that stored run are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		definitions, _ := cmd.Flags().GetStringSlice("definition")
		runID, _ := cmd.Flags().GetString("run")

		rt, err := newRuntime(cmd.Context(), cmd, cli.Overrides{Definitions: definitions})
		if err != nil {
			return err
		}
		defer rt.Close()

		g, err := rt.Library.Graph(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if runID != "" {
			state, err := rt.Engine.Checkpoint(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("failed to load run %q: %w", runID, err)
			}
			overlay = graph.OverlayFromState(state)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringSlice("definition", nil, "YAML or JSON workflow definition to add to the library")
	graphCmd.Flags().String("run", "", "Highlight the path of a stored run")
}
