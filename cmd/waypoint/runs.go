package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/cli"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored run checkpoints",
	Long:  `List, inspect, and remove the final states saved by the checkpoint store.`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), cmd, cli.Overrides{})
		if err != nil {
			return err
		}
		defer rt.Close()
		return cli.ListRuns(cmd.Context(), rt, cmd.OutOrStdout())
	},
}

var runsInspectCmd = &cobra.Command{
	Use:   "inspect <correlation-id>",
	Short: "Inspect the final state of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), cmd, cli.Overrides{})
		if err != nil {
			return err
		}
		defer rt.Close()
		return cli.InspectRun(cmd.Context(), rt, args[0], cmd.OutOrStdout())
	},
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <correlation-id>...",
	Short: "Remove one or more runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), cmd, cli.Overrides{})
		if err != nil {
			return err
		}
		defer rt.Close()
		return cli.RemoveRuns(cmd.Context(), rt, args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsLsCmd)
	runsCmd.AddCommand(runsInspectCmd)
	runsCmd.AddCommand(runsRmCmd)
}
