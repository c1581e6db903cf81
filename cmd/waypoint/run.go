package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/waypoint/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Run a workflow once and print its final state",
	Long: `Runs a workflow of the library to completion.

Initial values are given as --state key=value. The clock and the random
source can be scripted to reproduce a run:

  waypoint run weekday-email --weekday wed --number 75
  waypoint run weather-email --weekday wed --weather sunny --number 12
  waypoint run order-flow --state order_id=o-1 --state product_id=item_001 --state quantity=2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		weekday, _ := cmd.Flags().GetString("weekday")
		weather, _ := cmd.Flags().GetString("weather")
		number, _ := cmd.Flags().GetString("number")
		definitions, _ := cmd.Flags().GetStringSlice("definition")

		draws, err := cli.ScriptDraws(weather, number)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		rt, err := newRuntime(ctx, cmd, cli.Overrides{Weekday: weekday, Draws: draws, Definitions: definitions})
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := cli.RunOptions{Workflow: args[0]}
		opts.State, _ = cmd.Flags().GetStringArray("state")
		opts.CorrelationID, _ = cmd.Flags().GetString("correlation-id")
		opts.MaxSteps, _ = cmd.Flags().GetInt("max-steps")
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Banner = term.IsTerminal(int(os.Stdout.Fd()))

		return cli.Execute(ctx, rt, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayP("state", "s", nil, "Initial value as key=value (repeatable)")
	runCmd.Flags().String("correlation-id", "", "Correlation id of the run (default a random UUID)")
	runCmd.Flags().Int("max-steps", 0, "Step limit for this run (default engine.max_steps)")
	runCmd.Flags().Duration("timeout", 0, "Deadline for this run (default engine.timeout)")
	runCmd.Flags().String("weekday", "", "Pin the clock to a day of the week, e.g. wed")
	runCmd.Flags().String("number", "", "Script the random number drawn by the run")
	runCmd.Flags().String("weather", "", "Script the weather observed by weather-email")
	runCmd.Flags().StringSlice("definition", nil, "YAML or JSON workflow definition to add to the library")
	runCmd.Flags().Bool("json", false, "Print the report as JSON")
}
