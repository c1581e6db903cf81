package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/waypoint/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine in server mode, exposing the workflow library as a JSON
API over HTTP with run events streamed as Server-Sent Events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		definitions, _ := cmd.Flags().GetStringSlice("definition")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		rt, err := newRuntime(ctx, cmd, cli.Overrides{Definitions: definitions})
		if err != nil {
			return err
		}
		defer rt.Close()

		addr := rt.Config.HTTP.Address
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		return cli.Serve(ctx, rt, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on (default http.address)")
	serveCmd.Flags().StringSlice("definition", nil, "YAML or JSON workflow definition to add to the library")
}
