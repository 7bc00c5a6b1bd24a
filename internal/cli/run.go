package cli

import (
	"github.com/specialistvlad/vxgraph/internal/app"
	"github.com/spf13/cobra"
)

func newRunCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [GRAPH_PATH]",
		Short: "Process a graph",
		Long: `Process a graph the configured number of times.

GRAPH_PATH is a single .hcl file or a directory of .hcl files. Without it
the built-in xyz example graph runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				o.v.Set("graph", args[0])
			}
			cfg, err := o.load()
			if err != nil {
				return err
			}
			a := app.NewApp(cmd.OutOrStdout(), cfg)
			a.Logger().Debug("Configuration loaded.", "config", cfg)
			if err := a.Run(cmd.Context()); err != nil {
				return runtimeError(err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("graph", "g", "", "path to the graph file or directory")
	flags.IntP("iterations", "n", 1, "number of times to process the graph")
	flags.Int("workers", 4, "number of concurrent node workers")
	flags.Int("status-port", 0, "port for the HTTP status server, 0 disables it")
	flags.String("events-url", "", "socket.io server receiving graph events")
	flags.String("events-namespace", "/", "socket.io namespace for graph events")

	_ = o.v.BindPFlag("graph", flags.Lookup("graph"))
	_ = o.v.BindPFlag("iterations", flags.Lookup("iterations"))
	_ = o.v.BindPFlag("workers", flags.Lookup("workers"))
	_ = o.v.BindPFlag("status.port", flags.Lookup("status-port"))
	_ = o.v.BindPFlag("events.url", flags.Lookup("events-url"))
	_ = o.v.BindPFlag("events.namespace", flags.Lookup("events-namespace"))
	return cmd
}
