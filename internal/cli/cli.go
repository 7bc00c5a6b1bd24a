package cli

import (
	"context"
	"errors"
	"io"

	"github.com/specialistvlad/vxgraph/internal/app"
	"github.com/specialistvlad/vxgraph/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

func runtimeError(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return &ExitError{Code: 1, Message: err.Error()}
}

// options carries the state shared by the commands of one invocation.
type options struct {
	v       *viper.Viper
	cfgFile string
}

// load reads the configuration, mapping failures to a usage error.
func (o *options) load() (*app.Config, error) {
	cfg, err := app.LoadConfig(o.v, o.cfgFile)
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// NewRootCommand builds the vxgraph command tree writing to outW. Each call
// has its own viper instance, so commands never share state.
func NewRootCommand(outW io.Writer) *cobra.Command {
	o := &options{v: viper.New()}

	root := &cobra.Command{
		Use:   "vxgraph",
		Short: "Build and run vision processing graphs",
		Long: `vxgraph runs vision processing graphs: images, arrays and scalars wired
through kernel nodes, verified once and processed many times.

With no graph file the built-in xyz example graph is set up, processed and
torn down again.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	root.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)

	flags := root.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "config file (YAML)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	_ = o.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = o.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(newRunCommand(o))
	root.AddCommand(newQueryCommand(o))
	root.AddCommand(newAboutCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the command tree with args. Errors come back as *ExitError:
// code 2 for bad flags or configuration, code 1 for failed runs.
func Execute(ctx context.Context, outW io.Writer, args []string) error {
	root := NewRootCommand(outW)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		// Unknown commands and argument count errors.
		return usageError(err)
	}
	return nil
}
