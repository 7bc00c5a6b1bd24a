package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/specialistvlad/vxgraph/internal/app"
	"github.com/specialistvlad/vxgraph/internal/platform"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

func newQueryCommand(o *options) *cobra.Command {
	var (
		modules []string
		format  string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List targets, kernels and modules",
		Long: `Create a context, load modules into it and print what it offers.

By default every bundled module is loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case "table", "yaml", "json":
			default:
				return usageError(fmt.Errorf("invalid format %q: must be table, yaml or json", format))
			}
			cfg, err := o.load()
			if err != nil {
				return err
			}
			if len(modules) == 0 {
				modules = platform.ModuleNames()
			}
			inv, err := describe(cfg, cmd.ErrOrStderr(), modules)
			if err != nil {
				return runtimeError(err)
			}
			return render(cmd.OutOrStdout(), format, inv)
		},
	}
	cmd.Flags().StringSliceVarP(&modules, "module", "m", nil, "module to load; repeat or comma-separate")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, yaml, json)")
	return cmd
}

// describe loads modules into a fresh context and takes its inventory. The
// context is released before returning.
func describe(cfg *app.Config, logW io.Writer, modules []string) (inv platform.Inventory, err error) {
	logger := app.NewLogger(cfg.Log.Level, cfg.Log.Format, logW)
	c, err := platform.NewContext(platform.Options{Logger: logger, Workers: cfg.Workers})
	if err != nil {
		return inv, err
	}
	var loaded []string
	defer func() {
		for i := len(loaded) - 1; i >= 0; i-- {
			err = errors.Join(err, c.UnloadKernels(loaded[i]))
		}
		err = errors.Join(err, c.Release())
	}()

	for _, m := range modules {
		if err := c.LoadKernels(m); err != nil {
			return inv, fmt.Errorf("load module %q: %w", m, err)
		}
		loaded = append(loaded, m)
	}
	return platform.Describe(c)
}

func render(w io.Writer, format string, inv platform.Inventory) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(inv)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(inv); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s kernels, %s modules, %s references",
		humanize.Comma(int64(inv.NumKernels)),
		humanize.Comma(int64(inv.NumModules)),
		humanize.Comma(int64(inv.NumReferences)),
	)))

	modules := newTable("Module")
	for _, m := range inv.Modules {
		modules.Row(m)
	}
	fmt.Fprintln(w, modules.Render())

	kernels := newTable("Target", "Enum", "Kernel")
	for _, t := range inv.Targets {
		for _, k := range t.Kernels {
			kernels.Row(t.Name, "0x"+strconv.FormatInt(int64(k.Enum), 16), k.Name)
		}
	}
	fmt.Fprintln(w, kernels.Render())
	return nil
}

func newTable(headers ...string) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}
