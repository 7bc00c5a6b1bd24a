package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/specialistvlad/vxgraph/internal/demo"
	"github.com/specialistvlad/vxgraph/internal/version"
	"github.com/spf13/cobra"
)

var aboutBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 2)

func newAboutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "about",
		Short: "Show what this program is",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := demo.About()
			body := lipgloss.JoinVertical(lipgloss.Left,
				titleStyle.Render(info.Title+" "+info.Name),
				"",
				info.Text,
				"",
				fmt.Sprintf("Version %s (%s)", info.Version, info.Commit),
			)
			fmt.Fprintln(cmd.OutOrStdout(), aboutBox.Render(body))
		},
	}
}

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			info := version.Get()
			fmt.Fprintln(out, info.String())

			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				fmt.Fprintf(out, "\nDetails:\n")
				fmt.Fprintf(out, "  Version:    %s\n", info.Version)
				fmt.Fprintf(out, "  Git Commit: %s\n", info.Commit)
				fmt.Fprintf(out, "  Built:      %s\n", info.BuildTime)
				fmt.Fprintf(out, "  Go Version: %s\n", info.GoVersion)
				fmt.Fprintf(out, "  Platform:   %s\n", info.Platform)
			}
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "verbose version output")
	return cmd
}
