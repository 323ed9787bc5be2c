package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harun/unsure/pkg/agent"
)

func newModelsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the supported models",
		Long:  `List the supported models. The configured model is marked with *.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tNAME\tPROVIDER\t")
			for _, m := range agent.SupportedModels() {
				marker := ""
				if m.ID == app.config.Model {
					marker = "*"
				}
				name := m.DisplayName
				if m.ID == agent.DefaultModelID {
					name += " (default)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", marker, m.ID, name, m.Provider)
			}
			return tw.Flush()
		},
	}
}
