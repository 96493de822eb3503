package cli

import (
	"github.com/spf13/cobra"

	"bankwatch/internal/app"
)

var showFlags viewFlags

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display KPIs, the fee ranking and variation alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := showFlags.options()
		if err != nil {
			return err
		}
		return getApp().Show(cmd.Context(), app.ShowOptions{ViewOptions: view})
	},
}

func init() {
	showFlags.register(showCmd.Flags())
}
