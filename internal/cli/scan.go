package cli

import (
	"github.com/spf13/cobra"

	"bankwatch/internal/app"
)

var (
	scanFlags viewFlags
	scanDay   string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List day-over-day variations above the threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := scanFlags.options()
		if err != nil {
			return err
		}
		day, err := parseDayFlag("day", scanDay)
		if err != nil {
			return err
		}
		return getApp().Scan(cmd.Context(), app.ScanOptions{ViewOptions: view, Day: day})
	},
}

func init() {
	scanFlags.register(scanCmd.Flags())
	scanCmd.Flags().StringVar(&scanDay, "day", "", "Only list alerts raised on this day (YYYY-MM-DD)")
}
