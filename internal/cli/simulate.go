package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bankwatch/internal/panel"
	"bankwatch/internal/report"
)

var (
	simulateDay       string
	simulateThreshold float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Run one day's scan and deliver its alerts without persisting anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDayFlag("day", simulateDay)
		if err != nil {
			return err
		}
		target := getApp().Config.ResolveEndDate()
		if day != nil {
			target = *day
		}

		alerts, err := getApp().SimulateAlert(cmd.Context(), target, simulateThreshold)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d alert(s) on %s\n", len(alerts), panel.FormatDay(target))
		return report.WriteAlertsText(cmd.OutOrStdout(), alerts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateDay, "day", "", "Day to process (YYYY-MM-DD, default generator end date)")
	simulateCmd.Flags().Float64Var(&simulateThreshold, "threshold", -1, "Alert threshold in percent (default alerting.threshold_pct)")
}
