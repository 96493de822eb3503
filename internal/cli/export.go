package cli

import (
	"github.com/spf13/cobra"

	"bankwatch/internal/app"
	"bankwatch/internal/panel"
)

var (
	exportFlags      viewFlags
	exportMetric     string
	exportCSVPath    string
	exportAlertsPath string
	exportPNGPath    string
	exportBarPNGPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the panel and alerts as CSV and/or PNG charts",
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := exportFlags.options()
		if err != nil {
			return err
		}
		metric, err := panel.ParseMetric(exportMetric)
		if err != nil {
			return err
		}

		opts := app.ExportOptions{
			ViewOptions:   view,
			Metric:        metric,
			CSVPath:       exportCSVPath,
			AlertsCSVPath: exportAlertsPath,
			PNGPath:       exportPNGPath,
			BarPNGPath:    exportBarPNGPath,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportFlags.register(exportCmd.Flags())
	exportCmd.Flags().StringVar(&exportMetric, "metric", string(panel.SavingsYield), "Metric to chart (savings_yield, loan_rate, maintenance_fee, promo_score)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write the panel CSV")
	exportCmd.Flags().StringVar(&exportAlertsPath, "alerts-csv", "", "Path to write the alerts CSV")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write the metric time-series chart")
	exportCmd.Flags().StringVar(&exportBarPNGPath, "bar-png", "", "Path to write the last-day comparison chart")
}
