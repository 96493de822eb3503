package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"bankwatch/internal/panel"
	"bankwatch/internal/report"
)

// Export writes the view as panel CSV, alerts CSV, a metric time-series PNG
// and a comparison bar PNG for its last day. At least one path is required.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.AlertsCSVPath == "" && opts.PNGPath == "" && opts.BarPNGPath == "" {
		return errors.New("at least one of --csv, --alerts-csv, --png or --bar-png must be provided")
	}
	if opts.Metric == "" {
		opts.Metric = panel.SavingsYield
	}

	d, err := a.dashboard(ctx, opts.ViewOptions)
	if err != nil {
		return err
	}
	size := report.ChartSize{Width: a.Config.Export.ChartWidth, Height: a.Config.Export.ChartHeight}

	a.Logger.Info().
		Str("from", panel.FormatDay(d.View.From)).
		Str("to", panel.FormatDay(d.View.To)).
		Int("records", len(d.Records)).
		Int("alerts", len(d.Alerts)).
		Str("metric", string(opts.Metric)).
		Msg("exporting panel")

	if opts.CSVPath != "" {
		if err := writeFile(opts.CSVPath, func(w io.Writer) error {
			return report.WritePanelCSV(w, d.Records)
		}); err != nil {
			return err
		}
	}
	if opts.AlertsCSVPath != "" {
		if err := writeFile(opts.AlertsCSVPath, func(w io.Writer) error {
			return report.WriteAlertsCSV(w, d.Alerts)
		}); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeFile(opts.PNGPath, func(w io.Writer) error {
			return report.WriteMetricPNG(w, d.Records, opts.Metric, size)
		}); err != nil {
			return err
		}
	}
	if opts.BarPNGPath != "" {
		if err := writeFile(opts.BarPNGPath, func(w io.Writer) error {
			return report.WriteComparisonPNG(w, d.KPIs, opts.Metric, size)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := report.CreateFile(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
