package app

import (
	"context"

	"bankwatch/internal/panel"
	"bankwatch/internal/report"
	"bankwatch/internal/scanner"
)

func (a *App) view(opts ViewOptions) report.View {
	v := report.View{
		Banks:     opts.Banks,
		Threshold: a.Config.ResolveThreshold(opts.Threshold),
	}
	if opts.From != nil {
		v.From = *opts.From
	}
	if opts.To != nil {
		v.To = *opts.To
	}
	return v
}

// dashboard loads the panel and computes the requested view of it.
func (a *App) dashboard(ctx context.Context, opts ViewOptions) (report.Dashboard, error) {
	records, err := a.loadPanel(ctx)
	if err != nil {
		return report.Dashboard{}, err
	}
	v, err := a.view(opts).Resolve(records, a.Config.View.WindowMonths)
	if err != nil {
		return report.Dashboard{}, err
	}
	return report.Build(records, v)
}

// Show prints KPIs, the fee ranking and alerts for the view.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	d, err := a.dashboard(ctx, opts.ViewOptions)
	if err != nil {
		return err
	}
	return report.WriteText(a.Out, d)
}

// Scan prints the variation alerts of the view, newest first.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	d, err := a.dashboard(ctx, opts.ViewOptions)
	if err != nil {
		return err
	}
	alerts := d.Alerts
	if opts.Day != nil {
		alerts = scanner.OnDay(alerts, *opts.Day)
	}
	a.Logger.Info().
		Str("from", panel.FormatDay(d.View.From)).
		Str("to", panel.FormatDay(d.View.To)).
		Float64("threshold_pct", d.View.Threshold).
		Int("alerts", len(alerts)).
		Msg("scan complete")
	return report.WriteAlertsText(a.Out, alerts)
}
