// Package report assembles the dashboard view of a panel: KPI rows for the
// last analysed day, the maintenance fee ranking and the alert table.
package report

import (
	"fmt"
	"time"

	"bankwatch/internal/panel"
	"bankwatch/internal/scanner"
)

// DefaultThreshold is the alert threshold used when a view does not set one.
const DefaultThreshold = 3.0

// View selects what part of the panel is shown.
type View struct {
	From time.Time
	To   time.Time
	// Banks restricts the view; nil selects every bank in the panel.
	Banks     []string
	Threshold float64
}

// Resolve fills unset fields from the panel: To defaults to the last day,
// From to windowMonths before To (clamped to the first day), Banks to every
// bank. A negative threshold selects DefaultThreshold.
func (v View) Resolve(records []panel.MetricRecord, windowMonths int) (View, error) {
	first, last, ok := panel.DateRange(records)
	if !ok {
		return View{}, fmt.Errorf("%w: panel is empty", panel.ErrInvalidArgument)
	}

	out := v
	if out.To.IsZero() || panel.Day(out.To).After(last) {
		out.To = last
	}
	out.To = panel.Day(out.To)
	if out.From.IsZero() {
		out.From = out.To.AddDate(0, -windowMonths, 0)
	}
	out.From = panel.Day(out.From)
	if out.From.Before(first) {
		out.From = first
	}
	if out.From.After(out.To) {
		return View{}, fmt.Errorf("%w: from %s is after to %s", panel.ErrInvalidArgument, panel.FormatDay(out.From), panel.FormatDay(out.To))
	}
	if out.Banks == nil {
		out.Banks = panel.Banks(records)
	}
	if out.Threshold < 0 {
		out.Threshold = DefaultThreshold
	}
	return out, nil
}

// Dashboard is the computed content of a view.
type Dashboard struct {
	View    View                 `json:"view"`
	Records []panel.MetricRecord `json:"-"`
	KPIs    []panel.MetricRecord `json:"kpis"`
	Ranking []panel.MetricRecord `json:"ranking"`
	Alerts  []scanner.Alert      `json:"alerts"`
}

// Build filters records by the resolved view and computes the dashboard.
// Alerts are ordered newest first.
func Build(records []panel.MetricRecord, v View) (Dashboard, error) {
	filtered := panel.Filter(records, panel.FilterOptions{Banks: v.Banks, From: v.From, To: v.To})

	alerts, err := scanner.Scan(filtered, v.Banks, v.Threshold)
	if err != nil {
		return Dashboard{}, err
	}
	scanner.SortNewestFirst(alerts)

	kpis := panel.OnDay(filtered, v.To)
	return Dashboard{
		View:    v,
		Records: filtered,
		KPIs:    kpis,
		Ranking: panel.RankByFee(kpis),
		Alerts:  alerts,
	}, nil
}
