package report

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"bankwatch/internal/panel"
	"bankwatch/internal/scanner"
)

// ChartSize sets PNG dimensions.
type ChartSize struct {
	Width  int
	Height int
}

var panelHeader = []string{"date", "bank", "savings_yield", "loan_rate", "maintenance_fee", "promo_score"}

// WritePanelCSV writes records in long format, one row per (bank, date).
func WritePanelCSV(w io.Writer, records []panel.MetricRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(panelHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			panel.FormatDay(rec.Date),
			rec.Bank,
			fixed(rec.SavingsYield, 2),
			fixed(rec.LoanRate, 2),
			fixed(rec.MaintenanceFee, 0),
			fixed(rec.PromoScore, 1),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteAlertsCSV writes the alert table.
func WriteAlertsCSV(w io.Writer, alerts []scanner.Alert) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "bank", "metric", "percent_change", "value"}); err != nil {
		return err
	}
	for _, a := range alerts {
		row := []string{
			panel.FormatDay(a.Date),
			a.Bank,
			string(a.Metric),
			fixed(a.PercentChange, 2),
			formatValue(a.Metric, a.Value),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteMetricPNG charts metric m over time, one line per bank.
func WriteMetricPNG(w io.Writer, records []panel.MetricRecord, m panel.Metric, size ChartSize) error {
	wide := panel.Pivot(records, m)
	if len(wide.Dates) < 2 {
		return errors.New("at least two days are required to chart a metric")
	}

	series := make([]chart.Series, 0, len(wide.Banks))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, bank := range wide.Banks {
		x := make([]time.Time, 0, len(wide.Dates))
		y := make([]float64, 0, len(wide.Dates))
		for j, v := range wide.Series(bank) {
			if math.IsNaN(v) {
				continue
			}
			x = append(x, wide.Dates[j])
			y = append(y, v)
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		series = append(series, chart.TimeSeries{Name: bank, XValues: x, YValues: y})
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  m.Label(),
		Width:  size.Width,
		Height: size.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           m.Label(),
			ValueFormatter: valueFormatter,
		},
		Series: series,
	}
	if lo == hi {
		graph.YAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// WriteComparisonPNG draws one bar per bank for metric m on the KPI day.
func WriteComparisonPNG(w io.Writer, kpis []panel.MetricRecord, m panel.Metric, size ChartSize) error {
	if len(kpis) == 0 {
		return errors.New("no records to compare")
	}

	bars := make([]chart.Value, 0, len(kpis))
	hi := 0.0
	for _, rec := range kpis {
		v := rec.Value(m)
		bars = append(bars, chart.Value{Label: rec.Bank, Value: v})
		hi = math.Max(hi, v)
	}
	if hi == 0 {
		hi = 1
	}

	graph := chart.BarChart{
		Title:  m.Label() + " " + panel.FormatDay(kpis[0].Date),
		Width:  size.Width,
		Height: size.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: 60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: hi * 1.1},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f")
			},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}

// CreateFile creates path, making parent directories as needed.
func CreateFile(path string) (*os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
