package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"bankwatch/internal/panel"
	"bankwatch/internal/report"
	"bankwatch/internal/scanner"
)

type viewDTO struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Banks     []string `json:"banks"`
	Threshold float64  `json:"threshold"`
}

type recordDTO struct {
	Date           string  `json:"date"`
	Bank           string  `json:"bank"`
	SavingsYield   float64 `json:"savings_yield"`
	LoanRate       float64 `json:"loan_rate"`
	MaintenanceFee float64 `json:"maintenance_fee"`
	PromoScore     float64 `json:"promo_score"`
}

type alertDTO struct {
	Date          string  `json:"date"`
	Bank          string  `json:"bank"`
	Metric        string  `json:"metric"`
	PercentChange float64 `json:"percent_change"`
	Value         float64 `json:"value"`
	Direction     string  `json:"direction"`
}

type pivotDTO struct {
	Metric string                `json:"metric"`
	Dates  []string              `json:"dates"`
	Series map[string][]*float64 `json:"series"`
}

type recordsResponse struct {
	View    viewDTO     `json:"view"`
	Records []recordDTO `json:"records"`
}

type dashboardResponse struct {
	View    viewDTO     `json:"view"`
	KPIs    []recordDTO `json:"kpis"`
	Ranking []recordDTO `json:"ranking"`
	Alerts  []alertDTO  `json:"alerts"`
}

type alertsResponse struct {
	View   viewDTO    `json:"view"`
	Alerts []alertDTO `json:"alerts"`
}

func toViewDTO(v report.View) viewDTO {
	return viewDTO{
		From:      panel.FormatDay(v.From),
		To:        panel.FormatDay(v.To),
		Banks:     v.Banks,
		Threshold: v.Threshold,
	}
}

func toRecordDTOs(records []panel.MetricRecord) []recordDTO {
	out := make([]recordDTO, len(records))
	for i, rec := range records {
		out[i] = recordDTO{
			Date:           panel.FormatDay(rec.Date),
			Bank:           rec.Bank,
			SavingsYield:   rec.SavingsYield,
			LoanRate:       rec.LoanRate,
			MaintenanceFee: rec.MaintenanceFee,
			PromoScore:     rec.PromoScore,
		}
	}
	return out
}

func toAlertDTOs(alerts []scanner.Alert) []alertDTO {
	out := make([]alertDTO, len(alerts))
	for i, a := range alerts {
		out[i] = alertDTO{
			Date:          panel.FormatDay(a.Date),
			Bank:          a.Bank,
			Metric:        string(a.Metric),
			PercentChange: a.PercentChange,
			Value:         a.Value,
			Direction:     a.Direction(),
		}
	}
	return out
}

func toPivotDTO(w panel.Wide) pivotDTO {
	dates := make([]string, len(w.Dates))
	for i, d := range w.Dates {
		dates[i] = panel.FormatDay(d)
	}
	series := make(map[string][]*float64, len(w.Banks))
	for i, bank := range w.Banks {
		values := make([]*float64, len(w.Values[i]))
		for j, v := range w.Values[i] {
			values[j] = nullable(v)
		}
		series[bank] = values
	}
	return pivotDTO{Metric: string(w.Metric), Dates: dates, Series: series}
}

// parseView reads from, to, banks and threshold query parameters. Omitted
// values are left for report.View.Resolve to fill.
func parseView(q url.Values, defaultThreshold float64) (report.View, error) {
	view := report.View{Threshold: defaultThreshold}

	if raw := q.Get("from"); raw != "" {
		day, err := panel.ParseDay(raw)
		if err != nil {
			return report.View{}, err
		}
		view.From = day
	}
	if raw := q.Get("to"); raw != "" {
		day, err := panel.ParseDay(raw)
		if err != nil {
			return report.View{}, err
		}
		view.To = day
	}
	if q.Has("banks") {
		view.Banks = splitList(q.Get("banks"))
	}
	if raw := q.Get("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil || threshold < 0 {
			return report.View{}, invalidThreshold(raw)
		}
		view.Threshold = threshold
	}
	return view, nil
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func invalidThreshold(raw string) error {
	return fmt.Errorf("%w: threshold %q must be a non-negative number", panel.ErrInvalidArgument, raw)
}
