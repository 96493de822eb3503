// Package scanner flags day-over-day metric variations in a bank panel.
package scanner

import (
	"fmt"
	"math"
	"sort"
	"time"

	"bankwatch/internal/panel"
)

// Alert is one metric whose daily change met the threshold.
type Alert struct {
	Date          time.Time    `json:"date"`
	Bank          string       `json:"bank"`
	Metric        panel.Metric `json:"metric"`
	PercentChange float64      `json:"percent_change"`
	Value         float64      `json:"value"`
}

// Direction classifies the sign of the change.
func (a Alert) Direction() string {
	switch {
	case a.PercentChange > 0:
		return "up"
	case a.PercentChange < 0:
		return "down"
	default:
		return "flat"
	}
}

// Scan computes the percent change of every metric between consecutive days
// of each bank in banks and returns an alert wherever |change| >= threshold.
//
// The first day of each bank has no prior value and is never flagged, and an
// unchanged value is never flagged even at a zero threshold. A change from a
// previous value of exactly zero is undefined and skipped.
// Records of banks outside the set are ignored; any scanned record that fails
// validation, or repeats a (bank, date), aborts the scan with
// panel.ErrMalformedRecord.
//
// Alerts are ordered by bank, then date, then metric.
func Scan(records []panel.MetricRecord, banks []string, threshold float64) ([]Alert, error) {
	if math.IsNaN(threshold) || threshold < 0 {
		return nil, fmt.Errorf("%w: threshold must be a non-negative number, got %v", panel.ErrInvalidArgument, threshold)
	}

	partitions, err := partition(records, panel.BankSet(banks))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(partitions))
	for bank := range partitions {
		names = append(names, bank)
	}
	sort.Strings(names)

	alerts := make([]Alert, 0)
	for _, bank := range names {
		alerts = append(alerts, scanBank(partitions[bank], threshold)...)
	}
	return alerts, nil
}

func partition(records []panel.MetricRecord, allowed map[string]struct{}) (map[string][]panel.MetricRecord, error) {
	out := make(map[string][]panel.MetricRecord)
	seen := make(map[panel.Key]struct{})
	for _, rec := range records {
		if _, ok := allowed[rec.Bank]; !ok {
			continue
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		key := rec.Key()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate record for bank %s on %s", panel.ErrMalformedRecord, rec.Bank, panel.FormatDay(key.Date))
		}
		seen[key] = struct{}{}
		out[rec.Bank] = append(out[rec.Bank], rec)
	}
	for _, series := range out {
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	}
	return out, nil
}

func scanBank(series []panel.MetricRecord, threshold float64) []Alert {
	var alerts []Alert
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		for _, m := range panel.Metrics() {
			change, ok := PercentChange(prev.Value(m), cur.Value(m))
			if !ok || change == 0 || math.Abs(change) < threshold {
				continue
			}
			alerts = append(alerts, Alert{
				Date:          panel.Day(cur.Date),
				Bank:          cur.Bank,
				Metric:        m,
				PercentChange: panel.Round(change, 2),
				Value:         cur.Value(m),
			})
		}
	}
	return alerts
}

// PercentChange returns (cur-prev)/prev*100. ok is false when prev is zero.
func PercentChange(prev, cur float64) (float64, bool) {
	if prev == 0 {
		return 0, false
	}
	return (cur - prev) / prev * 100, true
}

// SortNewestFirst orders alerts by date descending, then bank and metric.
func SortNewestFirst(alerts []Alert) {
	order := make(map[panel.Metric]int)
	for i, m := range panel.Metrics() {
		order[m] = i
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Bank != b.Bank {
			return a.Bank < b.Bank
		}
		return order[a.Metric] < order[b.Metric]
	})
}

// OnDay keeps the alerts dated day.
func OnDay(alerts []Alert, day time.Time) []Alert {
	day = panel.Day(day)
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Date.Equal(day) {
			out = append(out, a)
		}
	}
	return out
}
