package panel

import (
	"math"
	"sort"
	"time"
)

// FilterOptions restricts a panel view. Zero From/To leave that side open and
// a nil Banks slice keeps every bank.
type FilterOptions struct {
	Banks []string
	From  time.Time
	To    time.Time
}

// Filter returns the records matching opts as a new slice. The input is never
// modified.
func Filter(records []MetricRecord, opts FilterOptions) []MetricRecord {
	var allowed map[string]struct{}
	if opts.Banks != nil {
		allowed = BankSet(opts.Banks)
	}
	from, to := Day(opts.From), Day(opts.To)

	out := make([]MetricRecord, 0, len(records))
	for _, rec := range records {
		if allowed != nil {
			if _, ok := allowed[rec.Bank]; !ok {
				continue
			}
		}
		day := Day(rec.Date)
		if !opts.From.IsZero() && day.Before(from) {
			continue
		}
		if !opts.To.IsZero() && day.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// BankSet converts a bank list into a lookup set.
func BankSet(banks []string) map[string]struct{} {
	set := make(map[string]struct{}, len(banks))
	for _, b := range banks {
		set[b] = struct{}{}
	}
	return set
}

// Banks lists the distinct banks in order of first appearance.
func Banks(records []MetricRecord) []string {
	seen := make(map[string]struct{})
	banks := make([]string, 0)
	for _, rec := range records {
		if _, ok := seen[rec.Bank]; ok {
			continue
		}
		seen[rec.Bank] = struct{}{}
		banks = append(banks, rec.Bank)
	}
	return banks
}

// DateRange returns the earliest and latest day present. ok is false for an
// empty panel.
func DateRange(records []MetricRecord) (first, last time.Time, ok bool) {
	for i, rec := range records {
		day := Day(rec.Date)
		if i == 0 || day.Before(first) {
			first = day
		}
		if i == 0 || day.After(last) {
			last = day
		}
	}
	return first, last, len(records) > 0
}

// OnDay returns the records dated day, ordered by bank.
func OnDay(records []MetricRecord, day time.Time) []MetricRecord {
	day = Day(day)
	out := make([]MetricRecord, 0)
	for _, rec := range records {
		if Day(rec.Date).Equal(day) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Bank < out[j].Bank })
	return out
}

// Latest returns the records on the most recent day of the panel.
func Latest(records []MetricRecord) []MetricRecord {
	_, last, ok := DateRange(records)
	if !ok {
		return nil
	}
	return OnDay(records, last)
}

// RankByFee orders a copy of records by ascending maintenance fee, ties by bank.
func RankByFee(records []MetricRecord) []MetricRecord {
	out := append([]MetricRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MaintenanceFee != out[j].MaintenanceFee {
			return out[i].MaintenanceFee < out[j].MaintenanceFee
		}
		return out[i].Bank < out[j].Bank
	})
	return out
}

// Wide is a metric reshaped into one series per bank over a shared date axis.
// Values[b][d] is NaN when bank b has no record on Dates[d].
type Wide struct {
	Metric Metric
	Dates  []time.Time
	Banks  []string
	Values [][]float64
}

// Series returns the values for bank, or nil if the bank is absent.
func (w Wide) Series(bank string) []float64 {
	for i, b := range w.Banks {
		if b == bank {
			return w.Values[i]
		}
	}
	return nil
}

// Pivot reshapes long-format records into per-bank columns of metric m. Dates
// are ascending; banks keep their order of first appearance.
func Pivot(records []MetricRecord, m Metric) Wide {
	banks := Banks(records)
	bankIdx := make(map[string]int, len(banks))
	for i, b := range banks {
		bankIdx[b] = i
	}

	dateSet := make(map[time.Time]struct{})
	for _, rec := range records {
		dateSet[Day(rec.Date)] = struct{}{}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	dateIdx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		dateIdx[d] = i
	}

	values := make([][]float64, len(banks))
	for i := range values {
		row := make([]float64, len(dates))
		for j := range row {
			row[j] = math.NaN()
		}
		values[i] = row
	}
	for _, rec := range records {
		values[bankIdx[rec.Bank]][dateIdx[Day(rec.Date)]] = rec.Value(m)
	}

	return Wide{Metric: m, Dates: dates, Banks: banks, Values: values}
}
