package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"bankwatch/internal/panel"
	"bankwatch/internal/scanner"
)

// MetricRow is a persisted daily bank observation.
type MetricRow struct {
	Bank           string
	Day            time.Time
	SavingsYield   decimal.Decimal
	LoanRate       decimal.Decimal
	MaintenanceFee decimal.Decimal
	PromoScore     decimal.Decimal
	Source         string
	CreatedAt      time.Time
}

// Record converts the row into a panel record.
func (r MetricRow) Record() panel.MetricRecord {
	return panel.MetricRecord{
		Date:           panel.Day(r.Day),
		Bank:           r.Bank,
		SavingsYield:   r.SavingsYield.InexactFloat64(),
		LoanRate:       r.LoanRate.InexactFloat64(),
		MaintenanceFee: r.MaintenanceFee.InexactFloat64(),
		PromoScore:     r.PromoScore.InexactFloat64(),
	}
}

// NewMetricRow converts a panel record into its persisted form.
func NewMetricRow(rec panel.MetricRecord, source string) MetricRow {
	return MetricRow{
		Bank:           rec.Bank,
		Day:            panel.Day(rec.Date),
		SavingsYield:   decimal.NewFromFloat(rec.SavingsYield),
		LoanRate:       decimal.NewFromFloat(rec.LoanRate),
		MaintenanceFee: decimal.NewFromFloat(rec.MaintenanceFee),
		PromoScore:     decimal.NewFromFloat(rec.PromoScore),
		Source:         source,
	}
}

// AlertRecord captures an emitted variation alert for auditing.
type AlertRecord struct {
	ID            int64
	Bank          string
	Day           time.Time
	Metric        string
	PercentChange decimal.Decimal
	Value         decimal.Decimal
	ThresholdPct  decimal.Decimal
	Direction     string
	Channels      []string
	CreatedAt     time.Time
}

// NewAlertRecord converts a scanner alert into its persisted form.
func NewAlertRecord(a scanner.Alert, threshold float64, channels []string) AlertRecord {
	return AlertRecord{
		Bank:          a.Bank,
		Day:           panel.Day(a.Date),
		Metric:        string(a.Metric),
		PercentChange: decimal.NewFromFloat(a.PercentChange),
		Value:         decimal.NewFromFloat(a.Value),
		ThresholdPct:  decimal.NewFromFloat(threshold),
		Direction:     a.Direction(),
		Channels:      channels,
	}
}
