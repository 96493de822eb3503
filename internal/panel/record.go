package panel

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Metric names one of the four tracked per-bank series.
type Metric string

const (
	SavingsYield   Metric = "savings_yield"
	LoanRate       Metric = "loan_rate"
	MaintenanceFee Metric = "maintenance_fee"
	PromoScore     Metric = "promo_score"
)

// Metrics lists every metric in canonical order.
func Metrics() []Metric {
	return []Metric{SavingsYield, LoanRate, MaintenanceFee, PromoScore}
}

// ParseMetric resolves a metric name, case-insensitively.
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Metrics() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidArgument, name)
}

// Label is the human readable column title.
func (m Metric) Label() string {
	switch m {
	case SavingsYield:
		return "Savings yield (%)"
	case LoanRate:
		return "Loan rate (%)"
	case MaintenanceFee:
		return "Maintenance fee"
	case PromoScore:
		return "Promo score"
	default:
		return string(m)
	}
}

// MetricRecord is one daily observation for one bank.
type MetricRecord struct {
	Date           time.Time `json:"date"`
	Bank           string    `json:"bank"`
	SavingsYield   float64   `json:"savings_yield"`
	LoanRate       float64   `json:"loan_rate"`
	MaintenanceFee float64   `json:"maintenance_fee"`
	PromoScore     float64   `json:"promo_score"`
}

// Value returns the record's value for metric m. Unknown metrics yield NaN.
func (r MetricRecord) Value(m Metric) float64 {
	switch m {
	case SavingsYield:
		return r.SavingsYield
	case LoanRate:
		return r.LoanRate
	case MaintenanceFee:
		return r.MaintenanceFee
	case PromoScore:
		return r.PromoScore
	default:
		return math.NaN()
	}
}

// Validate reports ErrMalformedRecord when a field is missing or out of range.
// A NaN metric counts as missing.
func (r MetricRecord) Validate() error {
	if strings.TrimSpace(r.Bank) == "" {
		return fmt.Errorf("%w: empty bank", ErrMalformedRecord)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: bank %s: missing date", ErrMalformedRecord, r.Bank)
	}
	for _, m := range Metrics() {
		v := r.Value(m)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bank %s on %s: %s is not a finite number", ErrMalformedRecord, r.Bank, FormatDay(r.Date), m)
		}
	}
	if r.MaintenanceFee < 0 {
		return fmt.Errorf("%w: bank %s on %s: negative maintenance fee %v", ErrMalformedRecord, r.Bank, FormatDay(r.Date), r.MaintenanceFee)
	}
	if r.PromoScore < 0 || r.PromoScore > 100 {
		return fmt.Errorf("%w: bank %s on %s: promo score %v outside [0,100]", ErrMalformedRecord, r.Bank, FormatDay(r.Date), r.PromoScore)
	}
	return nil
}

// Key identifies a record within a panel.
type Key struct {
	Bank string
	Date time.Time
}

// Key returns the (bank, day) identity of the record.
func (r MetricRecord) Key() Key {
	return Key{Bank: r.Bank, Date: Day(r.Date)}
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
