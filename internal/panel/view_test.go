package panel

import (
	"errors"
	"math"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2024, time.March, n, 0, 0, 0, 0, time.UTC)
}

func sampleRecords() []MetricRecord {
	return []MetricRecord{
		{Date: day(2), Bank: "B", SavingsYield: 70, LoanRate: 90, MaintenanceFee: 15000, PromoScore: 40},
		{Date: day(1), Bank: "A", SavingsYield: 71, LoanRate: 91, MaintenanceFee: 18000, PromoScore: 50},
		{Date: day(2), Bank: "A", SavingsYield: 72, LoanRate: 92, MaintenanceFee: 18100, PromoScore: 51},
		{Date: day(3), Bank: "A", SavingsYield: 73, LoanRate: 93, MaintenanceFee: 18200, PromoScore: 52},
	}
}

func TestFilterByBankAndRange(t *testing.T) {
	records := sampleRecords()
	got := Filter(records, FilterOptions{Banks: []string{"A"}, From: day(2), To: day(3)})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	for _, rec := range got {
		if rec.Bank != "A" || rec.Date.Before(day(2)) {
			t.Fatalf("unexpected record %+v", rec)
		}
	}

	if len(Filter(records, FilterOptions{Banks: []string{}})) != 0 {
		t.Fatal("empty bank list should select nothing")
	}
	if len(Filter(records, FilterOptions{})) != len(records) {
		t.Fatal("zero options should keep everything")
	}
	if records[0].Bank != "B" {
		t.Fatal("input must not be reordered")
	}
}

func TestDateRangeAndLatest(t *testing.T) {
	first, last, ok := DateRange(sampleRecords())
	if !ok || !first.Equal(day(1)) || !last.Equal(day(3)) {
		t.Fatalf("unexpected range %v..%v ok=%v", first, last, ok)
	}
	if _, _, ok := DateRange(nil); ok {
		t.Fatal("empty panel should report ok=false")
	}

	latest := Latest(sampleRecords())
	if len(latest) != 1 || latest[0].Bank != "A" || latest[0].SavingsYield != 73 {
		t.Fatalf("unexpected latest rows %+v", latest)
	}
}

func TestRankByFee(t *testing.T) {
	ranked := RankByFee(OnDay(sampleRecords(), day(2)))
	if len(ranked) != 2 || ranked[0].Bank != "B" || ranked[1].Bank != "A" {
		t.Fatalf("unexpected ranking %+v", ranked)
	}
}

func TestPivotFillsGapsWithNaN(t *testing.T) {
	wide := Pivot(sampleRecords(), SavingsYield)
	if len(wide.Dates) != 3 {
		t.Fatalf("expected 3 dates, got %d", len(wide.Dates))
	}
	if len(wide.Banks) != 2 || wide.Banks[0] != "B" || wide.Banks[1] != "A" {
		t.Fatalf("unexpected bank order %v", wide.Banks)
	}

	b := wide.Series("B")
	if !math.IsNaN(b[0]) || b[1] != 70 || !math.IsNaN(b[2]) {
		t.Fatalf("unexpected series for B: %v", b)
	}
	a := wide.Series("A")
	if a[0] != 71 || a[1] != 72 || a[2] != 73 {
		t.Fatalf("unexpected series for A: %v", a)
	}
	if wide.Series("missing") != nil {
		t.Fatal("absent bank should return nil")
	}
}

func TestValidate(t *testing.T) {
	valid := MetricRecord{Date: day(1), Bank: "A", SavingsYield: 1, LoanRate: 2, MaintenanceFee: 3, PromoScore: 4}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	cases := map[string]func(r *MetricRecord){
		"empty bank":   func(r *MetricRecord) { r.Bank = " " },
		"zero date":    func(r *MetricRecord) { r.Date = time.Time{} },
		"missing loan": func(r *MetricRecord) { r.LoanRate = math.NaN() },
		"negative fee": func(r *MetricRecord) { r.MaintenanceFee = -1 },
		"promo high":   func(r *MetricRecord) { r.PromoScore = 100.5 },
		"promo low":    func(r *MetricRecord) { r.PromoScore = -0.1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			rec := valid
			mutate(&rec)
			if err := rec.Validate(); !errors.Is(err, ErrMalformedRecord) {
				t.Fatalf("expected ErrMalformedRecord, got %v", err)
			}
		})
	}
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" Loan_Rate ")
	if err != nil || m != LoanRate {
		t.Fatalf("unexpected parse result %q %v", m, err)
	}
	if _, err := ParseMetric("apr"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRoundAndDays(t *testing.T) {
	if got := Round(71.404, 2); got != 71.4 {
		t.Fatalf("Round(71.404, 2) = %v", got)
	}
	if got := Round(18049.5, 0); got != 18050 {
		t.Fatalf("Round(18049.5, 0) = %v", got)
	}
	if got := DaysBetween(day(1), day(3)); got != 3 {
		t.Fatalf("DaysBetween = %d", got)
	}
	if got := DaysBetween(day(3), day(1)); got != 0 {
		t.Fatalf("reversed DaysBetween = %d", got)
	}
	if _, err := ParseDay("2024-13-01"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
