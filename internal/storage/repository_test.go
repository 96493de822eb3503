package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"bankwatch/internal/config"
	"bankwatch/internal/panel"
	"bankwatch/internal/scanner"
)

func TestUnconfiguredStore(t *testing.T) {
	var store *Store
	ctx := context.Background()

	if err := store.UpsertRecords(ctx, []panel.MetricRecord{{Bank: "A"}}, "test"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("UpsertRecords: expected ErrNotConfigured, got %v", err)
	}
	if _, err := store.FetchRange(ctx, time.Now(), time.Now()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("FetchRange: expected ErrNotConfigured, got %v", err)
	}
	if _, _, err := store.TryAdvisoryLock(ctx, 1); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("TryAdvisoryLock: expected ErrNotConfigured, got %v", err)
	}
	store.Close()
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{}); err == nil {
		t.Fatal("Open without DSN should fail")
	}
	if _, err := Open(context.Background(), config.DatabaseConfig{DSN: "::not a dsn::"}); err == nil {
		t.Fatal("Open with an invalid DSN should fail")
	}
}

func TestMetricArgsKeepDecimalText(t *testing.T) {
	rec := panel.MetricRecord{
		Date:           time.Date(2024, time.May, 2, 17, 30, 0, 0, time.UTC),
		Bank:           "Galicia",
		SavingsYield:   74.12,
		LoanRate:       94.1,
		MaintenanceFee: 18040,
		PromoScore:     50.3,
	}
	args := metricArgs(NewMetricRow(rec, "synthetic"))

	if args[0] != "Galicia" {
		t.Fatalf("bank mismatch: %v", args[0])
	}
	if d, ok := args[1].(time.Time); !ok || !d.Equal(time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day should be truncated: %v", args[1])
	}
	if args[2] != "74.12" || args[3] != "94.1" || args[4] != "18040" || args[5] != "50.3" {
		t.Fatalf("unexpected numeric args %v", args[2:6])
	}
	if back := NewMetricRow(rec, "synthetic").Record(); back.SavingsYield != 74.12 || !back.Date.Equal(panel.Day(rec.Date)) {
		t.Fatalf("row did not convert back: %+v", back)
	}
}

func TestNewAlertRecord(t *testing.T) {
	alert := scanner.Alert{Date: time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC), Bank: "BBVA", Metric: panel.PromoScore, PercentChange: -4.25, Value: 47.1}
	rec := NewAlertRecord(alert, 3, []string{"telegram"})

	if rec.Metric != "promo_score" || rec.Direction != "down" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.PercentChange.String() != "-4.25" || rec.ThresholdPct.String() != "3" {
		t.Fatalf("unexpected decimals %s %s", rec.PercentChange, rec.ThresholdPct)
	}
}
