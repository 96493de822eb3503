package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bankwatch/internal/alerting"
	"bankwatch/internal/config"
	"bankwatch/internal/fetcher"
	"bankwatch/internal/panel"
	"bankwatch/internal/storage"
)

type fakeStore struct {
	upserted []panel.MetricRecord
	source   string
	err      error
	locked   bool
	lockHeld bool
	unlocked bool
}

func (f *fakeStore) UpsertRecords(ctx context.Context, records []panel.MetricRecord, source string) error {
	f.upserted = append(f.upserted, records...)
	f.source = source
	return f.err
}

func (f *fakeStore) ListRecordsBetween(ctx context.Context, from, to time.Time) ([]storage.MetricRow, error) {
	return nil, nil
}

func (f *fakeStore) CountRecords(ctx context.Context) (int64, error) {
	return int64(len(f.upserted)), nil
}

func (f *fakeStore) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	if f.lockHeld {
		return nil, false, nil
	}
	f.locked = true
	return func() { f.unlocked = true }, true, nil
}

type fakeAlertStore struct {
	inserted []storage.AlertRecord
	prunedAt []time.Time
}

func (f *fakeAlertStore) InsertAlert(ctx context.Context, alert storage.AlertRecord) (storage.AlertRecord, error) {
	f.inserted = append(f.inserted, alert)
	return alert, nil
}

func (f *fakeAlertStore) ListRecentAlerts(ctx context.Context, limit int) ([]storage.AlertRecord, error) {
	return f.inserted, nil
}

func (f *fakeAlertStore) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	f.prunedAt = append(f.prunedAt, olderThan)
	return nil
}

type fakeNotifier struct {
	notes []alerting.Notification
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	f.notes = append(f.notes, note)
	return f.err
}

func day(n int) time.Time {
	return time.Date(2024, time.May, n, 0, 0, 0, 0, time.UTC)
}

func rec(bank string, d int, yield, promo float64) panel.MetricRecord {
	return panel.MetricRecord{Date: day(d), Bank: bank, SavingsYield: yield, LoanRate: 90, MaintenanceFee: 18000, PromoScore: promo}
}

func staticSource(records []panel.MetricRecord) fetcher.Source {
	return fetcher.SourceFunc(func(ctx context.Context, from, to time.Time) ([]panel.MetricRecord, error) {
		return panel.Filter(records, panel.FilterOptions{From: from, To: to}), nil
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load config: %v", err)
	}
	cfg.Alerting.Enabled = true
	cfg.Alerting.ThresholdPct = 3
	cfg.Alerting.Banks = []string{"A", "B"}
	return cfg
}

func TestProcessRaisesAlertsForDay(t *testing.T) {
	records := []panel.MetricRecord{
		rec("A", 1, 70, 50),
		rec("A", 2, 75, 50),
		rec("A", 3, 75, 60),
		rec("B", 2, 70, 50),
		rec("B", 3, 70, 50.5),
	}
	store := &fakeStore{}
	alerts := &fakeAlertStore{}
	notifier := &fakeNotifier{}

	m := New(testConfig(t), nil, staticSource(records), store, alerts, notifier, zerolog.Nop())
	got, err := m.Process(context.Background(), day(3).Add(10*time.Hour))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	if len(got) != 1 || got[0].Bank != "A" || got[0].Metric != panel.PromoScore || got[0].PercentChange != 20 {
		t.Fatalf("unexpected alerts %+v", got)
	}
	if len(store.upserted) != 4 || store.source != config.SourceSynthetic {
		t.Fatalf("expected the two-day window to be stored, got %d records from %q", len(store.upserted), store.source)
	}
	if !store.locked || !store.unlocked {
		t.Fatal("advisory lock should be taken and released")
	}
	if len(alerts.inserted) != 1 || alerts.inserted[0].Direction != "up" {
		t.Fatalf("unexpected persisted alerts %+v", alerts.inserted)
	}
	if len(notifier.notes) != 1 || !notifier.notes[0].Day.Equal(day(3)) || len(notifier.notes[0].Alerts) != 1 {
		t.Fatalf("unexpected notifications %+v", notifier.notes)
	}
}

func TestProcessQuietDaySkipsNotification(t *testing.T) {
	records := []panel.MetricRecord{rec("A", 1, 70, 50), rec("A", 2, 70.1, 50)}
	notifier := &fakeNotifier{}

	m := New(testConfig(t), nil, staticSource(records), nil, nil, notifier, zerolog.Nop())
	got, err := m.Process(context.Background(), day(2))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(got) != 0 || len(notifier.notes) != 0 {
		t.Fatalf("quiet day should not alert: %+v %+v", got, notifier.notes)
	}
}

func TestProcessToleratesSinkFailures(t *testing.T) {
	records := []panel.MetricRecord{rec("A", 1, 70, 50), rec("A", 2, 80, 50)}
	store := &fakeStore{err: errors.New("db down")}
	notifier := &fakeNotifier{err: errors.New("telegram down")}

	m := New(testConfig(t), nil, staticSource(records), store, nil, notifier, zerolog.Nop())
	got, err := m.Process(context.Background(), day(2))
	if err != nil {
		t.Fatalf("sink failures should not fail the day: %v", err)
	}
	if len(got) != 1 || len(notifier.notes) != 1 {
		t.Fatalf("expected one alert and one notification, got %d/%d", len(got), len(notifier.notes))
	}
}

func TestProcessPrunesAlertHistory(t *testing.T) {
	records := []panel.MetricRecord{rec("A", 1, 70, 50), rec("A", 2, 70, 50)}
	alerts := &fakeAlertStore{}

	cfg := testConfig(t)
	m := New(cfg, nil, staticSource(records), nil, alerts, nil, zerolog.Nop())
	if _, err := m.Process(context.Background(), day(2)); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(alerts.prunedAt) != 0 {
		t.Fatalf("retention 0 should keep history, pruned at %v", alerts.prunedAt)
	}

	cfg.Alerting.RetentionDays = 1
	m = New(cfg, nil, staticSource(records), nil, alerts, nil, zerolog.Nop())
	if _, err := m.Process(context.Background(), day(2)); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(alerts.prunedAt) != 1 || !alerts.prunedAt[0].Equal(day(1)) {
		t.Fatalf("expected prune before %v, got %v", day(1), alerts.prunedAt)
	}
}

func TestProcessFailsOnMalformedPanel(t *testing.T) {
	bad := rec("A", 2, 70, 50)
	bad.PromoScore = 180
	m := New(testConfig(t), nil, staticSource([]panel.MetricRecord{rec("A", 1, 70, 50), bad}), nil, nil, nil, zerolog.Nop())

	if _, err := m.Process(context.Background(), day(2)); !errors.Is(err, panel.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestProcessFetchError(t *testing.T) {
	src := fetcher.SourceFunc(func(ctx context.Context, from, to time.Time) ([]panel.MetricRecord, error) {
		return nil, errors.New("feed unavailable")
	})
	m := New(testConfig(t), nil, src, nil, nil, nil, zerolog.Nop())
	if _, err := m.Process(context.Background(), day(2)); err == nil {
		t.Fatal("fetch failure should be returned")
	}
}

func TestProcessSkipsWhenLockHeld(t *testing.T) {
	store := &fakeStore{lockHeld: true}
	src := fetcher.SourceFunc(func(ctx context.Context, from, to time.Time) ([]panel.MetricRecord, error) {
		t.Error("source should not be called without the lock")
		return nil, nil
	})
	m := New(testConfig(t), nil, src, store, nil, nil, zerolog.Nop())
	if err := m.ProcessDay(context.Background(), day(2)); err != nil {
		t.Fatalf("ProcessDay error: %v", err)
	}
}

func TestRunRequiresScheduler(t *testing.T) {
	m := New(testConfig(t), nil, staticSource(nil), nil, nil, nil, zerolog.Nop())
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("Run without scheduler should fail")
	}
}
