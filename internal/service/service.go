package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bankwatch/internal/alerting"
	"bankwatch/internal/config"
	"bankwatch/internal/fetcher"
	"bankwatch/internal/panel"
	"bankwatch/internal/scanner"
	"bankwatch/internal/scheduler"
	"bankwatch/internal/storage"
)

// Monitor fetches each day's panel, persists it, and raises variation alerts.
type Monitor struct {
	scheduler  *scheduler.Scheduler
	source     fetcher.Source
	store      storage.MetricStore
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	sourceName string
	threshold  float64
	banks      []string
	lookback   int
	retention  int
	channels   []string
	alertsOn   bool
	locker     storage.AdvisoryLocker
	lockKey    int64
}

// New constructs the monitor. store, alertStore and notifier may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, source fetcher.Source, store storage.MetricStore, alertStore storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Monitor {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Monitor{
		scheduler:  sched,
		source:     source,
		store:      store,
		alertStore: alertStore,
		notifier:   notifier,
		logger:     logger.With().Str("component", "monitor").Logger(),
		sourceName: cfg.Source.Kind,
		threshold:  cfg.Alerting.ThresholdPct,
		banks:      cfg.AlertBanks(),
		lookback:   cfg.Alerting.LookbackDays,
		retention:  cfg.Alerting.RetentionDays,
		channels:   cfg.Alerting.Channels,
		alertsOn:   cfg.Alerting.Enabled,
		locker:     locker,
		lockKey:    cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the aligned monitoring loop.
func (m *Monitor) Run(ctx context.Context) error {
	if m.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return m.scheduler.Run(ctx, m.ProcessDay)
}

// ProcessDay runs one monitoring pass for day.
func (m *Monitor) ProcessDay(ctx context.Context, day time.Time) error {
	_, err := m.Process(ctx, day)
	return err
}

// Process runs one monitoring pass for day and returns the alerts dated day.
// Persistence and delivery failures are logged; fetch and scan failures are
// returned.
func (m *Monitor) Process(ctx context.Context, day time.Time) ([]scanner.Alert, error) {
	unlock, proceed, err := m.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	if !proceed {
		m.logger.Debug().Time("day", day).Msg("skip day because advisory lock held elsewhere")
		return nil, nil
	}
	if unlock != nil {
		defer unlock()
	}

	return m.processDay(ctx, panel.Day(day))
}

func (m *Monitor) processDay(ctx context.Context, day time.Time) ([]scanner.Alert, error) {
	from := day.AddDate(0, 0, -m.lookback)
	records, err := m.source.FetchRange(ctx, from, day)
	if err != nil {
		return nil, fmt.Errorf("fetch panel: %w", err)
	}

	if m.store != nil {
		if err := m.store.UpsertRecords(ctx, records, m.sourceName); err != nil {
			m.logger.Error().Err(err).Str("day", panel.FormatDay(day)).Msg("failed to upsert records")
		}
	}

	m.pruneAlerts(ctx, day)

	all, err := scanner.Scan(records, m.banks, m.threshold)
	if err != nil {
		return nil, fmt.Errorf("scan panel: %w", err)
	}
	alerts := scanner.OnDay(all, day)

	m.logger.Info().Str("day", panel.FormatDay(day)).
		Int("records", len(records)).
		Int("alerts", len(alerts)).
		Float64("threshold_pct", m.threshold).
		Msg("day processed")

	if len(alerts) == 0 {
		return alerts, nil
	}

	if m.alertStore != nil {
		for _, a := range alerts {
			if _, err := m.alertStore.InsertAlert(ctx, storage.NewAlertRecord(a, m.threshold, m.channels)); err != nil {
				m.logger.Error().Err(err).Str("bank", a.Bank).Str("metric", string(a.Metric)).Msg("failed to persist alert record")
			}
		}
	}

	if m.alertsOn && m.notifier != nil {
		note := alerting.Notification{
			Day:          day,
			Alerts:       alerts,
			ThresholdPct: m.threshold,
			Channels:     m.channels,
		}
		if err := m.notifier.Notify(ctx, note); err != nil {
			m.logger.Error().Err(err).Str("day", panel.FormatDay(day)).Msg("failed to dispatch alert")
		}
	}

	return alerts, nil
}

func (m *Monitor) pruneAlerts(ctx context.Context, day time.Time) {
	if m.retention <= 0 || m.alertStore == nil {
		return
	}
	cutoff := day.AddDate(0, 0, -m.retention)
	if err := m.alertStore.DeleteAlertsBefore(ctx, cutoff); err != nil {
		m.logger.Error().Err(err).Str("cutoff", panel.FormatDay(cutoff)).Msg("failed to prune alert history")
	}
}

func (m *Monitor) acquireLock(ctx context.Context) (func(), bool, error) {
	if m.lockKey == 0 || m.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := m.locker.TryAdvisoryLock(ctx, m.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
