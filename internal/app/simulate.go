package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankwatch/internal/panel"
	"bankwatch/internal/scanner"
	"bankwatch/internal/service"
)

// SimulateAlert runs one monitoring pass for day against the configured
// source and delivers whatever alerts it raises, without persisting anything.
// A non-negative threshold overrides alerting.threshold_pct for the pass.
func (a *App) SimulateAlert(ctx context.Context, day time.Time, threshold float64) ([]scanner.Alert, error) {
	if !a.Config.Alerting.Enabled {
		return nil, errors.New("alerting is not enabled")
	}
	notifier := a.newNotifier()
	if notifier == nil {
		return nil, errors.New("no alert channel configured")
	}

	source, closeSource, err := a.openSource(ctx)
	if err != nil {
		return nil, err
	}
	if closeSource != nil {
		defer closeSource()
	}

	cfg := *a.Config
	cfg.Alerting.ThresholdPct = a.Config.ResolveThreshold(threshold)
	cfg.Scheduler.AdvisoryLockKey = 0

	monitor := service.New(&cfg, nil, source, nil, nil, notifier, a.Logger)
	alerts, err := monitor.Process(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", panel.FormatDay(day), err)
	}
	return alerts, nil
}
