package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"bankwatch/internal/config"
	"bankwatch/internal/panel"
	"bankwatch/internal/service"
	"bankwatch/internal/storage"
)

// Backfill runs the daily monitoring pass over every day in [From, To].
// With DryRun nothing is written to the database and no notifications are
// sent; the alerts that would have been raised are still counted.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	start, end := panel.Day(opts.From), panel.Day(opts.To)
	if start.After(end) {
		return fmt.Errorf("%w: backfill range is empty, check --from/--to", panel.ErrInvalidArgument)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var store *storage.Store
	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: nothing will be written or sent")
	}
	if !opts.DryRun || a.Config.Source.Kind == config.SourceDatabase {
		var closeStore func()
		var err error
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("backfill: %w", storage.ErrNotConfigured)
		}
		defer closeStore()
	}
	source, err := a.newSource(store)
	if err != nil {
		return err
	}

	// The lock is held once for the whole run so that concurrent workers do
	// not contend for it.
	cfg := *a.Config
	cfg.Scheduler.AdvisoryLockKey = 0
	var monitor *service.Monitor
	if opts.DryRun {
		monitor = service.New(&cfg, nil, source, nil, nil, nil, a.Logger)
	} else {
		if key := a.Config.Scheduler.AdvisoryLockKey; key != 0 {
			unlock, acquired, err := store.TryAdvisoryLock(ctx, key)
			if err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !acquired {
				return errors.New("backfill: advisory lock held by another instance")
			}
			defer unlock()
		}
		monitor = service.New(&cfg, nil, source, store, store, a.newNotifier(), a.Logger)
	}

	days := make([]time.Time, 0, panel.DaysBetween(start, end))
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}

	var processed, failed, raised atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, day := range days {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			alerts, err := monitor.Process(gctx, day)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				failed.Add(1)
				a.Logger.Error().Err(err).Str("day", panel.FormatDay(day)).Msg("backfill day failed")
				return nil
			}
			processed.Add(1)
			raised.Add(int64(len(alerts)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.Logger.Info().
		Int64("processed", processed.Load()).
		Int64("failed", failed.Load()).
		Int64("alerts", raised.Load()).
		Int("workers", workers).
		Bool("dry_run", opts.DryRun).
		Msg("backfill finished")
	if failed.Load() > 0 {
		return errors.New("some days failed to backfill, check the logs")
	}
	return nil
}
