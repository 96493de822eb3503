package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"bankwatch/internal/alerting"
	"bankwatch/internal/config"
	"bankwatch/internal/fetcher"
	"bankwatch/internal/generator"
	"bankwatch/internal/panel"
	"bankwatch/internal/scheduler"
	"bankwatch/internal/service"
	"bankwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives tables and other command output.
	Out io.Writer

	cache *generator.Cache
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
	}
}

// newSource builds the configured panel source. store backs the database
// kind and may be nil otherwise.
func (a *App) newSource(store *storage.Store) (fetcher.Source, error) {
	switch a.Config.Source.Kind {
	case config.SourceFeed:
		feed := a.Config.Source.Feed
		return fetcher.NewFeed(fetcher.FeedOptions{
			BaseURL:   feed.BaseURL,
			Timeout:   feed.RequestTimeout,
			UserAgent: feed.UserAgent,
		}, a.Logger), nil
	case config.SourceDatabase:
		if store == nil {
			return nil, storage.ErrNotConfigured
		}
		return store, nil
	default:
		if a.cache == nil {
			a.cache = generator.NewCache(generator.New(a.Config.GeneratorOptions()), a.Config.Generator.CacheSize)
		}
		origin, _ := a.panelWindow()
		return fetcher.NewSynthetic(a.cache, a.Config.Generator.Seed, origin), nil
	}
}

// openSource opens the store only when the source needs it. The returned
// closer may be nil.
func (a *App) openSource(ctx context.Context) (fetcher.Source, func(), error) {
	var store *storage.Store
	var closeStore func()
	if a.Config.Source.Kind == config.SourceDatabase {
		var err error
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
	}
	source, err := a.newSource(store)
	if err != nil {
		if closeStore != nil {
			closeStore()
		}
		return nil, nil, err
	}
	return source, closeStore, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// panelWindow is the range loaded for table, export and API views: the
// configured number of days ending at the configured end date.
func (a *App) panelWindow() (time.Time, time.Time) {
	end := a.Config.ResolveEndDate()
	return end.AddDate(0, 0, -(a.Config.Generator.Days - 1)), end
}

// fetchPanel loads the full panel window from source.
func (a *App) fetchPanel(ctx context.Context, source fetcher.Source) ([]panel.MetricRecord, error) {
	from, to := a.panelWindow()
	records, err := source.FetchRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load panel: %w", err)
	}
	a.Logger.Debug().
		Str("source", a.Config.Source.Kind).
		Str("from", panel.FormatDay(from)).
		Str("to", panel.FormatDay(to)).
		Int("records", len(records)).
		Msg("panel loaded")
	return records, nil
}

// loadPanel opens the configured source, fetches the panel window and
// releases the source.
func (a *App) loadPanel(ctx context.Context) ([]panel.MetricRecord, error) {
	source, closeSource, err := a.openSource(ctx)
	if err != nil {
		return nil, err
	}
	if closeSource != nil {
		defer closeSource()
	}
	return a.fetchPanel(ctx, source)
}

// newMonitor wires a Monitor over source with whatever persistence and
// notification channels are available.
func (a *App) newMonitor(sched *scheduler.Scheduler, source fetcher.Source, store *storage.Store, notifier alerting.Notifier) *service.Monitor {
	var metricStore storage.MetricStore
	var alertStore storage.AlertStore
	if store != nil {
		metricStore = store
		alertStore = store
	}
	return service.New(a.Config, sched, source, metricStore, alertStore, notifier, a.Logger)
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	source, err := a.newSource(store)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		AlignToStart:   a.Config.Scheduler.AlignToBucket,
		Offset:         a.Config.Scheduler.Offset,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: true,
	}, a.Logger)

	monitor := a.newMonitor(sched, source, store, a.newNotifier())

	a.Logger.Info().Str("source", a.Config.Source.Kind).Msg("starting monitoring service")
	err = monitor.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ViewOptions select the dashboard view; zero values fall back to defaults.
type ViewOptions struct {
	From  *time.Time
	To    *time.Time
	Banks []string
	// Threshold overrides alerting.threshold_pct when non-negative.
	Threshold float64
}

// ShowOptions configure the show command.
type ShowOptions struct {
	ViewOptions
}

// ScanOptions configure the scan command.
type ScanOptions struct {
	ViewOptions
	// Day restricts output to alerts raised on one day.
	Day *time.Time
}

// ExportOptions hold parameters for exporting the panel.
type ExportOptions struct {
	ViewOptions
	Metric        panel.Metric
	CSVPath       string
	AlertsCSVPath string
	PNGPath       string
	BarPNGPath    string
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From    time.Time
	To      time.Time
	DryRun  bool
	Workers int
}
