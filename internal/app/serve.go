package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bankwatch/internal/api"
	"bankwatch/internal/fetcher"
	"bankwatch/internal/panel"
)

const shutdownTimeout = 8 * time.Second

// sourceLoader serves the configured panel window from an open source.
type sourceLoader struct {
	app    *App
	source fetcher.Source
}

func (l sourceLoader) LoadPanel(ctx context.Context) ([]panel.MetricRecord, error) {
	return l.app.fetchPanel(ctx, l.source)
}

// Serve runs the JSON API until SIGINT or SIGTERM.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := a.openSource(ctx)
	if err != nil {
		return err
	}
	if closeSource != nil {
		defer closeSource()
	}

	threshold := a.Config.Alerting.ThresholdPct
	server := api.NewServer(sourceLoader{app: a, source: source}, a.Config.View.WindowMonths, threshold, a.Logger)
	srv := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      server.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info().Str("addr", srv.Addr).Str("source", a.Config.Source.Kind).Msg("api listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
