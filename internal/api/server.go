// Package api serves the panel, pivots and variation alerts as JSON for the
// dashboard front end.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"bankwatch/internal/panel"
	"bankwatch/internal/report"
	"bankwatch/internal/version"
)

// PanelLoader returns the full panel the API serves views of.
type PanelLoader interface {
	LoadPanel(ctx context.Context) ([]panel.MetricRecord, error)
}

// LoaderFunc adapts a function to PanelLoader.
type LoaderFunc func(ctx context.Context) ([]panel.MetricRecord, error)

// LoadPanel calls f.
func (f LoaderFunc) LoadPanel(ctx context.Context) ([]panel.MetricRecord, error) {
	return f(ctx)
}

// Server holds handler dependencies.
type Server struct {
	loader       PanelLoader
	windowMonths int
	threshold    float64
	logger       zerolog.Logger
}

// NewServer builds the API. threshold is used when a request omits one.
func NewServer(loader PanelLoader, windowMonths int, threshold float64, logger zerolog.Logger) *Server {
	return &Server{
		loader:       loader,
		windowMonths: windowMonths,
		threshold:    threshold,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// Router mounts every endpoint.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	r.Get("/banks", s.banks)
	r.Get("/panel", s.panel)
	r.Get("/pivot", s.pivot)
	r.Get("/dashboard", s.dashboard)
	r.Get("/kpis", s.kpis)
	r.Get("/ranking", s.ranking)
	r.Get("/alerts", s.alerts)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: version.Get()})
}

func (s *Server) banks(w http.ResponseWriter, r *http.Request) {
	records, err := s.loader.LoadPanel(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	first, last, _ := panel.DateRange(records)
	writeJSON(w, http.StatusOK, map[string]any{
		"banks": panel.Banks(records),
		"from":  dayOrEmpty(first),
		"to":    dayOrEmpty(last),
	})
}

func (s *Server) panel(w http.ResponseWriter, r *http.Request) {
	records, view, err := s.resolve(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	filtered := panel.Filter(records, panel.FilterOptions{Banks: view.Banks, From: view.From, To: view.To})
	writeJSON(w, http.StatusOK, recordsResponse{View: toViewDTO(view), Records: toRecordDTOs(filtered)})
}

func (s *Server) pivot(w http.ResponseWriter, r *http.Request) {
	metric, err := panel.ParseMetric(r.URL.Query().Get("metric"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	records, view, err := s.resolve(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	filtered := panel.Filter(records, panel.FilterOptions{Banks: view.Banks, From: view.From, To: view.To})
	writeJSON(w, http.StatusOK, toPivotDTO(panel.Pivot(filtered, metric)))
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.build(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		View:    toViewDTO(d.View),
		KPIs:    toRecordDTOs(d.KPIs),
		Ranking: toRecordDTOs(d.Ranking),
		Alerts:  toAlertDTOs(d.Alerts),
	})
}

func (s *Server) kpis(w http.ResponseWriter, r *http.Request) {
	d, err := s.build(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{View: toViewDTO(d.View), Records: toRecordDTOs(d.KPIs)})
}

func (s *Server) ranking(w http.ResponseWriter, r *http.Request) {
	d, err := s.build(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{View: toViewDTO(d.View), Records: toRecordDTOs(d.Ranking)})
}

func (s *Server) alerts(w http.ResponseWriter, r *http.Request) {
	d, err := s.build(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alertsResponse{View: toViewDTO(d.View), Alerts: toAlertDTOs(d.Alerts)})
}

func (s *Server) build(r *http.Request) (report.Dashboard, error) {
	records, view, err := s.resolve(r)
	if err != nil {
		return report.Dashboard{}, err
	}
	return report.Build(records, view)
}

func (s *Server) resolve(r *http.Request) ([]panel.MetricRecord, report.View, error) {
	view, err := parseView(r.URL.Query(), s.threshold)
	if err != nil {
		return nil, report.View{}, err
	}
	records, err := s.loader.LoadPanel(r.Context())
	if err != nil {
		return nil, report.View{}, err
	}
	view, err = view.Resolve(records, s.windowMonths)
	if err != nil {
		return nil, report.View{}, err
	}
	return records, view, nil
}

type healthResponse struct {
	Status string       `json:"status"`
	Build  version.Info `json:"build"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, panel.ErrInvalidArgument):
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("invalid request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_argument", Message: err.Error()})
	case errors.Is(err, panel.ErrMalformedRecord):
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("malformed panel")
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: "malformed_record", Message: err.Error()})
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: "an error occurred"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func dayOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return panel.FormatDay(t)
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
