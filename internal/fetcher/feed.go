package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bankwatch/internal/panel"
)

const feedRatesPath = "/rates"

// FeedOptions parameterise the external rates feed.
type FeedOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Feed fetches published bank rates from an HTTP JSON feed.
type Feed struct {
	opts    FeedOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewFeed constructs a feed fetcher.
func NewFeed(opts FeedOptions, logger zerolog.Logger) *Feed {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Feed{
		opts:    opts,
		logger:  logger.With().Str("component", "feed_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchRange requests {base}/rates?from=..&to=.. and converts the response.
// Entries missing a metric fail the whole fetch with panel.ErrMalformedRecord.
func (f *Feed) FetchRange(ctx context.Context, from, to time.Time) ([]panel.MetricRecord, error) {
	if f.baseURL == "" {
		return nil, fmt.Errorf("feed base url not configured")
	}

	query := url.Values{}
	query.Set("from", panel.FormatDay(from))
	query.Set("to", panel.FormatDay(to))
	endpoint := f.baseURL + feedRatesPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "bankwatch/1.0")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	var body feedResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: decode feed response: %v", panel.ErrMalformedRecord, err)
	}

	records := make([]panel.MetricRecord, 0, len(body.Records))
	for i, entry := range body.Records {
		rec, err := entry.record()
		if err != nil {
			return nil, fmt.Errorf("feed entry %d: %w", i, err)
		}
		records = append(records, rec)
	}

	f.logger.Debug().Int("records", len(records)).
		Str("from", panel.FormatDay(from)).
		Str("to", panel.FormatDay(to)).
		Msg("feed fetched")
	return records, nil
}

type feedResponse struct {
	Records []feedEntry `json:"records"`
}

type feedEntry struct {
	Date           string   `json:"date"`
	Bank           string   `json:"bank"`
	SavingsYield   *float64 `json:"savings_yield"`
	LoanRate       *float64 `json:"loan_rate"`
	MaintenanceFee *float64 `json:"maintenance_fee"`
	PromoScore     *float64 `json:"promo_score"`
}

func (e feedEntry) record() (panel.MetricRecord, error) {
	day, err := time.Parse(panel.DayLayout, e.Date)
	if err != nil {
		return panel.MetricRecord{}, fmt.Errorf("%w: invalid date %q", panel.ErrMalformedRecord, e.Date)
	}
	fields := []struct {
		name  string
		value *float64
	}{
		{"savings_yield", e.SavingsYield},
		{"loan_rate", e.LoanRate},
		{"maintenance_fee", e.MaintenanceFee},
		{"promo_score", e.PromoScore},
	}
	for _, field := range fields {
		if field.value == nil {
			return panel.MetricRecord{}, fmt.Errorf("%w: bank %s on %s: missing %s", panel.ErrMalformedRecord, e.Bank, e.Date, field.name)
		}
	}

	rec := panel.MetricRecord{
		Date:           day,
		Bank:           e.Bank,
		SavingsYield:   *e.SavingsYield,
		LoanRate:       *e.LoanRate,
		MaintenanceFee: *e.MaintenanceFee,
		PromoScore:     *e.PromoScore,
	}
	if err := rec.Validate(); err != nil {
		return panel.MetricRecord{}, err
	}
	return rec, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("feed error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("feed error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("feed error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("feed error (%d)", status)
}

var _ Source = (*Feed)(nil)
