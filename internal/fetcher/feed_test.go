package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bankwatch/internal/panel"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

var (
	from = time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)
)

func TestFeedMissingBaseURL(t *testing.T) {
	f := NewFeed(FeedOptions{}, noopLogger())
	if _, err := f.FetchRange(context.Background(), from, to); err == nil {
		t.Fatal("missing base url should fail")
	}
}

func TestFeedFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rates" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("from") != "2024-05-01" || r.URL.Query().Get("to") != "2024-05-02" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{"date": "2024-05-01", "bank": "Galicia", "savings_yield": 74.1, "loan_rate": 94.2, "maintenance_fee": 18000, "promo_score": 50},
				{"date": "2024-05-02", "bank": "Galicia", "savings_yield": 74.3, "loan_rate": 94.3, "maintenance_fee": 18010, "promo_score": 0},
			},
		})
	}))
	defer srv.Close()

	f := NewFeed(FeedOptions{BaseURL: srv.URL + "/", Timeout: time.Second, UserAgent: "test"}, noopLogger())
	records, err := f.FetchRange(context.Background(), from, to)
	if err != nil {
		t.Fatalf("FetchRange error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !records[1].Date.Equal(to) || records[1].SavingsYield != 74.3 || records[1].PromoScore != 0 {
		t.Fatalf("unexpected record %+v", records[1])
	}
}

func TestFeedMissingMetric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{"date": "2024-05-01", "bank": "Galicia", "savings_yield": 74.1, "loan_rate": 94.2, "promo_score": 50},
			},
		})
	}))
	defer srv.Close()

	f := NewFeed(FeedOptions{BaseURL: srv.URL}, noopLogger())
	if _, err := f.FetchRange(context.Background(), from, to); !errors.Is(err, panel.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestFeedOutOfRangeValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{"date": "2024-05-01", "bank": "Galicia", "savings_yield": 74.1, "loan_rate": 94.2, "maintenance_fee": 18000, "promo_score": 140},
			},
		})
	}))
	defer srv.Close()

	f := NewFeed(FeedOptions{BaseURL: srv.URL}, noopLogger())
	if _, err := f.FetchRange(context.Background(), from, to); !errors.Is(err, panel.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestFeedHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "upstream down"})
	}))
	defer srv.Close()

	f := NewFeed(FeedOptions{BaseURL: srv.URL}, noopLogger())
	_, err := f.FetchRange(context.Background(), from, to)
	if err == nil {
		t.Fatal("HTTP 502 should fail")
	}
	if err.Error() != "feed error (502): upstream down" {
		t.Fatalf("unexpected error %q", err.Error())
	}
}
