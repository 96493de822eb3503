package fetcher

import (
	"context"
	"time"

	"bankwatch/internal/panel"
)

// Source supplies panel records for an inclusive day range.
type Source interface {
	FetchRange(ctx context.Context, from, to time.Time) ([]panel.MetricRecord, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, from, to time.Time) ([]panel.MetricRecord, error)

// FetchRange calls f.
func (f SourceFunc) FetchRange(ctx context.Context, from, to time.Time) ([]panel.MetricRecord, error) {
	return f(ctx, from, to)
}
