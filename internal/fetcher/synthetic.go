package fetcher

import (
	"context"
	"fmt"
	"time"

	"bankwatch/internal/generator"
	"bankwatch/internal/panel"
)

// Synthetic serves generated panels whose walks all start at one origin day,
// so a given day has the same values whatever range it is requested in.
type Synthetic struct {
	cache  *generator.Cache
	seed   int64
	origin time.Time
}

// NewSynthetic builds a synthetic source whose first generated day is origin.
func NewSynthetic(cache *generator.Cache, seed int64, origin time.Time) *Synthetic {
	return &Synthetic{cache: cache, seed: seed, origin: panel.Day(origin)}
}

// FetchRange generates the panel from the origin through to and returns its
// [from, to] slice. from is clamped to the origin; a range ending before the
// origin is rejected.
func (s *Synthetic) FetchRange(ctx context.Context, from, to time.Time) ([]panel.MetricRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from, to = panel.Day(from), panel.Day(to)
	if from.After(to) {
		return nil, fmt.Errorf("%w: range %s..%s is empty", panel.ErrInvalidArgument, panel.FormatDay(from), panel.FormatDay(to))
	}
	if to.Before(s.origin) {
		return nil, fmt.Errorf("%w: %s is before the first generated day %s", panel.ErrInvalidArgument, panel.FormatDay(to), panel.FormatDay(s.origin))
	}
	if from.Before(s.origin) {
		from = s.origin
	}

	records, err := s.cache.Generate(s.seed, panel.DaysBetween(s.origin, to), to)
	if err != nil {
		return nil, err
	}
	return panel.Filter(records, panel.FilterOptions{From: from, To: to}), nil
}

var _ Source = (*Synthetic)(nil)
