package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunImmediatelyThenTicks(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Options{Interval: 20 * time.Millisecond, AlignToStart: true, RunImmediately: true}, zerolog.Nop())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
			if !bucket.Equal(bucket.Truncate(20 * time.Millisecond)) {
				t.Errorf("bucket %v not aligned", bucket)
			}
			if calls.Add(1) >= 3 {
				cancel()
			}
			return errors.New("tick errors are logged, not fatal")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", calls.Load())
	}
}

func TestStartupDelayHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	s := New(Options{Interval: time.Hour, StartupDelay: time.Minute}, zerolog.Nop())
	err := s.Run(ctx, func(context.Context, time.Time) error {
		t.Error("tick should not run before the startup delay")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNextTickAlignment(t *testing.T) {
	s := New(Options{Interval: 24 * time.Hour, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2024, time.May, 2, 13, 0, 0, 0, time.UTC)

	if got := s.nextTick(now); !got.Equal(time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next tick %v", got)
	}
	if got := s.bucketStart(now); !got.Equal(time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bucket start %v", got)
	}
}

func TestOffsetShiftsBoundary(t *testing.T) {
	s := New(Options{Interval: 24 * time.Hour, AlignToStart: true, Offset: 18 * time.Hour}, zerolog.Nop())

	cases := []struct {
		now        time.Time
		wantNext   time.Time
		wantBucket time.Time
	}{
		{
			now:        time.Date(2024, time.May, 2, 13, 0, 0, 0, time.UTC),
			wantNext:   time.Date(2024, time.May, 2, 18, 0, 0, 0, time.UTC),
			wantBucket: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			now:        time.Date(2024, time.May, 2, 18, 0, 0, 0, time.UTC),
			wantNext:   time.Date(2024, time.May, 3, 18, 0, 0, 0, time.UTC),
			wantBucket: time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		if got := s.nextTick(tc.now); !got.Equal(tc.wantNext) {
			t.Errorf("nextTick(%v) = %v, want %v", tc.now, got, tc.wantNext)
		}
		if got := s.bucketStart(tc.now); !got.Equal(tc.wantBucket) {
			t.Errorf("bucketStart(%v) = %v, want %v", tc.now, got, tc.wantBucket)
		}
	}
}
