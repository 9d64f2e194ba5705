package retention

import (
	"time"

	"github.com/okian/epochboard/internal/domain/dedupe"
	"github.com/okian/epochboard/pkg/logger"
)

// Option configures a Reaper.
type Option func(*Reaper)

// WithWindows replaces the retention windows. Non-positive entries keep the
// defaults.
func WithWindows(w Windows) Option {
	return func(r *Reaper) {
		if w.Daily > 0 {
			r.windows.Daily = w.Daily
		}
		if w.Weekly > 0 {
			r.windows.Weekly = w.Weekly
		}
		if w.Monthly > 0 {
			r.windows.Monthly = w.Monthly
		}
	}
}

// WithQueue makes Reap hand jobs to q instead of running them inline.
func WithQueue(q Enqueuer) Option {
	return func(r *Reaper) {
		r.queue = q
	}
}

// WithDeduper replaces the in-flight key set.
func WithDeduper(d dedupe.Deduper) Option {
	return func(r *Reaper) {
		if d != nil {
			r.seen = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reaper) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the function used to stamp jobs.
func WithClock(now func() time.Time) Option {
	return func(r *Reaper) {
		if now != nil {
			r.now = now
		}
	}
}
