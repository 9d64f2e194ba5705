package service

import (
	"time"

	"github.com/coder/quartz"

	"github.com/okian/epochboard/internal/adapters/repository"
	"github.com/okian/epochboard/internal/domain/retention"
	"github.com/okian/epochboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the epoch and score store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithClock sets the clock used as "now" for every resolution.
func WithClock(clock quartz.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReapWorkers sets the number of reap worker goroutines.
func WithReapWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.reapWorkers = count
		}
	}
}

// WithReapQueueSize bounds the reap job queue.
func WithReapQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.reapQueueSize = size
		}
	}
}

// WithReapTimeout bounds each reap job.
func WithReapTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.reapTimeout = d
		}
	}
}

// WithRetention sets the retention windows.
func WithRetention(w retention.Windows) Option {
	return func(s *Service) {
		s.windows = w
	}
}

// WithLongIdlePeriods sets the idle gap that triggers a warning.
func WithLongIdlePeriods(n int64) Option {
	return func(s *Service) {
		s.longIdlePeriods = n
	}
}

// WithMaxTopLimit caps TopN.
func WithMaxTopLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTopLimit = n
		}
	}
}

// WithInlineReaping runs retention deletes on the resolving goroutine
// instead of the worker pool.
func WithInlineReaping() Option {
	return func(s *Service) {
		s.inlineReaping = true
	}
}
