package resolver

import "github.com/okian/epochboard/pkg/logger"

// Option configures a Resolver.
type Option func(*Resolver)

// WithReaper sets the reaper told about committed rollovers.
func WithReaper(rp Reaper) Option {
	return func(r *Resolver) {
		r.reaper = rp
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLongIdlePeriods sets how many elapsed periods in one resolution count
// as a long idle gap worth a warning. Non-positive values keep the default.
func WithLongIdlePeriods(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.longIdlePeriods = n
		}
	}
}
