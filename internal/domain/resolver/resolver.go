// Package resolver decides which version of a leaderboard is active at a
// given instant and advances the stored epoch when periods have elapsed.
//
// Resolution is reactive. The first caller to observe an elapsed period
// commits the rollover with a compare-and-swap on the stored version; every
// concurrent caller that loses the swap adopts the winner's state, so all of
// them return the same tuple and exactly one commit happens per rollover.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/okian/epochboard/internal/domain/epoch"
	"github.com/okian/epochboard/internal/domain/period"
	"github.com/okian/epochboard/pkg/logger"
	"github.com/okian/epochboard/pkg/metrics"
)

const defaultLongIdlePeriods = 365

// Store is the epoch persistence the resolver needs.
type Store interface {
	Epoch(ctx context.Context, leaderboardID string) (epoch.State, error)
	// CompareAndSwap sets the version and period start only if the stored
	// version still equals expected. It reports whether the write happened.
	CompareAndSwap(ctx context.Context, leaderboardID string, expected, next int64, periodStart time.Time) (bool, error)
}

// Reaper is told about every committed rollover. It must not block.
type Reaper interface {
	Reap(ctx context.Context, leaderboardID string, newVersion int64, cadence epoch.Cadence)
}

// OutcomeKind tags the result of a rollover commit.
type OutcomeKind int

const (
	// Won means this caller's swap advanced the epoch.
	Won OutcomeKind = iota + 1
	// LostToConcurrent means another caller advanced the epoch first.
	LostToConcurrent
)

func (k OutcomeKind) String() string {
	switch k {
	case Won:
		return "won"
	case LostToConcurrent:
		return "lost_to_concurrent"
	default:
		return "unknown"
	}
}

// CommitOutcome is the tagged result of a rollover commit. Current holds the
// state after the commit: the proposed state for Won and the freshly read
// winner's state for LostToConcurrent.
type CommitOutcome struct {
	Kind    OutcomeKind
	Current epoch.State
}

// Resolver resolves epoch state against the current time.
type Resolver struct {
	store           Store
	reaper          Reaper
	logger          logger.Logger
	longIdlePeriods int64
}

// New returns a Resolver reading and committing through store.
func New(store Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:           store,
		logger:          logger.Nop(),
		longIdlePeriods: defaultLongIdlePeriods,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the version active at now for leaderboardID, advancing the
// stored epoch if one or more periods have elapsed since it was last resolved.
func (r *Resolver) Resolve(ctx context.Context, leaderboardID string, now time.Time) (epoch.Resolved, error) {
	start := time.Now()
	st, err := r.store.Epoch(ctx, leaderboardID)
	if err != nil {
		metrics.RecordResolution(metrics.OutcomeError, sinceMs(start))
		return epoch.Resolved{}, storeErr("resolver.read", err)
	}

	res, outcome, err := r.resolve(ctx, st, now)
	if err != nil {
		metrics.RecordResolution(metrics.OutcomeError, sinceMs(start))
		return epoch.Resolved{}, err
	}
	metrics.RecordResolution(outcome, sinceMs(start))
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, st epoch.State, now time.Time) (epoch.Resolved, string, error) {
	if !st.Cadence.Resets() {
		return epoch.Static(), metrics.OutcomeStatic, nil
	}
	if st.CurrentPeriodStart == nil {
		return epoch.Resolved{}, "", epoch.WrapKind("resolver.resolve", epoch.ErrInvalidCadence, errMissingStart)
	}
	now = now.UTC()

	boundary, err := period.NextReset(st.Cadence, st.ResetHour, *st.CurrentPeriodStart)
	if err != nil {
		return epoch.Resolved{}, "", err
	}
	if now.Before(boundary) {
		return resolvedFrom(st, boundary), metrics.OutcomeCurrent, nil
	}

	n, err := period.Elapsed(st.Cadence, st.ResetHour, *st.CurrentPeriodStart, now)
	if err != nil {
		return epoch.Resolved{}, "", err
	}
	newStart, err := period.Start(st.Cadence, st.ResetHour, now)
	if err != nil {
		return epoch.Resolved{}, "", err
	}
	if n > r.longIdlePeriods {
		metrics.RecordLongIdleGap()
		r.logger.Warn(ctx, "leaderboard idle for many periods",
			logger.String("leaderboard_id", st.LeaderboardID),
			logger.String("cadence", string(st.Cadence)),
			logger.Int64("periods", n),
		)
	}

	outcome, err := r.commit(ctx, st, st.CurrentVersion+n, newStart)
	if err != nil {
		return epoch.Resolved{}, "", err
	}

	cur := outcome.Current
	next, err := period.NextReset(cur.Cadence, cur.ResetHour, *cur.CurrentPeriodStart)
	if err != nil {
		return epoch.Resolved{}, "", err
	}
	if outcome.Kind == LostToConcurrent {
		return resolvedFrom(cur, next), metrics.OutcomeLost, nil
	}

	metrics.RecordRollover(n)
	r.logger.Info(ctx, "leaderboard rolled over",
		logger.String("leaderboard_id", st.LeaderboardID),
		logger.Int64("from_version", st.CurrentVersion),
		logger.Int64("version", cur.CurrentVersion),
		logger.Time("period_start", newStart),
	)
	if r.reaper != nil {
		r.reaper.Reap(ctx, st.LeaderboardID, cur.CurrentVersion, cur.Cadence)
	}
	return resolvedFrom(cur, next), metrics.OutcomeWon, nil
}

// commit tries to advance st to version next. Losing the swap is an outcome,
// not an error; only store failures are returned as errors.
func (r *Resolver) commit(ctx context.Context, st epoch.State, next int64, periodStart time.Time) (CommitOutcome, error) {
	ok, err := r.store.CompareAndSwap(ctx, st.LeaderboardID, st.CurrentVersion, next, periodStart)
	if err != nil {
		return CommitOutcome{}, storeErr("resolver.commit", err)
	}
	if ok {
		won := st
		won.CurrentVersion = next
		won.CurrentPeriodStart = epoch.TimePtr(periodStart)
		return CommitOutcome{Kind: Won, Current: won}, nil
	}

	metrics.RecordCommitConflict()
	fresh, err := r.store.Epoch(ctx, st.LeaderboardID)
	if err != nil {
		return CommitOutcome{}, storeErr("resolver.reread", err)
	}
	if fresh.CurrentPeriodStart == nil {
		return CommitOutcome{}, epoch.WrapKind("resolver.reread", epoch.ErrInvalidCadence, errMissingStart)
	}
	r.logger.Debug(ctx, "rollover lost to concurrent commit",
		logger.String("leaderboard_id", st.LeaderboardID),
		logger.Int64("expected", st.CurrentVersion),
		logger.Int64("version", fresh.CurrentVersion),
	)
	return CommitOutcome{Kind: LostToConcurrent, Current: fresh}, nil
}

// StartForVersion returns the period start and next reset of a historical
// version. A leaderboard that never resets only has version 1, which has no
// period start.
func (r *Resolver) StartForVersion(ctx context.Context, leaderboardID string, version int64) (epoch.Resolved, error) {
	st, err := r.store.Epoch(ctx, leaderboardID)
	if err != nil {
		return epoch.Resolved{}, storeErr("resolver.read", err)
	}
	if !st.Cadence.Resets() {
		if version != epoch.FirstVersion {
			return epoch.Resolved{}, epoch.NewKind("resolver.start_for_version", epoch.ErrInvalidVersionRange)
		}
		return epoch.Static(), nil
	}

	start, err := period.StartForVersion(st, version)
	if err != nil {
		return epoch.Resolved{}, err
	}
	next, err := period.NextReset(st.Cadence, st.ResetHour, start)
	if err != nil {
		return epoch.Resolved{}, err
	}
	return epoch.Resolved{Version: version, PeriodStart: epoch.TimePtr(start), NextReset: epoch.TimePtr(next)}, nil
}

func resolvedFrom(st epoch.State, next time.Time) epoch.Resolved {
	return epoch.Resolved{
		Version:     st.CurrentVersion,
		PeriodStart: epoch.TimePtr(*st.CurrentPeriodStart),
		NextReset:   epoch.TimePtr(next),
	}
}

// storeErr keeps kinds the store already attached and classifies anything
// else as the store being unavailable.
func storeErr(op string, err error) error {
	if errors.Is(err, epoch.ErrNotFound) || errors.Is(err, epoch.ErrStoreUnavailable) {
		return err
	}
	return epoch.WrapKind(op, epoch.ErrStoreUnavailable, err)
}

func sinceMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
