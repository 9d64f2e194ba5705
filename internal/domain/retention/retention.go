// Package retention deletes score rows that fell out of a leaderboard's
// retention window after a version rollover.
package retention

import (
	"context"
	"time"

	"github.com/okian/epochboard/internal/domain/dedupe"
	"github.com/okian/epochboard/internal/domain/epoch"
	"github.com/okian/epochboard/internal/domain/model"
	"github.com/okian/epochboard/pkg/logger"
	"github.com/okian/epochboard/pkg/metrics"
)

// Deleter removes score rows with a version strictly below cutoff.
type Deleter interface {
	DeleteBefore(ctx context.Context, leaderboardID string, cutoff int64) (int64, error)
}

// Enqueuer accepts reap jobs without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, j model.ReapJob) bool
}

// Windows is the number of versions retained per cadence.
type Windows struct {
	Daily   int64
	Weekly  int64
	Monthly int64
}

// DefaultWindows keeps a week of daily boards, two months of weekly boards
// and a year of monthly boards.
func DefaultWindows() Windows {
	return Windows{Daily: 7, Weekly: 8, Monthly: 12}
}

// For returns the window for cadence, or zero when the cadence never resets.
func (w Windows) For(c epoch.Cadence) int64 {
	switch c {
	case epoch.Daily:
		return w.Daily
	case epoch.Weekly:
		return w.Weekly
	case epoch.Monthly:
		return w.Monthly
	default:
		return 0
	}
}

// Cutoff is the lowest version kept once newVersion is current. A result of
// one or less means nothing is old enough to delete.
func Cutoff(newVersion, window int64) int64 {
	return newVersion - window
}

// Reaper schedules and runs retention deletes. Reap never blocks on the
// delete and never reports failures to its caller.
type Reaper struct {
	store   Deleter
	windows Windows
	queue   Enqueuer
	seen    dedupe.Deduper
	logger  logger.Logger
	now     func() time.Time
}

// New returns a Reaper. Without WithQueue jobs run inline on the caller's
// goroutine.
func New(store Deleter, opts ...Option) *Reaper {
	r := &Reaper{
		store:   store,
		windows: DefaultWindows(),
		seen:    dedupe.NewInMemoryDeduper(),
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reap deletes the rows of leaderboardID that newVersion pushed out of the
// retention window.
func (r *Reaper) Reap(ctx context.Context, leaderboardID string, newVersion int64, cadence epoch.Cadence) {
	cutoff := Cutoff(newVersion, r.windows.For(cadence))
	if !cadence.Resets() || cutoff <= epoch.FirstVersion {
		metrics.RecordReap(metrics.ReapSkipped)
		return
	}

	job := model.ReapJob{
		LeaderboardID: leaderboardID,
		Cadence:       cadence,
		NewVersion:    newVersion,
		Cutoff:        cutoff,
		EnqueuedAt:    r.now(),
	}
	if r.seen.SeenAndRecord(ctx, job.Key()) {
		metrics.RecordReap(metrics.ReapDuplicate)
		return
	}

	if r.queue == nil {
		// Execute only reports failures to workers; inline runs swallow them.
		_ = r.Execute(context.WithoutCancel(ctx), job)
		return
	}
	if !r.queue.Enqueue(ctx, job) {
		r.seen.Unrecord(ctx, job.Key())
		metrics.RecordReap(metrics.ReapDropped)
		r.logger.Warn(ctx, "reap queue full, dropping job",
			logger.String("leaderboard_id", leaderboardID),
			logger.Int64("cutoff", cutoff),
		)
		return
	}
	metrics.RecordReap(metrics.ReapScheduled)
}

// Execute runs one reap job. Its key is released afterwards so a later
// rollover can schedule the same cutoff again if this attempt failed.
func (r *Reaper) Execute(ctx context.Context, j model.ReapJob) error {
	defer r.seen.Unrecord(ctx, j.Key())

	start := time.Now()
	rows, err := r.store.DeleteBefore(ctx, j.LeaderboardID, j.Cutoff)
	if err != nil {
		metrics.RecordReap(metrics.ReapFailed)
		r.logger.Error(ctx, "reap failed",
			logger.String("leaderboard_id", j.LeaderboardID),
			logger.Int64("cutoff", j.Cutoff),
			logger.Error(err),
		)
		return epoch.WrapKind("retention.execute", epoch.ErrReapFailure, err)
	}

	metrics.RecordReap(metrics.ReapSucceeded)
	metrics.RecordReapedRows(rows, float64(time.Since(start).Milliseconds()))
	r.logger.Debug(ctx, "reaped old versions",
		logger.String("leaderboard_id", j.LeaderboardID),
		logger.Int64("cutoff", j.Cutoff),
		logger.Int64("rows", rows),
	)
	return nil
}
