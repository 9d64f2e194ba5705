// Package service wires the epoch resolver, the score store and the async
// retention reaper into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/okian/epochboard/internal/adapters/mq/queue"
	"github.com/okian/epochboard/internal/adapters/mq/worker"
	"github.com/okian/epochboard/internal/adapters/repository"
	"github.com/okian/epochboard/internal/domain/dedupe"
	"github.com/okian/epochboard/internal/domain/epoch"
	"github.com/okian/epochboard/internal/domain/model"
	"github.com/okian/epochboard/internal/domain/period"
	"github.com/okian/epochboard/internal/domain/resolver"
	"github.com/okian/epochboard/internal/domain/retention"
	"github.com/okian/epochboard/pkg/logger"
	"github.com/okian/epochboard/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	clock    quartz.Clock
	store    repository.Store
	resolver *resolver.Resolver
	reaper   *retention.Reaper
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	reapWorkers     int
	reapQueueSize   int
	reapTimeout     time.Duration
	windows         retention.Windows
	longIdlePeriods int64
	maxTopLimit     int
	inlineReaping   bool

	started bool
	cancel  context.CancelFunc
	logger  logger.Logger
}

// New constructs a Service. Store, clock and logger fall back to an
// in-memory store, the real clock and the global logger when Start runs.
func New(opts ...Option) *Service {
	s := &Service{
		reapWorkers:   2,
		reapQueueSize: 1024,
		reapTimeout:   10 * time.Second,
		windows:       retention.DefaultWindows(),
		maxTopLimit:   100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.clock == nil {
		s.clock = quartz.NewReal()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	reaperOpts := []retention.Option{
		retention.WithWindows(s.windows),
		retention.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.reapQueueSize * 4))),
		retention.WithLogger(s.logger.Named("reaper")),
		retention.WithClock(func() time.Time { return s.clock.Now() }),
	}
	if !s.inlineReaping {
		s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.reapQueueSize))
		reaperOpts = append(reaperOpts, retention.WithQueue(s.queue))
	}
	s.reaper = retention.New(s.store, reaperOpts...)
	s.resolver = resolver.New(s.store,
		resolver.WithReaper(s.reaper),
		resolver.WithLogger(s.logger.Named("resolver")),
		resolver.WithLongIdlePeriods(s.longIdlePeriods),
	)

	// Workers outlive the start request; only Stop ends them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	if s.queue != nil {
		s.pool = worker.NewPool(s.reapWorkers, s.queue, s.reaper, worker.WithJobTimeout(s.reapTimeout))
		s.pool.Start(runCtx)
	}

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("reap_workers", s.reapWorkers),
		logger.Int("reap_queue_size", s.reapQueueSize),
		logger.Bool("inline_reaping", s.inlineReaping),
	)
	return nil
}

// Stop drains queued reap jobs and releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping leaderboard service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "reap workers did not stop cleanly", logger.Error(err))
		}
	}
	s.cancel()
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// CreateLeaderboard registers a new leaderboard whose first version covers
// the period containing the current time.
func (s *Service) CreateLeaderboard(ctx context.Context, cadence epoch.Cadence, resetHour int) (epoch.State, error) {
	if err := s.ready(); err != nil {
		return epoch.State{}, err
	}
	st, err := period.NewState(uuid.NewString(), cadence, resetHour, s.clock.Now())
	if err != nil {
		return epoch.State{}, err
	}
	if err := s.store.CreateEpoch(ctx, st); err != nil {
		return epoch.State{}, err
	}
	s.logger.Info(ctx, "leaderboard created",
		logger.String("leaderboard_id", st.LeaderboardID),
		logger.String("cadence", string(st.Cadence)),
		logger.Int("reset_hour", st.ResetHour),
	)
	return st, nil
}

// Epoch resolves the version active now.
func (s *Service) Epoch(ctx context.Context, leaderboardID string) (epoch.Resolved, error) {
	if err := s.ready(); err != nil {
		return epoch.Resolved{}, err
	}
	return s.resolver.Resolve(ctx, leaderboardID, s.clock.Now())
}

// VersionPeriod returns the period of a historical version. The epoch is
// resolved first so versions that became current while the board was idle
// are accepted.
func (s *Service) VersionPeriod(ctx context.Context, leaderboardID string, version int64) (epoch.Resolved, error) {
	if _, err := s.Epoch(ctx, leaderboardID); err != nil {
		return epoch.Resolved{}, err
	}
	return s.resolver.StartForVersion(ctx, leaderboardID, version)
}

// SubmitScore stamps score with the version active now.
func (s *Service) SubmitScore(ctx context.Context, leaderboardID, playerID string, score float64) (model.Submission, error) {
	res, err := s.Epoch(ctx, leaderboardID)
	if err != nil {
		return model.Submission{}, err
	}
	updated, err := s.store.PutScore(ctx, leaderboardID, res.Version, playerID, score)
	if err != nil {
		return model.Submission{}, err
	}
	return model.Submission{
		LeaderboardID: leaderboardID,
		Version:       res.Version,
		PlayerID:      playerID,
		Score:         score,
		Updated:       updated,
	}, nil
}

// Rank returns a player's standing in version, or in the current version
// when version is zero.
func (s *Service) Rank(ctx context.Context, leaderboardID, playerID string, version int64) (model.Entry, error) {
	v, err := s.version(ctx, leaderboardID, version)
	if err != nil {
		return model.Entry{}, err
	}
	return s.store.Rank(ctx, leaderboardID, v, playerID)
}

// TopN returns the best n entries of version, or of the current version when
// version is zero. n is capped at the configured maximum.
func (s *Service) TopN(ctx context.Context, leaderboardID string, n int, version int64) (model.Standings, error) {
	v, err := s.version(ctx, leaderboardID, version)
	if err != nil {
		return model.Standings{}, err
	}
	entries, err := s.store.TopN(ctx, leaderboardID, v, min(n, s.maxTopLimit))
	if err != nil {
		return model.Standings{}, err
	}
	return model.Standings{LeaderboardID: leaderboardID, Version: v, Entries: entries}, nil
}

// RetainedVersions lists the versions of a leaderboard that retention has
// not reclaimed yet. The epoch is resolved first, so a pending rollover
// commits and schedules its reap before the listing.
func (s *Service) RetainedVersions(ctx context.Context, leaderboardID string) (model.Retained, error) {
	res, err := s.Epoch(ctx, leaderboardID)
	if err != nil {
		return model.Retained{}, err
	}
	versions, err := s.store.Versions(ctx, leaderboardID)
	if err != nil {
		return model.Retained{}, err
	}
	if versions == nil {
		versions = []int64{}
	}
	return model.Retained{LeaderboardID: leaderboardID, CurrentVersion: res.Version, Versions: versions}, nil
}

func (s *Service) version(ctx context.Context, leaderboardID string, requested int64) (int64, error) {
	res, err := s.Epoch(ctx, leaderboardID)
	if err != nil {
		return 0, err
	}
	switch {
	case requested == 0:
		return res.Version, nil
	case requested < epoch.FirstVersion || requested > res.Version:
		return 0, epoch.WrapKind("service.version", epoch.ErrInvalidVersionRange,
			fmt.Errorf("version %d outside 1..%d", requested, res.Version))
	}
	return requested, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":           s.started,
		"reap_workers":      s.reapWorkers,
		"reap_queue_size":   s.reapQueueSize,
		"inline_reaping":    s.inlineReaping,
		"retention_daily":   s.windows.Daily,
		"retention_weekly":  s.windows.Weekly,
		"retention_monthly": s.windows.Monthly,
	}
	if s.started && s.pool != nil {
		stats["reap_workers_running"] = s.pool.Size()
	}
	if s.started && s.queue != nil {
		queueLen := s.queue.Len(context.Background())
		stats["reap_queue_length"] = queueLen
		metrics.UpdateQueueSize(queueLen, s.queue.Capacity())
	}
	return stats
}
