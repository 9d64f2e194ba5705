package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/epochboard/internal/domain/epoch"
)

type boardKey struct {
	leaderboardID string
	version       int64
}

// MemoryStore is an in-process Store. The compare-and-swap runs under the
// write lock, which gives it the same atomicity as a conditional UPDATE.
type MemoryStore struct {
	mu     sync.RWMutex
	epochs map[string]epoch.State
	boards map[boardKey]*board
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		epochs: make(map[string]epoch.State),
		boards: make(map[boardKey]*board),
	}
}

func cloneState(s epoch.State) epoch.State {
	if s.CurrentPeriodStart != nil {
		s.CurrentPeriodStart = epoch.TimePtr(*s.CurrentPeriodStart)
	}
	return s
}

// Epoch implements EpochStore.
func (s *MemoryStore) Epoch(ctx context.Context, leaderboardID string) (epoch.State, error) {
	defer observe("epoch", time.Now())
	if err := ctx.Err(); err != nil {
		return epoch.State{}, epoch.WrapKind("repository.epoch", epoch.ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.epochs[leaderboardID]
	if !ok {
		return epoch.State{}, epoch.NewKind("repository.epoch", ErrNotFound)
	}
	return cloneState(st), nil
}

// CreateEpoch implements EpochStore.
func (s *MemoryStore) CreateEpoch(ctx context.Context, st epoch.State) error {
	defer observe("create_epoch", time.Now())
	if err := ctx.Err(); err != nil {
		return epoch.WrapKind("repository.create_epoch", epoch.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.epochs[st.LeaderboardID]; ok {
		return epoch.NewKind("repository.create_epoch", ErrDuplicate)
	}
	s.epochs[st.LeaderboardID] = cloneState(st)
	return nil
}

// CompareAndSwap implements EpochStore.
func (s *MemoryStore) CompareAndSwap(ctx context.Context, leaderboardID string, expected, next int64, periodStart time.Time) (bool, error) {
	defer observe("compare_and_swap", time.Now())
	if err := ctx.Err(); err != nil {
		return false, epoch.WrapKind("repository.compare_and_swap", epoch.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.epochs[leaderboardID]
	if !ok {
		return false, epoch.NewKind("repository.compare_and_swap", ErrNotFound)
	}
	if st.CurrentVersion != expected {
		return false, nil
	}
	st.CurrentVersion = next
	st.CurrentPeriodStart = epoch.TimePtr(periodStart)
	s.epochs[leaderboardID] = st
	return true, nil
}

// PutScore implements ScoreStore.
func (s *MemoryStore) PutScore(ctx context.Context, leaderboardID string, version int64, playerID string, score float64) (bool, error) {
	defer observe("put_score", time.Now())
	if err := ctx.Err(); err != nil {
		return false, epoch.WrapKind("repository.put_score", epoch.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.epochs[leaderboardID]; !ok {
		return false, epoch.NewKind("repository.put_score", ErrNotFound)
	}
	key := boardKey{leaderboardID, version}
	b, ok := s.boards[key]
	if !ok {
		b = newBoard()
		s.boards[key] = b
	}
	return b.put(playerID, score), nil
}

// Rank implements ScoreStore.
func (s *MemoryStore) Rank(ctx context.Context, leaderboardID string, version int64, playerID string) (Entry, error) {
	defer observe("rank", time.Now())
	if err := ctx.Err(); err != nil {
		return Entry{}, epoch.WrapKind("repository.rank", epoch.ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[boardKey{leaderboardID, version}]
	if !ok {
		return Entry{}, epoch.NewKind("repository.rank", ErrNotFound)
	}
	score, ok := b.byID[playerID]
	if !ok {
		return Entry{}, epoch.NewKind("repository.rank", ErrNotFound)
	}
	return Entry{Rank: 1 + countGreater(b.root, score), PlayerID: playerID, Score: score}, nil
}

// TopN implements ScoreStore.
func (s *MemoryStore) TopN(ctx context.Context, leaderboardID string, version int64, n int) ([]Entry, error) {
	defer observe("top_n", time.Now())
	if n < 1 {
		return nil, epoch.NewKind("repository.top_n", ErrInvalidLimit)
	}
	if err := ctx.Err(); err != nil {
		return nil, epoch.WrapKind("repository.top_n", epoch.ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[boardKey{leaderboardID, version}]
	if !ok {
		return []Entry{}, nil
	}
	out := make([]Entry, 0, min(n, len(b.byID)))
	collectTopN(b.root, n, &out)
	assignRanks(out)
	return out, nil
}

// DeleteBefore implements ScoreStore.
func (s *MemoryStore) DeleteBefore(ctx context.Context, leaderboardID string, cutoff int64) (int64, error) {
	defer observe("delete_before", time.Now())
	if err := ctx.Err(); err != nil {
		return 0, epoch.WrapKind("repository.delete_before", epoch.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, b := range s.boards {
		if key.leaderboardID == leaderboardID && key.version < cutoff {
			removed += int64(len(b.byID))
			delete(s.boards, key)
		}
	}
	return removed, nil
}

// Versions implements ScoreStore.
func (s *MemoryStore) Versions(ctx context.Context, leaderboardID string) ([]int64, error) {
	defer observe("versions", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, epoch.WrapKind("repository.versions", epoch.ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int64
	for key := range s.boards {
		if key.leaderboardID == leaderboardID {
			out = append(out, key.version)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
