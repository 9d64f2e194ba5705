// Package repository persists leaderboard epoch state and version-stamped
// score rows.
package repository

import (
	"context"
	"time"

	"github.com/okian/epochboard/internal/domain/epoch"
	"github.com/okian/epochboard/internal/domain/model"
	"github.com/okian/epochboard/pkg/metrics"
)

// Entry represents a leaderboard row within one version.
type Entry = model.Entry

// EpochStore reads and conditionally advances epoch records.
type EpochStore interface {
	// Epoch returns the stored state. Returns epoch.ErrNotFound for unknown ids.
	Epoch(ctx context.Context, leaderboardID string) (epoch.State, error)

	// CreateEpoch stores a new record. Returns ErrDuplicate if the id exists.
	CreateEpoch(ctx context.Context, s epoch.State) error

	// CompareAndSwap writes the new version and period start only if the
	// stored version still equals expected. A false result with a nil error
	// means another writer got there first.
	CompareAndSwap(ctx context.Context, leaderboardID string, expected, next int64, periodStart time.Time) (bool, error)
}

// ScoreStore holds score rows stamped with the version active at write time.
type ScoreStore interface {
	// PutScore keeps the best score of a player within a version.
	// Returns true if the stored score changed.
	PutScore(ctx context.Context, leaderboardID string, version int64, playerID string, score float64) (bool, error)

	// Rank returns 1 + the number of strictly greater scores in the version.
	// Returns epoch.ErrNotFound if the player has no score in the version.
	Rank(ctx context.Context, leaderboardID string, version int64, playerID string) (Entry, error)

	// TopN returns the top-n entries of a version ordered by score desc,
	// then player id asc.
	TopN(ctx context.Context, leaderboardID string, version int64, n int) ([]Entry, error)

	// DeleteBefore removes every row of the leaderboard whose version is
	// below cutoff and returns the number of rows removed.
	DeleteBefore(ctx context.Context, leaderboardID string, cutoff int64) (int64, error)

	// Versions lists the versions of the leaderboard that still hold score
	// rows, ascending.
	Versions(ctx context.Context, leaderboardID string) ([]int64, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	EpochStore
	ScoreStore
	Close() error
}

// observe records the latency of a store operation begun at start.
func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
