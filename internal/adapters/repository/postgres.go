package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/epochboard/internal/domain/epoch"
	"github.com/okian/epochboard/pkg/metrics"
)

const (
	defaultConnTimeout = 5 * time.Second
	uniqueViolation    = "23505"
)

// DBTX is the subset of pgxpool.Pool used by PostgresStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS leaderboards (
	id                   TEXT PRIMARY KEY,
	reset_cadence        TEXT NOT NULL,
	reset_hour           SMALLINT NOT NULL DEFAULT 0 CHECK (reset_hour BETWEEN 0 AND 23),
	current_version      BIGINT NOT NULL DEFAULT 1 CHECK (current_version >= 1),
	current_period_start TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scores (
	leaderboard_id TEXT NOT NULL REFERENCES leaderboards(id) ON DELETE CASCADE,
	version        BIGINT NOT NULL,
	player_id      TEXT NOT NULL,
	score          DOUBLE PRECISION NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (leaderboard_id, version, player_id)
);

CREATE INDEX IF NOT EXISTS scores_rank_idx ON scores (leaderboard_id, version, score DESC);
`

const (
	selectEpochSQL = `SELECT reset_cadence, reset_hour, current_version, current_period_start
FROM leaderboards WHERE id = $1`

	insertEpochSQL = `INSERT INTO leaderboards (id, reset_cadence, reset_hour, current_version, current_period_start)
VALUES ($1, $2, $3, $4, $5)`

	// Zero affected rows means the stored version moved under us.
	compareAndSwapSQL = `UPDATE leaderboards SET current_version = $3, current_period_start = $4
WHERE id = $1 AND current_version = $2`

	upsertScoreSQL = `INSERT INTO scores (leaderboard_id, version, player_id, score)
VALUES ($1, $2, $3, $4)
ON CONFLICT (leaderboard_id, version, player_id)
DO UPDATE SET score = EXCLUDED.score, updated_at = now()
WHERE scores.score < EXCLUDED.score`

	rankSQL = `SELECT s.score,
	(SELECT count(*) FROM scores o
	 WHERE o.leaderboard_id = s.leaderboard_id AND o.version = s.version AND o.score > s.score)
FROM scores s
WHERE s.leaderboard_id = $1 AND s.version = $2 AND s.player_id = $3`

	topNSQL = `SELECT player_id, score FROM scores
WHERE leaderboard_id = $1 AND version = $2
ORDER BY score DESC, player_id ASC
LIMIT $3`

	deleteBeforeSQL = `DELETE FROM scores WHERE leaderboard_id = $1 AND version < $2`

	versionsSQL = `SELECT DISTINCT version FROM scores WHERE leaderboard_id = $1 ORDER BY version`
)

// PostgresStore implements Store on PostgreSQL through pgx.
type PostgresStore struct {
	db    DBTX
	close func()
}

// NewPostgresStore wraps an existing connection or pool.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db, close: func() {}}
}

// ConnectPostgres opens a pool for dsn, pings it and applies the schema.
func ConnectPostgres(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, cfg)
	if err != nil {
		return nil, epoch.WrapKind("repository.connect", epoch.ErrStoreUnavailable, err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, epoch.WrapKind("repository.connect", epoch.ErrStoreUnavailable, err)
	}

	s := &PostgresStore{db: pool, close: pool.Close}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return epoch.WrapKind("repository.migrate", epoch.ErrStoreUnavailable, err)
	}
	return nil
}

func unavailable(op string, err error) error {
	metrics.RecordStoreError(op)
	return epoch.WrapKind("repository."+op, epoch.ErrStoreUnavailable, err)
}

// Epoch implements EpochStore.
func (s *PostgresStore) Epoch(ctx context.Context, leaderboardID string) (epoch.State, error) {
	defer observe("epoch", time.Now())

	var (
		cadence string
		hour    int16
		version int64
		start   *time.Time
	)
	err := s.db.QueryRow(ctx, selectEpochSQL, leaderboardID).Scan(&cadence, &hour, &version, &start)
	if errors.Is(err, pgx.ErrNoRows) {
		return epoch.State{}, epoch.NewKind("repository.epoch", ErrNotFound)
	}
	if err != nil {
		return epoch.State{}, unavailable("epoch", err)
	}

	c, err := epoch.ParseCadence(cadence)
	if err != nil {
		return epoch.State{}, err
	}
	st := epoch.State{
		LeaderboardID:  leaderboardID,
		Cadence:        c,
		ResetHour:      int(hour),
		CurrentVersion: version,
	}
	if start != nil {
		st.CurrentPeriodStart = epoch.TimePtr(*start)
	}
	return st, nil
}

// CreateEpoch implements EpochStore.
func (s *PostgresStore) CreateEpoch(ctx context.Context, st epoch.State) error {
	defer observe("create_epoch", time.Now())

	_, err := s.db.Exec(ctx, insertEpochSQL,
		st.LeaderboardID, string(st.Cadence), int16(st.ResetHour), st.CurrentVersion, st.CurrentPeriodStart)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return epoch.WrapKind("repository.create_epoch", ErrDuplicate, err)
	}
	if err != nil {
		return unavailable("create_epoch", err)
	}
	return nil
}

// CompareAndSwap implements EpochStore.
func (s *PostgresStore) CompareAndSwap(ctx context.Context, leaderboardID string, expected, next int64, periodStart time.Time) (bool, error) {
	defer observe("compare_and_swap", time.Now())

	tag, err := s.db.Exec(ctx, compareAndSwapSQL, leaderboardID, expected, next, periodStart.UTC())
	if err != nil {
		return false, unavailable("compare_and_swap", err)
	}
	return tag.RowsAffected() == 1, nil
}

// PutScore implements ScoreStore.
func (s *PostgresStore) PutScore(ctx context.Context, leaderboardID string, version int64, playerID string, score float64) (bool, error) {
	defer observe("put_score", time.Now())

	tag, err := s.db.Exec(ctx, upsertScoreSQL, leaderboardID, version, playerID, score)
	if err != nil {
		return false, unavailable("put_score", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Rank implements ScoreStore.
func (s *PostgresStore) Rank(ctx context.Context, leaderboardID string, version int64, playerID string) (Entry, error) {
	defer observe("rank", time.Now())

	var (
		score   float64
		greater int64
	)
	err := s.db.QueryRow(ctx, rankSQL, leaderboardID, version, playerID).Scan(&score, &greater)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, epoch.NewKind("repository.rank", ErrNotFound)
	}
	if err != nil {
		return Entry{}, unavailable("rank", err)
	}
	return Entry{Rank: int(greater) + 1, PlayerID: playerID, Score: score}, nil
}

// TopN implements ScoreStore.
func (s *PostgresStore) TopN(ctx context.Context, leaderboardID string, version int64, n int) ([]Entry, error) {
	defer observe("top_n", time.Now())
	if n < 1 {
		return nil, epoch.NewKind("repository.top_n", ErrInvalidLimit)
	}

	rows, err := s.db.Query(ctx, topNSQL, leaderboardID, version, n)
	if err != nil {
		return nil, unavailable("top_n", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.PlayerID, &e.Score)
		return e, err
	})
	if err != nil {
		return nil, unavailable("top_n", err)
	}
	assignRanks(out)
	return out, nil
}

// DeleteBefore implements ScoreStore.
func (s *PostgresStore) DeleteBefore(ctx context.Context, leaderboardID string, cutoff int64) (int64, error) {
	defer observe("delete_before", time.Now())

	tag, err := s.db.Exec(ctx, deleteBeforeSQL, leaderboardID, cutoff)
	if err != nil {
		return 0, unavailable("delete_before", err)
	}
	return tag.RowsAffected(), nil
}

// Versions implements ScoreStore.
func (s *PostgresStore) Versions(ctx context.Context, leaderboardID string) ([]int64, error) {
	defer observe("versions", time.Now())

	rows, err := s.db.Query(ctx, versionsSQL, leaderboardID)
	if err != nil {
		return nil, unavailable("versions", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, unavailable("versions", err)
	}
	return out, nil
}

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() error {
	s.close()
	return nil
}
