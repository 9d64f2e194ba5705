// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/epochboard/internal/domain/epoch"
	"github.com/okian/epochboard/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateLeaderboard(ctx context.Context, cadence epoch.Cadence, resetHour int) (epoch.State, error)
	Epoch(ctx context.Context, leaderboardID string) (epoch.Resolved, error)
	VersionPeriod(ctx context.Context, leaderboardID string, version int64) (epoch.Resolved, error)
	RetainedVersions(ctx context.Context, leaderboardID string) (model.Retained, error)
	SubmitScore(ctx context.Context, leaderboardID, playerID string, score float64) (model.Submission, error)

	// Version zero means the current version.
	Rank(ctx context.Context, leaderboardID, playerID string, version int64) (model.Entry, error)
	TopN(ctx context.Context, leaderboardID string, n int, version int64) (model.Standings, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	scoreHandler       *ScoreHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps),
		scoreHandler:       NewScoreHandler(deps),
		rankHandler:        NewRankHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /leaderboards", MetricsMiddleware(s.leaderboardHandler.HandleCreate, "create_leaderboard"))
	mux.HandleFunc("GET /leaderboards/{id}/epoch", MetricsMiddleware(s.leaderboardHandler.HandleEpoch, "epoch"))
	mux.HandleFunc("GET /leaderboards/{id}/versions", MetricsMiddleware(s.leaderboardHandler.HandleVersions, "versions"))
	mux.HandleFunc("GET /leaderboards/{id}/versions/{version}", MetricsMiddleware(s.leaderboardHandler.HandleVersion, "version"))
	mux.HandleFunc("POST /leaderboards/{id}/scores", MetricsMiddleware(s.scoreHandler.HandleSubmit, "scores"))
	mux.HandleFunc("GET /leaderboards/{id}/rank/{player}", MetricsMiddleware(s.rankHandler.HandleRank, "rank"))
	mux.HandleFunc("GET /leaderboards/{id}/top", MetricsMiddleware(s.rankHandler.HandleTop, "top"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates domain error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, epoch.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, epoch.ErrInvalidCadence):
		writeError(w, http.StatusBadRequest, "invalid_cadence", err)
	case errors.Is(err, epoch.ErrInvalidResetHour):
		writeError(w, http.StatusBadRequest, "invalid_reset_hour", err)
	case errors.Is(err, epoch.ErrInvalidVersionRange):
		writeError(w, http.StatusBadRequest, "invalid_version_range", err)
	case errors.Is(err, epoch.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// parseVersion reads an optional positive version. Absent means zero.
func parseVersion(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < epoch.FirstVersion {
		return 0, ErrBadVersion
	}
	return v, nil
}
