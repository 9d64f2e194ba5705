package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/epochboard/internal/domain/epoch"
)

// LeaderboardHandler creates leaderboards and reports their epochs.
type LeaderboardHandler struct {
	deps Dependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

type createRequest struct {
	Cadence   string `json:"cadence"`
	ResetHour int    `json:"reset_hour"`
}

type leaderboardResponse struct {
	ID          string     `json:"id"`
	Cadence     string     `json:"cadence"`
	ResetHour   int        `json:"reset_hour"`
	Version     int64      `json:"version"`
	PeriodStart *time.Time `json:"period_start"`
}

type epochResponse struct {
	LeaderboardID string `json:"leaderboard_id"`
	epoch.Resolved
}

// HandleCreate handles POST /leaderboards.
func (h *LeaderboardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_leaderboard"
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", epoch.WrapKind(op, ErrBadRequest, err))
		return
	}
	cadence, err := epoch.ParseCadence(req.Cadence)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	st, err := h.deps.CreateLeaderboard(r.Context(), cadence, req.ResetHour)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, leaderboardResponse{
		ID:          st.LeaderboardID,
		Cadence:     string(st.Cadence),
		ResetHour:   st.ResetHour,
		Version:     st.CurrentVersion,
		PeriodStart: st.CurrentPeriodStart,
	})
}

// HandleEpoch handles GET /leaderboards/{id}/epoch.
func (h *LeaderboardHandler) HandleEpoch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := h.deps.Epoch(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, epochResponse{LeaderboardID: id, Resolved: res})
}

// HandleVersion handles GET /leaderboards/{id}/versions/{version}.
func (h *LeaderboardHandler) HandleVersion(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_version"
	id := r.PathValue("id")
	v, err := parseVersion(r.PathValue("version"))
	if err != nil || v == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", epoch.NewKind(op, ErrBadVersion))
		return
	}
	res, err := h.deps.VersionPeriod(r.Context(), id, v)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, epochResponse{LeaderboardID: id, Resolved: res})
}

// HandleVersions handles GET /leaderboards/{id}/versions.
func (h *LeaderboardHandler) HandleVersions(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.RetainedVersions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
