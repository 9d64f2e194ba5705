package api

import (
	"net/http"
	"strconv"

	"github.com/okian/epochboard/internal/domain/epoch"
)

const defaultTopLimit = 10

// RankHandler handles rank and top queries.
type RankHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Dependencies, maxLimit int) *RankHandler {
	return &RankHandler{deps: deps, maxLimit: maxLimit}
}

// HandleRank handles GET /leaderboards/{id}/rank/{player}?version=v.
func (h *RankHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	v, err := parseVersion(r.URL.Query().Get("version"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", epoch.NewKind(op, err))
		return
	}
	entry, err := h.deps.Rank(r.Context(), r.PathValue("id"), r.PathValue("player"), v)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleTop handles GET /leaderboards/{id}/top?limit=n&version=v.
func (h *RankHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_top"
	q := r.URL.Query()
	n := defaultTopLimit
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", epoch.NewKind(op, ErrBadLimit))
			return
		}
		n = parsed
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", epoch.NewKind(op, ErrBadLimit))
		return
	}
	v, err := parseVersion(q.Get("version"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", epoch.NewKind(op, err))
		return
	}
	standings, err := h.deps.TopN(r.Context(), r.PathValue("id"), n, v)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}
