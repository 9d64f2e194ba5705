package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/epochboard/internal/domain/epoch"
)

// ScoreHandler records scores.
type ScoreHandler struct {
	deps Dependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps Dependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

type scoreRequest struct {
	PlayerID string   `json:"player_id"`
	Score    *float64 `json:"score"`
}

func (s scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(s.PlayerID) == "":
		return errors.New("missing player_id")
	case s.Score == nil:
		return errors.New("missing score")
	}
	return nil
}

// HandleSubmit handles POST /leaderboards/{id}/scores.
func (h *ScoreHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", epoch.WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", epoch.WrapKind(op, ErrBadRequest, err))
		return
	}
	sub, err := h.deps.SubmitScore(r.Context(), r.PathValue("id"), req.PlayerID, *req.Score)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
