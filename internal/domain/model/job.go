// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"time"

	"github.com/okian/epochboard/internal/domain/epoch"
)

// ReapJob asks a worker to delete the score rows of one leaderboard whose
// version is below Cutoff.
type ReapJob struct {
	LeaderboardID string
	Cadence       epoch.Cadence
	NewVersion    int64 // version whose commit triggered the job
	Cutoff        int64
	EnqueuedAt    time.Time
}

// Key identifies equivalent jobs: the same leaderboard and cutoff delete the
// same rows.
func (j ReapJob) Key() string {
	return j.LeaderboardID + "@" + strconv.FormatInt(j.Cutoff, 10)
}
