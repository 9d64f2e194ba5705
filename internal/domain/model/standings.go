package model

// Entry is one player's standing within a leaderboard version.
type Entry struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Score    float64 `json:"score"`
}

// Submission reports where a score landed.
type Submission struct {
	LeaderboardID string  `json:"leaderboard_id"`
	Version       int64   `json:"version"`
	PlayerID      string  `json:"player_id"`
	Score         float64 `json:"score"`
	// Updated is false when the player already had an equal or better score
	// in this version.
	Updated bool `json:"updated"`
}

// Retained lists the versions of a leaderboard that still hold scores.
type Retained struct {
	LeaderboardID  string  `json:"leaderboard_id"`
	CurrentVersion int64   `json:"current_version"`
	Versions       []int64 `json:"versions"`
}

// Standings is the top of one leaderboard version.
type Standings struct {
	LeaderboardID string  `json:"leaderboard_id"`
	Version       int64   `json:"version"`
	Entries       []Entry `json:"entries"`
}
