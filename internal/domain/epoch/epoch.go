// Package epoch holds the leaderboard epoch state shared by the period
// calculator, the version resolver and the retention reaper.
package epoch

import (
	"strings"
	"time"
)

// Cadence is the reset frequency of a leaderboard.
type Cadence string

// Supported cadences.
const (
	None    Cadence = "none"
	Daily   Cadence = "daily"
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
)

// FirstVersion is the version every leaderboard starts at.
const FirstVersion int64 = 1

// ParseCadence maps a textual cadence to a Cadence. Empty input parses as None.
func ParseCadence(s string) (Cadence, error) {
	switch c := Cadence(strings.ToLower(strings.TrimSpace(s))); c {
	case "", None:
		return None, nil
	case Daily, Weekly, Monthly:
		return c, nil
	default:
		return "", WrapKind("epoch.parse_cadence", ErrInvalidCadence, errUnknownCadence(s))
	}
}

type errUnknownCadence string

func (e errUnknownCadence) Error() string { return "unknown cadence " + string(e) }

// Resets reports whether the cadence ever rolls over.
func (c Cadence) Resets() bool {
	return c == Daily || c == Weekly || c == Monthly
}

// State is the persisted epoch record of one leaderboard.
type State struct {
	LeaderboardID string
	Cadence       Cadence
	// ResetHour is the UTC hour of day at which periods roll over.
	ResetHour      int
	CurrentVersion int64
	// CurrentPeriodStart is nil for cadence None.
	CurrentPeriodStart *time.Time
}

// Resolved is the epoch tuple handed to callers. Both timestamps are nil
// for leaderboards that never reset.
type Resolved struct {
	Version     int64      `json:"version"`
	PeriodStart *time.Time `json:"period_start"`
	NextReset   *time.Time `json:"next_reset"`
}

// Static is the resolved tuple of a leaderboard with cadence None.
func Static() Resolved {
	return Resolved{Version: FirstVersion}
}

// TimePtr returns a pointer to t in UTC.
func TimePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
