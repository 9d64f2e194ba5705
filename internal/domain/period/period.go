// Package period maps instants to leaderboard period boundaries.
//
// All functions are pure and operate in UTC. Cadence none has no periods and
// is rejected everywhere; callers short-circuit before reaching this package.
package period

import (
	"time"

	"github.com/okian/epochboard/internal/domain/epoch"
)

const (
	day  = 24 * time.Hour
	week = 7 * day

	maxResetHour = 23
)

// ValidateHour checks that hour is a valid hour of day.
func ValidateHour(hour int) error {
	if hour < 0 || hour > maxResetHour {
		return epoch.NewKind("period.validate_hour", epoch.ErrInvalidResetHour)
	}
	return nil
}

// Start returns the boundary of the period containing at. An instant equal to
// a boundary belongs to the period that starts there.
func Start(c epoch.Cadence, resetHour int, at time.Time) (time.Time, error) {
	const op = "period.start"
	if !c.Resets() {
		return time.Time{}, epoch.NewKind(op, epoch.ErrInvalidCadence)
	}
	if err := ValidateHour(resetHour); err != nil {
		return time.Time{}, err
	}
	at = at.UTC()
	y, m, d := at.Date()

	var b time.Time
	switch c {
	case epoch.Daily:
		b = time.Date(y, m, d, resetHour, 0, 0, 0, time.UTC)
		if at.Before(b) {
			b = b.AddDate(0, 0, -1)
		}
	case epoch.Weekly:
		// Monday is day zero of the ISO week.
		sinceMonday := (int(at.Weekday()) + 6) % 7
		b = time.Date(y, m, d-sinceMonday, resetHour, 0, 0, 0, time.UTC)
		if at.Before(b) {
			b = b.AddDate(0, 0, -7)
		}
	case epoch.Monthly:
		b = time.Date(y, m, 1, resetHour, 0, 0, 0, time.UTC)
		if at.Before(b) {
			b = b.AddDate(0, -1, 0)
		}
	}
	return b, nil
}

// NextReset returns the boundary of the period after the one starting at
// periodStart.
func NextReset(c epoch.Cadence, resetHour int, periodStart time.Time) (time.Time, error) {
	if !c.Resets() {
		return time.Time{}, epoch.NewKind("period.next_reset", epoch.ErrInvalidCadence)
	}
	if err := ValidateHour(resetHour); err != nil {
		return time.Time{}, err
	}
	return shift(c, periodStart.UTC(), 1, "period.next_reset")
}

// Elapsed returns how many whole periods separate periodStart from now, that
// is the largest n with NextReset applied n times still at or before now.
// It is zero when now is inside the period starting at periodStart.
func Elapsed(c epoch.Cadence, resetHour int, periodStart, now time.Time) (int64, error) {
	const op = "period.elapsed"
	if !c.Resets() {
		return 0, epoch.NewKind(op, epoch.ErrInvalidCadence)
	}
	if err := ValidateHour(resetHour); err != nil {
		return 0, err
	}
	periodStart, now = periodStart.UTC(), now.UTC()
	if now.Before(periodStart) {
		return 0, nil
	}

	switch c {
	case epoch.Daily:
		return wholeUnits(periodStart, now, day), nil
	case epoch.Weekly:
		return wholeUnits(periodStart, now, week), nil
	default:
		return elapsedMonths(periodStart, now), nil
	}
}

// wholeUnits counts whole units between start and now in seconds, since a
// time.Duration saturates after roughly 292 years.
func wholeUnits(start, now time.Time, unit time.Duration) int64 {
	secs := now.Unix() - start.Unix()
	if now.Nanosecond() < start.Nanosecond() {
		secs--
	}
	return secs / int64(unit/time.Second)
}

// elapsedMonths estimates from the calendar fields and then corrects by
// stepping; the correction never runs more than once in either direction.
func elapsedMonths(start, now time.Time) int64 {
	sy, sm, _ := start.Date()
	ny, nm, _ := now.Date()
	n := (ny-sy)*12 + int(nm-sm)
	for n > 0 && start.AddDate(0, n, 0).After(now) {
		n--
	}
	for !start.AddDate(0, n+1, 0).After(now) {
		n++
	}
	return int64(n)
}

// StartForVersion returns the period start of targetVersion by walking back
// from the state's current period start. Versions above the current one, and
// versions below the first, are rejected with ErrInvalidVersionRange.
func StartForVersion(s epoch.State, targetVersion int64) (time.Time, error) {
	const op = "period.start_for_version"
	if !s.Cadence.Resets() {
		return time.Time{}, epoch.NewKind(op, epoch.ErrInvalidCadence)
	}
	if targetVersion > s.CurrentVersion || targetVersion < epoch.FirstVersion {
		return time.Time{}, epoch.NewKind(op, epoch.ErrInvalidVersionRange)
	}
	if s.CurrentPeriodStart == nil {
		return time.Time{}, epoch.WrapKind(op, epoch.ErrInvalidCadence, errMissingStart)
	}
	return shift(s.Cadence, s.CurrentPeriodStart.UTC(), -(s.CurrentVersion - targetVersion), op)
}

// NewState builds the epoch record of a leaderboard created at createdAt:
// version 1, anchored to the boundary containing the creation instant.
func NewState(id string, c epoch.Cadence, resetHour int, createdAt time.Time) (epoch.State, error) {
	s := epoch.State{
		LeaderboardID:  id,
		Cadence:        c,
		CurrentVersion: epoch.FirstVersion,
	}
	if !c.Resets() {
		if c != epoch.None {
			return epoch.State{}, epoch.NewKind("period.new_state", epoch.ErrInvalidCadence)
		}
		return s, nil
	}
	start, err := Start(c, resetHour, createdAt)
	if err != nil {
		return epoch.State{}, err
	}
	s.ResetHour = resetHour
	s.CurrentPeriodStart = &start
	return s, nil
}

// shift moves a boundary by units whole periods, forward or backward.
func shift(c epoch.Cadence, t time.Time, units int64, op string) (time.Time, error) {
	switch c {
	case epoch.Daily:
		return t.AddDate(0, 0, int(units)), nil
	case epoch.Weekly:
		return t.AddDate(0, 0, 7*int(units)), nil
	case epoch.Monthly:
		// Boundaries sit on day 1, so month arithmetic never normalizes
		// into a different month.
		return t.AddDate(0, int(units), 0), nil
	default:
		return time.Time{}, epoch.NewKind(op, epoch.ErrInvalidCadence)
	}
}
