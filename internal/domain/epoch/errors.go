package epoch

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. These allow errors.Is from callers.
var (
	// ErrInvalidCadence indicates a cadence the period calculator cannot use.
	ErrInvalidCadence = errors.New("invalid cadence")
	// ErrInvalidResetHour indicates a reset hour outside 0..23.
	ErrInvalidResetHour = errors.New("invalid reset hour")
	// ErrInvalidVersionRange indicates a historical lookup past the current version.
	ErrInvalidVersionRange = errors.New("invalid version range")
	// ErrStoreUnavailable indicates the epoch record could not be read or written.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrReapFailure indicates a retention delete failed. Never returned to resolve callers.
	ErrReapFailure = errors.New("reap failure")
	// ErrNotFound indicates the leaderboard has no epoch state.
	ErrNotFound = errors.New("leaderboard not found")
)

// Error carries the failing operation alongside a sentinel kind and an
// optional underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an operation error of the given kind.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind returns an operation error of the given kind wrapping err.
// A nil err yields nil.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
