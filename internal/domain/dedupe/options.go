package dedupe

// Option configures the in-memory Deduper.
type Option func(*inFlight)

// WithMaxSize bounds the number of recorded keys. Zero or a negative value
// leaves the set unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inFlight) {
		d.maxSize = maxSize
	}
}
