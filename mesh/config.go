package mesh

import "time"

// Config holds the engine's tunable constants, all matching the wire
// protocol's and retry policy's documented defaults.
type Config struct {
	// TTL is the hop budget a freshly sent envelope starts with.
	TTL uint8
	// RetryBase is the base duration of the retry queue's exponential
	// backoff (base * 2^attempts).
	RetryBase time.Duration
	// MaxAttempts is the number of retry-queue executions, after the
	// initial send attempt, before a message is marked failed and
	// evicted. The initial send does not count against it, so
	// MaxAttempts: 3 means up to 4 transmission attempts in total.
	MaxAttempts int
	// TickInterval is how often the retry queue and duplicate cache are
	// swept.
	TickInterval time.Duration
	// MaxTextLength bounds message text length in Unicode scalar
	// values.
	MaxTextLength int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		TTL:           10,
		RetryBase:     time.Second,
		MaxAttempts:   3,
		TickInterval:  time.Second,
		MaxTextLength: 500,
	}
}
