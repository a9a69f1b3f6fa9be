// Package ratelimit caches the Qualys rate-limit response headers and gates
// outgoing requests. The classic API meters calls per rolling window and
// concurrent connections per credential; both limits arrive as X-RateLimit-*
// and X-Concurrency-Limit-* headers on every response. The concurrency engine
// consults the cached snapshot before sizing its worker pool.
package ratelimit

import "time"

// Thresholds for gating decisions.
const (
	// WarningFraction throttles requests once the remaining allowance drops
	// below this share of the window limit.
	WarningFraction = 0.2

	// CriticalRemaining blocks requests outright when at most this many
	// calls remain in the window.
	CriticalRemaining = 2
)

// State is a snapshot of the most recently seen rate-limit headers.
type State struct {
	// Limit is the total calls allowed per window (X-RateLimit-Limit).
	Limit int

	// Remaining is the calls left in the current window (X-RateLimit-Remaining).
	Remaining int

	// Window is the rolling window length (X-RateLimit-Window-Sec).
	Window time.Duration

	// ToWait is the server-suggested wait before the next call
	// (X-RateLimit-ToWait-Sec).
	ToWait time.Duration

	// ConcurrencyLimit is the allowed parallel connections
	// (X-Concurrency-Limit-Limit). Zero means the header was never seen.
	ConcurrencyLimit int

	// ConcurrencyRunning is the currently open connections
	// (X-Concurrency-Limit-Running).
	ConcurrencyRunning int

	// LastUpdate is when this snapshot was taken.
	LastUpdate time.Time
}

// IsStale reports whether the snapshot is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsBlock reports whether requests should pause until the window resets.
func (s *State) NeedsBlock() bool {
	return s.Limit > 0 && s.Remaining <= CriticalRemaining
}

// NeedsThrottling reports whether requests should be paced down.
func (s *State) NeedsThrottling() bool {
	if s.Limit == 0 || s.NeedsBlock() {
		return false
	}
	return float64(s.Remaining) < float64(s.Limit)*WarningFraction
}
