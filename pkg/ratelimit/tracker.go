package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	callsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qualys_rate_limit_remaining",
		Help: "Calls remaining in the current Qualys rate limit window",
	})

	concurrencyLimit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qualys_concurrency_limit",
		Help: "Concurrent connection limit advertised by Qualys",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qualys_rate_limit_blocks_total",
		Help: "Total requests delayed until the rate limit window reset",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qualys_rate_limit_throttles_total",
		Help: "Total requests throttled by the pacer near the window limit",
	})
)

// Tracker caches the most recently seen rate-limit headers for one credential
// and paces outgoing requests against the advertised window. Writers hold the
// mutex only across the snapshot swap; readers accept momentarily stale data.
type Tracker struct {
	logger zerolog.Logger

	mu    sync.Mutex
	state State
	pacer *rate.Limiter
}

// NewTracker creates a tracker with no observed state; until headers arrive
// every request is allowed unpaced.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		logger: logger,
		pacer:  rate.NewLimiter(rate.Inf, 1),
	}
}

// State returns the latest snapshot.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// UpdateFromHeaders parses the Qualys rate-limit headers off a response and
// replaces the cached snapshot. Responses without the headers are ignored.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	limitStr := headers.Get("X-RateLimit-Limit")
	if limitStr == "" {
		return nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Limit: %w", err)
	}

	state := State{Limit: limit, LastUpdate: time.Now()}

	if v := headers.Get("X-RateLimit-Remaining"); v != "" {
		if state.Remaining, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("parse X-RateLimit-Remaining: %w", err)
		}
	}
	if v := headers.Get("X-RateLimit-Window-Sec"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-Window-Sec: %w", err)
		}
		state.Window = time.Duration(sec) * time.Second
	}
	if v := headers.Get("X-RateLimit-ToWait-Sec"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-ToWait-Sec: %w", err)
		}
		state.ToWait = time.Duration(sec) * time.Second
	}
	if v := headers.Get("X-Concurrency-Limit-Limit"); v != "" {
		if state.ConcurrencyLimit, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("parse X-Concurrency-Limit-Limit: %w", err)
		}
	}
	if v := headers.Get("X-Concurrency-Limit-Running"); v != "" {
		if state.ConcurrencyRunning, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("parse X-Concurrency-Limit-Running: %w", err)
		}
	}

	t.mu.Lock()
	t.state = state
	t.retunePacer(state)
	t.mu.Unlock()

	callsRemaining.Set(float64(state.Remaining))
	if state.ConcurrencyLimit > 0 {
		concurrencyLimit.Set(float64(state.ConcurrencyLimit))
	}

	event := t.logger.Debug()
	if state.NeedsBlock() {
		event = t.logger.Warn()
	}
	event.
		Int("remaining", state.Remaining).
		Int("limit", state.Limit).
		Dur("window", state.Window).
		Int("concurrency_limit", state.ConcurrencyLimit).
		Msg("Rate limit state updated")

	return nil
}

// retunePacer derives a request rate from the remaining window allowance.
// Called with t.mu held.
func (t *Tracker) retunePacer(state State) {
	if !state.NeedsThrottling() || state.Window <= 0 {
		t.pacer.SetLimit(rate.Inf)
		return
	}
	// Spread the remaining allowance across the window rather than burning
	// it immediately and stalling at the boundary.
	perSecond := float64(state.Remaining) / state.Window.Seconds()
	if perSecond <= 0 {
		perSecond = 1.0 / state.Window.Seconds()
	}
	t.pacer.SetLimit(rate.Limit(perSecond))
}

// Wait gates a request: it blocks while the window is exhausted, paces near
// the limit, and returns immediately in the healthy state. The context bounds
// every sleep.
func (t *Tracker) Wait(ctx context.Context) error {
	state := t.State()

	if state.NeedsBlock() {
		wait := state.ToWait
		if wait <= 0 {
			wait = state.Window
		}
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("wait", wait).
			Msg("Rate limit exhausted, holding request until window reset")
		rateLimitBlocksTotal.Inc()

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		return nil
	}

	if state.NeedsThrottling() {
		rateLimitThrottlesTotal.Inc()
	}
	return t.pacer.Wait(ctx)
}

// ConcurrencyCap returns the advertised concurrent-connection limit, or 0
// when no limit has been observed yet.
func (t *Tracker) ConcurrencyCap() int {
	return t.State().ConcurrencyLimit
}
