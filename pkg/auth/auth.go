// Package auth holds identity material for the Qualys APIs: HTTP Basic
// credentials for the classic host and short-lived JWT bearer tokens for the
// gateway. The token store performs the login POST itself and re-runs it on
// Refresh; the dispatcher decides when a refresh is due.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mholtzmann/qualys-api-client/pkg/ratelimit"
)

// ErrAuthenticationFailed is returned when login is rejected or credentials
// are refused with no recovery.
var ErrAuthenticationFailed = errors.New("authentication failed")

// DefaultTokenLifetime is the assumed validity of a gateway JWT. The service
// states 4 hours; staying below that avoids racing the expiry.
const DefaultTokenLifetime = 3*time.Hour + 30*time.Minute

// Credentials attaches identity material to outgoing requests. Exactly one
// mode per value.
type Credentials interface {
	// Apply attaches the credential to req.
	Apply(req *http.Request) error

	// Platform returns the resolved base URL pair.
	Platform() Platform

	// Limits returns the rate-limit snapshot cache fed from response headers.
	Limits() *ratelimit.Tracker
}

// Refresher is implemented by credentials whose material can expire.
type Refresher interface {
	// Refresh re-acquires the credential material.
	Refresh(ctx context.Context) error

	// NeedsRefresh reports whether the material should be re-acquired before
	// the next call.
	NeedsRefresh() bool
}

// Basic is the HTTP Basic credential for classic API endpoints. Construction
// performs no network activity.
type Basic struct {
	Username string

	platform Platform
	password string
	limits   *ratelimit.Tracker
}

// NewBasic builds a Basic credential for the given platform.
func NewBasic(username, password string, platform Platform) *Basic {
	return &Basic{
		Username: username,
		password: password,
		platform: platform,
		limits:   ratelimit.NewTracker(log.With().Str("component", "ratelimit").Logger()),
	}
}

// Apply implements Credentials.
func (b *Basic) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.password)
	return nil
}

// Platform implements Credentials.
func (b *Basic) Platform() Platform { return b.platform }

// Limits implements Credentials.
func (b *Basic) Limits() *ratelimit.Tracker { return b.limits }

// String renders the credential without password material.
func (b *Basic) String() string {
	return fmt.Sprintf("Basic(%s@%s)", b.Username, b.platform.Code)
}

// Token is the bearer-token credential for gateway endpoints. Construction
// performs a blocking login POST; the token and its issuance time are cached
// and re-acquired via Refresh.
type Token struct {
	Username string

	platform Platform
	password string
	limits   *ratelimit.Tracker
	client   *http.Client
	logger   zerolog.Logger

	// Lifetime after which NeedsRefresh reports true. Preemptive refresh is
	// optional; zero disables the age check and the holder relies on the
	// dispatcher's 401-and-retry path.
	lifetime time.Duration

	mu       sync.Mutex
	token    string
	issuedAt time.Time
}

// TokenOption configures a Token credential.
type TokenOption func(*Token)

// WithHTTPClient sets the HTTP client used for login calls.
func WithHTTPClient(c *http.Client) TokenOption {
	return func(t *Token) { t.client = c }
}

// WithLifetime enables preemptive refresh once the token is older than d.
func WithLifetime(d time.Duration) TokenOption {
	return func(t *Token) { t.lifetime = d }
}

// NewToken builds a Token credential and performs the initial login.
func NewToken(ctx context.Context, username, password string, platform Platform, opts ...TokenOption) (*Token, error) {
	t := &Token{
		Username: username,
		password: password,
		platform: platform,
		limits:   ratelimit.NewTracker(log.With().Str("component", "ratelimit").Logger()),
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   log.With().Str("component", "auth").Str("platform", platform.Code).Logger(),
		lifetime: DefaultTokenLifetime,
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.Refresh(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Refresh re-runs the gateway login and replaces the cached token.
func (t *Token) Refresh(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", t.Username)
	form.Set("password", t.password)
	form.Set("token", "true")
	form.Set("permissions", "true")

	loginURL := strings.TrimSuffix(t.platform.GatewayURL, "/") + "/auth"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: login: %v", ErrAuthenticationFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read login response: %v", ErrAuthenticationFailed, err)
	}

	// The gateway answers 201 with the raw JWT as the body.
	if resp.StatusCode != http.StatusCreated {
		t.logger.Warn().Int("status", resp.StatusCode).Msg("Gateway login rejected")
		return fmt.Errorf("%w: login status %d", ErrAuthenticationFailed, resp.StatusCode)
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return fmt.Errorf("%w: empty token body", ErrAuthenticationFailed)
	}

	t.mu.Lock()
	t.token = token
	t.issuedAt = time.Now()
	t.mu.Unlock()

	t.logger.Debug().Msg("Gateway token acquired")
	return nil
}

// NeedsRefresh reports whether the token has outlived its lifetime.
func (t *Token) NeedsRefresh() bool {
	if t.lifetime <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token == "" || time.Since(t.issuedAt) >= t.lifetime
}

// Apply implements Credentials.
func (t *Token) Apply(req *http.Request) error {
	t.mu.Lock()
	token := t.token
	t.mu.Unlock()
	if token == "" {
		return fmt.Errorf("%w: no token held", ErrAuthenticationFailed)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Platform implements Credentials.
func (t *Token) Platform() Platform { return t.platform }

// Limits implements Credentials.
func (t *Token) Limits() *ratelimit.Tracker { return t.limits }

// IssuedAt returns the issuance time of the held token.
func (t *Token) IssuedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.issuedAt
}

// String renders the credential without password or token material.
func (t *Token) String() string {
	return fmt.Sprintf("Token(%s@%s)", t.Username, t.platform.Code)
}
