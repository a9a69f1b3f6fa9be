// Package client implements the request dispatcher: the single path every
// Qualys call takes. Given a credential handle and a (module, endpoint) pair
// it applies the registry schema, validates parameters against the
// descriptor's allow-lists, composes the URL, renders the body, attaches
// credentials, and executes the call with retry and backoff. Pagination and
// sharding build on top of it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/mholtzmann/qualys-api-client/pkg/auth"
	"github.com/mholtzmann/qualys-api-client/pkg/cache"
	"github.com/mholtzmann/qualys-api-client/pkg/decode"
	"github.com/mholtzmann/qualys-api-client/pkg/logging"
	"github.com/mholtzmann/qualys-api-client/pkg/registry"
)

// Prometheus metrics for dispatcher operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qualys_requests_total",
		Help: "Total Qualys requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qualys_request_duration_seconds",
		Help:    "Qualys request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qualys_errors_total",
		Help: "Total Qualys errors by class",
	}, []string{"class"})
)

// RequestedWith is the stable client identification header value.
const RequestedWith = "qualys-api-client"

const maxResponseBody = 512 * 1024 * 1024 // listings can be large

// Config holds the dispatcher configuration.
type Config struct {
	// Credentials is the credential handle. Required.
	Credentials auth.Credentials

	// HTTPClient overrides the shared HTTP client.
	HTTPClient *http.Client

	// Cache enables the optional Redis-backed response cache for GET calls.
	Cache *cache.Manager

	// Retry overrides the default retry policy.
	Retry RetryConfig

	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// Client is the request dispatcher.
type Client struct {
	creds     auth.Credentials
	http      *http.Client
	cache     *cache.Manager
	retry     RetryConfig
	userAgent string
	logger    zerolog.Logger
}

// New creates a dispatcher.
func New(cfg Config) (*Client, error) {
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("credentials are required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = RequestedWith + "/1.0"
	}

	return &Client{
		creds:     cfg.Credentials,
		http:      httpClient,
		cache:     cfg.Cache,
		retry:     retry,
		userAgent: userAgent,
		logger:    logging.NewLogger("dispatcher"),
	}, nil
}

// Credentials returns the credential handle the dispatcher was built with.
func (c *Client) Credentials() auth.Credentials { return c.creds }

// CallOptions carries the per-call inputs.
type CallOptions struct {
	// Params are caller parameters routed to the query string or the body
	// according to the descriptor's allow-lists. The reserved name
	// "placeholder" fills the {placeholder} path segment.
	Params map[string]string

	// Body are caller parameters destined for the request body. Routed
	// through the same allow-list validation as Params.
	Body map[string]any

	// Headers are extra request headers.
	Headers http.Header

	// Method overrides the descriptor's method when it lists more than one.
	Method string

	// FailOnError converts 4xx/5xx responses into RemoteError instead of
	// returning them raw.
	FailOnError bool
}

// Response is the raw result of a dispatched call.
type Response struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string

	encoding registry.ResponseEncoding
}

// IsError reports whether the response carries an HTTP error status.
func (r *Response) IsError() bool { return r.StatusCode >= 400 }

// Decode parses the body per the endpoint's response encoding. Binary
// responses are returned as raw bytes; callers inspect ContentType.
func (r *Response) Decode() (any, error) {
	switch r.encoding {
	case registry.ResponseJSON:
		return decode.JSON(r.Body)
	case registry.ResponseXML:
		m, err := decode.XML(r.Body)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return r.Body, nil
	}
}

// Call dispatches one request for (module, endpoint).
func (c *Client) Call(ctx context.Context, module, endpoint string, opts CallOptions) (*Response, error) {
	desc, ok := registry.Lookup(module, endpoint)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownEndpoint, module, endpoint)
	}

	method, err := resolveMethod(desc, opts.Method)
	if err != nil {
		return nil, err
	}

	query, body, placeholder, err := partitionParams(desc, opts)
	if err != nil {
		return nil, err
	}

	reqURL, err := c.composeURL(desc, placeholder, query)
	if err != nil {
		return nil, err
	}

	bodyBytes, contentType, err := renderBody(desc, body)
	if err != nil {
		return nil, err
	}

	// Preemptive token refresh when the holder outlived the lifetime.
	if r, ok := c.creds.(auth.Refresher); ok && r.NeedsRefresh() {
		c.logger.Debug().Str("endpoint", endpoint).Msg("Token past lifetime, refreshing before call")
		if err := r.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
	}

	cacheKey, cached := c.cacheLookup(ctx, method, desc, reqURL)
	if cached != nil {
		return cached, nil
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(module + "." + endpoint).Observe(time.Since(start).Seconds())
	}()

	var resp *Response
	retryErr := retryWithBackoff(ctx, c.retry, func() error {
		var doErr error
		resp, doErr = c.doOnce(ctx, method, reqURL, bodyBytes, contentType, desc, opts.Headers)
		if doErr != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(module+"."+endpoint, "network_error").Inc()
			return doErr
		}

		requestsTotal.WithLabelValues(module+"."+endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		// One refresh-and-retry on 401 before the backoff loop sees it.
		if resp.StatusCode == http.StatusUnauthorized {
			if r, ok := c.creds.(auth.Refresher); ok {
				c.logger.Warn().Str("endpoint", endpoint).Msg("401 received, refreshing token once")
				if refreshErr := r.Refresh(ctx); refreshErr != nil {
					return fmt.Errorf("%w: %v", ErrTokenExpired, refreshErr)
				}
				resp, doErr = c.doOnce(ctx, method, reqURL, bodyBytes, contentType, desc, opts.Headers)
				if doErr != nil {
					return doErr
				}
				requestsTotal.WithLabelValues(module+"."+endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
			}
		}

		class := classify(resp.StatusCode, nil)
		if shouldRetry(class) {
			errorsTotal.WithLabelValues(string(class)).Inc()
			return &RemoteError{Module: module, Endpoint: endpoint, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil
	}, func(err error) ErrorClass {
		var re *RemoteError
		if errors.As(err, &re) {
			return classify(re.StatusCode, nil)
		}
		if errors.Is(err, ErrTokenExpired) {
			return ErrorClassAuth
		}
		return ErrorClassNetwork
	})

	if retryErr != nil {
		if errors.Is(retryErr, ErrTokenExpired) {
			return nil, retryErr
		}
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return nil, &RateLimitedError{
				Module:     module,
				Endpoint:   endpoint,
				RetryAfter: c.creds.Limits().State().ToWait,
			}
		}
		return nil, &TransportError{Module: module, Endpoint: endpoint, Err: retryErr}
	}

	if resp.IsError() {
		if resp.StatusCode == http.StatusUnauthorized {
			errorsTotal.WithLabelValues(string(ErrorClassAuth)).Inc()
			return nil, fmt.Errorf("%w: %s.%s still unauthorized after refresh", auth.ErrAuthenticationFailed, module, endpoint)
		}
		if opts.FailOnError {
			return nil, parseRemoteError(module, endpoint, resp)
		}
		return resp, nil
	}

	c.cacheStore(ctx, cacheKey, resp)
	return resp, nil
}

// doOnce executes a single HTTP round trip.
func (c *Client) doOnce(ctx context.Context, method, reqURL string, body []byte, contentType string, desc *registry.Descriptor, extra http.Header) (*Response, error) {
	if err := c.creds.Limits().Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("X-Requested-With", RequestedWith)
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	if err := c.creds.Apply(req); err != nil {
		return nil, err
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if err := c.creds.Limits().UpdateFromHeaders(httpResp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to parse rate limit headers")
	}

	return &Response{
		StatusCode:  httpResp.StatusCode,
		Headers:     httpResp.Header,
		Body:        data,
		ContentType: httpResp.Header.Get("Content-Type"),
		encoding:    responseEncoding(desc, httpResp.Header),
	}, nil
}

// responseEncoding resolves the effective encoding: binary descriptors infer
// the concrete format from the Content-Type header.
func responseEncoding(desc *registry.Descriptor, headers http.Header) registry.ResponseEncoding {
	if desc.ResponseEncoding != registry.ResponseBinary {
		return desc.ResponseEncoding
	}
	ct := headers.Get("Content-Type")
	switch {
	case strings.Contains(ct, "xml"):
		return registry.ResponseXML
	case strings.Contains(ct, "json"):
		return registry.ResponseJSON
	default:
		return registry.ResponseBinary
	}
}

// resolveMethod picks the HTTP method: the override when given and allowed,
// otherwise the descriptor's first (or only) method.
func resolveMethod(desc *registry.Descriptor, override string) (string, error) {
	if override == "" {
		return desc.Methods[0], nil
	}
	if !desc.AllowsMethod(override) {
		return "", fmt.Errorf("%w: %s on %s.%s", ErrMethodNotAllowed, override, desc.Module, desc.Endpoint)
	}
	return override, nil
}

// partitionParams routes caller parameters to the query string or the body
// per the descriptor's allow-lists. A name both lists accept goes to the body
// when the endpoint has a body encoding. The reserved "placeholder" name is
// consumed for path substitution and never transmitted.
func partitionParams(desc *registry.Descriptor, opts CallOptions) (url.Values, map[string]any, string, error) {
	query := url.Values{}
	body := make(map[string]any)
	placeholder := ""

	route := func(name string, value any) error {
		if name == registry.PlaceholderParam {
			placeholder = fmt.Sprintf("%v", value)
			return nil
		}
		inBody := desc.AllowsBodyParam(name) && desc.BodyEncoding != registry.BodyNone
		inQuery := desc.AllowsQueryParam(name)
		switch {
		case inBody:
			body[name] = value
		case inQuery:
			query.Set(name, fmt.Sprintf("%v", value))
		default:
			return fmt.Errorf("%w: %q not accepted by %s.%s", ErrUnknownParameter, name, desc.Module, desc.Endpoint)
		}
		return nil
	}

	// Deterministic routing order keeps error messages stable.
	names := make([]string, 0, len(opts.Params))
	for name := range opts.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := route(name, opts.Params[name]); err != nil {
			return nil, nil, "", err
		}
	}

	names = names[:0]
	for name := range opts.Body {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := route(name, opts.Body[name]); err != nil {
			return nil, nil, "", err
		}
	}

	return query, body, placeholder, nil
}

// composeURL selects the base URL per the descriptor's url_kind, renders the
// path template, and assembles the query string.
func (c *Client) composeURL(desc *registry.Descriptor, placeholder string, query url.Values) (string, error) {
	platform := c.creds.Platform()
	base := platform.APIURL
	if desc.URLKind == registry.URLGateway {
		base = platform.GatewayURL
	}

	path := desc.Path
	if strings.Contains(path, "{"+registry.PlaceholderParam+"}") {
		if placeholder == "" {
			return "", fmt.Errorf("%w: %s.%s requires the placeholder parameter",
				ErrUnknownParameter, desc.Module, desc.Endpoint)
		}
		path = strings.Replace(path, "{"+registry.PlaceholderParam+"}", url.PathEscape(placeholder), 1)
	}

	full := strings.TrimSuffix(base, "/") + path
	if encoded := query.Encode(); encoded != "" {
		full += "?" + encoded
	}
	return full, nil
}

// renderBody serializes body parameters per the descriptor's encoding.
func renderBody(desc *registry.Descriptor, body map[string]any) ([]byte, string, error) {
	if len(body) == 0 {
		return nil, "", nil
	}

	switch desc.BodyEncoding {
	case registry.BodyForm:
		form := url.Values{}
		for k, v := range body {
			form.Set(k, fmt.Sprintf("%v", v))
		}
		return []byte(form.Encode()), "application/x-www-form-urlencoded", nil

	case registry.BodyJSON:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("marshal body: %w", err)
		}
		return data, "application/json", nil

	case registry.BodyXMLEmbedded:
		raw, ok := body[registry.XMLBodyParam]
		if !ok {
			return nil, "", fmt.Errorf("%w: %s.%s requires %q",
				ErrUnknownParameter, desc.Module, desc.Endpoint, registry.XMLBodyParam)
		}
		switch doc := raw.(type) {
		case string:
			return []byte(doc), "text/xml", nil
		case []byte:
			return doc, "text/xml", nil
		default:
			return nil, "", fmt.Errorf("%s must be an XML document string", registry.XMLBodyParam)
		}

	default:
		return nil, "", fmt.Errorf("%s.%s accepts no body", desc.Module, desc.Endpoint)
	}
}

// cacheLookup consults the optional response cache for idempotent GET calls.
func (c *Client) cacheLookup(ctx context.Context, method string, desc *registry.Descriptor, reqURL string) (string, *Response) {
	if c.cache == nil || method != http.MethodGet {
		return "", nil
	}
	key := cache.Key(desc.Module, desc.Endpoint, reqURL)
	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		if err != cache.ErrMiss {
			c.logger.Warn().Err(err).Msg("Cache get error")
		}
		return key, nil
	}
	c.logger.Debug().Str("key", key).Msg("Response served from cache")
	return key, &Response{
		StatusCode:  entry.StatusCode,
		Headers:     entry.Headers,
		Body:        entry.Data,
		ContentType: entry.Headers.Get("Content-Type"),
		encoding:    desc.ResponseEncoding,
	}
}

// cacheStore saves a successful response under the key cacheLookup produced.
func (c *Client) cacheStore(ctx context.Context, key string, resp *Response) {
	if c.cache == nil || key == "" || resp.StatusCode != http.StatusOK {
		return
	}
	entry := &cache.Entry{
		Data:       resp.Body,
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		CachedAt:   time.Now(),
	}
	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
	}
}

// parseRemoteError decodes the error envelope of a failed response.
func parseRemoteError(module, endpoint string, resp *Response) error {
	re := &RemoteError{Module: module, Endpoint: endpoint, StatusCode: resp.StatusCode}

	switch resp.encoding {
	case registry.ResponseXML:
		if m, err := decode.XML(resp.Body); err == nil {
			// SIMPLE_RETURN/RESPONSE/{CODE,TEXT}
			if sr, ok := dig(m, "SIMPLE_RETURN", "RESPONSE").(map[string]any); ok {
				re.Code, _ = sr["CODE"].(string)
				re.Message, _ = sr["TEXT"].(string)
			}
			// ServiceResponse/responseErrorDetails/errorMessage
			if re.Message == "" {
				if msg, ok := dig(m, "ServiceResponse", "responseErrorDetails", "errorMessage").(string); ok {
					re.Message = msg
				}
			}
		}
	case registry.ResponseJSON:
		if v, err := decode.JSON(resp.Body); err == nil {
			if m, ok := v.(map[string]any); ok {
				if errObj, ok := m["_error"].(map[string]any); ok {
					if code, ok := errObj["errorCode"]; ok {
						re.Code = fmt.Sprintf("%v", code)
					}
					if msg, ok := errObj["message"].(string); ok {
						re.Message = msg
					}
				}
				if re.Message == "" {
					if msg, ok := dig(m, "ServiceResponse", "responseErrorDetails", "errorMessage").(string); ok {
						re.Message = msg
					}
				}
			}
		}
	}

	if re.Message == "" {
		re.Message = http.StatusText(resp.StatusCode)
	}
	return re
}

// dig walks nested string-keyed maps.
func dig(v any, path ...string) any {
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}
