// Package testutil provides testing utilities for the Qualys client.
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockQualys is a configurable mock Qualys platform for testing. It serves
// both the api and gateway roles from one address; point the platform
// override's APIURL and GatewayURL at URL().
type MockQualys struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount int
	LoginCount   int
	Requests     []*http.Request
	LoginToken   string
}

// NewMockQualys creates a mock server with a default /auth login handler.
func NewMockQualys() *MockQualys {
	mock := &MockQualys{
		handlers:   make(map[string]http.HandlerFunc),
		LoginToken: "test-jwt-token",
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Snapshot the body so recorded requests stay readable after the
		// server closes the original stream.
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		recorded := r.Clone(r.Context())
		recorded.Body = io.NopCloser(bytes.NewReader(body))

		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, recorded)
		if r.URL.Path == "/auth" {
			mock.LoginCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockQualys) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockQualys) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockQualys) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LoginCount = 0
	m.Requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockQualys) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockQualys) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			fmt.Fprint(w, resp.Body)
		}
	})
}

// SetSequence serves the given responses in order for a path, repeating the
// last one once the sequence is exhausted.
func (m *MockQualys) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	i := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[i]
		if i < len(responses)-1 {
			i++
		}
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			fmt.Fprint(w, resp.Body)
		}
	})
}

// GetRequestCount returns the number of requests served.
func (m *MockQualys) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLoginCount returns the number of /auth login calls served.
func (m *MockQualys) GetLoginCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LoginCount
}

// RequestsTo returns the recorded requests whose path matches.
func (m *MockQualys) RequestsTo(path string) []*http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*http.Request
	for _, r := range m.Requests {
		if r.URL.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// defaultHandler serves a login on /auth and an empty listing elsewhere, with
// healthy rate limit headers.
func (m *MockQualys) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-RateLimit-Limit", "300")
	w.Header().Set("X-RateLimit-Remaining", "295")
	w.Header().Set("X-RateLimit-Window-Sec", "3600")
	w.Header().Set("X-Concurrency-Limit-Limit", "10")

	if r.URL.Path == "/auth" {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, m.LoginToken)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"data":[]}`)
}

// XMLPage renders a host-list page. nextIDMin, when non-zero, adds the
// truncation warning carrying the next-page URL.
func XMLPage(firstID, lastID, nextIDMin int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><HOST_LIST_OUTPUT><RESPONSE><HOST_LIST>`)
	for id := firstID; id <= lastID; id++ {
		fmt.Fprintf(&b, "<HOST><ID>%d</ID><IP>10.0.%d.%d</IP></HOST>", id, id/256, id%256)
	}
	b.WriteString(`</HOST_LIST>`)
	if nextIDMin > 0 {
		fmt.Fprintf(&b,
			`<WARNING><CODE>1980</CODE><URL><![CDATA[https://qualysapi.example.com/api/2.0/fo/asset/host/?action=list&id_min=%d]]></URL></WARNING>`,
			nextIDMin)
	}
	b.WriteString(`</RESPONSE></HOST_LIST_OUTPUT>`)
	return b.String()
}

// JSONPage renders a flat JSON listing envelope with ids in [firstID, lastID].
func JSONPage(firstID, lastID int) string {
	var items []string
	for id := firstID; id <= lastID; id++ {
		items = append(items, fmt.Sprintf(`{"id":%d,"name":"asset-%d"}`, id, id))
	}
	return fmt.Sprintf(`{"data":[%s],"count":%d}`, strings.Join(items, ","), lastID-firstID+1)
}
