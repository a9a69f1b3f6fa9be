package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func loginServer(t *testing.T, token string) (*httptest.Server, *int) {
	t.Helper()
	logins := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("username") != "apiuser" || r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.PostForm.Get("token") != "true" || r.PostForm.Get("permissions") != "true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		logins++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, token)
	}))
	t.Cleanup(server.Close)
	return server, &logins
}

func TestBasicApply(t *testing.T) {
	platform := Override("test", "https://api.example.com", "https://gw.example.com")
	creds := NewBasic("apiuser", "secret", platform)

	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/", nil)
	if err := creds.Apply(req); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	user, pass, ok := req.BasicAuth()
	if !ok || user != "apiuser" || pass != "secret" {
		t.Errorf("basic auth = %q/%q (%v)", user, pass, ok)
	}
}

func TestBasicStringRedactsPassword(t *testing.T) {
	creds := NewBasic("apiuser", "hunter2", Override("qg1", "a", "b"))
	if s := creds.String(); strings.Contains(s, "hunter2") {
		t.Errorf("String() = %q leaks the password", s)
	}
}

func TestNewTokenPerformsLogin(t *testing.T) {
	server, logins := loginServer(t, "jwt-abc")
	platform := Override("test", server.URL, server.URL)

	creds, err := NewToken(context.Background(), "apiuser", "secret", platform)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	if *logins != 1 {
		t.Errorf("logins = %d, want 1", *logins)
	}

	req := httptest.NewRequest(http.MethodPost, server.URL+"/am/v1/assets/host/list", nil)
	if err := creds.Apply(req); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer jwt-abc" {
		t.Errorf("Authorization = %q, want Bearer jwt-abc", got)
	}
}

func TestNewTokenRejectedLogin(t *testing.T) {
	server, _ := loginServer(t, "jwt-abc")
	platform := Override("test", server.URL, server.URL)

	_, err := NewToken(context.Background(), "apiuser", "wrong", platform)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("NewToken() error = %v, want ErrAuthenticationFailed", err)
	}
}

func TestNewTokenEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()
	platform := Override("test", server.URL, server.URL)

	_, err := NewToken(context.Background(), "apiuser", "secret", platform)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("NewToken() error = %v, want ErrAuthenticationFailed on empty token", err)
	}
}

func TestTokenRefreshReplacesToken(t *testing.T) {
	logins := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, "jwt-%d", logins)
	}))
	defer server.Close()
	platform := Override("test", server.URL, server.URL)

	creds, err := NewToken(context.Background(), "apiuser", "secret", platform)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	first := creds.IssuedAt()

	if err := creds.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if logins != 2 {
		t.Errorf("logins = %d, want 2", logins)
	}
	if creds.IssuedAt().Before(first) {
		t.Errorf("IssuedAt moved backwards after refresh")
	}

	req := httptest.NewRequest(http.MethodGet, server.URL, nil)
	if err := creds.Apply(req); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer jwt-2" {
		t.Errorf("Authorization = %q, want the refreshed token", got)
	}
}

func TestTokenNeedsRefresh(t *testing.T) {
	server, _ := loginServer(t, "jwt-abc")
	platform := Override("test", server.URL, server.URL)

	creds, err := NewToken(context.Background(), "apiuser", "secret", platform,
		WithLifetime(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	if creds.NeedsRefresh() {
		t.Errorf("NeedsRefresh() = true immediately after login")
	}

	time.Sleep(60 * time.Millisecond)
	if !creds.NeedsRefresh() {
		t.Errorf("NeedsRefresh() = false past the lifetime")
	}
}

func TestDefaultTokenLifetimeBelowServiceExpiry(t *testing.T) {
	if DefaultTokenLifetime >= 4*time.Hour {
		t.Errorf("DefaultTokenLifetime = %v, must stay under the 4h service expiry", DefaultTokenLifetime)
	}
}

func TestTokenLifetimeZeroDisablesAgeCheck(t *testing.T) {
	server, _ := loginServer(t, "jwt-abc")
	platform := Override("test", server.URL, server.URL)

	creds, err := NewToken(context.Background(), "apiuser", "secret", platform, WithLifetime(0))
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	if creds.NeedsRefresh() {
		t.Errorf("NeedsRefresh() = true with the age check disabled")
	}
}

func TestTokenStringRedactsMaterial(t *testing.T) {
	server, _ := loginServer(t, "jwt-secret-material")
	platform := Override("test", server.URL, server.URL)

	creds, err := NewToken(context.Background(), "apiuser", "secret", platform)
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	s := creds.String()
	if strings.Contains(s, "secret") || strings.Contains(s, "jwt-secret-material") {
		t.Errorf("String() = %q leaks credential material", s)
	}
}
