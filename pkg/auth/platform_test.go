package auth

import (
	"strings"
	"testing"
)

func TestResolvePlatform(t *testing.T) {
	for _, code := range []string{"qg1", "qg2", "qg3", "qg4"} {
		p, err := ResolvePlatform(code)
		if err != nil {
			t.Fatalf("ResolvePlatform(%q) error = %v", code, err)
		}
		if p.Code != code {
			t.Errorf("Code = %q, want %q", p.Code, code)
		}
		if !strings.Contains(p.APIURL, "qualysapi."+code) {
			t.Errorf("APIURL = %q, want the %s api host", p.APIURL, code)
		}
		if !strings.Contains(p.GatewayURL, "gateway."+code) {
			t.Errorf("GatewayURL = %q, want the %s gateway host", p.GatewayURL, code)
		}
	}
}

func TestResolvePlatformUnknown(t *testing.T) {
	if _, err := ResolvePlatform("qg9"); err == nil {
		t.Errorf("ResolvePlatform(qg9) = nil error, want failure")
	}
}

func TestOverride(t *testing.T) {
	p := Override("private", "https://api.corp.internal", "https://gw.corp.internal")
	if p.Code != "private" || p.APIURL != "https://api.corp.internal" || p.GatewayURL != "https://gw.corp.internal" {
		t.Errorf("Override() = %+v", p)
	}
}
