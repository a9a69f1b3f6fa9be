package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	viper.Reset()
	SetDefaultConfig()

	s := GetSettings()
	if s.PlatformCode != "qg1" {
		t.Errorf("PlatformCode = %q, want qg1", s.PlatformCode)
	}
	if s.RetryMaxAttempts != 3 {
		t.Errorf("RetryMaxAttempts = %d, want 3", s.RetryMaxAttempts)
	}
	if s.RetryInitialBackoff != 500*time.Millisecond {
		t.Errorf("RetryInitialBackoff = %v, want 500ms", s.RetryInitialBackoff)
	}
	if s.ChunkSize != 3000 || s.Threads != 5 {
		t.Errorf("shard defaults = %d/%d, want 3000/5", s.ChunkSize, s.Threads)
	}
	if s.TokenLifetime != 3*time.Hour+30*time.Minute {
		t.Errorf("TokenLifetime = %v, want 3h30m", s.TokenLifetime)
	}
	if s.CacheEnabled {
		t.Errorf("CacheEnabled = true, want disabled by default")
	}
	if s.HTTPTimeout != 120*time.Second {
		t.Errorf("HTTPTimeout = %v, want 120s", s.HTTPTimeout)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("QUALYS_PLATFORM_CODE", "qg3")
	t.Setenv("QUALYS_SHARD_THREADS", "8")
	LoadConfig()

	s := GetSettings()
	if s.PlatformCode != "qg3" {
		t.Errorf("PlatformCode = %q, want env override qg3", s.PlatformCode)
	}
	if s.Threads != 8 {
		t.Errorf("Threads = %d, want env override 8", s.Threads)
	}
}
