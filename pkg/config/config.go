// Package config loads client settings from a YAML file and QUALYS_
// environment variables, with working defaults for everything except the
// credentials themselves.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// LoadConfig reads the configuration file and wires environment overrides.
// A missing file is not an error; environment and defaults still apply.
func LoadConfig() {
	viper.SetConfigName("qualys")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/qualys-client/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("QUALYS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Debug().Msg("No config file found, using environment and defaults")
		} else {
			log.Panic().Err(err).Msg("Fatal error reading config file")
		}
	}
	SetDefaultConfig()
}

// SetDefaultConfig installs the default values.
func SetDefaultConfig() {
	// Platform and credentials
	viper.SetDefault("platform.code", "qg1")
	viper.SetDefault("platform.api_url", "")
	viper.SetDefault("platform.gateway_url", "")
	viper.SetDefault("auth.username", "")
	viper.SetDefault("auth.password", "")
	viper.SetDefault("auth.token_lifetime", "3h30m")

	// Dispatcher
	viper.SetDefault("http.timeout", 120)
	viper.SetDefault("http.user_agent", "")
	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.initial_backoff_ms", 500)
	viper.SetDefault("retry.max_backoff_ms", 5000)

	// Listings
	viper.SetDefault("paginate.page_size", 1000)
	viper.SetDefault("paginate.truncation_limit", 1000)
	viper.SetDefault("shard.chunk_size", 3000)
	viper.SetDefault("shard.threads", 5)

	// Response cache
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.redis_db", 0)
	viper.SetDefault("cache.ttl", "5m")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.pretty", false)
}

// Settings is the typed view of the loaded configuration.
type Settings struct {
	PlatformCode string
	APIURL       string
	GatewayURL   string

	Username      string
	Password      string
	TokenLifetime time.Duration

	HTTPTimeout time.Duration
	UserAgent   string

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration

	PageSize        int
	TruncationLimit int
	ChunkSize       int
	Threads         int

	CacheEnabled bool
	RedisAddr    string
	RedisDB      int
	CacheTTL     time.Duration

	LogLevel  string
	LogPretty bool
}

// GetSettings snapshots the current viper state into a Settings value.
func GetSettings() Settings {
	return Settings{
		PlatformCode: viper.GetString("platform.code"),
		APIURL:       viper.GetString("platform.api_url"),
		GatewayURL:   viper.GetString("platform.gateway_url"),

		Username:      viper.GetString("auth.username"),
		Password:      viper.GetString("auth.password"),
		TokenLifetime: viper.GetDuration("auth.token_lifetime"),

		HTTPTimeout: time.Duration(viper.GetInt("http.timeout")) * time.Second,
		UserAgent:   viper.GetString("http.user_agent"),

		RetryMaxAttempts:    viper.GetInt("retry.max_attempts"),
		RetryInitialBackoff: time.Duration(viper.GetInt("retry.initial_backoff_ms")) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(viper.GetInt("retry.max_backoff_ms")) * time.Millisecond,

		PageSize:        viper.GetInt("paginate.page_size"),
		TruncationLimit: viper.GetInt("paginate.truncation_limit"),
		ChunkSize:       viper.GetInt("shard.chunk_size"),
		Threads:         viper.GetInt("shard.threads"),

		CacheEnabled: viper.GetBool("cache.enabled"),
		RedisAddr:    viper.GetString("cache.redis_addr"),
		RedisDB:      viper.GetInt("cache.redis_db"),
		CacheTTL:     viper.GetDuration("cache.ttl"),

		LogLevel:  viper.GetString("logging.level"),
		LogPretty: viper.GetBool("logging.pretty"),
	}
}
