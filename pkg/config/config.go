// Package config loads settings for the respkit command.
//
// Sources are layered, later ones winning:
//  1. Defaults()
//  2. a YAML file (see Load for discovery)
//  3. RESPKIT_* environment variables
//  4. *_file references, read into their value fields
//
// The result is checked by Validate.
package config

import (
	"time"

	"github.com/rhuss/respkit/pkg/auth"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Client        ClientConfig        `yaml:"client"`
	Storage       StorageConfig       `yaml:"storage"`
	Checkpoint    CheckpointConfig    `yaml:"checkpoint"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig configures `respkit serve`, the stub Responses API server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`             // default ":8080"
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default 5m, streams stay open
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default 10 MiB

	// StreamDelay paces streamed events; BackgroundDelay paces each status
	// change of a background response.
	StreamDelay     time.Duration `yaml:"stream_delay"`
	BackgroundDelay time.Duration `yaml:"background_delay"` // default 2s
}

// ClientConfig configures the commands that call a Responses API.
type ClientConfig struct {
	BaseURL    string `yaml:"base_url"` // default "http://localhost:8080/v1"
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"`
	// KeyHeader is "authorization" (bearer) or "api-key".
	KeyHeader string        `yaml:"key_header"`
	Timeout   time.Duration `yaml:"timeout"` // default 60s
	UserAgent string        `yaml:"user_agent"`

	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"` // default 2
	BaseDelay  time.Duration `yaml:"base_delay"`  // default 500ms
	MaxDelay   time.Duration `yaml:"max_delay"`   // default 8s
	Jitter     time.Duration `yaml:"jitter"`      // default 250ms
}

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold"` // default 5
	Timeout          time.Duration `yaml:"timeout"`           // default 30s
}

type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory" or "postgres"
	MaxSize  int            `yaml:"max_size"` // memory only, default 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`
	MaxConns       int32  `yaml:"max_conns"` // default 25
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// CheckpointConfig selects the key/value backend of the checkpoint store.
// "postgres" shares storage.postgres.
type CheckpointConfig struct {
	Type  string      `yaml:"type"` // "memory", "redis" or "postgres"
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	URL       string        `yaml:"url"`
	URLFile   string        `yaml:"url_file"`
	KeyPrefix string        `yaml:"key_prefix"` // default "respkit:"
	TTL       time.Duration `yaml:"ttl"`        // 0 keeps checkpoints forever
}

type AuthConfig struct {
	Type      string          `yaml:"type"` // "none", "apikey" or "jwt"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"`
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type APIKeyConfig struct {
	Key     string `yaml:"key" json:"key"`
	KeyFile string `yaml:"key_file" json:"key_file"`
	Subject string `yaml:"subject" json:"subject"`
	Tenant  string `yaml:"tenant" json:"tenant"`
	Tier    string `yaml:"tier" json:"tier"`
}

type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	SecretFile string        `yaml:"secret_file"`
	JWKSURL    string        `yaml:"jwks_url"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	Leeway     time.Duration `yaml:"leeway"`
}

type RateLimitConfig struct {
	Default auth.TierLimit            `yaml:"default"`
	Tiers   map[string]auth.TierLimit `yaml:"tiers"`
}

// Enabled reports whether any tier has a limit.
func (r RateLimitConfig) Enabled() bool {
	if r.Default.RequestsPerMinute > 0 {
		return true
	}
	for _, t := range r.Tiers {
		if t.RequestsPerMinute > 0 {
			return true
		}
	}
	return false
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	// Debug lists the debug categories to enable, e.g. "client,server".
	Debug string `yaml:"debug"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default true
	Path    string `yaml:"path"`    // default "/metrics"
}

// LoggingConfig configures the process logger. With File set, logs go to a
// rotated file instead of stderr.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // "text" or "json"
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"` // default 100
	MaxBackups int    `yaml:"max_backups"` // default 3
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
			BackgroundDelay: 2 * time.Second,
		},
		Client: ClientConfig{
			BaseURL:   "http://localhost:8080/v1",
			KeyHeader: "authorization",
			Timeout:   60 * time.Second,
			Retry: RetryConfig{
				MaxRetries: 2,
				BaseDelay:  500 * time.Millisecond,
				MaxDelay:   8 * time.Second,
				Jitter:     250 * time.Millisecond,
			},
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				Timeout:          30 * time.Second,
			},
		},
		Storage: StorageConfig{
			Type:     "memory",
			MaxSize:  10000,
			Postgres: PostgresConfig{MaxConns: 25},
		},
		Checkpoint: CheckpointConfig{
			Type:  "memory",
			Redis: RedisConfig{KeyPrefix: "respkit:"},
		},
		Auth: AuthConfig{Type: "none"},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}
