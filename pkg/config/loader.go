package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "RESPKIT_"

// Load builds the configuration from defaults, the YAML file, the
// environment and *_file references, then validates it.
//
// The file is configPath if set, else $RESPKIT_CONFIG, else the first of
// ./config.yaml and /etc/respkit/config.yaml that exists. No file at all is
// fine; an explicitly named file that cannot be read is not.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	for _, p := range []string{"config.yaml", "/etc/respkit/config.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// envVar binds one environment variable, without the prefix, to a setter.
type envVar struct {
	name string
	set  func(cfg *Config, v string) error
}

func str(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error { *field(c) = v; return nil }
}

func dur(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

func integer(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func boolean(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

var envVars = []envVar{
	{"SERVER_ADDR", str(func(c *Config) *string { return &c.Server.Addr })},
	{"PORT", func(c *Config, v string) error {
		if _, err := strconv.Atoi(v); err != nil {
			return err
		}
		c.Server.Addr = ":" + v
		return nil
	}},
	{"SERVER_SHUTDOWN_TIMEOUT", dur(func(c *Config) *time.Duration { return &c.Server.ShutdownTimeout })},
	{"SERVER_STREAM_DELAY", dur(func(c *Config) *time.Duration { return &c.Server.StreamDelay })},
	{"SERVER_BACKGROUND_DELAY", dur(func(c *Config) *time.Duration { return &c.Server.BackgroundDelay })},

	{"BASE_URL", str(func(c *Config) *string { return &c.Client.BaseURL })},
	{"API_KEY", str(func(c *Config) *string { return &c.Client.APIKey })},
	{"API_KEY_FILE", str(func(c *Config) *string { return &c.Client.APIKeyFile })},
	{"KEY_HEADER", str(func(c *Config) *string { return &c.Client.KeyHeader })},
	{"CLIENT_TIMEOUT", dur(func(c *Config) *time.Duration { return &c.Client.Timeout })},
	{"CLIENT_MAX_RETRIES", integer(func(c *Config) *int { return &c.Client.Retry.MaxRetries })},
	{"CLIENT_CIRCUIT_BREAKER", boolean(func(c *Config) *bool { return &c.Client.CircuitBreaker.Enabled })},

	{"STORAGE", str(func(c *Config) *string { return &c.Storage.Type })},
	{"STORAGE_SIZE", integer(func(c *Config) *int { return &c.Storage.MaxSize })},
	{"POSTGRES_DSN", str(func(c *Config) *string { return &c.Storage.Postgres.DSN })},
	{"POSTGRES_DSN_FILE", str(func(c *Config) *string { return &c.Storage.Postgres.DSNFile })},
	{"POSTGRES_MIGRATE", boolean(func(c *Config) *bool { return &c.Storage.Postgres.MigrateOnStart })},

	{"CHECKPOINT", str(func(c *Config) *string { return &c.Checkpoint.Type })},
	{"REDIS_URL", str(func(c *Config) *string { return &c.Checkpoint.Redis.URL })},
	{"REDIS_URL_FILE", str(func(c *Config) *string { return &c.Checkpoint.Redis.URLFile })},

	{"AUTH_TYPE", str(func(c *Config) *string { return &c.Auth.Type })},
	{"API_KEYS", func(c *Config, v string) error {
		var keys []APIKeyConfig
		if err := json.Unmarshal([]byte(v), &keys); err != nil {
			return err
		}
		c.Auth.APIKeys = keys
		return nil
	}},
	{"JWT_SECRET", str(func(c *Config) *string { return &c.Auth.JWT.Secret })},
	{"JWT_SECRET_FILE", str(func(c *Config) *string { return &c.Auth.JWT.SecretFile })},
	{"JWKS_URL", str(func(c *Config) *string { return &c.Auth.JWT.JWKSURL })},
	{"RATE_LIMIT_RPM", integer(func(c *Config) *int { return &c.Auth.RateLimit.Default.RequestsPerMinute })},

	{"METRICS", boolean(func(c *Config) *bool { return &c.Observability.Metrics.Enabled })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FORMAT", str(func(c *Config) *string { return &c.Logging.Format })},
	{"LOG_FILE", str(func(c *Config) *string { return &c.Logging.File })},
}

// applyEnv overrides cfg from RESPKIT_* variables. Unparseable values are
// errors rather than silently ignored.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(cfg, v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, ev.name, err))
		}
	}
	return errors.Join(errs...)
}

// resolveFileReferences fills each empty secret from its *_file companion.
func resolveFileReferences(cfg *Config) error {
	type ref struct {
		path  string
		file  string
		value *string
	}
	refs := []ref{
		{"client.api_key_file", cfg.Client.APIKeyFile, &cfg.Client.APIKey},
		{"storage.postgres.dsn_file", cfg.Storage.Postgres.DSNFile, &cfg.Storage.Postgres.DSN},
		{"checkpoint.redis.url_file", cfg.Checkpoint.Redis.URLFile, &cfg.Checkpoint.Redis.URL},
		{"auth.jwt.secret_file", cfg.Auth.JWT.SecretFile, &cfg.Auth.JWT.Secret},
	}
	for i := range cfg.Auth.APIKeys {
		k := &cfg.Auth.APIKeys[i]
		refs = append(refs, ref{fmt.Sprintf("auth.api_keys[%d].key_file", i), k.KeyFile, &k.Key})
	}

	for _, r := range refs {
		if r.file == "" || *r.value != "" {
			continue
		}
		v, err := readSecretFile(r.file)
		if err != nil {
			return fmt.Errorf("%s: %w", r.path, err)
		}
		*r.value = v
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
