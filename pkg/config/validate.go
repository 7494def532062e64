package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

func oneOf(field, got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), got)
}

// Validate reports every invalid field, each prefixed with its YAML path.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if c.Server.Addr == "" {
		add(errors.New("server.addr is required"))
	}
	if c.Server.MaxBodySize <= 0 {
		add(fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}
	if c.Server.StreamDelay < 0 || c.Server.BackgroundDelay < 0 {
		add(errors.New("server.stream_delay and server.background_delay must not be negative"))
	}

	if u, err := url.Parse(c.Client.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		add(fmt.Errorf("client.base_url must be an absolute URL, got %q", c.Client.BaseURL))
	}
	add(oneOf("client.key_header", c.Client.KeyHeader, "authorization", "api-key"))
	if c.Client.Retry.MaxRetries < 0 {
		add(fmt.Errorf("client.retry.max_retries must be >= 0, got %d", c.Client.Retry.MaxRetries))
	}

	add(oneOf("storage.type", c.Storage.Type, "memory", "postgres"))
	if c.Storage.Type == "postgres" && c.Storage.Postgres.DSN == "" {
		add(errors.New("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
	}

	add(oneOf("checkpoint.type", c.Checkpoint.Type, "memory", "redis", "postgres"))
	switch c.Checkpoint.Type {
	case "redis":
		if c.Checkpoint.Redis.URL == "" {
			add(errors.New("checkpoint.redis.url or checkpoint.redis.url_file is required when checkpoint.type is \"redis\""))
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			add(errors.New("storage.postgres.dsn is required when checkpoint.type is \"postgres\""))
		}
	}

	add(oneOf("auth.type", c.Auth.Type, "none", "apikey", "jwt"))
	switch c.Auth.Type {
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			add(errors.New("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" {
				add(fmt.Errorf("auth.api_keys[%d].key or key_file is required", i))
			}
			if k.Subject == "" {
				add(fmt.Errorf("auth.api_keys[%d].subject is required", i))
			}
		}
	case "jwt":
		if c.Auth.JWT.Secret == "" && c.Auth.JWT.JWKSURL == "" {
			add(errors.New("auth.jwt.secret, secret_file or jwks_url is required when auth.type is \"jwt\""))
		}
	}
	if c.Auth.RateLimit.Default.RequestsPerMinute < 0 {
		add(errors.New("auth.rate_limit.default.requests_per_minute must be >= 0"))
	}
	for name, t := range c.Auth.RateLimit.Tiers {
		if t.RequestsPerMinute < 0 || t.Burst < 0 {
			add(fmt.Errorf("auth.rate_limit.tiers.%s must not be negative", name))
		}
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		add(fmt.Errorf("observability.metrics.path must start with /, got %q", c.Observability.Metrics.Path))
	}

	add(oneOf("logging.level", strings.ToLower(c.Logging.Level), "debug", "info", "warn", "error"))
	add(oneOf("logging.format", c.Logging.Format, "text", "json"))

	return errors.Join(errs...)
}
