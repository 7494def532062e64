package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/respkit/pkg/auth"
	"github.com/rhuss/respkit/pkg/auth/apikey"
	"github.com/rhuss/respkit/pkg/auth/jwt"
	"github.com/rhuss/respkit/pkg/auth/noop"
	"github.com/rhuss/respkit/pkg/config"
	"github.com/rhuss/respkit/pkg/observability"
	"github.com/rhuss/respkit/pkg/storage/memory"
	"github.com/rhuss/respkit/pkg/storage/postgres"
	"github.com/rhuss/respkit/pkg/stub"
	"github.com/rhuss/respkit/pkg/transport"
	transporthttp "github.com/rhuss/respkit/pkg/transport/http"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the stub Responses API server",
		Long: `Run an HTTP server that implements the Responses API surface with a
deterministic stub in place of a model: it echoes the last user message,
calls the first allowed function tool, and streams, stores, chains and
cancels responses like the real service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	authn, err := newAuthenticator(cfg.Auth)
	if err != nil {
		return err
	}
	var limiter auth.Limiter
	if cfg.Auth.RateLimit.Enabled() {
		limiter = auth.NewTokenBucketLimiter(cfg.Auth.RateLimit.Tiers, cfg.Auth.RateLimit.Default)
	}

	creator := stub.New(store, stub.Config{
		BackgroundDelay: cfg.Server.BackgroundDelay,
		StreamDelay:     cfg.Server.StreamDelay,
		Logger:          a.logger,
	})
	defer creator.Wait()

	public := []string{"/healthz"}
	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(cfg.Server.Addr),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithLogger(a.logger),
	}
	if m := cfg.Observability.Metrics; m.Enabled {
		opts = append(opts, transporthttp.WithRoute("GET "+m.Path, observability.Handler()))
		public = append(public, m.Path)
	}
	opts = append(opts, transporthttp.WithHTTPMiddleware(auth.Middleware(authn, limiter, a.logger, public...)))

	srv := transporthttp.NewServer(creator, store, opts...)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
	}
	a.logger.Info("stub server configured",
		"storage", cfg.Storage.Type,
		"auth", cfg.Auth.Type,
		"rate_limited", limiter != nil,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	return srv.Serve(ctx, ln)
}

// closableStore is a ResponseStore the command owns.
type closableStore interface {
	transport.ResponseStore
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config) (closableStore, error) {
	switch cfg.Storage.Type {
	case "postgres":
		s, err := postgres.New(ctx, postgresConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return s, nil
	default:
		return memory.New(cfg.Storage.MaxSize), nil
	}
}

func postgresConfig(cfg *config.Config) postgres.Config {
	pg := cfg.Storage.Postgres
	return postgres.Config{DSN: pg.DSN, MaxConns: pg.MaxConns, MigrateOnStart: pg.MigrateOnStart}
}

// newAuthenticator builds the chain for auth.type. JWTs are tried before
// API keys since the JWT authenticator abstains on opaque tokens.
func newAuthenticator(cfg config.AuthConfig) (auth.Authenticator, error) {
	switch cfg.Type {
	case "apikey":
		return auth.NewChain(apikey.New(apiKeys(cfg.APIKeys)...)), nil
	case "jwt":
		j, err := jwt.New(jwt.Config{
			Secret:   []byte(cfg.JWT.Secret),
			JWKSURL:  cfg.JWT.JWKSURL,
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
			Leeway:   cfg.JWT.Leeway,
		})
		if err != nil {
			return nil, err
		}
		chain := []auth.Authenticator{j}
		if len(cfg.APIKeys) > 0 {
			chain = append(chain, apikey.New(apiKeys(cfg.APIKeys)...))
		}
		return auth.NewChain(chain...), nil
	default:
		return noop.Authenticator{}, nil
	}
}

func apiKeys(cfgs []config.APIKeyConfig) []apikey.Key {
	keys := make([]apikey.Key, 0, len(cfgs))
	for _, k := range cfgs {
		keys = append(keys, apikey.Key{
			Value:    k.Key,
			Identity: auth.Identity{Subject: k.Subject, Tenant: k.Tenant, Tier: k.Tier},
		})
	}
	return keys
}
