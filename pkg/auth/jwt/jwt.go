// Package jwt authenticates bearer JWTs. Tokens are verified with a shared
// HMAC secret, with RSA keys fetched from a JWKS endpoint, or with either.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/respkit/pkg/auth"
)

type Config struct {
	// Secret verifies HS256/384/512 tokens.
	Secret []byte
	// JWKSURL verifies RS256/384/512 tokens by their kid.
	JWKSURL string

	Issuer   string
	Audience string

	SubjectClaim string // default "sub"
	TenantClaim  string // default "tenant_id"
	TierClaim    string // default "tier"
	ScopesClaim  string // default "scope"; space separated or an array

	// Leeway tolerates clock skew on exp and nbf.
	Leeway     time.Duration
	CacheTTL   time.Duration // default 1h
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.SubjectClaim == "" {
		c.SubjectClaim = "sub"
	}
	if c.TenantClaim == "" {
		c.TenantClaim = "tenant_id"
	}
	if c.TierClaim == "" {
		c.TierClaim = "tier"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// Authenticator votes Yes on a valid token and No on a bearer credential
// that does not verify. It abstains when there is no bearer credential.
type Authenticator struct {
	cfg    Config
	keys   *keySet
	parser *jwtlib.Parser
}

// New returns an authenticator, or an error if cfg names no way to verify
// signatures.
func New(cfg Config) (*Authenticator, error) {
	if len(cfg.Secret) == 0 && cfg.JWKSURL == "" {
		return nil, errors.New("jwt: a secret or a JWKS URL is required")
	}
	cfg.defaults()

	var methods []string
	if len(cfg.Secret) > 0 {
		methods = append(methods, "HS256", "HS384", "HS512")
	}
	if cfg.JWKSURL != "" {
		methods = append(methods, "RS256", "RS384", "RS512")
	}
	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods(methods), jwtlib.WithLeeway(cfg.Leeway)}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}

	a := &Authenticator{cfg: cfg, parser: jwtlib.NewParser(opts...)}
	if cfg.JWKSURL != "" {
		a.keys = newKeySet(cfg.JWKSURL, cfg.HTTPClient, cfg.CacheTTL)
	}
	return a, nil
}

func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return auth.Result{Decision: auth.Abstain}
	}
	token = strings.TrimSpace(token)
	// API keys share the bearer header; leave anything that is not a
	// three-part JWS to the next authenticator.
	if strings.Count(token, ".") != 2 {
		return auth.Result{Decision: auth.Abstain}
	}

	claims := jwtlib.MapClaims{}
	if _, err := a.parser.ParseWithClaims(token, claims, a.keyFunc(ctx)); err != nil {
		return auth.Result{Decision: auth.No, Err: fmt.Errorf("invalid token: %w", err)}
	}

	subject := stringClaim(claims, a.cfg.SubjectClaim)
	if subject == "" {
		return auth.Result{Decision: auth.No, Err: fmt.Errorf("token has no %q claim", a.cfg.SubjectClaim)}
	}
	return auth.Result{Decision: auth.Yes, Identity: &auth.Identity{
		Subject: subject,
		Tenant:  stringClaim(claims, a.cfg.TenantClaim),
		Tier:    stringClaim(claims, a.cfg.TierClaim),
		Scopes:  scopes(claims[a.cfg.ScopesClaim]),
	}}
}

func (a *Authenticator) keyFunc(ctx context.Context) jwtlib.Keyfunc {
	return func(t *jwtlib.Token) (any, error) {
		switch t.Method.(type) {
		case *jwtlib.SigningMethodHMAC:
			return a.cfg.Secret, nil
		case *jwtlib.SigningMethodRSA:
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token has no kid")
			}
			return a.keys.get(ctx, kid)
		}
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

func scopes(v any) []string {
	switch v := v.(type) {
	case string:
		if f := strings.Fields(v); len(f) > 0 {
			return f
		}
	case []any:
		var out []string
		for _, s := range v {
			if s, ok := s.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
