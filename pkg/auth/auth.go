package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Decision is an authenticator's vote.
type Decision int

const (
	// Abstain passes the request to the next authenticator.
	Abstain Decision = iota
	// Yes accepts the credentials; Result.Identity is set.
	Yes
	// No rejects the credentials; Result.Err says why.
	No
)

func (d Decision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "abstain"
	}
}

// Result is the outcome of one authentication attempt.
type Result struct {
	Decision Decision
	Identity *Identity
	Err      error
}

// Identity is an authenticated caller.
type Identity struct {
	Subject string
	// Tenant scopes every storage operation the caller makes. Empty means
	// unscoped.
	Tenant string
	// Tier selects the rate limit. Empty means DefaultTier.
	Tier   string
	Scopes []string
}

// DefaultTier is the tier of identities that do not name one.
const DefaultTier = "default"

// TierOrDefault returns the identity's tier, falling back to DefaultTier.
func (id *Identity) TierOrDefault() string {
	if id == nil || id.Tier == "" {
		return DefaultTier
	}
	return id.Tier
}

// Authenticator votes on the credentials of a request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) Result

func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) Result {
	return f(ctx, r)
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidKey      = errors.New("invalid api key")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Anonymous is the identity of requests let through by a Chain that allows
// anonymous access.
var Anonymous = Identity{Subject: "anonymous", Tier: DefaultTier}

// Chain asks its authenticators in order and stops at the first Yes or No.
type Chain struct {
	Authenticators []Authenticator
	// AllowAnonymous accepts requests every authenticator abstained on.
	AllowAnonymous bool
}

// NewChain returns a chain that rejects requests nobody vouches for.
func NewChain(authenticators ...Authenticator) *Chain {
	return &Chain{Authenticators: authenticators}
}

func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.Authenticators {
		if res := a.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	if c.AllowAnonymous {
		id := Anonymous
		return Result{Decision: Yes, Identity: &id}
	}
	return Result{Decision: No, Err: ErrUnauthenticated}
}

// Credential returns the token a request carries, from a bearer
// Authorization header or else the api-key header. ok is false when the
// request carries neither.
func Credential(r *http.Request) (token string, ok bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, rest, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(rest), true
		}
	}
	if k := r.Header.Get("api-key"); k != "" {
		return k, true
	}
	return "", false
}

type identityKey struct{}

// SetIdentity returns a copy of ctx carrying id.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller's identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
