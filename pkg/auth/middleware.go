package auth

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/observability"
	"github.com/rhuss/respkit/pkg/storage"
	"github.com/rhuss/respkit/pkg/transport"
)

// PublicPaths skip authentication.
var PublicPaths = []string{"/healthz", "/metrics"}

// Middleware authenticates every request not in public, rate limits it when
// limiter is non-nil, and hands the identity and tenant down the context.
func Middleware(authn Authenticator, limiter Limiter, logger *slog.Logger, public ...string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	skip := make(map[string]struct{}, len(public))
	for _, p := range public {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			res := authn.Authenticate(r.Context(), r)
			if res.Decision != Yes || res.Identity == nil || res.Identity.Subject == "" {
				logger.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"decision", res.Decision,
					"error", res.Err,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="respkit"`)
				transport.WriteAPIError(w, api.NewAuthenticationError(unauthenticatedMessage(res)))
				return
			}
			id := res.Identity

			if limiter != nil {
				if wait, err := limiter.Allow(r.Context(), id); err != nil {
					logger.Warn("rate limit exceeded", "subject", id.Subject, "tier", id.TierOrDefault())
					observability.RateLimitRejectedTotal.WithLabelValues(id.TierOrDefault()).Inc()
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
					transport.WriteAPIError(w, api.NewTooManyRequestsError(err.Error()))
					return
				}
			}

			ctx := SetIdentity(r.Context(), id)
			if id.Tenant != "" {
				ctx = storage.SetTenant(ctx, id.Tenant)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthenticatedMessage(res Result) string {
	if res.Decision == No && res.Err != nil {
		return res.Err.Error()
	}
	return ErrUnauthenticated.Error()
}
