package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/observability"
	"github.com/rhuss/respkit/pkg/storage"
)

func vote(res Result) Authenticator {
	return AuthenticatorFunc(func(context.Context, *http.Request) Result { return res })
}

var abstain = vote(Result{Decision: Abstain})

func TestChain(t *testing.T) {
	alice := &Identity{Subject: "alice"}
	denied := errors.New("bad token")

	tests := []struct {
		name    string
		chain   *Chain
		want    Decision
		subject string
	}{
		{"first yes wins", NewChain(abstain, vote(Result{Decision: Yes, Identity: alice}), vote(Result{Decision: No})), Yes, "alice"},
		{"no stops the chain", NewChain(vote(Result{Decision: No, Err: denied}), vote(Result{Decision: Yes, Identity: alice})), No, ""},
		{"all abstain rejects", NewChain(abstain, abstain), No, ""},
		{"empty chain rejects", NewChain(), No, ""},
		{"anonymous allowed", &Chain{Authenticators: []Authenticator{abstain}, AllowAnonymous: true}, Yes, "anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.chain.Authenticate(context.Background(), httptest.NewRequest("GET", "/", nil))
			if res.Decision != tt.want {
				t.Fatalf("decision = %v, want %v", res.Decision, tt.want)
			}
			if tt.subject != "" && res.Identity.Subject != tt.subject {
				t.Errorf("subject = %q, want %q", res.Identity.Subject, tt.subject)
			}
		})
	}
}

func TestCredential(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
		ok      bool
	}{
		{"bearer", map[string]string{"Authorization": "Bearer sk-1"}, "sk-1", true},
		{"lowercase scheme", map[string]string{"Authorization": "bearer sk-2"}, "sk-2", true},
		{"api-key header", map[string]string{"api-key": "sk-3"}, "sk-3", true},
		{"bearer preferred", map[string]string{"Authorization": "Bearer sk-4", "api-key": "sk-5"}, "sk-4", true},
		{"basic ignored", map[string]string{"Authorization": "Basic dXNlcg=="}, "", false},
		{"none", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			got, ok := Credential(r)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Credential = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *api.APIError {
	t.Helper()
	var body api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error == nil {
		t.Fatalf("decoding error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestMiddlewareRejects(t *testing.T) {
	h := Middleware(NewChain(vote(Result{Decision: No, Err: ErrInvalidKey})), nil, nil, PublicPaths...)(okHandler())

	rec := serve(h, "POST", "/v1/responses")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate")
	}
	apiErr := decodeError(t, rec)
	if apiErr.Type != api.ErrorTypeAuthentication || apiErr.Message != ErrInvalidKey.Error() {
		t.Errorf("error = %+v", apiErr)
	}

	if rec := serve(h, "GET", "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("public path status = %d", rec.Code)
	}
}

func TestMiddlewareEmptySubjectRejected(t *testing.T) {
	h := Middleware(vote(Result{Decision: Yes, Identity: &Identity{}}), nil, nil)(okHandler())
	if rec := serve(h, "GET", "/v1/responses"); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareSetsIdentityAndTenant(t *testing.T) {
	id := &Identity{Subject: "alice", Tenant: "org-1"}
	var gotTenant, gotSubject string
	h := Middleware(vote(Result{Decision: Yes, Identity: id}), nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = storage.GetTenant(r.Context())
		if id := IdentityFromContext(r.Context()); id != nil {
			gotSubject = id.Subject
		}
	}))

	serve(h, "GET", "/v1/responses")
	if gotTenant != "org-1" || gotSubject != "alice" {
		t.Errorf("tenant = %q, subject = %q", gotTenant, gotSubject)
	}
}

func TestMiddlewareRateLimit(t *testing.T) {
	limiter := NewTokenBucketLimiter(map[string]TierLimit{
		"free": {RequestsPerMinute: 1},
	}, TierLimit{})
	id := &Identity{Subject: "bob", Tier: "free"}
	h := Middleware(vote(Result{Decision: Yes, Identity: id}), limiter, nil)(okHandler())

	before := observability.CounterValue(observability.RateLimitRejectedTotal, "free")
	if rec := serve(h, "POST", "/v1/responses"); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := serve(h, "POST", "/v1/responses")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if apiErr := decodeError(t, rec); apiErr.Type != api.ErrorTypeTooManyRequests {
		t.Errorf("error type = %q", apiErr.Type)
	}
	if got := observability.CounterValue(observability.RateLimitRejectedTotal, "free") - before; got != 1 {
		t.Errorf("rejections counted = %v, want 1", got)
	}
}

func TestTokenBucketLimiter(t *testing.T) {
	l := NewTokenBucketLimiter(map[string]TierLimit{
		"gold": {RequestsPerMinute: 60, Burst: 3},
	}, TierLimit{RequestsPerMinute: 1})
	ctx := context.Background()

	gold := &Identity{Subject: "g", Tier: "gold"}
	for i := 0; i < 3; i++ {
		if _, err := l.Allow(ctx, gold); err != nil {
			t.Fatalf("request %d refused: %v", i, err)
		}
	}
	wait, err := l.Allow(ctx, gold)
	if !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("fourth request error = %v", err)
	}
	if wait <= 0 || wait > time.Second {
		t.Errorf("retry after = %v, want within a second", wait)
	}

	// Buckets are per subject.
	if _, err := l.Allow(ctx, &Identity{Subject: "other", Tier: "gold"}); err != nil {
		t.Errorf("other subject refused: %v", err)
	}

	// Unknown tiers use the fallback.
	anon := &Identity{Subject: "a"}
	l.Allow(ctx, anon)
	if _, err := l.Allow(ctx, anon); err == nil {
		t.Error("fallback tier not applied")
	}

	unlimited := NewTokenBucketLimiter(nil, TierLimit{})
	for i := 0; i < 100; i++ {
		if _, err := unlimited.Allow(ctx, anon); err != nil {
			t.Fatal("zero rate should not limit")
		}
	}
}
