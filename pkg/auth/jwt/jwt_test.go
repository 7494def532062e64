package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/respkit/pkg/auth"
)

var secret = []byte("test-secret-0123456789")

func sign(t *testing.T, method jwtlib.SigningMethod, key any, claims jwtlib.MapClaims, kid string) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(method, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return s
}

func request(token string) *http.Request {
	r := httptest.NewRequest("POST", "/v1/responses", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestNewRequiresVerifier(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New without secret or JWKS should fail")
	}
}

func TestHMAC(t *testing.T) {
	a, err := New(Config{Secret: secret, Issuer: "respkit", Audience: "stub"})
	if err != nil {
		t.Fatal(err)
	}
	exp := time.Now().Add(time.Hour).Unix()
	valid := jwtlib.MapClaims{"sub": "alice", "iss": "respkit", "aud": "stub", "exp": exp,
		"tenant_id": "org-1", "tier": "gold", "scope": "responses.read responses.write"}

	res := a.Authenticate(context.Background(), request(sign(t, jwtlib.SigningMethodHS256, secret, valid, "")))
	if res.Decision != auth.Yes {
		t.Fatalf("decision = %v (%v)", res.Decision, res.Err)
	}
	id := res.Identity
	if id.Subject != "alice" || id.Tenant != "org-1" || id.Tier != "gold" || len(id.Scopes) != 2 {
		t.Errorf("identity = %+v", id)
	}

	with := func(k string, v any) jwtlib.MapClaims {
		c := jwtlib.MapClaims{}
		for key, val := range valid {
			c[key] = val
		}
		if v == nil {
			delete(c, k)
		} else {
			c[k] = v
		}
		return c
	}
	tests := []struct {
		name  string
		token string
		want  auth.Decision
	}{
		{"wrong secret", sign(t, jwtlib.SigningMethodHS256, []byte("other"), valid, ""), auth.No},
		{"expired", sign(t, jwtlib.SigningMethodHS256, secret, with("exp", time.Now().Add(-time.Hour).Unix()), ""), auth.No},
		{"wrong issuer", sign(t, jwtlib.SigningMethodHS256, secret, with("iss", "elsewhere"), ""), auth.No},
		{"wrong audience", sign(t, jwtlib.SigningMethodHS256, secret, with("aud", "other"), ""), auth.No},
		{"no subject", sign(t, jwtlib.SigningMethodHS256, secret, with("sub", nil), ""), auth.No},
		{"opaque bearer", "sk-not-a-jwt", auth.Abstain},
		{"no header", "", auth.Abstain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Authenticate(context.Background(), request(tt.token)).Decision; got != tt.want {
				t.Errorf("decision = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScopesArray(t *testing.T) {
	a, _ := New(Config{Secret: secret})
	tok := sign(t, jwtlib.SigningMethodHS384, secret, jwtlib.MapClaims{"sub": "s", "scope": []any{"a", "b"}}, "")
	res := a.Authenticate(context.Background(), request(tok))
	if res.Decision != auth.Yes || len(res.Identity.Scopes) != 2 || res.Identity.Scopes[1] != "b" {
		t.Errorf("result = %+v", res)
	}
}

func jwksServer(t *testing.T, key *rsa.PrivateKey, kid string, fetches *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "RSA", "kid": kid, "use": "sig",
			"n": base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e": base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	var fetches atomic.Int32
	srv := jwksServer(t, key, "k1", &fetches)

	a, err := New(Config{JWKSURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	claims := jwtlib.MapClaims{"sub": "svc", "exp": time.Now().Add(time.Hour).Unix()}

	for i := 0; i < 3; i++ {
		res := a.Authenticate(context.Background(), request(sign(t, jwtlib.SigningMethodRS256, key, claims, "k1")))
		if res.Decision != auth.Yes || res.Identity.Subject != "svc" {
			t.Fatalf("attempt %d: %+v", i, res)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("JWKS fetched %d times, want 1", n)
	}

	if res := a.Authenticate(context.Background(), request(sign(t, jwtlib.SigningMethodRS256, key, claims, "unknown"))); res.Decision != auth.No {
		t.Errorf("unknown kid decision = %v", res.Decision)
	}
	if res := a.Authenticate(context.Background(), request(sign(t, jwtlib.SigningMethodHS256, secret, claims, ""))); res.Decision != auth.No {
		t.Errorf("HMAC token accepted without a secret: %v", res.Decision)
	}
}
