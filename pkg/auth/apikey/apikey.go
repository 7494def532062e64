// Package apikey authenticates requests against a fixed set of API keys.
// Keys are kept only as SHA-256 digests and compared in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/rhuss/respkit/pkg/auth"
)

// Key grants Identity to whoever presents Value.
type Key struct {
	Value    string
	Identity auth.Identity
}

type entry struct {
	digest   [sha256.Size]byte
	identity auth.Identity
}

// Authenticator votes Yes for a known key and No for an unknown one. It
// abstains on requests without a credential.
type Authenticator struct {
	entries []entry
}

func New(keys ...Key) *Authenticator {
	a := &Authenticator{entries: make([]entry, 0, len(keys))}
	for _, k := range keys {
		a.entries = append(a.entries, entry{digest: sha256.Sum256([]byte(k.Value)), identity: k.Identity})
	}
	return a
}

func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, ok := auth.Credential(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	digest := sha256.Sum256([]byte(token))

	match := -1
	for i := range a.entries {
		if subtle.ConstantTimeCompare(digest[:], a.entries[i].digest[:]) == 1 {
			match = i
		}
	}
	if match < 0 {
		return auth.Result{Decision: auth.No, Err: auth.ErrInvalidKey}
	}
	id := a.entries[match].identity
	return auth.Result{Decision: auth.Yes, Identity: &id}
}
