// Package noop lets every request through as the anonymous identity. It is
// meant for local development of clients against the stub server.
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/respkit/pkg/auth"
)

type Authenticator struct {
	// Tenant, when set, scopes every request to one storage tenant.
	Tenant string
}

func (a Authenticator) Authenticate(context.Context, *http.Request) auth.Result {
	id := auth.Anonymous
	id.Tenant = a.Tenant
	return auth.Result{Decision: auth.Yes, Identity: &id}
}
