// Package auth guards the stub server's HTTP surface.
//
// Authenticators vote Yes, No or Abstain on a request's credentials and a
// Chain takes the first non-abstaining vote. Middleware turns the outcome
// into a 401 API error or an authenticated request whose context carries
// the caller's Identity and storage tenant. An optional Limiter answers 429
// per service tier.
//
// Credentials are read from either "Authorization: Bearer <token>" or the
// "api-key" header, matching the two styles pkg/client can send.
package auth
