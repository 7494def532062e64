package storage

import "context"

type tenantKey struct{}

// SetTenant returns ctx scoped to tenantID. The auth middleware sets it
// from the authenticated identity.
func SetTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// GetTenant returns the tenant in ctx, or "" in single-tenant mode.
func GetTenant(ctx context.Context) string {
	if v, ok := ctx.Value(tenantKey{}).(string); ok {
		return v
	}
	return ""
}

// Visible reports whether a record owned by owner may be read under ctx.
// Without a tenant in ctx every record is visible.
func Visible(ctx context.Context, owner string) bool {
	t := GetTenant(ctx)
	return t == "" || t == owner
}
