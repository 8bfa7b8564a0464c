// Package auth resolves bearer tokens to tenant-scoped identities.
// Session management lives outside this service; every caller presents an
// API token minted offline, and handlers trust the resolved identity.
package auth

import (
	"context"
	"time"
)

// Scope limits what an API token may do.
type Scope string

const (
	ScopeRead      Scope = "read"
	ScopeReadWrite Scope = "readwrite"
	ScopeAdmin     Scope = "admin"
)

// CanWrite reports whether the scope permits mutating operations.
func (s Scope) CanWrite() bool {
	return s == ScopeReadWrite || s == ScopeAdmin
}

// Identity is the resolved caller of a request. All persistence operations
// are scoped by TenantID; there is no ambient tenant state anywhere else.
type Identity struct {
	UserID   string
	TenantID string
	Scope    Scope
}

// Token is an API token record. The plaintext secret is only available at
// mint time; the database keeps its hash.
type Token struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	TenantID  string     `json:"tenant_id"`
	UserID    string     `json:"user_id"`
	Scope     Scope      `json:"scope"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

type contextKey struct{}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the identity resolved by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
