package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/addestra-labs/addestra/internal/db"
)

// ErrInvalidToken is returned when a token is unknown, expired, or malformed.
var ErrInvalidToken = errors.New("invalid or expired token")

// Store provides persistence for API tokens.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Mint creates a new API token for a tenant and returns the record together
// with the plaintext secret. The secret is not recoverable afterwards.
func (s *Store) Mint(ctx context.Context, name, tenantID, userID string, scope Scope, ttl time.Duration) (*Token, string, error) {
	if tenantID == "" || userID == "" {
		return nil, "", fmt.Errorf("tenant and user are required")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("generating token: %w", err)
	}
	secret := hex.EncodeToString(raw)

	tok := Token{
		ID:        uuid.New().String(),
		Name:      name,
		TenantID:  tenantID,
		UserID:    userID,
		Scope:     scope,
		CreatedAt: time.Now().UTC(),
	}

	var expiresAt sql.NullTime
	if ttl > 0 {
		exp := tok.CreatedAt.Add(ttl)
		tok.ExpiresAt = &exp
		expiresAt = sql.NullTime{Time: exp, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_tokens (id, name, token_hash, tenant_id, user_id, scope, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tok.ID, tok.Name, hashSecret(secret), tok.TenantID, tok.UserID,
		string(tok.Scope), tok.CreatedAt, expiresAt,
	)
	if err != nil {
		return nil, "", fmt.Errorf("inserting token: %w", err)
	}

	return &tok, secret, nil
}

// Resolve validates a plaintext bearer secret and returns the identity it
// grants. Expired or unknown tokens yield ErrInvalidToken.
func (s *Store) Resolve(ctx context.Context, secret string) (Identity, error) {
	if len(secret) < 32 {
		return Identity{}, ErrInvalidToken
	}

	hash := hashSecret(secret)

	var (
		id, tenantID, userID, scope string
		storedHash                  string
		expiresAt                   sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, token_hash, tenant_id, user_id, scope, expires_at
		FROM api_tokens WHERE token_hash = ?`, hash,
	).Scan(&id, &storedHash, &tenantID, &userID, &scope, &expiresAt)
	if err == sql.ErrNoRows {
		return Identity{}, ErrInvalidToken
	}
	if err != nil {
		return Identity{}, fmt.Errorf("resolving token: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(hash), []byte(storedHash)) != 1 {
		return Identity{}, ErrInvalidToken
	}

	if expiresAt.Valid && !time.Now().UTC().Before(expiresAt.Time) {
		return Identity{}, ErrInvalidToken
	}

	// Best effort; a failed touch never blocks the request.
	s.db.ExecContext(ctx, `UPDATE api_tokens SET last_used = ? WHERE id = ?`,
		time.Now().UTC(), id)

	return Identity{UserID: userID, TenantID: tenantID, Scope: Scope(scope)}, nil
}

// Revoke deletes a token by id.
func (s *Store) Revoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrInvalidToken
	}
	return nil
}

// List returns all tokens for a tenant, without secrets.
func (s *Store) List(ctx context.Context, tenantID string) ([]Token, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, tenant_id, user_id, scope, created_at, expires_at, last_used
		FROM api_tokens WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing tokens: %w", err)
	}
	defer rows.Close()

	var tokens []Token
	for rows.Next() {
		var (
			tok                 Token
			scope               string
			expiresAt, lastUsed sql.NullTime
		)
		if err := rows.Scan(&tok.ID, &tok.Name, &tok.TenantID, &tok.UserID, &scope, &tok.CreatedAt, &expiresAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}
		tok.Scope = Scope(scope)
		if expiresAt.Valid {
			t := expiresAt.Time
			tok.ExpiresAt = &t
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			tok.LastUsed = &t
		}
		tokens = append(tokens, tok)
	}
	return tokens, rows.Err()
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
