package corrections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/addestra-labs/addestra/internal/db"
)

// ErrNotFound is returned when a correction does not exist for the tenant.
var ErrNotFound = errors.New("correction not found")

// Store provides persistence for corrections.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a correction using the given executor, which may be a
// transaction owned by the message processor. If c.ID is empty a UUID is
// generated. Module must already be copied from the parent conversation.
func (s *Store) Create(ctx context.Context, exec db.Execer, c Correction) (*Correction, error) {
	if c.ConversationID == "" || c.TenantID == "" {
		return nil, fmt.Errorf("conversation and tenant are required")
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	var summary sql.NullString
	if c.RuleSummary != "" {
		summary = sql.NullString{String: c.RuleSummary, Valid: true}
	}

	_, err := exec.ExecContext(ctx, `
		INSERT INTO corrections (
			id, conversation_id, tenant_id, module, entity_type, entity_id,
			field_path, original_value, corrected_value, rule_summary, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ConversationID, c.TenantID, c.Module, c.EntityType, c.EntityID,
		c.FieldPath, c.OriginalValue, c.CorrectedValue, summary, c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting correction: %w", err)
	}
	return &c, nil
}

// GetByID retrieves a correction scoped to the tenant.
func (s *Store) GetByID(ctx context.Context, tenantID, id string) (*Correction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, tenant_id, module, entity_type, entity_id,
		       field_path, original_value, corrected_value, rule_summary, created_at
		FROM corrections WHERE id = ? AND tenant_id = ?`, id, tenantID)

	c, err := scanCorrection(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting correction: %w", err)
	}
	return c, nil
}

// List returns the tenant's corrections matching the filter, newest first.
func (s *Store) List(ctx context.Context, tenantID string, filter ListFilter) ([]Correction, error) {
	clauses := []string{"tenant_id = ?"}
	args := []any{tenantID}

	if filter.Module != "" {
		clauses = append(clauses, "module = ?")
		args = append(args, filter.Module)
	}
	if filter.EntityType != "" {
		clauses = append(clauses, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		clauses = append(clauses, "entity_id = ?")
		args = append(args, filter.EntityID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := `SELECT id, conversation_id, tenant_id, module, entity_type, entity_id,
		field_path, original_value, corrected_value, rule_summary, created_at
		FROM corrections WHERE ` + strings.Join(clauses, " AND ") + " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying corrections: %w", err)
	}
	defer rows.Close()

	var out []Correction
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning correction: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CountSince returns how many corrections the tenant recorded after the
// given time. Used by the stats aggregator.
func (s *Store) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM corrections WHERE tenant_id = ? AND created_at >= ?`,
		tenantID, since.UTC(),
	).Scan(&count)
	return count, err
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCorrection(sc scanner) (*Correction, error) {
	var (
		c       Correction
		summary sql.NullString
	)
	err := sc.Scan(
		&c.ID, &c.ConversationID, &c.TenantID, &c.Module, &c.EntityType, &c.EntityID,
		&c.FieldPath, &c.OriginalValue, &c.CorrectedValue, &summary, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if summary.Valid {
		c.RuleSummary = summary.String
	}
	return &c, nil
}
