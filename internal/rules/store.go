package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/addestra-labs/addestra/internal/db"
)

// ErrNotFound is returned when a rule does not exist for the tenant.
var ErrNotFound = errors.New("rule not found")

// Store persists rules.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a rule. It accepts a db.Execer so the training processor
// can include rule creation in the same transaction as the assistant
// message and correction.
func (s *Store) Create(ctx context.Context, exec db.Execer, r *Rule) error {
	if r.TenantID == "" {
		return fmt.Errorf("tenant id required")
	}
	if r.Name == "" || r.ConditionText == "" || r.ActionText == "" {
		return fmt.Errorf("name, condition and action are required")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Confidence == 0 {
		r.Confidence = AutoConfidence
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Active = true

	_, err := exec.ExecContext(ctx, `
		INSERT INTO rules (id, tenant_id, module, name, condition_text, condition_payload,
			action_text, action_payload, priority, confidence, usage_count, success_count,
			active, source_conversation_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 1, ?, ?, ?, ?)`,
		r.ID, r.TenantID, r.Module, r.Name, r.ConditionText,
		normalizePayload(r.ConditionPayload), r.ActionText, normalizePayload(r.ActionPayload),
		r.Priority, r.Confidence, nullable(r.SourceConversationID), r.CreatedBy,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

// GetByID fetches a single rule scoped to the tenant.
func (s *Store) GetByID(ctx context.Context, tenantID, id string) (*Rule, error) {
	row := s.db.QueryRowContext(ctx, selectRule+` WHERE id = ? AND tenant_id = ?`, id, tenantID)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return r, nil
}

// List returns the tenant's rules ordered by priority then recency.
func (s *Store) List(ctx context.Context, tenantID string, f ListFilter) ([]*Rule, error) {
	clauses := []string{"tenant_id = ?"}
	args := []any{tenantID}
	if f.Module != "" {
		clauses = append(clauses, "module = ?")
		args = append(args, f.Module)
	}
	if f.Active != nil {
		clauses = append(clauses, "active = ?")
		args = append(args, boolToInt(*f.Active))
	}
	query := selectRule + " WHERE " + strings.Join(clauses, " AND ") +
		" ORDER BY priority DESC, created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var out []*Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Search returns active rules whose name, condition or action text matches
// the query. Used by the MCP search_rules tool.
func (s *Store) Search(ctx context.Context, tenantID, query string, limit int) ([]*Rule, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, selectRule+`
		WHERE tenant_id = ? AND active = 1
		  AND (name LIKE ? OR condition_text LIKE ? OR action_text LIKE ?)
		ORDER BY priority DESC, usage_count DESC LIMIT ?`,
		tenantID, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search rules: %w", err)
	}
	defer rows.Close()

	var out []*Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetActive toggles a rule on or off.
func (s *Store) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET active = ?, updated_at = ? WHERE id = ? AND tenant_id = ?`,
		boolToInt(active), time.Now().UTC(), id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return checkAffected(res)
}

// RecordUsage increments the usage counter, and the success counter when
// the application of the rule was accepted.
func (s *Store) RecordUsage(ctx context.Context, tenantID, id string, success bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rules SET usage_count = usage_count + 1,
			success_count = success_count + ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`,
		boolToInt(success), time.Now().UTC(), id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to record rule usage: %w", err)
	}
	return checkAffected(res)
}

// Delete removes a rule permanently.
func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rules WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return checkAffected(res)
}

// Usage aggregates usage numbers for the tenant's rules, optionally
// limited to rules updated in the last `days` days.
func (s *Store) Usage(ctx context.Context, tenantID string, days int) (*UsageStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(active), 0),
			COALESCE(SUM(usage_count), 0), COALESCE(SUM(success_count), 0)
		FROM rules WHERE tenant_id = ?`
	args := []any{tenantID}
	if days > 0 {
		query += ` AND updated_at >= ?`
		args = append(args, time.Now().UTC().AddDate(0, 0, -days))
	}

	var st UsageStats
	var successes int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&st.Total, &st.ActiveCount, &st.UsageCount, &successes); err != nil {
		return nil, fmt.Errorf("failed to aggregate rule usage: %w", err)
	}
	if st.UsageCount > 0 {
		st.SuccessRate = float64(successes) / float64(st.UsageCount)
	}
	return &st, nil
}

const selectRule = `
	SELECT id, tenant_id, module, name, condition_text, condition_payload,
		action_text, action_payload, priority, confidence, usage_count,
		success_count, active, source_conversation_id, created_by,
		created_at, updated_at
	FROM rules`

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*Rule, error) {
	var r Rule
	var condPayload, actPayload string
	var active int
	var sourceConv sql.NullString
	if err := row.Scan(&r.ID, &r.TenantID, &r.Module, &r.Name, &r.ConditionText,
		&condPayload, &r.ActionText, &actPayload, &r.Priority, &r.Confidence,
		&r.UsageCount, &r.SuccessCount, &active, &sourceConv, &r.CreatedBy,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ConditionPayload = json.RawMessage(condPayload)
	r.ActionPayload = json.RawMessage(actPayload)
	r.Active = active == 1
	r.SourceConversationID = sourceConv.String
	if r.UsageCount > 0 {
		r.SuccessRate = float64(r.SuccessCount) / float64(r.UsageCount)
	}
	return &r, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
