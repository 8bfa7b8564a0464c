package training

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

// ErrNotFound is returned when a conversation does not exist for the
// tenant. Cross-tenant access looks identical to absence.
var ErrNotFound = errors.New("conversation not found")

// Store persists conversations and their messages.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateConversation inserts a new conversation in the active status.
func (s *Store) CreateConversation(ctx context.Context, c *Conversation) error {
	if c.TenantID == "" {
		return fmt.Errorf("tenant id required")
	}
	if !ValidModule(c.Module) {
		return fmt.Errorf("unknown module %q", c.Module)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if len(c.ContextData) == 0 || !json.Valid(c.ContextData) {
		c.ContextData = json.RawMessage("{}")
	}
	c.Status = StatusActive
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, tenant_id, title, module, entity_id, context_data, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TenantID, c.Title, c.Module, nullable(c.EntityID),
		string(c.ContextData), c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// GetConversation fetches conversation metadata without messages.
func (s *Store) GetConversation(ctx context.Context, tenantID, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, title, module, entity_id, context_data, status, created_at, updated_at
		FROM conversations WHERE id = ? AND tenant_id = ?`, id, tenantID)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

// GetWithMessages fetches a conversation and its full transcript in
// sequence order.
func (s *Store) GetWithMessages(ctx context.Context, tenantID, id string) (*Conversation, error) {
	c, err := s.GetConversation(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, seq, role, content, function_call, function_result, token_count, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	c.Messages = []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		c.Messages = append(c.Messages, *m)
	}
	return c, rows.Err()
}

// List returns the tenant's conversations, most recently updated first.
func (s *Store) List(ctx context.Context, tenantID string, f ListFilter) ([]*Conversation, error) {
	clauses := []string{"tenant_id = ?"}
	args := []any{tenantID}
	if f.Module != "" {
		clauses = append(clauses, "module = ?")
		args = append(args, f.Module)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	query := `
		SELECT id, tenant_id, title, module, entity_id, context_data, status, created_at, updated_at
		FROM conversations WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY updated_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStatus moves a conversation between active, resolved and archived.
func (s *Store) UpdateStatus(ctx context.Context, tenantID, id, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET status = ?, updated_at = ? WHERE id = ? AND tenant_id = ?`,
		status, time.Now().UTC(), id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return checkAffected(res)
}

// Touch bumps updated_at. It accepts a db.Execer so the processor can
// include it in the turn transaction.
func (s *Store) Touch(ctx context.Context, exec db.Execer, id string) error {
	_, err := exec.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation. Messages and corrections cascade inside
// the same transaction, so a partial delete is impossible.
func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM conversations WHERE id = ? AND tenant_id = ?`, id, tenantID)
		if err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		return checkAffected(res)
	})
}

// AppendMessage inserts a message with the next sequence number. The
// subquery and insert run as one statement, so concurrent appends never
// produce duplicate positions.
func (s *Store) AppendMessage(ctx context.Context, exec db.Execer, m *Message) error {
	if m.ConversationID == "" {
		return fmt.Errorf("conversation id required")
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().UTC()

	row := exec.QueryRowContext(ctx, `
		INSERT INTO messages (id, conversation_id, seq, role, content, function_call, function_result, token_count, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?), ?, ?, ?, ?, ?, ?)
		RETURNING seq`,
		m.ID, m.ConversationID, m.ConversationID, m.Role, m.Content,
		nullable(m.FunctionCall), nullable(m.FunctionResult), nullableInt(m.TokenCount), m.CreatedAt)
	if err := row.Scan(&m.Seq); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// CountByStatus aggregates conversation counts per status for the tenant,
// limited to conversations updated in the last `days` days when days > 0.
func (s *Store) CountByStatus(ctx context.Context, tenantID string, days int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM conversations WHERE tenant_id = ?`
	args := []any{tenantID}
	if days > 0 {
		query += ` AND updated_at >= ?`
		args = append(args, time.Now().UTC().AddDate(0, 0, -days))
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{StatusActive: 0, StatusResolved: 0, StatusArchived: 0}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(sc scanner) (*Conversation, error) {
	var c Conversation
	var entityID sql.NullString
	var contextData string
	if err := sc.Scan(&c.ID, &c.TenantID, &c.Title, &c.Module, &entityID,
		&contextData, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.EntityID = entityID.String
	c.ContextData = json.RawMessage(contextData)
	return &c, nil
}

func scanMessage(sc scanner) (*Message, error) {
	var m Message
	var fnCall, fnResult sql.NullString
	var tokens sql.NullInt64
	if err := sc.Scan(&m.ID, &m.ConversationID, &m.Seq, &m.Role, &m.Content,
		&fnCall, &fnResult, &tokens, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.FunctionCall = fnCall.String
	m.FunctionResult = fnResult.String
	m.TokenCount = int(tokens.Int64)
	return &m, nil
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

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
