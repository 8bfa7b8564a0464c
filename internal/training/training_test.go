package training

import (
	"context"
	"errors"
	"testing"

	"github.com/addestra-labs/addestra/internal/db"
)

func setupStore(t *testing.T) (*Store, *db.DB) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database), database
}

func newConversation(t *testing.T, store *Store, tenantID string) *Conversation {
	t.Helper()
	conv := &Conversation{
		TenantID: tenantID,
		Title:    "Ritardi sede di Milano",
		Module:   ModuleAttendance,
		EntityID: "emp-042",
	}
	if err := store.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("Failed to create conversation: %v", err)
	}
	return conv
}

func TestCreateConversation(t *testing.T) {
	store, _ := setupStore(t)
	conv := newConversation(t, store, "tenant-a")

	if conv.ID == "" {
		t.Error("Expected generated ID")
	}
	if conv.Status != StatusActive {
		t.Errorf("Expected status active, got %q", conv.Status)
	}
	if string(conv.ContextData) != "{}" {
		t.Errorf("Expected empty context data object, got %q", conv.ContextData)
	}
}

func TestCreateConversationRejectsUnknownModule(t *testing.T) {
	store, _ := setupStore(t)
	conv := &Conversation{TenantID: "tenant-a", Module: "payroll"}
	if err := store.CreateConversation(context.Background(), conv); err == nil {
		t.Error("Expected error for unknown module")
	}
}

func TestTranscriptOrder(t *testing.T) {
	store, database := setupStore(t)
	ctx := context.Background()
	conv := newConversation(t, store, "tenant-a")

	contents := []string{"first", "second", "third"}
	roles := []string{"user", "assistant", "user"}
	for i := range contents {
		m := &Message{ConversationID: conv.ID, Role: roles[i], Content: contents[i]}
		if err := store.AppendMessage(ctx, database, m); err != nil {
			t.Fatalf("Failed to append message: %v", err)
		}
		if m.Seq != i+1 {
			t.Errorf("Expected seq %d, got %d", i+1, m.Seq)
		}
	}

	got, err := store.GetWithMessages(ctx, "tenant-a", conv.ID)
	if err != nil {
		t.Fatalf("Failed to get conversation: %v", err)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got.Messages))
	}
	for i, m := range got.Messages {
		if m.Content != contents[i] {
			t.Errorf("Position %d: expected %q, got %q", i, contents[i], m.Content)
		}
	}
}

func TestTenantIsolation(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	conv := newConversation(t, store, "tenant-a")

	if _, err := store.GetWithMessages(ctx, "tenant-b", conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign tenant, got %v", err)
	}
	if err := store.UpdateStatus(ctx, "tenant-b", conv.ID, StatusResolved); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on foreign status update, got %v", err)
	}
	if err := store.Delete(ctx, "tenant-b", conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on foreign delete, got %v", err)
	}

	list, err := store.List(ctx, "tenant-b", ListFilter{})
	if err != nil {
		t.Fatalf("Failed to list conversations: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected empty list for other tenant, got %d", len(list))
	}
}

func TestListFilters(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	a := newConversation(t, store, "tenant-a")
	b := &Conversation{TenantID: "tenant-a", Module: ModulePayslip}
	if err := store.CreateConversation(ctx, b); err != nil {
		t.Fatalf("Failed to create conversation: %v", err)
	}
	if err := store.UpdateStatus(ctx, "tenant-a", a.ID, StatusArchived); err != nil {
		t.Fatalf("Failed to archive conversation: %v", err)
	}

	list, err := store.List(ctx, "tenant-a", ListFilter{Status: StatusActive})
	if err != nil {
		t.Fatalf("Failed to list conversations: %v", err)
	}
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("Expected only the active conversation")
	}

	list, err = store.List(ctx, "tenant-a", ListFilter{Module: ModuleAttendance})
	if err != nil {
		t.Fatalf("Failed to list conversations: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Errorf("Expected only the attendance conversation")
	}

	counts, err := store.CountByStatus(ctx, "tenant-a", 0)
	if err != nil {
		t.Fatalf("Failed to count by status: %v", err)
	}
	if counts[StatusActive] != 1 || counts[StatusArchived] != 1 || counts[StatusResolved] != 0 {
		t.Errorf("Unexpected status counts: %v", counts)
	}
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	store, _ := setupStore(t)
	conv := newConversation(t, store, "tenant-a")
	if err := store.UpdateStatus(context.Background(), "tenant-a", conv.ID, "closed"); err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestDeleteCascades(t *testing.T) {
	store, database := setupStore(t)
	ctx := context.Background()
	conv := newConversation(t, store, "tenant-a")

	m := &Message{ConversationID: conv.ID, Role: "user", Content: "hello"}
	if err := store.AppendMessage(ctx, database, m); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}
	if _, err := database.ExecContext(ctx, `
		INSERT INTO corrections (id, conversation_id, tenant_id, module, entity_type, entity_id, field_path, original_value, corrected_value)
		VALUES ('corr-1', ?, 'tenant-a', 'attendance', 'timesheet', 'ts-1', 'status', 'late', 'excused')`,
		conv.ID); err != nil {
		t.Fatalf("Failed to insert correction: %v", err)
	}

	if err := store.Delete(ctx, "tenant-a", conv.ID); err != nil {
		t.Fatalf("Failed to delete conversation: %v", err)
	}

	var n int
	if err := database.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conv.ID).Scan(&n); err != nil {
		t.Fatalf("Failed to count messages: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected messages to cascade, found %d", n)
	}
	if err := database.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM corrections WHERE conversation_id = ?`, conv.ID).Scan(&n); err != nil {
		t.Fatalf("Failed to count corrections: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected corrections to cascade, found %d", n)
	}
}
