package training

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/addestra-labs/addestra/internal/auth"
	"github.com/addestra-labs/addestra/internal/corrections"
	"github.com/addestra-labs/addestra/internal/db"
	"github.com/addestra-labs/addestra/internal/rules"
)

func setupRouter(t *testing.T, provider *stubProvider) (*chi.Mux, *Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := NewStore(database)
	processor := NewProcessor(database, store, corrections.NewStore(database),
		rules.NewStore(database), provider, nil, ProcessorConfig{Model: "test-model"})

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.Identity{UserID: "user-1", TenantID: "tenant-a", Scope: auth.ScopeReadWrite}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	})
	RegisterRoutes(router, store, processor)
	return router, store
}

func TestCreateAndListConversations(t *testing.T) {
	router, _ := setupRouter(t, &stubProvider{content: plainReply})

	body := `{"module": "leaves", "title": "Ferie arretrate", "entity_id": "emp-7"}`
	req := httptest.NewRequest(http.MethodPost, "/api/training/conversations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var conv Conversation
	if err := json.NewDecoder(rec.Body).Decode(&conv); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if conv.Status != StatusActive {
		t.Errorf("Expected active status, got %q", conv.Status)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/training/conversations?module=leaves", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var listResp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if listResp.Count != 1 {
		t.Errorf("Expected 1 conversation, got %d", listResp.Count)
	}
}

func TestCreateConversationBadModule(t *testing.T) {
	router, _ := setupRouter(t, &stubProvider{content: plainReply})

	req := httptest.NewRequest(http.MethodPost, "/api/training/conversations",
		strings.NewReader(`{"module": "payroll"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestSendMessageEndpoint(t *testing.T) {
	router, store := setupRouter(t, &stubProvider{content: fullReply})
	conv := newConversation(t, store, "tenant-a")

	req := httptest.NewRequest(http.MethodPost, "/api/training/conversations/"+conv.ID+"/messages",
		strings.NewReader(`{"content": "I ritardi brevi vanno giustificati."}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.AssistantMessage == nil || result.Correction == nil || result.Rule == nil {
		t.Error("Expected assistant message, correction and rule in the turn result")
	}
}

func TestSendMessageErrorMapping(t *testing.T) {
	router, store := setupRouter(t, &stubProvider{err: errTest})
	conv := newConversation(t, store, "tenant-a")

	req := httptest.NewRequest(http.MethodPost, "/api/training/conversations/"+conv.ID+"/messages",
		strings.NewReader(`{"content": ""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty content, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/training/conversations/nonexistent/messages",
		strings.NewReader(`{"content": "ciao"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown conversation, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/training/conversations/"+conv.ID+"/messages",
		strings.NewReader(`{"content": "ciao"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for upstream failure, got %d", rec.Code)
	}
}

func TestStatusAndDeleteEndpoints(t *testing.T) {
	router, store := setupRouter(t, &stubProvider{content: plainReply})
	conv := newConversation(t, store, "tenant-a")

	req := httptest.NewRequest(http.MethodPatch, "/api/training/conversations/"+conv.ID+"/status",
		strings.NewReader(`{"status": "resolved"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/training/conversations/"+conv.ID+"/status",
		strings.NewReader(`{"status": "closed"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown status, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/training/conversations/"+conv.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/training/conversations/"+conv.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}
