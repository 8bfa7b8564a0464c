package rules

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/addestra-labs/addestra/internal/auth"
	"github.com/addestra-labs/addestra/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func testRule(tenantID string) *Rule {
	return &Rule{
		TenantID:         tenantID,
		Module:           "attendance",
		Name:             "Late arrival grace period",
		ConditionText:    "employee clocks in up to 10 minutes late",
		ConditionPayload: json.RawMessage(`{"field":"minutes_late","operator":"lte","value":"10"}`),
		ActionText:       "do not flag the entry",
		ActionPayload:    json.RawMessage(`{"field":"flagged","set_to":"false"}`),
		CreatedBy:        "user-1",
	}
}

func TestCreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	r := testRule("tenant-a")
	if err := store.Create(ctx, store.db, r); err != nil {
		t.Fatalf("Failed to create rule: %v", err)
	}
	if r.ID == "" {
		t.Error("Expected generated ID")
	}
	if r.Confidence != AutoConfidence {
		t.Errorf("Expected confidence %v, got %v", AutoConfidence, r.Confidence)
	}

	got, err := store.GetByID(ctx, "tenant-a", r.ID)
	if err != nil {
		t.Fatalf("Failed to get rule: %v", err)
	}
	if got.Name != r.Name {
		t.Errorf("Expected name %q, got %q", r.Name, got.Name)
	}
	if !got.Active {
		t.Error("Expected new rule to be active")
	}
	if _, ok := ParseCondition(got.ConditionPayload); !ok {
		t.Error("Expected stored condition payload to remain parseable")
	}
}

func TestCreateRequiresFields(t *testing.T) {
	store := setupStore(t)
	r := testRule("tenant-a")
	r.ActionText = ""
	if err := store.Create(context.Background(), store.db, r); err == nil {
		t.Error("Expected error for rule without action text")
	}
}

func TestTenantIsolation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	r := testRule("tenant-a")
	if err := store.Create(ctx, store.db, r); err != nil {
		t.Fatalf("Failed to create rule: %v", err)
	}

	if _, err := store.GetByID(ctx, "tenant-b", r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign tenant, got %v", err)
	}
	if err := store.SetActive(ctx, "tenant-b", r.ID, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on foreign toggle, got %v", err)
	}
	if err := store.Delete(ctx, "tenant-b", r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on foreign delete, got %v", err)
	}

	list, err := store.List(ctx, "tenant-b", ListFilter{})
	if err != nil {
		t.Fatalf("Failed to list rules: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected empty list for other tenant, got %d rules", len(list))
	}
}

func TestRecordUsage(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	r := testRule("tenant-a")
	if err := store.Create(ctx, store.db, r); err != nil {
		t.Fatalf("Failed to create rule: %v", err)
	}

	for _, success := range []bool{true, true, false, true} {
		if err := store.RecordUsage(ctx, "tenant-a", r.ID, success); err != nil {
			t.Fatalf("Failed to record usage: %v", err)
		}
	}

	got, err := store.GetByID(ctx, "tenant-a", r.ID)
	if err != nil {
		t.Fatalf("Failed to get rule: %v", err)
	}
	if got.UsageCount != 4 {
		t.Errorf("Expected usage count 4, got %d", got.UsageCount)
	}
	if got.SuccessCount != 3 {
		t.Errorf("Expected success count 3, got %d", got.SuccessCount)
	}
	if got.SuccessRate != 0.75 {
		t.Errorf("Expected success rate 0.75, got %v", got.SuccessRate)
	}

	usage, err := store.Usage(ctx, "tenant-a", 0)
	if err != nil {
		t.Fatalf("Failed to aggregate usage: %v", err)
	}
	if usage.Total != 1 || usage.UsageCount != 4 || usage.SuccessRate != 0.75 {
		t.Errorf("Unexpected usage stats: %+v", usage)
	}
}

func TestListFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	a := testRule("tenant-a")
	if err := store.Create(ctx, store.db, a); err != nil {
		t.Fatalf("Failed to create rule: %v", err)
	}
	b := testRule("tenant-a")
	b.Module = "payslip"
	b.Name = "Meal voucher rounding"
	if err := store.Create(ctx, store.db, b); err != nil {
		t.Fatalf("Failed to create rule: %v", err)
	}
	if err := store.SetActive(ctx, "tenant-a", b.ID, false); err != nil {
		t.Fatalf("Failed to deactivate rule: %v", err)
	}

	list, err := store.List(ctx, "tenant-a", ListFilter{Module: "payslip"})
	if err != nil {
		t.Fatalf("Failed to list rules: %v", err)
	}
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("Expected only the payslip rule, got %d rules", len(list))
	}

	active := true
	list, err = store.List(ctx, "tenant-a", ListFilter{Active: &active})
	if err != nil {
		t.Fatalf("Failed to list rules: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Errorf("Expected only the active rule, got %d rules", len(list))
	}
}

func TestSearch(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	r := testRule("tenant-a")
	if err := store.Create(ctx, store.db, r); err != nil {
		t.Fatalf("Failed to create rule: %v", err)
	}

	found, err := store.Search(ctx, "tenant-a", "grace", 10)
	if err != nil {
		t.Fatalf("Failed to search rules: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(found))
	}

	found, err = store.Search(ctx, "tenant-a", "overtime", 10)
	if err != nil {
		t.Fatalf("Failed to search rules: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Expected no matches, got %d", len(found))
	}
}

func TestParsePayloads(t *testing.T) {
	if _, ok := ParseCondition(json.RawMessage(`{"field":"status","operator":"equals","value":"late"}`)); !ok {
		t.Error("Expected valid condition to parse")
	}
	if _, ok := ParseCondition(json.RawMessage(`{"field":"status","operator":"regex","value":"x"}`)); ok {
		t.Error("Expected unknown operator to be rejected")
	}
	if _, ok := ParseCondition(json.RawMessage(`{"anything":"goes"}`)); ok {
		t.Error("Expected opaque payload to be rejected")
	}
	if _, ok := ParseAction(json.RawMessage(`{"field":"flagged","set_to":"false"}`)); !ok {
		t.Error("Expected valid action to parse")
	}
	if _, ok := ParseAction(json.RawMessage(`null`)); ok {
		t.Error("Expected null payload to be rejected")
	}
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rule := testRule("tenant-a")
	if err := store.Create(ctx, store.db, rule); err != nil {
		t.Fatalf("Failed to create rule: %v", err)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := auth.Identity{UserID: "user-1", TenantID: "tenant-a", Scope: auth.ScopeReadWrite}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), ident)))
		})
	})
	RegisterRoutes(router, store)

	req := httptest.NewRequest(http.MethodGet, "/api/rules", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	var listResp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if listResp.Count != 1 {
		t.Errorf("Expected 1 rule, got %d", listResp.Count)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/rules/"+rule.ID+"/active",
		strings.NewReader(`{"active":false}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	got, err := store.GetByID(ctx, "tenant-a", rule.ID)
	if err != nil {
		t.Fatalf("Failed to get rule: %v", err)
	}
	if got.Active {
		t.Error("Expected rule to be deactivated")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/rules/"+rule.ID+"/usage",
		strings.NewReader(`{"success":true}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/rules/nonexistent", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
