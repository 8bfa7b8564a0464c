package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/addestra-labs/addestra/internal/auth"
	"github.com/addestra-labs/addestra/internal/corrections"
	"github.com/addestra-labs/addestra/internal/db"
	"github.com/addestra-labs/addestra/internal/rules"
	"github.com/addestra-labs/addestra/internal/training"
)

func setup(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	svc := NewService(training.NewStore(database),
		corrections.NewStore(database), rules.NewStore(database))
	return svc, database
}

func seed(t *testing.T, database *db.DB) {
	t.Helper()
	ctx := context.Background()

	convStore := training.NewStore(database)
	conv := &training.Conversation{TenantID: "tenant-a", Module: "attendance"}
	if err := convStore.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("Failed to create conversation: %v", err)
	}
	resolved := &training.Conversation{TenantID: "tenant-a", Module: "payslip"}
	if err := convStore.CreateConversation(ctx, resolved); err != nil {
		t.Fatalf("Failed to create conversation: %v", err)
	}
	if err := convStore.UpdateStatus(ctx, "tenant-a", resolved.ID, training.StatusResolved); err != nil {
		t.Fatalf("Failed to resolve conversation: %v", err)
	}

	corrStore := corrections.NewStore(database)
	if _, err := corrStore.Create(ctx, database, corrections.Correction{
		ConversationID: conv.ID,
		TenantID:       "tenant-a",
		Module:         "attendance",
		EntityType:     "timesheet",
		EntityID:       "ts-1",
		FieldPath:      "status",
		OriginalValue:  "late",
		CorrectedValue: "excused",
	}); err != nil {
		t.Fatalf("Failed to create correction: %v", err)
	}

	ruleStore := rules.NewStore(database)
	rule := &rules.Rule{
		TenantID:      "tenant-a",
		Module:        "attendance",
		Name:          "Excuse short delays",
		ConditionText: "delay is short",
		ActionText:    "mark excused",
		CreatedBy:     "user-1",
	}
	if err := ruleStore.Create(ctx, database, rule); err != nil {
		t.Fatalf("Failed to create rule: %v", err)
	}
	for _, success := range []bool{true, true, false, true} {
		if err := ruleStore.RecordUsage(ctx, "tenant-a", rule.ID, success); err != nil {
			t.Fatalf("Failed to record usage: %v", err)
		}
	}
}

func TestOverview(t *testing.T) {
	svc, database := setup(t)
	seed(t, database)

	overview, err := svc.Overview(context.Background(), "tenant-a", 0)
	if err != nil {
		t.Fatalf("Failed to compute overview: %v", err)
	}

	if overview.WindowDays != DefaultWindowDays {
		t.Errorf("Expected default window, got %d", overview.WindowDays)
	}
	if overview.Conversations[training.StatusActive] != 1 ||
		overview.Conversations[training.StatusResolved] != 1 {
		t.Errorf("Unexpected conversation counts: %v", overview.Conversations)
	}
	if overview.Corrections != 1 {
		t.Errorf("Expected 1 correction, got %d", overview.Corrections)
	}
	if overview.Rules.Total != 1 || overview.Rules.UsageCount != 4 {
		t.Errorf("Unexpected rule stats: %+v", overview.Rules)
	}
	// 40*(4/5) + 40*0.75 + 20*(1/10) = 32 + 30 + 2
	if overview.LearningScore != 64 {
		t.Errorf("Expected learning score 64, got %d", overview.LearningScore)
	}
}

func TestOverviewEmptyTenant(t *testing.T) {
	svc, database := setup(t)
	seed(t, database)

	overview, err := svc.Overview(context.Background(), "tenant-b", 7)
	if err != nil {
		t.Fatalf("Failed to compute overview: %v", err)
	}
	if overview.Corrections != 0 || overview.Rules.Total != 0 || overview.LearningScore != 0 {
		t.Errorf("Expected empty aggregates for other tenant: %+v", overview)
	}
}

func TestStatsRoute(t *testing.T) {
	svc, database := setup(t)
	seed(t, database)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.Identity{UserID: "user-1", TenantID: "tenant-a", Scope: auth.ScopeRead}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	})
	RegisterRoutes(router, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/training/stats?days=7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var overview Overview
	if err := json.NewDecoder(rec.Body).Decode(&overview); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if overview.WindowDays != 7 {
		t.Errorf("Expected window 7, got %d", overview.WindowDays)
	}
}
