package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/addestra-labs/addestra/internal/auth"
	"github.com/addestra-labs/addestra/internal/db"
)

func setup(t *testing.T) (*Server, *auth.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	tokens := auth.NewStore(database)
	return New(Config{Host: "127.0.0.1", Port: 0}, database, tokens), tokens
}

func TestHealthCheckNeedsNoAuth(t *testing.T) {
	srv, _ := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestAPIRoutesRequireToken(t *testing.T) {
	srv, tokens := setup(t)

	srv.Router().Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		ident, _ := auth.FromContext(r.Context())
		w.Write([]byte(ident.TenantID))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	_, secret, err := tokens.Mint(context.Background(), "test", "tenant-a", "user-1", auth.ScopeReadWrite, 0)
	if err != nil {
		t.Fatalf("Failed to mint token: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+secret)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 with token, got %d", rec.Code)
	}
	if rec.Body.String() != "tenant-a" {
		t.Errorf("Expected tenant from token, got %q", rec.Body.String())
	}
}
