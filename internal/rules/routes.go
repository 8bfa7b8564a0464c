package rules

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/addestra-labs/addestra/internal/auth"
)

// RegisterRoutes mounts the rule endpoints on the router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/rules", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/{id}", handleGet(store))
		r.With(auth.RequireWrite).Patch("/{id}/active", handleSetActive(store))
		r.With(auth.RequireWrite).Post("/{id}/usage", handleRecordUsage(store))
		r.With(auth.RequireWrite).Delete("/{id}", handleDelete(store))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		f := ListFilter{Module: r.URL.Query().Get("module")}
		if v := r.URL.Query().Get("active"); v != "" {
			active := v == "true" || v == "1"
			f.Active = &active
		}
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			f.Limit = v
		}
		if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
			f.Offset = v
		}

		list, err := store.List(r.Context(), ident.TenantID, f)
		if err != nil {
			log.Printf("Failed to list rules: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list rules")
			return
		}
		if list == nil {
			list = []*Rule{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": list, "count": len(list)})
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		rule, err := store.GetByID(r.Context(), ident.TenantID, chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		if err != nil {
			log.Printf("Failed to get rule: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to get rule")
			return
		}
		writeJSON(w, http.StatusOK, rule)
	}
}

func handleSetActive(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		var body struct {
			Active *bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Active == nil {
			writeError(w, http.StatusBadRequest, "body must include an active flag")
			return
		}

		err := store.SetActive(r.Context(), ident.TenantID, chi.URLParam(r, "id"), *body.Active)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		if err != nil {
			log.Printf("Failed to update rule: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to update rule")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
	}
}

func handleRecordUsage(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		var body struct {
			Success bool `json:"success"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		err := store.RecordUsage(r.Context(), ident.TenantID, chi.URLParam(r, "id"), body.Success)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		if err != nil {
			log.Printf("Failed to record rule usage: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to record usage")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "recorded"})
	}
}

func handleDelete(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		err := store.Delete(r.Context(), ident.TenantID, chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		if err != nil {
			log.Printf("Failed to delete rule: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to delete rule")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
