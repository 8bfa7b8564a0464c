package stats

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/addestra-labs/addestra/internal/auth"
)

// RegisterRoutes mounts the dashboard endpoint.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/api/training/stats", handleOverview(svc))
}

func handleOverview(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		days := 0
		if v, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && v > 0 {
			days = v
		}

		overview, err := svc.Overview(r.Context(), ident.TenantID, days)
		if err != nil {
			log.Printf("Failed to compute stats: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to compute stats")
			return
		}
		writeJSON(w, http.StatusOK, overview)
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
