package training

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/addestra-labs/addestra/internal/auth"
)

// RegisterRoutes mounts the conversation and turn endpoints.
func RegisterRoutes(r chi.Router, store *Store, processor *Processor) {
	r.Route("/api/training/conversations", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.With(auth.RequireWrite).Post("/", handleCreate(store))
		r.Get("/{id}", handleGet(store))
		r.With(auth.RequireWrite).Post("/{id}/messages", handleSendMessage(processor))
		r.With(auth.RequireWrite).Patch("/{id}/status", handleUpdateStatus(store))
		r.With(auth.RequireWrite).Delete("/{id}", handleDelete(store))
		r.Get("/{id}/ws", handleChatSocket(processor))
	})
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		var body struct {
			Title       string          `json:"title"`
			Module      string          `json:"module"`
			EntityID    string          `json:"entity_id"`
			ContextData json.RawMessage `json:"context_data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !ValidModule(body.Module) {
			writeError(w, http.StatusBadRequest, "unknown module")
			return
		}

		conv := &Conversation{
			TenantID:    ident.TenantID,
			Title:       body.Title,
			Module:      body.Module,
			EntityID:    body.EntityID,
			ContextData: body.ContextData,
		}
		if err := store.CreateConversation(r.Context(), conv); err != nil {
			log.Printf("Failed to create conversation: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to create conversation")
			return
		}
		writeJSON(w, http.StatusCreated, conv)
	}
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		f := ListFilter{
			Module: r.URL.Query().Get("module"),
			Status: r.URL.Query().Get("status"),
		}
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			f.Limit = v
		}
		if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
			f.Offset = v
		}

		list, err := store.List(r.Context(), ident.TenantID, f)
		if err != nil {
			log.Printf("Failed to list conversations: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list conversations")
			return
		}
		if list == nil {
			list = []*Conversation{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversations": list, "count": len(list)})
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		conv, err := store.GetWithMessages(r.Context(), ident.TenantID, chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		if err != nil {
			log.Printf("Failed to get conversation: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to get conversation")
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func handleSendMessage(processor *Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		var body struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := processor.ProcessMessage(r.Context(), ident, chi.URLParam(r, "id"), body.Content)
		switch {
		case errors.Is(err, ErrEmptyContent):
			writeError(w, http.StatusBadRequest, "message content is empty")
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "conversation not found")
		case errors.Is(err, ErrUpstream):
			log.Printf("Completion failed: %v", err)
			writeError(w, http.StatusBadGateway, "completion provider unavailable")
		case err != nil:
			log.Printf("Failed to process message: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to process message")
		default:
			writeJSON(w, http.StatusOK, result)
		}
	}
}

func handleUpdateStatus(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !ValidStatus(body.Status) {
			writeError(w, http.StatusBadRequest, "status must be active, resolved or archived")
			return
		}

		err := store.UpdateStatus(r.Context(), ident.TenantID, chi.URLParam(r, "id"), body.Status)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		if err != nil {
			log.Printf("Failed to update conversation status: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to update status")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": body.Status})
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
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		if err != nil {
			log.Printf("Failed to delete conversation: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to delete conversation")
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
