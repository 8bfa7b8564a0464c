package training

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/addestra-labs/addestra/internal/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// socketRequest is the incoming WebSocket message format.
type socketRequest struct {
	Content string `json:"content"`
}

// socketResponse is the outgoing WebSocket message format. Turn carries
// the same payload the REST endpoint returns.
type socketResponse struct {
	Type  string      `json:"type"` // "turn" or "error"
	Turn  *TurnResult `json:"turn,omitempty"`
	Error string      `json:"error,omitempty"`
}

// handleChatSocket runs training turns over a socket, one request per
// message. Turn semantics are identical to the POST endpoint.
func handleChatSocket(processor *Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		// Socket turns mutate the conversation just like the POST endpoint,
		// so the same scope gate applies before the upgrade.
		if !ident.Scope.CanWrite() {
			writeError(w, http.StatusForbidden, "write scope required")
			return
		}
		conversationID := chi.URLParam(r, "id")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("Websocket read failed: %v", err)
				}
				return
			}

			var req socketRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				sendSocketError(conn, "invalid message format")
				continue
			}

			result, err := processor.ProcessMessage(r.Context(), ident, conversationID, req.Content)
			switch {
			case errors.Is(err, ErrEmptyContent):
				sendSocketError(conn, "message content is empty")
			case errors.Is(err, ErrNotFound):
				sendSocketError(conn, "conversation not found")
				return
			case errors.Is(err, ErrUpstream):
				log.Printf("Completion failed: %v", err)
				sendSocketError(conn, "completion provider unavailable")
			case err != nil:
				log.Printf("Failed to process message: %v", err)
				sendSocketError(conn, "failed to process message")
			default:
				if err := conn.WriteJSON(socketResponse{Type: "turn", Turn: result}); err != nil {
					log.Printf("Websocket write failed: %v", err)
				}
			}
		}
	}
}

func sendSocketError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(socketResponse{Type: "error", Error: message}); err != nil {
		log.Printf("Websocket write failed: %v", err)
	}
}
