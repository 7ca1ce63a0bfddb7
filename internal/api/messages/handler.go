package messages

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taras55555/chat-application-server/internal/api"
	"github.com/taras55555/chat-application-server/internal/auth"
	"github.com/taras55555/chat-application-server/internal/chat"
)

// MessageHandler holds the dependencies for the conversation endpoints.
type MessageHandler struct {
	Service *chat.Service
}

// ListContacts handles GET /messages: the caller's contact list, most recently
// active conversation first, each entry carrying its last message only.
func (h *MessageHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	contacts, err := h.Service.ListContacts(r.Context(), identity.ID)
	if err != nil {
		log.Printf("Error listing contacts for user %s: %v", identity.ID, err)
		api.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	api.WriteJSON(w, http.StatusOK, contacts)
}

// GetHistory handles GET /messages/{participant}: the full thread between the
// caller and the participant, with empty defaults when there is none yet.
func (h *MessageHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	participantID := mux.Vars(r)["participant"]

	history, err := h.Service.GetHistory(r.Context(), identity.ID, participantID)
	if err != nil {
		log.Printf("Error fetching history for user %s: %v", identity.ID, err)
		api.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	api.WriteJSON(w, http.StatusOK, history)
}

// SendMessage handles POST /messages, creating the conversation on the first
// message between the pair.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req struct {
		ParticipantsWithoutMe string `json:"participantsWithoutMe"`
		Message               string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ParticipantsWithoutMe == "" || req.Message == "" {
		api.WriteError(w, http.StatusBadRequest, "participantsWithoutMe and message are required")
		return
	}

	conv, err := h.Service.SendMessage(r.Context(), identity.ID, identity.Name, req.ParticipantsWithoutMe, req.Message)
	if errors.Is(err, chat.ErrUserNotFound) {
		api.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("Error sending message from user %s: %v", identity.ID, err)
		api.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	api.WriteJSON(w, http.StatusOK, conv)
}

// PostBotMessage handles POST /messages/bot. The bot only ever appends to an
// existing conversation; a pair without one gets the explicit "no conversation
// found" answer rather than a server fault.
func (h *MessageHandler) PostBotMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sender    string `json:"sender"`
		Recipient string `json:"recipient"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Sender == "" || req.Recipient == "" || req.Message == "" {
		api.WriteError(w, http.StatusBadRequest, "sender, recipient and message are required")
		return
	}

	err := h.Service.PostBotMessage(r.Context(), req.Sender, req.Recipient, req.Message)
	if errors.Is(err, chat.ErrNoConversation) {
		api.WriteError(w, http.StatusNotFound, "no conversation found")
		return
	}
	if err != nil {
		log.Printf("Error posting bot message from %s: %v", req.Sender, err)
		api.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
