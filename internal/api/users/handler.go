package users

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taras55555/chat-application-server/internal/api"
	"github.com/taras55555/chat-application-server/internal/auth"
	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage"
)

// UserHandler holds the dependencies for the user-directory endpoints.
type UserHandler struct {
	Store storage.Users
}

// CurrentUser handles GET /user. Unauthenticated callers get
// {"isAuthenticated": false} rather than an error, so the frontend can probe
// the session.
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.WriteJSON(w, http.StatusOK, map[string]bool{"isAuthenticated": false})
		return
	}
	api.WriteJSON(w, http.StatusOK, identity)
}

// GetUser handles GET /user/{id}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	user, err := h.Store.FindByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		api.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("Error fetching user %s: %v", id, err)
		api.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// ListUsers handles GET /users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.List(r.Context())
	if err != nil {
		log.Printf("Error listing users: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	api.WriteJSON(w, http.StatusOK, users)
}

// SearchUsers handles GET /users/{search}: name or email substring match,
// case-insensitive, never including the caller.
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	term := mux.Vars(r)["search"]

	users, err := h.Store.Search(r.Context(), term, identity.ID)
	if err != nil {
		log.Printf("Error searching users for %q: %v", term, err)
		api.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	api.WriteJSON(w, http.StatusOK, users)
}
