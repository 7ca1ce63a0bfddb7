package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/taras55555/chat-application-server/internal/api"
	"github.com/taras55555/chat-application-server/internal/chat"
	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage"
)

const (
	googleIssuer   = "https://accounts.google.com"
	userinfoURL    = "https://www.googleapis.com/oauth2/v3/userinfo"
	stateCookie    = "oauth_state"
	stateCookieAge = 600 // seconds
)

// GoogleHandler runs the authorization-code flow. A first-time login creates
// the user plus their federated credential and seeds the predefined bot
// conversations; every login opens a session.
type GoogleHandler struct {
	conf     *oauth2.Config
	users    storage.Users
	chats    *chat.Service
	sessions *Manager
}

func NewGoogleHandler(clientID, clientSecret, redirectURL string, users storage.Users, chats *chat.Service, sessions *Manager) *GoogleHandler {
	return &GoogleHandler{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		users:    users,
		chats:    chats,
		sessions: sessions,
	}
}

// Login starts the flow: remember a state nonce in a short-lived cookie and
// send the browser to Google.
func (h *GoogleHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.conf.AuthCodeURL(state), http.StatusFound)
}

// Callback finishes the flow: verify state, exchange the code, resolve or
// create the user, open the session.
func (h *GoogleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		api.WriteError(w, http.StatusUnauthorized, "invalid oauth state")
		return
	}

	token, err := h.conf.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Printf("OAuth code exchange failed: %v", err)
		api.WriteError(w, http.StatusUnauthorized, "oauth exchange failed")
		return
	}

	profile, err := h.fetchProfile(r, token)
	if err != nil {
		log.Printf("Fetching Google profile failed: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.resolveUser(r, profile)
	if err != nil {
		log.Printf("Resolving user for subject %s failed: %v", profile.Sub, err)
		api.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.sessions.Create(w, r, Identity{ID: user.ID, Name: user.Name}); err != nil {
		log.Printf("Creating session for user %s failed: %v", user.ID, err)
		api.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout destroys the session and sends the browser home.
func (h *GoogleHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

type googleProfile struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *GoogleHandler) fetchProfile(r *http.Request, token *oauth2.Token) (*googleProfile, error) {
	resp, err := h.conf.Client(r.Context(), token).Get(userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo responded with %s", resp.Status)
	}
	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if profile.Sub == "" {
		return nil, errors.New("userinfo missing subject")
	}
	return &profile, nil
}

func (h *GoogleHandler) resolveUser(r *http.Request, profile *googleProfile) (*models.User, error) {
	user, err := h.users.FindByFederated(r.Context(), googleIssuer, profile.Sub)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	// First login: create the account and open the predefined bot threads.
	user, err = h.users.CreateWithFederated(r.Context(), profile.Name, profile.Email, googleIssuer, profile.Sub)
	if err != nil {
		return nil, err
	}
	if err := h.chats.SeedPredefined(r.Context(), user); err != nil {
		log.Printf("Seeding predefined conversations for user %s failed: %v", user.ID, err)
	}
	log.Printf("Created user %s for first-time Google login", user.ID)
	return user, nil
}
