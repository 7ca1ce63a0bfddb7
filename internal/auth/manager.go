package auth

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/taras55555/chat-application-server/internal/api"
)

const sessionCookie = "session"

// Manager issues and resolves sessions. The cookie carries a signed JWT whose
// subject is the session ID; the session record itself lives in the store.
type Manager struct {
	store  SessionStore
	secret []byte
	ttl    time.Duration
}

func NewManager(store SessionStore, secret []byte, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: secret, ttl: ttl}
}

// Create opens a session for the identity and sets the cookie.
func (m *Manager) Create(w http.ResponseWriter, r *http.Request, identity Identity) error {
	id := uuid.NewString()
	session := Session{UserID: identity.ID, Name: identity.Name}
	if err := m.store.Save(r.Context(), id, session, m.ttl); err != nil {
		return err
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Identity resolves the request's session cookie to an authenticated identity.
func (m *Manager) Identity(r *http.Request) (Identity, error) {
	id, err := m.sessionID(r)
	if err != nil {
		return Identity{}, err
	}
	session, err := m.store.Get(r.Context(), id)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: session.UserID, Name: session.Name}, nil
}

// Destroy deletes the session and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if id, err := m.sessionID(r); err == nil {
		if err := m.store.Delete(r.Context(), id); err != nil {
			// The cookie is cleared regardless; the record expires on its own.
			log.Printf("Error deleting session: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) sessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", ErrSessionNotFound
	}
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", ErrSessionNotFound
	}
	return claims.Subject, nil
}

// WithIdentity attaches the identity to the context when the request carries a
// valid session; requests without one pass through untouched.
func (m *Manager) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, err := m.Identity(r); err == nil {
			r = r.WithContext(ContextWithIdentity(r.Context(), identity))
		} else if !errors.Is(err, ErrSessionNotFound) {
			api.WriteError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests without an authenticated identity before the
// handler runs.
func (m *Manager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			api.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
