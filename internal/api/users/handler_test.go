package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taras55555/chat-application-server/internal/auth"
	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage/memory"
)

func newTestRouter(store *memory.UserStore) *mux.Router {
	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get("X-Test-User"); id != "" {
				if user, err := store.FindByID(r.Context(), id); err == nil {
					r = r.WithContext(auth.ContextWithIdentity(r.Context(), auth.Identity{ID: user.ID, Name: user.Name}))
				}
			}
			next.ServeHTTP(w, r)
		})
	})
	requireAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.IdentityFromContext(r.Context()); !ok {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	RegisterUserRoutes(router, &UserHandler{Store: store}, requireAuth)
	return router
}

func TestCurrentUser_ReportsUnauthenticated(t *testing.T) {
	router := newTestRouter(memory.NewUserStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isAuthenticated":false}`, rec.Body.String())
}

func TestCurrentUser_ReturnsIdentity(t *testing.T) {
	store := memory.NewUserStore()
	alice := store.Add(models.User{Name: "Alice"})
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("X-Test-User", alice.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var identity auth.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &identity))
	assert.Equal(t, alice.ID, identity.ID)
	assert.Equal(t, "Alice", identity.Name)
}

func TestGetUser_NotFound(t *testing.T) {
	store := memory.NewUserStore()
	alice := store.Add(models.User{Name: "Alice"})
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/user/missing", nil)
	req.Header.Set("X-Test-User", alice.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchUsers_ExcludesCaller(t *testing.T) {
	store := memory.NewUserStore()
	alice := store.Add(models.User{Name: "Alice", Email: "alice@example.com"})
	store.Add(models.User{Name: "Alicia", Email: "alicia@example.com"})
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/users/alic", nil)
	req.Header.Set("X-Test-User", alice.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result []*models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result, 1)
	assert.Equal(t, "Alicia", result[0].Name)
}

func TestListUsers_RequiresAuth(t *testing.T) {
	router := newTestRouter(memory.NewUserStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
