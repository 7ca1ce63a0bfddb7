package messages

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taras55555/chat-application-server/internal/auth"
	"github.com/taras55555/chat-application-server/internal/chat"
	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage/memory"
)

type stubQuotes struct{}

func (stubQuotes) Fetch(context.Context) (string, error) { return "stay curious", nil }

type fixture struct {
	router    *mux.Router
	service   *chat.Service
	userStore *memory.UserStore
}

// identityMiddleware stands in for the session middleware in tests: the user
// ID rides a plain header.
func identityMiddleware(userStore *memory.UserStore) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get("X-Test-User"); id != "" {
				if user, err := userStore.FindByID(r.Context(), id); err == nil {
					ctx := auth.ContextWithIdentity(r.Context(), auth.Identity{ID: user.ID, Name: user.Name})
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFromContext(r.Context()); !ok {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	userStore := memory.NewUserStore()
	convStore := memory.NewConversationStore()
	service := chat.NewService(convStore, userStore, stubQuotes{})

	router := mux.NewRouter()
	router.Use(identityMiddleware(userStore))
	RegisterMessageRoutes(router, &MessageHandler{Service: service}, requireIdentity)

	return &fixture{router: router, service: service, userStore: userStore}
}

func (f *fixture) do(method, path, userID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestSendMessage_CreatesAndReturnsConversation(t *testing.T) {
	f := newFixture(t)
	alice := f.userStore.Add(models.User{Name: "Alice"})
	bob := f.userStore.Add(models.User{Name: "Bob"})

	rec := f.do(http.MethodPost, "/messages", alice.ID,
		`{"participantsWithoutMe":"`+bob.ID+`","message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var conv models.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, conv.Members[:])
	require.Len(t, conv.ChatHistory, 1)
	assert.Equal(t, "hello", conv.ChatHistory[0].Message)
}

func TestSendMessage_UnknownRecipient(t *testing.T) {
	f := newFixture(t)
	alice := f.userStore.Add(models.User{Name: "Alice"})

	rec := f.do(http.MethodPost, "/messages", alice.ID,
		`{"participantsWithoutMe":"missing","message":"hello"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"user not found"}`, rec.Body.String())
}

func TestSendMessage_ValidatesBody(t *testing.T) {
	f := newFixture(t)
	alice := f.userStore.Add(models.User{Name: "Alice"})

	rec := f.do(http.MethodPost, "/messages", alice.ID, `{"message":"hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListContacts_RequiresAuth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/messages", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListContacts_ProjectsLastMessage(t *testing.T) {
	f := newFixture(t)
	alice := f.userStore.Add(models.User{Name: "Alice"})
	bob := f.userStore.Add(models.User{Name: "Bob"})

	_, err := f.service.SendMessage(context.Background(), bob.ID, bob.Name, alice.ID, "hi there, welcome!!")
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/messages", alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var contacts []chat.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, bob.ID, contacts[0].ParticipantID)
	require.NotNil(t, contacts[0].LastMessage)
	assert.Equal(t, "hi there, welc...", contacts[0].LastMessage.Message)
}

func TestGetHistory_EmptyDefaults(t *testing.T) {
	f := newFixture(t)
	alice := f.userStore.Add(models.User{Name: "Alice"})

	rec := f.do(http.MethodGet, "/messages/stranger", alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var history chat.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Empty(t, history.ChatHistory)
	assert.Empty(t, history.MemberNames)
}

func TestPostBotMessage_NoConversationFound(t *testing.T) {
	f := newFixture(t)
	alice := f.userStore.Add(models.User{Name: "Alice"})
	bot := f.userStore.Add(models.User{Name: "Support Bot", IsPredefined: true})

	rec := f.do(http.MethodPost, "/messages/bot", alice.ID,
		`{"sender":"`+bot.ID+`","recipient":"`+alice.ID+`","message":"a quote"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no conversation found"}`, rec.Body.String())
}

func TestPostBotMessage_AppendsToExistingThread(t *testing.T) {
	f := newFixture(t)
	alice := f.userStore.Add(models.User{Name: "Alice"})
	bot := f.userStore.Add(models.User{Name: "Support Bot", IsPredefined: true})

	_, err := f.service.SendMessage(context.Background(), alice.ID, alice.Name, bot.ID, "hello bot")
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/messages/bot", alice.ID,
		`{"sender":"`+bot.ID+`","recipient":"`+alice.ID+`","message":"a quote"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	history, err := f.service.GetHistory(context.Background(), alice.ID, bot.ID)
	require.NoError(t, err)
	require.Len(t, history.ChatHistory, 2)
	assert.Equal(t, "a quote", history.ChatHistory[1].Message)
}
