package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taras55555/chat-application-server/internal/chat"
	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage/memory"
)

type stubQuotes struct {
	text string
}

func (s *stubQuotes) Fetch(context.Context) (string, error) {
	return s.text, nil
}

type relayFixture struct {
	relay     *Relay
	hub       *Hub
	service   *chat.Service
	userStore *memory.UserStore
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	userStore := memory.NewUserStore()
	convStore := memory.NewConversationStore()
	service := chat.NewService(convStore, userStore, &stubQuotes{text: "stay curious"})
	hub := NewHub()
	return &relayFixture{
		relay:     NewRelay(hub, service, &stubQuotes{text: "stay curious"}, ""),
		hub:       hub,
		service:   service,
		userStore: userStore,
	}
}

func (f *relayFixture) connect(userID, userName string) *Client {
	client := newClient(nil, f.hub, userID, userName)
	f.hub.Register(client)
	return client
}

func marshalEvent(t *testing.T, ev Event) []byte {
	t.Helper()
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	return raw
}

func decodeNotice(t *testing.T, client *Client) Notice {
	t.Helper()
	select {
	case payload := <-client.send:
		var n Notice
		require.NoError(t, json.Unmarshal(payload, &n))
		return n
	default:
		t.Fatal("expected a payload on the connection")
		return Notice{}
	}
}

func TestRelay_FanOutToRecipientAndSenderTabs(t *testing.T) {
	f := newRelayFixture(t)
	alice := f.userStore.Add(models.User{Name: "Alice"})
	bob := f.userStore.Add(models.User{Name: "Bob"})

	aliceTab1 := f.connect(alice.ID, alice.Name)
	aliceTab2 := f.connect(alice.ID, alice.Name)
	bobOrigin := f.connect(bob.ID, bob.Name)
	bobTab := f.connect(bob.ID, bob.Name)

	f.relay.handleEvent(bobOrigin, marshalEvent(t, Event{
		ParticipantsWithoutMe: alice.ID,
		Me:                    bob.ID,
		Message:               "hello alice",
	}))

	// Both of the recipient's connections get a notification.
	for _, client := range []*Client{aliceTab1, aliceTab2} {
		n := decodeNotice(t, client)
		assert.Equal(t, "notification", n.Type)
		assert.Equal(t, "Bob", n.ParticipantName)
		assert.Equal(t, "hello alice", n.Message)
	}

	// The sender's other tab gets an update, the originating socket nothing.
	n := decodeNotice(t, bobTab)
	assert.Equal(t, "update", n.Type)
	select {
	case <-bobOrigin.send:
		t.Fatal("originating socket must not be notified")
	default:
	}

	// The message itself landed in the store.
	history, err := f.service.GetHistory(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, history.ChatHistory, 1)
	assert.Equal(t, "hello alice", history.ChatHistory[0].Message)
}

func TestRelay_BotReplyNotifiesSender(t *testing.T) {
	f := newRelayFixture(t)
	alice := f.userStore.Add(models.User{Name: "Alice"})
	bot := f.userStore.Add(models.User{Name: "Support Bot", IsPredefined: true})

	origin := f.connect(alice.ID, alice.Name)
	tab := f.connect(alice.ID, alice.Name)

	f.relay.handleEvent(origin, marshalEvent(t, Event{
		ParticipantsWithoutMe: bot.ID,
		Me:                    alice.ID,
		IsPredefined:          true,
		ParticipantName:       bot.Name,
		Message:               "hello bot",
	}))

	// The synchronous update reaches the other tab first.
	n := decodeNotice(t, tab)
	assert.Equal(t, "update", n.Type)

	// The bot reply arrives asynchronously on every one of the sender's
	// connections.
	expectQuote := func(client *Client) bool {
		select {
		case payload := <-client.send:
			var n Notice
			if err := json.Unmarshal(payload, &n); err != nil {
				return false
			}
			return n.Type == "notification" && n.Message == "stay curious" && n.ParticipantName == "Support Bot"
		default:
			return false
		}
	}
	assert.Eventually(t, func() bool { return expectQuote(origin) }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return expectQuote(tab) }, time.Second, 5*time.Millisecond)

	history, err := f.service.GetHistory(context.Background(), alice.ID, bot.ID)
	require.NoError(t, err)
	require.Len(t, history.ChatHistory, 2)
	assert.Equal(t, bot.ID, history.ChatHistory[1].Sender)
	assert.Equal(t, "stay curious", history.ChatHistory[1].Message)
}

func TestRelay_DropsMalformedPayloads(t *testing.T) {
	f := newRelayFixture(t)
	alice := f.userStore.Add(models.User{Name: "Alice"})
	bob := f.userStore.Add(models.User{Name: "Bob"})

	origin := f.connect(alice.ID, alice.Name)
	recipient := f.connect(bob.ID, bob.Name)

	cases := map[string][]byte{
		"invalid json":    []byte("{not json"),
		"missing fields":  marshalEvent(t, Event{Message: "hi"}),
		"spoofed sender":  marshalEvent(t, Event{ParticipantsWithoutMe: bob.ID, Me: "someone-else", Message: "hi"}),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			require.NotPanics(t, func() { f.relay.handleEvent(origin, raw) })
			select {
			case <-recipient.send:
				t.Fatal("dropped payload must not produce a notification")
			default:
			}
		})
	}

	history, err := f.service.GetHistory(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, history.ChatHistory)
}
