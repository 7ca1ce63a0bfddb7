package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taras55555/chat-application-server/internal/api"
	"github.com/taras55555/chat-application-server/internal/auth"
	"github.com/taras55555/chat-application-server/internal/chat"
)

const relayTimeout = 15 * time.Second

// Event is the inbound live-channel payload: the websocket equivalent of
// posting a message. isPredefined asks for the bot's auto-reply.
type Event struct {
	ParticipantsWithoutMe string `json:"participantsWithoutMe"`
	Me                    string `json:"me"`
	IsPredefined          bool   `json:"isPredefined,omitempty"`
	ParticipantName       string `json:"participantName,omitempty"`
	Message               string `json:"message,omitempty"`
}

// Notice is the outbound payload. Type is "notification" for the recipient's
// sockets and "update" for the sender's other tabs.
type Notice struct {
	Type            string `json:"type"`
	ParticipantName string `json:"participantName"`
	Message         string `json:"message"`
}

// Relay accepts live connections for authenticated users, registers them in
// the hub, and fans each inbound message out to every open socket of the two
// users involved.
type Relay struct {
	hub      *Hub
	service  *chat.Service
	quotes   chat.QuoteFetcher
	upgrader websocket.Upgrader
}

func NewRelay(hub *Hub, service *chat.Service, quotes chat.QuoteFetcher, origin string) *Relay {
	return &Relay{
		hub:     hub,
		service: service,
		quotes:  quotes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return origin == "" || r.Header.Get("Origin") == origin
			},
		},
	}
}

// ServeWS upgrades the connection for the authenticated user. The identity
// must already be on the request context; the upgrade is rejected before the
// handshake when it is not.
func (rl *Relay) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := rl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed for user %s: %v", identity.ID, err)
		return
	}

	client := newClient(conn, rl.hub, identity.ID, identity.Name)
	rl.hub.Register(client)
	log.Printf("WebSocket connected for user %s", identity.ID)

	go client.writePump()
	go client.readPump(rl)
}

func (rl *Relay) handleEvent(c *Client, raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		log.Printf("Dropping malformed payload from user %s: %v", c.userID, err)
		return
	}
	if ev.ParticipantsWithoutMe == "" || ev.Me == "" {
		log.Printf("Dropping payload from user %s: missing participant fields", c.userID)
		return
	}
	if ev.Me != c.userID {
		log.Printf("Dropping payload from user %s claiming to be %s", c.userID, ev.Me)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
	defer cancel()

	if _, err := rl.service.SendMessage(ctx, c.userID, c.userName, ev.ParticipantsWithoutMe, ev.Message); err != nil {
		log.Printf("Error sending message from user %s: %v", c.userID, err)
		return
	}

	rl.hub.Push(ev.ParticipantsWithoutMe, mustMarshal(Notice{
		Type:            "notification",
		ParticipantName: c.userName,
		Message:         ev.Message,
	}))
	rl.hub.PushExcept(ev.Me, c, mustMarshal(Notice{
		Type:            "update",
		ParticipantName: c.userName,
		Message:         ev.Message,
	}))

	if ev.IsPredefined {
		go rl.botReply(ev)
	}
}

// botReply runs the bot's auto-reply decoupled from the synchronous pushes: a
// quote fetch or append failure only logs, and a sender who disconnected in
// the meantime simply has no sockets left to notify.
func (rl *Relay) botReply(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
	defer cancel()

	quote, err := rl.quotes.Fetch(ctx)
	if err != nil {
		log.Printf("Bot reply skipped, quote fetch failed: %v", err)
		return
	}
	if err := rl.service.PostBotMessage(ctx, ev.ParticipantsWithoutMe, ev.Me, quote); err != nil {
		log.Printf("Bot reply to user %s failed: %v", ev.Me, err)
		return
	}
	rl.hub.Push(ev.Me, mustMarshal(Notice{
		Type:            "notification",
		ParticipantName: ev.ParticipantName,
		Message:         quote,
	}))
}

func mustMarshal(n Notice) []byte {
	payload, err := json.Marshal(n)
	if err != nil {
		log.Printf("Error marshaling notice: %v", err)
		return nil
	}
	return payload
}
