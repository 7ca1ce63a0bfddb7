// Package chat holds the conversation business logic: locating or creating
// the thread for a pair of users, appending messages, and projecting contact
// lists.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage"
)

// ErrNoConversation reports a bot post aimed at a pair that has no thread yet.
// The bot never opens conversations, so callers branch on this rather than
// treating it as a server fault.
var ErrNoConversation = errors.New("chat: no conversation found")

// ErrUserNotFound reports a message addressed to an unknown recipient.
var ErrUserNotFound = errors.New("chat: user not found")

// previewLength is how many characters of the last message the contact list
// shows before clipping.
const previewLength = 15

// QuoteFetcher supplies the bot's material. Implemented by quotes.Client.
type QuoteFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

type Service struct {
	conversations storage.Conversations
	users         storage.Users
	quotes        QuoteFetcher
}

func NewService(conversations storage.Conversations, users storage.Users, quotes QuoteFetcher) *Service {
	return &Service{conversations: conversations, users: users, quotes: quotes}
}

// SendMessage appends text to the conversation between sender and recipient,
// creating the thread on the first message between the pair. Concurrent first
// messages for the same pair converge on a single conversation document.
func (s *Service) SendMessage(ctx context.Context, senderID, senderName, recipientID, text string) (*models.Conversation, error) {
	msg := models.Message{
		Sender:     senderID,
		SenderName: senderName,
		Message:    text,
		TimeSent:   time.Now(),
	}

	conv, err := s.conversations.FindPair(ctx, senderID, recipientID)
	if err == nil {
		if err := s.conversations.AppendMessage(ctx, conv.ID, msg, senderID, senderName); err != nil {
			return nil, fmt.Errorf("append message: %w", err)
		}
		return s.conversations.FindPair(ctx, senderID, recipientID)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	recipient, err := s.users.FindByID(ctx, recipientID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}
	return s.conversations.CreateOrAppend(ctx, senderID, recipientID, senderName, recipient.Name, msg)
}

// Contact is the summarized view of a conversation shown in the contact list:
// the other member plus the most recent message only.
type Contact struct {
	ConversationID  string          `json:"id"`
	ParticipantID   string          `json:"participantId"`
	ParticipantName string          `json:"participantName"`
	LastMessage     *models.Message `json:"lastMessage,omitempty"`
	LastActivity    time.Time       `json:"lastActivity"`
	IsPredefined    bool            `json:"isPredefined,omitempty"`
}

// ListContacts projects every conversation involving userID, most recently
// active first. The projected message text is clipped for display; the stored
// documents are never truncated.
func (s *Service) ListContacts(ctx context.Context, userID string) ([]Contact, error) {
	convs, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	contacts := make([]Contact, 0, len(convs))
	for _, conv := range convs {
		other := conv.OtherMember(userID)
		contact := Contact{
			ConversationID:  conv.ID,
			ParticipantID:   other,
			ParticipantName: conv.MemberNames[other],
			LastActivity:    conv.LastActivity,
			IsPredefined:    conv.IsPredefined,
		}
		if n := len(conv.ChatHistory); n > 0 {
			last := conv.ChatHistory[n-1]
			last.Message = clip(last.Message)
			contact.LastMessage = &last
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

// History is the full thread for a pair, with empty defaults when the pair has
// no conversation yet.
type History struct {
	ChatHistory  []models.Message  `json:"chatHistory"`
	MemberNames  map[string]string `json:"memberNames"`
	IsPredefined bool              `json:"isPredefined"`
}

func (s *Service) GetHistory(ctx context.Context, userID, otherUserID string) (*History, error) {
	conv, err := s.conversations.FindPair(ctx, userID, otherUserID)
	if errors.Is(err, storage.ErrNotFound) {
		return &History{ChatHistory: []models.Message{}, MemberNames: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	history := &History{
		ChatHistory:  conv.ChatHistory,
		MemberNames:  conv.MemberNames,
		IsPredefined: conv.IsPredefined,
	}
	if history.ChatHistory == nil {
		history.ChatHistory = []models.Message{}
	}
	if history.MemberNames == nil {
		history.MemberNames = map[string]string{}
	}
	return history, nil
}

// PostBotMessage appends text to an existing conversation on behalf of
// senderID. Unlike SendMessage it never creates a thread: a pair without one
// yields ErrNoConversation and no store mutation.
func (s *Service) PostBotMessage(ctx context.Context, senderID, recipientID, text string) error {
	conv, err := s.conversations.FindPair(ctx, senderID, recipientID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNoConversation
	}
	if err != nil {
		return fmt.Errorf("find conversation: %w", err)
	}

	msg := models.Message{
		Sender:     senderID,
		SenderName: conv.MemberNames[senderID],
		Message:    text,
		TimeSent:   time.Now(),
	}
	if err := s.conversations.AppendMessage(ctx, conv.ID, msg, senderID, msg.SenderName); err != nil {
		return fmt.Errorf("append bot message: %w", err)
	}
	return nil
}

// SeedPredefined opens one predefined conversation per system user for a
// freshly signed-up user, each starting with a fetched quote. Called once at
// first login.
func (s *Service) SeedPredefined(ctx context.Context, user *models.User) error {
	bots, err := s.users.ListPredefined(ctx)
	if err != nil {
		return fmt.Errorf("list predefined users: %w", err)
	}
	for _, bot := range bots {
		text, err := s.quotes.Fetch(ctx)
		if err != nil {
			log.Printf("Quote fetch failed while seeding %q for user %s: %v", bot.Name, user.ID, err)
			text = fmt.Sprintf("Hi %s, welcome to the chat!", user.Name)
		}
		seed := &models.Message{
			Sender:     bot.ID,
			SenderName: bot.Name,
			Message:    text,
			TimeSent:   time.Now(),
		}
		if _, err := s.conversations.Create(ctx, bot.ID, user.ID, bot.Name, user.Name, true, seed); err != nil {
			return fmt.Errorf("seed conversation with %q: %w", bot.Name, err)
		}
	}
	return nil
}

// clip shortens text to the contact-list preview length, appending an ellipsis
// when anything was cut.
func clip(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
