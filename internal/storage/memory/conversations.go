package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage"
)

// ConversationStore is the in-memory twin of the MongoDB conversation store,
// used in tests and when no MONGODB_URI is configured.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation // conversation ID -> conversation
	pairIndex     map[string]string               // pair key -> conversation ID
	userIndex     map[string][]string             // user ID -> []conversation ID
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*models.Conversation),
		pairIndex:     make(map[string]string),
		userIndex:     make(map[string][]string),
	}
}

func (s *ConversationStore) FindPair(_ context.Context, userA, userB string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.pairIndex[models.PairKey(userA, userB)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return snapshot(s.conversations[id]), nil
}

func (s *ConversationStore) CreateOrAppend(_ context.Context, senderID, recipientID, senderName, recipientName string, msg models.Message) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.PairKey(senderID, recipientID)
	if id, ok := s.pairIndex[key]; ok {
		conv := s.conversations[id]
		s.appendLocked(conv, msg, senderID, senderName)
		return snapshot(conv), nil
	}
	conv := s.createLocked(senderID, recipientID, senderName, recipientName, false)
	s.appendLocked(conv, msg, senderID, senderName)
	return snapshot(conv), nil
}

func (s *ConversationStore) Create(_ context.Context, userA, userB, nameA, nameB string, predefined bool, seed *models.Message) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.pairIndex[models.PairKey(userA, userB)]; ok {
		return snapshot(s.conversations[id]), nil
	}
	conv := s.createLocked(userA, userB, nameA, nameB, predefined)
	if seed != nil {
		s.appendLocked(conv, *seed, seed.Sender, seed.SenderName)
	}
	return snapshot(conv), nil
}

func (s *ConversationStore) AppendMessage(_ context.Context, conversationID string, msg models.Message, senderID, senderName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return storage.ErrNotFound
	}
	s.appendLocked(conv, msg, senderID, senderName)
	return nil
}

func (s *ConversationStore) ListForUser(_ context.Context, userID string) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Conversation
	for _, id := range s.userIndex[userID] {
		result = append(result, snapshot(s.conversations[id]))
	}
	// Most recently active first.
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivity.After(result[j].LastActivity)
	})
	return result, nil
}

func (s *ConversationStore) createLocked(userA, userB, nameA, nameB string, predefined bool) *models.Conversation {
	conv := &models.Conversation{
		ID:           uuid.NewString(),
		PairKey:      models.PairKey(userA, userB),
		Members:      [2]string{userA, userB},
		MemberNames:  map[string]string{userA: nameA, userB: nameB},
		ChatHistory:  []models.Message{},
		LastActivity: time.Now(),
		IsPredefined: predefined,
	}
	s.conversations[conv.ID] = conv
	s.pairIndex[conv.PairKey] = conv.ID
	s.userIndex[userA] = append(s.userIndex[userA], conv.ID)
	s.userIndex[userB] = append(s.userIndex[userB], conv.ID)
	return conv
}

func (s *ConversationStore) appendLocked(conv *models.Conversation, msg models.Message, senderID, senderName string) {
	conv.ChatHistory = append(conv.ChatHistory, msg)
	conv.LastActivity = time.Now()
	if conv.MemberNames == nil {
		conv.MemberNames = make(map[string]string)
	}
	if senderName != "" {
		conv.MemberNames[senderID] = senderName
	}
}

// snapshot copies a conversation so callers never share the store's mutable
// history slice or name map.
func snapshot(conv *models.Conversation) *models.Conversation {
	out := *conv
	out.ChatHistory = append([]models.Message(nil), conv.ChatHistory...)
	out.MemberNames = make(map[string]string, len(conv.MemberNames))
	for id, name := range conv.MemberNames {
		out.MemberNames[id] = name
	}
	return &out
}
