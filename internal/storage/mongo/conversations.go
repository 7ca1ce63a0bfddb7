package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage"
)

// ConversationStore persists conversation documents in the "conversations"
// collection. Pair uniqueness is enforced by a unique index on pairKey, the
// sorted order-independent key of the two members.
type ConversationStore struct {
	coll *mongo.Collection
}

func NewConversationStore(ctx context.Context, db *mongo.Database) (*ConversationStore, error) {
	coll := db.Collection("conversations")
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pairKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure pairKey index: %w", err)
	}
	return &ConversationStore{coll: coll}, nil
}

func (s *ConversationStore) FindPair(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.coll.FindOne(ctx, bson.M{"pairKey": models.PairKey(userA, userB)}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conv, nil
}

func (s *ConversationStore) CreateOrAppend(ctx context.Context, senderID, recipientID, senderName, recipientName string, msg models.Message) (*models.Conversation, error) {
	conv, err := s.createOrAppend(ctx, senderID, recipientID, senderName, recipientName, msg)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the insert race against a concurrent first message for the same
		// pair; the document exists now, so the retry appends to it.
		conv, err = s.createOrAppend(ctx, senderID, recipientID, senderName, recipientName, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationStore) createOrAppend(ctx context.Context, senderID, recipientID, senderName, recipientName string, msg models.Message) (*models.Conversation, error) {
	key := models.PairKey(senderID, recipientID)
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":     bson.NewObjectID().Hex(),
			"pairKey": key,
			"members": [2]string{senderID, recipientID},
		},
		"$push": bson.M{"chatHistory": msg},
		"$set": bson.M{
			"lastActivity":               time.Now(),
			"memberNames." + senderID:    senderName,
			"memberNames." + recipientID: recipientName,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv models.Conversation
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"pairKey": key}, update, opts).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *ConversationStore) Create(ctx context.Context, userA, userB, nameA, nameB string, predefined bool, seed *models.Message) (*models.Conversation, error) {
	conv := models.Conversation{
		ID:           bson.NewObjectID().Hex(),
		PairKey:      models.PairKey(userA, userB),
		Members:      [2]string{userA, userB},
		MemberNames:  map[string]string{userA: nameA, userB: nameB},
		ChatHistory:  []models.Message{},
		LastActivity: time.Now(),
		IsPredefined: predefined,
	}
	if seed != nil {
		conv.ChatHistory = append(conv.ChatHistory, *seed)
	}
	_, err := s.coll.InsertOne(ctx, conv)
	if mongo.IsDuplicateKeyError(err) {
		// Already seeded for this pair.
		return s.FindPair(ctx, userA, userB)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &conv, nil
}

func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID string, msg models.Message, senderID, senderName string) error {
	set := bson.M{"lastActivity": time.Now()}
	if senderName != "" {
		set["memberNames."+senderID] = senderName
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": conversationID}, bson.M{
		"$push": bson.M{"chatHistory": msg},
		"$set":  set,
	})
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *ConversationStore) ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastActivity", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{"members": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	var convs []*models.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return convs, nil
}
