package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage"
)

// UserStore persists the user directory in the "users" collection and the
// identity-provider bindings in "federated_credentials".
type UserStore struct {
	users     *mongo.Collection
	federated *mongo.Collection
}

func NewUserStore(ctx context.Context, db *mongo.Database) (*UserStore, error) {
	federated := db.Collection("federated_credentials")
	_, err := federated.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "subject", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure federated index: %w", err)
	}
	return &UserStore{
		users:     db.Collection("users"),
		federated: federated,
	}, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *UserStore) List(ctx context.Context) ([]*models.User, error) {
	cur, err := s.users.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var users []*models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (s *UserStore) Search(ctx context.Context, term, excludeID string) ([]*models.User, error) {
	filter := bson.M{
		"_id": bson.M{"$ne": excludeID},
		"$or": []bson.M{
			{"name": bson.M{"$regex": term, "$options": "i"}},
			{"email": bson.M{"$regex": term, "$options": "i"}},
		},
	}
	cur, err := s.users.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	var users []*models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (s *UserStore) FindByFederated(ctx context.Context, provider, subject string) (*models.User, error) {
	var cred models.FederatedCredential
	err := s.federated.FindOne(ctx, bson.M{"provider": provider, "subject": subject}).Decode(&cred)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find federated credential: %w", err)
	}
	return s.FindByID(ctx, cred.UserID)
}

func (s *UserStore) CreateWithFederated(ctx context.Context, name, email, provider, subject string) (*models.User, error) {
	user := models.User{
		ID:    bson.NewObjectID().Hex(),
		Name:  name,
		Email: email,
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	cred := models.FederatedCredential{
		UserID:   user.ID,
		Provider: provider,
		Subject:  subject,
	}
	if _, err := s.federated.InsertOne(ctx, cred); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Two concurrent first logins for the same identity; the other
			// one's user document wins.
			return s.FindByFederated(ctx, provider, subject)
		}
		return nil, fmt.Errorf("failed to create federated credential: %w", err)
	}
	return &user, nil
}

func (s *UserStore) ListPredefined(ctx context.Context) ([]*models.User, error) {
	cur, err := s.users.Find(ctx, bson.M{"isPredefined": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list predefined users: %w", err)
	}
	var users []*models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode predefined users: %w", err)
	}
	return users, nil
}

func (s *UserStore) EnsurePredefined(ctx context.Context, names []string) error {
	for _, name := range names {
		update := bson.M{"$setOnInsert": bson.M{
			"_id":          bson.NewObjectID().Hex(),
			"name":         name,
			"isPredefined": true,
		}}
		opts := options.UpdateOne().SetUpsert(true)
		filter := bson.M{"name": name, "isPredefined": true}
		if _, err := s.users.UpdateOne(ctx, filter, update, opts); err != nil {
			return fmt.Errorf("failed to ensure predefined user %q: %w", name, err)
		}
	}
	return nil
}
