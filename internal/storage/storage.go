// Package storage defines the store contracts shared by the MongoDB and
// in-memory backends.
package storage

import (
	"context"
	"errors"

	"github.com/taras55555/chat-application-server/internal/models"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("storage: not found")

// Conversations is the document-store contract for two-party conversation
// threads. A conversation is identified by the unordered pair of its members:
// FindPair(a, b) and FindPair(b, a) locate the same document, and at most one
// document ever exists per pair.
type Conversations interface {
	// FindPair returns the conversation whose members are exactly userA and
	// userB, in either order, or ErrNotFound.
	FindPair(ctx context.Context, userA, userB string) (*models.Conversation, error)

	// CreateOrAppend atomically appends msg to the conversation for the pair,
	// creating the document first if the pair has none. Concurrent calls for
	// the same pair must converge on a single document with both messages.
	CreateOrAppend(ctx context.Context, senderID, recipientID, senderName, recipientName string, msg models.Message) (*models.Conversation, error)

	// Create eagerly creates a conversation for the pair, optionally seeded
	// with a single message. Used for predefined bot threads at signup.
	Create(ctx context.Context, userA, userB, nameA, nameB string, predefined bool, seed *models.Message) (*models.Conversation, error)

	// AppendMessage pushes msg onto the conversation's history, bumps
	// lastActivity, and refreshes the sender's cached display name, all as a
	// single document update. Returns ErrNotFound when no such conversation
	// exists; it never creates one.
	AppendMessage(ctx context.Context, conversationID string, msg models.Message, senderID, senderName string) error

	// ListForUser returns every conversation the user is a member of, most
	// recently active first.
	ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
}

// Users is the store contract for the user directory and the federated
// credentials created at first login.
type Users interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)

	// Search matches users whose name or email contains term
	// (case-insensitive), excluding excludeID.
	Search(ctx context.Context, term, excludeID string) ([]*models.User, error)

	// FindByFederated resolves the user bound to an identity-provider
	// (provider, subject) pair, or ErrNotFound for a first-time login.
	FindByFederated(ctx context.Context, provider, subject string) (*models.User, error)

	// CreateWithFederated creates a user together with the federated
	// credential binding them to (provider, subject).
	CreateWithFederated(ctx context.Context, name, email, provider, subject string) (*models.User, error)

	ListPredefined(ctx context.Context) ([]*models.User, error)

	// EnsurePredefined creates any of the named system users that do not
	// exist yet. Called once at startup.
	EnsurePredefined(ctx context.Context, names []string) error
}
