package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage"
)

func TestUserStore_FederatedSignup(t *testing.T) {
	store := NewUserStore()

	_, err := store.FindByFederated(context.Background(), "https://accounts.google.com", "sub-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	created, err := store.CreateWithFederated(context.Background(), "Alice", "alice@example.com", "https://accounts.google.com", "sub-1")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	found, err := store.FindByFederated(context.Background(), "https://accounts.google.com", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Alice", found.Name)
}

func TestUserStore_SearchExcludesSelfAndMatchesEmail(t *testing.T) {
	store := NewUserStore()
	alice := store.Add(models.User{Name: "Alice", Email: "alice@example.com"})
	store.Add(models.User{Name: "Alicia", Email: "alicia@example.com"})
	store.Add(models.User{Name: "Bob", Email: "bob@other.org"})

	result, err := store.Search(context.Background(), "ALIC", alice.ID)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Alicia", result[0].Name)

	byEmail, err := store.Search(context.Background(), "other.org", alice.ID)
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "Bob", byEmail[0].Name)
}

func TestUserStore_EnsurePredefinedIsIdempotent(t *testing.T) {
	store := NewUserStore()
	names := []string{"Support Bot", "Welcome Chat", "FAQ"}

	require.NoError(t, store.EnsurePredefined(context.Background(), names))
	require.NoError(t, store.EnsurePredefined(context.Background(), names))

	bots, err := store.ListPredefined(context.Background())
	require.NoError(t, err)
	assert.Len(t, bots, 3)
	for _, bot := range bots {
		assert.True(t, bot.IsPredefined)
	}
}
