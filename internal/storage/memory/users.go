package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/taras55555/chat-application-server/internal/models"
	"github.com/taras55555/chat-application-server/internal/storage"
)

type UserStore struct {
	mu        sync.RWMutex
	users     map[string]*models.User // user ID -> user
	federated map[string]string       // provider + "|" + subject -> user ID
	order     []string                // insertion order, for stable listings
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:     make(map[string]*models.User),
		federated: make(map[string]string),
	}
}

// Add inserts a user directly, assigning an ID when absent. Test fixtures use
// it to skip the federated signup flow.
func (s *UserStore) Add(user models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(user)
}

func (s *UserStore) addLocked(user models.User) *models.User {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.ID] = &user
	s.order = append(s.order, user.ID)
	return &user
}

func (s *UserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *UserStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.User, 0, len(s.order))
	for _, id := range s.order {
		copied := *s.users[id]
		result = append(result, &copied)
	}
	return result, nil
}

func (s *UserStore) Search(_ context.Context, term, excludeID string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	term = strings.ToLower(term)
	var result []*models.User
	for _, id := range s.order {
		user := s.users[id]
		if user.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(user.Name), term) ||
			strings.Contains(strings.ToLower(user.Email), term) {
			copied := *user
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *UserStore) FindByFederated(_ context.Context, provider, subject string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.federated[provider+"|"+subject]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *s.users[id]
	return &copied, nil
}

func (s *UserStore) CreateWithFederated(_ context.Context, name, email, provider, subject string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.addLocked(models.User{Name: name, Email: email})
	s.federated[provider+"|"+subject] = user.ID
	copied := *user
	return &copied, nil
}

func (s *UserStore) ListPredefined(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.User
	for _, id := range s.order {
		if s.users[id].IsPredefined {
			copied := *s.users[id]
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *UserStore) EnsurePredefined(_ context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[string]bool)
	for _, user := range s.users {
		if user.IsPredefined {
			existing[user.Name] = true
		}
	}
	for _, name := range names {
		if !existing[name] {
			s.addLocked(models.User{Name: name, IsPredefined: true})
		}
	}
	return nil
}
