package users

import (
	"context"
	"sync"

	"github.com/akeren/go-waitlist/internal/models"
	apperrors "github.com/akeren/go-waitlist/pkg/errors"
)

type MemoryUserRepository struct {
	mu            sync.RWMutex
	users         map[uint]*models.User
	usernameIndex map[string]uint
	nextID        uint
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:         make(map[uint]*models.User),
		usernameIndex: make(map[string]uint),
		nextID:        1,
	}
}

func (m *MemoryUserRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("user not found", ErrUserNotFound)
	}
	out := *user
	return &out, nil
}

func (m *MemoryUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usernameIndex[username]
	if !ok {
		return nil, apperrors.NewNotFoundError("user not found", ErrUserNotFound)
	}
	out := *m.users[id]
	return &out, nil
}

func (m *MemoryUserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.usernameIndex[user.Username]; exists {
		return nil, apperrors.NewConflictError("username already exists", ErrDuplicateUsername)
	}

	stored := *user
	stored.ID = m.nextID
	m.nextID++

	m.users[stored.ID] = &stored
	m.usernameIndex[stored.Username] = stored.ID

	out := stored
	return &out, nil
}
