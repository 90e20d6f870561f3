package waitlist

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akeren/go-waitlist/internal/models"
	apperrors "github.com/akeren/go-waitlist/pkg/errors"
)

// MemoryWaitlistRepository keeps signups for the lifetime of the process.
// A secondary email index enforces uniqueness atomically with the insert.
type MemoryWaitlistRepository struct {
	mu         sync.RWMutex
	signups    map[uint]*models.WaitlistSignup
	emailIndex map[string]uint
	nextID     uint
	now        func() time.Time
}

func NewMemoryWaitlistRepository() *MemoryWaitlistRepository {
	return &MemoryWaitlistRepository{
		signups:    make(map[uint]*models.WaitlistSignup),
		emailIndex: make(map[string]uint),
		nextID:     1,
		now:        time.Now,
	}
}

func (m *MemoryWaitlistRepository) CreateSignup(ctx context.Context, signup *models.WaitlistSignup) (*models.WaitlistSignup, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewInternalServerError("unable to create waitlist signup", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.emailIndex[signup.Email]; exists {
		return nil, apperrors.NewDuplicateEntryError(duplicateEmailMessage, ErrDuplicateEmail)
	}

	stored := *signup
	stored.ID = m.nextID
	stored.CreatedAt = m.now()
	m.nextID++

	m.signups[stored.ID] = &stored
	m.emailIndex[stored.Email] = stored.ID

	out := stored
	return &out, nil
}

func (m *MemoryWaitlistRepository) FindSignupByEmail(ctx context.Context, email string) (*models.WaitlistSignup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emailIndex[email]
	if !ok {
		return nil, apperrors.NewNotFoundError("waitlist signup not found", ErrSignupNotFound)
	}

	out := *m.signups[id]
	return &out, nil
}

func (m *MemoryWaitlistRepository) ListSignups(ctx context.Context) ([]*models.WaitlistSignup, error) {
	m.mu.RLock()
	signups := make([]*models.WaitlistSignup, 0, len(m.signups))
	for _, s := range m.signups {
		out := *s
		signups = append(signups, &out)
	}
	m.mu.RUnlock()

	sort.Slice(signups, func(i, j int) bool {
		if signups[i].CreatedAt.Equal(signups[j].CreatedAt) {
			return signups[i].ID < signups[j].ID
		}
		return signups[i].CreatedAt.Before(signups[j].CreatedAt)
	})

	return signups, nil
}
