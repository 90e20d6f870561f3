package waitlist

import (
	"context"
	"errors"

	"github.com/akeren/go-waitlist/internal/models"
	apperrors "github.com/akeren/go-waitlist/pkg/errors"
	"gorm.io/gorm"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=waitlist

type WaitlistRepository interface {
	// CreateSignup persists a new signup and assigns its ID and CreatedAt.
	CreateSignup(ctx context.Context, signup *models.WaitlistSignup) (*models.WaitlistSignup, error)
	// FindSignupByEmail looks a signup up by its normalized email.
	FindSignupByEmail(ctx context.Context, email string) (*models.WaitlistSignup, error)
	// ListSignups returns every signup ordered by creation time, oldest first.
	ListSignups(ctx context.Context) ([]*models.WaitlistSignup, error)
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (wr *waitlistRepository) CreateSignup(ctx context.Context, signup *models.WaitlistSignup) (*models.WaitlistSignup, error) {
	if err := wr.db.WithContext(ctx).Create(signup).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.NewDuplicateEntryError(duplicateEmailMessage, errors.Join(ErrDuplicateEmail, err))
		}
		return nil, apperrors.NewDatabaseError("unable to create waitlist signup", err)
	}

	return signup, nil
}

func (wr *waitlistRepository) FindSignupByEmail(ctx context.Context, email string) (*models.WaitlistSignup, error) {
	var signup models.WaitlistSignup

	if err := wr.db.WithContext(ctx).Where("email = ?", email).First(&signup).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("waitlist signup not found", ErrSignupNotFound)
		}
		return nil, apperrors.NewDatabaseError("failed to fetch waitlist signup", err)
	}

	return &signup, nil
}

func (wr *waitlistRepository) ListSignups(ctx context.Context) ([]*models.WaitlistSignup, error) {
	var signups []*models.WaitlistSignup

	if err := wr.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&signups).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to fetch waitlist signups", err)
	}

	return signups, nil
}

func isDuplicateKey(err error) bool {
	return apperrors.IsDuplicateKeyError(err)
}
