package users

import (
	"context"
	"errors"

	"github.com/akeren/go-waitlist/internal/models"
	apperrors "github.com/akeren/go-waitlist/pkg/errors"
	"gorm.io/gorm"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=users

type UserRepository interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (ur *userRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := ur.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapLookupError(err)
	}
	return &user, nil
}

func (ur *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := ur.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, mapLookupError(err)
	}
	return &user, nil
}

func (ur *userRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ur.db.WithContext(ctx).Create(user).Error; err != nil {
		if apperrors.IsDuplicateKeyError(err) {
			return nil, apperrors.NewConflictError("username already exists", errors.Join(ErrDuplicateUsername, err))
		}
		return nil, apperrors.NewDatabaseError("unable to create user", err)
	}
	return user, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFoundError("user not found", ErrUserNotFound)
	}
	return apperrors.NewDatabaseError("failed to fetch user", err)
}
