package users

import (
	"context"
	"errors"

	"github.com/akeren/go-waitlist/internal/log"
	"github.com/akeren/go-waitlist/internal/models"
	apperrors "github.com/akeren/go-waitlist/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*UserResponse, error)
	GetUser(ctx context.Context, id uint) (*UserResponse, error)
	GetUserByUsername(ctx context.Context, username string) (*UserResponse, error)
	// VerifyPassword reports whether password matches the stored hash.
	VerifyPassword(ctx context.Context, username, password string) (bool, error)
}

type userService struct {
	logger     *log.Logger
	repository UserRepository
	cost       int
}

func NewUserService(logger *log.Logger, repository UserRepository) UserService {
	return &userService{logger: logger, repository: repository, cost: bcrypt.DefaultCost}
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest) (*UserResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	username := normalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		return nil, apperrors.NewInvalidRequestError("username and password are required", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		return nil, apperrors.NewInvalidRequestError("password cannot be hashed", err)
	}

	created, err := s.repository.CreateUser(ctx, &models.User{Username: username, Password: string(hash)})
	if err != nil {
		logger.Error("Failed to create user", "username", username, "error", err)
		return nil, err
	}

	logger.Info("User created", "id", created.ID, "username", created.Username)
	resp := ToUserResponse(created)
	return &resp, nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*UserResponse, error) {
	if id == 0 {
		return nil, apperrors.NewInvalidRequestError("user ID cannot be zero", nil)
	}

	user, err := s.repository.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := ToUserResponse(user)
	return &resp, nil
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*UserResponse, error) {
	user, err := s.repository.GetUserByUsername(ctx, normalizeUsername(username))
	if err != nil {
		return nil, err
	}

	resp := ToUserResponse(user)
	return &resp, nil
}

func (s *userService) VerifyPassword(ctx context.Context, username, password string) (bool, error) {
	user, err := s.repository.GetUserByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, apperrors.NewInternalServerError("failed to verify password", err)
	}
}
