package users

import (
	"github.com/akeren/go-waitlist/internal/log"
	"gorm.io/gorm"
)

type UserServiceFactory interface {
	CreateService() UserService
}

type DefaultUserServiceFactory struct {
	logger     *log.Logger
	repository UserRepository
}

// NewUserServiceFactory falls back to an in-memory store when db is nil.
func NewUserServiceFactory(db *gorm.DB, logger *log.Logger) UserServiceFactory {
	var repository UserRepository
	if db != nil {
		repository = NewUserRepository(db)
	} else {
		repository = NewMemoryUserRepository()
	}

	return &DefaultUserServiceFactory{logger: logger, repository: repository}
}

func (f *DefaultUserServiceFactory) CreateService() UserService {
	return NewUserService(f.logger, f.repository)
}
