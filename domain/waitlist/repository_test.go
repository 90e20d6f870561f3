package waitlist

import (
	"context"
	"errors"
	"testing"

	"github.com/akeren/go-waitlist/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type RepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo WaitlistRepository
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	sqlDB, err := db.DB()
	require.NoError(s.T(), err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(s.T(), db.AutoMigrate(models.ModelRegistry...))

	s.db = db
	s.repo = NewWaitlistRepository(db)
}

func (s *RepositoryTestSuite) TearDownTest() {
	sqlDB, _ := s.db.DB()
	_ = sqlDB.Close()
}

func (s *RepositoryTestSuite) TestCreateAssignsIDAndTimestamp() {
	created, err := s.repo.CreateSignup(context.Background(), &models.WaitlistSignup{
		Email: "a@example.com", Name: "A", CreatorType: "dev",
	})

	s.Require().NoError(err)
	s.Equal(uint(1), created.ID)
	s.False(created.CreatedAt.IsZero())
}

func (s *RepositoryTestSuite) TestUniqueIndexMapsToDuplicateEmail() {
	ctx := context.Background()
	_, err := s.repo.CreateSignup(ctx, &models.WaitlistSignup{Email: "a@example.com", Name: "A", CreatorType: "dev"})
	s.Require().NoError(err)

	_, err = s.repo.CreateSignup(ctx, &models.WaitlistSignup{Email: "a@example.com", Name: "B", CreatorType: "dev"})
	s.True(errors.Is(err, ErrDuplicateEmail))
}

func (s *RepositoryTestSuite) TestFindByEmail() {
	ctx := context.Background()

	_, err := s.repo.FindSignupByEmail(ctx, "nobody@example.com")
	s.True(errors.Is(err, ErrSignupNotFound))

	_, err = s.repo.CreateSignup(ctx, &models.WaitlistSignup{Email: "a@example.com", Name: "A", CreatorType: "dev"})
	s.Require().NoError(err)

	found, err := s.repo.FindSignupByEmail(ctx, "a@example.com")
	s.Require().NoError(err)
	s.Equal("dev", found.CreatorType)
}

func (s *RepositoryTestSuite) TestListOrderedByCreation() {
	ctx := context.Background()
	for _, email := range []string{"1@example.com", "2@example.com", "3@example.com"} {
		_, err := s.repo.CreateSignup(ctx, &models.WaitlistSignup{Email: email, Name: "n", CreatorType: "c"})
		s.Require().NoError(err)
	}

	all, err := s.repo.ListSignups(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("1@example.com", all[0].Email)
	s.Equal("3@example.com", all[2].Email)
}
