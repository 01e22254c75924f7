package app

import (
	"context"
	"strings"

	"github.com/cimillas/storefront/services/api/internal/clock"
	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/shopspring/decimal"
)

type UserRepository interface {
	// FindOrCreateUser returns the user with candidate.Email, inserting
	// candidate when no such user exists.
	FindOrCreateUser(ctx context.Context, candidate domain.User) (domain.User, error)
	UpdateUserToken(ctx context.Context, userID, token string) error
}

type UserService struct {
	repo            UserRepository
	clock           clock.Clock
	startingBalance decimal.Decimal
}

type UserServiceOption func(*UserService)

// WithStartingBalance overrides domain.DefaultBalance for new users.
func WithStartingBalance(b decimal.Decimal) UserServiceOption {
	return func(s *UserService) {
		if !b.IsNegative() {
			s.startingBalance = b
		}
	}
}

func NewUserService(repo UserRepository, clk clock.Clock, opts ...UserServiceOption) *UserService {
	svc := &UserService{
		repo:            repo,
		clock:           clk,
		startingBalance: domain.DefaultBalance,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ResolveUser finds a user by exact email or creates one with the starting
// balance. Repeated calls for the same email return the same user.
func (s *UserService) ResolveUser(ctx context.Context, name, email string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.User{}, domain.ErrEmailRequired
	}
	if name == "" {
		return domain.User{}, domain.ErrNameRequired
	}

	return s.repo.FindOrCreateUser(ctx, domain.User{
		ID:        newID(),
		Name:      name,
		Email:     email,
		Balance:   s.startingBalance,
		CreatedAt: s.clock.Now(),
	})
}

// RecordToken caches the latest issued token on the user record.
func (s *UserService) RecordToken(ctx context.Context, userID, token string) error {
	return s.repo.UpdateUserToken(ctx, userID, token)
}
