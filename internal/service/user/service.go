package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

// Repository mirrors identity-provider profiles locally.
type Repository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Profile is the slice of token claims the service mirrors into the
// users table.
type Profile struct {
	ID              uuid.UUID
	Email           *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}

// EnsureUser returns the stored user, creating the row from the token
// profile on first contact.
func (s *Service) EnsureUser(ctx context.Context, p Profile) (*domain.User, error) {
	const op = "service.user.EnsureUser"

	u, err := s.repo.GetUser(ctx, p.ID)
	if err == nil {
		return u, nil
	}

	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	created, err := s.repo.UpsertUser(ctx, &domain.User{
		ID:              p.ID,
		Email:           p.Email,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		ProfileImageURL: p.ProfileImageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return created, nil
}
