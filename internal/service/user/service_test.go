package user

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

type mockRepo struct {
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	upsertFn func(ctx context.Context, u *domain.User) (*domain.User, error)
}

func (m *mockRepo) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	return m.upsertFn(ctx, u)
}

func TestEnsureUser_Existing(t *testing.T) {
	id := uuid.New()
	stored := &domain.User{ID: id, Location: "Austin, TX"}

	repo := &mockRepo{
		getFn: func(_ context.Context, gotID uuid.UUID) (*domain.User, error) {
			assert.Equal(t, id, gotID)
			return stored, nil
		},
		upsertFn: func(context.Context, *domain.User) (*domain.User, error) {
			t.Fatal("upsert must not run for an existing user")
			return nil, nil
		},
	}

	got, err := New(repo).EnsureUser(context.Background(), Profile{ID: id})
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestEnsureUser_CreatesOnFirstContact(t *testing.T) {
	id := uuid.New()
	email := "ada@example.com"

	repo := &mockRepo{
		getFn: func(context.Context, uuid.UUID) (*domain.User, error) {
			return nil, repository.ErrNotFound
		},
		upsertFn: func(_ context.Context, u *domain.User) (*domain.User, error) {
			assert.Equal(t, id, u.ID)
			require.NotNil(t, u.Email)
			assert.Equal(t, email, *u.Email)
			created := *u
			created.Location = "New York, NY"
			return &created, nil
		},
	}

	got, err := New(repo).EnsureUser(context.Background(), Profile{ID: id, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "New York, NY", got.Location)
}

func TestEnsureUser_RepoError(t *testing.T) {
	wantErr := errors.New("connection reset")

	repo := &mockRepo{
		getFn: func(context.Context, uuid.UUID) (*domain.User, error) {
			return nil, wantErr
		},
	}

	_, err := New(repo).EnsureUser(context.Background(), Profile{ID: uuid.New()})
	assert.ErrorIs(t, err, wantErr)
}
