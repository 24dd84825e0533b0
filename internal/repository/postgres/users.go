package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stagepass/stagepass/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *UserRepo) With(db DB) *UserRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const userColumns = `id, email, first_name, last_name, profile_image_url, location, created_at, updated_at`

// GetUser retrieves a user by ID.
//
// Returns repository.ErrNotFound if the user does not exist.
func (r *UserRepo) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "postgres.UserRepo.GetUser"

	db := r.handle()

	var u domain.User
	err := db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.ProfileImageURL, &u.Location, &u.Created, &u.Updated,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &u, nil
}

// UpsertUser inserts the user or refreshes the stored profile when the ID
// already exists. The identity provider owns the profile; this is a local
// mirror.
func (r *UserRepo) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	const op = "postgres.UserRepo.UpsertUser"

	db := r.handle()

	var out domain.User
	err := db.QueryRow(ctx,
		`INSERT INTO users(id, email, first_name, last_name, profile_image_url, location)
		 VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, ''), 'New York, NY'))
		 ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			profile_image_url = EXCLUDED.profile_image_url,
			updated_at = now()
		 RETURNING `+userColumns,
		u.ID, u.Email, u.FirstName, u.LastName, u.ProfileImageURL, u.Location,
	).Scan(
		&out.ID, &out.Email, &out.FirstName, &out.LastName,
		&out.ProfileImageURL, &out.Location, &out.Created, &out.Updated,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &out, nil
}
