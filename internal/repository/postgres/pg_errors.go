package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stagepass/stagepass/internal/repository"
)

// booking_seats carries UNIQUE (event_id, seat_id); a violation there means
// a concurrent booking won the seat.
const seatUniqueConstraint = "booking_seats_event_id_seat_id_key"

func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}

	return false
}

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		// unique_violation
		case "23505":
			if pge.ConstraintName == seatUniqueConstraint {
				return repository.ErrSeatTaken
			}
			return repository.ErrConflict
		// foreign_key_violation
		case "23503":
			return repository.ErrForeignKey
		}
	}

	return err
}
