package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

type SeatRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SeatRepo) With(db DB) *SeatRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SeatRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const seatColumns = `s.id, s.venue_id, s.seat_number, s."row", s.section, s.seat_type, COALESCE(s.price_multiplier, 1.00)`

func scanSeats(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}) ([]domain.Seat, error) {
	defer rows.Close()

	var out []domain.Seat
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(
			&s.ID, &s.VenueID, &s.SeatNumber, &s.Row, &s.Section,
			&s.SeatType, &s.PriceMultiplier,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// SeatsByVenue lists the full seat map of a venue, ordered by row then
// numeric-aware seat number.
func (r *SeatRepo) SeatsByVenue(ctx context.Context, venueID uuid.UUID) ([]domain.Seat, error) {
	const op = "postgres.SeatRepo.SeatsByVenue"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+seatColumns+` FROM seats s WHERE s.venue_id = $1`,
		venueID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	seats, err := scanSeats(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	domain.SortSeats(seats)
	return seats, nil
}

// AvailableSeats lists the seats of the event's venue that no booking of
// that event references yet. Bookings of any status block a seat.
//
// An unknown event yields an empty list, not an error. So does a venue
// without a seeded seat map; callers cannot tell "sold out" from "no seat
// map" here.
func (r *SeatRepo) AvailableSeats(ctx context.Context, eventID uuid.UUID) ([]domain.Seat, error) {
	const op = "postgres.SeatRepo.AvailableSeats"

	db := r.handle()

	var venueID uuid.UUID
	err := db.QueryRow(ctx,
		`SELECT venue_id FROM events WHERE id = $1`,
		eventID,
	).Scan(&venueID)
	if err != nil {
		if errors.Is(translateDBErr(err), repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rows, err := db.Query(ctx,
		`SELECT `+seatColumns+`
		 FROM seats s
		 WHERE s.venue_id = $1
		   AND s.id NOT IN (
				SELECT bs.seat_id
				FROM booking_seats bs
				JOIN bookings b ON b.id = bs.booking_id
				WHERE b.event_id = $2
		   )`,
		venueID, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	seats, err := scanSeats(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	domain.SortSeats(seats)
	return seats, nil
}

// SeatsByIDs fetches the given seats. Missing IDs are simply absent from
// the result; the caller decides whether that is an error.
func (r *SeatRepo) SeatsByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error) {
	const op = "postgres.SeatRepo.SeatsByIDs"

	if len(ids) == 0 {
		return nil, nil
	}

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+seatColumns+` FROM seats s WHERE s.id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	seats, err := scanSeats(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return seats, nil
}
