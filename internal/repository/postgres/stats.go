package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type StatsRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *StatsRepo) With(db DB) *StatsRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *StatsRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// UserTotals aggregates a user's confirmed booking history: events whose
// date has already passed, and the total spent across every confirmed
// booking regardless of date.
func (r *StatsRepo) UserTotals(ctx context.Context, userID uuid.UUID) (eventsAttended int, totalSpent decimal.Decimal, err error) {
	const op = "postgres.StatsRepo.UserTotals"

	db := r.handle()

	err = db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM bookings b
		 JOIN events e ON e.id = b.event_id
		 WHERE b.user_id = $1
		   AND b.status = 'confirmed'
		   AND e.event_date < now()`,
		userID,
	).Scan(&eventsAttended)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	err = db.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0)
		 FROM bookings
		 WHERE user_id = $1 AND status = 'confirmed'`,
		userID,
	).Scan(&totalSpent)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return eventsAttended, totalSpent, nil
}
