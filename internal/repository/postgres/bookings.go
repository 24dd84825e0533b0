package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// CreateEventBooking books venue seats for an event. The whole write runs
// in one serializable transaction: the booking row, the seat line items and
// the seat-to-venue validation commit or roll back together. A concurrent
// booking of the same seat loses on the (event_id, seat_id) unique
// constraint.
//
// Returns:
//   - repository.ErrNotFound if the event does not exist.
//   - repository.ErrSeatWrongVenue if a seat belongs to another venue.
//   - repository.ErrForeignKey if a seat does not exist.
//   - repository.ErrSeatTaken if a seat was claimed concurrently.
func (r *BookingRepo) CreateEventBooking(
	ctx context.Context,
	userID, eventID uuid.UUID,
	totalAmount decimal.Decimal,
	seats []domain.EventSeatOrder,
) (uuid.UUID, error) {
	const op = "postgres.BookingRepo.CreateEventBooking"

	if r.db != nil {
		id, err := r.createEventBookingCore(ctx, r.db, userID, eventID, totalAmount, seats)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return id, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	bookingID, err := r.createEventBookingCore(ctx, tx, userID, eventID, totalAmount, seats)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return bookingID, nil
}

func (r *BookingRepo) createEventBookingCore(
	ctx context.Context,
	db DB,
	userID, eventID uuid.UUID,
	totalAmount decimal.Decimal,
	seats []domain.EventSeatOrder,
) (uuid.UUID, error) {
	var venueID uuid.UUID
	if err := db.QueryRow(ctx,
		`SELECT venue_id FROM events WHERE id = $1`,
		eventID,
	).Scan(&venueID); err != nil {
		return uuid.Nil, err
	}

	seatIDs := make([]uuid.UUID, 0, len(seats))
	for _, s := range seats {
		seatIDs = append(seatIDs, s.SeatID)
	}

	rows, err := db.Query(ctx,
		`SELECT id, venue_id FROM seats WHERE id = ANY($1)`,
		seatIDs,
	)
	if err != nil {
		return uuid.Nil, err
	}

	seatVenues := make(map[uuid.UUID]uuid.UUID, len(seatIDs))
	for rows.Next() {
		var id, vid uuid.UUID
		if err := rows.Scan(&id, &vid); err != nil {
			rows.Close()
			return uuid.Nil, err
		}
		seatVenues[id] = vid
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return uuid.Nil, err
	}

	for _, id := range seatIDs {
		vid, ok := seatVenues[id]
		if !ok {
			return uuid.Nil, repository.ErrForeignKey
		}
		if vid != venueID {
			return uuid.Nil, repository.ErrSeatWrongVenue
		}
	}

	bookingID := uuid.New()
	if _, err := db.Exec(ctx,
		`INSERT INTO bookings(id, user_id, event_id, total_amount, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		bookingID, userID, eventID, totalAmount, domain.BookingConfirmed,
	); err != nil {
		return uuid.Nil, err
	}

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(
			`INSERT INTO booking_seats(id, booking_id, event_id, seat_id, price)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), bookingID, eventID, s.SeatID, s.Price,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return uuid.Nil, err
	}

	return bookingID, nil
}

// CreateShowtimeBooking books free-text seat numbers for a movie showtime.
// There is deliberately no uniqueness on the seat numbers.
//
// Returns repository.ErrNotFound if the showtime does not exist.
func (r *BookingRepo) CreateShowtimeBooking(
	ctx context.Context,
	userID, showtimeID uuid.UUID,
	totalAmount decimal.Decimal,
	seats []domain.ShowtimeSeatOrder,
) (uuid.UUID, error) {
	const op = "postgres.BookingRepo.CreateShowtimeBooking"

	if r.db != nil {
		id, err := r.createShowtimeBookingCore(ctx, r.db, userID, showtimeID, totalAmount, seats)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return id, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	bookingID, err := r.createShowtimeBookingCore(ctx, tx, userID, showtimeID, totalAmount, seats)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return bookingID, nil
}

func (r *BookingRepo) createShowtimeBookingCore(
	ctx context.Context,
	db DB,
	userID, showtimeID uuid.UUID,
	totalAmount decimal.Decimal,
	seats []domain.ShowtimeSeatOrder,
) (uuid.UUID, error) {
	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM showtimes WHERE id = $1)`,
		showtimeID,
	).Scan(&exists); err != nil {
		return uuid.Nil, err
	}
	if !exists {
		return uuid.Nil, repository.ErrNotFound
	}

	bookingID := uuid.New()
	if _, err := db.Exec(ctx,
		`INSERT INTO bookings(id, user_id, showtime_id, total_amount, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		bookingID, userID, showtimeID, totalAmount, domain.BookingConfirmed,
	); err != nil {
		return uuid.Nil, err
	}

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(
			`INSERT INTO movie_booking_seats(id, booking_id, seat_number, price)
			 VALUES ($1, $2, $3, $4)`,
			uuid.New(), bookingID, s.SeatNumber, s.Price,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return uuid.Nil, err
	}

	return bookingID, nil
}

const bookingColumns = `id, user_id, event_id, showtime_id, total_amount, status, booking_date, created_at`

// GetBooking retrieves a booking with its nested event or showtime detail
// and seat line items.
//
// Returns repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
	const op = "postgres.BookingRepo.GetBooking"

	db := r.handle()

	var b domain.Booking
	err := db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	).Scan(
		&b.ID, &b.UserID, &b.EventID, &b.ShowtimeID,
		&b.TotalAmount, &b.Status, &b.BookingDate, &b.Created,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	detail, err := r.attachDetails(ctx, db, b)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return detail, nil
}

// ListUserBookings lists a user's bookings, newest first, each with full
// nested detail.
func (r *BookingRepo) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]domain.BookingWithDetails, error) {
	const op = "postgres.BookingRepo.ListUserBookings"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	var base []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.EventID, &b.ShowtimeID,
			&b.TotalAmount, &b.Status, &b.BookingDate, &b.Created,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		base = append(base, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := make([]domain.BookingWithDetails, 0, len(base))
	for _, b := range base {
		detail, err := r.attachDetails(ctx, db, b)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *detail)
	}

	return out, nil
}

func (r *BookingRepo) attachDetails(ctx context.Context, db DB, b domain.Booking) (*domain.BookingWithDetails, error) {
	detail := &domain.BookingWithDetails{Booking: b}

	if b.EventID != nil {
		ev, err := (&CatalogRepo{db: db, pool: r.pool}).GetEvent(ctx, *b.EventID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		detail.Event = ev

		seats, err := r.bookingSeats(ctx, db, b.ID)
		if err != nil {
			return nil, err
		}
		detail.BookingSeats = seats
	}

	if b.ShowtimeID != nil {
		st, err := r.showtimeDetail(ctx, db, *b.ShowtimeID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		detail.Showtime = st

		seats, err := r.movieBookingSeats(ctx, db, b.ID)
		if err != nil {
			return nil, err
		}
		detail.MovieBookingSeats = seats
	}

	return detail, nil
}

func (r *BookingRepo) bookingSeats(ctx context.Context, db DB, bookingID uuid.UUID) ([]domain.BookingSeatWithSeat, error) {
	rows, err := db.Query(ctx,
		`SELECT bs.id, bs.booking_id, bs.seat_id, bs.price,
				`+seatColumns+`
		 FROM booking_seats bs
		 JOIN seats s ON s.id = bs.seat_id
		 WHERE bs.booking_id = $1`,
		bookingID,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []domain.BookingSeatWithSeat
	for rows.Next() {
		var bs domain.BookingSeatWithSeat
		if err := rows.Scan(
			&bs.BookingSeat.ID, &bs.BookingID, &bs.SeatID, &bs.Price,
			&bs.Seat.ID, &bs.Seat.VenueID, &bs.Seat.SeatNumber, &bs.Seat.Row,
			&bs.Seat.Section, &bs.Seat.SeatType, &bs.Seat.PriceMultiplier,
		); err != nil {
			return nil, err
		}
		out = append(out, bs)
	}

	return out, rows.Err()
}

func (r *BookingRepo) movieBookingSeats(ctx context.Context, db DB, bookingID uuid.UUID) ([]domain.MovieBookingSeat, error) {
	rows, err := db.Query(ctx,
		`SELECT id, booking_id, seat_number, price
		 FROM movie_booking_seats
		 WHERE booking_id = $1`,
		bookingID,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []domain.MovieBookingSeat
	for rows.Next() {
		var ms domain.MovieBookingSeat
		if err := rows.Scan(&ms.ID, &ms.BookingID, &ms.SeatNumber, &ms.Price); err != nil {
			return nil, err
		}
		out = append(out, ms)
	}

	return out, rows.Err()
}

func (r *BookingRepo) showtimeDetail(ctx context.Context, db DB, showtimeID uuid.UUID) (*domain.ShowtimeWithMovieTheater, error) {
	var st domain.ShowtimeWithMovieTheater
	err := db.QueryRow(ctx,
		`SELECT st.id, st.movie_id, st.theater_id, st.show_date, st.price,
				`+showtimeAvailableSeats+`, st.created_at,
				m.id, m.title, m.description, m.rating, m.duration, m.genre,
				m.director, m."cast", m.image_url, m.trailer_url, m.release_date,
				m.imdb_rating, m.is_active, m.created_at,
				`+theaterColumns+`
		 FROM showtimes st
		 JOIN movies m ON m.id = st.movie_id
		 JOIN theaters t ON t.id = st.theater_id
		 WHERE st.id = $1`,
		showtimeID,
	).Scan(
		&st.Showtime.ID, &st.MovieID, &st.Showtime.TheaterID, &st.ShowDate,
		&st.Price, &st.AvailableSeats, &st.Showtime.Created,
		&st.Movie.ID, &st.Movie.Title, &st.Movie.Description, &st.Movie.Rating,
		&st.Movie.Duration, &st.Movie.Genre, &st.Movie.Director, &st.Movie.Cast,
		&st.Movie.ImageURL, &st.Movie.TrailerURL, &st.Movie.ReleaseDate,
		&st.Movie.IMDBRating, &st.Movie.IsActive, &st.Movie.Created,
		&st.Theater.ID, &st.Theater.Name, &st.Theater.Address, &st.Theater.City,
		&st.Theater.State, &st.Theater.TotalSeats, &st.Theater.Amenities,
		&st.Theater.Created,
	)
	if err != nil {
		return nil, err
	}

	return &st, nil
}
