package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stagepass/stagepass/internal/domain"
)

// EventFilter narrows ListEvents. City accepts the "City, ST" format the
// client sends and is matched against the venue city only.
type EventFilter struct {
	Category string
	City     string
	Search   string
}

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const venueColumns = `id, name, address, city, state, capacity, image_url, created_at`

// ListVenues lists all venues ordered by name.
func (r *CatalogRepo) ListVenues(ctx context.Context) ([]domain.Venue, error) {
	const op = "postgres.CatalogRepo.ListVenues"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+venueColumns+` FROM venues ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Venue
	for rows.Next() {
		var v domain.Venue
		if err := rows.Scan(
			&v.ID, &v.Name, &v.Address, &v.City, &v.State,
			&v.Capacity, &v.ImageURL, &v.Created,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// GetVenue retrieves a venue by its ID.
//
// Returns repository.ErrNotFound if the venue does not exist.
func (r *CatalogRepo) GetVenue(ctx context.Context, id uuid.UUID) (*domain.Venue, error) {
	const op = "postgres.CatalogRepo.GetVenue"

	db := r.handle()

	var v domain.Venue
	err := db.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = $1`,
		id,
	).Scan(
		&v.ID, &v.Name, &v.Address, &v.City, &v.State,
		&v.Capacity, &v.ImageURL, &v.Created,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &v, nil
}

const eventWithVenueColumns = `
	e.id, e.title, e.description, e.category, e.venue_id, e.event_date,
	e.duration, e.image_url, e.base_price, e.is_active, e.created_at,
	v.id, v.name, v.address, v.city, v.state, v.capacity, v.image_url, v.created_at`

// ListEvents lists active events with their venue, applying the optional
// filters, ordered by event date.
func (r *CatalogRepo) ListEvents(ctx context.Context, f EventFilter) ([]domain.EventWithVenue, error) {
	const op = "postgres.CatalogRepo.ListEvents"

	db := r.handle()

	conds := []string{"e.is_active = TRUE"}
	args := []any{}

	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("e.category = $%d", len(args)))
	}

	if f.City != "" {
		city := strings.TrimSpace(strings.SplitN(f.City, ",", 2)[0])
		args = append(args, city)
		conds = append(conds, fmt.Sprintf("v.city = $%d", len(args)))
	}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf(
			"(e.title ILIKE $%d OR e.description ILIKE $%d)", len(args), len(args),
		))
	}

	q := `SELECT ` + eventWithVenueColumns + `
		 FROM events e
		 JOIN venues v ON v.id = e.venue_id
		 WHERE ` + strings.Join(conds, " AND ") + `
		 ORDER BY e.event_date`

	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.EventWithVenue
	for rows.Next() {
		var ev domain.EventWithVenue
		if err := rows.Scan(
			&ev.Event.ID, &ev.Title, &ev.Description, &ev.Category, &ev.VenueID,
			&ev.EventDate, &ev.Duration, &ev.Event.ImageURL, &ev.BasePrice,
			&ev.IsActive, &ev.Event.Created,
			&ev.Venue.ID, &ev.Venue.Name, &ev.Venue.Address, &ev.Venue.City,
			&ev.Venue.State, &ev.Venue.Capacity, &ev.Venue.ImageURL, &ev.Venue.Created,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// GetEvent retrieves a single event with its venue.
//
// Returns repository.ErrNotFound if the event does not exist.
func (r *CatalogRepo) GetEvent(ctx context.Context, id uuid.UUID) (*domain.EventWithVenue, error) {
	const op = "postgres.CatalogRepo.GetEvent"

	db := r.handle()

	var ev domain.EventWithVenue
	err := db.QueryRow(ctx,
		`SELECT `+eventWithVenueColumns+`
		 FROM events e
		 JOIN venues v ON v.id = e.venue_id
		 WHERE e.id = $1`,
		id,
	).Scan(
		&ev.Event.ID, &ev.Title, &ev.Description, &ev.Category, &ev.VenueID,
		&ev.EventDate, &ev.Duration, &ev.Event.ImageURL, &ev.BasePrice,
		&ev.IsActive, &ev.Event.Created,
		&ev.Venue.ID, &ev.Venue.Name, &ev.Venue.Address, &ev.Venue.City,
		&ev.Venue.State, &ev.Venue.Capacity, &ev.Venue.ImageURL, &ev.Venue.Created,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &ev, nil
}

const movieColumns = `
	id, title, description, rating, duration, genre, director, "cast",
	image_url, trailer_url, release_date, imdb_rating, is_active, created_at`

// ListMovies lists active movies, newest release first.
func (r *CatalogRepo) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	const op = "postgres.CatalogRepo.ListMovies"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+movieColumns+`
		 FROM movies
		 WHERE is_active = TRUE
		 ORDER BY release_date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Movie
	for rows.Next() {
		var m domain.Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// GetMovie retrieves a movie by its ID.
//
// Returns repository.ErrNotFound if the movie does not exist.
func (r *CatalogRepo) GetMovie(ctx context.Context, id uuid.UUID) (*domain.Movie, error) {
	const op = "postgres.CatalogRepo.GetMovie"

	db := r.handle()

	var m domain.Movie
	err := db.QueryRow(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = $1`,
		id,
	).Scan(
		&m.ID, &m.Title, &m.Description, &m.Rating, &m.Duration, &m.Genre,
		&m.Director, &m.Cast, &m.ImageURL, &m.TrailerURL, &m.ReleaseDate,
		&m.IMDBRating, &m.IsActive, &m.Created,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &m, nil
}

type movieScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row movieScanner, m *domain.Movie) error {
	return row.Scan(
		&m.ID, &m.Title, &m.Description, &m.Rating, &m.Duration, &m.Genre,
		&m.Director, &m.Cast, &m.ImageURL, &m.TrailerURL, &m.ReleaseDate,
		&m.IMDBRating, &m.IsActive, &m.Created,
	)
}

// showtimeAvailableSeats derives the per-showtime availability from the
// theater capacity minus booked movie seats. Nothing ever writes a counter.
const showtimeAvailableSeats = `
	t.total_seats - (
		SELECT COUNT(*)
		FROM movie_booking_seats mbs
		JOIN bookings b ON b.id = mbs.booking_id
		WHERE b.showtime_id = st.id
	)`

const theaterColumns = `t.id, t.name, t.address, t.city, t.state, t.total_seats, t.amenities, t.created_at`

// ListShowtimesForMovie lists upcoming showtimes for a movie with their
// theaters, soonest first.
func (r *CatalogRepo) ListShowtimesForMovie(ctx context.Context, movieID uuid.UUID) ([]domain.ShowtimeWithTheater, error) {
	const op = "postgres.CatalogRepo.ListShowtimesForMovie"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT st.id, st.movie_id, st.theater_id, st.show_date, st.price,
				`+showtimeAvailableSeats+`, st.created_at,
				`+theaterColumns+`
		 FROM showtimes st
		 JOIN theaters t ON t.id = st.theater_id
		 WHERE st.movie_id = $1 AND st.show_date >= now()
		 ORDER BY st.show_date`,
		movieID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.ShowtimeWithTheater
	for rows.Next() {
		var st domain.ShowtimeWithTheater
		if err := rows.Scan(
			&st.Showtime.ID, &st.MovieID, &st.TheaterID, &st.ShowDate, &st.Price,
			&st.AvailableSeats, &st.Showtime.Created,
			&st.Theater.ID, &st.Theater.Name, &st.Theater.Address, &st.Theater.City,
			&st.Theater.State, &st.Theater.TotalSeats, &st.Theater.Amenities,
			&st.Theater.Created,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListTheaters lists theaters ordered by name. City, when set, must match
// exactly.
func (r *CatalogRepo) ListTheaters(ctx context.Context, city string) ([]domain.Theater, error) {
	const op = "postgres.CatalogRepo.ListTheaters"

	db := r.handle()

	q := `SELECT ` + theaterColumns + ` FROM theaters t`
	args := []any{}
	if city != "" {
		q += ` WHERE t.city = $1`
		args = append(args, city)
	}
	q += ` ORDER BY t.name`

	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Theater
	for rows.Next() {
		var t domain.Theater
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Address, &t.City, &t.State,
			&t.TotalSeats, &t.Amenities, &t.Created,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ShowtimeFilter narrows ListShowtimes. Date, when set, restricts to that
// calendar day.
type ShowtimeFilter struct {
	MovieID   *uuid.UUID
	TheaterID *uuid.UUID
	Date      *time.Time
}

// ListShowtimes lists upcoming showtimes with movie and theater, soonest
// first, applying the optional filters.
func (r *CatalogRepo) ListShowtimes(ctx context.Context, f ShowtimeFilter) ([]domain.ShowtimeWithMovieTheater, error) {
	const op = "postgres.CatalogRepo.ListShowtimes"

	db := r.handle()

	conds := []string{"st.show_date >= now()"}
	args := []any{}

	if f.MovieID != nil {
		args = append(args, *f.MovieID)
		conds = append(conds, fmt.Sprintf("st.movie_id = $%d", len(args)))
	}

	if f.TheaterID != nil {
		args = append(args, *f.TheaterID)
		conds = append(conds, fmt.Sprintf("st.theater_id = $%d", len(args)))
	}

	if f.Date != nil {
		day := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, f.Date.Location())
		args = append(args, day)
		conds = append(conds, fmt.Sprintf("st.show_date >= $%d", len(args)))
		args = append(args, day.AddDate(0, 0, 1))
		conds = append(conds, fmt.Sprintf("st.show_date < $%d", len(args)))
	}

	q := `SELECT st.id, st.movie_id, st.theater_id, st.show_date, st.price,
			` + showtimeAvailableSeats + `, st.created_at,
			m.id, m.title, m.description, m.rating, m.duration, m.genre,
			m.director, m."cast", m.image_url, m.trailer_url, m.release_date,
			m.imdb_rating, m.is_active, m.created_at,
			` + theaterColumns + `
		 FROM showtimes st
		 JOIN movies m ON m.id = st.movie_id
		 JOIN theaters t ON t.id = st.theater_id
		 WHERE ` + strings.Join(conds, " AND ") + `
		 ORDER BY st.show_date`

	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.ShowtimeWithMovieTheater
	for rows.Next() {
		var st domain.ShowtimeWithMovieTheater
		if err := rows.Scan(
			&st.Showtime.ID, &st.MovieID, &st.Showtime.TheaterID, &st.ShowDate,
			&st.Price, &st.AvailableSeats, &st.Showtime.Created,
			&st.Movie.ID, &st.Movie.Title, &st.Movie.Description, &st.Movie.Rating,
			&st.Movie.Duration, &st.Movie.Genre, &st.Movie.Director, &st.Movie.Cast,
			&st.Movie.ImageURL, &st.Movie.TrailerURL, &st.Movie.ReleaseDate,
			&st.Movie.IMDBRating, &st.Movie.IsActive, &st.Movie.Created,
			&st.Theater.ID, &st.Theater.Name, &st.Theater.Address, &st.Theater.City,
			&st.Theater.State, &st.Theater.TotalSeats, &st.Theater.Amenities,
			&st.Theater.Created,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// GetShowtime retrieves a showtime by its ID.
//
// Returns repository.ErrNotFound if the showtime does not exist.
func (r *CatalogRepo) GetShowtime(ctx context.Context, id uuid.UUID) (*domain.Showtime, error) {
	const op = "postgres.CatalogRepo.GetShowtime"

	db := r.handle()

	var st domain.Showtime
	err := db.QueryRow(ctx,
		`SELECT st.id, st.movie_id, st.theater_id, st.show_date, st.price,
				`+showtimeAvailableSeats+`, st.created_at
		 FROM showtimes st
		 JOIN theaters t ON t.id = st.theater_id
		 WHERE st.id = $1`,
		id,
	).Scan(
		&st.ID, &st.MovieID, &st.TheaterID, &st.ShowDate, &st.Price,
		&st.AvailableSeats, &st.Created,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &st, nil
}
