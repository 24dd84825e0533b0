package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
	postgresrepo "github.com/stagepass/stagepass/internal/repository/postgres"
	redisrepo "github.com/stagepass/stagepass/internal/repository/redis"
)

type Config struct {
	EventSummaryTTL time.Duration
	EventSeatsTTL   time.Duration
	MovieSummaryTTL time.Duration
}

// Service serves the read side of the marketplace: venues, events, movies,
// theaters, showtimes and per-event seat availability. Hot single-entity
// reads go through the redis cache.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.EventSummaryTTL <= 0 {
		cfg.EventSummaryTTL = 60 * time.Second
	}

	if cfg.EventSeatsTTL <= 0 {
		cfg.EventSeatsTTL = 15 * time.Second
	}

	if cfg.MovieSummaryTTL <= 0 {
		cfg.MovieSummaryTTL = 60 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// ListVenues lists all venues ordered by name.
func (s *Service) ListVenues(ctx context.Context) ([]domain.Venue, error) {
	const op = "service.catalog.ListVenues"

	venues, err := s.store.Catalog().ListVenues(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return venues, nil
}

// ListEvents lists active events with their venue, filtered by category,
// city and free-text search.
func (s *Service) ListEvents(ctx context.Context, f postgresrepo.EventFilter) ([]domain.EventWithVenue, error) {
	const op = "service.catalog.ListEvents"

	events, err := s.store.Catalog().ListEvents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return events, nil
}

// GetEvent retrieves an event with its venue through the cache.
//
// Returns ErrEventNotFound if the event does not exist.
func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*domain.EventWithVenue, error) {
	const op = "service.catalog.GetEvent"

	key := redisrepo.KeyEventSummary(id)

	event, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.EventSummaryTTL,
		func(ctx context.Context) (domain.EventWithVenue, error) {
			e, err := s.store.Catalog().GetEvent(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.EventWithVenue{}, ErrEventNotFound
				}

				return domain.EventWithVenue{}, err
			}

			return *e, nil
		},
	)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &event, nil
}

// AvailableSeats lists the seats of the event's venue not yet attached to
// any booking of that event, ordered by row then seat number. An unknown
// event or an empty seat map both yield an empty list.
func (s *Service) AvailableSeats(ctx context.Context, eventID uuid.UUID) ([]domain.Seat, error) {
	const op = "service.catalog.AvailableSeats"

	key := redisrepo.KeyEventSeats(eventID)

	seats, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.EventSeatsTTL,
		func(ctx context.Context) ([]domain.Seat, error) {
			return s.store.Seats().AvailableSeats(ctx, eventID)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return seats, nil
}

// SeatsByVenue lists the full seat map of a venue.
func (s *Service) SeatsByVenue(ctx context.Context, venueID uuid.UUID) ([]domain.Seat, error) {
	const op = "service.catalog.SeatsByVenue"

	seats, err := s.store.Seats().SeatsByVenue(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return seats, nil
}

// ListMovies lists active movies, newest release first.
func (s *Service) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	const op = "service.catalog.ListMovies"

	movies, err := s.store.Catalog().ListMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return movies, nil
}

// GetMovie retrieves a movie with its upcoming showtimes and their
// theaters.
//
// Returns ErrMovieNotFound if the movie does not exist.
func (s *Service) GetMovie(ctx context.Context, id uuid.UUID) (*domain.MovieWithShowtimes, error) {
	const op = "service.catalog.GetMovie"

	key := redisrepo.KeyMovieSummary(id)

	movie, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.MovieSummaryTTL,
		func(ctx context.Context) (domain.MovieWithShowtimes, error) {
			m, err := s.store.Catalog().GetMovie(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.MovieWithShowtimes{}, ErrMovieNotFound
				}

				return domain.MovieWithShowtimes{}, err
			}

			showtimes, err := s.store.Catalog().ListShowtimesForMovie(ctx, id)
			if err != nil {
				return domain.MovieWithShowtimes{}, err
			}

			return domain.MovieWithShowtimes{Movie: *m, Showtimes: showtimes}, nil
		},
	)
	if err != nil {
		if errors.Is(err, ErrMovieNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrMovieNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &movie, nil
}

// ListTheaters lists theaters, optionally restricted to a city.
func (s *Service) ListTheaters(ctx context.Context, city string) ([]domain.Theater, error) {
	const op = "service.catalog.ListTheaters"

	theaters, err := s.store.Catalog().ListTheaters(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return theaters, nil
}

// ListShowtimes lists upcoming showtimes with movie and theater.
func (s *Service) ListShowtimes(ctx context.Context, f postgresrepo.ShowtimeFilter) ([]domain.ShowtimeWithMovieTheater, error) {
	const op = "service.catalog.ListShowtimes"

	showtimes, err := s.store.Catalog().ListShowtimes(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return showtimes, nil
}
