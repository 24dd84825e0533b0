package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

// Repository persists bookings. The event path runs inside one
// serializable transaction on the other side of this interface.
type Repository interface {
	CreateEventBooking(ctx context.Context, userID, eventID uuid.UUID, totalAmount decimal.Decimal, seats []domain.EventSeatOrder) (uuid.UUID, error)
	CreateShowtimeBooking(ctx context.Context, userID, showtimeID uuid.UUID, totalAmount decimal.Decimal, seats []domain.ShowtimeSeatOrder) (uuid.UUID, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error)
	ListUserBookings(ctx context.Context, userID uuid.UUID) ([]domain.BookingWithDetails, error)
}

// Invalidator drops cached event state after a booking commits.
type Invalidator interface {
	InvalidateEvent(ctx context.Context, eventID uuid.UUID) error
}

// Publisher notifies other instances that event availability changed.
type Publisher interface {
	PublishEventBooked(ctx context.Context, eventID uuid.UUID) error
}

// Limiter throttles booking attempts per user.
type Limiter interface {
	Allow(ctx context.Context, suffix string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

type Service struct {
	log     *slog.Logger
	repo    Repository
	cache   Invalidator
	pub     Publisher
	limiter Limiter
}

func New(log *slog.Logger, repo Repository, cache Invalidator, pub Publisher, limiter Limiter) *Service {
	return &Service{
		log:     log,
		repo:    repo,
		cache:   cache,
		pub:     pub,
		limiter: limiter,
	}
}

// CreateInput carries one booking order. Exactly one of EventID and
// ShowtimeID must be set, with the matching seat slice non-empty.
type CreateInput struct {
	UserID        uuid.UUID
	EventID       *uuid.UUID
	ShowtimeID    *uuid.UUID
	TotalAmount   decimal.Decimal
	EventSeats    []domain.EventSeatOrder
	ShowtimeSeats []domain.ShowtimeSeatOrder
}

func (in CreateInput) validate() error {
	if (in.EventID == nil) == (in.ShowtimeID == nil) {
		return fmt.Errorf("%w: exactly one of eventId and showtimeId is required", ErrInvalidOrder)
	}

	if !in.TotalAmount.IsPositive() {
		return fmt.Errorf("%w: totalAmount must be positive", ErrInvalidOrder)
	}

	if in.EventID != nil && len(in.EventSeats) == 0 {
		return fmt.Errorf("%w: at least one seat is required", ErrInvalidOrder)
	}

	if in.ShowtimeID != nil && len(in.ShowtimeSeats) == 0 {
		return fmt.Errorf("%w: at least one seat is required", ErrInvalidOrder)
	}

	for _, s := range in.EventSeats {
		if s.SeatID == uuid.Nil {
			return fmt.Errorf("%w: seatId is required", ErrInvalidOrder)
		}
		if s.Price.IsNegative() {
			return fmt.Errorf("%w: seat price must not be negative", ErrInvalidOrder)
		}
	}

	for _, s := range in.ShowtimeSeats {
		if s.SeatNumber == "" {
			return fmt.Errorf("%w: seatNumber is required", ErrInvalidOrder)
		}
		if s.Price.IsNegative() {
			return fmt.Errorf("%w: seat price must not be negative", ErrInvalidOrder)
		}
	}

	return nil
}

// Create books seats for an event or a showtime and returns the stored
// booking with full nested detail. Event bookings that lose a seat race
// surface ErrSeatConflict and persist nothing.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.BookingWithDetails, error) {
	const op = "service.booking.Create"

	if s.limiter != nil {
		allowed, _, retryAfter, err := s.limiter.Allow(ctx, in.UserID.String())
		if err != nil {
			// The limiter is availability protection, not correctness.
			s.log.Warn("rate limiter unavailable", "op", op, "err", err)
		} else if !allowed {
			return nil, &RateLimitError{RetryAfter: retryAfter}
		}
	}

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var (
		bookingID uuid.UUID
		err       error
	)

	switch {
	case in.EventID != nil:
		bookingID, err = s.repo.CreateEventBooking(ctx, in.UserID, *in.EventID, in.TotalAmount, in.EventSeats)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, s.mapEventErr(err))
		}

		s.afterEventBooking(ctx, *in.EventID)

	case in.ShowtimeID != nil:
		bookingID, err = s.repo.CreateShowtimeBooking(ctx, in.UserID, *in.ShowtimeID, in.TotalAmount, in.ShowtimeSeats)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%s:%w", op, ErrShowtimeNotFound)
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	detail, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return detail, nil
}

func (s *Service) mapEventErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrEventNotFound
	case errors.Is(err, repository.ErrSeatTaken):
		return ErrSeatConflict
	case errors.Is(err, repository.ErrSeatWrongVenue):
		return ErrSeatWrongVenue
	case errors.Is(err, repository.ErrForeignKey):
		return ErrSeatNotFound
	default:
		return err
	}
}

// afterEventBooking is best effort: the booking already committed, so
// cache and pubsub failures are logged and swallowed.
func (s *Service) afterEventBooking(ctx context.Context, eventID uuid.UUID) {
	if s.cache != nil {
		if err := s.cache.InvalidateEvent(ctx, eventID); err != nil {
			s.log.Warn("event cache invalidation failed", "event_id", eventID, "err", err)
		}
	}

	if s.pub != nil {
		if err := s.pub.PublishEventBooked(ctx, eventID); err != nil {
			s.log.Warn("booking change publish failed", "event_id", eventID, "err", err)
		}
	}
}

// Get retrieves one booking owned by the user.
//
// Returns ErrBookingNotFound for a missing booking and ErrForbidden when
// the booking belongs to someone else.
func (s *Service) Get(ctx context.Context, userID, bookingID uuid.UUID) (*domain.BookingWithDetails, error) {
	const op = "service.booking.Get"

	detail, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if detail.UserID != userID {
		return nil, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	return detail, nil
}

// ListForUser lists the user's bookings, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.BookingWithDetails, error) {
	const op = "service.booking.ListForUser"

	bookings, err := s.repo.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return bookings, nil
}
