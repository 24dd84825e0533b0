package booking

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

type mockRepo struct {
	createEventFn    func(ctx context.Context, userID, eventID uuid.UUID, total decimal.Decimal, seats []domain.EventSeatOrder) (uuid.UUID, error)
	createShowtimeFn func(ctx context.Context, userID, showtimeID uuid.UUID, total decimal.Decimal, seats []domain.ShowtimeSeatOrder) (uuid.UUID, error)
	getFn            func(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error)
	listFn           func(ctx context.Context, userID uuid.UUID) ([]domain.BookingWithDetails, error)
}

func (m *mockRepo) CreateEventBooking(ctx context.Context, userID, eventID uuid.UUID, total decimal.Decimal, seats []domain.EventSeatOrder) (uuid.UUID, error) {
	return m.createEventFn(ctx, userID, eventID, total, seats)
}

func (m *mockRepo) CreateShowtimeBooking(ctx context.Context, userID, showtimeID uuid.UUID, total decimal.Decimal, seats []domain.ShowtimeSeatOrder) (uuid.UUID, error) {
	return m.createShowtimeFn(ctx, userID, showtimeID, total, seats)
}

func (m *mockRepo) GetBooking(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]domain.BookingWithDetails, error) {
	return m.listFn(ctx, userID)
}

type mockInvalidator struct {
	calls []uuid.UUID
	err   error
}

func (m *mockInvalidator) InvalidateEvent(_ context.Context, eventID uuid.UUID) error {
	m.calls = append(m.calls, eventID)
	return m.err
}

type mockPublisher struct {
	calls []uuid.UUID
	err   error
}

func (m *mockPublisher) PublishEventBooked(_ context.Context, eventID uuid.UUID) error {
	m.calls = append(m.calls, eventID)
	return m.err
}

type mockLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
}

func (m *mockLimiter) Allow(context.Context, string) (bool, int64, time.Duration, error) {
	return m.allowed, 1, m.retryAfter, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func detailFor(id, userID uuid.UUID) *domain.BookingWithDetails {
	return &domain.BookingWithDetails{
		Booking: domain.Booking{ID: id, UserID: userID},
	}
}

func TestCreate_EventBooking(t *testing.T) {
	userID := uuid.New()
	eventID := uuid.New()
	bookingID := uuid.New()

	repo := &mockRepo{
		createEventFn: func(_ context.Context, gotUser, gotEvent uuid.UUID, total decimal.Decimal, seats []domain.EventSeatOrder) (uuid.UUID, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, eventID, gotEvent)
			assert.True(t, total.Equal(decimal.RequireFromString("269.97")))
			assert.Len(t, seats, 1)
			return bookingID, nil
		},
		getFn: func(_ context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
			assert.Equal(t, bookingID, id)
			return detailFor(id, userID), nil
		},
	}
	inv := &mockInvalidator{}
	pub := &mockPublisher{}

	svc := New(discardLogger(), repo, inv, pub, &mockLimiter{allowed: true})

	got, err := svc.Create(context.Background(), CreateInput{
		UserID:      userID,
		EventID:     &eventID,
		TotalAmount: decimal.RequireFromString("269.97"),
		EventSeats: []domain.EventSeatOrder{
			{SeatID: uuid.New(), Price: decimal.RequireFromString("269.97")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, bookingID, got.ID)
	assert.Equal(t, []uuid.UUID{eventID}, inv.calls)
	assert.Equal(t, []uuid.UUID{eventID}, pub.calls)
}

func TestCreate_ShowtimeBooking(t *testing.T) {
	userID := uuid.New()
	showtimeID := uuid.New()
	bookingID := uuid.New()

	repo := &mockRepo{
		createShowtimeFn: func(_ context.Context, gotUser, gotShowtime uuid.UUID, _ decimal.Decimal, seats []domain.ShowtimeSeatOrder) (uuid.UUID, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, showtimeID, gotShowtime)
			assert.Equal(t, "F12", seats[0].SeatNumber)
			return bookingID, nil
		},
		getFn: func(_ context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
			return detailFor(id, userID), nil
		},
	}
	inv := &mockInvalidator{}
	pub := &mockPublisher{}

	svc := New(discardLogger(), repo, inv, pub, &mockLimiter{allowed: true})

	got, err := svc.Create(context.Background(), CreateInput{
		UserID:      userID,
		ShowtimeID:  &showtimeID,
		TotalAmount: decimal.RequireFromString("15.99"),
		ShowtimeSeats: []domain.ShowtimeSeatOrder{
			{SeatNumber: "F12", Price: decimal.RequireFromString("15.99")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, bookingID, got.ID)

	// Showtime availability is derived, nothing to invalidate or publish.
	assert.Empty(t, inv.calls)
	assert.Empty(t, pub.calls)
}

func TestCreate_Validation(t *testing.T) {
	userID := uuid.New()
	eventID := uuid.New()
	showtimeID := uuid.New()

	seat := domain.EventSeatOrder{SeatID: uuid.New(), Price: decimal.RequireFromString("50")}

	tests := []struct {
		name string
		in   CreateInput
	}{
		{
			name: "neither target",
			in: CreateInput{
				UserID:      userID,
				TotalAmount: decimal.RequireFromString("50"),
				EventSeats:  []domain.EventSeatOrder{seat},
			},
		},
		{
			name: "both targets",
			in: CreateInput{
				UserID:      userID,
				EventID:     &eventID,
				ShowtimeID:  &showtimeID,
				TotalAmount: decimal.RequireFromString("50"),
				EventSeats:  []domain.EventSeatOrder{seat},
			},
		},
		{
			name: "zero total",
			in: CreateInput{
				UserID:     userID,
				EventID:    &eventID,
				EventSeats: []domain.EventSeatOrder{seat},
			},
		},
		{
			name: "negative total",
			in: CreateInput{
				UserID:      userID,
				EventID:     &eventID,
				TotalAmount: decimal.RequireFromString("-1"),
				EventSeats:  []domain.EventSeatOrder{seat},
			},
		},
		{
			name: "no event seats",
			in: CreateInput{
				UserID:      userID,
				EventID:     &eventID,
				TotalAmount: decimal.RequireFromString("50"),
			},
		},
		{
			name: "no showtime seats",
			in: CreateInput{
				UserID:      userID,
				ShowtimeID:  &showtimeID,
				TotalAmount: decimal.RequireFromString("50"),
			},
		},
		{
			name: "missing seat id",
			in: CreateInput{
				UserID:      userID,
				EventID:     &eventID,
				TotalAmount: decimal.RequireFromString("50"),
				EventSeats:  []domain.EventSeatOrder{{Price: decimal.RequireFromString("50")}},
			},
		},
		{
			name: "empty seat number",
			in: CreateInput{
				UserID:      userID,
				ShowtimeID:  &showtimeID,
				TotalAmount: decimal.RequireFromString("50"),
				ShowtimeSeats: []domain.ShowtimeSeatOrder{
					{SeatNumber: "", Price: decimal.RequireFromString("50")},
				},
			},
		},
		{
			name: "negative seat price",
			in: CreateInput{
				UserID:      userID,
				EventID:     &eventID,
				TotalAmount: decimal.RequireFromString("50"),
				EventSeats: []domain.EventSeatOrder{
					{SeatID: uuid.New(), Price: decimal.RequireFromString("-5")},
				},
			},
		},
	}

	svc := New(discardLogger(), &mockRepo{}, nil, nil, nil)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestCreate_EventErrorMapping(t *testing.T) {
	eventID := uuid.New()

	tests := []struct {
		name    string
		repoErr error
		want    error
	}{
		{"missing event", repository.ErrNotFound, ErrEventNotFound},
		{"seat race lost", repository.ErrSeatTaken, ErrSeatConflict},
		{"seat in other venue", repository.ErrSeatWrongVenue, ErrSeatWrongVenue},
		{"unknown seat", repository.ErrForeignKey, ErrSeatNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := &mockInvalidator{}
			repo := &mockRepo{
				createEventFn: func(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal, []domain.EventSeatOrder) (uuid.UUID, error) {
					return uuid.Nil, tc.repoErr
				},
			}

			svc := New(discardLogger(), repo, inv, &mockPublisher{}, nil)

			_, err := svc.Create(context.Background(), CreateInput{
				UserID:      uuid.New(),
				EventID:     &eventID,
				TotalAmount: decimal.RequireFromString("50"),
				EventSeats: []domain.EventSeatOrder{
					{SeatID: uuid.New(), Price: decimal.RequireFromString("50")},
				},
			})
			assert.ErrorIs(t, err, tc.want)

			// Failed bookings must not touch the cache.
			assert.Empty(t, inv.calls)
		})
	}
}

func TestCreate_ShowtimeNotFound(t *testing.T) {
	showtimeID := uuid.New()

	repo := &mockRepo{
		createShowtimeFn: func(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal, []domain.ShowtimeSeatOrder) (uuid.UUID, error) {
			return uuid.Nil, repository.ErrNotFound
		},
	}

	svc := New(discardLogger(), repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:      uuid.New(),
		ShowtimeID:  &showtimeID,
		TotalAmount: decimal.RequireFromString("15.99"),
		ShowtimeSeats: []domain.ShowtimeSeatOrder{
			{SeatNumber: "A1", Price: decimal.RequireFromString("15.99")},
		},
	})
	assert.ErrorIs(t, err, ErrShowtimeNotFound)
}

func TestCreate_RateLimited(t *testing.T) {
	eventID := uuid.New()

	svc := New(discardLogger(), &mockRepo{}, nil, nil, &mockLimiter{
		allowed:    false,
		retryAfter: 2 * time.Second,
	})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:      uuid.New(),
		EventID:     &eventID,
		TotalAmount: decimal.RequireFromString("50"),
		EventSeats: []domain.EventSeatOrder{
			{SeatID: uuid.New(), Price: decimal.RequireFromString("50")},
		},
	})

	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 2*time.Second, rle.RetryAfter)
}

func TestCreate_LimiterFailureIsOpen(t *testing.T) {
	userID := uuid.New()
	eventID := uuid.New()
	bookingID := uuid.New()

	repo := &mockRepo{
		createEventFn: func(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal, []domain.EventSeatOrder) (uuid.UUID, error) {
			return bookingID, nil
		},
		getFn: func(_ context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
			return detailFor(id, userID), nil
		},
	}

	svc := New(discardLogger(), repo, nil, nil, &mockLimiter{err: context.DeadlineExceeded})

	got, err := svc.Create(context.Background(), CreateInput{
		UserID:      userID,
		EventID:     &eventID,
		TotalAmount: decimal.RequireFromString("50"),
		EventSeats: []domain.EventSeatOrder{
			{SeatID: uuid.New(), Price: decimal.RequireFromString("50")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, bookingID, got.ID)
}

func TestCreate_BestEffortAfterCommit(t *testing.T) {
	userID := uuid.New()
	eventID := uuid.New()
	bookingID := uuid.New()

	repo := &mockRepo{
		createEventFn: func(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal, []domain.EventSeatOrder) (uuid.UUID, error) {
			return bookingID, nil
		},
		getFn: func(_ context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
			return detailFor(id, userID), nil
		},
	}
	inv := &mockInvalidator{err: context.DeadlineExceeded}
	pub := &mockPublisher{err: context.DeadlineExceeded}

	svc := New(discardLogger(), repo, inv, pub, nil)

	got, err := svc.Create(context.Background(), CreateInput{
		UserID:      userID,
		EventID:     &eventID,
		TotalAmount: decimal.RequireFromString("50"),
		EventSeats: []domain.EventSeatOrder{
			{SeatID: uuid.New(), Price: decimal.RequireFromString("50")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, bookingID, got.ID)
	assert.Len(t, inv.calls, 1)
	assert.Len(t, pub.calls, 1)
}

func TestGet_Ownership(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	bookingID := uuid.New()

	repo := &mockRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
			if id != bookingID {
				return nil, repository.ErrNotFound
			}
			return detailFor(id, owner), nil
		},
	}

	svc := New(discardLogger(), repo, nil, nil, nil)

	got, err := svc.Get(context.Background(), owner, bookingID)
	require.NoError(t, err)
	assert.Equal(t, bookingID, got.ID)

	_, err = svc.Get(context.Background(), stranger, bookingID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(context.Background(), owner, uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListForUser(t *testing.T) {
	userID := uuid.New()

	repo := &mockRepo{
		listFn: func(_ context.Context, gotUser uuid.UUID) ([]domain.BookingWithDetails, error) {
			assert.Equal(t, userID, gotUser)
			return []domain.BookingWithDetails{
				*detailFor(uuid.New(), userID),
				*detailFor(uuid.New(), userID),
			}, nil
		},
	}

	svc := New(discardLogger(), repo, nil, nil, nil)

	got, err := svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
