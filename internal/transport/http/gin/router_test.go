package httpgin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
	"github.com/stagepass/stagepass/internal/service"
	"github.com/stagepass/stagepass/internal/service/booking"
	"github.com/stagepass/stagepass/internal/service/stats"
	"github.com/stagepass/stagepass/internal/service/user"
)

const testSecret = "test-secret"

type mockBookingRepo struct {
	createEventFn    func(ctx context.Context, userID, eventID uuid.UUID, total decimal.Decimal, seats []domain.EventSeatOrder) (uuid.UUID, error)
	createShowtimeFn func(ctx context.Context, userID, showtimeID uuid.UUID, total decimal.Decimal, seats []domain.ShowtimeSeatOrder) (uuid.UUID, error)
	getFn            func(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error)
	listFn           func(ctx context.Context, userID uuid.UUID) ([]domain.BookingWithDetails, error)
}

func (m *mockBookingRepo) CreateEventBooking(ctx context.Context, userID, eventID uuid.UUID, total decimal.Decimal, seats []domain.EventSeatOrder) (uuid.UUID, error) {
	return m.createEventFn(ctx, userID, eventID, total, seats)
}

func (m *mockBookingRepo) CreateShowtimeBooking(ctx context.Context, userID, showtimeID uuid.UUID, total decimal.Decimal, seats []domain.ShowtimeSeatOrder) (uuid.UUID, error) {
	return m.createShowtimeFn(ctx, userID, showtimeID, total, seats)
}

func (m *mockBookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
	return m.getFn(ctx, id)
}

func (m *mockBookingRepo) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]domain.BookingWithDetails, error) {
	return m.listFn(ctx, userID)
}

type mockStatsRepo struct {
	totalsFn func(ctx context.Context, userID uuid.UUID) (int, decimal.Decimal, error)
}

func (m *mockStatsRepo) UserTotals(ctx context.Context, userID uuid.UUID) (int, decimal.Decimal, error) {
	return m.totalsFn(ctx, userID)
}

type mockUserRepo struct {
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	upsertFn func(ctx context.Context, u *domain.User) (*domain.User, error)
}

func (m *mockUserRepo) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.getFn(ctx, id)
}

func (m *mockUserRepo) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	return m.upsertFn(ctx, u)
}

func newTestRouter(bookingRepo booking.Repository, statsRepo stats.Repository, userRepo user.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svcs := &service.Services{}
	if bookingRepo != nil {
		svcs.Booking = booking.New(logger, bookingRepo, nil, nil, nil)
	}
	if statsRepo != nil {
		svcs.Stats = stats.New(statsRepo)
	}
	if userRepo != nil {
		svcs.User = user.New(userRepo)
	}

	return NewRouter(svcs, nil, logger, testSecret)
}

func signedToken(t *testing.T, userID uuid.UUID, extra map[string]any) string {
	t.Helper()

	claims := jwt.MapClaims{"sub": userID.String()}
	for k, v := range extra {
		claims[k] = v
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doRequest(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(nil, nil, nil)

	w := doRequest(r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter(nil, nil, nil)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/user"},
		{http.MethodGet, "/api/bookings"},
		{http.MethodPost, "/api/bookings"},
		{http.MethodGet, "/api/bookings/" + uuid.NewString()},
		{http.MethodGet, "/api/user/stats"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := doRequest(r, p.method, p.path, "", "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	r := newTestRouter(nil, nil, nil)

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(),
	}).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	nonUUIDSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong signing key", otherSecret},
		{"non-uuid subject", nonUUIDSubject},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, http.MethodGet, "/api/user/stats", tc.token, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestCreateBooking_Event(t *testing.T) {
	userID := uuid.New()
	eventID := uuid.New()
	bookingID := uuid.New()
	seatID := uuid.New()

	repo := &mockBookingRepo{
		createEventFn: func(_ context.Context, gotUser, gotEvent uuid.UUID, total decimal.Decimal, seats []domain.EventSeatOrder) (uuid.UUID, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, eventID, gotEvent)
			assert.True(t, total.Equal(decimal.RequireFromString("269.97")))
			require.Len(t, seats, 1)
			assert.Equal(t, seatID, seats[0].SeatID)
			return bookingID, nil
		},
		getFn: func(_ context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
			return &domain.BookingWithDetails{
				Booking: domain.Booking{ID: id, UserID: userID},
			}, nil
		},
	}

	r := newTestRouter(repo, nil, nil)
	token := signedToken(t, userID, nil)

	body := fmt.Sprintf(
		`{"eventId":%q,"totalAmount":269.97,"seats":[{"seatId":%q,"price":269.97}]}`,
		eventID, seatID,
	)

	w := doRequest(r, http.MethodPost, "/api/bookings", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp domain.BookingWithDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, bookingID, resp.ID)
}

func TestCreateBooking_Errors(t *testing.T) {
	userID := uuid.New()
	eventID := uuid.New()
	seatID := uuid.New()

	eventBody := fmt.Sprintf(
		`{"eventId":%q,"totalAmount":100,"seats":[{"seatId":%q,"price":100}]}`,
		eventID, seatID,
	)

	tests := []struct {
		name       string
		body       string
		repoErr    error
		wantStatus int
	}{
		{
			name:       "no seats fails binding",
			body:       fmt.Sprintf(`{"eventId":%q,"totalAmount":100,"seats":[]}`, eventID),
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "both targets",
			body: fmt.Sprintf(
				`{"eventId":%q,"showtimeId":%q,"totalAmount":100,"seats":[{"seatId":%q,"price":100}]}`,
				eventID, uuid.New(), seatID,
			),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown event",
			body:       eventBody,
			repoErr:    repository.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "seat race lost",
			body:       eventBody,
			repoErr:    repository.ErrSeatTaken,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "seat from another venue",
			body:       eventBody,
			repoErr:    repository.ErrSeatWrongVenue,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown seat",
			body:       eventBody,
			repoErr:    repository.ErrForeignKey,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockBookingRepo{
				createEventFn: func(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal, []domain.EventSeatOrder) (uuid.UUID, error) {
					return uuid.Nil, tc.repoErr
				},
			}

			r := newTestRouter(repo, nil, nil)
			token := signedToken(t, userID, nil)

			w := doRequest(r, http.MethodPost, "/api/bookings", token, tc.body)
			assert.Equal(t, tc.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestGetBooking(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	bookingID := uuid.New()

	repo := &mockBookingRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
			if id != bookingID {
				return nil, repository.ErrNotFound
			}
			return &domain.BookingWithDetails{
				Booking: domain.Booking{ID: id, UserID: owner},
			}, nil
		},
	}

	r := newTestRouter(repo, nil, nil)

	w := doRequest(r, http.MethodGet, "/api/bookings/"+bookingID.String(), signedToken(t, owner, nil), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/api/bookings/"+bookingID.String(), signedToken(t, stranger, nil), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, http.MethodGet, "/api/bookings/"+uuid.NewString(), signedToken(t, owner, nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodGet, "/api/bookings/not-a-uuid", signedToken(t, owner, nil), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListBookings(t *testing.T) {
	userID := uuid.New()

	repo := &mockBookingRepo{
		listFn: func(_ context.Context, gotUser uuid.UUID) ([]domain.BookingWithDetails, error) {
			assert.Equal(t, userID, gotUser)
			return []domain.BookingWithDetails{
				{Booking: domain.Booking{ID: uuid.New(), UserID: userID}},
			}, nil
		},
	}

	r := newTestRouter(repo, nil, nil)

	w := doRequest(r, http.MethodGet, "/api/bookings", signedToken(t, userID, nil), "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []domain.BookingWithDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestGetUserStats(t *testing.T) {
	userID := uuid.New()

	statsRepo := &mockStatsRepo{
		totalsFn: func(_ context.Context, gotUser uuid.UUID) (int, decimal.Decimal, error) {
			assert.Equal(t, userID, gotUser)
			return 3, decimal.RequireFromString("269.97"), nil
		},
	}

	r := newTestRouter(nil, statsRepo, nil)

	w := doRequest(r, http.MethodGet, "/api/user/stats", signedToken(t, userID, nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(
		t,
		`{"eventsAttended":3,"totalSpent":"269.97","rewardPoints":26}`,
		w.Body.String(),
	)
}

func TestGetAuthUser_CreatesProfileOnFirstContact(t *testing.T) {
	userID := uuid.New()

	userRepo := &mockUserRepo{
		getFn: func(context.Context, uuid.UUID) (*domain.User, error) {
			return nil, repository.ErrNotFound
		},
		upsertFn: func(_ context.Context, u *domain.User) (*domain.User, error) {
			assert.Equal(t, userID, u.ID)
			require.NotNil(t, u.Email)
			assert.Equal(t, "ada@example.com", *u.Email)
			created := *u
			created.Location = "New York, NY"
			return &created, nil
		},
	}

	r := newTestRouter(nil, nil, userRepo)
	token := signedToken(t, userID, map[string]any{"email": "ada@example.com"})

	w := doRequest(r, http.MethodGet, "/api/auth/user", token, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, userID, resp.ID)
	assert.Equal(t, "New York, NY", resp.Location)
}

func TestEventCachingHeaders(t *testing.T) {
	// writeJSONWithCache round-trip: second request with the returned ETag
	// gets a 304 and no body.
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/cached", func(c *gin.Context) {
		writeJSONWithCache(c, http.StatusOK, gin.H{"hello": "world"}, "public, max-age=60", true)
	})

	w := doRequest(r, http.MethodGet, "/cached", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/cached", nil)
	req.Header.Set("If-None-Match", etag)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusNotModified, w2.Code)
	assert.Empty(t, w2.Body.String())
}
