package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	postgresrepo "github.com/stagepass/stagepass/internal/repository/postgres"
	redisrepo "github.com/stagepass/stagepass/internal/repository/redis"
	"github.com/stagepass/stagepass/internal/service"
	"github.com/stagepass/stagepass/internal/service/booking"
	"github.com/stagepass/stagepass/internal/service/catalog"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	jwtSecret string,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Public catalog
	api.GET("/venues", handleListVenues(svcs))
	api.GET("/events", handleListEvents(svcs))
	api.GET("/events/:id", handleGetEvent(svcs))
	api.GET("/events/:id/seats", handleListEventSeats(svcs))
	api.GET("/movies", handleListMovies(svcs))
	api.GET("/movies/:id", handleGetMovie(svcs))
	api.GET("/theaters", handleListTheaters(svcs))
	api.GET("/showtimes", handleListShowtimes(svcs))

	// Authenticated
	auth := api.Group("", JWTAuth(jwtSecret))
	auth.GET("/auth/user", handleGetAuthUser(svcs))
	auth.POST("/bookings", handleCreateBooking(svcs, idem))
	auth.GET("/bookings", handleListBookings(svcs))
	auth.GET("/bookings/:id", handleGetBooking(svcs))
	auth.GET("/user/stats", handleGetUserStats(svcs))

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List venues
// @Success  200  {array}  domain.Venue
// @Router   /api/venues [get]
func handleListVenues(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		venues, err := svcs.Catalog.ListVenues(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, venues, "public, max-age=60", true)
	}
}

// @Summary  List events
// @Param    category  query  string  false  "event category"
// @Param    city      query  string  false  "city or 'City, ST'"
// @Param    search    query  string  false  "free-text search"
// @Success  200  {array}  domain.EventWithVenue
// @Router   /api/events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := svcs.Catalog.ListEvents(c.Request.Context(), postgresrepo.EventFilter{
			Category: c.Query("category"),
			City:     c.Query("city"),
			Search:   c.Query("search"),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, events, "public, max-age=15", true)
	}
}

// @Summary  Get event
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200  {object}  domain.EventWithVenue
// @Failure  404  {object}  ErrorResponse
// @Router   /api/events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Catalog.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=60", true)
	}
}

// @Summary  List available seats for an event
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200  {array}  domain.Seat
// @Router   /api/events/{id}/seats [get]
func handleListEventSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		seats, err := svcs.Catalog.AvailableSeats(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, seats, "public, max-age=15", true)
	}
}

// @Summary  List movies
// @Success  200  {array}  domain.Movie
// @Router   /api/movies [get]
func handleListMovies(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		movies, err := svcs.Catalog.ListMovies(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, movies, "public, max-age=60", true)
	}
}

// @Summary  Get movie with upcoming showtimes
// @Param    id  path  string  true  "Movie ID (uuid)"
// @Success  200  {object}  domain.MovieWithShowtimes
// @Failure  404  {object}  ErrorResponse
// @Router   /api/movies/{id} [get]
func handleGetMovie(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		movieID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		m, err := svcs.Catalog.GetMovie(c.Request.Context(), movieID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, m, "public, max-age=60", true)
	}
}

// @Summary  List theaters
// @Param    city  query  string  false  "city filter"
// @Success  200  {array}  domain.Theater
// @Router   /api/theaters [get]
func handleListTheaters(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		theaters, err := svcs.Catalog.ListTheaters(c.Request.Context(), c.Query("city"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, theaters, "public, max-age=60", true)
	}
}

// @Summary  List upcoming showtimes
// @Param    movieId    query  string  false  "Movie ID (uuid)"
// @Param    theaterId  query  string  false  "Theater ID (uuid)"
// @Param    date       query  string  false  "day filter (YYYY-MM-DD)"
// @Success  200  {array}  domain.ShowtimeWithMovieTheater
// @Router   /api/showtimes [get]
func handleListShowtimes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f postgresrepo.ShowtimeFilter

		if s := c.Query("movieId"); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				badRequest(c, "invalid movieId")
				return
			}
			f.MovieID = &id
		}

		if s := c.Query("theaterId"); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				badRequest(c, "invalid theaterId")
				return
			}
			f.TheaterID = &id
		}

		if s := c.Query("date"); s != "" {
			d, err := time.Parse("2006-01-02", s)
			if err != nil {
				badRequest(c, "invalid date (YYYY-MM-DD)")
				return
			}
			f.Date = &d
		}

		showtimes, err := svcs.Catalog.ListShowtimes(c.Request.Context(), f)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, showtimes, "public, max-age=15", true)
	}
}

// @Summary  Get the authenticated user
// @Security BearerAuth
// @Success  200  {object}  domain.User
// @Failure  401  {object}  ErrorResponse
// @Router   /api/auth/user [get]
func handleGetAuthUser(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := authProfile(c)
		if !ok {
			unauthorized(c)
			return
		}
		u, err := svcs.User.EnsureUser(c.Request.Context(), profile)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// @Summary  Create booking (idempotent)
// @Security BearerAuth
// @Param    req  body  createBookingRequest  true  "payload"
// @Header   201  {string}  Idempotency-Key  "echo"
// @Success  201  {object}  domain.BookingWithDetails
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "seat already booked / idem in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /api/bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := authProfile(c)
		if !ok {
			unauthorized(c)
			return
		}

		var req createBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(profile.ID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusCreated,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusCreated,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		detail, err := svcs.Booking.Create(c.Request.Context(), req.toCreateInput(profile.ID))
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(detail)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, detail)
	}
}

// @Summary  List the user's bookings
// @Security BearerAuth
// @Success  200  {array}  domain.BookingWithDetails
// @Router   /api/bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := authProfile(c)
		if !ok {
			unauthorized(c)
			return
		}
		bookings, err := svcs.Booking.ListForUser(c.Request.Context(), profile.ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bookings)
	}
}

// @Summary  Get one booking
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.BookingWithDetails
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := authProfile(c)
		if !ok {
			unauthorized(c)
			return
		}
		bookingID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		detail, err := svcs.Booking.Get(c.Request.Context(), profile.ID, bookingID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

// @Summary  Get the user's booking stats
// @Security BearerAuth
// @Success  200  {object}  domain.UserStats
// @Router   /api/user/stats [get]
func handleGetUserStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := authProfile(c)
		if !ok {
			unauthorized(c)
			return
		}
		stats, err := svcs.Stats.StatsFor(c.Request.Context(), profile.ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rle *booking.RateLimitError
	if errors.As(err, &rle) {
		retry := int(rle.RetryAfter / time.Second)
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
		return
	}

	switch {
	// catalog service
	case errors.Is(err, catalog.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, catalog.ErrMovieNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "movie not found"})
	case errors.Is(err, catalog.ErrVenueNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "venue not found"})
	// booking service
	case errors.Is(err, booking.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, booking.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, booking.ErrShowtimeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "showtime not found"})
	case errors.Is(err, booking.ErrSeatNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "seat not found"})
	case errors.Is(err, booking.ErrSeatWrongVenue):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "seat does not belong to the event venue"})
	case errors.Is(err, booking.ErrSeatConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seat already booked"})
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, booking.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
