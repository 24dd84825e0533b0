package service

import (
	"log/slog"

	postgres "github.com/stagepass/stagepass/internal/repository/postgres"
	redis "github.com/stagepass/stagepass/internal/repository/redis"
	"github.com/stagepass/stagepass/internal/service/booking"
	"github.com/stagepass/stagepass/internal/service/catalog"
	"github.com/stagepass/stagepass/internal/service/stats"
	"github.com/stagepass/stagepass/internal/service/user"
)

type Services struct {
	Catalog *catalog.Service
	Booking *booking.Service
	Stats   *stats.Service
	User    *user.Service
}

type Config struct {
	Catalog catalog.Config
}

func NewServices(
	log *slog.Logger,
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.BookingsPubSub,
	limiter *redis.SlidingWindowLimiter,
	cfg Config,
) *Services {
	return &Services{
		Catalog: catalog.New(store, cache, cfg.Catalog),
		Booking: booking.New(log, store.Bookings(), cache, pubsub, limiter),
		Stats:   stats.New(store.Stats()),
		User:    user.New(store.Users()),
	}
}
