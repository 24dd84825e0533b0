package stats

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stagepass/stagepass/internal/domain"
)

// Repository aggregates a user's confirmed booking history.
type Repository interface {
	UserTotals(ctx context.Context, userID uuid.UUID) (eventsAttended int, totalSpent decimal.Decimal, err error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// rewardDivisor converts dollars spent into points: one point per full
// ten dollars.
var rewardDivisor = decimal.NewFromInt(10)

// StatsFor computes the user's profile stats. A user with no bookings
// gets all zeroes rather than an error.
func (s *Service) StatsFor(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error) {
	const op = "service.stats.StatsFor"

	attended, total, err := s.repo.UserTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	points := total.Div(rewardDivisor).Floor().IntPart()

	return &domain.UserStats{
		EventsAttended: attended,
		TotalSpent:     total.String(),
		RewardPoints:   int(points),
	}, nil
}
