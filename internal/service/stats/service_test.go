package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	totalsFn func(ctx context.Context, userID uuid.UUID) (int, decimal.Decimal, error)
}

func (m *mockRepo) UserTotals(ctx context.Context, userID uuid.UUID) (int, decimal.Decimal, error) {
	return m.totalsFn(ctx, userID)
}

func TestStatsFor(t *testing.T) {
	tests := []struct {
		name       string
		attended   int
		total      string
		wantSpent  string
		wantPoints int
	}{
		{
			name:       "no history",
			attended:   0,
			total:      "0",
			wantSpent:  "0",
			wantPoints: 0,
		},
		{
			name:       "points floor at boundary",
			attended:   2,
			total:      "269.97",
			wantSpent:  "269.97",
			wantPoints: 26,
		},
		{
			name:       "exact multiple of ten",
			attended:   1,
			total:      "120",
			wantSpent:  "120",
			wantPoints: 12,
		},
		{
			name:       "just under a point",
			attended:   1,
			total:      "9.99",
			wantSpent:  "9.99",
			wantPoints: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockRepo{
				totalsFn: func(context.Context, uuid.UUID) (int, decimal.Decimal, error) {
					return tc.attended, decimal.RequireFromString(tc.total), nil
				},
			}

			got, err := New(repo).StatsFor(context.Background(), uuid.New())
			require.NoError(t, err)
			assert.Equal(t, tc.attended, got.EventsAttended)
			assert.Equal(t, tc.wantSpent, got.TotalSpent)
			assert.Equal(t, tc.wantPoints, got.RewardPoints)
		})
	}
}

func TestStatsFor_RepoError(t *testing.T) {
	wantErr := errors.New("boom")

	repo := &mockRepo{
		totalsFn: func(context.Context, uuid.UUID) (int, decimal.Decimal, error) {
			return 0, decimal.Zero, wantErr
		},
	}

	_, err := New(repo).StatsFor(context.Background(), uuid.New())
	assert.ErrorIs(t, err, wantErr)
}
