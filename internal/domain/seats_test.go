package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortSeatsNumericAware(t *testing.T) {
	seats := []Seat{
		{Row: "B", SeatNumber: "1"},
		{Row: "A", SeatNumber: "10"},
		{Row: "A", SeatNumber: "2"},
		{Row: "A", SeatNumber: "1"},
		{Row: "B", SeatNumber: "3"},
	}

	SortSeats(seats)

	var got []string
	for _, s := range seats {
		got = append(got, s.Row+s.SeatNumber)
	}
	assert.Equal(t, []string{"A1", "A2", "A10", "B1", "B3"}, got)
}

func TestSortSeatsNonNumericFallback(t *testing.T) {
	seats := []Seat{
		{Row: "A", SeatNumber: "10B"},
		{Row: "A", SeatNumber: "10A"},
	}

	SortSeats(seats)

	assert.Equal(t, "10A", seats[0].SeatNumber)
}

func TestSortSeatsIdempotent(t *testing.T) {
	seats := []Seat{
		{Row: "C", SeatNumber: "5"},
		{Row: "A", SeatNumber: "12"},
		{Row: "A", SeatNumber: "3"},
	}

	SortSeats(seats)
	first := make([]Seat, len(seats))
	copy(first, seats)

	SortSeats(seats)
	assert.Equal(t, first, seats)
}
