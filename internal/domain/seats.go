package domain

import (
	"sort"
	"strconv"
	"strings"
)

// SortSeats orders seats by row ascending, then seat number ascending.
// Seat numbers are stored as text, so two digit-only numbers compare by
// value ("2" before "10"); anything else falls back to a string compare.
func SortSeats(seats []Seat) {
	sort.SliceStable(seats, func(i, j int) bool {
		if c := strings.Compare(seats[i].Row, seats[j].Row); c != 0 {
			return c < 0
		}
		return lessSeatNumber(seats[i].SeatNumber, seats[j].SeatNumber)
	})
}

func lessSeatNumber(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
