package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidOrder     = errors.New("invalid booking order")
	ErrEventNotFound    = errors.New("event not found")
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrSeatNotFound     = errors.New("seat not found")
	ErrSeatWrongVenue   = errors.New("seat does not belong to the event venue")
	ErrSeatConflict     = errors.New("seat already booked")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrForbidden        = errors.New("booking belongs to another user")
)

// RateLimitError reports a rejected request together with how long the
// caller should back off.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}
