package redis

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "stagepass:v1"

func KeyEventSummary(eventID uuid.UUID) string {
	return fmt.Sprintf("%s:event:%s:summary", ns, eventID)
}

func KeyEventSeats(eventID uuid.UUID) string {
	return fmt.Sprintf("%s:event:%s:seats", ns, eventID)
}

func KeyMovieSummary(movieID uuid.UUID) string {
	return fmt.Sprintf("%s:movie:%s:summary", ns, movieID)
}

func KeyIdemBooking(userID uuid.UUID, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%s:%s", ns, userID, idemKey)
}

func ChannelBookingsChanged() string {
	return ns + ":bookings:changed"
}
