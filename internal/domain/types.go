package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventCategory string

const (
	CategoryConcert  EventCategory = "concert"
	CategorySports   EventCategory = "sports"
	CategoryTheater  EventCategory = "theater"
	CategoryComedy   EventCategory = "comedy"
	CategoryFestival EventCategory = "festival"
)

type SeatType string

const (
	SeatGeneral SeatType = "general"
	SeatPremium SeatType = "premium"
	SeatVIP     SeatType = "vip"
)

type MovieRating string

const (
	RatingG    MovieRating = "G"
	RatingPG   MovieRating = "PG"
	RatingPG13 MovieRating = "PG-13"
	RatingR    MovieRating = "R"
	RatingNC17 MovieRating = "NC-17"
)

// BookingStatus is a single-state enum: bookings are written as confirmed
// and never transition. Kept as a named type so a cancellation flow can be
// added without touching callers.
type BookingStatus string

const BookingConfirmed BookingStatus = "confirmed"

type Venue struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	City     string    `json:"city"`
	State    string    `json:"state"`
	Capacity int       `json:"capacity"`
	ImageURL *string   `json:"imageUrl"`
	Created  time.Time `json:"createdAt"`
}

type Event struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Category    EventCategory   `json:"category"`
	VenueID     uuid.UUID       `json:"venueId"`
	EventDate   time.Time       `json:"eventDate"`
	Duration    *int            `json:"duration"`
	ImageURL    *string         `json:"imageUrl"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	IsActive    bool            `json:"isActive"`
	Created     time.Time       `json:"createdAt"`
}

type Seat struct {
	ID              uuid.UUID       `json:"id"`
	VenueID         uuid.UUID       `json:"venueId"`
	SeatNumber      string          `json:"seatNumber"`
	Row             string          `json:"row"`
	Section         string          `json:"section"`
	SeatType        SeatType        `json:"seatType"`
	PriceMultiplier decimal.Decimal `json:"priceMultiplier"`
}

type Movie struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	Rating      MovieRating      `json:"rating"`
	Duration    int              `json:"duration"`
	Genre       string           `json:"genre"`
	Director    *string          `json:"director"`
	Cast        *string          `json:"cast"`
	ImageURL    *string          `json:"imageUrl"`
	TrailerURL  *string          `json:"trailerUrl"`
	ReleaseDate time.Time        `json:"releaseDate"`
	IMDBRating  *decimal.Decimal `json:"imdbRating"`
	IsActive    bool             `json:"isActive"`
	Created     time.Time        `json:"createdAt"`
}

type Theater struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	TotalSeats int       `json:"totalSeats"`
	Amenities  *string   `json:"amenities"`
	Created    time.Time `json:"createdAt"`
}

// Showtime.AvailableSeats is derived at query time from the theater capacity
// minus booked movie seats. It is never stored, so it cannot drift.
type Showtime struct {
	ID             uuid.UUID       `json:"id"`
	MovieID        uuid.UUID       `json:"movieId"`
	TheaterID      uuid.UUID       `json:"theaterId"`
	ShowDate       time.Time       `json:"showDate"`
	Price          decimal.Decimal `json:"price"`
	AvailableSeats int             `json:"availableSeats"`
	Created        time.Time       `json:"createdAt"`
}

type User struct {
	ID              uuid.UUID `json:"id"`
	Email           *string   `json:"email"`
	FirstName       *string   `json:"firstName"`
	LastName        *string   `json:"lastName"`
	ProfileImageURL *string   `json:"profileImageUrl"`
	Location        string    `json:"location"`
	Created         time.Time `json:"createdAt"`
	Updated         time.Time `json:"updatedAt"`
}

type BookingKind string

const (
	BookingEvent    BookingKind = "event"
	BookingShowtime BookingKind = "showtime"
)

// Booking references exactly one of EventID or ShowtimeID. The request layer
// rejects anything else, so Kind is always well defined.
type Booking struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	EventID     *uuid.UUID      `json:"eventId"`
	ShowtimeID  *uuid.UUID      `json:"showtimeId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      BookingStatus   `json:"status"`
	BookingDate time.Time       `json:"bookingDate"`
	Created     time.Time       `json:"createdAt"`
}

func (b Booking) Kind() BookingKind {
	if b.EventID != nil {
		return BookingEvent
	}
	return BookingShowtime
}

type BookingSeat struct {
	ID        uuid.UUID       `json:"id"`
	BookingID uuid.UUID       `json:"bookingId"`
	SeatID    uuid.UUID       `json:"seatId"`
	Price     decimal.Decimal `json:"price"`
}

// MovieBookingSeat carries a free-text seat number, not a Seat reference.
// There is no cross-booking uniqueness on the number.
type MovieBookingSeat struct {
	ID         uuid.UUID       `json:"id"`
	BookingID  uuid.UUID       `json:"bookingId"`
	SeatNumber string          `json:"seatNumber"`
	Price      decimal.Decimal `json:"price"`
}

// EventSeatOrder is one requested seat line on an event booking.
type EventSeatOrder struct {
	SeatID uuid.UUID
	Price  decimal.Decimal
}

// ShowtimeSeatOrder is one requested seat line on a showtime booking.
type ShowtimeSeatOrder struct {
	SeatNumber string
	Price      decimal.Decimal
}

type UserStats struct {
	EventsAttended int    `json:"eventsAttended"`
	TotalSpent     string `json:"totalSpent"`
	RewardPoints   int    `json:"rewardPoints"`
}

// --- Composite read models ---

type EventWithVenue struct {
	Event
	Venue Venue `json:"venue"`
}

type ShowtimeWithTheater struct {
	Showtime
	Theater Theater `json:"theater"`
}

type ShowtimeWithMovieTheater struct {
	Showtime
	Movie   Movie   `json:"movie"`
	Theater Theater `json:"theater"`
}

type MovieWithShowtimes struct {
	Movie
	Showtimes []ShowtimeWithTheater `json:"showtimes"`
}

type BookingSeatWithSeat struct {
	BookingSeat
	Seat Seat `json:"seat"`
}

type BookingWithDetails struct {
	Booking
	Event             *EventWithVenue           `json:"event,omitempty"`
	Showtime          *ShowtimeWithMovieTheater `json:"showtime,omitempty"`
	BookingSeats      []BookingSeatWithSeat     `json:"bookingSeats,omitempty"`
	MovieBookingSeats []MovieBookingSeat        `json:"movieBookingSeats,omitempty"`
}
