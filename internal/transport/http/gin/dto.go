package httpgin

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/service/booking"
)

type createBookingRequest struct {
	EventID     *uuid.UUID         `json:"eventId"`
	ShowtimeID  *uuid.UUID         `json:"showtimeId"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Seats       []bookingSeatInput `json:"seats" binding:"required,min=1,dive"`
}

type bookingSeatInput struct {
	SeatID     *uuid.UUID      `json:"seatId"`
	SeatNumber string          `json:"seatNumber"`
	Price      decimal.Decimal `json:"price"`
}

// toCreateInput splits the wire seats by booking kind. Seats missing the
// field the kind needs come through zero-valued and fail service
// validation.
func (r createBookingRequest) toCreateInput(userID uuid.UUID) booking.CreateInput {
	in := booking.CreateInput{
		UserID:      userID,
		EventID:     r.EventID,
		ShowtimeID:  r.ShowtimeID,
		TotalAmount: r.TotalAmount,
	}

	if r.EventID != nil {
		for _, s := range r.Seats {
			order := domain.EventSeatOrder{Price: s.Price}
			if s.SeatID != nil {
				order.SeatID = *s.SeatID
			}
			in.EventSeats = append(in.EventSeats, order)
		}
	}

	if r.ShowtimeID != nil {
		for _, s := range r.Seats {
			in.ShowtimeSeats = append(in.ShowtimeSeats, domain.ShowtimeSeatOrder{
				SeatNumber: s.SeatNumber,
				Price:      s.Price,
			})
		}
	}

	return in
}

type ErrorResponse struct {
	Error string `json:"error"`
}
