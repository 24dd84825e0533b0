package domain

import "github.com/shopspring/decimal"

var (
	factorVIP     = decimal.RequireFromString("1.5")
	factorPremium = decimal.RequireFromString("1.2")
	factorGeneral = decimal.NewFromInt(1)
)

// TypeFactor returns the per-type surcharge multiplier. It compounds with
// the seat's stored PriceMultiplier, which the seeding process also sets to
// a type-correlated value, so a VIP seat is typically charged
// base x 2.0 x 1.5.
func TypeFactor(t SeatType) decimal.Decimal {
	switch t {
	case SeatVIP:
		return factorVIP
	case SeatPremium:
		return factorPremium
	default:
		return factorGeneral
	}
}

// SeatPrice computes the exact charge for a seat at an event:
// basePrice x seat.PriceMultiplier x TypeFactor(seat.SeatType).
// The result is what gets persisted on the booking line item.
func SeatPrice(basePrice decimal.Decimal, seat Seat) decimal.Decimal {
	mult := seat.PriceMultiplier
	if mult.IsZero() {
		mult = decimal.NewFromInt(1)
	}
	return basePrice.Mul(mult).Mul(TypeFactor(seat.SeatType))
}

// DisplayPrice rounds to the nearest whole currency unit. Display only;
// persisted prices keep the exact decimal.
func DisplayPrice(p decimal.Decimal) decimal.Decimal {
	return p.Round(0)
}
