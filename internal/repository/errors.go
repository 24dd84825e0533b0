package repository

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrSeatTaken      = errors.New("seat already booked for this event")
	ErrSeatWrongVenue = errors.New("seat does not belong to the event venue")
	ErrForeignKey     = errors.New("referenced row does not exist")
)
