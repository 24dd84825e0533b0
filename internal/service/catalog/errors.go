package catalog

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrMovieNotFound = errors.New("movie not found")
	ErrVenueNotFound = errors.New("venue not found")
)
