package inventory

import (
	"errors"
	"net/http"
)

// Domain errors for inventory operations.
var (
	ErrNotFound = errors.New("item not found")
	ErrInvalid  = errors.New("invalid inventory item")
)

// MapHTTPStatus maps inventory domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalid) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
