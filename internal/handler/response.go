package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carpool/internal/repository"
	"carpool/internal/service"
)

// parseFloat parses a query value, rejecting the empty string.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidSeatCount),
		errors.Is(err, service.ErrInvalidCapacity),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidDepartureTime):
		return http.StatusBadRequest

	// Ownership errors
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	// Payment errors
	case errors.Is(err, service.ErrPaymentDeclined):
		return http.StatusPaymentRequired

	// Conflict errors
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDriverHasActiveRide),
		errors.Is(err, service.ErrRideNotBookable),
		errors.Is(err, service.ErrInsufficientCapacity),
		errors.Is(err, service.ErrDuplicateBooking),
		errors.Is(err, service.ErrAlreadyTerminal):
		return http.StatusConflict

	// Lock contention - client should retry
	case errors.Is(err, service.ErrRideBusy):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
