package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"medride/internal/middleware"
	"medride/internal/repository"
	"medride/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal errors are attached to the context for logging and not echoed to the client.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidAppointmentID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidRouteFigures),
		errors.Is(err, service.ErrInvalidWaitingMinutes),
		errors.Is(err, service.ErrInvalidBooking),
		errors.Is(err, service.ErrInvalidNotification):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized

	// Wrong actor
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotRider),
		errors.Is(err, service.ErrNotRideRider),
		errors.Is(err, service.ErrNotRideParty),
		errors.Is(err, service.ErrNotAppointmentParty):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrAppointmentAlreadyClaimed),
		errors.Is(err, service.ErrAcceptInProgress),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCompletionRequiresQuorum),
		errors.Is(err, service.ErrRideCancelled),
		errors.Is(err, service.ErrRideCompleted),
		errors.Is(err, service.ErrRideChanged),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrCannotCancel),
		errors.Is(err, service.ErrInvoiceNotReady),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict

	// Service unavailable
	case errors.Is(err, service.ErrQuoteUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// actorFrom returns the caller, or responds 401 when AuthMiddleware did not run.
func actorFrom(c *gin.Context) (service.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: service.ErrUnauthenticated.Error()})
		return service.Actor{}, false
	}
	return actor, true
}

// limitParam reads the optional ?limit= query value; invalid values mean the default.
func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
