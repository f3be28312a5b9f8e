package handler // handler defines the HTTP layer over the reservation service

import (
	"errors"   // sentinel comparisons when mapping service errors
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // echo request context and JSON helpers

	"github.com/cinetix/cinema-booking/internal/repository"
	"github.com/cinetix/cinema-booking/internal/service"
)

// getUserID extracts the authenticated user's id from the echo
// context.  JWTAuth stores it as a string; anything else means the
// request skipped authentication.
func getUserID(c echo.Context) (string, error) {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v, nil
	}
	return "", errors.New("missing user_id in context")
}

// writeServiceError translates service and repository errors into HTTP
// responses.  The mapping is the single source of truth for status
// codes:
//
//	ErrInvalidInput            -> 400 with the validation detail
//	not-found sentinels        -> 404
//	SeatConflictError          -> 409 with the conflicting labels
//	ErrBookingCancelled        -> 409
//	ErrBusy                    -> 503 with Retry-After
//	anything else              -> 500 with a generic message
//
// Internal error details never reach the client; they surface through
// logs instead.
func writeServiceError(c echo.Context, err error) error {
	if conflict, ok := repository.AsSeatConflict(err); ok {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "seats already booked",
			"conflicts": conflict.Conflicts,
		})
	}
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrCinemaNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cinema not found"})
	case errors.Is(err, repository.ErrShowtimeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrBookingCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
	case errors.Is(err, repository.ErrBusy):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "try again shortly"})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
