package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// CinemaBookings handles GET /v1/cinemas/:id/bookings.  It returns the
// cinema's confirmed bookings grouped by showtime in show date/time
// order, with per-group booking and seat totals.  Cancelled bookings
// never appear.  The route is registered behind RequireRole("ADMIN").
func (h *BookingHandler) CinemaBookings(c echo.Context) error {
	cinemaID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || cinemaID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cinema id"})
	}
	groups, err := h.engine.CinemaBookingGroups(c.Request().Context(), cinemaID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cinema_id": cinemaID,
		"showtimes": groups,
	})
}
