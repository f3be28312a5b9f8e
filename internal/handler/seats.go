package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cinetix/cinema-booking/internal/model"
)

// OccupiedSeats handles GET /v1/showtimes/seats.  It returns the seats
// currently held by confirmed bookings for the showtime identified by
// the cinema_id, movie_id, date and time query parameters.  The route
// is public so clients can render a seat map before signing in; a
// showtime nobody booked yet reports an empty occupied set and is not
// provisioned by the lookup.
func (h *BookingHandler) OccupiedSeats(c echo.Context) error {
	cinemaID, err := strconv.ParseUint(c.QueryParam("cinema_id"), 10, 64)
	if err != nil || cinemaID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cinema_id"})
	}
	movieID := c.QueryParam("movie_id")
	date := c.QueryParam("date")
	showTime := c.QueryParam("time")
	if movieID == "" || date == "" || showTime == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_id, date and time are required"})
	}
	key := model.ShowtimeKey{CinemaID: cinemaID, MovieID: movieID, Date: date, Time: showTime}
	seats, err := h.engine.OccupiedSeats(c.Request().Context(), key)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"occupied_seats": seats,
		"occupied_count": len(seats),
	})
}
