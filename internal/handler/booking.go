package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/cinetix/cinema-booking/internal/model"
	"github.com/cinetix/cinema-booking/internal/service"
)

// ReservationEngine is the slice of the reservation service the HTTP
// layer depends on.  Narrowing to an interface keeps handlers testable
// with a stub engine.
type ReservationEngine interface {
	Reserve(ctx context.Context, req service.ReserveRequest) (*model.Booking, error)
	Cancel(ctx context.Context, bookingID string) (*model.Booking, error)
	OccupiedSeats(ctx context.Context, key model.ShowtimeKey) ([]string, error)
	Booking(ctx context.Context, id string) (*model.Booking, error)
	UserBookings(ctx context.Context, userID string) ([]*model.Booking, error)
	CinemaBookingGroups(ctx context.Context, cinemaID uint64) ([]*model.CinemaBookingGroup, error)
}

// BookingHandler serves every booking endpoint.  All methods assume
// JWT middleware already ran except where a route is registered as
// public.
type BookingHandler struct {
	engine   ReservationEngine
	validate *validator.Validate
}

// NewBookingHandler constructs the handler.  The engine must be
// non-nil.
func NewBookingHandler(engine ReservationEngine) *BookingHandler {
	if engine == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// createBookingRequest is the JSON body for POST /v1/bookings.  Seat
// label shape and deduplication are enforced by the service; the
// handler only checks structural presence.
type createBookingRequest struct {
	CinemaID   uint64   `json:"cinema_id" validate:"required,gt=0"`
	MovieID    string   `json:"movie_id" validate:"required"`
	MovieTitle string   `json:"movie_title"`
	ShowDate   string   `json:"show_date" validate:"required"`
	ShowTime   string   `json:"show_time" validate:"required"`
	Seats      []string `json:"seats" validate:"required,min=1,dive,required"`
	PriceCents int64    `json:"price_cents" validate:"omitempty,gt=0"`
}

// Create handles POST /v1/bookings.  It reserves the requested seats
// atomically and returns the confirmed booking with 201.  Overlapping
// seats produce 409 with the exact conflicting labels and no state
// change.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createBookingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request: " + err.Error()})
	}
	booking, err := h.engine.Reserve(c.Request().Context(), service.ReserveRequest{
		CinemaID:   body.CinemaID,
		MovieID:    body.MovieID,
		MovieTitle: body.MovieTitle,
		Date:       body.ShowDate,
		Time:       body.ShowTime,
		Seats:      body.Seats,
		UserID:     userID,
		PriceCents: body.PriceCents,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": booking})
}

// Cancel handles DELETE /v1/bookings/:id.  It releases the booking's
// seats and returns the updated record so clients can render the final
// cancelled state without a follow-up fetch.  Cancelling an already
// cancelled booking yields 409.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	// Ownership check before mutating: a customer may only cancel
	// their own bookings, admins may cancel any.
	existing, err := h.engine.Booking(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if existing.UserID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	booking, err := h.engine.Cancel(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}

// Get handles GET /v1/bookings/:id.  Customers can only read their own
// bookings; admins can read any.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	booking, err := h.engine.Booking(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if booking.UserID != userID && !isAdmin(c) {
		// Hide the booking's existence from other users.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}

// ListMine handles GET /v1/my-bookings, returning the caller's
// bookings newest first.  An empty history is an empty array, not an
// error.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.engine.UserBookings(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// isAdmin reports whether the caller's token carries the ADMIN role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "ADMIN"
}
