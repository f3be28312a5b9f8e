package router // router wires HTTP routes to handlers and middleware

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing
	"github.com/redis/go-redis/v9"

	"github.com/cinetix/cinema-booking/internal/config"
	"github.com/cinetix/cinema-booking/internal/handler"
	"github.com/cinetix/cinema-booking/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
// Besides the health check this covers the public seat-availability
// lookup, so guests can inspect a seat map before signing in.
func RegisterRoutes(e *echo.Echo, b *handler.BookingHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/showtimes/seats", b.OccupiedSeats)
}

// RegisterBooking registers the authenticated booking endpoints.  All
// routes in the group verify a bearer token first; rate limiting is
// applied after authentication so buckets key on the user id rather
// than the client IP.  The cinema report additionally requires the
// ADMIN role.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RateLimit(rl, rdb))

	g.POST("/bookings", b.Create)
	g.GET("/bookings/:id", b.Get)
	g.DELETE("/bookings/:id", b.Cancel)
	g.GET("/my-bookings", b.ListMine)

	admin := g.Group("/cinemas")
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.GET("/:id/bookings", b.CinemaBookings)
}
