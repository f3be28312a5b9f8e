package model

import "time"

// Booking statuses.  A booking is created as confirmed and may
// transition to cancelled exactly once; there is no way back.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking records one reservation transaction in the ledger.  The
// cinema name, movie title and seat labels are denormalized snapshots
// taken at booking time on purpose: historical bookings must remain
// stable even if the cinema or showtime records change later.  Do not
// replace them with live joins.
//
// Fields:
//  ID              – primary key (UUID).
//  UserID          – caller identity that owns the booking.
//  CinemaID        – cinema the booking was made against.
//  CinemaName      – cinema display name at booking time.
//  MovieID         – external movie identifier.
//  MovieTitle      – movie title at booking time.
//  Date            – screening date (opaque string).
//  Time            – screening time (opaque string).
//  Seats           – exact seat labels reserved by this booking.
//  TotalPriceCents – total paid, price-per-seat times seat count.
//  Status          – confirmed or cancelled.
//  CreatedAt       – booking timestamp.
//  UpdatedAt       – last status change.
type Booking struct {
	ID              string    `json:"id"`                // bookings.id
	UserID          string    `json:"user_id"`           // bookings.user_id
	CinemaID        uint64    `json:"cinema_id"`         // bookings.cinema_id
	CinemaName      string    `json:"cinema_name"`       // bookings.cinema_name
	MovieID         string    `json:"movie_id"`          // bookings.movie_id
	MovieTitle      string    `json:"movie_title"`       // bookings.movie_title
	Date            string    `json:"show_date"`         // bookings.show_date
	Time            string    `json:"show_time"`         // bookings.show_time
	Seats           []string  `json:"seats"`             // bookings.seats (JSON snapshot)
	TotalPriceCents int64     `json:"total_price_cents"` // bookings.total_price_cents
	Status          string    `json:"status"`            // bookings.status
	CreatedAt       time.Time `json:"booking_date"`      // bookings.created_at
	UpdatedAt       time.Time `json:"-"`                 // bookings.updated_at
}

// ShowtimeKey returns the key of the showtime this booking was made
// against.  Used on cancellation to locate the occupancy set.
func (b *Booking) ShowtimeKey() ShowtimeKey {
	return ShowtimeKey{CinemaID: b.CinemaID, MovieID: b.MovieID, Date: b.Date, Time: b.Time}
}

// CinemaBookingGroup is a reporting aggregate: all active bookings for
// one (movie, date, time) tuple at a cinema, with per-group totals.
type CinemaBookingGroup struct {
	MovieID       string     `json:"movie_id"`
	MovieTitle    string     `json:"movie_title"`
	Date          string     `json:"show_date"`
	Time          string     `json:"show_time"`
	TotalBookings int        `json:"total_bookings"`
	TotalSeats    int        `json:"total_seats"`
	Bookings      []*Booking `json:"bookings"`
}
