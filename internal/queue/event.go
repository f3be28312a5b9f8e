// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a reservation is successfully
// committed.  It carries enough denormalized information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type BookingConfirmedEvent struct {
	BookingID       string   `json:"booking_id"`
	UserID          string   `json:"user_id"`
	CinemaID        uint64   `json:"cinema_id"`
	CinemaName      string   `json:"cinema_name"`
	MovieID         string   `json:"movie_id"`
	MovieTitle      string   `json:"movie_title"`
	ShowDate        string   `json:"show_date"`
	ShowTime        string   `json:"show_time"`
	Seats           []string `json:"seats"`
	TotalPriceCents int64    `json:"total_price_cents"`
	ConfirmedAt     string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a booking is cancelled and
// its seats are released back to the showtime.
type BookingCancelledEvent struct {
	BookingID   string   `json:"booking_id"`
	UserID      string   `json:"user_id"`
	CinemaID    uint64   `json:"cinema_id"`
	CinemaName  string   `json:"cinema_name"`
	MovieID     string   `json:"movie_id"`
	MovieTitle  string   `json:"movie_title"`
	ShowDate    string   `json:"show_date"`
	ShowTime    string   `json:"show_time"`
	Seats       []string `json:"seats"`
	CancelledAt string   `json:"cancelled_at"`
}
