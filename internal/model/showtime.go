package model

import "time"

// ShowtimeKey is the logical identity of a showtime: one scheduled
// screening of a movie at a cinema on a given date and time.  Date
// and Time are opaque strings compared byte-for-byte; no timezone
// normalization is ever applied, so "18:00" and "18:00:00" are two
// different showtimes.  At most one showtime record exists per key.
type ShowtimeKey struct {
	CinemaID uint64 // cinema hosting the screening
	MovieID  string // external movie identifier (e.g. an IMDb id)
	Date     string // screening date as supplied by the client
	Time     string // screening time as supplied by the client
}

// Showtime is the registry entry for a screening.  It is the sole
// owner of seat-occupancy truth: OccupiedSeats holds the labels of
// every seat claimed by a confirmed booking, and AvailableSeats is
// kept equal to TotalSeats minus the size of that set in the same
// transaction as every occupancy change.
//
// Fields:
//  ID             – primary key (UUID).
//  CinemaID       – cinema hosting the screening.
//  MovieID        – external movie identifier.
//  Date           – screening date (opaque string).
//  Time           – screening time (opaque string).
//  PriceCents     – per-seat ticket price in cents.
//  TotalSeats     – capacity copied from the cinema at creation.
//  AvailableSeats – derived counter, TotalSeats - |OccupiedSeats|.
//  OccupiedSeats  – seat labels currently held by confirmed bookings.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Showtime struct {
	ID             string    `json:"id"`              // showtimes.id
	CinemaID       uint64    `json:"cinema_id"`       // showtimes.cinema_id
	MovieID        string    `json:"movie_id"`        // showtimes.movie_id
	Date           string    `json:"date"`            // showtimes.show_date
	Time           string    `json:"time"`            // showtimes.show_time
	PriceCents     int64     `json:"price_cents"`     // showtimes.price_cents
	TotalSeats     int       `json:"total_seats"`     // showtimes.total_seats
	AvailableSeats int       `json:"available_seats"` // showtimes.available_seats
	OccupiedSeats  []string  `json:"occupied_seats"`  // showtime_seats.seat_label rows
	CreatedAt      time.Time `json:"-"`               // showtimes.created_at
	UpdatedAt      time.Time `json:"-"`               // showtimes.updated_at
}

// Key returns the logical identity of the showtime.
func (s *Showtime) Key() ShowtimeKey {
	return ShowtimeKey{CinemaID: s.CinemaID, MovieID: s.MovieID, Date: s.Date, Time: s.Time}
}
