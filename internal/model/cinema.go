package model

import "time"

// Cinema represents a movie theatre venue.  The booking core only
// reads cinemas; creation and editing belong to separate admin
// tooling.  TotalSeats is the seat capacity copied onto a showtime
// the first time a booking is attempted against it.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – human-friendly name of the cinema.
//  Location   – display address of the venue.
//  Rating     – customer rating between 0 and 5.
//  TotalSeats – seating capacity of the auditorium.
//  CreatedAt  – timestamp when the cinema was created.
//  UpdatedAt  – timestamp of last update.
type Cinema struct {
	ID         uint64    `json:"id"`          // cinemas.id
	Name       string    `json:"name"`        // cinemas.name
	Location   string    `json:"location"`    // cinemas.location
	Rating     float64   `json:"rating"`      // cinemas.rating
	TotalSeats int       `json:"total_seats"` // cinemas.total_seats
	CreatedAt  time.Time `json:"-"`           // cinemas.created_at
	UpdatedAt  time.Time `json:"-"`           // cinemas.updated_at
}
