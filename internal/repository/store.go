package repository

import (
	"context"

	"github.com/cinetix/cinema-booking/internal/model"
)

// Store is the storage contract consumed by the reservation service.
// Implementations must guarantee that ReserveSeats and CancelBooking
// are atomic with respect to each other per showtime key: no two
// concurrent reservations for overlapping seats may both succeed, and
// a reservation may never observe a cancellation's half-applied
// update.  Operations on different showtimes must not contend.
//
// Two implementations exist: MySQLStore (durable, serialized through
// row locks and a uniqueness constraint on the showtime key) and
// MemoryStore (in-process, used in development and tests).
type Store interface {
	// CinemaByID returns the cinema or ErrCinemaNotFound.
	CinemaByID(ctx context.Context, id uint64) (*model.Cinema, error)

	// ResolveShowtime returns the showtime for the key, creating it
	// from seed when absent.  Creation is idempotent under races: when
	// two callers race on a missing key, exactly one record is created
	// and both receive it.
	ResolveShowtime(ctx context.Context, key model.ShowtimeKey, seed *model.Showtime) (*model.Showtime, error)

	// ShowtimeByKey returns the showtime or ErrShowtimeNotFound.  It
	// never provisions.
	ShowtimeByKey(ctx context.Context, key model.ShowtimeKey) (*model.Showtime, error)

	// ReserveSeats atomically claims b.Seats against the showtime
	// identified by key and appends b to the ledger as confirmed.  The
	// occupancy set is re-read under lock at commit time.  When any
	// requested seat is occupied it returns *SeatConflictError naming
	// the overlapping labels and writes nothing.  On success it fills
	// b.TotalPriceCents from the locked showtime's price and b's
	// timestamps from the stored row.
	ReserveSeats(ctx context.Context, key model.ShowtimeKey, b *model.Booking) error

	// CancelBooking marks the booking cancelled and releases exactly
	// the seats it claimed back to its showtime in one atomic step.
	// Returns ErrBookingNotFound or ErrBookingCancelled as applicable.
	// A missing showtime record does not fail the cancellation; the
	// seat-release step is skipped and the ledger still flips.
	CancelBooking(ctx context.Context, bookingID string) (*model.Booking, error)

	// OccupiedSeats returns the occupancy set for the key, or an empty
	// slice when no showtime record exists.  Pure read.
	OccupiedSeats(ctx context.Context, key model.ShowtimeKey) ([]string, error)

	// BookingByID returns the booking or ErrBookingNotFound.
	BookingByID(ctx context.Context, id string) (*model.Booking, error)

	// BookingsByUser returns the user's bookings, newest first.
	BookingsByUser(ctx context.Context, userID string) ([]*model.Booking, error)

	// ActiveBookingsByCinema returns all confirmed bookings for a
	// cinema ordered by show date then show time.
	ActiveBookingsByCinema(ctx context.Context, cinemaID uint64) ([]*model.Booking, error)
}
