// Package service contains the seat reservation engine: the only code
// path allowed to mutate a showtime's occupancy.  It validates input
// before any state change, provisions showtimes lazily through the
// store, and delegates the atomic claim/release to the store so the
// check-then-act sequence stays inside one critical section per
// showtime.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cinetix/cinema-booking/internal/cache"
	"github.com/cinetix/cinema-booking/internal/model"
	"github.com/cinetix/cinema-booking/internal/queue"
	"github.com/cinetix/cinema-booking/internal/repository"
)

// ErrInvalidInput is returned when caller-supplied data fails shape
// validation.  Validation always runs before any state mutation is
// attempted, so an invalid request has no side effects.  Handlers
// should translate it into HTTP 400 with the wrapped detail.
var ErrInvalidInput = errors.New("invalid input")

// DefaultPriceCents is the per-seat price seeded onto a showtime
// provisioned without an explicit price.
const DefaultPriceCents int64 = 20000

// seatLabelRe accepts row letters followed by a seat number, e.g.
// "A1" or "AB12".  No canonical row/column layout is assumed beyond
// that shape; the cinema's physical seat map is not modelled here.
var seatLabelRe = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{1,3}$`)

// EventPublisher pushes booking lifecycle events to the message
// broker.  Publishing is best-effort: a broker outage must never fail
// a committed reservation.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

// ReservationService is the engine behind every booking operation.
type ReservationService struct {
	store     repository.Store
	publisher EventPublisher   // may be nil when no broker is configured
	seats     *cache.SeatCache // may be nil when no Redis is configured
}

// NewReservationService constructs the engine.  The store must be
// non-nil; the publisher and seat cache may be nil to disable events
// and caching respectively.
func NewReservationService(store repository.Store, publisher EventPublisher, seats *cache.SeatCache) *ReservationService {
	if store == nil {
		panic("nil store passed to NewReservationService")
	}
	return &ReservationService{store: store, publisher: publisher, seats: seats}
}

// ReserveRequest carries everything needed to create a booking.
// PriceCents is only consulted when the showtime does not exist yet:
// it seeds the new record.  The total charged always comes from the
// stored showtime price, never from the request.
type ReserveRequest struct {
	CinemaID   uint64
	MovieID    string
	MovieTitle string
	Date       string
	Time       string
	Seats      []string
	UserID     string
	PriceCents int64
}

// validate checks the request shape and normalizes the seat list
// (deduplicated, original order preserved).  It returns the cleaned
// seat labels or an error wrapping ErrInvalidInput.
func (r *ReserveRequest) validate() ([]string, error) {
	switch {
	case r.UserID == "":
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	case r.CinemaID == 0:
		return nil, fmt.Errorf("%w: cinema id is required", ErrInvalidInput)
	case r.MovieID == "":
		return nil, fmt.Errorf("%w: movie id is required", ErrInvalidInput)
	case r.Date == "" || r.Time == "":
		return nil, fmt.Errorf("%w: show date and time are required", ErrInvalidInput)
	}
	if len(r.Seats) == 0 {
		return nil, fmt.Errorf("%w: at least one seat is required", ErrInvalidInput)
	}
	seats := make([]string, 0, len(r.Seats))
	seen := make(map[string]struct{}, len(r.Seats))
	var malformed []string
	for _, l := range r.Seats {
		l = strings.ToUpper(strings.TrimSpace(l))
		if !seatLabelRe.MatchString(l) {
			malformed = append(malformed, l)
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		seats = append(seats, l)
	}
	if len(malformed) > 0 {
		return nil, fmt.Errorf("%w: malformed seat labels: %s", ErrInvalidInput, strings.Join(malformed, ","))
	}
	return seats, nil
}

// Reserve atomically claims the requested seats for a showtime and
// records a confirmed booking.  The showtime is provisioned on first
// use with the cinema's full capacity.  On a seat conflict the store
// returns *repository.SeatConflictError naming exactly the
// overlapping labels and no state changes; the engine passes it
// through untouched.
func (s *ReservationService) Reserve(ctx context.Context, req ReserveRequest) (*model.Booking, error) {
	seats, err := req.validate()
	if err != nil {
		return nil, err
	}
	cinema, err := s.store.CinemaByID(ctx, req.CinemaID)
	if err != nil {
		return nil, err
	}

	price := req.PriceCents
	if price <= 0 {
		price = DefaultPriceCents
	}
	key := model.ShowtimeKey{CinemaID: req.CinemaID, MovieID: req.MovieID, Date: req.Date, Time: req.Time}
	seed := &model.Showtime{PriceCents: price, TotalSeats: cinema.TotalSeats}
	if _, err := s.store.ResolveShowtime(ctx, key, seed); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		CinemaID:   cinema.ID,
		CinemaName: cinema.Name,
		MovieID:    req.MovieID,
		MovieTitle: req.MovieTitle,
		Date:       req.Date,
		Time:       req.Time,
		Seats:      seats,
	}
	if err := s.store.ReserveSeats(ctx, key, booking); err != nil {
		return nil, err
	}
	s.seats.Invalidate(ctx, key)
	s.publishConfirmed(ctx, booking)
	return booking, nil
}

// Cancel releases a booking's seats back to its showtime and marks it
// cancelled.  Cancelling twice fails with ErrBookingCancelled; a
// missing booking fails with ErrBookingNotFound.  The seat release and
// status flip happen in one atomic store operation.
func (s *ReservationService) Cancel(ctx context.Context, bookingID string) (*model.Booking, error) {
	if bookingID == "" {
		return nil, fmt.Errorf("%w: booking id is required", ErrInvalidInput)
	}
	booking, err := s.store.CancelBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.seats.Invalidate(ctx, booking.ShowtimeKey())
	s.publishCancelled(ctx, booking)
	return booking, nil
}

// OccupiedSeats returns the seats currently held by confirmed
// bookings for a showtime key.  It is a pure read: querying a
// nonexistent showtime returns an empty set and provisions nothing.
// Results are served from the seat cache when possible; reservation
// decisions never go through this path.
//
// The cache fill is advisory: a read that loads occupancy just before
// a concurrent commit may Set the pre-commit set after that commit's
// Invalidate, pinning the stale view until the cache TTL expires.
// Availability polls tolerate that window; the reserve path reads
// occupancy only under the store's showtime lock.
func (s *ReservationService) OccupiedSeats(ctx context.Context, key model.ShowtimeKey) ([]string, error) {
	if seats, ok := s.seats.Get(ctx, key); ok {
		return seats, nil
	}
	seats, err := s.store.OccupiedSeats(ctx, key)
	if err != nil {
		return nil, err
	}
	s.seats.Set(ctx, key, seats)
	return seats, nil
}

// Booking fetches one booking by id.
func (s *ReservationService) Booking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: booking id is required", ErrInvalidInput)
	}
	return s.store.BookingByID(ctx, id)
}

// UserBookings lists a user's bookings, most recent first.
func (s *ReservationService) UserBookings(ctx context.Context, userID string) ([]*model.Booking, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.BookingsByUser(ctx, userID)
}

// CinemaBookingGroups aggregates a cinema's confirmed bookings by
// (movie, date, time) with per-group booking counts and seat totals.
// Groups appear in show date/time order as returned by the store.
func (s *ReservationService) CinemaBookingGroups(ctx context.Context, cinemaID uint64) ([]*model.CinemaBookingGroup, error) {
	if cinemaID == 0 {
		return nil, fmt.Errorf("%w: cinema id is required", ErrInvalidInput)
	}
	bookings, err := s.store.ActiveBookingsByCinema(ctx, cinemaID)
	if err != nil {
		return nil, err
	}
	groups := make([]*model.CinemaBookingGroup, 0)
	index := make(map[model.ShowtimeKey]int)
	for _, b := range bookings {
		k := b.ShowtimeKey()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, &model.CinemaBookingGroup{
				MovieID:    b.MovieID,
				MovieTitle: b.MovieTitle,
				Date:       b.Date,
				Time:       b.Time,
				Bookings:   make([]*model.Booking, 0, 4),
			})
		}
		g := groups[i]
		g.TotalBookings++
		g.TotalSeats += len(b.Seats)
		g.Bookings = append(g.Bookings, b)
	}
	return groups, nil
}

func (s *ReservationService) publishConfirmed(ctx context.Context, b *model.Booking) {
	if s.publisher == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:       b.ID,
		UserID:          b.UserID,
		CinemaID:        b.CinemaID,
		CinemaName:      b.CinemaName,
		MovieID:         b.MovieID,
		MovieTitle:      b.MovieTitle,
		ShowDate:        b.Date,
		ShowTime:        b.Time,
		Seats:           b.Seats,
		TotalPriceCents: b.TotalPriceCents,
		ConfirmedAt:     b.CreatedAt.Format(timeLayout),
	}
	if err := s.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
		log.Printf("reservation: publish booking.confirmed failed: %v", err)
	}
}

func (s *ReservationService) publishCancelled(ctx context.Context, b *model.Booking) {
	if s.publisher == nil {
		return
	}
	ev := queue.BookingCancelledEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		CinemaID:    b.CinemaID,
		CinemaName:  b.CinemaName,
		MovieID:     b.MovieID,
		MovieTitle:  b.MovieTitle,
		ShowDate:    b.Date,
		ShowTime:    b.Time,
		Seats:       b.Seats,
		CancelledAt: b.UpdatedAt.Format(timeLayout),
	}
	if err := s.publisher.PublishBookingCancelled(ctx, ev); err != nil {
		log.Printf("reservation: publish booking.cancelled failed: %v", err)
	}
}

// timeLayout formats event timestamps as RFC3339 in UTC.
const timeLayout = "2006-01-02T15:04:05Z07:00"
