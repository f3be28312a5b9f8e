package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetix/cinema-booking/internal/model"
	"github.com/cinetix/cinema-booking/internal/queue"
	"github.com/cinetix/cinema-booking/internal/repository"
)

// mockStore implements repository.Store with overridable func fields.
// Unset methods fail the test when called so each test declares exactly
// the store surface it expects to hit.
type mockStore struct {
	t *testing.T

	cinemaByID      func(ctx context.Context, id uint64) (*model.Cinema, error)
	resolveShowtime func(ctx context.Context, key model.ShowtimeKey, seed *model.Showtime) (*model.Showtime, error)
	showtimeByKey   func(ctx context.Context, key model.ShowtimeKey) (*model.Showtime, error)
	reserveSeats    func(ctx context.Context, key model.ShowtimeKey, b *model.Booking) error
	cancelBooking   func(ctx context.Context, id string) (*model.Booking, error)
	occupiedSeats   func(ctx context.Context, key model.ShowtimeKey) ([]string, error)
	bookingByID     func(ctx context.Context, id string) (*model.Booking, error)
	bookingsByUser  func(ctx context.Context, userID string) ([]*model.Booking, error)
	activeByCinema  func(ctx context.Context, cinemaID uint64) ([]*model.Booking, error)
}

func (m *mockStore) CinemaByID(ctx context.Context, id uint64) (*model.Cinema, error) {
	if m.cinemaByID == nil {
		m.t.Fatal("unexpected CinemaByID call")
	}
	return m.cinemaByID(ctx, id)
}

func (m *mockStore) ResolveShowtime(ctx context.Context, key model.ShowtimeKey, seed *model.Showtime) (*model.Showtime, error) {
	if m.resolveShowtime == nil {
		m.t.Fatal("unexpected ResolveShowtime call")
	}
	return m.resolveShowtime(ctx, key, seed)
}

func (m *mockStore) ShowtimeByKey(ctx context.Context, key model.ShowtimeKey) (*model.Showtime, error) {
	if m.showtimeByKey == nil {
		m.t.Fatal("unexpected ShowtimeByKey call")
	}
	return m.showtimeByKey(ctx, key)
}

func (m *mockStore) ReserveSeats(ctx context.Context, key model.ShowtimeKey, b *model.Booking) error {
	if m.reserveSeats == nil {
		m.t.Fatal("unexpected ReserveSeats call")
	}
	return m.reserveSeats(ctx, key, b)
}

func (m *mockStore) CancelBooking(ctx context.Context, id string) (*model.Booking, error) {
	if m.cancelBooking == nil {
		m.t.Fatal("unexpected CancelBooking call")
	}
	return m.cancelBooking(ctx, id)
}

func (m *mockStore) OccupiedSeats(ctx context.Context, key model.ShowtimeKey) ([]string, error) {
	if m.occupiedSeats == nil {
		m.t.Fatal("unexpected OccupiedSeats call")
	}
	return m.occupiedSeats(ctx, key)
}

func (m *mockStore) BookingByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.bookingByID == nil {
		m.t.Fatal("unexpected BookingByID call")
	}
	return m.bookingByID(ctx, id)
}

func (m *mockStore) BookingsByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	if m.bookingsByUser == nil {
		m.t.Fatal("unexpected BookingsByUser call")
	}
	return m.bookingsByUser(ctx, userID)
}

func (m *mockStore) ActiveBookingsByCinema(ctx context.Context, cinemaID uint64) ([]*model.Booking, error) {
	if m.activeByCinema == nil {
		m.t.Fatal("unexpected ActiveBookingsByCinema call")
	}
	return m.activeByCinema(ctx, cinemaID)
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	cancelled []queue.BookingCancelledEvent
	fail      bool
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.confirmed = append(p.confirmed, ev)
	return nil
}

func (p *recordingPublisher) PublishBookingCancelled(_ context.Context, ev queue.BookingCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.cancelled = append(p.cancelled, ev)
	return nil
}

func newMemoryEngine(t *testing.T) (*ReservationService, *repository.MemoryStore, *recordingPublisher) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.SeedCinema(model.Cinema{ID: 1, Name: "Grand Plaza", Location: "Downtown", TotalSeats: 100})
	pub := &recordingPublisher{}
	return NewReservationService(store, pub, nil), store, pub
}

func validRequest() ReserveRequest {
	return ReserveRequest{
		CinemaID:   1,
		MovieID:    "mv-42",
		MovieTitle: "Night Train",
		Date:       "2026-09-05",
		Time:       "19:30",
		Seats:      []string{"A1", "A2"},
		UserID:     "user-1",
	}
}

func TestReserveValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ReserveRequest)
	}{
		{"missing user", func(r *ReserveRequest) { r.UserID = "" }},
		{"missing cinema", func(r *ReserveRequest) { r.CinemaID = 0 }},
		{"missing movie", func(r *ReserveRequest) { r.MovieID = "" }},
		{"missing date", func(r *ReserveRequest) { r.Date = "" }},
		{"missing time", func(r *ReserveRequest) { r.Time = "" }},
		{"no seats", func(r *ReserveRequest) { r.Seats = nil }},
		{"malformed seat", func(r *ReserveRequest) { r.Seats = []string{"A1", "1A"} }},
		{"seat with row only", func(r *ReserveRequest) { r.Seats = []string{"AA"} }},
		{"overlong seat", func(r *ReserveRequest) { r.Seats = []string{"ABC1234"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// The store must never be touched by an invalid request.
			engine := NewReservationService(&mockStore{t: t}, nil, nil)
			req := validRequest()
			tc.mutate(&req)
			_, err := engine.Reserve(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestReserveNormalizesSeatLabels(t *testing.T) {
	engine, _, _ := newMemoryEngine(t)
	req := validRequest()
	req.Seats = []string{" a1 ", "A1", "b12"}

	booking, err := engine.Reserve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B12"}, booking.Seats)
}

func TestReserveUnknownCinema(t *testing.T) {
	engine, _, _ := newMemoryEngine(t)
	req := validRequest()
	req.CinemaID = 77
	_, err := engine.Reserve(context.Background(), req)
	assert.ErrorIs(t, err, repository.ErrCinemaNotFound)
}

func TestReservePricePolicy(t *testing.T) {
	engine, _, _ := newMemoryEngine(t)
	ctx := context.Background()

	// The first booking seeds the showtime price.
	req := validRequest()
	req.PriceCents = 2500
	first, err := engine.Reserve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), first.TotalPriceCents)

	// A later request cannot reprice the showtime; the stored price
	// wins.
	second := validRequest()
	second.UserID = "user-2"
	second.Seats = []string{"B1", "B2", "B3"}
	second.PriceCents = 100
	got, err := engine.Reserve(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), got.TotalPriceCents)
}

func TestReserveDefaultPrice(t *testing.T) {
	engine, _, _ := newMemoryEngine(t)
	req := validRequest()
	req.Seats = []string{"C1"}

	booking, err := engine.Reserve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, DefaultPriceCents, booking.TotalPriceCents)
}

func TestReserveSeatConflict(t *testing.T) {
	engine, _, _ := newMemoryEngine(t)
	ctx := context.Background()

	_, err := engine.Reserve(ctx, validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.UserID = "user-2"
	req.Seats = []string{"A2", "A3"}
	_, err = engine.Reserve(ctx, req)
	conflict, ok := repository.AsSeatConflict(err)
	require.True(t, ok)
	assert.Equal(t, []string{"A2"}, conflict.Conflicts)

	// Seat A3 must still be free after the failed attempt.
	seats, err := engine.OccupiedSeats(ctx, model.ShowtimeKey{CinemaID: 1, MovieID: "mv-42", Date: "2026-09-05", Time: "19:30"})
	require.NoError(t, err)
	assert.NotContains(t, seats, "A3")
}

func TestReserveConcurrentSameSeat(t *testing.T) {
	engine, _, _ := newMemoryEngine(t)

	const n = 32
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.Seats = []string{"J9"}
			_, errs[i] = engine.Reserve(context.Background(), req)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			_, ok := repository.AsSeatConflict(err)
			assert.True(t, ok, "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestCancelFlow(t *testing.T) {
	engine, _, _ := newMemoryEngine(t)
	ctx := context.Background()

	booking, err := engine.Reserve(ctx, validRequest())
	require.NoError(t, err)

	cancelled, err := engine.Cancel(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)
	assert.Equal(t, booking.Seats, cancelled.Seats)

	_, err = engine.Cancel(ctx, booking.ID)
	assert.ErrorIs(t, err, repository.ErrBookingCancelled)

	// The freed seats are reservable again by another user.
	req := validRequest()
	req.UserID = "user-2"
	_, err = engine.Reserve(ctx, req)
	require.NoError(t, err)
}

func TestCancelInvalidInput(t *testing.T) {
	engine := NewReservationService(&mockStore{t: t}, nil, nil)
	_, err := engine.Cancel(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCancelUnknownBooking(t *testing.T) {
	engine, _, _ := newMemoryEngine(t)
	_, err := engine.Cancel(context.Background(), "no-such-booking")
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}

func TestOccupiedSeatsLifecycle(t *testing.T) {
	engine, _, _ := newMemoryEngine(t)
	ctx := context.Background()
	key := model.ShowtimeKey{CinemaID: 1, MovieID: "mv-42", Date: "2026-09-05", Time: "19:30"}

	seats, err := engine.OccupiedSeats(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, seats)

	booking, err := engine.Reserve(ctx, validRequest())
	require.NoError(t, err)

	seats, err = engine.OccupiedSeats(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, seats)

	_, err = engine.Cancel(ctx, booking.ID)
	require.NoError(t, err)

	seats, err = engine.OccupiedSeats(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, seats)
}

func TestEventsPublished(t *testing.T) {
	engine, _, pub := newMemoryEngine(t)
	ctx := context.Background()

	booking, err := engine.Reserve(ctx, validRequest())
	require.NoError(t, err)
	_, err = engine.Cancel(ctx, booking.ID)
	require.NoError(t, err)

	require.Len(t, pub.confirmed, 1)
	ev := pub.confirmed[0]
	assert.Equal(t, booking.ID, ev.BookingID)
	assert.Equal(t, "user-1", ev.UserID)
	assert.Equal(t, "Grand Plaza", ev.CinemaName)
	assert.Equal(t, []string{"A1", "A2"}, ev.Seats)
	assert.Equal(t, booking.TotalPriceCents, ev.TotalPriceCents)

	require.Len(t, pub.cancelled, 1)
	assert.Equal(t, booking.ID, pub.cancelled[0].BookingID)
}

func TestPublisherFailureDoesNotFailBooking(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SeedCinema(model.Cinema{ID: 1, Name: "Grand Plaza", TotalSeats: 100})
	engine := NewReservationService(store, &recordingPublisher{fail: true}, nil)

	booking, err := engine.Reserve(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
}

func TestReserveBusyPassthrough(t *testing.T) {
	store := &mockStore{
		t: t,
		cinemaByID: func(context.Context, uint64) (*model.Cinema, error) {
			return &model.Cinema{ID: 1, Name: "Grand Plaza", TotalSeats: 100}, nil
		},
		resolveShowtime: func(_ context.Context, key model.ShowtimeKey, seed *model.Showtime) (*model.Showtime, error) {
			return &model.Showtime{ID: "st-1", CinemaID: key.CinemaID, TotalSeats: seed.TotalSeats}, nil
		},
		reserveSeats: func(context.Context, model.ShowtimeKey, *model.Booking) error {
			return repository.ErrBusy
		},
	}
	engine := NewReservationService(store, nil, nil)
	_, err := engine.Reserve(context.Background(), validRequest())
	assert.ErrorIs(t, err, repository.ErrBusy)
}

func TestCinemaBookingGroups(t *testing.T) {
	engine, _, _ := newMemoryEngine(t)
	ctx := context.Background()

	// Two bookings for the same showtime, one for another movie, one
	// cancelled.
	first, err := engine.Reserve(ctx, validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.UserID = "user-2"
	req.Seats = []string{"B5", "B6", "B7"}
	_, err = engine.Reserve(ctx, req)
	require.NoError(t, err)

	other := validRequest()
	other.UserID = "user-3"
	other.MovieID = "mv-7"
	other.MovieTitle = "Quiet Harbor"
	other.Date = "2026-09-04"
	_, err = engine.Reserve(ctx, other)
	require.NoError(t, err)

	gone := validRequest()
	gone.UserID = "user-4"
	gone.Seats = []string{"C9"}
	cancelledBooking, err := engine.Reserve(ctx, gone)
	require.NoError(t, err)
	_, err = engine.Cancel(ctx, cancelledBooking.ID)
	require.NoError(t, err)

	groups, err := engine.CinemaBookingGroups(ctx, 1)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Earlier show date first.
	assert.Equal(t, "mv-7", groups[0].MovieID)
	assert.Equal(t, 1, groups[0].TotalBookings)

	g := groups[1]
	assert.Equal(t, "mv-42", g.MovieID)
	assert.Equal(t, "Night Train", g.MovieTitle)
	assert.Equal(t, 2, g.TotalBookings)
	assert.Equal(t, 5, g.TotalSeats)
	require.Len(t, g.Bookings, 2)
	assert.Equal(t, first.ID, g.Bookings[0].ID)
}

func TestCinemaBookingGroupsInvalidInput(t *testing.T) {
	engine := NewReservationService(&mockStore{t: t}, nil, nil)
	_, err := engine.CinemaBookingGroups(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserBookingsInvalidInput(t *testing.T) {
	engine := NewReservationService(&mockStore{t: t}, nil, nil)
	_, err := engine.UserBookings(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
