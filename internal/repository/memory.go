package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cinetix/cinema-booking/internal/model"
)

// MemoryStore is an in-process Store used for development and tests.
// It reproduces the MySQL store's serialization guarantees with a
// mutex per showtime key: reserve and cancel on the same showtime are
// mutually exclusive while different showtimes proceed in parallel.
// Readers take the same key lock before touching a showtime's
// occupancy map, so a seat-map poll never observes (or races with) a
// half-applied mutation.  The ledger has its own lock and is always
// acquired after a showtime lock, never before, so the two can never
// deadlock.
type MemoryStore struct {
	mu        sync.Mutex                       // guards cinemas, showtimes and lock allocation
	cinemas   map[uint64]*model.Cinema         // seeded venues
	showtimes map[model.ShowtimeKey]*memShowtime
	locks     map[model.ShowtimeKey]*sync.Mutex

	ledgerMu sync.RWMutex              // guards bookings
	bookings map[string]*model.Booking // keyed by booking id
	order    []string                  // booking ids in creation order
}

// memShowtime is the registry entry plus its occupancy map, which ties
// each claimed label to the booking that owns it.
type memShowtime struct {
	st       model.Showtime
	occupied map[string]string // seat label -> booking id
}

// NewMemoryStore returns an empty MemoryStore.  Seed cinemas before
// serving traffic.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cinemas:   make(map[uint64]*model.Cinema),
		showtimes: make(map[model.ShowtimeKey]*memShowtime),
		locks:     make(map[model.ShowtimeKey]*sync.Mutex),
		bookings:  make(map[string]*model.Booking),
	}
}

var _ Store = (*MemoryStore)(nil)

// SeedCinema registers a cinema so the provisioner can resolve it.
func (s *MemoryStore) SeedCinema(c model.Cinema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.cinemas[c.ID] = &cp
}

// CinemaByID returns the cinema or ErrCinemaNotFound.
func (s *MemoryStore) CinemaByID(_ context.Context, id uint64) (*model.Cinema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cinemas[id]
	if !ok {
		return nil, ErrCinemaNotFound
	}
	cp := *c
	return &cp, nil
}

// keyLock returns the mutex serializing all occupancy access (reads
// and mutations) for one showtime key, allocating it on first use.
func (s *MemoryStore) keyLock(key model.ShowtimeKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// snapshot copies a showtime with its occupancy set sorted for
// deterministic output.
func (m *memShowtime) snapshot() *model.Showtime {
	st := m.st
	st.OccupiedSeats = make([]string, 0, len(m.occupied))
	for l := range m.occupied {
		st.OccupiedSeats = append(st.OccupiedSeats, l)
	}
	sort.Strings(st.OccupiedSeats)
	st.AvailableSeats = st.TotalSeats - len(m.occupied)
	return &st
}

// ResolveShowtime implements idempotent get-or-create: the single map
// write under the store mutex plays the role of the MySQL unique key,
// so N racing provisioners produce exactly one record.  The key lock
// is held across the snapshot so an existing record cannot be mutated
// mid-read.
func (s *MemoryStore) ResolveShowtime(_ context.Context, key model.ShowtimeKey, seed *model.Showtime) (*model.Showtime, error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.showtimes[key]; ok {
		return m.snapshot(), nil
	}
	now := time.Now().UTC()
	m := &memShowtime{
		st: model.Showtime{
			ID:             uuid.NewString(),
			CinemaID:       key.CinemaID,
			MovieID:        key.MovieID,
			Date:           key.Date,
			Time:           key.Time,
			PriceCents:     seed.PriceCents,
			TotalSeats:     seed.TotalSeats,
			AvailableSeats: seed.TotalSeats,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		occupied: make(map[string]string),
	}
	s.showtimes[key] = m
	return m.snapshot(), nil
}

// ShowtimeByKey returns the showtime or ErrShowtimeNotFound, never
// provisioning.  It snapshots under the key lock so concurrent
// reserve/cancel mutations on the occupancy map cannot race the read.
func (s *MemoryStore) ShowtimeByKey(_ context.Context, key model.ShowtimeKey) (*model.Showtime, error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	m, ok := s.showtimes[key]
	s.mu.Unlock()
	if !ok {
		return nil, ErrShowtimeNotFound
	}
	return m.snapshot(), nil
}

// OccupiedSeats returns the occupancy set, empty when the showtime
// does not exist.
func (s *MemoryStore) OccupiedSeats(ctx context.Context, key model.ShowtimeKey) ([]string, error) {
	st, err := s.ShowtimeByKey(ctx, key)
	if err == ErrShowtimeNotFound {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return st.OccupiedSeats, nil
}

// ReserveSeats claims the requested labels and appends the booking
// under the showtime's key lock, mirroring the MySQL transaction.
func (s *MemoryStore) ReserveSeats(_ context.Context, key model.ShowtimeKey, b *model.Booking) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	m, ok := s.showtimes[key]
	s.mu.Unlock()
	if !ok {
		return ErrShowtimeNotFound
	}

	conflicts := make([]string, 0)
	for _, l := range b.Seats {
		if _, taken := m.occupied[l]; taken {
			conflicts = append(conflicts, l)
		}
	}
	if len(conflicts) > 0 {
		return &SeatConflictError{Conflicts: conflicts}
	}

	for _, l := range b.Seats {
		m.occupied[l] = b.ID
	}
	now := time.Now().UTC()
	m.st.UpdatedAt = now

	b.TotalPriceCents = m.st.PriceCents * int64(len(b.Seats))
	b.Status = model.BookingConfirmed
	b.CreatedAt = now
	b.UpdatedAt = now

	s.ledgerMu.Lock()
	cp := *b
	cp.Seats = append([]string(nil), b.Seats...)
	s.bookings[b.ID] = &cp
	s.order = append(s.order, b.ID)
	s.ledgerMu.Unlock()
	return nil
}

// CancelBooking releases exactly the seats owned by the booking and
// flips its status, under the same key lock as ReserveSeats.
func (s *MemoryStore) CancelBooking(_ context.Context, bookingID string) (*model.Booking, error) {
	s.ledgerMu.RLock()
	b, ok := s.bookings[bookingID]
	var key model.ShowtimeKey
	if ok {
		key = b.ShowtimeKey()
	}
	s.ledgerMu.RUnlock()
	if !ok {
		return nil, ErrBookingNotFound
	}

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()
	b = s.bookings[bookingID]
	if b.Status == model.BookingCancelled {
		return nil, ErrBookingCancelled
	}

	s.mu.Lock()
	m, exists := s.showtimes[key]
	s.mu.Unlock()
	if exists {
		// Release only labels this booking owns; neighbours keep theirs.
		for l, owner := range m.occupied {
			if owner == bookingID {
				delete(m.occupied, l)
			}
		}
		m.st.UpdatedAt = time.Now().UTC()
	}

	b.Status = model.BookingCancelled
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	cp.Seats = append([]string(nil), b.Seats...)
	return &cp, nil
}

// BookingByID returns a copy of the booking or ErrBookingNotFound.
func (s *MemoryStore) BookingByID(_ context.Context, id string) (*model.Booking, error) {
	s.ledgerMu.RLock()
	defer s.ledgerMu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	cp.Seats = append([]string(nil), b.Seats...)
	return &cp, nil
}

// BookingsByUser returns the user's bookings, newest first.
func (s *MemoryStore) BookingsByUser(_ context.Context, userID string) ([]*model.Booking, error) {
	s.ledgerMu.RLock()
	defer s.ledgerMu.RUnlock()
	out := make([]*model.Booking, 0)
	// order holds ids oldest-first; walk it backwards.
	for i := len(s.order) - 1; i >= 0; i-- {
		b := s.bookings[s.order[i]]
		if b.UserID != userID {
			continue
		}
		cp := *b
		cp.Seats = append([]string(nil), b.Seats...)
		out = append(out, &cp)
	}
	return out, nil
}

// ActiveBookingsByCinema returns confirmed bookings for a cinema
// ordered by show date then show time.
func (s *MemoryStore) ActiveBookingsByCinema(_ context.Context, cinemaID uint64) ([]*model.Booking, error) {
	s.ledgerMu.RLock()
	defer s.ledgerMu.RUnlock()
	out := make([]*model.Booking, 0)
	for _, id := range s.order {
		b := s.bookings[id]
		if b.CinemaID != cinemaID || b.Status != model.BookingConfirmed {
			continue
		}
		cp := *b
		cp.Seats = append([]string(nil), b.Seats...)
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}
