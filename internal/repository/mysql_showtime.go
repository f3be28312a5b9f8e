package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/cinetix/cinema-booking/internal/model"
)

// showtimeColumns is the column list shared by every showtime SELECT.
const showtimeColumns = `id, cinema_id, movie_id, show_date, show_time, price_cents,
	total_seats, available_seats, created_at, updated_at`

// scanShowtime scans one showtime row from any row scanner.
func scanShowtime(row interface{ Scan(...any) error }) (*model.Showtime, error) {
	var st model.Showtime
	if err := row.Scan(
		&st.ID, &st.CinemaID, &st.MovieID, &st.Date, &st.Time, &st.PriceCents,
		&st.TotalSeats, &st.AvailableSeats, &st.CreatedAt, &st.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

// ShowtimeByKey returns the showtime for the exact key, with its
// occupancy set loaded, or ErrShowtimeNotFound.  The key columns are
// compared as plain strings: "2024-01-01" only matches "2024-01-01".
func (s *MySQLStore) ShowtimeByKey(ctx context.Context, key model.ShowtimeKey) (*model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes
	           WHERE cinema_id = ? AND movie_id = ? AND show_date = ? AND show_time = ?`
	st, err := scanShowtime(s.db.QueryRowContext(ctx, q, key.CinemaID, key.MovieID, key.Date, key.Time))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	if st.OccupiedSeats, err = s.occupiedSeatLabels(ctx, s.db, st.ID); err != nil {
		return nil, err
	}
	return st, nil
}

// ResolveShowtime implements get-or-create provisioning.  The INSERT
// relies on the unique key over (cinema_id, movie_id, show_date,
// show_time): when two first-time bookings race, one INSERT wins and
// the loser observes a duplicate-key error and re-fetches the winner's
// row instead of failing the caller.
func (s *MySQLStore) ResolveShowtime(ctx context.Context, key model.ShowtimeKey, seed *model.Showtime) (*model.Showtime, error) {
	if st, err := s.ShowtimeByKey(ctx, key); err == nil {
		return st, nil
	} else if !errors.Is(err, ErrShowtimeNotFound) {
		return nil, err
	}
	const ins = `INSERT INTO showtimes
	             (id, cinema_id, movie_id, show_date, show_time, price_cents, total_seats, available_seats)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, ins,
		id, key.CinemaID, key.MovieID, key.Date, key.Time,
		seed.PriceCents, seed.TotalSeats, seed.TotalSeats,
	)
	if err != nil && mysqlErrNumber(err) != mysqlErrDuplicateEntry {
		return nil, err
	}
	// Either we created the row or a concurrent provisioner beat us to
	// it; in both cases the canonical record is now present.
	return s.ShowtimeByKey(ctx, key)
}

// OccupiedSeats returns the occupancy set for the key without ever
// provisioning a showtime.  A missing showtime yields an empty set.
func (s *MySQLStore) OccupiedSeats(ctx context.Context, key model.ShowtimeKey) ([]string, error) {
	st, err := s.ShowtimeByKey(ctx, key)
	if errors.Is(err, ErrShowtimeNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return st.OccupiedSeats, nil
}

// querier abstracts *sql.DB and *sql.Tx so occupancy loads can run
// either standalone or inside a locking transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// occupiedSeatLabels loads the seat labels claimed against a showtime,
// ordered for deterministic output.
func (s *MySQLStore) occupiedSeatLabels(ctx context.Context, q querier, showtimeID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT seat_label FROM showtime_seats WHERE showtime_id = ? ORDER BY seat_label`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labels := make([]string, 0)
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

// lockShowtimeTx fetches the showtime row FOR UPDATE, serializing all
// occupancy mutations on this key for the lifetime of the transaction.
// Rows for other showtimes are untouched, so unrelated screenings do
// not contend.
func (s *MySQLStore) lockShowtimeTx(ctx context.Context, tx *sql.Tx, key model.ShowtimeKey) (*model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes
	           WHERE cinema_id = ? AND movie_id = ? AND show_date = ? AND show_time = ?
	           FOR UPDATE`
	st, err := scanShowtime(tx.QueryRowContext(ctx, q, key.CinemaID, key.MovieID, key.Date, key.Time))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return st, nil
}
