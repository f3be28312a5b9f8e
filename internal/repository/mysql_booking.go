package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/cinetix/cinema-booking/internal/model"
)

// bookingColumns is the column list shared by every booking SELECT.
const bookingColumns = `id, user_id, cinema_id, cinema_name, movie_id, movie_title,
	show_date, show_time, seats, total_price_cents, status, created_at, updated_at`

// scanBooking scans one booking row, decoding the seats JSON snapshot.
func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var seatsJSON []byte
	if err := row.Scan(
		&b.ID, &b.UserID, &b.CinemaID, &b.CinemaName, &b.MovieID, &b.MovieTitle,
		&b.Date, &b.Time, &seatsJSON, &b.TotalPriceCents, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(seatsJSON, &b.Seats); err != nil {
		return nil, err
	}
	return &b, nil
}

// overlapping returns the requested labels that already appear in the
// occupied set, preserving request order.
func overlapping(requested, occupied []string) []string {
	taken := make(map[string]struct{}, len(occupied))
	for _, l := range occupied {
		taken[l] = struct{}{}
	}
	conflicts := make([]string, 0)
	for _, l := range requested {
		if _, ok := taken[l]; ok {
			conflicts = append(conflicts, l)
		}
	}
	return conflicts
}

// claimedAmong reports which of the given labels are already claimed
// against the showtime, using a locking read so claims committed after
// the transaction snapshot are visible.
func (s *MySQLStore) claimedAmong(ctx context.Context, tx *sql.Tx, showtimeID string, labels []string) ([]string, error) {
	q := `SELECT seat_label FROM showtime_seats WHERE showtime_id = ? AND seat_label IN (`
	args := make([]any, 0, len(labels)+1)
	args = append(args, showtimeID)
	for i, l := range labels {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, l)
	}
	q += `) ORDER BY seat_label FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	held := make([]string, 0, len(labels))
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		held = append(held, l)
	}
	return held, rows.Err()
}

// ReserveSeats claims b.Seats against the showtime and appends the
// booking in one transaction.  The occupancy check runs against the
// row locked FOR UPDATE, so it reflects the state at commit time with
// respect to every other reserve/cancel on this showtime.  On any
// conflict nothing is written: no partial seat claims, no orphan
// booking rows.
func (s *MySQLStore) ReserveSeats(ctx context.Context, key model.ShowtimeKey, b *model.Booking) error {
	return withWriteRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		st, err := s.lockShowtimeTx(ctx, tx, key)
		if err != nil {
			return err
		}
		occupied, err := s.occupiedSeatLabels(ctx, tx, st.ID)
		if err != nil {
			return err
		}
		if conflicts := overlapping(b.Seats, occupied); len(conflicts) > 0 {
			return &SeatConflictError{Conflicts: conflicts}
		}

		// Claim every requested seat.  The unique key on
		// (showtime_id, seat_label) backs up the check above; a
		// duplicate entry here means an out-of-band writer slipped a
		// claim in without the row lock, which we surface as a plain
		// conflict rather than a server error.
		claim := `INSERT INTO showtime_seats (showtime_id, seat_label, booking_id) VALUES `
		args := make([]any, 0, len(b.Seats)*3)
		for i, l := range b.Seats {
			if i > 0 {
				claim += ","
			}
			claim += "(?, ?, ?)"
			args = append(args, st.ID, l, b.ID)
		}
		if _, err := tx.ExecContext(ctx, claim, args...); err != nil {
			if mysqlErrNumber(err) == mysqlErrDuplicateEntry {
				// Name the actual overlap.  A plain SELECT would read
				// from the transaction snapshot and could miss the
				// freshly committed claim, so use a locking read.
				held, qerr := s.claimedAmong(ctx, tx, st.ID, b.Seats)
				if qerr == nil && len(held) > 0 {
					return &SeatConflictError{Conflicts: held}
				}
				return &SeatConflictError{Conflicts: b.Seats}
			}
			return err
		}

		const upd = `UPDATE showtimes
		             SET available_seats = available_seats - ?, updated_at = CURRENT_TIMESTAMP
		             WHERE id = ?`
		if _, err := tx.ExecContext(ctx, upd, len(b.Seats), st.ID); err != nil {
			return err
		}

		// Append the ledger record in the same transaction.  The total
		// comes from the locked showtime row so price and occupancy are
		// always read from the same snapshot.
		b.TotalPriceCents = st.PriceCents * int64(len(b.Seats))
		b.Status = model.BookingConfirmed
		seatsJSON, err := json.Marshal(b.Seats)
		if err != nil {
			return err
		}
		const ins = `INSERT INTO bookings
		             (id, user_id, cinema_id, cinema_name, movie_id, movie_title,
		              show_date, show_time, seats, total_price_cents, status)
		             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, ins,
			b.ID, b.UserID, b.CinemaID, b.CinemaName, b.MovieID, b.MovieTitle,
			b.Date, b.Time, seatsJSON, b.TotalPriceCents, b.Status,
		); err != nil {
			return err
		}
		// Query back timestamps populated by column defaults.
		const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
		if err := tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		return nil
	})
}

// CancelBooking flips a confirmed booking to cancelled and releases
// exactly the seats it claimed.  The status guard and the release run
// in one transaction under the same showtime row lock as ReserveSeats,
// so released seats become visible to the next reserve immediately.
// When the showtime record is gone the release step is skipped and the
// booking is still cancelled: the ledger is authoritative for the
// user-facing status even when capacity bookkeeping cannot be
// reconciled.
func (s *MySQLStore) CancelBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	var out *model.Booking
	err := withWriteRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		const sel = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
		b, err := scanBooking(tx.QueryRowContext(ctx, sel, bookingID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.Status == model.BookingCancelled {
			return ErrBookingCancelled
		}

		st, err := s.lockShowtimeTx(ctx, tx, b.ShowtimeKey())
		switch {
		case err == nil:
			res, err := tx.ExecContext(ctx,
				`DELETE FROM showtime_seats WHERE showtime_id = ? AND booking_id = ?`, st.ID, b.ID)
			if err != nil {
				return err
			}
			released, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if released > 0 {
				const upd = `UPDATE showtimes
				             SET available_seats = available_seats + ?, updated_at = CURRENT_TIMESTAMP
				             WHERE id = ?`
				if _, err := tx.ExecContext(ctx, upd, released, st.ID); err != nil {
					return err
				}
			}
		case errors.Is(err, ErrShowtimeNotFound):
			// Showtime removed out-of-band; cancel the booking anyway.
		default:
			return err
		}

		const upd = `UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
		if _, err := tx.ExecContext(ctx, upd, model.BookingCancelled, b.ID); err != nil {
			return err
		}
		b.Status = model.BookingCancelled
		if err := tx.QueryRowContext(ctx,
			`SELECT updated_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.UpdatedAt); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BookingByID fetches a single booking regardless of status.
func (s *MySQLStore) BookingByID(ctx context.Context, id string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// BookingsByUser returns the user's booking history, newest first.
// Cancelled bookings are included; clients filter by status.
func (s *MySQLStore) BookingsByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	return s.queryBookings(ctx, q, userID)
}

// ActiveBookingsByCinema returns confirmed bookings for a cinema
// ordered by show date then show time, ready for grouping by the
// reporting layer.
func (s *MySQLStore) ActiveBookingsByCinema(ctx context.Context, cinemaID uint64) ([]*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE cinema_id = ? AND status = ? ORDER BY show_date, show_time, created_at`
	return s.queryBookings(ctx, q, cinemaID, model.BookingConfirmed)
}

func (s *MySQLStore) queryBookings(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
