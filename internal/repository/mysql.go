package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/cinetix/cinema-booking/internal/model"
)

// MySQL error numbers the store translates into the shared taxonomy.
const (
	mysqlErrDuplicateEntry  = 1062 // unique key violation (provisioning race, seat race)
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// maxWriteAttempts bounds the optimistic retry loop for reserve and
// cancel under contention.  When the budget is exhausted the caller
// receives ErrBusy rather than blocking indefinitely.
const maxWriteAttempts = 3

// MySQLStore implements Store on top of a MySQL database.  Mutations
// to a showtime's occupancy run inside a transaction that locks the
// showtime row with SELECT ... FOR UPDATE, so reserve and cancel on
// the same showtime are serialized while different showtimes proceed
// independently.  The unique key on (cinema_id, movie_id, show_date,
// show_time) backs idempotent provisioning, and the unique key on
// (showtime_id, seat_label) is a second line of defense against a
// duplicate seat claim.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to the given database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// DB exposes the underlying handle for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

var _ Store = (*MySQLStore)(nil)

// CinemaByID fetches a cinema by its ID.  It returns ErrCinemaNotFound
// when no row exists.
func (s *MySQLStore) CinemaByID(ctx context.Context, id uint64) (*model.Cinema, error) {
	const q = `SELECT id, name, location, rating, total_seats, created_at, updated_at
	           FROM cinemas WHERE id = ?`
	var c model.Cinema
	if err := s.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.Name, &c.Location, &c.Rating, &c.TotalSeats, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCinemaNotFound
		}
		return nil, err
	}
	return &c, nil
}

// mysqlErrNumber extracts the MySQL error number from err, or 0 when
// err is not a driver error.
func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// retryable reports whether a write should be re-attempted: deadlocks
// and lock wait timeouts are transient under per-row locking.
func retryable(err error) bool {
	n := mysqlErrNumber(err)
	return n == mysqlErrDeadlock || n == mysqlErrLockWaitTimeout
}

// withWriteRetry runs fn up to maxWriteAttempts times, backing off
// briefly between attempts when the failure is a transient lock
// conflict.  Any other error is returned immediately.  An exhausted
// budget surfaces as ErrBusy; fn must leave no partial state behind
// on failure (each attempt is one transaction).
func withWriteRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if err = fn(); err == nil || !retryable(err) {
			return err
		}
		backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return ErrBusy
}
