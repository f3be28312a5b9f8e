// Package cache provides a Redis-backed read-through cache for
// occupied-seat sets.  Seat availability is the hottest read in the
// system (every client polls it while picking seats), while the
// underlying occupancy only changes on reserve/cancel, so short-lived
// cached copies with write-time invalidation absorb most of the load.
// The cache is advisory only: booking-correctness decisions never
// read from it, only the availability query does.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinetix/cinema-booking/internal/model"
)

// SeatCache caches occupied-seat sets keyed by showtime tuple.  A nil
// *SeatCache or a cache built over a nil Redis client is a no-op, so
// callers never need to branch on whether Redis is configured.
type SeatCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a SeatCache over the given client.  The client may be
// nil, in which case every lookup misses and every write is dropped.
func New(rdb *redis.Client, ttl time.Duration) *SeatCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &SeatCache{rdb: rdb, ttl: ttl}
}

// key builds a stable Redis key for a showtime tuple.  Date and time
// are opaque client-supplied strings, so the tuple is hashed rather
// than embedded raw.
func (c *SeatCache) key(k model.ShowtimeKey) string {
	tail := fmt.Sprintf("%d:%s:%s:%s", k.CinemaID, k.MovieID, k.Date, k.Time)
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("seats:%x", sum[:])
}

// Get returns the cached occupied-seat set for the key and whether the
// lookup hit.  Any Redis or decoding error is treated as a miss.
func (c *SeatCache) Get(ctx context.Context, k model.ShowtimeKey) ([]string, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key(k)).Bytes()
	if err != nil {
		return nil, false
	}
	var seats []string
	if err := json.Unmarshal(raw, &seats); err != nil {
		return nil, false
	}
	return seats, true
}

// Set stores the occupied-seat set for the key with the configured
// TTL.  Errors are ignored; the cache is best-effort.
func (c *SeatCache) Set(ctx context.Context, k model.ShowtimeKey, seats []string) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(seats)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, c.key(k), raw, c.ttl).Err()
}

// Invalidate drops the cached set for the key.  Called after every
// successful reserve or cancel so released and claimed seats become
// visible to availability queries immediately rather than after TTL.
func (c *SeatCache) Invalidate(ctx context.Context, k model.ShowtimeKey) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, c.key(k)).Err()
}
