package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore holds denormalized ride data in Redis. Everything here is a
// performance hint; the authoritative seat count is always recomputed from
// active bookings.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// SeatCacheTTL bounds how stale a cached seat count can get. Availability
// changes with every booking, so the window is short.
const SeatCacheTTL = 15 * time.Second

const seatCachePrefix = "cache:ride_seats:"

// GetAvailableSeats retrieves the cached seat count for a ride. The second
// return value is false on a cache miss.
func (s *CacheStore) GetAvailableSeats(ctx context.Context, rideID string) (int, bool, error) {
	data, err := s.client.Get(ctx, seatCachePrefix+rideID).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, err
	}

	seats, err := strconv.Atoi(data)
	if err != nil {
		return 0, false, err
	}
	return seats, true, nil
}

// SetAvailableSeats refreshes the cached seat count for a ride.
func (s *CacheStore) SetAvailableSeats(ctx context.Context, rideID string, seats int) error {
	return s.client.Set(ctx, seatCachePrefix+rideID, strconv.Itoa(seats), SeatCacheTTL).Err()
}

// InvalidateSeats removes the cached seat count for a ride.
func (s *CacheStore) InvalidateSeats(ctx context.Context, rideID string) error {
	return s.client.Del(ctx, seatCachePrefix+rideID).Err()
}
