package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for ride and driver locking.
type LockStoreInterface interface {
	AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error)
	ReleaseRideLock(ctx context.Context, rideID string) error
	AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverID string) error
}

// SeatCacheInterface defines the interface for the denormalized seat cache.
type SeatCacheInterface interface {
	GetAvailableSeats(ctx context.Context, rideID string) (int, bool, error)
	SetAvailableSeats(ctx context.Context, rideID string, seats int) error
	InvalidateSeats(ctx context.Context, rideID string) error
}

// LocationStoreInterface defines the interface for last-known user locations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, userID string, lat, lng float64) error
	GetLocation(ctx context.Context, userID string) (*UserLocation, error)
	RemoveLocation(ctx context.Context, userID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface     = (*LockStore)(nil)
	_ SeatCacheInterface     = (*CacheStore)(nil)
	_ LocationStoreInterface = (*LocationStore)(nil)
)
