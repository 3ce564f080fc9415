package service

import (
	"context"
	"time"

	"carpool/internal/redis"
)

// Every mutating operation on a ride runs under the ride's Redis lock so that
// inventory checks and commits are atomic with respect to other operations on
// the same ride. Acquisition retries with a small delay up to a wait budget;
// contention is expected when several riders book the same ride.
const (
	rideLockTTL        = 10 * time.Second
	rideLockWait       = 2 * time.Second
	rideLockRetryDelay = 25 * time.Millisecond
)

// acquireRideLock acquires the per-ride mutation lock, retrying until the
// wait budget is exhausted. Returns ErrRideBusy when the lock stays held.
func acquireRideLock(ctx context.Context, locks redis.LockStoreInterface, rideID string) error {
	return acquireWithRetry(ctx, func(ctx context.Context) (bool, error) {
		return locks.AcquireRideLock(ctx, rideID, rideLockTTL)
	})
}

// acquireDriverLock acquires the per-driver mutation lock with the same retry
// budget. The ride lock keys on one ride, so a check that spans all of a
// driver's rides must serialize here instead. Always taken after the ride
// lock, never the other way around.
func acquireDriverLock(ctx context.Context, locks redis.LockStoreInterface, driverID string) error {
	return acquireWithRetry(ctx, func(ctx context.Context) (bool, error) {
		return locks.AcquireDriverLock(ctx, driverID, rideLockTTL)
	})
}

func acquireWithRetry(ctx context.Context, acquire func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(rideLockWait)

	for {
		locked, err := acquire(ctx)
		if err != nil {
			return err
		}
		if locked {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrRideBusy
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rideLockRetryDelay):
		}
	}
}
