package repository

import (
	"context"

	"carpool/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetAll retrieves all rides.
	GetAll(ctx context.Context) ([]*domain.Ride, error)

	// GetByDriverID retrieves all rides offered by a driver.
	GetByDriverID(ctx context.Context, driverID string) ([]*domain.Ride, error)

	// GetInProgressByDriverID retrieves the driver's ride currently in
	// progress, or nil when there is none.
	GetInProgressByDriverID(ctx context.Context, driverID string) (*domain.Ride, error)

	// Update updates an existing ride.
	Update(ctx context.Context, ride *domain.Ride) error

	// Delete removes a ride.
	Delete(ctx context.Context, id string) error
}
