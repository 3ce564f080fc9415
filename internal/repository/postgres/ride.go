package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

const rideColumns = `id, driver_id, origin_lat, origin_lng, destination_lat, destination_lng, route_miles, departure_time, total_seats, available_seats, price_per_seat, status, cancelled_at, cancel_reason, created_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	originLat, originLng := coordsToNull(ride.Origin)
	destLat, destLng := coordsToNull(ride.Destination)

	var routeMiles sql.NullFloat64
	if ride.RouteMiles != nil {
		routeMiles = sql.NullFloat64{Float64: *ride.RouteMiles, Valid: true}
	}

	var cancelledAt sql.NullTime
	if !ride.CancelledAt.IsZero() {
		cancelledAt = sql.NullTime{Time: ride.CancelledAt, Valid: true}
	}

	var cancelReason sql.NullString
	if ride.CancelReason != "" {
		cancelReason = sql.NullString{String: ride.CancelReason, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.DriverID,
		originLat,
		originLng,
		destLat,
		destLng,
		routeMiles,
		ride.DepartureTime,
		ride.TotalSeats,
		ride.AvailableSeats,
		ride.PricePerSeat,
		domain.NormalizeRideStatus(ride.Status),
		cancelledAt,
		cancelReason,
		ride.CreatedAt,
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return ride, nil
}

// GetAll retrieves all rides.
func (r *RideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY departure_time ASC LIMIT 500`
	return r.queryRides(ctx, query)
}

// GetByDriverID retrieves all rides offered by a driver.
func (r *RideRepository) GetByDriverID(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 ORDER BY departure_time ASC`
	return r.queryRides(ctx, query, driverID)
}

// GetInProgressByDriverID retrieves the driver's ride currently in progress.
// Returns nil when there is none.
func (r *RideRepository) GetInProgressByDriverID(ctx context.Context, driverID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 AND status = $2 LIMIT 1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, driverID, domain.RideStatusInProgress))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return ride, nil
}

// Update updates an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET origin_lat = $1, origin_lng = $2, destination_lat = $3, destination_lng = $4,
		    route_miles = $5, departure_time = $6, total_seats = $7, available_seats = $8,
		    price_per_seat = $9, status = $10, cancelled_at = $11, cancel_reason = $12
		WHERE id = $13
	`

	originLat, originLng := coordsToNull(ride.Origin)
	destLat, destLng := coordsToNull(ride.Destination)

	var routeMiles sql.NullFloat64
	if ride.RouteMiles != nil {
		routeMiles = sql.NullFloat64{Float64: *ride.RouteMiles, Valid: true}
	}

	var cancelledAt sql.NullTime
	if !ride.CancelledAt.IsZero() {
		cancelledAt = sql.NullTime{Time: ride.CancelledAt, Valid: true}
	}

	var cancelReason sql.NullString
	if ride.CancelReason != "" {
		cancelReason = sql.NullString{String: ride.CancelReason, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		originLat,
		originLng,
		destLat,
		destLng,
		routeMiles,
		ride.DepartureTime,
		ride.TotalSeats,
		ride.AvailableSeats,
		ride.PricePerSeat,
		domain.NormalizeRideStatus(ride.Status),
		cancelledAt,
		cancelReason,
		ride.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a ride.
func (r *RideRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM rides WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *RideRepository) queryRides(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRide reads one ride row, normalizing a NULL/empty status to SCHEDULED
// so the domain core never sees an unset value.
func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var originLat, originLng, destLat, destLng, routeMiles sql.NullFloat64
	var status sql.NullString
	var cancelledAt sql.NullTime
	var cancelReason sql.NullString

	err := row.Scan(
		&ride.ID,
		&ride.DriverID,
		&originLat,
		&originLng,
		&destLat,
		&destLng,
		&routeMiles,
		&ride.DepartureTime,
		&ride.TotalSeats,
		&ride.AvailableSeats,
		&ride.PricePerSeat,
		&status,
		&cancelledAt,
		&cancelReason,
		&ride.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	ride.Origin = nullToCoords(originLat, originLng)
	ride.Destination = nullToCoords(destLat, destLng)
	if routeMiles.Valid {
		v := routeMiles.Float64
		ride.RouteMiles = &v
	}
	ride.Status = domain.NormalizeRideStatus(domain.RideStatus(status.String))
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}
	if cancelReason.Valid {
		ride.CancelReason = cancelReason.String
	}

	return &ride, nil
}

func coordsToNull(c *domain.Coordinates) (sql.NullFloat64, sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}, sql.NullFloat64{Float64: c.Lng, Valid: true}
}

func nullToCoords(lat, lng sql.NullFloat64) *domain.Coordinates {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
}
