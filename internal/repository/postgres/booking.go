package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

const bookingColumns = `id, ride_id, rider_id, number_of_seats, status, pickup_status, pickup_address, pickup_lat, pickup_lng, confirmation_code, payment_ref, settlement_failed, cancelled_at, created_at`

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	pickupLat, pickupLng := coordsToNull(booking.Pickup)

	var pickupAddress sql.NullString
	if booking.PickupAddress != "" {
		pickupAddress = sql.NullString{String: booking.PickupAddress, Valid: true}
	}

	var paymentRef sql.NullString
	if booking.PaymentRef != "" {
		paymentRef = sql.NullString{String: booking.PaymentRef, Valid: true}
	}

	var cancelledAt sql.NullTime
	if !booking.CancelledAt.IsZero() {
		cancelledAt = sql.NullTime{Time: booking.CancelledAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.RideID,
		booking.RiderID,
		booking.NumberOfSeats,
		booking.Status,
		booking.PickupStatus,
		pickupAddress,
		pickupLat,
		pickupLng,
		booking.ConfirmationCode,
		paymentRef,
		booking.SettlementFailed,
		cancelledAt,
		booking.CreatedAt,
	)

	return err
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return booking, nil
}

// GetByRideID retrieves all bookings attached to a ride.
func (r *BookingRepository) GetByRideID(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ride_id = $1 ORDER BY created_at ASC`
	return r.queryBookings(ctx, query, rideID)
}

// GetByRiderID retrieves all bookings made by a rider.
func (r *BookingRepository) GetByRiderID(ctx context.Context, riderID string) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE rider_id = $1 ORDER BY created_at DESC`
	return r.queryBookings(ctx, query, riderID)
}

// Update updates an existing booking.
func (r *BookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, pickup_status = $2, payment_ref = $3, settlement_failed = $4, cancelled_at = $5
		WHERE id = $6
	`

	var paymentRef sql.NullString
	if booking.PaymentRef != "" {
		paymentRef = sql.NullString{String: booking.PaymentRef, Valid: true}
	}

	var cancelledAt sql.NullTime
	if !booking.CancelledAt.IsZero() {
		cancelledAt = sql.NullTime{Time: booking.CancelledAt, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		booking.Status,
		booking.PickupStatus,
		paymentRef,
		booking.SettlementFailed,
		cancelledAt,
		booking.ID,
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

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var pickupAddress, paymentRef sql.NullString
	var pickupLat, pickupLng sql.NullFloat64
	var cancelledAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&booking.RideID,
		&booking.RiderID,
		&booking.NumberOfSeats,
		&booking.Status,
		&booking.PickupStatus,
		&pickupAddress,
		&pickupLat,
		&pickupLng,
		&booking.ConfirmationCode,
		&paymentRef,
		&booking.SettlementFailed,
		&cancelledAt,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pickupAddress.Valid {
		booking.PickupAddress = pickupAddress.String
	}
	booking.Pickup = nullToCoords(pickupLat, pickupLng)
	if paymentRef.Valid {
		booking.PaymentRef = paymentRef.String
	}
	if cancelledAt.Valid {
		booking.CancelledAt = cancelledAt.Time
	}

	return &booking, nil
}
