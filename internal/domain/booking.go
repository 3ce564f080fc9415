package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// bookingTransitions represents the booking state flow as code.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

// CanTransitionBooking reports whether a booking may move from one status to another.
func CanTransitionBooking(from, to BookingStatus) bool {
	next, ok := bookingTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// CountsAgainstCapacity reports whether a booking in this status holds seats.
// Cancelled bookings release their seats immediately; completed bookings keep
// them so historical rides stay consistent.
func (s BookingStatus) CountsAgainstCapacity() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted:
		return true
	default:
		return false
	}
}

// PickupStatus is the per-passenger pickup sub-state, meaningful only while
// the parent ride is IN_PROGRESS. It is monotonic.
type PickupStatus string

const (
	PickupStatusPending  PickupStatus = "PENDING"
	PickupStatusPickedUp PickupStatus = "PICKED_UP"
)

// Booking represents a rider's reservation of one or more seats on a ride.
type Booking struct {
	ID      string
	RideID  string
	RiderID string

	NumberOfSeats int

	Status       BookingStatus
	PickupStatus PickupStatus

	PickupAddress string
	Pickup        *Coordinates

	// ConfirmationCode is the human-displayable booking reference.
	ConfirmationCode string

	// PaymentRef is the opaque authorization handle held by the payment
	// gateway. Empty for zero-amount bookings.
	PaymentRef string

	// SettlementFailed marks a completed booking whose capture failed and is
	// awaiting out-of-band retry.
	SettlementFailed bool

	CreatedAt   time.Time
	CancelledAt time.Time
}
