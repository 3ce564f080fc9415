package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusScheduled  RideStatus = "SCHEDULED"
	RideStatusInProgress RideStatus = "IN_PROGRESS"
	RideStatusCompleted  RideStatus = "COMPLETED"
	RideStatusCancelled  RideStatus = "CANCELLED"
)

// rideTransitions represents the ride state flow as code.
// COMPLETED and CANCELLED are terminal.
var rideTransitions = map[RideStatus][]RideStatus{
	RideStatusScheduled:  {RideStatusInProgress, RideStatusCancelled},
	RideStatusInProgress: {RideStatusCompleted, RideStatusCancelled},
}

// CanTransitionRide reports whether a ride may move from one status to another.
func CanTransitionRide(from, to RideStatus) bool {
	next, ok := rideTransitions[NormalizeRideStatus(from)]
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

// NormalizeRideStatus maps an unset status to SCHEDULED. Rows written by older
// clients may carry no status at all; the domain core only ever sees an
// explicit value.
func NormalizeRideStatus(s RideStatus) RideStatus {
	if s == "" {
		return RideStatusScheduled
	}
	return s
}

// IsTerminal reports whether the status admits no further transitions.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// Coordinates is a geographic point.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Ride represents a scheduled trip offered by a driver with fixed seat
// capacity and price per seat.
type Ride struct {
	ID       string
	DriverID string

	// Origin and Destination may be nil when the ride was created without
	// precise geocoding.
	Origin      *Coordinates
	Destination *Coordinates

	// RouteMiles is the precomputed route distance, nil when unknown.
	RouteMiles *float64

	DepartureTime time.Time

	TotalSeats int

	// AvailableSeats is a denormalized cache refreshed opportunistically.
	// The authoritative value is always recomputed from active bookings.
	AvailableSeats int

	PricePerSeat float64
	Status       RideStatus

	CreatedAt    time.Time
	CancelledAt  time.Time
	CancelReason string
}
