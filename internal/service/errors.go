package service

import "errors"

var (
	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidBookingID is returned when booking ID is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidSeatCount is returned when the requested seat count is not a
	// positive integer.
	ErrInvalidSeatCount = errors.New("invalid seat count")

	// ErrInvalidCapacity is returned when a ride's total seats is not a
	// positive integer.
	ErrInvalidCapacity = errors.New("invalid seat capacity")

	// ErrInvalidPrice is returned when the price per seat is negative or
	// would yield negative driver earnings under the active fee policy.
	ErrInvalidPrice = errors.New("invalid price per seat")

	// ErrInvalidDepartureTime is returned when the departure time is unset.
	ErrInvalidDepartureTime = errors.New("invalid departure time")

	// ErrForbidden is returned when the actor does not own the resource.
	ErrForbidden = errors.New("actor does not own this resource")

	// ErrInvalidTransition is returned on a ride or booking state-machine
	// violation.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrDriverHasActiveRide is returned when the driver already has a ride
	// in progress.
	ErrDriverHasActiveRide = errors.New("driver already has a ride in progress")

	// ErrRideNotBookable is returned when bookings are requested against a
	// ride that is no longer scheduled.
	ErrRideNotBookable = errors.New("ride is not accepting bookings")

	// ErrInsufficientCapacity is returned when a booking requests more seats
	// than the ride has available.
	ErrInsufficientCapacity = errors.New("not enough seats available")

	// ErrDuplicateBooking is returned when the rider already holds an active
	// booking on the ride.
	ErrDuplicateBooking = errors.New("rider already has a booking on this ride")

	// ErrPaymentDeclined is returned when the payment gateway declines the
	// authorization.
	ErrPaymentDeclined = errors.New("payment authorization declined")

	// ErrAlreadyTerminal is returned when mutating a booking that is already
	// completed or cancelled.
	ErrAlreadyTerminal = errors.New("booking is already in a terminal state")

	// ErrRideBusy is returned when the per-ride lock could not be acquired
	// within the wait budget.
	ErrRideBusy = errors.New("ride is busy, retry")
)
