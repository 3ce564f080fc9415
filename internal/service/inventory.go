package service

import (
	"context"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// Seat inventory is always derived from the booking list. The ride's
// AvailableSeats field is a cache refreshed opportunistically and is never
// trusted for invariant enforcement.

// ReservedSeats sums the seats held by bookings that count against capacity.
func ReservedSeats(bookings []*domain.Booking) int {
	total := 0
	for _, b := range bookings {
		if b.Status.CountsAgainstCapacity() {
			total += b.NumberOfSeats
		}
	}
	return total
}

// AvailableSeats computes the authoritative seats remaining on a ride.
func AvailableSeats(ride *domain.Ride, bookings []*domain.Booking) int {
	return ride.TotalSeats - ReservedSeats(bookings)
}

// IsFull reports whether the ride has no seats remaining.
func IsFull(ride *domain.Ride, bookings []*domain.Booking) bool {
	return AvailableSeats(ride, bookings) <= 0
}

// ActiveBookingForRider returns the rider's non-cancelled booking on the
// ride, or nil. One active booking per rider per ride.
func ActiveBookingForRider(bookings []*domain.Booking, riderID string) *domain.Booking {
	for _, b := range bookings {
		if b.RiderID == riderID && b.Status != domain.BookingStatusCancelled {
			return b
		}
	}
	return nil
}

// refreshAvailability recomputes the ride's availability from its bookings and
// writes it back to the ride row and the seat cache. Both writes are
// best-effort refreshes of a hint; failures do not fail the calling mutation.
func refreshAvailability(
	ctx context.Context,
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	seatCache redis.SeatCacheInterface,
	ride *domain.Ride,
) {
	bookings, err := bookingRepo.GetByRideID(ctx, ride.ID)
	if err != nil {
		return
	}

	ride.AvailableSeats = AvailableSeats(ride, bookings)
	_ = rideRepo.Update(ctx, ride)

	if seatCache != nil {
		_ = seatCache.SetAvailableSeats(ctx, ride.ID, ride.AvailableSeats)
	}
}
