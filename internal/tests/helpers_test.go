package tests

import (
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/fees"
	"carpool/internal/service"
)

// harness wires the lifecycle services against mocks. Tests mutate the mocks
// directly to set up state and inject failures.
type harness struct {
	rideRepo    *MockRideRepository
	bookingRepo *MockBookingRepository
	locks       *MockLockStore
	seatCache   *MockSeatCache
	gateway     *MockPaymentGateway

	rides    *service.RideService
	bookings *service.BookingService
	settle   *service.SettlementService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithPolicy(t, fees.Policy{
		ProcessingFeePercent: 3.0,
		ProcessingFeeFlat:    0.30,
		CommissionPercent:    10.0,
	})
}

func newHarnessWithPolicy(t *testing.T, policy fees.Policy) *harness {
	t.Helper()

	calc, err := fees.NewCalculator(policy)
	if err != nil {
		t.Fatalf("invalid test fee policy: %v", err)
	}

	h := &harness{
		rideRepo:    NewMockRideRepository(),
		bookingRepo: NewMockBookingRepository(),
		locks:       NewMockLockStore(),
		seatCache:   NewMockSeatCache(),
		gateway:     NewMockPaymentGateway(),
	}

	notifications := service.NewNotificationService()
	h.settle = service.NewSettlementService(h.bookingRepo, h.gateway, calc, notifications)
	h.rides = service.NewRideService(h.rideRepo, h.bookingRepo, h.locks, h.seatCache, h.gateway, calc, h.settle, notifications)
	h.bookings = service.NewBookingService(h.rideRepo, h.bookingRepo, h.locks, h.seatCache, h.gateway, calc, notifications, "USD")

	return h
}

// addScheduledRide seeds a scheduled ride departing at the given time.
func (h *harness) addScheduledRide(id, driverID string, departure time.Time, seats int, price float64) *domain.Ride {
	ride := &domain.Ride{
		ID:             id,
		DriverID:       driverID,
		DepartureTime:  departure,
		TotalSeats:     seats,
		AvailableSeats: seats,
		PricePerSeat:   price,
		Status:         domain.RideStatusScheduled,
		CreatedAt:      time.Now(),
	}
	h.rideRepo.AddRide(ride)
	return ride
}

// addBooking seeds a booking in the given status.
func (h *harness) addBooking(id, rideID, riderID string, seats int, status domain.BookingStatus, paymentRef string) *domain.Booking {
	booking := &domain.Booking{
		ID:            id,
		RideID:        rideID,
		RiderID:       riderID,
		NumberOfSeats: seats,
		Status:        status,
		PickupStatus:  domain.PickupStatusPending,
		PaymentRef:    paymentRef,
		CreatedAt:     time.Now(),
	}
	h.bookingRepo.AddBooking(booking)
	if paymentRef != "" {
		h.gateway.SeedAuthorization(paymentRef)
	}
	return booking
}

// freezeClock pins both lifecycle services to a fixed instant.
func (h *harness) freezeClock(at time.Time) {
	h.rides.SetClock(func() time.Time { return at })
	h.bookings.SetClock(func() time.Time { return at })
}
