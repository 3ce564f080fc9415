package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// RIDE CREATION
// ──────────────────────────────────────────────

func TestRideCreation_ValidInput_Succeeds(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride, err := h.rides.CreateRide(context.Background(), service.CreateRideRequest{
		DriverID:      "driver-1",
		Origin:        &domain.Coordinates{Lat: 37.77, Lng: -122.42},
		Destination:   &domain.Coordinates{Lat: 37.34, Lng: -121.89},
		DepartureTime: time.Now().Add(48 * time.Hour),
		TotalSeats:    3,
		PricePerSeat:  15.00,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.ID == "" {
		t.Error("expected a generated ride ID")
	}
	if ride.Status != domain.RideStatusScheduled {
		t.Errorf("expected SCHEDULED, got %s", ride.Status)
	}
	if ride.AvailableSeats != 3 {
		t.Errorf("expected all seats available, got %d", ride.AvailableSeats)
	}
	if h.rideRepo.CountRides() != 1 {
		t.Errorf("expected 1 persisted ride, got %d", h.rideRepo.CountRides())
	}
}

func TestRideCreation_ValidatesInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	departure := time.Now().Add(time.Hour)

	cases := []struct {
		name string
		req  service.CreateRideRequest
		want error
	}{
		{"missing driver", service.CreateRideRequest{DepartureTime: departure, TotalSeats: 2}, service.ErrInvalidDriverID},
		{"zero seats", service.CreateRideRequest{DriverID: "d", DepartureTime: departure}, service.ErrInvalidCapacity},
		{"negative seats", service.CreateRideRequest{DriverID: "d", DepartureTime: departure, TotalSeats: -1}, service.ErrInvalidCapacity},
		{"zero departure", service.CreateRideRequest{DriverID: "d", TotalSeats: 2}, service.ErrInvalidDepartureTime},
		{"negative price", service.CreateRideRequest{DriverID: "d", DepartureTime: departure, TotalSeats: 2, PricePerSeat: -1}, service.ErrInvalidPrice},
	}
	for _, c := range cases {
		if _, err := h.rides.CreateRide(ctx, c.req); !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}
}

func TestRideCreation_PriceBelowFees_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	// At $0.10 per seat the flat processing fee alone exceeds the gross, so
	// the driver's net would be negative.
	_, err := h.rides.CreateRide(context.Background(), service.CreateRideRequest{
		DriverID:      "driver-1",
		DepartureTime: time.Now().Add(time.Hour),
		TotalSeats:    2,
		PricePerSeat:  0.10,
	})
	if !errors.Is(err, service.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

// ──────────────────────────────────────────────
// RIDE UPDATE / DELETE
// ──────────────────────────────────────────────

func TestRideUpdate_EditsScheduledRide(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	newDeparture := time.Now().Add(72 * time.Hour)

	ride, err := h.rides.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:        "ride-1",
		DriverID:      "driver-1",
		DepartureTime: newDeparture,
		TotalSeats:    6,
		PricePerSeat:  12.50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.TotalSeats != 6 || ride.PricePerSeat != 12.50 {
		t.Errorf("edit not applied: %+v", ride)
	}
	if ride.AvailableSeats != 6 {
		t.Errorf("expected availability recomputed to 6, got %d", ride.AvailableSeats)
	}
}

func TestRideUpdate_CannotShrinkBelowReservedSeats(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 3, domain.BookingStatusConfirmed, "auth_held")

	_, err := h.rides.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:        "ride-1",
		DriverID:      "driver-1",
		DepartureTime: time.Now().Add(time.Hour),
		TotalSeats:    2,
		PricePerSeat:  10.00,
	})
	if !errors.Is(err, service.ErrInsufficientCapacity) {
		t.Fatalf("expected ErrInsufficientCapacity, got %v", err)
	}
}

func TestRideUpdate_NonScheduled_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)
	ride.Status = domain.RideStatusInProgress

	_, err := h.rides.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:        "ride-1",
		DriverID:      "driver-1",
		DepartureTime: time.Now().Add(time.Hour),
		TotalSeats:    4,
		PricePerSeat:  10.00,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRideDelete_CancelsAttachedBookings(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 2, domain.BookingStatusPending, "auth_held")

	if err := h.rides.DeleteRide(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.rideRepo.CountRides() != 0 {
		t.Error("expected ride removed")
	}
	if got := h.bookingRepo.GetBooking("booking-1").Status; got != domain.BookingStatusCancelled {
		t.Errorf("expected attached booking CANCELLED, got %s", got)
	}
	if !h.gateway.WasVoided("auth_held") {
		t.Error("expected authorization voided on delete")
	}
}

func TestRideDelete_NonScheduled_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)
	ride.Status = domain.RideStatusInProgress

	err := h.rides.DeleteRide(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

// ──────────────────────────────────────────────
// RIDE START
// ──────────────────────────────────────────────

func TestRideStart_OnDepartureDay_Succeeds(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	departure := time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)
	h.addScheduledRide("ride-1", "driver-1", departure, 4, 10.00)
	// Morning of the departure day: starting early in the day is allowed.
	h.freezeClock(time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC))

	ride, err := h.rides.StartRide(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", ride.Status)
	}
	if h.locks.IsLocked("ride-1") {
		t.Error("lock must be released after start")
	}
}

func TestRideStart_WrongDay_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	departure := time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)
	h.addScheduledRide("ride-1", "driver-1", departure, 4, 10.00)

	for _, at := range []time.Time{
		time.Date(2026, 5, 19, 23, 0, 0, 0, time.UTC), // day before
		time.Date(2026, 5, 21, 1, 0, 0, 0, time.UTC),  // day after
	} {
		h.freezeClock(at)
		if _, err := h.rides.StartRide(context.Background(), "ride-1", "driver-1"); !errors.Is(err, service.ErrInvalidTransition) {
			t.Errorf("at %v: expected ErrInvalidTransition, got %v", at, err)
		}
	}
}

func TestRideStart_AutoRejectsPendingBookings(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	departure := time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)
	h.addScheduledRide("ride-1", "driver-1", departure, 4, 10.00)
	h.addBooking("booking-conf", "ride-1", "rider-1", 1, domain.BookingStatusConfirmed, "auth_conf")
	h.addBooking("booking-pend", "ride-1", "rider-2", 2, domain.BookingStatusPending, "auth_pend")
	h.freezeClock(departure)

	ride, err := h.rides.StartRide(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := h.bookingRepo.GetBooking("booking-pend").Status; got != domain.BookingStatusCancelled {
		t.Errorf("expected pending booking CANCELLED at departure, got %s", got)
	}
	if !h.gateway.WasVoided("auth_pend") {
		t.Error("expected the pending booking's authorization voided")
	}
	if got := h.bookingRepo.GetBooking("booking-conf").Status; got != domain.BookingStatusConfirmed {
		t.Errorf("confirmed booking must survive the start, got %s", got)
	}
	// The two pending seats return to inventory.
	if ride.AvailableSeats != 3 {
		t.Errorf("expected 3 seats available after auto-reject, got %d", ride.AvailableSeats)
	}
}

func TestRideStart_DriverAlreadyDriving_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	departure := time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)
	h.addScheduledRide("ride-1", "driver-1", departure, 4, 10.00)
	other := h.addScheduledRide("ride-2", "driver-1", departure, 2, 5.00)
	other.Status = domain.RideStatusInProgress
	h.freezeClock(departure)

	_, err := h.rides.StartRide(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrDriverHasActiveRide) {
		t.Fatalf("expected ErrDriverHasActiveRide, got %v", err)
	}
}

func TestRideStart_Twice_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	departure := time.Date(2026, 5, 20, 17, 0, 0, 0, time.UTC)
	h.addScheduledRide("ride-1", "driver-1", departure, 4, 10.00)
	h.freezeClock(departure)

	if _, err := h.rides.StartRide(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if _, err := h.rides.StartRide(context.Background(), "ride-1", "driver-1"); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second start, got %v", err)
	}
}

func TestRideStart_WrongDriver_Forbidden(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)

	_, err := h.rides.StartRide(context.Background(), "ride-1", "driver-2")
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

// ──────────────────────────────────────────────
// RIDE CANCEL
// ──────────────────────────────────────────────

func TestRideCancel_CascadesToBookings(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusConfirmed, "auth_1")
	h.addBooking("booking-2", "ride-1", "rider-2", 2, domain.BookingStatusPending, "auth_2")

	if err := h.rides.CancelRide(context.Background(), "ride-1", "driver-1", "car trouble"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ride := h.rideRepo.GetRide("ride-1")
	if ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", ride.Status)
	}
	if ride.CancelReason != "car trouble" {
		t.Errorf("expected cancel reason recorded, got %q", ride.CancelReason)
	}
	if ride.CancelledAt.IsZero() {
		t.Error("expected CancelledAt set")
	}

	for _, id := range []string{"booking-1", "booking-2"} {
		if got := h.bookingRepo.GetBooking(id).Status; got != domain.BookingStatusCancelled {
			t.Errorf("%s: expected CANCELLED, got %s", id, got)
		}
	}
	if !h.gateway.WasVoided("auth_1") || !h.gateway.WasVoided("auth_2") {
		t.Error("expected every held authorization voided")
	}
	if h.gateway.CaptureCallCount != 0 {
		t.Error("a cancelled ride must never capture")
	}
}

func TestRideCancel_InProgress_Allowed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)
	ride.Status = domain.RideStatusInProgress

	if err := h.rides.CancelRide(context.Background(), "ride-1", "driver-1", "accident"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := h.rideRepo.GetRide("ride-1").Status; got != domain.RideStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", got)
	}
}

func TestRideCancel_Terminal_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)
	ride.Status = domain.RideStatusCompleted

	err := h.rides.CancelRide(context.Background(), "ride-1", "driver-1", "too late")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

// ──────────────────────────────────────────────
// RIDE COMPLETE
// ──────────────────────────────────────────────

func TestRideComplete_FromScheduled_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)

	_, err := h.rides.CompleteRide(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if h.locks.IsLocked("ride-1") {
		t.Error("lock must not leak on rejection")
	}
}

func TestRideComplete_WrongDriver_Forbidden(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)
	ride.Status = domain.RideStatusInProgress

	_, err := h.rides.CompleteRide(context.Background(), "ride-1", "driver-2")
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
