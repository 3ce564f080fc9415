package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/fees"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// BOOKING REQUEST
// ──────────────────────────────────────────────

func TestBookingRequest_CreatesPendingWithAuthorization(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(24*time.Hour), 4, 10.00)

	booking, err := h.bookings.RequestBooking(context.Background(), service.RequestBookingRequest{
		RideID:        "ride-1",
		RiderID:       "rider-1",
		NumberOfSeats: 2,
		PickupAddress: "12 Main St",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != domain.BookingStatusPending {
		t.Errorf("expected PENDING, got %s", booking.Status)
	}
	if booking.PaymentRef == "" {
		t.Error("expected an authorization handle on the booking")
	}
	if booking.ConfirmationCode == "" {
		t.Error("expected a confirmation code")
	}
	if h.gateway.AuthorizeCallCount != 1 {
		t.Errorf("expected 1 authorize call, got %d", h.gateway.AuthorizeCallCount)
	}
	if h.gateway.WasCaptured(booking.PaymentRef) {
		t.Error("authorization must not be captured at request time")
	}

	// Seats are held while the request awaits the driver's decision.
	ride := h.rideRepo.GetRide("ride-1")
	if ride.AvailableSeats != 2 {
		t.Errorf("expected 2 seats remaining, got %d", ride.AvailableSeats)
	}
	if h.locks.IsLocked("ride-1") {
		t.Error("ride lock must be released after commit")
	}
}

func TestBookingRequest_ValidatesInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  service.RequestBookingRequest
		want error
	}{
		{"missing ride", service.RequestBookingRequest{RiderID: "r", NumberOfSeats: 1}, service.ErrInvalidRideID},
		{"missing rider", service.RequestBookingRequest{RideID: "x", NumberOfSeats: 1}, service.ErrInvalidRiderID},
		{"zero seats", service.RequestBookingRequest{RideID: "x", RiderID: "r"}, service.ErrInvalidSeatCount},
		{"negative seats", service.RequestBookingRequest{RideID: "x", RiderID: "r", NumberOfSeats: -1}, service.ErrInvalidSeatCount},
	}
	for _, c := range cases {
		if _, err := h.bookings.RequestBooking(ctx, c.req); !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}

	if h.gateway.AuthorizeCallCount != 0 {
		t.Errorf("invalid requests must not reach the gateway, got %d calls", h.gateway.AuthorizeCallCount)
	}
}

func TestBookingRequest_RideNotScheduled_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)
	ride.Status = domain.RideStatusInProgress

	_, err := h.bookings.RequestBooking(context.Background(), service.RequestBookingRequest{
		RideID: "ride-1", RiderID: "rider-1", NumberOfSeats: 1,
	})
	if !errors.Is(err, service.ErrRideNotBookable) {
		t.Fatalf("expected ErrRideNotBookable, got %v", err)
	}
	if h.bookingRepo.CountBookings() != 0 {
		t.Error("no booking may be created on a non-scheduled ride")
	}
}

func TestBookingRequest_InsufficientCapacity_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 3, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 2, domain.BookingStatusConfirmed, "auth_seed")

	_, err := h.bookings.RequestBooking(context.Background(), service.RequestBookingRequest{
		RideID: "ride-1", RiderID: "rider-2", NumberOfSeats: 2,
	})
	if !errors.Is(err, service.ErrInsufficientCapacity) {
		t.Fatalf("expected ErrInsufficientCapacity, got %v", err)
	}
	if h.gateway.AuthorizeCallCount != 0 {
		t.Error("capacity check must run before the gateway round trip")
	}
}

func TestBookingRequest_DuplicateRider_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusPending, "auth_seed")

	_, err := h.bookings.RequestBooking(context.Background(), service.RequestBookingRequest{
		RideID: "ride-1", RiderID: "rider-1", NumberOfSeats: 1,
	})
	if !errors.Is(err, service.ErrDuplicateBooking) {
		t.Fatalf("expected ErrDuplicateBooking, got %v", err)
	}
}

func TestBookingRequest_CancelledBookingDoesNotBlockRebooking(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusCancelled, "")

	if _, err := h.bookings.RequestBooking(context.Background(), service.RequestBookingRequest{
		RideID: "ride-1", RiderID: "rider-1", NumberOfSeats: 1,
	}); err != nil {
		t.Fatalf("expected rebooking after cancellation to succeed, got %v", err)
	}
}

func TestBookingRequest_PaymentDeclined_NoStateChange(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.gateway.DeclineAll = true

	_, err := h.bookings.RequestBooking(context.Background(), service.RequestBookingRequest{
		RideID: "ride-1", RiderID: "rider-1", NumberOfSeats: 2,
	})
	if !errors.Is(err, service.ErrPaymentDeclined) {
		t.Fatalf("expected ErrPaymentDeclined, got %v", err)
	}

	if h.bookingRepo.CountBookings() != 0 {
		t.Error("declined payment must not create a booking")
	}
	ride := h.rideRepo.GetRide("ride-1")
	if ride.AvailableSeats != 4 {
		t.Errorf("declined payment must not consume seats, got %d available", ride.AvailableSeats)
	}
	if h.locks.IsLocked("ride-1") {
		t.Error("ride lock must not leak on decline")
	}
}

func TestBookingRequest_ZeroTotal_SkipsGateway(t *testing.T) {
	t.Parallel()

	// No flat fee, so a free ride produces a zero total.
	h := newHarnessWithPolicy(t, fees.Policy{
		ProcessingFeePercent: 3.0,
		CommissionPercent:    10.0,
	})
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 0)

	booking, err := h.bookings.RequestBooking(context.Background(), service.RequestBookingRequest{
		RideID: "ride-1", RiderID: "rider-1", NumberOfSeats: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.PaymentRef != "" {
		t.Errorf("zero-amount booking must carry no handle, got %q", booking.PaymentRef)
	}
	if h.gateway.AuthorizeCallCount != 0 {
		t.Errorf("expected no authorize calls, got %d", h.gateway.AuthorizeCallCount)
	}
}

func TestBookingRequest_RideFillsDuringAuthorization_Voids(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 2, 10.00)

	// Another rider takes the remaining seats between the precheck and the
	// commit. The mock repo is shared state, so seeding the conflicting
	// booking before the call exercises the same re-validation path via a
	// create error injected at commit time instead; here we simulate the
	// squeeze by filling the ride through a competing request first.
	if _, err := h.bookings.RequestBooking(context.Background(), service.RequestBookingRequest{
		RideID: "ride-1", RiderID: "rider-1", NumberOfSeats: 2,
	}); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	_, err := h.bookings.RequestBooking(context.Background(), service.RequestBookingRequest{
		RideID: "ride-1", RiderID: "rider-2", NumberOfSeats: 1,
	})
	if !errors.Is(err, service.ErrInsufficientCapacity) {
		t.Fatalf("expected ErrInsufficientCapacity, got %v", err)
	}
	if got := len(h.gateway.DanglingAuthorizations()); got != 1 {
		t.Errorf("only the winning booking may hold an authorization, %d dangling", got)
	}
}

// ──────────────────────────────────────────────
// BOOKING CANCEL
// ──────────────────────────────────────────────

func TestBookingCancel_ReleasesSeatsAndVoids(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	ride.AvailableSeats = 2
	h.addBooking("booking-1", "ride-1", "rider-1", 2, domain.BookingStatusConfirmed, "auth_held")

	if err := h.bookings.CancelBooking(context.Background(), "booking-1", "rider-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	booking := h.bookingRepo.GetBooking("booking-1")
	if booking.Status != domain.BookingStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", booking.Status)
	}
	if booking.CancelledAt.IsZero() {
		t.Error("expected CancelledAt to be set")
	}
	if !h.gateway.WasVoided("auth_held") {
		t.Error("expected the held authorization to be voided")
	}
	if got := h.rideRepo.GetRide("ride-1").AvailableSeats; got != 4 {
		t.Errorf("expected all 4 seats released, got %d", got)
	}
}

func TestBookingCancel_WrongRider_Forbidden(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusPending, "auth_held")

	err := h.bookings.CancelBooking(context.Background(), "booking-1", "rider-2")
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if h.gateway.WasVoided("auth_held") {
		t.Error("a forbidden cancel must not void the authorization")
	}
}

func TestBookingCancel_AlreadyTerminal_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusCancelled, "")

	err := h.bookings.CancelBooking(context.Background(), "booking-1", "rider-1")
	if !errors.Is(err, service.ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestBookingCancel_TerminalRide_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)
	ride.Status = domain.RideStatusCompleted
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusConfirmed, "auth_held")

	err := h.bookings.CancelBooking(context.Background(), "booking-1", "rider-1")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

// ──────────────────────────────────────────────
// DRIVER ACCEPT / REJECT
// ──────────────────────────────────────────────

func TestBookingAccept_ConfirmsPending(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 2, domain.BookingStatusPending, "auth_held")

	booking, err := h.bookings.AcceptBooking(context.Background(), "booking-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", booking.Status)
	}
	// Acceptance keeps the hold; capture happens at settlement.
	if h.gateway.WasCaptured("auth_held") || h.gateway.WasVoided("auth_held") {
		t.Error("accepting must leave the authorization held")
	}
}

func TestBookingAccept_WrongDriver_Forbidden(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusPending, "auth_held")

	_, err := h.bookings.AcceptBooking(context.Background(), "booking-1", "driver-2")
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestBookingAccept_NonPending_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusConfirmed, "auth_held")

	_, err := h.bookings.AcceptBooking(context.Background(), "booking-1", "driver-1")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	h.addBooking("booking-2", "ride-1", "rider-2", 1, domain.BookingStatusCancelled, "")
	if _, err := h.bookings.AcceptBooking(context.Background(), "booking-2", "driver-1"); !errors.Is(err, service.ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal for cancelled booking, got %v", err)
	}
}

func TestBookingReject_VoidsAndReleases(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now().Add(time.Hour), 4, 10.00)
	ride.AvailableSeats = 3
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusPending, "auth_held")

	if err := h.bookings.RejectBooking(context.Background(), "booking-1", "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := h.bookingRepo.GetBooking("booking-1").Status; got != domain.BookingStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", got)
	}
	if !h.gateway.WasVoided("auth_held") {
		t.Error("rejecting must void the rider's authorization")
	}
	if got := h.rideRepo.GetRide("ride-1").AvailableSeats; got != 4 {
		t.Errorf("expected seats released, got %d available", got)
	}
}

// ──────────────────────────────────────────────
// PICKUP
// ──────────────────────────────────────────────

func TestMarkPickedUp_RequiresRideInProgress(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusConfirmed, "auth_held")

	_, err := h.bookings.MarkPickedUp(context.Background(), "booking-1", "driver-1")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition while scheduled, got %v", err)
	}
}

func TestMarkPickedUp_SetsSubStateOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)
	ride.Status = domain.RideStatusInProgress
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusConfirmed, "auth_held")

	booking, err := h.bookings.MarkPickedUp(context.Background(), "booking-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.PickupStatus != domain.PickupStatusPickedUp {
		t.Errorf("expected PICKED_UP, got %s", booking.PickupStatus)
	}

	updates := h.bookingRepo.UpdateCallCount

	// Second call is a no-op, not an error.
	if _, err := h.bookings.MarkPickedUp(context.Background(), "booking-1", "driver-1"); err != nil {
		t.Fatalf("repeated pickup must be a no-op, got %v", err)
	}
	if h.bookingRepo.UpdateCallCount != updates {
		t.Error("repeated pickup must not write")
	}
}

func TestMarkPickedUp_PendingBooking_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ride := h.addScheduledRide("ride-1", "driver-1", time.Now(), 4, 10.00)
	ride.Status = domain.RideStatusInProgress
	h.addBooking("booking-1", "ride-1", "rider-1", 1, domain.BookingStatusPending, "auth_held")

	_, err := h.bookings.MarkPickedUp(context.Background(), "booking-1", "driver-1")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for pending booking, got %v", err)
	}
}
