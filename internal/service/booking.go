package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/fees"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// BookingService orchestrates the booking lifecycle: it validates requests
// against ride state and seat inventory, drives payment authorization, and
// unwinds correctly on conflict or rejection.
//
// Bookings are created PENDING with capacity reserved and a payment hold in
// place; the driver then accepts (PENDING -> CONFIRMED) or rejects. The ride
// lock is never held across the gateway's authorization call: the service
// validates, releases, authorizes, then re-acquires and re-validates before
// committing.
type BookingService struct {
	rideRepo            repository.RideRepository
	bookingRepo         repository.BookingRepository
	lockStore           redis.LockStoreInterface
	seatCache           redis.SeatCacheInterface
	gateway             PaymentGateway
	calculator          *fees.Calculator
	notificationService *NotificationService

	currency string
	now      func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	lockStore redis.LockStoreInterface,
	seatCache redis.SeatCacheInterface,
	gateway PaymentGateway,
	calculator *fees.Calculator,
	notificationService *NotificationService,
	currency string,
) *BookingService {
	return &BookingService{
		rideRepo:            rideRepo,
		bookingRepo:         bookingRepo,
		lockStore:           lockStore,
		seatCache:           seatCache,
		gateway:             gateway,
		calculator:          calculator,
		notificationService: notificationService,
		currency:            currency,
		now:                 time.Now,
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

// RequestBookingRequest contains the parameters for requesting a booking.
type RequestBookingRequest struct {
	RideID        string
	RiderID       string
	NumberOfSeats int
	PickupAddress string
	Pickup        *domain.Coordinates
}

// RequestBooking validates the request, authorizes payment and creates the
// booking with its seats reserved. A declined or failed authorization leaves
// inventory untouched.
func (s *BookingService) RequestBooking(ctx context.Context, req RequestBookingRequest) (*domain.Booking, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if req.NumberOfSeats <= 0 {
		return nil, ErrInvalidSeatCount
	}

	// First pass: check the request against current state before paying for
	// a gateway round trip. The authoritative check runs again at commit.
	if err := acquireRideLock(ctx, s.lockStore, req.RideID); err != nil {
		return nil, err
	}
	ride, _, err := s.validateRequest(ctx, req)
	_ = s.lockStore.ReleaseRideLock(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	// Authorization happens outside the lock: it is the one high-latency
	// call in the flow, and a timed-out or cancelled call must leave no
	// partial reservation behind.
	subtotal := ride.PricePerSeat * float64(req.NumberOfSeats)
	total := s.calculator.RiderTotal(subtotal).Total

	var handle string
	if total > 0 {
		handle, err = s.gateway.Authorize(ctx, total, s.currency, req.RiderID)
		if err != nil {
			return nil, err
		}
	}

	// Commit: re-acquire the lock and re-validate; the ride may have filled
	// up, started or been cancelled while the authorization was in flight.
	if err := acquireRideLock(ctx, s.lockStore, req.RideID); err != nil {
		s.voidHandle(ctx, handle)
		return nil, err
	}
	defer func() { _ = s.lockStore.ReleaseRideLock(ctx, req.RideID) }()

	ride, bookings, err := s.validateRequest(ctx, req)
	if err != nil {
		s.voidHandle(ctx, handle)
		return nil, err
	}

	booking := &domain.Booking{
		ID:               uuid.New().String(),
		RideID:           req.RideID,
		RiderID:          req.RiderID,
		NumberOfSeats:    req.NumberOfSeats,
		Status:           domain.BookingStatusPending,
		PickupStatus:     domain.PickupStatusPending,
		PickupAddress:    req.PickupAddress,
		Pickup:           req.Pickup,
		ConfirmationCode: newConfirmationCode(),
		PaymentRef:       handle,
		CreatedAt:        s.now(),
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		s.voidHandle(ctx, handle)
		return nil, err
	}

	ride.AvailableSeats = AvailableSeats(ride, bookings) - req.NumberOfSeats
	_ = s.rideRepo.Update(ctx, ride)
	if s.seatCache != nil {
		_ = s.seatCache.SetAvailableSeats(ctx, ride.ID, ride.AvailableSeats)
	}

	_ = s.notificationService.NotifyBookingRequested(ctx, ride, booking)

	return booking, nil
}

// validateRequest loads the ride and its bookings and checks the request
// against ride state, duplicate bookings and seat inventory. Callers must
// hold the ride lock.
func (s *BookingService) validateRequest(ctx context.Context, req RequestBookingRequest) (*domain.Ride, []*domain.Booking, error) {
	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, nil, err
	}
	if domain.NormalizeRideStatus(ride.Status) != domain.RideStatusScheduled {
		return nil, nil, ErrRideNotBookable
	}

	bookings, err := s.bookingRepo.GetByRideID(ctx, req.RideID)
	if err != nil {
		return nil, nil, err
	}
	if ActiveBookingForRider(bookings, req.RiderID) != nil {
		return nil, nil, ErrDuplicateBooking
	}
	if req.NumberOfSeats > AvailableSeats(ride, bookings) {
		return nil, nil, ErrInsufficientCapacity
	}

	return ride, bookings, nil
}

// CancelBooking cancels a rider's own booking, voids its authorization and
// releases the seats.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, riderID string) error {
	if bookingID == "" {
		return ErrInvalidBookingID
	}
	if riderID == "" {
		return ErrInvalidRiderID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if err := acquireRideLock(ctx, s.lockStore, booking.RideID); err != nil {
		return err
	}
	defer func() { _ = s.lockStore.ReleaseRideLock(ctx, booking.RideID) }()

	// Reload under the lock; the first read only located the ride to lock.
	booking, err = s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.RiderID != riderID {
		return ErrForbidden
	}
	if booking.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	ride, err := s.rideRepo.GetByID(ctx, booking.RideID)
	if err != nil {
		return err
	}
	if ride.Status.IsTerminal() {
		return ErrInvalidTransition
	}

	if booking.PaymentRef != "" {
		_ = s.gateway.Void(ctx, booking.PaymentRef)
	}
	booking.Status = domain.BookingStatusCancelled
	booking.CancelledAt = s.now()
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return err
	}

	refreshAvailability(ctx, s.rideRepo, s.bookingRepo, s.seatCache, ride)
	_ = s.notificationService.NotifyBookingCancelled(ctx, booking)

	return nil
}

// AcceptBooking confirms a pending booking on behalf of the ride's driver.
// Seats were already reserved at request time, so confirmation changes no
// inventory.
func (s *BookingService) AcceptBooking(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	booking, ride, err := s.lockPendingBooking(ctx, bookingID, driverID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.lockStore.ReleaseRideLock(ctx, ride.ID) }()

	bookings, err := s.bookingRepo.GetByRideID(ctx, ride.ID)
	if err != nil {
		return nil, err
	}
	// Consistency assertion, not a re-validation: pending seats already count
	// against capacity, so this only fires on drifted rows.
	if ReservedSeats(bookings) > ride.TotalSeats {
		return nil, ErrInsufficientCapacity
	}

	booking.Status = domain.BookingStatusConfirmed
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}

	_ = s.notificationService.NotifyBookingConfirmed(ctx, booking)

	return booking, nil
}

// RejectBooking declines a pending booking on behalf of the ride's driver,
// voiding the rider's authorization and releasing the seats.
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, driverID string) error {
	booking, ride, err := s.lockPendingBooking(ctx, bookingID, driverID)
	if err != nil {
		return err
	}
	defer func() { _ = s.lockStore.ReleaseRideLock(ctx, ride.ID) }()

	if booking.PaymentRef != "" {
		_ = s.gateway.Void(ctx, booking.PaymentRef)
	}
	booking.Status = domain.BookingStatusCancelled
	booking.CancelledAt = s.now()
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return err
	}

	refreshAvailability(ctx, s.rideRepo, s.bookingRepo, s.seatCache, ride)
	_ = s.notificationService.NotifyBookingCancelled(ctx, booking)

	return nil
}

// lockPendingBooking acquires the ride lock and returns a pending booking
// together with its ride, verifying the driver owns the ride. The caller
// releases the lock.
func (s *BookingService) lockPendingBooking(ctx context.Context, bookingID, driverID string) (*domain.Booking, *domain.Ride, error) {
	if bookingID == "" {
		return nil, nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, nil, ErrInvalidDriverID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}

	if err := acquireRideLock(ctx, s.lockStore, booking.RideID); err != nil {
		return nil, nil, err
	}

	release := func() { _ = s.lockStore.ReleaseRideLock(ctx, booking.RideID) }

	booking, err = s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		release()
		return nil, nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, booking.RideID)
	if err != nil {
		release()
		return nil, nil, err
	}
	if ride.DriverID != driverID {
		release()
		return nil, nil, ErrForbidden
	}
	if booking.Status.IsTerminal() {
		release()
		return nil, nil, ErrAlreadyTerminal
	}
	if booking.Status != domain.BookingStatusPending {
		release()
		return nil, nil, ErrInvalidTransition
	}

	return booking, ride, nil
}

// MarkPickedUp records a passenger pickup. Legal only while the parent ride
// is in progress; the sub-state is monotonic, so repeated calls are no-ops.
func (s *BookingService) MarkPickedUp(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := acquireRideLock(ctx, s.lockStore, booking.RideID); err != nil {
		return nil, err
	}
	defer func() { _ = s.lockStore.ReleaseRideLock(ctx, booking.RideID) }()

	booking, err = s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driverID {
		return nil, ErrForbidden
	}
	if ride.Status != domain.RideStatusInProgress {
		return nil, ErrInvalidTransition
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, ErrInvalidTransition
	}

	if booking.PickupStatus == domain.PickupStatusPickedUp {
		return booking, nil
	}

	booking.PickupStatus = domain.PickupStatusPickedUp
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}

	_ = s.notificationService.NotifyPassengerPickedUp(ctx, booking)

	return booking, nil
}

// GetBooking retrieves a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	return s.bookingRepo.GetByID(ctx, bookingID)
}

// ListRiderBookings retrieves all bookings made by a rider.
func (s *BookingService) ListRiderBookings(ctx context.Context, riderID string) ([]*domain.Booking, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.bookingRepo.GetByRiderID(ctx, riderID)
}

func (s *BookingService) voidHandle(ctx context.Context, handle string) {
	if handle == "" {
		return
	}
	_ = s.gateway.Void(ctx, handle)
}

// newConfirmationCode builds a short human-displayable booking reference.
func newConfirmationCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
