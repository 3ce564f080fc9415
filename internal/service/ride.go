package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/fees"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// RideService governs the ride lifecycle: creation, editing, start, completion
// and cancellation, together with the cascades each transition implies.
type RideService struct {
	rideRepo            repository.RideRepository
	bookingRepo         repository.BookingRepository
	lockStore           redis.LockStoreInterface
	seatCache           redis.SeatCacheInterface
	gateway             PaymentGateway
	calculator          *fees.Calculator
	settlementService   *SettlementService
	notificationService *NotificationService

	now func() time.Time
}

// NewRideService creates a new RideService.
func NewRideService(
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	lockStore redis.LockStoreInterface,
	seatCache redis.SeatCacheInterface,
	gateway PaymentGateway,
	calculator *fees.Calculator,
	settlementService *SettlementService,
	notificationService *NotificationService,
) *RideService {
	return &RideService{
		rideRepo:            rideRepo,
		bookingRepo:         bookingRepo,
		lockStore:           lockStore,
		seatCache:           seatCache,
		gateway:             gateway,
		calculator:          calculator,
		settlementService:   settlementService,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *RideService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	DriverID      string
	Origin        *domain.Coordinates
	Destination   *domain.Coordinates
	RouteMiles    *float64
	DepartureTime time.Time
	TotalSeats    int
	PricePerSeat  float64
}

// CreateRide creates a new ride in SCHEDULED state.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.TotalSeats <= 0 {
		return nil, ErrInvalidCapacity
	}
	if req.DepartureTime.IsZero() {
		return nil, ErrInvalidDepartureTime
	}
	if req.PricePerSeat < 0 {
		return nil, ErrInvalidPrice
	}
	// A price whose driver net would be negative under the active policy is a
	// misconfigured listing, rejected up front rather than clamped at
	// settlement.
	if req.PricePerSeat > 0 && s.calculator.DriverNet(req.PricePerSeat).NetEarnings < 0 {
		return nil, ErrInvalidPrice
	}

	ride := &domain.Ride{
		ID:             uuid.New().String(),
		DriverID:       req.DriverID,
		Origin:         req.Origin,
		Destination:    req.Destination,
		RouteMiles:     req.RouteMiles,
		DepartureTime:  req.DepartureTime,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.TotalSeats,
		PricePerSeat:   req.PricePerSeat,
		Status:         domain.RideStatusScheduled,
		CreatedAt:      s.now(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	return ride, nil
}

// GetRide returns a ride with its availability recomputed from bookings.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookingRepo.GetByRideID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	ride.AvailableSeats = AvailableSeats(ride, bookings)
	if s.seatCache != nil {
		_ = s.seatCache.SetAvailableSeats(ctx, ride.ID, ride.AvailableSeats)
	}

	return ride, nil
}

// UpdateRideRequest contains the editable fields of a scheduled ride.
type UpdateRideRequest struct {
	RideID        string
	DriverID      string
	DepartureTime time.Time
	TotalSeats    int
	PricePerSeat  float64
}

// UpdateRide edits a ride's schedule, capacity or price. Only SCHEDULED rides
// are editable; affected riders are warned by an external collaborator, not
// here.
func (s *RideService) UpdateRide(ctx context.Context, req UpdateRideRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.TotalSeats <= 0 {
		return nil, ErrInvalidCapacity
	}
	if req.DepartureTime.IsZero() {
		return nil, ErrInvalidDepartureTime
	}
	if req.PricePerSeat < 0 {
		return nil, ErrInvalidPrice
	}
	if req.PricePerSeat > 0 && s.calculator.DriverNet(req.PricePerSeat).NetEarnings < 0 {
		return nil, ErrInvalidPrice
	}

	if err := acquireRideLock(ctx, s.lockStore, req.RideID); err != nil {
		return nil, err
	}
	defer func() { _ = s.lockStore.ReleaseRideLock(ctx, req.RideID) }()

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != req.DriverID {
		return nil, ErrForbidden
	}
	if domain.NormalizeRideStatus(ride.Status) != domain.RideStatusScheduled {
		return nil, ErrInvalidTransition
	}

	bookings, err := s.bookingRepo.GetByRideID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	// Capacity can only shrink down to the seats already reserved.
	if req.TotalSeats < ReservedSeats(bookings) {
		return nil, ErrInsufficientCapacity
	}

	ride.DepartureTime = req.DepartureTime
	ride.TotalSeats = req.TotalSeats
	ride.PricePerSeat = req.PricePerSeat
	ride.AvailableSeats = AvailableSeats(ride, bookings)

	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}
	if s.seatCache != nil {
		_ = s.seatCache.SetAvailableSeats(ctx, ride.ID, ride.AvailableSeats)
	}

	return ride, nil
}

// DeleteRide removes a SCHEDULED ride, cancelling and voiding any bookings
// already attached to it.
func (s *RideService) DeleteRide(ctx context.Context, rideID, driverID string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := acquireRideLock(ctx, s.lockStore, rideID); err != nil {
		return err
	}
	defer func() { _ = s.lockStore.ReleaseRideLock(ctx, rideID) }()

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.DriverID != driverID {
		return ErrForbidden
	}
	if domain.NormalizeRideStatus(ride.Status) != domain.RideStatusScheduled {
		return ErrInvalidTransition
	}

	if err := s.cancelActiveBookings(ctx, ride); err != nil {
		return err
	}

	if err := s.rideRepo.Delete(ctx, rideID); err != nil {
		return err
	}
	if s.seatCache != nil {
		_ = s.seatCache.InvalidateSeats(ctx, rideID)
	}

	return nil
}

// StartRide transitions a ride from SCHEDULED to IN_PROGRESS. Starting is
// only legal on the ride's departure date, and a driver may have at most one
// ride in progress. Bookings still pending at departure are auto-rejected.
func (s *RideService) StartRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if err := acquireRideLock(ctx, s.lockStore, rideID); err != nil {
		return nil, err
	}
	defer func() { _ = s.lockStore.ReleaseRideLock(ctx, rideID) }()

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driverID {
		return nil, ErrForbidden
	}
	if !domain.CanTransitionRide(ride.Status, domain.RideStatusInProgress) {
		return nil, ErrInvalidTransition
	}
	if !sameDay(ride.DepartureTime, s.now()) {
		return nil, ErrInvalidTransition
	}

	// The ride lock does not serialize starts of a driver's other rides, so
	// the single-active-ride check and the commit below share the driver lock.
	if err := acquireDriverLock(ctx, s.lockStore, driverID); err != nil {
		return nil, err
	}
	defer func() { _ = s.lockStore.ReleaseDriverLock(ctx, driverID) }()

	active, err := s.rideRepo.GetInProgressByDriverID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if active != nil && active.ID != ride.ID {
		return nil, ErrDriverHasActiveRide
	}

	bookings, err := s.bookingRepo.GetByRideID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	// Requests the driver never accepted expire at departure.
	for _, b := range bookings {
		if b.Status != domain.BookingStatusPending {
			continue
		}
		if err := s.cancelBookingRecord(ctx, b); err != nil {
			return nil, err
		}
	}

	ride.Status = domain.RideStatusInProgress
	ride.AvailableSeats = AvailableSeats(ride, bookings)
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}
	if s.seatCache != nil {
		_ = s.seatCache.SetAvailableSeats(ctx, ride.ID, ride.AvailableSeats)
	}

	_ = s.notificationService.NotifyRideStarted(ctx, ride, bookings)

	return ride, nil
}

// CompleteRide transitions a ride from IN_PROGRESS to COMPLETED and settles
// every confirmed booking. Settlement runs after the ride reaches its
// terminal state so capture calls never hold the ride lock.
func (s *RideService) CompleteRide(ctx context.Context, rideID, driverID string) (*domain.RideEarnings, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if err := acquireRideLock(ctx, s.lockStore, rideID); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		_ = s.lockStore.ReleaseRideLock(ctx, rideID)
		return nil, err
	}
	if ride.DriverID != driverID {
		_ = s.lockStore.ReleaseRideLock(ctx, rideID)
		return nil, ErrForbidden
	}
	if !domain.CanTransitionRide(ride.Status, domain.RideStatusCompleted) {
		_ = s.lockStore.ReleaseRideLock(ctx, rideID)
		return nil, ErrInvalidTransition
	}

	bookings, err := s.bookingRepo.GetByRideID(ctx, rideID)
	if err != nil {
		_ = s.lockStore.ReleaseRideLock(ctx, rideID)
		return nil, err
	}

	ride.Status = domain.RideStatusCompleted
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		_ = s.lockStore.ReleaseRideLock(ctx, rideID)
		return nil, err
	}

	// The ride is terminal: no mutation can race settlement from here on.
	_ = s.lockStore.ReleaseRideLock(ctx, rideID)

	earnings, err := s.settlementService.SettleRide(ctx, ride, bookings)
	if err != nil {
		return nil, err
	}

	_ = s.notificationService.NotifyRideCompleted(ctx, ride)

	return earnings, nil
}

// CancelRide transitions a ride to CANCELLED and cascades to every
// non-terminal booking, voiding their authorizations.
func (s *RideService) CancelRide(ctx context.Context, rideID, driverID, reason string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := acquireRideLock(ctx, s.lockStore, rideID); err != nil {
		return err
	}
	defer func() { _ = s.lockStore.ReleaseRideLock(ctx, rideID) }()

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.DriverID != driverID {
		return ErrForbidden
	}
	if !domain.CanTransitionRide(ride.Status, domain.RideStatusCancelled) {
		return ErrInvalidTransition
	}

	if err := s.cancelActiveBookings(ctx, ride); err != nil {
		return err
	}

	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = s.now()
	ride.CancelReason = reason
	ride.AvailableSeats = ride.TotalSeats

	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return err
	}
	if s.seatCache != nil {
		_ = s.seatCache.SetAvailableSeats(ctx, ride.ID, ride.AvailableSeats)
	}

	return nil
}

// RideEarnings computes the driver's earnings breakdown for a ride. For a
// completed ride the breakdown covers settled bookings; otherwise it projects
// over the bookings currently holding seats.
func (s *RideService) RideEarnings(ctx context.Context, rideID, driverID string) (*domain.RideEarnings, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if driverID != "" && ride.DriverID != driverID {
		return nil, ErrForbidden
	}

	bookings, err := s.bookingRepo.GetByRideID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	return s.settlementService.ComputeRideEarnings(ride, bookings), nil
}

// cancelActiveBookings cancels every non-terminal booking on the ride and
// voids any held authorization.
func (s *RideService) cancelActiveBookings(ctx context.Context, ride *domain.Ride) error {
	bookings, err := s.bookingRepo.GetByRideID(ctx, ride.ID)
	if err != nil {
		return err
	}

	for _, b := range bookings {
		if b.Status.IsTerminal() {
			continue
		}
		if err := s.cancelBookingRecord(ctx, b); err != nil {
			return err
		}
		_ = s.notificationService.NotifyRideCancelled(ctx, ride, b)
	}

	return nil
}

func (s *RideService) cancelBookingRecord(ctx context.Context, b *domain.Booking) error {
	if b.PaymentRef != "" {
		_ = s.gateway.Void(ctx, b.PaymentRef)
	}
	b.Status = domain.BookingStatusCancelled
	b.CancelledAt = s.now()
	return s.bookingRepo.Update(ctx, b)
}

// sameDay reports whether two instants fall on the same calendar day in the
// reference time's location.
func sameDay(t, ref time.Time) bool {
	t = t.In(ref.Location())
	return t.Year() == ref.Year() && t.Month() == ref.Month() && t.Day() == ref.Day()
}
