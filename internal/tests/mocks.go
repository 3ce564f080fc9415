package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32
	DeleteCallCount int32

	// Error injection
	CreateError error
	UpdateError error

	// UpdateDelay widens the window between a read and its committing write,
	// simulating database latency in concurrency tests.
	UpdateDelay time.Duration
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockRideRepository) GetByDriverID(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0)
	for _, r := range m.rides {
		if r.DriverID == driverID {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockRideRepository) GetInProgressByDriverID(ctx context.Context, driverID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.DriverID == driverID && r.Status == domain.RideStatusInProgress {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil // No ride in progress
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if m.UpdateDelay > 0 {
		time.Sleep(m.UpdateDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[ride.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideRepository) Delete(ctx context.Context, id string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rides, id)
	return nil
}

// GetRide returns the ride by ID (for test assertions).
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

// CountRides returns the number of rides.
func (m *MockRideRepository) CountRides() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockBookingRepository creates a new mock booking repository.
func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{
		bookings: make(map[string]*domain.Booking),
	}
}

// AddBooking adds a booking to the mock repository.
func (m *MockBookingRepository) AddBooking(booking *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = booking
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *booking
	m.bookings[booking.ID] = &copy
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *booking
	return &copy, nil
}

func (m *MockBookingRepository) GetByRideID(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Booking, 0)
	for _, b := range m.bookings {
		if b.RideID == rideID {
			copy := *b
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockBookingRepository) GetByRiderID(ctx context.Context, riderID string) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Booking, 0)
	for _, b := range m.bookings {
		if b.RiderID == riderID {
			copy := *b
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[booking.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *booking
	m.bookings[booking.ID] = &copy
	return nil
}

// GetBooking returns the booking by ID (for test assertions).
func (m *MockBookingRepository) GetBooking(id string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookings[id]
}

// CountBookings returns the number of bookings.
func (m *MockBookingRepository) CountBookings() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookings)
}

// CountActiveSeatsForRide sums seats that count against capacity on a ride.
func (m *MockBookingRepository) CountActiveSeatsForRide(rideID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, b := range m.bookings {
		if b.RideID == rideID && b.Status.CountsAgainstCapacity() {
			total += b.NumberOfSeats
		}
	}
	return total
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:ride:" + rideID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:ride:"+rideID)
	return nil
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:driver:" + driverID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:driver:"+driverID)
	return nil
}

// IsLocked checks if a ride is locked (for test assertions).
func (m *MockLockStore) IsLocked(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:ride:"+rideID]
	return exists && time.Now().Before(expiry)
}

// IsDriverLocked checks if a driver is locked (for test assertions).
func (m *MockLockStore) IsDriverLocked(driverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:driver:"+driverID]
	return exists && time.Now().Before(expiry)
}

// ClearLocks clears all locks (for test cleanup).
func (m *MockLockStore) ClearLocks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = make(map[string]time.Time)
}

// ──────────────────────────────────────────────
// MOCK SEAT CACHE
// ──────────────────────────────────────────────

// MockSeatCache is a mock implementation of the seat cache.
type MockSeatCache struct {
	mu    sync.RWMutex
	seats map[string]int

	// Counters
	SetCallCount        int32
	InvalidateCallCount int32
}

// NewMockSeatCache creates a new mock seat cache.
func NewMockSeatCache() *MockSeatCache {
	return &MockSeatCache{
		seats: make(map[string]int),
	}
}

func (m *MockSeatCache) GetAvailableSeats(ctx context.Context, rideID string) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seats, ok := m.seats[rideID]
	return seats, ok, nil
}

func (m *MockSeatCache) SetAvailableSeats(ctx context.Context, rideID string, seats int) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats[rideID] = seats
	return nil
}

func (m *MockSeatCache) InvalidateSeats(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seats, rideID)
	return nil
}

// CachedSeats returns the cached value for assertions.
func (m *MockSeatCache) CachedSeats(rideID string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seats, ok := m.seats[rideID]
	return seats, ok
}

// ──────────────────────────────────────────────
// MOCK PAYMENT GATEWAY
// ──────────────────────────────────────────────

// MockPaymentGateway is a mock payment gateway that tracks the full
// authorization lifecycle of every handle it issues.
type MockPaymentGateway struct {
	mu sync.Mutex

	// Control behavior
	DeclineAll    bool
	CaptureError  error
	VoidError     error
	nextHandle    int
	authorized    map[string]float64
	captured      map[string]bool
	voided        map[string]bool
	FailCaptureOf map[string]bool // per-handle capture failures

	// Counters
	AuthorizeCallCount int32
	CaptureCallCount   int32
	VoidCallCount      int32
}

// NewMockPaymentGateway creates a new mock payment gateway.
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{
		authorized:    make(map[string]float64),
		captured:      make(map[string]bool),
		voided:        make(map[string]bool),
		FailCaptureOf: make(map[string]bool),
	}
}

func (m *MockPaymentGateway) Authorize(ctx context.Context, amount float64, currency, riderID string) (string, error) {
	atomic.AddInt32(&m.AuthorizeCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeclineAll {
		return "", service.ErrPaymentDeclined
	}
	m.nextHandle++
	handle := fmt.Sprintf("auth_%d", m.nextHandle)
	m.authorized[handle] = amount
	return handle, nil
}

func (m *MockPaymentGateway) Capture(ctx context.Context, handle string) error {
	atomic.AddInt32(&m.CaptureCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CaptureError != nil {
		return m.CaptureError
	}
	if m.FailCaptureOf[handle] {
		return errors.New("mock gateway: capture failed")
	}
	if _, ok := m.authorized[handle]; !ok {
		return errors.New("mock gateway: unknown handle")
	}
	if m.voided[handle] {
		return errors.New("mock gateway: handle already voided")
	}
	m.captured[handle] = true
	return nil
}

func (m *MockPaymentGateway) Void(ctx context.Context, handle string) error {
	atomic.AddInt32(&m.VoidCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.VoidError != nil {
		return m.VoidError
	}
	m.voided[handle] = true
	return nil
}

// SeedAuthorization registers a handle as an outstanding authorization, as
// if it had been issued by Authorize. Used to seed bookings whose payment
// refs must be capturable or voidable.
func (m *MockPaymentGateway) SeedAuthorization(handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorized[handle] = 0
}

// WasCaptured reports whether a handle was captured.
func (m *MockPaymentGateway) WasCaptured(handle string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captured[handle]
}

// WasVoided reports whether a handle was voided.
func (m *MockPaymentGateway) WasVoided(handle string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voided[handle]
}

// DanglingAuthorizations returns handles that were authorized but never
// captured or voided.
func (m *MockPaymentGateway) DanglingAuthorizations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []string
	for h := range m.authorized {
		if !m.captured[h] && !m.voided[h] {
			result = append(result, h)
		}
	}
	return result
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
