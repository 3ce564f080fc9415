package service

import (
	"context"
	"log"
	"time"

	"carpool/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationBookingRequested  NotificationType = "BOOKING_REQUESTED"
	NotificationBookingConfirmed  NotificationType = "BOOKING_CONFIRMED"
	NotificationBookingCancelled  NotificationType = "BOOKING_CANCELLED"
	NotificationRideStarted       NotificationType = "RIDE_STARTED"
	NotificationRideCompleted     NotificationType = "RIDE_COMPLETED"
	NotificationRideCancelled     NotificationType = "RIDE_CANCELLED"
	NotificationPassengerPickedUp NotificationType = "PASSENGER_PICKED_UP"
	NotificationSettlementFailed  NotificationType = "SETTLEMENT_FAILED"
)

// Notification represents a domain event to be fanned out.
type Notification struct {
	Type        NotificationType
	RecipientID string
	RideID      string
	BookingID   string
	Message     string
	CreatedAt   time.Time
}

// NotificationService delivers domain events to interested collaborators.
// Delivery is best-effort and must never block or fail the originating
// operation; callers discard the returned error.
type NotificationService struct {
	// In a real deployment this would hold a push client (FCM, APNS) and a
	// realtime fan-out (WebSocket hub). The engine only emits events.
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyBookingRequested tells the driver a new booking awaits review.
func (s *NotificationService) NotifyBookingRequested(ctx context.Context, ride *domain.Ride, booking *domain.Booking) error {
	return s.deliver(Notification{
		Type:        NotificationBookingRequested,
		RecipientID: ride.DriverID,
		RideID:      ride.ID,
		BookingID:   booking.ID,
		Message:     "New booking request",
	})
}

// NotifyBookingConfirmed tells the rider their booking was confirmed.
func (s *NotificationService) NotifyBookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	return s.deliver(Notification{
		Type:        NotificationBookingConfirmed,
		RecipientID: booking.RiderID,
		RideID:      booking.RideID,
		BookingID:   booking.ID,
		Message:     "Your booking is confirmed",
	})
}

// NotifyBookingCancelled tells the rider their booking was cancelled.
func (s *NotificationService) NotifyBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return s.deliver(Notification{
		Type:        NotificationBookingCancelled,
		RecipientID: booking.RiderID,
		RideID:      booking.RideID,
		BookingID:   booking.ID,
		Message:     "Your booking was cancelled",
	})
}

// NotifyRideStarted tells every active passenger the ride has started.
func (s *NotificationService) NotifyRideStarted(ctx context.Context, ride *domain.Ride, bookings []*domain.Booking) error {
	for _, b := range bookings {
		if b.Status != domain.BookingStatusConfirmed {
			continue
		}
		_ = s.deliver(Notification{
			Type:        NotificationRideStarted,
			RecipientID: b.RiderID,
			RideID:      ride.ID,
			BookingID:   b.ID,
			Message:     "Your ride is on the way",
		})
	}
	return nil
}

// NotifyRideCompleted tells the driver the ride was completed and settled.
func (s *NotificationService) NotifyRideCompleted(ctx context.Context, ride *domain.Ride) error {
	return s.deliver(Notification{
		Type:        NotificationRideCompleted,
		RecipientID: ride.DriverID,
		RideID:      ride.ID,
		Message:     "Ride completed",
	})
}

// NotifyRideCancelled tells an affected rider the ride was cancelled.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride, booking *domain.Booking) error {
	return s.deliver(Notification{
		Type:        NotificationRideCancelled,
		RecipientID: booking.RiderID,
		RideID:      ride.ID,
		BookingID:   booking.ID,
		Message:     "Your ride was cancelled by the driver",
	})
}

// NotifyPassengerPickedUp tells the rider their pickup was recorded.
func (s *NotificationService) NotifyPassengerPickedUp(ctx context.Context, booking *domain.Booking) error {
	return s.deliver(Notification{
		Type:        NotificationPassengerPickedUp,
		RecipientID: booking.RiderID,
		RideID:      booking.RideID,
		BookingID:   booking.ID,
		Message:     "Pickup confirmed",
	})
}

// NotifySettlementFailed flags a failed capture for the out-of-band retry job.
func (s *NotificationService) NotifySettlementFailed(ctx context.Context, booking *domain.Booking) error {
	return s.deliver(Notification{
		Type:        NotificationSettlementFailed,
		RecipientID: booking.RiderID,
		RideID:      booking.RideID,
		BookingID:   booking.ID,
		Message:     "Payment capture pending retry",
	})
}

// deliver hands the event to the fan-out. Stubbed to a log line.
func (s *NotificationService) deliver(n Notification) error {
	n.CreatedAt = time.Now()
	log.Printf("[notification] type=%s recipient=%s ride=%s booking=%s",
		n.Type, n.RecipientID, n.RideID, n.BookingID)
	return nil
}
