package service

import (
	"context"

	"carpool/internal/domain"
	"carpool/internal/fees"
	"carpool/internal/repository"
)

// SettlementService finalizes capture of held authorizations when a ride
// completes and computes the driver's earnings breakdown.
type SettlementService struct {
	bookingRepo         repository.BookingRepository
	gateway             PaymentGateway
	calculator          *fees.Calculator
	notificationService *NotificationService
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	bookingRepo repository.BookingRepository,
	gateway PaymentGateway,
	calculator *fees.Calculator,
	notificationService *NotificationService,
) *SettlementService {
	return &SettlementService{
		bookingRepo:         bookingRepo,
		gateway:             gateway,
		calculator:          calculator,
		notificationService: notificationService,
	}
}

// SettleRide captures the authorization of every confirmed booking on a
// completed ride and marks the bookings completed. A capture failure flags
// that booking for out-of-band retry and never blocks the ride's completion
// or sibling bookings.
func (s *SettlementService) SettleRide(ctx context.Context, ride *domain.Ride, bookings []*domain.Booking) (*domain.RideEarnings, error) {
	for _, b := range bookings {
		if b.Status != domain.BookingStatusConfirmed {
			continue
		}

		captureFailed := false
		if b.PaymentRef != "" {
			if err := s.gateway.Capture(ctx, b.PaymentRef); err != nil {
				captureFailed = true
			}
		}

		b.Status = domain.BookingStatusCompleted
		b.SettlementFailed = captureFailed
		if err := s.bookingRepo.Update(ctx, b); err != nil {
			return nil, err
		}

		if captureFailed {
			_ = s.notificationService.NotifySettlementFailed(ctx, b)
		}
	}

	return s.ComputeRideEarnings(ride, bookings), nil
}

// ComputeRideEarnings derives the driver's earnings breakdown from the
// bookings currently holding seats. Nothing is stored; the breakdown is
// recomputed from the ride and the fee policy on demand.
func (s *SettlementService) ComputeRideEarnings(ride *domain.Ride, bookings []*domain.Booking) *domain.RideEarnings {
	earnings := &domain.RideEarnings{
		RideID:   ride.ID,
		DriverID: ride.DriverID,
	}

	for _, b := range bookings {
		if !b.Status.CountsAgainstCapacity() {
			continue
		}

		net := s.calculator.DriverNet(ride.PricePerSeat * float64(b.NumberOfSeats))
		earnings.Bookings = append(earnings.Bookings, domain.BookingEarnings{
			BookingID:        b.ID,
			NumberOfSeats:    b.NumberOfSeats,
			GrossEarnings:    net.GrossEarnings,
			ProcessingFee:    net.ProcessingFee,
			Commission:       net.Commission,
			NetEarnings:      net.NetEarnings,
			SettlementFailed: b.SettlementFailed,
		})

		earnings.GrossEarnings = fees.Round2(earnings.GrossEarnings + net.GrossEarnings)
		earnings.ProcessingFee = fees.Round2(earnings.ProcessingFee + net.ProcessingFee)
		earnings.Commission = fees.Round2(earnings.Commission + net.Commission)
		earnings.NetEarnings = fees.Round2(earnings.NetEarnings + net.NetEarnings)
	}

	return earnings
}
