package domain

// BookingEarnings is the per-booking driver earnings breakdown. It is derived
// from the booking and the fee policy at settlement time, never stored on its
// own.
type BookingEarnings struct {
	BookingID        string
	NumberOfSeats    int
	GrossEarnings    float64
	ProcessingFee    float64
	Commission       float64
	NetEarnings      float64
	SettlementFailed bool
}

// RideEarnings aggregates the settled earnings of one completed ride for the
// driver's ledger.
type RideEarnings struct {
	RideID        string
	DriverID      string
	GrossEarnings float64
	ProcessingFee float64
	Commission    float64
	NetEarnings   float64
	Bookings      []BookingEarnings
}
