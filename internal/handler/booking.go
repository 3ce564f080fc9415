package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// RequestBookingRequest is the HTTP request body for requesting a booking.
type RequestBookingRequest struct {
	RiderID       string   `json:"rider_id"`
	NumberOfSeats int      `json:"number_of_seats"`
	PickupAddress string   `json:"pickup_address,omitempty"`
	PickupLat     *float64 `json:"pickup_lat,omitempty"`
	PickupLng     *float64 `json:"pickup_lng,omitempty"`
}

// CancelBookingRequest is the HTTP request body for cancelling a booking.
type CancelBookingRequest struct {
	RiderID string `json:"rider_id"`
}

// BookingResponse is the HTTP representation of a booking.
type BookingResponse struct {
	ID               string   `json:"id"`
	RideID           string   `json:"ride_id"`
	RiderID          string   `json:"rider_id"`
	NumberOfSeats    int      `json:"number_of_seats"`
	Status           string   `json:"status"`
	PickupStatus     string   `json:"pickup_status"`
	PickupAddress    string   `json:"pickup_address,omitempty"`
	PickupLat        *float64 `json:"pickup_lat,omitempty"`
	PickupLng        *float64 `json:"pickup_lng,omitempty"`
	ConfirmationCode string   `json:"confirmation_code"`
	SettlementFailed bool     `json:"settlement_failed,omitempty"`
	CreatedAt        string   `json:"created_at"`
	CancelledAt      string   `json:"cancelled_at,omitempty"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	resp := BookingResponse{
		ID:               b.ID,
		RideID:           b.RideID,
		RiderID:          b.RiderID,
		NumberOfSeats:    b.NumberOfSeats,
		Status:           string(b.Status),
		PickupStatus:     string(b.PickupStatus),
		PickupAddress:    b.PickupAddress,
		ConfirmationCode: b.ConfirmationCode,
		SettlementFailed: b.SettlementFailed,
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
	}
	if b.Pickup != nil {
		resp.PickupLat = &b.Pickup.Lat
		resp.PickupLng = &b.Pickup.Lng
	}
	if !b.CancelledAt.IsZero() {
		resp.CancelledAt = b.CancelledAt.Format(time.RFC3339)
	}
	return resp
}

// RequestBooking handles POST /v1/rides/:id/bookings
func (h *BookingHandler) RequestBooking(c *gin.Context) {
	var req RequestBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.RequestBooking(c.Request.Context(), service.RequestBookingRequest{
		RideID:        c.Param("id"),
		RiderID:       req.RiderID,
		NumberOfSeats: req.NumberOfSeats,
		PickupAddress: req.PickupAddress,
		Pickup:        coordsFromPtr(req.PickupLat, req.PickupLng),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(booking))
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(booking))
}

// ListBookings handles GET /v1/bookings?rider_id=
func (h *BookingHandler) ListBookings(c *gin.Context) {
	bookings, err := h.bookingService.ListRiderBookings(c.Request.Context(), c.Query("rider_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// CancelBooking handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.bookingService.CancelBooking(c.Request.Context(), c.Param("id"), req.RiderID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// AcceptBooking handles POST /v1/bookings/:id/accept
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.AcceptBooking(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(booking))
}

// RejectBooking handles POST /v1/bookings/:id/reject
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.bookingService.RejectBooking(c.Request.Context(), c.Param("id"), req.DriverID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// MarkPickedUp handles POST /v1/bookings/:id/pickup
func (h *BookingHandler) MarkPickedUp(c *gin.Context) {
	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.MarkPickedUp(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(booking))
}
