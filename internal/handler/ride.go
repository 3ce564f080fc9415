package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService   *service.RideService
	rideRepo      repository.RideRepository
	locationStore redis.LocationStoreInterface
	seatCache     redis.SeatCacheInterface
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(
	rideService *service.RideService,
	rideRepo repository.RideRepository,
	locationStore redis.LocationStoreInterface,
	seatCache redis.SeatCacheInterface,
) *RideHandler {
	return &RideHandler{
		rideService:   rideService,
		rideRepo:      rideRepo,
		locationStore: locationStore,
		seatCache:     seatCache,
	}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	DriverID       string   `json:"driver_id"`
	OriginLat      *float64 `json:"origin_lat,omitempty"`
	OriginLng      *float64 `json:"origin_lng,omitempty"`
	DestinationLat *float64 `json:"destination_lat,omitempty"`
	DestinationLng *float64 `json:"destination_lng,omitempty"`
	RouteMiles     *float64 `json:"route_miles,omitempty"`
	DepartureTime  string   `json:"departure_time"`
	TotalSeats     int      `json:"total_seats"`
	PricePerSeat   float64  `json:"price_per_seat"`
}

// UpdateRideRequest is the HTTP request body for editing a ride.
type UpdateRideRequest struct {
	DriverID      string  `json:"driver_id"`
	DepartureTime string  `json:"departure_time"`
	TotalSeats    int     `json:"total_seats"`
	PricePerSeat  float64 `json:"price_per_seat"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	DriverID string `json:"driver_id"`
	Reason   string `json:"reason,omitempty"`
}

// ActorRequest carries the acting driver for lifecycle transitions.
type ActorRequest struct {
	DriverID string `json:"driver_id"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID             string   `json:"id"`
	DriverID       string   `json:"driver_id"`
	OriginLat      *float64 `json:"origin_lat,omitempty"`
	OriginLng      *float64 `json:"origin_lng,omitempty"`
	DestinationLat *float64 `json:"destination_lat,omitempty"`
	DestinationLng *float64 `json:"destination_lng,omitempty"`
	RouteMiles     *float64 `json:"route_miles,omitempty"`
	DepartureTime  string   `json:"departure_time"`
	TotalSeats     int      `json:"total_seats"`
	AvailableSeats int      `json:"available_seats"`
	PricePerSeat   float64  `json:"price_per_seat"`
	Status         string   `json:"status"`
	CancelledAt    string   `json:"cancelled_at,omitempty"`
	CancelReason   string   `json:"cancel_reason,omitempty"`
}

func toRideResponse(ride *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:             ride.ID,
		DriverID:       ride.DriverID,
		RouteMiles:     ride.RouteMiles,
		DepartureTime:  ride.DepartureTime.Format(time.RFC3339),
		TotalSeats:     ride.TotalSeats,
		AvailableSeats: ride.AvailableSeats,
		PricePerSeat:   ride.PricePerSeat,
		Status:         string(domain.NormalizeRideStatus(ride.Status)),
		CancelReason:   ride.CancelReason,
	}
	if ride.Origin != nil {
		resp.OriginLat = &ride.Origin.Lat
		resp.OriginLng = &ride.Origin.Lng
	}
	if ride.Destination != nil {
		resp.DestinationLat = &ride.Destination.Lat
		resp.DestinationLng = &ride.Destination.Lng
	}
	if !ride.CancelledAt.IsZero() {
		resp.CancelledAt = ride.CancelledAt.Format(time.RFC3339)
	}
	return resp
}

func toRideResponses(rides []*domain.Ride) []RideResponse {
	out := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResponse(r))
	}
	return out
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	departure, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid departure_time, expected RFC3339"})
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		DriverID:      req.DriverID,
		Origin:        coordsFromPtr(req.OriginLat, req.OriginLng),
		Destination:   coordsFromPtr(req.DestinationLat, req.DestinationLng),
		RouteMiles:    req.RouteMiles,
		DepartureTime: departure,
		TotalSeats:    req.TotalSeats,
		PricePerSeat:  req.PricePerSeat,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRideResponse(ride))
}

// ListRides handles GET /v1/rides
//
// Query parameters: driver_id, status (all|scheduled|in-progress|completed|
// cancelled), sort (date|distance|earnings), lat/lng (current location for
// distance sort), group=date, active=true.
func (h *RideHandler) ListRides(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		rides []*domain.Ride
		err   error
	)
	driverID := c.Query("driver_id")
	if driverID != "" {
		rides, err = h.rideRepo.GetByDriverID(ctx, driverID)
	} else {
		rides, err = h.rideRepo.GetAll(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	// Overlay cached seat counts where fresher than the stored hint. The
	// cache misses fall back to whatever the row carried.
	if h.seatCache != nil {
		for _, r := range rides {
			if seats, ok, cerr := h.seatCache.GetAvailableSeats(ctx, r.ID); cerr == nil && ok {
				r.AvailableSeats = seats
			}
		}
	}

	if c.Query("active") == "true" {
		active := service.ActiveRide(rides)
		if active == nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "no active ride"})
			return
		}
		c.JSON(http.StatusOK, toRideResponse(active))
		return
	}

	rides = service.FilterByStatus(rides, c.DefaultQuery("status", service.FilterAll))

	current := h.currentLocation(c, driverID)
	rides = service.SortRides(rides, service.SortKey(c.DefaultQuery("sort", string(service.SortByDate))), current)

	if c.Query("group") == "date" {
		groups := service.SeparateByDate(rides, time.Now())
		c.JSON(http.StatusOK, gin.H{
			"today":    toRideResponses(groups.Today),
			"upcoming": toRideResponses(groups.Upcoming),
			"past":     toRideResponses(groups.Past),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rides": toRideResponses(rides)})
}

// currentLocation resolves the reference point for distance sorting: explicit
// lat/lng query parameters win, then the driver's last reported location.
func (h *RideHandler) currentLocation(c *gin.Context, driverID string) *domain.Coordinates {
	lat, latErr := parseFloatQuery(c, "lat")
	lng, lngErr := parseFloatQuery(c, "lng")
	if latErr == nil && lngErr == nil {
		return &domain.Coordinates{Lat: lat, Lng: lng}
	}

	if driverID == "" || h.locationStore == nil {
		return nil
	}
	loc, err := h.locationStore.GetLocation(c.Request.Context(), driverID)
	if err != nil || loc == nil {
		return nil
	}
	return &domain.Coordinates{Lat: loc.Lat, Lng: loc.Lng}
}

// UpdateRide handles PUT /v1/rides/:id
func (h *RideHandler) UpdateRide(c *gin.Context) {
	var req UpdateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	departure, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid departure_time, expected RFC3339"})
		return
	}

	ride, err := h.rideService.UpdateRide(c.Request.Context(), service.UpdateRideRequest{
		RideID:        c.Param("id"),
		DriverID:      req.DriverID,
		DepartureTime: departure,
		TotalSeats:    req.TotalSeats,
		PricePerSeat:  req.PricePerSeat,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRideResponse(ride))
}

// DeleteRide handles DELETE /v1/rides/:id
func (h *RideHandler) DeleteRide(c *gin.Context) {
	if err := h.rideService.DeleteRide(c.Request.Context(), c.Param("id"), c.Query("driver_id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// StartRide handles POST /v1/rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.StartRide(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRideResponse(ride))
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	earnings, err := h.rideService.CompleteRide(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEarningsResponse(earnings))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.rideService.CancelRide(c.Request.Context(), c.Param("id"), req.DriverID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// EarningsResponse is the HTTP representation of a ride earnings breakdown.
type EarningsResponse struct {
	RideID        string                    `json:"ride_id"`
	DriverID      string                    `json:"driver_id"`
	GrossEarnings float64                   `json:"gross_earnings"`
	ProcessingFee float64                   `json:"processing_fee"`
	Commission    float64                   `json:"commission"`
	NetEarnings   float64                   `json:"net_earnings"`
	Bookings      []BookingEarningsResponse `json:"bookings"`
}

// BookingEarningsResponse is the per-booking share of an earnings breakdown.
type BookingEarningsResponse struct {
	BookingID        string  `json:"booking_id"`
	NumberOfSeats    int     `json:"number_of_seats"`
	GrossEarnings    float64 `json:"gross_earnings"`
	ProcessingFee    float64 `json:"processing_fee"`
	Commission       float64 `json:"commission"`
	NetEarnings      float64 `json:"net_earnings"`
	SettlementFailed bool    `json:"settlement_failed,omitempty"`
}

func toEarningsResponse(e *domain.RideEarnings) EarningsResponse {
	resp := EarningsResponse{
		RideID:        e.RideID,
		DriverID:      e.DriverID,
		GrossEarnings: e.GrossEarnings,
		ProcessingFee: e.ProcessingFee,
		Commission:    e.Commission,
		NetEarnings:   e.NetEarnings,
		Bookings:      make([]BookingEarningsResponse, 0, len(e.Bookings)),
	}
	for _, b := range e.Bookings {
		resp.Bookings = append(resp.Bookings, BookingEarningsResponse{
			BookingID:        b.BookingID,
			NumberOfSeats:    b.NumberOfSeats,
			GrossEarnings:    b.GrossEarnings,
			ProcessingFee:    b.ProcessingFee,
			Commission:       b.Commission,
			NetEarnings:      b.NetEarnings,
			SettlementFailed: b.SettlementFailed,
		})
	}
	return resp
}

// RideEarnings handles GET /v1/rides/:id/earnings
func (h *RideHandler) RideEarnings(c *gin.Context) {
	earnings, err := h.rideService.RideEarnings(c.Request.Context(), c.Param("id"), c.Query("driver_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEarningsResponse(earnings))
}

func coordsFromPtr(lat, lng *float64) *domain.Coordinates {
	if lat == nil || lng == nil {
		return nil
	}
	return &domain.Coordinates{Lat: *lat, Lng: *lng}
}

func parseFloatQuery(c *gin.Context, key string) (float64, error) {
	return parseFloat(c.Query(key))
}
