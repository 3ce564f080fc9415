package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	userRepo      repository.UserRepository
	locationStore redis.LocationStoreInterface
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userRepo repository.UserRepository, locationStore redis.LocationStoreInterface) *UserHandler {
	return &UserHandler{
		userRepo:      userRepo,
		locationStore: locationStore,
	}
}

// RegisterUserRequest is the HTTP request body for registering a user.
type RegisterUserRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"` // RIDER or DRIVER
}

// UserResponse is the HTTP representation of a user.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// Register handles POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Name == "" || req.Phone == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and phone are required"})
		return
	}

	role := domain.UserRole(req.Role)
	if role != domain.UserRoleRider && role != domain.UserRoleDriver {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "role must be RIDER or DRIVER"})
		return
	}

	ctx := c.Request.Context()

	// Phone numbers are unique; registering twice returns the existing user.
	if existing, err := h.userRepo.GetByPhone(ctx, req.Phone); err == nil {
		c.JSON(http.StatusOK, UserResponse{
			ID:    existing.ID,
			Name:  existing.Name,
			Phone: existing.Phone,
			Role:  string(existing.Role),
		})
		return
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Phone:     req.Phone,
		Role:      role,
		CreatedAt: time.Now(),
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Phone: user.Phone,
		Role:  string(user.Role),
	})
}

// GetAll handles GET /v1/users
func (h *UserHandler) GetAll(c *gin.Context) {
	users, err := h.userRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserResponse{
			ID:    u.ID,
			Name:  u.Name,
			Phone: u.Phone,
			Role:  string(u.Role),
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// UpdateLocationRequest is the HTTP request body for reporting a location.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation handles POST /v1/users/:id/location. The stored position is
// the fallback reference point for distance-sorted ride listings.
func (h *UserHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	userID := c.Param("id")
	if _, err := h.userRepo.GetByID(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	if err := h.locationStore.UpdateLocation(c.Request.Context(), userID, req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
