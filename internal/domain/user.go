package domain

import "time"

// UserRole distinguishes riders from drivers.
type UserRole string

const (
	UserRoleRider  UserRole = "RIDER"
	UserRoleDriver UserRole = "DRIVER"
)

// User represents a rider or driver account in the system.
type User struct {
	ID        string
	Name      string
	Phone     string
	Role      UserRole
	CreatedAt time.Time
}
