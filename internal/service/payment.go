package service

import (
	"context"

	"github.com/google/uuid"
)

// PaymentGateway is the interface for the external payment processor. The
// engine never stores raw payment-instrument data, only the opaque handles
// returned by Authorize.
type PaymentGateway interface {
	// Authorize places a hold for the given amount and returns an opaque
	// authorization handle. Returns ErrPaymentDeclined when the hold is
	// refused.
	Authorize(ctx context.Context, amount float64, currency, riderID string) (string, error)

	// Capture finalizes a previously authorized payment.
	Capture(ctx context.Context, handle string) error

	// Void releases a held authorization.
	Void(ctx context.Context, handle string) error
}

// MockGateway is a mock implementation of PaymentGateway for local runs.
type MockGateway struct{}

// NewMockGateway creates a new mock payment gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Authorize always succeeds and returns a fresh handle.
func (g *MockGateway) Authorize(ctx context.Context, amount float64, currency, riderID string) (string, error) {
	return "auth_" + uuid.New().String(), nil
}

// Capture always succeeds.
func (g *MockGateway) Capture(ctx context.Context, handle string) error {
	return nil
}

// Void always succeeds.
func (g *MockGateway) Void(ctx context.Context, handle string) error {
	return nil
}
