// Package fees computes rider charges and driver earnings from a configured
// fee policy. All amounts are rounded half-up to two decimal places so that
// repeated computation from the same subtotal is always identical.
package fees

import (
	"fmt"
	"math"
)

// Policy is the platform fee configuration: a percentage-of-subtotal
// commission plus a percentage-and-flat processing fee. Rates are injected at
// startup; changing them does not retroactively alter already-computed
// breakdowns.
type Policy struct {
	ProcessingFeePercent float64
	ProcessingFeeFlat    float64
	CommissionPercent    float64
}

// Validate rejects a policy that could drive driver net earnings negative.
// A bad policy is a configuration error caught at startup, not a runtime case
// to clamp at settlement time.
func (p Policy) Validate() error {
	if p.ProcessingFeePercent < 0 || p.ProcessingFeePercent >= 100 {
		return fmt.Errorf("processing fee percent out of range: %v", p.ProcessingFeePercent)
	}
	if p.CommissionPercent < 0 || p.CommissionPercent >= 100 {
		return fmt.Errorf("commission percent out of range: %v", p.CommissionPercent)
	}
	if p.ProcessingFeeFlat < 0 {
		return fmt.Errorf("processing fee flat is negative: %v", p.ProcessingFeeFlat)
	}
	if p.ProcessingFeePercent+p.CommissionPercent >= 100 {
		return fmt.Errorf("combined fee percent %v leaves no driver earnings",
			p.ProcessingFeePercent+p.CommissionPercent)
	}
	return nil
}

// RiderTotal is the rider-facing charge breakdown for a booking.
type RiderTotal struct {
	Subtotal      float64
	ProcessingFee float64
	Commission    float64
	Total         float64
}

// DriverNet is the driver-facing earnings breakdown for a booking.
type DriverNet struct {
	GrossEarnings float64
	ProcessingFee float64
	Commission    float64
	NetEarnings   float64
}

// Calculator computes fee breakdowns under a fixed policy.
type Calculator struct {
	policy Policy
}

// NewCalculator validates the policy and returns a calculator bound to it.
func NewCalculator(p Policy) (*Calculator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{policy: p}, nil
}

// Policy returns the policy the calculator was built with.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// RiderTotal computes the total charge for a rider from the gross subtotal.
// The rider-side service fees mirror the driver-side deductions.
func (c *Calculator) RiderTotal(subtotal float64) RiderTotal {
	fee := c.processingFee(subtotal)
	commission := c.commission(subtotal)
	return RiderTotal{
		Subtotal:      Round2(subtotal),
		ProcessingFee: fee,
		Commission:    commission,
		Total:         Round2(subtotal + fee + commission),
	}
}

// DriverNet computes the driver's net earnings from the gross subtotal.
// NetEarnings = GrossEarnings - ProcessingFee - Commission, exactly.
func (c *Calculator) DriverNet(subtotal float64) DriverNet {
	gross := Round2(subtotal)
	fee := c.processingFee(subtotal)
	commission := c.commission(subtotal)
	return DriverNet{
		GrossEarnings: gross,
		ProcessingFee: fee,
		Commission:    commission,
		NetEarnings:   Round2(gross - fee - commission),
	}
}

func (c *Calculator) processingFee(subtotal float64) float64 {
	return Round2(subtotal*c.policy.ProcessingFeePercent/100.0 + c.policy.ProcessingFeeFlat)
}

func (c *Calculator) commission(subtotal float64) float64 {
	return Round2(subtotal * c.policy.CommissionPercent / 100.0)
}

// Round2 rounds half-up to two decimal places.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
