package fees

import "testing"

func defaultPolicy() Policy {
	return Policy{
		ProcessingFeePercent: 3.0,
		ProcessingFeeFlat:    0.30,
		CommissionPercent:    10.0,
	}
}

func TestRiderTotal_WorkedExample(t *testing.T) {
	t.Parallel()

	calc, err := NewCalculator(defaultPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// $20 subtotal: commission $2.00, processing 3% + $0.30 = $0.90.
	total := calc.RiderTotal(20.00)

	if total.Subtotal != 20.00 {
		t.Errorf("expected subtotal 20.00, got %v", total.Subtotal)
	}
	if total.Commission != 2.00 {
		t.Errorf("expected commission 2.00, got %v", total.Commission)
	}
	if total.ProcessingFee != 0.90 {
		t.Errorf("expected processing fee 0.90, got %v", total.ProcessingFee)
	}
	if total.Total != 22.90 {
		t.Errorf("expected total 22.90, got %v", total.Total)
	}
}

func TestDriverNet_WorkedExample(t *testing.T) {
	t.Parallel()

	calc, err := NewCalculator(defaultPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	net := calc.DriverNet(20.00)

	if net.GrossEarnings != 20.00 {
		t.Errorf("expected gross 20.00, got %v", net.GrossEarnings)
	}
	if net.Commission != 2.00 {
		t.Errorf("expected commission 2.00, got %v", net.Commission)
	}
	if net.ProcessingFee != 0.90 {
		t.Errorf("expected processing fee 0.90, got %v", net.ProcessingFee)
	}
	if net.NetEarnings != 17.10 {
		t.Errorf("expected net 17.10, got %v", net.NetEarnings)
	}
}

func TestDriverNet_ExactDecomposition(t *testing.T) {
	t.Parallel()

	calc, err := NewCalculator(defaultPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Net must equal gross minus the two deductions after rounding, exactly,
	// across awkward subtotals.
	for _, subtotal := range []float64{0.01, 0.99, 1.005, 7.77, 12.345, 19.99, 100.00, 333.33} {
		net := calc.DriverNet(subtotal)
		want := Round2(net.GrossEarnings - net.ProcessingFee - net.Commission)
		if net.NetEarnings != want {
			t.Errorf("subtotal %v: net %v does not equal gross-fees %v", subtotal, net.NetEarnings, want)
		}
	}
}

func TestCalculator_Deterministic(t *testing.T) {
	t.Parallel()

	calc, err := NewCalculator(defaultPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := calc.RiderTotal(13.37)
	for i := 0; i < 100; i++ {
		if got := calc.RiderTotal(13.37); got != first {
			t.Fatalf("iteration %d produced a different breakdown: %+v vs %+v", i, got, first)
		}
	}
}

func TestRound2_HalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{1.004, 1.00},
		{2.675, 2.68},
		{0.0, 0.0},
		{19.999, 20.00},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Errorf("Round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestPolicy_Validate_RejectsBadRates(t *testing.T) {
	t.Parallel()

	bad := []Policy{
		{ProcessingFeePercent: -1},
		{ProcessingFeePercent: 100},
		{CommissionPercent: -5},
		{CommissionPercent: 100},
		{ProcessingFeeFlat: -0.01},
		{ProcessingFeePercent: 60, CommissionPercent: 40},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("expected validation error for policy %+v", p)
		}
	}

	if _, err := NewCalculator(Policy{ProcessingFeePercent: 150}); err == nil {
		t.Error("expected NewCalculator to reject invalid policy")
	}
}

func TestRiderTotal_ZeroSubtotal_FlatFeeOnly(t *testing.T) {
	t.Parallel()

	calc, err := NewCalculator(defaultPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := calc.RiderTotal(0)
	if total.ProcessingFee != 0.30 {
		t.Errorf("expected flat fee 0.30, got %v", total.ProcessingFee)
	}
	if total.Commission != 0 {
		t.Errorf("expected zero commission, got %v", total.Commission)
	}
	if total.Total != 0.30 {
		t.Errorf("expected total 0.30, got %v", total.Total)
	}
}
