package billing

import (
	"math"
	"testing"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{in: 29.99, want: 2999},
		{in: 19.99, want: 1999},
		{in: 19.999, want: 2000},
		{in: 1.005, want: 101},
		{in: 0.125, want: 13},
		{in: 0, want: 0},
		{in: 10, want: 1000},
		{in: 0.1 + 0.2, want: 30},
	}

	for _, tt := range tests {
		got, err := ToMinorUnits(tt.in)
		if err != nil {
			t.Fatalf("ToMinorUnits(%v) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ToMinorUnits(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestToMinorUnitsRejectsInvalidPrices(t *testing.T) {
	for _, in := range []float64{-1, math.NaN(), math.Inf(1), 1e300} {
		if _, err := ToMinorUnits(in); err == nil {
			t.Fatalf("expected ToMinorUnits(%v) to fail", in)
		}
	}
}

func TestFromMinorUnits(t *testing.T) {
	tests := []struct {
		in   int64
		want float64
	}{
		{in: 2999, want: 29.99},
		{in: 1999, want: 19.99},
		{in: 100, want: 1},
		{in: 0, want: 0},
	}

	for _, tt := range tests {
		if got := FromMinorUnits(tt.in); got != tt.want {
			t.Fatalf("FromMinorUnits(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
