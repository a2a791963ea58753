package mathutil

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Round up at midpoint", 1.235, 1.24},
		{"Round down below midpoint", 1.234, 1.23},
		{"No rounding needed", 1.23, 1.23},
		{"Large number", 4433877.456, 4433877.46},
		{"Negative number round down", -1.234, -1.23},
		{"Zero", 0.0, 0.0},
		{"Very small positive", 0.001, 0.00},
		{"Nearly two cents", 0.019, 0.02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.input)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("Round(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestWithinRelative(t *testing.T) {
	tests := []struct {
		name      string
		got, want float64
		tolerance float64
		expected  bool
	}{
		{"Identical", 3000000, 3000000, 1e-6, true},
		{"Within one ppm", 3000000.5, 3000000, 1e-6, true},
		{"Outside one percent", 4300000, 4361179, 0.01, false},
		{"Inside one percent", 4390000, 4361179, 0.01, true},
		{"Zero want", 0.0000001, 0, 1e-6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := WithinRelative(tt.got, tt.want, tt.tolerance); result != tt.expected {
				t.Errorf("WithinRelative(%v, %v, %v) = %v, expected %v", tt.got, tt.want, tt.tolerance, result, tt.expected)
			}
		})
	}
}

func TestMinMax(t *testing.T) {
	if Min(1, 2) != 1 || Min(2, 1) != 1 {
		t.Error("Min returned the larger value")
	}
	if Max(1, 2) != 2 || Max(2, 1) != 2 {
		t.Error("Max returned the smaller value")
	}
	if Min(math.Inf(1), 5) != 5 {
		t.Error("Min should treat +Inf as unbounded")
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio(25639, 50000); math.Abs(got-0.51278) > 1e-9 {
		t.Errorf("Ratio() = %v, expected 0.51278", got)
	}
	if got := Ratio(10, 0); got != 0 {
		t.Errorf("Ratio() with zero total = %v, expected 0", got)
	}
}
