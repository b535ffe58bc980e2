package units

import "testing"

func TestIsValid(t *testing.T) {
	for _, scale := range ValidScales {
		if !IsValid(scale) {
			t.Errorf("IsValid(%q) = false, want true", scale)
		}
	}
	for _, scale := range []string{"", "pct", "RAW", "kilograms"} {
		if IsValid(scale) {
			t.Errorf("IsValid(%q) = true, want false", scale)
		}
	}
}

func TestConvertPressure(t *testing.T) {
	cases := []struct {
		normalized float64
		scale      string
		want       float64
	}{
		{0.5, Normalized, 0.5},
		{0.5, Raw, 0.5},
		{0.5, Percent, 50},
		{0.005, Percent, 1}, // rounds half away from zero
		{0.004, Percent, 0},
		{1, Percent, 100},
		{0.25, "unrecognised", 0.25},
	}
	for _, tc := range cases {
		if got := ConvertPressure(tc.normalized, tc.scale); got != tc.want {
			t.Errorf("ConvertPressure(%v, %q) = %v, want %v", tc.normalized, tc.scale, got, tc.want)
		}
	}
}
