// Package units provides shared constants and validation for pressure
// output scales exposed by the API.
package units

import "math"

// Scale constants. Raw is the unmodified ADC magnitude; Percent maps the
// normalized pressure to 0-100 integers; Normalized is the 0-1 float.
const (
	Raw        = "raw"
	Percent    = "percent"
	Normalized = "normalized"
)

// ValidScales contains all accepted scale values.
var ValidScales = []string{Raw, Percent, Normalized}

// IsValid checks whether the given scale name is accepted.
func IsValid(scale string) bool {
	for _, s := range ValidScales {
		if scale == s {
			return true
		}
	}
	return false
}

// ValidScalesString returns a comma-separated list for error messages.
func ValidScalesString() string {
	return "raw, percent, normalized"
}

// ConvertPressure converts a normalized [0,1] pressure to the target
// scale. Percent values are rounded to integers at this presentation
// boundary; earlier pipeline stages never round.
func ConvertPressure(normalized float64, targetScale string) float64 {
	switch targetScale {
	case Percent:
		return math.Round(normalized * 100)
	case Raw, Normalized:
		return normalized
	default:
		return normalized
	}
}
