// Package units provides shared constants and validation for angle units
package units

import "math"

// Unit constants
const (
	DEG = "deg"
	RAD = "rad"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{DEG, RAD}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ConvertAngle converts an angle from degrees to the target units.
// Readings and configuration store angles in degrees.
func ConvertAngle(angleDeg float64, targetUnits string) float64 {
	switch targetUnits {
	case RAD:
		return angleDeg * math.Pi / 180
	case DEG:
		return angleDeg // no conversion needed
	default:
		return angleDeg // default to degrees if unknown unit
	}
}

// NormalizeDegrees wraps an angle into [0, 360).
func NormalizeDegrees(angleDeg float64) float64 {
	normalized := math.Mod(angleDeg, 360)
	if normalized < 0 {
		normalized += 360
	}
	return normalized
}

// AngularDistance returns the smallest separation between two headings in
// degrees, always in [0, 180].
func AngularDistance(a, b float64) float64 {
	diff := math.Abs(NormalizeDegrees(a) - NormalizeDegrees(b))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}
