// Package mathutil holds small numeric helpers shared by the control code.
package mathutil

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp limits value to [lo, hi]. NaN is returned unchanged.
func Clamp[T constraints.Float](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// AnyNaN reports whether any of the values is NaN.
func AnyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// NearestAngle returns the angle equal to target modulo 360 degrees that is
// closest to reference. NaN inputs return target.
func NearestAngle(target, reference float64) float64 {
	if math.IsNaN(target) || math.IsNaN(reference) {
		return target
	}
	return target + 360*math.Round((reference-target)/360)
}
