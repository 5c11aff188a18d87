// Package geometry computes joint angles from 2D landmark positions.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Angle returns the interior angle at vertex b formed by the segments
// b->a and b->c, in degrees within [0, 180]. Each segment's direction is
// taken with atan2 and the absolute difference is folded back into range.
//
// When a or c coincides with b the angle is undefined and Angle returns
// NaN; see IsDegenerate.
func Angle(a, b, c r2.Vec) float64 {
	ba := r2.Sub(a, b)
	bc := r2.Sub(c, b)
	if ba == (r2.Vec{}) || bc == (r2.Vec{}) {
		return math.NaN()
	}

	rad := math.Atan2(bc.Y, bc.X) - math.Atan2(ba.Y, ba.X)
	deg := math.Abs(rad * 180.0 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

// IsDegenerate reports whether an angle reading is undefined.
func IsDegenerate(deg float64) bool {
	return math.IsNaN(deg)
}
