package d2

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// R2 vector manipulation routines shared by the polygonizer packages.

func EqualWithin(a, b r2.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

// LTEZero returns true if any vector components are <= 0.
func LTEZero(a r2.Vec) bool {
	return (a.X <= 0) || (a.Y <= 0)
}

// IsNaN returns true if any vector component is NaN.
func IsNaN(a r2.Vec) bool {
	return math.IsNaN(a.X) || math.IsNaN(a.Y)
}

// Cross returns the z component of the cross product of a and b.
func Cross(a, b r2.Vec) float64 {
	return a.X*b.Y - a.Y*b.X
}
