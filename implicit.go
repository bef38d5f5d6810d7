// Package implicit defines scalar field interfaces for implicit geometry.
// An implicit object is the set of points where its field evaluates to a
// value less than or equal to zero. The render package polygonizes these
// fields into triangle meshes (3D) and closed contours (2D).
package implicit

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Field3 is the interface to a 3D scalar field. The object it describes
// is the region where Evaluate returns a non-positive value.
type Field3 interface {
	// Evaluate takes a point in 3D space and returns the field value at
	// that point. Negative inside the object, positive outside.
	// Implementations must be pure and safe for concurrent use.
	Evaluate(p r3.Vec) float64
}

// Field2 is the interface to a 2D scalar field. The object it describes
// is the region where Evaluate returns a non-positive value.
type Field2 interface {
	Evaluate(p r2.Vec) float64
}

// Func3 adapts an ordinary function to the Field3 interface.
type Func3 func(p r3.Vec) float64

// Evaluate implements Field3.
func (f Func3) Evaluate(p r3.Vec) float64 { return f(p) }

// Func2 adapts an ordinary function to the Field2 interface.
type Func2 func(p r2.Vec) float64

// Evaluate implements Field2.
func (f Func2) Evaluate(p r2.Vec) float64 { return f(p) }

const (
	pi        = math.Pi
	tolerance = 1e-9
	epsilon   = 1e-12
)

// Clamp x between a and b, assume a <= b.
func Clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}

// Mix does a linear interpolation from x to y, a = [0,1].
func Mix(x, y, a float64) float64 {
	return x + (a * (y - x))
}

// Sign returns the sign of x.
func Sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	if x > 0 {
		return 1
	}
	return 0
}

// Normal3 returns the outward normal of a field at a point, computed by
// central differences with step eps. The point need not be on the surface.
func Normal3(f Field3, p r3.Vec, eps float64) r3.Vec {
	return r3.Unit(r3.Vec{
		X: f.Evaluate(r3.Add(p, r3.Vec{X: eps})) - f.Evaluate(r3.Add(p, r3.Vec{X: -eps})),
		Y: f.Evaluate(r3.Add(p, r3.Vec{Y: eps})) - f.Evaluate(r3.Add(p, r3.Vec{Y: -eps})),
		Z: f.Evaluate(r3.Add(p, r3.Vec{Z: eps})) - f.Evaluate(r3.Add(p, r3.Vec{Z: -eps})),
	})
}

// Normal2 returns the outward normal of a 2D field at a point. See Normal3.
func Normal2(f Field2, p r2.Vec, eps float64) r2.Vec {
	return r2.Unit(r2.Vec{
		X: f.Evaluate(r2.Add(p, r2.Vec{X: eps})) - f.Evaluate(r2.Add(p, r2.Vec{X: -eps})),
		Y: f.Evaluate(r2.Add(p, r2.Vec{Y: eps})) - f.Evaluate(r2.Add(p, r2.Vec{Y: -eps})),
	})
}

// Floating Point Comparisons
// See: http://floating-point-gui.de/errors/NearlyEqualsTest.java

const minNormal = 2.2250738585072014e-308 // 2**-1022

// EqualFloat64 compares two float64 values for equality.
func EqualFloat64(a, b, epsilon float64) bool {
	if a == b {
		return true
	}
	absA := math.Abs(a)
	absB := math.Abs(b)
	diff := math.Abs(a - b)
	if a == 0 || b == 0 || diff < minNormal {
		// a or b is zero or both are extremely close to it
		// relative error is less meaningful here
		return diff < (epsilon * minNormal)
	}
	// use relative error
	return diff/math.Min((absA+absB), math.MaxFloat64) < epsilon
}
