package implicit

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	sdfx "github.com/deadsy/sdfx/sdf"
)

// Interop with the deadsy/sdfx constructive solid geometry library. The
// modeling algebra (primitives, union, intersect, extrude and friends)
// lives there; these adaptors let its signed distance objects feed the
// polygonizer directly.

type sdfxField3 struct {
	s sdfx.SDF3
}

// FromSDF3 adapts an sdfx 3D signed distance object to the Field3 interface.
func FromSDF3(s sdfx.SDF3) Field3 {
	if s == nil {
		panic("nil SDF3 argument")
	}
	return sdfxField3{s: s}
}

func (a sdfxField3) Evaluate(p r3.Vec) float64 {
	return a.s.Evaluate(sdfx.V3{X: p.X, Y: p.Y, Z: p.Z})
}

type sdfxField2 struct {
	s sdfx.SDF2
}

// FromSDF2 adapts an sdfx 2D signed distance object to the Field2 interface.
func FromSDF2(s sdfx.SDF2) Field2 {
	if s == nil {
		panic("nil SDF2 argument")
	}
	return sdfxField2{s: s}
}

func (a sdfxField2) Evaluate(p r2.Vec) float64 {
	return a.s.Evaluate(sdfx.V2{X: p.X, Y: p.Y})
}

// SDF3Bounds returns the bounding box of an sdfx object as an r3.Box,
// handy when polygonizing an sdfx model over its own bounds.
func SDF3Bounds(s sdfx.SDF3) r3.Box {
	bb := s.BoundingBox()
	return r3.Box{
		Min: r3.Vec{X: bb.Min.X, Y: bb.Min.Y, Z: bb.Min.Z},
		Max: r3.Vec{X: bb.Max.X, Y: bb.Max.Y, Z: bb.Max.Z},
	}
}

// SDF2Bounds returns the bounding box of an sdfx 2D object as an r2.Box.
func SDF2Bounds(s sdfx.SDF2) r2.Box {
	bb := s.BoundingBox()
	return r2.Box{
		Min: r2.Vec{X: bb.Min.X, Y: bb.Min.Y},
		Max: r2.Vec{X: bb.Max.X, Y: bb.Max.Y},
	}
}
