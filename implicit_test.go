package implicit_test

import (
	"math"
	"testing"

	sdfxsdf "github.com/deadsy/sdfx/sdf"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/implicit"
)

func TestNormal3(t *testing.T) {
	ball := implicit.Func3(func(p r3.Vec) float64 { return r3.Norm(p) - 1 })
	for _, p := range []r3.Vec{
		{X: 1},
		{Y: -1},
		{X: 0.5, Y: 0.5, Z: 0.70710678},
		{X: 2, Y: 2},
	} {
		n := implicit.Normal3(ball, p, 1e-6)
		want := r3.Unit(p)
		if r3.Norm(r3.Sub(n, want)) > 1e-4 {
			t.Errorf("normal at %v is %v, want %v", p, n, want)
		}
	}
}

func TestNormal2(t *testing.T) {
	circle := implicit.Func2(func(p r2.Vec) float64 { return r2.Norm(p) - 1 })
	p := r2.Vec{X: 0.6, Y: 0.8}
	n := implicit.Normal2(circle, p, 1e-6)
	if r2.Norm(r2.Sub(n, p)) > 1e-4 {
		t.Errorf("normal at %v is %v", p, n)
	}
}

func TestScalarHelpers(t *testing.T) {
	if got := implicit.Clamp(2, -1, 1); got != 1 {
		t.Errorf("Clamp(2,-1,1) = %g", got)
	}
	if got := implicit.Clamp(-2, -1, 1); got != -1 {
		t.Errorf("Clamp(-2,-1,1) = %g", got)
	}
	if got := implicit.Mix(2, 4, 0.5); got != 3 {
		t.Errorf("Mix(2,4,0.5) = %g", got)
	}
	if implicit.Sign(-3) != -1 || implicit.Sign(3) != 1 || implicit.Sign(0) != 0 {
		t.Error("Sign mismatch")
	}
	if !implicit.EqualFloat64(1, 1+1e-12, 1e-9) {
		t.Error("EqualFloat64 rejects nearly equal values")
	}
	if implicit.EqualFloat64(1, 1.1, 1e-9) {
		t.Error("EqualFloat64 accepts distant values")
	}
}

func TestFromSDF3(t *testing.T) {
	object, err := sdfxsdf.Sphere3D(2)
	if err != nil {
		t.Fatal(err)
	}
	field := implicit.FromSDF3(object)
	if v := field.Evaluate(r3.Vec{}); math.Abs(v+2) > 1e-9 {
		t.Errorf("field at center is %g, want -2", v)
	}
	if v := field.Evaluate(r3.Vec{X: 3}); math.Abs(v-1) > 1e-9 {
		t.Errorf("field outside is %g, want 1", v)
	}
	bb := implicit.SDF3Bounds(object)
	if bb.Max.X < 2 || bb.Min.X > -2 {
		t.Errorf("bounds %+v do not cover the sphere", bb)
	}
}

func TestFromSDF2(t *testing.T) {
	object, err := sdfxsdf.Circle2D(1)
	if err != nil {
		t.Fatal(err)
	}
	field := implicit.FromSDF2(object)
	if v := field.Evaluate(r2.Vec{}); v >= 0 {
		t.Errorf("field at center is %g, want negative", v)
	}
	if v := field.Evaluate(r2.Vec{X: 2}); v <= 0 {
		t.Errorf("field outside is %g, want positive", v)
	}
	bb := implicit.SDF2Bounds(object)
	if bb.Max.X < 1 || bb.Min.Y > -1 {
		t.Errorf("bounds %+v do not cover the circle", bb)
	}
}
