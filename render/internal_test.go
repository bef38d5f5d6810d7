package render

import (
	"bytes"
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/implicit"
	"github.com/soypat/implicit/internal/d3"
)

func TestSTLWriteReadback(t *testing.T) {
	const tol = 1e-5
	ball := implicit.Func3(func(p r3.Vec) float64 { return r3.Norm(p) - 1 })
	bound := r3.Vec{X: 1.2, Y: 1.2, Z: 1.2}
	res := r3.Vec{X: 0.2, Y: 0.2, Z: 0.2}
	input, err := GetMesh(r3.Scale(-1, bound), bound, res, ball)
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	err = WriteSTL(&b, input)
	if err != nil {
		t.Fatal(err)
	}
	output, err := readBinarySTL(&b)
	if err != nil && !errors.Is(err, errCalculatedNormalMismatch) {
		t.Fatal(err)
	}
	if len(output) != len(input) {
		t.Fatal("length of triangles written/read not equal")
	}
	mismatches := 0
	for iface, expect := range input {
		got := output[iface]
		if got.Degenerate(1e-12) {
			t.Fatalf("triangle degenerate: %+v", got)
		}
		for i := range expect {
			if !d3.EqualWithin(got[i], expect[i], tol) {
				mismatches++
				t.Errorf("%dth triangle equality out of tolerance. got vertex %0.5g, want %0.5g", iface, got[i], expect[i])
			}
		}
		if mismatches > 10 {
			t.Fatal("too many mismatches")
		}
	}
}
