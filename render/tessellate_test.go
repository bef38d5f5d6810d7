package render

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const tessTol = 1e-9

func triangleArea(t Triangle3) float64 {
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	return 0.5 * r3.Norm(r3.Cross(e1, e2))
}

func TestTessellateTriangle(t *testing.T) {
	loop := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 1}}
	tris, quads := tessellateLoop(loop, tessTol)
	if len(quads) != 0 {
		t.Errorf("triangle loop produced %d quads", len(quads))
	}
	if len(tris) != 1 {
		t.Fatalf("got %d triangles, want 1", len(tris))
	}
	if tris[0] != (Triangle3{loop[0], loop[1], loop[2]}) {
		t.Errorf("triangle vertex order altered: %v", tris[0])
	}
}

func TestTessellateDegenerate(t *testing.T) {
	for _, tc := range []struct {
		name string
		loop []r3.Vec
	}{
		{name: "two points", loop: []r3.Vec{{X: 0}, {X: 1}, {X: 0}}},
		{name: "needle", loop: []r3.Vec{{X: 0}, {X: 1}, {X: 1, Y: tessTol / 2}}},
	} {
		tris, quads := tessellateLoop(tc.loop, tessTol)
		if len(tris) != 0 || len(quads) != 0 {
			t.Errorf("%s: got %d triangles and %d quads, want none", tc.name, len(tris), len(quads))
		}
	}
}

func TestTessellateRectangle(t *testing.T) {
	// A counter-clockwise rectangle in the z=w plane must be held back
	// as a quad with a positive normal, not triangulated.
	loop := []r3.Vec{
		{X: 0, Y: 0, Z: 2},
		{X: 3, Y: 0, Z: 2},
		{X: 3, Y: 1, Z: 2},
		{X: 0, Y: 1, Z: 2},
	}
	tris, quads := tessellateLoop(loop, tessTol)
	if len(tris) != 0 {
		t.Errorf("rectangle loop leaked %d triangles", len(tris))
	}
	if len(quads) != 1 {
		t.Fatalf("got %d quads, want 1", len(quads))
	}
	q := quads[0]
	if q.axis != 2 || q.w != 2 {
		t.Errorf("quad plane axis=%d w=%g, want axis=2 w=2", q.axis, q.w)
	}
	if q.umin != 0 || q.umax != 3 || q.vmin != 0 || q.vmax != 1 {
		t.Errorf("quad extent [%g,%g]x[%g,%g]", q.umin, q.umax, q.vmin, q.vmax)
	}
	if !q.normalPositive {
		t.Error("counter-clockwise rectangle should have positive normal")
	}

	// Reversed winding flips the recorded normal side.
	rev := []r3.Vec{loop[3], loop[2], loop[1], loop[0]}
	_, quads = tessellateLoop(rev, tessTol)
	if len(quads) != 1 || quads[0].normalPositive {
		t.Error("clockwise rectangle should have negative normal")
	}
}

func TestTessellateEarClip(t *testing.T) {
	// Concave L shape in the z=0 plane, counter-clockwise. Not a
	// rectangle, so it must ear clip into len-2 triangles covering the
	// full area with upward normals.
	loop := []r3.Vec{
		{X: 0, Y: 0},
		{X: 2, Y: 0},
		{X: 2, Y: 1},
		{X: 1, Y: 1},
		{X: 1, Y: 2},
		{X: 0, Y: 2},
	}
	tris, quads := tessellateLoop(loop, tessTol)
	if len(quads) != 0 {
		t.Errorf("concave loop produced %d quads", len(quads))
	}
	if len(tris) != len(loop)-2 {
		t.Fatalf("got %d triangles, want %d", len(tris), len(loop)-2)
	}
	var area float64
	for _, tri := range tris {
		area += triangleArea(tri)
		if n := tri.Normal(); n.Z <= 0 {
			t.Errorf("triangle %v has normal %v, want +z", tri, n)
		}
	}
	if math.Abs(area-3) > 1e-9 {
		t.Errorf("triangulated area %g, want 3", area)
	}
}

func TestTessellateNonPlanar(t *testing.T) {
	// A skew quadrilateral fans from its centroid: one triangle per
	// boundary edge, every boundary edge used exactly once.
	loop := []r3.Vec{
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0.3},
		{X: -1, Y: 0, Z: 0},
		{X: 0, Y: -1, Z: 0.3},
	}
	tris, quads := tessellateLoop(loop, tessTol)
	if len(quads) != 0 {
		t.Errorf("non-planar loop produced %d quads", len(quads))
	}
	if len(tris) != len(loop) {
		t.Fatalf("got %d triangles, want %d", len(tris), len(loop))
	}
	for i, tri := range tris {
		p, q := loop[i], loop[(i+1)%len(loop)]
		if tri[1] != p || tri[2] != q {
			t.Errorf("triangle %d does not cover boundary edge %v->%v: %v", i, p, q, tri)
		}
	}
}

func TestMergeQuadsRow(t *testing.T) {
	// Two unit quads sharing a full v-aligned edge merge into one
	// rectangle and triangulate with the recorded normal side.
	quads := []quad{
		{axis: 2, w: 0, umin: 0, umax: 1, vmin: 0, vmax: 1, normalPositive: true},
		{axis: 2, w: 0, umin: 1, umax: 2, vmin: 0, vmax: 1, normalPositive: true},
	}
	tris := mergeQuads(quads, stitchQuantum)
	if len(tris) != 2 {
		t.Fatalf("got %d triangles, want 2 after merge", len(tris))
	}
	var area float64
	for _, tri := range tris {
		area += triangleArea(tri)
		if n := tri.Normal(); n.Z <= 0 {
			t.Errorf("merged triangle normal %v, want +z", n)
		}
	}
	if math.Abs(area-2) > 1e-9 {
		t.Errorf("merged area %g, want 2", area)
	}
}

func TestMergeQuadsGrid(t *testing.T) {
	// A full 2x2 tiling collapses to a single rectangle: the quads merge
	// into rows along u first, then the two rows merge along v.
	var quads []quad
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			quads = append(quads, quad{
				axis: 0, w: 5,
				umin: float64(i), umax: float64(i + 1),
				vmin: float64(j), vmax: float64(j + 1),
				normalPositive: false,
			})
		}
	}
	tris := mergeQuads(quads, stitchQuantum)
	if len(tris) != 2 {
		t.Fatalf("got %d triangles, want 2 after full merge", len(tris))
	}
	for _, tri := range tris {
		if n := tri.Normal(); n.X >= 0 {
			t.Errorf("triangle normal %v, want -x", n)
		}
		for _, v := range tri {
			if v.X != 5 {
				t.Errorf("vertex %v off the x=5 plane", v)
			}
		}
	}
}

func TestMergeQuadsKeepsGroupsApart(t *testing.T) {
	// Same extent, different planes and opposite normals: nothing merges.
	quads := []quad{
		{axis: 2, w: 0, umin: 0, umax: 1, vmin: 0, vmax: 1, normalPositive: true},
		{axis: 2, w: 1, umin: 1, umax: 2, vmin: 0, vmax: 1, normalPositive: true},
		{axis: 2, w: 0, umin: 1, umax: 2, vmin: 0, vmax: 1, normalPositive: false},
	}
	tris := mergeQuads(quads, stitchQuantum)
	if len(tris) != 6 {
		t.Errorf("got %d triangles, want 6 with no merging", len(tris))
	}
}
