package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/implicit"
	"github.com/soypat/implicit/internal/d2"
	"github.com/soypat/implicit/internal/d3"
)

// Marching squares segment extraction. Each grid square is classified
// by the inside/outside state of its four corners and emits up to two
// oriented segments of the zero contour. Segments keep the solid on
// their left so that downstream loop stitching preserves winding.

const epsilon = 1e-12

// inside reports whether a sampled value lies in the solid. The
// boundary itself counts as inside.
func inside(v float64) bool {
	return v <= 0
}

// segment2 is an oriented contour segment within a single square.
type segment2 struct {
	p, q r2.Vec
}

// squareCorners holds the sampled state of one grid square.
//
//	c01 ---- c11
//	 |        |
//	c00 ---- c10
//
// bx/tx are the contour crossing x coordinates on the bottom and top
// edges, ly/ry the crossing y coordinates on the left and right edges.
// Crossing values are only meaningful when the corresponding edge has
// a sign change.
type squareCorners struct {
	x0, y0, x1, y1     float64
	v00, v10, v11, v01 float64
	bx, tx, ly, ry     float64
}

// marchSquare appends the oriented contour segments of one square to
// dst. The center sample g resolves the two ambiguous saddle cases.
func marchSquare(sq squareCorners, g func(p r2.Vec) float64, dst []segment2) []segment2 {
	idx := 0
	if inside(sq.v00) {
		idx |= 1
	}
	if inside(sq.v10) {
		idx |= 2
	}
	if inside(sq.v11) {
		idx |= 4
	}
	if inside(sq.v01) {
		idx |= 8
	}
	if idx == 0 || idx == 15 {
		return dst
	}

	bot := r2.Vec{X: sq.bx, Y: sq.y0}
	top := r2.Vec{X: sq.tx, Y: sq.y1}
	lft := r2.Vec{X: sq.x0, Y: sq.ly}
	rgt := r2.Vec{X: sq.x1, Y: sq.ry}

	switch idx {
	case 1:
		dst = appendSegment(dst, bot, lft)
	case 2:
		dst = appendSegment(dst, rgt, bot)
	case 3:
		dst = appendSegment(dst, rgt, lft)
	case 4:
		dst = appendSegment(dst, top, rgt)
	case 5:
		// saddle: corners c00 and c11 inside
		if inside(g(r2.Vec{X: 0.5 * (sq.x0 + sq.x1), Y: 0.5 * (sq.y0 + sq.y1)})) {
			dst = appendSegment(dst, bot, rgt)
			dst = appendSegment(dst, top, lft)
		} else {
			dst = appendSegment(dst, bot, lft)
			dst = appendSegment(dst, top, rgt)
		}
	case 6:
		dst = appendSegment(dst, top, bot)
	case 7:
		dst = appendSegment(dst, top, lft)
	case 8:
		dst = appendSegment(dst, lft, top)
	case 9:
		dst = appendSegment(dst, bot, top)
	case 10:
		// saddle: corners c10 and c01 inside
		if inside(g(r2.Vec{X: 0.5 * (sq.x0 + sq.x1), Y: 0.5 * (sq.y0 + sq.y1)})) {
			dst = appendSegment(dst, lft, bot)
			dst = appendSegment(dst, rgt, top)
		} else {
			dst = appendSegment(dst, rgt, bot)
			dst = appendSegment(dst, lft, top)
		}
	case 11:
		dst = appendSegment(dst, rgt, top)
	case 12:
		dst = appendSegment(dst, lft, rgt)
	case 13:
		dst = appendSegment(dst, bot, rgt)
	case 14:
		dst = appendSegment(dst, lft, bot)
	}
	return dst
}

// appendSegment drops zero length segments so coincident edge
// crossings cannot produce degenerate loop edges.
func appendSegment(dst []segment2, p, q r2.Vec) []segment2 {
	if math.Abs(p.X-q.X) <= epsilon && math.Abs(p.Y-q.Y) <= epsilon {
		return dst
	}
	return append(dst, segment2{p: p, q: q})
}

const maxRefineDepth = 3

// refine2 subdivides a contour segment until the field midpoint
// deviation drops below tol. Endpoints are put in canonical order
// before subdividing so a segment shared between squares refines to
// identical interior points regardless of traversal direction.
func refine2(p, q r2.Vec, f implicit.Field2, tol float64) []r2.Vec {
	flip := q.X < p.X || (q.X == p.X && q.Y < p.Y)
	if flip {
		p, q = q, p
	}
	pts := append(refineSplit2(p, q, f, tol, maxRefineDepth), q)
	if flip {
		reverse2(pts)
	}
	return pts
}

// refineSplit2 returns the refined polyline from p up to but excluding q.
func refineSplit2(p, q r2.Vec, f implicit.Field2, tol float64, depth int) []r2.Vec {
	seglen := r2.Norm(r2.Sub(q, p))
	mid := r2.Scale(0.5, r2.Add(p, q))
	mv := f.Evaluate(mid)
	if depth <= 0 || math.Abs(mv) <= tol || seglen <= tol {
		return []r2.Vec{p}
	}
	// Project the midpoint onto the surface with a Newton step along
	// the field gradient. A wild step on a badly scaled field degrades
	// to a plain midpoint split.
	n := implicit.Normal2(f, mid, tol)
	s := r2.Sub(mid, r2.Scale(mv, n))
	if d2.IsNaN(s) || r2.Norm(r2.Sub(s, mid)) > seglen {
		s = mid
	}
	pts := refineSplit2(p, s, f, tol, depth-1)
	return append(pts, refineSplit2(s, q, f, tol, depth-1)...)
}

// refine3 is the 3D analog of refine2 for face segments already
// embedded in space. Canonical lexicographic ordering keeps interior
// points bit identical between the two cells sharing a face.
func refine3(p, q r3.Vec, f implicit.Field3, tol float64) []r3.Vec {
	flip := lexLess3(q, p)
	if flip {
		p, q = q, p
	}
	pts := append(refineSplit3(p, q, f, tol, maxRefineDepth), q)
	if flip {
		reverse3(pts)
	}
	return pts
}

func refineSplit3(p, q r3.Vec, f implicit.Field3, tol float64, depth int) []r3.Vec {
	seglen := r3.Norm(r3.Sub(q, p))
	mid := r3.Scale(0.5, r3.Add(p, q))
	mv := f.Evaluate(mid)
	if depth <= 0 || math.Abs(mv) <= tol || seglen <= tol {
		return []r3.Vec{p}
	}
	n := implicit.Normal3(f, mid, tol)
	s := r3.Sub(mid, r3.Scale(mv, n))
	if d3.IsNaN(s) || r3.Norm(r3.Sub(s, mid)) > seglen {
		s = mid
	}
	pts := refineSplit3(p, s, f, tol, depth-1)
	return append(pts, refineSplit3(s, q, f, tol, depth-1)...)
}

func lexLess3(a, b r3.Vec) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

func reverse2(v []r2.Vec) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

func reverse3(v []r3.Vec) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
