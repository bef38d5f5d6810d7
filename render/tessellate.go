package render

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/implicit/internal/d3"
)

// Loop tessellation. Closed face loops become triangles directly,
// except axis aligned rectangles which are held back as quads so that
// coplanar neighbors can be coalesced before triangulation.

// quad is an axis aligned rectangle in the plane normal to axis at
// coordinate w. The u axis is the next axis after the normal in cyclic
// order and v the one after that. normalPositive records which side of
// the plane the surface normal points to.
type quad struct {
	axis                   int
	w                      float64
	umin, umax, vmin, vmax float64
	normalPositive         bool
}

// tessellateLoop converts one closed 3D loop into triangles, or into a
// single quad when the loop is an axis aligned rectangle. Degenerate
// loops with fewer than three distinct points produce nothing.
func tessellateLoop(loop []r3.Vec, tol float64) ([]Triangle3, []quad) {
	pts := dedupe3(loop, tol)
	if len(pts) < 3 {
		return nil, nil
	}
	if len(pts) == 3 {
		t := Triangle3{pts[0], pts[1], pts[2]}
		if t.Degenerate(tol) {
			return nil, nil
		}
		return []Triangle3{t}, nil
	}
	if axis, w, ok := planarAxis(pts, tol); ok {
		if q, ok := asRectangle(pts, axis, w, tol); ok {
			return nil, []quad{q}
		}
		return earClip(pts, axis), nil
	}
	return centroidFan(pts), nil
}

func dedupe3(loop []r3.Vec, tol float64) []r3.Vec {
	out := make([]r3.Vec, 0, len(loop))
	for _, p := range loop {
		if len(out) > 0 && d3.EqualWithin(out[len(out)-1], p, tol) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && d3.EqualWithin(out[0], out[len(out)-1], tol) {
		out = out[:len(out)-1]
	}
	return out
}

// planarAxis reports whether all points share a coordinate on some
// axis, returning that axis and the shared coordinate.
func planarAxis(pts []r3.Vec, tol float64) (axis int, w float64, ok bool) {
	for a := 0; a < 3; a++ {
		w = d3.Axis(pts[0], a)
		flat := true
		for _, p := range pts[1:] {
			if math.Abs(d3.Axis(p, a)-w) > tol {
				flat = false
				break
			}
		}
		if flat {
			return a, w, true
		}
	}
	return 0, 0, false
}

// project maps a point into the (u,v) frame of the plane normal to axis.
func project(p r3.Vec, axis int) r2.Vec {
	return r2.Vec{X: d3.Axis(p, (axis+1)%3), Y: d3.Axis(p, (axis+2)%3)}
}

// unproject embeds a (u,v) point back into 3D on the plane normal to
// axis at coordinate w.
func unproject(uv r2.Vec, axis int, w float64) r3.Vec {
	var p r3.Vec
	p = d3.SetAxis(p, axis, w)
	p = d3.SetAxis(p, (axis+1)%3, uv.X)
	p = d3.SetAxis(p, (axis+2)%3, uv.Y)
	return p
}

func signedArea2(pts []r2.Vec) float64 {
	var sum float64
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return 0.5 * sum
}

// asRectangle recognizes a four point loop whose edges are axis
// aligned in the plane frame.
func asRectangle(pts []r3.Vec, axis int, w, tol float64) (quad, bool) {
	if len(pts) != 4 {
		return quad{}, false
	}
	uv := make([]r2.Vec, 4)
	for i, p := range pts {
		uv[i] = project(p, axis)
	}
	for i := 0; i < 4; i++ {
		e := r2.Sub(uv[(i+1)%4], uv[i])
		alignedU := math.Abs(e.Y) <= tol && math.Abs(e.X) > tol
		alignedV := math.Abs(e.X) <= tol && math.Abs(e.Y) > tol
		if !alignedU && !alignedV {
			return quad{}, false
		}
	}
	q := quad{
		axis:           axis,
		w:              w,
		umin:           math.Min(math.Min(uv[0].X, uv[1].X), math.Min(uv[2].X, uv[3].X)),
		umax:           math.Max(math.Max(uv[0].X, uv[1].X), math.Max(uv[2].X, uv[3].X)),
		vmin:           math.Min(math.Min(uv[0].Y, uv[1].Y), math.Min(uv[2].Y, uv[3].Y)),
		vmax:           math.Max(math.Max(uv[0].Y, uv[1].Y), math.Max(uv[2].Y, uv[3].Y)),
		normalPositive: signedArea2(uv) > 0,
	}
	return q, true
}

// earClip triangulates a planar simple polygon. Loop order is kept so
// triangle winding matches the loop orientation.
func earClip(pts []r3.Vec, axis int) []Triangle3 {
	uv := make([]r2.Vec, len(pts))
	for i, p := range pts {
		uv[i] = project(p, axis)
	}
	orient := 1.0
	if signedArea2(uv) < 0 {
		orient = -1
	}
	idx := make([]int, len(pts))
	for i := range idx {
		idx[i] = i
	}
	var tris []Triangle3
	for len(idx) > 3 {
		clipped := false
		for i := 0; i < len(idx); i++ {
			ip := idx[(i+len(idx)-1)%len(idx)]
			ic := idx[i]
			in := idx[(i+1)%len(idx)]
			a, b, c := uv[ip], uv[ic], uv[in]
			cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
			if cross*orient <= 0 {
				continue
			}
			ok := true
			for _, j := range idx {
				if j == ip || j == ic || j == in {
					continue
				}
				if pointInTriangle(uv[j], a, b, c) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			tris = append(tris, Triangle3{pts[ip], pts[ic], pts[in]})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// Numerically stuck polygon. Fall back to a fan so no hole
			// is left in the mesh.
			for i := 1; i+1 < len(idx); i++ {
				tris = append(tris, Triangle3{pts[idx[0]], pts[idx[i]], pts[idx[i+1]]})
			}
			return tris
		}
	}
	tris = append(tris, Triangle3{pts[idx[0]], pts[idx[1]], pts[idx[2]]})
	return tris
}

func pointInTriangle(p, a, b, c r2.Vec) bool {
	s1 := (p.X-b.X)*(a.Y-b.Y) - (a.X-b.X)*(p.Y-b.Y)
	s2 := (p.X-c.X)*(b.Y-c.Y) - (b.X-c.X)*(p.Y-c.Y)
	s3 := (p.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(p.Y-a.Y)
	hasNeg := s1 < 0 || s2 < 0 || s3 < 0
	hasPos := s1 > 0 || s2 > 0 || s3 > 0
	return !(hasNeg && hasPos)
}

// centroidFan triangulates a non-planar loop by fanning from its
// centroid. Adjacent loops share the boundary edges exactly, so the
// mesh stays watertight.
func centroidFan(pts []r3.Vec) []Triangle3 {
	var c r3.Vec
	for _, p := range pts {
		c = r3.Add(c, p)
	}
	c = r3.Scale(1/float64(len(pts)), c)
	tris := make([]Triangle3, 0, len(pts))
	for i := range pts {
		tris = append(tris, Triangle3{c, pts[i], pts[(i+1)%len(pts)]})
	}
	return tris
}

// mergeQuads coalesces coplanar axis aligned quads that share a full
// edge into larger rectangles, then triangulates the result. Each pass
// merges along u and then along v; passes repeat until one changes
// nothing, so columns merged along v can go on to merge along u.
func mergeQuads(quads []quad, quantum float64) []Triangle3 {
	type groupKey struct {
		axis int
		w    int64
		pos  bool
	}
	groups := make(map[groupKey][]quad)
	var order []groupKey
	for _, q := range quads {
		k := groupKey{axis: q.axis, w: quantize(q.w, quantum), pos: q.normalPositive}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], q)
	}
	var tris []Triangle3
	for _, k := range order {
		g := groups[k]
		for {
			merged := mergeAlongU(g, quantum)
			merged = mergeAlongV(merged, quantum)
			if len(merged) == len(g) {
				g = merged
				break
			}
			g = merged
		}
		for _, q := range g {
			tris = append(tris, q.triangles()...)
		}
	}
	return tris
}

func mergeAlongU(g []quad, quantum float64) []quad {
	sort.Slice(g, func(i, j int) bool {
		a, b := g[i], g[j]
		if qv := quantize(a.vmin, quantum) - quantize(b.vmin, quantum); qv != 0 {
			return qv < 0
		}
		if qv := quantize(a.vmax, quantum) - quantize(b.vmax, quantum); qv != 0 {
			return qv < 0
		}
		return a.umin < b.umin
	})
	out := g[:0]
	for _, q := range g {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if quantize(last.vmin, quantum) == quantize(q.vmin, quantum) &&
				quantize(last.vmax, quantum) == quantize(q.vmax, quantum) &&
				quantize(last.umax, quantum) == quantize(q.umin, quantum) {
				last.umax = q.umax
				continue
			}
		}
		out = append(out, q)
	}
	return out
}

func mergeAlongV(g []quad, quantum float64) []quad {
	sort.Slice(g, func(i, j int) bool {
		a, b := g[i], g[j]
		if qu := quantize(a.umin, quantum) - quantize(b.umin, quantum); qu != 0 {
			return qu < 0
		}
		if qu := quantize(a.umax, quantum) - quantize(b.umax, quantum); qu != 0 {
			return qu < 0
		}
		return a.vmin < b.vmin
	})
	out := g[:0]
	for _, q := range g {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if quantize(last.umin, quantum) == quantize(q.umin, quantum) &&
				quantize(last.umax, quantum) == quantize(q.umax, quantum) &&
				quantize(last.vmax, quantum) == quantize(q.vmin, quantum) {
				last.vmax = q.vmax
				continue
			}
		}
		out = append(out, q)
	}
	return out
}

// triangles splits the quad along its diagonal. Corner order follows
// the recorded normal direction.
func (q quad) triangles() []Triangle3 {
	c0 := unproject(r2.Vec{X: q.umin, Y: q.vmin}, q.axis, q.w)
	c1 := unproject(r2.Vec{X: q.umax, Y: q.vmin}, q.axis, q.w)
	c2 := unproject(r2.Vec{X: q.umax, Y: q.vmax}, q.axis, q.w)
	c3 := unproject(r2.Vec{X: q.umin, Y: q.vmax}, q.axis, q.w)
	if q.normalPositive {
		return []Triangle3{{c0, c1, c2}, {c0, c2, c3}}
	}
	return []Triangle3{{c0, c3, c2}, {c0, c2, c1}}
}
