package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/soypat/implicit"
)

// Uniform grid sweep over a 2D field, the contour analog of the cube
// march. Rows take the place of Z-slices as the parallel work unit and
// the output is stitched globally instead of per cell, since a contour
// loop typically spans many cells.

type march2 struct {
	field  implicit.Field2
	origin [2]float64
	step   [2]float64
	ncell  [2]int
	ld     [2]int
	v      []float64
	m      [2][]float64

	refineTol float64
	quantum   float64

	dropped int
}

func marchSquares(p1, p2, res r2.Vec, f implicit.Field2) []Polyline2 {
	m := newMarch2(p1, p2, res, f)
	m.sampleCorners()
	m.findCrossings()
	return m.trace()
}

func newMarch2(p1, p2, res r2.Vec, f implicit.Field2) *march2 {
	m := &march2{field: f}
	m.origin = [2]float64{p1.X, p1.Y}
	size := [2]float64{p2.X - p1.X, p2.Y - p1.Y}
	rv := [2]float64{res.X, res.Y}
	for a, ext := range size {
		n := int(math.Ceil(ext / rv[a]))
		if n < 1 {
			n = 1
		}
		m.ncell[a] = n
		m.step[a] = ext / float64(n)
		m.ld[a] = n + 3
	}
	minStep := math.Min(m.step[0], m.step[1])
	m.refineTol = refineFraction * minStep
	m.quantum = snapFraction * minStep
	m.v = make([]float64, m.ld[0]*m.ld[1])
	for a := range m.m {
		m.m[a] = make([]float64, len(m.v))
	}
	return m
}

func (m *march2) vIdx(i, j int) int {
	return j*m.ld[0] + i
}

func (m *march2) coord(axis, idx int) float64 {
	return m.origin[axis] + float64(idx)*m.step[axis]
}

func (m *march2) point(i, j int) r2.Vec {
	return r2.Vec{X: m.coord(0, i), Y: m.coord(1, j)}
}

func (m *march2) sampleCorners() {
	parallelSlices(m.ld[1], func(lo, hi int) {
		for j := lo; j < hi; j++ {
			for i := 0; i < m.ld[0]; i++ {
				m.v[m.vIdx(i, j)] = m.field.Evaluate(m.point(i, j))
			}
		}
	})
}

func (m *march2) findCrossings() {
	parallelSlices(m.ld[1], func(lo, hi int) {
		for j := lo; j < hi; j++ {
			for i := 0; i < m.ld[0]; i++ {
				idx := m.vIdx(i, j)
				for a := 0; a < 2; a++ {
					m.m[a][idx] = m.edgeCrossing([2]int{i, j}, a, idx)
				}
			}
		}
	})
}

func (m *march2) edgeCrossing(p [2]int, axis, idx int) float64 {
	lo := m.coord(axis, p[axis])
	if p[axis]+1 >= m.ld[axis] {
		return lo
	}
	q := p
	q[axis]++
	va := m.v[idx]
	vb := m.v[m.vIdx(q[0], q[1])]
	if inside(va) == inside(vb) {
		return lo
	}
	hi := m.coord(axis, q[axis])
	base := m.point(p[0], p[1])
	return interpolate(lo, va, hi, vb, func(t float64) float64 {
		p := base
		if axis == 0 {
			p.X = t
		} else {
			p.Y = t
		}
		return m.field.Evaluate(p)
	})
}

// trace extracts cell segments row by row, stitches them into loops
// and cleans the result into closed polylines. Chunk outputs are
// concatenated in row order before stitching so the contour is
// deterministic.
func (m *march2) trace() []Polyline2 {
	ny := m.ncell[1]
	nchunk := (ny + sliceChunk - 1) / sliceChunk
	chunkSegs := make([][]segment2, nchunk)
	parallelSlices(ny, func(lo, hi int) {
		var segs []segment2
		for j := lo; j < hi; j++ {
			for i := 0; i < m.ncell[0]; i++ {
				segs = m.cellSegments(i, j, segs)
			}
		}
		chunkSegs[lo/sliceChunk] = segs
	})
	var segs []segment2
	for _, s := range chunkSegs {
		segs = append(segs, s...)
	}
	loops, dropped := stitchLoops2(segs, m.quantum)
	m.dropped = dropped
	out := []Polyline2{}
	for _, loop := range loops {
		p := cleanPolyline(loop, m.quantum)
		if p == nil {
			continue
		}
		// close the loop explicitly
		out = append(out, append(p, p[0]))
	}
	return out
}

func (m *march2) cellSegments(i, j int, dst []segment2) []segment2 {
	v00 := m.v[m.vIdx(i, j)]
	v10 := m.v[m.vIdx(i+1, j)]
	v11 := m.v[m.vIdx(i+1, j+1)]
	v01 := m.v[m.vIdx(i, j+1)]
	in := 0
	for _, v := range [4]float64{v00, v10, v11, v01} {
		if inside(v) {
			in++
		}
	}
	if in == 0 || in == 4 {
		return dst
	}
	sq := squareCorners{
		x0: m.coord(0, i), y0: m.coord(1, j),
		x1: m.coord(0, i+1), y1: m.coord(1, j+1),
		v00: v00, v10: v10, v11: v11, v01: v01,
		bx: m.m[0][m.vIdx(i, j)],
		tx: m.m[0][m.vIdx(i, j+1)],
		ly: m.m[1][m.vIdx(i, j)],
		ry: m.m[1][m.vIdx(i+1, j)],
	}
	var scratch [2]segment2
	for _, s := range marchSquare(sq, m.field.Evaluate, scratch[:0]) {
		pts := refine2(s.p, s.q, m.field, m.refineTol)
		for n := 1; n < len(pts); n++ {
			dst = append(dst, segment2{p: pts[n-1], q: pts[n]})
		}
	}
	return dst
}
