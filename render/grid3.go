package render

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/implicit"
	"github.com/soypat/implicit/internal/d3"
)

// Uniform grid sweep over a 3D field. The sweep runs in three phases
// separated by barriers: corner sampling, edge crossing interpolation,
// and per-cell segment extraction with loop stitching. Each phase
// parallelizes over Z-slices grouped into chunks.

// sliceChunk is the number of outer-axis slices handled per task.
const sliceChunk = 32

const (
	// refineFraction scales the minimum step into the segment refiner
	// midpoint tolerance.
	refineFraction = 0.2
	// snapFraction scales the minimum step into the coordinate quantum
	// used for endpoint matching and coplanarity tests.
	snapFraction = 1e-6
)

type march3 struct {
	field  implicit.Field3
	origin [3]float64
	step   [3]float64
	ncell  [3]int // cells per axis
	ld     [3]int // corner lattice dimensions, halo included
	v      []float64
	m      [3][]float64 // edge crossing coordinate per axis

	refineTol float64
	quantum   float64

	dropped int
}

func marchCubes(region d3.Box, res r3.Vec, f implicit.Field3) ([]Triangle3, int) {
	m := newMarch3(region, res, f)
	m.sampleCorners()
	m.findCrossings()
	tris := m.processCells()
	return tris, m.dropped
}

func newMarch3(region d3.Box, res r3.Vec, f implicit.Field3) *march3 {
	size := region.Size()
	m := &march3{field: f}
	m.origin = [3]float64{region.Min.X, region.Min.Y, region.Min.Z}
	for a, ext := range [3]float64{size.X, size.Y, size.Z} {
		n := int(math.Ceil(ext / d3.Axis(res, a)))
		if n < 1 {
			n = 1
		}
		m.ncell[a] = n
		m.step[a] = ext / float64(n)
		m.ld[a] = n + 3
	}
	minStep := math.Min(m.step[0], math.Min(m.step[1], m.step[2]))
	m.refineTol = refineFraction * minStep
	m.quantum = snapFraction * minStep
	m.v = make([]float64, m.ld[0]*m.ld[1]*m.ld[2])
	for a := range m.m {
		m.m[a] = make([]float64, len(m.v))
	}
	return m
}

func (m *march3) vIdx(i, j, k int) int {
	return (k*m.ld[1]+j)*m.ld[0] + i
}

func (m *march3) coord(axis, idx int) float64 {
	return m.origin[axis] + float64(idx)*m.step[axis]
}

func (m *march3) point(i, j, k int) r3.Vec {
	return r3.Vec{X: m.coord(0, i), Y: m.coord(1, j), Z: m.coord(2, k)}
}

// parallelSlices runs fn over [0,total) slice indices, one goroutine
// per chunk, and waits for all chunks to finish.
func parallelSlices(total int, fn func(lo, hi int)) {
	var wg sync.WaitGroup
	for lo := 0; lo < total; lo += sliceChunk {
		hi := lo + sliceChunk
		if hi > total {
			hi = total
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

// sampleCorners fills the corner value cache over the halo'd lattice.
func (m *march3) sampleCorners() {
	parallelSlices(m.ld[2], func(lo, hi int) {
		for k := lo; k < hi; k++ {
			for j := 0; j < m.ld[1]; j++ {
				for i := 0; i < m.ld[0]; i++ {
					m.v[m.vIdx(i, j, k)] = m.field.Evaluate(m.point(i, j, k))
				}
			}
		}
	})
}

// findCrossings fills the three edge caches. Each entry holds the zero
// crossing coordinate along its axis, or the lower endpoint coordinate
// when the edge has no sign change.
func (m *march3) findCrossings() {
	parallelSlices(m.ld[2], func(lo, hi int) {
		for k := lo; k < hi; k++ {
			for j := 0; j < m.ld[1]; j++ {
				for i := 0; i < m.ld[0]; i++ {
					idx := m.vIdx(i, j, k)
					p := [3]int{i, j, k}
					for a := 0; a < 3; a++ {
						m.m[a][idx] = m.edgeCrossing(p, a, idx)
					}
				}
			}
		}
	})
}

func (m *march3) edgeCrossing(p [3]int, axis, idx int) float64 {
	lo := m.coord(axis, p[axis])
	if p[axis]+1 >= m.ld[axis] {
		return lo
	}
	q := p
	q[axis]++
	va := m.v[idx]
	vb := m.v[m.vIdx(q[0], q[1], q[2])]
	if inside(va) == inside(vb) {
		return lo
	}
	hi := m.coord(axis, q[axis])
	base := m.point(p[0], p[1], p[2])
	return interpolate(lo, va, hi, vb, func(t float64) float64 {
		return m.field.Evaluate(d3.SetAxis(base, axis, t))
	})
}

// processCells extracts face segments, stitches per-cell loops and
// tessellates them. Chunk outputs are reassembled in slice order so the
// mesh is deterministic regardless of scheduling.
func (m *march3) processCells() []Triangle3 {
	nz := m.ncell[2]
	nchunk := (nz + sliceChunk - 1) / sliceChunk
	type chunkOut struct {
		tris    []Triangle3
		quads   []quad
		dropped int
	}
	outs := make([]chunkOut, nchunk)
	parallelSlices(nz, func(lo, hi int) {
		out := &outs[lo/sliceChunk]
		for k := lo; k < hi; k++ {
			for j := 0; j < m.ncell[1]; j++ {
				for i := 0; i < m.ncell[0]; i++ {
					tris, quads, dropped := m.processCell(i, j, k)
					out.tris = append(out.tris, tris...)
					out.quads = append(out.quads, quads...)
					out.dropped += dropped
				}
			}
		}
	})
	var tris []Triangle3
	var quads []quad
	for _, out := range outs {
		tris = append(tris, out.tris...)
		quads = append(quads, out.quads...)
		m.dropped += out.dropped
	}
	return append(tris, mergeQuads(quads, m.quantum)...)
}

func (m *march3) processCell(i, j, k int) ([]Triangle3, []quad, int) {
	in := 0
	for dk := 0; dk < 2; dk++ {
		for dj := 0; dj < 2; dj++ {
			for di := 0; di < 2; di++ {
				if inside(m.v[m.vIdx(i+di, j+dj, k+dk)]) {
					in++
				}
			}
		}
	}
	if in == 0 || in == 8 {
		return nil, nil, 0
	}
	var segs []segment3
	base := [3]int{i, j, k}
	for a := 0; a < 3; a++ {
		segs = m.faceSegments(base, a, 0, segs)
		segs = m.faceSegments(base, a, 1, segs)
	}
	if len(segs) == 0 {
		return nil, nil, 0
	}
	loops, dropped := stitchLoops3(segs, m.quantum)
	var tris []Triangle3
	var quads []quad
	for _, loop := range loops {
		t, q := tessellateLoop(loop, m.quantum)
		tris = append(tris, t...)
		quads = append(quads, q...)
	}
	return tris, quads, dropped
}

// faceSegments extracts the oriented contour segments of one cell face
// and appends them, refined and embedded in 3D, to dst.
//
// The in-face axes are chosen so that the interior-on-the-left rule in
// the face plane yields outward-facing winding in space. A face at the
// lower cell boundary uses the cyclic frame (axis+1, axis+2); at the
// upper boundary the frame is transposed, which flips the plane's
// handedness relative to the outward normal.
func (m *march3) faceSegments(base [3]int, axis, side int, dst []segment3) []segment3 {
	ua := (axis + 1) % 3
	va := (axis + 2) % 3
	if side == 1 {
		ua, va = va, ua
	}
	w := m.coord(axis, base[axis]+side)

	latt := func(du, dv int) int {
		p := base
		p[axis] += side
		p[ua] += du
		p[va] += dv
		return m.vIdx(p[0], p[1], p[2])
	}

	sq := squareCorners{
		x0:  m.coord(ua, base[ua]),
		y0:  m.coord(va, base[va]),
		x1:  m.coord(ua, base[ua]+1),
		y1:  m.coord(va, base[va]+1),
		v00: m.v[latt(0, 0)],
		v10: m.v[latt(1, 0)],
		v11: m.v[latt(1, 1)],
		v01: m.v[latt(0, 1)],
		bx:  m.m[ua][latt(0, 0)],
		tx:  m.m[ua][latt(0, 1)],
		ly:  m.m[va][latt(0, 0)],
		ry:  m.m[va][latt(1, 0)],
	}

	embed := func(p r2.Vec) r3.Vec {
		var v r3.Vec
		v = d3.SetAxis(v, axis, w)
		v = d3.SetAxis(v, ua, p.X)
		v = d3.SetAxis(v, va, p.Y)
		return v
	}
	g := func(p r2.Vec) float64 {
		return m.field.Evaluate(embed(p))
	}

	var scratch [2]segment2
	for _, s := range marchSquare(sq, g, scratch[:0]) {
		pts := refine3(embed(s.p), embed(s.q), m.field, m.refineTol)
		for i := 1; i < len(pts); i++ {
			dst = append(dst, segment3{p: pts[i-1], q: pts[i]})
		}
	}
	return dst
}
