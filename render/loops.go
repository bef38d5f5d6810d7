package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/implicit/internal/d2"
)

// Loop stitching. Oriented segments from the marching pass are chained
// head to tail into closed loops. Endpoint matching uses quantized
// coordinates so that floating point jitter between neighboring cells
// cannot break a chain.

type key2 struct {
	x, y int64
}

type key3 struct {
	x, y, z int64
}

func quantize(v, quantum float64) int64 {
	return int64(math.Round(v / quantum))
}

func makeKey2(p r2.Vec, quantum float64) key2 {
	return key2{x: quantize(p.X, quantum), y: quantize(p.Y, quantum)}
}

func makeKey3(p r3.Vec, quantum float64) key3 {
	return key3{x: quantize(p.X, quantum), y: quantize(p.Y, quantum), z: quantize(p.Z, quantum)}
}

// stitchLoops2 chains oriented 2D segments into closed loops. Segments
// that cannot be chained into a closed loop are dropped and counted.
func stitchLoops2(segs []segment2, quantum float64) (loops [][]r2.Vec, dropped int) {
	starts := make(map[key2][]int, len(segs))
	for i, s := range segs {
		k := makeKey2(s.p, quantum)
		starts[k] = append(starts[k], i)
	}
	used := make([]bool, len(segs))
	for i := range segs {
		if used[i] {
			continue
		}
		loop, n := chase2(segs, starts, used, i, quantum)
		if loop == nil {
			dropped += n
			continue
		}
		loops = append(loops, loop)
	}
	return loops, dropped
}

// chase2 follows the chain starting at segment i. It returns the closed
// loop, or nil and the chain length when the chain dead-ends.
func chase2(segs []segment2, starts map[key2][]int, used []bool, i int, quantum float64) ([]r2.Vec, int) {
	startKey := makeKey2(segs[i].p, quantum)
	loop := []r2.Vec{segs[i].p}
	used[i] = true
	n := 1
	cur := i
	for {
		endKey := makeKey2(segs[cur].q, quantum)
		if endKey == startKey {
			return loop, n
		}
		next := -1
		for _, j := range starts[endKey] {
			if !used[j] {
				next = j
				break
			}
		}
		if next < 0 {
			return nil, n
		}
		loop = append(loop, segs[next].p)
		used[next] = true
		n++
		cur = next
	}
}

// segment3 is an oriented contour segment on a cube face, already
// embedded in 3D space.
type segment3 struct {
	p, q r3.Vec
}

// stitchLoops3 chains oriented 3D face segments of a single cell into
// closed loops.
func stitchLoops3(segs []segment3, quantum float64) (loops [][]r3.Vec, dropped int) {
	starts := make(map[key3][]int, len(segs))
	for i, s := range segs {
		k := makeKey3(s.p, quantum)
		starts[k] = append(starts[k], i)
	}
	used := make([]bool, len(segs))
	for i := range segs {
		if used[i] {
			continue
		}
		loop, n := chase3(segs, starts, used, i, quantum)
		if loop == nil {
			dropped += n
			continue
		}
		loops = append(loops, loop)
	}
	return loops, dropped
}

func chase3(segs []segment3, starts map[key3][]int, used []bool, i int, quantum float64) ([]r3.Vec, int) {
	startKey := makeKey3(segs[i].p, quantum)
	loop := []r3.Vec{segs[i].p}
	used[i] = true
	n := 1
	cur := i
	for {
		endKey := makeKey3(segs[cur].q, quantum)
		if endKey == startKey {
			return loop, n
		}
		next := -1
		for _, j := range starts[endKey] {
			if !used[j] {
				next = j
				break
			}
		}
		if next < 0 {
			return nil, n
		}
		loop = append(loop, segs[next].p)
		used[next] = true
		n++
		cur = next
	}
}

// cleanPolyline removes consecutive duplicate points and merges runs of
// nearly colinear points. Loops reduced below three points come back nil.
func cleanPolyline(loop []r2.Vec, tol float64) Polyline2 {
	out := dedupe2(loop, tol)
	if len(out) < 3 {
		return nil
	}
	// Colinear merge. A point is redundant when the turn through it is
	// negligible relative to the incident edge lengths.
	n := len(out)
	kept := make([]r2.Vec, 0, n)
	for i := 0; i < n; i++ {
		prev := out[(i+n-1)%n]
		cur := out[i]
		next := out[(i+1)%n]
		a := r2.Sub(cur, prev)
		b := r2.Sub(next, cur)
		if math.Abs(d2.Cross(a, b)) > tol*(r2.Norm(a)+r2.Norm(b)) {
			kept = append(kept, cur)
		}
	}
	if len(kept) < 3 {
		return nil
	}
	return Polyline2(kept)
}

func dedupe2(loop []r2.Vec, tol float64) []r2.Vec {
	out := make([]r2.Vec, 0, len(loop))
	for _, p := range loop {
		if len(out) > 0 && d2.EqualWithin(out[len(out)-1], p, tol) {
			continue
		}
		out = append(out, p)
	}
	// first and last may coincide once the loop wraps around
	for len(out) > 1 && d2.EqualWithin(out[0], out[len(out)-1], tol) {
		out = out[:len(out)-1]
	}
	return out
}
