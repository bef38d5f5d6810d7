package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/implicit"
	"github.com/soypat/implicit/internal/d3"
)

var (
	_ implicit.Field3  = meshField{}
	_ kdtree.Interface = centroidSet{}
)

// NewMeshField builds an approximate signed field from a triangle mesh.
// The k-d tree stores one centroid record per triangle, so a lookup
// finds the triangle whose centroid is closest and the field value is
// the exact distance from the query point to that triangle. The sign
// comes from the triangle normal, which assumes outward winding such as
// the output of GetMesh. Panics on an empty mesh.
//
// The centroid is a proxy for the whole triangle, so near long skinny
// triangles a neighbor may win the lookup and overestimate the
// distance. The sign stays reliable well inside or outside the mesh.
func NewMeshField(model []Triangle3) implicit.Field3 {
	if len(model) == 0 {
		panic("empty mesh argument")
	}
	set := make(centroidSet, len(model))
	bb := d3.Box{Min: model[0][0], Max: model[0][0]}
	for i, t := range model {
		set[i] = centroidPoint{
			c:   r3.Scale(1./3., r3.Add(t[0], r3.Add(t[1], t[2]))),
			tri: i,
		}
		bb = bb.Include(t[0]).Include(t[1]).Include(t[2])
	}
	return meshField{
		tree:   kdtree.New(set, false),
		tris:   append([]Triangle3(nil), model...),
		bounds: r3.Box(bb),
	}
}

type meshField struct {
	tree   *kdtree.Tree
	tris   []Triangle3
	bounds r3.Box
}

func (s meshField) Evaluate(p r3.Vec) float64 {
	tri := s.tris[s.nearest(p)]
	q := closestOnTriangle(p, tri)
	away := r3.Sub(p, q)
	dist := r3.Norm(away)
	if dist == 0 {
		return 0
	}
	return math.Copysign(dist, r3.Dot(tri.Normal(), away))
}

// nearest returns the index of the triangle whose centroid is closest
// to a point.
func (s meshField) nearest(p r3.Vec) int {
	got, _ := s.tree.Nearest(centroidPoint{c: p, tri: -1})
	return got.(centroidPoint).tri
}

// Bounds returns the bounding box of the mesh.
func (s meshField) Bounds() r3.Box {
	return s.bounds
}

// closestOnTriangle returns the point of the triangle closest to p,
// classifying p against the vertex, edge and face Voronoi regions.
func closestOnTriangle(p r3.Vec, t Triangle3) r3.Vec {
	a, b, c := t[0], t[1], t[2]
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)

	ap := r3.Sub(p, a)
	uab := r3.Dot(ab, ap)
	uac := r3.Dot(ac, ap)
	if uab <= 0 && uac <= 0 {
		return a
	}
	bp := r3.Sub(p, b)
	vab := r3.Dot(ab, bp)
	vac := r3.Dot(ac, bp)
	if vab >= 0 && vac <= vab {
		return b
	}
	cp := r3.Sub(p, c)
	wab := r3.Dot(ab, cp)
	wac := r3.Dot(ac, cp)
	if wac >= 0 && wab <= wac {
		return c
	}

	if d := uab*vac - vab*uac; d <= 0 && uab >= 0 && vab <= 0 {
		return r3.Add(a, r3.Scale(uab/(uab-vab), ab))
	}
	if d := wab*uac - uab*wac; d <= 0 && uac >= 0 && wac <= 0 {
		return r3.Add(a, r3.Scale(uac/(uac-wac), ac))
	}
	if d := vab*wac - wab*vac; d <= 0 && vac-vab >= 0 && wab-wac >= 0 {
		s := (vac - vab) / ((vac - vab) + (wab - wac))
		return r3.Add(b, r3.Scale(s, r3.Sub(c, b)))
	}

	// face region: project onto the triangle plane
	n := r3.Cross(ab, ac)
	dist := r3.Dot(ap, n) / r3.Norm2(n)
	return r3.Sub(p, r3.Scale(dist, n))
}

// centroidPoint is one k-d tree record: a triangle centroid carrying
// the index of its triangle.
type centroidPoint struct {
	c   r3.Vec
	tri int
}

func (a centroidPoint) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	o := b.(centroidPoint)
	switch d {
	case 0:
		return a.c.X - o.c.X
	case 1:
		return a.c.Y - o.c.Y
	}
	return a.c.Z - o.c.Z
}

func (a centroidPoint) Dims() int { return 3 }

func (a centroidPoint) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.c, b.(centroidPoint).c))
}

type centroidSet []centroidPoint

func (s centroidSet) Index(i int) kdtree.Comparable { return s[i] }

func (s centroidSet) Len() int { return len(s) }

func (s centroidSet) Slice(start, end int) kdtree.Interface { return s[start:end] }

func (s centroidSet) Pivot(d kdtree.Dim) int {
	sl := centroidSorter{dim: d, set: s}
	return kdtree.Partition(sl, kdtree.MedianOfMedians(sl))
}

type centroidSorter struct {
	dim kdtree.Dim
	set centroidSet
}

func (p centroidSorter) Less(i, j int) bool {
	return p.set[i].Compare(p.set[j], p.dim) < 0
}

func (p centroidSorter) Swap(i, j int) {
	p.set[i], p.set[j] = p.set[j], p.set[i]
}

func (p centroidSorter) Len() int { return len(p.set) }

func (p centroidSorter) Slice(start, end int) kdtree.SortSlicer {
	p.set = p.set[start:end]
	return p
}
