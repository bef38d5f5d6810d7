package render

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/implicit"
	"github.com/soypat/implicit/internal/d2"
	"github.com/soypat/implicit/internal/d3"
)

// Triangle3 is a triangle in 3D space. The vertex winding is
// counter-clockwise when viewed from outside the solid.
type Triangle3 [3]r3.Vec

// Normal returns the normal vector to the plane defined by the triangle.
func (t Triangle3) Normal() r3.Vec {
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	return r3.Unit(r3.Cross(e1, e2))
}

// Degenerate returns true if the triangle is degenerate.
func (t Triangle3) Degenerate(tol float64) bool {
	// check for identical vertices
	if d3.EqualWithin(t[0], t[1], tol) {
		return true
	}
	if d3.EqualWithin(t[1], t[2], tol) {
		return true
	}
	if d3.EqualWithin(t[2], t[0], tol) {
		return true
	}
	// TODO more tests needed
	return false
}

// Bounds returns the axis aligned bounding box of the triangle.
func (t Triangle3) Bounds() r3.Box {
	return r3.Box(d3.Box{Min: t[0], Max: t[0]}.Include(t[1]).Include(t[2]))
}

// Polyline2 is an ordered closed loop of 2D points. Closed polylines
// repeat the first point as the last. Outer boundaries wind
// counter-clockwise, holes wind clockwise.
type Polyline2 []r2.Vec

// Area returns the signed area of the polyline. Positive area
// indicates counter-clockwise winding.
func (p Polyline2) Area() float64 {
	var sum float64
	n := len(p)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return 0.5 * sum
}

// Renderer produces triangles from an implicit surface in batches.
type Renderer interface {
	ReadTriangles(t []Triangle3) (int, error)
}

// RenderAll drains a Renderer into a single mesh. Renderers that count
// contour segments discarded during loop stitching report a nonzero
// count as an error, alongside the triangles collected up to that
// point. The streaming STL path has no such check, so RenderAll is the
// stricter way to consume a renderer.
func RenderAll(r Renderer) ([]Triangle3, error) {
	var mesh []Triangle3
	buf := make([]Triangle3, 512)
	for {
		n, err := r.ReadTriangles(buf)
		mesh = append(mesh, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return mesh, err
		}
	}
	if d, ok := r.(interface{ DroppedSegments() int }); ok {
		if n := d.DroppedSegments(); n > 0 {
			return mesh, fmt.Errorf("%d contour segments dropped during loop stitching", n)
		}
	}
	return mesh, nil
}

// GetMesh polygonizes the surface f(p)=0 over the axis aligned region
// [p1,p2] sampled at cell size res. Points with f(p)<=0 are inside the
// solid. Triangles are wound counter-clockwise viewed from outside.
//
// An empty region (p1>=p2 on any axis) yields an empty mesh and no error.
func GetMesh(p1, p2, res r3.Vec, f implicit.Field3) ([]Triangle3, error) {
	if f == nil {
		return nil, errors.New("nil field argument")
	}
	if d3.LTEZero(res) || d3.IsNaN(res) {
		return nil, errors.New("resolution must be positive and finite")
	}
	if d3.IsNaN(p1) || d3.IsNaN(p2) {
		return nil, errors.New("NaN region bound")
	}
	region := d3.Box{Min: p1, Max: p2}
	if sz := region.Size(); sz.X <= 0 || sz.Y <= 0 || sz.Z <= 0 {
		return []Triangle3{}, nil
	}
	tri, _ := marchCubes(region, res, f)
	return tri, nil
}

// GetContour traces the contour f(p)=0 over the axis aligned region
// [p1,p2] sampled at cell size res. The result is a set of closed
// polylines, counter-clockwise for outer boundaries and clockwise for
// holes.
func GetContour(p1, p2, res r2.Vec, f implicit.Field2) ([]Polyline2, error) {
	if f == nil {
		return nil, errors.New("nil field argument")
	}
	if d2.LTEZero(res) || d2.IsNaN(res) {
		return nil, errors.New("resolution must be positive and finite")
	}
	if d2.IsNaN(p1) || d2.IsNaN(p2) {
		return nil, errors.New("NaN region bound")
	}
	if p2.X-p1.X <= 0 || p2.Y-p1.Y <= 0 {
		return []Polyline2{}, nil
	}
	return marchSquares(p1, p2, res, f), nil
}

// GridRenderer implements the Renderer interface using a uniform grid
// sweep of the field.
type GridRenderer struct {
	region d3.Box
	res    r3.Vec
	field  implicit.Field3
	// triangle storage filled on first ReadTriangles call.
	triangles []Triangle3
	rendered  bool
	dropped   int
}

// NewGridRenderer returns a streaming renderer that polygonizes f over
// [p1,p2] at cell size res. The mesh is computed on the first call to
// ReadTriangles.
func NewGridRenderer(p1, p2, res r3.Vec, f implicit.Field3) (*GridRenderer, error) {
	if f == nil {
		return nil, errors.New("nil field argument")
	}
	if d3.LTEZero(res) || d3.IsNaN(res) {
		return nil, errors.New("resolution must be positive and finite")
	}
	return &GridRenderer{
		region: d3.Box{Min: p1, Max: p2},
		res:    res,
		field:  f,
	}, nil
}

// ReadTriangles writes triangles into dst and returns the number
// written. It returns io.EOF when the mesh is exhausted.
func (g *GridRenderer) ReadTriangles(dst []Triangle3) (int, error) {
	if len(dst) == 0 {
		return 0, errors.New("destination buffer length must be greater than zero")
	}
	if !g.rendered {
		if sz := g.region.Size(); sz.X <= 0 || sz.Y <= 0 || sz.Z <= 0 {
			g.triangles = nil
		} else {
			g.triangles, g.dropped = marchCubes(g.region, g.res, g.field)
		}
		g.rendered = true
	}
	if len(g.triangles) == 0 {
		return 0, io.EOF
	}
	n := copy(dst, g.triangles)
	g.triangles = g.triangles[n:]
	return n, nil
}

// DroppedSegments returns the number of contour segments discarded
// during loop stitching. A nonzero count indicates the field violated
// the intermediate value theorem somewhere in the region, typically by
// evaluating to NaN.
func (g *GridRenderer) DroppedSegments() int {
	return g.dropped
}
