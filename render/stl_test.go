package render_test

import (
	"bytes"
	"io"
	"os"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/implicit/render"
)

func TestSTLCreateWriteRead(t *testing.T) {
	bound := r3.Vec{X: 1.2, Y: 1.2, Z: 1.2}
	res := r3.Vec{X: 0.2, Y: 0.2, Z: 0.2}
	newRenderer := func() *render.GridRenderer {
		r, err := render.NewGridRenderer(r3.Scale(-1, bound), bound, res, sphere)
		if err != nil {
			t.Fatal(err)
		}
		return r
	}
	const stlName = "sphere_roundtrip.stl"
	err := render.CreateSTL(stlName, newRenderer())
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(stlName)
	fp, err := os.Open(stlName)
	if err != nil {
		t.Fatal(err)
	}
	bfile, err := io.ReadAll(fp)
	if err != nil {
		t.Fatal(err)
	}
	model, err := render.RenderAll(newRenderer())
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	err = render.WriteSTL(&b, model)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != len(bfile) {
		t.Fatal("WriteSTL and CreateSTL output length mismatch")
	}
	bs := b.String()
	if bs != string(bfile) {
		t.Fatal("WriteSTL and CreateSTL output mismatch")
	}
}

func TestWriteSTLEmpty(t *testing.T) {
	var b bytes.Buffer
	if err := render.WriteSTL(&b, nil); err == nil {
		t.Error("empty model write should fail")
	}
}
