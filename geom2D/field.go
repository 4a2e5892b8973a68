package geom2D

import (
	"fmt"
	"math"

	"github.com/notargets/geostokes/utils"
)

// ShapeQ1 evaluates the four bilinear shape functions at reference
// coordinates (r,s) in [-1,1], ordered CCW from the lower-left corner to
// match Mesh.ElemNodes.
func ShapeQ1(r, s float64) (N [4]float64) {
	N[0] = 0.25 * (1 - r) * (1 - s)
	N[1] = 0.25 * (1 + r) * (1 - s)
	N[2] = 0.25 * (1 + r) * (1 + s)
	N[3] = 0.25 * (1 - r) * (1 + s)
	return
}

// ShapeQ1Deriv evaluates the shape function derivatives w.r.t. the reference
// coordinates.
func ShapeQ1Deriv(r, s float64) (dNdr, dNds [4]float64) {
	dNdr[0] = -0.25 * (1 - s)
	dNdr[1] = 0.25 * (1 - s)
	dNdr[2] = 0.25 * (1 + s)
	dNdr[3] = -0.25 * (1 + s)
	dNds[0] = -0.25 * (1 - r)
	dNds[1] = -0.25 * (1 + r)
	dNds[2] = 0.25 * (1 + r)
	dNds[3] = 0.25 * (1 - r)
	return
}

// ScalarField is a named scalar quantity sampled at mesh nodes, one value per
// node. It is mutated in place by the solvers and read through interpolation.
type ScalarField struct {
	Name string
	Mesh *Mesh
	V    utils.Vector
}

func NewScalarField(name string, m *Mesh) (f *ScalarField) {
	f = &ScalarField{
		Name: name,
		Mesh: m,
		V:    utils.NewVector(m.NumNodes()),
	}
	return
}

func (f *ScalarField) At(n int) float64       { return f.V.DataP[n] }
func (f *ScalarField) Set(n int, val float64) { f.V.DataP[n] = val }

func (f *ScalarField) SetAll(val float64) {
	for i := range f.V.DataP {
		f.V.DataP[i] = val
	}
}

func (f *ScalarField) Copy() (R *ScalarField) {
	R = NewScalarField(f.Name, f.Mesh)
	copy(R.V.DataP, f.V.DataP)
	return
}

// InterpolateAt evaluates the field at an arbitrary point by bilinear
// interpolation from the four corner nodes of the containing element. This is
// the single primitive reused for particle advection, viscosity sampling and
// profile extraction.
func (f *ScalarField) InterpolateAt(x, y float64) (val float64, err error) {
	var (
		k, r, s = 0, 0., 0.
	)
	if k, r, s, err = f.Mesh.Locate(x, y); err != nil {
		return
	}
	N := ShapeQ1(r, s)
	verts := f.Mesh.ElemNodes(k)
	for i := 0; i < 4; i++ {
		val += N[i] * f.V.DataP[verts[i]]
	}
	return
}

// SampleLine interpolates the field at npts evenly spaced points between
// (x0,y0) and (x1,y1), inclusive, for profile extraction.
func (f *ScalarField) SampleLine(x0, y0, x1, y1 float64, npts int) (vals []float64, err error) {
	if npts < 2 {
		err = fmt.Errorf("SampleLine needs at least 2 points, have %d", npts)
		return
	}
	vals = make([]float64, npts)
	for i := 0; i < npts; i++ {
		t := float64(i) / float64(npts-1)
		if vals[i], err = f.InterpolateAt(x0+t*(x1-x0), y0+t*(y1-y0)); err != nil {
			return
		}
	}
	return
}

// VectorField is a 2-vector quantity sampled at mesh nodes, stored as
// separate X and Y component arrays.
type VectorField struct {
	Name string
	Mesh *Mesh
	U, V utils.Vector
}

func NewVectorField(name string, m *Mesh) (f *VectorField) {
	f = &VectorField{
		Name: name,
		Mesh: m,
		U:    utils.NewVector(m.NumNodes()),
		V:    utils.NewVector(m.NumNodes()),
	}
	return
}

func (f *VectorField) At(n int) (u, v float64) { return f.U.DataP[n], f.V.DataP[n] }

func (f *VectorField) Set(n int, u, v float64) {
	f.U.DataP[n] = u
	f.V.DataP[n] = v
}

func (f *VectorField) Copy() (R *VectorField) {
	R = NewVectorField(f.Name, f.Mesh)
	copy(R.U.DataP, f.U.DataP)
	copy(R.V.DataP, f.V.DataP)
	return
}

func (f *VectorField) InterpolateAt(x, y float64) (u, v float64, err error) {
	var (
		k, r, s = 0, 0., 0.
	)
	if k, r, s, err = f.Mesh.Locate(x, y); err != nil {
		return
	}
	N := ShapeQ1(r, s)
	verts := f.Mesh.ElemNodes(k)
	for i := 0; i < 4; i++ {
		u += N[i] * f.U.DataP[verts[i]]
		v += N[i] * f.V.DataP[verts[i]]
	}
	return
}

// MaxMagnitude returns the largest nodal speed, used for the CFL bound.
func (f *VectorField) MaxMagnitude() (vmax float64) {
	for i, u := range f.U.DataP {
		v := f.V.DataP[i]
		mag2 := u*u + v*v
		if mag2 > vmax {
			vmax = mag2
		}
	}
	return math.Sqrt(vmax)
}
