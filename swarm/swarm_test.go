package swarm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/geostokes/geom2D"
	"github.com/notargets/geostokes/rheology"
)

func twoLayerMaterials() []*rheology.Material {
	return []*rheology.Material{
		{ID: 0, Name: "mantle", Law: rheology.Constant, Eta0: 1, Density: 1, Shape: rheology.Everywhere{}},
		{ID: 1, Name: "slab", Law: rheology.Constant, Eta0: 10, Density: 2, Shape: rheology.Layer{YMin: 0.5, YMax: 1}},
	}
}

func TestSwarmInit(t *testing.T) {
	m, _ := geom2D.NewMesh(4, 4, 0, 1, 0, 1)
	sw, err := New(m, twoLayerMaterials(), 3, 42)
	assert.NoError(t, err)
	assert.Equal(t, 4*4*3*3, sw.NumParticles())
	assert.Equal(t, sw.NumParticles(), sw.ActiveCount())
	// Every particle belongs to exactly one material, chosen by its position
	sw.Each(func(i int, x, y float64, matID int) {
		if y >= 0.5 {
			assert.Equal(t, 1, matID)
		} else {
			assert.Equal(t, 0, matID)
		}
	})
	// Same seed reproduces the same particle positions
	sw2, _ := New(m, twoLayerMaterials(), 3, 42)
	for i := range sw.X {
		assert.Equal(t, sw.X[i], sw2.X[i])
		assert.Equal(t, sw.Y[i], sw2.Y[i])
	}
}

func TestSwarmAdvection(t *testing.T) {
	m, _ := geom2D.NewMesh(8, 8, 0, 1, 0, 1)
	mats := twoLayerMaterials()
	{ // Zero velocity leaves positions unchanged for any dt
		sw, _ := New(m, mats, 2, 1)
		vel := geom2D.NewVectorField("velocity", m)
		x0 := append([]float64{}, sw.X...)
		y0 := append([]float64{}, sw.Y...)
		sw.Advect(vel, 1.e6)
		for i := range sw.X {
			assert.Equal(t, x0[i], sw.X[i])
			assert.Equal(t, y0[i], sw.Y[i])
		}
		assert.Equal(t, sw.NumParticles(), sw.ActiveCount())
	}
	{ // Uniform velocity translates particles exactly (RK2 is exact here)
		sw, _ := New(m, mats, 2, 1)
		vel := geom2D.NewVectorField("velocity", m)
		for n := 0; n < m.NumNodes(); n++ {
			vel.Set(n, 0.25, 0)
		}
		x0 := append([]float64{}, sw.X...)
		dt := 0.125
		sw.Advect(vel, dt)
		for i := range sw.X {
			if sw.Active[i] {
				assert.InDelta(t, x0[i]+0.25*dt, sw.X[i], 1.e-14)
			}
		}
	}
	{ // Particles pushed through the wall are deactivated, not clamped
		sw, _ := New(m, mats, 2, 1)
		vel := geom2D.NewVectorField("velocity", m)
		for n := 0; n < m.NumNodes(); n++ {
			vel.Set(n, 10, 0)
		}
		before := sw.ActiveCount()
		sw.Advect(vel, 1)
		assert.Equal(t, 0, sw.ActiveCount())
		assert.True(t, before > 0)
		// Deactivation marks in place, the arena keeps its length
		assert.Equal(t, before, sw.NumParticles())
	}
	{ // Parallel advection matches serial advection bit for bit
		swA, _ := New(m, mats, 3, 7)
		swB, _ := New(m, mats, 3, 7)
		swB.ParallelDegree = 4
		vel := geom2D.NewVectorField("velocity", m)
		for n := 0; n < m.NumNodes(); n++ {
			x, y := m.NodeCoord(n)
			vel.Set(n, math.Sin(math.Pi*y), math.Cos(math.Pi*x)*0.1)
		}
		dt := 0.01
		swA.Advect(vel, dt)
		swB.Advect(vel, dt)
		for i := range swA.X {
			assert.Equal(t, swA.X[i], swB.X[i])
			assert.Equal(t, swA.Y[i], swB.Y[i])
			assert.Equal(t, swA.Active[i], swB.Active[i])
		}
	}
}

func TestElementProperties(t *testing.T) {
	m, _ := geom2D.NewMesh(2, 2, 0, 1, 0, 1)
	sw, err := New(m, twoLayerMaterials(), 4, 3)
	assert.NoError(t, err)
	rho, mats, _ := sw.ElementProperties()
	// Bottom row of elements is pure mantle, top row pure slab
	assert.InDelta(t, 1, rho[0], 1.e-14)
	assert.InDelta(t, 1, rho[1], 1.e-14)
	assert.InDelta(t, 2, rho[2], 1.e-14)
	assert.InDelta(t, 2, rho[3], 1.e-14)
	assert.Equal(t, "mantle", mats[0].Name)
	assert.Equal(t, "slab", mats[3].Name)
	// Evacuated elements fall back to the background material
	for i := range sw.Active {
		sw.Active[i] = false
	}
	rho, mats, _ = sw.ElementProperties()
	for k := range rho {
		assert.Equal(t, "mantle", mats[k].Name)
		assert.InDelta(t, 1, rho[k], 1.e-14)
	}
}

func TestStrainRateCache(t *testing.T) {
	m, _ := geom2D.NewMesh(2, 1, 0, 1, 0, 1)
	sw, _ := New(m, twoLayerMaterials(), 2, 9)
	elemEps := []float64{0.5, 2.0}
	sw.CacheStrainRate(elemEps)
	sw.Each(func(i int, x, y float64, matID int) {
		k, _, _, _ := m.Locate(x, y)
		assert.Equal(t, elemEps[k], sw.EpsII[i])
	})
	_, _, eps := sw.ElementProperties()
	assert.InDelta(t, 0.5, eps[0], 1.e-14)
	assert.InDelta(t, 2.0, eps[1], 1.e-14)
}
