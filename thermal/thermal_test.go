package thermal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/geostokes/geom2D"
	"github.com/notargets/geostokes/utils"
)

func TestDiffusionErrorFunction(t *testing.T) {
	// Zero velocity, insulated walls, step discontinuity at x=0: the profile
	// must follow T = 1/2*(1 + erf(x / (2*sqrt(kappa*t)))) away from the
	// walls, within discretization error
	var (
		kappa = 1.e-3
		dt    = 0.025
		nStep = 20
	)
	m, _ := geom2D.NewMesh(128, 4, -1, 1, 0, 0.1)
	s := NewSolver(m, utils.BCSet{}, kappa)
	s.SetInitial(func(x, y float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	})
	vel := geom2D.NewVectorField("velocity", m)
	for step := 0; step < nStep; step++ {
		res, err := s.Step(vel, dt)
		assert.NoError(t, err)
		assert.True(t, res.Residual < s.LinTol)
	}
	var (
		time = float64(nStep) * dt
		l    = 2 * math.Sqrt(kappa*time)
	)
	for _, x := range []float64{-0.3, -0.1, -0.02, 0.02, 0.1, 0.3} {
		want := 0.5 * (1 + math.Erf(x/l))
		got, err := s.T.InterpolateAt(x, 0.05)
		assert.NoError(t, err)
		assert.InDelta(t, want, got, 0.02, "x = %v", x)
	}
}

func TestEnergyConservation(t *testing.T) {
	// Insulating walls: total heat is invariant under pure diffusion
	m, _ := geom2D.NewMesh(16, 16, 0, 1, 0, 1)
	s := NewSolver(m, utils.BCSet{}, 0.01)
	s.SetInitial(func(x, y float64) float64 {
		if x < 0.5 && y < 0.5 {
			return 2
		}
		return 0.5
	})
	e0 := s.TotalEnergy()
	vel := geom2D.NewVectorField("velocity", m)
	for step := 0; step < 20; step++ {
		_, err := s.Step(vel, 0.1)
		assert.NoError(t, err)
	}
	assert.InDelta(t, e0, s.TotalEnergy(), 1.e-7*math.Abs(e0))
	// And the field relaxes toward the uniform mean
	mean := e0 // Domain area is 1
	mid, _ := s.T.InterpolateAt(0.5, 0.5)
	assert.InDelta(t, mean, mid, 0.5)
}

func TestDirichletWallsOverrideInsulating(t *testing.T) {
	// Fixed temperatures top and bottom, insulated sides: steady state is
	// the linear conductive profile
	bcs := utils.BCSet{
		Bottom: utils.WallBCs{T: utils.DirichletBC(1)},
		Top:    utils.WallBCs{T: utils.DirichletBC(0)},
	}
	m, _ := geom2D.NewMesh(8, 8, 0, 1, 0, 1)
	s := NewSolver(m, bcs, 1)
	s.SetInitial(func(x, y float64) float64 { return 0.5 })
	vel := geom2D.NewVectorField("velocity", m)
	// March far past the diffusive time scale
	for step := 0; step < 50; step++ {
		_, err := s.Step(vel, 0.5)
		assert.NoError(t, err)
	}
	for n := 0; n < m.NumNodes(); n++ {
		_, y := m.NodeCoord(n)
		assert.InDelta(t, 1-y, s.T.At(n), 1.e-4)
	}
}

func TestAdvectionTranslatesProfile(t *testing.T) {
	// Uniform velocity, negligible diffusion: a smooth bump moves with the
	// flow at the right speed
	m, _ := geom2D.NewMesh(64, 4, 0, 2, 0, 0.1)
	s := NewSolver(m, utils.BCSet{}, 1.e-9)
	bump := func(x float64) float64 { return math.Exp(-50 * (x - 0.5) * (x - 0.5)) }
	s.SetInitial(func(x, y float64) float64 { return bump(x) })
	vel := geom2D.NewVectorField("velocity", m)
	for n := 0; n < m.NumNodes(); n++ {
		vel.Set(n, 0.5, 0)
	}
	var (
		dt    = 0.02
		nStep = 25 // Total displacement 0.25
	)
	for step := 0; step < nStep; step++ {
		_, err := s.Step(vel, dt)
		assert.NoError(t, err)
	}
	// Peak should now sit near x = 0.75; interpolation damps the amplitude
	// but the bulk of the bump must have moved
	got, _ := s.T.InterpolateAt(0.75, 0.05)
	assert.True(t, got > 0.6, "peak value at translated center = %v", got)
	far, _ := s.T.InterpolateAt(0.25, 0.05)
	assert.True(t, far < 0.2)
	assert.True(t, got > 3*far)
}

func TestZeroVelocityZeroKappaIsIdentity(t *testing.T) {
	m, _ := geom2D.NewMesh(8, 8, 0, 1, 0, 1)
	s := NewSolver(m, utils.BCSet{}, 0)
	s.SetInitial(func(x, y float64) float64 { return x * y })
	before := s.T.Copy()
	vel := geom2D.NewVectorField("velocity", m)
	_, err := s.Step(vel, 123)
	assert.NoError(t, err)
	for n := 0; n < m.NumNodes(); n++ {
		assert.Equal(t, before.At(n), s.T.At(n))
	}
}
