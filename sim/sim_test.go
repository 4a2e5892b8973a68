package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/geostokes/geom2D"
	"github.com/notargets/geostokes/thermal"
)

func TestEndToEndCouette(t *testing.T) {
	// 128x64 mesh, domain [-1,1]x[0,1], single background material, top wall
	// at (1,0), bottom fixed, sides shear-compatible, zero gravity: after one
	// converged step the mid-height speed is half the wall speed
	if testing.Short() {
		t.Skip("large mesh")
	}
	cfg := CouetteConfig(128, 64, 1)
	cfg.PenaltyFactor = 100 // The shear solution is exactly divergence-free
	s, err := NewSimulation(cfg)
	assert.NoError(t, err)
	s.Stokes.MaxLinIters = 500000
	res, err := s.Step()
	assert.NoError(t, err)
	assert.Equal(t, 1, res.StokesIters)
	u, v, err := s.Velocity().InterpolateAt(0, 0.5)
	assert.NoError(t, err)
	speed := math.Hypot(u, v)
	assert.InDelta(t, 0.5, speed, 1.e-3*0.5)
}

func TestCFLDisplacementBound(t *testing.T) {
	// No particle moves further than one element length in any step
	cfg := RayleighTaylorConfig(8, 8)
	s, err := NewSimulation(cfg)
	assert.NoError(t, err)
	h := s.Mesh.MinElementSize()
	for step := 0; step < 3; step++ {
		x0 := append([]float64{}, s.Swarm.X...)
		y0 := append([]float64{}, s.Swarm.Y...)
		res, err := s.Step()
		assert.NoError(t, err)
		// dt honors the CFL bound against the max nodal speed
		vmax := s.Velocity().MaxMagnitude()
		if vmax > 0 {
			assert.True(t, res.Dt*vmax <= s.Config.CFLFactor*h*(1+1.e-12))
		}
		for i := range s.Swarm.X {
			if !s.Swarm.Active[i] {
				continue
			}
			disp := math.Hypot(s.Swarm.X[i]-x0[i], s.Swarm.Y[i]-y0[i])
			assert.True(t, disp <= h, "particle %d moved %v > h %v", i, disp, h)
		}
	}
}

func TestZeroVelocityRoundTrip(t *testing.T) {
	// No gravity, no driving walls: the flow is stagnant and particles stay
	// exactly where they are for any dt
	cfg := CouetteConfig(8, 8, 0)
	cfg.MaxDt = 1.e6
	s, err := NewSimulation(cfg)
	assert.NoError(t, err)
	x0 := append([]float64{}, s.Swarm.X...)
	y0 := append([]float64{}, s.Swarm.Y...)
	res, err := s.Step()
	assert.NoError(t, err)
	assert.Equal(t, s.Swarm.NumParticles(), res.ActiveParticles)
	for i := range s.Swarm.X {
		assert.Equal(t, x0[i], s.Swarm.X[i])
		assert.Equal(t, y0[i], s.Swarm.Y[i])
	}
}

func TestStepIdempotence(t *testing.T) {
	// Two simulations built from the same config and seed must produce
	// identical step results and identical fields
	build := func() *Simulation {
		cfg := RayleighTaylorConfig(6, 6)
		cfg.Seed = 1234
		s, err := NewSimulation(cfg)
		assert.NoError(t, err)
		return s
	}
	sA, sB := build(), build()
	for step := 0; step < 2; step++ {
		resA, errA := sA.Step()
		resB, errB := sB.Step()
		assert.NoError(t, errA)
		assert.NoError(t, errB)
		assert.Equal(t, resA, resB)
	}
	for n := 0; n < sA.Mesh.NumNodes(); n++ {
		uA, vA := sA.Velocity().At(n)
		uB, vB := sB.Velocity().At(n)
		assert.Equal(t, uA, uB)
		assert.Equal(t, vA, vB)
		assert.Equal(t, sA.Temperature().At(n), sB.Temperature().At(n))
	}
	for i := range sA.Swarm.X {
		assert.Equal(t, sA.Swarm.X[i], sB.Swarm.X[i])
		assert.Equal(t, sA.Swarm.Y[i], sB.Swarm.Y[i])
	}
}

func TestRayleighTaylorSinks(t *testing.T) {
	// The dense top layer must drive a downward flow within a few steps
	cfg := RayleighTaylorConfig(8, 8)
	s, err := NewSimulation(cfg)
	assert.NoError(t, err)
	results, err := s.Run(3)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(results))
	assert.True(t, s.Time > 0)
	var vmin float64
	for n := 0; n < s.Mesh.NumNodes(); n++ {
		_, v := s.Velocity().At(n)
		if v < vmin {
			vmin = v
		}
	}
	assert.True(t, vmin < 0, "dense layer should sink, vmin = %v", vmin)
}

func TestThermalConvectionHeatsUp(t *testing.T) {
	// Bottom heating with a conductive initial profile: the temperature
	// field stays bounded by the wall values and the mid-depth temperature
	// stays near the conductive value early on
	cfg := ThermalConvectionConfig(8, 8, 1.e4, 1, 1)
	s, err := NewSimulation(cfg)
	assert.NoError(t, err)
	_, err = s.Run(2)
	assert.NoError(t, err)
	for n := 0; n < s.Mesh.NumNodes(); n++ {
		T := s.Temperature().At(n)
		assert.True(t, T > -0.05 && T < 1.05, "T out of bounds: %v", T)
	}
	mid, err := s.Temperature().InterpolateAt(0.5, 0.5)
	assert.NoError(t, err)
	assert.InDelta(t, 0.5, mid, 0.2)
}

func TestFailedStepLeavesStateIntact(t *testing.T) {
	// A step whose thermal solve fails (even after the dt/2 retry) must roll
	// the already converged Stokes solution back: every committed field and
	// the clock hold the values of the last successful step
	cfg := ThermalConvectionConfig(8, 8, 1.e4, 1, 1)
	s, err := NewSimulation(cfg)
	assert.NoError(t, err)
	s.Thermal.MaxLinIters = 1 // Starve the diffusion CG so the stage fails

	u0 := append([]float64{}, s.Velocity().U.DataP...)
	v0 := append([]float64{}, s.Velocity().V.DataP...)
	p0 := append([]float64{}, s.Pressure()...)
	eta0 := append([]float64{}, s.Viscosity()...)
	T0 := append([]float64{}, s.Temperature().V.DataP...)
	x0 := append([]float64{}, s.Swarm.X...)
	eps0 := append([]float64{}, s.Swarm.EpsII...)

	_, err = s.Step()
	assert.Error(t, err)
	assert.Equal(t, 0., s.Time)
	assert.Equal(t, 0, s.StepCount)
	for n := range u0 {
		assert.Equal(t, u0[n], s.Velocity().U.DataP[n])
		assert.Equal(t, v0[n], s.Velocity().V.DataP[n])
		assert.Equal(t, T0[n], s.Temperature().V.DataP[n])
	}
	for k := range p0 {
		assert.Equal(t, p0[k], s.Pressure()[k])
		assert.Equal(t, eta0[k], s.Viscosity()[k])
	}
	for i := range x0 {
		assert.Equal(t, x0[i], s.Swarm.X[i])
		assert.Equal(t, eps0[i], s.Swarm.EpsII[i])
	}

	// The same simulation must recover once the solver is restored
	s.Thermal.MaxLinIters = thermal.DefaultMaxLinIters
	_, err = s.Step()
	assert.NoError(t, err)
	assert.Equal(t, 1, s.StepCount)
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := CouetteConfig(0, 8, 1)
	_, err := NewSimulation(cfg)
	var igErr *geom2D.InvalidGeometryError
	assert.ErrorAs(t, err, &igErr)

	cfg = CouetteConfig(8, 8, 1)
	cfg.Materials = nil
	_, err = NewSimulation(cfg)
	assert.Error(t, err)
}
