package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/geostokes/geom2D"
	"github.com/notargets/geostokes/rheology"
	"github.com/notargets/geostokes/stokes"
	"github.com/notargets/geostokes/swarm"
	"github.com/notargets/geostokes/thermal"
	"github.com/notargets/geostokes/utils"
)

const (
	DefaultCFLFactor        = 0.5
	DefaultParticlesPerCell = 3
)

// Config is the complete, explicit description of a simulation. All inputs
// arrive here at once: no properties accrete after construction, so there
// are no order-dependent side effects.
type Config struct {
	Nx, Ny                 int
	XMin, XMax, YMin, YMax float64

	Gravity     [2]float64
	Diffusivity float64
	Materials   []*rheology.Material
	BCs         utils.BCSet
	InitialTemp func(x, y float64) float64 // nil means uniform zero

	// Boussinesq coupling: effective density is rho*(1 - alpha*T). Zero
	// leaves buoyancy purely compositional.
	ThermalExpansivity float64

	// Numerical controls, zero values take the documented defaults
	CFLFactor        float64
	MaxDt            float64 // Upper clamp on the CFL step, 0 means none
	Tolerance        float64 // Picard eps_tol
	MaxPicard        int
	EtaMin, EtaMax   float64
	PenaltyFactor    float64
	ParticlesPerCell int
	Seed             int64
	ParallelDegree   int
}

// StepResult reports one committed time step with the convergence
// diagnostics of both solves.
type StepResult struct {
	Step            int
	Time, Dt        float64
	StokesIters     int
	StokesResidual  float64
	ThermalIters    int
	ThermalResidual float64
	ActiveParticles int
}

// Simulation owns the single logical timeline: mesh, swarm, both solvers and
// the clock. Steps are strictly sequential; state is mutated only between
// the solver synchronization points, and only committed when a whole step
// succeeds.
type Simulation struct {
	Config  Config
	Mesh    *geom2D.Mesh
	Swarm   *swarm.Swarm
	Stokes  *stokes.Solver
	Thermal *thermal.Solver

	Time      float64
	StepCount int
}

func NewSimulation(cfg Config) (s *Simulation, err error) {
	if cfg.CFLFactor == 0 {
		cfg.CFLFactor = DefaultCFLFactor
	}
	if cfg.ParticlesPerCell == 0 {
		cfg.ParticlesPerCell = DefaultParticlesPerCell
	}
	if cfg.ParallelDegree < 1 {
		cfg.ParallelDegree = 1
	}
	if len(cfg.Materials) == 0 {
		err = fmt.Errorf("configuration needs at least one material")
		return
	}
	var m *geom2D.Mesh
	if m, err = geom2D.NewMesh(cfg.Nx, cfg.Ny, cfg.XMin, cfg.XMax, cfg.YMin, cfg.YMax); err != nil {
		return
	}
	var sw *swarm.Swarm
	if sw, err = swarm.New(m, cfg.Materials, cfg.ParticlesPerCell, cfg.Seed); err != nil {
		return
	}
	sw.ParallelDegree = cfg.ParallelDegree

	st := stokes.NewSolver(m, cfg.BCs, cfg.Gravity, rheology.NewEvaluator(cfg.EtaMin, cfg.EtaMax))
	if cfg.Tolerance > 0 {
		st.Tolerance = cfg.Tolerance
	}
	if cfg.MaxPicard > 0 {
		st.MaxPicard = cfg.MaxPicard
	}
	if cfg.PenaltyFactor > 0 {
		st.PenaltyFactor = cfg.PenaltyFactor
	}
	st.ParallelDegree = cfg.ParallelDegree

	th := thermal.NewSolver(m, cfg.BCs, cfg.Diffusivity)
	if cfg.InitialTemp != nil {
		th.SetInitial(cfg.InitialTemp)
	}

	s = &Simulation{
		Config:  cfg,
		Mesh:    m,
		Swarm:   sw,
		Stokes:  st,
		Thermal: th,
	}
	return
}

/*
Step advances the coupled system once:

 1. Per-element density, material and cached strain rate from the swarm.
 2. Stokes solve with Picard iteration on viscosity.
 3. CFL time step from the converged velocity field.
 4. Thermal solve over dt with the velocity held fixed.
 5. RK2 swarm advection; escapees are deactivated.

Prior state is never corrupted: a failed Stokes solve leaves everything
untouched, a thermal NonConvergence gets one retry at dt/2, and if the step
still fails the Stokes commit is rolled back so every field holds the last
fully successful step.
*/
func (s *Simulation) Step() (res StepResult, err error) {
	rho, mats, epsII := s.Swarm.ElementProperties()
	if alpha := s.Config.ThermalExpansivity; alpha != 0 {
		for k := range rho {
			x, y := s.Mesh.ElemCenter(k)
			T, terr := s.Thermal.T.InterpolateAt(x, y)
			if terr != nil {
				err = fmt.Errorf("step %d: %w", s.StepCount, terr)
				return
			}
			rho[k] *= 1 - alpha*T
		}
	}

	prior := s.Stokes.Capture()
	stRes, err := s.Stokes.Solve(rho, mats, epsII)
	if err != nil {
		err = fmt.Errorf("step %d: %w", s.StepCount, err)
		return
	}

	dt := s.pickDt()

	thRes, err := s.Thermal.Step(s.Stokes.Vel, dt)
	if err != nil {
		var nce *utils.NonConvergenceError
		if !errors.As(err, &nce) {
			s.Stokes.Restore(prior)
			err = fmt.Errorf("step %d: %w", s.StepCount, err)
			return
		}
		// Retry once at half the step before giving up
		dt /= 2
		if thRes, err = s.Thermal.Step(s.Stokes.Vel, dt); err != nil {
			s.Stokes.Restore(prior)
			err = fmt.Errorf("step %d (after dt halving): %w", s.StepCount, err)
			return
		}
	}

	s.Swarm.Advect(s.Stokes.Vel, dt)
	s.Swarm.CacheStrainRate(s.Stokes.EpsIIElem)

	// Commit the step
	s.Time += dt
	s.StepCount++
	res = StepResult{
		Step:            s.StepCount,
		Time:            s.Time,
		Dt:              dt,
		StokesIters:     stRes.Iterations,
		StokesResidual:  stRes.Residual,
		ThermalIters:    thRes.Iterations,
		ThermalResidual: thRes.Residual,
		ActiveParticles: s.Swarm.ActiveCount(),
	}
	return
}

// pickDt bounds the step so nothing advects further than CFLFactor element
// lengths, guaranteeing no particle crosses more than one element per step.
func (s *Simulation) pickDt() (dt float64) {
	var (
		vmax = s.Stokes.Vel.MaxMagnitude()
		h    = s.Mesh.MinElementSize()
	)
	if vmax < utils.NODETOL {
		// Stagnant flow: fall back to the configured maximum, or the
		// diffusive scale when no maximum is set
		if s.Config.MaxDt > 0 {
			return s.Config.MaxDt
		}
		if s.Config.Diffusivity > 0 {
			return h * h / s.Config.Diffusivity
		}
		return 1
	}
	dt = s.Config.CFLFactor * h / vmax
	if s.Config.MaxDt > 0 {
		dt = math.Min(dt, s.Config.MaxDt)
	}
	return
}

// Run advances nSteps steps, stopping at the first failure.
func (s *Simulation) Run(nSteps int) (results []StepResult, err error) {
	results = make([]StepResult, 0, nSteps)
	for i := 0; i < nSteps; i++ {
		var res StepResult
		if res, err = s.Step(); err != nil {
			return
		}
		results = append(results, res)
	}
	return
}

// RunUntil advances until simulation time reaches tEnd.
func (s *Simulation) RunUntil(tEnd float64) (results []StepResult, err error) {
	for s.Time < tEnd {
		var res StepResult
		if res, err = s.Step(); err != nil {
			return
		}
		results = append(results, res)
	}
	return
}

// Velocity, Pressure, Temperature and Viscosity expose the committed state
// for external rendering and analysis.
func (s *Simulation) Velocity() *geom2D.VectorField { return s.Stokes.Vel }

func (s *Simulation) Temperature() *geom2D.ScalarField { return s.Thermal.T }

func (s *Simulation) Pressure() []float64 { return s.Stokes.Pressure }

func (s *Simulation) Viscosity() []float64 { return s.Stokes.EtaElem }
