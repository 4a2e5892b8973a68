package stokes

import (
	"fmt"
	"math"
	"sync"

	"github.com/notargets/geostokes/geom2D"
	"github.com/notargets/geostokes/rheology"
	"github.com/notargets/geostokes/utils"
)

const (
	DefaultTolerance     = 1.e-5
	DefaultMaxPicard     = 50
	DefaultPenaltyFactor = 1.e4
	DefaultLinTol        = 1.e-9
	DefaultMaxLinIters   = 20000
)

// Solver owns the discrete momentum + incompressibility problem: Q1 velocity
// with elementwise-constant pressure recovered from a penalty formulation.
// Velocity, pressure and viscosity state hold the last converged solution and
// are only overwritten after a successful solve.
type Solver struct {
	Mesh    *geom2D.Mesh
	BCs     utils.BCSet
	Gravity [2]float64
	Rheo    *rheology.Evaluator

	Tolerance     float64 // Picard: relative viscosity/velocity change
	MaxPicard     int
	PenaltyFactor float64 // lambda = PenaltyFactor * max element viscosity
	LinTol        float64
	MaxLinIters   int

	ParallelDegree int

	// Committed state from the last converged solve
	Vel       *geom2D.VectorField
	Pressure  []float64 // Per element
	EtaElem   []float64 // Per element effective viscosity
	EpsIIElem []float64 // Per element strain rate invariant
}

// State references the committed solver fields. Solve commits by replacing
// the references, never by mutating the old arrays in place, so a captured
// State restores the pre-solve solution exactly. The driver uses this to
// roll a Stokes commit back when a later stage of the coupled step fails.
type State struct {
	Vel       *geom2D.VectorField
	Pressure  []float64
	EtaElem   []float64
	EpsIIElem []float64
}

func (s *Solver) Capture() State {
	return State{s.Vel, s.Pressure, s.EtaElem, s.EpsIIElem}
}

func (s *Solver) Restore(st State) {
	s.Vel = st.Vel
	s.Pressure = st.Pressure
	s.EtaElem = st.EtaElem
	s.EpsIIElem = st.EpsIIElem
}

// Result carries the convergence diagnostics of one nonlinear solve.
type Result struct {
	Iterations  int
	Residual    float64 // Last relative change between Picard iterates
	LinIters    int     // Total inner CG iterations
	LinResidual float64 // Residual of the last inner solve
}

func NewSolver(m *geom2D.Mesh, bcs utils.BCSet, gravity [2]float64, rheo *rheology.Evaluator) (s *Solver) {
	s = &Solver{
		Mesh:           m,
		BCs:            bcs,
		Gravity:        gravity,
		Rheo:           rheo,
		Tolerance:      DefaultTolerance,
		MaxPicard:      DefaultMaxPicard,
		PenaltyFactor:  DefaultPenaltyFactor,
		LinTol:         DefaultLinTol,
		MaxLinIters:    DefaultMaxLinIters,
		ParallelDegree: 1,
		Vel:            geom2D.NewVectorField("velocity", m),
		Pressure:       make([]float64, m.NumElements()),
		EtaElem:        make([]float64, m.NumElements()),
		EpsIIElem:      make([]float64, m.NumElements()),
	}
	return
}

/*
Solve runs the Picard fixed-point iteration: assemble with the current
per-element viscosity, solve the linear system, re-evaluate viscosity from
the new strain-rate field, and repeat until the relative change between
iterates drops below Tolerance.

rho and mats are the per-element density and majority material from the
swarm; epsII0 seeds the viscosity evaluation (the swarm's cached invariant
from the previous step, zero on the first step where the clip bound takes
over for power-law materials).

A constant-viscosity (or n=1 power-law) configuration converges on the first
iteration because the re-evaluated viscosity is unchanged.

On iteration-cap exhaustion the error is a NonConvergenceError and the
committed state is left untouched; the last iterate travels in the error for
callers that accept best-effort results.
*/
func (s *Solver) Solve(rho []float64, mats []*rheology.Material, epsII0 []float64) (res Result, err error) {
	var (
		nel   = s.Mesh.NumElements()
		eta   = make([]float64, nel)
		epsII = make([]float64, nel)
	)
	copy(epsII, epsII0)
	for k := 0; k < nel; k++ {
		if eta[k], err = s.Rheo.EffectiveViscosity(mats[k], epsII[k]); err != nil {
			return
		}
	}

	var (
		vel      = s.Vel.Copy()
		pressure = make([]float64, nel)
	)
	for iter := 1; iter <= s.MaxPicard; iter++ {
		res.Iterations = iter
		linIters, linResid, solveErr := s.solveLinear(eta, rho, vel)
		res.LinIters += linIters
		res.LinResidual = linResid
		if solveErr != nil {
			err = fmt.Errorf("stokes picard iteration %d: %w", iter, solveErr)
			return
		}

		// Re-evaluate viscosity from the new velocity field
		lambda := s.PenaltyFactor * maxOf(eta)
		var etaChange float64
		for k := 0; k < nel; k++ {
			uv := s.gatherElement(vel, k)
			exx, eyy, exy, div := ElementStrainRate(uv, s.Mesh.Dx, s.Mesh.Dy)
			epsII[k] = StrainRateInvariant(exx, eyy, exy)
			pressure[k] = -lambda * div
			etaNew, rheoErr := s.Rheo.EffectiveViscosity(mats[k], epsII[k])
			if rheoErr != nil {
				err = rheoErr
				return
			}
			rel := math.Abs(etaNew-eta[k]) / eta[k]
			if rel > etaChange {
				etaChange = rel
			}
			eta[k] = etaNew
		}
		res.Residual = etaChange
		if etaChange < s.Tolerance {
			// Converged: commit
			s.Vel = vel
			s.Pressure = pressure
			s.EtaElem = eta
			s.EpsIIElem = epsII
			return
		}
	}
	err = &utils.NonConvergenceError{
		Context:    "stokes picard iteration",
		Iterations: res.Iterations,
		Residual:   res.Residual,
		Iterate:    append(vel.U.DataP, vel.V.DataP...),
	}
	return
}

// solveLinear assembles and solves one linearized Stokes system into vel.
func (s *Solver) solveLinear(eta, rho []float64, vel *geom2D.VectorField) (linIters int, linResid float64, err error) {
	var (
		m      = s.Mesh
		nel    = m.NumElements()
		lambda = s.PenaltyFactor * maxOf(eta)
	)
	prescribed, bcValues := geom2D.VelocityConstraints(m, s.BCs)

	// Free-DOF equation numbering: Dirichlet rows are never assembled, their
	// values substitute into the right-hand side instead.
	var (
		nDOF  = 2 * m.NumNodes()
		eqNum = make([]int, nDOF)
		neq   int
	)
	for d := 0; d < nDOF; d++ {
		if prescribed[d] {
			eqNum[d] = -1
		} else {
			eqNum[d] = neq
			neq++
		}
	}

	// Element matrices are independent work, fanned out across buckets with
	// write-once outputs. The global accumulation below is the
	// synchronization point.
	var (
		Ke = make([]utils.Matrix, nel)
		fe = make([][8]float64, nel)
		wg = sync.WaitGroup{}
		pm = utils.NewPartitionMap(s.ParallelDegree, nel)
	)
	for np := 0; np < pm.ParallelDegree; np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			imin, imax := pm.GetBucketRange(np)
			for k := imin; k < imax; k++ {
				Ke[k] = ElementStiffness(eta[k], lambda, m.Dx, m.Dy)
				fe[k] = ElementBodyForce(rho[k], s.Gravity[0], s.Gravity[1], m.Dx, m.Dy)
			}
		}(np)
	}
	wg.Wait()

	var (
		A   = utils.NewDOK(neq, neq)
		rhs = make([]float64, neq)
	)
	for k := 0; k < nel; k++ {
		verts := m.ElemNodes(k)
		var gdof [8]int
		for i := 0; i < 4; i++ {
			gdof[2*i] = 2 * verts[i]
			gdof[2*i+1] = 2*verts[i] + 1
		}
		for i := 0; i < 8; i++ {
			I := eqNum[gdof[i]]
			if I < 0 {
				continue
			}
			rhs[I] += fe[k][i]
			for j := 0; j < 8; j++ {
				if J := eqNum[gdof[j]]; J >= 0 {
					A.AddAt(I, J, Ke[k].At(i, j))
				} else {
					rhs[I] -= Ke[k].At(i, j) * bcValues[gdof[j]]
				}
			}
		}
	}

	// Seed CG with the previous iterate's free DOFs
	x0 := make([]float64, neq)
	for n := 0; n < m.NumNodes(); n++ {
		if I := eqNum[2*n]; I >= 0 {
			x0[I] = vel.U.DataP[n]
		}
		if I := eqNum[2*n+1]; I >= 0 {
			x0[I] = vel.V.DataP[n]
		}
	}
	x, linIters, linResid, err := A.ToCSR().SolveCG(rhs, x0, s.LinTol, s.MaxLinIters)
	if err != nil {
		return
	}
	// NaN in a converged solution means the assembly produced a malformed
	// operator
	utils.IsNanPanic(x)

	// Scatter solution and prescribed values back to the nodal field
	for n := 0; n < m.NumNodes(); n++ {
		if I := eqNum[2*n]; I >= 0 {
			vel.U.DataP[n] = x[I]
		} else {
			vel.U.DataP[n] = bcValues[2*n]
		}
		if I := eqNum[2*n+1]; I >= 0 {
			vel.V.DataP[n] = x[I]
		} else {
			vel.V.DataP[n] = bcValues[2*n+1]
		}
	}
	return
}

func (s *Solver) gatherElement(vel *geom2D.VectorField, k int) (uv [8]float64) {
	verts := s.Mesh.ElemNodes(k)
	for i := 0; i < 4; i++ {
		uv[2*i] = vel.U.DataP[verts[i]]
		uv[2*i+1] = vel.V.DataP[verts[i]]
	}
	return
}

// IntegratedDivergence sums div(u)*elementArea over the domain, a direct
// check of discrete mass conservation.
func (s *Solver) IntegratedDivergence() (total float64) {
	var (
		m    = s.Mesh
		area = m.Dx * m.Dy
	)
	for k := 0; k < m.NumElements(); k++ {
		uv := s.gatherElement(s.Vel, k)
		_, _, _, div := ElementStrainRate(uv, m.Dx, m.Dy)
		total += div * area
	}
	return
}

func maxOf(v []float64) (mx float64) {
	mx = -math.MaxFloat64
	for _, val := range v {
		if val > mx {
			mx = val
		}
	}
	return
}
