package thermal

import (
	"fmt"

	"github.com/notargets/geostokes/geom2D"
	"github.com/notargets/geostokes/utils"
)

const (
	DefaultLinTol      = 1.e-10
	DefaultMaxLinIters = 20000
)

/*
Solver advances the temperature equation

	dT/dt + u.grad(T) = kappa*laplacian(T)

with operator splitting: semi-Lagrangian advection (RK2 departure points,
bilinear interpolation of the old field) followed by backward-Euler implicit
diffusion. Advection respects the driver's CFL-chosen dt; the implicit
diffusion stage is unconditionally stable, so stiff diffusivities never
constrain the step.

Dirichlet walls override the natural insulating condition, which enters the
diffusion stencil as a mirrored ghost node.
*/
type Solver struct {
	Mesh  *geom2D.Mesh
	BCs   utils.BCSet
	Kappa float64

	LinTol      float64
	MaxLinIters int

	// Committed temperature from the last successful step
	T *geom2D.ScalarField
}

// Result carries the diagnostics of one thermal step.
type Result struct {
	Iterations int
	Residual   float64
}

func NewSolver(m *geom2D.Mesh, bcs utils.BCSet, kappa float64) (s *Solver) {
	s = &Solver{
		Mesh:        m,
		BCs:         bcs,
		Kappa:       kappa,
		LinTol:      DefaultLinTol,
		MaxLinIters: DefaultMaxLinIters,
		T:           geom2D.NewScalarField("temperature", m),
	}
	return
}

// SetInitial fills the temperature field from a pointwise function and
// stamps prescribed wall values on top.
func (s *Solver) SetInitial(f func(x, y float64) float64) {
	for n := 0; n < s.Mesh.NumNodes(); n++ {
		x, y := s.Mesh.NodeCoord(n)
		s.T.Set(n, f(x, y))
	}
	prescribed, values := geom2D.TemperatureConstraints(s.Mesh, s.BCs)
	for n, p := range prescribed {
		if p {
			s.T.Set(n, values[n])
		}
	}
}

// Step advances temperature by dt through the fixed velocity field. The
// committed field is replaced only if the implicit solve converges.
func (s *Solver) Step(vel *geom2D.VectorField, dt float64) (res Result, err error) {
	var (
		m     = s.Mesh
		tStar = make([]float64, m.NumNodes())
	)
	// Advection stage: pull back along trajectories. Departure points are
	// clamped to the domain, consistent with inflow walls holding their
	// Dirichlet value.
	for n := 0; n < m.NumNodes(); n++ {
		x, y := m.NodeCoord(n)
		u, v, ierr := vel.InterpolateAt(x, y)
		if ierr != nil {
			err = fmt.Errorf("thermal advection at node %d: %w", n, ierr)
			return
		}
		xm := clamp(x-0.5*dt*u, m.XMin, m.XMax)
		ym := clamp(y-0.5*dt*v, m.YMin, m.YMax)
		um, vm, ierr := vel.InterpolateAt(xm, ym)
		if ierr != nil {
			err = fmt.Errorf("thermal advection at node %d: %w", n, ierr)
			return
		}
		xd := clamp(x-dt*um, m.XMin, m.XMax)
		yd := clamp(y-dt*vm, m.YMin, m.YMax)
		if tStar[n], ierr = s.T.InterpolateAt(xd, yd); ierr != nil {
			err = fmt.Errorf("thermal departure point for node %d: %w", n, ierr)
			return
		}
	}

	tNew, res, err := s.diffuse(tStar, dt)
	if err != nil {
		return
	}
	copy(s.T.V.DataP, tNew)
	return
}

/*
diffuse solves (I - dt*kappa*L) T = tStar with the 5-point Laplacian on the
node grid. Insulating walls mirror the missing neighbor back inside, which
makes the trapezoid-weighted total heat an exact invariant of the stage.
Dirichlet nodes are eliminated from the system, their values substituted
into neighboring rows.
*/
func (s *Solver) diffuse(tStar []float64, dt float64) (tNew []float64, res Result, err error) {
	var (
		m      = s.Mesh
		nNodes = m.NumNodes()
		ax     = dt * s.Kappa / (m.Dx * m.Dx)
		ay     = dt * s.Kappa / (m.Dy * m.Dy)
	)
	prescribed, values := geom2D.TemperatureConstraints(m, s.BCs)

	eqNum := make([]int, nNodes)
	neq := 0
	for n := 0; n < nNodes; n++ {
		if prescribed[n] {
			eqNum[n] = -1
		} else {
			eqNum[n] = neq
			neq++
		}
	}

	var (
		A   = utils.NewDOK(neq, neq)
		rhs = make([]float64, neq)
		x0  = make([]float64, neq)
	)
	// Neighbor coupling with mirrored ghosts at free walls: an interior
	// face carries weight 1, a mirrored face folds onto its opposite
	// neighbor, doubling it.
	couple := func(I int, nbr int, w float64, diag *float64) {
		*diag += w
		if J := eqNum[nbr]; J >= 0 {
			A.AddAt(I, J, -w)
		} else {
			rhs[I] += w * values[nbr]
		}
	}
	for j := 0; j <= m.Ny; j++ {
		for i := 0; i <= m.Nx; i++ {
			n := m.NodeIndex(i, j)
			I := eqNum[n]
			if I < 0 {
				continue
			}
			diag := 1.0
			rhs[I] += tStar[n]
			x0[I] = s.T.At(n)
			switch {
			case i == 0:
				couple(I, m.NodeIndex(i+1, j), 2*ax, &diag)
			case i == m.Nx:
				couple(I, m.NodeIndex(i-1, j), 2*ax, &diag)
			default:
				couple(I, m.NodeIndex(i-1, j), ax, &diag)
				couple(I, m.NodeIndex(i+1, j), ax, &diag)
			}
			switch {
			case j == 0:
				couple(I, m.NodeIndex(i, j+1), 2*ay, &diag)
			case j == m.Ny:
				couple(I, m.NodeIndex(i, j-1), 2*ay, &diag)
			default:
				couple(I, m.NodeIndex(i, j-1), ay, &diag)
				couple(I, m.NodeIndex(i, j+1), ay, &diag)
			}
			A.AddAt(I, I, diag)
		}
	}

	x, iters, resid, err := A.ToCSR().SolveCG(rhs, x0, s.LinTol, s.MaxLinIters)
	res.Iterations = iters
	res.Residual = resid
	if err != nil {
		err = fmt.Errorf("thermal diffusion solve: %w", err)
		return
	}
	tNew = make([]float64, nNodes)
	for n := 0; n < nNodes; n++ {
		if I := eqNum[n]; I >= 0 {
			tNew[n] = x[I]
		} else {
			tNew[n] = values[n]
		}
	}
	return
}

// TotalEnergy integrates the temperature over the domain with trapezoid
// weights, the quantity the insulated diffusion stage conserves exactly.
func (s *Solver) TotalEnergy() (e float64) {
	var (
		m = s.Mesh
		w = utils.NewVectorConst(m.NumNodes(), m.Dx*m.Dy)
	)
	// Halve the wall weights, which quarters the corners
	bottom, right, top, left := m.WallNodes()
	for _, walls := range [][]int{bottom, right, top, left} {
		for _, n := range walls {
			w.DataP[n] *= 0.5
		}
	}
	return w.Dot(s.T.V)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
