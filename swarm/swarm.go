package swarm

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/notargets/geostokes/geom2D"
	"github.com/notargets/geostokes/rheology"
	"github.com/notargets/geostokes/utils"
)

/*
Swarm is the set of Lagrangian tracer particles carrying material identity.

Storage is an arena of parallel slices with stable indices: advection workers
write each particle's result in place with no synchronization, and particles
leaving the domain are deactivated in place rather than removed, so indices
held elsewhere within a step stay valid. Particles are created once at
initialization and only destroyed at teardown.
*/
type Swarm struct {
	Mesh      *geom2D.Mesh
	Materials []*rheology.Material

	// Arena storage, one entry per particle
	X, Y   []float64
	MatID  []int
	EpsII  []float64 // Strain rate invariant cached from the last solve
	Active []bool

	ParallelDegree int
}

// New fills each element with perCell x perCell particles on a jittered
// regular sub-grid and assigns each to the last listed material whose shape
// contains it. The seed fixes the jitter so runs are reproducible.
func New(m *geom2D.Mesh, materials []*rheology.Material, perCell int, seed int64) (sw *Swarm, err error) {
	if len(materials) == 0 {
		err = fmt.Errorf("swarm requires at least one material")
		return
	}
	if perCell < 1 {
		perCell = 2
	}
	var (
		rng = rand.New(rand.NewSource(seed))
		nP  = m.NumElements() * perCell * perCell
	)
	sw = &Swarm{
		Mesh:           m,
		Materials:      materials,
		X:              make([]float64, 0, nP),
		Y:              make([]float64, 0, nP),
		MatID:          make([]int, 0, nP),
		EpsII:          make([]float64, 0, nP),
		Active:         make([]bool, 0, nP),
		ParallelDegree: 1,
	}
	for k := 0; k < m.NumElements(); k++ {
		verts := m.ElemNodes(k)
		x0, y0 := m.NodeCoord(verts[0])
		for jj := 0; jj < perCell; jj++ {
			for ii := 0; ii < perCell; ii++ {
				// Cell-centered sub-grid position plus up to a half sub-cell of jitter
				fx := (float64(ii) + 0.5 + 0.5*(rng.Float64()-0.5)) / float64(perCell)
				fy := (float64(jj) + 0.5 + 0.5*(rng.Float64()-0.5)) / float64(perCell)
				x := x0 + fx*m.Dx
				y := y0 + fy*m.Dy
				matID := assignMaterial(materials, x, y)
				if matID < 0 {
					err = fmt.Errorf("no material shape contains particle at (%v, %v), add a background material", x, y)
					return
				}
				sw.X = append(sw.X, x)
				sw.Y = append(sw.Y, y)
				sw.MatID = append(sw.MatID, matID)
				sw.EpsII = append(sw.EpsII, 0)
				sw.Active = append(sw.Active, true)
			}
		}
	}
	return
}

// Later-listed materials override earlier ones, so the background material
// goes first.
func assignMaterial(materials []*rheology.Material, x, y float64) (matID int) {
	matID = -1
	for _, mat := range materials {
		if mat.Shape != nil && mat.Shape.Contains(x, y) {
			matID = mat.ID
		}
	}
	return
}

func (sw *Swarm) NumParticles() int { return len(sw.X) }

func (sw *Swarm) ActiveCount() (n int) {
	for _, a := range sw.Active {
		if a {
			n++
		}
	}
	return
}

// Each calls visit for every active particle. The visit callback must not
// mutate the swarm.
func (sw *Swarm) Each(visit func(i int, x, y float64, matID int)) {
	for i := range sw.X {
		if sw.Active[i] {
			visit(i, sw.X[i], sw.Y[i], sw.MatID[i])
		}
	}
}

func (sw *Swarm) Material(matID int) *rheology.Material {
	for _, mat := range sw.Materials {
		if mat.ID == matID {
			return mat
		}
	}
	return nil
}

/*
Advect moves every active particle through the velocity field with the RK2
midpoint rule:

	xm = x + dt/2 * u(x)
	x' = x + dt * u(xm)

The scheme is fixed for the whole run. Particles whose midpoint or endpoint
leaves the domain are deactivated, not reflected or clamped. Workers write
only their own bucket of the arena, so runs are deterministic for a given
particle order.
*/
func (sw *Swarm) Advect(vel *geom2D.VectorField, dt float64) {
	var (
		wg = sync.WaitGroup{}
		pm = utils.NewPartitionMap(sw.ParallelDegree, sw.NumParticles())
	)
	for np := 0; np < pm.ParallelDegree; np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			imin, imax := pm.GetBucketRange(np)
			for i := imin; i < imax; i++ {
				if !sw.Active[i] {
					continue
				}
				sw.advectOne(i, vel, dt)
			}
		}(np)
	}
	wg.Wait()
}

func (sw *Swarm) advectOne(i int, vel *geom2D.VectorField, dt float64) {
	u, v, err := vel.InterpolateAt(sw.X[i], sw.Y[i])
	if err != nil {
		sw.Active[i] = false
		return
	}
	xm := sw.X[i] + 0.5*dt*u
	ym := sw.Y[i] + 0.5*dt*v
	um, vm, err := vel.InterpolateAt(xm, ym)
	if err != nil {
		sw.Active[i] = false
		return
	}
	xn := sw.X[i] + dt*um
	yn := sw.Y[i] + dt*vm
	if !sw.Mesh.Contains(xn, yn) {
		sw.Active[i] = false
		return
	}
	sw.X[i], sw.Y[i] = xn, yn
}

/*
ElementProperties bins active particles into their containing elements and
returns the per-element density (arithmetic mean over resident particles),
majority material, and mean cached strain-rate invariant. Elements that have
been evacuated fall back to the first listed (background) material.
*/
func (sw *Swarm) ElementProperties() (rho []float64, mats []*rheology.Material, epsII []float64) {
	var (
		nel    = sw.Mesh.NumElements()
		counts = make([]int, nel)
		votes  = make([]map[int]int, nel)
	)
	rho = make([]float64, nel)
	mats = make([]*rheology.Material, nel)
	epsII = make([]float64, nel)
	for i := range sw.X {
		if !sw.Active[i] {
			continue
		}
		k, _, _, err := sw.Mesh.Locate(sw.X[i], sw.Y[i])
		if err != nil {
			// Active particles are kept in-domain by Advect
			continue
		}
		mat := sw.Material(sw.MatID[i])
		rho[k] += mat.Density
		epsII[k] += sw.EpsII[i]
		counts[k]++
		if votes[k] == nil {
			votes[k] = make(map[int]int)
		}
		votes[k][sw.MatID[i]]++
	}
	background := sw.Materials[0]
	for k := 0; k < nel; k++ {
		if counts[k] == 0 {
			rho[k] = background.Density
			mats[k] = background
			continue
		}
		rho[k] /= float64(counts[k])
		epsII[k] /= float64(counts[k])
		best, bestCount := -1, -1
		for id, c := range votes[k] {
			if c > bestCount || (c == bestCount && id < best) {
				best, bestCount = id, c
			}
		}
		mats[k] = sw.Material(best)
	}
	return
}

// CacheStrainRate stores the per-element strain-rate invariant from the last
// converged solve onto the resident particles.
func (sw *Swarm) CacheStrainRate(elemEpsII []float64) {
	for i := range sw.X {
		if !sw.Active[i] {
			continue
		}
		k, _, _, err := sw.Mesh.Locate(sw.X[i], sw.Y[i])
		if err != nil {
			continue
		}
		sw.EpsII[i] = elemEpsII[k]
	}
}
