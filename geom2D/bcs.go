package geom2D

import (
	"github.com/notargets/geostokes/utils"
)

/*
VelocityConstraints expands a wall condition set into per-DOF constraint
arrays over the mesh. DOF numbering interleaves components: node n owns DOFs
2n (x velocity) and 2n+1 (y velocity).

Left/right walls are applied first and top/bottom afterwards, so corner nodes
take the top/bottom condition when both walls prescribe the same component.
*/
func VelocityConstraints(m *Mesh, bcs utils.BCSet) (prescribed []bool, values []float64) {
	var (
		nDOF = 2 * m.NumNodes()
	)
	prescribed = make([]bool, nDOF)
	values = make([]float64, nDOF)
	apply := func(n int, wall utils.WallBCs) {
		if wall.U.Kind == utils.BCDirichlet {
			prescribed[2*n] = true
			values[2*n] = wall.U.Value
		}
		if wall.V.Kind == utils.BCDirichlet {
			prescribed[2*n+1] = true
			values[2*n+1] = wall.V.Value
		}
	}
	bottom, right, top, left := m.WallNodes()
	for _, n := range left {
		apply(n, bcs.Left)
	}
	for _, n := range right {
		apply(n, bcs.Right)
	}
	for _, n := range bottom {
		apply(n, bcs.Bottom)
	}
	for _, n := range top {
		apply(n, bcs.Top)
	}
	return
}

// TemperatureConstraints expands the temperature conditions per node, with
// the same corner precedence as the velocity constraints. Free walls are
// insulating.
func TemperatureConstraints(m *Mesh, bcs utils.BCSet) (prescribed []bool, values []float64) {
	prescribed = make([]bool, m.NumNodes())
	values = make([]float64, m.NumNodes())
	apply := func(n int, wall utils.WallBCs) {
		if wall.T.Kind == utils.BCDirichlet {
			prescribed[n] = true
			values[n] = wall.T.Value
		}
	}
	bottom, right, top, left := m.WallNodes()
	for _, n := range left {
		apply(n, bcs.Left)
	}
	for _, n := range right {
		apply(n, bcs.Right)
	}
	for _, n := range bottom {
		apply(n, bcs.Bottom)
	}
	for _, n := range top {
		apply(n, bcs.Top)
	}
	return
}
