package utils

import "fmt"

// BCKind distinguishes a prescribed (Dirichlet) condition from a free
// (natural) one. A component is one or the other, never both.
type BCKind uint8

const (
	BCFree BCKind = iota // Natural: zero traction for velocity, insulating for temperature
	BCDirichlet
)

func (k BCKind) String() string {
	switch k {
	case BCFree:
		return "Free"
	case BCDirichlet:
		return "Dirichlet"
	}
	return "Unknown"
}

// BC is a single-component wall condition.
type BC struct {
	Kind  BCKind
	Value float64
}

func DirichletBC(value float64) BC { return BC{Kind: BCDirichlet, Value: value} }
func FreeBC() BC                   { return BC{} }

func (bc BC) String() string {
	if bc.Kind == BCDirichlet {
		return fmt.Sprintf("Dirichlet(%8.4f)", bc.Value)
	}
	return "Free"
}

// WallBCs carries the per-component conditions on one wall: the two velocity
// components and temperature.
type WallBCs struct {
	U, V, T BC
}

// BCSet holds the four wall condition sets. Corner nodes resolve by a fixed
// precedence: top/bottom walls override left/right.
type BCSet struct {
	Bottom, Right, Top, Left WallBCs
}

// NoSlipBox is the common starting point: all velocities pinned to zero on
// every wall, all walls insulating.
func NoSlipBox() BCSet {
	wall := WallBCs{U: DirichletBC(0), V: DirichletBC(0)}
	return BCSet{Bottom: wall, Right: wall, Top: wall, Left: wall}
}
