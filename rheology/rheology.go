package rheology

import (
	"fmt"
	"math"
)

// LawType selects the viscosity law for a material. Dispatch is a tagged
// variant rather than an interface so the per-element evaluation in the
// Picard loop stays branch-cheap.
type LawType uint8

const (
	Constant LawType = iota
	PowerLaw
)

func (lt LawType) String() string {
	switch lt {
	case Constant:
		return "Constant"
	case PowerLaw:
		return "PowerLaw"
	}
	return "Unknown"
}

// Default viscosity clip bounds, in non-dimensional units relative to a
// reference viscosity of 1. Clipping keeps the linear system conditioned when
// the strain rate is near zero at the start of the Picard iteration.
const (
	DefaultEtaMin = 1.e-4
	DefaultEtaMax = 1.e+4
)

// DomainError reports a malformed strain-rate invariant reaching the
// evaluator. That indicates an assembly bug upstream and is not recoverable.
type DomainError struct {
	EpsII float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("rheology: strain rate invariant %v must be a finite non-negative magnitude", e.EpsII)
}

// Material couples an identifier with a viscosity law, density and the shape
// predicate used once at initialization to assign swarm particles.
type Material struct {
	ID      int
	Name    string
	Law     LawType
	Eta0    float64 // Constant law viscosity
	A       float64 // Power law pre-exponential factor
	N       float64 // Power law stress exponent, N=1 recovers Newtonian
	Density float64
	Shape   Shape
}

// Evaluator computes effective viscosities, clipped to [EtaMin, EtaMax].
type Evaluator struct {
	EtaMin, EtaMax float64
}

func NewEvaluator(etaMin, etaMax float64) *Evaluator {
	if etaMin <= 0 {
		etaMin = DefaultEtaMin
	}
	if etaMax <= 0 {
		etaMax = DefaultEtaMax
	}
	return &Evaluator{EtaMin: etaMin, EtaMax: etaMax}
}

/*
EffectiveViscosity returns the viscosity of mat at strain-rate second
invariant epsII:

	Constant: eta0
	PowerLaw: eta = A^(-1/n) * epsII^((1-n)/n)

The power-law result is clipped to [EtaMin, EtaMax]; without the clip the
first Picard pass, where epsII is near zero, produces an effectively infinite
viscosity and the iteration diverges.
*/
func (ev *Evaluator) EffectiveViscosity(mat *Material, epsII float64) (eta float64, err error) {
	if math.IsNaN(epsII) || math.IsInf(epsII, 0) || epsII < 0 {
		err = &DomainError{EpsII: epsII}
		return
	}
	switch mat.Law {
	case Constant:
		eta = mat.Eta0
	case PowerLaw:
		if mat.N == 1 {
			// Newtonian limit, independent of strain rate
			eta = 1. / mat.A
		} else if epsII == 0 {
			eta = ev.EtaMax
		} else {
			eta = math.Pow(mat.A, -1./mat.N) * math.Pow(epsII, (1.-mat.N)/mat.N)
		}
		eta = ev.clip(eta)
	default:
		err = fmt.Errorf("unknown rheology law %v for material %q", mat.Law, mat.Name)
	}
	return
}

func (ev *Evaluator) clip(eta float64) float64 {
	if eta < ev.EtaMin {
		return ev.EtaMin
	}
	if eta > ev.EtaMax {
		return ev.EtaMax
	}
	return eta
}
