package rheology

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveViscosity(t *testing.T) {
	ev := NewEvaluator(1.e-4, 1.e4)
	{ // Constant law returns eta0 unconditionally
		mat := &Material{Name: "mantle", Law: Constant, Eta0: 2.5}
		for _, eps := range []float64{0, 1.e-12, 1, 100} {
			eta, err := ev.EffectiveViscosity(mat, eps)
			assert.NoError(t, err)
			assert.Equal(t, 2.5, eta)
		}
	}
	{ // Power law with n=1 is Newtonian with eta = 1/A, at any strain rate
		mat := &Material{Name: "lin", Law: PowerLaw, A: 4, N: 1}
		etaA, err := ev.EffectiveViscosity(mat, 0.1)
		assert.NoError(t, err)
		etaB, err := ev.EffectiveViscosity(mat, 1.e3)
		assert.NoError(t, err)
		assert.Equal(t, etaA, etaB)
		assert.InDelta(t, 0.25, etaA, 1.e-15)
	}
	{ // Power law n=3, check against the closed form
		mat := &Material{Name: "plastic", Law: PowerLaw, A: 1, N: 3}
		epsII := 2.0
		want := math.Pow(epsII, (1.-3.)/3.)
		eta, err := ev.EffectiveViscosity(mat, epsII)
		assert.NoError(t, err)
		assert.InDelta(t, want, eta, 1.e-14)
	}
	{ // Zero strain rate clips to EtaMax instead of diverging
		mat := &Material{Name: "plastic", Law: PowerLaw, A: 1, N: 3}
		eta, err := ev.EffectiveViscosity(mat, 0)
		assert.NoError(t, err)
		assert.Equal(t, ev.EtaMax, eta)
	}
	{ // Tiny strain rate also clips at EtaMax
		mat := &Material{Name: "plastic", Law: PowerLaw, A: 1, N: 3}
		eta, err := ev.EffectiveViscosity(mat, 1.e-30)
		assert.NoError(t, err)
		assert.Equal(t, ev.EtaMax, eta)
	}
	{ // Malformed strain rates are a DomainError
		mat := &Material{Name: "mantle", Law: PowerLaw, A: 1, N: 3}
		var dErr *DomainError
		_, err := ev.EffectiveViscosity(mat, -1)
		assert.ErrorAs(t, err, &dErr)
		_, err = ev.EffectiveViscosity(mat, math.NaN())
		assert.ErrorAs(t, err, &dErr)
		_, err = ev.EffectiveViscosity(mat, math.Inf(1))
		assert.ErrorAs(t, err, &dErr)
	}
}

func TestShapes(t *testing.T) {
	assert.True(t, Everywhere{}.Contains(1.e9, -1.e9))
	b := Box{XMin: 0, XMax: 1, YMin: 0, YMax: 1}
	assert.True(t, b.Contains(0.5, 0.5))
	assert.True(t, b.Contains(1, 1))
	assert.False(t, b.Contains(1.01, 0.5))
	d := Disc{CX: 0, CY: 0, Radius: 1}
	assert.True(t, d.Contains(0.6, 0.6))
	assert.False(t, d.Contains(0.8, 0.8))
	l := Layer{YMin: 0.5, YMax: 0.75}
	assert.True(t, l.Contains(-100, 0.6))
	assert.False(t, l.Contains(0, 0.8))
	h := HalfPlane{PX: 0, PY: 0.5, NX: 0, NY: 1}
	assert.True(t, h.Contains(3, 0.7))
	assert.False(t, h.Contains(3, 0.3))
}
