package stokes

import (
	"math"

	"github.com/notargets/geostokes/geom2D"
	"github.com/notargets/geostokes/utils"
)

// 2x2 Gauss rule on the reference square, exact for the Q1 viscous term.
var (
	gaussPt = [2]float64{-1. / math.Sqrt(3.), 1. / math.Sqrt(3.)}
)

/*
ElementStiffness builds the 8x8 stiffness of one rectangular Q1 element with
interleaved local DOFs [u0,v0,u1,v1,u2,v2,u3,v3].

The viscous block integrates Bt*D*B with B the engineering strain-rate
operator (exx, eyy, 2*exy) and D = diag(2*eta, 2*eta, eta) over the 2x2
Gauss rule. The penalty block integrates lambda*Bvt*Bv with a single center
point: reduced integration of the incompressibility constraint is what keeps
the Q1 element from locking.
*/
func ElementStiffness(eta, lambda, dx, dy float64) (K utils.Matrix) {
	var (
		detJ = dx * dy / 4.
		cx   = 2. / dx // d(r)/d(x)
		cy   = 2. / dy
		D    = utils.NewMatrix(3, 3, []float64{
			2 * eta, 0, 0,
			0, 2 * eta, 0,
			0, 0, eta,
		})
	)
	K = utils.NewMatrix(8, 8)
	// Viscous term, full integration
	for _, r := range gaussPt {
		for _, s := range gaussPt {
			dNdr, dNds := geom2D.ShapeQ1Deriv(r, s)
			B := utils.NewMatrix(3, 8)
			for i := 0; i < 4; i++ {
				dNdx := dNdr[i] * cx
				dNdy := dNds[i] * cy
				B.Set(0, 2*i, dNdx)
				B.Set(1, 2*i+1, dNdy)
				B.Set(2, 2*i, dNdy)
				B.Set(2, 2*i+1, dNdx)
			}
			K.Add(B.Transpose().Mul(D).Mul(B).Scale(detJ))
		}
	}
	// Penalty term, reduced one-point integration at the element center
	{
		dNdr, dNds := geom2D.ShapeQ1Deriv(0, 0)
		Bv := utils.NewMatrix(1, 8)
		for i := 0; i < 4; i++ {
			Bv.Set(0, 2*i, dNdr[i]*cx)
			Bv.Set(0, 2*i+1, dNds[i]*cy)
		}
		// Single point carries the full reference-square weight
		K.Add(Bv.Transpose().Mul(Bv).Scale(4. * detJ * lambda))
	}
	return
}

// ElementBodyForce integrates the buoyancy load rho*g against the bilinear
// shape functions.
func ElementBodyForce(rho, gx, gy, dx, dy float64) (f [8]float64) {
	var (
		detJ = dx * dy / 4.
	)
	for _, r := range gaussPt {
		for _, s := range gaussPt {
			N := geom2D.ShapeQ1(r, s)
			for i := 0; i < 4; i++ {
				f[2*i] += detJ * N[i] * rho * gx
				f[2*i+1] += detJ * N[i] * rho * gy
			}
		}
	}
	return
}

// ElementStrainRate evaluates the strain-rate components and divergence at
// the element center from the corner velocities uv (interleaved ordering).
func ElementStrainRate(uv [8]float64, dx, dy float64) (exx, eyy, exy, div float64) {
	var (
		cx         = 2. / dx
		cy         = 2. / dy
		dNdr, dNds = geom2D.ShapeQ1Deriv(0, 0)
	)
	var dudx, dudy, dvdx, dvdy float64
	for i := 0; i < 4; i++ {
		dudx += dNdr[i] * cx * uv[2*i]
		dudy += dNds[i] * cy * uv[2*i]
		dvdx += dNdr[i] * cx * uv[2*i+1]
		dvdy += dNds[i] * cy * uv[2*i+1]
	}
	exx = dudx
	eyy = dvdy
	exy = 0.5 * (dudy + dvdx)
	div = dudx + dvdy
	return
}

// StrainRateInvariant is the second invariant of the deviatoric strain rate,
// the non-negative magnitude the rheology laws consume.
func StrainRateInvariant(exx, eyy, exy float64) float64 {
	return math.Sqrt(0.5*(exx*exx+eyy*eyy) + exy*exy)
}
