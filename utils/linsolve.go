package utils

import (
	"fmt"
	"math"
)

// NonConvergenceError reports an iterative solve that exhausted its iteration
// cap. It carries the last iterate so the caller can decide whether to accept
// the best-effort result, shrink the time step, or abort.
type NonConvergenceError struct {
	Context    string
	Iterations int
	Residual   float64
	Iterate    []float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("%s did not converge: iterations = %d, residual = %12.5e",
		e.Context, e.Iterations, e.Residual)
}

// SolveCG solves A*x = b with Jacobi preconditioned conjugate gradient, for
// symmetric positive definite A. x0 seeds the iteration and is not modified.
// On success the iteration count and final residual norm are returned for
// diagnostics; on iteration-cap exhaustion a NonConvergenceError carrying the
// last iterate is returned.
func (m CSR) SolveCG(b, x0 []float64, tol float64, maxIter int) (x []float64, iters int, resid float64, err error) {
	var (
		n     = len(b)
		r     = make([]float64, n)
		z     = make([]float64, n)
		p     = make([]float64, n)
		ap    = make([]float64, n)
		d     = m.Diagonal()
		bnorm float64
	)
	x = make([]float64, n)
	copy(x, x0)
	for i := range d {
		if d[i] == 0 {
			d[i] = 1
		}
	}
	for _, val := range b {
		bnorm += val * val
	}
	bnorm = math.Sqrt(bnorm)
	if bnorm == 0 {
		// Homogeneous system, zero is exact
		for i := range x {
			x[i] = 0
		}
		return
	}

	m.MulVec(x, ap)
	var rz float64
	for i := range r {
		r[i] = b[i] - ap[i]
		z[i] = r[i] / d[i]
		p[i] = z[i]
		rz += r[i] * z[i]
	}

	for iters = 0; iters < maxIter; iters++ {
		resid = normOf(r) / bnorm
		if resid < tol {
			return
		}
		m.MulVec(p, ap)
		var pap float64
		for i := range p {
			pap += p[i] * ap[i]
		}
		if pap == 0 {
			break
		}
		alpha := rz / pap
		for i := range x {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
		}
		var rzNew float64
		for i := range r {
			z[i] = r[i] / d[i]
			rzNew += r[i] * z[i]
		}
		beta := rzNew / rz
		rz = rzNew
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
	resid = normOf(r) / bnorm
	if resid < tol {
		return
	}
	err = &NonConvergenceError{
		Context:    "conjugate gradient",
		Iterations: iters,
		Residual:   resid,
		Iterate:    x,
	}
	return
}

func normOf(v []float64) (n float64) {
	for _, val := range v {
		n += val * val
	}
	return math.Sqrt(n)
}
