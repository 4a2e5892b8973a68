package utils

import (
	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK wraps the dictionary-of-keys sparse form used during assembly, where
// entries arrive element by element in arbitrary order.
type DOK struct {
	M *sparse.DOK
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		M: sparse.NewDOK(nr, nc),
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)              { return m.M.Dims() }
func (m DOK) At(i, j int) float64           { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix                 { return m.M.T() }
func (m DOK) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }

func (m DOK) Set(i, j int, val float64) {
	m.M.Set(i, j, val)
}

// AddAt accumulates into an entry, the assembly primitive for summing
// element stiffness contributions that share a global row/column.
func (m DOK) AddAt(i, j int, val float64) {
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M: m.M.ToCSR(),
	}
}

// CSR wraps the compressed sparse row form used for the solve phase.
type CSR struct {
	M *sparse.CSR
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }

// MulVec computes y = A*x over the raw CSR storage, avoiding the interface
// indirection in the inner iteration loops.
func (m CSR) MulVec(x, y []float64) {
	var (
		raw = m.M.RawMatrix()
	)
	for i := 0; i < raw.I; i++ {
		var sum float64
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			sum += raw.Data[jj] * x[raw.Ind[jj]]
		}
		y[i] = sum
	}
}

// Diagonal extracts the matrix diagonal, used for Jacobi preconditioning.
func (m CSR) Diagonal() (d []float64) {
	var (
		raw = m.M.RawMatrix()
	)
	d = make([]float64, raw.I)
	for i := 0; i < raw.I; i++ {
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			if raw.Ind[jj] == i {
				d[i] = raw.Data[jj]
			}
		}
	}
	return
}
