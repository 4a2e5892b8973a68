package geom2D

import (
	"fmt"
	"math"

	"github.com/notargets/geostokes/utils"
)

// InvalidGeometryError rejects a bad mesh/domain configuration at
// construction time. It is fatal: no simulation can start from it.
type InvalidGeometryError struct {
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}

// OutOfDomainError reports point location outside the mesh bounds. Callers
// decide the recovery: the swarm deactivates the particle, interpolation
// surfaces the error.
type OutOfDomainError struct {
	X, Y float64
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("point (%12.5e, %12.5e) is outside the domain", e.X, e.Y)
}

/*
Mesh is a structured rectangular grid of (Nx+1) x (Ny+1) nodes over
[XMin,XMax] x [YMin,YMax], with Nx x Ny quadrilateral elements.

Node numbering is row-major from the lower-left corner:

	node(i,j) = i + j*(Nx+1),  i in [0,Nx], j in [0,Ny]

Element numbering is row-major the same way, and EToV lists the four corner
node indices counter-clockwise from the lower-left corner. The mesh is
immutable after construction and is read freely by all worker goroutines.
*/
type Mesh struct {
	Nx, Ny         int
	XMin, XMax     float64
	YMin, YMax     float64
	Dx, Dy         float64
	X, Y           utils.Vector // Node coordinates, one entry per node
	EToV           [][4]int     // Element to node connectivity, CCW from lower-left
}

func NewMesh(nx, ny int, xmin, xmax, ymin, ymax float64) (m *Mesh, err error) {
	switch {
	case nx < 1 || ny < 1:
		err = &InvalidGeometryError{Reason: fmt.Sprintf("element resolution must be >= 1, have [%d,%d]", nx, ny)}
		return
	case xmin >= xmax:
		err = &InvalidGeometryError{Reason: fmt.Sprintf("xmin %v >= xmax %v", xmin, xmax)}
		return
	case ymin >= ymax:
		err = &InvalidGeometryError{Reason: fmt.Sprintf("ymin %v >= ymax %v", ymin, ymax)}
		return
	}
	m = &Mesh{
		Nx: nx, Ny: ny,
		XMin: xmin, XMax: xmax,
		YMin: ymin, YMax: ymax,
		Dx: (xmax - xmin) / float64(nx),
		Dy: (ymax - ymin) / float64(ny),
	}
	var (
		nNodes = m.NumNodes()
	)
	m.X = utils.NewVector(nNodes)
	m.Y = utils.NewVector(nNodes)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			n := i + j*(nx+1)
			m.X.DataP[n] = xmin + float64(i)*m.Dx
			m.Y.DataP[n] = ymin + float64(j)*m.Dy
		}
	}
	m.EToV = make([][4]int, m.NumElements())
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			k := i + j*nx
			n0 := i + j*(nx+1)
			m.EToV[k] = [4]int{n0, n0 + 1, n0 + nx + 2, n0 + nx + 1}
		}
	}
	return
}

func (m *Mesh) NumNodes() int    { return (m.Nx + 1) * (m.Ny + 1) }
func (m *Mesh) NumElements() int { return m.Nx * m.Ny }

// NodeCoord returns the coordinates of node n.
func (m *Mesh) NodeCoord(n int) (x, y float64) {
	return m.X.DataP[n], m.Y.DataP[n]
}

// NodeIndex composes the row-major node number from grid indices.
func (m *Mesh) NodeIndex(i, j int) int { return i + j*(m.Nx+1) }

// ElemNodes returns the four corner node indices of element k, CCW from the
// lower-left corner.
func (m *Mesh) ElemNodes(k int) [4]int { return m.EToV[k] }

// WallNodes lists the node indices along each wall, bottom and top in x
// order, left and right in y order. Corner nodes appear in both adjoining
// walls.
func (m *Mesh) WallNodes() (bottom, right, top, left utils.Index) {
	// Row-major numbering makes the bottom and top rows contiguous
	bottom = utils.NewRange(m.NodeIndex(0, 0), m.NodeIndex(m.Nx, 0))
	top = utils.NewRange(m.NodeIndex(0, m.Ny), m.NodeIndex(m.Nx, m.Ny))
	left = utils.NewIndex(m.Ny + 1)
	right = utils.NewIndex(m.Ny + 1)
	for j := 0; j <= m.Ny; j++ {
		left[j] = m.NodeIndex(0, j)
		right[j] = m.NodeIndex(m.Nx, j)
	}
	return
}

// ElemCenter returns the centroid of element k.
func (m *Mesh) ElemCenter(k int) (x, y float64) {
	var (
		i = k % m.Nx
		j = k / m.Nx
	)
	x = m.XMin + (float64(i)+0.5)*m.Dx
	y = m.YMin + (float64(j)+0.5)*m.Dy
	return
}

/*
Locate finds the element containing world coordinate (x,y) and the reference
coordinates (r,s) of the point within it, with r,s in [-1,1].

Points on the shared edge between two elements resolve to the lower/left
element except along the domain's max walls, where they resolve inward so a
point exactly on the boundary still locates (no zero-length local coordinate,
the reference map stays affine and well conditioned).
*/
func (m *Mesh) Locate(x, y float64) (k int, r, s float64, err error) {
	if x < m.XMin-utils.NODETOL || x > m.XMax+utils.NODETOL ||
		y < m.YMin-utils.NODETOL || y > m.YMax+utils.NODETOL {
		err = &OutOfDomainError{X: x, Y: y}
		return
	}
	var (
		i = int(math.Floor((x - m.XMin) / m.Dx))
		j = int(math.Floor((y - m.YMin) / m.Dy))
	)
	if i < 0 {
		i = 0
	}
	if j < 0 {
		j = 0
	}
	if i > m.Nx-1 {
		i = m.Nx - 1
	}
	if j > m.Ny-1 {
		j = m.Ny - 1
	}
	k = i + j*m.Nx
	x0 := m.XMin + float64(i)*m.Dx
	y0 := m.YMin + float64(j)*m.Dy
	r = 2*(x-x0)/m.Dx - 1
	s = 2*(y-y0)/m.Dy - 1
	return
}

// Contains reports whether (x,y) lies inside the domain bounds.
func (m *Mesh) Contains(x, y float64) bool {
	return x >= m.XMin && x <= m.XMax && y >= m.YMin && y <= m.YMax
}

// MinElementSize is the characteristic length used by the CFL bound.
func (m *Mesh) MinElementSize() float64 {
	return math.Min(m.Dx, m.Dy)
}
