package rheology

// Shape is a geometric predicate used once, at swarm initialization, to decide
// which material owns a sampled particle position.
type Shape interface {
	Contains(x, y float64) bool
}

// Everywhere is the background shape: it claims any point, so the material
// carrying it should be listed first and overridden by later shapes.
type Everywhere struct{}

func (Everywhere) Contains(x, y float64) bool { return true }

// Box claims points inside an axis-aligned rectangle, boundary inclusive.
type Box struct {
	XMin, XMax, YMin, YMax float64
}

func (b Box) Contains(x, y float64) bool {
	return x >= b.XMin && x <= b.XMax && y >= b.YMin && y <= b.YMax
}

// Disc claims points inside a circle.
type Disc struct {
	CX, CY, Radius float64
}

func (d Disc) Contains(x, y float64) bool {
	dx, dy := x-d.CX, y-d.CY
	return dx*dx+dy*dy <= d.Radius*d.Radius
}

// Layer claims points in a horizontal band.
type Layer struct {
	YMin, YMax float64
}

func (l Layer) Contains(x, y float64) bool {
	return y >= l.YMin && y <= l.YMax
}

// HalfPlane claims points on one side of the line n.(p - p0) >= 0.
type HalfPlane struct {
	PX, PY float64 // A point on the dividing line
	NX, NY float64 // Normal pointing into the claimed side
}

func (h HalfPlane) Contains(x, y float64) bool {
	return h.NX*(x-h.PX)+h.NY*(y-h.PY) >= 0
}
