package fieldspace

import "fmt"

// Space is one field-space record: the values and derivatives of every
// component of a layout at a single point. The record can be addressed as a
// flat array (At/Set over NComp entries) or per component.
//
// Storage of component c, starting at Layout.Offset(c):
//
//	H1:    [u_0 .. u_{n-1}, du_0/dx_0 .. du_0/dx_{d-1}, du_1/dx_0, ...]
//	L2:    [u_0 .. u_{n-1}]
//	HDiv:  [u_0 .. u_{d-1}, div u]
//	HCurl: [u_0 .. u_{d-1}, curl u]   (curl has 3 entries in 3D, 1 in 2D)
type Space[T Scalar] struct {
	layout *Layout
	data   []T
}

// NewSpace allocates a zeroed record for the layout.
func NewSpace[T Scalar](l *Layout) *Space[T] {
	return &Space[T]{layout: l, data: make([]T, l.Size())}
}

// Layout returns the record's descriptor.
func (s *Space[T]) Layout() *Layout { return s.layout }

// NComp returns the flat number of entries.
func (s *Space[T]) NComp() int { return len(s.data) }

// At returns flat entry i.
func (s *Space[T]) At(i int) T { return s.data[i] }

// Set assigns flat entry i.
func (s *Space[T]) Set(i int, v T) { s.data[i] = v }

// Data exposes the flat storage.
func (s *Space[T]) Data() []T { return s.data }

// Zero clears every entry.
func (s *Space[T]) Zero() {
	clear(s.data)
}

// CopyFrom copies the entries of o, which must share the layout.
func (s *Space[T]) CopyFrom(o *Space[T]) {
	copy(s.data, o.data)
}

// Comp returns the storage of component c.
func (s *Space[T]) Comp(c int) []T {
	return s.data[s.layout.offsets[c]:s.layout.offsets[c+1]]
}

// Value returns the value entries of component c.
func (s *Space[T]) Value(c int) []T {
	comp := s.layout.comps[c]
	return s.Comp(c)[:comp.NComp]
}

// Grad returns the row-major NComp x Dim gradient of H1 component c.
func (s *Space[T]) Grad(c int) []T {
	s.mustBe(c, H1)
	return s.Comp(c)[s.layout.comps[c].NComp:]
}

// Div returns a one-entry slice holding the divergence of HDiv component c.
func (s *Space[T]) Div(c int) []T {
	s.mustBe(c, HDiv)
	return s.Comp(c)[s.layout.dim:]
}

// Curl returns the curl entries of HCurl component c.
func (s *Space[T]) Curl(c int) []T {
	s.mustBe(c, HCurl)
	return s.Comp(c)[s.layout.dim:]
}

func (s *Space[T]) mustBe(c int, k Kind) {
	if got := s.layout.comps[c].Kind; got != k {
		panic(fmt.Sprintf("fieldspace: component %d is %v, not %v", c, got, k))
	}
}

// QptSpace holds one record per quadrature point for a single layout. All
// records share one backing array.
type QptSpace[T Scalar] struct {
	layout *Layout
	pts    []Space[T]
	data   []T
}

// NewQptSpace allocates zeroed records for npts quadrature points.
func NewQptSpace[T Scalar](npts int, l *Layout) *QptSpace[T] {
	q := &QptSpace[T]{
		layout: l,
		pts:    make([]Space[T], npts),
		data:   make([]T, npts*l.Size()),
	}
	n := l.Size()
	for j := range q.pts {
		q.pts[j] = Space[T]{layout: l, data: q.data[j*n : (j+1)*n : (j+1)*n]}
	}
	return q
}

// NumPoints returns the number of quadrature points.
func (q *QptSpace[T]) NumPoints() int { return len(q.pts) }

// Layout returns the layout shared by every point.
func (q *QptSpace[T]) Layout() *Layout { return q.layout }

// Get returns the record at quadrature point j.
func (q *QptSpace[T]) Get(j int) *Space[T] { return &q.pts[j] }

// Zero clears every record.
func (q *QptSpace[T]) Zero() { clear(q.data) }
