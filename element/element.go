package element

import (
	"errors"
	"fmt"

	"github.com/notargets/FEAssembly/fieldspace"
	"gonum.org/v1/gonum/mat"
)

// ErrLayoutMismatch reports a basis whose field layout differs from the
// layout a weak form expects.
var ErrLayoutMismatch = errors.New("basis layout does not match field layout")

// EntityType is the topological dimension of a mesh entity that owns DOFs.
type EntityType uint8

const (
	Vertex EntityType = iota
	Edge
	Face
	Volume
)

func (e EntityType) String() string {
	switch e {
	case Vertex:
		return "vertex"
	case Edge:
		return "edge"
	case Face:
		return "face"
	case Volume:
		return "volume"
	default:
		return fmt.Sprintf("EntityType(%d)", uint8(e))
	}
}

// EntityDof locates one local DOF of a sub-basis on the reference element.
type EntityDof struct {
	Type   EntityType // entity that owns the DOF
	Index  int        // local entity number in the reference topology
	Comp   int        // value component of the field the DOF belongs to
	Node   int        // slot within the entity for that component
	Signed bool       // value flips with the entity's orientation (normal fluxes)
}

// Quadrature is a reference-element integration rule. Bases cache their
// tabulated values per rule, keyed by the rule value itself, so pointer
// implementations are tabulated once.
type Quadrature interface {
	NumPoints() int
	Weight(n int) float64
	Point(n int) []float64 // reference coordinates of point n
}

// SubBasis is the basis of one field component of an element.
type SubBasis interface {
	Name() string
	NDof() int
	Component() fieldspace.Component
	Entities() []EntityDof
	DofPoint(i int) []float64

	// Eval writes the reference field-space entries of this component (value
	// then derivative part, as stored in a fieldspace.Space) produced by a
	// unit coefficient on local DOF i at reference point pt.
	Eval(pt []float64, i int, out []float64)
}

// Basis is the finite-element basis of an element: an ordered set of
// sub-bases, one per component of the field layout it fills. Local DOFs are
// flattened sub-basis by sub-basis, DofOffset(b)+i.
//
// Interp and Add are exact transposes of each other. Buffers of the wrong
// size are a programming error and panic.
type Basis interface {
	Layout() *fieldspace.Layout
	NDof() int
	NBasis() int
	SubspaceNDof(b int) int
	DofOffset(b int) int
	Sub(b int) SubBasis

	// Interp evaluates the local DOF buffer at every quadrature point of q.
	Interp(q Quadrature, dof []float64, out *fieldspace.QptSpace[float64])
	// Add accumulates the transpose of Interp into dof.
	Add(q Quadrature, in *fieldspace.QptSpace[float64], dof []float64)
	// AddOuter accumulates B^T jac B into elemMat, where column a of B is
	// the reference record of unit DOF a at quadrature point pt.
	AddOuter(q Quadrature, pt int, jac, elemMat *mat.Dense)

	DofPoint(i int) []float64
	EntityDofs(b int, etype EntityType, index int) []int
	SetEntityDof(b int, etype EntityType, index, orient int, vals, dof []float64)
}

// DofMap is the per-element DOF numbering of a mesh for one basis.
type DofMap interface {
	Basis() Basis
	NumElements() int
	NumDof() int
	GlobalDof(elem, b, i int) int
	GlobalDofSign(elem, b, i int) float64
}

// Projection relates a high-order basis to a low-order one on the
// sub-elements of a reference element. Low-order DOF i of sub-element sub
// takes the value of high-order DOF high times sign.
type Projection interface {
	NumSubElements() int
	HighNDof() int
	LowNDof() int
	Map(sub, i int) (high int, sign float64)
}

// CheckLayout verifies that basis fills exactly the given layout.
func CheckLayout(basis Basis, l *fieldspace.Layout) error {
	if !basis.Layout().Equal(l) {
		return fmt.Errorf("%w: basis fills %v, want %v", ErrLayoutMismatch, basis.Layout(), l)
	}
	return nil
}
