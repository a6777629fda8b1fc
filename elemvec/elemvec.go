// Package elemvec maps global DOF arrays to element-local DOF buffers.
//
// Every local DOF i of sub-basis b on element e corresponds to the global
// entry GlobalDof(e, b, i) with orientation sign GlobalDofSign(e, b, i).
// Gathering reads sign*global; scattering adds (or writes) sign*local, so a
// gather followed by a scatter of the same buffer reproduces the global
// values.
package elemvec

import (
	"errors"
	"fmt"

	"github.com/notargets/FEAssembly/element"
)

// ErrSizeMismatch reports a global vector whose length differs from the DOF
// count of the mesh it is viewed through.
var ErrSizeMismatch = errors.New("vector size does not match DOF count")

// Strategy selects how element values move between the global array and
// element buffers.
type Strategy uint8

const (
	// Serial gathers and scatters one element at a time, directly on the
	// global array.
	Serial Strategy = iota
	// Parallel gathers every element into a bulk array up front and
	// scatters all of them back with atomic adds.
	Parallel
)

func (s Strategy) String() string {
	switch s {
	case Serial:
		return "serial"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy maps a strategy name to its value.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "serial":
		return Serial, nil
	case "parallel":
		return Parallel, nil
	}
	return 0, fmt.Errorf("unknown element vector strategy %q", name)
}

// SolutionVector is a caller-owned global DOF array.
type SolutionVector []float64

func NewSolutionVector(n int) SolutionVector { return make(SolutionVector, n) }

// Zero clears the vector.
func (v SolutionVector) Zero() { clear(v) }

// FEDof is the local DOF buffer of one element, indexed by
// Basis.DofOffset(b)+i.
type FEDof []float64

// ElementVector is an element-centric view of a global DOF array.
//
// Serial views implement Get/Add/SetElementValues and ignore the bulk
// operations; Parallel views do the reverse. Callers drive both sets of
// operations and the strategy decides which are effective.
type ElementVector interface {
	Strategy() Strategy
	NumElements() int
	NDof() int // local DOFs per element

	// ElementDof returns the buffer for element elem: a fresh zeroed buffer
	// for Serial views, the element's row of the bulk array for Parallel.
	ElementDof(elem int) FEDof

	GetElementValues(elem int, dof FEDof)
	AddElementValues(elem int, dof FEDof)
	SetElementValues(elem int, dof FEDof)

	InitValues()
	InitZeroValues()
	AddValues()
}

func checkSize(dm element.DofMap, n int) error {
	if n != dm.NumDof() {
		return fmt.Errorf("%w: vector has %d entries, mesh has %d DOFs", ErrSizeMismatch, n, dm.NumDof())
	}
	return nil
}

// Empty is the view of a field without DOFs.
type Empty struct{}

func (Empty) Strategy() Strategy          { return Serial }
func (Empty) NumElements() int            { return 0 }
func (Empty) NDof() int                   { return 0 }
func (Empty) ElementDof(int) FEDof        { return nil }
func (Empty) GetElementValues(int, FEDof) {}
func (Empty) AddElementValues(int, FEDof) {}
func (Empty) SetElementValues(int, FEDof) {}
func (Empty) InitValues()                 {}
func (Empty) InitZeroValues()             {}
func (Empty) AddValues()                  {}
