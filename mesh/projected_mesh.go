package mesh

import (
	"errors"
	"fmt"

	"github.com/notargets/FEAssembly/element"
)

// ErrProjectionMismatch reports a projection whose DOF counts differ from
// the bases it is applied to.
var ErrProjectionMismatch = errors.New("projection does not match bases")

// ProjectedMesh numbers a low-order basis on the sub-elements of a
// high-order mesh. It has no DOFs of its own: every low-order DOF is a
// signed high-order one, so vectors of the high-order mesh serve both.
// With n sub-elements per element, element e*n + c is sub-element c of
// high-order element e.
type ProjectedMesh struct {
	basis element.Basis
	ndof  int
	dofs  [][]int
	signs [][]float64
}

// NewProjectedMesh applies proj to every element of high.
func NewProjectedMesh(high element.DofMap, low element.Basis, proj element.Projection) (*ProjectedMesh, error) {
	hb := high.Basis()
	if proj.HighNDof() != hb.NDof() || proj.LowNDof() != low.NDof() {
		return nil, fmt.Errorf("%w: projection maps %d to %d DOFs, bases have %d and %d",
			ErrProjectionMismatch, proj.HighNDof(), proj.LowNDof(), hb.NDof(), low.NDof())
	}
	owner := make([]int, hb.NDof())
	for b := 0; b < hb.NBasis(); b++ {
		for i := 0; i < hb.SubspaceNDof(b); i++ {
			owner[hb.DofOffset(b)+i] = b
		}
	}

	nsub := proj.NumSubElements()
	m := &ProjectedMesh{
		basis: low,
		ndof:  high.NumDof(),
		dofs:  make([][]int, high.NumElements()*nsub),
		signs: make([][]float64, high.NumElements()*nsub),
	}
	for e := 0; e < high.NumElements(); e++ {
		for c := 0; c < nsub; c++ {
			dofs := make([]int, low.NDof())
			signs := make([]float64, low.NDof())
			for i := range dofs {
				h, sign := proj.Map(c, i)
				b := owner[h]
				hi := h - hb.DofOffset(b)
				dofs[i] = high.GlobalDof(e, b, hi)
				signs[i] = sign * high.GlobalDofSign(e, b, hi)
			}
			m.dofs[e*nsub+c] = dofs
			m.signs[e*nsub+c] = signs
		}
	}
	return m, nil
}

func (m *ProjectedMesh) Basis() element.Basis { return m.basis }
func (m *ProjectedMesh) NumElements() int     { return len(m.dofs) }
func (m *ProjectedMesh) NumDof() int          { return m.ndof }

func (m *ProjectedMesh) GlobalDof(elem, b, i int) int {
	return m.dofs[elem][m.basis.DofOffset(b)+i]
}

func (m *ProjectedMesh) GlobalDofSign(elem, b, i int) float64 {
	return m.signs[elem][m.basis.DofOffset(b)+i]
}
