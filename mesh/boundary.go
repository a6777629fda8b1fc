package mesh

import (
	"slices"

	"github.com/notargets/FEAssembly/element"
)

// BoundaryCondition is the set of global DOFs of selected sub-bases that lie
// on entities whose vertices are all in a given vertex set.
type BoundaryCondition struct {
	dofs []int
}

// NewBoundaryCondition collects the DOFs of every sub-basis b with
// basisSelect[b] set.
func NewBoundaryCondition(conn *Connectivity, emesh *ElementMesh, basisSelect []bool, verts []int) *BoundaryCondition {
	onBoundary := make([]bool, conn.NumVertices)
	for _, v := range verts {
		onBoundary[v] = true
	}
	inSet := func(etype element.EntityType, g int) bool {
		for _, v := range conn.EntityVertices(etype, g) {
			if !onBoundary[v] {
				return false
			}
		}
		return true
	}

	basis := emesh.Basis()
	seen := make(map[int]struct{})
	for b := 0; b < basis.NBasis() && b < len(basisSelect); b++ {
		if !basisSelect[b] {
			continue
		}
		for e := 0; e < conn.NumElements(); e++ {
			for i, ent := range basis.Sub(b).Entities() {
				if ent.Type == element.Volume {
					continue
				}
				if inSet(ent.Type, conn.ElementEntity(e, ent.Type, ent.Index)) {
					seen[emesh.GlobalDof(e, b, i)] = struct{}{}
				}
			}
		}
	}
	bc := &BoundaryCondition{dofs: make([]int, 0, len(seen))}
	for d := range seen {
		bc.dofs = append(bc.dofs, d)
	}
	slices.Sort(bc.dofs)
	return bc
}

// DOFs returns the sorted global DOF indices.
func (bc *BoundaryCondition) DOFs() []int { return bc.dofs }
