package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/FEAssembly/element"
)

type dofKey struct {
	basis int
	etype element.EntityType
	g     int
	comp  int
	node  int
}

// ElementMesh numbers the DOFs of a basis over a mesh. DOFs on the same
// global entity, component and node are shared between elements, nodes on
// edges and faces being matched through the entity orientation; H(div) face
// DOFs carry the face orientation sign. Sub-bases are numbered one
// after the other, each in order of first appearance over the elements.
type ElementMesh struct {
	conn  *Connectivity
	basis element.Basis
	ndof  int
	dofs  [][]int
	signs [][]float64
}

type entityKey struct {
	etype element.EntityType
	index int
	comp  int
}

// entityCounts returns the number of nodes per component on every local
// entity of sub, checking that they can be matched between elements.
func entityCounts(sub element.SubBasis) (map[entityKey]int, error) {
	counts := make(map[entityKey]int)
	for _, ent := range sub.Entities() {
		counts[entityKey{ent.Type, ent.Index, ent.Comp}]++
	}
	for k, n := range counts {
		r := int(math.Round(math.Sqrt(float64(n))))
		if (k.etype == element.Vertex && n > 1) || (k.etype == element.Face && r*r != n) {
			return nil, fmt.Errorf("%w: %s has %d nodes of component %d on %v %d",
				ErrUnsupportedEntityDofs, sub.Name(), n, k.comp, k.etype, k.index)
		}
	}
	return counts, nil
}

// NewElementMesh numbers the DOFs of basis on conn.
func NewElementMesh(conn *Connectivity, basis element.Basis) (*ElementMesh, error) {
	nelems := conn.NumElements()
	m := &ElementMesh{
		conn:  conn,
		basis: basis,
		dofs:  make([][]int, nelems),
		signs: make([][]float64, nelems),
	}
	for e := range m.dofs {
		m.dofs[e] = make([]int, basis.NDof())
		m.signs[e] = make([]float64, basis.NDof())
	}

	numbering := make(map[dofKey]int)
	for b := 0; b < basis.NBasis(); b++ {
		sub := basis.Sub(b)
		counts, err := entityCounts(sub)
		if err != nil {
			return nil, err
		}
		off := basis.DofOffset(b)
		for e := 0; e < nelems; e++ {
			for i, ent := range sub.Entities() {
				node := ent.Node
				if n := counts[entityKey{ent.Type, ent.Index, ent.Comp}]; n > 1 {
					orient := conn.EntityOrientation(e, ent.Type, ent.Index)
					node = element.OrientNode(ent.Type, orient, ent.Node, n)
				}
				key := dofKey{
					basis: b,
					etype: ent.Type,
					g:     conn.ElementEntity(e, ent.Type, ent.Index),
					comp:  ent.Comp,
					node:  node,
				}
				dof, ok := numbering[key]
				if !ok {
					dof = m.ndof
					numbering[key] = dof
					m.ndof++
				}
				m.dofs[e][off+i] = dof
				m.signs[e][off+i] = 1
				if ent.Signed && ent.Type == element.Face {
					m.signs[e][off+i] = conn.FaceSign(e, ent.Index)
				}
			}
		}
	}
	return m, nil
}

func (m *ElementMesh) Basis() element.Basis        { return m.basis }
func (m *ElementMesh) Connectivity() *Connectivity { return m.conn }
func (m *ElementMesh) NumElements() int            { return len(m.dofs) }
func (m *ElementMesh) NumDof() int                 { return m.ndof }

func (m *ElementMesh) GlobalDof(elem, b, i int) int {
	return m.dofs[elem][m.basis.DofOffset(b)+i]
}

func (m *ElementMesh) GlobalDofSign(elem, b, i int) float64 {
	return m.signs[elem][m.basis.DofOffset(b)+i]
}

// InterpolateVertexField sets the DOFs of sub-basis b from a field given at
// the mesh vertices (ncomp values per vertex), interpolating trilinearly
// inside each element at the DOF points. It is used to set geometry.
func (m *ElementMesh) InterpolateVertexField(b, ncomp int, X []float64, vec []float64) {
	sub := m.basis.Sub(b)
	var shape [8]float64
	for e := range m.dofs {
		verts := m.conn.ElementVertices(e)
		for i, ent := range sub.Entities() {
			trilinear(sub.DofPoint(i), shape[:])
			var val float64
			for v, n := range shape {
				val += n * X[ncomp*verts[v]+ent.Comp]
			}
			vec[m.GlobalDof(e, b, i)] = val
		}
	}
}

// trilinear evaluates the vertex shape functions of the reference hex.
func trilinear(pt []float64, out []float64) {
	for v, xv := range element.Hex.Vertices {
		out[v] = (1 + xv[0]*pt[0]) * (1 + xv[1]*pt[1]) * (1 + xv[2]*pt[2]) / 8
	}
}
