package element

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/notargets/FEAssembly/fieldspace"
	"gonum.org/v1/gonum/mat"
)

// FEBasis composes sub-bases into an element basis. Tabulated basis values
// are cached per quadrature rule, so an FEBasis is safe for concurrent use.
type FEBasis struct {
	layout  *fieldspace.Layout
	subs    []SubBasis
	offsets []int
	ndof    int
	tables  sync.Map // Quadrature -> []*mat.Dense
}

// NewFEBasis builds a basis in dim spatial dimensions. With no sub-bases the
// basis has zero DOFs and fills an empty layout.
func NewFEBasis(dim int, subs ...SubBasis) *FEBasis {
	comps := make([]fieldspace.Component, len(subs))
	offsets := make([]int, len(subs)+1)
	for b, s := range subs {
		comps[b] = s.Component()
		offsets[b+1] = offsets[b] + s.NDof()
	}
	return &FEBasis{
		layout:  fieldspace.NewLayout(dim, comps...),
		subs:    subs,
		offsets: offsets,
		ndof:    offsets[len(subs)],
	}
}

func (fb *FEBasis) Layout() *fieldspace.Layout { return fb.layout }
func (fb *FEBasis) NDof() int                  { return fb.ndof }
func (fb *FEBasis) NBasis() int                { return len(fb.subs) }
func (fb *FEBasis) SubspaceNDof(b int) int     { return fb.subs[b].NDof() }
func (fb *FEBasis) DofOffset(b int) int        { return fb.offsets[b] }
func (fb *FEBasis) Sub(b int) SubBasis         { return fb.subs[b] }

func (fb *FEBasis) String() string {
	s := fmt.Sprintf("FEBasis{ndof=%d", fb.ndof)
	for _, sub := range fb.subs {
		s += ", " + sub.Name()
	}
	return s + "}"
}

// table returns the Size x NDof matrices B_n, one per quadrature point.
// Tables are cached per rule; rules whose dynamic type cannot be a map key
// are tabulated on every call.
func (fb *FEBasis) table(q Quadrature) []*mat.Dense {
	if !reflect.TypeOf(q).Comparable() {
		return fb.tabulate(q)
	}
	if t, ok := fb.tables.Load(q); ok {
		return t.([]*mat.Dense)
	}
	actual, _ := fb.tables.LoadOrStore(q, fb.tabulate(q))
	return actual.([]*mat.Dense)
}

func (fb *FEBasis) tabulate(q Quadrature) []*mat.Dense {
	size := fb.layout.Size()
	t := make([]*mat.Dense, q.NumPoints())
	col := make([]float64, size)
	for n := range t {
		B := mat.NewDense(size, fb.ndof, nil)
		pt := q.Point(n)
		for b, sub := range fb.subs {
			off := fb.layout.Offset(b)
			csize := fb.layout.ComponentSize(b)
			for i := 0; i < sub.NDof(); i++ {
				sub.Eval(pt, i, col[:csize])
				for r := 0; r < csize; r++ {
					B.Set(off+r, fb.offsets[b]+i, col[r])
				}
			}
		}
		t[n] = B
	}
	return t
}

func (fb *FEBasis) Interp(q Quadrature, dof []float64, out *fieldspace.QptSpace[float64]) {
	if fb.ndof == 0 {
		return
	}
	d := mat.NewVecDense(fb.ndof, dof[:fb.ndof])
	for n, B := range fb.table(q) {
		rec := out.Get(n).Data()
		mat.NewVecDense(len(rec), rec).MulVec(B, d)
	}
}

func (fb *FEBasis) Add(q Quadrature, in *fieldspace.QptSpace[float64], dof []float64) {
	if fb.ndof == 0 {
		return
	}
	d := mat.NewVecDense(fb.ndof, dof[:fb.ndof])
	var r mat.VecDense
	for n, B := range fb.table(q) {
		rec := in.Get(n).Data()
		r.MulVec(B.T(), mat.NewVecDense(len(rec), rec))
		d.AddVec(d, &r)
	}
}

func (fb *FEBasis) AddOuter(q Quadrature, pt int, jac, elemMat *mat.Dense) {
	if fb.ndof == 0 {
		return
	}
	B := fb.table(q)[pt]
	var jb, btjb mat.Dense
	jb.Mul(jac, B)
	btjb.Mul(B.T(), &jb)
	elemMat.Add(elemMat, &btjb)
}

// DofPoint returns the reference coordinates of flattened local DOF i.
func (fb *FEBasis) DofPoint(i int) []float64 {
	for b := range fb.subs {
		if i < fb.offsets[b+1] {
			return fb.subs[b].DofPoint(i - fb.offsets[b])
		}
	}
	panic(fmt.Sprintf("element: DOF %d out of range [0,%d)", i, fb.ndof))
}

// EntityDofs returns the local DOFs of sub-basis b on the given entity in
// sub-basis order.
func (fb *FEBasis) EntityDofs(b int, etype EntityType, index int) []int {
	var dofs []int
	for i, e := range fb.subs[b].Entities() {
		if e.Type == etype && e.Index == index {
			dofs = append(dofs, i)
		}
	}
	return dofs
}

// SetEntityDof writes vals into the local DOFs of sub-basis b on the given
// entity. vals holds one block per component, each in the node order of the
// entity seen with orientation orient (see OrientNode).
func (fb *FEBasis) SetEntityDof(b int, etype EntityType, index, orient int, vals, dof []float64) {
	ents := fb.subs[b].Entities()
	local := fb.EntityDofs(b, etype, index)
	count := make(map[int]int)
	for _, i := range local {
		count[ents[i].Comp]++
	}
	for _, i := range local {
		e := ents[i]
		n := count[e.Comp]
		dof[fb.offsets[b]+i] = vals[e.Comp*n+OrientNode(etype, orient, e.Node, n)]
	}
}
