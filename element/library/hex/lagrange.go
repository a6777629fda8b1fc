package hex

import (
	"fmt"

	"github.com/notargets/FEAssembly/element"
	"github.com/notargets/FEAssembly/element/library/gonudg"
	"github.com/notargets/FEAssembly/fieldspace"
)

// Lagrange is a tensor-product nodal basis on the reference hex with ncomp
// value components. Local DOF c*nn + n is component c at node
// n = i + (p+1)*(j + (p+1)*k).
type Lagrange struct {
	kind     fieldspace.Kind
	degree   int
	ncomp    int
	l1       *gonudg.Lagrange1D
	nodes    [][]float64
	entities []element.EntityDof
}

// NewLagrangeH1 builds a continuous basis on Gauss-Lobatto nodes. Nodes on
// vertices, edges and faces are shared with neighbouring elements.
func NewLagrangeH1(degree, ncomp int) *Lagrange {
	if degree < 1 {
		panic(fmt.Sprintf("hex: H1 Lagrange degree must be >= 1, have %d", degree))
	}
	return newLagrange(fieldspace.H1, degree, ncomp, gonudg.JacobiGL(0, 0, degree))
}

// NewLagrangeL2 builds a discontinuous basis on Gauss nodes. Every DOF
// belongs to the element volume.
func NewLagrangeL2(degree, ncomp int) *Lagrange {
	if degree < 0 {
		panic(fmt.Sprintf("hex: L2 Lagrange degree must be >= 0, have %d", degree))
	}
	x, _ := gonudg.JacobiGQ(0, 0, degree)
	return newLagrange(fieldspace.L2, degree, ncomp, x)
}

func newLagrange(kind fieldspace.Kind, degree, ncomp int, x []float64) *Lagrange {
	if ncomp < 1 {
		panic(fmt.Sprintf("hex: Lagrange basis needs ncomp >= 1, have %d", ncomp))
	}
	p1 := degree + 1
	lg := &Lagrange{
		kind:   kind,
		degree: degree,
		ncomp:  ncomp,
		l1:     gonudg.NewLagrange1D(x),
	}
	for k := 0; k < p1; k++ {
		for j := 0; j < p1; j++ {
			for i := 0; i < p1; i++ {
				lg.nodes = append(lg.nodes, []float64{x[i], x[j], x[k]})
			}
		}
	}
	nn := len(lg.nodes)
	lg.entities = make([]element.EntityDof, 0, ncomp*nn)
	for c := 0; c < ncomp; c++ {
		for n := 0; n < nn; n++ {
			e := lg.nodeEntity(n)
			e.Comp = c
			lg.entities = append(lg.entities, e)
		}
	}
	return lg
}

// nodeEntity classifies node n and numbers it among the nodes of the same
// entity in lexicographic order of its interior indices.
func (lg *Lagrange) nodeEntity(n int) element.EntityDof {
	p1 := lg.degree + 1
	if lg.kind == fieldspace.L2 {
		return element.EntityDof{Type: element.Volume, Node: n}
	}
	idx := []int{n % p1, (n / p1) % p1, n / (p1 * p1)}
	side := make([]int, 3)
	var slot, stride int = 0, 1
	for d, i := range idx {
		switch i {
		case 0:
			side[d] = -1
		case lg.degree:
			side[d] = 1
		default:
			slot += (i - 1) * stride
			stride *= lg.degree - 1
		}
	}
	etype, index := element.Hex.Classify(side)
	return element.EntityDof{Type: etype, Index: index, Node: slot}
}

func (lg *Lagrange) Name() string {
	return fmt.Sprintf("Lagrange%v(p=%d,ncomp=%d)", lg.kind, lg.degree, lg.ncomp)
}

func (lg *Lagrange) Degree() int { return lg.degree }
func (lg *Lagrange) NDof() int   { return lg.ncomp * len(lg.nodes) }

func (lg *Lagrange) Component() fieldspace.Component {
	return fieldspace.Component{Kind: lg.kind, NComp: lg.ncomp}
}

func (lg *Lagrange) Entities() []element.EntityDof { return lg.entities }

func (lg *Lagrange) DofPoint(i int) []float64 { return lg.nodes[i%len(lg.nodes)] }

func (lg *Lagrange) Eval(pt []float64, i int, out []float64) {
	nn := len(lg.nodes)
	p1 := lg.degree + 1
	c, n := i/nn, i%nn
	idx := [3]int{n % p1, (n / p1) % p1, n / (p1 * p1)}

	var v, dv [3]float64
	tmp := make([]float64, p1)
	for d := 0; d < 3; d++ {
		lg.l1.Eval(pt[d], tmp)
		v[d] = tmp[idx[d]]
		lg.l1.Deriv(pt[d], tmp)
		dv[d] = tmp[idx[d]]
	}

	clear(out)
	out[c] = v[0] * v[1] * v[2]
	if lg.kind == fieldspace.H1 {
		g := out[lg.ncomp+3*c:]
		g[0] = dv[0] * v[1] * v[2]
		g[1] = v[0] * dv[1] * v[2]
		g[2] = v[0] * v[1] * dv[2]
	}
}
