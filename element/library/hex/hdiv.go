package hex

import (
	"fmt"

	"github.com/notargets/FEAssembly/element"
	"github.com/notargets/FEAssembly/element/library/gonudg"
	"github.com/notargets/FEAssembly/fieldspace"
)

// QHdiv is the Raviart-Thomas basis of degree k >= 1 on the reference hex,
// k = 1 being the lowest order with one flux DOF per face. Component a of
// the field is nodal of degree k along xi_a on Gauss-Lobatto nodes and of
// degree k-1 along the other two axes on Gauss nodes. Nodes on xi_a = -1
// and xi_a = +1 are face DOFs holding the outward normal flux, whose sign
// follows the orientation of the face in the mesh; the others are interior
// values of u_a.
//
// Local DOF a*n + i + (k+1)*(j + k*l) is component a at node i along xi_a
// and nodes j, l along the other two axes in increasing axis order.
type QHdiv struct {
	degree   int
	xn, xt   []float64
	normal   *gonudg.Lagrange1D
	tangent  *gonudg.Lagrange1D
	entities []element.EntityDof
}

// NewQHdiv builds the basis of the given degree.
func NewQHdiv(degree int) *QHdiv {
	if degree < 1 {
		panic(fmt.Sprintf("hex: H(div) degree must be >= 1, have %d", degree))
	}
	xt, _ := gonudg.JacobiGQ(0, 0, degree-1)
	h := &QHdiv{
		degree:  degree,
		xn:      gonudg.JacobiGL(0, 0, degree),
		xt:      xt,
		tangent: gonudg.NewLagrange1D(xt),
	}
	h.normal = gonudg.NewLagrange1D(h.xn)

	k := degree
	nper := (k + 1) * k * k
	h.entities = make([]element.EntityDof, 0, 3*nper)
	for a := 0; a < 3; a++ {
		for n := 0; n < nper; n++ {
			i, j, l := n%(k+1), (n/(k+1))%k, n/((k+1)*k)
			switch i {
			case 0, k:
				h.entities = append(h.entities, element.EntityDof{
					Type:   element.Face,
					Index:  2*a + i/k,
					Node:   j + k*l,
					Signed: true,
				})
			default:
				h.entities = append(h.entities, element.EntityDof{
					Type: element.Volume,
					Comp: a,
					Node: (i - 1) + (k-1)*(j+k*l),
				})
			}
		}
	}
	return h
}

// NewHdiv returns the lowest-order basis.
func NewHdiv() *QHdiv { return NewQHdiv(1) }

func (h *QHdiv) Name() string { return fmt.Sprintf("QHdiv(p=%d)", h.degree) }
func (h *QHdiv) Degree() int  { return h.degree }
func (h *QHdiv) NDof() int    { return len(h.entities) }

func (h *QHdiv) Component() fieldspace.Component {
	return fieldspace.Component{Kind: fieldspace.HDiv, NComp: 3}
}

func (h *QHdiv) Entities() []element.EntityDof { return h.entities }

// node splits local DOF idx into its component, the node along that axis
// and the nodes along the other two axes.
func (h *QHdiv) node(idx int) (a, i, j, l int) {
	k := h.degree
	nper := (k + 1) * k * k
	a, n := idx/nper, idx%nper
	return a, n % (k + 1), (n / (k + 1)) % k, n / ((k + 1) * k)
}

// otherAxes returns the two axes other than a in increasing order.
func otherAxes(a int) (int, int) {
	switch a {
	case 0:
		return 1, 2
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

func (h *QHdiv) DofPoint(idx int) []float64 {
	a, i, j, l := h.node(idx)
	o1, o2 := otherAxes(a)
	pt := make([]float64, 3)
	pt[a], pt[o1], pt[o2] = h.xn[i], h.xt[j], h.xt[l]
	return pt
}

// Eval writes [u_0, u_1, u_2, div u]. A DOF on the xi_a = -1 face holds the
// outward flux -u_a, so its function is the negated nodal one.
func (h *QHdiv) Eval(pt []float64, idx int, out []float64) {
	a, i, j, l := h.node(idx)
	o1, o2 := otherAxes(a)
	k := h.degree

	vn := make([]float64, k+1)
	dn := make([]float64, k+1)
	vt := make([]float64, k)
	h.normal.Eval(pt[a], vn)
	h.normal.Deriv(pt[a], dn)
	h.tangent.Eval(pt[o1], vt)
	t := vt[j]
	h.tangent.Eval(pt[o2], vt)
	t *= vt[l]

	sign := 1.0
	if i == 0 {
		sign = -1
	}
	clear(out)
	out[a] = sign * vn[i] * t
	out[3] = sign * dn[i] * t
}
