package pde

import (
	"github.com/notargets/FEAssembly/fem"
	"github.com/notargets/FEAssembly/fieldspace"
)

// NonlinearElasticity is a St. Venant-Kirchhoff solid. The displacement is
// an H1 vector and the Lame parameters (mu, lambda) are an H1 2-vector data
// field. The weak form is P(F) : grad v with F = I + grad u,
// E = (F^T F - I)/2, S = 2 mu E + lambda tr(E) I and P = F S.
type NonlinearElasticity[T fieldspace.Scalar] struct {
	dim   int
	data  *fieldspace.Layout
	geo   *fieldspace.Layout
	space *fieldspace.Layout
}

func NewNonlinearElasticity[T fieldspace.Scalar](dim int) *NonlinearElasticity[T] {
	return &NonlinearElasticity[T]{
		dim:   dim,
		data:  fieldspace.NewLayout(dim, fieldspace.Component{Kind: fieldspace.H1, NComp: 2}),
		geo:   geometryLayout(dim),
		space: fieldspace.NewLayout(dim, fieldspace.Component{Kind: fieldspace.H1, NComp: dim}),
	}
}

func (ne *NonlinearElasticity[T]) Dim() int                        { return ne.dim }
func (ne *NonlinearElasticity[T]) DataLayout() *fieldspace.Layout  { return ne.data }
func (ne *NonlinearElasticity[T]) GeoLayout() *fieldspace.Layout   { return ne.geo }
func (ne *NonlinearElasticity[T]) SpaceLayout() *fieldspace.Layout { return ne.space }

func (ne *NonlinearElasticity[T]) Weak(wdetJ float64, data, _, s, coef *fieldspace.Space[T]) {
	st := newSVKState(ne.dim, data, s)
	w := fieldspace.FromFloat[T](wdetJ)
	clear(coef.Value(0))
	P := coef.Grad(0)
	matMul(ne.dim, st.F, st.S, P)
	for i := range P {
		P[i] *= w
	}
}

func (ne *NonlinearElasticity[T]) JacVecProduct(wdetJ float64, data, _, s *fieldspace.Space[T]) fem.JacVecProduct[T] {
	st := newSVKState(ne.dim, data, s)
	d := ne.dim
	return &svkJVP[T]{
		svkState: st,
		w:        fieldspace.FromFloat[T](wdetJ),
		dE:       make([]T, d*d),
		dS:       make([]T, d*d),
		tmp:      make([]T, d*d),
	}
}

// svkState is the deformation at one point, matrices row-major d x d.
type svkState[T fieldspace.Scalar] struct {
	dim        int
	mu, lambda T
	F, S       []T
}

func newSVKState[T fieldspace.Scalar](d int, data, s *fieldspace.Space[T]) svkState[T] {
	lame := data.Value(0)
	st := svkState[T]{
		dim:    d,
		mu:     lame[0],
		lambda: lame[1],
		F:      make([]T, d*d),
		S:      make([]T, d*d),
	}
	G := s.Grad(0)
	for i := range st.F {
		st.F[i] = G[i]
	}
	for i := 0; i < d; i++ {
		st.F[i*d+i] += 1
	}
	// S first holds E.
	for a := 0; a < d; a++ {
		for b := 0; b < d; b++ {
			var sum T
			for i := 0; i < d; i++ {
				sum += st.F[i*d+a] * st.F[i*d+b]
			}
			if a == b {
				sum -= 1
			}
			st.S[a*d+b] = sum / 2
		}
	}
	st.stress(st.S, st.S)
	return st
}

// stress maps a strain to the SVK stress 2 mu E + lambda tr(E) I. E and S
// may alias.
func (st *svkState[T]) stress(E, S []T) {
	d := st.dim
	var tr T
	for i := 0; i < d; i++ {
		tr += E[i*d+i]
	}
	for i := range E {
		S[i] = 2 * st.mu * E[i]
	}
	for i := 0; i < d; i++ {
		S[i*d+i] += st.lambda * tr
	}
}

type svkJVP[T fieldspace.Scalar] struct {
	svkState[T]
	w           T
	dE, dS, tmp []T
}

func (j *svkJVP[T]) Apply(p, jp *fieldspace.Space[T]) {
	d := j.dim
	dF := p.Grad(0)
	for a := 0; a < d; a++ {
		for b := 0; b < d; b++ {
			var sum T
			for i := 0; i < d; i++ {
				sum += dF[i*d+a]*j.F[i*d+b] + j.F[i*d+a]*dF[i*d+b]
			}
			j.dE[a*d+b] = sum / 2
		}
	}
	j.stress(j.dE, j.dS)

	clear(jp.Value(0))
	dP := jp.Grad(0)
	matMul(d, dF, j.S, dP)
	matMul(d, j.F, j.dS, j.tmp)
	for i := range dP {
		dP[i] = j.w * (dP[i] + j.tmp[i])
	}
}

// matMul writes C = A B for row-major d x d matrices.
func matMul[T fieldspace.Scalar](d int, A, B, C []T) {
	for i := 0; i < d; i++ {
		for k := 0; k < d; k++ {
			var sum T
			for m := 0; m < d; m++ {
				sum += A[i*d+m] * B[m*d+k]
			}
			C[i*d+k] = sum
		}
	}
}
