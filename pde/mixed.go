package pde

import (
	"slices"

	"github.com/notargets/FEAssembly/fem"
	"github.com/notargets/FEAssembly/fieldspace"
)

// MixedPoisson is the first-order form of the Poisson problem with flux
// sigma in H(div) and potential u in L2:
//
//	sigma . tau + u div tau = 0
//	(div sigma + f) v       = 0
type MixedPoisson[T fieldspace.Scalar] struct {
	Source float64

	dim   int
	data  *fieldspace.Layout
	geo   *fieldspace.Layout
	space *fieldspace.Layout
}

func NewMixedPoisson[T fieldspace.Scalar](dim int) *MixedPoisson[T] {
	return &MixedPoisson[T]{
		dim:   dim,
		data:  fieldspace.NewLayout(dim),
		geo:   geometryLayout(dim),
		space: mixedLayout(dim),
	}
}

func mixedLayout(dim int) *fieldspace.Layout {
	return fieldspace.NewLayout(dim,
		fieldspace.Component{Kind: fieldspace.HDiv},
		fieldspace.Component{Kind: fieldspace.L2, NComp: 1},
	)
}

func (mp *MixedPoisson[T]) Dim() int                        { return mp.dim }
func (mp *MixedPoisson[T]) DataLayout() *fieldspace.Layout  { return mp.data }
func (mp *MixedPoisson[T]) GeoLayout() *fieldspace.Layout   { return mp.geo }
func (mp *MixedPoisson[T]) SpaceLayout() *fieldspace.Layout { return mp.space }

func (mp *MixedPoisson[T]) Weak(wdetJ float64, _, _, s, coef *fieldspace.Space[T]) {
	w := fieldspace.FromFloat[T](wdetJ)
	sigma, csigma := s.Value(0), coef.Value(0)
	for i := range sigma {
		csigma[i] = w * sigma[i]
	}
	u := s.Value(1)[0]
	coef.Div(0)[0] = w * u
	coef.Value(1)[0] = w * (s.Div(0)[0] + fieldspace.FromFloat[T](mp.Source))
}

func (mp *MixedPoisson[T]) JacVecProduct(wdetJ float64, _, _, _ *fieldspace.Space[T]) fem.JacVecProduct[T] {
	return mixedPoissonJVP[T]{w: fieldspace.FromFloat[T](wdetJ)}
}

type mixedPoissonJVP[T fieldspace.Scalar] struct {
	w T
}

func (m mixedPoissonJVP[T]) Apply(p, jp *fieldspace.Space[T]) {
	sigma, jsigma := p.Value(0), jp.Value(0)
	for i := range sigma {
		jsigma[i] = m.w * sigma[i]
	}
	jp.Div(0)[0] = m.w * p.Value(1)[0]
	jp.Value(1)[0] = m.w * p.Div(0)[0]
}

// MixedHeatConduction is the flux form of nonlinear conduction with heat
// flux q in H(div), temperature t in L2 and conductivity
// k(t) = Kappa*(1 + Beta*t^2):
//
//	q . tau / k(t) + t div tau = 0
//	(div q + f) v              = 0
type MixedHeatConduction[T fieldspace.Scalar] struct {
	Kappa  float64
	Beta   float64
	Source float64

	dim   int
	data  *fieldspace.Layout
	geo   *fieldspace.Layout
	space *fieldspace.Layout
}

func NewMixedHeatConduction[T fieldspace.Scalar](dim int) *MixedHeatConduction[T] {
	return &MixedHeatConduction[T]{
		Kappa: 1,
		Beta:  1,
		dim:   dim,
		data:  fieldspace.NewLayout(dim),
		geo:   geometryLayout(dim),
		space: mixedLayout(dim),
	}
}

func (mh *MixedHeatConduction[T]) Dim() int                        { return mh.dim }
func (mh *MixedHeatConduction[T]) DataLayout() *fieldspace.Layout  { return mh.data }
func (mh *MixedHeatConduction[T]) GeoLayout() *fieldspace.Layout   { return mh.geo }
func (mh *MixedHeatConduction[T]) SpaceLayout() *fieldspace.Layout { return mh.space }

func (mh *MixedHeatConduction[T]) conductivity(t T) (k, dk T) {
	kappa := fieldspace.FromFloat[T](mh.Kappa)
	beta := fieldspace.FromFloat[T](mh.Beta)
	return kappa * (1 + beta*t*t), 2 * kappa * beta * t
}

func (mh *MixedHeatConduction[T]) Weak(wdetJ float64, _, _, s, coef *fieldspace.Space[T]) {
	w := fieldspace.FromFloat[T](wdetJ)
	t := s.Value(1)[0]
	k, _ := mh.conductivity(t)
	q, cq := s.Value(0), coef.Value(0)
	for i := range q {
		cq[i] = w * q[i] / k
	}
	coef.Div(0)[0] = w * t
	coef.Value(1)[0] = w * (s.Div(0)[0] + fieldspace.FromFloat[T](mh.Source))
}

func (mh *MixedHeatConduction[T]) JacVecProduct(wdetJ float64, _, _, s *fieldspace.Space[T]) fem.JacVecProduct[T] {
	k, dk := mh.conductivity(s.Value(1)[0])
	return &mixedHeatJVP[T]{
		w:  fieldspace.FromFloat[T](wdetJ),
		k:  k,
		dk: dk,
		q:  slices.Clone(s.Value(0)),
	}
}

type mixedHeatJVP[T fieldspace.Scalar] struct {
	w, k, dk T
	q        []T
}

func (m *mixedHeatJVP[T]) Apply(p, jp *fieldspace.Space[T]) {
	pt := p.Value(1)[0]
	pq, jq := p.Value(0), jp.Value(0)
	for i := range pq {
		jq[i] = m.w * (pq[i]/m.k - m.q[i]*m.dk*pt/(m.k*m.k))
	}
	jp.Div(0)[0] = m.w * pt
	jp.Value(1)[0] = m.w * p.Div(0)[0]
}
