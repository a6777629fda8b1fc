// Package pde holds weak forms for the assembly engine. Each form is
// generic over the record scalar so that it can be evaluated in complex
// arithmetic by the consistency check.
package pde

import (
	"slices"

	"github.com/notargets/FEAssembly/fem"
	"github.com/notargets/FEAssembly/fieldspace"
)

// geometryLayout is the layout of every geometry field here: the physical
// coordinates as an H1 vector.
func geometryLayout(dim int) *fieldspace.Layout {
	return fieldspace.NewLayout(dim, fieldspace.Component{Kind: fieldspace.H1, NComp: dim})
}

// Poisson is the nonlinear Poisson problem -div((1 + u^2) grad u) = f.
type Poisson[T fieldspace.Scalar] struct {
	Source float64

	dim   int
	data  *fieldspace.Layout
	geo   *fieldspace.Layout
	space *fieldspace.Layout
}

func NewPoisson[T fieldspace.Scalar](dim int) *Poisson[T] {
	return &Poisson[T]{
		dim:   dim,
		data:  fieldspace.NewLayout(dim),
		geo:   geometryLayout(dim),
		space: fieldspace.NewLayout(dim, fieldspace.Component{Kind: fieldspace.H1, NComp: 1}),
	}
}

func (pe *Poisson[T]) Dim() int                        { return pe.dim }
func (pe *Poisson[T]) DataLayout() *fieldspace.Layout  { return pe.data }
func (pe *Poisson[T]) GeoLayout() *fieldspace.Layout   { return pe.geo }
func (pe *Poisson[T]) SpaceLayout() *fieldspace.Layout { return pe.space }

func (pe *Poisson[T]) Weak(wdetJ float64, _, _, s, coef *fieldspace.Space[T]) {
	diffusionWeak(wdetJ, 1, 1, pe.Source, s, coef)
}

func (pe *Poisson[T]) JacVecProduct(wdetJ float64, _, _, s *fieldspace.Space[T]) fem.JacVecProduct[T] {
	return newDiffusionJVP(wdetJ, 1, 1, s)
}

// HeatConduction is steady conduction with a temperature dependent
// conductivity k(t) = kappa*(1 + Beta*t^2), where kappa is an L2 data field.
type HeatConduction[T fieldspace.Scalar] struct {
	Beta   float64
	Source float64

	dim   int
	data  *fieldspace.Layout
	geo   *fieldspace.Layout
	space *fieldspace.Layout
}

func NewHeatConduction[T fieldspace.Scalar](dim int) *HeatConduction[T] {
	return &HeatConduction[T]{
		Beta:  1,
		dim:   dim,
		data:  fieldspace.NewLayout(dim, fieldspace.Component{Kind: fieldspace.L2, NComp: 1}),
		geo:   geometryLayout(dim),
		space: fieldspace.NewLayout(dim, fieldspace.Component{Kind: fieldspace.H1, NComp: 1}),
	}
}

func (hc *HeatConduction[T]) Dim() int                        { return hc.dim }
func (hc *HeatConduction[T]) DataLayout() *fieldspace.Layout  { return hc.data }
func (hc *HeatConduction[T]) GeoLayout() *fieldspace.Layout   { return hc.geo }
func (hc *HeatConduction[T]) SpaceLayout() *fieldspace.Layout { return hc.space }

func (hc *HeatConduction[T]) Weak(wdetJ float64, data, _, s, coef *fieldspace.Space[T]) {
	kappa := data.Value(0)[0]
	diffusionWeak(wdetJ, kappa, kappa*fieldspace.FromFloat[T](hc.Beta), hc.Source, s, coef)
}

func (hc *HeatConduction[T]) JacVecProduct(wdetJ float64, data, _, s *fieldspace.Space[T]) fem.JacVecProduct[T] {
	kappa := data.Value(0)[0]
	return newDiffusionJVP(wdetJ, kappa, kappa*fieldspace.FromFloat[T](hc.Beta), s)
}

// diffusionWeak writes the coefficients of
// (a + b*u^2) grad u . grad v - f v.
func diffusionWeak[T fieldspace.Scalar](wdetJ float64, a, b T, f float64, s, coef *fieldspace.Space[T]) {
	w := fieldspace.FromFloat[T](wdetJ)
	u := s.Value(0)[0]
	k := a + b*u*u
	coef.Value(0)[0] = -w * fieldspace.FromFloat[T](f)
	g, cg := s.Grad(0), coef.Grad(0)
	for i := range g {
		cg[i] = w * k * g[i]
	}
}

type diffusionJVP[T fieldspace.Scalar] struct {
	w, b, u, k T
	g          []T
}

func newDiffusionJVP[T fieldspace.Scalar](wdetJ float64, a, b T, s *fieldspace.Space[T]) *diffusionJVP[T] {
	u := s.Value(0)[0]
	return &diffusionJVP[T]{
		w: fieldspace.FromFloat[T](wdetJ),
		b: b,
		u: u,
		k: a + b*u*u,
		g: slices.Clone(s.Grad(0)),
	}
}

func (d *diffusionJVP[T]) Apply(p, jp *fieldspace.Space[T]) {
	pu := p.Value(0)[0]
	dk := 2 * d.b * d.u * pu
	jp.Value(0)[0] = 0
	pg, jg := p.Grad(0), jp.Grad(0)
	for i := range pg {
		jg[i] = d.w * (d.k*pg[i] + dk*d.g[i])
	}
}
