// Package fem assembles residuals, Jacobian-vector products and element
// Jacobians of a point-wise weak form over a mesh, and checks a weak form's
// linearization against finite differences.
package fem

import "github.com/notargets/FEAssembly/fieldspace"

// PDE is a weak form evaluated one quadrature point at a time.
//
// Weak and JacVecProduct receive the data and geometry records in reference
// form and the solution record in physical form. Weak overwrites coef with
// the physical coefficients of the test-function record, already scaled by
// wdetJ = quadrature weight * det(J).
type PDE[T fieldspace.Scalar] interface {
	Dim() int
	DataLayout() *fieldspace.Layout
	GeoLayout() *fieldspace.Layout
	SpaceLayout() *fieldspace.Layout

	Weak(wdetJ float64, data, geo, s, coef *fieldspace.Space[T])
	JacVecProduct(wdetJ float64, data, geo, s *fieldspace.Space[T]) JacVecProduct[T]
}

// JacVecProduct is the derivative of Weak with respect to the solution
// record, frozen at one state. Apply overwrites jp with J*p and is linear in
// p.
type JacVecProduct[T fieldspace.Scalar] interface {
	Apply(p, jp *fieldspace.Space[T])
}
