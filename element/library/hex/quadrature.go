package hex

import (
	"fmt"

	"github.com/notargets/FEAssembly/element/library/gonudg"
)

// TensorQuadrature is a tensor-product rule on [-1,1]^3. Point
// n = i + n1*(j + n1*k) sits at (x_i, x_j, x_k).
type TensorQuadrature struct {
	name   string
	points [][]float64
	weight []float64
}

// NewGaussQuadrature builds the n^3-point Gauss-Legendre rule, exact for
// polynomials of degree 2n-1 in each variable.
func NewGaussQuadrature(n int) *TensorQuadrature {
	if n < 1 {
		panic(fmt.Sprintf("hex: Gauss quadrature needs n >= 1, have %d", n))
	}
	x, w := gonudg.JacobiGQ(0, 0, n-1)
	return newTensorQuadrature(fmt.Sprintf("Gauss%d", n), x, w)
}

// NewGaussLobattoQuadrature builds the n^3-point Gauss-Lobatto-Legendre
// rule, exact for degree 2n-3 in each variable.
func NewGaussLobattoQuadrature(n int) *TensorQuadrature {
	if n < 2 {
		panic(fmt.Sprintf("hex: Gauss-Lobatto quadrature needs n >= 2, have %d", n))
	}
	N := n - 1
	x := gonudg.JacobiGL(0, 0, N)
	w := make([]float64, n)
	for i, xi := range x {
		p := legendre(N, xi)
		w[i] = 2 / (float64(N*(N+1)) * p * p)
	}
	return newTensorQuadrature(fmt.Sprintf("GaussLobatto%d", n), x, w)
}

func newTensorQuadrature(name string, x, w []float64) *TensorQuadrature {
	n1 := len(x)
	q := &TensorQuadrature{
		name:   name,
		points: make([][]float64, 0, n1*n1*n1),
		weight: make([]float64, 0, n1*n1*n1),
	}
	for k := 0; k < n1; k++ {
		for j := 0; j < n1; j++ {
			for i := 0; i < n1; i++ {
				q.points = append(q.points, []float64{x[i], x[j], x[k]})
				q.weight = append(q.weight, w[i]*w[j]*w[k])
			}
		}
	}
	return q
}

func (q *TensorQuadrature) String() string       { return q.name }
func (q *TensorQuadrature) NumPoints() int       { return len(q.points) }
func (q *TensorQuadrature) Weight(n int) float64 { return q.weight[n] }
func (q *TensorQuadrature) Point(n int) []float64 {
	return q.points[n]
}

// legendre evaluates P_N(x) by the three-term recurrence.
func legendre(N int, x float64) float64 {
	p0, p1 := 1.0, x
	if N == 0 {
		return p0
	}
	for k := 1; k < N; k++ {
		fk := float64(k)
		p0, p1 = p1, ((2*fk+1)*x*p1-fk*p0)/(fk+1)
	}
	return p1
}
