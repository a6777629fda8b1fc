package gonudg

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Gauss quadrature
// ============================================================================

func TestJacobiGQLegendreExactness(t *testing.T) {
	for N := 0; N <= 6; N++ {
		t.Run(fmt.Sprintf("N=%d", N), func(t *testing.T) {
			x, w := JacobiGQ(0, 0, N)
			require.Len(t, x, N+1)
			require.Len(t, w, N+1)
			for i := 1; i < len(x); i++ {
				assert.Less(t, x[i-1], x[i], "points must ascend")
			}
			// N+1 Gauss points integrate x^p exactly for p <= 2N+1
			for p := 0; p <= 2*N+1; p++ {
				var sum float64
				for i := range x {
					sum += w[i] * math.Pow(x[i], float64(p))
				}
				exact := 0.0
				if p%2 == 0 {
					exact = 2.0 / float64(p+1)
				}
				assert.InDeltaf(t, exact, sum, 1e-13, "p=%d", p)
			}
		})
	}
}

func TestJacobiGQKnownPoints(t *testing.T) {
	x, w := JacobiGQ(0, 0, 1)
	r := 1 / math.Sqrt(3)
	assert.InDeltaSlice(t, []float64{-r, r}, x, 1e-15)
	assert.InDeltaSlice(t, []float64{1, 1}, w, 1e-14)
}

func TestJacobiGL(t *testing.T) {
	assert.Equal(t, []float64{0}, JacobiGL(0, 0, 0))
	assert.Equal(t, []float64{-1, 1}, JacobiGL(0, 0, 1))
	assert.InDeltaSlice(t, []float64{-1, 0, 1}, JacobiGL(0, 0, 2), 1e-15)

	r := 1 / math.Sqrt(5)
	assert.InDeltaSlice(t, []float64{-1, -r, r, 1}, JacobiGL(0, 0, 3), 1e-14)
}

// ============================================================================
// Lagrange basis
// ============================================================================

func TestLagrange1DPartitionOfUnity(t *testing.T) {
	for N := 1; N <= 4; N++ {
		t.Run(fmt.Sprintf("N=%d", N), func(t *testing.T) {
			l := NewLagrange1D(JacobiGL(0, 0, N))
			v := make([]float64, l.N())
			d := make([]float64, l.N())
			for _, x := range []float64{-1, -0.7, -0.1, 0.33, 0.9, 1} {
				l.Eval(x, v)
				l.Deriv(x, d)
				var sv, sd float64
				for j := range v {
					sv += v[j]
					sd += d[j]
				}
				assert.InDelta(t, 1.0, sv, 1e-13)
				assert.InDelta(t, 0.0, sd, 1e-12)
			}
		})
	}
}

func TestLagrange1DReproducesPolynomials(t *testing.T) {
	N := 3
	l := NewLagrange1D(JacobiGL(0, 0, N))
	f := func(x float64) float64 { return 2*x*x*x - x + 0.5 }
	df := func(x float64) float64 { return 6*x*x - 1 }

	v := make([]float64, l.N())
	d := make([]float64, l.N())
	for _, x := range []float64{-0.8, 0.0, 0.25, 0.95} {
		l.Eval(x, v)
		l.Deriv(x, d)
		var fx, dfx float64
		for j, xj := range l.Nodes {
			fx += f(xj) * v[j]
			dfx += f(xj) * d[j]
		}
		assert.InDelta(t, f(x), fx, 1e-13)
		assert.InDelta(t, df(x), dfx, 1e-12)
	}
}

func TestLagrange1DKronecker(t *testing.T) {
	l := NewLagrange1D([]float64{-1, 0, 1})
	v := make([]float64, 3)
	for i, x := range l.Nodes {
		l.Eval(x, v)
		for j := range v {
			if i == j {
				assert.Equal(t, 1.0, v[j])
			} else {
				assert.Equal(t, 0.0, v[j])
			}
		}
	}
	assert.Panics(t, func() { NewLagrange1D([]float64{0, 0}) })
}
