package hex

import (
	"fmt"
	"math"
	"testing"

	"github.com/notargets/FEAssembly/element"
	"github.com/notargets/FEAssembly/element/library/gonudg"
	"github.com/notargets/FEAssembly/fieldspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Quadrature
// ============================================================================

func integrate(q element.Quadrature, f func(x, y, z float64) float64) float64 {
	var sum float64
	for n := 0; n < q.NumPoints(); n++ {
		p := q.Point(n)
		sum += q.Weight(n) * f(p[0], p[1], p[2])
	}
	return sum
}

func TestGaussQuadratureExactness(t *testing.T) {
	for n := 1; n <= 4; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			q := NewGaussQuadrature(n)
			require.Equal(t, n*n*n, q.NumPoints())
			assert.InDelta(t, 8.0, integrate(q, func(x, y, z float64) float64 { return 1 }), 1e-13)

			p := 2*n - 2 // even and <= 2n-1
			got := integrate(q, func(x, y, z float64) float64 {
				return math.Pow(x, float64(p)) * math.Pow(y, float64(p)) * z
			})
			want := 0.0 // odd in z
			assert.InDelta(t, want, got, 1e-13)

			got = integrate(q, func(x, y, z float64) float64 {
				return math.Pow(x, float64(p)) * math.Pow(z, float64(p))
			})
			want = 2 * (2 / float64(p+1)) * (2 / float64(p+1))
			assert.InDelta(t, want, got, 1e-13)
		})
	}
}

func TestGaussLobattoQuadrature(t *testing.T) {
	q := NewGaussLobattoQuadrature(3)
	require.Equal(t, 27, q.NumPoints())
	assert.InDelta(t, 1.0/27, q.Weight(0), 1e-14) // (1/3)^3 at a corner
	assert.InDelta(t, 64.0/27, q.Weight(13), 1e-14)
	assert.Equal(t, []float64{0, 0, 0}, q.Point(13))
	assert.InDelta(t, 8.0/9, integrate(q, func(x, y, z float64) float64 { return x * x * y * y * z * z * 3 }), 1e-13)
	assert.Panics(t, func() { NewGaussLobattoQuadrature(1) })
}

// ============================================================================
// Lagrange bases
// ============================================================================

func TestLagrangeH1Entities(t *testing.T) {
	count := func(b *Lagrange) map[element.EntityType]int {
		m := map[element.EntityType]int{}
		for _, e := range b.Entities() {
			m[e.Type]++
		}
		return m
	}
	b1 := NewLagrangeH1(1, 2)
	assert.Equal(t, 16, b1.NDof())
	assert.Equal(t, map[element.EntityType]int{element.Vertex: 16}, count(b1))

	b2 := NewLagrangeH1(2, 1)
	assert.Equal(t, 27, b2.NDof())
	assert.Equal(t, map[element.EntityType]int{
		element.Vertex: 8, element.Edge: 12, element.Face: 6, element.Volume: 1,
	}, count(b2))

	// every node sits on the entity it was classified to
	for i, e := range b2.Entities() {
		pt := b2.DofPoint(i)
		verts := element.Hex.EntityVertices(e.Type, e.Index)
		for d := 0; d < 3; d++ {
			lo, hi := 1.0, -1.0
			for _, v := range verts {
				lo = math.Min(lo, element.Hex.Vertices[v][d])
				hi = math.Max(hi, element.Hex.Vertices[v][d])
			}
			assert.GreaterOrEqualf(t, pt[d], lo, "dof %d axis %d", i, d)
			assert.LessOrEqualf(t, pt[d], hi, "dof %d axis %d", i, d)
		}
		assert.Zero(t, e.Node)
	}

	assert.Panics(t, func() { NewLagrangeH1(0, 1) })
}

func TestLagrangeKroneckerAndPartitionOfUnity(t *testing.T) {
	for _, b := range []*Lagrange{NewLagrangeH1(1, 1), NewLagrangeH1(2, 1), NewLagrangeL2(1, 1)} {
		t.Run(b.Name(), func(t *testing.T) {
			size := 4
			if b.Component().Kind == fieldspace.L2 {
				size = 1
			}
			out := make([]float64, size)
			for i := 0; i < b.NDof(); i++ {
				for j := 0; j < b.NDof(); j++ {
					b.Eval(b.DofPoint(j), i, out)
					want := 0.0
					if i == j {
						want = 1
					}
					assert.InDelta(t, want, out[0], 1e-13)
				}
			}

			pt := []float64{0.3, -0.45, 0.8}
			sum := make([]float64, size)
			for i := 0; i < b.NDof(); i++ {
				b.Eval(pt, i, out)
				for r := range sum {
					sum[r] += out[r]
				}
			}
			assert.InDelta(t, 1.0, sum[0], 1e-13)
			for r := 1; r < size; r++ {
				assert.InDelta(t, 0.0, sum[r], 1e-12)
			}
		})
	}
}

func TestLagrangeVectorLayout(t *testing.T) {
	b := NewLagrangeH1(1, 3)
	out := make([]float64, 12)
	// DOF 8 is component 1 at node 0, the (-1,-1,-1) vertex
	b.Eval([]float64{-1, -1, -1}, 8, out)
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 1.0, out[1])
	assert.Equal(t, 0.0, out[2])
	// dphi/dxi at the corner is -1/2, stored in the gradient row of component 1
	assert.InDelta(t, -0.5, out[3+3], 1e-15)
	assert.Equal(t, 0.0, out[3+0])
	assert.Equal(t, 1, b.Entities()[8].Comp)
}

func TestLagrangeL2DegreeZero(t *testing.T) {
	b := NewLagrangeL2(0, 2)
	assert.Equal(t, 2, b.NDof())
	out := make([]float64, 2)
	b.Eval([]float64{0.7, -0.2, 0.1}, 1, out)
	assert.Equal(t, []float64{0, 1}, out)
	for _, e := range b.Entities() {
		assert.Equal(t, element.Volume, e.Type)
	}
}

// ============================================================================
// H(div)
// ============================================================================

func TestHdivFaceFluxes(t *testing.T) {
	h := NewHdiv()
	out := make([]float64, 4)
	for i := 0; i < h.NDof(); i++ {
		for f := 0; f < 6; f++ {
			axis, side := f/2, f%2
			normal := float64(2*side - 1)
			// flux through face f at a point off the face centre
			pt := []float64{0.2, -0.3, 0.6}
			pt[axis] = normal
			h.Eval(pt, i, out)
			want := 0.0
			if i == f {
				want = 1
			}
			assert.InDeltaf(t, want, out[axis]*normal, 1e-15, "dof %d face %d", i, f)
		}
	}
}

func TestHdivDivergenceTheorem(t *testing.T) {
	h := NewHdiv()
	q := NewGaussQuadrature(2)
	out := make([]float64, 4)
	for i := 0; i < h.NDof(); i++ {
		var div float64
		for n := 0; n < q.NumPoints(); n++ {
			h.Eval(q.Point(n), i, out)
			div += q.Weight(n) * out[3]
		}
		// total outward flux = 1 * face area (4)
		assert.InDelta(t, 4.0, div, 1e-14)
		assert.Equal(t, element.EntityDof{Type: element.Face, Index: i, Signed: true}, h.Entities()[i])
	}
	assert.Equal(t, []float64{0, 0, 1}, h.DofPoint(5))
	assert.Equal(t, []float64{-1, 0, 0}, h.DofPoint(0))
}

func TestQHdivCounts(t *testing.T) {
	for k := 1; k <= 3; k++ {
		h := NewQHdiv(k)
		assert.Equal(t, 3*(k+1)*k*k, h.NDof())
		assert.Equal(t, k, h.Degree())
		perFace := make(map[int]int)
		var interior int
		for _, e := range h.Entities() {
			switch e.Type {
			case element.Face:
				assert.True(t, e.Signed)
				perFace[e.Index]++
			case element.Volume:
				interior++
			default:
				t.Errorf("unexpected entity %v", e)
			}
		}
		for f := 0; f < 6; f++ {
			assert.Equal(t, k*k, perFace[f])
		}
		assert.Equal(t, 3*(k-1)*k*k, interior)
	}
}

// TestQHdivKronecker checks each DOF against the functionals it stands for:
// the outward flux at a face node, u_a at an interior node.
func TestQHdivKronecker(t *testing.T) {
	h := NewQHdiv(2)
	out := make([]float64, 4)
	for m := 0; m < h.NDof(); m++ {
		a, i, _, _ := h.node(m)
		s := 1.0
		if i == 0 {
			s = -1
		}
		for n := 0; n < h.NDof(); n++ {
			h.Eval(h.DofPoint(m), n, out)
			want := 0.0
			if n == m {
				want = 1
			}
			assert.InDeltaf(t, want, s*out[a], 1e-13, "functional %d on dof %d", m, n)
		}
	}
}

func TestQHdivDivergenceTheorem(t *testing.T) {
	for k := 1; k <= 3; k++ {
		h := NewQHdiv(k)
		_, w := gonudg.JacobiGQ(0, 0, k-1)
		q := NewGaussQuadrature(k + 1)
		out := make([]float64, 4)
		for idx, e := range h.Entities() {
			var div float64
			for n := 0; n < q.NumPoints(); n++ {
				h.Eval(q.Point(n), idx, out)
				div += q.Weight(n) * out[3]
			}
			// the flux of a face DOF integrates to the weight of its node
			want := 0.0
			if e.Type == element.Face {
				want = w[e.Node%k] * w[e.Node/k]
			}
			assert.InDeltaf(t, want, div, 1e-13, "degree %d dof %d", k, idx)
		}
	}
}

// ============================================================================
// Projection
// ============================================================================

func TestProjectionDegreeOne(t *testing.T) {
	basis := element.NewFEBasis(3, NewLagrangeH1(1, 3), NewHdiv(), NewLagrangeL2(0, 2))
	p, err := NewProjection(1, basis, basis)
	require.NoError(t, err)
	require.Equal(t, 1, p.NumSubElements())
	assert.Equal(t, basis.NDof(), p.HighNDof())
	assert.Equal(t, basis.NDof(), p.LowNDof())
	for i := 0; i < basis.NDof(); i++ {
		hi, sign := p.Map(0, i)
		assert.Equal(t, i, hi)
		assert.Equal(t, 1.0, sign)
	}
}

func TestProjectionDegreeTwo(t *testing.T) {
	high := element.NewFEBasis(3, NewLagrangeH1(2, 1), NewQHdiv(2), NewLagrangeL2(1, 1))
	low := element.NewFEBasis(3, NewLagrangeH1(1, 1), NewHdiv(), NewLagrangeL2(0, 1))
	p, err := NewProjection(2, high, low)
	require.NoError(t, err)
	require.Equal(t, 8, p.NumSubElements())

	// sub-hex 7 is the (1,1,1) cell, its far corner is the far high-order node
	hi, _ := p.Map(7, 7)
	assert.Equal(t, 26, hi)
	hi, _ = p.Map(7, 0)
	assert.Equal(t, 13, hi)

	// the low-order points of every sub-hex sit at high-order DOF points,
	// mapped from the sub-hex to the parent
	for c := 0; c < p.NumSubElements(); c++ {
		cell := [3]float64{float64(c % 2), float64((c / 2) % 2), float64(c / 4)}
		for i := 0; i < low.SubspaceNDof(0); i++ {
			hi, sign := p.Map(c, i)
			assert.Equal(t, 1.0, sign)
			lp, hp := low.DofPoint(i), high.DofPoint(hi)
			for d := 0; d < 3; d++ {
				assert.InDelta(t, (lp[d]+1)/2+cell[d]-1, hp[d], 1e-14)
			}
		}
		// flux DOFs of the sub-hex lie on the lines of the parent's normal nodes
		for i := 0; i < low.SubspaceNDof(1); i++ {
			hi, sign := p.Map(c, low.DofOffset(1)+i)
			a, side := i/2, i%2
			hp := high.DofPoint(hi)
			assert.InDelta(t, float64(side)+cell[a]-1, hp[a], 1e-14)
			if side == 0 && cell[a] == 1 {
				assert.Equal(t, -1.0, sign)
			} else {
				assert.Equal(t, 1.0, sign)
			}
		}
		hi, _ := p.Map(c, low.DofOffset(2))
		assert.Equal(t, high.DofOffset(2)+c, hi)
	}
}

func TestProjectionErrors(t *testing.T) {
	p1 := element.NewFEBasis(3, NewLagrangeH1(1, 1))
	testCases := []struct {
		name      string
		degree    int
		high, low element.Basis
	}{
		{"degree", 0, p1, p1},
		{"sub-basis count", 1, p1, element.NewFEBasis(3, NewLagrangeH1(1, 1), NewHdiv())},
		{"H1 degree", 2, element.NewFEBasis(3, NewLagrangeH1(3, 1)), p1},
		{"H1 to L2", 1, p1, element.NewFEBasis(3, NewLagrangeL2(0, 1))},
		{"components", 1, element.NewFEBasis(3, NewLagrangeH1(1, 3)), p1},
		{"L2 degree", 2, element.NewFEBasis(3, NewLagrangeL2(2, 1)), element.NewFEBasis(3, NewLagrangeL2(0, 1))},
		{"Hdiv to H1", 2, element.NewFEBasis(3, NewQHdiv(2)), p1},
		{"Hdiv low degree", 2, element.NewFEBasis(3, NewQHdiv(2)), element.NewFEBasis(3, NewQHdiv(2))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProjection(tc.degree, tc.high, tc.low)
			assert.ErrorIs(t, err, ErrProjection)
		})
	}
}
