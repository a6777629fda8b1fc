package pde

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/notargets/FEAssembly/fem"
	"github.com/notargets/FEAssembly/fieldspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsistency(t *testing.T) {
	forms := []struct {
		name string
		pde  fem.PDE[complex128]
	}{
		{"poisson", NewPoisson[complex128](3)},
		{"heat conduction", NewHeatConduction[complex128](3)},
		{"nonlinear elasticity", NewNonlinearElasticity[complex128](3)},
		{"mixed poisson", NewMixedPoisson[complex128](3)},
		{"mixed heat conduction", NewMixedHeatConduction[complex128](3)},
		{"nonlinear elasticity 2d", NewNonlinearElasticity[complex128](2)},
	}
	for _, tt := range forms {
		for seed := uint64(1); seed <= 5; seed++ {
			t.Run(fmt.Sprintf("%s/seed=%d", tt.name, seed), func(t *testing.T) {
				res := fem.CheckPDE(tt.pde, rand.New(rand.NewPCG(seed, 42)), fem.CheckOptions{})
				for i := range res.RelErr {
					assert.Less(t, res.RelErr[i], 1e-6, "entry %d: fd %g, jvp %g", i, res.FD[i], res.JVP[i])
				}
			})
		}
	}
}

func TestLayouts(t *testing.T) {
	p := NewPoisson[float64](3)
	assert.Equal(t, 0, p.DataLayout().Size())
	assert.Equal(t, 4, p.SpaceLayout().Size())
	assert.Equal(t, 12, p.GeoLayout().Size())

	assert.Equal(t, 1, NewHeatConduction[float64](3).DataLayout().Size())
	assert.Equal(t, 8, NewNonlinearElasticity[float64](3).DataLayout().Size())
	assert.Equal(t, 12, NewNonlinearElasticity[float64](3).SpaceLayout().Size())
	assert.Equal(t, 5, NewMixedPoisson[float64](3).SpaceLayout().Size())
	assert.True(t, NewMixedPoisson[float64](3).SpaceLayout().Equal(NewMixedHeatConduction[float64](3).SpaceLayout()))
}

func TestPoissonWeak(t *testing.T) {
	p := NewPoisson[float64](3)
	p.Source = 3
	s := fieldspace.NewSpace[float64](p.SpaceLayout())
	s.Value(0)[0] = 2
	copy(s.Grad(0), []float64{1, -1, 0.5})
	coef := fieldspace.NewSpace[float64](p.SpaceLayout())

	p.Weak(0.5, nil, nil, s, coef)
	// k = 1 + u^2 = 5
	assert.Equal(t, -1.5, coef.Value(0)[0])
	assert.Equal(t, []float64{2.5, -2.5, 1.25}, coef.Grad(0))

	// dk/du = 2u = 4
	dir := fieldspace.NewSpace[float64](p.SpaceLayout())
	dir.Value(0)[0] = 1
	jp := fieldspace.NewSpace[float64](p.SpaceLayout())
	p.JacVecProduct(0.5, nil, nil, s).Apply(dir, jp)
	assert.Equal(t, 0.0, jp.Value(0)[0])
	assert.Equal(t, []float64{2, -2, 1}, jp.Grad(0))
}

func TestJacVecProductDoesNotAliasState(t *testing.T) {
	p := NewMixedHeatConduction[float64](3)
	s := fieldspace.NewSpace[float64](p.SpaceLayout())
	for i := 0; i < s.NComp(); i++ {
		s.Set(i, float64(i+1))
	}
	dir := fieldspace.NewSpace[float64](p.SpaceLayout())
	dir.Set(s.Layout().Offset(1), 1)

	jvp := p.JacVecProduct(1, nil, nil, s)
	before := fieldspace.NewSpace[float64](p.SpaceLayout())
	jvp.Apply(dir, before)
	s.Zero()
	after := fieldspace.NewSpace[float64](p.SpaceLayout())
	jvp.Apply(dir, after)
	assert.Equal(t, before.Data(), after.Data())
}

func TestElasticityUndeformedIsStressFree(t *testing.T) {
	p := NewNonlinearElasticity[float64](3)
	data := fieldspace.NewSpace[float64](p.DataLayout())
	copy(data.Value(0), []float64{1.5, 0.7})
	s := fieldspace.NewSpace[float64](p.SpaceLayout())
	coef := fieldspace.NewSpace[float64](p.SpaceLayout())
	p.Weak(1, data, nil, s, coef)
	for _, v := range coef.Data() {
		assert.Zero(t, v)
	}

	// At F = I the tangent is the linear elastic one: a unit shear du_0/dx_1
	// gives P_01 = P_10 = mu.
	dir := fieldspace.NewSpace[float64](p.SpaceLayout())
	dir.Grad(0)[1] = 1
	jp := fieldspace.NewSpace[float64](p.SpaceLayout())
	p.JacVecProduct(2, data, nil, s).Apply(dir, jp)
	g := jp.Grad(0)
	require.Len(t, g, 9)
	assert.InDelta(t, 3.0, g[1], 1e-15)
	assert.InDelta(t, 3.0, g[3], 1e-15)
	assert.InDelta(t, 0.0, g[0], 1e-15)
}

func TestElasticityUniaxialStretch(t *testing.T) {
	// u = (e x, 0, 0): F = diag(1+e, 1, 1), E_00 = e + e^2/2.
	p := NewNonlinearElasticity[float64](3)
	mu, lambda, e := 2.0, 1.0, 0.1
	data := fieldspace.NewSpace[float64](p.DataLayout())
	copy(data.Value(0), []float64{mu, lambda})
	s := fieldspace.NewSpace[float64](p.SpaceLayout())
	s.Grad(0)[0] = e
	coef := fieldspace.NewSpace[float64](p.SpaceLayout())
	p.Weak(1, data, nil, s, coef)

	E := e + e*e/2
	S00 := 2*mu*E + lambda*E
	S11 := lambda * E
	P := coef.Grad(0)
	assert.InDelta(t, (1+e)*S00, P[0], 1e-14)
	assert.InDelta(t, S11, P[4], 1e-14)
	assert.InDelta(t, S11, P[8], 1e-14)
	assert.InDelta(t, 0.0, P[1], 1e-14)
}

func TestMixedHeatConductionWeak(t *testing.T) {
	p := NewMixedHeatConduction[float64](3)
	p.Kappa, p.Beta, p.Source = 2, 0.5, 1
	s := fieldspace.NewSpace[float64](p.SpaceLayout())
	copy(s.Value(0), []float64{4, 0, -2})
	s.Div(0)[0] = 3
	s.Value(1)[0] = 2
	coef := fieldspace.NewSpace[float64](p.SpaceLayout())
	p.Weak(1, nil, nil, s, coef)

	// k = 2*(1 + 0.5*4) = 6
	assert.InDeltaSlice(t, []float64{4.0 / 6, 0, -2.0 / 6}, coef.Value(0), 1e-15)
	assert.Equal(t, 2.0, coef.Div(0)[0])
	assert.Equal(t, 4.0, coef.Value(1)[0])
}
