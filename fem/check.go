package fem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sync"

	"github.com/notargets/FEAssembly/fieldspace"
	"golang.org/x/sync/errgroup"
)

// ErrInconsistent reports a weak form whose linearization disagrees with the
// finite-difference derivative of its residual.
var ErrInconsistent = errors.New("jacobian-vector product inconsistent with weak form")

// DefaultStep is the perturbation used when CheckOptions.Step is zero.
const DefaultStep = 1e-7

// CheckOptions configures CheckPDE.
type CheckOptions struct {
	Step float64
}

// CheckResult holds, per entry of the reference coefficient record, the
// differenced derivative, the linearized one and their relative error.
type CheckResult struct {
	FD        []float64
	JVP       []float64
	RelErr    []float64
	MaxRelErr float64
}

// CheckPDE compares the Jacobian-vector product of pde with a derivative of
// its weak coefficients at a random point. With T = complex128 the
// derivative is a complex step, Im(f(x + ih*p))/h; with T = float64 it is a
// forward difference. Data, geometry, state and direction are drawn
// uniformly from [-1, 1] using rng, except for the geometry gradient which
// is I plus a perturbation of at most 0.25 per entry so that J stays
// invertible.
func CheckPDE[T fieldspace.Scalar](pde PDE[T], rng *rand.Rand, opts CheckOptions) CheckResult {
	h := opts.Step
	if h == 0 {
		h = DefaultStep
	}
	dim := pde.Dim()
	space := pde.SpaceLayout()

	data := randomRecord[T](rng, pde.DataLayout())
	geo := randomRecord[T](rng, pde.GeoLayout())
	grad := geo.Grad(0)
	J := make([]float64, dim*dim)
	for i := range J {
		J[i] = 0.25 * (2*rng.Float64() - 1)
		if i%(dim+1) == 0 {
			J[i] += 1
		}
		grad[i] = fieldspace.FromFloat[T](J[i])
	}
	jt := fieldspace.NewJacobianTransform(dim, J)

	sref := randomRecord[T](rng, space)
	pref := randomRecord[T](rng, space)

	s := fieldspace.NewSpace[T](space)
	coef := fieldspace.NewSpace[T](space)
	cref0 := fieldspace.NewSpace[T](space)
	sref.Transform(jt, s)
	pde.Weak(jt.DetJ, data, geo, s, coef)
	coef.RTransform(jt, cref0)

	// Linearize at the unperturbed state.
	p := fieldspace.NewSpace[T](space)
	jp := fieldspace.NewSpace[T](space)
	jpref := fieldspace.NewSpace[T](space)
	pref.Transform(jt, p)
	pde.JacVecProduct(jt.DetJ, data, geo, s).Apply(p, jp)
	jp.RTransform(jt, jpref)

	complexStep := fieldspace.IsComplex[T]()
	step := fieldspace.FromFloat[T](h)
	if complexStep {
		step = any(complex(0, h)).(T)
	}
	spert := fieldspace.NewSpace[T](space)
	for i := 0; i < space.Size(); i++ {
		spert.Set(i, sref.At(i)+step*pref.At(i))
	}
	cref := fieldspace.NewSpace[T](space)
	spert.Transform(jt, s)
	pde.Weak(jt.DetJ, data, geo, s, coef)
	coef.RTransform(jt, cref)

	n := space.Size()
	res := CheckResult{
		FD:     make([]float64, n),
		JVP:    make([]float64, n),
		RelErr: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		if complexStep {
			res.FD[i] = fieldspace.Imag(cref.At(i)) / h
		} else {
			res.FD[i] = fieldspace.Real(cref.At(i)-cref0.At(i)) / h
		}
		res.JVP[i] = fieldspace.Real(jpref.At(i))
		res.RelErr[i] = relativeError(res.FD[i], res.JVP[i])
		res.MaxRelErr = math.Max(res.MaxRelErr, res.RelErr[i])
	}
	return res
}

// relativeError is |a-b|/max(|a|,|b|), zero when both vanish.
func relativeError(a, b float64) float64 {
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return 0
	}
	return math.Abs(a-b) / scale
}

func randomRecord[T fieldspace.Scalar](rng *rand.Rand, l *fieldspace.Layout) *fieldspace.Space[T] {
	s := fieldspace.NewSpace[T](l)
	for i := 0; i < s.NComp(); i++ {
		s.Set(i, fieldspace.FromFloat[T](2*rng.Float64()-1))
	}
	return s
}

// CheckLinearity returns the largest relative deviation of
// Apply(a*p1 + b*p2) from a*Apply(p1) + b*Apply(p2) at a random state.
func CheckLinearity[T fieldspace.Scalar](pde PDE[T], rng *rand.Rand) float64 {
	space := pde.SpaceLayout()
	data := randomRecord[T](rng, pde.DataLayout())
	geo := randomRecord[T](rng, pde.GeoLayout())
	s := randomRecord[T](rng, space)
	p1 := randomRecord[T](rng, space)
	p2 := randomRecord[T](rng, space)
	a := fieldspace.FromFloat[T](2*rng.Float64() - 1)
	b := fieldspace.FromFloat[T](2*rng.Float64() - 1)

	jvp := pde.JacVecProduct(1, data, geo, s)
	sum := fieldspace.NewSpace[T](space)
	for i := 0; i < space.Size(); i++ {
		sum.Set(i, a*p1.At(i)+b*p2.At(i))
	}
	j1 := fieldspace.NewSpace[T](space)
	j2 := fieldspace.NewSpace[T](space)
	jsum := fieldspace.NewSpace[T](space)
	jvp.Apply(p1, j1)
	jvp.Apply(p2, j2)
	jvp.Apply(sum, jsum)

	var worst float64
	for i := 0; i < space.Size(); i++ {
		want := a*j1.At(i) + b*j2.At(i)
		diff := magnitude(jsum.At(i) - want)
		scale := math.Max(magnitude(want), magnitude(jsum.At(i)))
		if scale > 0 {
			worst = math.Max(worst, diff/scale)
		}
	}
	return worst
}

func magnitude[T fieldspace.Scalar](v T) float64 {
	switch x := any(v).(type) {
	case float64:
		return math.Abs(x)
	case complex128:
		return cmplx.Abs(x)
	}
	return 0
}

// CheckCase is one named consistency check. Run draws everything it needs
// from rng.
type CheckCase struct {
	Name string
	Run  func(rng *rand.Rand) CheckResult
}

// NewCheckCase wraps CheckPDE for a weak form.
func NewCheckCase[T fieldspace.Scalar](name string, pde PDE[T], opts CheckOptions) CheckCase {
	return CheckCase{
		Name: name,
		Run: func(rng *rand.Rand) CheckResult {
			return CheckPDE(pde, rng, opts)
		},
	}
}

// SuiteConfig controls CheckSuite.
type SuiteConfig struct {
	Seeds     int     // seeds per case, seed i uses PCG(i, i)
	Tolerance float64 // largest accepted relative error
	Workers   int     // concurrent checks, 0 for no limit
	Metrics   *Metrics
}

// SuiteResult is the worst outcome of a case over all seeds.
type SuiteResult struct {
	Name      string
	Seed      uint64
	MaxRelErr float64
}

// worse reports whether err replaces the recorded error cur. NaN is worse
// than any number and is never replaced.
func worse(err, cur float64) bool {
	if math.IsNaN(cur) {
		return false
	}
	return math.IsNaN(err) || err > cur
}

// CheckSuite runs every case for every seed concurrently and reports the
// worst error per case. It returns ErrInconsistent naming the first case
// whose error exceeds the tolerance; the results are complete either way.
func CheckSuite(ctx context.Context, cases []CheckCase, cfg SuiteConfig) ([]SuiteResult, error) {
	seeds := max(cfg.Seeds, 1)
	results := make([]SuiteResult, len(cases))
	for c := range cases {
		results[c].Name = cases[c].Name
	}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for c := range cases {
		for seed := uint64(1); seed <= uint64(seeds); seed++ {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				res := cases[c].Run(rand.New(rand.NewPCG(seed, seed)))
				mu.Lock()
				if worse(res.MaxRelErr, results[c].MaxRelErr) || results[c].Seed == 0 {
					results[c].MaxRelErr = res.MaxRelErr
					results[c].Seed = seed
				}
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("check suite: %w", err)
	}

	var failed error
	for _, r := range results {
		passed := r.MaxRelErr <= cfg.Tolerance && !math.IsNaN(r.MaxRelErr)
		cfg.Metrics.observeCheck(r.Name, r.MaxRelErr, passed)
		if !passed && failed == nil {
			failed = fmt.Errorf("%w: %s has relative error %.3e (seed %d), tolerance %.3e",
				ErrInconsistent, r.Name, r.MaxRelErr, r.Seed, cfg.Tolerance)
		}
	}
	return results, failed
}
