package hex

import (
	"errors"
	"fmt"

	"github.com/notargets/FEAssembly/element"
	"github.com/notargets/FEAssembly/fieldspace"
)

// ErrProjection reports a pair of bases that Projection cannot relate.
var ErrProjection = errors.New("no low-order projection between bases")

type projected struct {
	dof  int
	sign float64
}

// Projection splits a degree-k hex into k^3 sub-hexes along the lines of
// its Gauss-Lobatto nodes and relates the lowest-order DOFs of every
// sub-hex to the high-order DOFs: Lagrange H1 of degree k to degree 1,
// Lagrange L2 of degree k-1 to degree 0 and QHdiv of degree k to degree 1.
// Sub-element c = cx + k*(cy + k*cz).
type Projection struct {
	degree    int
	high, low int
	maps      [][]projected
}

// NewProjection builds the projection of high onto low for degree k. The
// bases must pair up sub-basis by sub-basis.
func NewProjection(degree int, high, low element.Basis) (*Projection, error) {
	if degree < 1 {
		return nil, fmt.Errorf("%w: degree %d", ErrProjection, degree)
	}
	if high.NBasis() != low.NBasis() {
		return nil, fmt.Errorf("%w: %d sub-bases against %d", ErrProjection, high.NBasis(), low.NBasis())
	}
	k := degree
	p := &Projection{
		degree: k,
		high:   high.NDof(),
		low:    low.NDof(),
		maps:   make([][]projected, k*k*k),
	}
	for c := range p.maps {
		p.maps[c] = make([]projected, low.NDof())
	}

	for b := 0; b < high.NBasis(); b++ {
		fn, err := subProjection(k, high.Sub(b), low.Sub(b))
		if err != nil {
			return nil, fmt.Errorf("sub-basis %d: %w", b, err)
		}
		for c := range p.maps {
			cell := [3]int{c % k, (c / k) % k, c / (k * k)}
			for i := 0; i < low.SubspaceNDof(b); i++ {
				hi, sign := fn(cell, i)
				p.maps[c][low.DofOffset(b)+i] = projected{dof: high.DofOffset(b) + hi, sign: sign}
			}
		}
	}
	return p, nil
}

// subProjection returns the map from (sub-hex, low DOF) to (high DOF, sign)
// of one pair of sub-bases.
func subProjection(k int, high, low element.SubBasis) (func(cell [3]int, i int) (int, float64), error) {
	mismatch := fmt.Errorf("%w: %s to %s at degree %d", ErrProjection, high.Name(), low.Name(), k)
	switch h := high.(type) {
	case *Lagrange:
		l, ok := low.(*Lagrange)
		if !ok || l.kind != h.kind || l.ncomp != h.ncomp {
			return nil, mismatch
		}
		if h.kind == fieldspace.H1 {
			if h.degree != k || l.degree != 1 {
				return nil, mismatch
			}
			nn := (k + 1) * (k + 1) * (k + 1)
			return func(cell [3]int, i int) (int, float64) {
				comp, n := i/8, i%8
				node := (cell[0] + n%2) + (k+1)*((cell[1]+(n/2)%2)+(k+1)*(cell[2]+n/4))
				return comp*nn + node, 1
			}, nil
		}
		if h.degree != k-1 || l.degree != 0 {
			return nil, mismatch
		}
		return func(cell [3]int, i int) (int, float64) {
			return i*k*k*k + cell[0] + k*(cell[1]+k*cell[2]), 1
		}, nil

	case *QHdiv:
		l, ok := low.(*QHdiv)
		if !ok || h.degree != k || l.degree != 1 {
			return nil, mismatch
		}
		nper := (k + 1) * k * k
		return func(cell [3]int, i int) (int, float64) {
			a, side := i/2, i%2
			o1, o2 := otherAxes(a)
			ia := cell[a] + side
			sign := 1.0
			// an interior node holds u_a, the outward flux of the low side is -u_a
			if side == 0 && ia > 0 {
				sign = -1
			}
			return a*nper + ia + (k+1)*(cell[o1]+k*cell[o2]), sign
		}, nil
	}
	return nil, mismatch
}

func (p *Projection) NumSubElements() int { return len(p.maps) }
func (p *Projection) HighNDof() int       { return p.high }
func (p *Projection) LowNDof() int        { return p.low }

func (p *Projection) Map(sub, i int) (int, float64) {
	m := p.maps[sub][i]
	return m.dof, m.sign
}
