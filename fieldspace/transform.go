package fieldspace

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// JacobianTransform is the geometric map at one point: J = dx/dxi, its
// inverse and determinant. J[i][k] = dx_i/dxi_k.
type JacobianTransform struct {
	Dim  int
	DetJ float64
	J    *mat.Dense
	Jinv *mat.Dense
}

// NewJacobianTransform builds the transform from the row-major gradient of a
// geometry field (dim x dim). A singular J is not reported: J^-1 is filled
// with NaN and the values propagate through whatever uses them.
func NewJacobianTransform(dim int, grad []float64) *JacobianTransform {
	jt := &JacobianTransform{
		Dim:  dim,
		J:    mat.NewDense(dim, dim, nil),
		Jinv: mat.NewDense(dim, dim, nil),
	}
	jt.Update(grad)
	return jt
}

// Update recomputes the transform in place for a new geometry gradient.
func (jt *JacobianTransform) Update(grad []float64) {
	d := jt.Dim
	copy(jt.J.RawMatrix().Data, grad[:d*d])
	jt.DetJ = mat.Det(jt.J)
	if err := jt.Jinv.Inverse(jt.J); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			raw := jt.Jinv.RawMatrix().Data
			for i := range raw {
				raw[i] = math.NaN()
			}
		}
	}
}

// Transform maps the reference record s to the physical record out using
// the kind of each component.
func (s *Space[T]) Transform(jt *JacobianTransform, out *Space[T]) {
	d := jt.Dim
	J := jt.J.RawMatrix().Data
	Jinv := jt.Jinv.RawMatrix().Data
	inv := 1.0 / jt.DetJ
	for c, comp := range s.layout.comps {
		in, o := s.Comp(c), out.Comp(c)
		switch comp.Kind {
		case L2:
			copy(o, in)
		case H1:
			n := comp.NComp
			copy(o[:n], in[:n])
			g, og := in[n:], o[n:]
			for i := 0; i < n; i++ {
				for k := 0; k < d; k++ {
					var sum T
					for m := 0; m < d; m++ {
						sum += g[i*d+m] * FromFloat[T](Jinv[m*d+k])
					}
					og[i*d+k] = sum
				}
			}
		case HDiv:
			for i := 0; i < d; i++ {
				var sum T
				for k := 0; k < d; k++ {
					sum += FromFloat[T](J[i*d+k]) * in[k]
				}
				o[i] = FromFloat[T](inv) * sum
			}
			o[d] = FromFloat[T](inv) * in[d]
		case HCurl:
			for i := 0; i < d; i++ {
				var sum T
				for k := 0; k < d; k++ {
					sum += FromFloat[T](Jinv[k*d+i]) * in[k]
				}
				o[i] = sum
			}
			transformCurl(d, J, inv, in[d:], o[d:])
		}
	}
}

// RTransform applies the transpose of Transform: it pulls physical weak-form
// coefficients back to the reference element.
func (s *Space[T]) RTransform(jt *JacobianTransform, out *Space[T]) {
	d := jt.Dim
	J := jt.J.RawMatrix().Data
	Jinv := jt.Jinv.RawMatrix().Data
	inv := 1.0 / jt.DetJ
	for c, comp := range s.layout.comps {
		in, o := s.Comp(c), out.Comp(c)
		switch comp.Kind {
		case L2:
			copy(o, in)
		case H1:
			n := comp.NComp
			copy(o[:n], in[:n])
			g, og := in[n:], o[n:]
			for i := 0; i < n; i++ {
				for m := 0; m < d; m++ {
					var sum T
					for k := 0; k < d; k++ {
						sum += g[i*d+k] * FromFloat[T](Jinv[m*d+k])
					}
					og[i*d+m] = sum
				}
			}
		case HDiv:
			for k := 0; k < d; k++ {
				var sum T
				for i := 0; i < d; i++ {
					sum += FromFloat[T](J[i*d+k]) * in[i]
				}
				o[k] = FromFloat[T](inv) * sum
			}
			o[d] = FromFloat[T](inv) * in[d]
		case HCurl:
			for k := 0; k < d; k++ {
				var sum T
				for i := 0; i < d; i++ {
					sum += FromFloat[T](Jinv[k*d+i]) * in[i]
				}
				o[k] = sum
			}
			rtransformCurl(d, J, inv, in[d:], o[d:])
		}
	}
}

func transformCurl[T Scalar](d int, J []float64, inv float64, in, o []T) {
	if d != 3 {
		o[0] = FromFloat[T](inv) * in[0]
		return
	}
	for i := 0; i < 3; i++ {
		var sum T
		for k := 0; k < 3; k++ {
			sum += FromFloat[T](J[i*3+k]) * in[k]
		}
		o[i] = FromFloat[T](inv) * sum
	}
}

func rtransformCurl[T Scalar](d int, J []float64, inv float64, in, o []T) {
	if d != 3 {
		o[0] = FromFloat[T](inv) * in[0]
		return
	}
	for k := 0; k < 3; k++ {
		var sum T
		for i := 0; i < 3; i++ {
			sum += FromFloat[T](J[i*3+k]) * in[i]
		}
		o[k] = FromFloat[T](inv) * sum
	}
}
