package fieldspace

// Scalar is the numeric type of a field-space record. Assembly runs in
// float64; complex128 is used for complex-step differentiation of weak forms.
type Scalar interface {
	float64 | complex128
}

// FromFloat converts a real value to T.
func FromFloat[T Scalar](x float64) T {
	var v T
	switch p := any(&v).(type) {
	case *float64:
		*p = x
	case *complex128:
		*p = complex(x, 0)
	}
	return v
}

// Real returns the real part of v.
func Real[T Scalar](v T) float64 {
	switch x := any(v).(type) {
	case float64:
		return x
	case complex128:
		return real(x)
	}
	return 0
}

// Imag returns the imaginary part of v, zero for float64.
func Imag[T Scalar](v T) float64 {
	if x, ok := any(v).(complex128); ok {
		return imag(x)
	}
	return 0
}

// IsComplex reports whether T is complex128.
func IsComplex[T Scalar]() bool {
	var v T
	_, ok := any(v).(complex128)
	return ok
}
