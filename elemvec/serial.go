package elemvec

import "github.com/notargets/FEAssembly/element"

// SerialVector reads and writes the global array in place, one element at a
// time.
type SerialVector struct {
	dm  element.DofMap
	vec SolutionVector
}

// NewSerial views vec through the DOF numbering dm.
func NewSerial(dm element.DofMap, vec SolutionVector) (*SerialVector, error) {
	if err := checkSize(dm, len(vec)); err != nil {
		return nil, err
	}
	return &SerialVector{dm: dm, vec: vec}, nil
}

func (v *SerialVector) Strategy() Strategy     { return Serial }
func (v *SerialVector) NumElements() int       { return v.dm.NumElements() }
func (v *SerialVector) NDof() int              { return v.dm.Basis().NDof() }
func (v *SerialVector) Vector() SolutionVector { return v.vec }

func (v *SerialVector) ElementDof(int) FEDof {
	return make(FEDof, v.NDof())
}

// GetElementValues gathers dof = sign * global.
func (v *SerialVector) GetElementValues(elem int, dof FEDof) {
	basis := v.dm.Basis()
	for b := 0; b < basis.NBasis(); b++ {
		off := basis.DofOffset(b)
		for i := 0; i < basis.SubspaceNDof(b); i++ {
			dof[off+i] = v.dm.GlobalDofSign(elem, b, i) * v.vec[v.dm.GlobalDof(elem, b, i)]
		}
	}
}

// AddElementValues scatters global += sign * dof.
func (v *SerialVector) AddElementValues(elem int, dof FEDof) {
	basis := v.dm.Basis()
	for b := 0; b < basis.NBasis(); b++ {
		off := basis.DofOffset(b)
		for i := 0; i < basis.SubspaceNDof(b); i++ {
			v.vec[v.dm.GlobalDof(elem, b, i)] += v.dm.GlobalDofSign(elem, b, i) * dof[off+i]
		}
	}
}

// SetElementValues scatters global = sign * dof.
func (v *SerialVector) SetElementValues(elem int, dof FEDof) {
	basis := v.dm.Basis()
	for b := 0; b < basis.NBasis(); b++ {
		off := basis.DofOffset(b)
		for i := 0; i < basis.SubspaceNDof(b); i++ {
			v.vec[v.dm.GlobalDof(elem, b, i)] = v.dm.GlobalDofSign(elem, b, i) * dof[off+i]
		}
	}
}

func (v *SerialVector) InitValues()     {}
func (v *SerialVector) InitZeroValues() {}
func (v *SerialVector) AddValues()      {}
