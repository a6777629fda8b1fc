package elemvec

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/notargets/FEAssembly/element"
	"gonum.org/v1/gonum/mat"
)

// ElementMatrix receives dense element matrices, one per element.
type ElementMatrix interface {
	NumElements() int
	NDof() int
	AddElementValues(elem int, m *mat.Dense)
}

// GlobalMatrix accumulates a dense block at the given global rows and
// columns.
type GlobalMatrix interface {
	AddValues(rows, cols []int, block mat.Matrix)
}

// ElementMatSerial adds element matrices into a global matrix, applying
// sign[i]*sign[j] to entry (i, j).
type ElementMatSerial struct {
	dm     element.DofMap
	global GlobalMatrix
	dofs   []int
	signs  []float64
	signed *mat.Dense
}

// NewElementMatSerial builds the element view of a global matrix whose size
// must match the DOF count of dm.
func NewElementMatSerial(dm element.DofMap, global GlobalMatrix) (*ElementMatSerial, error) {
	if d, ok := global.(interface{ Dims() (int, int) }); ok {
		if r, c := d.Dims(); r != dm.NumDof() || c != dm.NumDof() {
			return nil, fmt.Errorf("%w: matrix is %dx%d, mesh has %d DOFs", ErrSizeMismatch, r, c, dm.NumDof())
		}
	}
	n := dm.Basis().NDof()
	em := &ElementMatSerial{
		dm:     dm,
		global: global,
		dofs:   make([]int, n),
		signs:  make([]float64, n),
	}
	if n > 0 {
		em.signed = mat.NewDense(n, n, nil)
	}
	return em, nil
}

func (em *ElementMatSerial) NumElements() int { return em.dm.NumElements() }
func (em *ElementMatSerial) NDof() int        { return em.dm.Basis().NDof() }

func (em *ElementMatSerial) AddElementValues(elem int, m *mat.Dense) {
	if em.signed == nil {
		return
	}
	basis := em.dm.Basis()
	for b := 0; b < basis.NBasis(); b++ {
		off := basis.DofOffset(b)
		for i := 0; i < basis.SubspaceNDof(b); i++ {
			em.dofs[off+i] = em.dm.GlobalDof(elem, b, i)
			em.signs[off+i] = em.dm.GlobalDofSign(elem, b, i)
		}
	}
	em.signed.Apply(func(i, j int, v float64) float64 {
		return em.signs[i] * em.signs[j] * v
	}, m)
	em.global.AddValues(em.dofs, em.dofs, em.signed)
}

// DenseMatrix is a dense global matrix.
type DenseMatrix struct {
	*mat.Dense
}

func NewDenseMatrix(n int) *DenseMatrix {
	return &DenseMatrix{Dense: mat.NewDense(n, n, nil)}
}

func (d *DenseMatrix) AddValues(rows, cols []int, block mat.Matrix) {
	for i, r := range rows {
		for j, c := range cols {
			d.Set(r, c, d.At(r, c)+block.At(i, j))
		}
	}
}

// ZeroRows clears the given rows and puts diag on their diagonal.
func (d *DenseMatrix) ZeroRows(rows []int, diag float64) {
	_, n := d.Dims()
	for _, r := range rows {
		for c := 0; c < n; c++ {
			d.Set(r, c, 0)
		}
		d.Set(r, r, diag)
	}
}

// SparseMatrix is a global matrix assembled in dictionary-of-keys form and
// converted to CSR for solvers.
type SparseMatrix struct {
	n   int
	dok *sparse.DOK
}

func NewSparseMatrix(n int) *SparseMatrix {
	return &SparseMatrix{n: n, dok: sparse.NewDOK(n, n)}
}

func (s *SparseMatrix) Dims() (int, int) { return s.n, s.n }

func (s *SparseMatrix) At(i, j int) float64 { return s.dok.At(i, j) }

func (s *SparseMatrix) AddValues(rows, cols []int, block mat.Matrix) {
	for i, r := range rows {
		for j, c := range cols {
			if v := block.At(i, j); v != 0 {
				s.dok.Set(r, c, s.dok.At(r, c)+v)
			}
		}
	}
}

// ZeroRows clears the given rows and puts diag on their diagonal.
func (s *SparseMatrix) ZeroRows(rows []int, diag float64) {
	zero := make(map[int]bool, len(rows))
	for _, r := range rows {
		zero[r] = true
	}
	type entry struct{ i, j int }
	var clearList []entry
	s.dok.DoNonZero(func(i, j int, v float64) {
		if zero[i] {
			clearList = append(clearList, entry{i, j})
		}
	})
	for _, e := range clearList {
		s.dok.Set(e.i, e.j, 0)
	}
	for _, r := range rows {
		s.dok.Set(r, r, diag)
	}
}

// NNZ returns the number of stored entries.
func (s *SparseMatrix) NNZ() int { return s.dok.NNZ() }

// ToCSR returns the matrix in compressed sparse row form.
func (s *SparseMatrix) ToCSR() *sparse.CSR { return s.dok.ToCSR() }

// ToDense returns a dense copy.
func (s *SparseMatrix) ToDense() *mat.Dense { return s.dok.ToDense() }
