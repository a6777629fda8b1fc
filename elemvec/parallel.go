package elemvec

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/notargets/FEAssembly/element"
	"github.com/notargets/FEAssembly/partitions"
)

// ParallelConfig controls the partitioning of a ParallelVector.
type ParallelConfig struct {
	Workers       int // goroutines used by InitValues and AddValues
	PartitionSize int // elements per partition, 0 picks one per worker
	Strategy      partitions.PartitionStrategy
}

// ParallelVector keeps every element's local values in a bulk array,
// stored partition by partition. InitValues gathers all elements, element
// computations own their rows, and AddValues scatters all rows back with
// atomic adds.
type ParallelVector struct {
	dm      element.DofMap
	vec     SolutionVector
	workers int
	layout  *partitions.PartitionLayout
	bulk    *partitions.PartitionedArray
}

// NewParallel views vec through dm with a bulk array of NumElements x NDof
// values.
func NewParallel(dm element.DofMap, vec SolutionVector, cfg ParallelConfig) (*ParallelVector, error) {
	if err := checkSize(dm, len(vec)); err != nil {
		return nil, err
	}
	workers := max(cfg.Workers, 1)
	size := cfg.PartitionSize
	if size < 1 {
		size = max(1, (dm.NumElements()+workers-1)/workers)
	}
	pb := &partitions.PartitionBuilder{
		NumElements:         dm.NumElements(),
		TargetPartitionSize: size,
		Strategy:            cfg.Strategy,
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return nil, fmt.Errorf("parallel element vector: %w", err)
	}
	return &ParallelVector{
		dm:      dm,
		vec:     vec,
		workers: workers,
		layout:  layout,
		bulk:    partitions.AllocatePartitionedArray(layout, dm.Basis().NDof()),
	}, nil
}

func (v *ParallelVector) Strategy() Strategy                  { return Parallel }
func (v *ParallelVector) NumElements() int                    { return v.dm.NumElements() }
func (v *ParallelVector) NDof() int                           { return v.dm.Basis().NDof() }
func (v *ParallelVector) Vector() SolutionVector              { return v.vec }
func (v *ParallelVector) Workers() int                        { return v.workers }
func (v *ParallelVector) Layout() *partitions.PartitionLayout { return v.layout }
func (v *ParallelVector) ElementDof(elem int) FEDof           { return v.bulk.ElementData(elem) }
func (v *ParallelVector) GetElementValues(int, FEDof)         {}
func (v *ParallelVector) AddElementValues(int, FEDof)         {}
func (v *ParallelVector) SetElementValues(int, FEDof)         {}

// InitValues gathers every element into the bulk array. Only the global
// array is read, so partitions run concurrently.
func (v *ParallelVector) InitValues() {
	basis := v.dm.Basis()
	v.layout.Run(v.workers, func(p *partitions.Partition) {
		for _, elem := range p.Elements {
			dof := v.bulk.ElementData(elem)
			for b := 0; b < basis.NBasis(); b++ {
				off := basis.DofOffset(b)
				for i := 0; i < basis.SubspaceNDof(b); i++ {
					dof[off+i] = v.dm.GlobalDofSign(elem, b, i) * v.vec[v.dm.GlobalDof(elem, b, i)]
				}
			}
		}
	})
}

// InitZeroValues clears the bulk array. The global array is untouched.
func (v *ParallelVector) InitZeroValues() {
	v.bulk.Zero()
}

// AddValues adds every element row into the global array. DOFs shared by
// elements in different partitions are accumulated atomically.
func (v *ParallelVector) AddValues() {
	basis := v.dm.Basis()
	v.layout.Run(v.workers, func(p *partitions.Partition) {
		for _, elem := range p.Elements {
			dof := v.bulk.ElementData(elem)
			for b := 0; b < basis.NBasis(); b++ {
				off := basis.DofOffset(b)
				for i := 0; i < basis.SubspaceNDof(b); i++ {
					atomicAddFloat64(&v.vec[v.dm.GlobalDof(elem, b, i)], v.dm.GlobalDofSign(elem, b, i)*dof[off+i])
				}
			}
		}
	})
}

// atomicAddFloat64 adds delta to *addr with a compare-and-swap loop on the
// bit pattern.
func atomicAddFloat64(addr *float64, delta float64) {
	p := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(p)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(p, old, next) {
			return
		}
	}
}
