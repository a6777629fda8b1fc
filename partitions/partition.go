package partitions

import (
	"fmt"
)

// Partition is a group of elements processed together by one worker.
type Partition struct {
	// Unique identifier for this partition
	ID int

	// Element membership
	Elements    []int // Global element indices in this partition
	NumElements int   // Actual number of active elements
	MaxElements int   // Largest partition size in the layout
}

// PartitionLayout manages the complete decomposition of an element loop
type PartitionLayout struct {
	// All partitions in the mesh
	Partitions []Partition

	// Global sizing information
	KpartMax      int // max(NumElements) across all partitions
	TotalElements int // Sum of all actual elements across partitions
	NumPartitions int // Total number of partitions

	// Element to partition mapping
	EToP []int // Length TotalElements: element k belongs to partition EToP[k]
}

// PartitionedArray holds a fixed number of values per element, stored
// partition by partition so that a worker's elements are contiguous.
type PartitionedArray struct {
	// Contiguous global storage for all partitions
	// Layout: [Partition 0 Data][Partition 1 Data]...[Partition N-1 Data]
	GlobalData []float64

	// Offset for each partition's data in GlobalData
	// Partition p's data starts at GlobalData[Offsets[p]]
	Offsets []int

	// Number of values per element
	Stride int

	// ElementOffset[k] is the start of element k's row in GlobalData
	ElementOffset []int
}

// Methods for PartitionLayout

// GetPartition returns the partition containing element k
func (pl *PartitionLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[elementID]
}

// ValidateLayout checks partition consistency: KpartMax is the largest
// partition and every element belongs to exactly the partition EToP names.
func (pl *PartitionLayout) ValidateLayout() error {
	actualMax := 0
	seen := make([]bool, pl.TotalElements)
	for _, p := range pl.Partitions {
		if p.NumElements > actualMax {
			actualMax = p.NumElements
		}
		if p.MaxElements != pl.KpartMax {
			return fmt.Errorf("partition %d: MaxElements %d != KpartMax %d",
				p.ID, p.MaxElements, pl.KpartMax)
		}
		for _, k := range p.Elements {
			if k < 0 || k >= pl.TotalElements {
				return fmt.Errorf("partition %d: element %d out of range", p.ID, k)
			}
			if seen[k] {
				return fmt.Errorf("partition %d: element %d assigned twice", p.ID, k)
			}
			if pl.EToP[k] != p.ID {
				return fmt.Errorf("partition %d: element %d mapped to partition %d", p.ID, k, pl.EToP[k])
			}
			seen[k] = true
		}
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("computed KpartMax %d != stored KpartMax %d",
			actualMax, pl.KpartMax)
	}
	for k, ok := range seen {
		if !ok {
			return fmt.Errorf("element %d not assigned to any partition", k)
		}
	}
	return nil
}

// Methods for PartitionedArray

// AllocatePartitionedArray creates zeroed storage of stride values per
// element for the layout.
func AllocatePartitionedArray(layout *PartitionLayout, stride int) *PartitionedArray {
	offsets := make([]int, layout.NumPartitions+1)
	elemOffset := make([]int, layout.TotalElements)
	for i, p := range layout.Partitions {
		for j, k := range p.Elements {
			elemOffset[k] = offsets[i] + j*stride
		}
		offsets[i+1] = offsets[i] + p.NumElements*stride
	}
	return &PartitionedArray{
		GlobalData:    make([]float64, offsets[layout.NumPartitions]),
		Offsets:       offsets,
		Stride:        stride,
		ElementOffset: elemOffset,
	}
}

// GetPartitionData returns a slice for partition p's data
func (pa *PartitionedArray) GetPartitionData(partitionID int) []float64 {
	if partitionID >= len(pa.Offsets)-1 {
		return nil
	}
	start := pa.Offsets[partitionID]
	end := pa.Offsets[partitionID+1]
	return pa.GlobalData[start:end]
}

// ElementData returns the row of element k.
func (pa *PartitionedArray) ElementData(k int) []float64 {
	start := pa.ElementOffset[k]
	return pa.GlobalData[start : start+pa.Stride : start+pa.Stride]
}

// Zero clears all element rows.
func (pa *PartitionedArray) Zero() {
	clear(pa.GlobalData)
}
