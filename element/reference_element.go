package element

import (
	"fmt"
	"math"
)

// ReferenceTopology is the vertex/edge/face structure of a reference element
// on [-1,1]^d.
type ReferenceTopology struct {
	Name     string
	Dim      int
	Vertices [][]float64 // reference coordinates
	Edges    [][2]int    // vertex pairs, first vertex at the lower coordinate
	Faces    [][]int     // face f = 2*axis + side, side 1 at xi_axis = +1
}

// Hex is the reference hexahedron.
var Hex = ReferenceTopology{
	Name: "Hex",
	Dim:  3,
	Vertices: [][]float64{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	},
	Edges: [][2]int{
		{0, 1}, {3, 2}, {4, 5}, {7, 6}, // along xi
		{0, 3}, {1, 2}, {4, 7}, {5, 6}, // along eta
		{0, 4}, {1, 5}, {2, 6}, {3, 7}, // along zeta
	},
	Faces: [][]int{
		{0, 3, 7, 4}, {1, 2, 6, 5},
		{0, 1, 5, 4}, {3, 2, 6, 7},
		{0, 1, 2, 3}, {4, 5, 6, 7},
	},
}

// NumEntities returns the number of entities of a type.
func (rt *ReferenceTopology) NumEntities(etype EntityType) int {
	switch etype {
	case Vertex:
		return len(rt.Vertices)
	case Edge:
		return len(rt.Edges)
	case Face:
		return len(rt.Faces)
	default:
		return 1
	}
}

// EntityVertices returns the reference vertices of an entity.
func (rt *ReferenceTopology) EntityVertices(etype EntityType, index int) []int {
	switch etype {
	case Vertex:
		return []int{index}
	case Edge:
		return rt.Edges[index][:]
	case Face:
		return rt.Faces[index]
	default:
		all := make([]int, len(rt.Vertices))
		for i := range all {
			all[i] = i
		}
		return all
	}
}

// Classify returns the entity that contains a point described by its
// position along each axis: -1 on the low boundary, +1 on the high boundary,
// 0 strictly inside.
func (rt *ReferenceTopology) Classify(side []int) (EntityType, int) {
	var nfixed int
	for _, s := range side {
		if s != 0 {
			nfixed++
		}
	}
	switch rt.Dim - nfixed {
	case 0:
		for v, x := range rt.Vertices {
			if matchesSide(x, side) {
				return Vertex, v
			}
		}
	case 1:
		for e, ev := range rt.Edges {
			if matchesSide(rt.Vertices[ev[0]], side) && matchesSide(rt.Vertices[ev[1]], side) {
				return Edge, e
			}
		}
	case 2:
		for axis, s := range side {
			if s < 0 {
				return Face, 2 * axis
			} else if s > 0 {
				return Face, 2*axis + 1
			}
		}
	default:
		return Volume, 0
	}
	panic(fmt.Sprintf("element: no %s entity for side %v", rt.Name, side))
}

func matchesSide(x []float64, side []int) bool {
	for d, s := range side {
		if s != 0 && x[d] != float64(s) {
			return false
		}
	}
	return true
}

// OrientNode maps slot node of an entity holding count nodes per component
// from the element's node order to the order seen with orientation orient.
// Edge nodes run along the edge and orient 1 reverses them. Face nodes form
// a square grid, s fastest along the lower free axis; bit 0 of orient
// transposes the grid, bit 1 reverses s and bit 2 reverses t. Vertex and
// volume nodes are never reordered.
func OrientNode(etype EntityType, orient, node, count int) int {
	switch etype {
	case Edge:
		if orient&1 != 0 {
			return count - 1 - node
		}
	case Face:
		n := int(math.Round(math.Sqrt(float64(count))))
		s, t := node%n, node/n
		if orient&1 != 0 {
			s, t = t, s
		}
		if orient&2 != 0 {
			s = n - 1 - s
		}
		if orient&4 != 0 {
			t = n - 1 - t
		}
		return s + n*t
	}
	return node
}
