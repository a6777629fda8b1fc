package mesh

import (
	"errors"
	"fmt"
	"slices"

	"github.com/notargets/FEAssembly/element"
)

var (
	// ErrInvalidConnectivity reports malformed element-to-vertex input.
	ErrInvalidConnectivity = errors.New("invalid connectivity")
	// ErrUnsupportedEntityDofs reports a basis whose nodes on a shared
	// entity cannot be matched between elements: more than one node of a
	// component on a vertex, or face nodes that do not form a square grid.
	ErrUnsupportedEntityDofs = errors.New("entity DOFs cannot be matched between elements")
)

type (
	edgeKey [2]int
	faceKey [4]int
)

// Connectivity is the hexahedral mesh topology: global vertices, edges and
// faces and the element-to-entity maps. It is immutable once built.
type Connectivity struct {
	NumVertices int

	hex       [][8]int
	edges     []edgeKey
	faces     []faceKey
	elemEdges [][12]int
	elemFaces [][6]int
	faceElems [][]int // elements sharing each face, ascending
}

// NewConnectivity builds the topology from the flat element-to-vertex array
// hex (8 vertices per element in reference order). Edges and faces are
// identified by their sorted vertex sets and numbered in order of first
// appearance.
func NewConnectivity(nverts int, hex []int) (*Connectivity, error) {
	if nverts < 1 {
		return nil, fmt.Errorf("%w: %d vertices", ErrInvalidConnectivity, nverts)
	}
	if len(hex)%8 != 0 {
		return nil, fmt.Errorf("%w: hex array length %d is not a multiple of 8", ErrInvalidConnectivity, len(hex))
	}
	nelems := len(hex) / 8
	c := &Connectivity{
		NumVertices: nverts,
		hex:         make([][8]int, nelems),
		elemEdges:   make([][12]int, nelems),
		elemFaces:   make([][6]int, nelems),
	}

	edgeMap := make(map[edgeKey]int)
	faceMap := make(map[faceKey]int)
	for e := 0; e < nelems; e++ {
		copy(c.hex[e][:], hex[8*e:8*e+8])
		for _, v := range c.hex[e] {
			if v < 0 || v >= nverts {
				return nil, fmt.Errorf("%w: element %d references vertex %d of %d", ErrInvalidConnectivity, e, v, nverts)
			}
		}
		sorted := c.hex[e]
		slices.Sort(sorted[:])
		if len(slices.Compact(sorted[:])) != 8 {
			return nil, fmt.Errorf("%w: element %d has repeated vertices %v", ErrInvalidConnectivity, e, c.hex[e])
		}

		for l, ev := range element.Hex.Edges {
			key := edgeKey{c.hex[e][ev[0]], c.hex[e][ev[1]]}
			slices.Sort(key[:])
			g, ok := edgeMap[key]
			if !ok {
				g = len(c.edges)
				edgeMap[key] = g
				c.edges = append(c.edges, key)
			}
			c.elemEdges[e][l] = g
		}
		for l, fv := range element.Hex.Faces {
			var key faceKey
			for i, v := range fv {
				key[i] = c.hex[e][v]
			}
			slices.Sort(key[:])
			g, ok := faceMap[key]
			if !ok {
				g = len(c.faces)
				faceMap[key] = g
				c.faces = append(c.faces, key)
				c.faceElems = append(c.faceElems, nil)
			}
			if n := len(c.faceElems[g]); n == 2 {
				return nil, fmt.Errorf("%w: face %v shared by more than two elements", ErrInvalidConnectivity, key)
			}
			c.faceElems[g] = append(c.faceElems[g], e)
			c.elemFaces[e][l] = g
		}
	}
	return c, nil
}

func (c *Connectivity) NumElements() int { return len(c.hex) }
func (c *Connectivity) NumEdges() int    { return len(c.edges) }
func (c *Connectivity) NumFaces() int    { return len(c.faces) }

// NumEntities returns the global number of entities of a type.
func (c *Connectivity) NumEntities(etype element.EntityType) int {
	switch etype {
	case element.Vertex:
		return c.NumVertices
	case element.Edge:
		return c.NumEdges()
	case element.Face:
		return c.NumFaces()
	default:
		return c.NumElements()
	}
}

// ElementVertices returns the vertices of element e in reference order.
func (c *Connectivity) ElementVertices(e int) []int { return c.hex[e][:] }

// ElementEntity maps local entity index of element e to its global index.
func (c *Connectivity) ElementEntity(e int, etype element.EntityType, index int) int {
	switch etype {
	case element.Vertex:
		return c.hex[e][index]
	case element.Edge:
		return c.elemEdges[e][index]
	case element.Face:
		return c.elemFaces[e][index]
	default:
		return e
	}
}

// EntityVertices returns the global vertices of a global entity.
func (c *Connectivity) EntityVertices(etype element.EntityType, g int) []int {
	switch etype {
	case element.Vertex:
		return []int{g}
	case element.Edge:
		return c.edges[g][:]
	case element.Face:
		return c.faces[g][:]
	default:
		return c.hex[g][:]
	}
}

// FaceElements returns the one (boundary) or two elements sharing face g.
func (c *Connectivity) FaceElements(g int) []int { return c.faceElems[g] }

// FaceSign is the orientation of local face f of element e: +1 for the
// lowest-numbered element sharing the face, -1 for the other.
func (c *Connectivity) FaceSign(e, f int) float64 {
	if c.faceElems[c.elemFaces[e][f]][0] == e {
		return 1
	}
	return -1
}

// EntityOrientation returns the orientation, in the sense of
// element.OrientNode, that takes the node order of local entity index of
// element e to the order shared by every element on the global entity.
// The shared order of an edge runs from its lower-numbered vertex. A face is
// laid out from its lowest-numbered vertex, s towards the lower-numbered of
// that vertex's two neighbours on the face and t towards the other.
func (c *Connectivity) EntityOrientation(e int, etype element.EntityType, index int) int {
	switch etype {
	case element.Edge:
		ev := element.Hex.Edges[index]
		if c.hex[e][ev[0]] > c.hex[e][ev[1]] {
			return 1
		}
	case element.Face:
		return c.faceOrientation(e, index)
	}
	return 0
}

func (c *Connectivity) faceOrientation(e, f int) int {
	fv := element.Hex.Faces[f]
	var gv [4]int
	m := 0
	for i, v := range fv {
		gv[i] = c.hex[e][v]
		if gv[i] < gv[m] {
			m = i
		}
	}
	sNext, tNext := gv[(m+1)%4], gv[(m+3)%4]
	if sNext > tNext {
		sNext, tNext = tNext, sNext
	}

	// corner slots s + 2t, local from the reference coordinates and shared
	// from the global vertex numbers
	a1, a2 := 0, 1
	switch f / 2 {
	case 0:
		a1, a2 = 1, 2
	case 1:
		a1, a2 = 0, 2
	}
	var local, shared [4]int
	for i, v := range fv {
		x := element.Hex.Vertices[v]
		local[i] = int(x[a1]+1)/2 + 2*(int(x[a2]+1)/2)
		switch gv[i] {
		case gv[m]:
			shared[i] = 0
		case sNext:
			shared[i] = 1
		case tNext:
			shared[i] = 2
		default:
			shared[i] = 3
		}
	}
	for orient := 0; orient < 8; orient++ {
		match := true
		for i := range local {
			if element.OrientNode(element.Face, orient, local[i], 4) != shared[i] {
				match = false
				break
			}
		}
		if match {
			return orient
		}
	}
	panic(fmt.Sprintf("mesh: no orientation for face %d of element %d", f, e))
}
