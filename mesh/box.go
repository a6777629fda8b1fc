package mesh

import "github.com/notargets/FEAssembly/element"

// Box is a structured nx x ny x nz hexahedral mesh of the unit cube in the
// raw array form taken by NewConnectivity.
type Box struct {
	NX, NY, NZ  int
	NumVertices int
	Hex         []int     // 8 vertices per element
	X           []float64 // 3 coordinates per vertex
}

func NewBox(nx, ny, nz int) *Box {
	b := &Box{
		NX: nx, NY: ny, NZ: nz,
		NumVertices: (nx + 1) * (ny + 1) * (nz + 1),
		Hex:         make([]int, 0, 8*nx*ny*nz),
	}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				for _, xv := range element.Hex.Vertices {
					b.Hex = append(b.Hex, b.Vertex(i+cart(xv[0]), j+cart(xv[1]), k+cart(xv[2])))
				}
			}
		}
	}
	b.X = make([]float64, 3*b.NumVertices)
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				v := b.Vertex(i, j, k)
				b.X[3*v] = float64(i) / float64(nx)
				b.X[3*v+1] = float64(j) / float64(ny)
				b.X[3*v+2] = float64(k) / float64(nz)
			}
		}
	}
	return b
}

func cart(x float64) int {
	if x > 0 {
		return 1
	}
	return 0
}

// Vertex returns the index of lattice vertex (i, j, k).
func (b *Box) Vertex(i, j, k int) int {
	return i + j*(b.NX+1) + k*(b.NX+1)*(b.NY+1)
}

// BoundaryVertices returns the vertices on the side of the box normal to
// axis, at the low (side 0) or high (side 1) end.
func (b *Box) BoundaryVertices(axis, side int) []int {
	n := [3]int{b.NX, b.NY, b.NZ}
	var verts []int
	for k := 0; k <= b.NZ; k++ {
		for j := 0; j <= b.NY; j++ {
			for i := 0; i <= b.NX; i++ {
				idx := [3]int{i, j, k}
				if idx[axis] == side*n[axis] {
					verts = append(verts, b.Vertex(i, j, k))
				}
			}
		}
	}
	return verts
}

// Connectivity builds the topology of the box.
func (b *Box) Connectivity() (*Connectivity, error) {
	return NewConnectivity(b.NumVertices, b.Hex)
}
