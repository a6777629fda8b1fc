package mesh

import (
	"fmt"
	"testing"

	"github.com/notargets/FEAssembly/element"
	"github.com/notargets/FEAssembly/element/library/hex"
	"github.com/notargets/FEAssembly/fieldspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boxConn(t *testing.T, nx, ny, nz int) (*Box, *Connectivity) {
	t.Helper()
	box := NewBox(nx, ny, nz)
	conn, err := box.Connectivity()
	require.NoError(t, err)
	return box, conn
}

// ============================================================================
// Connectivity
// ============================================================================

func TestBoxEntityCounts(t *testing.T) {
	for _, n := range [][3]int{{1, 1, 1}, {2, 2, 2}, {3, 2, 1}} {
		nx, ny, nz := n[0], n[1], n[2]
		t.Run(fmt.Sprintf("%dx%dx%d", nx, ny, nz), func(t *testing.T) {
			_, conn := boxConn(t, nx, ny, nz)
			assert.Equal(t, nx*ny*nz, conn.NumElements())
			assert.Equal(t, (nx+1)*(ny+1)*(nz+1), conn.NumVertices)
			assert.Equal(t, nx*(ny+1)*(nz+1)+(nx+1)*ny*(nz+1)+(nx+1)*(ny+1)*nz, conn.NumEdges())
			assert.Equal(t, (nx+1)*ny*nz+nx*(ny+1)*nz+nx*ny*(nz+1), conn.NumFaces())
		})
	}
}

func TestFaceOrientation(t *testing.T) {
	_, conn := boxConn(t, 2, 1, 1)
	// element 0 face 1 (xi=+1) is element 1 face 0
	g := conn.ElementEntity(0, element.Face, 1)
	assert.Equal(t, g, conn.ElementEntity(1, element.Face, 0))
	assert.Equal(t, []int{0, 1}, conn.FaceElements(g))
	assert.Equal(t, 1.0, conn.FaceSign(0, 1))
	assert.Equal(t, -1.0, conn.FaceSign(1, 0))
	// boundary faces belong to their only element
	assert.Equal(t, 1.0, conn.FaceSign(1, 1))
	assert.Len(t, conn.FaceElements(conn.ElementEntity(1, element.Face, 1)), 1)
}

func TestNewConnectivityErrors(t *testing.T) {
	_, err := NewConnectivity(8, []int{0, 1, 2})
	assert.ErrorIs(t, err, ErrInvalidConnectivity)
	_, err = NewConnectivity(8, []int{0, 1, 2, 3, 4, 5, 6, 8})
	assert.ErrorIs(t, err, ErrInvalidConnectivity)
	_, err = NewConnectivity(8, []int{0, 1, 2, 3, 4, 5, 6, 6})
	assert.ErrorIs(t, err, ErrInvalidConnectivity)
	_, err = NewConnectivity(0, nil)
	assert.ErrorIs(t, err, ErrInvalidConnectivity)
}

// ============================================================================
// DOF numbering
// ============================================================================

func TestElementMeshDofCounts(t *testing.T) {
	_, conn := boxConn(t, 2, 2, 2)
	testCases := []struct {
		name  string
		basis *element.FEBasis
		ndof  int
	}{
		{"H1 p1 vector", element.NewFEBasis(3, hex.NewLagrangeH1(1, 3)), 3 * 27},
		{"H1 p2", element.NewFEBasis(3, hex.NewLagrangeH1(2, 1)), 125},
		{"Hdiv x L2", element.NewFEBasis(3, hex.NewHdiv(), hex.NewLagrangeL2(0, 1)), 36 + 8},
		{"L2 p1", element.NewFEBasis(3, hex.NewLagrangeL2(1, 2)), 8 * 16},
		{"empty", element.NewFEBasis(3), 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewElementMesh(conn, tc.basis)
			require.NoError(t, err)
			assert.Equal(t, tc.ndof, m.NumDof())
			assert.Equal(t, 8, m.NumElements())

			used := make([]bool, m.NumDof())
			for e := 0; e < m.NumElements(); e++ {
				for b := 0; b < tc.basis.NBasis(); b++ {
					for i := 0; i < tc.basis.SubspaceNDof(b); i++ {
						used[m.GlobalDof(e, b, i)] = true
					}
				}
			}
			for d, u := range used {
				assert.Truef(t, u, "dof %d unused", d)
			}
		})
	}
}

// faceNodes puts n nodes on face 0 and nothing else.
type faceNodes struct{ n int }

func (f faceNodes) Name() string { return "faceNodes" }
func (f faceNodes) NDof() int    { return f.n }
func (f faceNodes) Component() fieldspace.Component {
	return fieldspace.Component{Kind: fieldspace.H1, NComp: 1}
}
func (f faceNodes) Entities() []element.EntityDof {
	ents := make([]element.EntityDof, f.n)
	for i := range ents {
		ents[i] = element.EntityDof{Type: element.Face, Index: 0, Node: i}
	}
	return ents
}
func (f faceNodes) DofPoint(int) []float64                  { return []float64{-1, 0, 0} }
func (f faceNodes) Eval(pt []float64, i int, out []float64) { clear(out) }

func TestElementMeshRejectsUnmatchableEntities(t *testing.T) {
	_, conn := boxConn(t, 2, 1, 1)
	_, err := NewElementMesh(conn, element.NewFEBasis(3, faceNodes{3}))
	assert.ErrorIs(t, err, ErrUnsupportedEntityDofs)

	m, err := NewElementMesh(conn, element.NewFEBasis(3, faceNodes{4}))
	require.NoError(t, err)
	assert.Equal(t, 8, m.NumDof())
}

func TestElementMeshHighOrderCounts(t *testing.T) {
	_, conn := boxConn(t, 2, 2, 2)
	h1, err := NewElementMesh(conn, element.NewFEBasis(3, hex.NewLagrangeH1(3, 1)))
	require.NoError(t, err)
	assert.Equal(t, 7*7*7, h1.NumDof())

	// 36 faces with 4 flux DOFs, 8 elements with 3*4 interior DOFs and 8 L2
	// blocks of 8
	hdiv, err := NewElementMesh(conn, element.NewFEBasis(3, hex.NewQHdiv(2), hex.NewLagrangeL2(1, 1)))
	require.NoError(t, err)
	assert.Equal(t, 36*4+8*12+8*8, hdiv.NumDof())
}

// cubeSymmetries returns the 48 signed axis permutations of the cube.
func cubeSymmetries() [][2][3]int {
	perms := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	var out [][2][3]int
	for _, p := range perms {
		for s := 0; s < 8; s++ {
			out = append(out, [2][3]int{p, {1 - 2*(s&1), 1 - (s & 2), 1 - (s&4)/2}})
		}
	}
	return out
}

// placedHex returns the vertices of the unit cell at x offset i0 of a 2x1x1
// lattice, with reference axis perm[d] mapped to physical axis d scaled by
// sign[d].
func placedHex(i0 int, sym [2][3]int) []int {
	verts := make([]int, 8)
	for r, xr := range element.Hex.Vertices {
		var lat [3]int
		for d := 0; d < 3; d++ {
			lat[d] = int(float64(sym[1][d])*xr[sym[0][d]]+1) / 2
		}
		verts[r] = i0 + lat[0] + 3*(lat[1]+2*lat[2])
	}
	return verts
}

func TestElementMeshOrientedNumbering(t *testing.T) {
	X := make([]float64, 3*12)
	for v := 0; v < 12; v++ {
		X[3*v], X[3*v+1], X[3*v+2] = float64(v%3), float64((v/3)%2), float64(v/6)
	}
	bases := []struct {
		name  string
		basis *element.FEBasis
		ndof  int
	}{
		{"H1 p3", element.NewFEBasis(3, hex.NewLagrangeH1(3, 1)), 7 * 4 * 4},
		{"QHdiv p2", element.NewFEBasis(3, hex.NewQHdiv(2)), 2*36 - 4},
	}
	syms := cubeSymmetries()
	for _, bc := range bases {
		t.Run(bc.name, func(t *testing.T) {
			sub := bc.basis.Sub(0)
			var shape [8]float64
			for k0, s0 := range syms {
				for k1, s1 := range syms {
					if k0%7 != 0 && k1%5 != 0 {
						continue
					}
					cells := append(placedHex(0, s0), placedHex(1, s1)...)
					conn, err := NewConnectivity(12, cells)
					require.NoError(t, err)
					m, err := NewElementMesh(conn, bc.basis)
					require.NoError(t, err)
					require.Equal(t, bc.ndof, m.NumDof(), "symmetries %d, %d", k0, k1)

					// shared DOFs must sit at the same physical point
					where := make(map[int][3]float64)
					signs := make(map[int]float64)
					for e := 0; e < 2; e++ {
						verts := conn.ElementVertices(e)
						for i, ent := range sub.Entities() {
							trilinear(sub.DofPoint(i), shape[:])
							var x [3]float64
							for v, n := range shape {
								for d := range x {
									x[d] += n * X[3*verts[v]+d]
								}
							}
							g := m.GlobalDof(e, 0, i)
							if p, ok := where[g]; ok {
								for d := range x {
									require.InDelta(t, p[d], x[d], 1e-12, "symmetries %d, %d dof %d", k0, k1, g)
								}
								if ent.Signed {
									assert.Equal(t, 0.0, signs[g]+m.GlobalDofSign(e, 0, i))
								}
							}
							where[g] = x
							signs[g] = m.GlobalDofSign(e, 0, i)
						}
					}
				}
			}
		})
	}
}

func TestEntityOrientationIdentityOnBox(t *testing.T) {
	_, conn := boxConn(t, 2, 2, 2)
	for e := 0; e < conn.NumElements(); e++ {
		for l := range element.Hex.Edges {
			assert.Equal(t, 0, conn.EntityOrientation(e, element.Edge, l))
		}
		for f := range element.Hex.Faces {
			assert.Equal(t, 0, conn.EntityOrientation(e, element.Face, f))
		}
	}
}

func TestHdivSigns(t *testing.T) {
	_, conn := boxConn(t, 2, 1, 1)
	basis := element.NewFEBasis(3, hex.NewHdiv(), hex.NewLagrangeL2(0, 1))
	m, err := NewElementMesh(conn, basis)
	require.NoError(t, err)

	assert.Equal(t, m.GlobalDof(0, 0, 1), m.GlobalDof(1, 0, 0))
	assert.Equal(t, 1.0, m.GlobalDofSign(0, 0, 1))
	assert.Equal(t, -1.0, m.GlobalDofSign(1, 0, 0))
	assert.Equal(t, 1.0, m.GlobalDofSign(1, 0, 1))
	// L2 DOFs are never signed and never shared
	assert.Equal(t, 1.0, m.GlobalDofSign(1, 1, 0))
	assert.NotEqual(t, m.GlobalDof(0, 1, 0), m.GlobalDof(1, 1, 0))
}

func TestInterpolateVertexFieldGeometry(t *testing.T) {
	box, conn := boxConn(t, 2, 1, 1)
	basis := element.NewFEBasis(3, hex.NewLagrangeH1(2, 3))
	m, err := NewElementMesh(conn, basis)
	require.NoError(t, err)

	X := make([]float64, m.NumDof())
	m.InterpolateVertexField(0, 3, box.X, X)

	sub := basis.Sub(0)
	for e := 0; e < m.NumElements(); e++ {
		i0 := float64(e) // element e spans x in [e/2, (e+1)/2]
		for i, ent := range sub.Entities() {
			pt := sub.DofPoint(i)
			var want float64
			switch ent.Comp {
			case 0:
				want = (i0 + (pt[0]+1)/2) / 2
			default:
				want = (pt[ent.Comp] + 1) / 2
			}
			assert.InDeltaf(t, want, X[m.GlobalDof(e, 0, i)], 1e-14, "elem %d dof %d", e, i)
		}
	}
}

// ============================================================================
// Boundary conditions
// ============================================================================

func TestBoundaryCondition(t *testing.T) {
	box, conn := boxConn(t, 2, 2, 2)
	basis := element.NewFEBasis(3, hex.NewHdiv(), hex.NewLagrangeL2(0, 1))
	m, err := NewElementMesh(conn, basis)
	require.NoError(t, err)

	bc := NewBoundaryCondition(conn, m, []bool{true, false}, box.BoundaryVertices(0, 0))
	// four x=0 faces, one flux DOF each
	require.Len(t, bc.DOFs(), 4)
	for e := 0; e < m.NumElements(); e++ {
		if conn.ElementVertices(e)[0]%3 == 0 {
			assert.Contains(t, bc.DOFs(), m.GlobalDof(e, 0, 0))
		}
	}

	bcL2 := NewBoundaryCondition(conn, m, []bool{false, true}, box.BoundaryVertices(0, 0))
	assert.Empty(t, bcL2.DOFs())

	h1, err := NewElementMesh(conn, element.NewFEBasis(3, hex.NewLagrangeH1(1, 1)))
	require.NoError(t, err)
	bcH1 := NewBoundaryCondition(conn, h1, []bool{true}, box.BoundaryVertices(2, 1))
	assert.Len(t, bcH1.DOFs(), 9)
	assert.IsIncreasing(t, bcH1.DOFs())
}

func TestBoxGeometry(t *testing.T) {
	box := NewBox(2, 2, 2)
	assert.Len(t, box.Hex, 64)
	v := box.Vertex(2, 1, 2)
	assert.Equal(t, []float64{1, 0.5, 1}, box.X[3*v:3*v+3])
	assert.Len(t, box.BoundaryVertices(1, 1), 9)
	// element 7 is the (1,1,1) cell, its first vertex is lattice (1,1,1)
	assert.Equal(t, box.Vertex(1, 1, 1), box.Hex[8*7])
	assert.Equal(t, box.Vertex(2, 2, 2), box.Hex[8*7+6])
}

// ============================================================================
// Projected meshes
// ============================================================================

func TestProjectedMeshDegreeOneIsIdentity(t *testing.T) {
	_, conn := boxConn(t, 2, 1, 1)
	basis := element.NewFEBasis(3, hex.NewHdiv(), hex.NewLagrangeL2(0, 1))
	m, err := NewElementMesh(conn, basis)
	require.NoError(t, err)
	proj, err := hex.NewProjection(1, basis, basis)
	require.NoError(t, err)

	pm, err := NewProjectedMesh(m, basis, proj)
	require.NoError(t, err)
	require.Equal(t, m.NumElements(), pm.NumElements())
	assert.Equal(t, m.NumDof(), pm.NumDof())
	for e := 0; e < m.NumElements(); e++ {
		for b := 0; b < basis.NBasis(); b++ {
			for i := 0; i < basis.SubspaceNDof(b); i++ {
				assert.Equal(t, m.GlobalDof(e, b, i), pm.GlobalDof(e, b, i))
				assert.Equal(t, m.GlobalDofSign(e, b, i), pm.GlobalDofSign(e, b, i))
			}
		}
	}
}

func TestProjectedMeshDegreeTwo(t *testing.T) {
	_, conn := boxConn(t, 2, 1, 1)
	high := element.NewFEBasis(3, hex.NewQHdiv(2), hex.NewLagrangeL2(1, 1))
	low := element.NewFEBasis(3, hex.NewHdiv(), hex.NewLagrangeL2(0, 1))
	m, err := NewElementMesh(conn, high)
	require.NoError(t, err)
	proj, err := hex.NewProjection(2, high, low)
	require.NoError(t, err)
	pm, err := NewProjectedMesh(m, low, proj)
	require.NoError(t, err)
	require.Equal(t, 16, pm.NumElements())
	assert.Equal(t, m.NumDof(), pm.NumDof())

	// every high-order DOF is reached, flux DOFs between sub-elements with
	// opposite signs
	signs := make(map[int][]float64)
	for e := 0; e < pm.NumElements(); e++ {
		for b := 0; b < low.NBasis(); b++ {
			for i := 0; i < low.SubspaceNDof(b); i++ {
				g := pm.GlobalDof(e, b, i)
				signs[g] = append(signs[g], pm.GlobalDofSign(e, b, i))
			}
		}
	}
	assert.Len(t, signs, m.NumDof())
	for g, s := range signs {
		switch len(s) {
		case 1:
		case 2:
			assert.Equalf(t, 0.0, s[0]+s[1], "dof %d", g)
		default:
			t.Errorf("dof %d used %d times", g, len(s))
		}
	}
}

func TestProjectedMeshMismatch(t *testing.T) {
	_, conn := boxConn(t, 1, 1, 1)
	high := element.NewFEBasis(3, hex.NewQHdiv(2), hex.NewLagrangeL2(1, 1))
	low := element.NewFEBasis(3, hex.NewHdiv(), hex.NewLagrangeL2(0, 1))
	m, err := NewElementMesh(conn, low)
	require.NoError(t, err)
	proj, err := hex.NewProjection(2, high, low)
	require.NoError(t, err)
	_, err = NewProjectedMesh(m, low, proj)
	assert.ErrorIs(t, err, ErrProjectionMismatch)
}
