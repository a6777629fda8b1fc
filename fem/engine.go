package fem

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/notargets/FEAssembly/element"
	"github.com/notargets/FEAssembly/elemvec"
	"github.com/notargets/FEAssembly/fieldspace"
	"github.com/notargets/FEAssembly/partitions"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrLayoutMismatch reports a basis that does not fill the layout the
	// weak form expects.
	ErrLayoutMismatch = element.ErrLayoutMismatch
	// ErrGeometry reports a geometry layout whose first component is not an
	// H1 vector with one component per spatial dimension.
	ErrGeometry = errors.New("geometry layout must start with an H1 vector field")
	// ErrVectorMismatch reports an element vector or matrix whose shape does
	// not match the basis it is used with.
	ErrVectorMismatch = errors.New("element vector does not match basis")
)

// Config holds the engine options. The zero value runs serially with no
// logging and no metrics.
type Config struct {
	Workers       int // concurrent element workers for Parallel outputs
	PartitionSize int // elements per partition, 0 picks one per worker
	Strategy      partitions.PartitionStrategy
	Logger        *slog.Logger
	Metrics       *Metrics
}

// FiniteElement assembles a weak form over the elements of a mesh.
// It holds no state between calls and is safe for concurrent use.
type FiniteElement struct {
	pde       PDE[float64]
	quad      element.Quadrature
	dataBasis element.Basis
	geoBasis  element.Basis
	basis     element.Basis
	hasData   bool
	cfg       Config
	log       *slog.Logger
}

// New composes a weak form with its quadrature and the bases of its data,
// geometry and solution fields.
func New(pde PDE[float64], quad element.Quadrature, dataBasis, geoBasis, basis element.Basis, cfg Config) (*FiniteElement, error) {
	if err := element.CheckLayout(dataBasis, pde.DataLayout()); err != nil {
		return nil, fmt.Errorf("data basis: %w", err)
	}
	if err := element.CheckLayout(geoBasis, pde.GeoLayout()); err != nil {
		return nil, fmt.Errorf("geometry basis: %w", err)
	}
	if err := element.CheckLayout(basis, pde.SpaceLayout()); err != nil {
		return nil, fmt.Errorf("solution basis: %w", err)
	}
	geo := pde.GeoLayout()
	if geo.Dim() != pde.Dim() || geo.NumComponents() == 0 ||
		geo.Component(0).Kind != fieldspace.H1 || geo.Component(0).NComp != pde.Dim() {
		return nil, fmt.Errorf("%w: got %v for dimension %d", ErrGeometry, geo, pde.Dim())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FiniteElement{
		pde:       pde,
		quad:      quad,
		dataBasis: dataBasis,
		geoBasis:  geoBasis,
		basis:     basis,
		hasData:   dataBasis.NDof() > 0,
		cfg:       cfg,
		log:       logger,
	}, nil
}

// Local DOF buffer slots of a workspace.
const (
	dataDof = iota
	geoDof
	solDof
	xDof
	outDof
	numDofSlots
)

// workspace is the per-goroutine scratch of an element loop.
type workspace struct {
	data, geo, sol *fieldspace.QptSpace[float64]
	x, cref        *fieldspace.QptSpace[float64]
	s, p, c, pref  *fieldspace.Space[float64]
	jt             *fieldspace.JacobianTransform
	dofs           [numDofSlots]elemvec.FEDof
}

// local returns the element buffer of v for elem. Parallel views hand out
// rows of their bulk array; other views get the zeroed buffer of slot,
// reused from element to element.
func (ws *workspace) local(slot int, v elemvec.ElementVector, elem int) elemvec.FEDof {
	if v.Strategy() == elemvec.Parallel {
		return v.ElementDof(elem)
	}
	if len(ws.dofs[slot]) != v.NDof() {
		ws.dofs[slot] = make(elemvec.FEDof, v.NDof())
	} else {
		clear(ws.dofs[slot])
	}
	return ws.dofs[slot]
}

func (fe *FiniteElement) newWorkspace() *workspace {
	npts := fe.quad.NumPoints()
	dim := fe.pde.Dim()
	space := fe.pde.SpaceLayout()
	return &workspace{
		data: fieldspace.NewQptSpace[float64](npts, fe.pde.DataLayout()),
		geo:  fieldspace.NewQptSpace[float64](npts, fe.pde.GeoLayout()),
		sol:  fieldspace.NewQptSpace[float64](npts, space),
		x:    fieldspace.NewQptSpace[float64](npts, space),
		cref: fieldspace.NewQptSpace[float64](npts, space),
		s:    fieldspace.NewSpace[float64](space),
		p:    fieldspace.NewSpace[float64](space),
		c:    fieldspace.NewSpace[float64](space),
		pref: fieldspace.NewSpace[float64](space),
		jt:   fieldspace.NewJacobianTransform(dim, identity(dim)),
	}
}

func identity(dim int) []float64 {
	g := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		g[i*dim+i] = 1
	}
	return g
}

// interpolate gathers the data, geometry and solution of elem and evaluates
// them at every quadrature point.
func (fe *FiniteElement) interpolate(ws *workspace, elem int, data, geo, sol elemvec.ElementVector) {
	if fe.hasData {
		dof := ws.local(dataDof, data, elem)
		data.GetElementValues(elem, dof)
		fe.dataBasis.Interp(fe.quad, dof, ws.data)
	}
	gdof := ws.local(geoDof, geo, elem)
	geo.GetElementValues(elem, gdof)
	fe.geoBasis.Interp(fe.quad, gdof, ws.geo)

	sdof := ws.local(solDof, sol, elem)
	sol.GetElementValues(elem, sdof)
	fe.basis.Interp(fe.quad, sdof, ws.sol)
}

// pointTransform updates the Jacobian transform of quadrature point j and
// maps the solution record to the physical element. It returns the
// weighted determinant.
func (fe *FiniteElement) pointTransform(ws *workspace, j int) float64 {
	ws.jt.Update(ws.geo.Get(j).Grad(0))
	ws.sol.Get(j).Transform(ws.jt, ws.s)
	return fe.quad.Weight(j) * ws.jt.DetJ
}

// AddResidual adds the residual of the weak form at sol into res.
func (fe *FiniteElement) AddResidual(data, geo, sol, res elemvec.ElementVector) error {
	if err := fe.checkVectors(data, geo, sol, res); err != nil {
		return fmt.Errorf("add residual: %w", err)
	}
	start := time.Now()

	data.InitValues()
	geo.InitValues()
	sol.InitValues()
	res.InitZeroValues()

	strategy := fe.elementLoop(sol.NumElements(), res, func(ws *workspace, elem int) {
		fe.interpolate(ws, elem, data, geo, sol)
		for j := 0; j < fe.quad.NumPoints(); j++ {
			wdetJ := fe.pointTransform(ws, j)
			fe.pde.Weak(wdetJ, ws.data.Get(j), ws.geo.Get(j), ws.s, ws.c)
			ws.c.RTransform(ws.jt, ws.cref.Get(j))
		}
		rdof := ws.local(outDof, res, elem)
		fe.basis.Add(fe.quad, ws.cref, rdof)
		res.AddElementValues(elem, rdof)
	})

	res.AddValues()
	fe.finish("residual", strategy, sol.NumElements(), start)
	return nil
}

// AddJacobianVectorProduct adds J(sol)*x into y without forming J.
func (fe *FiniteElement) AddJacobianVectorProduct(data, geo, sol, x, y elemvec.ElementVector) error {
	if err := fe.checkVectors(data, geo, sol, x, y); err != nil {
		return fmt.Errorf("add jacobian-vector product: %w", err)
	}
	start := time.Now()

	data.InitValues()
	geo.InitValues()
	sol.InitValues()
	x.InitValues()
	y.InitZeroValues()

	strategy := fe.elementLoop(sol.NumElements(), y, func(ws *workspace, elem int) {
		fe.interpolate(ws, elem, data, geo, sol)
		xdof := ws.local(xDof, x, elem)
		x.GetElementValues(elem, xdof)
		fe.basis.Interp(fe.quad, xdof, ws.x)

		for j := 0; j < fe.quad.NumPoints(); j++ {
			wdetJ := fe.pointTransform(ws, j)
			ws.x.Get(j).Transform(ws.jt, ws.p)
			jvp := fe.pde.JacVecProduct(wdetJ, ws.data.Get(j), ws.geo.Get(j), ws.s)
			jvp.Apply(ws.p, ws.c)
			ws.c.RTransform(ws.jt, ws.cref.Get(j))
		}
		ydof := ws.local(outDof, y, elem)
		fe.basis.Add(fe.quad, ws.cref, ydof)
		y.AddElementValues(elem, ydof)
	})

	y.AddValues()
	fe.finish("jacobian_vector_product", strategy, sol.NumElements(), start)
	return nil
}

// AddJacobian adds the element Jacobians at sol into m. The point Jacobian
// is built from one product per record entry, so the cost grows with the
// square of the record size and suits low-order bases only. The loop is
// serial since m is not safe for concurrent use.
func (fe *FiniteElement) AddJacobian(data, geo, sol elemvec.ElementVector, m elemvec.ElementMatrix) error {
	if err := fe.checkVectors(data, geo, sol); err != nil {
		return fmt.Errorf("add jacobian: %w", err)
	}
	if m.NDof() != fe.basis.NDof() || m.NumElements() != sol.NumElements() {
		return fmt.Errorf("add jacobian: %w: matrix has %d elements x %d DOFs, want %d x %d",
			ErrVectorMismatch, m.NumElements(), m.NDof(), sol.NumElements(), fe.basis.NDof())
	}
	start := time.Now()

	data.InitValues()
	geo.InitValues()
	sol.InitValues()

	ncomp := fe.pde.SpaceLayout().Size()
	ndof := fe.basis.NDof()
	if ncomp > 0 && ndof > 0 {
		fe.jacobianLoop(data, geo, sol, m, ncomp, ndof)
	}

	fe.finish("jacobian", elemvec.Serial, sol.NumElements(), start)
	return nil
}

func (fe *FiniteElement) jacobianLoop(data, geo, sol elemvec.ElementVector, m elemvec.ElementMatrix, ncomp, ndof int) {
	ws := fe.newWorkspace()
	jac := mat.NewDense(ncomp, ncomp, nil)
	elemMat := mat.NewDense(ndof, ndof, nil)
	for elem := 0; elem < sol.NumElements(); elem++ {
		fe.interpolate(ws, elem, data, geo, sol)
		elemMat.Zero()
		for j := 0; j < fe.quad.NumPoints(); j++ {
			wdetJ := fe.pointTransform(ws, j)
			jvp := fe.pde.JacVecProduct(wdetJ, ws.data.Get(j), ws.geo.Get(j), ws.s)
			for k := 0; k < ncomp; k++ {
				// column k: unit reference entry k pushed through the point map
				ws.pref.Zero()
				ws.pref.Set(k, 1)
				ws.pref.Transform(ws.jt, ws.p)
				jvp.Apply(ws.p, ws.c)
				ws.c.RTransform(ws.jt, ws.pref)
				for r := 0; r < ncomp; r++ {
					jac.Set(r, k, ws.pref.At(r))
				}
			}
			fe.basis.AddOuter(fe.quad, j, jac, elemMat)
		}
		m.AddElementValues(elem, elemMat)
	}
}

// checkVectors verifies that the vectors match the data, geometry and
// solution bases in that order; any further vectors are checked against
// the solution basis.
func (fe *FiniteElement) checkVectors(vecs ...elemvec.ElementVector) error {
	nelems := vecs[2].NumElements()
	for i, v := range vecs {
		basis, name := fe.basis, "solution"
		switch i {
		case 0:
			basis, name = fe.dataBasis, "data"
		case 1:
			basis, name = fe.geoBasis, "geometry"
		}
		if v.NDof() != basis.NDof() {
			return fmt.Errorf("%w: %s vector has %d local DOFs, basis has %d",
				ErrVectorMismatch, name, v.NDof(), basis.NDof())
		}
		if basis.NDof() > 0 && v.NumElements() != nelems {
			return fmt.Errorf("%w: %s vector spans %d elements, solution spans %d",
				ErrVectorMismatch, name, v.NumElements(), nelems)
		}
	}
	return nil
}

// elementLoop runs body over every element. Elements run concurrently,
// one workspace per partition, when out gathers in bulk and more than one
// worker is configured.
func (fe *FiniteElement) elementLoop(nelems int, out elemvec.ElementVector, body func(ws *workspace, elem int)) elemvec.Strategy {
	if out.Strategy() == elemvec.Parallel && fe.cfg.Workers > 1 && nelems > 0 {
		layout, err := fe.partition(nelems, out)
		if err == nil {
			stats := layout.PartitionStatistics()
			fe.log.Debug("partitioned",
				"partitions", stats.NumPartitions,
				"max_elements", stats.MaxElements,
				"imbalance", stats.Imbalance)
			layout.Run(fe.cfg.Workers, func(p *partitions.Partition) {
				ws := fe.newWorkspace()
				for _, elem := range p.Elements {
					body(ws, elem)
				}
			})
			return elemvec.Parallel
		}
		fe.log.Warn("partitioning failed, running serially", "error", err)
	}
	ws := fe.newWorkspace()
	for elem := 0; elem < nelems; elem++ {
		body(ws, elem)
	}
	return elemvec.Serial
}

// partition reuses the layout of a partitioned output vector, or builds one
// from the engine configuration.
func (fe *FiniteElement) partition(nelems int, out elemvec.ElementVector) (*partitions.PartitionLayout, error) {
	if pv, ok := out.(interface {
		Layout() *partitions.PartitionLayout
	}); ok && pv.Layout().TotalElements == nelems {
		return pv.Layout(), nil
	}
	size := fe.cfg.PartitionSize
	if size < 1 {
		size = max(1, (nelems+fe.cfg.Workers-1)/fe.cfg.Workers)
	}
	pb := &partitions.PartitionBuilder{
		NumElements:         nelems,
		TargetPartitionSize: size,
		Strategy:            fe.cfg.Strategy,
	}
	return pb.BuildPartitions()
}

func (fe *FiniteElement) finish(op string, strategy elemvec.Strategy, nelems int, start time.Time) {
	elapsed := time.Since(start)
	fe.cfg.Metrics.observeAssembly(op, strategy.String(), nelems, elapsed)
	fe.log.Debug("assembled",
		"operation", op,
		"strategy", strategy,
		"elements", nelems,
		"points", fe.quad.NumPoints(),
		"elapsed", elapsed)
}
