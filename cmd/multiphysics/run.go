package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/notargets/FEAssembly/element"
	"github.com/notargets/FEAssembly/element/library/hex"
	"github.com/notargets/FEAssembly/elemvec"
	"github.com/notargets/FEAssembly/fem"
	"github.com/notargets/FEAssembly/mesh"
	"github.com/notargets/FEAssembly/partitions"
	"github.com/notargets/FEAssembly/pde"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// checkCases returns the complex-step consistency checks of every weak form.
func checkCases(opts fem.CheckOptions) []fem.CheckCase {
	return []fem.CheckCase{
		fem.NewCheckCase[complex128]("MixedPoisson", pde.NewMixedPoisson[complex128](3), opts),
		fem.NewCheckCase[complex128]("NonlinearElasticity", pde.NewNonlinearElasticity[complex128](3), opts),
		fem.NewCheckCase[complex128]("HeatConduction", pde.NewHeatConduction[complex128](3), opts),
		fem.NewCheckCase[complex128]("MixedHeatConduction", pde.NewMixedHeatConduction[complex128](3), opts),
		fem.NewCheckCase[complex128]("Poisson", pde.NewPoisson[complex128](3), opts),
	}
}

// runCheck prints the per-entry comparison of the first seed for every weak
// form, then runs all seeds as a suite.
func runCheck(ctx context.Context, w io.Writer, cfg Config, metrics *fem.Metrics) ([]fem.SuiteResult, error) {
	cases := checkCases(fem.CheckOptions{Step: cfg.Check.Step})
	for _, c := range cases {
		fmt.Fprintln(w, c.Name)
		res := c.Run(rand.New(rand.NewPCG(1, 1)))
		for i := range res.FD {
			fmt.Fprintf(w, "fd[%2d]: %12.5e jvp[%2d]: %12.5e err[%2d]: %12.5e\n",
				i, res.FD[i], i, res.JVP[i], i, res.RelErr[i])
		}
	}
	return fem.CheckSuite(ctx, cases, fem.SuiteConfig{
		Seeds:     cfg.Check.Seeds,
		Tolerance: cfg.Check.Tolerance,
		Workers:   cfg.Assembly.Workers,
		Metrics:   metrics,
	})
}

// AssembleSummary reports what runAssemble computed.
type AssembleSummary struct {
	Elements       int
	DOFs           int
	ResidualNorm   float64
	JVPNorm        float64
	JacobianNNZ    int
	JacobianJVPErr float64 // max |J x - jvp(x)| on the projected mesh before boundary rows are cleared
	BoundaryDOFs   int
}

// lowOrder is the lowest-order discretization on the sub-hexes of a
// high-order mesh. It shares the global vectors of the high-order problem.
type lowOrder struct {
	fe            *fem.FiniteElement
	geoMesh, mesh *mesh.ProjectedMesh
}

func newLowOrder(degree int, geoMesh, solMesh *mesh.ElementMesh, dataBasis *element.FEBasis, cfg fem.Config) (*lowOrder, error) {
	geoBasis := element.NewFEBasis(3, hex.NewLagrangeH1(1, 3))
	basis := element.NewFEBasis(3, hex.NewHdiv(), hex.NewLagrangeL2(0, 1))
	geoProj, err := hex.NewProjection(degree, geoMesh.Basis(), geoBasis)
	if err != nil {
		return nil, err
	}
	solProj, err := hex.NewProjection(degree, solMesh.Basis(), basis)
	if err != nil {
		return nil, err
	}
	lo := &lowOrder{}
	if lo.geoMesh, err = mesh.NewProjectedMesh(geoMesh, geoBasis, geoProj); err != nil {
		return nil, err
	}
	if lo.mesh, err = mesh.NewProjectedMesh(solMesh, basis, solProj); err != nil {
		return nil, err
	}
	lo.fe, err = fem.New(pde.NewMixedPoisson[float64](3), hex.NewGaussQuadrature(2), dataBasis, geoBasis, basis, cfg)
	if err != nil {
		return nil, err
	}
	return lo, nil
}

// runAssemble builds the mixed Poisson problem of the configured degree on a
// box, sets a unit flux on one face and assembles the residual and a
// Jacobian-vector product. Optionally it assembles the sparse Jacobian of
// the lowest-order problem on the sub-hexes of the mesh, with boundary rows
// cleared.
func runAssemble(cfg Config, logger *slog.Logger, metrics *fem.Metrics) (AssembleSummary, error) {
	var sum AssembleSummary
	strategy, err := elemvec.ParseStrategy(cfg.Assembly.Strategy)
	if err != nil {
		return sum, err
	}
	pstrategy, err := partitions.ParseStrategy(cfg.Assembly.Partition)
	if err != nil {
		return sum, err
	}

	box := mesh.NewBox(cfg.Mesh.NX, cfg.Mesh.NY, cfg.Mesh.NZ)
	conn, err := box.Connectivity()
	if err != nil {
		return sum, err
	}

	k := cfg.Assembly.Degree
	quad := hex.NewGaussQuadrature(k + 1)
	dataBasis := element.NewFEBasis(3)
	geoBasis := element.NewFEBasis(3, hex.NewLagrangeH1(k, 3))
	basis := element.NewFEBasis(3, hex.NewQHdiv(k), hex.NewLagrangeL2(k-1, 1))

	geoMesh, err := mesh.NewElementMesh(conn, geoBasis)
	if err != nil {
		return sum, err
	}
	solMesh, err := mesh.NewElementMesh(conn, basis)
	if err != nil {
		return sum, err
	}
	sum.Elements = conn.NumElements()
	sum.DOFs = solMesh.NumDof()
	logger.Info("mesh built", "elements", sum.Elements, "dofs", sum.DOFs, "basis", basis)

	fcfg := fem.Config{
		Workers:       cfg.Assembly.Workers,
		PartitionSize: cfg.Assembly.PartitionSize,
		Strategy:      pstrategy,
		Logger:        logger,
		Metrics:       metrics,
	}
	fe, err := fem.New(pde.NewMixedPoisson[float64](3), quad, dataBasis, geoBasis, basis, fcfg)
	if err != nil {
		return sum, err
	}

	pcfg := elemvec.ParallelConfig{
		Workers:       cfg.Assembly.Workers,
		PartitionSize: cfg.Assembly.PartitionSize,
		Strategy:      pstrategy,
	}
	view := func(dm element.DofMap, vec elemvec.SolutionVector) (elemvec.ElementVector, error) {
		if strategy == elemvec.Parallel {
			return elemvec.NewParallel(dm, vec, pcfg)
		}
		return elemvec.NewSerial(dm, vec)
	}

	geoVec := elemvec.NewSolutionVector(geoMesh.NumDof())
	geoMesh.InterpolateVertexField(0, 3, box.X, geoVec)
	geo, err := view(geoMesh, geoVec)
	if err != nil {
		return sum, err
	}

	solVec := elemvec.NewSolutionVector(solMesh.NumDof())
	setter, err := elemvec.NewSerial(solMesh, solVec)
	if err != nil {
		return sum, err
	}
	dof := setter.ElementDof(0)
	flux := make([]float64, len(basis.EntityDofs(0, element.Face, 1)))
	for i := range flux {
		flux[i] = 1
	}
	basis.SetEntityDof(0, element.Face, 1, conn.EntityOrientation(0, element.Face, 1), flux, dof)
	setter.SetElementValues(0, dof)

	sol, err := view(solMesh, solVec)
	if err != nil {
		return sum, err
	}
	resVec := elemvec.NewSolutionVector(solMesh.NumDof())
	res, err := view(solMesh, resVec)
	if err != nil {
		return sum, err
	}
	if err := fe.AddResidual(elemvec.Empty{}, geo, sol, res); err != nil {
		return sum, err
	}
	sum.ResidualNorm = floats.Norm(resVec, 2)

	xVec := elemvec.NewSolutionVector(solMesh.NumDof())
	for i := range xVec {
		xVec[i] = 1
	}
	yVec := elemvec.NewSolutionVector(solMesh.NumDof())
	x, err := view(solMesh, xVec)
	if err != nil {
		return sum, err
	}
	y, err := view(solMesh, yVec)
	if err != nil {
		return sum, err
	}
	if err := fe.AddJacobianVectorProduct(elemvec.Empty{}, geo, sol, x, y); err != nil {
		return sum, err
	}
	sum.JVPNorm = floats.Norm(yVec, 2)
	logger.Info("assembled", "strategy", strategy, "residual_norm", sum.ResidualNorm, "jvp_norm", sum.JVPNorm)

	if !cfg.Assembly.Jacobian {
		return sum, nil
	}
	lo, err := newLowOrder(k, geoMesh, solMesh, dataBasis, fcfg)
	if err != nil {
		return sum, err
	}
	loGeo, err := view(lo.geoMesh, geoVec)
	if err != nil {
		return sum, err
	}
	loSol, err := view(lo.mesh, solVec)
	if err != nil {
		return sum, err
	}
	jac := elemvec.NewSparseMatrix(solMesh.NumDof())
	em, err := elemvec.NewElementMatSerial(lo.mesh, jac)
	if err != nil {
		return sum, err
	}
	if err := lo.fe.AddJacobian(elemvec.Empty{}, loGeo, loSol, em); err != nil {
		return sum, err
	}

	loX, err := view(lo.mesh, xVec)
	if err != nil {
		return sum, err
	}
	loYVec := elemvec.NewSolutionVector(solMesh.NumDof())
	loY, err := view(lo.mesh, loYVec)
	if err != nil {
		return sum, err
	}
	if err := lo.fe.AddJacobianVectorProduct(elemvec.Empty{}, loGeo, loSol, loX, loY); err != nil {
		return sum, err
	}
	var jx mat.VecDense
	jx.MulVec(jac.ToCSR(), mat.NewVecDense(len(xVec), xVec))
	sum.JacobianJVPErr = floats.Distance(jx.RawVector().Data, loYVec, math.Inf(1))

	// Flux on the x = 0 side, potential on the x = 1 side. The L2 potential
	// lives on element interiors, so the second set is empty.
	bcs1 := mesh.NewBoundaryCondition(conn, solMesh, []bool{true, false}, box.BoundaryVertices(0, 0))
	bcs2 := mesh.NewBoundaryCondition(conn, solMesh, []bool{false, true}, box.BoundaryVertices(0, 1))
	jac.ZeroRows(bcs1.DOFs(), 1)
	jac.ZeroRows(bcs2.DOFs(), 1)
	sum.BoundaryDOFs = len(bcs1.DOFs()) + len(bcs2.DOFs())
	sum.JacobianNNZ = jac.NNZ()
	logger.Info("jacobian assembled",
		"sub_elements", lo.mesh.NumElements(),
		"nnz", sum.JacobianNNZ,
		"boundary_dofs", sum.BoundaryDOFs,
		"jvp_mismatch", sum.JacobianJVPErr)
	return sum, nil
}
