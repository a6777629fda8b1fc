// Command multiphysics checks the linearization of the bundled weak forms
// and assembles a mixed Poisson problem on a box mesh.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/notargets/FEAssembly/fem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	nx, ny, nz int
	degree     int
	strategy   string
	workers    int
	logLevel   string

	rootCmd = &cobra.Command{
		Use:          "multiphysics",
		Short:        "Finite-element residual and Jacobian assembly driver",
		SilenceUsage: true,
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Compare every weak form's Jacobian-vector product with a complex-step derivative",
		RunE:  runCheckCommand,
	}

	assembleCmd = &cobra.Command{
		Use:   "assemble",
		Short: "Assemble the mixed Poisson residual, a Jacobian-vector product and the Jacobian on a box",
		RunE:  runAssembleCommand,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "concurrent workers")

	assembleCmd.Flags().IntVar(&nx, "nx", 0, "elements along x")
	assembleCmd.Flags().IntVar(&ny, "ny", 0, "elements along y")
	assembleCmd.Flags().IntVar(&nz, "nz", 0, "elements along z")
	assembleCmd.Flags().IntVar(&degree, "degree", 0, "H(div) degree of the solution basis")
	assembleCmd.Flags().StringVar(&strategy, "strategy", "", "element vector strategy: serial or parallel")

	rootCmd.AddCommand(checkCmd, assembleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies the flags that were
// set on the command line.
func loadConfig(cmd *cobra.Command) (Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("nx") {
		cfg.Mesh.NX = nx
	}
	if flags.Changed("ny") {
		cfg.Mesh.NY = ny
	}
	if flags.Changed("nz") {
		cfg.Mesh.NZ = nz
	}
	if flags.Changed("degree") {
		cfg.Assembly.Degree = degree
	}
	if flags.Changed("strategy") {
		cfg.Assembly.Strategy = strategy
	}
	if flags.Changed("workers") {
		cfg.Assembly.Workers = workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

func runCheckCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	results, err := runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, fem.NewMetrics(reg))
	for _, r := range results {
		logger.Info("consistency", "case", r.Name, "max_rel_err", r.MaxRelErr, "seed", r.Seed)
	}
	return err
}

func runAssembleCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	sum, err := runAssemble(cfg, logger, fem.NewMetrics(reg))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Number of elements:            %d\n", sum.Elements)
	fmt.Fprintf(cmd.OutOrStdout(), "Number of degrees of freedom:  %d\n", sum.DOFs)
	fmt.Fprintf(cmd.OutOrStdout(), "Residual norm:                 %.6e\n", sum.ResidualNorm)
	fmt.Fprintf(cmd.OutOrStdout(), "Jacobian-vector product norm:  %.6e\n", sum.JVPNorm)
	if cfg.Assembly.Jacobian {
		fmt.Fprintf(cmd.OutOrStdout(), "Low-order Jacobian nonzeros:   %d\n", sum.JacobianNNZ)
	}

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		logger.Debug("metric", "name", mf.GetName(), "series", len(mf.GetMetric()))
	}
	return nil
}
