package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/borzacchiello/gostp"
	"github.com/borzacchiello/gostp/internal/loader"
)

type checkOptions struct {
	noSimplify bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Decide the satisfiability of a formula",
		Long: `Simplify the formula in <file>, decide it and print sat, unsat or
unknown. On sat, the model is printed one symbol per line, sorted by name.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.noSimplify, "no-simplify", false, "send the formula to the backend unchanged")

	return cmd
}

func runCheck(rootOpts *RootOptions, opts *checkOptions, path string, cmd *cobra.Command) error {
	logger := rootOpts.logger(cmd.ErrOrStderr())
	eb := gostp.NewExprBuilder()

	p, err := loader.LoadFile(eb, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	solverOpts := []gostp.SolverOption{gostp.WithSolverLogger(logger)}
	if opts.noSimplify {
		solverOpts = append(solverOpts, gostp.WithoutSimplification())
	}
	s := gostp.NewSolver(eb, rootOpts.backend(), solverOpts...)
	for _, a := range p.Assertions {
		if err := s.Add(a); err != nil {
			return err
		}
	}

	r, err := s.Check()
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, r)
	if r != gostp.RESULT_SAT {
		return nil
	}

	m, err := s.Model()
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}
	for _, name := range m.SortedNames() {
		if v, ok := m.BVs[name]; ok {
			fmt.Fprintf(w, "%s = 0x%x\n", name, v.BigInt())
			continue
		}
		fmt.Fprintf(w, "%s = %t\n", name, m.Bools[name])
	}
	return nil
}
