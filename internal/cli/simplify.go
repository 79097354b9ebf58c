package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/borzacchiello/gostp"
	"github.com/borzacchiello/gostp/internal/loader"
)

type simplifyOptions struct {
	flattenPasses int
	diff          bool
	equations     bool
}

// NewSimplifyCommand creates the simplify command.
func NewSimplifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &simplifyOptions{}

	cmd := &cobra.Command{
		Use:   "simplify <file>",
		Short: "Print the simplified formula",
		Long: `Substitute the top-level equalities of the formula in <file>, flatten
the result and print it.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimplify(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.flattenPasses, "flatten-passes", 1, "number of flattening passes")
	cmd.Flags().BoolVar(&opts.diff, "diff", false, "print a diff between the input and the simplified formula")
	cmd.Flags().BoolVar(&opts.equations, "equations", false, "print the accepted substitutions")

	return cmd
}

func runSimplify(rootOpts *RootOptions, opts *simplifyOptions, path string, cmd *cobra.Command) error {
	logger := rootOpts.logger(cmd.ErrOrStderr())
	eb := gostp.NewExprBuilder()

	p, err := loader.LoadFile(eb, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	formula, err := p.Formula(eb)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	simp := gostp.NewSimplifier(eb, gostp.Options{
		FlattenPasses: opts.flattenPasses,
		Logger:        logger,
	})
	result, stats := simp.Simplify(formula)
	logger.Debug("simplified",
		"rounds", stats.Rounds,
		"substitutions", stats.Substitutions,
		"kept_equalities", stats.KeptEqualities,
	)
	eb.LogStats(logger)

	w := cmd.OutOrStdout()
	if opts.equations {
		for _, eq := range simp.Equations() {
			fmt.Fprintf(w, "%s := %s\n", eq.Key, eq.Value)
		}
	}
	if opts.diff {
		writeDiff(w, formula.String(), result.String())
		return nil
	}
	fmt.Fprintln(w, result)
	return nil
}

// writeDiff prints a character diff of from and to. Deleted text is written
// as [-text-], inserted text as {+text+}.
func writeDiff(w io.Writer, from, to string) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(from, to, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	del := color.New(color.FgRed).SprintFunc()
	ins := color.New(color.FgGreen).SprintFunc()

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString(del("[-" + d.Text + "-]"))
		case diffmatchpatch.DiffInsert:
			b.WriteString(ins("{+" + d.Text + "+}"))
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		}
	}
	fmt.Fprintln(w, b.String())
}
