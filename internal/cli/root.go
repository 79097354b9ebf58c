package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/borzacchiello/gostp"
	"github.com/borzacchiello/gostp/z3backend"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool

	// NewBackend creates the decision procedure used by check. Defaults to z3.
	NewBackend func() gostp.Backend
}

func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) backend() gostp.Backend {
	if o.NewBackend != nil {
		return o.NewBackend()
	}
	return z3backend.New()
}

// NewRootCommand creates the root command for the gostp CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gostp",
		Short: "Bit-vector formula simplifier",
		Long: `Simplify quantifier-free bit-vector and array formulas by substituting
top-level equalities and flattening associative operators, and decide
them with z3.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewSimplifyCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}
