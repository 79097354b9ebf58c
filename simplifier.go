package gostp

import (
	"io"
	"log/slog"
)

type Options struct {
	// Number of Flatten.TopLevel runs after substitution. Zero means one.
	FlattenPasses int
	Logger        *slog.Logger
}

type SimplifyStats struct {
	Rounds         int
	Substitutions  int
	KeptEqualities int
	Flatten        []FlattenStats
}

// Simplifier turns top-level equalities of a formula into substitutions,
// applies them until no new one is found and flattens the result.
//
// The returned formula is equisatisfiable with the input; a model of it is
// extended to a model of the input with the values of Equations.
type Simplifier struct {
	eb      *ExprBuilder
	subst   *SubstitutionMap
	flatten *Flatten
	passes  int
	logger  *slog.Logger
}

func NewSimplifier(eb *ExprBuilder, opts Options) *Simplifier {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	passes := opts.FlattenPasses
	if passes <= 0 {
		passes = 1
	}
	return &Simplifier{
		eb:      eb,
		subst:   NewSubstitutionMap(eb, WithLogger(logger)),
		flatten: NewFlatten(eb, WithFlattenLogger(logger)),
		passes:  passes,
		logger:  logger,
	}
}

// Conjuncts returns the leaves of the top-level conjunction of f.
func Conjuncts(f *Term) []*Term {
	res := make([]*Term, 0)
	var walk func(t *Term)
	walk = func(t *Term) {
		if t.Kind() == TY_BOOL_AND {
			for _, c := range t.Children() {
				walk(c)
			}
			return
		}
		res = append(res, t)
	}
	walk(f)
	return res
}

// propose offers the substitution implied by the conjunct c, if any.
func (s *Simplifier) propose(c *Term) bool {
	switch c.Kind() {
	case TY_EQ, TY_BOOL_IFF:
		return s.subst.ProposeEquality(c.Child(0), c.Child(1))
	case TY_SYM:
		return s.subst.Propose(c, s.eb.BoolVal(true))
	case TY_BOOL_NOT:
		if c.Child(0).Kind() == TY_SYM {
			return s.subst.Propose(c.Child(0), s.eb.BoolVal(false))
		}
	}
	return false
}

func (s *Simplifier) Simplify(formula *Term) (*Term, SimplifyStats) {
	stats := SimplifyStats{}
	f := formula
	for {
		stats.Rounds++
		kept := make([]*Term, 0)
		accepted := 0
		for _, c := range Conjuncts(f) {
			if s.propose(c) {
				accepted++
				continue
			}
			kept = append(kept, c)
		}
		s.logger.Debug("substitution round",
			"round", stats.Rounds,
			"accepted", accepted,
			"kept", len(kept),
		)
		if !s.subst.HasUnappliedSubstitutions() {
			break
		}
		stats.Substitutions += accepted

		r, err := s.eb.BoolAnd(kept...)
		if err != nil {
			// conjuncts of a well-formed formula are boolean
			panic(err)
		}
		f = s.subst.Apply(r)
		s.subst.HaveAppliedSubstitutionMap()
		if f.IsConst() {
			break
		}
	}

	for _, c := range Conjuncts(f) {
		if c.Kind() == TY_EQ || c.Kind() == TY_BOOL_IFF {
			stats.KeptEqualities++
		}
	}

	for i := 0; i < s.passes; i++ {
		f = s.flatten.TopLevel(f)
		stats.Flatten = append(stats.Flatten, s.flatten.Stats())
	}
	return f, stats
}

// Equations returns the accepted substitutions ordered by key id.
func (s *Simplifier) Equations() []Equation {
	return s.subst.Equations()
}

// Resolve rewrites t with every accepted substitution, so that no key occurs
// in the result.
func (s *Simplifier) Resolve(t *Term) *Term {
	return s.subst.Apply(t)
}
