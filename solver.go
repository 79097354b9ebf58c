package gostp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

type Result int

const (
	RESULT_SAT Result = iota + 1
	RESULT_UNSAT
	RESULT_UNKNOWN
)

func (r Result) String() string {
	switch r {
	case RESULT_SAT:
		return "sat"
	case RESULT_UNSAT:
		return "unsat"
	}
	return "unknown"
}

var (
	ErrNoModel   = errors.New("no model available")
	ErrNameClash = errors.New("symbol name already used with another sort or width")
)

// Backend decides satisfiability of a formula.
type Backend interface {
	Check(formula *Term) (Result, error)
	// Model of the last Check that returned RESULT_SAT.
	Model() (*Model, error)
}

// ModelEvaluator is implemented by backends that can evaluate any term in the
// model of their last satisfiable Check, array reads included.
type ModelEvaluator interface {
	EvalInModel(eb *ExprBuilder, t *Term) (*Term, error)
}

type SolverOption func(*Solver)

func WithSolverLogger(logger *slog.Logger) SolverOption {
	return func(s *Solver) {
		s.logger = logger
	}
}

// WithoutSimplification sends the constraints to the backend as they are.
func WithoutSimplification() SolverOption {
	return func(s *Solver) {
		s.simplify = false
	}
}

func WithFlattenPasses(n int) SolverOption {
	return func(s *Solver) {
		s.flattenPasses = n
	}
}

// Solver collects constraints, simplifies them and queries a Backend.
type Solver struct {
	eb      *ExprBuilder
	backend Backend

	constraints      []*Term
	seen             map[*Term]struct{}
	symToConstraints map[*Term][]*Term
	symDependencies  map[*Term]map[*Term]struct{}
	// models are keyed by name
	symNames map[string]*Term

	simplify      bool
	flattenPasses int
	logger        *slog.Logger

	// state of the last query
	lastResult     Result
	lastSimplifier *Simplifier
	lastSymbols    []*Term
	lastStats      SimplifyStats
	backendUsed    bool
}

func NewSolver(eb *ExprBuilder, backend Backend, opts ...SolverOption) *Solver {
	s := &Solver{
		eb:               eb,
		backend:          backend,
		seen:             make(map[*Term]struct{}),
		symToConstraints: make(map[*Term][]*Term),
		symDependencies:  make(map[*Term]map[*Term]struct{}),
		symNames:         make(map[string]*Term),
		simplify:         true,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Solver) registerSymDependency(sym1, sym2 *Term) {
	if _, ok := s.symDependencies[sym1]; !ok {
		s.symDependencies[sym1] = make(map[*Term]struct{})
	}
	if _, ok := s.symDependencies[sym2]; !ok {
		s.symDependencies[sym2] = make(map[*Term]struct{})
	}
	s.symDependencies[sym1][sym2] = struct{}{}
	s.symDependencies[sym2][sym1] = struct{}{}
}

// Add asserts a boolean constraint.
func (s *Solver) Add(constraint *Term) error {
	if !constraint.IsBool() {
		return fmt.Errorf("constraint %s is not boolean: %w", constraint, ErrSortMismatch)
	}
	if constraint.IsTrue() {
		return nil
	}
	if _, ok := s.seen[constraint]; ok {
		return nil
	}
	syms := s.eb.InvolvedInputs(constraint)
	if err := s.checkNames(syms); err != nil {
		return err
	}
	for _, sym := range syms {
		s.symNames[sym.Name()] = sym
	}
	s.seen[constraint] = struct{}{}
	s.constraints = append(s.constraints, constraint)

	for i := 0; i < len(syms); i++ {
		s.symToConstraints[syms[i]] = append(s.symToConstraints[syms[i]], constraint)
		for j := i + 1; j < len(syms); j++ {
			s.registerSymDependency(syms[i], syms[j])
		}
	}
	return nil
}

// checkNames fails if two distinct symbols among syms and the symbols of the
// constraints share a name.
func (s *Solver) checkNames(syms []*Term) error {
	local := make(map[string]*Term, len(syms))
	for _, sym := range syms {
		prev, ok := s.symNames[sym.Name()]
		if !ok {
			prev, ok = local[sym.Name()]
		}
		if ok && prev != sym {
			return fmt.Errorf("symbol %s: %w", sym.Name(), ErrNameClash)
		}
		local[sym.Name()] = sym
	}
	return nil
}

// Pi returns the conjunction of all the constraints.
func (s *Solver) Pi() *Term {
	res, err := s.eb.BoolAnd(s.constraints...)
	if err != nil {
		// constraints are boolean
		panic(err)
	}
	return res
}

// dependentConstraints returns the constraints sharing a symbol with e,
// directly or through another constraint.
func (s *Solver) dependentConstraints(e *Term) []*Term {
	syms := make(map[*Term]struct{})
	for _, sym := range s.eb.InvolvedInputs(e) {
		syms[sym] = struct{}{}
		for other := range s.symDependencies[sym] {
			syms[other] = struct{}{}
		}
	}

	picked := make(map[*Term]struct{})
	for sym := range syms {
		for _, c := range s.symToConstraints[sym] {
			picked[c] = struct{}{}
		}
	}

	// keep insertion order
	res := make([]*Term, 0, len(picked))
	for _, c := range s.constraints {
		if _, ok := picked[c]; ok {
			res = append(res, c)
		}
	}
	return res
}

// Check decides the satisfiability of the constraints.
func (s *Solver) Check() (Result, error) {
	return s.check(s.Pi())
}

// CheckSat decides whether query is satisfiable together with the
// constraints it depends on.
func (s *Solver) CheckSat(query *Term) (Result, error) {
	if !query.IsBool() {
		return RESULT_UNKNOWN, fmt.Errorf("query %s is not boolean: %w", query, ErrSortMismatch)
	}
	if err := s.checkNames(s.eb.InvolvedInputs(query)); err != nil {
		return RESULT_UNKNOWN, err
	}
	deps := append(s.dependentConstraints(query), query)
	f, err := s.eb.BoolAnd(deps...)
	if err != nil {
		return RESULT_UNKNOWN, err
	}
	return s.check(f)
}

func (s *Solver) check(f *Term) (Result, error) {
	s.lastSymbols = s.eb.InvolvedInputs(f)
	s.lastSimplifier = nil
	s.backendUsed = false
	s.lastStats = SimplifyStats{}

	if s.simplify {
		simp := NewSimplifier(s.eb, Options{FlattenPasses: s.flattenPasses, Logger: s.logger})
		f, s.lastStats = simp.Simplify(f)
		s.lastSimplifier = simp
		s.logger.Debug("simplified query",
			"rounds", s.lastStats.Rounds,
			"substitutions", s.lastStats.Substitutions,
		)
	}

	switch {
	case f.IsTrue():
		s.lastResult = RESULT_SAT
	case f.IsFalse():
		s.lastResult = RESULT_UNSAT
	default:
		r, err := s.backend.Check(f)
		if err != nil {
			s.lastResult = RESULT_UNKNOWN
			return RESULT_UNKNOWN, fmt.Errorf("backend: %w", err)
		}
		s.backendUsed = true
		s.lastResult = r
	}
	return s.lastResult, nil
}

// LastStats returns the simplification counters of the last query.
func (s *Solver) LastStats() SimplifyStats {
	return s.lastStats
}

// Model returns a model of the last satisfiable query, covering every
// bit-vector and boolean symbol of the query, including the ones removed by
// substitution. Symbols the backend left unconstrained are zero or false.
func (s *Solver) Model() (*Model, error) {
	if s.lastResult != RESULT_SAT {
		return nil, ErrNoModel
	}

	m := NewModel()
	if s.backendUsed {
		bm, err := s.backend.Model()
		if err != nil {
			return nil, fmt.Errorf("backend: %w", err)
		}
		for k, v := range bm.BVs {
			m.BVs[k] = v
		}
		for k, v := range bm.Bools {
			m.Bools[k] = v
		}
	}

	var eqs []Equation
	if s.lastSimplifier != nil {
		eqs = s.lastSimplifier.Equations()
	}
	substituted := make(map[*Term]struct{}, len(eqs))
	for _, eq := range eqs {
		substituted[eq.Key] = struct{}{}
	}

	s.completeModel(m, s.lastSymbols, substituted)
	for _, eq := range eqs {
		if eq.Key.Kind() != TY_SYM || eq.Key.IsArray() {
			continue
		}
		value := s.lastSimplifier.Resolve(eq.Value)
		s.completeModel(m, s.eb.InvolvedInputs(value), substituted)

		r, err := s.eb.Eval(value, m)
		if err != nil {
			return nil, fmt.Errorf("value of %s: %w", eq.Key.Name(), err)
		}
		if !r.IsConst() {
			r, err = s.evalReads(r)
			if err != nil {
				return nil, fmt.Errorf("value of %s: %w", eq.Key.Name(), err)
			}
		}
		if eq.Key.IsBool() {
			b, err := r.GetBool()
			if err != nil {
				return nil, fmt.Errorf("value of %s: %w", eq.Key.Name(), err)
			}
			m.Bools[eq.Key.Name()] = b
			continue
		}
		c, err := r.GetConst()
		if err != nil {
			return nil, fmt.Errorf("value of %s: %w", eq.Key.Name(), err)
		}
		m.BVs[eq.Key.Name()] = c
	}
	return m, nil
}

// evalReads evaluates the array reads left in t once every bit-vector and
// boolean symbol is assigned. The backend answers if it saw the query and can
// evaluate terms; otherwise every array element is zero.
func (s *Solver) evalReads(t *Term) (*Term, error) {
	if ev, ok := s.backend.(ModelEvaluator); ok && s.backendUsed {
		return ev.EvalInModel(s.eb, t)
	}

	fromTo := make(map[*Term]*Term)
	visited := make(map[*Term]struct{})
	var walk func(n *Term)
	walk = func(n *Term) {
		if _, ok := visited[n]; ok {
			return
		}
		visited[n] = struct{}{}
		if n.Kind() == TY_READ && n.Child(0).Kind() == TY_SYM {
			fromTo[n] = s.eb.BVV(0, n.Width())
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(t)
	return Replace(t, fromTo, make(map[*Term]*Term), s.eb.simplifying(), false, false), nil
}

// completeModel assigns a default value to the symbols of syms that are
// neither in m nor substituted.
func (s *Solver) completeModel(m *Model, syms []*Term, substituted map[*Term]struct{}) {
	for _, sym := range syms {
		if _, ok := substituted[sym]; ok {
			continue
		}
		switch {
		case sym.IsBV():
			if _, ok := m.BVs[sym.Name()]; !ok {
				m.BVs[sym.Name()] = MakeBVConst(0, sym.Width())
			}
		case sym.IsBool():
			if _, ok := m.Bools[sym.Name()]; !ok {
				m.Bools[sym.Name()] = false
			}
		}
	}
}
