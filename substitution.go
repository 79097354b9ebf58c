package gostp

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/benbjohnson/immutable"
)

// Equation is an accepted substitution Key := Value.
type Equation struct {
	Key   *Term
	Value *Term
}

type SubstitutionOption func(*SubstitutionMap)

func WithLogger(logger *slog.Logger) SubstitutionOption {
	return func(s *SubstitutionMap) {
		s.logger = logger
	}
}

// SubstitutionMap accumulates equations var := expr discovered while
// simplifying and applies them to formulas. No accepted value depends,
// directly or through other accepted equations, on its own variable.
//
// A SubstitutionMap is not safe for concurrent use.
type SubstitutionMap struct {
	eb        *ExprBuilder
	solverMap map[*Term]*Term
	// normalized variables that already have an equation
	assigned map[*Term]struct{}

	vars *VariablesInExpression
	deps *dependencyTracker

	substitutionsLastApplied int
	logger                   *slog.Logger
}

func NewSubstitutionMap(eb *ExprBuilder, opts ...SubstitutionOption) *SubstitutionMap {
	vars := NewVariablesInExpression()
	s := &SubstitutionMap{
		eb:        eb,
		solverMap: make(map[*Term]*Term),
		assigned:  make(map[*Term]struct{}),
		vars:      vars,
		deps:      newDependencyTracker(vars),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SubstitutionMap) VariablesInExpression() *VariablesInExpression {
	return s.vars
}

func normalizedVar(key *Term) *Term {
	if key.Kind() == TY_EXTRACT {
		return key.Child(0)
	}
	return key
}

// Propose adds key := value unless the variable of key already has an
// equation, key == value, or accepting it would create a dependency cycle.
// If key is an extract, its operand is the variable. A false result leaves
// the map unchanged; the caller must then keep the equality as a conjunct.
func (s *SubstitutionMap) Propose(key, value *Term) bool {
	v := normalizedVar(key)

	if key == value {
		return false
	}
	if key.Sort() != value.Sort() || key.Width() != value.Width() || key.IndexWidth() != value.IndexWidth() {
		s.logger.Debug("substitution rejected: sort mismatch", "key", key, "value", value)
		return false
	}
	if _, ok := s.assigned[v]; ok {
		return false
	}
	if v.Kind() == TY_SYM && s.deps.wouldCycle(v, value) {
		s.logger.Debug("substitution rejected: cycle", "key", key, "value", value)
		return false
	}

	s.deps.add(v, value)
	s.solverMap[key] = value
	s.assigned[v] = struct{}{}
	s.logger.Debug("substitution accepted", "key", key, "value", value)
	return true
}

// ProposeUnchecked adds key := value without any of the checks of Propose.
//
// The caller promises that Propose(key, value) would have returned true, that
// key is a symbol, and that every equation added this way is applied with
// Apply and HaveAppliedSubstitutionMap before anything else reads the map.
// Breaking the promise can silently make the map cyclic.
func (s *SubstitutionMap) ProposeUnchecked(key, value *Term) {
	invariant(key.Kind() == TY_SYM, "ProposeUnchecked: %s is not a symbol", key)
	_, present := s.assigned[key]
	invariant(!present, "ProposeUnchecked: %s already has an equation", key)

	s.deps.add(key, value)
	s.solverMap[key] = value
	s.assigned[key] = struct{}{}
}

// termOrder returns 1 if a := b may be substituted, -1 if b := a may, and 0
// if neither orientation is usable.
func termOrder(a, b *Term) int {
	if a.Kind() == TY_SYM {
		return 1
	}
	if b.Kind() == TY_SYM {
		return -1
	}
	if isConstRead(a) && b.IsConst() {
		return 1
	}
	if isConstRead(b) && a.IsConst() {
		return -1
	}
	return 0
}

// isConstRead matches Select(array-symbol, constant).
func isConstRead(t *Term) bool {
	return t.Kind() == TY_READ && t.Child(0).Kind() == TY_SYM && t.Child(1).Kind() == TY_CONST
}

// ProposeEquality orients the equality lhs = rhs and proposes it.
func (s *SubstitutionMap) ProposeEquality(lhs, rhs *Term) bool {
	switch termOrder(lhs, rhs) {
	case 1:
		if s.Propose(lhs, rhs) {
			return true
		}
		// x = y: try the other direction
		if rhs.Kind() == TY_SYM {
			return s.Propose(rhs, lhs)
		}
		return false
	case -1:
		return s.Propose(rhs, lhs)
	}
	return false
}

func (s *SubstitutionMap) Lookup(key *Term) (*Term, bool) {
	v, ok := s.solverMap[key]
	return v, ok
}

func (s *SubstitutionMap) Contains(key *Term) bool {
	_, ok := s.solverMap[key]
	return ok
}

func (s *SubstitutionMap) Len() int {
	return len(s.solverMap)
}

// Apply replaces every key occurring in n by its value.
func (s *SubstitutionMap) Apply(n *Term) *Term {
	cache := make(map[*Term]*Term)
	return Replace(n, s.solverMap, cache, s.eb.simplifying(), false, false)
}

// ApplyUntilArrays is Apply, except that array-sorted subterms are left
// untouched.
func (s *SubstitutionMap) ApplyUntilArrays(n *Term) *Term {
	cache := make(map[*Term]*Term)
	return Replace(n, s.solverMap, cache, s.eb.simplifying(), true, false)
}

// ApplyAtTopLevel only rewrites the top-level conjunction of n: conjuncts
// that are keys, or negations of keys, are replaced by their values. The
// result replaces n; n itself is no longer a correct formula if the map was
// built from its conjuncts.
func (s *SubstitutionMap) ApplyAtTopLevel(n *Term) *Term {
	nf := s.eb.simplifying()
	conjuncts := make([]*Term, 0)
	changed := false

	var walk func(c *Term)
	walk = func(c *Term) {
		if c.Kind() == TY_BOOL_AND {
			for _, child := range c.Children() {
				walk(child)
			}
			return
		}
		if v, ok := s.solverMap[c]; ok {
			changed = true
			walk(v)
			return
		}
		if c.Kind() == TY_BOOL_NOT {
			if v, ok := s.solverMap[c.Child(0)]; ok {
				changed = true
				neg, err := nf.CreateNode(TY_BOOL_NOT, v)
				if err != nil {
					panic(err)
				}
				walk(neg)
				return
			}
		}
		conjuncts = append(conjuncts, c)
	}
	walk(n)

	if !changed {
		return n
	}
	r, err := nf.CreateNode(TY_BOOL_AND, conjuncts...)
	if err != nil {
		panic(err)
	}
	return r
}

// HasUnappliedSubstitutions reports whether equations were added since the
// last HaveAppliedSubstitutionMap.
func (s *SubstitutionMap) HasUnappliedSubstitutions() bool {
	return s.substitutionsLastApplied != len(s.solverMap)
}

// HaveAppliedSubstitutionMap marks the current equations as applied to the
// formula. Their dependencies stay recorded: a later equation must not close
// a cycle through an applied one.
func (s *SubstitutionMap) HaveAppliedSubstitutionMap() {
	s.substitutionsLastApplied = len(s.solverMap)
}

func (s *SubstitutionMap) Clear() {
	s.solverMap = make(map[*Term]*Term)
	s.assigned = make(map[*Term]struct{})
	s.deps.clear()
	s.substitutionsLastApplied = 0
}

// Snapshot returns the equations ordered by key id.
func (s *SubstitutionMap) Snapshot() *immutable.SortedMap {
	m := immutable.NewSortedMap(&uint64Comparer{})
	for k, v := range s.solverMap {
		m = m.Set(k.Id(), Equation{Key: k, Value: v})
	}
	return m
}

// Equations returns the equations ordered by key id.
func (s *SubstitutionMap) Equations() []Equation {
	snap := s.Snapshot()
	res := make([]Equation, 0, snap.Len())
	itr := snap.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		res = append(res, v.(Equation))
	}
	return res
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}

// invariant panics if condition is false.
func invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
