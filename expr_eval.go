package gostp

import (
	"fmt"
	"sort"
)

// Model assigns values to symbols by name.
type Model struct {
	BVs   map[string]*BVConst
	Bools map[string]bool
}

func NewModel() *Model {
	return &Model{
		BVs:   make(map[string]*BVConst),
		Bools: make(map[string]bool),
	}
}

// SortedNames returns the names of the symbols of m in lexical order.
func (m *Model) SortedNames() []string {
	names := make([]string, 0, len(m.BVs)+len(m.Bools))
	for k := range m.BVs {
		names = append(names, k)
	}
	for k := range m.Bools {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Eval substitutes the symbols assigned by interpr and folds constants.
// Unassigned symbols are left in place, so the result is a constant only if
// every symbol of e is assigned.
func (eb *ExprBuilder) Eval(e *Term, interpr *Model) (*Term, error) {
	cache := make(map[*Term]*Term)
	return eb.evalInternal(e, cache, interpr)
}

// EvalBool evaluates a formula to a truth value.
func (eb *ExprBuilder) EvalBool(e *Term, interpr *Model) (bool, error) {
	r, err := eb.Eval(e, interpr)
	if err != nil {
		return false, err
	}
	return r.GetBool()
}

func (eb *ExprBuilder) evalInternal(e *Term, cache map[*Term]*Term, interpr *Model) (*Term, error) {
	if r, ok := cache[e]; ok {
		return r, nil
	}

	var result *Term
	switch e.Kind() {
	case TY_SYM:
		result = e
		if e.IsBV() {
			if c, ok := interpr.BVs[e.Name()]; ok {
				if c.Size != e.Width() {
					return nil, fmt.Errorf("value of %s has width %d, want %d: %w", e.Name(), c.Size, e.Width(), ErrWidthMismatch)
				}
				result = eb.BVConstTerm(c)
			}
		} else if e.IsBool() {
			if b, ok := interpr.Bools[e.Name()]; ok {
				result = eb.BoolVal(b)
			}
		}
	case TY_CONST, TY_BOOL_CONST:
		result = e
	default:
		children := make([]*Term, e.NumChildren())
		for i, c := range e.Children() {
			r, err := eb.evalInternal(c, cache, interpr)
			if err != nil {
				return nil, err
			}
			children[i] = r
		}
		r, err := rebuild(eb.simplifying(), e, children)
		if err != nil {
			return nil, err
		}
		result = r
	}

	cache[e] = result
	return result, nil
}
