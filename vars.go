package gostp

// SymbolSet is a set of symbol terms. Sets returned by VariablesInExpression
// are shared between terms and must not be modified.
type SymbolSet map[*Term]struct{}

var emptySymbols = SymbolSet{}

// VariablesInExpression memoizes the free symbols of terms.
type VariablesInExpression struct {
	symbols map[*Term]SymbolSet
}

func NewVariablesInExpression() *VariablesInExpression {
	return &VariablesInExpression{symbols: make(map[*Term]SymbolSet)}
}

// Symbols returns the free symbols of t.
func (v *VariablesInExpression) Symbols(t *Term) SymbolSet {
	if s, ok := v.symbols[t]; ok {
		return s
	}

	var result SymbolSet
	switch {
	case t.knd == TY_SYM:
		result = SymbolSet{t: {}}
	case t.IsLeaf():
		result = emptySymbols
	default:
		// Reuse a child's set when it already covers every other child.
		var largest SymbolSet
		childSets := make([]SymbolSet, len(t.children))
		for i, c := range t.children {
			childSets[i] = v.Symbols(c)
			if len(childSets[i]) > len(largest) {
				largest = childSets[i]
			}
		}
		result = largest
		for _, cs := range childSets {
			if !subset(cs, result) {
				result = union(result, cs)
			}
		}
		if result == nil {
			result = emptySymbols
		}
	}
	v.symbols[t] = result
	return result
}

// Contains reports whether sym occurs free in t.
func (v *VariablesInExpression) Contains(sym, t *Term) bool {
	_, ok := v.Symbols(t)[sym]
	return ok
}

func (v *VariablesInExpression) Clear() {
	v.symbols = make(map[*Term]SymbolSet)
}

func subset(a, b SymbolSet) bool {
	if len(a) > len(b) {
		return false
	}
	for s := range a {
		if _, ok := b[s]; !ok {
			return false
		}
	}
	return true
}

func union(a, b SymbolSet) SymbolSet {
	r := make(SymbolSet, len(a)+len(b))
	for s := range a {
		r[s] = struct{}{}
	}
	for s := range b {
		r[s] = struct{}{}
	}
	return r
}
