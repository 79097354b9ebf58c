package gostp

// dependencyTracker records, for every accepted equation v := rhs, the free
// symbols of rhs. It answers whether accepting a new equation would make a
// variable depend on itself.
type dependencyTracker struct {
	vars *VariablesInExpression

	dependsOn map[*Term]SymbolSet
	rhs       []*Term

	// union of the symbols of every rhs in rhsFolded
	rhsVars   SymbolSet
	rhsFolded map[*Term]struct{}
}

func newDependencyTracker(vars *VariablesInExpression) *dependencyTracker {
	d := &dependencyTracker{vars: vars}
	d.clear()
	return d
}

func (d *dependencyTracker) clear() {
	d.dependsOn = make(map[*Term]SymbolSet)
	d.rhs = nil
	d.rhsVars = make(SymbolSet)
	d.rhsFolded = make(map[*Term]struct{})
}

func (d *dependencyTracker) add(v, rhs *Term) {
	d.dependsOn[v] = d.vars.Symbols(rhs)
	d.rhs = append(d.rhs, rhs)
}

func (d *dependencyTracker) foldRHS() {
	for _, r := range d.rhs {
		if _, ok := d.rhsFolded[r]; ok {
			continue
		}
		d.rhsFolded[r] = struct{}{}
		for s := range d.vars.Symbols(r) {
			d.rhsVars[s] = struct{}{}
		}
	}
	d.rhs = d.rhs[:0]
}

// wouldCycle reports whether v is reachable from the symbols of rhs through
// the accepted equations.
func (d *dependencyTracker) wouldCycle(v, rhs *Term) bool {
	if rhs.IsConst() {
		return false
	}
	syms := d.vars.Symbols(rhs)
	if _, ok := syms[v]; ok {
		return true
	}
	if len(d.dependsOn) == 0 {
		return false
	}

	// Every transitive step goes through the symbols of some accepted rhs.
	d.foldRHS()
	if _, ok := d.rhsVars[v]; !ok {
		return false
	}

	visited := make(map[*Term]struct{})
	stack := make([]*Term, 0, len(syms))
	for s := range syms {
		stack = append(stack, s)
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[s]; ok {
			continue
		}
		visited[s] = struct{}{}
		if s == v {
			return true
		}
		for next := range d.dependsOn[s] {
			stack = append(stack, next)
		}
	}
	return false
}
