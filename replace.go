package gostp

// Replace rewrites every node of n that is a key of fromTo, bottom-up, with
// cache memoizing the result for each visited node so that shared subterms
// are rewritten once.
//
// When preventInfiniteLoops is false, values are rewritten again until they
// contain no keys, and fromTo is updated in place to the final values. That
// only terminates if fromTo is acyclic. When preventInfiniteLoops is true,
// values are used as they are and a node produced by rebuilding is rewritten
// at most once more, which terminates for any fromTo.
func Replace(n *Term, fromTo map[*Term]*Term, cache map[*Term]*Term, nf NodeFactory, stopAtArrays, preventInfiniteLoops bool) *Term {
	k := n.Kind()
	if k == TY_CONST || k == TY_BOOL_CONST {
		return n
	}
	if r, ok := cache[n]; ok {
		return r
	}

	if r, ok := fromTo[n]; ok {
		if preventInfiniteLoops {
			return r
		}
		replaced := Replace(r, fromTo, cache, nf, stopAtArrays, preventInfiniteLoops)
		if replaced != r {
			fromTo[n] = replaced
		}
		return replaced
	}

	if k == TY_SYM {
		return n
	}
	if stopAtArrays && n.IsArray() {
		return n
	}

	children := n.Children()
	newChildren := make([]*Term, len(children))
	changed := false
	for i, c := range children {
		newChildren[i] = Replace(c, fromTo, cache, nf, stopAtArrays, preventInfiniteLoops)
		if newChildren[i] != c {
			changed = true
		}
	}
	if !changed {
		cache[n] = n
		return n
	}

	result := mustRebuild(nf, n, newChildren)

	// The rebuilt node may itself be a key, e.g. Select(A, x) with
	// {x -> 0, Select(A, 0) -> 1}.
	if _, ok := fromTo[result]; ok {
		if preventInfiniteLoops {
			cache[n] = result
		}
		result = Replace(result, fromTo, cache, nf, stopAtArrays, preventInfiniteLoops)
	}
	cache[n] = result
	return result
}
