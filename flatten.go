package gostp

import (
	"io"
	"log/slog"
)

// Flatten merges nested applications of an associative operator, e.g.
// (x + y) + z becomes x + y + z, but only when the inner node has no other
// reference in the formula, so that no shared structure is duplicated.
//
// The pass is not idempotent: creation-time simplifications applied between
// two runs can merge nodes, lower share counts and expose new candidates.
type Flatten struct {
	eb     *ExprBuilder
	logger *slog.Logger

	// 1 if the node has one reference in the formula, 2 if more.
	shareCount map[*Term]uint8
	fromTo     map[*Term]*Term

	removed    int
	topRemoved int
}

type FlattenOption func(*Flatten)

func WithFlattenLogger(logger *slog.Logger) FlattenOption {
	return func(f *Flatten) {
		f.logger = logger
	}
}

type FlattenStats struct {
	Removed    int
	TopRemoved int
}

func NewFlatten(eb *ExprBuilder, opts ...FlattenOption) *Flatten {
	f := &Flatten{
		eb:     eb,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Stats returns the counters of the last TopLevel call.
func (f *Flatten) Stats() FlattenStats {
	return FlattenStats{Removed: f.removed, TopRemoved: f.topRemoved}
}

func (f *Flatten) TopLevel(n *Term) *Term {
	f.shareCount = make(map[*Term]uint8)
	f.fromTo = make(map[*Term]*Term)
	f.removed = 0
	f.topRemoved = 0

	f.buildShareCount(n)
	result := f.flatten(n, true)

	f.logger.Debug("flatten",
		"removed", f.removed,
		"top_removed", f.topRemoved,
		"nodes", len(f.shareCount),
	)
	f.shareCount = nil
	f.fromTo = nil
	return result
}

func (f *Flatten) buildShareCount(n *Term) {
	if n.IsLeaf() {
		return
	}
	if c, ok := f.shareCount[n]; ok {
		if c < 2 {
			f.shareCount[n] = 2
		}
		return
	}
	f.shareCount[n] = 1
	for _, c := range n.Children() {
		f.buildShareCount(c)
	}
}

func (f *Flatten) flatten(n *Term, top bool) *Term {
	if n.IsLeaf() {
		return n
	}
	if r, ok := f.fromTo[n]; ok {
		return r
	}

	kind := n.Kind()
	assoc := IsAssociative(kind)
	children := make([]*Term, 0, n.NumChildren())
	changed := false
	for _, c := range n.Children() {
		if assoc && c.Kind() == kind && f.shareCount[c] == 1 {
			fc := f.flatten(c, false)
			children = append(children, fc.Children()...)
			f.removed++
			if top {
				f.topRemoved++
			}
			changed = true
			continue
		}
		fc := f.flatten(c, false)
		if fc != c {
			changed = true
		}
		children = append(children, fc)
	}

	result := n
	if changed {
		result = mustRebuild(f.eb, n, children)
	}
	f.fromTo[n] = result
	return result
}
