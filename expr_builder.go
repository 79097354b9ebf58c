package gostp

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrSortMismatch  = errors.New("sort mismatch")
	ErrWidthMismatch = errors.New("width mismatch")
	ErrArity         = errors.New("wrong number of children")
)

// NodeFactory creates canonical terms from a kind and interned children.
type NodeFactory interface {
	CreateNode(kind int, children ...*Term) (*Term, error)
	CreateExtract(child *Term, high, low uint) (*Term, error)
	CreateExtend(kind int, child *Term, n uint) (*Term, error)
}

type ExprBuilderStats struct {
	CacheHits    uint
	CacheLookups uint
	CachedTerms  uint
}

// ExprBuilder is the interning table. Terms built by different builders must
// never be mixed.
type ExprBuilder struct {
	lock   sync.Mutex
	cache  map[uint64][]*Term
	nextId uint64

	Stats ExprBuilderStats
}

func NewExprBuilder() *ExprBuilder {
	return &ExprBuilder{
		cache:  map[uint64][]*Term{},
		nextId: 1,
	}
}

func (eb *ExprBuilder) LogStats(logger *slog.Logger) {
	eb.lock.Lock()
	defer eb.lock.Unlock()

	ratio := 0.0
	if eb.Stats.CacheLookups > 0 {
		ratio = float64(eb.Stats.CacheHits) / float64(eb.Stats.CacheLookups) * 100
	}
	logger.Info("expression builder stats",
		"hits", eb.Stats.CacheHits,
		"hit_ratio", fmt.Sprintf("%.03f%%", ratio),
		"cached", eb.Stats.CachedTerms,
	)
}

func (eb *ExprBuilder) getOrCreate(t *Term) *Term {
	eb.lock.Lock()
	defer eb.lock.Unlock()
	eb.Stats.CacheLookups += 1

	h := t.hash()
	bucket := eb.cache[h]
	for i := 0; i < len(bucket); i++ {
		if bucket[i].shallowEq(t) {
			eb.Stats.CacheHits += 1
			return bucket[i]
		}
	}
	eb.Stats.CachedTerms += 1

	t.h = h
	t.id = eb.nextId
	eb.nextId += 1
	eb.cache[h] = append(bucket, t)
	return t
}

// *** Leaves ***

func (eb *ExprBuilder) BVV(val int64, size uint) *Term {
	return eb.BVConstTerm(MakeBVConst(val, size))
}

func (eb *ExprBuilder) BVConstTerm(c *BVConst) *Term {
	return eb.getOrCreate(&Term{knd: TY_CONST, srt: SORT_BV, width: c.Size, value: c.Copy()})
}

// BVS returns the bit-vector symbol name of the given width. Symbols are
// interned by name, sort and width, so the same name at two widths gives two
// distinct symbols; models are keyed by name, and Solver rejects such clashes.
func (eb *ExprBuilder) BVS(name string, size uint) *Term {
	return eb.getOrCreate(&Term{knd: TY_SYM, srt: SORT_BV, width: size, name: name})
}

func (eb *ExprBuilder) BoolS(name string) *Term {
	return eb.getOrCreate(&Term{knd: TY_SYM, srt: SORT_BOOL, name: name})
}

func (eb *ExprBuilder) BoolVal(v bool) *Term {
	return eb.getOrCreate(&Term{knd: TY_BOOL_CONST, srt: SORT_BOOL, boolValue: v})
}

func (eb *ExprBuilder) ArrayS(name string, indexWidth, valueWidth uint) *Term {
	return eb.getOrCreate(&Term{knd: TY_SYM, srt: SORT_ARRAY, width: valueWidth, indexWidth: indexWidth, name: name})
}

// *** Hashing-only node creation ***

func checkArity(kind int, children []*Term) error {
	info, ok := kindTable[kind]
	if !ok || info.arity == 0 {
		return fmt.Errorf("CreateNode(%d): not an operator kind", kind)
	}
	if info.arity < 0 && len(children) < 2 {
		return fmt.Errorf("CreateNode(%s): %d children: %w", info.name, len(children), ErrArity)
	}
	if info.arity > 0 && len(children) != info.arity {
		return fmt.Errorf("CreateNode(%s): %d children: %w", info.name, len(children), ErrArity)
	}
	return nil
}

func requireSort(kind int, srt uint8, children ...*Term) error {
	for _, c := range children {
		if c.srt != srt {
			return fmt.Errorf("%s: operand %s: %w", KindName(kind), c, ErrSortMismatch)
		}
	}
	return nil
}

func requireSameWidth(kind int, children ...*Term) error {
	for _, c := range children[1:] {
		if c.width != children[0].width || c.indexWidth != children[0].indexWidth {
			return fmt.Errorf("%s: operand %s: %w", KindName(kind), c, ErrWidthMismatch)
		}
	}
	return nil
}

// CreateNode interns kind(children...) without any simplification.
func (eb *ExprBuilder) CreateNode(kind int, children ...*Term) (*Term, error) {
	if kind == TY_EXTRACT || kind == TY_ZEXT || kind == TY_SEXT {
		return nil, fmt.Errorf("CreateNode(%s): needs parameters", KindName(kind))
	}
	if err := checkArity(kind, children); err != nil {
		return nil, err
	}

	t := &Term{knd: uint8(kind), children: append([]*Term(nil), children...)}
	switch {
	case kind == TY_NOT || kind == TY_NEG ||
		(kind >= TY_SHL && kind <= TY_UREM):
		if err := requireSort(kind, SORT_BV, children...); err != nil {
			return nil, err
		}
		if err := requireSameWidth(kind, children...); err != nil {
			return nil, err
		}
		t.srt = SORT_BV
		t.width = children[0].width
	case isComparison(kind):
		if err := requireSort(kind, SORT_BV, children...); err != nil {
			return nil, err
		}
		if err := requireSameWidth(kind, children...); err != nil {
			return nil, err
		}
		t.srt = SORT_BOOL
	case kind == TY_EQ:
		if err := requireSort(kind, children[0].srt, children[1]); err != nil {
			return nil, err
		}
		if err := requireSameWidth(kind, children...); err != nil {
			return nil, err
		}
		t.srt = SORT_BOOL
	case kind == TY_CONCAT:
		if err := requireSort(kind, SORT_BV, children...); err != nil {
			return nil, err
		}
		t.srt = SORT_BV
		for _, c := range children {
			t.width += c.width
		}
	case kind == TY_ITE:
		if err := requireSort(kind, SORT_BOOL, children[0]); err != nil {
			return nil, err
		}
		if err := requireSort(kind, children[1].srt, children[2]); err != nil {
			return nil, err
		}
		if err := requireSameWidth(kind, children[1:]...); err != nil {
			return nil, err
		}
		t.srt = children[1].srt
		t.width = children[1].width
		t.indexWidth = children[1].indexWidth
	case kind >= TY_BOOL_NOT && kind <= TY_BOOL_IMPLIES:
		if err := requireSort(kind, SORT_BOOL, children...); err != nil {
			return nil, err
		}
		t.srt = SORT_BOOL
	case kind == TY_READ:
		arr, idx := children[0], children[1]
		if err := requireSort(kind, SORT_ARRAY, arr); err != nil {
			return nil, err
		}
		if err := requireSort(kind, SORT_BV, idx); err != nil {
			return nil, err
		}
		if idx.width != arr.indexWidth {
			return nil, fmt.Errorf("%s: index %s: %w", KindName(kind), idx, ErrWidthMismatch)
		}
		t.srt = SORT_BV
		t.width = arr.width
	case kind == TY_WRITE:
		arr, idx, val := children[0], children[1], children[2]
		if err := requireSort(kind, SORT_ARRAY, arr); err != nil {
			return nil, err
		}
		if err := requireSort(kind, SORT_BV, idx, val); err != nil {
			return nil, err
		}
		if idx.width != arr.indexWidth || val.width != arr.width {
			return nil, fmt.Errorf("%s: %w", KindName(kind), ErrWidthMismatch)
		}
		t.srt = SORT_ARRAY
		t.width = arr.width
		t.indexWidth = arr.indexWidth
	default:
		return nil, fmt.Errorf("CreateNode(%d): not an operator kind", kind)
	}
	return eb.getOrCreate(t), nil
}

func (eb *ExprBuilder) CreateExtract(child *Term, high, low uint) (*Term, error) {
	if child.srt != SORT_BV {
		return nil, fmt.Errorf("extract: %w", ErrSortMismatch)
	}
	if high < low {
		return nil, fmt.Errorf("extract: high < low")
	}
	if high >= child.width {
		return nil, fmt.Errorf("extract: high %d out of range for width %d", high, child.width)
	}
	t := &Term{knd: TY_EXTRACT, srt: SORT_BV, width: high - low + 1, high: high, low: low, children: []*Term{child}}
	return eb.getOrCreate(t), nil
}

// CreateExtend builds TY_ZEXT or TY_SEXT adding n bits.
func (eb *ExprBuilder) CreateExtend(kind int, child *Term, n uint) (*Term, error) {
	if kind != TY_ZEXT && kind != TY_SEXT {
		return nil, fmt.Errorf("CreateExtend(%s): not an extension", KindName(kind))
	}
	if child.srt != SORT_BV {
		return nil, fmt.Errorf("%s: %w", KindName(kind), ErrSortMismatch)
	}
	if n == 0 {
		return nil, fmt.Errorf("trying to create an extension with n == 0")
	}
	t := &Term{knd: uint8(kind), srt: SORT_BV, width: child.width + n, children: []*Term{child}}
	return eb.getOrCreate(t), nil
}

// rebuild creates a node like t but with different children.
func rebuild(nf NodeFactory, t *Term, children []*Term) (*Term, error) {
	switch t.knd {
	case TY_EXTRACT:
		return nf.CreateExtract(children[0], t.high, t.low)
	case TY_ZEXT, TY_SEXT:
		return nf.CreateExtend(int(t.knd), children[0], t.width-t.children[0].width)
	}
	return nf.CreateNode(int(t.knd), children...)
}

func mustRebuild(nf NodeFactory, t *Term, children []*Term) *Term {
	r, err := rebuild(nf, t, children)
	if err != nil {
		// children always have the sorts of the originals
		panic(err)
	}
	return r
}

// InvolvedInputs returns the symbols occurring in e, in discovery order.
func (eb *ExprBuilder) InvolvedInputs(e *Term) []*Term {
	queue := make([]*Term, 0)
	visited := make(map[*Term]bool)
	symbols := make([]*Term, 0)

	queue = append(queue, e)
	for len(queue) > 0 {
		el := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if visited[el] {
			continue
		}
		visited[el] = true

		if el.Kind() == TY_SYM {
			symbols = append(symbols, el)
			continue
		}

		queue = append(queue, el.children...)
	}
	return symbols
}
