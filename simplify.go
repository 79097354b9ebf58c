package gostp

import (
	"fmt"
)

// SimplifyingFactory applies node-creation-time rewrites before interning.
// It folds constants and removes neutral elements but never merges nested
// associative nodes.
type SimplifyingFactory struct {
	eb *ExprBuilder
}

func NewSimplifyingFactory(eb *ExprBuilder) SimplifyingFactory {
	return SimplifyingFactory{eb: eb}
}

func (f SimplifyingFactory) CreateExtract(child *Term, high, low uint) (*Term, error) {
	if low == 0 && high+1 == child.width {
		return child, nil
	}
	if child.knd == TY_CONST {
		c, err := child.value.Slice(high, low)
		if err != nil {
			return nil, err
		}
		return f.eb.BVConstTerm(c), nil
	}
	if child.knd == TY_EXTRACT {
		return f.eb.CreateExtract(child.children[0], child.low+high, child.low+low)
	}
	return f.eb.CreateExtract(child, high, low)
}

func (f SimplifyingFactory) CreateExtend(kind int, child *Term, n uint) (*Term, error) {
	if n == 0 {
		return child, nil
	}
	if child.knd == TY_CONST {
		c := child.value.Copy()
		if kind == TY_SEXT {
			c.SExt(n)
		} else {
			c.ZExt(n)
		}
		return f.eb.BVConstTerm(c), nil
	}
	return f.eb.CreateExtend(kind, child, n)
}

func allConst(children []*Term) bool {
	for _, c := range children {
		if !c.IsConst() {
			return false
		}
	}
	return true
}

func (f SimplifyingFactory) CreateNode(kind int, children ...*Term) (*Term, error) {
	if err := checkArity(kind, children); err != nil && !(len(children) < 2 && isBoolNary(kind)) {
		return nil, err
	}
	if allConst(children) && kind != TY_READ && kind != TY_WRITE && len(children) > 0 {
		return f.fold(kind, children)
	}

	switch kind {
	case TY_NOT, TY_NEG:
		if children[0].knd == uint8(kind) {
			return children[0].children[0], nil
		}
	case TY_BOOL_NOT:
		if children[0].knd == TY_BOOL_NOT {
			return children[0].children[0], nil
		}
	case TY_ADD, TY_OR, TY_XOR, TY_AND, TY_MUL:
		return f.bvNary(kind, children)
	case TY_CONCAT:
		return f.concat(children)
	case TY_BOOL_AND, TY_BOOL_OR:
		return f.boolAndOr(kind, children)
	case TY_BOOL_XOR:
		return f.boolXor(children)
	case TY_BOOL_IMPLIES:
		lhs, rhs := children[0], children[1]
		if lhs.IsFalse() || rhs.IsTrue() || lhs == rhs {
			return f.eb.BoolVal(true), nil
		}
		if lhs.IsTrue() {
			return rhs, nil
		}
		if rhs.IsFalse() {
			return f.CreateNode(TY_BOOL_NOT, lhs)
		}
	case TY_BOOL_IFF:
		lhs, rhs := children[0], children[1]
		if lhs == rhs {
			return f.eb.BoolVal(true), nil
		}
		if lhs.IsTrue() {
			return rhs, nil
		}
		if rhs.IsTrue() {
			return lhs, nil
		}
	case TY_EQ:
		if children[0] == children[1] {
			return f.eb.BoolVal(true), nil
		}
		if children[0].IsBool() {
			return f.CreateNode(TY_BOOL_IFF, children...)
		}
	case TY_ULE, TY_UGE, TY_SLE, TY_SGE:
		if children[0] == children[1] {
			return f.eb.BoolVal(true), nil
		}
	case TY_ULT, TY_UGT, TY_SLT, TY_SGT:
		if children[0] == children[1] {
			return f.eb.BoolVal(false), nil
		}
	case TY_SHL, TY_LSHR, TY_ASHR:
		if children[1].isZero() {
			return children[0], nil
		}
	case TY_UDIV, TY_SDIV:
		if children[1].isOne() {
			return children[0], nil
		}
	case TY_ITE:
		if children[0].IsTrue() {
			return children[1], nil
		}
		if children[0].IsFalse() {
			return children[2], nil
		}
		if children[1] == children[2] {
			return children[1], nil
		}
	case TY_READ:
		// Select(Store(a, i, v), i) == v
		arr, idx := children[0], children[1]
		if arr.knd == TY_WRITE && arr.children[1] == idx {
			return arr.children[2], nil
		}
		// Select(Store(a, c1, v), c2) == Select(a, c2) when c1 != c2
		if arr.knd == TY_WRITE && arr.children[1].knd == TY_CONST && idx.knd == TY_CONST {
			return f.CreateNode(TY_READ, arr.children[0], idx)
		}
	}
	return f.eb.CreateNode(kind, children...)
}

func isBoolNary(kind int) bool {
	return kind == TY_BOOL_AND || kind == TY_BOOL_OR || kind == TY_BOOL_XOR
}

// bvNary merges the constant operands of an associative bit-vector operator
// and drops neutral elements.
func (f SimplifyingFactory) bvNary(kind int, children []*Term) (*Term, error) {
	width := children[0].width
	var acc *BVConst
	rest := make([]*Term, 0, len(children))
	for _, c := range children {
		if c.knd != TY_CONST {
			rest = append(rest, c)
			continue
		}
		if acc == nil {
			acc = c.value.Copy()
			continue
		}
		if err := applyBinary(kind, acc, c.value); err != nil {
			return nil, err
		}
	}

	if acc != nil {
		switch {
		case kind == TY_MUL && acc.IsZero(), kind == TY_AND && acc.IsZero():
			return f.eb.BVConstTerm(acc), nil
		case kind == TY_OR && acc.HasAllBitsSet():
			return f.eb.BVConstTerm(acc), nil
		case kind == TY_MUL && acc.IsOne(),
			kind == TY_AND && acc.HasAllBitsSet(),
			(kind == TY_ADD || kind == TY_OR || kind == TY_XOR) && acc.IsZero():
		default:
			rest = append(rest, f.eb.BVConstTerm(acc))
		}
	}

	if kind == TY_XOR && len(rest) == 2 && rest[0] == rest[1] {
		return f.eb.BVV(0, width), nil
	}
	if (kind == TY_AND || kind == TY_OR) && len(rest) == 2 && rest[0] == rest[1] {
		return rest[0], nil
	}

	switch len(rest) {
	case 0:
		return f.eb.BVConstTerm(neutral(kind, width)), nil
	case 1:
		return rest[0], nil
	}
	return f.eb.CreateNode(kind, rest...)
}

// concat merges adjacent slices of the same term, e.g. x[15:8] .. x[7:0]
// becomes x[15:0].
func (f SimplifyingFactory) concat(children []*Term) (*Term, error) {
	rest := make([]*Term, 0, len(children))
	for _, c := range children {
		if n := len(rest); n > 0 {
			prev := rest[n-1]
			if prev.knd == TY_EXTRACT && c.knd == TY_EXTRACT &&
				prev.children[0] == c.children[0] && prev.low == c.high+1 {
				merged, err := f.CreateExtract(c.children[0], prev.high, c.low)
				if err != nil {
					return nil, err
				}
				rest[n-1] = merged
				continue
			}
		}
		rest = append(rest, c)
	}
	if len(rest) == 1 {
		return rest[0], nil
	}
	return f.eb.CreateNode(TY_CONCAT, rest...)
}

func neutral(kind int, width uint) *BVConst {
	switch kind {
	case TY_MUL:
		return MakeBVConst(1, width)
	case TY_AND:
		return MakeBVConst(-1, width)
	}
	return MakeBVConst(0, width)
}

func (f SimplifyingFactory) boolAndOr(kind int, children []*Term) (*Term, error) {
	absorbing := kind == TY_BOOL_OR
	seen := make(map[*Term]bool, len(children))
	rest := make([]*Term, 0, len(children))
	for _, c := range children {
		if c.knd == TY_BOOL_CONST {
			if c.boolValue == absorbing {
				return c, nil
			}
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		rest = append(rest, c)
	}
	for _, c := range rest {
		if c.knd == TY_BOOL_NOT && seen[c.children[0]] {
			return f.eb.BoolVal(absorbing), nil
		}
	}

	switch len(rest) {
	case 0:
		return f.eb.BoolVal(!absorbing), nil
	case 1:
		return rest[0], nil
	}
	return f.eb.CreateNode(kind, rest...)
}

func (f SimplifyingFactory) boolXor(children []*Term) (*Term, error) {
	parity := false
	rest := make([]*Term, 0, len(children))
	for _, c := range children {
		if c.knd == TY_BOOL_CONST {
			parity = parity != c.boolValue
			continue
		}
		rest = append(rest, c)
	}
	if len(rest) == 2 && rest[0] == rest[1] {
		rest = rest[:0]
	}

	var r *Term
	var err error
	switch len(rest) {
	case 0:
		return f.eb.BoolVal(parity), nil
	case 1:
		r = rest[0]
	default:
		r, err = f.eb.CreateNode(TY_BOOL_XOR, rest...)
		if err != nil {
			return nil, err
		}
	}
	if parity {
		return f.CreateNode(TY_BOOL_NOT, r)
	}
	return r, nil
}

func applyBinary(kind int, acc, o *BVConst) error {
	switch kind {
	case TY_AND:
		return acc.And(o)
	case TY_OR:
		return acc.Or(o)
	case TY_XOR:
		return acc.Xor(o)
	case TY_ADD:
		return acc.Add(o)
	case TY_MUL:
		return acc.Mul(o)
	case TY_SDIV:
		return acc.SDiv(o)
	case TY_UDIV:
		return acc.UDiv(o)
	case TY_SREM:
		return acc.SRem(o)
	case TY_UREM:
		return acc.URem(o)
	case TY_SHL:
		acc.Shl(o.shiftAmount())
	case TY_LSHR:
		acc.LShr(o.shiftAmount())
	case TY_ASHR:
		acc.AShr(o.shiftAmount())
	default:
		return fmt.Errorf("%s is not a binary bit-vector operator", KindName(kind))
	}
	return nil
}

func compare(kind int, lhs, rhs *BVConst) (BoolConst, error) {
	switch kind {
	case TY_ULT:
		return lhs.Ult(rhs)
	case TY_ULE:
		return lhs.Ule(rhs)
	case TY_UGT:
		return lhs.UGt(rhs)
	case TY_UGE:
		return lhs.UGe(rhs)
	case TY_SLT:
		return lhs.SLt(rhs)
	case TY_SLE:
		return lhs.SLe(rhs)
	case TY_SGT:
		return lhs.SGt(rhs)
	case TY_SGE:
		return lhs.SGe(rhs)
	}
	return lhs.Eq(rhs)
}

// fold evaluates an operator whose operands are all constants.
func (f SimplifyingFactory) fold(kind int, children []*Term) (*Term, error) {
	switch kind {
	case TY_NOT, TY_NEG:
		c := children[0].value.Copy()
		if kind == TY_NOT {
			c.Not()
		} else {
			c.Neg()
		}
		return f.eb.BVConstTerm(c), nil
	case TY_AND, TY_OR, TY_XOR, TY_ADD, TY_MUL,
		TY_SDIV, TY_UDIV, TY_SREM, TY_UREM, TY_SHL, TY_LSHR, TY_ASHR:
		acc := children[0].value.Copy()
		for _, c := range children[1:] {
			if err := applyBinary(kind, acc, c.value); err != nil {
				return nil, err
			}
		}
		return f.eb.BVConstTerm(acc), nil
	case TY_CONCAT:
		acc := children[0].value.Copy()
		for _, c := range children[1:] {
			acc.Concat(c.value)
		}
		return f.eb.BVConstTerm(acc), nil
	case TY_ULT, TY_ULE, TY_UGT, TY_UGE, TY_SLT, TY_SLE, TY_SGT, TY_SGE:
		r, err := compare(kind, children[0].value, children[1].value)
		if err != nil {
			return nil, err
		}
		return f.eb.BoolVal(r.Value), nil
	case TY_EQ:
		if children[0].IsBool() {
			return f.eb.BoolVal(children[0] == children[1]), nil
		}
		r, err := children[0].value.Eq(children[1].value)
		if err != nil {
			return nil, err
		}
		return f.eb.BoolVal(r.Value), nil
	case TY_ITE:
		if children[0].boolValue {
			return children[1], nil
		}
		return children[2], nil
	case TY_BOOL_NOT:
		return f.eb.BoolVal(!children[0].boolValue), nil
	case TY_BOOL_AND, TY_BOOL_OR, TY_BOOL_XOR, TY_BOOL_IFF, TY_BOOL_IMPLIES:
		acc := BoolConst{children[0].boolValue}
		for _, c := range children[1:] {
			o := BoolConst{c.boolValue}
			switch kind {
			case TY_BOOL_AND:
				acc = acc.And(o)
			case TY_BOOL_OR:
				acc = acc.Or(o)
			case TY_BOOL_XOR:
				acc = acc.Xor(o)
			case TY_BOOL_IFF:
				acc = acc.Iff(o)
			case TY_BOOL_IMPLIES:
				acc = acc.Implies(o)
			}
		}
		return f.eb.BoolVal(acc.Value), nil
	}
	return nil, fmt.Errorf("cannot fold %s", KindName(kind))
}

// *** Simplifying constructors ***

func (eb *ExprBuilder) simplifying() SimplifyingFactory {
	return SimplifyingFactory{eb: eb}
}

// Simplify is CreateNode with creation-time rewrites.
func (eb *ExprBuilder) Simplify(kind int, children ...*Term) (*Term, error) {
	return eb.simplifying().CreateNode(kind, children...)
}

func (eb *ExprBuilder) Add(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_ADD, lhs, rhs)
}

func (eb *ExprBuilder) Sub(lhs, rhs *Term) (*Term, error) {
	neg, err := eb.simplifying().CreateNode(TY_NEG, rhs)
	if err != nil {
		return nil, err
	}
	return eb.Add(lhs, neg)
}

func (eb *ExprBuilder) Mul(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_MUL, lhs, rhs)
}

func (eb *ExprBuilder) And(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_AND, lhs, rhs)
}

func (eb *ExprBuilder) Or(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_OR, lhs, rhs)
}

func (eb *ExprBuilder) Xor(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_XOR, lhs, rhs)
}

func (eb *ExprBuilder) Not(e *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_NOT, e)
}

func (eb *ExprBuilder) Neg(e *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_NEG, e)
}

func (eb *ExprBuilder) Extract(e *Term, high, low uint) (*Term, error) {
	return eb.simplifying().CreateExtract(e, high, low)
}

func (eb *ExprBuilder) ZExt(e *Term, n uint) (*Term, error) {
	return eb.simplifying().CreateExtend(TY_ZEXT, e, n)
}

func (eb *ExprBuilder) SExt(e *Term, n uint) (*Term, error) {
	return eb.simplifying().CreateExtend(TY_SEXT, e, n)
}

func (eb *ExprBuilder) Concat(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_CONCAT, lhs, rhs)
}

func (eb *ExprBuilder) ITE(guard, iftrue, iffalse *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_ITE, guard, iftrue, iffalse)
}

func (eb *ExprBuilder) Ult(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_ULT, lhs, rhs)
}

func (eb *ExprBuilder) Eq(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_EQ, lhs, rhs)
}

func (eb *ExprBuilder) BoolNot(e *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_BOOL_NOT, e)
}

func (eb *ExprBuilder) BoolAnd(children ...*Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_BOOL_AND, children...)
}

func (eb *ExprBuilder) BoolOr(children ...*Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_BOOL_OR, children...)
}

func (eb *ExprBuilder) Select(arr, idx *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_READ, arr, idx)
}

func (eb *ExprBuilder) Store(arr, idx, val *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_WRITE, arr, idx, val)
}

func (eb *ExprBuilder) Shl(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_SHL, lhs, rhs)
}

func (eb *ExprBuilder) LShr(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_LSHR, lhs, rhs)
}

func (eb *ExprBuilder) AShr(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_ASHR, lhs, rhs)
}

func (eb *ExprBuilder) UDiv(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_UDIV, lhs, rhs)
}

func (eb *ExprBuilder) SDiv(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_SDIV, lhs, rhs)
}

func (eb *ExprBuilder) URem(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_UREM, lhs, rhs)
}

func (eb *ExprBuilder) SRem(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_SREM, lhs, rhs)
}

func (eb *ExprBuilder) Ule(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_ULE, lhs, rhs)
}

func (eb *ExprBuilder) Ugt(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_UGT, lhs, rhs)
}

func (eb *ExprBuilder) Uge(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_UGE, lhs, rhs)
}

func (eb *ExprBuilder) Slt(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_SLT, lhs, rhs)
}

func (eb *ExprBuilder) Sle(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_SLE, lhs, rhs)
}

func (eb *ExprBuilder) Sgt(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_SGT, lhs, rhs)
}

func (eb *ExprBuilder) Sge(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_SGE, lhs, rhs)
}

func (eb *ExprBuilder) BoolXor(children ...*Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_BOOL_XOR, children...)
}

func (eb *ExprBuilder) Implies(lhs, rhs *Term) (*Term, error) {
	return eb.simplifying().CreateNode(TY_BOOL_IMPLIES, lhs, rhs)
}
