package z3backend

import (
	"fmt"

	"github.com/aclements/go-z3/z3"

	"github.com/borzacchiello/gostp"
)

// Backend decides formulas with z3. It is not safe for concurrent use.
type Backend struct {
	ctx    *z3.Context
	cfg    *z3.Config
	solver *z3.Solver

	lastSymbols map[*gostp.Term]z3.Value
}

func New() *Backend {
	cfg := z3.NewContextConfig()
	ctx := z3.NewContext(cfg)
	return &Backend{
		ctx:    ctx,
		cfg:    cfg,
		solver: z3.NewSolver(ctx),
	}
}

func (s *Backend) Check(query *gostp.Term) (gostp.Result, error) {
	s.solver.Reset()
	s.lastSymbols = make(map[*gostp.Term]z3.Value)

	cache := make(map[*gostp.Term]z3.Value)
	for _, c := range gostp.Conjuncts(query) {
		z3query, err := s.convert(c, cache)
		if err != nil {
			return gostp.RESULT_UNKNOWN, err
		}
		s.solver.Assert(z3query.(z3.Bool))
	}

	r, err := s.solver.Check()
	if err != nil {
		return gostp.RESULT_UNKNOWN, nil
	}
	if r {
		return gostp.RESULT_SAT, nil
	}
	return gostp.RESULT_UNSAT, nil
}

// Model returns the values of the bit-vector and boolean symbols of the last
// query. Array symbols are not reported.
func (s *Backend) Model() (*gostp.Model, error) {
	m := s.solver.Model()
	if m == nil {
		return nil, gostp.ErrNoModel
	}

	res := gostp.NewModel()
	for sym, v := range s.lastSymbols {
		switch v := v.(type) {
		case z3.BV:
			val, ok := m.Eval(v, true).(z3.BV).AsBigUnsigned()
			if !ok {
				return nil, fmt.Errorf("value of %s is not a literal", sym.Name())
			}
			res.BVs[sym.Name()] = gostp.MakeBVConstFromBigint(val, sym.Width())
		case z3.Bool:
			val, ok := m.Eval(v, true).(z3.Bool).AsBool()
			if !ok {
				return nil, fmt.Errorf("value of %s is not a literal", sym.Name())
			}
			res.Bools[sym.Name()] = val
		}
	}
	return res, nil
}

// EvalInModel evaluates t in the model of the last satisfiable query. Symbols
// the query did not mention get z3's default values.
func (s *Backend) EvalInModel(eb *gostp.ExprBuilder, t *gostp.Term) (*gostp.Term, error) {
	m := s.solver.Model()
	if m == nil {
		return nil, gostp.ErrNoModel
	}

	saved := s.lastSymbols
	s.lastSymbols = make(map[*gostp.Term]z3.Value)
	defer func() { s.lastSymbols = saved }()

	v, err := s.convert(t, make(map[*gostp.Term]z3.Value))
	if err != nil {
		return nil, err
	}
	switch v := m.Eval(v, true).(type) {
	case z3.BV:
		val, ok := v.AsBigUnsigned()
		if !ok {
			return nil, fmt.Errorf("value of %s is not a literal", t)
		}
		return eb.BVConstTerm(gostp.MakeBVConstFromBigint(val, t.Width())), nil
	case z3.Bool:
		val, ok := v.AsBool()
		if !ok {
			return nil, fmt.Errorf("value of %s is not a literal", t)
		}
		return eb.BoolVal(val), nil
	}
	return nil, fmt.Errorf("cannot evaluate %s: %w", t, gostp.ErrSortMismatch)
}

func (s *Backend) convertBV(e *gostp.Term, cache map[*gostp.Term]z3.Value) (z3.BV, error) {
	v, err := s.convert(e, cache)
	if err != nil {
		return z3.BV{}, err
	}
	return v.(z3.BV), nil
}

func (s *Backend) convertBool(e *gostp.Term, cache map[*gostp.Term]z3.Value) (z3.Bool, error) {
	v, err := s.convert(e, cache)
	if err != nil {
		return z3.Bool{}, err
	}
	return v.(z3.Bool), nil
}

func (s *Backend) convertBVs(children []*gostp.Term, cache map[*gostp.Term]z3.Value) ([]z3.BV, error) {
	res := make([]z3.BV, len(children))
	for i, c := range children {
		v, err := s.convertBV(c, cache)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func (s *Backend) convertBools(children []*gostp.Term, cache map[*gostp.Term]z3.Value) ([]z3.Bool, error) {
	res := make([]z3.Bool, len(children))
	for i, c := range children {
		v, err := s.convertBool(c, cache)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func (s *Backend) convert(e *gostp.Term, cache map[*gostp.Term]z3.Value) (z3.Value, error) {
	if v, ok := cache[e]; ok {
		return v, nil
	}

	var result z3.Value
	switch e.Kind() {
	case gostp.TY_SYM:
		switch {
		case e.IsBV():
			result = s.ctx.BVConst(e.Name(), int(e.Width()))
		case e.IsBool():
			result = s.ctx.BoolConst(e.Name())
		default:
			sort := s.ctx.ArraySort(s.ctx.BVSort(int(e.IndexWidth())), s.ctx.BVSort(int(e.Width())))
			result = s.ctx.Const(e.Name(), sort)
		}
		s.lastSymbols[e] = result
	case gostp.TY_CONST:
		c, _ := e.GetConst()
		result = s.ctx.FromBigInt(c.BigInt(), s.ctx.BVSort(int(e.Width())))
	case gostp.TY_BOOL_CONST:
		b, _ := e.GetBool()
		result = s.ctx.FromBool(b)
	case gostp.TY_EXTRACT:
		child, err := s.convertBV(e.Child(0), cache)
		if err != nil {
			return nil, err
		}
		high, low := e.ExtractBounds()
		result = child.Extract(int(high), int(low))
	case gostp.TY_ZEXT, gostp.TY_SEXT:
		child, err := s.convertBV(e.Child(0), cache)
		if err != nil {
			return nil, err
		}
		n := int(e.Width() - e.Child(0).Width())
		if e.Kind() == gostp.TY_ZEXT {
			result = child.ZeroExtend(n)
		} else {
			result = child.SignExtend(n)
		}
	case gostp.TY_ITE:
		guard, err := s.convertBool(e.Child(0), cache)
		if err != nil {
			return nil, err
		}
		iftrue, err := s.convert(e.Child(1), cache)
		if err != nil {
			return nil, err
		}
		iffalse, err := s.convert(e.Child(2), cache)
		if err != nil {
			return nil, err
		}
		result = guard.IfThenElse(iftrue, iffalse)
	case gostp.TY_NOT, gostp.TY_NEG:
		child, err := s.convertBV(e.Child(0), cache)
		if err != nil {
			return nil, err
		}
		if e.Kind() == gostp.TY_NOT {
			result = child.Not()
		} else {
			result = child.Neg()
		}
	case gostp.TY_CONCAT, gostp.TY_AND, gostp.TY_OR, gostp.TY_XOR, gostp.TY_ADD, gostp.TY_MUL:
		args, err := s.convertBVs(e.Children(), cache)
		if err != nil {
			return nil, err
		}
		res := args[0]
		for _, a := range args[1:] {
			switch e.Kind() {
			case gostp.TY_CONCAT:
				res = res.Concat(a)
			case gostp.TY_AND:
				res = res.And(a)
			case gostp.TY_OR:
				res = res.Or(a)
			case gostp.TY_XOR:
				res = res.Xor(a)
			case gostp.TY_ADD:
				res = res.Add(a)
			case gostp.TY_MUL:
				res = res.Mul(a)
			}
		}
		result = res
	case gostp.TY_SHL, gostp.TY_LSHR, gostp.TY_ASHR,
		gostp.TY_SDIV, gostp.TY_UDIV, gostp.TY_SREM, gostp.TY_UREM:
		args, err := s.convertBVs(e.Children(), cache)
		if err != nil {
			return nil, err
		}
		lhs, rhs := args[0], args[1]
		switch e.Kind() {
		case gostp.TY_SHL:
			result = lhs.Lsh(rhs)
		case gostp.TY_LSHR:
			result = lhs.URsh(rhs)
		case gostp.TY_ASHR:
			result = lhs.SRsh(rhs)
		case gostp.TY_SDIV:
			result = lhs.SDiv(rhs)
		case gostp.TY_UDIV:
			result = lhs.UDiv(rhs)
		case gostp.TY_SREM:
			result = lhs.SRem(rhs)
		case gostp.TY_UREM:
			result = lhs.URem(rhs)
		}
	case gostp.TY_ULT, gostp.TY_ULE, gostp.TY_UGT, gostp.TY_UGE,
		gostp.TY_SLT, gostp.TY_SLE, gostp.TY_SGT, gostp.TY_SGE:
		args, err := s.convertBVs(e.Children(), cache)
		if err != nil {
			return nil, err
		}
		lhs, rhs := args[0], args[1]
		switch e.Kind() {
		case gostp.TY_ULT:
			result = lhs.ULT(rhs)
		case gostp.TY_ULE:
			result = lhs.ULE(rhs)
		case gostp.TY_UGT:
			result = lhs.UGT(rhs)
		case gostp.TY_UGE:
			result = lhs.UGE(rhs)
		case gostp.TY_SLT:
			result = lhs.SLT(rhs)
		case gostp.TY_SLE:
			result = lhs.SLE(rhs)
		case gostp.TY_SGT:
			result = lhs.SGT(rhs)
		case gostp.TY_SGE:
			result = lhs.SGE(rhs)
		}
	case gostp.TY_EQ:
		lhs, err := s.convert(e.Child(0), cache)
		if err != nil {
			return nil, err
		}
		rhs, err := s.convert(e.Child(1), cache)
		if err != nil {
			return nil, err
		}
		switch lhs := lhs.(type) {
		case z3.BV:
			result = lhs.Eq(rhs.(z3.BV))
		case z3.Bool:
			result = lhs.Eq(rhs.(z3.Bool))
		case z3.Array:
			result = lhs.Eq(rhs.(z3.Array))
		default:
			return nil, fmt.Errorf("unsupported equality %s", e)
		}
	case gostp.TY_BOOL_NOT:
		child, err := s.convertBool(e.Child(0), cache)
		if err != nil {
			return nil, err
		}
		result = child.Not()
	case gostp.TY_BOOL_AND, gostp.TY_BOOL_OR, gostp.TY_BOOL_XOR,
		gostp.TY_BOOL_IFF, gostp.TY_BOOL_IMPLIES:
		args, err := s.convertBools(e.Children(), cache)
		if err != nil {
			return nil, err
		}
		res := args[0]
		for _, a := range args[1:] {
			switch e.Kind() {
			case gostp.TY_BOOL_AND:
				res = res.And(a)
			case gostp.TY_BOOL_OR:
				res = res.Or(a)
			case gostp.TY_BOOL_XOR:
				res = res.Xor(a)
			case gostp.TY_BOOL_IFF:
				res = res.Iff(a)
			case gostp.TY_BOOL_IMPLIES:
				res = res.Implies(a)
			}
		}
		result = res
	case gostp.TY_READ:
		arr, err := s.convert(e.Child(0), cache)
		if err != nil {
			return nil, err
		}
		idx, err := s.convert(e.Child(1), cache)
		if err != nil {
			return nil, err
		}
		result = arr.(z3.Array).Select(idx)
	case gostp.TY_WRITE:
		arr, err := s.convert(e.Child(0), cache)
		if err != nil {
			return nil, err
		}
		idx, err := s.convert(e.Child(1), cache)
		if err != nil {
			return nil, err
		}
		val, err := s.convert(e.Child(2), cache)
		if err != nil {
			return nil, err
		}
		result = arr.(z3.Array).Store(idx, val)
	default:
		return nil, fmt.Errorf("invalid expression type %s", gostp.KindName(e.Kind()))
	}

	cache[e] = result
	return result, nil
}
