package gostp

import (
	"testing"
)

func TestEval1(t *testing.T) {
	eb := NewExprBuilder()
	a := eb.BVS("a", 32)
	b := eb.BVS("b", 32)

	interpr := NewModel()
	interpr.BVs["a"] = MakeBVConst(42, 32)

	e, _ := eb.Add(a, b)
	evaluated, err := eb.Eval(e, interpr)
	if err != nil {
		t.Error(err)
		return
	}
	if evaluated.String() != "b + 0x2a" {
		t.Error("invalid eval")
	}
}

func TestEval2(t *testing.T) {
	eb := NewExprBuilder()
	a := eb.BVS("a", 8)
	p := eb.BoolS("p")

	interpr := NewModel()
	interpr.BVs["a"] = MakeBVConst(200, 8)
	interpr.Bools["p"] = true

	lt, _ := eb.CreateNode(TY_ULT, a, eb.BVV(100, 8))
	e, _ := eb.CreateNode(TY_BOOL_XOR, lt, p)
	v, err := eb.EvalBool(e, interpr)
	if err != nil {
		t.Error(err)
		return
	}
	if !v {
		t.Error("invalid eval")
	}
}

func TestEvalArrays(t *testing.T) {
	eb := NewExprBuilder()
	mem := eb.ArrayS("mem", 8, 8)
	i := eb.BVS("i", 8)

	interpr := NewModel()
	interpr.BVs["i"] = MakeBVConst(3, 8)

	st, _ := eb.CreateNode(TY_WRITE, mem, i, eb.BVV(9, 8))
	rd, _ := eb.CreateNode(TY_READ, st, eb.BVV(3, 8))
	v, err := eb.Eval(rd, interpr)
	if err != nil {
		t.Error(err)
		return
	}
	if v.String() != "0x9" {
		t.Errorf("invalid eval %s", v)
	}
}

func TestEvalWidthMismatch(t *testing.T) {
	eb := NewExprBuilder()
	a := eb.BVS("a", 8)

	interpr := NewModel()
	interpr.BVs["a"] = MakeBVConst(1, 16)

	if _, err := eb.Eval(a, interpr); err == nil {
		t.Error("should return an error")
	}
}
