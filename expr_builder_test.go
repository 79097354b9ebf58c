package gostp

import (
	"errors"
	"runtime"
	"sync"
	"testing"
)

func isErr(t *testing.T, err error) bool {
	if err != nil {
		t.Error(err)
		return true
	}
	return false
}

func getByte(t *testing.T, eb *ExprBuilder, expr *Term, i uint) *Term {
	b, err := eb.Extract(expr, (i+1)*8-1, i*8)
	if isErr(t, err) {
		return nil
	}
	return b
}

func TestCache1(t *testing.T) {
	eb := NewExprBuilder()

	var oldid uint64
	var olde *Term
	{
		s1 := eb.BVS("s1", 32)
		s2 := eb.BVS("s2", 32)
		e, err := eb.Add(s1, s2)
		if err != nil {
			t.Error(err)
			return
		}

		ss1 := eb.BVS("s1", 32)
		if s1 != ss1 || s1.Id() != ss1.Id() {
			t.Error("should be the same object")
			return
		}
		ee, _ := eb.Add(ss1, s2)
		if e != ee {
			t.Error("should be the same object")
			return
		}
		oldid = s1.Id()
		olde = e
	}

	runtime.GC()

	for i := 0; i < 32; i++ {
		// create noise...
		eb.BVV(int64(i), 32)
	}

	runtime.GC()

	// identity survives collections
	s1 := eb.BVS("s1", 32)
	if s1.Id() != oldid {
		t.Error("should be the same object")
		return
	}
	e, _ := eb.Add(s1, eb.BVS("s2", 32))
	if e != olde {
		t.Error("should be the same object")
		return
	}
}

func TestCacheDistinguishesWidths(t *testing.T) {
	eb := NewExprBuilder()

	if eb.BVS("a", 32) == eb.BVS("a", 64) {
		t.Error("different widths must give different symbols")
	}
	if eb.BVV(1, 8) == eb.BVV(1, 16) {
		t.Error("different widths must give different constants")
	}
	if eb.BoolS("a") == eb.BVS("a", 1) {
		t.Error("different sorts must give different symbols")
	}

	x := eb.BVS("x", 8)
	e1, _ := eb.CreateExtract(x, 3, 0)
	e2, _ := eb.CreateExtract(x, 4, 1)
	if e1 == e2 {
		t.Error("different bounds must give different extracts")
	}
}

func TestIdsFollowCreationOrder(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.BVS("a", 8)
	b := eb.BVS("b", 8)
	e, _ := eb.CreateNode(TY_ADD, a, b)
	if !(a.Id() < b.Id() && b.Id() < e.Id()) {
		t.Errorf("unexpected ids %d %d %d", a.Id(), b.Id(), e.Id())
	}
	if eb.Stats.CachedTerms != 3 {
		t.Errorf("unexpected number of cached terms %d", eb.Stats.CachedTerms)
	}
}

func TestCreateNodeErrors(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.BVS("a", 8)
	b := eb.BVS("b", 16)
	p := eb.BoolS("p")
	mem := eb.ArrayS("mem", 32, 8)

	if _, err := eb.CreateNode(TY_ADD, a, b); !errors.Is(err, ErrWidthMismatch) {
		t.Errorf("expected a width mismatch, got %v", err)
	}
	if _, err := eb.CreateNode(TY_ADD, a, p); !errors.Is(err, ErrSortMismatch) {
		t.Errorf("expected a sort mismatch, got %v", err)
	}
	if _, err := eb.CreateNode(TY_NOT, a, a); !errors.Is(err, ErrArity) {
		t.Errorf("expected an arity error, got %v", err)
	}
	if _, err := eb.CreateNode(TY_READ, mem, a); !errors.Is(err, ErrWidthMismatch) {
		t.Errorf("expected a width mismatch, got %v", err)
	}
	if _, err := eb.CreateNode(TY_BOOL_AND, p, a); !errors.Is(err, ErrSortMismatch) {
		t.Errorf("expected a sort mismatch, got %v", err)
	}
	if _, err := eb.CreateExtract(a, 8, 0); err == nil {
		t.Error("should return an error")
	}
	if _, err := eb.CreateNode(TY_EXTRACT, a); err == nil {
		t.Error("should return an error")
	}
}

func TestCreateNodeDoesNotSimplify(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.BVS("a", 8)
	e, err := eb.CreateNode(TY_ADD, a, eb.BVV(0, 8))
	if isErr(t, err) {
		return
	}
	if e.String() != "a + 0x0" {
		t.Error("unexpected expression")
	}
}

func TestAdd1(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.BVS("a", 64)
	e, _ := eb.Add(a, eb.BVV(0, 64))
	if e != a {
		t.Error("failed Add simplification")
		return
	}

	e, _ = eb.Mul(a, eb.BVV(0, 64))
	if e.String() != "0x0" {
		t.Error("failed Mul simplification")
		return
	}

	e, _ = eb.Sub(a, a)
	if e.String() != "a + (-a)" {
		t.Errorf("unexpected expression %s", e)
	}
}

func TestShift1(t *testing.T) {
	eb := NewExprBuilder()

	sym := eb.BVS("sym", 64)
	e, err := eb.AShr(sym, eb.BVV(16, 64))
	if err != nil {
		t.Error(err)
		return
	}
	e, err = eb.Shl(e, eb.BVV(8, 64))
	if err != nil {
		t.Error(err)
		return
	}

	if e.String() != "(sym a>> 0x10) << 0x8" {
		t.Error("unexpected expression")
		return
	}
}

func TestBool1(t *testing.T) {
	eb := NewExprBuilder()

	a, err := eb.Eq(eb.BVS("a", 1), eb.BVV(1, 1))
	if err != nil {
		t.Error(err)
		return
	}
	b, err := eb.Eq(eb.BVS("b", 1), eb.BVV(1, 1))
	if err != nil {
		t.Error(err)
		return
	}

	e, err := eb.BoolAnd(a, b)
	if err != nil {
		t.Error(err)
		return
	}
	e, err = eb.BoolNot(e)
	if err != nil {
		t.Error(err)
		return
	}
	e, err = eb.BoolAnd(e, eb.BoolVal(true))
	if err != nil {
		t.Error(err)
		return
	}
	e, err = eb.BoolOr(e, eb.BoolVal(false))
	if err != nil {
		t.Error(err)
		return
	}
	if e.String() != "!((a == 0x1) && (b == 0x1))" {
		t.Error("unexpected expression")
		return
	}
}

func TestBVCompare(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.BVS("a", 64)
	b := eb.BVS("b", 64)
	e, _ := eb.Ule(a, b)
	if e.String() != "a u<= b" {
		t.Error("invalid expression")
		return
	}
}

func TestConcat1(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.BVS("a", 32)
	p1 := getByte(t, eb, a, 0)
	p2 := getByte(t, eb, a, 1)
	p3 := getByte(t, eb, a, 2)
	p4 := getByte(t, eb, a, 3)

	if p1 == nil || p2 == nil || p3 == nil || p4 == nil {
		return
	}

	c, err := eb.Concat(p4, p3)
	if isErr(t, err) {
		return
	}
	c, err = eb.Concat(c, p2)
	if isErr(t, err) {
		return
	}
	c, err = eb.Concat(c, p1)
	if isErr(t, err) {
		return
	}

	if c.String() != "a" {
		t.Error("Unable to simplify concat")
		return
	}
}

func TestInvolvedInputs(t *testing.T) {
	eb := NewExprBuilder()

	a := eb.BVS("a", 8)
	b := eb.BVS("b", 8)
	e, _ := eb.CreateNode(TY_ADD, a, b, a)
	e, _ = eb.CreateNode(TY_ULT, e, eb.BVV(3, 8))

	syms := eb.InvolvedInputs(e)
	if len(syms) != 2 {
		t.Errorf("expected two symbols, got %d", len(syms))
	}
}

func TestConcurrentInterning(t *testing.T) {
	eb := NewExprBuilder()

	const workers = 8
	results := make([]*Term, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := eb.BVS("a", 16)
			e, err := eb.CreateNode(TY_MUL, a, eb.BVV(3, 16))
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = e
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Error("should be the same object")
		}
	}
}
