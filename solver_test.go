package gostp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers every query with result and model. Terms in evals are
// evaluated to the mapped value.
type fakeBackend struct {
	result Result
	model  *Model
	evals  map[*Term]*Term
	err    error

	queries []*Term
}

func (b *fakeBackend) Check(f *Term) (Result, error) {
	b.queries = append(b.queries, f)
	return b.result, b.err
}

func (b *fakeBackend) Model() (*Model, error) {
	if b.model == nil {
		return NewModel(), nil
	}
	return b.model, nil
}

func (b *fakeBackend) EvalInModel(eb *ExprBuilder, t *Term) (*Term, error) {
	if v, ok := b.evals[t]; ok {
		return v, nil
	}
	return nil, errors.New("no value")
}

func TestSolverSat1(t *testing.T) {
	eb := NewExprBuilder()
	backend := &fakeBackend{result: RESULT_SAT}
	s := NewSolver(eb, backend)

	x := eb.BVS("x", 8)
	y := eb.BVS("y", 8)
	require.NoError(t, s.Add(mk(t, eb, TY_EQ, x, mk(t, eb, TY_ADD, y, eb.BVV(1, 8)))))

	r, err := s.Check()
	require.NoError(t, err)
	assert.Equal(t, RESULT_SAT, r)
	assert.Empty(t, backend.queries, "a trivially true query is not sent")

	m, err := s.Model()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.BVs["y"].AsULong())
	assert.Equal(t, uint64(1), m.BVs["x"].AsULong())
}

func TestSolverCompletesModel(t *testing.T) {
	eb := NewExprBuilder()
	bm := NewModel()
	bm.BVs["y"] = MakeBVConst(4, 8)
	backend := &fakeBackend{result: RESULT_SAT, model: bm}
	s := NewSolver(eb, backend)

	x := eb.BVS("x", 8)
	y := eb.BVS("y", 8)
	p := eb.BoolS("p")
	require.NoError(t, s.Add(mk(t, eb, TY_EQ, x, mk(t, eb, TY_ADD, y, eb.BVV(1, 8)))))
	require.NoError(t, s.Add(mk(t, eb, TY_ULT, x, eb.BVV(10, 8))))
	require.NoError(t, s.Add(mk(t, eb, TY_BOOL_OR, p, mk(t, eb, TY_ULT, y, eb.BVV(9, 8)))))

	r, err := s.Check()
	require.NoError(t, err)
	assert.Equal(t, RESULT_SAT, r)
	require.Len(t, backend.queries, 1)
	assert.Equal(t, "((y + 0x1) u< 0xa) && (p || (y u< 0x9))", backend.queries[0].String())
	assert.Equal(t, 1, s.LastStats().Substitutions)

	m, err := s.Model()
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "x", "y"}, m.SortedNames())
	assert.Equal(t, uint64(5), m.BVs["x"].AsULong())
	assert.False(t, m.Bools["p"])

	ok, err := eb.EvalBool(s.Pi(), m)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSolverUnsat(t *testing.T) {
	eb := NewExprBuilder()
	backend := &fakeBackend{result: RESULT_SAT}
	s := NewSolver(eb, backend)

	x := eb.BVS("x", 8)
	require.NoError(t, s.Add(mk(t, eb, TY_EQ, x, eb.BVV(1, 8))))
	require.NoError(t, s.Add(mk(t, eb, TY_EQ, x, eb.BVV(2, 8))))

	r, err := s.Check()
	require.NoError(t, err)
	assert.Equal(t, RESULT_UNSAT, r)
	assert.Empty(t, backend.queries)

	_, err = s.Model()
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestSolverCheckSatUsesDependentConstraints(t *testing.T) {
	eb := NewExprBuilder()
	backend := &fakeBackend{result: RESULT_SAT}
	s := NewSolver(eb, backend, WithoutSimplification())

	a := eb.BVS("a", 8)
	b := eb.BVS("b", 8)
	c := eb.BVS("c", 8)
	require.NoError(t, s.Add(mk(t, eb, TY_ULT, a, eb.BVV(3, 8))))
	require.NoError(t, s.Add(mk(t, eb, TY_ULT, b, eb.BVV(5, 8))))
	require.NoError(t, s.Add(mk(t, eb, TY_EQ, a, c)))
	require.NoError(t, s.Add(mk(t, eb, TY_ULT, c, eb.BVV(7, 8))))

	r, err := s.CheckSat(mk(t, eb, TY_ULT, a, eb.BVV(1, 8)))
	require.NoError(t, err)
	assert.Equal(t, RESULT_SAT, r)
	require.Len(t, backend.queries, 1)
	assert.Equal(t,
		"(a u< 0x3) && (a == c) && (c u< 0x7) && (a u< 0x1)",
		backend.queries[0].String())
	assert.Equal(t, SimplifyStats{}, s.LastStats())
}

func TestSolverAdd(t *testing.T) {
	eb := NewExprBuilder()
	s := NewSolver(eb, &fakeBackend{result: RESULT_SAT})

	x := eb.BVS("x", 8)
	err := s.Add(x)
	assert.ErrorIs(t, err, ErrSortMismatch)

	c := mk(t, eb, TY_ULT, x, eb.BVV(3, 8))
	require.NoError(t, s.Add(c))
	require.NoError(t, s.Add(c))
	require.NoError(t, s.Add(eb.BoolVal(true)))
	assert.Same(t, c, s.Pi())

	_, err = s.CheckSat(x)
	assert.ErrorIs(t, err, ErrSortMismatch)
}

func TestSolverModelBeforeCheck(t *testing.T) {
	s := NewSolver(NewExprBuilder(), &fakeBackend{result: RESULT_SAT})
	_, err := s.Model()
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestSolverBackendError(t *testing.T) {
	eb := NewExprBuilder()
	boom := errors.New("boom")
	s := NewSolver(eb, &fakeBackend{err: boom})

	x := eb.BVS("x", 8)
	require.NoError(t, s.Add(mk(t, eb, TY_ULT, x, eb.BVV(3, 8))))

	r, err := s.Check()
	assert.Equal(t, RESULT_UNKNOWN, r)
	assert.ErrorIs(t, err, boom)

	_, err = s.Model()
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "sat", RESULT_SAT.String())
	assert.Equal(t, "unsat", RESULT_UNSAT.String())
	assert.Equal(t, "unknown", RESULT_UNKNOWN.String())
}

func TestSolverModelWithArrayRead(t *testing.T) {
	eb := NewExprBuilder()
	mem := eb.ArrayS("mem", 8, 8)
	x := eb.BVS("x", 8)
	y := eb.BVS("y", 8)

	bm := NewModel()
	bm.BVs["y"] = MakeBVConst(2, 8)
	backend := &fakeBackend{
		result: RESULT_SAT,
		model:  bm,
		evals:  map[*Term]*Term{mk(t, eb, TY_READ, mem, eb.BVV(2, 8)): eb.BVV(4, 8)},
	}
	s := NewSolver(eb, backend)
	require.NoError(t, s.Add(mk(t, eb, TY_EQ, x, mk(t, eb, TY_READ, mem, y))))
	require.NoError(t, s.Add(mk(t, eb, TY_ULT, x, eb.BVV(5, 8))))

	r, err := s.Check()
	require.NoError(t, err)
	require.Equal(t, RESULT_SAT, r)
	require.Len(t, backend.queries, 1)
	assert.Equal(t, "(Select(mem, y)) u< 0x5", backend.queries[0].String())

	m, err := s.Model()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), m.BVs["x"].AsULong())
	assert.Equal(t, uint64(2), m.BVs["y"].AsULong())
}

func TestSolverModelDefaultsUnconstrainedArrays(t *testing.T) {
	eb := NewExprBuilder()
	mem := eb.ArrayS("mem", 8, 8)
	x := eb.BVS("x", 8)
	y := eb.BVS("y", 8)

	backend := &fakeBackend{result: RESULT_SAT}
	s := NewSolver(eb, backend)
	st := mk(t, eb, TY_WRITE, mem, eb.BVV(3, 8), eb.BVV(7, 8))
	require.NoError(t, s.Add(mk(t, eb, TY_EQ, x, mk(t, eb, TY_READ, st, y))))

	r, err := s.Check()
	require.NoError(t, err)
	require.Equal(t, RESULT_SAT, r)
	assert.Empty(t, backend.queries)

	// y defaults to 0, which misses the store, and mem is all zero
	m, err := s.Model()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.BVs["y"].AsULong())
	assert.Equal(t, uint64(0), m.BVs["x"].AsULong())
}

func TestSolverRejectsNameClash(t *testing.T) {
	eb := NewExprBuilder()
	s := NewSolver(eb, &fakeBackend{result: RESULT_SAT})

	a8 := eb.BVS("a", 8)
	a16 := eb.BVS("a", 16)
	require.NoError(t, s.Add(mk(t, eb, TY_ULT, a8, eb.BVV(3, 8))))

	err := s.Add(mk(t, eb, TY_ULT, a16, eb.BVV(3, 16)))
	assert.ErrorIs(t, err, ErrNameClash)
	assert.Same(t, mk(t, eb, TY_ULT, a8, eb.BVV(3, 8)), s.Pi(), "rejected constraints are not added")

	_, err = s.CheckSat(eb.BoolS("a"))
	assert.ErrorIs(t, err, ErrNameClash)

	// two clashing symbols in the same constraint
	s = NewSolver(eb, &fakeBackend{result: RESULT_SAT})
	c := mk(t, eb, TY_BOOL_AND,
		mk(t, eb, TY_ULT, a8, eb.BVV(3, 8)),
		mk(t, eb, TY_ULT, a16, eb.BVV(3, 16)),
	)
	assert.ErrorIs(t, s.Add(c), ErrNameClash)
}
