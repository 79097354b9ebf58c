package z3backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borzacchiello/gostp"
)

func TestCheckSat(t *testing.T) {
	eb := gostp.NewExprBuilder()
	x := eb.BVS("x", 8)
	y := eb.BVS("y", 8)

	sum, err := eb.CreateNode(gostp.TY_ADD, x, y)
	require.NoError(t, err)
	c1, err := eb.CreateNode(gostp.TY_EQ, sum, eb.BVV(10, 8))
	require.NoError(t, err)
	c2, err := eb.CreateNode(gostp.TY_ULT, x, eb.BVV(3, 8))
	require.NoError(t, err)
	q, err := eb.CreateNode(gostp.TY_BOOL_AND, c1, c2)
	require.NoError(t, err)

	b := New()
	r, err := b.Check(q)
	require.NoError(t, err)
	require.Equal(t, gostp.RESULT_SAT, r)

	m, err := b.Model()
	require.NoError(t, err)
	ok, err := eb.EvalBool(q, m)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckUnsat(t *testing.T) {
	eb := gostp.NewExprBuilder()
	x := eb.BVS("x", 8)

	c1, err := eb.CreateNode(gostp.TY_ULT, x, eb.BVV(3, 8))
	require.NoError(t, err)
	c2, err := eb.CreateNode(gostp.TY_UGT, x, eb.BVV(5, 8))
	require.NoError(t, err)
	q, err := eb.CreateNode(gostp.TY_BOOL_AND, c1, c2)
	require.NoError(t, err)

	r, err := New().Check(q)
	require.NoError(t, err)
	assert.Equal(t, gostp.RESULT_UNSAT, r)
}

func TestCheckArraysAndBools(t *testing.T) {
	eb := gostp.NewExprBuilder()
	mem := eb.ArrayS("mem", 32, 8)
	p := eb.BoolS("p")
	i := eb.BVS("i", 32)

	st, err := eb.CreateNode(gostp.TY_WRITE, mem, i, eb.BVV(7, 8))
	require.NoError(t, err)
	rd, err := eb.CreateNode(gostp.TY_READ, st, i)
	require.NoError(t, err)
	c1, err := eb.CreateNode(gostp.TY_EQ, rd, eb.BVV(8, 8))
	require.NoError(t, err)
	q, err := eb.CreateNode(gostp.TY_BOOL_OR, c1, p)
	require.NoError(t, err)

	b := New()
	r, err := b.Check(q)
	require.NoError(t, err)
	require.Equal(t, gostp.RESULT_SAT, r)

	m, err := b.Model()
	require.NoError(t, err)
	assert.True(t, m.Bools["p"])
}

func TestSolverCompletesModel(t *testing.T) {
	eb := gostp.NewExprBuilder()
	x := eb.BVS("x", 8)
	y := eb.BVS("y", 8)

	sum, err := eb.Add(y, eb.BVV(1, 8))
	require.NoError(t, err)
	c1, err := eb.Eq(x, sum)
	require.NoError(t, err)
	c2, err := eb.CreateNode(gostp.TY_UGT, x, eb.BVV(200, 8))
	require.NoError(t, err)

	s := gostp.NewSolver(eb, New())
	require.NoError(t, s.Add(c1))
	require.NoError(t, s.Add(c2))

	r, err := s.Check()
	require.NoError(t, err)
	require.Equal(t, gostp.RESULT_SAT, r)
	assert.Equal(t, 1, s.LastStats().Substitutions)

	m, err := s.Model()
	require.NoError(t, err)
	ok, err := eb.EvalBool(s.Pi(), m)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSolverModelWithArrayRead(t *testing.T) {
	eb := gostp.NewExprBuilder()
	mem := eb.ArrayS("mem", 8, 8)
	x := eb.BVS("x", 8)
	y := eb.BVS("y", 8)

	rd, err := eb.Select(mem, y)
	require.NoError(t, err)
	c1, err := eb.Eq(x, rd)
	require.NoError(t, err)
	c2, err := eb.Ult(x, eb.BVV(5, 8))
	require.NoError(t, err)
	c3, err := eb.Ugt(x, eb.BVV(2, 8))
	require.NoError(t, err)

	s := gostp.NewSolver(eb, New())
	for _, c := range []*gostp.Term{c1, c2, c3} {
		require.NoError(t, s.Add(c))
	}

	r, err := s.Check()
	require.NoError(t, err)
	require.Equal(t, gostp.RESULT_SAT, r)

	m, err := s.Model()
	require.NoError(t, err)
	v := m.BVs["x"].AsULong()
	assert.True(t, v > 2 && v < 5, "x = %d", v)
}
