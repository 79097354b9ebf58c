package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borzacchiello/gostp"
)

func TestLoadDeclarations(t *testing.T) {
	eb := gostp.NewExprBuilder()
	p, err := Load(eb, strings.NewReader(`
declare:
  x: 8
  p: bool
  mem: [32, 8]
`))
	require.NoError(t, err)
	require.Len(t, p.Decls, 3)

	x, ok := p.Symbol("x")
	require.True(t, ok)
	assert.Same(t, eb.BVS("x", 8), x)

	pp, ok := p.Symbol("p")
	require.True(t, ok)
	assert.True(t, pp.IsBool())

	mem, ok := p.Symbol("mem")
	require.True(t, ok)
	assert.True(t, mem.IsArray())
	assert.Equal(t, uint(32), mem.IndexWidth())
	assert.Equal(t, uint(8), mem.Width())

	assert.Equal(t, []*gostp.Term{x, pp, mem}, p.Decls)
}

func TestLoadTermsAreNotSimplified(t *testing.T) {
	eb := gostp.NewExprBuilder()
	p, err := Load(eb, strings.NewReader(`
declare:
  x: 8
assert:
  - [=, [bvadd, x, "#x00"], x]
`))
	require.NoError(t, err)
	require.Len(t, p.Assertions, 1)

	a := p.Assertions[0]
	assert.Equal(t, gostp.TY_EQ, a.Kind())
	assert.Equal(t, gostp.TY_ADD, a.Child(0).Kind())
	assert.Equal(t, "(x + 0x0) == x", a.String())
}

func TestLoadOperators(t *testing.T) {
	eb := gostp.NewExprBuilder()
	p, err := Load(eb, strings.NewReader(`
declare:
  x: 8
  y: 16
  b: bool
  mem: [8, 8]
assert:
  - [bvult, [extract, 7, 0, y], x]
  - [=, [zero_extend, 8, x], [sign_extend, 8, x]]
  - [=>, b, [distinct, x, [bvsub, x, "#b00000001"]]]
  - [=, [select, [store, mem, x, [bv, 3, 8]], x], [ite, b, x, "#xff"]]
  - [=, [concat, x, x], y]
  - [xor, b, true]
`))
	require.NoError(t, err)
	require.Len(t, p.Assertions, 6)

	assert.Equal(t, "(y[7:0]) u< x", p.Assertions[0].String())
	assert.Equal(t, "(ZExt(x, 8)) == (SExt(x, 8))", p.Assertions[1].String())
	assert.Equal(t, "b => (!(x == (x + (-0x1))))", p.Assertions[2].String())
	assert.Equal(t, "(Select(Store(mem, x, 0x3), x)) == (ITE(b, x, 0xff))", p.Assertions[3].String())
	assert.Equal(t, "(x .. x) == y", p.Assertions[4].String())
	assert.Equal(t, "b ^^ T", p.Assertions[5].String())

	f, err := p.Formula(eb)
	require.NoError(t, err)
	assert.Equal(t, gostp.TY_BOOL_AND, f.Kind())
	assert.Equal(t, 6, f.NumChildren())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		line int
		err  error
	}{
		{
			name: "undeclared",
			doc:  "declare:\n  x: 8\nassert:\n  - [=, x, y]\n",
			line: 4,
			err:  ErrUndeclared,
		},
		{
			name: "unknown operator",
			doc:  "declare:\n  x: 8\nassert:\n  - [bvfoo, x, x]\n",
			line: 4,
			err:  ErrOperator,
		},
		{
			name: "width mismatch",
			doc:  "declare:\n  x: 8\n  y: 4\nassert:\n  - [=, x, y]\n",
			line: 5,
			err:  gostp.ErrWidthMismatch,
		},
		{
			name: "bad width",
			doc:  "declare:\n  x: zero\n",
			line: 2,
			err:  ErrSyntax,
		},
		{
			name: "not boolean",
			doc:  "declare:\n  x: 8\nassert:\n  - x\n",
			line: 4,
			err:  gostp.ErrSortMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(gostp.NewExprBuilder(), strings.NewReader(tt.doc))
			require.Error(t, err)

			var lerr *Error
			require.ErrorAs(t, err, &lerr)
			assert.Equal(t, tt.line, lerr.Line)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLoadUnknownField(t *testing.T) {
	_, err := Load(gostp.NewExprBuilder(), strings.NewReader("declar:\n  x: 8\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadEmpty(t *testing.T) {
	eb := gostp.NewExprBuilder()
	p, err := Load(eb, strings.NewReader(""))
	require.NoError(t, err)

	f, err := p.Formula(eb)
	require.NoError(t, err)
	assert.True(t, f.IsTrue())
}
