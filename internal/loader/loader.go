// Package loader reads formulas written as YAML documents:
//
//	declare:
//	  x: 8            # bit-vector width
//	  p: bool
//	  mem: [32, 8]    # array index width, value width
//	assert:
//	  - [=, x, [bvadd, y, "#x05"]]
//	  - [bvult, y, x]
//
// A term is either a string (a declared symbol, a "#x" or "#b" constant,
// true or false) or a list [operator, arguments...] using SMT-LIB operator
// names. Terms are built without simplification.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/borzacchiello/gostp"
)

var (
	ErrUndeclared = errors.New("undeclared symbol")
	ErrOperator   = errors.New("unknown operator")
	ErrSyntax     = errors.New("syntax error")
)

// Error locates a problem in the input document.
type Error struct {
	Line int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errorf(n *yaml.Node, format string, args ...interface{}) error {
	return &Error{Line: n.Line, Err: fmt.Errorf(format, args...)}
}

// Problem is a loaded document.
type Problem struct {
	// Symbols in declaration order.
	Decls      []*gostp.Term
	Assertions []*gostp.Term

	symbols map[string]*gostp.Term
}

func (p *Problem) Symbol(name string) (*gostp.Term, bool) {
	s, ok := p.symbols[name]
	return s, ok
}

// Formula returns the conjunction of the assertions, true if there is none.
func (p *Problem) Formula(eb *gostp.ExprBuilder) (*gostp.Term, error) {
	switch len(p.Assertions) {
	case 0:
		return eb.BoolVal(true), nil
	case 1:
		return p.Assertions[0], nil
	}
	return eb.CreateNode(gostp.TY_BOOL_AND, p.Assertions...)
}

type document struct {
	Declare yaml.Node   `yaml:"declare"`
	Assert  []yaml.Node `yaml:"assert"`
}

func LoadFile(eb *gostp.ExprBuilder, path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read formula file: %w", err)
	}
	return Load(eb, bytes.NewReader(data))
}

func Load(eb *gostp.ExprBuilder, r io.Reader) (*Problem, error) {
	var doc document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Problem{symbols: map[string]*gostp.Term{}}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	l := &termLoader{eb: eb, p: &Problem{symbols: make(map[string]*gostp.Term)}}
	if err := l.declare(&doc.Declare); err != nil {
		return nil, err
	}
	for i := range doc.Assert {
		t, err := l.term(&doc.Assert[i])
		if err != nil {
			return nil, err
		}
		if !t.IsBool() {
			return nil, errorf(&doc.Assert[i], "assertion %s is not boolean: %w", t, gostp.ErrSortMismatch)
		}
		l.p.Assertions = append(l.p.Assertions, t)
	}
	return l.p, nil
}

type termLoader struct {
	eb *gostp.ExprBuilder
	p  *Problem
}

func (l *termLoader) declare(n *yaml.Node) error {
	if n.Kind == 0 {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return errorf(n, "declare must be a mapping: %w", ErrSyntax)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		name := key.Value
		if _, ok := l.p.symbols[name]; ok {
			return errorf(key, "%s declared twice", name)
		}
		if isReserved(name) {
			return errorf(key, "%q cannot be a symbol name", name)
		}

		var sym *gostp.Term
		switch {
		case val.Kind == yaml.ScalarNode && val.Value == "bool":
			sym = l.eb.BoolS(name)
		case val.Kind == yaml.ScalarNode:
			var w uint
			if err := val.Decode(&w); err != nil || w == 0 {
				return errorf(val, "%s: width must be a positive integer: %w", name, ErrSyntax)
			}
			sym = l.eb.BVS(name, w)
		case val.Kind == yaml.SequenceNode && len(val.Content) == 2:
			var ws [2]uint
			for j, c := range val.Content {
				if err := c.Decode(&ws[j]); err != nil || ws[j] == 0 {
					return errorf(c, "%s: width must be a positive integer: %w", name, ErrSyntax)
				}
			}
			sym = l.eb.ArrayS(name, ws[0], ws[1])
		default:
			return errorf(val, "%s: expected a width, bool or [index width, value width]: %w", name, ErrSyntax)
		}
		l.p.symbols[name] = sym
		l.p.Decls = append(l.p.Decls, sym)
	}
	return nil
}

func isReserved(name string) bool {
	return name == "true" || name == "false" || strings.HasPrefix(name, "#")
}

var operators = map[string]int{
	"bvnot":  gostp.TY_NOT,
	"bvneg":  gostp.TY_NEG,
	"bvshl":  gostp.TY_SHL,
	"bvlshr": gostp.TY_LSHR,
	"bvashr": gostp.TY_ASHR,
	"bvand":  gostp.TY_AND,
	"bvor":   gostp.TY_OR,
	"bvxor":  gostp.TY_XOR,
	"bvadd":  gostp.TY_ADD,
	"bvmul":  gostp.TY_MUL,
	"bvsdiv": gostp.TY_SDIV,
	"bvudiv": gostp.TY_UDIV,
	"bvsrem": gostp.TY_SREM,
	"bvurem": gostp.TY_UREM,
	"bvult":  gostp.TY_ULT,
	"bvule":  gostp.TY_ULE,
	"bvugt":  gostp.TY_UGT,
	"bvuge":  gostp.TY_UGE,
	"bvslt":  gostp.TY_SLT,
	"bvsle":  gostp.TY_SLE,
	"bvsgt":  gostp.TY_SGT,
	"bvsge":  gostp.TY_SGE,
	"=":      gostp.TY_EQ,
	"concat": gostp.TY_CONCAT,
	"ite":    gostp.TY_ITE,
	"not":    gostp.TY_BOOL_NOT,
	"and":    gostp.TY_BOOL_AND,
	"or":     gostp.TY_BOOL_OR,
	"xor":    gostp.TY_BOOL_XOR,
	"=>":     gostp.TY_BOOL_IMPLIES,
	"select": gostp.TY_READ,
	"store":  gostp.TY_WRITE,
}

func (l *termLoader) term(n *yaml.Node) (*gostp.Term, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return l.atom(n)
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return nil, errorf(n, "empty application: %w", ErrSyntax)
		}
		return l.application(n)
	}
	return nil, errorf(n, "expected a string or a list: %w", ErrSyntax)
}

func (l *termLoader) atom(n *yaml.Node) (*gostp.Term, error) {
	s := n.Value
	switch {
	case s == "true":
		return l.eb.BoolVal(true), nil
	case s == "false":
		return l.eb.BoolVal(false), nil
	case strings.HasPrefix(s, "#x"):
		c := gostp.MakeBVConstFromString(s[2:], 16, uint(4*len(s[2:])))
		if c == nil || len(s) == 2 {
			return nil, errorf(n, "invalid constant %q: %w", s, ErrSyntax)
		}
		return l.eb.BVConstTerm(c), nil
	case strings.HasPrefix(s, "#b"):
		c := gostp.MakeBVConstFromString(s[2:], 2, uint(len(s[2:])))
		if c == nil || len(s) == 2 {
			return nil, errorf(n, "invalid constant %q: %w", s, ErrSyntax)
		}
		return l.eb.BVConstTerm(c), nil
	}
	if sym, ok := l.p.symbols[s]; ok {
		return sym, nil
	}
	return nil, errorf(n, "%q: %w", s, ErrUndeclared)
}

func (l *termLoader) uintArg(n *yaml.Node) (uint, error) {
	var v uint
	if n.Kind != yaml.ScalarNode {
		return 0, errorf(n, "expected an integer: %w", ErrSyntax)
	}
	if err := n.Decode(&v); err != nil {
		return 0, errorf(n, "expected an integer: %w", ErrSyntax)
	}
	return v, nil
}

func (l *termLoader) args(nodes []*yaml.Node) ([]*gostp.Term, error) {
	res := make([]*gostp.Term, len(nodes))
	for i, c := range nodes {
		t, err := l.term(c)
		if err != nil {
			return nil, err
		}
		res[i] = t
	}
	return res, nil
}

func (l *termLoader) application(n *yaml.Node) (*gostp.Term, error) {
	head := n.Content[0]
	if head.Kind != yaml.ScalarNode {
		return nil, errorf(head, "operator must be a string: %w", ErrSyntax)
	}
	op := head.Value
	rest := n.Content[1:]

	var (
		t   *gostp.Term
		err error
	)
	switch op {
	case "extract":
		if len(rest) != 3 {
			return nil, errorf(n, "extract takes high, low and a term: %w", ErrSyntax)
		}
		high, err := l.uintArg(rest[0])
		if err != nil {
			return nil, err
		}
		low, err := l.uintArg(rest[1])
		if err != nil {
			return nil, err
		}
		child, err := l.term(rest[2])
		if err != nil {
			return nil, err
		}
		t, err = l.eb.CreateExtract(child, high, low)
		if err != nil {
			return nil, errorf(n, "%w", err)
		}
		return t, nil
	case "zero_extend", "sign_extend":
		if len(rest) != 2 {
			return nil, errorf(n, "%s takes a bit count and a term: %w", op, ErrSyntax)
		}
		bits, err := l.uintArg(rest[0])
		if err != nil {
			return nil, err
		}
		child, err := l.term(rest[1])
		if err != nil {
			return nil, err
		}
		kind := gostp.TY_ZEXT
		if op == "sign_extend" {
			kind = gostp.TY_SEXT
		}
		t, err = l.eb.CreateExtend(kind, child, bits)
		if err != nil {
			return nil, errorf(n, "%w", err)
		}
		return t, nil
	case "bv":
		// [bv, value, width]
		if len(rest) != 2 {
			return nil, errorf(n, "bv takes a value and a width: %w", ErrSyntax)
		}
		width, err := l.uintArg(rest[1])
		if err != nil {
			return nil, err
		}
		c := gostp.MakeBVConstFromString(rest[0].Value, 10, width)
		if c == nil || width == 0 {
			return nil, errorf(rest[0], "invalid constant %q: %w", rest[0].Value, ErrSyntax)
		}
		return l.eb.BVConstTerm(c), nil
	}

	children, err := l.args(rest)
	if err != nil {
		return nil, err
	}
	switch op {
	case "bvsub":
		if len(children) != 2 {
			return nil, errorf(n, "bvsub takes two terms: %w", ErrSyntax)
		}
		var neg *gostp.Term
		neg, err = l.eb.CreateNode(gostp.TY_NEG, children[1])
		if err != nil {
			return nil, errorf(n, "%w", err)
		}
		t, err = l.eb.CreateNode(gostp.TY_ADD, children[0], neg)
	case "distinct":
		if len(children) != 2 {
			return nil, errorf(n, "distinct takes two terms: %w", ErrSyntax)
		}
		var eq *gostp.Term
		eq, err = l.eb.CreateNode(gostp.TY_EQ, children...)
		if err != nil {
			return nil, errorf(n, "%w", err)
		}
		t, err = l.eb.CreateNode(gostp.TY_BOOL_NOT, eq)
	default:
		kind, ok := operators[op]
		if !ok {
			return nil, errorf(head, "%q: %w", op, ErrOperator)
		}
		t, err = l.eb.CreateNode(kind, children...)
	}
	if err != nil {
		return nil, errorf(n, "%w", err)
	}
	return t, nil
}
