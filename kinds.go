package gostp

const (
	SORT_BOOL  = 1
	SORT_BV    = 2
	SORT_ARRAY = 3
)

const (
	TY_SYM     = 1
	TY_CONST   = 2
	TY_EXTRACT = 3
	TY_CONCAT  = 4
	TY_ZEXT    = 5
	TY_SEXT    = 6
	TY_ITE     = 7

	TY_NOT  = 8
	TY_NEG  = 9
	TY_SHL  = 10
	TY_LSHR = 11
	TY_ASHR = 12
	TY_AND  = 13
	TY_OR   = 14
	TY_XOR  = 15
	TY_ADD  = 16
	TY_MUL  = 17
	TY_SDIV = 18
	TY_UDIV = 19
	TY_SREM = 20
	TY_UREM = 21

	TY_ULT = 22
	TY_ULE = 23
	TY_UGT = 24
	TY_UGE = 25
	TY_SLT = 26
	TY_SLE = 27
	TY_SGT = 28
	TY_SGE = 29
	TY_EQ  = 30

	TY_BOOL_CONST   = 31
	TY_BOOL_NOT     = 32
	TY_BOOL_AND     = 33
	TY_BOOL_OR      = 34
	TY_BOOL_XOR     = 35
	TY_BOOL_IFF     = 36
	TY_BOOL_IMPLIES = 37

	TY_READ  = 38
	TY_WRITE = 39
)

// arity of -1 means "two or more".
type kindInfo struct {
	name   string
	symbol string
	arity  int
}

var kindTable = map[int]kindInfo{
	TY_SYM:     {"symbol", "", 0},
	TY_CONST:   {"bvconst", "", 0},
	TY_EXTRACT: {"extract", "", 1},
	TY_CONCAT:  {"concat", "..", -1},
	TY_ZEXT:    {"zero_extend", "ZExt", 1},
	TY_SEXT:    {"sign_extend", "SExt", 1},
	TY_ITE:     {"ite", "ITE", 3},

	TY_NOT:  {"bvnot", "~", 1},
	TY_NEG:  {"bvneg", "-", 1},
	TY_SHL:  {"bvshl", "<<", 2},
	TY_LSHR: {"bvlshr", "l>>", 2},
	TY_ASHR: {"bvashr", "a>>", 2},
	TY_AND:  {"bvand", "&", -1},
	TY_OR:   {"bvor", "|", -1},
	TY_XOR:  {"bvxor", "^", -1},
	TY_ADD:  {"bvadd", "+", -1},
	TY_MUL:  {"bvmul", "*", -1},
	TY_SDIV: {"bvsdiv", "s/", 2},
	TY_UDIV: {"bvudiv", "u/", 2},
	TY_SREM: {"bvsrem", "s%", 2},
	TY_UREM: {"bvurem", "u%", 2},

	TY_ULT: {"bvult", "u<", 2},
	TY_ULE: {"bvule", "u<=", 2},
	TY_UGT: {"bvugt", "u>", 2},
	TY_UGE: {"bvuge", "u>=", 2},
	TY_SLT: {"bvslt", "s<", 2},
	TY_SLE: {"bvsle", "s<=", 2},
	TY_SGT: {"bvsgt", "s>", 2},
	TY_SGE: {"bvsge", "s>=", 2},
	TY_EQ:  {"=", "==", 2},

	TY_BOOL_CONST:   {"boolconst", "", 0},
	TY_BOOL_NOT:     {"not", "!", 1},
	TY_BOOL_AND:     {"and", "&&", -1},
	TY_BOOL_OR:      {"or", "||", -1},
	TY_BOOL_XOR:     {"xor", "^^", -1},
	TY_BOOL_IFF:     {"iff", "<=>", 2},
	TY_BOOL_IMPLIES: {"=>", "=>", 2},

	TY_READ:  {"select", "Select", 2},
	TY_WRITE: {"store", "Store", 3},
}

// KindName returns the SMT-LIB style name of a kind.
func KindName(kind int) string {
	if info, ok := kindTable[kind]; ok {
		return info.name
	}
	return "unknown"
}

// IsAssociative reports whether nested applications of kind can be merged
// into a single n-ary node without changing the meaning of the term.
func IsAssociative(kind int) bool {
	switch kind {
	case TY_AND, TY_OR, TY_XOR, TY_ADD, TY_MUL,
		TY_BOOL_AND, TY_BOOL_OR, TY_BOOL_XOR:
		return true
	}
	return false
}

func isComparison(kind int) bool {
	return kind >= TY_ULT && kind <= TY_SGE
}
