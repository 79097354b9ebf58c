package gostp

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Term is an immutable node of the expression graph. Terms are only created
// through an ExprBuilder, which guarantees that two structurally equal terms
// are the same pointer.
type Term struct {
	knd        uint8
	srt        uint8
	id         uint64
	width      uint
	indexWidth uint

	name      string
	value     *BVConst
	boolValue bool
	high, low uint

	children []*Term
	h        uint64
}

func (t *Term) Kind() int {
	return int(t.knd)
}

func (t *Term) Sort() int {
	return int(t.srt)
}

// Id is unique per builder and increases with creation order.
func (t *Term) Id() uint64 {
	return t.id
}

// Width is the bit-vector width, or the value width of an array.
func (t *Term) Width() uint {
	return t.width
}

func (t *Term) IndexWidth() uint {
	return t.indexWidth
}

func (t *Term) Name() string {
	return t.name
}

func (t *Term) IsBool() bool {
	return t.srt == SORT_BOOL
}

func (t *Term) IsBV() bool {
	return t.srt == SORT_BV
}

func (t *Term) IsArray() bool {
	return t.srt == SORT_ARRAY
}

func (t *Term) IsLeaf() bool {
	return len(t.children) == 0
}

func (t *Term) IsSymbol() bool {
	return t.knd == TY_SYM
}

// IsConst reports whether t is a bit-vector or boolean constant.
func (t *Term) IsConst() bool {
	return t.knd == TY_CONST || t.knd == TY_BOOL_CONST
}

func (t *Term) IsTrue() bool {
	return t.knd == TY_BOOL_CONST && t.boolValue
}

func (t *Term) IsFalse() bool {
	return t.knd == TY_BOOL_CONST && !t.boolValue
}

// Children returns the operands of t. The slice must not be modified.
func (t *Term) Children() []*Term {
	return t.children
}

func (t *Term) NumChildren() int {
	return len(t.children)
}

func (t *Term) Child(i int) *Term {
	return t.children[i]
}

func (t *Term) GetConst() (*BVConst, error) {
	if t.knd != TY_CONST {
		return nil, fmt.Errorf("not a constant")
	}
	return t.value.Copy(), nil
}

func (t *Term) GetBool() (bool, error) {
	if t.knd != TY_BOOL_CONST {
		return false, fmt.Errorf("not a boolean constant")
	}
	return t.boolValue, nil
}

// ExtractBounds returns the high and low bit of a TY_EXTRACT term.
func (t *Term) ExtractBounds() (uint, uint) {
	return t.high, t.low
}

func (t *Term) isZero() bool {
	return t.knd == TY_CONST && t.value.IsZero()
}

func (t *Term) isOne() bool {
	return t.knd == TY_CONST && t.value.IsOne()
}

func (t *Term) hasAllBitsSet() bool {
	return t.knd == TY_CONST && t.value.HasAllBitsSet()
}

func (t *Term) hash() uint64 {
	h := xxhash.New()
	raw := make([]byte, 8)

	raw[0] = t.knd
	raw[1] = t.srt
	h.Write(raw[:2])
	binary.BigEndian.PutUint64(raw, uint64(t.width))
	h.Write(raw)
	binary.BigEndian.PutUint64(raw, uint64(t.indexWidth))
	h.Write(raw)

	switch t.knd {
	case TY_SYM:
		h.Write([]byte(t.name))
	case TY_CONST:
		h.Write(t.value.value.Bytes())
	case TY_BOOL_CONST:
		if t.boolValue {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case TY_EXTRACT:
		binary.BigEndian.PutUint64(raw, uint64(t.high))
		h.Write(raw)
		binary.BigEndian.PutUint64(raw, uint64(t.low))
		h.Write(raw)
	}

	for i := 0; i < len(t.children); i++ {
		binary.BigEndian.PutUint64(raw, t.children[i].id)
		h.Write(raw)
	}
	return h.Sum64()
}

// shallowEq compares payloads and children by identity. Children are already
// interned, so this is structural equality.
func (t *Term) shallowEq(o *Term) bool {
	if t.knd != o.knd || t.srt != o.srt || t.width != o.width || t.indexWidth != o.indexWidth {
		return false
	}
	if len(t.children) != len(o.children) {
		return false
	}
	switch t.knd {
	case TY_SYM:
		if t.name != o.name {
			return false
		}
	case TY_CONST:
		if t.value.value.Cmp(o.value.value) != 0 {
			return false
		}
	case TY_BOOL_CONST:
		if t.boolValue != o.boolValue {
			return false
		}
	case TY_EXTRACT:
		if t.high != o.high || t.low != o.low {
			return false
		}
	}
	for i := 0; i < len(t.children); i++ {
		if t.children[i] != o.children[i] {
			return false
		}
	}
	return true
}

func (t *Term) String() string {
	b := strings.Builder{}
	t.write(&b)
	return b.String()
}

func (t *Term) writeOperand(b *strings.Builder) {
	if t.IsLeaf() {
		t.write(b)
		return
	}
	b.WriteString("(")
	t.write(b)
	b.WriteString(")")
}

func (t *Term) write(b *strings.Builder) {
	info := kindTable[int(t.knd)]
	switch t.knd {
	case TY_SYM:
		b.WriteString(t.name)
	case TY_CONST:
		b.WriteString(fmt.Sprintf("0x%x", t.value.value))
	case TY_BOOL_CONST:
		b.WriteString(BoolConst{t.boolValue}.String())
	case TY_EXTRACT:
		t.children[0].writeOperand(b)
		b.WriteString(fmt.Sprintf("[%d:%d]", t.high, t.low))
	case TY_ZEXT, TY_SEXT:
		b.WriteString(fmt.Sprintf("%s(%s, %d)", info.symbol, t.children[0].String(), t.width-t.children[0].width))
	case TY_ITE, TY_READ, TY_WRITE:
		b.WriteString(info.symbol)
		b.WriteString("(")
		for i, c := range t.children {
			if i > 0 {
				b.WriteString(", ")
			}
			c.write(b)
		}
		b.WriteString(")")
	case TY_NOT, TY_NEG, TY_BOOL_NOT:
		b.WriteString(info.symbol)
		t.children[0].writeOperand(b)
	default:
		for i, c := range t.children {
			if i > 0 {
				b.WriteString(fmt.Sprintf(" %s ", info.symbol))
			}
			c.writeOperand(b)
		}
	}
}
