package gostp

import (
	"fmt"
	"math/big"
)

var zero = big.NewInt(0)
var one = big.NewInt(1)

// BVConst is a fixed-width bit-vector value. Arithmetic wraps modulo 2^Size.
type BVConst struct {
	Size  uint
	mask  *big.Int
	value *big.Int
}

func makeMask(size uint) *big.Int {
	v := big.NewInt(1)
	v.Lsh(v, size)
	return v.Sub(v, one)
}

func MakeBVConst(value int64, size uint) *BVConst {
	return MakeBVConstFromBigint(big.NewInt(value), size)
}

func MakeBVConstFromBigint(value *big.Int, size uint) *BVConst {
	if size == 0 {
		return nil
	}

	mask := makeMask(size)
	v := new(big.Int).Set(value)
	if v.Cmp(zero) < 0 {
		v = v.Neg(v)
		v = v.Sub(v, one)
		v = v.Sub(mask, v)
	}
	v = v.And(v, mask)
	return &BVConst{Size: size, mask: mask, value: v}
}

// MakeBVConstFromString parses digits in the given base. It returns nil if
// the string is not a number.
func MakeBVConstFromString(s string, base int, size uint) *BVConst {
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil
	}
	return MakeBVConstFromBigint(v, size)
}

func (bv *BVConst) BigInt() *big.Int {
	return new(big.Int).Set(bv.value)
}

func (bv *BVConst) IsNegative() bool {
	return bv.value.Bit(int(bv.Size)-1) == 1
}

func (bv *BVConst) IsZero() bool {
	return bv.value.Cmp(zero) == 0
}

func (bv *BVConst) IsOne() bool {
	return bv.value.Cmp(one) == 0
}

func (bv *BVConst) HasAllBitsSet() bool {
	return bv.value.Cmp(bv.mask) == 0
}

func (bv *BVConst) Copy() *BVConst {
	return &BVConst{
		Size:  bv.Size,
		mask:  new(big.Int).Set(bv.mask),
		value: new(big.Int).Set(bv.value),
	}
}

func (bv *BVConst) String() string {
	return fmt.Sprintf("<BV%d 0x%x>", bv.Size, bv.value)
}

func (bv *BVConst) FitInLong() bool {
	return bv.value.BitLen() <= 64
}

func (bv *BVConst) AsULong() uint64 {
	// if it does not `FitInLong`, result is undefined
	return bv.value.Uint64()
}

func (bv *BVConst) AsLong() int64 {
	// if it does not `FitInLong`, result is undefined
	if !bv.IsNegative() {
		return bv.value.Int64()
	}
	bvCpy := bv.Copy()
	bvCpy.Neg()
	return -int64(bvCpy.AsULong())
}

// signed returns the two's complement interpretation of bv.
func (bv *BVConst) signed() *big.Int {
	v := new(big.Int).Set(bv.value)
	if bv.IsNegative() {
		v.Sub(v, bv.mask)
		v.Sub(v, one)
	}
	return v
}

func (bv *BVConst) sameSize(o *BVConst) error {
	if bv.Size != o.Size {
		return fmt.Errorf("different sizes %d and %d: %w", bv.Size, o.Size, ErrWidthMismatch)
	}
	return nil
}

func (bv *BVConst) Not() {
	bv.value.Not(bv.value)
	bv.value.And(bv.value, bv.mask)
}

func (bv *BVConst) Neg() {
	bv.value.Neg(bv.value)
	bv.value.And(bv.value, bv.mask)
}

func (bv *BVConst) Add(o *BVConst) error {
	if err := bv.sameSize(o); err != nil {
		return err
	}
	bv.value.Add(bv.value, o.value)
	bv.value.And(bv.value, bv.mask)
	return nil
}

func (bv *BVConst) Sub(o *BVConst) error {
	if err := bv.sameSize(o); err != nil {
		return err
	}
	bv.value.Sub(bv.value, o.value)
	bv.value.And(bv.value, bv.mask)
	return nil
}

func (bv *BVConst) Mul(o *BVConst) error {
	if err := bv.sameSize(o); err != nil {
		return err
	}
	bv.value.Mul(bv.value, o.value)
	bv.value.And(bv.value, bv.mask)
	return nil
}

// UDiv follows SMT-LIB: division by zero yields all ones.
func (bv *BVConst) UDiv(o *BVConst) error {
	if err := bv.sameSize(o); err != nil {
		return err
	}
	if o.IsZero() {
		bv.value.Set(bv.mask)
		return nil
	}
	bv.value.Quo(bv.value, o.value)
	return nil
}

// URem follows SMT-LIB: the remainder of a division by zero is the dividend.
func (bv *BVConst) URem(o *BVConst) error {
	if err := bv.sameSize(o); err != nil {
		return err
	}
	if o.IsZero() {
		return nil
	}
	bv.value.Rem(bv.value, o.value)
	return nil
}

func (bv *BVConst) SDiv(o *BVConst) error {
	if err := bv.sameSize(o); err != nil {
		return err
	}
	if o.IsZero() {
		if bv.IsNegative() {
			bv.value.Set(one)
		} else {
			bv.value.Set(bv.mask)
		}
		return nil
	}
	res := new(big.Int).Quo(bv.signed(), o.signed())
	bv.value = MakeBVConstFromBigint(res, bv.Size).value
	return nil
}

func (bv *BVConst) SRem(o *BVConst) error {
	if err := bv.sameSize(o); err != nil {
		return err
	}
	if o.IsZero() {
		return nil
	}
	res := new(big.Int).Rem(bv.signed(), o.signed())
	bv.value = MakeBVConstFromBigint(res, bv.Size).value
	return nil
}

func (bv *BVConst) And(o *BVConst) error {
	if err := bv.sameSize(o); err != nil {
		return err
	}
	bv.value.And(bv.value, o.value)
	return nil
}

func (bv *BVConst) Or(o *BVConst) error {
	if err := bv.sameSize(o); err != nil {
		return err
	}
	bv.value.Or(bv.value, o.value)
	return nil
}

func (bv *BVConst) Xor(o *BVConst) error {
	if err := bv.sameSize(o); err != nil {
		return err
	}
	bv.value.Xor(bv.value, o.value)
	return nil
}

func (bv *BVConst) AShr(n uint) {
	isNeg := bv.IsNegative()
	if n >= bv.Size {
		if isNeg {
			bv.value.Set(bv.mask)
		} else {
			bv.value.SetInt64(0)
		}
		return
	}
	if n == 0 {
		return
	}

	bv.value.Rsh(bv.value, n)
	if isNeg {
		mask := makeMask(n)
		mask.Lsh(mask, bv.Size-n)
		bv.value.Or(bv.value, mask)
	}
}

func (bv *BVConst) LShr(n uint) {
	if n >= bv.Size {
		bv.value.SetInt64(0)
		return
	}
	bv.value.Rsh(bv.value, n)
}

func (bv *BVConst) Shl(n uint) {
	if n >= bv.Size {
		bv.value.SetInt64(0)
		return
	}
	bv.value.Lsh(bv.value, n)
	bv.value.And(bv.value, bv.mask)
}

// shiftAmount clamps a shift operand to the width, so that oversized
// amounts shift every bit out.
func (bv *BVConst) shiftAmount() uint {
	if !bv.FitInLong() || bv.AsULong() > uint64(bv.Size) {
		return bv.Size
	}
	return uint(bv.AsULong())
}

// Concat appends o as the low bits of bv.
func (bv *BVConst) Concat(o *BVConst) {
	bv.Size += o.Size
	bv.mask = makeMask(bv.Size)
	bv.value.Lsh(bv.value, o.Size)
	bv.value.Or(bv.value, o.value)
}

func (bv *BVConst) Slice(high uint, low uint) (*BVConst, error) {
	if high < low {
		return nil, fmt.Errorf("high is lower than low")
	}
	if high >= bv.Size {
		return nil, fmt.Errorf("high is not lower than Size")
	}

	v := new(big.Int).Rsh(bv.value, low)
	return MakeBVConstFromBigint(v, high-low+1), nil
}

func (bv *BVConst) ZExt(bits uint) {
	bv.Size += bits
	bv.mask = makeMask(bv.Size)
}

func (bv *BVConst) SExt(bits uint) {
	if !bv.IsNegative() {
		bv.ZExt(bits)
		return
	}

	newBits := makeMask(bits)
	newBits.Lsh(newBits, bv.Size)
	bv.value.Or(bv.value, newBits)

	bv.Size += bits
	bv.mask = makeMask(bv.Size)
}

func (bv *BVConst) Eq(o *BVConst) (BoolConst, error) {
	if err := bv.sameSize(o); err != nil {
		return BoolFalse(), err
	}
	return BoolConst{bv.value.Cmp(o.value) == 0}, nil
}

func (bv *BVConst) NEq(o *BVConst) (BoolConst, error) {
	v, err := bv.Eq(o)
	return v.Not(), err
}

func (bv *BVConst) UGt(o *BVConst) (BoolConst, error) {
	if err := bv.sameSize(o); err != nil {
		return BoolFalse(), err
	}
	return BoolConst{bv.value.Cmp(o.value) > 0}, nil
}

func (bv *BVConst) UGe(o *BVConst) (BoolConst, error) {
	if err := bv.sameSize(o); err != nil {
		return BoolFalse(), err
	}
	return BoolConst{bv.value.Cmp(o.value) >= 0}, nil
}

func (bv *BVConst) Ult(o *BVConst) (BoolConst, error) {
	v, err := bv.UGe(o)
	return v.Not(), err
}

func (bv *BVConst) Ule(o *BVConst) (BoolConst, error) {
	v, err := bv.UGt(o)
	return v.Not(), err
}

func (bv *BVConst) SGt(o *BVConst) (BoolConst, error) {
	if err := bv.sameSize(o); err != nil {
		return BoolFalse(), err
	}
	return BoolConst{bv.signed().Cmp(o.signed()) > 0}, nil
}

func (bv *BVConst) SGe(o *BVConst) (BoolConst, error) {
	if err := bv.sameSize(o); err != nil {
		return BoolFalse(), err
	}
	return BoolConst{bv.signed().Cmp(o.signed()) >= 0}, nil
}

func (bv *BVConst) SLt(o *BVConst) (BoolConst, error) {
	v, err := bv.SGe(o)
	return v.Not(), err
}

func (bv *BVConst) SLe(o *BVConst) (BoolConst, error) {
	v, err := bv.SGt(o)
	return v.Not(), err
}
