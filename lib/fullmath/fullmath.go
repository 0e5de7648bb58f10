package fullmath

import (
	"math/bits"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"

	ui "github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

func MulDivRoundingUp(a, b, denominator *ui.Int) (*ui.Int, error) {
	if a.IsZero() || b.IsZero() {
		return ui.NewInt(0), nil
	}
	result, err := MulDiv(a, b, denominator)
	if err != nil {
		return nil, err
	}
	rem := new(ui.Int).MulMod(a, b, denominator)
	if !rem.IsZero() {
		result.Add(result, cons.One)
	}
	return result, nil
}

// MulDiv computes floor(a*b/denominator) with a 512 bit intermediate.
func MulDiv(a, b, denominator *ui.Int) (*ui.Int, error) {
	if denominator.IsZero() {
		return nil, errcode.ErrMathOverflow
	}
	result, overflow := new(ui.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return nil, errcode.ErrMathOverflow
	}
	return result, nil
}

func FromU128(v uint128.Uint128) *ui.Int {
	return &ui.Int{v.Lo, v.Hi, 0, 0}
}

// ToU128 narrows x, failing when it does not fit in 128 bits.
func ToU128(x *ui.Int) (uint128.Uint128, error) {
	if x[2] != 0 || x[3] != 0 {
		return uint128.Zero, errcode.ErrMathOverflow
	}
	return uint128.New(x[0], x[1]), nil
}

// TruncU128 keeps the low 128 bits of x.
func TruncU128(x *ui.Int) uint128.Uint128 {
	return uint128.New(x[0], x[1])
}

func ToU64(x *ui.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, errcode.ErrMaxTokenOverflow
	}
	return x.Uint64(), nil
}

// WrappingSub128 is a - b modulo 2^128. Growth accumulators rely on it.
func WrappingSub128(a, b uint128.Uint128) uint128.Uint128 {
	return a.SubWrap(b)
}

func WrappingAdd128(a, b uint128.Uint128) uint128.Uint128 {
	return a.AddWrap(b)
}

func CheckedAdd128(a, b uint128.Uint128) (uint128.Uint128, error) {
	lo, carry := bits.Add64(a.Lo, b.Lo, 0)
	hi, carry := bits.Add64(a.Hi, b.Hi, carry)
	if carry != 0 {
		return uint128.Zero, errcode.ErrMathOverflow
	}
	return uint128.New(lo, hi), nil
}

func CheckedSub128(a, b uint128.Uint128) (uint128.Uint128, error) {
	if a.Cmp(b) < 0 {
		return uint128.Zero, errcode.ErrMathOverflow
	}
	return a.Sub(b), nil
}

func CheckedAddU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, errcode.ErrMathOverflow
	}
	return sum, nil
}

func CheckedSubU64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, errcode.ErrMathOverflow
	}
	return diff, nil
}
