package sqrtprice_math

import (
	"math/big"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	fm "github.com/ftchann/clmm-simulator/lib/fullmath"

	sdkmath "cosmossdk.io/math"
	ui "github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// GetPrice returns the token1/token0 price as a Q64.64 fixed point big integer.
func GetPrice(sqrtPriceX64 uint128.Uint128) *big.Int {
	x := sqrtPriceX64.Big()
	square := new(big.Int).Mul(x, x)
	return square.Rsh(square, 64)
}

// GetDeltaAmount0Unsigned returns liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB).
func GetDeltaAmount0Unsigned(sqrtRatioAX64, sqrtRatioBX64, liquidity uint128.Uint128, roundUp bool) (uint64, error) {
	if sqrtRatioAX64.Cmp(sqrtRatioBX64) > 0 {
		sqrtRatioAX64, sqrtRatioBX64 = sqrtRatioBX64, sqrtRatioAX64
	}
	if sqrtRatioAX64.IsZero() {
		return 0, errcode.ErrSqrtPriceX64
	}
	a, b := fm.FromU128(sqrtRatioAX64), fm.FromU128(sqrtRatioBX64)
	numerator1 := new(ui.Int).Lsh(fm.FromU128(liquidity), 64)
	numerator2 := new(ui.Int).Sub(b, a)

	var res *ui.Int
	var err error
	if roundUp {
		res, err = fm.MulDivRoundingUp(numerator1, numerator2, b)
		if err != nil {
			return 0, err
		}
		res, err = fm.MulDivRoundingUp(res, cons.One, a)
	} else {
		res, err = fm.MulDiv(numerator1, numerator2, b)
		if err == nil {
			res.Div(res, a)
		}
	}
	if err != nil {
		return 0, err
	}
	return fm.ToU64(res)
}

// GetDeltaAmount1Unsigned returns liquidity * (sqrtB - sqrtA).
func GetDeltaAmount1Unsigned(sqrtRatioAX64, sqrtRatioBX64, liquidity uint128.Uint128, roundUp bool) (uint64, error) {
	if sqrtRatioAX64.Cmp(sqrtRatioBX64) > 0 {
		sqrtRatioAX64, sqrtRatioBX64 = sqrtRatioBX64, sqrtRatioAX64
	}
	ratioDiff := new(ui.Int).Sub(fm.FromU128(sqrtRatioBX64), fm.FromU128(sqrtRatioAX64))

	var res *ui.Int
	var err error
	if roundUp {
		res, err = fm.MulDivRoundingUp(fm.FromU128(liquidity), ratioDiff, cons.Q64)
	} else {
		res, err = fm.MulDiv(fm.FromU128(liquidity), ratioDiff, cons.Q64)
	}
	if err != nil {
		return 0, err
	}
	return fm.ToU64(res)
}

// GetDeltaAmount0Signed rounds up when liquidity is added and down when it is removed.
func GetDeltaAmount0Signed(sqrtRatioAX64, sqrtRatioBX64 uint128.Uint128, liquidity sdkmath.Int) (uint64, error) {
	abs, err := absU128(liquidity)
	if err != nil {
		return 0, err
	}
	return GetDeltaAmount0Unsigned(sqrtRatioAX64, sqrtRatioBX64, abs, !liquidity.IsNegative())
}

func GetDeltaAmount1Signed(sqrtRatioAX64, sqrtRatioBX64 uint128.Uint128, liquidity sdkmath.Int) (uint64, error) {
	abs, err := absU128(liquidity)
	if err != nil {
		return 0, err
	}
	return GetDeltaAmount1Unsigned(sqrtRatioAX64, sqrtRatioBX64, abs, !liquidity.IsNegative())
}

func absU128(v sdkmath.Int) (uint128.Uint128, error) {
	abs := v.Abs().BigInt()
	if abs.BitLen() > 128 {
		return uint128.Zero, errcode.ErrMathOverflow
	}
	return uint128.FromBig(abs), nil
}
