package liquidity_amounts

import (
	"math/big"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	"github.com/ftchann/clmm-simulator/lib/fullmath"

	sdkmath "cosmossdk.io/math"
	ui "github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

func GetLiquidityForAmount0(sqrtRatioAX64, sqrtRatioBX64 uint128.Uint128, amount0 uint64) (uint128.Uint128, error) {
	if sqrtRatioAX64.Cmp(sqrtRatioBX64) > 0 {
		sqrtRatioAX64, sqrtRatioBX64 = sqrtRatioBX64, sqrtRatioAX64
	}
	if sqrtRatioAX64.Equals(sqrtRatioBX64) {
		return uint128.Zero, errcode.ErrInvalidLiquidity
	}
	a, b := fullmath.FromU128(sqrtRatioAX64), fullmath.FromU128(sqrtRatioBX64)
	intermediate, err := fullmath.MulDiv(a, b, cons.Q64)
	if err != nil {
		return uint128.Zero, err
	}
	liquidity, err := fullmath.MulDiv(ui.NewInt(amount0), intermediate, new(ui.Int).Sub(b, a))
	if err != nil {
		return uint128.Zero, err
	}
	return fullmath.ToU128(liquidity)
}

func GetLiquidityForAmount1(sqrtRatioAX64, sqrtRatioBX64 uint128.Uint128, amount1 uint64) (uint128.Uint128, error) {
	if sqrtRatioAX64.Cmp(sqrtRatioBX64) > 0 {
		sqrtRatioAX64, sqrtRatioBX64 = sqrtRatioBX64, sqrtRatioAX64
	}
	if sqrtRatioAX64.Equals(sqrtRatioBX64) {
		return uint128.Zero, errcode.ErrInvalidLiquidity
	}
	diff := new(ui.Int).Sub(fullmath.FromU128(sqrtRatioBX64), fullmath.FromU128(sqrtRatioAX64))
	liquidity, err := fullmath.MulDiv(ui.NewInt(amount1), cons.Q64, diff)
	if err != nil {
		return uint128.Zero, err
	}
	return fullmath.ToU128(liquidity)
}

// GetLiquidityForAmounts returns the largest liquidity the two amounts can back at the current price.
func GetLiquidityForAmounts(sqrtRatioX64, sqrtRatioAX64, sqrtRatioBX64 uint128.Uint128, amount0, amount1 uint64) (uint128.Uint128, error) {
	if sqrtRatioAX64.Cmp(sqrtRatioBX64) > 0 {
		sqrtRatioAX64, sqrtRatioBX64 = sqrtRatioBX64, sqrtRatioAX64
	}
	if sqrtRatioX64.Cmp(sqrtRatioAX64) <= 0 {
		return GetLiquidityForAmount0(sqrtRatioAX64, sqrtRatioBX64, amount0)
	} else if sqrtRatioX64.Cmp(sqrtRatioBX64) < 0 {
		liquidity0, err := GetLiquidityForAmount0(sqrtRatioX64, sqrtRatioBX64, amount0)
		if err != nil {
			return uint128.Zero, err
		}
		liquidity1, err := GetLiquidityForAmount1(sqrtRatioAX64, sqrtRatioX64, amount1)
		if err != nil {
			return uint128.Zero, err
		}
		if liquidity0.Cmp(liquidity1) < 0 {
			return liquidity0, nil
		}
		return liquidity1, nil
	}
	return GetLiquidityForAmount1(sqrtRatioAX64, sqrtRatioBX64, amount1)
}

var maxU128Big = uint128.Max.Big()

// AddDelta applies a signed liquidity delta to x.
func AddDelta(x uint128.Uint128, delta sdkmath.Int) (uint128.Uint128, error) {
	sum := new(big.Int).Add(x.Big(), delta.BigInt())
	if sum.Sign() < 0 {
		return uint128.Zero, errcode.ErrLiquiditySubValue
	}
	if sum.Cmp(maxU128Big) > 0 {
		return uint128.Zero, errcode.ErrLiquidityAddValue
	}
	return uint128.FromBig(sum), nil
}

// ToDelta converts an unsigned liquidity amount into a signed delta, negated for burns.
func ToDelta(liquidity uint128.Uint128, negative bool) sdkmath.Int {
	delta := sdkmath.NewIntFromBigInt(liquidity.Big())
	if negative {
		return delta.Neg()
	}
	return delta
}
