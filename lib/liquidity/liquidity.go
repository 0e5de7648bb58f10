// Package liquidity applies liquidity deltas to a pool and its boundary ticks.
package liquidity

import (
	"fmt"

	"github.com/ftchann/clmm-simulator/lib/bitmap"
	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	"github.com/ftchann/clmm-simulator/lib/liquidity_amounts"
	"github.com/ftchann/clmm-simulator/lib/pool"
	"github.com/ftchann/clmm-simulator/lib/sqrtprice_math"
	"github.com/ftchann/clmm-simulator/lib/tickarray"
	"github.com/ftchann/clmm-simulator/lib/tickmath"

	sdkmath "cosmossdk.io/math"
	"lukechampine.com/uint128"
)

// ChangeResult is what a liquidity change hands back to position bookkeeping.
type ChangeResult struct {
	Amount0             uint64
	Amount1             uint64
	TickLowerFlipped    bool
	TickUpperFlipped    bool
	FeeGrowthInside0X64 uint128.Uint128
	FeeGrowthInside1X64 uint128.Uint128
	RewardGrowthsInside [cons.RewardNum]uint128.Uint128
	LiquidityBefore     uint128.Uint128
	LiquidityAfter      uint128.Uint128
}

// ModifyPosition accrues rewards up to now, applies delta to both boundary
// ticks and, when the range holds the current tick, to the pool liquidity.
// The amounts are rounded up for deposits and down for withdrawals.
func ModifyPosition(delta sdkmath.Int, p *pool.PoolState, lower, upper *tickarray.TickState, now uint64) (*ChangeResult, error) {
	if err := tickmath.CheckTickBoundary(lower.Tick, upper.Tick); err != nil {
		return nil, err
	}
	if _, err := p.UpdateRewardInfos(now); err != nil {
		return nil, err
	}
	rewards := p.RewardGrowths()
	res := &ChangeResult{LiquidityBefore: p.Liquidity}

	if !delta.IsZero() {
		var err error
		res.TickLowerFlipped, err = lower.Update(p.TickCurrent, delta, p.FeeGrowthGlobal0X64, p.FeeGrowthGlobal1X64, false, rewards)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", lower.Tick, err)
		}
		res.TickUpperFlipped, err = upper.Update(p.TickCurrent, delta, p.FeeGrowthGlobal0X64, p.FeeGrowthGlobal1X64, true, rewards)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", upper.Tick, err)
		}
	}

	res.FeeGrowthInside0X64, res.FeeGrowthInside1X64 = tickarray.GetFeeGrowthInside(lower, upper, p.TickCurrent, p.FeeGrowthGlobal0X64, p.FeeGrowthGlobal1X64)
	res.RewardGrowthsInside = tickarray.GetRewardGrowthsInside(lower, upper, p.TickCurrent, rewards)

	// a tick nobody references any more forgets its growth snapshots
	if delta.IsNegative() {
		if res.TickLowerFlipped {
			lower.Clear()
		}
		if res.TickUpperFlipped {
			upper.Clear()
		}
	}

	if !delta.IsZero() {
		if err := applyToPool(res, delta, p, lower.Tick, upper.Tick); err != nil {
			return nil, err
		}
	}
	res.LiquidityAfter = p.Liquidity
	return res, nil
}

func applyToPool(res *ChangeResult, delta sdkmath.Int, p *pool.PoolState, tickLower, tickUpper int32) error {
	sqrtLower, err := tickmath.GetSqrtPriceAtTick(tickLower)
	if err != nil {
		return err
	}
	sqrtUpper, err := tickmath.GetSqrtPriceAtTick(tickUpper)
	if err != nil {
		return err
	}
	switch {
	case p.TickCurrent < tickLower:
		// range is above the price, only token 0 is needed
		res.Amount0, err = sqrtprice_math.GetDeltaAmount0Signed(sqrtLower, sqrtUpper, delta)
		return err
	case p.TickCurrent < tickUpper:
		if res.Amount0, err = sqrtprice_math.GetDeltaAmount0Signed(p.SqrtPriceX64, sqrtUpper, delta); err != nil {
			return err
		}
		if res.Amount1, err = sqrtprice_math.GetDeltaAmount1Signed(sqrtLower, p.SqrtPriceX64, delta); err != nil {
			return err
		}
		p.Liquidity, err = liquidity_amounts.AddDelta(p.Liquidity, delta)
		return err
	default:
		res.Amount1, err = sqrtprice_math.GetDeltaAmount1Signed(sqrtLower, sqrtUpper, delta)
		return err
	}
}

// Ticks locates the tick arrays holding both ends of a position range. Lower
// and Upper may be the same array.
type Ticks struct {
	Lower *tickarray.TickArray
	Upper *tickarray.TickArray
}

func (t Ticks) states(tickLower, tickUpper int32, tickSpacing uint16) (*tickarray.TickState, *tickarray.TickState, error) {
	if err := tickarray.CheckTickArrayStartIndex(t.Lower.StartTickIndex, tickLower, tickSpacing); err != nil {
		return nil, nil, err
	}
	if err := tickarray.CheckTickArrayStartIndex(t.Upper.StartTickIndex, tickUpper, tickSpacing); err != nil {
		return nil, nil, err
	}
	lower, err := t.Lower.GetTickState(tickLower, tickSpacing)
	if err != nil {
		return nil, nil, err
	}
	upper, err := t.Upper.GetTickState(tickUpper, tickSpacing)
	if err != nil {
		return nil, nil, err
	}
	lower.Tick = tickLower
	upper.Tick = tickUpper
	return lower, upper, nil
}

// AddLiquidity mints liquidity into [tickLower, tickUpper). A tick array whose
// first tick gets initialized is marked in the pool bitmap or in ext, which
// may only be nil when both ticks fit the default bitmap.
//
// Errors found before any tick is touched leave p, ext and ticks unchanged.
// Later failures can leave them partly updated, so callers that keep going
// after an error must work on copies.
func AddLiquidity(p *pool.PoolState, ext *bitmap.Extension, ticks Ticks, tickLower, tickUpper int32, liquidity uint128.Uint128, now uint64) (*ChangeResult, error) {
	if liquidity.IsZero() {
		return nil, errcode.ErrZeroMintAmount
	}
	lower, upper, err := ticks.states(tickLower, tickUpper, p.TickSpacing)
	if err != nil {
		return nil, err
	}
	if err := requireExtension(p, ext, tickLower, tickUpper); err != nil {
		return nil, err
	}
	res, err := ModifyPosition(liquidity_amounts.ToDelta(liquidity, false), p, lower, upper, now)
	if err != nil {
		return nil, err
	}
	if res.Amount0 == 0 && res.Amount1 == 0 {
		return nil, errcode.ErrForbidBothZeroForSupplyLiquidity
	}
	if err := updateArrays(p, ext, ticks, res, true); err != nil {
		return nil, err
	}
	return res, nil
}

// BurnLiquidity removes liquidity from [tickLower, tickUpper). A tick array
// left without initialized ticks is unmarked. The error contract is the one
// of AddLiquidity.
func BurnLiquidity(p *pool.PoolState, ext *bitmap.Extension, ticks Ticks, tickLower, tickUpper int32, liquidity uint128.Uint128, now uint64) (*ChangeResult, error) {
	lower, upper, err := ticks.states(tickLower, tickUpper, p.TickSpacing)
	if err != nil {
		return nil, err
	}
	if err := requireExtension(p, ext, tickLower, tickUpper); err != nil {
		return nil, err
	}
	res, err := ModifyPosition(liquidity_amounts.ToDelta(liquidity, true), p, lower, upper, now)
	if err != nil {
		return nil, err
	}
	if err := updateArrays(p, ext, ticks, res, false); err != nil {
		return nil, err
	}
	return res, nil
}

func requireExtension(p *pool.PoolState, ext *bitmap.Extension, tickLower, tickUpper int32) error {
	if ext == nil && p.IsOverflowDefaultTickarrayBitmap(tickLower, tickUpper) {
		return errcode.ErrMissingTickArrayBitmapExtensionAccount
	}
	return nil
}

func updateArrays(p *pool.PoolState, ext *bitmap.Extension, ticks Ticks, res *ChangeResult, add bool) error {
	flips := []struct {
		flipped bool
		array   *tickarray.TickArray
	}{
		{res.TickLowerFlipped, ticks.Lower},
		{res.TickUpperFlipped, ticks.Upper},
	}
	for _, f := range flips {
		if !f.flipped {
			continue
		}
		before := f.array.InitializedTickCount
		f.array.UpdateInitializedTickCount(add)
		if (add && before == 0) || (!add && f.array.InitializedTickCount == 0) {
			if err := p.FlipTickArrayBit(ext, f.array.StartTickIndex); err != nil {
				return fmt.Errorf("flip tick array %d: %w", f.array.StartTickIndex, err)
			}
		}
	}
	return nil
}
