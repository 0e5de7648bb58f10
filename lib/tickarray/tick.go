package tickarray

import (
	"math/big"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	fm "github.com/ftchann/clmm-simulator/lib/fullmath"
	"github.com/ftchann/clmm-simulator/lib/liquidity_amounts"
	"github.com/ftchann/clmm-simulator/lib/tickmath"

	sdkmath "cosmossdk.io/math"
	"lukechampine.com/uint128"
)

// RewardGrowth is the pool wide view of one reward stream.
type RewardGrowth struct {
	Initialized     bool
	GrowthGlobalX64 uint128.Uint128
}

type TickState struct {
	Tick                    int32
	LiquidityNet            sdkmath.Int
	LiquidityGross          uint128.Uint128
	FeeGrowthOutside0X64    uint128.Uint128
	FeeGrowthOutside1X64    uint128.Uint128
	RewardGrowthsOutsideX64 [cons.RewardNum]uint128.Uint128
	Padding                 [tickPaddingLen]byte
}

func NewTickState(tick int32) TickState {
	return TickState{Tick: tick, LiquidityNet: sdkmath.ZeroInt()}
}

func (t *TickState) IsInitialized() bool {
	return !t.LiquidityGross.IsZero()
}

func (t *TickState) net() sdkmath.Int {
	if t.LiquidityNet.IsNil() {
		return sdkmath.ZeroInt()
	}
	return t.LiquidityNet
}

var (
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

func checkI128(v sdkmath.Int) error {
	b := v.BigInt()
	if b.Cmp(maxI128) > 0 || b.Cmp(minI128) < 0 {
		return errcode.ErrMathOverflow
	}
	return nil
}

// Update applies liquidityDelta to the tick and reports whether it flipped
// between initialized and uninitialized.
func (t *TickState) Update(
	tickCurrent int32,
	liquidityDelta sdkmath.Int,
	feeGrowthGlobal0X64, feeGrowthGlobal1X64 uint128.Uint128,
	upper bool,
	rewards [cons.RewardNum]RewardGrowth,
) (bool, error) {
	grossBefore := t.LiquidityGross
	grossAfter, err := liquidity_amounts.AddDelta(grossBefore, liquidityDelta)
	if err != nil {
		return false, err
	}
	flipped := grossAfter.IsZero() != grossBefore.IsZero()

	var net sdkmath.Int
	if upper {
		net = t.net().Sub(liquidityDelta)
	} else {
		net = t.net().Add(liquidityDelta)
	}
	if err := checkI128(net); err != nil {
		return false, err
	}

	if grossBefore.IsZero() {
		// by convention, assume that all growth before a tick was initialized happened below the tick
		if t.Tick <= tickCurrent {
			t.FeeGrowthOutside0X64 = feeGrowthGlobal0X64
			t.FeeGrowthOutside1X64 = feeGrowthGlobal1X64
			for i, r := range rewards {
				t.RewardGrowthsOutsideX64[i] = r.GrowthGlobalX64
			}
		}
	}
	t.LiquidityGross = grossAfter
	t.LiquidityNet = net
	return flipped, nil
}

// Cross flips the outside growth values when the price moves over the tick.
// It returns the net liquidity to add when crossing left to right.
func (t *TickState) Cross(feeGrowthGlobal0X64, feeGrowthGlobal1X64 uint128.Uint128, rewards [cons.RewardNum]RewardGrowth) sdkmath.Int {
	t.FeeGrowthOutside0X64 = fm.WrappingSub128(feeGrowthGlobal0X64, t.FeeGrowthOutside0X64)
	t.FeeGrowthOutside1X64 = fm.WrappingSub128(feeGrowthGlobal1X64, t.FeeGrowthOutside1X64)
	for i, r := range rewards {
		if !r.Initialized {
			continue
		}
		t.RewardGrowthsOutsideX64[i] = fm.WrappingSub128(r.GrowthGlobalX64, t.RewardGrowthsOutsideX64[i])
	}
	return t.net()
}

func (t *TickState) Clear() {
	t.LiquidityNet = sdkmath.ZeroInt()
	t.LiquidityGross = uint128.Zero
	t.FeeGrowthOutside0X64 = uint128.Zero
	t.FeeGrowthOutside1X64 = uint128.Zero
	t.RewardGrowthsOutsideX64 = [cons.RewardNum]uint128.Uint128{}
}

func (t TickState) Clone() TickState {
	c := t
	c.LiquidityNet = t.net()
	return c
}

// growthBelow and growthAbove split a global accumulator around a tick.
func growthBelow(tick *TickState, tickCurrent int32, global, outside uint128.Uint128) uint128.Uint128 {
	if tickCurrent >= tick.Tick {
		return outside
	}
	return fm.WrappingSub128(global, outside)
}

func growthAbove(tick *TickState, tickCurrent int32, global, outside uint128.Uint128) uint128.Uint128 {
	if tickCurrent < tick.Tick {
		return outside
	}
	return fm.WrappingSub128(global, outside)
}

// GetFeeGrowthInside returns the fee growth per unit of liquidity accumulated inside [lower, upper).
func GetFeeGrowthInside(lower, upper *TickState, tickCurrent int32, feeGrowthGlobal0X64, feeGrowthGlobal1X64 uint128.Uint128) (uint128.Uint128, uint128.Uint128) {
	below0 := growthBelow(lower, tickCurrent, feeGrowthGlobal0X64, lower.FeeGrowthOutside0X64)
	below1 := growthBelow(lower, tickCurrent, feeGrowthGlobal1X64, lower.FeeGrowthOutside1X64)
	above0 := growthAbove(upper, tickCurrent, feeGrowthGlobal0X64, upper.FeeGrowthOutside0X64)
	above1 := growthAbove(upper, tickCurrent, feeGrowthGlobal1X64, upper.FeeGrowthOutside1X64)

	inside0 := fm.WrappingSub128(fm.WrappingSub128(feeGrowthGlobal0X64, below0), above0)
	inside1 := fm.WrappingSub128(fm.WrappingSub128(feeGrowthGlobal1X64, below1), above1)
	return inside0, inside1
}

// GetRewardGrowthsInside is GetFeeGrowthInside for each reward stream. Uninitialized streams yield zero.
func GetRewardGrowthsInside(lower, upper *TickState, tickCurrent int32, rewards [cons.RewardNum]RewardGrowth) [cons.RewardNum]uint128.Uint128 {
	var inside [cons.RewardNum]uint128.Uint128
	for i, r := range rewards {
		if !r.Initialized {
			continue
		}
		below := growthBelow(lower, tickCurrent, r.GrowthGlobalX64, lower.RewardGrowthsOutsideX64[i])
		above := growthAbove(upper, tickCurrent, r.GrowthGlobalX64, upper.RewardGrowthsOutsideX64[i])
		inside[i] = fm.WrappingSub128(fm.WrappingSub128(r.GrowthGlobalX64, below), above)
	}
	return inside
}

// CheckIsOutOfBoundary reports whether tick lies outside [MinTick, MaxTick].
func CheckIsOutOfBoundary(tick int32) bool {
	return tick < tickmath.MinTick || tick > tickmath.MaxTick
}
