package tickarray

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ftchann/clmm-simulator/lib/errcode"
	"github.com/ftchann/clmm-simulator/lib/tickmath"

	sdkmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestGetArrayStartIndex(t *testing.T) {
	tests := [][]int32{
		// tick, spacing, want
		{0, 10, 0},
		{599, 10, 0},
		{600, 10, 600},
		{-1, 10, -600},
		{-600, 10, -600},
		{-601, 10, -1200},
		{tickmath.MinTick, 1, -443640},
		{tickmath.MaxTick, 1, 443580},
	}
	for _, arg := range tests {
		t.Run(fmt.Sprint(arg), func(t *testing.T) {
			result := GetArrayStartIndex(arg[0], uint16(arg[1]))
			if result != arg[2] {
				t.Fatalf("want=%v result=%v", arg[2], result)
			}
		})
	}
}

func TestCheckIsValidStartIndex(t *testing.T) {
	assert.True(t, CheckIsValidStartIndex(-443640, 1))
	assert.False(t, CheckIsValidStartIndex(-443700, 1))
	assert.True(t, CheckIsValidStartIndex(600, 10))
	assert.False(t, CheckIsValidStartIndex(610, 10))
	assert.False(t, CheckIsValidStartIndex(tickmath.MaxTick+600, 10))
}

func TestCheckTickArrayStartIndex(t *testing.T) {
	require.NoError(t, CheckTickArrayStartIndex(-600, -10, 10))
	assert.ErrorIs(t, CheckTickArrayStartIndex(0, -10, 10), errcode.ErrInvalidTickArray)
	assert.ErrorIs(t, CheckTickArrayStartIndex(0, 5, 10), errcode.ErrTickAndSpacingNotMatch)
	assert.ErrorIs(t, CheckTickArrayStartIndex(0, tickmath.MaxTick+1, 1), errcode.ErrTickUpperOverflow)
	assert.ErrorIs(t, CheckTickArrayStartIndex(0, tickmath.MinTick-1, 1), errcode.ErrTickLowerOverflow)
}

func TestGetTickState(t *testing.T) {
	ta, err := NewTickArray(solana.PublicKey{}, -600, 10, 0)
	require.NoError(t, err)

	tick, err := ta.GetTickState(-10, 10)
	require.NoError(t, err)
	assert.Same(t, &ta.Ticks[59], tick)

	_, err = ta.GetTickState(0, 10)
	assert.True(t, errors.Is(err, errcode.ErrInvalidTickArray))

	_, err = NewTickArray(solana.PublicKey{}, 5, 10, 0)
	assert.ErrorIs(t, err, errcode.ErrInvalidTickIndex)
}

func TestTickUpdate(t *testing.T) {
	fg0, fg1 := uint128.From64(100), uint128.From64(200)
	rewards := [3]RewardGrowth{{Initialized: true, GrowthGlobalX64: uint128.From64(7)}}

	below := NewTickState(-10)
	flipped, err := below.Update(0, sdkmath.NewInt(50), fg0, fg1, false, rewards)
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.True(t, below.FeeGrowthOutside0X64.Equals(fg0))
	assert.True(t, below.RewardGrowthsOutsideX64[0].Equals(uint128.From64(7)))
	assert.True(t, below.LiquidityNet.Equal(sdkmath.NewInt(50)))

	above := NewTickState(10)
	flipped, err = above.Update(0, sdkmath.NewInt(50), fg0, fg1, true, rewards)
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.True(t, above.FeeGrowthOutside0X64.IsZero())
	assert.True(t, above.LiquidityNet.Equal(sdkmath.NewInt(-50)))

	flipped, err = above.Update(0, sdkmath.NewInt(10), fg0, fg1, true, rewards)
	require.NoError(t, err)
	assert.False(t, flipped)

	flipped, err = above.Update(0, sdkmath.NewInt(-60), fg0, fg1, true, rewards)
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.True(t, above.LiquidityNet.IsZero())

	_, err = above.Update(0, sdkmath.NewInt(-1), fg0, fg1, true, rewards)
	assert.ErrorIs(t, err, errcode.ErrLiquiditySubValue)
}

func TestFeeGrowthInsideWraps(t *testing.T) {
	lower := NewTickState(-10)
	upper := NewTickState(10)
	// lower was initialized when the global was larger than it is now from the range's view
	lower.FeeGrowthOutside0X64 = uint128.From64(30)
	upper.FeeGrowthOutside0X64 = uint128.From64(5)

	inside0, inside1 := GetFeeGrowthInside(&lower, &upper, 0, uint128.From64(20), uint128.Zero)
	// 20 - 30 - 5 modulo 2^128
	assert.True(t, inside0.Equals(uint128.Max.Sub64(14)))
	assert.True(t, inside1.IsZero())

	// price above the range: inside = (global - lower) - (global - upper)
	inside0, _ = GetFeeGrowthInside(&lower, &upper, 20, uint128.From64(100), uint128.Zero)
	assert.True(t, inside0.Equals(uint128.Max.Sub64(24)))
}

func TestRewardGrowthsInsideSkipsUninitialized(t *testing.T) {
	lower := NewTickState(-10)
	upper := NewTickState(10)
	lower.RewardGrowthsOutsideX64 = [3]uint128.Uint128{uint128.From64(2), uint128.From64(2), uint128.From64(2)}
	rewards := [3]RewardGrowth{
		{Initialized: true, GrowthGlobalX64: uint128.From64(10)},
		{Initialized: false, GrowthGlobalX64: uint128.From64(10)},
	}
	inside := GetRewardGrowthsInside(&lower, &upper, 0, rewards)
	assert.True(t, inside[0].Equals(uint128.From64(8)))
	assert.True(t, inside[1].IsZero())
	assert.True(t, inside[2].IsZero())
}

func TestCrossTwiceRestores(t *testing.T) {
	tick := NewTickState(0)
	tick.FeeGrowthOutside0X64 = uint128.From64(3)
	tick.LiquidityNet = sdkmath.NewInt(-4)
	rewards := [3]RewardGrowth{{Initialized: true, GrowthGlobalX64: uint128.From64(9)}}

	net := tick.Cross(uint128.From64(10), uint128.Zero, rewards)
	assert.True(t, net.Equal(sdkmath.NewInt(-4)))
	assert.True(t, tick.FeeGrowthOutside0X64.Equals(uint128.From64(7)))
	tick.Cross(uint128.From64(10), uint128.Zero, rewards)
	assert.True(t, tick.FeeGrowthOutside0X64.Equals(uint128.From64(3)))
	assert.True(t, tick.RewardGrowthsOutsideX64[0].IsZero())
}

func TestTickArrayCodec(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	ta, err := NewTickArray(pool, -1200, 10, 42)
	require.NoError(t, err)
	ta.Ticks[3].Tick = -1170
	ta.Ticks[3].LiquidityNet = sdkmath.NewInt(-123456789)
	ta.Ticks[3].LiquidityGross = uint128.New(5, 6)
	ta.Ticks[3].RewardGrowthsOutsideX64[2] = uint128.Max
	ta.InitializedTickCount = 1

	data, err := ta.Encode()
	require.NoError(t, err)
	require.Len(t, data, Len)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, pool, got.PoolID)
	assert.Equal(t, int32(-1200), got.StartTickIndex)
	assert.Equal(t, uint64(42), got.RecentEpoch)
	assert.Equal(t, uint8(1), got.InitializedTickCount)
	assert.True(t, got.Ticks[3].LiquidityNet.Equal(sdkmath.NewInt(-123456789)))
	assert.True(t, got.Ticks[3].LiquidityGross.Equals(uint128.New(5, 6)))
	assert.True(t, got.Ticks[3].RewardGrowthsOutsideX64[2].Equals(uint128.Max))

	_, err = Decode(data[:Len-1])
	assert.Error(t, err)
}

func TestTickArrayCodecKeepsReservedBytes(t *testing.T) {
	ta, err := NewTickArray(solana.NewWallet().PublicKey(), 600, 10, 7)
	require.NoError(t, err)
	data, err := ta.Encode()
	require.NoError(t, err)

	// header is discriminator, pool id and start index
	const header = 8 + 32 + 4
	for i := range ta.Ticks {
		pad := header + (i+1)*TickStateLen - tickPaddingLen
		for j := 0; j < tickPaddingLen; j++ {
			data[pad+j] = byte(i + j + 1)
		}
	}
	for j := Len - arrayPaddingLen; j < Len; j++ {
		data[j] = 0xa5
	}

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, byte(1), got.Ticks[0].Padding[0])
	assert.Equal(t, byte(59+51+1), got.Ticks[59].Padding[51])
	assert.Equal(t, byte(0xa5), got.Padding[arrayPaddingLen-1])
	assert.Equal(t, uint64(7), got.RecentEpoch)

	out, err := got.Encode()
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
