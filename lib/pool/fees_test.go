package pool

import (
	"errors"
	"testing"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func testConfig(t *testing.T) *AmmConfig {
	t.Helper()
	// 0.25% trade fee, 12% of it to the protocol and 4% to the fund
	cfg, err := NewAmmConfig(0, cons.AdminID, 0, 2500, 120000, 40000)
	require.NoError(t, err)
	return cfg
}

func TestNewAmmConfig(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, uint16(60), cfg.TickSpacing)
	assert.False(t, cfg.Address().IsZero())

	other, err := NewAmmConfig(1, cons.AdminID, 0, 2500, 120000, 40000)
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Address(), other.Address())

	tests := []struct {
		name                     string
		spacing                  uint16
		trade, protocol, fundFee uint32
	}{
		{"trade rate at denominator", 1, 1_000_000, 0, 0},
		{"protocol plus fund too high", 1, 100, 600_000, 400_001},
		{"unknown tier", 0, 1234, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAmmConfig(0, cons.AdminID, tt.spacing, tt.trade, tt.protocol, tt.fundFee)
			assert.Error(t, err)
		})
	}
}

func TestAccrueSwapFee(t *testing.T) {
	cfg := testConfig(t)
	p := buildPool(t, 0, cfg.TickSpacing)
	p.FeeGrowthGlobal0X64 = uint128.Zero
	p.FeeGrowthGlobal1X64 = uint128.Zero
	p.Liquidity = uint128.From64(1 << 32)

	fee, err := p.AccrueSwapFee(cfg, true, 1_000_000, 990_000)
	require.NoError(t, err)
	assert.Equal(t, SwapFee{Fee: 2500, ProtocolFee: 300, FundFee: 88, LpFee: 2112}, fee)
	assert.Equal(t, fee.Fee, fee.ProtocolFee+fee.FundFee+fee.LpFee)

	// 2112 * 2^64 / 2^32
	assert.Equal(t, uint128.From64(2112<<32), p.FeeGrowthGlobal0X64)
	assert.True(t, p.FeeGrowthGlobal1X64.IsZero())
	assert.Equal(t, uint64(2112), p.TotalFeesToken0)
	assert.Equal(t, uint64(300), p.ProtocolFeesToken0)
	assert.Equal(t, uint64(88), p.FundFeesToken0)
	assert.Equal(t, uint128.From64(1_000_000), p.SwapInAmountToken0)
	assert.Equal(t, uint128.From64(990_000), p.SwapOutAmountToken1)

	// fee rounds up on token 1 too
	fee, err = p.AccrueSwapFee(cfg, false, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fee.Fee)
	assert.Equal(t, uint64(1), fee.LpFee)
	assert.Equal(t, uint128.From64(1<<32), p.FeeGrowthGlobal1X64)
	assert.Equal(t, uint128.From64(1), p.SwapInAmountToken1)
	assert.Equal(t, uint128.From64(1), p.SwapOutAmountToken0)
}

func TestAccrueSwapFeeWithoutLiquidity(t *testing.T) {
	cfg := testConfig(t)
	p := buildPool(t, 0, cfg.TickSpacing)
	before := p.FeeGrowthGlobal1X64

	fee, err := p.AccrueSwapFee(cfg, false, 1_000_000, 0)
	require.NoError(t, err)
	assert.Zero(t, fee.LpFee)
	assert.Equal(t, before, p.FeeGrowthGlobal1X64)
	assert.Zero(t, p.TotalFeesToken1)
	assert.Equal(t, uint64(300), p.ProtocolFeesToken1)

	amount0, amount1 := p.CollectProtocolFee(10, 1000)
	assert.Equal(t, uint64(0), amount0)
	assert.Equal(t, uint64(300), amount1)
	assert.Zero(t, p.ProtocolFeesToken1)

	amount0, amount1 = p.CollectFundFee(0, 50)
	assert.Equal(t, uint64(0), amount0)
	assert.Equal(t, uint64(50), amount1)
	assert.Equal(t, uint64(38), p.FundFeesToken1)
}

func TestClaimFees(t *testing.T) {
	p := &PoolState{TotalFeesToken0: 100, TotalFeesToken1: 50}
	require.NoError(t, p.ClaimFees(60, 50))
	assert.Equal(t, uint64(60), p.TotalFeesClaimedToken0)
	assert.Equal(t, uint64(50), p.TotalFeesClaimedToken1)

	err := p.ClaimFees(41, 0)
	assert.True(t, errors.Is(err, errcode.ErrInsufficientFunds))
	assert.Equal(t, uint64(60), p.TotalFeesClaimedToken0)
}

func TestCheckUnclaimedFeesAndVault(t *testing.T) {
	tests := []struct {
		name           string
		total0, total1 uint64
		vault0, vault1 uint64
		disabled       bool
	}{
		{"vaults cover fees", 10, 10, 11, 11, false},
		{"token0 vault short", 10, 0, 10, 100, true},
		{"token1 vault short", 0, 20, 100, 5, true},
		{"empty vaults are ignored", 10, 10, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &PoolState{TotalFeesToken0: tt.total0, TotalFeesToken1: tt.total1}
			disabled, err := p.CheckUnclaimedFeesAndVault(tt.vault0, tt.vault1)
			require.NoError(t, err)
			assert.Equal(t, tt.disabled, disabled)
			assert.Equal(t, !tt.disabled, p.GetStatusByBit(StatusCollectFee))
		})
	}
}

func TestNewPoolState(t *testing.T) {
	cfg := testConfig(t)
	creator := solana.NewWallet().PublicKey()
	mint0 := MintInfo{Address: solana.NewWallet().PublicKey(), Decimals: 6}
	mint1 := MintInfo{Address: solana.NewWallet().PublicKey(), Decimals: 9}
	price := uint128.New(0, 1) // price 1

	p, err := NewPoolState(255, cfg, creator, mint0, mint1, solana.PublicKey{}, solana.PublicKey{}, solana.PublicKey{}, price, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(0), p.TickCurrent)
	assert.Equal(t, cfg.Address(), p.AmmConfig)
	assert.Equal(t, uint16(60), p.TickSpacing)
	assert.Equal(t, uint8(6), p.MintDecimals0)
	assert.Equal(t, uint8(0), p.Status)
	for i := range p.RewardInfos {
		assert.Equal(t, creator, p.RewardInfos[i].Authority)
		assert.False(t, p.RewardInfos[i].Initialized())
	}

	_, err = NewPoolState(255, cfg, creator, mint0, mint1, solana.PublicKey{}, solana.PublicKey{}, solana.PublicKey{}, uint128.From64(1), 10, 3)
	assert.Error(t, err)
}
