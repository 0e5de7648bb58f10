package pool

import (
	"fmt"

	"github.com/ftchann/clmm-simulator/lib/bitmap"
	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	"github.com/ftchann/clmm-simulator/lib/tickarray"
	"github.com/ftchann/clmm-simulator/lib/tickmath"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// StatusBit indexes the pool status bitmask. A set bit disables the operation.
type StatusBit uint8

const (
	StatusOpenPositionOrIncreaseLiquidity StatusBit = iota
	StatusDecreaseLiquidity
	StatusCollectFee
	StatusCollectReward
	StatusSwap
)

func (b StatusBit) String() string {
	switch b {
	case StatusOpenPositionOrIncreaseLiquidity:
		return "open_position_or_increase_liquidity"
	case StatusDecreaseLiquidity:
		return "decrease_liquidity"
	case StatusCollectFee:
		return "collect_fee"
	case StatusCollectReward:
		return "collect_reward"
	case StatusSwap:
		return "swap"
	}
	return fmt.Sprintf("bit_%d", uint8(b))
}

type StatusFlag bool

const (
	Enable  StatusFlag = true
	Disable StatusFlag = false
)

// MintInfo is the part of a token mint the pool records.
type MintInfo struct {
	Address  solana.PublicKey
	Decimals uint8
}

type PoolState struct {
	Bump           uint8
	AmmConfig      solana.PublicKey
	Owner          solana.PublicKey
	TokenMint0     solana.PublicKey
	TokenMint1     solana.PublicKey
	TokenVault0    solana.PublicKey
	TokenVault1    solana.PublicKey
	ObservationKey solana.PublicKey
	MintDecimals0  uint8
	MintDecimals1  uint8
	TickSpacing    uint16
	Liquidity      uint128.Uint128
	SqrtPriceX64   uint128.Uint128
	TickCurrent    int32
	Padding3       uint16
	Padding4       uint16

	FeeGrowthGlobal0X64 uint128.Uint128
	FeeGrowthGlobal1X64 uint128.Uint128
	ProtocolFeesToken0  uint64
	ProtocolFeesToken1  uint64

	SwapInAmountToken0  uint128.Uint128
	SwapOutAmountToken1 uint128.Uint128
	SwapInAmountToken1  uint128.Uint128
	SwapOutAmountToken0 uint128.Uint128

	Status          uint8
	Padding         [7]uint8
	RewardInfos     [cons.RewardNum]RewardInfo
	TickArrayBitmap bitmap.U1024

	// lp fees only, protocol and fund fees are tracked separately
	TotalFeesToken0        uint64
	TotalFeesClaimedToken0 uint64
	TotalFeesToken1        uint64
	TotalFeesClaimedToken1 uint64
	FundFeesToken0         uint64
	FundFeesToken1         uint64

	OpenTime    uint64
	RecentEpoch uint64

	// reserved, carried through decode and encode untouched
	Padding1 [24]uint64
	Padding2 [32]uint64
}

// NewPoolState builds a pool priced at sqrtPriceX64. The creator becomes the
// authority of every reward slot until the slot is initialized.
func NewPoolState(
	bump uint8,
	cfg *AmmConfig,
	creator solana.PublicKey,
	mint0, mint1 MintInfo,
	vault0, vault1, observation solana.PublicKey,
	sqrtPriceX64 uint128.Uint128,
	openTime, epoch uint64,
) (*PoolState, error) {
	tick, err := tickmath.GetTickAtSqrtPrice(sqrtPriceX64)
	if err != nil {
		return nil, err
	}
	p := &PoolState{
		Bump:           bump,
		AmmConfig:      cfg.Address(),
		Owner:          creator,
		TokenMint0:     mint0.Address,
		TokenMint1:     mint1.Address,
		TokenVault0:    vault0,
		TokenVault1:    vault1,
		ObservationKey: observation,
		MintDecimals0:  mint0.Decimals,
		MintDecimals1:  mint1.Decimals,
		TickSpacing:    cfg.TickSpacing,
		SqrtPriceX64:   sqrtPriceX64,
		TickCurrent:    tick,
		OpenTime:       openTime,
		RecentEpoch:    epoch,
	}
	for i := range p.RewardInfos {
		p.RewardInfos[i] = NewRewardInfo(creator)
	}
	return p, nil
}

func (p *PoolState) Clone() *PoolState {
	c := *p
	return &c
}

func (p *PoolState) SetStatus(status uint8) {
	p.Status = status
}

func (p *PoolState) SetStatusByBit(bit StatusBit, flag StatusFlag) {
	s := uint8(1) << bit
	if flag == Disable {
		p.Status |= s
	} else {
		p.Status &^= s
	}
}

// GetStatusByBit reports whether the operation guarded by bit is enabled.
func (p *PoolState) GetStatusByBit(bit StatusBit) bool {
	return p.Status&(uint8(1)<<bit) == 0
}

// RewardGrowths is the view of the reward slots used by tick accounting.
func (p *PoolState) RewardGrowths() [cons.RewardNum]tickarray.RewardGrowth {
	var out [cons.RewardNum]tickarray.RewardGrowth
	for i := range p.RewardInfos {
		out[i] = tickarray.RewardGrowth{
			Initialized:     p.RewardInfos[i].Initialized(),
			GrowthGlobalX64: p.RewardInfos[i].RewardGrowthGlobalX64,
		}
	}
	return out
}

// GetTickArrayOffset is the bit of the default bitmap that tracks the array at start.
func (p *PoolState) GetTickArrayOffset(start int32) (int, error) {
	if !tickarray.CheckIsValidStartIndex(start, p.TickSpacing) {
		return 0, fmt.Errorf("tick array start %d: %w", start, errcode.ErrInvalidTickIndex)
	}
	return int(start/tickarray.TickCount(p.TickSpacing)) + cons.TickArrayBitmapSize, nil
}

func (p *PoolState) flipTickArrayBitInternal(start int32) error {
	offset, err := p.GetTickArrayOffset(start)
	if err != nil {
		return err
	}
	p.TickArrayBitmap.Flip(offset)
	return nil
}

// FlipTickArrayBit toggles the bit of the array at start, in the default bitmap
// when it fits and in ext otherwise.
func (p *PoolState) FlipTickArrayBit(ext *bitmap.Extension, start int32) error {
	if p.IsOverflowDefaultTickarrayBitmap(start) {
		if ext == nil {
			return errcode.ErrMissingTickArrayBitmapExtensionAccount
		}
		return ext.FlipTickArrayBit(start, p.TickSpacing)
	}
	return p.flipTickArrayBitInternal(start)
}

// TickArrayStartIndexRange is the [min, max) window of array starts the default
// bitmap can hold. For tick spacing 1 it is [-30720, 30720).
func (p *PoolState) TickArrayStartIndexRange() (int32, int32) {
	maxBoundary := bitmap.MaxTickInTickarrayBitmap(p.TickSpacing)
	minBoundary := -maxBoundary
	if maxBoundary > tickmath.MaxTick {
		maxBoundary = tickarray.GetArrayStartIndex(tickmath.MaxTick, p.TickSpacing) + tickarray.TickCount(p.TickSpacing)
	}
	if minBoundary < tickmath.MinTick {
		minBoundary = tickarray.GetArrayStartIndex(tickmath.MinTick, p.TickSpacing)
	}
	return minBoundary, maxBoundary
}

// IsOverflowDefaultTickarrayBitmap reports whether any of ticks lives in an
// array that only the extension can track.
func (p *PoolState) IsOverflowDefaultTickarrayBitmap(ticks ...int32) bool {
	minBoundary, maxBoundary := p.TickArrayStartIndexRange()
	for _, tick := range ticks {
		start := tickarray.GetArrayStartIndex(tick, p.TickSpacing)
		if start >= maxBoundary || start < minBoundary {
			return true
		}
	}
	return false
}

// GetFirstInitializedTickArray returns the array a swap in the given direction
// starts from, and whether that is the array holding the current tick.
func (p *PoolState) GetFirstInitializedTickArray(ext *bitmap.Extension, zeroForOne bool) (bool, int32, error) {
	var (
		initialized bool
		start       int32
		err         error
	)
	if p.IsOverflowDefaultTickarrayBitmap(p.TickCurrent) {
		if ext == nil {
			return false, 0, errcode.ErrMissingTickArrayBitmapExtensionAccount
		}
		initialized, start, err = ext.CheckTickArrayIsInitialized(tickarray.GetArrayStartIndex(p.TickCurrent, p.TickSpacing), p.TickSpacing)
	} else {
		initialized, start, err = bitmap.CheckCurrentTickArrayIsInitialized(&p.TickArrayBitmap, p.TickCurrent, p.TickSpacing)
	}
	if err != nil {
		return false, 0, err
	}
	if initialized {
		return true, start, nil
	}
	next, ok, err := p.NextInitializedTickArrayStartIndex(ext, tickarray.GetArrayStartIndex(p.TickCurrent, p.TickSpacing), zeroForOne)
	if err != nil {
		return false, 0, err
	}
	if !ok {
		return false, 0, errcode.ErrInsufficientLiquidityForDirection
	}
	return false, next, nil
}

// NextInitializedTickArrayStartIndex walks the default bitmap and then the
// extension, one bitmap at a time, until an initialized array is found or the
// search leaves [MinTick, MaxTick]. A nil extension is only an error when
// the search has to continue past the default bitmap inside the tick range.
func (p *PoolState) NextInitializedTickArrayStartIndex(ext *bitmap.Extension, last int32, zeroForOne bool) (int32, bool, error) {
	last = tickarray.GetArrayStartIndex(last, p.TickSpacing)
	for {
		found, start := bitmap.NextInitializedTickArrayStartIndex(&p.TickArrayBitmap, last, p.TickSpacing, zeroForOne)
		if found {
			return start, true, nil
		}
		last = start
		if ext == nil {
			// wide tick spacings fit the whole tick range into the default bitmap
			if tickarray.CheckIsOutOfBoundary(last) {
				return 0, false, nil
			}
			return 0, false, errcode.ErrMissingTickArrayBitmapExtensionAccount
		}

		found, start, err := ext.NextInitializedTickArrayFromOneBitmap(last, p.TickSpacing, zeroForOne)
		if err != nil {
			return 0, false, err
		}
		if found {
			return start, true, nil
		}
		last = start
		if tickarray.CheckIsOutOfBoundary(last) {
			return 0, false, nil
		}
	}
}
