package position

import (
	cons "github.com/ftchann/clmm-simulator/lib/constants"
	fm "github.com/ftchann/clmm-simulator/lib/fullmath"
	"github.com/ftchann/clmm-simulator/lib/tickmath"

	"github.com/gagliardetto/solana-go"
	ui "github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

type RewardInfo struct {
	GrowthInsideLastX64 uint128.Uint128
	RewardAmountOwed    uint64
}

// PersonalPosition is the liquidity one NFT holder provides to a tick range.
type PersonalPosition struct {
	Bump                    uint8
	NftMint                 solana.PublicKey
	PoolID                  solana.PublicKey
	TickLowerIndex          int32
	TickUpperIndex          int32
	Liquidity               uint128.Uint128
	FeeGrowthInside0LastX64 uint128.Uint128
	FeeGrowthInside1LastX64 uint128.Uint128
	TokenFeesOwed0          uint64
	TokenFeesOwed1          uint64
	RewardInfos             [cons.RewardNum]RewardInfo
	RecentEpoch             uint64
}

func NewPersonalPosition(bump uint8, nftMint, poolID solana.PublicKey, tickLower, tickUpper int32) (*PersonalPosition, error) {
	if err := tickmath.CheckTickBoundary(tickLower, tickUpper); err != nil {
		return nil, err
	}
	return &PersonalPosition{
		Bump:           bump,
		NftMint:        nftMint,
		PoolID:         poolID,
		TickLowerIndex: tickLower,
		TickUpperIndex: tickUpper,
	}, nil
}

// Address is the position PDA, seeded by the NFT mint.
func Address(nftMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(cons.PositionSeed), nftMint[:]}, cons.ProgramID)
}

func (p *PersonalPosition) Clone() *PersonalPosition {
	c := *p
	return &c
}

// CalculateLatestTokenFees adds the fees earned by liquidity since the last
// snapshot to lastTotalFees. Growth deltas wrap; a delta worth u64::MAX or
// more is treated as zero.
func CalculateLatestTokenFees(lastTotalFees uint64, feeGrowthInsideLastX64, feeGrowthInsideLatestX64, liquidity uint128.Uint128) (uint64, error) {
	growthDelta := fm.WrappingSub128(feeGrowthInsideLatestX64, feeGrowthInsideLastX64)
	delta, err := fm.MulDiv(fm.FromU128(growthDelta), fm.FromU128(liquidity), cons.Q64)
	if err != nil {
		return 0, err
	}
	return fm.CheckedAddU64(lastTotalFees, toUnderflowU64(delta))
}

func toUnderflowU64(x *ui.Int) uint64 {
	if x.Cmp(cons.MaxUint64) >= 0 {
		return 0
	}
	return x.Uint64()
}

// updateFees books what the current liquidity earned and moves the snapshots.
func (p *PersonalPosition) updateFees(feeGrowthInside0X64, feeGrowthInside1X64 uint128.Uint128) error {
	owed0, err := CalculateLatestTokenFees(p.TokenFeesOwed0, p.FeeGrowthInside0LastX64, feeGrowthInside0X64, p.Liquidity)
	if err != nil {
		return err
	}
	owed1, err := CalculateLatestTokenFees(p.TokenFeesOwed1, p.FeeGrowthInside1LastX64, feeGrowthInside1X64, p.Liquidity)
	if err != nil {
		return err
	}
	p.TokenFeesOwed0, p.TokenFeesOwed1 = owed0, owed1
	p.FeeGrowthInside0LastX64 = feeGrowthInside0X64
	p.FeeGrowthInside1LastX64 = feeGrowthInside1X64
	return nil
}

// UpdateRewards does the same for every reward stream.
func (p *PersonalPosition) UpdateRewards(rewardGrowthsInside [cons.RewardNum]uint128.Uint128) error {
	next := p.RewardInfos
	for i := range next {
		owed, err := CalculateLatestTokenFees(next[i].RewardAmountOwed, next[i].GrowthInsideLastX64, rewardGrowthsInside[i], p.Liquidity)
		if err != nil {
			return err
		}
		next[i] = RewardInfo{GrowthInsideLastX64: rewardGrowthsInside[i], RewardAmountOwed: owed}
	}
	p.RewardInfos = next
	return nil
}

func (p *PersonalPosition) IncreaseLiquidity(
	liquidity uint128.Uint128,
	feeGrowthInside0X64, feeGrowthInside1X64 uint128.Uint128,
	rewardGrowthsInside [cons.RewardNum]uint128.Uint128,
	epoch uint64,
) error {
	next, err := fm.CheckedAdd128(p.Liquidity, liquidity)
	if err != nil {
		return err
	}
	if err := p.updateFees(feeGrowthInside0X64, feeGrowthInside1X64); err != nil {
		return err
	}
	if err := p.UpdateRewards(rewardGrowthsInside); err != nil {
		return err
	}
	p.Liquidity = next
	p.RecentEpoch = epoch
	return nil
}

func (p *PersonalPosition) DecreaseLiquidity(
	liquidity uint128.Uint128,
	feeGrowthInside0X64, feeGrowthInside1X64 uint128.Uint128,
	rewardGrowthsInside [cons.RewardNum]uint128.Uint128,
	epoch uint64,
) error {
	next, err := fm.CheckedSub128(p.Liquidity, liquidity)
	if err != nil {
		return err
	}
	if err := p.updateFees(feeGrowthInside0X64, feeGrowthInside1X64); err != nil {
		return err
	}
	if err := p.UpdateRewards(rewardGrowthsInside); err != nil {
		return err
	}
	p.Liquidity = next
	p.RecentEpoch = epoch
	return nil
}

// IsEmpty reports whether the position holds nothing and may be closed.
func (p *PersonalPosition) IsEmpty() bool {
	if !p.Liquidity.IsZero() || p.TokenFeesOwed0 != 0 || p.TokenFeesOwed1 != 0 {
		return false
	}
	for _, r := range p.RewardInfos {
		if r.RewardAmountOwed != 0 {
			return false
		}
	}
	return true
}
