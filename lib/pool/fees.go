package pool

import (
	"fmt"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	fm "github.com/ftchann/clmm-simulator/lib/fullmath"

	ui "github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// SwapFee splits the fee charged on one swap.
type SwapFee struct {
	Fee         uint64
	ProtocolFee uint64
	FundFee     uint64
	// the part credited to liquidity providers through fee growth
	LpFee uint64
}

// AccrueSwapFee books the fee side of a swap of amountIn for amountOut at the
// current price. The trade fee is taken from amountIn, the protocol share
// from the fee and the fund share from what is left. The remainder grows the
// global fee growth of the input token, unless the pool has no liquidity in
// range, in which case it is dropped like the on-chain swap loop does.
func (p *PoolState) AccrueSwapFee(cfg *AmmConfig, zeroForOne bool, amountIn, amountOut uint64) (SwapFee, error) {
	var out SwapFee
	fee, err := fm.MulDivRoundingUp(ui.NewInt(amountIn), ui.NewInt(uint64(cfg.TradeFeeRate)), cons.FeeRateDenominator)
	if err != nil {
		return out, err
	}
	out.Fee = fee.Uint64()
	lpFee := out.Fee
	out.ProtocolFee = feeShare(lpFee, cfg.ProtocolFeeRate)
	lpFee -= out.ProtocolFee
	out.FundFee = feeShare(lpFee, cfg.FundFeeRate)
	lpFee -= out.FundFee

	growth := &p.FeeGrowthGlobal1X64
	protocolFees, fundFees, totalFees := &p.ProtocolFeesToken1, &p.FundFeesToken1, &p.TotalFeesToken1
	swapIn, swapOut := &p.SwapInAmountToken1, &p.SwapOutAmountToken0
	if zeroForOne {
		growth = &p.FeeGrowthGlobal0X64
		protocolFees, fundFees, totalFees = &p.ProtocolFeesToken0, &p.FundFeesToken0, &p.TotalFeesToken0
		swapIn, swapOut = &p.SwapInAmountToken0, &p.SwapOutAmountToken1
	}

	if !p.Liquidity.IsZero() {
		delta, err := fm.MulDiv(ui.NewInt(lpFee), cons.Q64, fm.FromU128(p.Liquidity))
		if err != nil {
			return out, err
		}
		*growth = fm.WrappingAdd128(*growth, fm.TruncU128(delta))
		if *totalFees, err = fm.CheckedAddU64(*totalFees, lpFee); err != nil {
			return out, err
		}
		out.LpFee = lpFee
	}
	if *protocolFees, err = fm.CheckedAddU64(*protocolFees, out.ProtocolFee); err != nil {
		return out, err
	}
	if *fundFees, err = fm.CheckedAddU64(*fundFees, out.FundFee); err != nil {
		return out, err
	}
	if *swapIn, err = fm.CheckedAdd128(*swapIn, uint128.From64(amountIn)); err != nil {
		return out, err
	}
	if *swapOut, err = fm.CheckedAdd128(*swapOut, uint128.From64(amountOut)); err != nil {
		return out, err
	}
	return out, nil
}

// feeShare is floor(fee*rate/FeeRateDenominator). It never exceeds fee.
func feeShare(fee uint64, rate uint32) uint64 {
	share := new(ui.Int).Mul(ui.NewInt(fee), ui.NewInt(uint64(rate)))
	return share.Div(share, cons.FeeRateDenominator).Uint64()
}

// CollectProtocolFee withdraws up to the requested protocol fees and returns
// the amounts taken.
func (p *PoolState) CollectProtocolFee(amount0Requested, amount1Requested uint64) (uint64, uint64) {
	amount0 := min(amount0Requested, p.ProtocolFeesToken0)
	amount1 := min(amount1Requested, p.ProtocolFeesToken1)
	p.ProtocolFeesToken0 -= amount0
	p.ProtocolFeesToken1 -= amount1
	return amount0, amount1
}

func (p *PoolState) CollectFundFee(amount0Requested, amount1Requested uint64) (uint64, uint64) {
	amount0 := min(amount0Requested, p.FundFeesToken0)
	amount1 := min(amount1Requested, p.FundFeesToken1)
	p.FundFeesToken0 -= amount0
	p.FundFeesToken1 -= amount1
	return amount0, amount1
}

// ClaimFees marks owed lp fees as paid. It fails when a position claims more
// than the pool has accrued and not yet paid out.
func (p *PoolState) ClaimFees(owed0, owed1 uint64) error {
	unclaimed0, err := fm.CheckedSubU64(p.TotalFeesToken0, p.TotalFeesClaimedToken0)
	if err != nil {
		return err
	}
	unclaimed1, err := fm.CheckedSubU64(p.TotalFeesToken1, p.TotalFeesClaimedToken1)
	if err != nil {
		return err
	}
	if unclaimed0 < owed0 || unclaimed1 < owed1 {
		return fmt.Errorf("fees owed %d/%d, unclaimed %d/%d: %w", owed0, owed1, unclaimed0, unclaimed1, errcode.ErrInsufficientFunds)
	}
	if p.TotalFeesClaimedToken0, err = fm.CheckedAddU64(p.TotalFeesClaimedToken0, owed0); err != nil {
		return err
	}
	p.TotalFeesClaimedToken1, err = fm.CheckedAddU64(p.TotalFeesClaimedToken1, owed1)
	return err
}

// CheckUnclaimedFeesAndVault disables fee collection when a non empty vault no
// longer covers the lp fees still owed. It reports whether it did so.
func (p *PoolState) CheckUnclaimedFeesAndVault(vault0Amount, vault1Amount uint64) (bool, error) {
	unclaimed0, err := fm.CheckedSubU64(p.TotalFeesToken0, p.TotalFeesClaimedToken0)
	if err != nil {
		return false, err
	}
	unclaimed1, err := fm.CheckedSubU64(p.TotalFeesToken1, p.TotalFeesClaimedToken1)
	if err != nil {
		return false, err
	}
	if (unclaimed0 >= vault0Amount && vault0Amount != 0) || (unclaimed1 >= vault1Amount && vault1Amount != 0) {
		p.SetStatusByBit(StatusCollectFee, Disable)
		return true, nil
	}
	return false, nil
}
