package engine

import (
	"fmt"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	"github.com/ftchann/clmm-simulator/lib/events"
	"github.com/ftchann/clmm-simulator/lib/liquidity"
	"github.com/ftchann/clmm-simulator/lib/liquidity_amounts"
	"github.com/ftchann/clmm-simulator/lib/pool"
	"github.com/ftchann/clmm-simulator/lib/position"
	"github.com/ftchann/clmm-simulator/lib/tickmath"

	sdkmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// LiquidityResult reports what a position operation moved. Amounts are
// principal only. Fees and rewards paid out are listed separately.
type LiquidityResult struct {
	Liquidity     uint128.Uint128
	Amount0       uint64
	Amount1       uint64
	TransferFee0  uint64
	TransferFee1  uint64
	FeeAmount0    uint64
	FeeAmount1    uint64
	RewardAmounts [cons.RewardNum]uint64
}

type OpenPositionParams struct {
	Owner      solana.PublicKey
	NftMint    solana.PublicKey
	TickLower  int32
	TickUpper  int32
	Liquidity  uint128.Uint128
	Amount0Max uint64
	Amount1Max uint64
	Now        uint64
}

// OpenPosition mints a new position over [TickLower, TickUpper) holding
// Liquidity. The owner pays both token amounts plus any transfer fee, which
// together may not exceed the maxima.
func (e *Engine) OpenPosition(params OpenPositionParams) (*LiquidityResult, error) {
	var out *LiquidityResult
	err := e.run("open_position", params.Now, func(tx *txn) error {
		if !tx.pool.GetStatusByBit(pool.StatusOpenPositionOrIncreaseLiquidity) {
			return errcode.ErrNotApproved
		}
		if _, ok := tx.e.positions[params.NftMint]; ok {
			return fmt.Errorf("position %s already exists", params.NftMint)
		}
		_, bump, err := position.Address(params.NftMint)
		if err != nil {
			return err
		}
		pos, err := position.NewPersonalPosition(bump, params.NftMint, tx.e.id, params.TickLower, params.TickUpper)
		if err != nil {
			return err
		}
		res, err := tx.addLiquidity(params.Owner, pos, params.Liquidity, params.Amount0Max, params.Amount1Max)
		if err != nil {
			return err
		}
		tx.positions[params.NftMint] = pos
		tx.owners[params.NftMint] = params.Owner
		tx.emit(events.CreatePersonalPositionEvent{
			PoolState:                 tx.e.id,
			Minter:                    params.Owner,
			NftOwner:                  params.Owner,
			PositionNftMint:           params.NftMint,
			TickLowerIndex:            params.TickLower,
			TickUpperIndex:            params.TickUpper,
			Liquidity:                 params.Liquidity.String(),
			DepositAmount0:            res.Amount0,
			DepositAmount1:            res.Amount1,
			DepositAmount0TransferFee: res.TransferFee0,
			DepositAmount1TransferFee: res.TransferFee1,
		})
		out = res
		return nil
	})
	return out, err
}

// IncreaseLiquidity adds liquidity to an existing position.
func (e *Engine) IncreaseLiquidity(owner, nftMint solana.PublicKey, liq uint128.Uint128, amount0Max, amount1Max, now uint64) (*LiquidityResult, error) {
	var out *LiquidityResult
	err := e.run("increase_liquidity", now, func(tx *txn) error {
		res, err := tx.increase(owner, nftMint, func(*position.PersonalPosition) (uint128.Uint128, error) {
			return liq, nil
		}, amount0Max, amount1Max)
		out = res
		return err
	})
	return out, err
}

// IncreaseLiquidityByAmounts adds the largest liquidity whose deposit, after
// transfer fees, fits in the given amounts.
func (e *Engine) IncreaseLiquidityByAmounts(owner, nftMint solana.PublicKey, amount0Max, amount1Max, now uint64) (*LiquidityResult, error) {
	var out *LiquidityResult
	err := e.run("increase_liquidity", now, func(tx *txn) error {
		res, err := tx.increase(owner, nftMint, func(pos *position.PersonalPosition) (uint128.Uint128, error) {
			sqrtLower, err := tickmath.GetSqrtPriceAtTick(pos.TickLowerIndex)
			if err != nil {
				return uint128.Zero, err
			}
			sqrtUpper, err := tickmath.GetSqrtPriceAtTick(pos.TickUpperIndex)
			if err != nil {
				return uint128.Zero, err
			}
			net0 := amount0Max - tx.ledger.TransferFee(tx.pool.TokenMint0).Fee(amount0Max)
			net1 := amount1Max - tx.ledger.TransferFee(tx.pool.TokenMint1).Fee(amount1Max)
			return liquidity_amounts.GetLiquidityForAmounts(tx.pool.SqrtPriceX64, sqrtLower, sqrtUpper, net0, net1)
		}, amount0Max, amount1Max)
		out = res
		return err
	})
	return out, err
}

func (tx *txn) increase(owner, nftMint solana.PublicKey, liquidityOf func(*position.PersonalPosition) (uint128.Uint128, error), amount0Max, amount1Max uint64) (*LiquidityResult, error) {
	if !tx.pool.GetStatusByBit(pool.StatusOpenPositionOrIncreaseLiquidity) {
		return nil, errcode.ErrNotApproved
	}
	pos, err := tx.position(owner, nftMint)
	if err != nil {
		return nil, err
	}
	liq, err := liquidityOf(pos)
	if err != nil {
		return nil, err
	}
	res, err := tx.addLiquidity(owner, pos, liq, amount0Max, amount1Max)
	if err != nil {
		return nil, err
	}
	tx.emit(events.IncreaseLiquidityEvent{
		PositionNftMint:    nftMint,
		Liquidity:          liq.String(),
		Amount0:            res.Amount0,
		Amount1:            res.Amount1,
		Amount0TransferFee: res.TransferFee0,
		Amount1TransferFee: res.TransferFee1,
	})
	return res, nil
}

// addLiquidity mints liq into the range of pos, collects the deposit and
// updates the position with the growth seen inside its range.
func (tx *txn) addLiquidity(owner solana.PublicKey, pos *position.PersonalPosition, liq uint128.Uint128, amount0Max, amount1Max uint64) (*LiquidityResult, error) {
	ticks, err := tx.ticks(pos)
	if err != nil {
		return nil, err
	}
	change, err := liquidity.AddLiquidity(tx.pool, tx.ext, ticks, pos.TickLowerIndex, pos.TickUpperIndex, liq, tx.now)
	if err != nil {
		return nil, err
	}
	res := &LiquidityResult{Liquidity: liq, Amount0: change.Amount0, Amount1: change.Amount1}
	res.TransferFee0 = tx.ledger.TransferFee(tx.pool.TokenMint0).InverseFee(change.Amount0)
	res.TransferFee1 = tx.ledger.TransferFee(tx.pool.TokenMint1).InverseFee(change.Amount1)
	if change.Amount0+res.TransferFee0 > amount0Max || change.Amount0+res.TransferFee0 < change.Amount0 {
		return nil, fmt.Errorf("amount 0 %d plus fee %d above max %d: %w", change.Amount0, res.TransferFee0, amount0Max, errcode.ErrPriceSlippageCheck)
	}
	if change.Amount1+res.TransferFee1 > amount1Max || change.Amount1+res.TransferFee1 < change.Amount1 {
		return nil, fmt.Errorf("amount 1 %d plus fee %d above max %d: %w", change.Amount1, res.TransferFee1, amount1Max, errcode.ErrPriceSlippageCheck)
	}
	if _, err := tx.pay(owner, tx.pool.TokenMint0, tx.pool.TokenVault0, change.Amount0); err != nil {
		return nil, err
	}
	if _, err := tx.pay(owner, tx.pool.TokenMint1, tx.pool.TokenVault1, change.Amount1); err != nil {
		return nil, err
	}
	if err := pos.IncreaseLiquidity(liq, change.FeeGrowthInside0X64, change.FeeGrowthInside1X64, change.RewardGrowthsInside, epochAt(tx.now)); err != nil {
		return nil, err
	}
	tx.emitLiquidityChange(pos, change)
	return res, nil
}

func (tx *txn) ticks(pos *position.PersonalPosition) (liquidity.Ticks, error) {
	lower, err := tx.array(pos.TickLowerIndex)
	if err != nil {
		return liquidity.Ticks{}, err
	}
	upper, err := tx.array(pos.TickUpperIndex)
	if err != nil {
		return liquidity.Ticks{}, err
	}
	return liquidity.Ticks{Lower: lower, Upper: upper}, nil
}

func (tx *txn) emitLiquidityChange(pos *position.PersonalPosition, change *liquidity.ChangeResult) {
	tx.emit(events.LiquidityChangeEvent{
		PoolState:       tx.e.id,
		Tick:            tx.pool.TickCurrent,
		TickLower:       pos.TickLowerIndex,
		TickUpper:       pos.TickUpperIndex,
		LiquidityBefore: change.LiquidityBefore.String(),
		LiquidityAfter:  change.LiquidityAfter.String(),
	})
}

// DecreaseLiquidity burns liq from the position and pays out the principal
// together with every fee and reward owed. Each step only runs while its
// status bit is enabled. The slippage minima apply to the principal after
// transfer fees and are skipped when nothing is burned.
func (e *Engine) DecreaseLiquidity(owner, nftMint solana.PublicKey, liq uint128.Uint128, amount0Min, amount1Min, now uint64) (*LiquidityResult, error) {
	var out *LiquidityResult
	err := e.run("decrease_liquidity", now, func(tx *txn) (err error) {
		out, err = tx.decrease(owner, nftMint, liq, amount0Min, amount1Min)
		return err
	})
	return out, err
}

// CollectFees pays out what the position has earned without touching its
// liquidity.
func (e *Engine) CollectFees(owner, nftMint solana.PublicKey, now uint64) (*LiquidityResult, error) {
	var out *LiquidityResult
	err := e.run("collect_fees", now, func(tx *txn) (err error) {
		out, err = tx.decrease(owner, nftMint, uint128.Zero, 0, 0)
		return err
	})
	return out, err
}

func (tx *txn) decrease(owner, nftMint solana.PublicKey, liq uint128.Uint128, amount0Min, amount1Min uint64) (*LiquidityResult, error) {
	pos, err := tx.position(owner, nftMint)
	if err != nil {
		return nil, err
	}
	if liq.Cmp(pos.Liquidity) > 0 {
		return nil, fmt.Errorf("burn %s of %s: %w", liq, pos.Liquidity, errcode.ErrInvalidLiquidity)
	}
	p := tx.pool
	if !p.GetStatusByBit(pool.StatusDecreaseLiquidity) && !p.GetStatusByBit(pool.StatusCollectFee) && !p.GetStatusByBit(pool.StatusCollectReward) {
		return nil, errcode.ErrNotApproved
	}
	liquidityBefore, sqrtPrice, tick := p.Liquidity, p.SqrtPriceX64, p.TickCurrent

	res := &LiquidityResult{Liquidity: liq}
	if p.GetStatusByBit(pool.StatusDecreaseLiquidity) {
		ticks, err := tx.ticks(pos)
		if err != nil {
			return nil, err
		}
		change, err := liquidity.BurnLiquidity(p, tx.ext, ticks, pos.TickLowerIndex, pos.TickUpperIndex, liq, tx.now)
		if err != nil {
			return nil, err
		}
		if err := pos.DecreaseLiquidity(liq, change.FeeGrowthInside0X64, change.FeeGrowthInside1X64, change.RewardGrowthsInside, epochAt(tx.now)); err != nil {
			return nil, err
		}
		tx.emitLiquidityChange(pos, change)
		res.Amount0, res.Amount1 = change.Amount0, change.Amount1
	}
	if p.GetStatusByBit(pool.StatusCollectFee) {
		res.FeeAmount0, res.FeeAmount1 = pos.TokenFeesOwed0, pos.TokenFeesOwed1
		if err := p.ClaimFees(res.FeeAmount0, res.FeeAmount1); err != nil {
			return nil, err
		}
		pos.TokenFeesOwed0, pos.TokenFeesOwed1 = 0, 0
	}

	res.TransferFee0 = tx.ledger.TransferFee(p.TokenMint0).Fee(res.Amount0)
	res.TransferFee1 = tx.ledger.TransferFee(p.TokenMint1).Fee(res.Amount1)
	tx.emit(events.LiquidityCalculateEvent{
		PoolLiquidity:    liquidityBefore.String(),
		PoolSqrtPriceX64: sqrtPrice.String(),
		PoolTick:         tick,
		CalcAmount0:      res.Amount0,
		CalcAmount1:      res.Amount1,
		TradeFeeOwed0:    res.FeeAmount0,
		TradeFeeOwed1:    res.FeeAmount1,
		TransferFee0:     res.TransferFee0,
		TransferFee1:     res.TransferFee1,
	})
	if !liq.IsZero() {
		if res.Amount0-res.TransferFee0 < amount0Min || res.Amount1-res.TransferFee1 < amount1Min {
			return nil, fmt.Errorf("received %d/%d below %d/%d: %w",
				res.Amount0-res.TransferFee0, res.Amount1-res.TransferFee1, amount0Min, amount1Min, errcode.ErrPriceSlippageCheck)
		}
	}

	for _, t := range []struct {
		vault, mint solana.PublicKey
		amount, fee uint64
	}{
		{p.TokenVault0, p.TokenMint0, res.Amount0, res.FeeAmount0},
		{p.TokenVault1, p.TokenMint1, res.Amount1, res.FeeAmount1},
	} {
		total := t.amount + t.fee
		if total < t.amount {
			return nil, errcode.ErrMaxTokenOverflow
		}
		if _, err := tx.payOut(t.vault, t.mint, owner, total); err != nil {
			return nil, err
		}
	}

	before := p.Status
	disabled, err := p.CheckUnclaimedFeesAndVault(tx.ledger.Balance(p.TokenVault0), tx.ledger.Balance(p.TokenVault1))
	if err != nil {
		return nil, err
	}
	if disabled && p.Status != before {
		p.Status = before
		tx.disableStatus(pool.StatusCollectFee, "token vault below unclaimed fees")
	}

	if res.RewardAmounts, err = tx.collectRewards(owner, pos); err != nil {
		return nil, err
	}
	tx.emit(events.DecreaseLiquidityEvent{
		PositionNftMint: nftMint,
		Liquidity:       liq.String(),
		DecreaseAmount0: res.Amount0,
		DecreaseAmount1: res.Amount1,
		FeeAmount0:      res.FeeAmount0,
		FeeAmount1:      res.FeeAmount1,
		RewardAmounts:   res.RewardAmounts,
		TransferFee0:    res.TransferFee0,
		TransferFee1:    res.TransferFee1,
	})
	if res.FeeAmount0 > 0 || res.FeeAmount1 > 0 {
		to0, err := account(owner, p.TokenMint0)
		if err != nil {
			return nil, err
		}
		to1, err := account(owner, p.TokenMint1)
		if err != nil {
			return nil, err
		}
		tx.emit(events.CollectPersonalFeeEvent{
			PositionNftMint:        nftMint,
			RecipientTokenAccount0: to0,
			RecipientTokenAccount1: to1,
			Amount0:                res.FeeAmount0,
			Amount1:                res.FeeAmount1,
		})
	}
	return res, nil
}

// collectRewards pays each owed reward, capped by what its vault holds. A
// vault that cannot cover the position switches reward collection off.
func (tx *txn) collectRewards(owner solana.PublicKey, pos *position.PersonalPosition) ([cons.RewardNum]uint64, error) {
	var amounts [cons.RewardNum]uint64
	if !tx.pool.GetStatusByBit(pool.StatusCollectReward) {
		return amounts, nil
	}
	for i := range tx.pool.RewardInfos {
		r := tx.pool.RewardInfos[i]
		owed := pos.RewardInfos[i].RewardAmountOwed
		if !r.Initialized() || owed == 0 {
			continue
		}
		if err := tx.pool.CheckUnclaimedReward(i, owed); err != nil {
			return amounts, err
		}
		amount := min(owed, tx.ledger.Balance(r.TokenVault))
		if amount < owed {
			tx.disableStatus(pool.StatusCollectReward, fmt.Sprintf("reward vault %d below owed amount", i))
		}
		if amount == 0 {
			continue
		}
		pos.RewardInfos[i].RewardAmountOwed = owed - amount
		if err := tx.pool.AddRewardClaimed(i, amount); err != nil {
			return amounts, err
		}
		if _, err := tx.payOut(r.TokenVault, r.TokenMint, owner, amount); err != nil {
			return amounts, err
		}
		amounts[i] = amount
	}
	return amounts, nil
}

// ClosePosition removes a position that holds no liquidity and is owed nothing.
func (e *Engine) ClosePosition(owner, nftMint solana.PublicKey, now uint64) error {
	return e.run("close_position", now, func(tx *txn) error {
		pos, err := tx.position(owner, nftMint)
		if err != nil {
			return err
		}
		if !pos.IsEmpty() {
			return errcode.ErrClosePosition
		}
		tx.closed[nftMint] = true
		return nil
	})
}

// ModifyLiquidity applies a signed liquidity delta: a positive delta is an
// uncapped increase, a negative one a decrease without minima, and zero only
// collects.
func (e *Engine) ModifyLiquidity(owner, nftMint solana.PublicKey, delta sdkmath.Int, now uint64) (*LiquidityResult, error) {
	if delta.IsZero() {
		return e.CollectFees(owner, nftMint, now)
	}
	if delta.Abs().BigInt().BitLen() > 128 {
		return nil, errcode.ErrLiquidityAddValue
	}
	liq := uint128.FromBig(delta.Abs().BigInt())
	if delta.IsNegative() {
		return e.DecreaseLiquidity(owner, nftMint, liq, 0, 0, now)
	}
	return e.IncreaseLiquidity(owner, nftMint, liq, ^uint64(0), ^uint64(0), now)
}
