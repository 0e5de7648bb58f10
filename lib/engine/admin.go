package engine

import (
	"fmt"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	"github.com/ftchann/clmm-simulator/lib/events"
	"github.com/ftchann/clmm-simulator/lib/pool"

	"github.com/gagliardetto/solana-go"
)

// AccrueSwapFee books a swap of amountIn for amountOut by trader at the
// current price: the trader pays amountIn into the input vault, receives
// amountOut from the output vault, and the trade fee is split between
// liquidity providers, the protocol and the fund.
func (e *Engine) AccrueSwapFee(trader solana.PublicKey, zeroForOne bool, amountIn, amountOut, now uint64) (pool.SwapFee, error) {
	var fee pool.SwapFee
	err := e.run("swap", now, func(tx *txn) error {
		p := tx.pool
		if !p.GetStatusByBit(pool.StatusSwap) || now < p.OpenTime {
			return errcode.ErrNotApproved
		}
		if err := tx.updateRewardInfos(); err != nil {
			return err
		}
		var err error
		if fee, err = p.AccrueSwapFee(tx.e.cfg, zeroForOne, amountIn, amountOut); err != nil {
			return err
		}
		mintIn, vaultIn, mintOut, vaultOut := p.TokenMint1, p.TokenVault1, p.TokenMint0, p.TokenVault0
		if zeroForOne {
			mintIn, vaultIn, mintOut, vaultOut = p.TokenMint0, p.TokenVault0, p.TokenMint1, p.TokenVault1
		}
		if _, err := tx.pay(trader, mintIn, vaultIn, amountIn); err != nil {
			return err
		}
		if amountOut > 0 {
			if _, err := tx.payOut(vaultOut, mintOut, trader, amountOut); err != nil {
				return err
			}
		}
		tx.emit(events.SwapEvent{
			PoolState:    tx.e.id,
			ZeroForOne:   zeroForOne,
			AmountIn:     amountIn,
			AmountOut:    amountOut,
			Fee:          fee.Fee,
			ProtocolFee:  fee.ProtocolFee,
			FundFee:      fee.FundFee,
			SqrtPriceX64: p.SqrtPriceX64.String(),
			Liquidity:    p.Liquidity.String(),
			Tick:         p.TickCurrent,
		})
		return nil
	})
	return fee, err
}

// CollectProtocolFee pays up to the requested protocol fees to recipient.
// Only the admin and the config owner may call it.
func (e *Engine) CollectProtocolFee(authority, recipient solana.PublicKey, amount0Requested, amount1Requested, now uint64) (uint64, uint64, error) {
	return e.collectPoolFees("collect_protocol_fee", false, authority, recipient, amount0Requested, amount1Requested, now)
}

// CollectFundFee pays up to the requested fund fees to recipient. Only the
// admin and the fund owner may call it.
func (e *Engine) CollectFundFee(authority, recipient solana.PublicKey, amount0Requested, amount1Requested, now uint64) (uint64, uint64, error) {
	return e.collectPoolFees("collect_fund_fee", true, authority, recipient, amount0Requested, amount1Requested, now)
}

func (e *Engine) collectPoolFees(op string, fund bool, authority, recipient solana.PublicKey, amount0Requested, amount1Requested, now uint64) (amount0, amount1 uint64, err error) {
	err = e.run(op, now, func(tx *txn) error {
		owner := tx.e.cfg.Owner
		if fund {
			owner = tx.e.cfg.FundOwner
		}
		if !authority.Equals(cons.AdminID) && !authority.Equals(owner) {
			return errcode.ErrNotApproved
		}
		p := tx.pool
		if fund {
			amount0, amount1 = p.CollectFundFee(amount0Requested, amount1Requested)
		} else {
			amount0, amount1 = p.CollectProtocolFee(amount0Requested, amount1Requested)
		}
		if _, err := tx.payOut(p.TokenVault0, p.TokenMint0, recipient, amount0); err != nil {
			return err
		}
		if _, err := tx.payOut(p.TokenVault1, p.TokenMint1, recipient, amount1); err != nil {
			return err
		}
		to0, err := account(recipient, p.TokenMint0)
		if err != nil {
			return err
		}
		to1, err := account(recipient, p.TokenMint1)
		if err != nil {
			return err
		}
		tx.emit(events.CollectProtocolFeeEvent{
			PoolState:              tx.e.id,
			RecipientTokenAccount0: to0,
			RecipientTokenAccount1: to1,
			Amount0:                amount0,
			Amount1:                amount1,
			Fund:                   fund,
		})
		return nil
	})
	return amount0, amount1, err
}

// SetStatus replaces the whole status mask. Admin only.
func (e *Engine) SetStatus(authority solana.PublicKey, status uint8, now uint64) error {
	return e.run("set_status", now, func(tx *txn) error {
		if !authority.Equals(cons.AdminID) {
			return errcode.ErrNotApproved
		}
		before := tx.pool.Status
		tx.pool.SetStatus(status)
		tx.emit(events.StatusChangeEvent{PoolState: tx.e.id, Before: before, After: status, Reason: "admin"})
		return nil
	})
}

// FlipTickArrayBit toggles the bitmap bit of the tick array starting at start.
func (e *Engine) FlipTickArrayBit(start int32, now uint64) error {
	return e.run("flip_tick_array_bit", now, func(tx *txn) error {
		if err := tx.pool.FlipTickArrayBit(tx.ext, start); err != nil {
			return fmt.Errorf("start %d: %w", start, err)
		}
		return nil
	})
}

// NextInitializedTickArrayStartIndex searches both bitmaps for the next
// initialized tick array after the one starting at from.
func (e *Engine) NextInitializedTickArrayStartIndex(from int32, zeroForOne bool) (int32, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.NextInitializedTickArrayStartIndex(e.ext, from, zeroForOne)
}

// GetFirstInitializedTickArray finds the tick array a swap from the current
// tick would start in.
func (e *Engine) GetFirstInitializedTickArray(zeroForOne bool) (bool, int32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.GetFirstInitializedTickArray(e.ext, zeroForOne)
}

func (e *Engine) TickArrayStartIndexRange() (int32, int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.TickArrayStartIndexRange()
}
