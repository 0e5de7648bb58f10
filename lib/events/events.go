// Package events defines the records an engine emits for every state change.
package events

import (
	cons "github.com/ftchann/clmm-simulator/lib/constants"

	"github.com/gagliardetto/solana-go"
)

// Event is the payload of one Record. 128 bit values are carried as decimal
// strings so they survive JSON round trips.
type Event interface {
	EventName() string
}

// Record is an Event tagged with the pool and the time it happened at.
type Record struct {
	Seq       uint64           `json:"seq"`
	Pool      solana.PublicKey `json:"pool"`
	Timestamp uint64           `json:"timestamp"`
	EventName string           `json:"event_name"`
	Data      Event            `json:"data"`
}

type PoolCreatedEvent struct {
	TokenMint0   solana.PublicKey `json:"token_mint_0"`
	TokenMint1   solana.PublicKey `json:"token_mint_1"`
	TickSpacing  uint16           `json:"tick_spacing"`
	PoolState    solana.PublicKey `json:"pool_state"`
	SqrtPriceX64 string           `json:"sqrt_price_x64"`
	Tick         int32            `json:"tick"`
	TokenVault0  solana.PublicKey `json:"token_vault_0"`
	TokenVault1  solana.PublicKey `json:"token_vault_1"`
}

type CreatePersonalPositionEvent struct {
	PoolState                 solana.PublicKey `json:"pool_state"`
	Minter                    solana.PublicKey `json:"minter"`
	NftOwner                  solana.PublicKey `json:"nft_owner"`
	PositionNftMint           solana.PublicKey `json:"position_nft_mint"`
	TickLowerIndex            int32            `json:"tick_lower_index"`
	TickUpperIndex            int32            `json:"tick_upper_index"`
	Liquidity                 string           `json:"liquidity"`
	DepositAmount0            uint64           `json:"deposit_amount_0"`
	DepositAmount1            uint64           `json:"deposit_amount_1"`
	DepositAmount0TransferFee uint64           `json:"deposit_amount_0_transfer_fee"`
	DepositAmount1TransferFee uint64           `json:"deposit_amount_1_transfer_fee"`
}

type IncreaseLiquidityEvent struct {
	PositionNftMint    solana.PublicKey `json:"position_nft_mint"`
	Liquidity          string           `json:"liquidity"`
	Amount0            uint64           `json:"amount_0"`
	Amount1            uint64           `json:"amount_1"`
	Amount0TransferFee uint64           `json:"amount_0_transfer_fee"`
	Amount1TransferFee uint64           `json:"amount_1_transfer_fee"`
}

type DecreaseLiquidityEvent struct {
	PositionNftMint solana.PublicKey       `json:"position_nft_mint"`
	Liquidity       string                 `json:"liquidity"`
	DecreaseAmount0 uint64                 `json:"decrease_amount_0"`
	DecreaseAmount1 uint64                 `json:"decrease_amount_1"`
	FeeAmount0      uint64                 `json:"fee_amount_0"`
	FeeAmount1      uint64                 `json:"fee_amount_1"`
	RewardAmounts   [cons.RewardNum]uint64 `json:"reward_amounts"`
	TransferFee0    uint64                 `json:"transfer_fee_0"`
	TransferFee1    uint64                 `json:"transfer_fee_1"`
}

// LiquidityChangeEvent is emitted whenever the pool wide liquidity may have changed.
type LiquidityChangeEvent struct {
	PoolState       solana.PublicKey `json:"pool_state"`
	Tick            int32            `json:"tick"`
	TickLower       int32            `json:"tick_lower"`
	TickUpper       int32            `json:"tick_upper"`
	LiquidityBefore string           `json:"liquidity_before"`
	LiquidityAfter  string           `json:"liquidity_after"`
}

// LiquidityCalculateEvent reports the pool state a withdrawal was priced at.
type LiquidityCalculateEvent struct {
	PoolLiquidity    string `json:"pool_liquidity"`
	PoolSqrtPriceX64 string `json:"pool_sqrt_price_x64"`
	PoolTick         int32  `json:"pool_tick"`
	CalcAmount0      uint64 `json:"calc_amount_0"`
	CalcAmount1      uint64 `json:"calc_amount_1"`
	TradeFeeOwed0    uint64 `json:"trade_fee_owed_0"`
	TradeFeeOwed1    uint64 `json:"trade_fee_owed_1"`
	TransferFee0     uint64 `json:"transfer_fee_0"`
	TransferFee1     uint64 `json:"transfer_fee_1"`
}

type CollectPersonalFeeEvent struct {
	PositionNftMint        solana.PublicKey `json:"position_nft_mint"`
	RecipientTokenAccount0 solana.PublicKey `json:"recipient_token_account_0"`
	RecipientTokenAccount1 solana.PublicKey `json:"recipient_token_account_1"`
	Amount0                uint64           `json:"amount_0"`
	Amount1                uint64           `json:"amount_1"`
}

type UpdateRewardInfosEvent struct {
	RewardGrowthGlobalX64 [cons.RewardNum]string `json:"reward_growth_global_x64"`
}

type CollectProtocolFeeEvent struct {
	PoolState              solana.PublicKey `json:"pool_state"`
	RecipientTokenAccount0 solana.PublicKey `json:"recipient_token_account_0"`
	RecipientTokenAccount1 solana.PublicKey `json:"recipient_token_account_1"`
	Amount0                uint64           `json:"amount_0"`
	Amount1                uint64           `json:"amount_1"`
	// true when the fund share was collected instead of the protocol share
	Fund bool `json:"fund"`
}

// SwapEvent records the fee side of a swap booked against the pool.
type SwapEvent struct {
	PoolState    solana.PublicKey `json:"pool_state"`
	ZeroForOne   bool             `json:"zero_for_one"`
	AmountIn     uint64           `json:"amount_in"`
	AmountOut    uint64           `json:"amount_out"`
	Fee          uint64           `json:"fee"`
	ProtocolFee  uint64           `json:"protocol_fee"`
	FundFee      uint64           `json:"fund_fee"`
	SqrtPriceX64 string           `json:"sqrt_price_x64"`
	Liquidity    string           `json:"liquidity"`
	Tick         int32            `json:"tick"`
}

// StatusChangeEvent is emitted when the pool status bits change, either by
// the admin or because a vault could no longer cover what is owed.
type StatusChangeEvent struct {
	PoolState solana.PublicKey `json:"pool_state"`
	Before    uint8            `json:"before"`
	After     uint8            `json:"after"`
	Reason    string           `json:"reason"`
}

func (PoolCreatedEvent) EventName() string            { return "PoolCreated" }
func (CreatePersonalPositionEvent) EventName() string { return "CreatePersonalPosition" }
func (IncreaseLiquidityEvent) EventName() string      { return "IncreaseLiquidity" }
func (DecreaseLiquidityEvent) EventName() string      { return "DecreaseLiquidity" }
func (LiquidityChangeEvent) EventName() string        { return "LiquidityChange" }
func (LiquidityCalculateEvent) EventName() string     { return "LiquidityCalculate" }
func (CollectPersonalFeeEvent) EventName() string     { return "CollectPersonalFee" }
func (UpdateRewardInfosEvent) EventName() string      { return "UpdateRewardInfos" }
func (CollectProtocolFeeEvent) EventName() string     { return "CollectProtocolFee" }
func (SwapEvent) EventName() string                   { return "Swap" }
func (StatusChangeEvent) EventName() string           { return "StatusChange" }
