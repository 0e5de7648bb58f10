package result

import (
	cons "github.com/ftchann/clmm-simulator/lib/constants"
)

// Snapshot is the pool as seen at one point of a replay.
type Snapshot struct {
	Timestamp           uint64 `json:"timestamp"`
	Tick                int32  `json:"tick"`
	SqrtPriceX64        string `json:"sqrt_price_x64"`
	Price               string `json:"price"`
	AveragePrice        string `json:"average_price"`
	Volatility          string `json:"volatility"`
	Liquidity           string `json:"liquidity"`
	Vault0              uint64 `json:"vault0"`
	Vault1              uint64 `json:"vault1"`
	FeeGrowthGlobal0X64 string `json:"fee_growth_global_0_x64"`
	FeeGrowthGlobal1X64 string `json:"fee_growth_global_1_x64"`
	ProtocolFees0       uint64 `json:"protocol_fees_0"`
	ProtocolFees1       uint64 `json:"protocol_fees_1"`
	FundFees0           uint64 `json:"fund_fees_0"`
	FundFees1           uint64 `json:"fund_fees_1"`
	Status              uint8  `json:"status"`
	Positions           int    `json:"positions"`
}

type Failure struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp uint64 `json:"timestamp"`
	Error     string `json:"error"`
}

type PositionResult struct {
	Name       string                 `json:"name"`
	NftMint    string                 `json:"nft_mint"`
	TickLower  int32                  `json:"tick_lower"`
	TickUpper  int32                  `json:"tick_upper"`
	Liquidity  string                 `json:"liquidity"`
	FeesOwed0  uint64                 `json:"fees_owed_0"`
	FeesOwed1  uint64                 `json:"fees_owed_1"`
	RewardOwed [cons.RewardNum]uint64 `json:"reward_owed"`
}

type Save struct {
	Pool         string           `json:"pool"`
	AmmConfig    string           `json:"amm_config"`
	StartTime    uint64           `json:"start_time"`
	EndTime      uint64           `json:"end_time"`
	Transactions int              `json:"transactions"`
	Succeeded    int              `json:"succeeded"`
	Failures     []Failure        `json:"failures"`
	Snapshots    []Snapshot       `json:"snapshots"`
	Final        Snapshot         `json:"final"`
	Positions    []PositionResult `json:"positions"`
}
