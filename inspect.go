package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/ftchann/clmm-simulator/lib/pool"
	"github.com/ftchann/clmm-simulator/lib/prices"

	"github.com/spf13/cobra"
)

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read pool account: %w", err)
	}
	p, err := decodePoolAccount(data)
	if err != nil {
		return err
	}
	return printPool(cmd.OutOrStdout(), p)
}

// decodePoolAccount accepts the raw account bytes or their base64 text as
// returned by getAccountInfo.
func decodePoolAccount(data []byte) (*pool.PoolState, error) {
	if len(data) != pool.Len {
		raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data)))
		if err == nil {
			data = raw
		}
	}
	return pool.DecodePoolState(data)
}

func printPool(w io.Writer, p *pool.PoolState) error {
	price := prices.FromSqrtPriceX64(p.SqrtPriceX64, p.MintDecimals0, p.MintDecimals1)
	lines := []struct {
		key   string
		value any
	}{
		{"amm_config", p.AmmConfig},
		{"owner", p.Owner},
		{"token_mint_0", p.TokenMint0},
		{"token_mint_1", p.TokenMint1},
		{"token_vault_0", p.TokenVault0},
		{"token_vault_1", p.TokenVault1},
		{"tick_spacing", p.TickSpacing},
		{"tick_current", p.TickCurrent},
		{"sqrt_price_x64", p.SqrtPriceX64},
		{"price", price.StringFixed(12)},
		{"liquidity", p.Liquidity},
		{"fee_growth_global_0_x64", p.FeeGrowthGlobal0X64},
		{"fee_growth_global_1_x64", p.FeeGrowthGlobal1X64},
		{"protocol_fees", fmt.Sprintf("%d / %d", p.ProtocolFeesToken0, p.ProtocolFeesToken1)},
		{"fund_fees", fmt.Sprintf("%d / %d", p.FundFeesToken0, p.FundFeesToken1)},
		{"total_fees", fmt.Sprintf("%d / %d", p.TotalFeesToken0, p.TotalFeesToken1)},
		{"claimed_fees", fmt.Sprintf("%d / %d", p.TotalFeesClaimedToken0, p.TotalFeesClaimedToken1)},
		{"open_time", p.OpenTime},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-24s %v\n", l.key, l.value); err != nil {
			return err
		}
	}

	for _, bit := range []pool.StatusBit{
		pool.StatusOpenPositionOrIncreaseLiquidity,
		pool.StatusDecreaseLiquidity,
		pool.StatusCollectFee,
		pool.StatusCollectReward,
		pool.StatusSwap,
	} {
		state := "enabled"
		if !p.GetStatusByBit(bit) {
			state = "disabled"
		}
		if _, err := fmt.Fprintf(w, "status.%-17s %s\n", bit, state); err != nil {
			return err
		}
	}

	for i := range p.RewardInfos {
		r := &p.RewardInfos[i]
		if !r.Initialized() {
			continue
		}
		if _, err := fmt.Fprintf(w, "reward[%d] %s mint=%s open=%d end=%d emitted=%d claimed=%d\n",
			i, r.State(), r.TokenMint, r.OpenTime, r.EndTime, r.RewardTotalEmissioned, r.RewardClaimed); err != nil {
			return err
		}
	}
	return nil
}
