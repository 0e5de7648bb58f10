package main

import (
	"fmt"

	"github.com/ftchann/clmm-simulator/lib/prices"
	"github.com/ftchann/clmm-simulator/lib/tickmath"
	ent "github.com/ftchann/clmm-simulator/lib/transaction"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"lukechampine.com/uint128"
)

func runTick(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	decimals0, _ := flags.GetUint8("decimals0")
	decimals1, _ := flags.GetUint8("decimals1")
	sqrtText, _ := flags.GetString("sqrt-price")
	priceText, _ := flags.GetString("price")

	var (
		sqrtPrice uint128.Uint128
		tick      int32
		err       error
	)
	switch {
	case sqrtText != "":
		if sqrtPrice, err = ent.ParseU128("sqrt-price", sqrtText); err != nil {
			return err
		}
		if tick, err = tickmath.GetTickAtSqrtPrice(sqrtPrice); err != nil {
			return err
		}
	case priceText != "":
		price, err := decimal.NewFromString(priceText)
		if err != nil {
			return fmt.Errorf("price: %w", err)
		}
		if sqrtPrice, err = prices.ToSqrtPriceX64(price, decimals0, decimals1); err != nil {
			return err
		}
		if tick, err = tickmath.GetTickAtSqrtPrice(sqrtPrice); err != nil {
			return err
		}
	default:
		tick, _ = flags.GetInt32("tick")
		if sqrtPrice, err = tickmath.GetSqrtPriceAtTick(tick); err != nil {
			return err
		}
	}

	price := prices.FromSqrtPriceX64(sqrtPrice, decimals0, decimals1)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "tick %d\nsqrt_price_x64 %s\nprice %s\n", tick, sqrtPrice, price)
	return err
}
