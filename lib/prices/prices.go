package prices

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"
)

var q128 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)

// DivisionPrecision is the number of decimal places kept when a price is
// derived from a sqrt price.
const DivisionPrecision = 36

// FromSqrtPriceX64 converts a Q64.64 sqrt price into the price of token 0 in
// token 1, adjusted for the mint decimals.
func FromSqrtPriceX64(sqrtPriceX64 uint128.Uint128, decimals0, decimals1 uint8) decimal.Decimal {
	s := sqrtPriceX64.Big()
	square := decimal.NewFromBigInt(new(big.Int).Mul(s, s), 0)
	return square.DivRound(q128, DivisionPrecision).Shift(int32(decimals0) - int32(decimals1))
}

// ToSqrtPriceX64 is the inverse of FromSqrtPriceX64, rounded down.
func ToSqrtPriceX64(price decimal.Decimal, decimals0, decimals1 uint8) (uint128.Uint128, error) {
	if !price.IsPositive() {
		return uint128.Zero, fmt.Errorf("price %s must be positive", price)
	}
	raw := price.Shift(int32(decimals1) - int32(decimals0)).Mul(q128)
	root := new(big.Int).Sqrt(raw.BigInt())
	if root.BitLen() > 128 {
		return uint128.Zero, fmt.Errorf("price %s out of range", price)
	}
	return uint128.FromBig(root), nil
}

// Prices is a ring buffer of the most recent prices.
type Prices struct {
	prices []decimal.Decimal
	index  int
	count  int
}

func NewPrices(length int) *Prices {
	if length < 1 {
		length = 1
	}
	return &Prices{prices: make([]decimal.Decimal, length)}
}

func (p *Prices) Add(price decimal.Decimal) {
	p.prices[p.index] = price
	p.index = (p.index + 1) % len(p.prices)
	if p.count < len(p.prices) {
		p.count++
	}
}

func (p *Prices) Len() int { return p.count }

// Average of the buffered prices, zero when empty.
func (p *Prices) Average() decimal.Decimal {
	if p.count == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, price := range p.prices[:p.count] {
		sum = sum.Add(price)
	}
	return sum.DivRound(decimal.NewFromInt(int64(p.count)), DivisionPrecision)
}

// Volatility is the sample standard deviation of the buffered prices.
func (p *Prices) Volatility() decimal.Decimal {
	if p.count < 2 {
		return decimal.Zero
	}
	avg := p.Average()
	sum := decimal.Zero
	for _, price := range p.prices[:p.count] {
		diff := price.Sub(avg)
		sum = sum.Add(diff.Mul(diff))
	}
	variance := sum.DivRound(decimal.NewFromInt(int64(p.count-1)), DivisionPrecision)
	return decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
}
