package transaction

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strconv"

	cons "github.com/ftchann/clmm-simulator/lib/constants"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

const (
	Open            = "Open"
	Increase        = "Increase"
	Decrease        = "Decrease"
	Collect         = "Collect"
	Swap            = "Swap"
	InitReward      = "InitReward"
	UpdateRewards   = "UpdateRewards"
	SetStatus       = "SetStatus"
	CollectProtocol = "CollectProtocol"
	Close           = "Close"
)

// TransactionInput is one scenario operation as written in JSON. Amounts are
// decimal strings.
type TransactionInput struct {
	Type                  string `json:"type"`
	ID                    string `json:"id"`
	Timestamp             uint64 `json:"timestamp"`
	Owner                 string `json:"owner,omitempty"`
	Position              string `json:"position,omitempty"`
	TickLower             int32  `json:"tickLower,omitempty"`
	TickUpper             int32  `json:"tickUpper,omitempty"`
	Liquidity             string `json:"liquidity,omitempty"`
	Amount0               string `json:"amount0,omitempty"`
	Amount1               string `json:"amount1,omitempty"`
	ZeroForOne            bool   `json:"zeroForOne,omitempty"`
	AmountIn              string `json:"amountIn,omitempty"`
	AmountOut             string `json:"amountOut,omitempty"`
	Mint                  string `json:"mint,omitempty"`
	OpenTime              uint64 `json:"openTime,omitempty"`
	EndTime               uint64 `json:"endTime,omitempty"`
	EmissionsPerSecondX64 string `json:"emissionsPerSecondX64,omitempty"`
	Status                string `json:"status,omitempty"`
	Fund                  bool   `json:"fund,omitempty"`
}

// Transaction is a parsed scenario operation. Amount0 and Amount1 are maxima
// for Open and Increase, minima for Decrease and requested amounts for
// CollectProtocol.
type Transaction struct {
	Type                  string
	ID                    string
	Timestamp             uint64
	Owner                 string
	Position              string
	TickLower             int32
	TickUpper             int32
	Liquidity             uint128.Uint128
	Amount0               uint64
	Amount1               uint64
	ZeroForOne            bool
	AmountIn              uint64
	AmountOut             uint64
	Mint                  string
	OpenTime              uint64
	EndTime               uint64
	EmissionsPerSecondX64 uint128.Uint128
	Status                uint8
	Fund                  bool
}

// ParseU64 parses a decimal string. The empty string is zero.
func ParseU64(field, s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

// ParseU128 parses a decimal string. The empty string is zero.
func ParseU128(field, s string) (uint128.Uint128, error) {
	if s == "" {
		return uint128.Zero, nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 || b.BitLen() > 128 {
		return uint128.Zero, fmt.Errorf("%s: invalid u128 %q", field, s)
	}
	return uint128.FromBig(b), nil
}

// Parse validates in and converts its amounts.
func Parse(in TransactionInput) (Transaction, error) {
	t := Transaction{
		Type:       in.Type,
		ID:         in.ID,
		Timestamp:  in.Timestamp,
		Owner:      in.Owner,
		Position:   in.Position,
		TickLower:  in.TickLower,
		TickUpper:  in.TickUpper,
		ZeroForOne: in.ZeroForOne,
		Mint:       in.Mint,
		OpenTime:   in.OpenTime,
		EndTime:    in.EndTime,
		Fund:       in.Fund,
	}
	var err error
	if t.Liquidity, err = ParseU128("liquidity", in.Liquidity); err != nil {
		return t, err
	}
	if t.EmissionsPerSecondX64, err = ParseU128("emissionsPerSecondX64", in.EmissionsPerSecondX64); err != nil {
		return t, err
	}
	for _, f := range []struct {
		name string
		in   string
		out  *uint64
	}{
		{"amount0", in.Amount0, &t.Amount0},
		{"amount1", in.Amount1, &t.Amount1},
		{"amountIn", in.AmountIn, &t.AmountIn},
		{"amountOut", in.AmountOut, &t.AmountOut},
	} {
		if *f.out, err = ParseU64(f.name, f.in); err != nil {
			return t, err
		}
	}
	status, err := ParseU64("status", in.Status)
	if err != nil {
		return t, err
	}
	if status > 0xff {
		return t, fmt.Errorf("status %d does not fit in a byte", status)
	}
	t.Status = uint8(status)

	switch t.Type {
	case Open, Increase, Decrease, Collect, Close:
		if t.Owner == "" || t.Position == "" {
			return t, fmt.Errorf("%s %s: owner and position are required", t.Type, t.ID)
		}
	case Swap, SetStatus, CollectProtocol, InitReward:
		if t.Owner == "" {
			return t, fmt.Errorf("%s %s: owner is required", t.Type, t.ID)
		}
	case UpdateRewards:
	default:
		return t, fmt.Errorf("unknown transaction type %q", t.Type)
	}
	return t, nil
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	in := TransactionInput{
		Type:       t.Type,
		ID:         t.ID,
		Timestamp:  t.Timestamp,
		Owner:      t.Owner,
		Position:   t.Position,
		TickLower:  t.TickLower,
		TickUpper:  t.TickUpper,
		ZeroForOne: t.ZeroForOne,
		Mint:       t.Mint,
		OpenTime:   t.OpenTime,
		EndTime:    t.EndTime,
		Fund:       t.Fund,
	}
	if !t.Liquidity.IsZero() {
		in.Liquidity = t.Liquidity.String()
	}
	if !t.EmissionsPerSecondX64.IsZero() {
		in.EmissionsPerSecondX64 = t.EmissionsPerSecondX64.String()
	}
	for _, f := range []struct {
		v   uint64
		out *string
	}{
		{t.Amount0, &in.Amount0},
		{t.Amount1, &in.Amount1},
		{t.AmountIn, &in.AmountIn},
		{t.AmountOut, &in.AmountOut},
		{uint64(t.Status), &in.Status},
	} {
		if f.v != 0 {
			*f.out = strconv.FormatUint(f.v, 10)
		}
	}
	return json.Marshal(&in)
}

// Key resolves a scenario name to an account key. "admin" is the program
// admin, a base58 key stands for itself and any other name is derived from
// the program id with the name as seed.
func Key(name string) (solana.PublicKey, error) {
	if name == "admin" {
		return cons.AdminID, nil
	}
	if k, err := solana.PublicKeyFromBase58(name); err == nil {
		return k, nil
	}
	k, err := solana.CreateWithSeed(cons.ProgramID, name, solana.SystemProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("key for %q: %w", name, err)
	}
	return k, nil
}

type PoolInput struct {
	Token0          string `json:"token0"`
	Token1          string `json:"token1"`
	Decimals0       uint8  `json:"decimals0"`
	Decimals1       uint8  `json:"decimals1"`
	Creator         string `json:"creator,omitempty"`
	SqrtPriceX64    string `json:"sqrtPriceX64,omitempty"`
	Price           string `json:"price,omitempty"`
	OpenTime        uint64 `json:"openTime"`
	CreatedAt       uint64 `json:"createdAt"`
	TickSpacing     uint16 `json:"tickSpacing,omitempty"`
	TradeFeeRate    uint32 `json:"tradeFeeRate,omitempty"`
	ProtocolFeeRate uint32 `json:"protocolFeeRate,omitempty"`
	FundFeeRate     uint32 `json:"fundFeeRate,omitempty"`
}

type BalanceInput struct {
	Owner  string `json:"owner"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type TransferFeeInput struct {
	Token       string `json:"token"`
	BasisPoints uint16 `json:"basisPoints"`
	MaximumFee  string `json:"maximumFee"`
}

type ScenarioInput struct {
	Pool         PoolInput          `json:"pool"`
	Balances     []BalanceInput     `json:"balances"`
	TransferFees []TransferFeeInput `json:"transferFees,omitempty"`
	Transactions []TransactionInput `json:"transactions"`
}

// Scenario is a parsed ScenarioInput with its transactions ordered by
// timestamp. Transactions sharing a timestamp keep their file order.
type Scenario struct {
	Pool         PoolInput
	Balances     []BalanceInput
	TransferFees []TransferFeeInput
	Transactions []Transaction
}

func ParseScenario(data []byte) (*Scenario, error) {
	var in ScenarioInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal scenario: %w", err)
	}
	if in.Pool.Token0 == "" || in.Pool.Token1 == "" {
		return nil, fmt.Errorf("scenario pool needs token0 and token1")
	}
	sc := &Scenario{
		Pool:         in.Pool,
		Balances:     in.Balances,
		TransferFees: in.TransferFees,
		Transactions: make([]Transaction, 0, len(in.Transactions)),
	}
	for i, raw := range in.Transactions {
		t, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		sc.Transactions = append(sc.Transactions, t)
	}
	sort.SliceStable(sc.Transactions, func(i, j int) bool {
		return sc.Transactions[i].Timestamp < sc.Transactions[j].Timestamp
	})
	return sc, nil
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}
