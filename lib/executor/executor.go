package executor

import (
	"context"
	"fmt"
	"math"
	"sort"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/engine"
	"github.com/ftchann/clmm-simulator/lib/ledger"
	"github.com/ftchann/clmm-simulator/lib/pool"
	"github.com/ftchann/clmm-simulator/lib/prices"
	"github.com/ftchann/clmm-simulator/lib/result"
	ent "github.com/ftchann/clmm-simulator/lib/transaction"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

// Settings fill in what a scenario leaves open.
type Settings struct {
	TickSpacing     uint16
	TradeFeeRate    uint32
	ProtocolFeeRate uint32
	FundFeeRate     uint32
	// seconds between snapshots, zero keeps only the final one
	SnapshotInterval uint64
	// number of snapshot prices averaged
	PriceWindow int
}

type Execution struct {
	Scenario *ent.Scenario
	Engine   *engine.Engine
	Ledger   *ledger.Ledger

	SnapshotInterval uint64
	Prices           *prices.Prices

	logger    *zap.Logger
	positions map[string]solana.PublicKey
	save      result.Save
}

// CreateExecution sets up the ledger and the pool a scenario starts from.
func CreateExecution(sc *ent.Scenario, settings Settings, logger *zap.Logger, opts ...engine.Option) (*Execution, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := sc.Pool
	mint0, err := ent.Key(p.Token0)
	if err != nil {
		return nil, err
	}
	mint1, err := ent.Key(p.Token1)
	if err != nil {
		return nil, err
	}
	creator := cons.AdminID
	if p.Creator != "" {
		if creator, err = ent.Key(p.Creator); err != nil {
			return nil, err
		}
	}

	led := ledger.New()
	for _, f := range sc.TransferFees {
		mint, err := ent.Key(f.Token)
		if err != nil {
			return nil, err
		}
		maxFee := uint64(math.MaxUint64)
		if f.MaximumFee != "" {
			if maxFee, err = ent.ParseU64("maximumFee", f.MaximumFee); err != nil {
				return nil, err
			}
		}
		led.SetTransferFee(mint, ledger.TransferFeeConfig{BasisPoints: f.BasisPoints, MaximumFee: maxFee})
	}
	for _, b := range sc.Balances {
		owner, err := ent.Key(b.Owner)
		if err != nil {
			return nil, err
		}
		mint, err := ent.Key(b.Token)
		if err != nil {
			return nil, err
		}
		amount, err := ent.ParseU64("amount", b.Amount)
		if err != nil {
			return nil, fmt.Errorf("balance of %s in %s: %w", b.Owner, b.Token, err)
		}
		account, err := ledger.AssociatedAccount(owner, mint)
		if err != nil {
			return nil, err
		}
		if err := led.MintTo(account, mint, amount); err != nil {
			return nil, err
		}
	}

	sqrtPrice, err := initialSqrtPrice(p)
	if err != nil {
		return nil, err
	}
	cfg, err := pool.NewAmmConfig(0, cons.AdminID,
		pick(p.TickSpacing, settings.TickSpacing),
		pick(p.TradeFeeRate, settings.TradeFeeRate),
		pick(p.ProtocolFeeRate, settings.ProtocolFeeRate),
		pick(p.FundFeeRate, settings.FundFeeRate),
	)
	if err != nil {
		return nil, err
	}
	e, err := engine.CreatePool(cfg, led, engine.CreatePoolParams{
		Creator:      creator,
		Mint0:        pool.MintInfo{Address: mint0, Decimals: p.Decimals0},
		Mint1:        pool.MintInfo{Address: mint1, Decimals: p.Decimals1},
		SqrtPriceX64: sqrtPrice,
		OpenTime:     p.OpenTime,
		Now:          p.CreatedAt,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	window := settings.PriceWindow
	if window <= 0 {
		window = 24
	}
	return &Execution{
		Scenario:         sc,
		Engine:           e,
		Ledger:           led,
		SnapshotInterval: settings.SnapshotInterval,
		Prices:           prices.NewPrices(window),
		logger:           logger,
		positions:        make(map[string]solana.PublicKey),
		save: result.Save{
			Pool:      e.ID().String(),
			AmmConfig: cfg.Address().String(),
			StartTime: p.CreatedAt,
		},
	}, nil
}

func pick[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}

func initialSqrtPrice(p ent.PoolInput) (uint128.Uint128, error) {
	if p.SqrtPriceX64 != "" {
		return ent.ParseU128("sqrtPriceX64", p.SqrtPriceX64)
	}
	if p.Price == "" {
		return uint128.Zero, fmt.Errorf("scenario pool needs sqrtPriceX64 or price")
	}
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return uint128.Zero, fmt.Errorf("price: %w", err)
	}
	return prices.ToSqrtPriceX64(price, p.Decimals0, p.Decimals1)
}

// Run replays every transaction in timestamp order. A failing transaction is
// recorded and skipped, the replay only stops when ctx is done.
func (e *Execution) Run(ctx context.Context) (*result.Save, error) {
	txs := e.Scenario.Transactions
	next := uint64(math.MaxUint64)
	if e.SnapshotInterval > 0 {
		next = e.save.StartTime + e.SnapshotInterval
	}
	last := e.save.StartTime
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for next <= tx.Timestamp {
			e.save.Snapshots = append(e.save.Snapshots, e.snapshot(next))
			next += e.SnapshotInterval
		}
		e.save.Transactions++
		if err := e.apply(tx); err != nil {
			e.logger.Warn("transaction failed",
				zap.String("id", tx.ID),
				zap.String("type", tx.Type),
				zap.Uint64("timestamp", tx.Timestamp),
				zap.Error(err),
			)
			e.save.Failures = append(e.save.Failures, result.Failure{
				ID:        tx.ID,
				Type:      tx.Type,
				Timestamp: tx.Timestamp,
				Error:     err.Error(),
			})
		} else {
			e.save.Succeeded++
		}
		last = max(last, tx.Timestamp)
	}
	e.save.EndTime = last
	e.save.Final = e.snapshot(last)
	e.save.Positions = e.positionResults()
	e.logger.Info("replay finished",
		zap.Int("transactions", e.save.Transactions),
		zap.Int("failed", len(e.save.Failures)),
		zap.Int("snapshots", len(e.save.Snapshots)),
	)
	return &e.save, nil
}

func (e *Execution) position(name string) (solana.PublicKey, error) {
	if k, ok := e.positions[name]; ok {
		return k, nil
	}
	k, err := ent.Key("nft:" + name)
	if err != nil {
		return k, err
	}
	e.positions[name] = k
	return k, nil
}

func orMax(v uint64) uint64 {
	if v == 0 {
		return math.MaxUint64
	}
	return v
}

func (e *Execution) apply(tx ent.Transaction) error {
	var (
		owner solana.PublicKey
		nft   solana.PublicKey
		err   error
	)
	if tx.Owner != "" {
		if owner, err = ent.Key(tx.Owner); err != nil {
			return err
		}
	}
	if tx.Position != "" {
		if nft, err = e.position(tx.Position); err != nil {
			return err
		}
	}
	now := tx.Timestamp

	switch tx.Type {
	case ent.Open:
		_, err = e.Engine.OpenPosition(engine.OpenPositionParams{
			Owner:      owner,
			NftMint:    nft,
			TickLower:  tx.TickLower,
			TickUpper:  tx.TickUpper,
			Liquidity:  tx.Liquidity,
			Amount0Max: orMax(tx.Amount0),
			Amount1Max: orMax(tx.Amount1),
			Now:        now,
		})
	case ent.Increase:
		if tx.Liquidity.IsZero() {
			_, err = e.Engine.IncreaseLiquidityByAmounts(owner, nft, tx.Amount0, tx.Amount1, now)
		} else {
			_, err = e.Engine.IncreaseLiquidity(owner, nft, tx.Liquidity, orMax(tx.Amount0), orMax(tx.Amount1), now)
		}
	case ent.Decrease:
		_, err = e.Engine.DecreaseLiquidity(owner, nft, tx.Liquidity, tx.Amount0, tx.Amount1, now)
	case ent.Collect:
		_, err = e.Engine.CollectFees(owner, nft, now)
	case ent.Swap:
		_, err = e.Engine.AccrueSwapFee(owner, tx.ZeroForOne, tx.AmountIn, tx.AmountOut, now)
	case ent.InitReward:
		var mint solana.PublicKey
		if mint, err = ent.Key(tx.Mint); err != nil {
			return err
		}
		_, err = e.Engine.InitializeReward(engine.InitializeRewardParams{
			Authority:             owner,
			Mint:                  mint,
			OpenTime:              tx.OpenTime,
			EndTime:               tx.EndTime,
			EmissionsPerSecondX64: tx.EmissionsPerSecondX64,
			Now:                   now,
		})
	case ent.UpdateRewards:
		_, err = e.Engine.UpdateRewardInfos(now)
	case ent.SetStatus:
		err = e.Engine.SetStatus(owner, tx.Status, now)
	case ent.CollectProtocol:
		if tx.Fund {
			_, _, err = e.Engine.CollectFundFee(owner, owner, orMax(tx.Amount0), orMax(tx.Amount1), now)
		} else {
			_, _, err = e.Engine.CollectProtocolFee(owner, owner, orMax(tx.Amount0), orMax(tx.Amount1), now)
		}
	case ent.Close:
		err = e.Engine.ClosePosition(owner, nft, now)
	default:
		err = fmt.Errorf("unknown transaction type %q", tx.Type)
	}
	return err
}

func (e *Execution) snapshot(ts uint64) result.Snapshot {
	p := e.Engine.Pool()
	price := prices.FromSqrtPriceX64(p.SqrtPriceX64, p.MintDecimals0, p.MintDecimals1)
	e.Prices.Add(price)
	vault0, vault1 := e.Engine.VaultBalances()
	return result.Snapshot{
		Timestamp:           ts,
		Tick:                p.TickCurrent,
		SqrtPriceX64:        p.SqrtPriceX64.String(),
		Price:               price.String(),
		AveragePrice:        e.Prices.Average().String(),
		Volatility:          e.Prices.Volatility().String(),
		Liquidity:           p.Liquidity.String(),
		Vault0:              vault0,
		Vault1:              vault1,
		FeeGrowthGlobal0X64: p.FeeGrowthGlobal0X64.String(),
		FeeGrowthGlobal1X64: p.FeeGrowthGlobal1X64.String(),
		ProtocolFees0:       p.ProtocolFeesToken0,
		ProtocolFees1:       p.ProtocolFeesToken1,
		FundFees0:           p.FundFeesToken0,
		FundFees1:           p.FundFeesToken1,
		Status:              p.Status,
		Positions:           len(e.Engine.Positions()),
	}
}

func (e *Execution) positionResults() []result.PositionResult {
	names := make([]string, 0, len(e.positions))
	for name := range e.positions {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]result.PositionResult, 0, len(names))
	for _, name := range names {
		pos, ok := e.Engine.Position(e.positions[name])
		if !ok {
			continue
		}
		r := result.PositionResult{
			Name:      name,
			NftMint:   pos.NftMint.String(),
			TickLower: pos.TickLowerIndex,
			TickUpper: pos.TickUpperIndex,
			Liquidity: pos.Liquidity.String(),
			FeesOwed0: pos.TokenFeesOwed0,
			FeesOwed1: pos.TokenFeesOwed1,
		}
		for i := range pos.RewardInfos {
			r.RewardOwed[i] = pos.RewardInfos[i].RewardAmountOwed
		}
		out = append(out, r)
	}
	return out
}
