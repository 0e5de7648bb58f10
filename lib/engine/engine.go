// Package engine runs the operations of one pool against its tick arrays,
// positions and the token ledger. Operations on one Engine are serialized.
// Each one works on copies of the state it touches and commits them only if
// it succeeds, so a failed operation leaves no trace.
package engine

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ftchann/clmm-simulator/lib/bitmap"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	"github.com/ftchann/clmm-simulator/lib/events"
	"github.com/ftchann/clmm-simulator/lib/ledger"
	"github.com/ftchann/clmm-simulator/lib/metrics"
	"github.com/ftchann/clmm-simulator/lib/pool"
	"github.com/ftchann/clmm-simulator/lib/position"
	"github.com/ftchann/clmm-simulator/lib/tickarray"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

// SecondsPerEpoch converts timestamps into the epoch recorded on accounts.
const SecondsPerEpoch = 2 * 24 * 3600

func epochAt(now uint64) uint64 { return now / SecondsPerEpoch }

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithSink(sink events.Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithOperationState sets the operators and whitelisted reward mints.
func WithOperationState(op *pool.OperationState) Option {
	return func(e *Engine) { e.op = op }
}

type Engine struct {
	mu sync.Mutex

	cfg     *pool.AmmConfig
	op      *pool.OperationState
	ledger  *ledger.Ledger
	logger  *zap.Logger
	sink    events.Sink
	metrics *metrics.Metrics
	seq     uint64

	id        solana.PublicKey
	extID     solana.PublicKey
	pool      *pool.PoolState
	ext       *bitmap.Extension
	arrays    map[int32]*tickarray.TickArray
	positions map[solana.PublicKey]*position.PersonalPosition
	owners    map[solana.PublicKey]solana.PublicKey
}

type CreatePoolParams struct {
	Creator      solana.PublicKey
	Mint0        pool.MintInfo
	Mint1        pool.MintInfo
	SqrtPriceX64 uint128.Uint128
	OpenTime     uint64
	Now          uint64
}

// CreatePool derives the pool, vault and extension addresses for the mint
// pair under cfg and starts an engine for the new pool.
func CreatePool(cfg *pool.AmmConfig, led *ledger.Ledger, params CreatePoolParams, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:       cfg,
		ledger:    led,
		logger:    zap.NewNop(),
		sink:      events.Nop{},
		arrays:    make(map[int32]*tickarray.TickArray),
		positions: make(map[solana.PublicKey]*position.PersonalPosition),
		owners:    make(map[solana.PublicKey]solana.PublicKey),
	}
	for _, opt := range opts {
		opt(e)
	}
	start := time.Now()
	err := e.createPool(params)
	e.metrics.Observe("create_pool", start, err)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) createPool(params CreatePoolParams) error {
	if bytes.Compare(params.Mint0.Address[:], params.Mint1.Address[:]) >= 0 {
		return fmt.Errorf("token mint 0 must sort below token mint 1: %w", errcode.ErrNotApproved)
	}
	if params.Now <= params.OpenTime {
		return fmt.Errorf("open time %d is not before %d: %w", params.OpenTime, params.Now, errcode.ErrNotApproved)
	}
	id, bump, err := pool.PoolAddress(e.cfg.Address(), params.Mint0.Address, params.Mint1.Address)
	if err != nil {
		return err
	}
	vault0, _, err := pool.VaultAddress(id, params.Mint0.Address)
	if err != nil {
		return err
	}
	vault1, _, err := pool.VaultAddress(id, params.Mint1.Address)
	if err != nil {
		return err
	}
	observation, _, err := pool.ObservationAddress(id)
	if err != nil {
		return err
	}
	extID, _, err := pool.ExtensionAddress(id)
	if err != nil {
		return err
	}
	p, err := pool.NewPoolState(bump, e.cfg, params.Creator, params.Mint0, params.Mint1, vault0, vault1, observation, params.SqrtPriceX64, params.OpenTime, epochAt(params.Now))
	if err != nil {
		return err
	}
	e.id, e.extID, e.pool, e.ext = id, extID, p, bitmap.NewExtension(id)

	tx := e.ledger.Begin()
	defer tx.Discard()
	for _, v := range []struct{ vault, mint solana.PublicKey }{{vault0, p.TokenMint0}, {vault1, p.TokenMint1}} {
		if err := tx.MintTo(v.vault, v.mint, 0); err != nil {
			return err
		}
	}
	ev := events.PoolCreatedEvent{
		TokenMint0:   p.TokenMint0,
		TokenMint1:   p.TokenMint1,
		TickSpacing:  p.TickSpacing,
		PoolState:    id,
		SqrtPriceX64: p.SqrtPriceX64.String(),
		Tick:         p.TickCurrent,
		TokenVault0:  vault0,
		TokenVault1:  vault1,
	}
	if err := e.emit(params.Now, []events.Event{ev}); err != nil {
		return err
	}
	tx.Commit()
	e.logger.Info("pool created",
		zap.String("pool", id.String()),
		zap.Int32("tick", p.TickCurrent),
		zap.Uint16("tick_spacing", p.TickSpacing),
	)
	return nil
}

func (e *Engine) ID() solana.PublicKey          { return e.id }
func (e *Engine) ExtensionID() solana.PublicKey { return e.extID }
func (e *Engine) Config() *pool.AmmConfig       { return e.cfg }

// Pool returns a copy of the pool account.
func (e *Engine) Pool() *pool.PoolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.Clone()
}

func (e *Engine) Extension() *bitmap.Extension {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ext.Clone()
}

func (e *Engine) Position(nftMint solana.PublicKey) (*position.PersonalPosition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[nftMint]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Positions returns copies of every open position ordered by nft mint.
func (e *Engine) Positions() []*position.PersonalPosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*position.PersonalPosition, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].NftMint[:], out[j].NftMint[:]) < 0
	})
	return out
}

func (e *Engine) TickArray(start int32) (*tickarray.TickArray, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.arrays[start]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// TickArrayStarts lists the start index of every tick array created so far.
func (e *Engine) TickArrayStarts() []int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int32, 0, len(e.arrays))
	for s := range e.arrays {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (e *Engine) TickState(tick int32) (tickarray.TickState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := tickarray.GetArrayStartIndex(tick, e.pool.TickSpacing)
	a, ok := e.arrays[start]
	if !ok {
		return tickarray.NewTickState(tick), nil
	}
	s, err := a.GetTickState(tick, e.pool.TickSpacing)
	if err != nil {
		return tickarray.TickState{}, err
	}
	return s.Clone(), nil
}

// VaultBalances reads both token vaults from the ledger.
func (e *Engine) VaultBalances() (uint64, uint64) {
	e.mu.Lock()
	vault0, vault1 := e.pool.TokenVault0, e.pool.TokenVault1
	e.mu.Unlock()
	return e.ledger.Balance(vault0), e.ledger.Balance(vault1)
}

// txn holds the copies one operation works on.
type txn struct {
	e         *Engine
	now       uint64
	pool      *pool.PoolState
	ext       *bitmap.Extension
	arrays    map[int32]*tickarray.TickArray
	positions map[solana.PublicKey]*position.PersonalPosition
	closed    map[solana.PublicKey]bool
	owners    map[solana.PublicKey]solana.PublicKey
	ledger    *ledger.Tx
	events    []events.Event
	disabled  []disable
}

type disable struct {
	bit    pool.StatusBit
	reason string
}

// run executes fn under the engine lock and commits what it changed.
func (e *Engine) run(op string, now uint64, fn func(tx *txn) error) (err error) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.metrics.Observe(op, start, err) }()

	tx := &txn{
		e:         e,
		now:       now,
		pool:      e.pool.Clone(),
		ext:       e.ext.Clone(),
		arrays:    make(map[int32]*tickarray.TickArray),
		positions: make(map[solana.PublicKey]*position.PersonalPosition),
		closed:    make(map[solana.PublicKey]bool),
		owners:    make(map[solana.PublicKey]solana.PublicKey),
		ledger:    e.ledger.Begin(),
	}
	defer tx.ledger.Discard()

	if err := fn(tx); err != nil {
		e.logger.Debug("operation failed", zap.String("op", op), zap.Uint64("now", now), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := e.emit(now, tx.events); err != nil {
		return fmt.Errorf("%s: emit events: %w", op, err)
	}
	e.commit(tx)
	for _, d := range tx.disabled {
		e.logger.Warn("pool status bit disabled",
			zap.String("pool", e.id.String()),
			zap.Stringer("bit", d.bit),
			zap.String("reason", d.reason),
		)
		e.metrics.StatusDisabled(d.bit.String())
	}
	e.logger.Debug("operation committed",
		zap.String("op", op),
		zap.Uint64("now", now),
		zap.Int("events", len(tx.events)),
		zap.Int32("tick", e.pool.TickCurrent),
		zap.String("liquidity", e.pool.Liquidity.String()),
	)
	return nil
}

func (e *Engine) commit(tx *txn) {
	e.pool = tx.pool
	e.ext = tx.ext
	for start, a := range tx.arrays {
		e.arrays[start] = a
	}
	for mint, p := range tx.positions {
		e.positions[mint] = p
	}
	for mint, owner := range tx.owners {
		e.owners[mint] = owner
	}
	for mint := range tx.closed {
		delete(e.positions, mint)
		delete(e.owners, mint)
	}
	tx.ledger.Commit()
}

func (e *Engine) emit(now uint64, evs []events.Event) error {
	if len(evs) == 0 {
		return nil
	}
	records := make([]events.Record, 0, len(evs))
	seq := e.seq
	for _, ev := range evs {
		seq++
		records = append(records, events.Record{
			Seq:       seq,
			Pool:      e.id,
			Timestamp: now,
			EventName: ev.EventName(),
			Data:      ev,
		})
	}
	if err := e.sink.PutEvents(records); err != nil {
		return err
	}
	e.seq = seq
	return nil
}

func (tx *txn) emit(ev events.Event) {
	tx.events = append(tx.events, ev)
}

// disableStatus switches bit off and remembers why for the commit log.
func (tx *txn) disableStatus(bit pool.StatusBit, reason string) {
	if !tx.pool.GetStatusByBit(bit) {
		return
	}
	before := tx.pool.Status
	tx.pool.SetStatusByBit(bit, pool.Disable)
	tx.disabled = append(tx.disabled, disable{bit: bit, reason: reason})
	tx.emit(events.StatusChangeEvent{PoolState: tx.e.id, Before: before, After: tx.pool.Status, Reason: reason})
}

// array returns a writable copy of the tick array holding tick, creating the
// array on first use.
func (tx *txn) array(tick int32) (*tickarray.TickArray, error) {
	start := tickarray.GetArrayStartIndex(tick, tx.pool.TickSpacing)
	if a, ok := tx.arrays[start]; ok {
		return a, nil
	}
	if a, ok := tx.e.arrays[start]; ok {
		c := a.Clone()
		tx.arrays[start] = c
		return c, nil
	}
	a, err := tickarray.NewTickArray(tx.e.id, start, tx.pool.TickSpacing, epochAt(tx.now))
	if err != nil {
		return nil, err
	}
	tx.arrays[start] = a
	return a, nil
}

// position returns a writable copy of the position minted as nftMint after
// checking that owner holds it.
func (tx *txn) position(owner, nftMint solana.PublicKey) (*position.PersonalPosition, error) {
	if p, ok := tx.positions[nftMint]; ok {
		return p, nil
	}
	p, ok := tx.e.positions[nftMint]
	if !ok {
		return nil, fmt.Errorf("position %s not found", nftMint)
	}
	if holder := tx.e.owners[nftMint]; !holder.Equals(owner) {
		return nil, fmt.Errorf("position %s is not held by %s: %w", nftMint, owner, errcode.ErrNotApproved)
	}
	c := p.Clone()
	tx.positions[nftMint] = c
	return c, nil
}

// account is the associated token account of owner for mint.
func account(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	return ledger.AssociatedAccount(owner, mint)
}

// pay moves amount from owner into vault, grossed up by the transfer fee so
// the vault receives exactly amount. It returns the fee paid on top.
func (tx *txn) pay(owner, mint, vault solana.PublicKey, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, nil
	}
	from, err := account(owner, mint)
	if err != nil {
		return 0, err
	}
	fee := tx.ledger.TransferFee(mint).InverseFee(amount)
	if amount+fee < amount {
		return 0, errcode.ErrMaxTokenOverflow
	}
	if _, err := tx.ledger.Transfer(from, vault, mint, amount+fee); err != nil {
		return 0, err
	}
	return fee, nil
}

// payOut moves amount from vault to the associated account of owner.
func (tx *txn) payOut(vault, mint, owner solana.PublicKey, amount uint64) (uint64, error) {
	to, err := account(owner, mint)
	if err != nil {
		return 0, err
	}
	return tx.ledger.Transfer(vault, to, mint, amount)
}
