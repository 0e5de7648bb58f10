// Package ledger is an in-memory token ledger standing in for token accounts
// and vaults. Balances are keyed by token account, each holding one mint.
package ledger

import (
	"fmt"
	"sync"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// TransferFeeConfig withholds part of every transfer of a mint.
type TransferFeeConfig struct {
	BasisPoints uint16
	MaximumFee  uint64
}

// Fee is the amount withheld when amount is sent.
func (c TransferFeeConfig) Fee(amount uint64) uint64 {
	if c.BasisPoints == 0 || amount == 0 {
		return 0
	}
	fee := uint128.From64(amount).Mul64(uint64(c.BasisPoints)).Add64(cons.TransferFeeBasisPointsMax - 1).Div64(cons.TransferFeeBasisPointsMax)
	if fee.Cmp64(c.MaximumFee) > 0 {
		return c.MaximumFee
	}
	return fee.Lo
}

// InverseFee is the fee to add on top of post so that post arrives.
func (c TransferFeeConfig) InverseFee(post uint64) uint64 {
	switch {
	case c.BasisPoints == 0 || post == 0:
		return 0
	case c.BasisPoints >= cons.TransferFeeBasisPointsMax:
		return c.MaximumFee
	}
	num := uint128.From64(post).Mul64(cons.TransferFeeBasisPointsMax)
	den := uint64(cons.TransferFeeBasisPointsMax - c.BasisPoints)
	pre, rem := num.QuoRem64(den)
	if rem != 0 {
		pre = pre.Add64(1)
	}
	fee := pre.Sub64(post)
	if fee.Cmp64(c.MaximumFee) >= 0 {
		return c.MaximumFee
	}
	return fee.Lo
}

// AssociatedAccount derives the associated token account of owner for mint.
func AssociatedAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("associated account of %s: %w", owner, err)
	}
	return addr, nil
}

type state struct {
	balances map[solana.PublicKey]uint64
	mints    map[solana.PublicKey]solana.PublicKey
	withheld map[solana.PublicKey]uint64
}

// Ledger is safe for concurrent use. Writes go through a Tx.
type Ledger struct {
	mu   sync.Mutex
	fees map[solana.PublicKey]TransferFeeConfig
	st   state
}

func New() *Ledger {
	return &Ledger{
		fees: make(map[solana.PublicKey]TransferFeeConfig),
		st: state{
			balances: make(map[solana.PublicKey]uint64),
			mints:    make(map[solana.PublicKey]solana.PublicKey),
			withheld: make(map[solana.PublicKey]uint64),
		},
	}
}

func (l *Ledger) SetTransferFee(mint solana.PublicKey, cfg TransferFeeConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fees[mint] = cfg
}

func (l *Ledger) TransferFee(mint solana.PublicKey) TransferFeeConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fees[mint]
}

func (l *Ledger) Balance(account solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.balances[account]
}

// Withheld is the total transfer fee collected on mint.
func (l *Ledger) Withheld(mint solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.withheld[mint]
}

// MintTo credits amount of mint to account outside any transfer.
func (l *Ledger) MintTo(account, mint solana.PublicKey, amount uint64) error {
	tx := l.Begin()
	defer tx.Discard()
	if err := tx.MintTo(account, mint, amount); err != nil {
		return err
	}
	tx.Commit()
	return nil
}

// Begin starts a transaction. The ledger stays locked until Commit or
// Discard, so only the Tx may be used in between.
func (l *Ledger) Begin() *Tx {
	l.mu.Lock()
	return &Tx{
		l:        l,
		balances: make(map[solana.PublicKey]uint64),
		mints:    make(map[solana.PublicKey]solana.PublicKey),
		withheld: make(map[solana.PublicKey]uint64),
	}
}

// Tx stages ledger writes and applies all of them on Commit.
type Tx struct {
	l        *Ledger
	done     bool
	balances map[solana.PublicKey]uint64
	mints    map[solana.PublicKey]solana.PublicKey
	withheld map[solana.PublicKey]uint64
}

func (tx *Tx) Balance(account solana.PublicKey) uint64 {
	if b, ok := tx.balances[account]; ok {
		return b
	}
	return tx.l.st.balances[account]
}

func (tx *Tx) mintOf(account solana.PublicKey) (solana.PublicKey, bool) {
	if m, ok := tx.mints[account]; ok {
		return m, true
	}
	m, ok := tx.l.st.mints[account]
	return m, ok
}

func (tx *Tx) TransferFee(mint solana.PublicKey) TransferFeeConfig {
	return tx.l.fees[mint]
}

func (tx *Tx) bind(account, mint solana.PublicKey) error {
	held, ok := tx.mintOf(account)
	if !ok {
		tx.mints[account] = mint
		return nil
	}
	if held != mint {
		return fmt.Errorf("account %s holds %s, not %s", account, held, mint)
	}
	return nil
}

func (tx *Tx) credit(account solana.PublicKey, amount uint64) error {
	b := tx.Balance(account)
	if b+amount < b {
		return fmt.Errorf("credit %s: %w", account, errcode.ErrMathOverflow)
	}
	tx.balances[account] = b + amount
	return nil
}

func (tx *Tx) MintTo(account, mint solana.PublicKey, amount uint64) error {
	if err := tx.bind(account, mint); err != nil {
		return err
	}
	return tx.credit(account, amount)
}

// Transfer moves amount of mint from one account to another. The transfer
// fee of the mint is withheld from what arrives.
func (tx *Tx) Transfer(from, to, mint solana.PublicKey, amount uint64) (received uint64, err error) {
	if amount == 0 {
		return 0, nil
	}
	if err := tx.bind(from, mint); err != nil {
		return 0, err
	}
	if err := tx.bind(to, mint); err != nil {
		return 0, err
	}
	b := tx.Balance(from)
	if b < amount {
		return 0, fmt.Errorf("transfer %d from %s (balance %d): %w", amount, from, b, errcode.ErrInsufficientFunds)
	}
	fee := tx.TransferFee(mint).Fee(amount)
	tx.balances[from] = b - amount
	if err := tx.credit(to, amount-fee); err != nil {
		return 0, err
	}
	if fee > 0 {
		w, ok := tx.withheld[mint]
		if !ok {
			w = tx.l.st.withheld[mint]
		}
		tx.withheld[mint] = w + fee
	}
	return amount - fee, nil
}

func (tx *Tx) Commit() {
	if tx.done {
		return
	}
	for k, v := range tx.balances {
		tx.l.st.balances[k] = v
	}
	for k, v := range tx.mints {
		tx.l.st.mints[k] = v
	}
	for k, v := range tx.withheld {
		tx.l.st.withheld[k] = v
	}
	tx.done = true
	tx.l.mu.Unlock()
}

// Discard drops the staged writes. It is a no-op after Commit.
func (tx *Tx) Discard() {
	if tx.done {
		return
	}
	tx.done = true
	tx.l.mu.Unlock()
}
