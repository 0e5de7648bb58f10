package engine

import (
	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/events"
	"github.com/ftchann/clmm-simulator/lib/pool"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

type InitializeRewardParams struct {
	Authority solana.PublicKey
	Mint      solana.PublicKey
	// nil when the mint has no freeze authority
	FreezeAuthority       *solana.PublicKey
	OpenTime              uint64
	EndTime               uint64
	EmissionsPerSecondX64 uint128.Uint128
	Now                   uint64
}

// InitializeReward opens the next reward slot and funds its vault from the
// authority with everything the schedule will emit. It returns the slot index.
func (e *Engine) InitializeReward(params InitializeRewardParams) (int, error) {
	var index int
	err := e.run("initialize_reward", params.Now, func(tx *txn) error {
		if err := pool.CheckRewardInitParams(params.OpenTime, params.EndTime, params.EmissionsPerSecondX64, params.Now); err != nil {
			return err
		}
		if err := tx.updateRewardInfos(); err != nil {
			return err
		}
		vault, _, err := pool.RewardVaultAddress(tx.e.id, params.Mint)
		if err != nil {
			return err
		}
		if index, err = tx.pool.InitializeReward(params.OpenTime, params.EndTime, params.EmissionsPerSecondX64, params.Mint, params.FreezeAuthority, vault, params.Authority, tx.e.op); err != nil {
			return err
		}
		deposit, err := pool.RewardAmount(params.EndTime-params.OpenTime, params.EmissionsPerSecondX64)
		if err != nil {
			return err
		}
		if err := tx.ledger.MintTo(vault, params.Mint, 0); err != nil {
			return err
		}
		_, err = tx.pay(params.Authority, params.Mint, vault, deposit)
		return err
	})
	return index, err
}

// SetRewardParams changes the schedule of reward index and collects the
// extra funding it needs from authority. It returns that amount.
func (e *Engine) SetRewardParams(index int, authority solana.PublicKey, emissionsPerSecondX64 uint128.Uint128, openTime, endTime, now uint64) (uint64, error) {
	var amount uint64
	err := e.run("set_reward_params", now, func(tx *txn) error {
		var err error
		amount, err = tx.pool.SetRewardParams(index, authority, tx.e.op, emissionsPerSecondX64, openTime, endTime, now)
		if err != nil {
			return err
		}
		tx.emitRewardGrowth()
		r := tx.pool.RewardInfos[index]
		_, err = tx.pay(authority, r.TokenMint, r.TokenVault, amount)
		return err
	})
	return amount, err
}

// UpdateRewardInfos accrues every reward up to now.
func (e *Engine) UpdateRewardInfos(now uint64) ([cons.RewardNum]pool.RewardInfo, error) {
	var infos [cons.RewardNum]pool.RewardInfo
	err := e.run("update_reward_infos", now, func(tx *txn) error {
		if err := tx.updateRewardInfos(); err != nil {
			return err
		}
		infos = tx.pool.RewardInfos
		return nil
	})
	return infos, err
}

func (tx *txn) updateRewardInfos() error {
	if _, err := tx.pool.UpdateRewardInfos(tx.now); err != nil {
		return err
	}
	tx.emitRewardGrowth()
	return nil
}

func (tx *txn) emitRewardGrowth() {
	var ev events.UpdateRewardInfosEvent
	for i := range tx.pool.RewardInfos {
		ev.RewardGrowthGlobalX64[i] = tx.pool.RewardInfos[i].RewardGrowthGlobalX64.String()
	}
	tx.emit(ev)
}
