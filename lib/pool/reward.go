package pool

import (
	"fmt"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	fm "github.com/ftchann/clmm-simulator/lib/fullmath"

	"github.com/gagliardetto/solana-go"
	ui "github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

type RewardState uint8

const (
	RewardUninitialized RewardState = iota
	// initialized but not yet open
	RewardInitialized
	RewardOpening
	RewardEnded
)

func (s RewardState) String() string {
	switch s {
	case RewardUninitialized:
		return "uninitialized"
	case RewardInitialized:
		return "initialized"
	case RewardOpening:
		return "opening"
	case RewardEnded:
		return "ended"
	}
	return fmt.Sprintf("reward_state_%d", uint8(s))
}

type RewardInfo struct {
	RewardState    uint8
	OpenTime       uint64
	EndTime        uint64
	LastUpdateTime uint64
	// tokens emitted per second, Q64.64
	EmissionsPerSecondX64 uint128.Uint128
	RewardTotalEmissioned uint64
	RewardClaimed         uint64
	TokenMint             solana.PublicKey
	TokenVault            solana.PublicKey
	Authority             solana.PublicKey
	// tokens earned per unit of liquidity since emissions started, Q64.64
	RewardGrowthGlobalX64 uint128.Uint128
}

func NewRewardInfo(authority solana.PublicKey) RewardInfo {
	return RewardInfo{Authority: authority}
}

// Initialized reports whether the slot carries a reward mint. Once set, a slot
// never goes back to uninitialized.
func (r *RewardInfo) Initialized() bool {
	return !r.TokenMint.IsZero()
}

func (r *RewardInfo) State() RewardState {
	return RewardState(r.RewardState)
}

// CheckRewardInitParams validates a new emission schedule at time now.
func CheckRewardInitParams(openTime, endTime uint64, emissionsPerSecondX64 uint128.Uint128, now uint64) error {
	if openTime >= endTime || endTime < now || emissionsPerSecondX64.IsZero() {
		return errcode.ErrInvalidRewardInitParam
	}
	period := endTime - openTime
	if period < cons.MinRewardPeriod || period > cons.MaxRewardPeriod {
		return fmt.Errorf("reward period %ds: %w", period, errcode.ErrInvalidRewardPeriod)
	}
	return nil
}

// RewardAmount is the token amount a schedule emits over period seconds,
// rounded up so the vault always covers it.
func RewardAmount(period uint64, emissionsPerSecondX64 uint128.Uint128) (uint64, error) {
	amount, err := fm.MulDivRoundingUp(ui.NewInt(period), fm.FromU128(emissionsPerSecondX64), cons.Q64)
	if err != nil {
		return 0, err
	}
	return fm.ToU64(amount)
}

func (p *PoolState) lowestUninitializedReward() (int, error) {
	for i := range p.RewardInfos {
		if !p.RewardInfos[i].Initialized() {
			return i, nil
		}
	}
	return 0, errcode.ErrFullRewardInfo
}

// CheckRewardEligibility decides whether mint may be added as the next reward
// of p. The first two slots accept pool mints, whitelisted mints and mints
// without a freeze authority; the second slot must bring in a pool or
// whitelisted mint when the first did not. The last slot is reserved to the
// admin and the operation owners.
func CheckRewardEligibility(p *PoolState, mint solana.PublicKey, freezeAuthority *solana.PublicKey, authority solana.PublicKey, op *OperationState) (int, error) {
	index, err := p.lowestUninitializedReward()
	if err != nil {
		return 0, err
	}
	for i := range p.RewardInfos {
		if p.RewardInfos[i].TokenMint.Equals(mint) {
			return 0, errcode.ErrRewardTokenAlreadyInUse
		}
	}

	isPoolMint := mint.Equals(p.TokenMint0) || mint.Equals(p.TokenMint1)
	trusted := isPoolMint || op.ValidateWhitelistMint(mint)
	switch index {
	case 0:
		if !trusted && freezeAuthority != nil {
			return 0, errcode.ErrExceptRewardMint
		}
	case 1:
		hasPoolMint := false
		for i := range p.RewardInfos {
			m := p.RewardInfos[i].TokenMint
			if m.Equals(p.TokenMint0) || m.Equals(p.TokenMint1) {
				hasPoolMint = true
			}
		}
		if !hasPoolMint {
			if !trusted {
				return 0, errcode.ErrExceptRewardMint
			}
		} else if !trusted && freezeAuthority != nil {
			return 0, errcode.ErrExceptRewardMint
		}
	default:
		if !authority.Equals(cons.AdminID) && !op.ValidateOperationOwner(authority) {
			return 0, errcode.ErrNotApproved
		}
	}
	return index, nil
}

// InitializeReward fills the lowest free reward slot and returns its index.
func (p *PoolState) InitializeReward(
	openTime, endTime uint64,
	emissionsPerSecondX64 uint128.Uint128,
	mint solana.PublicKey,
	freezeAuthority *solana.PublicKey,
	vault, authority solana.PublicKey,
	op *OperationState,
) (int, error) {
	index, err := CheckRewardEligibility(p, mint, freezeAuthority, authority, op)
	if err != nil {
		return 0, err
	}
	r := &p.RewardInfos[index]
	r.RewardState = uint8(RewardInitialized)
	r.LastUpdateTime = openTime
	r.OpenTime = openTime
	r.EndTime = endTime
	r.EmissionsPerSecondX64 = emissionsPerSecondX64
	r.TokenMint = mint
	r.TokenVault = vault
	r.Authority = authority
	return index, nil
}

// UpdateRewardInfos accrues every open reward up to now and returns the new
// slots. Calling it again with the same or an earlier now changes nothing.
func (p *PoolState) UpdateRewardInfos(now uint64) ([cons.RewardNum]RewardInfo, error) {
	next := p.RewardInfos
	for i := range next {
		r := &next[i]
		if !r.Initialized() || now <= r.OpenTime {
			continue
		}
		latest := now
		if r.EndTime < latest {
			latest = r.EndTime
		}
		if latest < r.LastUpdateTime {
			continue
		}
		if !p.Liquidity.IsZero() {
			dt := latest - r.LastUpdateTime
			delta, err := fm.MulDiv(ui.NewInt(dt), fm.FromU128(r.EmissionsPerSecondX64), fm.FromU128(p.Liquidity))
			if err != nil {
				return next, err
			}
			growthDelta, err := fm.ToU128(delta)
			if err != nil {
				return next, err
			}
			if r.RewardGrowthGlobalX64, err = fm.CheckedAdd128(r.RewardGrowthGlobalX64, growthDelta); err != nil {
				return next, fmt.Errorf("reward %d growth: %w", i, err)
			}
			emitted, err := RewardAmount(dt, r.EmissionsPerSecondX64)
			if err != nil {
				return next, err
			}
			if r.RewardTotalEmissioned, err = fm.CheckedAddU64(r.RewardTotalEmissioned, emitted); err != nil {
				return next, fmt.Errorf("reward %d emissioned: %w", i, err)
			}
		}
		r.LastUpdateTime = latest
		if latest >= r.OpenTime && latest < r.EndTime {
			r.RewardState = uint8(RewardOpening)
		} else if latest == r.EndTime {
			r.RewardState = uint8(RewardEnded)
		}
	}
	p.RewardInfos = next
	return next, nil
}

// CheckUnclaimedReward fails when owed exceeds what slot index has emitted but
// not paid out.
func (p *PoolState) CheckUnclaimedReward(index int, owed uint64) error {
	if index < 0 || index >= cons.RewardNum {
		return errcode.ErrInvalidRewardIndex
	}
	r := &p.RewardInfos[index]
	unclaimed, err := fm.CheckedSubU64(r.RewardTotalEmissioned, r.RewardClaimed)
	if err != nil {
		return err
	}
	if unclaimed < owed {
		return fmt.Errorf("reward %d owes %d, only %d unclaimed: %w", index, owed, unclaimed, errcode.ErrInvalidRewardDesiredAmount)
	}
	return nil
}

func (p *PoolState) AddRewardClaimed(index int, amount uint64) error {
	if index < 0 || index >= cons.RewardNum {
		return errcode.ErrInvalidRewardIndex
	}
	claimed, err := fm.CheckedAddU64(p.RewardInfos[index].RewardClaimed, amount)
	if err != nil {
		return err
	}
	p.RewardInfos[index].RewardClaimed = claimed
	return nil
}

// SetRewardParams lets the reward authority restart an ended reward, or raise
// the emission rate and extend the end of a running one during its last
// IncreaseEmissionsControlPeriod seconds. Zero emissions or end time leave
// that parameter unchanged on a running reward. It returns the amount that
// has to be added to the reward vault.
func (p *PoolState) SetRewardParams(
	index int,
	authority solana.PublicKey,
	op *OperationState,
	emissionsPerSecondX64 uint128.Uint128,
	openTime, endTime, now uint64,
) (uint64, error) {
	if index < 0 || index >= cons.RewardNum {
		return 0, errcode.ErrInvalidRewardIndex
	}
	r := &p.RewardInfos[index]
	if !r.Initialized() {
		return 0, errcode.ErrUnInitializedRewardInfo
	}
	if !authority.Equals(r.Authority) && !authority.Equals(cons.AdminID) && !op.ValidateOperationOwner(authority) {
		return 0, errcode.ErrNotApproved
	}
	if _, err := p.UpdateRewardInfos(now); err != nil {
		return 0, err
	}

	if r.LastUpdateTime == r.EndTime {
		if openTime <= now || endTime <= openTime || emissionsPerSecondX64.IsZero() {
			return 0, errcode.ErrInvalidRewardPeriod
		}
		period := endTime - openTime
		if period < cons.MinRewardPeriod || period > cons.MaxRewardPeriod {
			return 0, errcode.ErrInvalidRewardPeriod
		}
		amount, err := RewardAmount(period, emissionsPerSecondX64)
		if err != nil {
			return 0, err
		}
		r.OpenTime = openTime
		r.LastUpdateTime = openTime
		r.EndTime = endTime
		r.EmissionsPerSecondX64 = emissionsPerSecondX64
		r.RewardState = uint8(RewardInitialized)
		return amount, nil
	}

	if r.EndTime-now > cons.IncreaseEmissionsControlPeriod {
		return 0, errcode.ErrNotApproveUpdateRewardEmissiones
	}
	var amount uint64
	if !emissionsPerSecondX64.IsZero() {
		if emissionsPerSecondX64.Cmp(r.EmissionsPerSecondX64) <= 0 {
			return 0, fmt.Errorf("emissions can only increase: %w", errcode.ErrInvalidRewardInitParam)
		}
		extra, err := RewardAmount(r.EndTime-now, emissionsPerSecondX64.Sub(r.EmissionsPerSecondX64))
		if err != nil {
			return 0, err
		}
		amount = extra
		r.EmissionsPerSecondX64 = emissionsPerSecondX64
	}
	if endTime != 0 {
		if endTime <= r.EndTime {
			return 0, errcode.ErrInvalidRewardPeriod
		}
		period := endTime - r.EndTime
		if period < cons.MinRewardPeriod || period > cons.MaxRewardPeriod {
			return 0, errcode.ErrInvalidRewardPeriod
		}
		extra, err := RewardAmount(period, r.EmissionsPerSecondX64)
		if err != nil {
			return 0, err
		}
		if amount, err = fm.CheckedAddU64(amount, extra); err != nil {
			return 0, err
		}
		r.EndTime = endTime
	}
	return amount, nil
}
