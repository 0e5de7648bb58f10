package pool

import (
	"errors"
	"testing"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

const (
	rewardOpen = uint64(1665982800)
	rewardEnd  = uint64(1666069200)
)

var wsol = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

func poolWithReward(t *testing.T) *PoolState {
	t.Helper()
	p := buildPool(t, 0, 10)
	_, err := p.InitializeReward(rewardOpen, rewardEnd, uint128.From64(10), wsol, nil, solana.NewWallet().PublicKey(), cons.AdminID, nil)
	require.NoError(t, err)
	return p
}

func TestUpdateRewardInfosScenario(t *testing.T) {
	p := poolWithReward(t)
	initial := p.RewardInfos[0]
	assert.Equal(t, RewardInitialized, initial.State())
	assert.Equal(t, rewardOpen, initial.LastUpdateTime)

	// before open nothing moves
	_, err := p.UpdateRewardInfos(rewardOpen - 100)
	require.NoError(t, err)
	assert.Equal(t, initial, p.RewardInfos[0])

	// open but no liquidity: time advances, growth does not
	_, err = p.UpdateRewardInfos(rewardOpen + 100)
	require.NoError(t, err)
	r := p.RewardInfos[0]
	assert.Equal(t, RewardOpening, r.State())
	assert.Equal(t, rewardOpen+100, r.LastUpdateTime)
	assert.True(t, r.RewardGrowthGlobalX64.IsZero())
	assert.Zero(t, r.RewardTotalEmissioned)

	p.Liquidity = uint128.From64(100)
	_, err = p.UpdateRewardInfos(rewardOpen + 200)
	require.NoError(t, err)
	r = p.RewardInfos[0]
	assert.Equal(t, rewardOpen+200, r.LastUpdateTime)
	assert.Equal(t, uint128.From64(10), r.RewardGrowthGlobalX64)
	assert.Equal(t, uint64(1), r.RewardTotalEmissioned)

	// past the end, accrual stops at end_time
	_, err = p.UpdateRewardInfos(rewardEnd + 100)
	require.NoError(t, err)
	r = p.RewardInfos[0]
	assert.Equal(t, rewardEnd, r.LastUpdateTime)
	assert.Equal(t, RewardEnded, r.State())
	assert.Equal(t, uint128.From64(8630), r.RewardGrowthGlobalX64)
	assert.Equal(t, uint64(2), r.RewardTotalEmissioned)

	// repeated and earlier updates are no-ops
	for _, now := range []uint64{rewardEnd + 100, rewardEnd + 5000, rewardOpen + 300} {
		_, err = p.UpdateRewardInfos(now)
		require.NoError(t, err)
		assert.Equal(t, r, p.RewardInfos[0], "now=%d", now)
	}

	// uninitialized slots never move
	assert.True(t, p.RewardInfos[1].RewardGrowthGlobalX64.IsZero())
	assert.False(t, p.RewardInfos[1].Initialized())
}

func TestRewardClaimBoundedByEmission(t *testing.T) {
	p := poolWithReward(t)
	p.Liquidity = uint128.From64(100)
	_, err := p.UpdateRewardInfos(rewardEnd)
	require.NoError(t, err)
	emitted := p.RewardInfos[0].RewardTotalEmissioned

	require.NoError(t, p.CheckUnclaimedReward(0, emitted))
	require.NoError(t, p.AddRewardClaimed(0, emitted-1))
	err = p.CheckUnclaimedReward(0, 2)
	assert.True(t, errors.Is(err, errcode.ErrInvalidRewardDesiredAmount))
	require.NoError(t, p.CheckUnclaimedReward(0, 1))

	assert.Equal(t, errcode.ErrInvalidRewardIndex, p.CheckUnclaimedReward(3, 0))
	assert.Equal(t, errcode.ErrInvalidRewardIndex, p.AddRewardClaimed(-1, 0))
	assert.LessOrEqual(t, p.RewardInfos[0].RewardClaimed, p.RewardInfos[0].RewardTotalEmissioned)
}

func TestCheckRewardInitParams(t *testing.T) {
	const now = uint64(1_000_000)
	week := uint64(cons.MinRewardPeriod)
	tests := []struct {
		name      string
		open, end uint64
		eps       uint64
		err       error
	}{
		{"ok", now + 10, now + 10 + week, 1, nil},
		{"open after end", now + week, now, 1, errcode.ErrInvalidRewardInitParam},
		{"ended", now - 2*week, now - 1, 1, errcode.ErrInvalidRewardInitParam},
		{"zero emissions", now, now + week, 0, errcode.ErrInvalidRewardInitParam},
		{"too short", now, now + week - 1, 1, errcode.ErrInvalidRewardPeriod},
		{"too long", now, now + cons.MaxRewardPeriod + 1, 1, errcode.ErrInvalidRewardPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRewardInitParams(tt.open, tt.end, uint128.From64(tt.eps), now)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestRewardAmountRoundsUp(t *testing.T) {
	amount, err := RewardAmount(100, uint128.From64(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), amount)

	amount, err = RewardAmount(7*24*3600, uint128.New(0, 1)) // one token per second
	require.NoError(t, err)
	assert.Equal(t, uint64(7*24*3600), amount)

	amount, err = RewardAmount(0, uint128.New(0, 1))
	require.NoError(t, err)
	assert.Zero(t, amount)
}

func TestCheckRewardEligibility(t *testing.T) {
	operator := solana.NewWallet().PublicKey()
	whitelisted := solana.NewWallet().PublicKey()
	freeze := solana.NewWallet().PublicKey()
	op := &OperationState{
		OperationOwners: []solana.PublicKey{operator},
		WhitelistMints:  []solana.PublicKey{whitelisted},
	}
	user := solana.NewWallet().PublicKey()

	t.Run("first slot", func(t *testing.T) {
		p := buildPool(t, 0, 10)
		_, err := CheckRewardEligibility(p, solana.NewWallet().PublicKey(), &freeze, user, op)
		assert.Equal(t, errcode.ErrExceptRewardMint, err)

		idx, err := CheckRewardEligibility(p, solana.NewWallet().PublicKey(), nil, user, op)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)

		idx, err = CheckRewardEligibility(p, whitelisted, &freeze, user, op)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)

		idx, err = CheckRewardEligibility(p, p.TokenMint1, &freeze, user, op)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	})

	t.Run("second slot", func(t *testing.T) {
		p := buildPool(t, 0, 10)
		outside := solana.NewWallet().PublicKey()
		_, err := p.InitializeReward(10, 20, uint128.From64(1), outside, nil, outside, user, op)
		require.NoError(t, err)

		// no pool mint yet, the second reward has to bring a trusted one
		_, err = CheckRewardEligibility(p, solana.NewWallet().PublicKey(), nil, user, op)
		assert.Equal(t, errcode.ErrExceptRewardMint, err)
		idx, err := CheckRewardEligibility(p, p.TokenMint0, &freeze, user, op)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)

		_, err = CheckRewardEligibility(p, outside, nil, user, op)
		assert.Equal(t, errcode.ErrRewardTokenAlreadyInUse, err)
	})

	t.Run("second slot after pool mint", func(t *testing.T) {
		p := buildPool(t, 0, 10)
		_, err := p.InitializeReward(10, 20, uint128.From64(1), p.TokenMint0, nil, user, user, op)
		require.NoError(t, err)
		idx, err := CheckRewardEligibility(p, solana.NewWallet().PublicKey(), nil, user, op)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
		_, err = CheckRewardEligibility(p, solana.NewWallet().PublicKey(), &freeze, user, op)
		assert.Equal(t, errcode.ErrExceptRewardMint, err)
	})

	t.Run("third slot and full", func(t *testing.T) {
		p := buildPool(t, 0, 10)
		_, err := p.InitializeReward(10, 20, uint128.From64(1), p.TokenMint0, nil, user, user, op)
		require.NoError(t, err)
		_, err = p.InitializeReward(10, 20, uint128.From64(1), p.TokenMint1, nil, user, user, op)
		require.NoError(t, err)

		third := solana.NewWallet().PublicKey()
		_, err = CheckRewardEligibility(p, third, nil, user, op)
		assert.Equal(t, errcode.ErrNotApproved, err)
		idx, err := CheckRewardEligibility(p, third, &freeze, operator, op)
		require.NoError(t, err)
		assert.Equal(t, 2, idx)
		_, err = p.InitializeReward(10, 20, uint128.From64(1), third, nil, user, cons.AdminID, nil)
		require.NoError(t, err)

		_, err = CheckRewardEligibility(p, solana.NewWallet().PublicKey(), nil, cons.AdminID, op)
		assert.Equal(t, errcode.ErrFullRewardInfo, err)
	})
}

func TestSetRewardParams(t *testing.T) {
	const week = uint64(cons.MinRewardPeriod)
	authority := solana.NewWallet().PublicKey()
	newPool := func(t *testing.T) *PoolState {
		p := buildPool(t, 0, 10)
		p.Liquidity = uint128.From64(1000)
		_, err := p.InitializeReward(1000, 1000+week, uint128.New(0, 1), p.TokenMint0, nil, solana.NewWallet().PublicKey(), authority, nil)
		require.NoError(t, err)
		return p
	}

	t.Run("not authority", func(t *testing.T) {
		p := newPool(t)
		_, err := p.SetRewardParams(0, solana.NewWallet().PublicKey(), nil, uint128.New(0, 2), 0, 0, 2000)
		assert.Equal(t, errcode.ErrNotApproved, err)
	})

	t.Run("uninitialized", func(t *testing.T) {
		p := newPool(t)
		_, err := p.SetRewardParams(1, authority, nil, uint128.New(0, 2), 0, 0, 2000)
		assert.Equal(t, errcode.ErrUnInitializedRewardInfo, err)
	})

	t.Run("too early to change", func(t *testing.T) {
		p := newPool(t)
		_, err := p.SetRewardParams(0, authority, nil, uint128.New(0, 2), 0, 0, 2000)
		assert.Equal(t, errcode.ErrNotApproveUpdateRewardEmissiones, err)
	})

	t.Run("raise and extend", func(t *testing.T) {
		p := newPool(t)
		now := 1000 + week - 3600
		_, err := p.SetRewardParams(0, authority, nil, uint128.New(0, 1), 0, 0, now)
		assert.True(t, errors.Is(err, errcode.ErrInvalidRewardInitParam))

		deposit, err := p.SetRewardParams(0, authority, nil, uint128.New(0, 3), 0, 1000+2*week, now)
		require.NoError(t, err)
		// one hour at two extra tokens per second, then a week at three
		assert.Equal(t, uint64(2*3600+3*week), deposit)
		r := p.RewardInfos[0]
		assert.Equal(t, now, r.LastUpdateTime)
		assert.Equal(t, 1000+2*week, r.EndTime)
		assert.Equal(t, uint128.New(0, 3), r.EmissionsPerSecondX64)
	})

	t.Run("restart ended", func(t *testing.T) {
		p := newPool(t)
		now := 1000 + week + 10
		_, err := p.SetRewardParams(0, authority, nil, uint128.New(0, 1), now, now+week, now)
		assert.Equal(t, errcode.ErrInvalidRewardPeriod, err)

		deposit, err := p.SetRewardParams(0, cons.AdminID, nil, uint128.New(0, 1), now+1, now+1+week, now)
		require.NoError(t, err)
		assert.Equal(t, week, deposit)
		r := p.RewardInfos[0]
		assert.Equal(t, RewardInitialized, r.State())
		assert.Equal(t, now+1, r.OpenTime)
		assert.Equal(t, now+1, r.LastUpdateTime)
		assert.Equal(t, week, r.RewardTotalEmissioned)
	})
}
