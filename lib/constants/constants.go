package constants

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
	ui "github.com/holiman/uint256"
)

var (
	Zero = new(ui.Int)
	One  = new(ui.Int).SetOne()
	// Q64 is 2^64, the unit of every X64 fixed point value.
	Q64        = new(ui.Int).Lsh(One, 64)
	MaxUint64  = new(ui.Int).SetUint64(^uint64(0))
	MaxUint128 = new(ui.Int).Sub(new(ui.Int).Lsh(One, 128), One)
	// fee rates are expressed in hundredths of a bip
	FeeRateDenominator = ui.NewInt(1_000_000)
)

const (
	TickArraySize                = 60
	TickArrayBitmapSize          = 512
	ExtensionTickArrayBitmapSize = 14
	RewardNum                    = 3

	// reward period limits in seconds
	MinRewardPeriod                = 7 * 24 * 3600
	MaxRewardPeriod                = 90 * 24 * 3600
	IncreaseEmissionsControlPeriod = 72 * 3600

	TransferFeeBasisPointsMax = 10_000
)

const (
	PoolSeed                   = "pool"
	PoolVaultSeed              = "pool_vault"
	PoolRewardVaultSeed        = "pool_reward_vault"
	TickArrayBitmapSeed        = "pool_tick_array_bitmap_extension"
	TickArraySeed              = "tick_array"
	PositionSeed               = "position"
	ObservationSeed            = "observation"
	AmmConfigSeed              = "amm_config"
	AccountDiscriminatorLength = 8
)

var (
	ProgramID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	AdminID   = solana.MustPublicKeyFromBase58("GThUX1Atko4tqhN2NaiTazWSeFWMuiUvfFnyJyUghFMJ")
)

// AccountDiscriminator returns the 8 byte prefix written in front of an account of the given type.
func AccountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// TickSpaces maps the trade fee rate of the standard amm configs to their tick spacing.
var TickSpaces = map[uint32]uint16{
	100:   1,
	500:   10,
	2500:  60,
	10000: 120,
}
