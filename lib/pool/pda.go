package pool

import (
	"encoding/binary"

	cons "github.com/ftchann/clmm-simulator/lib/constants"

	"github.com/gagliardetto/solana-go"
)

func PoolAddress(ammConfig, mint0, mint1 solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(cons.PoolSeed), ammConfig[:], mint0[:], mint1[:]}, cons.ProgramID)
}

func VaultAddress(pool, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(cons.PoolVaultSeed), pool[:], mint[:]}, cons.ProgramID)
}

func RewardVaultAddress(pool, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(cons.PoolRewardVaultSeed), pool[:], mint[:]}, cons.ProgramID)
}

func ExtensionAddress(pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(cons.TickArrayBitmapSeed), pool[:]}, cons.ProgramID)
}

func ObservationAddress(pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(cons.ObservationSeed), pool[:]}, cons.ProgramID)
}

// TickArrayAddress seeds the array by its big endian start index.
func TickArrayAddress(pool solana.PublicKey, start int32) (solana.PublicKey, uint8, error) {
	idx := make([]byte, 4)
	binary.BigEndian.PutUint32(idx, uint32(start))
	return solana.FindProgramAddress([][]byte{[]byte(cons.TickArraySeed), pool[:], idx}, cons.ProgramID)
}
