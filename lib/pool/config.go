package pool

import (
	"encoding/binary"
	"fmt"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"

	"github.com/gagliardetto/solana-go"
)

// AmmConfig is the fee tier a pool is created under.
type AmmConfig struct {
	Index           uint16
	Owner           solana.PublicKey
	ProtocolFeeRate uint32
	TradeFeeRate    uint32
	TickSpacing     uint16
	FundFeeRate     uint32
	FundOwner       solana.PublicKey
}

// NewAmmConfig checks the rates against the fee denominator. A zero tick
// spacing is looked up from the standard fee tiers.
func NewAmmConfig(index uint16, owner solana.PublicKey, tickSpacing uint16, tradeFeeRate, protocolFeeRate, fundFeeRate uint32) (*AmmConfig, error) {
	denominator := uint32(cons.FeeRateDenominator.Uint64())
	if tradeFeeRate >= denominator {
		return nil, fmt.Errorf("trade fee rate %d must be below %d", tradeFeeRate, denominator)
	}
	if uint64(protocolFeeRate)+uint64(fundFeeRate) > uint64(denominator) {
		return nil, fmt.Errorf("protocol fee rate %d plus fund fee rate %d exceed %d", protocolFeeRate, fundFeeRate, denominator)
	}
	if tickSpacing == 0 {
		spacing, ok := cons.TickSpaces[tradeFeeRate]
		if !ok {
			return nil, fmt.Errorf("no standard tick spacing for trade fee rate %d: %w", tradeFeeRate, errcode.ErrInvalidTickIndex)
		}
		tickSpacing = spacing
	}
	return &AmmConfig{
		Index:           index,
		Owner:           owner,
		ProtocolFeeRate: protocolFeeRate,
		TradeFeeRate:    tradeFeeRate,
		TickSpacing:     tickSpacing,
		FundFeeRate:     fundFeeRate,
		FundOwner:       owner,
	}, nil
}

// Address is the config PDA, seeded by its big endian index.
func (c *AmmConfig) Address() solana.PublicKey {
	idx := make([]byte, 2)
	binary.BigEndian.PutUint16(idx, c.Index)
	key, _, err := solana.FindProgramAddress([][]byte{[]byte(cons.AmmConfigSeed), idx}, cons.ProgramID)
	if err != nil {
		return solana.PublicKey{}
	}
	return key
}

// OperationState lists the operators allowed to manage rewards and the
// reward mints that skip the freeze authority check.
type OperationState struct {
	OperationOwners []solana.PublicKey
	WhitelistMints  []solana.PublicKey
}

func (o *OperationState) ValidateOperationOwner(owner solana.PublicKey) bool {
	if o == nil || owner.IsZero() {
		return false
	}
	for _, k := range o.OperationOwners {
		if k.Equals(owner) {
			return true
		}
	}
	return false
}

func (o *OperationState) ValidateWhitelistMint(mint solana.PublicKey) bool {
	if o == nil || mint.IsZero() {
		return false
	}
	for _, k := range o.WhitelistMints {
		if k.Equals(mint) {
			return true
		}
	}
	return false
}
