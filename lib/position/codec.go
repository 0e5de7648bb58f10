package position

import (
	"bytes"
	"encoding/binary"
	"fmt"

	cons "github.com/ftchann/clmm-simulator/lib/constants"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

const (
	Len        = 8 + 1 + 32 + 32 + 4 + 4 + 16 + 16 + 16 + 8 + 8 + (16+8)*cons.RewardNum + 8 + paddingLen
	paddingLen = 8 * 7
)

var Discriminator = cons.AccountDiscriminator("PersonalPositionState")

func writeU128(enc *bin.Encoder, v uint128.Uint128) error {
	if err := enc.WriteUint64(v.Lo, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteUint64(v.Hi, binary.LittleEndian)
}

func readU128(dec *bin.Decoder) (uint128.Uint128, error) {
	b, err := dec.ReadNBytes(16)
	if err != nil {
		return uint128.Zero, err
	}
	return uint128.FromBytes(b), nil
}

func (p *PersonalPosition) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(Discriminator[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint8(p.Bump); err != nil {
		return err
	}
	if err := enc.WriteBytes(p.NftMint[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(p.PoolID[:], false); err != nil {
		return err
	}
	if err := enc.WriteInt32(p.TickLowerIndex, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteInt32(p.TickUpperIndex, binary.LittleEndian); err != nil {
		return err
	}
	for _, v := range []uint128.Uint128{p.Liquidity, p.FeeGrowthInside0LastX64, p.FeeGrowthInside1LastX64} {
		if err := writeU128(enc, v); err != nil {
			return err
		}
	}
	if err := enc.WriteUint64(p.TokenFeesOwed0, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint64(p.TokenFeesOwed1, binary.LittleEndian); err != nil {
		return err
	}
	for i, r := range p.RewardInfos {
		if err := writeU128(enc, r.GrowthInsideLastX64); err != nil {
			return fmt.Errorf("reward %d: %w", i, err)
		}
		if err := enc.WriteUint64(r.RewardAmountOwed, binary.LittleEndian); err != nil {
			return fmt.Errorf("reward %d: %w", i, err)
		}
	}
	if err := enc.WriteUint64(p.RecentEpoch, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes(make([]byte, paddingLen), false)
}

func (p *PersonalPosition) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	disc, err := dec.ReadNBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(disc, Discriminator[:]) {
		return fmt.Errorf("position account: bad discriminator")
	}
	if p.Bump, err = dec.ReadUint8(); err != nil {
		return err
	}
	key, err := dec.ReadNBytes(32)
	if err != nil {
		return err
	}
	p.NftMint = solana.PublicKeyFromBytes(key)
	if key, err = dec.ReadNBytes(32); err != nil {
		return err
	}
	p.PoolID = solana.PublicKeyFromBytes(key)
	if p.TickLowerIndex, err = dec.ReadInt32(binary.LittleEndian); err != nil {
		return err
	}
	if p.TickUpperIndex, err = dec.ReadInt32(binary.LittleEndian); err != nil {
		return err
	}
	for _, v := range []*uint128.Uint128{&p.Liquidity, &p.FeeGrowthInside0LastX64, &p.FeeGrowthInside1LastX64} {
		if *v, err = readU128(dec); err != nil {
			return err
		}
	}
	if p.TokenFeesOwed0, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if p.TokenFeesOwed1, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	for i := range p.RewardInfos {
		if p.RewardInfos[i].GrowthInsideLastX64, err = readU128(dec); err != nil {
			return err
		}
		if p.RewardInfos[i].RewardAmountOwed, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return err
		}
	}
	if p.RecentEpoch, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	return dec.SkipBytes(paddingLen)
}

// Encode serializes the position into its Len byte account layout.
func (p *PersonalPosition) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := p.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (*PersonalPosition, error) {
	if len(data) != Len {
		return nil, fmt.Errorf("position account: want %d bytes, got %d", Len, len(data))
	}
	p := new(PersonalPosition)
	if err := p.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, err
	}
	return p, nil
}
