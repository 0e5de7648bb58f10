package tickarray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	cons "github.com/ftchann/clmm-simulator/lib/constants"

	sdkmath "cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

const (
	TickStateLen = 168
	Len          = 10240

	tickPaddingLen  = 52
	arrayPaddingLen = 107
)

var Discriminator = cons.AccountDiscriminator("TickArrayState")

var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

func writeU128(enc *bin.Encoder, v uint128.Uint128) error {
	if err := enc.WriteUint64(v.Lo, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteUint64(v.Hi, binary.LittleEndian)
}

func readU128(dec *bin.Decoder) (uint128.Uint128, error) {
	lo, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return uint128.Zero, err
	}
	hi, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return uint128.Zero, err
	}
	return uint128.New(lo, hi), nil
}

// i128 values are stored as 16 byte two's complement
func writeI128(enc *bin.Encoder, v sdkmath.Int) error {
	b := new(big.Int).Set(v.BigInt())
	if b.Sign() < 0 {
		b.Add(b, two128)
	}
	return writeU128(enc, uint128.FromBig(b))
}

func readI128(dec *bin.Decoder) (sdkmath.Int, error) {
	u, err := readU128(dec)
	if err != nil {
		return sdkmath.Int{}, err
	}
	b := u.Big()
	if u.Hi>>63 == 1 {
		b.Sub(b, two128)
	}
	return sdkmath.NewIntFromBigInt(b), nil
}

func (t *TickState) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteInt32(t.Tick, binary.LittleEndian); err != nil {
		return err
	}
	if err := writeI128(enc, t.net()); err != nil {
		return err
	}
	values := []uint128.Uint128{t.LiquidityGross, t.FeeGrowthOutside0X64, t.FeeGrowthOutside1X64}
	values = append(values, t.RewardGrowthsOutsideX64[:]...)
	for _, v := range values {
		if err := writeU128(enc, v); err != nil {
			return err
		}
	}
	return enc.WriteBytes(t.Padding[:], false)
}

func (t *TickState) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if t.Tick, err = dec.ReadInt32(binary.LittleEndian); err != nil {
		return err
	}
	if t.LiquidityNet, err = readI128(dec); err != nil {
		return err
	}
	if t.LiquidityGross, err = readU128(dec); err != nil {
		return err
	}
	if t.FeeGrowthOutside0X64, err = readU128(dec); err != nil {
		return err
	}
	if t.FeeGrowthOutside1X64, err = readU128(dec); err != nil {
		return err
	}
	for i := range t.RewardGrowthsOutsideX64 {
		if t.RewardGrowthsOutsideX64[i], err = readU128(dec); err != nil {
			return err
		}
	}
	pad, err := dec.ReadNBytes(tickPaddingLen)
	if err != nil {
		return err
	}
	copy(t.Padding[:], pad)
	return nil
}

// Encode serializes the array into its Len byte account layout.
func (t *TickArray) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteBytes(Discriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(t.PoolID[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteInt32(t.StartTickIndex, binary.LittleEndian); err != nil {
		return nil, err
	}
	for i := range t.Ticks {
		if err := t.Ticks[i].MarshalWithEncoder(enc); err != nil {
			return nil, fmt.Errorf("encode tick %d: %w", i, err)
		}
	}
	if err := enc.WriteUint8(t.InitializedTickCount); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(t.RecentEpoch, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(t.Padding[:], false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (*TickArray, error) {
	if len(data) != Len {
		return nil, fmt.Errorf("tick array account: want %d bytes, got %d", Len, len(data))
	}
	if !bytes.Equal(data[:8], Discriminator[:]) {
		return nil, fmt.Errorf("tick array account: bad discriminator")
	}
	dec := bin.NewBinDecoder(data[8:])
	t := new(TickArray)
	key, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, err
	}
	t.PoolID = solana.PublicKeyFromBytes(key)
	if t.StartTickIndex, err = dec.ReadInt32(binary.LittleEndian); err != nil {
		return nil, err
	}
	for i := range t.Ticks {
		if err := t.Ticks[i].UnmarshalWithDecoder(dec); err != nil {
			return nil, fmt.Errorf("decode tick %d: %w", i, err)
		}
	}
	if t.InitializedTickCount, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	if t.RecentEpoch, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, err
	}
	pad, err := dec.ReadNBytes(arrayPaddingLen)
	if err != nil {
		return nil, err
	}
	copy(t.Padding[:], pad)
	return t, nil
}
