package pool

import (
	"bytes"
	"encoding/binary"
	"fmt"

	cons "github.com/ftchann/clmm-simulator/lib/constants"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

const (
	RewardInfoLen = 1 + 8 + 8 + 8 + 16 + 8 + 8 + 32 + 32 + 32 + 16
	Len           = 8 + 1 + 32*7 + 1 + 1 + 2 + 16 + 16 + 4 + 2 + 2 + 16 + 16 + 8 + 8 + 16*4 + 1 + 7 +
		RewardInfoLen*cons.RewardNum + 8*16 + 8*6 + 8 + 8 + 8*24 + 8*32
)

var Discriminator = cons.AccountDiscriminator("PoolState")

// cursor walks a fixed size account buffer.
type cursor struct {
	buf    []byte
	offset int
}

func (c *cursor) next(n int) []byte {
	b := c.buf[c.offset : c.offset+n]
	c.offset += n
	return b
}

func (c *cursor) putU8(v uint8)             { c.next(1)[0] = v }
func (c *cursor) putU16(v uint16)           { binary.LittleEndian.PutUint16(c.next(2), v) }
func (c *cursor) putU32(v uint32)           { binary.LittleEndian.PutUint32(c.next(4), v) }
func (c *cursor) putU64(v uint64)           { binary.LittleEndian.PutUint64(c.next(8), v) }
func (c *cursor) putU128(v uint128.Uint128) { v.PutBytes(c.next(16)) }
func (c *cursor) putKey(k solana.PublicKey) { copy(c.next(32), k[:]) }
func (c *cursor) u8() uint8                 { return c.next(1)[0] }
func (c *cursor) u16() uint16               { return binary.LittleEndian.Uint16(c.next(2)) }
func (c *cursor) u32() uint32               { return binary.LittleEndian.Uint32(c.next(4)) }
func (c *cursor) u64() uint64               { return binary.LittleEndian.Uint64(c.next(8)) }
func (c *cursor) u128() uint128.Uint128     { return uint128.FromBytes(c.next(16)) }
func (c *cursor) key() solana.PublicKey     { return solana.PublicKeyFromBytes(c.next(32)) }

func (r *RewardInfo) encodeTo(c *cursor) {
	c.putU8(r.RewardState)
	c.putU64(r.OpenTime)
	c.putU64(r.EndTime)
	c.putU64(r.LastUpdateTime)
	c.putU128(r.EmissionsPerSecondX64)
	c.putU64(r.RewardTotalEmissioned)
	c.putU64(r.RewardClaimed)
	c.putKey(r.TokenMint)
	c.putKey(r.TokenVault)
	c.putKey(r.Authority)
	c.putU128(r.RewardGrowthGlobalX64)
}

func (r *RewardInfo) decodeFrom(c *cursor) {
	r.RewardState = c.u8()
	r.OpenTime = c.u64()
	r.EndTime = c.u64()
	r.LastUpdateTime = c.u64()
	r.EmissionsPerSecondX64 = c.u128()
	r.RewardTotalEmissioned = c.u64()
	r.RewardClaimed = c.u64()
	r.TokenMint = c.key()
	r.TokenVault = c.key()
	r.Authority = c.key()
	r.RewardGrowthGlobalX64 = c.u128()
}

func (r *RewardInfo) Encode() []byte {
	c := &cursor{buf: make([]byte, RewardInfoLen)}
	r.encodeTo(c)
	return c.buf
}

func DecodeRewardInfo(data []byte) (RewardInfo, error) {
	var r RewardInfo
	if len(data) != RewardInfoLen {
		return r, fmt.Errorf("reward info: want %d bytes, got %d", RewardInfoLen, len(data))
	}
	r.decodeFrom(&cursor{buf: data})
	return r, nil
}

// Encode writes the pool account, discriminator first.
func (p *PoolState) Encode() []byte {
	c := &cursor{buf: make([]byte, Len)}
	copy(c.next(8), Discriminator[:])
	c.putU8(p.Bump)
	c.putKey(p.AmmConfig)
	c.putKey(p.Owner)
	c.putKey(p.TokenMint0)
	c.putKey(p.TokenMint1)
	c.putKey(p.TokenVault0)
	c.putKey(p.TokenVault1)
	c.putKey(p.ObservationKey)
	c.putU8(p.MintDecimals0)
	c.putU8(p.MintDecimals1)
	c.putU16(p.TickSpacing)
	c.putU128(p.Liquidity)
	c.putU128(p.SqrtPriceX64)
	c.putU32(uint32(p.TickCurrent))
	c.putU16(p.Padding3)
	c.putU16(p.Padding4)
	c.putU128(p.FeeGrowthGlobal0X64)
	c.putU128(p.FeeGrowthGlobal1X64)
	c.putU64(p.ProtocolFeesToken0)
	c.putU64(p.ProtocolFeesToken1)
	c.putU128(p.SwapInAmountToken0)
	c.putU128(p.SwapOutAmountToken1)
	c.putU128(p.SwapInAmountToken1)
	c.putU128(p.SwapOutAmountToken0)
	c.putU8(p.Status)
	copy(c.next(len(p.Padding)), p.Padding[:])
	for i := range p.RewardInfos {
		p.RewardInfos[i].encodeTo(c)
	}
	for _, w := range p.TickArrayBitmap {
		c.putU64(w)
	}
	c.putU64(p.TotalFeesToken0)
	c.putU64(p.TotalFeesClaimedToken0)
	c.putU64(p.TotalFeesToken1)
	c.putU64(p.TotalFeesClaimedToken1)
	c.putU64(p.FundFeesToken0)
	c.putU64(p.FundFeesToken1)
	c.putU64(p.OpenTime)
	c.putU64(p.RecentEpoch)
	for _, w := range p.Padding1 {
		c.putU64(w)
	}
	for _, w := range p.Padding2 {
		c.putU64(w)
	}
	return c.buf
}

func DecodePoolState(data []byte) (*PoolState, error) {
	if len(data) != Len {
		return nil, fmt.Errorf("pool account: want %d bytes, got %d", Len, len(data))
	}
	if !bytes.Equal(data[:8], Discriminator[:]) {
		return nil, fmt.Errorf("pool account: bad discriminator")
	}
	c := &cursor{buf: data, offset: 8}
	p := new(PoolState)
	p.Bump = c.u8()
	p.AmmConfig = c.key()
	p.Owner = c.key()
	p.TokenMint0 = c.key()
	p.TokenMint1 = c.key()
	p.TokenVault0 = c.key()
	p.TokenVault1 = c.key()
	p.ObservationKey = c.key()
	p.MintDecimals0 = c.u8()
	p.MintDecimals1 = c.u8()
	p.TickSpacing = c.u16()
	p.Liquidity = c.u128()
	p.SqrtPriceX64 = c.u128()
	p.TickCurrent = int32(c.u32())
	p.Padding3 = c.u16()
	p.Padding4 = c.u16()
	p.FeeGrowthGlobal0X64 = c.u128()
	p.FeeGrowthGlobal1X64 = c.u128()
	p.ProtocolFeesToken0 = c.u64()
	p.ProtocolFeesToken1 = c.u64()
	p.SwapInAmountToken0 = c.u128()
	p.SwapOutAmountToken1 = c.u128()
	p.SwapInAmountToken1 = c.u128()
	p.SwapOutAmountToken0 = c.u128()
	p.Status = c.u8()
	copy(p.Padding[:], c.next(len(p.Padding)))
	for i := range p.RewardInfos {
		p.RewardInfos[i].decodeFrom(c)
	}
	for i := range p.TickArrayBitmap {
		p.TickArrayBitmap[i] = c.u64()
	}
	p.TotalFeesToken0 = c.u64()
	p.TotalFeesClaimedToken0 = c.u64()
	p.TotalFeesToken1 = c.u64()
	p.TotalFeesClaimedToken1 = c.u64()
	p.FundFeesToken0 = c.u64()
	p.FundFeesToken1 = c.u64()
	p.OpenTime = c.u64()
	p.RecentEpoch = c.u64()
	for i := range p.Padding1 {
		p.Padding1[i] = c.u64()
	}
	for i := range p.Padding2 {
		p.Padding2[i] = c.u64()
	}
	return p, nil
}
