package bitmap

import "math/bits"

// U1024 is the pool resident tick array bitmap, bit i of word i/64 at position i%64.
type U1024 [16]uint64

// U512 is one extension bitmap.
type U512 [8]uint64

func bitSet(words []uint64, i int) bool {
	return words[i/64]&(1<<(uint(i)%64)) != 0
}

func flipBit(words []uint64, i int) {
	words[i/64] ^= 1 << (uint(i) % 64)
}

func isZero(words []uint64) bool {
	for _, w := range words {
		if w != 0 {
			return false
		}
	}
	return true
}

// highestSetAtOrBelow returns the largest set bit index <= pos.
func highestSetAtOrBelow(words []uint64, pos int) (int, bool) {
	if pos < 0 {
		return 0, false
	}
	word := pos / 64
	mask := ^uint64(0) >> (63 - uint(pos)%64)
	for w := word; w >= 0; w-- {
		v := words[w]
		if w == word {
			v &= mask
		}
		if v != 0 {
			return w*64 + 63 - bits.LeadingZeros64(v), true
		}
	}
	return 0, false
}

// lowestSetAtOrAbove returns the smallest set bit index >= pos.
func lowestSetAtOrAbove(words []uint64, pos int) (int, bool) {
	if pos >= len(words)*64 {
		return 0, false
	}
	if pos < 0 {
		pos = 0
	}
	word := pos / 64
	mask := ^uint64(0) << (uint(pos) % 64)
	for w := word; w < len(words); w++ {
		v := words[w]
		if w == word {
			v &= mask
		}
		if v != 0 {
			return w*64 + bits.TrailingZeros64(v), true
		}
	}
	return 0, false
}

func (b *U1024) Bit(i int) bool { return bitSet(b[:], i) }
func (b *U1024) Flip(i int)     { flipBit(b[:], i) }
func (b *U1024) IsZero() bool   { return isZero(b[:]) }

func (b *U512) Bit(i int) bool { return bitSet(b[:], i) }
func (b *U512) Flip(i int)     { flipBit(b[:], i) }
func (b *U512) IsZero() bool   { return isZero(b[:]) }
