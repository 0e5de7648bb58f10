package bitmap

import (
	"bytes"
	"encoding/binary"
	"fmt"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	"github.com/ftchann/clmm-simulator/lib/tickarray"
	"github.com/ftchann/clmm-simulator/lib/tickmath"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const ExtensionLen = 8 + 32 + 64*cons.ExtensionTickArrayBitmapSize*2

var ExtensionDiscriminator = cons.AccountDiscriminator("TickArrayBitmapExtension")

// Extension tracks tick arrays outside the pool's default bitmap window.
// Bitmap k on each side covers |start| in [(k+1)*max, (k+2)*max).
type Extension struct {
	PoolID                  solana.PublicKey
	PositiveTickArrayBitmap [cons.ExtensionTickArrayBitmapSize]U512
	NegativeTickArrayBitmap [cons.ExtensionTickArrayBitmapSize]U512
}

func NewExtension(poolID solana.PublicKey) *Extension {
	return &Extension{PoolID: poolID}
}

func (e *Extension) Clone() *Extension {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// CheckExtensionBoundary fails for starts that belong to the default bitmap.
func CheckExtensionBoundary(start int32, tickSpacing uint16) error {
	positiveBoundary := MaxTickInTickarrayBitmap(tickSpacing)
	negativeBoundary := -positiveBoundary
	if tickmath.MaxTick <= positiveBoundary || negativeBoundary <= tickmath.MinTick {
		return fmt.Errorf("tick spacing %d needs no extension: %w", tickSpacing, errcode.ErrInvalidTickArrayBoundary)
	}
	if start >= negativeBoundary && start < positiveBoundary {
		return fmt.Errorf("start %d is inside the default bitmap: %w", start, errcode.ErrInvalidTickArrayBoundary)
	}
	return nil
}

// GetBitmapOffset selects which of the extension bitmaps holds start.
func GetBitmapOffset(start int32, tickSpacing uint16) (int, error) {
	if !tickarray.CheckIsValidStartIndex(start, tickSpacing) {
		return 0, fmt.Errorf("start %d: %w", start, errcode.ErrInvalidTickIndex)
	}
	if err := CheckExtensionBoundary(start, tickSpacing); err != nil {
		return 0, err
	}
	ticksInOneBitmap := MaxTickInTickarrayBitmap(tickSpacing)
	offset := absI32(start)/ticksInOneBitmap - 1
	if start < 0 && absI32(start)%ticksInOneBitmap == 0 {
		offset--
	}
	return int(offset), nil
}

// TickArrayOffsetInBitmap is the bit of start within its extension bitmap.
func TickArrayOffsetInBitmap(start int32, tickSpacing uint16) int {
	m := absI32(start) % MaxTickInTickarrayBitmap(tickSpacing)
	offset := m / tickarray.TickCount(tickSpacing)
	if start < 0 && m != 0 {
		offset = cons.TickArrayBitmapSize - offset
	}
	return int(offset)
}

func (e *Extension) bitmap(start int32, tickSpacing uint16) (*U512, error) {
	offset, err := GetBitmapOffset(start, tickSpacing)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return &e.NegativeTickArrayBitmap[offset], nil
	}
	return &e.PositiveTickArrayBitmap[offset], nil
}

func (e *Extension) CheckTickArrayIsInitialized(start int32, tickSpacing uint16) (bool, int32, error) {
	b, err := e.bitmap(start, tickSpacing)
	if err != nil {
		return false, 0, err
	}
	return b.Bit(TickArrayOffsetInBitmap(start, tickSpacing)), start, nil
}

func (e *Extension) FlipTickArrayBit(start int32, tickSpacing uint16) error {
	b, err := e.bitmap(start, tickSpacing)
	if err != nil {
		return err
	}
	b.Flip(TickArrayOffsetInBitmap(start, tickSpacing))
	return nil
}

// NextInitializedTickArrayFromOneBitmap searches only the bitmap holding the array after last.
func (e *Extension) NextInitializedTickArrayFromOneBitmap(last int32, tickSpacing uint16, zeroForOne bool) (bool, int32, error) {
	multiplier := tickarray.TickCount(tickSpacing)
	next := last + multiplier
	if zeroForOne {
		next = last - multiplier
	}
	minStart := tickarray.GetArrayStartIndex(tickmath.MinTick, tickSpacing)
	maxStart := tickarray.GetArrayStartIndex(tickmath.MaxTick, tickSpacing)
	if next < minStart || next > maxStart {
		return false, next, nil
	}
	b, err := e.bitmap(next, tickSpacing)
	if err != nil {
		return false, 0, err
	}
	found, start := NextInitializedTickArrayInBitmap(b, next, tickSpacing, zeroForOne)
	return found, start, nil
}

// NextInitializedTickArrayInBitmap searches b starting at next itself.
func NextInitializedTickArrayInBitmap(b *U512, next int32, tickSpacing uint16, zeroForOne bool) (bool, int32) {
	minBoundary, maxBoundary := GetBitmapTickBoundary(next, tickSpacing)
	offset := TickArrayOffsetInBitmap(next, tickSpacing)
	multiplier := tickarray.TickCount(tickSpacing)
	if zeroForOne {
		bit, ok := highestSetAtOrBelow(b[:], offset)
		if !ok {
			return false, minBoundary
		}
		return true, next - int32(offset-bit)*multiplier
	}
	bit, ok := lowestSetAtOrAbove(b[:], offset)
	if !ok {
		return false, maxBoundary - multiplier
	}
	return true, next + int32(bit-offset)*multiplier
}

func (e *Extension) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteBytes(ExtensionDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(e.PoolID[:], false); err != nil {
		return nil, err
	}
	for _, side := range []*[cons.ExtensionTickArrayBitmapSize]U512{&e.PositiveTickArrayBitmap, &e.NegativeTickArrayBitmap} {
		for i := range side {
			for _, w := range side[i] {
				if err := enc.WriteUint64(w, binary.LittleEndian); err != nil {
					return nil, err
				}
			}
		}
	}
	return buf.Bytes(), nil
}

func DecodeExtension(data []byte) (*Extension, error) {
	if len(data) != ExtensionLen {
		return nil, fmt.Errorf("bitmap extension account: want %d bytes, got %d", ExtensionLen, len(data))
	}
	if !bytes.Equal(data[:8], ExtensionDiscriminator[:]) {
		return nil, fmt.Errorf("bitmap extension account: bad discriminator")
	}
	dec := bin.NewBinDecoder(data[8:])
	key, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, err
	}
	e := NewExtension(solana.PublicKeyFromBytes(key))
	for _, side := range []*[cons.ExtensionTickArrayBitmapSize]U512{&e.PositiveTickArrayBitmap, &e.NegativeTickArrayBitmap} {
		for i := range side {
			for j := range side[i] {
				if side[i][j], err = dec.ReadUint64(binary.LittleEndian); err != nil {
					return nil, err
				}
			}
		}
	}
	return e, nil
}
