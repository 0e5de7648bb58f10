package bitmap

import (
	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	"github.com/ftchann/clmm-simulator/lib/tickarray"
)

// MaxTickInTickarrayBitmap is the tick distance from zero covered by one side of a bitmap.
func MaxTickInTickarrayBitmap(tickSpacing uint16) int32 {
	return tickarray.TickCount(tickSpacing) * cons.TickArrayBitmapSize
}

// GetBitmapTickBoundary returns the [min, max) tick range of the 512 bit bitmap holding start.
func GetBitmapTickBoundary(start int32, tickSpacing uint16) (int32, int32) {
	ticksInOneBitmap := MaxTickInTickarrayBitmap(tickSpacing)
	abs := absI32(start)
	m := abs / ticksInOneBitmap
	if start < 0 && abs%ticksInOneBitmap != 0 {
		m++
	}
	minValue := ticksInOneBitmap * m
	if start < 0 {
		return -minValue, -minValue + ticksInOneBitmap
	}
	return minValue, minValue + ticksInOneBitmap
}

func compressedPosition(start int32, tickSpacing uint16) int {
	multiplier := tickarray.TickCount(tickSpacing)
	compressed := start/multiplier + cons.TickArrayBitmapSize
	if start < 0 && start%multiplier != 0 {
		compressed--
	}
	return int(compressed)
}

// CheckCurrentTickArrayIsInitialized reports whether the array holding tickCurrent has its bit set
// and returns that array's start index.
func CheckCurrentTickArrayIsInitialized(b *U1024, tickCurrent int32, tickSpacing uint16) (bool, int32, error) {
	if tickarray.CheckIsOutOfBoundary(tickCurrent) {
		return false, 0, errcode.ErrInvalidTickIndex
	}
	pos := compressedPosition(tickCurrent, tickSpacing)
	start := int32(pos-cons.TickArrayBitmapSize) * tickarray.TickCount(tickSpacing)
	return b.Bit(pos), start, nil
}

// NextInitializedTickArrayStartIndex searches the default bitmap for the next initialized array
// strictly after last in the swap direction. When nothing is found it returns false and the
// boundary where the search stopped.
func NextInitializedTickArrayStartIndex(b *U1024, last int32, tickSpacing uint16, zeroForOne bool) (bool, int32) {
	tickBoundary := MaxTickInTickarrayBitmap(tickSpacing)
	multiplier := tickarray.TickCount(tickSpacing)

	next := last + multiplier
	if zeroForOne {
		next = last - multiplier
	}
	if next < -tickBoundary || next >= tickBoundary {
		return false, last
	}

	pos := compressedPosition(next, tickSpacing)
	if zeroForOne {
		bit, ok := highestSetAtOrBelow(b[:], pos)
		if !ok {
			return false, -tickBoundary
		}
		return true, int32(bit-cons.TickArrayBitmapSize) * multiplier
	}
	bit, ok := lowestSetAtOrAbove(b[:], pos)
	if !ok {
		return false, tickBoundary - multiplier
	}
	return true, int32(bit-cons.TickArrayBitmapSize) * multiplier
}

func absI32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
