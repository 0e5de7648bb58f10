package bitmap

import (
	"fmt"
	"testing"

	"github.com/ftchann/clmm-simulator/lib/errcode"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitSearch(t *testing.T) {
	var b U1024
	for _, i := range []int{3, 64, 700, 1023} {
		b.Flip(i)
	}
	tests := []struct {
		pos     int
		below   int
		belowOK bool
		above   int
		aboveOK bool
	}{
		{0, 0, false, 3, true},
		{3, 3, true, 3, true},
		{63, 3, true, 64, true},
		{65, 64, true, 700, true},
		{1023, 1023, true, 1023, true},
		{1022, 700, true, 1023, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.pos), func(t *testing.T) {
			got, ok := highestSetAtOrBelow(b[:], tt.pos)
			if ok != tt.belowOK || (ok && got != tt.below) {
				t.Fatalf("below: want=%v,%v result=%v,%v", tt.below, tt.belowOK, got, ok)
			}
			got, ok = lowestSetAtOrAbove(b[:], tt.pos)
			if ok != tt.aboveOK || (ok && got != tt.above) {
				t.Fatalf("above: want=%v,%v result=%v,%v", tt.above, tt.aboveOK, got, ok)
			}
		})
	}
	_, ok := lowestSetAtOrAbove(b[:], 1024)
	assert.False(t, ok)
}

func TestFlipTwiceRestores(t *testing.T) {
	var b U1024
	b.Flip(17)
	before := b
	for _, i := range []int{0, 17, 511, 512, 1023} {
		b.Flip(i)
		b.Flip(i)
	}
	assert.Equal(t, before, b)

	ext := NewExtension(solana.PublicKey{})
	ext.NegativeTickArrayBitmap[3].Flip(9)
	extBefore := *ext
	for _, start := range []int32{307200, 307800, -307800, 443400, -444000} {
		require.NoError(t, ext.FlipTickArrayBit(start, 10))
		require.NoError(t, ext.FlipTickArrayBit(start, 10))
	}
	assert.Equal(t, extBefore, *ext)
}

func TestDefaultSearch(t *testing.T) {
	var b U1024
	b.Flip(510) // -1200
	b.Flip(513) // 600

	tests := []struct {
		last       int32
		zeroForOne bool
		found      bool
		want       int32
	}{
		{0, true, true, -1200},
		{0, false, true, 600},
		{-600, true, true, -1200},
		{600, false, false, 306600},
		{-1200, true, false, -307200},
		{-307200, true, false, -307200},
		{306600, false, false, 306600},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.last, tt.zeroForOne), func(t *testing.T) {
			found, got := NextInitializedTickArrayStartIndex(&b, tt.last, 10, tt.zeroForOne)
			if found != tt.found || got != tt.want {
				t.Fatalf("want=%v,%v result=%v,%v", tt.found, tt.want, found, got)
			}
		})
	}
}

func TestCheckCurrentTickArrayIsInitialized(t *testing.T) {
	var b U1024
	b.Flip(511)
	ok, start, err := CheckCurrentTickArrayIsInitialized(&b, -1, 10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(-600), start)

	ok, start, err = CheckCurrentTickArrayIsInitialized(&b, 600, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(600), start)

	_, _, err = CheckCurrentTickArrayIsInitialized(&b, 500000, 10)
	assert.ErrorIs(t, err, errcode.ErrInvalidTickIndex)
}

func TestExtensionAddressing(t *testing.T) {
	tests := []struct {
		start   int32
		spacing uint16
		bitmap  int
		offset  int
	}{
		{307200, 10, 0, 0},
		{307800, 10, 0, 1},
		{443400, 10, 0, 227},
		{-307800, 10, 0, 511},
		{-444000, 10, 0, 284},
		{61440, 1, 1, 0},
		{-61440, 1, 0, 0},
		{-61500, 1, 1, 511},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.start, tt.spacing), func(t *testing.T) {
			got, err := GetBitmapOffset(tt.start, tt.spacing)
			require.NoError(t, err)
			assert.Equal(t, tt.bitmap, got)
			assert.Equal(t, tt.offset, TickArrayOffsetInBitmap(tt.start, tt.spacing))
		})
	}

	_, err := GetBitmapOffset(-307200, 10)
	assert.ErrorIs(t, err, errcode.ErrInvalidTickArrayBoundary)
	_, err = GetBitmapOffset(-307801, 10)
	assert.ErrorIs(t, err, errcode.ErrInvalidTickIndex)
	// wide spacings fit entirely in the default bitmap
	assert.ErrorIs(t, CheckExtensionBoundary(-2000000, 60), errcode.ErrInvalidTickArrayBoundary)
}

func TestGetBitmapTickBoundary(t *testing.T) {
	lo, hi := GetBitmapTickBoundary(-307800, 10)
	assert.Equal(t, int32(-614400), lo)
	assert.Equal(t, int32(-307200), hi)
	lo, hi = GetBitmapTickBoundary(307800, 10)
	assert.Equal(t, int32(307200), lo)
	assert.Equal(t, int32(614400), hi)
}

func TestExtensionSearch(t *testing.T) {
	ext := NewExtension(solana.PublicKey{})

	found, got, err := ext.NextInitializedTickArrayFromOneBitmap(-307200, 10, true)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int32(-614400), got)

	found, got, err = ext.NextInitializedTickArrayFromOneBitmap(got, 10, true)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int32(-615000), got)

	require.NoError(t, ext.FlipTickArrayBit(-444000, 10))
	found, got, err = ext.NextInitializedTickArrayFromOneBitmap(-307200, 10, true)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int32(-444000), got)

	require.NoError(t, ext.FlipTickArrayBit(-307800, 10))
	found, got, err = ext.NextInitializedTickArrayFromOneBitmap(-307200, 10, true)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int32(-307800), got)

	require.NoError(t, ext.FlipTickArrayBit(400200, 10))
	found, got, err = ext.NextInitializedTickArrayFromOneBitmap(306600, 10, false)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int32(400200), got)

	ok, _, err := ext.CheckTickArrayIsInitialized(400200, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExtensionCodec(t *testing.T) {
	ext := NewExtension(solana.NewWallet().PublicKey())
	require.NoError(t, ext.FlipTickArrayBit(-307800, 10))
	require.NoError(t, ext.FlipTickArrayBit(443400, 10))

	data, err := ext.Encode()
	require.NoError(t, err)
	require.Len(t, data, ExtensionLen)
	assert.Equal(t, 1832, ExtensionLen)

	got, err := DecodeExtension(data)
	require.NoError(t, err)
	assert.Equal(t, *ext, *got)
}
