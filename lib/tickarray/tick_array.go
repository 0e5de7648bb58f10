package tickarray

import (
	"fmt"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"
	"github.com/ftchann/clmm-simulator/lib/tickmath"

	"github.com/gagliardetto/solana-go"
)

// TickArray holds TickArraySize consecutive ticks spaced by the pool tick spacing.
type TickArray struct {
	PoolID               solana.PublicKey
	StartTickIndex       int32
	Ticks                [cons.TickArraySize]TickState
	InitializedTickCount uint8
	RecentEpoch          uint64
	Padding              [arrayPaddingLen]byte
}

func NewTickArray(poolID solana.PublicKey, startIndex int32, tickSpacing uint16, recentEpoch uint64) (*TickArray, error) {
	if !CheckIsValidStartIndex(startIndex, tickSpacing) {
		return nil, fmt.Errorf("tick array start %d: %w", startIndex, errcode.ErrInvalidTickIndex)
	}
	t := &TickArray{
		PoolID:         poolID,
		StartTickIndex: startIndex,
		RecentEpoch:    recentEpoch,
	}
	for i := range t.Ticks {
		t.Ticks[i] = NewTickState(0)
	}
	return t, nil
}

func (t *TickArray) Clone() *TickArray {
	c := *t
	for i := range t.Ticks {
		c.Ticks[i] = t.Ticks[i].Clone()
	}
	return &c
}

// GetTickState returns the tick slot for tick, which must belong to this array.
func (t *TickArray) GetTickState(tick int32, tickSpacing uint16) (*TickState, error) {
	offset, err := t.tickOffset(tick, tickSpacing)
	if err != nil {
		return nil, err
	}
	return &t.Ticks[offset], nil
}

func (t *TickArray) tickOffset(tick int32, tickSpacing uint16) (int, error) {
	if start := GetArrayStartIndex(tick, tickSpacing); start != t.StartTickIndex {
		return 0, fmt.Errorf("tick %d belongs to array %d, not %d: %w", tick, start, t.StartTickIndex, errcode.ErrInvalidTickArray)
	}
	return int((tick - t.StartTickIndex) / int32(tickSpacing)), nil
}

func (t *TickArray) UpdateInitializedTickCount(add bool) {
	if add {
		t.InitializedTickCount++
	} else {
		t.InitializedTickCount--
	}
}

// FirstInitializedTick returns the first initialized tick walking in the swap direction.
func (t *TickArray) FirstInitializedTick(zeroForOne bool) (*TickState, error) {
	if zeroForOne {
		for i := cons.TickArraySize - 1; i >= 0; i-- {
			if t.Ticks[i].IsInitialized() {
				return &t.Ticks[i], nil
			}
		}
	} else {
		for i := 0; i < cons.TickArraySize; i++ {
			if t.Ticks[i].IsInitialized() {
				return &t.Ticks[i], nil
			}
		}
	}
	return nil, errcode.ErrInvalidTickArray
}

func TickCount(tickSpacing uint16) int32 {
	return cons.TickArraySize * int32(tickSpacing)
}

// GetArrayStartIndex rounds tick down to the start of its tick array.
func GetArrayStartIndex(tick int32, tickSpacing uint16) int32 {
	ticksInArray := TickCount(tickSpacing)
	start := tick / ticksInArray
	if tick < 0 && tick%ticksInArray != 0 {
		start--
	}
	return start * ticksInArray
}

func CheckIsValidStartIndex(start int32, tickSpacing uint16) bool {
	if CheckIsOutOfBoundary(start) {
		if start > tickmath.MaxTick {
			return false
		}
		return start == GetArrayStartIndex(tickmath.MinTick, tickSpacing)
	}
	return start%TickCount(tickSpacing) == 0
}

// CheckTickArrayStartIndex validates tick and that arrayStart is the array containing it.
func CheckTickArrayStartIndex(arrayStart, tick int32, tickSpacing uint16) error {
	if tick < tickmath.MinTick {
		return errcode.ErrTickLowerOverflow
	}
	if tick > tickmath.MaxTick {
		return errcode.ErrTickUpperOverflow
	}
	if tick%int32(tickSpacing) != 0 {
		return errcode.ErrTickAndSpacingNotMatch
	}
	if expect := GetArrayStartIndex(tick, tickSpacing); arrayStart != expect {
		return fmt.Errorf("tick %d expects array %d, got %d: %w", tick, expect, arrayStart, errcode.ErrInvalidTickArray)
	}
	return nil
}
