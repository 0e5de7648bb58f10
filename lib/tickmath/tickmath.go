package tickmath

import (
	"math/big"

	cons "github.com/ftchann/clmm-simulator/lib/constants"
	"github.com/ftchann/clmm-simulator/lib/errcode"

	ui "github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

const (
	MinTick int32 = -443636 // The minimum tick that can be used on any pool.
	MaxTick int32 = -MinTick

	// iterations of the log2 refinement in GetTickAtSqrtPrice
	bitPrecision = 16
)

var (
	MinSqrtPriceX64 = uint128.From64(4295048016) // The sqrt price at MinTick.
	maxbigprice, _  = new(big.Int).SetString("79226673521066979257578248091", 10)
	MaxSqrtPriceX64 = uint128.FromBig(maxbigprice) // The sqrt price at MaxTick.
)

// sqrt(1.0001)^-(2^i) as Q64.64, for i = 1..18
var tickFactors = [...]uint64{
	0xfff97272373d4000,
	0xfff2e50f5f657000,
	0xffe5caca7e10f000,
	0xffcb9843d60f7000,
	0xff973b41fa98e800,
	0xff2ea16466c9b000,
	0xfe5dee046a9a3800,
	0xfcbe86c7900bb000,
	0xf987a7253ac65800,
	0xf3392b0822bb6000,
	0xe7159475a2caf000,
	0xd097f3bdfd2f2000,
	0xa9f746462d9f8000,
	0x70d869a156f31c00,
	0x31be135f97ed3200,
	0x9aa508b5b85a500,
	0x5d6af8dedc582c,
	0x2216e584f5fa,
}

// GetSqrtPriceAtTick
// Returns the sqrt price as a Q64.64 for the given tick. The sqrt price is computed as sqrt(1.0001)^tick
func GetSqrtPriceAtTick(tick int32) (uint128.Uint128, error) {
	absTick := tick
	if tick < 0 {
		absTick = -tick
	}
	if absTick > MaxTick {
		return uint128.Zero, errcode.ErrTickUpperOverflow
	}

	var ratio *ui.Int
	if absTick&0x1 != 0 {
		ratio = ui.NewInt(0xfffcb933bd6fb800)
	} else {
		ratio = cons.Q64.Clone()
	}
	for i, factor := range tickFactors {
		if absTick&(int32(2)<<i) != 0 {
			ratio.Mul(ratio, ui.NewInt(factor))
			ratio.Rsh(ratio, 64)
		}
	}
	if tick > 0 {
		ratio = new(ui.Int).Div(cons.MaxUint128, ratio)
	}
	return uint128.New(ratio[0], ratio[1]), nil
}

// GetTickAtSqrtPrice returns the greatest tick whose sqrt price is at most sqrtPriceX64.
func GetTickAtSqrtPrice(sqrtPriceX64 uint128.Uint128) (int32, error) {
	if sqrtPriceX64.Cmp(MinSqrtPriceX64) < 0 || sqrtPriceX64.Cmp(MaxSqrtPriceX64) > 0 {
		return 0, errcode.ErrSqrtPriceX64
	}
	if sqrtPriceX64.Equals(MaxSqrtPriceX64) {
		return MaxTick, nil
	}

	msb := sqrtPriceX64.Len() - 1
	log2pIntegerX32 := int64(msb-64) << 32

	var r uint64
	if msb >= 64 {
		r = sqrtPriceX64.Rsh(uint(msb - 63)).Lo
	} else {
		r = sqrtPriceX64.Lsh(uint(63 - msb)).Lo
	}

	// r is a Q1.63 in [1, 2); squaring it and checking for >= 2 yields one fraction bit per round
	var log2pFractionX64 uint64
	bit := uint64(1) << 63
	for precision := 0; precision < bitPrecision; precision++ {
		sq := new(ui.Int).Mul(ui.NewInt(r), ui.NewInt(r))
		more := sq[1] >> 63
		r = sq.Rsh(sq, uint(63+more)).Uint64()
		if more != 0 {
			log2pFractionX64 |= bit
		}
		bit >>= 1
	}
	log2pX32 := log2pIntegerX32 + int64(log2pFractionX64>>32)

	// change of base, multiplied by 2^16 / log2(sqrt(1.0001))
	logSqrt10001X64 := new(ui.Int).Mul(signed(log2pX32), ui.NewInt(59543866431248))

	low := new(ui.Int).Sub(logSqrt10001X64, ui.NewInt(184467440737095516))
	tickLow := int32(int64(low.SRsh(low, 64).Uint64()))
	high := new(ui.Int).Add(logSqrt10001X64, ui.NewInt(15793534762490258745))
	tickHigh := int32(int64(high.SRsh(high, 64).Uint64()))

	if tickLow == tickHigh || tickHigh > MaxTick {
		return tickLow, nil
	}
	sqrtPrice, err := GetSqrtPriceAtTick(tickHigh)
	if err != nil {
		return 0, err
	}
	if sqrtPrice.Cmp(sqrtPriceX64) <= 0 {
		return tickHigh, nil
	}
	return tickLow, nil
}

// signed encodes v as a two's complement 256 bit integer.
func signed(v int64) *ui.Int {
	if v >= 0 {
		return ui.NewInt(uint64(v))
	}
	return new(ui.Int).Neg(ui.NewInt(uint64(-v)))
}

// CheckTickBoundary validates a position range against the global tick limits.
func CheckTickBoundary(tickLower, tickUpper int32) error {
	if tickLower >= tickUpper {
		return errcode.ErrTickInvalidOrder
	}
	if tickLower < MinTick {
		return errcode.ErrTickLowerOverflow
	}
	if tickUpper > MaxTick {
		return errcode.ErrTickUpperOverflow
	}
	return nil
}
