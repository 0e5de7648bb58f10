// Package errcode holds the numbered errors returned by pool operations.
package errcode

import (
	"errors"
	"fmt"
)

type Error struct {
	Code uint32
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("error %d: %s", e.Code, e.Msg)
}

func newError(code uint32, msg string) *Error {
	return &Error{code, msg}
}

var (
	ErrLock                                   = newError(6000, "LOK")
	ErrNotApproved                            = newError(6001, "not approved")
	ErrClosePosition                          = newError(6004, "remove liquitity before close position")
	ErrZeroMintAmount                         = newError(6005, "minting amount should be greater than 0")
	ErrInvalidTickIndex                       = newError(6006, "tick out of range")
	ErrTickInvalidOrder                       = newError(6007, "the lower tick must be below the upper tick")
	ErrTickLowerOverflow                      = newError(6008, "the tick must be greater, or equal to the minimum tick")
	ErrTickUpperOverflow                      = newError(6009, "the tick must be lesser than, or equal to the maximum tick")
	ErrTickAndSpacingNotMatch                 = newError(6010, "tick % tick_spacing must be zero")
	ErrInvalidTickArray                       = newError(6011, "invalid tick array account")
	ErrInvalidTickArrayBoundary               = newError(6012, "invalid tick array boundary")
	ErrSqrtPriceX64                           = newError(6014, "sqrt_price_x64 out of range")
	ErrLiquiditySubValue                      = newError(6015, "liquidity sub delta L must be smaller than before")
	ErrLiquidityAddValue                      = newError(6016, "liquidity add delta L must be greater, or equal to before")
	ErrInvalidLiquidity                       = newError(6017, "invalid liquidity when update position")
	ErrForbidBothZeroForSupplyLiquidity       = newError(6018, "both token amount must not be zero while supply liquidity")
	ErrPriceSlippageCheck                     = newError(6021, "price slippage check")
	ErrInvalidRewardIndex                     = newError(6029, "invalid reward index")
	ErrFullRewardInfo                         = newError(6030, "the init reward token reach to the max")
	ErrRewardTokenAlreadyInUse                = newError(6031, "the init reward token already in use")
	ErrExceptRewardMint                       = newError(6032, "the reward token is not in whitelist")
	ErrInvalidRewardInitParam                 = newError(6033, "invalid reward init param")
	ErrInvalidRewardDesiredAmount             = newError(6034, "invalid collect reward desired amount")
	ErrInvalidRewardPeriod                    = newError(6036, "invalid reward period")
	ErrNotApproveUpdateRewardEmissiones       = newError(6037, "modification of emissiones is allowed within 72 hours from the end of the previous cycle")
	ErrUnInitializedRewardInfo                = newError(6038, "uninitialized reward info")
	ErrMissingTickArrayBitmapExtensionAccount = newError(6040, "missing tickarray bitmap extension account")
	ErrInsufficientLiquidityForDirection      = newError(6041, "insufficient liquidity for this direction")
	ErrMaxTokenOverflow                       = newError(6042, "max token overflow")
	ErrMathOverflow                           = newError(6043, "calculate overflow")
	ErrInsufficientFunds                      = newError(6044, "insufficient token account balance")
)

var arithmetic = []*Error{ErrMathOverflow, ErrMaxTokenOverflow, ErrLiquidityAddValue, ErrLiquiditySubValue}

// IsArithmetic reports whether err is an overflow or underflow in pool math.
// Such failures abort the whole operation.
func IsArithmetic(err error) bool {
	for _, e := range arithmetic {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// CodeOf extracts the numeric code of err, if any.
func CodeOf(err error) (uint32, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
