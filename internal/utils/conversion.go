/*
This file contains utility functions for converting between base-unit SDK
integers and human display values, with explicit precision handling.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// ToDisplay converts a base-unit amount to a float64 display value.
// An amount of 1500000 with precision 6 becomes 1.5.
func ToDisplay(amount sdkmath.Int, precision int) (float64, error) {
	if precision < 0 || precision > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	dec := sdkmath.LegacyNewDecFromInt(amount)
	factor := sdkmath.LegacyNewDec(10).Power(uint64(precision))

	result, err := dec.Quo(factor).Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}

	return result, nil
}

// FromDisplay converts a float64 display value to a base-unit amount,
// rounding at the asset's precision.
func FromDisplay(amount float64, precision int) (sdkmath.Int, error) {
	if precision < 0 || precision > 18 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if amount == 0 {
		return sdkmath.ZeroInt(), nil
	}

	// String round-trip avoids binary floating point artifacts.
	dec, err := sdkmath.LegacyNewDecFromStr(fmt.Sprintf(fmt.Sprintf("%%.%df", precision), amount))
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	factor := sdkmath.LegacyNewDec(10).Power(uint64(precision))
	result := dec.Mul(factor).TruncateInt()
	if result.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}

	return result, nil
}
