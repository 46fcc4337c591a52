package utils

import (
	"math"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDisplay(t *testing.T) {
	t.Run("SixDecimals", func(t *testing.T) {
		d, err := ToDisplay(sdkmath.NewInt(1_500_000), 6)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, d, 1e-12)
	})

	t.Run("ZeroPrecision", func(t *testing.T) {
		d, err := ToDisplay(sdkmath.NewInt(42), 0)
		require.NoError(t, err)
		assert.InDelta(t, 42.0, d, 1e-12)
	})

	t.Run("Zero", func(t *testing.T) {
		d, err := ToDisplay(sdkmath.ZeroInt(), 6)
		require.NoError(t, err)
		assert.Zero(t, d)
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := ToDisplay(sdkmath.NewInt(1), -1)
		assert.ErrorIs(t, err, ErrInvalidPrecision)

		_, err = ToDisplay(sdkmath.NewInt(1), 19)
		assert.ErrorIs(t, err, ErrInvalidPrecision)

		_, err = ToDisplay(sdkmath.Int{}, 6)
		assert.ErrorIs(t, err, ErrAmountNil)

		_, err = ToDisplay(sdkmath.NewInt(-5), 6)
		assert.ErrorIs(t, err, ErrAmountNegative)
	})
}

func TestFromDisplay(t *testing.T) {
	t.Run("SixDecimals", func(t *testing.T) {
		amount, err := FromDisplay(1.5, 6)
		require.NoError(t, err)
		assert.Equal(t, "1500000", amount.String())
	})

	t.Run("RoundsAtPrecision", func(t *testing.T) {
		amount, err := FromDisplay(0.1234567, 6)
		require.NoError(t, err)
		assert.Equal(t, "123457", amount.String(), "%.6f rounds the seventh decimal")
	})

	t.Run("Zero", func(t *testing.T) {
		amount, err := FromDisplay(0, 6)
		require.NoError(t, err)
		assert.True(t, amount.IsZero())
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := FromDisplay(1, 19)
		assert.ErrorIs(t, err, ErrInvalidPrecision)

		_, err = FromDisplay(math.NaN(), 6)
		assert.ErrorIs(t, err, ErrNotFinite)

		_, err = FromDisplay(math.Inf(1), 6)
		assert.ErrorIs(t, err, ErrNotFinite)

		_, err = FromDisplay(-1.0, 6)
		assert.ErrorIs(t, err, ErrAmountNegative)
	})
}

func TestRoundTrip(t *testing.T) {
	original := sdkmath.NewInt(123_456_789)
	d, err := ToDisplay(original, 6)
	require.NoError(t, err)
	back, err := FromDisplay(d, 6)
	require.NoError(t, err)
	assert.Equal(t, original.String(), back.String())
}
