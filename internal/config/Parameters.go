/*

This file contains the default vault parameters for the YVM.

These defaults are conservative: a modest performance fee well below the hard
cap, and an hourly harvest schedule. They are used when the corresponding
environment variables are not meaningful in simulation mode.

*/

package config

const (
	// DefaultPerformanceFeeBps is 2% of recognized profit.
	DefaultPerformanceFeeBps = int64(200)

	// DefaultMaxPerformanceFeeBps caps the operator-settable fee at 20%.
	// The cap exists so that a compromised or careless operator cannot
	// redirect most of the yield to the fee recipient.
	DefaultMaxPerformanceFeeBps = int64(2000)

	// DefaultHarvestCronSpec reconciles every active strategy once an hour.
	DefaultHarvestCronSpec = "0 * * * *"

	// DefaultAssetPrecision matches the six-decimal stablecoins the vault is
	// expected to hold.
	DefaultAssetPrecision = 6
)
