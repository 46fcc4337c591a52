package vault

import (
	sdkmath "cosmossdk.io/math"
)

// Strategy defines the capability surface a yield strategy must expose to the
// vault. The vault is the only caller of the capital-moving methods; the view
// methods are also used by the web layer for display.
//
// Strategies are untrusted: every figure they report is treated as a claim
// about their own holdings and can only ever reduce what the vault believes
// it is owed, never increase the vault's obligations to the strategy.
type Strategy interface {
	// Name returns a stable, unique identifier for the strategy. Registration
	// and reconciliation are keyed by this name.
	Name() string

	// OwningVault returns the address of the vault this strategy serves.
	// Checked against the vault's own address at registration.
	OwningVault() string

	// UnderlyingAsset returns the denom of the asset the strategy manages.
	// Must match the vault's underlying asset at registration.
	UnderlyingAsset() string

	// Deposit accepts the given amount of the underlying asset. The vault
	// assumes the full amount is accepted.
	Deposit(amount sdkmath.Int) error

	// Withdraw returns up to amount of the underlying asset to the vault.
	// The returned value is the amount actually received, which may be less
	// than requested (slippage, illiquidity).
	Withdraw(amount sdkmath.Int) (sdkmath.Int, error)

	// Harvest claims pending yield and returns the strategy's self-reported
	// realized profit. The return value is informational only; authoritative
	// accounting is driven by BalanceOf.
	Harvest() (sdkmath.Int, error)

	// BalanceOf reports the strategy's current total balance under
	// management. This is the authoritative input to reconciliation.
	BalanceOf() (sdkmath.Int, error)

	// EstimateAPR returns the strategy's estimated APR in basis points.
	// Informational only.
	EstimateAPR() (int64, error)
}
