package vault

import "errors"

// Error definitions for zero-tolerance error handling. Every precondition
// violation is rejected synchronously before any state mutation.
var (
	// ErrInvalidAllocation is returned when a target exceeds 10000 bps or the
	// registry sum of active targets would exceed 10000 bps.
	ErrInvalidAllocation = errors.New("allocation target is invalid")

	// ErrIdentityMismatch is returned when a strategy's reported owning vault
	// or underlying asset does not match this vault instance.
	ErrIdentityMismatch = errors.New("strategy identity mismatch")

	// ErrAlreadyActive is returned when registering a strategy that is
	// already registered and active.
	ErrAlreadyActive = errors.New("strategy is already active")

	// ErrNotActive is returned for operations on a strategy that is not
	// registered or has been deregistered.
	ErrNotActive = errors.New("strategy is not active")

	// ErrUnauthorized is returned when a privileged operation is attempted by
	// anyone other than the operator.
	ErrUnauthorized = errors.New("caller is not the vault operator")

	// ErrReentrantCall is returned when adapter code calls back into a
	// ledger-mutating entry point while its own invocation is still
	// executing. Callers on other goroutines queue instead.
	ErrReentrantCall = errors.New("reentrant vault call rejected")

	// ErrInsufficientLiquidity is returned when a withdrawal cannot be fully
	// covered by idle balance plus what the strategies actually returned.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity to honor withdrawal")

	// ErrInvalidAmount is returned for nil, zero, or negative amounts.
	ErrInvalidAmount = errors.New("amount is invalid")

	// ErrInvalidFee is returned when the performance fee exceeds the
	// configured maximum.
	ErrInvalidFee = errors.New("performance fee exceeds configured maximum")

	// ErrZeroIdentity is returned for empty operator, recipient, or strategy
	// identity strings.
	ErrZeroIdentity = errors.New("identity must not be empty")

	// ErrStrategyFailed wraps an adapter call that returned an error.
	ErrStrategyFailed = errors.New("strategy adapter call failed")
)
