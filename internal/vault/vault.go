/*

This file contains the vault ledger: the single owned state struct that tracks
idle balance, aggregate deployed debt, the share ledger, and the fee
configuration, together with the depositor-facing entry points.

The ledger executes under a single-writer model. Every mutating entry point
serializes on an entry lock, so at most one mutating operation is in flight
and concurrent callers wait their turn; a nested call arriving from adapter
code on the owning goroutine is rejected instead of deadlocking. Read-only
views are serialized against the writer with a short-held mutex. Mutable
ledger state is never left partially updated across a strategy adapter call
unless that call is the last step before the function returns.

*/

package vault

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/solstice-finance/yvm/internal/logger"
	"github.com/solstice-finance/yvm/internal/types"
)

const maxBps = int64(10000)

// Recorder receives ledger events for persistence. Implementations must not
// call back into the vault; recording failures are logged, never propagated.
type Recorder interface {
	SaveReconciliation(ev types.ReconciliationEvent) error
	SaveStrategySnapshot(infos []types.StrategyInfo) error
}

// Config holds the parameters for creating a new Vault instance.
type Config struct {
	VaultAddress         string
	AssetDenom           string
	Operator             string
	FeeRecipient         string
	PerformanceFeeBps    int64
	MaxPerformanceFeeBps int64

	// Recorder is optional; a nil recorder disables event persistence.
	Recorder Recorder

	// Clock is optional and defaults to time.Now. Injected by tests.
	Clock func() time.Time
}

// Vault is the ledger and capital-allocation engine for one vault instance.
// It owns the allocation registry and all scalar accounting state; strategies
// never read or write vault-side state directly.
type Vault struct {
	address string
	asset   string

	// entryMu serializes mutating entry points across goroutines. The keeper
	// cycle and HTTP-triggered reconciliations share the instance; whichever
	// arrives second waits here for the in-flight operation to finish.
	entryMu sync.Mutex

	// owner holds the goroutine id of the in-flight mutating operation, zero
	// when none. A mutating call that observes its own id is a nested
	// callback from untrusted adapter code and is rejected; blocking it on
	// entryMu would deadlock the goroutine against itself.
	owner atomic.Uint64

	// mu serializes read-only views against the single writer. It is held
	// only for short bookkeeping sections, never across an adapter call.
	mu sync.RWMutex

	operator     string
	feeRecipient string
	feeBps       int64
	maxFeeBps    int64

	idle          sdkmath.Int
	totalDebt     sdkmath.Int
	totalShares   sdkmath.Int
	feesCollected sdkmath.Int

	// records holds strategy records in registration order; the waterfalls
	// iterate this slice for a deterministic, auditable ordering.
	records []*StrategyRecord
	index   map[string]*StrategyRecord

	recorder Recorder
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a vault ledger with comprehensive validation of its parameters.
func New(cfg Config) (*Vault, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("vault configuration validation failed: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	v := &Vault{
		address:       cfg.VaultAddress,
		asset:         cfg.AssetDenom,
		operator:      cfg.Operator,
		feeRecipient:  cfg.FeeRecipient,
		feeBps:        cfg.PerformanceFeeBps,
		maxFeeBps:     cfg.MaxPerformanceFeeBps,
		idle:          sdkmath.ZeroInt(),
		totalDebt:     sdkmath.ZeroInt(),
		totalShares:   sdkmath.ZeroInt(),
		feesCollected: sdkmath.ZeroInt(),
		index:         make(map[string]*StrategyRecord),
		recorder:      cfg.Recorder,
		now:           clock,
		logger:        logger.GetForComponent("vault_ledger"),
	}

	v.logger.Info().
		Str("vault", v.address).
		Str("asset", v.asset).
		Int64("feeBps", v.feeBps).
		Int64("maxFeeBps", v.maxFeeBps).
		Msg("Vault ledger initialized")

	return v, nil
}

func validateConfig(cfg Config) error {
	if cfg.VaultAddress == "" {
		return fmt.Errorf("%w: vault address", ErrZeroIdentity)
	}
	if cfg.AssetDenom == "" {
		return fmt.Errorf("%w: asset denom", ErrZeroIdentity)
	}
	if cfg.Operator == "" {
		return fmt.Errorf("%w: operator", ErrZeroIdentity)
	}
	if cfg.FeeRecipient == "" {
		return fmt.Errorf("%w: fee recipient", ErrZeroIdentity)
	}
	if cfg.MaxPerformanceFeeBps < 0 || cfg.MaxPerformanceFeeBps > maxBps {
		return fmt.Errorf("%w: max fee %d bps", ErrInvalidFee, cfg.MaxPerformanceFeeBps)
	}
	if cfg.PerformanceFeeBps < 0 || cfg.PerformanceFeeBps > cfg.MaxPerformanceFeeBps {
		return fmt.Errorf("%w: fee %d bps with max %d bps", ErrInvalidFee,
			cfg.PerformanceFeeBps, cfg.MaxPerformanceFeeBps)
	}
	return nil
}

// begin takes the mutating-entry guard. A nested call from adapter code is
// rejected with ErrReentrantCall; a call from another goroutine blocks until
// the in-flight operation completes.
func (v *Vault) begin() error {
	gid := goroutineID()
	if v.owner.Load() == gid {
		return ErrReentrantCall
	}
	v.entryMu.Lock()
	v.owner.Store(gid)
	return nil
}

func (v *Vault) end() {
	v.owner.Store(0)
	v.entryMu.Unlock()
}

// goroutineID parses the calling goroutine's numeric id from the runtime
// stack header ("goroutine 123 [running]:"). The runtime exposes no direct
// accessor, and the header format has been stable across releases.
func goroutineID() uint64 {
	var buf [64]byte
	header := buf[:runtime.Stack(buf[:], false)]
	header = bytes.TrimPrefix(header, []byte("goroutine "))
	if i := bytes.IndexByte(header, ' '); i > 0 {
		if id, err := strconv.ParseUint(string(header[:i]), 10, 64); err == nil {
			return id
		}
	}
	return 0
}

func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() {
		return fmt.Errorf("%w: nil", ErrInvalidAmount)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}
	return nil
}

// Deposit credits assets to the vault, mints proportional shares, and then
// runs the deploy waterfall to push the new idle capital toward the
// allocation targets. The deposit itself commits even if deployment stops on
// a failing adapter; undeployed funds simply remain idle.
func (v *Vault) Deposit(amount sdkmath.Int) (sdkmath.Int, error) {
	if err := v.begin(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer v.end()

	if err := validateAmount(amount); err != nil {
		return sdkmath.ZeroInt(), err
	}

	v.mu.Lock()
	totalAssets := v.idle.Add(v.totalDebt)
	var shares sdkmath.Int
	if v.totalShares.IsZero() || totalAssets.IsZero() {
		shares = amount
	} else {
		shares = amount.Mul(v.totalShares).Quo(totalAssets)
	}
	if shares.IsZero() {
		// Dust below one share at the current price would credit the pool
		// without minting anything for the depositor.
		v.mu.Unlock()
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s mints zero shares", ErrInvalidAmount, amount.String())
	}
	v.idle = v.idle.Add(amount)
	v.totalShares = v.totalShares.Add(shares)
	v.mu.Unlock()

	v.logger.Info().
		Str("amount", amount.String()).
		Str("shares", shares.String()).
		Msg("Deposit credited, running deploy waterfall")

	if err := v.deployIdle(); err != nil {
		v.logger.Warn().Err(err).Msg("Deposit accepted but deployment incomplete; funds remain idle")
	}

	v.saveStrategySnapshot()
	return shares, nil
}

// Withdraw pays out assets, pulling from strategies when the idle balance is
// insufficient. The payout is all-or-nothing: if idle plus everything the
// strategies actually returned still falls short of the request, the
// withdrawal fails and nothing is paid out. Capital pulled before the failure
// stays in the vault as idle balance.
func (v *Vault) Withdraw(amount sdkmath.Int) (sdkmath.Int, error) {
	if err := v.begin(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer v.end()

	if err := validateAmount(amount); err != nil {
		return sdkmath.ZeroInt(), err
	}

	v.mu.RLock()
	idle := v.idle
	totalAssets := v.idle.Add(v.totalDebt)
	v.mu.RUnlock()

	// Reject requests beyond total assets before touching any strategy.
	if amount.GT(totalAssets) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: requested %s, total assets %s",
			ErrInsufficientLiquidity, amount.String(), totalAssets.String())
	}

	if amount.GT(idle) {
		needed := amount.Sub(idle)
		if err := v.pullFromStrategies(needed); err != nil {
			return sdkmath.ZeroInt(), err
		}
	}

	v.mu.Lock()
	if amount.GT(v.idle) {
		// Strategies under-delivered; the shortfall has already been
		// absorbed into reduced debt. Fail without paying out.
		shortfall := amount.Sub(v.idle)
		v.mu.Unlock()
		return sdkmath.ZeroInt(), fmt.Errorf("%w: short %s after pulling from strategies",
			ErrInsufficientLiquidity, shortfall.String())
	}

	totalAssets = v.idle.Add(v.totalDebt)
	burned := amount.Mul(v.totalShares).Add(totalAssets.SubRaw(1)).Quo(totalAssets)
	if burned.GT(v.totalShares) {
		burned = v.totalShares
	}
	v.totalShares = v.totalShares.Sub(burned)
	v.idle = v.idle.Sub(amount)
	v.mu.Unlock()

	v.logger.Info().
		Str("amount", amount.String()).
		Str("sharesBurned", burned.String()).
		Msg("Withdrawal paid out")

	v.saveStrategySnapshot()
	return burned, nil
}

// TotalAssets returns idle balance plus total deployed debt. This is the
// single source of truth for share pricing; it is never computed any other
// way.
func (v *Vault) TotalAssets() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.idle.Add(v.totalDebt)
}

// AvailableCapital returns the idle balance held directly by the vault.
func (v *Vault) AvailableCapital() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.idle
}

// TotalDebt returns the aggregate recorded debt across all strategies.
func (v *Vault) TotalDebt() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalDebt
}

// TotalShares returns the outstanding share supply.
func (v *Vault) TotalShares() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalShares
}

// FeesCollected returns the cumulative performance fees sent to the fee
// recipient.
func (v *Vault) FeesCollected() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.feesCollected
}

// Summary returns the aggregate accounting view for the web layer.
func (v *Vault) Summary() types.VaultSummary {
	v.mu.RLock()
	defer v.mu.RUnlock()

	active := 0
	for _, rec := range v.records {
		if rec.Active {
			active++
		}
	}

	return types.VaultSummary{
		VaultAddress:  v.address,
		AssetDenom:    v.asset,
		TotalAssets:   v.idle.Add(v.totalDebt),
		IdleBalance:   v.idle,
		TotalDebt:     v.totalDebt,
		TotalShares:   v.totalShares,
		FeesCollected: v.feesCollected,
		FeeBps:        v.feeBps,
		FeeRecipient:  v.feeRecipient,
		ActiveCount:   active,
		LastUpdated:   v.now(),
	}
}

// SetPerformanceFee updates the performance fee rate, bounded by the
// configured maximum. Operator only.
func (v *Vault) SetPerformanceFee(caller string, feeBps int64) error {
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()

	if err := v.requireOperator(caller); err != nil {
		return err
	}
	if feeBps < 0 || feeBps > v.maxFeeBps {
		return fmt.Errorf("%w: %d bps with max %d bps", ErrInvalidFee, feeBps, v.maxFeeBps)
	}

	v.mu.Lock()
	v.feeBps = feeBps
	v.mu.Unlock()

	v.logger.Info().Int64("feeBps", feeBps).Msg("Performance fee updated")
	return nil
}

// SetFeeRecipient updates the performance fee recipient. Operator only.
func (v *Vault) SetFeeRecipient(caller string, recipient string) error {
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()

	if err := v.requireOperator(caller); err != nil {
		return err
	}
	if recipient == "" {
		return fmt.Errorf("%w: fee recipient", ErrZeroIdentity)
	}

	v.mu.Lock()
	v.feeRecipient = recipient
	v.mu.Unlock()

	v.logger.Info().Str("recipient", recipient).Msg("Fee recipient updated")
	return nil
}

// SetOperator hands the privileged operator role to a new identity. The role
// is a plain identity check per call, so it can be swapped to a multisig or
// timelocked identity without touching ledger logic.
func (v *Vault) SetOperator(caller string, operator string) error {
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()

	if err := v.requireOperator(caller); err != nil {
		return err
	}
	if operator == "" {
		return fmt.Errorf("%w: operator", ErrZeroIdentity)
	}

	v.mu.Lock()
	v.operator = operator
	v.mu.Unlock()

	v.logger.Info().Str("operator", operator).Msg("Operator updated")
	return nil
}

func (v *Vault) requireOperator(caller string) error {
	if caller == "" {
		return fmt.Errorf("%w: caller", ErrZeroIdentity)
	}
	if caller != v.operator {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return nil
}

// saveStrategySnapshot pushes the current registry state to the recorder.
// Recording failures are logged and never fail the enclosing operation.
func (v *Vault) saveStrategySnapshot() {
	if v.recorder == nil {
		return
	}
	if err := v.recorder.SaveStrategySnapshot(v.Strategies()); err != nil {
		v.logger.Error().Err(err).Msg("Failed to persist strategy snapshot")
	}
}
