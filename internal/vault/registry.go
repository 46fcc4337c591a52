/*

This file contains the allocation registry: one record per registered
strategy, holding its allocation target in basis points, its recorded debt,
and its active flag. The registry invariant is that the sum of active targets
never exceeds 10000 bps, checked on every mutation.

*/

package vault

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-finance/yvm/internal/types"
)

// StrategyRecord is the ledger's view of one registered strategy.
// RecordedDebt is updated only by the allocator (on deploy and pull) and the
// reconciler (on harvest), never refreshed from strategy queries elsewhere.
type StrategyRecord struct {
	Strategy         Strategy
	TargetBps        int64
	RecordedDebt     sdkmath.Int
	LastReconciledAt time.Time
	Active           bool
}

// RegisterStrategy inserts a zero-debt record for the strategy at the end of
// the registration order. The strategy's self-reported owning vault and
// underlying asset must match this instance, and the registry sum invariant
// must still hold after insertion. Operator only.
func (v *Vault) RegisterStrategy(caller string, strat Strategy, targetBps int64) error {
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()

	if err := v.requireOperator(caller); err != nil {
		return err
	}
	if strat == nil {
		return fmt.Errorf("%w: strategy is nil", ErrZeroIdentity)
	}
	name := strat.Name()
	if name == "" {
		return fmt.Errorf("%w: strategy name", ErrZeroIdentity)
	}
	if targetBps < 0 || targetBps > maxBps {
		return fmt.Errorf("%w: target %d bps", ErrInvalidAllocation, targetBps)
	}
	if strat.OwningVault() != v.address {
		return fmt.Errorf("%w: strategy reports vault %q, expected %q",
			ErrIdentityMismatch, strat.OwningVault(), v.address)
	}
	if strat.UnderlyingAsset() != v.asset {
		return fmt.Errorf("%w: strategy reports asset %q, expected %q",
			ErrIdentityMismatch, strat.UnderlyingAsset(), v.asset)
	}

	v.mu.Lock()
	if existing, ok := v.index[name]; ok && existing.Active {
		v.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyActive, name)
	}
	if sum := v.activeTargetSum() + targetBps; sum > maxBps {
		v.mu.Unlock()
		return fmt.Errorf("%w: registry sum would reach %d bps", ErrInvalidAllocation, sum)
	}

	rec := &StrategyRecord{
		Strategy:     strat,
		TargetBps:    targetBps,
		RecordedDebt: sdkmath.ZeroInt(),
		Active:       true,
	}
	v.records = append(v.records, rec)
	v.index[name] = rec
	v.mu.Unlock()

	v.logger.Info().
		Str("strategy", name).
		Int64("targetBps", targetBps).
		Msg("Strategy registered")

	v.saveStrategySnapshot()
	return nil
}

// UpdateTarget changes a strategy's allocation target. The registry sum is
// recomputed with the old target removed and the new one added. No capital
// moves here; rebalancing toward the new target happens lazily on the next
// deploy or pull cycle. Operator only.
func (v *Vault) UpdateTarget(caller string, name string, newBps int64) error {
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()

	if err := v.requireOperator(caller); err != nil {
		return err
	}
	if newBps < 0 || newBps > maxBps {
		return fmt.Errorf("%w: target %d bps", ErrInvalidAllocation, newBps)
	}

	v.mu.Lock()
	rec, ok := v.index[name]
	if !ok || !rec.Active {
		v.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotActive, name)
	}
	if sum := v.activeTargetSum() - rec.TargetBps + newBps; sum > maxBps {
		v.mu.Unlock()
		return fmt.Errorf("%w: registry sum would reach %d bps", ErrInvalidAllocation, sum)
	}
	oldBps := rec.TargetBps
	rec.TargetBps = newBps
	v.mu.Unlock()

	v.logger.Info().
		Str("strategy", name).
		Int64("oldBps", oldBps).
		Int64("newBps", newBps).
		Msg("Allocation target updated")

	v.saveStrategySnapshot()
	return nil
}

// DeregisterStrategy pulls the strategy's full recorded debt back to idle,
// then zeroes and deactivates its record. If the strategy returns less than
// its recorded debt, the vault accepts what was returned and writes the
// remainder off as a loss; the operation is not retried and not reverted.
// Operator only.
func (v *Vault) DeregisterStrategy(caller string, name string) error {
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()

	if err := v.requireOperator(caller); err != nil {
		return err
	}

	v.mu.RLock()
	rec, ok := v.index[name]
	if !ok || !rec.Active {
		v.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrNotActive, name)
	}
	debt := rec.RecordedDebt
	v.mu.RUnlock()

	returned := sdkmath.ZeroInt()
	if debt.IsPositive() {
		var err error
		returned, err = rec.Strategy.Withdraw(debt)
		if err != nil {
			return fmt.Errorf("%w: full pull from %s: %w", ErrStrategyFailed, name, err)
		}
		if returned.IsNil() || returned.IsNegative() {
			return fmt.Errorf("%w: %s returned invalid amount", ErrStrategyFailed, name)
		}
	}

	v.mu.Lock()
	writeOff := debt.Sub(returned)
	if writeOff.IsNegative() {
		writeOff = sdkmath.ZeroInt()
	}
	v.idle = v.idle.Add(returned)
	v.totalDebt = v.totalDebt.Sub(debt)
	rec.RecordedDebt = sdkmath.ZeroInt()
	rec.TargetBps = 0
	rec.Active = false
	v.mu.Unlock()

	v.logger.Info().
		Str("strategy", name).
		Str("pulled", returned.String()).
		Str("writeOff", writeOff.String()).
		Msg("Strategy deregistered")

	v.saveStrategySnapshot()
	return nil
}

// Strategies returns snapshots of every record, active and inactive, in
// registration order.
func (v *Vault) Strategies() []types.StrategyInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	infos := make([]types.StrategyInfo, 0, len(v.records))
	for _, rec := range v.records {
		infos = append(infos, types.StrategyInfo{
			Name:             rec.Strategy.Name(),
			TargetBps:        rec.TargetBps,
			RecordedDebt:     rec.RecordedDebt,
			LastReconciledAt: rec.LastReconciledAt,
			Active:           rec.Active,
		})
	}
	return infos
}

// StrategyAPR returns the named strategy's advertised APR in basis points.
// The adapter query runs outside the ledger lock; this is a display value
// and never feeds accounting.
func (v *Vault) StrategyAPR(name string) (int64, error) {
	v.mu.RLock()
	rec, ok := v.index[name]
	if !ok || !rec.Active {
		v.mu.RUnlock()
		return 0, fmt.Errorf("%w: %s", ErrNotActive, name)
	}
	strat := rec.Strategy
	v.mu.RUnlock()
	return strat.EstimateAPR()
}

// activeTargetSum returns the sum of targets across active records.
// Caller must hold v.mu.
func (v *Vault) activeTargetSum() int64 {
	var sum int64
	for _, rec := range v.records {
		if rec.Active {
			sum += rec.TargetBps
		}
	}
	return sum
}
