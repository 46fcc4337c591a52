/*

This file contains the capital allocator: the deploy waterfall that pushes
idle funds toward each strategy's target debt, and the pull waterfall that
recalls capital to cover withdrawals. Both waterfalls process strategies in
registration order. A deterministic order is simpler to audit than sorting by
shortfall, and the targets converge over repeated cycles regardless.

*/

package vault

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// DeployIdle runs the deploy waterfall as a standalone operation. The keeper
// invokes this after reconciling so that updated targets and fresh idle
// capital are rebalanced; deposits run the same waterfall internally.
// Calling it with no idle funds or no shortfalls is a no-op.
func (v *Vault) DeployIdle() error {
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()

	if err := v.deployIdle(); err != nil {
		return err
	}
	v.saveStrategySnapshot()
	return nil
}

// deployIdle pushes idle capital toward each active strategy's target debt,
// in registration order, until idle funds are exhausted or every strategy is
// at target. Each adapter deposit is booked immediately after it returns, so
// a failure mid-waterfall leaves every completed transfer recorded and the
// remainder idle. Caller must hold the mutating-entry guard.
func (v *Vault) deployIdle() error {
	// Total assets are invariant under deployment: capital only moves from
	// idle to debt. Compute the targets against one consistent figure.
	v.mu.RLock()
	totalAssets := v.idle.Add(v.totalDebt)
	count := len(v.records)
	v.mu.RUnlock()

	bpsDivisor := sdkmath.NewInt(maxBps)

	for i := 0; i < count; i++ {
		v.mu.RLock()
		rec := v.records[i]
		idle := v.idle
		v.mu.RUnlock()

		if idle.IsZero() {
			break
		}
		if !rec.Active || rec.TargetBps == 0 {
			continue
		}

		targetDebt := totalAssets.Mul(sdkmath.NewInt(rec.TargetBps)).Quo(bpsDivisor)
		if !targetDebt.GT(rec.RecordedDebt) {
			continue
		}

		shortfall := targetDebt.Sub(rec.RecordedDebt)
		if shortfall.GT(idle) {
			shortfall = idle
		}
		if !shortfall.IsPositive() {
			continue
		}

		name := rec.Strategy.Name()
		if err := rec.Strategy.Deposit(shortfall); err != nil {
			return fmt.Errorf("%w: deploy %s to %s: %w",
				ErrStrategyFailed, shortfall.String(), name, err)
		}

		v.mu.Lock()
		v.idle = v.idle.Sub(shortfall)
		rec.RecordedDebt = rec.RecordedDebt.Add(shortfall)
		v.totalDebt = v.totalDebt.Add(shortfall)
		v.mu.Unlock()

		v.logger.Info().
			Str("strategy", name).
			Str("deployed", shortfall.String()).
			Str("recordedDebt", rec.RecordedDebt.String()).
			Msg("Capital deployed to strategy")
	}

	return nil
}

// pullFromStrategies recalls capital from strategies, in registration order,
// until the needed amount is covered or every strategy is exhausted. Each
// strategy is asked for at most its recorded debt; whatever it actually
// returns is what reduces its debt and counts toward the shortfall. An
// under-delivering strategy is not an error here; the caller decides whether
// the combined result is sufficient. Caller must hold the mutating-entry guard.
func (v *Vault) pullFromStrategies(needed sdkmath.Int) error {
	withdrawn := sdkmath.ZeroInt()

	v.mu.RLock()
	count := len(v.records)
	v.mu.RUnlock()

	for i := 0; i < count; i++ {
		if !withdrawn.LT(needed) {
			break
		}

		v.mu.RLock()
		rec := v.records[i]
		v.mu.RUnlock()

		if !rec.Active || !rec.RecordedDebt.IsPositive() {
			continue
		}

		request := needed.Sub(withdrawn)
		if request.GT(rec.RecordedDebt) {
			request = rec.RecordedDebt
		}

		name := rec.Strategy.Name()
		actual, err := rec.Strategy.Withdraw(request)
		if err != nil {
			return fmt.Errorf("%w: pull %s from %s: %w",
				ErrStrategyFailed, request.String(), name, err)
		}
		if actual.IsNil() || actual.IsNegative() {
			return fmt.Errorf("%w: %s returned invalid amount", ErrStrategyFailed, name)
		}

		debtReduction := actual
		if debtReduction.GT(rec.RecordedDebt) {
			debtReduction = rec.RecordedDebt
		}

		v.mu.Lock()
		v.idle = v.idle.Add(actual)
		rec.RecordedDebt = rec.RecordedDebt.Sub(debtReduction)
		v.totalDebt = v.totalDebt.Sub(debtReduction)
		v.mu.Unlock()

		withdrawn = withdrawn.Add(actual)

		if actual.LT(request) {
			v.logger.Warn().
				Str("strategy", name).
				Str("requested", request.String()).
				Str("actual", actual.String()).
				Msg("Strategy under-delivered on pull")
		} else {
			v.logger.Info().
				Str("strategy", name).
				Str("pulled", actual.String()).
				Msg("Capital pulled from strategy")
		}
	}

	return nil
}
