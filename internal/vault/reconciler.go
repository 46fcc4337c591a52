/*

This file contains the harvest reconciler: it turns a strategy's self-reported
balance into a profit or loss against recorded debt, deducts the performance
fee from profit, and updates the strategy's record and the vault's aggregate
debt figure.

Reconciliation is permissionless. It only ever moves capital from a strategy
to the vault or to the fee recipient, never the reverse, and only by amounts
the strategy itself reports, so it cannot be used to drain the vault.

*/

package vault

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-finance/yvm/internal/types"
)

// Reconcile harvests the named strategy and reconciles its reported balance
// against its recorded debt. Profit above recorded debt is recognized and
// charged the performance fee; a reported balance below recorded debt is
// absorbed as a loss, reducing total assets and the share price.
func (v *Vault) Reconcile(name string) (types.ReconciliationEvent, error) {
	if err := v.begin(); err != nil {
		return types.ReconciliationEvent{}, err
	}
	defer v.end()

	v.mu.RLock()
	rec, ok := v.index[name]
	if !ok || !rec.Active {
		v.mu.RUnlock()
		return types.ReconciliationEvent{}, fmt.Errorf("%w: %s", ErrNotActive, name)
	}
	oldDebt := rec.RecordedDebt
	feeBps := v.feeBps
	feeRecipient := v.feeRecipient
	v.mu.RUnlock()

	// Step 1: harvest. The self-reported realized profit is informational
	// only; accounting is driven entirely by the balance query below.
	reportedProfit, err := rec.Strategy.Harvest()
	if err != nil {
		return types.ReconciliationEvent{}, fmt.Errorf("%w: harvest %s: %w", ErrStrategyFailed, name, err)
	}
	if reportedProfit.IsNil() {
		reportedProfit = sdkmath.ZeroInt()
	}

	// Step 2: authoritative balance.
	newDebt, err := rec.Strategy.BalanceOf()
	if err != nil {
		return types.ReconciliationEvent{}, fmt.Errorf("%w: balance query %s: %w", ErrStrategyFailed, name, err)
	}
	if newDebt.IsNil() || newDebt.IsNegative() {
		return types.ReconciliationEvent{}, fmt.Errorf("%w: %s reported invalid balance", ErrStrategyFailed, name)
	}

	// Step 3: classify the delta.
	profit := sdkmath.ZeroInt()
	loss := sdkmath.ZeroInt()
	if newDebt.GT(oldDebt) {
		profit = newDebt.Sub(oldDebt)
	} else if newDebt.LT(oldDebt) {
		loss = oldDebt.Sub(newDebt)
	}

	fee := sdkmath.ZeroInt()
	if profit.IsPositive() && feeBps > 0 {
		fee = profit.Mul(sdkmath.NewInt(feeBps)).Quo(sdkmath.NewInt(maxBps))
		if fee.IsPositive() {
			actual, err := rec.Strategy.Withdraw(fee)
			if err != nil {
				return types.ReconciliationEvent{}, fmt.Errorf("%w: fee pull from %s: %w", ErrStrategyFailed, name, err)
			}
			if actual.IsNil() || actual.IsNegative() {
				return types.ReconciliationEvent{}, fmt.Errorf("%w: %s returned invalid fee amount", ErrStrategyFailed, name)
			}
			// The fee capital has left the strategy; book what actually
			// came out, even if it is less than the computed fee.
			fee = actual
			newDebt = newDebt.Sub(fee)
			if newDebt.IsNegative() {
				newDebt = sdkmath.ZeroInt()
			}
		}
	}

	// Step 4: commit the new debt figure.
	v.mu.Lock()
	rec.RecordedDebt = newDebt
	v.totalDebt = v.totalDebt.Add(newDebt).Sub(oldDebt)
	rec.LastReconciledAt = v.now()
	if fee.IsPositive() {
		v.feesCollected = v.feesCollected.Add(fee)
	}
	ev := types.ReconciliationEvent{
		Strategy:   name,
		Profit:     profit,
		Loss:       loss,
		Fee:        fee,
		DebtBefore: oldDebt,
		DebtAfter:  newDebt,
		Timestamp:  rec.LastReconciledAt,
	}
	v.mu.Unlock()

	v.logger.Info().
		Str("strategy", name).
		Str("reportedProfit", reportedProfit.String()).
		Str("profit", profit.String()).
		Str("loss", loss.String()).
		Str("fee", fee.String()).
		Str("recordedDebt", newDebt.String()).
		Msg("Strategy reconciled")

	if fee.IsPositive() {
		v.logger.Info().
			Str("fee", fee.String()).
			Str("recipient", feeRecipient).
			Msg("Performance fee transferred to recipient")
	}

	// Step 5: emit the reconciliation event.
	if v.recorder != nil {
		if err := v.recorder.SaveReconciliation(ev); err != nil {
			v.logger.Error().Err(err).Msg("Failed to persist reconciliation event")
		}
	}
	v.saveStrategySnapshot()

	return ev, nil
}
