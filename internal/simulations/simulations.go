/*

This file contains the simulation harness: an in-memory vault wired to
simulated strategies, driven through deposit, harvest, and withdrawal
sequences with the ledger invariants checked after every step. Run with
YVM_MODE=sim; nothing here touches the database or the network.

*/

package simulations

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-finance/yvm/internal/config"
	"github.com/solstice-finance/yvm/internal/keeper"
	"github.com/solstice-finance/yvm/internal/logger"
	"github.com/solstice-finance/yvm/internal/strategy"
	"github.com/solstice-finance/yvm/internal/vault"
)

const (
	simVaultAddress = "yvm1simvault"
	simAssetDenom   = "uusdc"
	simOperator     = "yvm1simoperator"
	simFeeRecipient = "yvm1simtreasury"
	simCycles       = 12
)

// Run drives a full simulated lifecycle: registration, deposits, harvest
// cycles with a profitable and a lossy strategy, a mid-run target update, a
// stressed withdrawal, and a final deregistration. Returns an error on the
// first invariant violation.
func Run() error {
	simLogger := logger.GetForComponent("simulation")
	simLogger.Info().Msg("--- Starting vault simulation ---")

	v, err := vault.New(vault.Config{
		VaultAddress:         simVaultAddress,
		AssetDenom:           simAssetDenom,
		Operator:             simOperator,
		FeeRecipient:         simFeeRecipient,
		PerformanceFeeBps:    config.DefaultPerformanceFeeBps,
		MaxPerformanceFeeBps: config.DefaultMaxPerformanceFeeBps,
	})
	if err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}

	steady, err := strategy.NewSimulated(strategy.SimulatedConfig{
		Name:        "sim-steady-yield",
		OwningVault: simVaultAddress,
		AssetDenom:  simAssetDenom,
		YieldBps:    40, // 0.4% per harvest
		APRBps:      900,
	})
	if err != nil {
		return fmt.Errorf("failed to create steady strategy: %w", err)
	}

	volatile, err := strategy.NewSimulated(strategy.SimulatedConfig{
		Name:               "sim-volatile-yield",
		OwningVault:        simVaultAddress,
		AssetDenom:         simAssetDenom,
		YieldBps:           -15, // lossy: -0.15% per harvest
		WithdrawHaircutBps: 50,
		APRBps:             2500,
	})
	if err != nil {
		return fmt.Errorf("failed to create volatile strategy: %w", err)
	}

	if err := v.RegisterStrategy(simOperator, steady, 5000); err != nil {
		return fmt.Errorf("failed to register steady strategy: %w", err)
	}
	if err := v.RegisterStrategy(simOperator, volatile, 3000); err != nil {
		return fmt.Errorf("failed to register volatile strategy: %w", err)
	}

	k, err := keeper.New(keeper.Config{
		Vault:    v,
		CronSpec: config.DefaultHarvestCronSpec, // never started; RunCycle is driven directly
	})
	if err != nil {
		return fmt.Errorf("failed to create keeper: %w", err)
	}

	if _, err := v.Deposit(sdkmath.NewInt(1_000_000_000)); err != nil {
		return fmt.Errorf("initial deposit failed: %w", err)
	}
	if err := checkInvariants(v); err != nil {
		return err
	}

	for cycle := 1; cycle <= simCycles; cycle++ {
		report := k.RunCycle()
		if len(report.FailedStrategies) > 0 {
			return fmt.Errorf("cycle %d had failed strategies: %v", cycle, report.FailedStrategies)
		}
		if err := checkInvariants(v); err != nil {
			return fmt.Errorf("after cycle %d: %w", cycle, err)
		}

		// Mid-run: shift allocation away from the lossy strategy. The move
		// takes effect lazily on the following deploy cycles.
		if cycle == simCycles/2 {
			if err := v.UpdateTarget(simOperator, "sim-volatile-yield", 1000); err != nil {
				return fmt.Errorf("target update failed: %w", err)
			}
		}
	}

	// Stressed withdrawal: more than idle, forcing the pull waterfall
	// through the haircutted strategy.
	half := v.TotalAssets().Quo(sdkmath.NewInt(2))
	if _, err := v.Withdraw(half); err != nil {
		return fmt.Errorf("stressed withdrawal failed: %w", err)
	}
	if err := checkInvariants(v); err != nil {
		return fmt.Errorf("after withdrawal: %w", err)
	}

	if err := v.DeregisterStrategy(simOperator, "sim-volatile-yield"); err != nil {
		return fmt.Errorf("deregistration failed: %w", err)
	}
	if err := checkInvariants(v); err != nil {
		return fmt.Errorf("after deregistration: %w", err)
	}

	summary := v.Summary()
	simLogger.Info().
		Str("totalAssets", summary.TotalAssets.String()).
		Str("idle", summary.IdleBalance.String()).
		Str("totalDebt", summary.TotalDebt.String()).
		Str("feesCollected", summary.FeesCollected.String()).
		Msg("--- Simulation completed, all invariants held ---")

	return nil
}

// checkInvariants validates the ledger's numeric invariants: debt
// conservation across records, non-negative balances, and the allocation
// bound.
func checkInvariants(v *vault.Vault) error {
	idle := v.AvailableCapital()
	totalDebt := v.TotalDebt()

	if idle.IsNegative() {
		return fmt.Errorf("invariant violated: idle balance %s is negative", idle)
	}
	if totalDebt.IsNegative() {
		return fmt.Errorf("invariant violated: total debt %s is negative", totalDebt)
	}

	debtSum := sdkmath.ZeroInt()
	var targetSum int64
	for _, info := range v.Strategies() {
		if info.RecordedDebt.IsNegative() {
			return fmt.Errorf("invariant violated: %s has negative debt %s", info.Name, info.RecordedDebt)
		}
		debtSum = debtSum.Add(info.RecordedDebt)
		if info.Active {
			targetSum += info.TargetBps
		}
	}

	if !debtSum.Equal(totalDebt) {
		return fmt.Errorf("invariant violated: record debt sum %s != total debt %s", debtSum, totalDebt)
	}
	if targetSum > 10000 {
		return fmt.Errorf("invariant violated: active target sum %d bps exceeds 10000", targetSum)
	}

	if !v.TotalAssets().Equal(idle.Add(totalDebt)) {
		return fmt.Errorf("invariant violated: total assets != idle + debt")
	}

	return nil
}
