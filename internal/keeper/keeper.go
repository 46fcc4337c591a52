package keeper

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/solstice-finance/yvm/internal/logger"
	"github.com/solstice-finance/yvm/internal/state"
	"github.com/solstice-finance/yvm/internal/types"
	"github.com/solstice-finance/yvm/internal/vault"
)

// Keeper drives periodic harvest cycles: each cycle reconciles every active
// strategy and then redeploys idle capital toward the allocation targets.
// Scheduling is cron-based so operators can align harvests with reward
// epochs.
type Keeper struct {
	vault    *vault.Vault
	cron     *cron.Cron
	cronSpec string
	persist  bool
	logger   zerolog.Logger
}

// Config holds the configuration for creating a new Keeper instance.
type Config struct {
	Vault    *vault.Vault
	CronSpec string

	// Persist controls whether cycle reports go to the database. Disabled in
	// simulation mode.
	Persist bool
}

// New creates a harvest keeper with validation.
func New(cfg Config) (*Keeper, error) {
	if cfg.Vault == nil {
		return nil, fmt.Errorf("vault cannot be nil")
	}
	if cfg.CronSpec == "" {
		return nil, fmt.Errorf("cron spec cannot be empty")
	}
	if _, err := cron.ParseStandard(cfg.CronSpec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", cfg.CronSpec, err)
	}

	return &Keeper{
		vault:    cfg.Vault,
		cron:     cron.New(),
		cronSpec: cfg.CronSpec,
		persist:  cfg.Persist,
		logger:   logger.GetForComponent("harvest_keeper"),
	}, nil
}

// Start schedules harvest cycles and begins the cron loop. The first cycle
// runs immediately rather than waiting for the first cron tick.
func (k *Keeper) Start() error {
	if _, err := k.cron.AddFunc(k.cronSpec, func() { k.RunCycle() }); err != nil {
		return fmt.Errorf("failed to schedule harvest cycle: %w", err)
	}

	k.logger.Info().Str("cron", k.cronSpec).Msg("Starting harvest keeper")
	k.RunCycle()
	k.cron.Start()
	return nil
}

// Stop halts the cron loop. A cycle already in flight runs to completion.
func (k *Keeper) Stop() {
	ctx := k.cron.Stop()
	<-ctx.Done()
	k.logger.Info().Msg("Harvest keeper stopped")
}

// RunCycle executes one complete harvest cycle and returns its report.
func (k *Keeper) RunCycle() types.HarvestCycle {
	cycleStartTime := time.Now()

	// Unique cycle ID for tracing logs across the entire cycle.
	cycleID := uuid.New().String()
	cycleLogger := k.logger.With().Str("cycle_id", cycleID).Logger()

	cycleLogger.Info().Msg("--- Starting Harvest Cycle ---")

	cycle := types.HarvestCycle{
		CycleID:           cycleID,
		CycleNumber:       k.nextCycleNumber(),
		Timestamp:         cycleStartTime,
		TotalAssetsBefore: k.vault.TotalAssets(),
		IdleBefore:        k.vault.AvailableCapital(),
		Reconciliations:   make([]types.ReconciliationEvent, 0),
	}

	// Reconcile every active strategy in registration order. A failing
	// strategy does not abort the cycle; it is reported and skipped so one
	// broken adapter cannot starve the rest of the vault.
	for _, info := range k.vault.Strategies() {
		if !info.Active {
			continue
		}
		ev, err := k.vault.Reconcile(info.Name)
		if err != nil {
			cycleLogger.Error().Err(err).Str("strategy", info.Name).Msg("Reconciliation failed")
			cycle.FailedStrategies = append(cycle.FailedStrategies, info.Name)
			continue
		}
		cycle.Reconciliations = append(cycle.Reconciliations, ev)
	}

	// Redeploy idle capital toward targets; this also applies any lazily
	// pending target updates.
	if err := k.vault.DeployIdle(); err != nil {
		cycleLogger.Error().Err(err).Msg("Deploy waterfall incomplete")
	}

	cycle.TotalAssetsAfter = k.vault.TotalAssets()
	cycle.IdleAfter = k.vault.AvailableCapital()
	cycle.Strategies = k.vault.Strategies()

	if k.persist {
		if err := state.SaveHarvestCycle(cycle); err != nil {
			cycleLogger.Error().Err(err).Msg("Failed to save harvest cycle report")
		}
	}

	cycleLogger.Info().
		Int("cycleNumber", cycle.CycleNumber).
		Int("reconciled", len(cycle.Reconciliations)).
		Int("failed", len(cycle.FailedStrategies)).
		Str("totalAssets", cycle.TotalAssetsAfter.String()).
		Str("idle", cycle.IdleAfter.String()).
		Str("cycleDuration", time.Since(cycleStartTime).String()).
		Msg("--- Harvest Cycle Completed ---")

	return cycle
}

// nextCycleNumber increments and returns the persistent cycle counter.
func (k *Keeper) nextCycleNumber() int {
	if !k.persist {
		return 0
	}
	cycleNumber, err := state.IncrementCycleNumber()
	if err != nil {
		k.logger.Error().Err(err).Msg("Failed to increment cycle number, using fallback")
		// Fallback to a timestamp-derived counter if the database fails.
		return int(time.Now().Unix() % 1000000)
	}
	return cycleNumber
}
