// ./internal/state/cycle_store.go
package state

import (
	"encoding/json"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/solstice-finance/yvm/internal/types"
)

// SaveHarvestCycle saves a complete harvest cycle report to the database.
func SaveHarvestCycle(cycle types.HarvestCycle) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	reconciliationsJSON, err := json.Marshal(cycle.Reconciliations)
	if err != nil {
		return fmt.Errorf("failed to marshal reconciliations: %w", err)
	}

	strategiesJSON, err := json.Marshal(cycle.Strategies)
	if err != nil {
		return fmt.Errorf("failed to marshal strategies: %w", err)
	}

	query := `
		INSERT INTO harvest_cycles (
			cycle_id, cycle_number, cycle_timestamp,
			total_assets_before, total_assets_after, idle_before, idle_after,
			reconciliations, strategies, failed_strategies
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	_, err = DB.Exec(
		query,
		cycle.CycleID, cycle.CycleNumber, cycle.Timestamp,
		cycle.TotalAssetsBefore.String(), cycle.TotalAssetsAfter.String(),
		cycle.IdleBefore.String(), cycle.IdleAfter.String(),
		reconciliationsJSON, strategiesJSON, pq.Array(cycle.FailedStrategies),
	)
	if err != nil {
		return fmt.Errorf("failed to save harvest cycle: %w", err)
	}

	log.Info().
		Str("cycle_id", cycle.CycleID).
		Int("cycle_number", cycle.CycleNumber).
		Msg("Harvest cycle saved to database")
	return nil
}

// GetRecentHarvestCycles retrieves recent harvest cycle reports, newest first.
func GetRecentHarvestCycles(limit int) ([]types.HarvestCycle, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT cycle_id, cycle_number, cycle_timestamp,
			total_assets_before, total_assets_after, idle_before, idle_after,
			reconciliations, strategies, failed_strategies
		FROM harvest_cycles
		ORDER BY cycle_timestamp DESC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query harvest cycles: %w", err)
	}
	defer rows.Close()

	var cycles []types.HarvestCycle
	for rows.Next() {
		cycle, err := scanHarvestCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return cycles, nil
}

// GetHarvestCycle retrieves one harvest cycle by its UUID.
func GetHarvestCycle(cycleID string) (*types.HarvestCycle, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT cycle_id, cycle_number, cycle_timestamp,
			total_assets_before, total_assets_after, idle_before, idle_after,
			reconciliations, strategies, failed_strategies
		FROM harvest_cycles
		WHERE cycle_id = $1;`

	rows, err := DB.Query(query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query harvest cycle %s: %w", cycleID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("row iteration error: %w", err)
		}
		return nil, fmt.Errorf("harvest cycle %s not found", cycleID)
	}

	cycle, err := scanHarvestCycle(rows)
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHarvestCycle(row rowScanner) (types.HarvestCycle, error) {
	var cycle types.HarvestCycle
	var assetsBefore, assetsAfter, idleBefore, idleAfter string
	var reconciliationsJSON, strategiesJSON []byte
	var ts time.Time

	err := row.Scan(
		&cycle.CycleID, &cycle.CycleNumber, &ts,
		&assetsBefore, &assetsAfter, &idleBefore, &idleAfter,
		&reconciliationsJSON, &strategiesJSON, pq.Array(&cycle.FailedStrategies),
	)
	if err != nil {
		return types.HarvestCycle{}, fmt.Errorf("failed to scan harvest cycle: %w", err)
	}
	cycle.Timestamp = ts

	for _, field := range []struct {
		value string
		dest  *sdkmath.Int
	}{
		{assetsBefore, &cycle.TotalAssetsBefore},
		{assetsAfter, &cycle.TotalAssetsAfter},
		{idleBefore, &cycle.IdleBefore},
		{idleAfter, &cycle.IdleAfter},
	} {
		parsed, ok := sdkmath.NewIntFromString(field.value)
		if !ok {
			return types.HarvestCycle{}, fmt.Errorf("invalid numeric value %q in harvest cycle", field.value)
		}
		*field.dest = parsed
	}

	if len(reconciliationsJSON) > 0 {
		if err := json.Unmarshal(reconciliationsJSON, &cycle.Reconciliations); err != nil {
			return types.HarvestCycle{}, fmt.Errorf("failed to unmarshal reconciliations: %w", err)
		}
	}
	if len(strategiesJSON) > 0 {
		if err := json.Unmarshal(strategiesJSON, &cycle.Strategies); err != nil {
			return types.HarvestCycle{}, fmt.Errorf("failed to unmarshal strategies: %w", err)
		}
	}

	return cycle, nil
}
