// ./internal/state/strategy_store.go
package state

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/solstice-finance/yvm/internal/types"
)

// SaveStrategySnapshot upserts the full registry snapshot into the
// strategy_records mirror table.
func SaveStrategySnapshot(infos []types.StrategyInfo) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	stmt := `
		INSERT INTO strategy_records (strategy_name, target_bps, recorded_debt, last_reconciled_at, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (strategy_name) DO UPDATE SET
			target_bps = EXCLUDED.target_bps,
			recorded_debt = EXCLUDED.recorded_debt,
			last_reconciled_at = EXCLUDED.last_reconciled_at,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at;`

	now := time.Now()
	for _, info := range infos {
		var reconciledAt interface{}
		if !info.LastReconciledAt.IsZero() {
			reconciledAt = info.LastReconciledAt
		}
		_, err = tx.Exec(stmt, info.Name, info.TargetBps, info.RecordedDebt.String(), reconciledAt, info.Active, now)
		if err != nil {
			return fmt.Errorf("failed to upsert strategy record %s: %w", info.Name, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug().Int("strategies", len(infos)).Msg("Strategy snapshot saved")
	return nil
}

// GetStrategyRecords loads the persisted registry mirror.
func GetStrategyRecords() ([]types.StrategyInfo, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT strategy_name, target_bps, recorded_debt, last_reconciled_at, active
		FROM strategy_records
		ORDER BY strategy_name;`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy records: %w", err)
	}
	defer rows.Close()

	var infos []types.StrategyInfo
	for rows.Next() {
		var info types.StrategyInfo
		var debtStr string
		var reconciledAt *time.Time

		if err := rows.Scan(&info.Name, &info.TargetBps, &debtStr, &reconciledAt, &info.Active); err != nil {
			return nil, fmt.Errorf("failed to scan strategy record: %w", err)
		}

		debt, ok := sdkmath.NewIntFromString(debtStr)
		if !ok {
			return nil, fmt.Errorf("invalid recorded_debt %q for strategy %s", debtStr, info.Name)
		}
		info.RecordedDebt = debt
		if reconciledAt != nil {
			info.LastReconciledAt = *reconciledAt
		}

		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return infos, nil
}
