// ./internal/state/reconciliation_store.go
package state

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/solstice-finance/yvm/internal/types"
)

// SaveReconciliation persists a single reconciliation event.
func SaveReconciliation(ev types.ReconciliationEvent) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO reconciliation_events (
			strategy_name, profit, loss, fee, debt_before, debt_after, event_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING event_id;`

	var eventID int64
	err := DB.QueryRow(
		query,
		ev.Strategy, ev.Profit.String(), ev.Loss.String(), ev.Fee.String(),
		ev.DebtBefore.String(), ev.DebtAfter.String(), ev.Timestamp,
	).Scan(&eventID)

	if err != nil {
		return 0, fmt.Errorf("failed to save reconciliation event: %w", err)
	}

	log.Debug().
		Int64("event_id", eventID).
		Str("strategy", ev.Strategy).
		Msg("Reconciliation event saved")
	return eventID, nil
}

// GetRecentReconciliations retrieves recent reconciliation events,
// newest first.
func GetRecentReconciliations(limit int) ([]types.ReconciliationEvent, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 20 // Default limit
	}

	query := `
		SELECT event_id, strategy_name, profit, loss, fee, debt_before, debt_after, event_timestamp
		FROM reconciliation_events
		ORDER BY event_timestamp DESC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliation events: %w", err)
	}
	defer rows.Close()

	var events []types.ReconciliationEvent
	for rows.Next() {
		var ev types.ReconciliationEvent
		var profit, loss, fee, before, after string
		var ts time.Time

		if err := rows.Scan(&ev.EventID, &ev.Strategy, &profit, &loss, &fee, &before, &after, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation event: %w", err)
		}

		if ev.Profit, err = parseIntField(profit, "profit"); err != nil {
			return nil, err
		}
		if ev.Loss, err = parseIntField(loss, "loss"); err != nil {
			return nil, err
		}
		if ev.Fee, err = parseIntField(fee, "fee"); err != nil {
			return nil, err
		}
		if ev.DebtBefore, err = parseIntField(before, "debt_before"); err != nil {
			return nil, err
		}
		if ev.DebtAfter, err = parseIntField(after, "debt_after"); err != nil {
			return nil, err
		}
		ev.Timestamp = ts

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func parseIntField(value string, column string) (sdkmath.Int, error) {
	parsed, ok := sdkmath.NewIntFromString(value)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("invalid %s value %q", column, value)
	}
	return parsed, nil
}
