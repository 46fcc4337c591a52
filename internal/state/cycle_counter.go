/*

This file manages the persistent global harvest cycle counter.
The counter is stored in the database to ensure continuity across restarts.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetCurrentCycleNumber retrieves the current cycle number from the database
func GetCurrentCycleNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `SELECT current_cycle FROM cycle_counter WHERE id = 1;`

	var currentCycle int
	row := DB.QueryRow(query)
	err := row.Scan(&currentCycle)

	if err != nil {
		if err == sql.ErrNoRows {
			// EnsureSchema inserts the initial row; missing means schema was
			// never applied.
			log.Warn().Msg("No cycle counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current cycle number: %w", err)
	}

	log.Debug().Int("currentCycle", currentCycle).Msg("Retrieved current cycle number")
	return currentCycle, nil
}

// IncrementCycleNumber increments the cycle counter and returns the new value
func IncrementCycleNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	updateQuery := `
		UPDATE cycle_counter
		SET current_cycle = current_cycle + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_cycle;`

	var newCycle int
	row := DB.QueryRow(updateQuery)
	err := row.Scan(&newCycle)

	if err != nil {
		return 0, fmt.Errorf("failed to increment cycle number: %w", err)
	}

	log.Info().Int("newCycle", newCycle).Msg("Incremented cycle counter")
	return newCycle, nil
}
