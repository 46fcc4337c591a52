// ./internal/state/recorder.go
package state

import (
	"github.com/solstice-finance/yvm/internal/types"
)

// Recorder adapts the state package to the vault's Recorder interface so the
// ledger can persist events without importing database concerns.
type Recorder struct{}

// NewRecorder returns a recorder backed by the global database pool.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SaveReconciliation persists a reconciliation event.
func (r *Recorder) SaveReconciliation(ev types.ReconciliationEvent) error {
	_, err := SaveReconciliation(ev)
	return err
}

// SaveStrategySnapshot persists the registry mirror.
func (r *Recorder) SaveStrategySnapshot(infos []types.StrategyInfo) error {
	return SaveStrategySnapshot(infos)
}
