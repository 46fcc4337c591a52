/*

This file contains the shared types for the vault ledger: per-strategy
snapshots, reconciliation events, and harvest cycle reports. These types are
what the state layer persists and the web layer serves.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// StrategyInfo is a read-only snapshot of a single strategy record.
type StrategyInfo struct {
	Name             string      `json:"name"`
	TargetBps        int64       `json:"target_bps"`
	RecordedDebt     sdkmath.Int `json:"recorded_debt"`
	LastReconciledAt time.Time   `json:"last_reconciled_at"`
	Active           bool        `json:"active"`
	EstimatedAPRBps  int64       `json:"estimated_apr_bps,omitempty"`
}

// ReconciliationEvent records the outcome of a single harvest reconciliation.
// Exactly one of Profit / Loss is nonzero, or both are zero.
type ReconciliationEvent struct {
	EventID    int64       `json:"event_id,omitempty"` // Auto-incremented by DB
	Strategy   string      `json:"strategy"`
	Profit     sdkmath.Int `json:"profit"`
	Loss       sdkmath.Int `json:"loss"`
	Fee        sdkmath.Int `json:"fee"`
	DebtBefore sdkmath.Int `json:"debt_before"`
	DebtAfter  sdkmath.Int `json:"debt_after"`
	Timestamp  time.Time   `json:"timestamp"`
}

// HarvestCycle is the report for one keeper cycle: every active strategy is
// reconciled, then idle capital is redeployed toward the allocation targets.
type HarvestCycle struct {
	CycleID           string                `json:"cycle_id"` // UUID for log tracing
	CycleNumber       int                   `json:"cycle_number"`
	Timestamp         time.Time             `json:"timestamp"`
	TotalAssetsBefore sdkmath.Int           `json:"total_assets_before"`
	TotalAssetsAfter  sdkmath.Int           `json:"total_assets_after"`
	IdleBefore        sdkmath.Int           `json:"idle_before"`
	IdleAfter         sdkmath.Int           `json:"idle_after"`
	Reconciliations   []ReconciliationEvent `json:"reconciliations"`
	Strategies        []StrategyInfo        `json:"strategies"`
	FailedStrategies  []string              `json:"failed_strategies,omitempty"`
}

// VaultSummary represents the high-level accounting view exposed upward.
type VaultSummary struct {
	VaultAddress  string      `json:"vault_address"`
	AssetDenom    string      `json:"asset_denom"`
	TotalAssets   sdkmath.Int `json:"total_assets"`
	IdleBalance   sdkmath.Int `json:"idle_balance"`
	TotalDebt     sdkmath.Int `json:"total_debt"`
	TotalShares   sdkmath.Int `json:"total_shares"`
	FeesCollected sdkmath.Int `json:"fees_collected"`
	FeeBps        int64       `json:"fee_bps"`
	FeeRecipient  string      `json:"fee_recipient"`
	ActiveCount   int         `json:"active_strategy_count"`
	LastUpdated   time.Time   `json:"last_updated"`
}
