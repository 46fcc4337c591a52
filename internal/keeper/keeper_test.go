package keeper

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solstice-finance/yvm/internal/strategy"
	"github.com/solstice-finance/yvm/internal/vault"
)

const (
	testVault    = "yvm1testvault"
	testAsset    = "uusdc"
	testOperator = "yvm1operator"
)

func newTestSetup(t *testing.T) (*vault.Vault, *Keeper) {
	t.Helper()
	v, err := vault.New(vault.Config{
		VaultAddress:         testVault,
		AssetDenom:           testAsset,
		Operator:             testOperator,
		FeeRecipient:         "yvm1feesink",
		PerformanceFeeBps:    200,
		MaxPerformanceFeeBps: 2000,
	})
	require.NoError(t, err)

	k, err := New(Config{Vault: v, CronSpec: "0 * * * *", Persist: false})
	require.NoError(t, err)
	return v, k
}

func newKeeperSim(t *testing.T, v *vault.Vault, name string, targetBps, yieldBps int64) *strategy.Simulated {
	t.Helper()
	s, err := strategy.NewSimulated(strategy.SimulatedConfig{
		Name:        name,
		OwningVault: testVault,
		AssetDenom:  testAsset,
		YieldBps:    yieldBps,
	})
	require.NoError(t, err)
	require.NoError(t, v.RegisterStrategy(testOperator, s, targetBps))
	return s
}

func TestNewKeeperValidation(t *testing.T) {
	v, _ := newTestSetup(t)

	_, err := New(Config{Vault: nil, CronSpec: "0 * * * *"})
	assert.Error(t, err)

	_, err = New(Config{Vault: v, CronSpec: ""})
	assert.Error(t, err)

	_, err = New(Config{Vault: v, CronSpec: "not a cron spec"})
	assert.Error(t, err)
}

func TestRunCycleReconcilesAndRedeploys(t *testing.T) {
	v, k := newTestSetup(t)
	newKeeperSim(t, v, "steady", 5000, 40)

	_, err := v.Deposit(sdkmath.NewInt(1_000_000))
	require.NoError(t, err)
	require.Equal(t, "500000", v.TotalDebt().String())

	cycle := k.RunCycle()

	require.Len(t, cycle.Reconciliations, 1)
	assert.Empty(t, cycle.FailedStrategies)
	assert.Equal(t, "2000", cycle.Reconciliations[0].Profit.String(), "40 bps on 500000")
	assert.Equal(t, "40", cycle.Reconciliations[0].Fee.String())

	// The cycle report brackets the ledger movement.
	assert.Equal(t, "1000000", cycle.TotalAssetsBefore.String())
	assert.Equal(t, "1001960", cycle.TotalAssetsAfter.String())
	assert.True(t, cycle.IdleAfter.LTE(cycle.IdleBefore), "redeploy pushes idle toward the target")
	assert.NotEmpty(t, cycle.CycleID)
	assert.Equal(t, 0, cycle.CycleNumber, "no persistence, no counter")
}

func TestRunCycleContinuesPastFailingStrategy(t *testing.T) {
	v, k := newTestSetup(t)
	broken := newKeeperSim(t, v, "broken", 3000, 0)
	newKeeperSim(t, v, "healthy", 3000, 40)

	_, err := v.Deposit(sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	broken.FailHarvest = true
	cycle := k.RunCycle()

	require.Len(t, cycle.FailedStrategies, 1)
	assert.Equal(t, "broken", cycle.FailedStrategies[0])
	require.Len(t, cycle.Reconciliations, 1)
	assert.Equal(t, "healthy", cycle.Reconciliations[0].Strategy)
}

func TestRunCycleSkipsInactiveStrategies(t *testing.T) {
	v, k := newTestSetup(t)
	newKeeperSim(t, v, "retired", 5000, 40)

	_, err := v.Deposit(sdkmath.NewInt(1_000_000))
	require.NoError(t, err)
	require.NoError(t, v.DeregisterStrategy(testOperator, "retired"))

	cycle := k.RunCycle()
	assert.Empty(t, cycle.Reconciliations)
	assert.Empty(t, cycle.FailedStrategies)
}

func TestRunCycleAppliesUpdatedTargets(t *testing.T) {
	v, k := newTestSetup(t)
	newKeeperSim(t, v, "steady", 2000, 0)

	_, err := v.Deposit(sdkmath.NewInt(1_000_000))
	require.NoError(t, err)
	require.Equal(t, "200000", v.TotalDebt().String())

	// Raising the target moves no capital until the next cycle.
	require.NoError(t, v.UpdateTarget(testOperator, "steady", 5000))
	require.Equal(t, "200000", v.TotalDebt().String())

	k.RunCycle()
	assert.Equal(t, "500000", v.TotalDebt().String())
}
