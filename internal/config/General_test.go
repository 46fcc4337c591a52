package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setFullEnv(t *testing.T) {
	t.Helper()
	t.Setenv("YVM_VAULT_ADDRESS", "yvm1testvault")
	t.Setenv("YVM_ASSET_DENOM", "uusdc")
	t.Setenv("YVM_ASSET_PRECISION", "6")
	t.Setenv("YVM_OPERATOR", "yvm1operator")
	t.Setenv("YVM_FEE_RECIPIENT", "yvm1feesink")
	t.Setenv("YVM_PERFORMANCE_FEE_BPS", "200")
	t.Setenv("YVM_MAX_PERFORMANCE_FEE_BPS", "2000")
	t.Setenv("YVM_HARVEST_CRON", "0 * * * *")
	t.Setenv("LENDING_RPC", "http://localhost:9797")
}

func TestLoadConfig(t *testing.T) {
	setFullEnv(t)
	require.NoError(t, LoadConfig())

	assert.Equal(t, "yvm1testvault", VaultAddress)
	assert.Equal(t, "uusdc", AssetDenom)
	assert.Equal(t, 6, AssetPrecision)
	assert.Equal(t, "yvm1operator", Operator)
	assert.Equal(t, "yvm1feesink", FeeRecipient)
	assert.Equal(t, int64(200), PerformanceFeeBps)
	assert.Equal(t, int64(2000), MaxPerformanceFeeBps)
	assert.Equal(t, "0 * * * *", HarvestCronSpec)
	assert.Equal(t, "http://localhost:9797", LendingRPC)
}

func TestLoadConfigMissingVariable(t *testing.T) {
	setFullEnv(t)
	os.Unsetenv("YVM_OPERATOR")

	err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YVM_OPERATOR")
}

func TestLoadConfigInvalidNumber(t *testing.T) {
	setFullEnv(t)
	t.Setenv("YVM_PERFORMANCE_FEE_BPS", "not-a-number")

	err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YVM_PERFORMANCE_FEE_BPS")
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("YVM_TEST_STRING", "hello")
	t.Setenv("YVM_TEST_INT", "42")

	v, err := getEnv("YVM_TEST_STRING")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	_, err = getEnv("YVM_TEST_ABSENT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YVM_TEST_ABSENT")

	i, err := getEnvAsInt("YVM_TEST_INT")
	require.NoError(t, err)
	assert.Equal(t, 42, i)

	i64, err := getEnvAsInt64("YVM_TEST_INT")
	require.NoError(t, err)
	assert.Equal(t, int64(42), i64)

	t.Setenv("YVM_TEST_INT", "forty-two")
	_, err = getEnvAsInt("YVM_TEST_INT")
	assert.Error(t, err)
	_, err = getEnvAsInt64("YVM_TEST_INT")
	assert.Error(t, err)
}
