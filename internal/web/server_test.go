package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solstice-finance/yvm/internal/strategy"
	"github.com/solstice-finance/yvm/internal/types"
	"github.com/solstice-finance/yvm/internal/vault"
)

const (
	testVault    = "yvm1testvault"
	testAsset    = "uusdc"
	testOperator = "yvm1operator"
)

func newTestServer(t *testing.T) (*WebServer, *vault.Vault, *strategy.Simulated) {
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

	s, err := strategy.NewSimulated(strategy.SimulatedConfig{
		Name:        "steady",
		OwningVault: testVault,
		AssetDenom:  testAsset,
		YieldBps:    40,
		APRBps:      900,
	})
	require.NoError(t, err)
	require.NoError(t, v.RegisterStrategy(testOperator, s, 5000))

	_, err = v.Deposit(sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	return NewWebServer("8080", v, 6), v, s
}

func doRequest(ws *WebServer, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	ws.router.ServeHTTP(rr, req)
	return rr
}

func TestVaultSummaryEndpoint(t *testing.T) {
	ws, _, _ := newTestServer(t)

	rr := doRequest(ws, http.MethodGet, "/api/vault/summary")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body struct {
		Summary       types.VaultSummary `json:"summary"`
		TotalDisplay  float64            `json:"total_display"`
		IdleDisplay   float64            `json:"idle_display"`
		AssetDecimals int                `json:"asset_decimals"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	assert.Equal(t, testVault, body.Summary.VaultAddress)
	assert.Equal(t, "1000000", body.Summary.TotalAssets.String())
	assert.InDelta(t, 1.0, body.TotalDisplay, 1e-12)
	assert.InDelta(t, 0.5, body.IdleDisplay, 1e-12)
	assert.Equal(t, 6, body.AssetDecimals)
}

func TestStrategiesEndpoint(t *testing.T) {
	ws, _, _ := newTestServer(t)

	rr := doRequest(ws, http.MethodGet, "/api/strategies")
	require.Equal(t, http.StatusOK, rr.Code)

	var infos []types.StrategyInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "steady", infos[0].Name)
	assert.Equal(t, int64(5000), infos[0].TargetBps)
	assert.Equal(t, "500000", infos[0].RecordedDebt.String())
	assert.True(t, infos[0].Active)
	assert.Equal(t, int64(900), infos[0].EstimatedAPRBps)
}

func TestReconcileEndpoint(t *testing.T) {
	ws, v, _ := newTestServer(t)

	rr := doRequest(ws, http.MethodPost, "/api/strategies/steady/reconcile")
	require.Equal(t, http.StatusOK, rr.Code)

	var ev types.ReconciliationEvent
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ev))
	assert.Equal(t, "steady", ev.Strategy)
	assert.Equal(t, "2000", ev.Profit.String())
	assert.Equal(t, "40", ev.Fee.String())
	assert.Equal(t, "501960", v.TotalDebt().String())
}

func TestReconcileEndpointUnknownStrategy(t *testing.T) {
	ws, _, _ := newTestServer(t)

	rr := doRequest(ws, http.MethodPost, "/api/strategies/ghost/reconcile")
	require.Equal(t, http.StatusConflict, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "ghost")
}

func TestReconcileEndpointStrategyFault(t *testing.T) {
	ws, _, s := newTestServer(t)

	s.FailHarvest = true
	rr := doRequest(ws, http.MethodPost, "/api/strategies/steady/reconcile")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHealthEndpointWithoutDatabase(t *testing.T) {
	ws, _, _ := newTestServer(t)

	rr := doRequest(ws, http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "DEGRADED", body["status"])
}

func TestCORSHeaders(t *testing.T) {
	ws, _, _ := newTestServer(t)

	rr := doRequest(ws, http.MethodGet, "/api/vault/summary")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
}
