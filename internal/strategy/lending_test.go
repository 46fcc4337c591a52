package strategy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lendingRPCServer(t *testing.T, result lendingPositionResult) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.Equal(t, "lending_position", req.Method)

		var params map[string]string
		require.NoError(t, json.Unmarshal(req.Params, &params))
		assert.Equal(t, "yvm1testvault", params["supplier"])
		assert.Equal(t, "uusdc", params["denom"])

		raw, err := json.Marshal(result)
		require.NoError(t, err)
		json.NewEncoder(w).Encode(JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  raw,
		})
	}))
}

func newTestLending(t *testing.T, endpoint string) *Lending {
	t.Helper()
	l, err := NewLending(LendingConfig{
		Name:        "lending-market",
		OwningVault: "yvm1testvault",
		AssetDenom:  "uusdc",
		RPCEndpoint: endpoint,
	})
	require.NoError(t, err)
	return l
}

func TestNewLendingValidation(t *testing.T) {
	_, err := NewLending(LendingConfig{OwningVault: "v", AssetDenom: "a", RPCEndpoint: "http://x"})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = NewLending(LendingConfig{Name: "l", AssetDenom: "a", RPCEndpoint: "http://x"})
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = NewLending(LendingConfig{Name: "l", OwningVault: "v", AssetDenom: "a"})
	assert.ErrorIs(t, err, ErrRPCRequestFailed)
}

func TestLendingBalanceOf(t *testing.T) {
	srv := lendingRPCServer(t, lendingPositionResult{
		Supplied:      "1000000",
		AccruedYield:  "2500",
		SupplyAPRBps:  425,
		MarketEnabled: true,
	})
	defer srv.Close()

	l := newTestLending(t, srv.URL)
	balance, err := l.BalanceOf()
	require.NoError(t, err)
	assert.Equal(t, "1002500", balance.String(), "supplied plus accrued yield")
}

func TestLendingBalanceOfInvalidAmount(t *testing.T) {
	srv := lendingRPCServer(t, lendingPositionResult{
		Supplied:     "not-a-number",
		AccruedYield: "0",
	})
	defer srv.Close()

	l := newTestLending(t, srv.URL)
	_, err := l.BalanceOf()
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestLendingEstimateAPR(t *testing.T) {
	srv := lendingRPCServer(t, lendingPositionResult{
		Supplied:      "0",
		AccruedYield:  "0",
		SupplyAPRBps:  425,
		MarketEnabled: true,
	})
	defer srv.Close()

	l := newTestLending(t, srv.URL)
	apr, err := l.EstimateAPR()
	require.NoError(t, err)
	assert.Equal(t, int64(425), apr)
}

func TestLendingRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      1,
			Error:   &JSONRPCError{Code: -32601, Message: "method not found"},
		})
	}))
	defer srv.Close()

	l := newTestLending(t, srv.URL)
	_, err := l.BalanceOf()
	require.ErrorIs(t, err, ErrRPCRequestFailed)
	assert.Contains(t, err.Error(), "method not found")
}

func TestLendingNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	l := newTestLending(t, srv.URL)
	_, err := l.BalanceOf()
	assert.ErrorIs(t, err, ErrRPCRequestFailed)
}

func TestLendingCapitalMovesNotImplemented(t *testing.T) {
	l := newTestLending(t, "http://localhost:0")

	err := l.Deposit(sdkmath.NewInt(1))
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = l.Withdraw(sdkmath.NewInt(1))
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = l.Harvest()
	assert.ErrorIs(t, err, ErrNotImplemented)
}
