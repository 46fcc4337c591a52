/*

This file contains the money-market ("lending") strategy adapter. The view
side is implemented against the protocol's JSON-RPC query surface; the
capital-moving side (deposit, withdraw, harvest) requires transaction signing
and broadcast, which is not wired up yet. The adapter therefore registers and
reports balances correctly but fails loudly on any attempt to move capital.

TODO(lending): wire Deposit/Withdraw/Harvest to the market's supply and
redeem transactions once the signing key management lands.

*/

package strategy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/solstice-finance/yvm/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrRPCRequestFailed = errors.New("RPC request failed")
	ErrInvalidResponse  = errors.New("response data is invalid")
	ErrNotImplemented   = errors.New("capability not implemented")
)

const rpcTimeout = 20 * time.Second

// JSONRPCRequest defines the structure of a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSONRPCResponse defines the structure of a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError defines the structure of a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// lendingPositionResult is the market's response to a position query.
type lendingPositionResult struct {
	Supplied      string `json:"supplied"`
	AccruedYield  string `json:"accrued_yield"`
	SupplyAPRBps  int64  `json:"supply_apr_bps"`
	MarketEnabled bool   `json:"market_enabled"`
}

// LendingConfig holds the parameters for the lending adapter.
type LendingConfig struct {
	Name        string
	OwningVault string
	AssetDenom  string
	RPCEndpoint string
}

// Lending is a strategy adapter for a pooled money market reached over
// JSON-RPC.
type Lending struct {
	name     string
	vault    string
	asset    string
	endpoint string

	httpClient *http.Client
	logger     zerolog.Logger
}

// NewLending creates a lending adapter with validation.
func NewLending(cfg LendingConfig) (*Lending, error) {
	if cfg.Name == "" {
		return nil, ErrInvalidName
	}
	if cfg.OwningVault == "" || cfg.AssetDenom == "" {
		return nil, fmt.Errorf("%w: vault %q asset %q", ErrInvalidIdentity, cfg.OwningVault, cfg.AssetDenom)
	}
	if cfg.RPCEndpoint == "" {
		return nil, fmt.Errorf("%w: RPC endpoint is empty", ErrRPCRequestFailed)
	}

	return &Lending{
		name:       cfg.Name,
		vault:      cfg.OwningVault,
		asset:      cfg.AssetDenom,
		endpoint:   cfg.RPCEndpoint,
		httpClient: &http.Client{Timeout: rpcTimeout},
		logger:     logger.GetForComponent("lending_strategy"),
	}, nil
}

func (l *Lending) Name() string            { return l.name }
func (l *Lending) OwningVault() string     { return l.vault }
func (l *Lending) UnderlyingAsset() string { return l.asset }

// Deposit is not wired up yet; see the file header.
func (l *Lending) Deposit(amount sdkmath.Int) error {
	return fmt.Errorf("%w: lending deposit of %s", ErrNotImplemented, amount)
}

// Withdraw is not wired up yet; see the file header.
func (l *Lending) Withdraw(amount sdkmath.Int) (sdkmath.Int, error) {
	return sdkmath.ZeroInt(), fmt.Errorf("%w: lending withdraw of %s", ErrNotImplemented, amount)
}

// Harvest is not wired up yet; see the file header.
func (l *Lending) Harvest() (sdkmath.Int, error) {
	return sdkmath.ZeroInt(), fmt.Errorf("%w: lending harvest", ErrNotImplemented)
}

// BalanceOf queries the market for the vault's supplied balance plus accrued
// yield.
func (l *Lending) BalanceOf() (sdkmath.Int, error) {
	result, err := l.queryPosition()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	supplied, ok := sdkmath.NewIntFromString(result.Supplied)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: supplied %q", ErrInvalidResponse, result.Supplied)
	}
	accrued, ok := sdkmath.NewIntFromString(result.AccruedYield)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: accrued yield %q", ErrInvalidResponse, result.AccruedYield)
	}

	balance := supplied.Add(accrued)
	if balance.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: negative balance %s", ErrInvalidResponse, balance)
	}
	return balance, nil
}

// EstimateAPR queries the market's current supply APR.
func (l *Lending) EstimateAPR() (int64, error) {
	result, err := l.queryPosition()
	if err != nil {
		return 0, err
	}
	if result.SupplyAPRBps < 0 {
		return 0, fmt.Errorf("%w: negative APR %d bps", ErrInvalidResponse, result.SupplyAPRBps)
	}
	return result.SupplyAPRBps, nil
}

// queryPosition performs the position query against the market RPC.
func (l *Lending) queryPosition() (*lendingPositionResult, error) {
	params, err := json.Marshal(map[string]string{
		"supplier": l.vault,
		"denom":    l.asset,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal params: %w", ErrRPCRequestFailed, err)
	}

	reqBody, err := json.Marshal(JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "lending_position",
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", ErrRPCRequestFailed, err)
	}

	resp, err := l.httpClient.Post(l.endpoint, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRPCRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRPCRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRPCRequestFailed, err)
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %w", ErrInvalidResponse, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%w: code %d: %s", ErrRPCRequestFailed, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var result lendingPositionResult
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: unmarshal result: %w", ErrInvalidResponse, err)
	}
	if !result.MarketEnabled {
		l.logger.Warn().Str("asset", l.asset).Msg("Lending market is disabled")
	}

	return &result, nil
}
