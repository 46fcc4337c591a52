package strategy

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/solstice-finance/yvm/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidName     = errors.New("strategy name is invalid")
	ErrInvalidIdentity = errors.New("strategy identity is invalid")
	ErrInvalidRate     = errors.New("rate is out of range")
	ErrInjectedFault   = errors.New("injected fault")
)

const bpsDenominator = int64(10000)

// SimulatedConfig holds the parameters for a simulated strategy.
type SimulatedConfig struct {
	Name        string
	OwningVault string
	AssetDenom  string

	// YieldBps is the yield accrued per harvest, in basis points of the
	// current balance. Negative values simulate a lossy strategy.
	YieldBps int64

	// WithdrawHaircutBps simulates slippage: a withdrawal removes the full
	// requested amount from the strategy but returns haircut-reduced funds.
	WithdrawHaircutBps int64

	// APRBps is the advertised APR, informational only.
	APRBps int64
}

// Simulated is a deterministic in-memory strategy used by the simulation
// harness and the test suite. It behaves like a well-formed adapter by
// default and can be made lossy or faulty through its configuration and the
// Fail* switches.
type Simulated struct {
	mu sync.Mutex

	name  string
	vault string
	asset string

	balance  sdkmath.Int
	yieldBps int64
	haircut  int64
	aprBps   int64

	// Fault injection switches; when set the corresponding capability call
	// fails with ErrInjectedFault.
	FailDeposit  bool
	FailWithdraw bool
	FailHarvest  bool
	FailBalance  bool

	logger zerolog.Logger
}

// NewSimulated creates a simulated strategy with validation.
func NewSimulated(cfg SimulatedConfig) (*Simulated, error) {
	if cfg.Name == "" {
		return nil, ErrInvalidName
	}
	if cfg.OwningVault == "" || cfg.AssetDenom == "" {
		return nil, fmt.Errorf("%w: vault %q asset %q", ErrInvalidIdentity, cfg.OwningVault, cfg.AssetDenom)
	}
	if cfg.WithdrawHaircutBps < 0 || cfg.WithdrawHaircutBps > bpsDenominator {
		return nil, fmt.Errorf("%w: haircut %d bps", ErrInvalidRate, cfg.WithdrawHaircutBps)
	}
	if cfg.YieldBps < -bpsDenominator {
		return nil, fmt.Errorf("%w: yield %d bps", ErrInvalidRate, cfg.YieldBps)
	}

	return &Simulated{
		name:     cfg.Name,
		vault:    cfg.OwningVault,
		asset:    cfg.AssetDenom,
		balance:  sdkmath.ZeroInt(),
		yieldBps: cfg.YieldBps,
		haircut:  cfg.WithdrawHaircutBps,
		aprBps:   cfg.APRBps,
		logger:   logger.GetForComponent("sim_strategy_" + cfg.Name),
	}, nil
}

func (s *Simulated) Name() string            { return s.name }
func (s *Simulated) OwningVault() string     { return s.vault }
func (s *Simulated) UnderlyingAsset() string { return s.asset }

// Deposit accepts the full amount into the simulated position.
func (s *Simulated) Deposit(amount sdkmath.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDeposit {
		return fmt.Errorf("%w: deposit", ErrInjectedFault)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("deposit amount must be positive, got %s", amount)
	}

	s.balance = s.balance.Add(amount)
	s.logger.Debug().Str("amount", amount.String()).Str("balance", s.balance.String()).Msg("Simulated deposit")
	return nil
}

// Withdraw removes up to amount from the position and returns the
// haircut-reduced proceeds; the haircut models slippage lost on exit.
func (s *Simulated) Withdraw(amount sdkmath.Int) (sdkmath.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWithdraw {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: withdraw", ErrInjectedFault)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("withdraw amount must be positive, got %s", amount)
	}

	removed := amount
	if removed.GT(s.balance) {
		removed = s.balance
	}
	s.balance = s.balance.Sub(removed)

	actual := removed
	if s.haircut > 0 {
		actual = removed.Mul(sdkmath.NewInt(bpsDenominator - s.haircut)).Quo(sdkmath.NewInt(bpsDenominator))
	}

	s.logger.Debug().
		Str("requested", amount.String()).
		Str("returned", actual.String()).
		Str("balance", s.balance.String()).
		Msg("Simulated withdraw")
	return actual, nil
}

// Harvest accrues one period of yield and reports it as realized profit.
func (s *Simulated) Harvest() (sdkmath.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailHarvest {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: harvest", ErrInjectedFault)
	}

	accrued := s.balance.Mul(sdkmath.NewInt(s.yieldBps)).Quo(sdkmath.NewInt(bpsDenominator))
	s.balance = s.balance.Add(accrued)
	if s.balance.IsNegative() {
		s.balance = sdkmath.ZeroInt()
	}

	s.logger.Debug().Str("accrued", accrued.String()).Str("balance", s.balance.String()).Msg("Simulated harvest")
	if accrued.IsNegative() {
		return sdkmath.ZeroInt(), nil
	}
	return accrued, nil
}

// BalanceOf reports the current simulated balance.
func (s *Simulated) BalanceOf() (sdkmath.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailBalance {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: balance query", ErrInjectedFault)
	}
	return s.balance, nil
}

// EstimateAPR returns the configured advertised APR.
func (s *Simulated) EstimateAPR() (int64, error) {
	return s.aprBps, nil
}

// SetBalance overrides the simulated balance directly. Test hook for
// modelling external gains or losses between harvests.
func (s *Simulated) SetBalance(balance sdkmath.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = balance
}
