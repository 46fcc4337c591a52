package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// VaultAddress is the identity of the vault instance this YVM manages.
	VaultAddress string
	// AssetDenom is the denom of the single underlying asset (e.g. a stablecoin).
	AssetDenom string
	// AssetPrecision is the decimal precision of the underlying asset.
	AssetPrecision int

	// Operator is the privileged operator identity for register/deregister,
	// target updates, and fee configuration.
	Operator string
	// FeeRecipient receives performance fees collected at reconciliation.
	FeeRecipient string
	// PerformanceFeeBps is the performance fee rate in basis points.
	PerformanceFeeBps int64
	// MaxPerformanceFeeBps bounds the performance fee rate.
	MaxPerformanceFeeBps int64

	// HarvestCronSpec is the cron expression driving the harvest keeper.
	HarvestCronSpec string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	VaultAddress, err = getEnv("YVM_VAULT_ADDRESS")
	if err != nil {
		return err
	}

	AssetDenom, err = getEnv("YVM_ASSET_DENOM")
	if err != nil {
		return err
	}

	AssetPrecision, err = getEnvAsInt("YVM_ASSET_PRECISION")
	if err != nil {
		return err
	}

	Operator, err = getEnv("YVM_OPERATOR")
	if err != nil {
		return err
	}

	FeeRecipient, err = getEnv("YVM_FEE_RECIPIENT")
	if err != nil {
		return err
	}

	PerformanceFeeBps, err = getEnvAsInt64("YVM_PERFORMANCE_FEE_BPS")
	if err != nil {
		return err
	}

	MaxPerformanceFeeBps, err = getEnvAsInt64("YVM_MAX_PERFORMANCE_FEE_BPS")
	if err != nil {
		return err
	}

	HarvestCronSpec, err = getEnv("YVM_HARVEST_CRON")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("VaultAddress", VaultAddress).
		Str("AssetDenom", AssetDenom).
		Int64("PerformanceFeeBps", PerformanceFeeBps).
		Str("HarvestCron", HarvestCronSpec).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}
