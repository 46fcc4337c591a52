package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// LendingRPC is the JSON-RPC endpoint of the money market the lending
	// adapter talks to.
	LendingRPC string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	LendingRPC, err = getEnv("LENDING_RPC")
	if err != nil {
		return err
	}

	log.Debug().
		Str("LendingRPC", LendingRPC).
		Msg("Endpoint configuration loaded.")

	return nil
}
