package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/solstice-finance/yvm/internal/config"
	"github.com/solstice-finance/yvm/internal/keeper"
	"github.com/solstice-finance/yvm/internal/logger"
	"github.com/solstice-finance/yvm/internal/simulations"
	"github.com/solstice-finance/yvm/internal/state"
	"github.com/solstice-finance/yvm/internal/strategy"
	"github.com/solstice-finance/yvm/internal/vault"
	"github.com/solstice-finance/yvm/internal/web"
)

// main is the entry point for the YVM system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("YVM Core Logic Starting...")

	// --- Safety switch: simulation mode runs entirely in memory ---
	yvmMode := os.Getenv("YVM_MODE")
	if yvmMode == "sim" {
		log.Info().Msg("Running in SIMULATION mode. No database, no live strategies.")
		if err := simulations.Run(); err != nil {
			log.Fatal().Err(err).Msg("Simulation failed")
		}
		return
	}
	if yvmMode != "live" {
		log.Fatal().Msg("YVM_MODE is not set to 'live' or 'sim'. Halting to prevent accidental execution.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Restart forensics: surface capital that was still deployed when the
	// previous run stopped. The in-memory ledger starts empty, so any such
	// debt must be re-registered and reconciled by the operator.
	if records, err := state.GetStrategyRecords(); err != nil {
		log.Warn().Err(err).Msg("Could not load persisted strategy records")
	} else {
		for _, rec := range records {
			if rec.Active && !rec.RecordedDebt.IsZero() {
				log.Warn().
					Str("strategy", rec.Name).
					Str("recordedDebt", rec.RecordedDebt.String()).
					Msg("Persisted registry shows capital deployed by a previous run")
			}
		}
	}
	if lastCycle, err := state.GetCurrentCycleNumber(); err != nil {
		log.Warn().Err(err).Msg("Could not load cycle counter")
	} else {
		log.Info().Int("lastCycle", lastCycle).Msg("Resuming from persisted cycle counter")
	}

	// --- 2. Vault Ledger Initialization ---
	v, err := vault.New(vault.Config{
		VaultAddress:         config.VaultAddress,
		AssetDenom:           config.AssetDenom,
		Operator:             config.Operator,
		FeeRecipient:         config.FeeRecipient,
		PerformanceFeeBps:    config.PerformanceFeeBps,
		MaxPerformanceFeeBps: config.MaxPerformanceFeeBps,
		Recorder:             state.NewRecorder(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault ledger")
	}

	// Register the lending adapter at a zero target: its view surface is
	// live for monitoring, but no capital is routed to it until the
	// transaction side is wired up.
	lending, err := strategy.NewLending(strategy.LendingConfig{
		Name:        "lending-market",
		OwningVault: config.VaultAddress,
		AssetDenom:  config.AssetDenom,
		RPCEndpoint: config.LendingRPC,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize lending adapter")
	}
	if err := v.RegisterStrategy(config.Operator, lending, 0); err != nil {
		log.Fatal().Err(err).Msg("Failed to register lending adapter")
	}
	log.Warn().Msg("Lending adapter registered at 0 bps; harvest will fail until transactions are wired up.")

	// --- Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}
	webServer := web.NewWebServer(webPort, v, config.AssetPrecision)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting YVM web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 3. Start Harvest Keeper ---
	k, err := keeper.New(keeper.Config{
		Vault:    v,
		CronSpec: config.HarvestCronSpec,
		Persist:  true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create harvest keeper")
	}
	if err := k.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start harvest keeper")
	}

	// --- 4. Wait for shutdown signal ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	k.Stop()
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
