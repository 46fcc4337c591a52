// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		-- Mirror of the in-memory allocation registry, upserted after every
		-- ledger mutation. The ledger is authoritative; this table exists for
		-- observability and restart forensics.
		CREATE TABLE IF NOT EXISTS strategy_records (
			strategy_name VARCHAR(255) PRIMARY KEY,
			target_bps BIGINT NOT NULL,
			recorded_debt NUMERIC(40, 0) NOT NULL,
			last_reconciled_at TIMESTAMPTZ,
			active BOOLEAN NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS reconciliation_events (
			event_id SERIAL PRIMARY KEY,
			strategy_name VARCHAR(255) NOT NULL,
			profit NUMERIC(40, 0) NOT NULL,
			loss NUMERIC(40, 0) NOT NULL,
			fee NUMERIC(40, 0) NOT NULL,
			debt_before NUMERIC(40, 0) NOT NULL,
			debt_after NUMERIC(40, 0) NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_reconciliation_events_timestamp ON reconciliation_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_reconciliation_events_strategy ON reconciliation_events(strategy_name);

		CREATE TABLE IF NOT EXISTS harvest_cycles (
			cycle_id UUID PRIMARY KEY,
			cycle_number INTEGER NOT NULL,
			cycle_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			total_assets_before NUMERIC(40, 0) NOT NULL,
			total_assets_after NUMERIC(40, 0) NOT NULL,
			idle_before NUMERIC(40, 0) NOT NULL,
			idle_after NUMERIC(40, 0) NOT NULL,
			reconciliations JSONB,
			strategies JSONB,
			failed_strategies TEXT[]
		);
		CREATE INDEX IF NOT EXISTS idx_harvest_cycles_timestamp ON harvest_cycles(cycle_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_harvest_cycles_number ON harvest_cycles(cycle_number DESC);

		-- Cycle counter table for persistent global cycle tracking
		CREATE TABLE IF NOT EXISTS cycle_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_cycle INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO cycle_counter (id, current_cycle)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
