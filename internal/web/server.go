package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/solstice-finance/yvm/internal/config"
	"github.com/solstice-finance/yvm/internal/logger"
	"github.com/solstice-finance/yvm/internal/state"
	"github.com/solstice-finance/yvm/internal/utils"
	"github.com/solstice-finance/yvm/internal/vault"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the vault's accounting views and the permissionless
// reconciliation trigger over HTTP.
type WebServer struct {
	router         *mux.Router
	port           string
	vault          *vault.Vault
	assetPrecision int
}

// NewWebServer creates a new web server instance serving the given vault.
func NewWebServer(port string, v *vault.Vault, assetPrecision int) *WebServer {
	if port == "" {
		port = "8080"
	}
	if assetPrecision <= 0 {
		assetPrecision = config.DefaultAssetPrecision
	}

	server := &WebServer{
		router:         mux.NewRouter(),
		port:           port,
		vault:          v,
		assetPrecision: assetPrecision,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/vault/summary", ws.handleGetVaultSummary).Methods("GET")
	api.HandleFunc("/strategies", ws.handleGetStrategies).Methods("GET")
	api.HandleFunc("/strategies/{name}/reconcile", ws.handleReconcile).Methods("POST")
	api.HandleFunc("/reconciliations", ws.handleGetReconciliations).Methods("GET")
	api.HandleFunc("/cycles", ws.handleGetCycles).Methods("GET")
	api.HandleFunc("/cycles/{id}", ws.handleGetCycle).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status including runtime statistics.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":           runtime.Version(),
			"goroutines_count":  runtime.NumGoroutine(),
			"alloc_bytes":       memStats.Alloc,
			"total_alloc_bytes": memStats.TotalAlloc,
			"sys_bytes":         memStats.Sys,
			"gc_cycles":         memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "yvm-yield-vault-manager",
			"version": "1.0.0",
		},
		"yvm_status": map[string]interface{}{
			"database_healthy": dbHealthy,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetVaultSummary returns the aggregate accounting view, with display
// values alongside the raw base-unit figures.
func (ws *WebServer) handleGetVaultSummary(w http.ResponseWriter, r *http.Request) {
	summary := ws.vault.Summary()

	totalDisplay, err := utils.ToDisplay(summary.TotalAssets, ws.assetPrecision)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to convert total assets for display")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to build vault summary")
		return
	}
	idleDisplay, err := utils.ToDisplay(summary.IdleBalance, ws.assetPrecision)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to convert idle balance for display")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to build vault summary")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"summary":        summary,
		"total_display":  totalDisplay,
		"idle_display":   idleDisplay,
		"asset_decimals": ws.assetPrecision,
	})
}

// handleGetStrategies returns the current registry snapshot, enriched with
// each active strategy's advertised APR where the adapter can report one.
func (ws *WebServer) handleGetStrategies(w http.ResponseWriter, r *http.Request) {
	infos := ws.vault.Strategies()
	for i := range infos {
		if !infos[i].Active {
			continue
		}
		apr, err := ws.vault.StrategyAPR(infos[i].Name)
		if err != nil {
			webLogger.Debug().Err(err).Str("strategy", infos[i].Name).Msg("APR query failed")
			continue
		}
		infos[i].EstimatedAPRBps = apr
	}
	ws.writeJSONResponse(w, http.StatusOK, infos)
}

// handleReconcile triggers reconciliation for a named strategy. This endpoint
// is deliberately unauthenticated: reconciliation is permissionless because
// it can only move capital from a strategy to the vault or fee recipient.
func (ws *WebServer) handleReconcile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	ev, err := ws.vault.Reconcile(name)
	if err != nil {
		webLogger.Error().Err(err).Str("strategy", name).Msg("Reconciliation via API failed")
		ws.writeErrorResponse(w, http.StatusConflict, err.Error())
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, ev)
}

// handleGetReconciliations returns recent reconciliation events.
func (ws *WebServer) handleGetReconciliations(w http.ResponseWriter, r *http.Request) {
	limit := ws.parseLimit(r, 20)

	events, err := state.GetRecentReconciliations(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get reconciliation events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve reconciliations")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, events)
}

// handleGetCycles returns recent harvest cycle reports.
func (ws *WebServer) handleGetCycles(w http.ResponseWriter, r *http.Request) {
	limit := ws.parseLimit(r, 10)

	cycles, err := state.GetRecentHarvestCycles(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent harvest cycles")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve cycles")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, cycles)
}

// handleGetCycle returns one harvest cycle by UUID.
func (ws *WebServer) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	cycleID := mux.Vars(r)["id"]

	cycle, err := state.GetHarvestCycle(cycleID)
	if err != nil {
		webLogger.Error().Err(err).Str("cycle_id", cycleID).Msg("Failed to get harvest cycle")
		ws.writeErrorResponse(w, http.StatusNotFound, "Cycle not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, cycle)
}

func (ws *WebServer) parseLimit(r *http.Request, def int) int {
	limit := def
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

// corsMiddleware adds CORS headers to all responses
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// writeJSONResponse writes a JSON response with the given status code
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes a JSON error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	ws.writeJSONResponse(w, statusCode, map[string]string{"error": message})
}
