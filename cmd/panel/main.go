package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"arena-panel-go/internal/chart"
	"arena-panel-go/internal/chart/echarts"
	"arena-panel-go/internal/config"
	"arena-panel-go/internal/logger"
	"arena-panel-go/internal/panelapi"
	"arena-panel-go/internal/poller"
	"arena-panel-go/internal/view"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Control-plane API client
	client := panelapi.NewClient(&cfg.Panel, log)

	// Chart surface: one engine binding per (symbol, timeframe) selection
	renderer := echarts.NewRenderer()
	surface := &chart.FixedSurface{Width: cfg.Chart.Width, Height: cfg.Chart.Height}
	chartManager, err := chart.NewManager(chart.ManagerConfig{
		Factory: echarts.NewFactory("Primary series", renderer, log),
		Surface: surface,
		Logger:  log,
	})
	if err != nil {
		log.Fatal("Failed to create chart manager", zap.Error(err))
	}

	dashboard := view.NewDashboard(client, chartManager, log)
	arena := view.NewArena(client, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Initial load; failures surface as banner state, not fatal errors.
	if err := dashboard.RefreshSummary(ctx); err != nil {
		log.Warn("Initial summary load failed", zap.Error(err))
	}
	if err := dashboard.RefreshArena(ctx); err != nil {
		log.Warn("Initial arena load failed", zap.Error(err))
	}
	if err := dashboard.RefreshObservability(ctx); err != nil {
		log.Warn("Initial observability load failed", zap.Error(err))
	}
	if err := dashboard.SetSelection(ctx, cfg.Chart.DefaultSymbol, cfg.Chart.DefaultTimeframe); err != nil {
		log.Warn("Initial chart load failed", zap.Error(err))
	}

	// Periodic telemetry refresh, decoupled from user-triggered loads.
	interval := time.Duration(cfg.Poller.IntervalSeconds) * time.Second
	telemetryPoller := poller.New(interval, log)
	pollHandle, err := telemetryPoller.Start(ctx, dashboard.RefreshTelemetry)
	if err != nil {
		log.Fatal("Failed to start telemetry poller", zap.Error(err))
	}

	// Setup HTTP server
	apiHandler := NewAPIHandler(log, dashboard, arena, renderer)
	router := mux.NewRouter()
	router.HandleFunc("/api/dashboard", apiHandler.DashboardHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/dashboard/chart", apiHandler.ChartSelectHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/dashboard/refresh", apiHandler.RefreshHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/arena", apiHandler.ArenaHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/arena/tick", apiHandler.TickHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/arena/{id}", apiHandler.ArenaSelectHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/arena/{id}/notes", apiHandler.NoteHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/arena/{id}/promote", apiHandler.PromoteHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/arena/{id}/ledger.csv", apiHandler.LedgerExportHandler).Methods(http.MethodGet)
	router.HandleFunc("/chart", apiHandler.ChartPageHandler).Methods(http.MethodGet)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting panel server", zap.String("address", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Panel server failed", zap.Error(err))
	}

	// Release timers and the chart binding deterministically.
	if err := pollHandle.Stop(); err != nil {
		log.Error("Failed to stop telemetry poller", zap.Error(err))
	}
	dashboard.Close()
	log.Info("Panel has been shut down.")
}
