package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/session-intel/internal/api"
	"github.com/mohamedkhairy/session-intel/internal/config"
	"github.com/mohamedkhairy/session-intel/internal/pubsub"
	"github.com/mohamedkhairy/session-intel/internal/session"
	"github.com/mohamedkhairy/session-intel/internal/wsgateway"
	"github.com/mohamedkhairy/session-intel/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting session intelligence service",
		logger.Int("port", cfg.HTTP.Port),
		logger.Int("sessions", len(cfg.Session.Definitions)),
		logger.Duration("tick_interval", cfg.Session.TickInterval),
		logger.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	engine, err := session.NewEngine(cfg.Session.Definitions)
	if err != nil {
		logger.Fatal("Failed to build session engine",
			logger.ErrorField(err),
		)
	}

	// Optional Redis sink
	var sinks []session.SnapshotSink
	if cfg.Redis.Enabled {
		redisClient, err := pubsub.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize Redis client",
				logger.ErrorField(err),
			)
		}
		defer redisClient.Close()

		sinks = append(sinks, pubsub.NewSnapshotPublisher(redisClient, pubsub.SnapshotPublisherConfigFrom(cfg.Redis)))
	}

	driverConfig := session.DefaultDriverConfig()
	driverConfig.TickInterval = cfg.Session.TickInterval
	driver := session.NewDriver(driverConfig, engine, session.SystemClock{}, sinks...)

	hub := wsgateway.NewHub(cfg.WSGateway, driver)
	if err := hub.Start(); err != nil {
		logger.Fatal("Failed to start WebSocket hub",
			logger.ErrorField(err),
		)
	}

	if err := driver.Start(); err != nil {
		logger.Fatal("Failed to start session driver",
			logger.ErrorField(err),
		)
	}

	router := newRouter(cfg, engine, driver, hub)

	// Start HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down session intelligence service")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	hub.Stop()
	driver.Stop()

	stats := driver.GetStats()
	logger.Info("Session intelligence service stopped",
		logger.Int64("ticks", stats.Ticks),
		logger.Int64("sink_errors", stats.SinkErrors),
		logger.Int64("verdict_changes", stats.VerdictChanges),
		logger.Any("hub", hub.GetStats()),
	)
}

// newRouter wires the REST API, WebSocket endpoint and operational endpoints
func newRouter(cfg *config.Config, engine *session.Engine, driver *session.Driver, hub *wsgateway.Hub) *mux.Router {
	router := mux.NewRouter()

	// WebSocket endpoint (outside the API middleware so the connection can be hijacked)
	router.HandleFunc("/ws", hub.ServeWS)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(mux.MiddlewareFunc(api.ChainMiddleware(
		api.ErrorHandlingMiddleware(),
		api.TracingMiddleware(),
		api.LoggingMiddleware(),
		api.CORSMiddleware(cfg.API.CORSOrigins),
		api.RateLimitMiddleware(cfg.API.RateLimitRPS),
	)))
	api.NewSessionHandler(engine, driver).RegisterRoutes(apiRouter)

	// Health check endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if driver.Latest() == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	// Stats endpoint
	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"driver": driver.GetStats(),
			"hub":    hub.GetStats(),
		})
	})

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	return router
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
