package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ontology-store/backend/internal/api"
	"ontology-store/backend/internal/graph"
	"ontology-store/backend/internal/metrics"
	"ontology-store/backend/pkg/config"
	apperrors "ontology-store/backend/pkg/errors"
	"ontology-store/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting entity store API server...", zap.String("env", cfg.Env))

	// Metrics
	var metricsHandler http.Handler
	var storeMetrics *metrics.StoreMetrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		storeMetrics, err = metrics.NewStoreMetrics(reg)
		if err != nil {
			log.Fatal("Failed to register store metrics", zap.Error(err))
		}
		metricsHandler = newMetricsHandler(reg)
	}

	// Initialize Neo4j driver
	driver, err := newDriver(cfg)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}

	repo := graph.NewRepository(driver,
		graph.WithLogger(log.Named("graph")),
		graph.WithMetrics(storeMetrics),
		graph.WithDatabase(cfg.Neo4jDatabase),
		graph.WithDefaultLimit(cfg.DefaultQueryLimit),
		graph.WithLastWriteWins(cfg.LastWriteWins),
	)
	defer repo.Close(context.Background())

	// Verify Neo4j connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Neo4jConnectTimeout)
	defer cancel()
	if err := repo.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(apperrors.NewGraphConnectionFailed(cfg.Neo4jURI, err)))
	}

	if cfg.LastWriteWins {
		log.Warn("Last-write-wins enabled: concurrent updates are not version checked")
	}

	if cfg.EnsureIndexes {
		if err := repo.EnsureIndexes(context.Background()); err != nil {
			log.Warn("Failed to ensure indexes", zap.Error(err))
		}
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewHandler(repo, log.Named("api")), metricsHandler)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// newDriver creates a Neo4j driver sized from the configuration
func newDriver(cfg *config.Config) (neo4j.DriverWithContext, error) {
	return neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
		func(c *neo4jconfig.Config) {
			c.MaxConnectionPoolSize = cfg.Neo4jMaxPoolSize
			c.SocketConnectTimeout = cfg.Neo4jConnectTimeout
		},
	)
}

// newMetricsHandler serves the registry together with Go runtime and process collectors
func newMetricsHandler(reg *prometheus.Registry) http.Handler {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
