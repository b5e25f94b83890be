package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dispatchboard-service/internal/infrastructure/config"
	"dispatchboard-service/internal/infrastructure/persistence"
	"dispatchboard-service/internal/interface/httpapi"
	"dispatchboard-service/internal/interface/lookup"
	mongoRepo "dispatchboard-service/internal/interface/repository"
	"dispatchboard-service/internal/usecase"
	"dispatchboard-service/pkg/logger"
	"dispatchboard-service/pkg/metrics"

	"dispatchboard-service/internal/domain/repository"
	fleetRepo "dispatchboard-service/internal/interface/repository"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Dispatch Board Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	// Set up fleet reference data: Postgres when configured, CSV otherwise
	var fleetRepository repository.FleetRepository
	if cfg.PostgresURI != "" {
		gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{})
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		fleetRepository = fleetRepo.NewGormFleetRepository(gormDB)
	} else {
		fleetRepository = fleetRepo.NewCSVFleetRepository(cfg.FleetCSVPath)
	}

	// The fleet list is static, loaded exactly once
	loadCtx, loadCancel := context.WithTimeout(ctx, 10*time.Second)
	fleet, err := fleetRepository.List(loadCtx)
	loadCancel()
	if err != nil {
		log.Fatal("Failed to load fleet list", "error", err)
	}
	log.Info("Fleet list loaded", "cars", len(fleet))

	// Set up metrics
	m := metrics.NewMetrics("dispatchboard")

	// Set up repositories
	flightRepository := mongoRepo.NewMongoFlightRepository(db, log)
	lookupClient := lookup.NewClient(ctx, lookup.Config{
		BaseURL:      cfg.LookupBaseURL,
		APIKey:       cfg.LookupAPIKey,
		ClientID:     cfg.LookupClientID,
		ClientSecret: cfg.LookupClientSecret,
		TokenURL:     cfg.LookupTokenURL,
		Timeout:      cfg.LookupTimeout,
	}, log, m)

	// Set up the roster engine and open the realtime subscription
	roster := usecase.NewRosterStore(flightRepository, lookupClient, fleet, cfg.RefreshConcurrency, log, m)
	if err := roster.Subscribe(ctx); err != nil {
		log.Fatal("Failed to subscribe to flight store", "error", err)
	}

	// Set up HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "Healthy")
	})

	handler := httpapi.NewHandler(roster, log)
	handler.Register(router.Group("/api/v1"))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	roster.Unsubscribe()
	cancel()

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Dispatch Board Service stopped")
}
