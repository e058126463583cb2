package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"offertrack/internal/application/tracking"
	"offertrack/internal/domain/click"
	"offertrack/internal/domain/conversion"
	"offertrack/internal/domain/fraud"
	"offertrack/internal/domain/partner"
	"offertrack/internal/domain/payout"
	"offertrack/internal/domain/postback"
	rediscache "offertrack/internal/infrastructure/cache/redis"
	"offertrack/internal/infrastructure/database/postgres"
	"offertrack/internal/infrastructure/dispatch"
	"offertrack/internal/infrastructure/http/router"
	"offertrack/internal/infrastructure/ipintel"
	"offertrack/internal/infrastructure/memory"
	"offertrack/internal/infrastructure/metrics"
	"offertrack/internal/interfaces/http/handler"
	"offertrack/internal/pkg/config"
)

const version = "1.0.0"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Warnf("Could not load config file, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	log := newLogger(cfg.Log)
	log.Infof("Starting OfferTrack API v%s", version)
	log.Infof("Server will listen on %s:%d", cfg.Server.Host, cfg.Server.Port)

	clock := clockwork.NewRealClock()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Database connection
	var dbClient *postgres.Client
	var clickRepo click.Repository
	var conversionRepo conversion.Repository
	var jobRepo postback.JobRepository
	var logRepo postback.LogRepository
	var offerRepo partner.OfferRepository
	var partnerRepo partner.PartnerRepository

	dbClient, err = postgres.NewClient(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Warnf("Database connection failed (running in standalone mode): %v", err)
		dbClient = nil
		configRepo := memory.NewPartnerConfigRepository()
		seedDemoPartners(configRepo)
		clickRepo = memory.NewClickRepository()
		conversionRepo = memory.NewConversionRepository()
		jobRepo = memory.NewPostbackJobRepository()
		logRepo = memory.NewPostbackLogRepository()
		offerRepo = configRepo
		partnerRepo = configRepo
	} else {
		log.Infof("Connected to PostgreSQL at %s:%d", cfg.Database.Host, cfg.Database.Port)
		if err := dbClient.Migrate(); err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
		clickRepo = postgres.NewClickRepository(dbClient)
		conversionRepo = postgres.NewConversionRepository(dbClient)
		jobRepo = postgres.NewPostbackJobRepository(dbClient)
		logRepo = postgres.NewPostbackLogRepository(dbClient)
		offerRepo = postgres.NewOfferRepository(dbClient)
		partnerRepo = postgres.NewPartnerRepository(dbClient)
	}

	// Redis connection
	var redisClient *rediscache.Client
	var deviceHistory fraud.DeviceHistory
	var sessionHistory fraud.SessionHistory
	var signalCache ipintel.SignalCache

	redisClient, err = rediscache.NewClient(rediscache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.Warnf("Redis connection failed (using in-process history): %v", err)
		redisClient = nil
		deviceHistory = memory.NewDeviceHistory()
		sessionHistory = memory.NewSessionHistory(clock)
		signalCache = ipintel.NewMemoryCache(cfg.IPIntel.CacheTTL, clock)
	} else {
		log.Infof("Connected to Redis at %s:%d", cfg.Redis.Host, cfg.Redis.Port)
		deviceHistory = rediscache.NewDeviceCache(redisClient)
		sessionHistory = rediscache.NewSessionCache(redisClient, clock)
		signalCache = rediscache.NewSignalCache(redisClient, cfg.IPIntel.CacheTTL)
	}

	// Fraud signal provider with caching in front
	provider := ipintel.NewCachedProvider(
		ipintel.NewHTTPProvider(cfg.IPIntel.BaseURL, cfg.IPIntel.Timeout),
		signalCache,
	)

	// Fraud scoring engine
	engine := fraud.NewEngine(provider, deviceHistory, sessionHistory, log)

	// Payout calculator
	calculator := payout.NewCalculator(log)

	// Postback dispatcher
	dispatcher := dispatch.NewDispatcher(jobRepo, logRepo, partnerRepo, dispatch.Config{
		SweepInterval:      cfg.Dispatch.SweepInterval,
		RequestTimeout:     cfg.Dispatch.RequestTimeout,
		BackoffBase:        cfg.Dispatch.BackoffBase,
		BackoffMax:         cfg.Dispatch.BackoffMax,
		BatchSize:          cfg.Dispatch.BatchSize,
		DefaultMaxAttempts: cfg.Dispatch.DefaultMaxAttempts,
	}, clock, log, m)

	// Conversion matcher
	matcher := conversion.NewMatcher(clickRepo, conversionRepo, offerRepo, calculator, dispatcher, log)

	// Use cases
	recordClick := tracking.NewRecordClickUseCase(clickRepo, offerRepo, engine, clock, log, m)
	recordConversion := tracking.NewRecordConversionUseCase(matcher, log, m)

	// Handlers
	trackHandler := handler.NewTrackHandler(recordClick, recordConversion, clickRepo, conversionRepo)
	postbackHandler := handler.NewPostbackHandler(recordConversion, partnerRepo, jobRepo)

	var dbHealthChecker handler.HealthChecker
	var redisHealthChecker handler.HealthChecker
	if dbClient != nil {
		dbHealthChecker = dbClient
	}
	if redisClient != nil {
		redisHealthChecker = redisClient
	}
	healthHandler := handler.NewHealthHandler(dbHealthChecker, redisHealthChecker, version)

	// Create router
	r := router.NewRouter(trackHandler, postbackHandler, healthHandler, registry)

	// Start the dispatcher sweep loop
	dispatchCtx, stopDispatcher := context.WithCancel(context.Background())
	go dispatcher.Run(dispatchCtx)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	stopDispatcher()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("Server shutdown error: %v", err)
	}

	// Close connections
	if dbClient != nil {
		dbClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Info("Server stopped")
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// seedDemoPartners registers a demo offer and partner so the API is usable
// in standalone mode without a database.
func seedDemoPartners(repo *memory.PartnerConfigRepository) {
	repo.SeedOffer(&partner.Offer{
		ID:           "offer-demo",
		Name:         "Demo Offer",
		Active:       true,
		PayoutType:   partner.PayoutRevShare,
		SharePercent: decimal.NewFromInt(50),
		Currency:     "USD",
	})
	repo.SeedPartner(&partner.Partner{
		ID:          "partner-demo",
		Key:         "demo",
		Name:        "Demo Partner",
		Active:      true,
		PostbackURL: "http://localhost:9090/callback?cid={click_id}&payout={payout}&status={status}",
		Method:      "GET",
		MaxAttempts: 5,
	}, "offer-demo")
}
