package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Jae876/crestara/internal/api"
	"github.com/Jae876/crestara/internal/api/middleware"
	"github.com/Jae876/crestara/internal/config"
	"github.com/Jae876/crestara/internal/db"
	"github.com/Jae876/crestara/internal/idempotency"
	"github.com/Jae876/crestara/internal/notify"
	"github.com/Jae876/crestara/internal/observability"
	"github.com/Jae876/crestara/internal/pricing"
	"github.com/Jae876/crestara/internal/repository"
	"github.com/Jae876/crestara/internal/service"
	"github.com/Jae876/crestara/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and background workers, blocking until
// shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	store := repository.NewStore(pool)
	idemStore := idempotency.NewStore(redisClient, store.Queries(), cfg.IdempotencyTTL)
	publisher := notify.NewRedisPublisher(redisClient)
	prices := pricing.NewStaticSource()

	auditSvc := service.NewAuditService()
	ledgerSvc := service.NewLedgerService(store, auditSvc)

	catalog, err := service.NewGameCatalog(ctx, store)
	if err != nil {
		return fmt.Errorf("load game catalog: %w", err)
	}
	casinoSvc := service.NewCasinoService(store, ledgerSvc, catalog, publisher)

	miningSvc, err := service.NewMiningService(store, ledgerSvc, publisher, service.DefaultMiningPackages, cfg.MiningCycleInterval, cfg.MiningBatchSize)
	if err != nil {
		return fmt.Errorf("init mining service: %w", err)
	}
	referralSvc, err := service.NewReferralService(store, ledgerSvc, auditSvc, cfg.ReferralBonusMicros)
	if err != nil {
		return fmt.Errorf("init referral service: %w", err)
	}
	fundingSvc := service.NewFundingService(store, ledgerSvc, auditSvc, prices, referralSvc, publisher)
	accountSvc := service.NewAccountService(store, referralSvc)
	integritySvc := service.NewIntegrityService(store)

	miningWorker := worker.NewMiningWorker(miningSvc).WithInterval(cfg.MiningCycleInterval)
	stopMining := miningWorker.Run(ctx)
	integrityWorker := worker.NewIntegrityWorker(integritySvc).WithInterval(cfg.IntegrityInterval)
	stopIntegrity := integrityWorker.Run(ctx)

	router := api.NewRouter(cfg, logger, pool, redisClient, idemStore,
		accountSvc, ledgerSvc, casinoSvc, miningSvc, referralSvc, fundingSvc)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopMining()
	stopIntegrity()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
