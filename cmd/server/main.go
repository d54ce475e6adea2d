package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tessera/internal/authz"
	"tessera/internal/certissuer"
	"tessera/internal/compliance"
	compliancemetrics "tessera/internal/compliance/metrics"
	complianceservice "tessera/internal/compliance/service"
	compliancestore "tessera/internal/compliance/store"
	httpapi "tessera/internal/http"
	"tessera/internal/ledger"
	"tessera/internal/oracle"
	"tessera/internal/paytoken"
	"tessera/internal/platform/config"
	"tessera/internal/platform/httpserver"
	"tessera/internal/platform/logger"
	platformmetrics "tessera/internal/platform/metrics"
	"tessera/internal/platform/postgres"
	"tessera/internal/platform/redis"
	"tessera/internal/registry"
	registrymetrics "tessera/internal/registry/metrics"
	registryservice "tessera/internal/registry/service"
	registrystore "tessera/internal/registry/store"
	"tessera/internal/seed"
	"tessera/internal/trading"
	tradingmetrics "tessera/internal/trading/metrics"
	tradingservice "tessera/internal/trading/service"
	tradingstore "tessera/internal/trading/store"
	"tessera/internal/yield"
	yieldmetrics "tessera/internal/yield/metrics"
	yieldservice "tessera/internal/yield/service"
	yieldstore "tessera/internal/yield/store"
	"tessera/pkg/domain"
	"tessera/pkg/platform/events"
)

// main wires stores, collaborators, and module services, then runs the HTTP
// server until a shutdown signal arrives. Business logic lives in the
// internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var (
		assetStore      registryservice.AssetStore
		balanceStore    tradingservice.BalanceStore
		complianceStore interface {
			complianceservice.RecordStore
			complianceservice.BlacklistStore
		}
		yieldStore yieldservice.DistributionStore
	)

	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := postgres.Migrate(migrateCtx, db); err != nil {
			cancel()
			log.Error("failed to migrate schema", "error", err)
			os.Exit(1)
		}
		cancel()

		assetStore = registrystore.NewPostgres(db)
		balanceStore = tradingstore.NewPostgres(db)
		complianceStore = compliancestore.NewPostgres(db)
		yieldStore = yieldstore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		assetStore = registrystore.NewInMemory()
		balanceStore = tradingstore.NewInMemory()
		complianceStore = compliancestore.NewInMemory()
		yieldStore = yieldstore.NewInMemory()
		log.Info("using in-memory stores")
	}

	if cfg.RedisURL != "" {
		client, err := redis.New(cfg.Redis())
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		if client != nil {
			defer client.Close()
			complianceStore = compliancestore.NewRedis(client.Client)
			log.Info("using redis compliance store")
		}
	}

	var publisher events.Publisher = events.NewMemory()
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		publisher = kafka
		log.Info("publishing events to kafka", "topic", cfg.KafkaTopic)
	}
	buffered := events.NewBuffered(publisher, 256, log)
	defer buffered.Close()

	guard := ledger.NewGuard()
	checker := authz.NewContextChecker()
	tokens := authz.NewTokenService(cfg.JWTSigningKey, "tessera")
	pay := paytoken.NewMemory(cfg.EscrowAddress)
	prices := oracle.NewStatic(domain.USDFromCents(1), time.Now())
	issuer := certissuer.NewLogging(log)

	registrySvc := registry.NewService(assetStore, balanceStore, issuer, checker, guard,
		registryservice.WithLogger(log),
		registryservice.WithEvents(buffered),
		registryservice.WithMetrics(registrymetrics.New()),
	)
	gate := compliance.NewGate(complianceStore, complianceStore, balanceStore, checker, guard,
		cfg.ProtocolMaxHolding,
		complianceservice.WithLogger(log),
		complianceservice.WithEvents(buffered),
		complianceservice.WithMetrics(compliancemetrics.New()),
	)
	engine := trading.NewEngine(registrySvc, gate, balanceStore, pay, guard,
		cfg.EscrowAddress, cfg.MinHoldPeriod,
		tradingservice.WithLogger(log),
		tradingservice.WithEvents(buffered),
		tradingservice.WithMetrics(tradingmetrics.New()),
	)
	yieldLedger := yield.NewLedger(yieldStore, registrySvc, balanceStore, pay, prices,
		checker, guard,
		yieldservice.WithLogger(log),
		yieldservice.WithEvents(buffered),
		yieldservice.WithMetrics(yieldmetrics.New()),
	)

	if os.Getenv("TESSERA_SEED") != "" {
		assetID, err := seed.Bootstrap(context.Background(), registrySvc, gate, pay, cfg.EscrowAddress)
		if err != nil {
			log.Error("failed to seed dev data", "error", err)
			os.Exit(1)
		}
		log.Info("seeded dev data", "asset_id", assetID)
	}

	router := httpapi.NewRouter(tokens, log, platformmetrics.NewHTTP(),
		registry.NewHandler(registrySvc, log),
		compliance.NewHandler(gate, log),
		trading.NewHandler(engine, log),
		yield.NewHandler(yieldLedger, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
