package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/app"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository/postgres"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/scheduler"
	"github.com/loyaltyworks/points-platform/internal/platform/config"
	"github.com/loyaltyworks/points-platform/internal/platform/database"
	"github.com/loyaltyworks/points-platform/internal/platform/logger"
	"github.com/loyaltyworks/points-platform/internal/platform/messagebroker"
)

const serviceName = "scheduler_service"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Scheduler service starting",
		"sweep_cron", cfg.ExpirySweepCron, "audit_cron", cfg.ConsistencyAuditCron,
	)

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	var publisher app.EventPublisher
	if cfg.NATSUrl != "" {
		natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
		if err != nil {
			appLogger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = natsClient
	}

	balanceRepo := postgres.NewPgBalanceRepository(appLogger)
	txRepo := postgres.NewPgTransactionRepository(appLogger)
	redemptionRepo := postgres.NewPgRedemptionRepository(appLogger)

	ledgerService := app.NewLedgerService(dbPool, balanceRepo, txRepo, publisher, appLogger)
	redemptionService := app.NewRedemptionService(
		dbPool, ledgerService, redemptionRepo, publisher, appLogger,
		time.Duration(cfg.ReservationTTLMinutes)*time.Minute, cfg.SweepBatchSize,
	)
	auditorService := app.NewAuditorService(dbPool, ledgerService, balanceRepo, txRepo, redemptionRepo, appLogger)

	sched := scheduler.New(
		redemptionService,
		auditorService,
		cfg.ExpirySweepCron,
		cfg.ConsistencyAuditCron,
		cfg.ConsistencyAutoFix,
		appLogger,
	)
	if err := sched.Start(); err != nil {
		appLogger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stopSignal
	appLogger.Info("Received termination signal", "signal", sig.String())

	sched.Stop()
	appLogger.Info("Scheduler service shut down gracefully")
}
