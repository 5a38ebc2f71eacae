package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/app"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository/postgres"
	httptransport "github.com/loyaltyworks/points-platform/internal/ledger_service/transport/http"
	"github.com/loyaltyworks/points-platform/internal/platform/config"
	"github.com/loyaltyworks/points-platform/internal/platform/database"
	"github.com/loyaltyworks/points-platform/internal/platform/logger"
	"github.com/loyaltyworks/points-platform/internal/platform/messagebroker"
)

const (
	serviceName     = "ledger_service"
	shutdownTimeout = 30 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Ledger service starting", "http_port", cfg.LedgerHTTPPort, "metrics_port", cfg.LedgerMetricsPort)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// NATS is optional: without a broker the ledger still serves requests and
	// simply skips event publishing.
	var publisher app.EventPublisher
	var natsClient *messagebroker.NatsClient
	if cfg.NATSUrl != "" {
		natsClient, err = messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
		if err != nil {
			appLogger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = natsClient
	} else {
		appLogger.Warn("NATS_URL not set, event publishing disabled")
	}

	balanceRepo := postgres.NewPgBalanceRepository(appLogger)
	txRepo := postgres.NewPgTransactionRepository(appLogger)
	activityRepo := postgres.NewPgActivityRepository(appLogger)
	redemptionRepo := postgres.NewPgRedemptionRepository(appLogger)

	ledgerService := app.NewLedgerService(dbPool, balanceRepo, txRepo, publisher, appLogger)
	awardService := app.NewAwardService(dbPool, ledgerService, activityRepo, txRepo, appLogger)
	redemptionService := app.NewRedemptionService(
		dbPool, ledgerService, redemptionRepo, publisher, appLogger,
		time.Duration(cfg.ReservationTTLMinutes)*time.Minute, cfg.SweepBatchSize,
	)
	auditorService := app.NewAuditorService(dbPool, ledgerService, balanceRepo, txRepo, redemptionRepo, appLogger)
	leaderboardService := app.NewLeaderboardService(dbPool, txRepo, appLogger)

	router := httptransport.NewRouter(
		httptransport.NewLedgerHandler(ledgerService, awardService, leaderboardService, appLogger),
		httptransport.NewRedemptionHandler(redemptionService, appLogger),
		httptransport.NewAdminHandler(awardService, redemptionService, ledgerService, auditorService, appLogger),
		appLogger,
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.LedgerHTTPPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.LedgerMetricsPort),
		Handler: metricsMux,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server ListenAndServe error", "error", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Metrics HTTP server starting", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Metrics HTTP server ListenAndServe error", "error", err)
			return err
		}
		return nil
	})

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)

	g.Go(func() error {
		select {
		case sig := <-stopSignal:
			appLogger.Info("Received termination signal", "signal", sig.String())
			mainCancel()
			return nil
		case <-groupCtx.Done():
			return nil
		}
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Initiating graceful shutdown of servers")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		var shutdownErr error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server shutdown failed", "error", err)
			shutdownErr = errors.Join(shutdownErr, err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown failed", "error", err)
			shutdownErr = errors.Join(shutdownErr, err)
		}
		return shutdownErr
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Ledger service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Ledger service shut down gracefully")
}
