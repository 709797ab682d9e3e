// Package main is the entry point for the fructus API server: the
// inventory-and-money ledger behind the warehouse bot.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fructus/internal/domain/account"
	"fructus/internal/domain/auth"
	"fructus/internal/domain/event"
	"fructus/internal/domain/ledger"
	"fructus/internal/domain/payout"
	"fructus/internal/domain/product"
	"fructus/internal/domain/report"
	"fructus/internal/domain/restock"
	"fructus/internal/domain/supply"
	v1 "fructus/internal/infrastructure/http/v1"
	"fructus/internal/infrastructure/notify"
	"fructus/internal/infrastructure/storage/postgres"
	"fructus/internal/infrastructure/storage/postgres/catalog_repo"
	"fructus/internal/infrastructure/storage/postgres/document_repo"
	"fructus/internal/infrastructure/storage/postgres/ledger_repo"
	"fructus/internal/infrastructure/storage/postgres/report_repo"
	"fructus/pkg/logger"
	"fructus/pkg/numerator"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting fructus server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Infrastructure ---
	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	numeratorService := numerator.NewWithProvider(func(ctx context.Context) numerator.Querier {
		return txManager.GetQuerier(ctx)
	})

	// --- Notifier chain ---
	notifiers := event.Multi{notify.NewLogNotifier()}
	kafkaCtx, stopKafka := context.WithCancel(ctx)
	var kafkaNotifier *notify.KafkaNotifier
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		kafkaNotifier = notify.NewKafkaNotifier(
			strings.Split(brokers, ","),
			getEnv("KAFKA_TOPIC", "fructus.events"),
			getEnvInt("KAFKA_BUFFER", 1024),
		)
		kafkaNotifier.Start(kafkaCtx)

		filtered, err := notify.NewFilteredNotifier(kafkaNotifier, getEnv("EVENT_FILTER", ""))
		if err != nil {
			log.Fatalw("invalid event filter", "error", err)
		}
		notifiers = append(notifiers, filtered)
		log.Infow("kafka notifier enabled", "brokers", brokers)
	}
	defer stopKafka()

	// --- Repositories ---
	accountRepo := catalog_repo.NewAccountRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	ledgerRepo := ledger_repo.NewLedgerRepo(txManager)
	supplyRepo := document_repo.NewSupplyRepo(txManager)
	restockRepo := document_repo.NewRestockRepo(txManager)
	payoutRepo := document_repo.NewPayoutRepo(txManager)
	reportRepo := report_repo.NewReportRepo(txManager)

	// --- Services ---
	accountService := account.NewService(accountRepo)
	productService := product.NewService(productRepo)
	ledgerService := ledger.NewService(ledgerRepo, txManager, numeratorService, notifiers, auditStore)
	supplyService := supply.NewService(supplyRepo, accountRepo, productRepo, ledgerService, txManager, numeratorService, notifiers, auditStore)
	restockService := restock.NewService(restockRepo, accountRepo, productRepo, ledgerService, txManager, numeratorService, notifiers, auditStore)
	payoutService := payout.NewService(payoutRepo, accountRepo, ledgerService, txManager, numeratorService, notifiers, auditStore)
	reportService := report.NewService(reportRepo)

	// --- Auth ---
	jwtConfig := auth.DefaultJWTConfig(mustEnv("JWT_SECRET"))
	jwtService := auth.NewJWTService(jwtConfig)
	authService := auth.NewService(accountRepo, jwtService, jwtConfig, mustEnv("ADMIN_PASSWORD_HASH"))

	// --- Router and server ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool.Pool,
		Logger:         log,
		TokenValidator: jwtService,
		AuthService:    authService,
		AccountService: accountService,
		ProductService: productService,
		LedgerService:  ledgerService,
		SupplyService:  supplyService,
		RestockService: restockService,
		PayoutService:  payoutService,
		ReportService:  reportService,
	})

	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	if kafkaNotifier != nil {
		stopKafka()
		kafkaNotifier.WaitClosed()
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
