// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"fructus/internal/domain/account"
	"fructus/internal/domain/auth"
	"fructus/internal/domain/ledger"
	"fructus/internal/domain/payout"
	"fructus/internal/domain/product"
	"fructus/internal/domain/report"
	"fructus/internal/domain/restock"
	"fructus/internal/domain/supply"
	"fructus/internal/infrastructure/http/v1/handlers"
	"fructus/internal/infrastructure/http/v1/middleware"
	"fructus/pkg/logger"
)

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	Pool   *pgxpool.Pool
	Logger *logger.Logger

	TokenValidator middleware.TokenValidator

	AuthService    *auth.Service
	AccountService *account.Service
	ProductService *product.Service
	LedgerService  *ledger.Service
	SupplyService  *supply.Service
	RestockService *restock.Service
	PayoutService  *payout.Service
	ReportService  *report.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Order matters: recovery outermost, error rendering innermost.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	accountHandler := handlers.NewAccountHandler(cfg.AccountService)
	productHandler := handlers.NewProductHandler(cfg.ProductService)
	ledgerHandler := handlers.NewLedgerHandler(cfg.LedgerService, cfg.AccountService, cfg.ProductService)
	supplyHandler := handlers.NewSupplyHandler(cfg.SupplyService)
	restockHandler := handlers.NewRestockHandler(cfg.RestockService)
	payoutHandler := handlers.NewPayoutHandler(cfg.PayoutService)
	reportHandler := handlers.NewReportHandler(cfg.ReportService)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", authHandler.Login)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.TokenValidator))

		admin := protected.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/auth/seller-token", authHandler.SellerToken)

			admin.POST("/accounts", accountHandler.Create)
			admin.PATCH("/accounts/:accountID/active", accountHandler.SetActive)

			admin.POST("/products", productHandler.Create)
			admin.PATCH("/products/:productID/price", productHandler.SetPrice)
			admin.PATCH("/products/:productID/active", productHandler.SetActive)

			admin.POST("/orders/:orderID/ship", supplyHandler.Ship)

			admin.POST("/restocks/fulfill", restockHandler.Fulfill)
			admin.GET("/restocks/history", restockHandler.History)

			admin.POST("/payments/:requestID/approve", payoutHandler.Approve)
			admin.POST("/payments/:requestID/reject", payoutHandler.Reject)

			admin.GET("/reports/stock", reportHandler.StockTotal)
			admin.GET("/reports/stock/:accountID", reportHandler.Stock)
			admin.GET("/reports/balances", reportHandler.Balances)
			admin.GET("/reports/sales", reportHandler.Sales)
		}

		// Catalog reads are open to any authenticated actor.
		protected.GET("/accounts", accountHandler.List)
		protected.GET("/accounts/:accountID", accountHandler.Get)
		protected.GET("/products", productHandler.List)

		// Account-scoped routes: sellers only reach their own account,
		// the admin reaches all.
		owned := protected.Group("/accounts/:accountID")
		owned.Use(middleware.RequireAccount("accountID"))
		{
			owned.GET("/positions", ledgerHandler.Positions)
			owned.GET("/balance", ledgerHandler.Balance)
			owned.POST("/sales", ledgerHandler.RecordSale)
			owned.GET("/sales", ledgerHandler.Sales)

			owned.POST("/orders", supplyHandler.Create)
			owned.GET("/orders", supplyHandler.List)

			owned.POST("/restocks", restockHandler.Create)
			owned.GET("/restocks", restockHandler.List)

			owned.POST("/payments", payoutHandler.Create)
			owned.GET("/payments", payoutHandler.List)
		}

		// Document routes addressed by document id. The handlers load
		// the document and check the actor owns its account (admin
		// passes always).
		protected.GET("/orders/:orderID", supplyHandler.Get)
		protected.POST("/orders/:orderID/receipt", supplyHandler.ConfirmReceipt)
		protected.POST("/orders/:orderID/cancel", supplyHandler.Cancel)
		protected.GET("/restocks/:requestID", restockHandler.Get)
		protected.POST("/restocks/:requestID/cancel", restockHandler.Cancel)
	}

	return router
}
