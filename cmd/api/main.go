package main

import (
	"fmt"
	"net/http"
	"os"

	"famledger/internal/config"
	"famledger/internal/database"
	"famledger/internal/handlers"
	"famledger/internal/logger"
	"famledger/internal/middleware"
	"famledger/internal/rules"
	"famledger/internal/services"
	"famledger/internal/validator"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	categoryService := services.NewCategoryService(db)
	bankAccountService := services.NewBankAccountService(db)
	paymentService := services.NewPaymentService(db)
	incomeService := services.NewIncomeService(db)
	attributionService := services.NewAttributionService(db)
	matchingService := services.NewMatchingService()
	categorizationService := services.NewCategorizationService(db, rules.Default())
	transactionService := services.NewTransactionService(db, categorizationService, matchingService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	bankAccountHandler := handlers.NewBankAccountHandler(bankAccountService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, auditService)
	incomeHandler := handlers.NewIncomeHandler(incomeService, attributionService, auditService)
	attributionHandler := handlers.NewAttributionHandler(attributionService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, categorizationService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Bank account routes
	bankAccounts := protected.Group("/bank-accounts")
	bankAccounts.POST("", bankAccountHandler.CreateBankAccount)
	bankAccounts.GET("", bankAccountHandler.GetBankAccounts)
	bankAccounts.GET("/:id", bankAccountHandler.GetBankAccount)

	// Payment routes
	payments := protected.Group("/payments")
	payments.POST("", paymentHandler.CreatePayment)
	payments.GET("", paymentHandler.GetPayments)
	payments.GET("/:id", paymentHandler.GetPayment)
	payments.GET("/:id/capacity", paymentHandler.GetPaymentCapacity)
	payments.PUT("/:id", paymentHandler.UpdatePayment)
	payments.POST("/:id/mark-paid", paymentHandler.MarkPaid)
	payments.DELETE("/:id", paymentHandler.CancelPayment)

	// Income event routes
	incomeEvents := protected.Group("/income-events")
	incomeEvents.POST("", incomeHandler.CreateIncomeEvent)
	incomeEvents.GET("", incomeHandler.GetIncomeEvents)
	incomeEvents.GET("/:id", incomeHandler.GetIncomeEvent)
	incomeEvents.PUT("/:id", incomeHandler.UpdateIncomeEvent)
	incomeEvents.POST("/:id/mark-received", incomeHandler.MarkReceived)
	incomeEvents.POST("/:id/auto-distribute", incomeHandler.AutoDistribute)
	incomeEvents.DELETE("/:id", incomeHandler.CancelIncomeEvent)
	incomeEvents.DELETE("/:id/attributions/:attributionId", incomeHandler.DeleteIncomeAttribution)

	// Attribution routes
	attributions := protected.Group("/attributions")
	attributions.POST("", attributionHandler.CreateAttribution)
	attributions.PUT("/:id", attributionHandler.UpdateAttribution)
	attributions.DELETE("/:id", attributionHandler.DeleteAttribution)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("/sync", transactionHandler.SyncTransactions)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.POST("/match", transactionHandler.ProposeMatches)
	transactions.POST("/apply-category-rules", transactionHandler.ApplyCategoryRules)
	transactions.GET("/category-suggestions", transactionHandler.GetCategorySuggestions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id/category", transactionHandler.SetCategory)
	transactions.POST("/:id/link", transactionHandler.LinkPayment)

	log.Infof("Starting famledger backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
