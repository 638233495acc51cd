package server

import (
	"fmt"
	"os"

	"github.com/farandiarsa/hematku/config"
	"github.com/farandiarsa/hematku/internal/gateway"
	"github.com/farandiarsa/hematku/internal/handlers"
	"github.com/farandiarsa/hematku/internal/logger"
	"github.com/farandiarsa/hematku/internal/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	xnd, err := config.LoadXenditConfig()
	if err != nil {
		return fmt.Errorf("failed to load xendit config: %v", err)
	}

	xenditClient, err := config.InitXenditClient(xnd)
	if err != nil {
		return fmt.Errorf("failed to initialize xendit client: %v", err)
	}

	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	r := gin.Default()

	gw := gateway.NewXenditGateway(xenditClient)
	setupRoutes(r, db, gw, log, xnd.CallbackToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(r *gin.Engine, db *gorm.DB, gw gateway.Gateway, log *logger.Logger, callbackToken string) {
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.GatewayMiddleware(gw))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		planPublic := public.Group("/plans")
		{
			planPublic.GET("", handlers.ListPlans)
			planPublic.GET("/:id", handlers.GetPlan)
		}

		public.POST("/webhooks/xendit", middleware.XenditCallbackMiddleware(callbackToken), handlers.XenditWebhook)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		householdProtected := protected.Group("/households")
		{
			householdProtected.POST("", handlers.CreateHousehold)
			householdProtected.GET("/mine", handlers.GetMyHousehold)
		}

		voucherProtected := protected.Group("/vouchers")
		{
			voucherProtected.POST("/validate", handlers.ValidateVoucher)
			voucherProtected.POST("", middleware.RequireRole("admin"), handlers.CreateVoucher)
			voucherProtected.GET("", middleware.RequireRole("admin"), handlers.ListVouchers)
			voucherProtected.GET("/:id", middleware.RequireRole("admin"), handlers.GetVoucher)
			voucherProtected.PUT("/:id", middleware.RequireRole("admin"), handlers.UpdateVoucher)
			voucherProtected.DELETE("/:id", middleware.RequireRole("admin"), handlers.DeleteVoucher)
		}

		subscriptionProtected := protected.Group("/subscriptions")
		{
			subscriptionProtected.POST("", handlers.CreateSubscription)
			subscriptionProtected.GET("/current", handlers.GetCurrentSubscription)
		}

		paymentProtected := protected.Group("/payments")
		{
			paymentProtected.POST("", handlers.CreatePayment)
			paymentProtected.GET("/:id", handlers.GetPayment)
			paymentProtected.POST("/:id/cancel", handlers.CancelPayment)
			paymentProtected.GET("/:id/qr", handlers.GetPaymentQR)
		}

		accountProtected := protected.Group("/accounts")
		{
			accountProtected.POST("", handlers.CreateAccount)
			accountProtected.GET("", handlers.ListAccounts)
			accountProtected.GET("/:id", handlers.GetAccount)
		}

		transactionProtected := protected.Group("/transactions")
		{
			transactionProtected.POST("", handlers.CreateTransaction)
			transactionProtected.GET("", handlers.ListTransactions)
			transactionProtected.PUT("/:id", handlers.UpdateTransaction)
			transactionProtected.DELETE("/:id", handlers.DeleteTransaction)
		}
	}
}
