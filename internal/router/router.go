// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/chainmart/chainmart-backend/internal/blockchain"
	"github.com/chainmart/chainmart-backend/internal/config"
	"github.com/chainmart/chainmart-backend/internal/handlers"
	"github.com/chainmart/chainmart-backend/internal/middleware"
	"github.com/chainmart/chainmart-backend/internal/models"
	"github.com/chainmart/chainmart-backend/internal/reconcilelock"
	"github.com/chainmart/chainmart-backend/internal/services"
	"github.com/chainmart/chainmart-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, registry *blockchain.Registry, locker *reconcilelock.Locker) *gin.Engine {
	// Initialize services
	authService := services.NewAuthService(db, cfg)
	marketplaceService := services.NewMarketplaceService(db)
	productService := services.NewProductService(db)
	orderService := services.NewOrderService(db)
	payoutService := services.NewPayoutService(db)
	reconcileService := services.NewReconcileService(db, registry, locker)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	marketplaceHandler := handlers.NewMarketplaceHandler(marketplaceService)
	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService)
	payoutHandler := handlers.NewPayoutHandler(payoutService)
	reconcileHandler := handlers.NewReconcileHandler(reconcileService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Network routes (public, read-only)
		networks := v1.Group("/networks")
		{
			networks.GET("", listNetworksHandler(db))
		}

		// Seller marketplace routes
		marketplaces := v1.Group("/marketplaces")
		{
			marketplaces.GET("/:marketplace_id/products", productHandler.ListByMarketplace)

			protected := marketplaces.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", marketplaceHandler.Create)
				protected.GET("", marketplaceHandler.List)
				protected.GET("/:marketplace_id", marketplaceHandler.Get)
				protected.POST("/:marketplace_id/transactions", marketplaceHandler.SubmitTransaction)
			}
		}

		// Product routes
		products := v1.Group("/products")
		{
			products.GET("/:product_id", productHandler.Get)

			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", productHandler.Create)
				protected.PUT("/:product_id", productHandler.Update)
				protected.DELETE("/:product_id", productHandler.Delete)
			}
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", orderHandler.Create)
			orders.GET("", orderHandler.List)
			orders.GET("/:order_id", orderHandler.Get)
			orders.POST("/:order_id/transactions", orderHandler.SubmitTransaction)
			orders.POST("/:order_id/cancel", orderHandler.Cancel)
		}

		// Payout routes
		payouts := v1.Group("/payouts")
		payouts.Use(middleware.AuthRequired())
		{
			payouts.GET("/balance", payoutHandler.GetBalance)
			payouts.POST("", payoutHandler.Create)
			payouts.GET("", payoutHandler.List)
			payouts.GET("/:payout_id", payoutHandler.Get)
			payouts.POST("/:payout_id/transactions", payoutHandler.SubmitTransaction)
			payouts.POST("/:payout_id/cancel", payoutHandler.Cancel)
		}
	}

	// Reconciliation trigger routes, called by the operator scheduler
	protected := r.Group("/protected")
	protected.Use(middleware.ProtectedRequired(cfg.Protected.APIToken))
	{
		chain := protected.Group("/blockchain")
		{
			chain.POST("/seller-marketplaces/:marketplace_id", reconcileHandler.ReconcileSellerMarketplace)
			chain.POST("/:network_chain_id/user-product-orders", reconcileHandler.ReconcileProductOrders)
			chain.POST("/:network_chain_id/user-payouts", reconcileHandler.ReconcileSellerPayouts)
		}
	}

	return r
}

// listNetworksHandler returns the supported networks with their marketplace
// contracts and payment tokens, so clients can discover what to register
// against.
func listNetworksHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var networks []models.Network
		if err := db.Order("chain_id").Find(&networks).Error; err != nil {
			utils.InternalErrorResponse(c, "Failed to load networks")
			return
		}

		type networkView struct {
			models.Network
			Marketplaces []models.NetworkMarketplace `json:"marketplaces"`
			Tokens       []models.Token              `json:"tokens"`
		}

		views := make([]networkView, 0, len(networks))
		for _, network := range networks {
			view := networkView{Network: network}
			if err := db.Where("network_id = ?", network.ID).Find(&view.Marketplaces).Error; err != nil {
				utils.InternalErrorResponse(c, "Failed to load networks")
				return
			}
			if err := db.Where("network_id = ?", network.ID).Find(&view.Tokens).Error; err != nil {
				utils.InternalErrorResponse(c, "Failed to load networks")
				return
			}
			views = append(views, view)
		}

		utils.SuccessResponse(c, gin.H{"networks": views})
	}
}
