package router

import (
	"pharmacare_backend/internal/handlers"
	"pharmacare_backend/internal/middleware"
	"pharmacare_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func registerRoutes(engine *gin.Engine, deps handlerDependencies) {
	api := engine.Group("/api/v1")

	// Public endpoints.
	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.authHandler.Login)
		auth.POST("/refresh", deps.authHandler.Refresh)
	}

	// Everything below requires a valid access token.
	authenticated := api.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		authenticated.POST("/auth/logout", deps.authHandler.Logout)
		authenticated.GET("/auth/me", deps.authHandler.Me)
	}

	staffOnly := middleware.RoleAuthMiddleware(services.RoleAdmin, services.RolePharmacist)
	adminOnly := middleware.RoleAuthMiddleware(services.RoleAdmin)

	products := authenticated.Group("/products")
	{
		products.GET("", deps.productHandler.GetProducts)
		products.GET("/:id", deps.productHandler.GetProductByID)
		products.GET("/:id/batch-options", deps.batchHandler.GetBatchOptions)
		products.POST("", staffOnly, deps.productHandler.CreateProduct)
		products.PUT("/:id", staffOnly, deps.productHandler.UpdateProduct)
		products.DELETE("/:id", adminOnly, deps.productHandler.DeleteProduct)
	}

	inventory := authenticated.Group("/inventory")
	{
		inventory.GET("/lots", deps.inventoryHandler.GetLots)
		inventory.GET("/lots/:id", deps.inventoryHandler.GetLotByID)
		inventory.POST("/lots", staffOnly, deps.inventoryHandler.CreateLot)
		inventory.PUT("/lots/:id", staffOnly, deps.inventoryHandler.UpdateLot)
		inventory.DELETE("/lots/:id", adminOnly, deps.inventoryHandler.DeleteLot)
		inventory.POST("/lots/:id/adjust", staffOnly, deps.inventoryHandler.AdjustLot)
		inventory.GET("/movements", staffOnly, deps.inventoryHandler.GetMovements)
	}

	batches := authenticated.Group("/batches")
	{
		batches.GET("", deps.batchHandler.GetBatches)
		batches.GET("/:id", deps.batchHandler.GetBatchByID)
		batches.POST("", staffOnly, deps.batchHandler.CreateBatch)
		batches.PUT("/:id", staffOnly, deps.batchHandler.UpdateBatch)
		batches.DELETE("/:id", adminOnly, deps.batchHandler.DeleteBatch)
	}

	sales := authenticated.Group("/sales")
	{
		sales.GET("", deps.saleHandler.GetSales)
		sales.GET("/:id", deps.saleHandler.GetSaleByID)
		sales.POST("", deps.saleHandler.CreateSale)
		sales.DELETE("/:id", staffOnly, deps.saleHandler.ReverseSale)
	}

	customers := authenticated.Group("/customers")
	{
		customers.GET("", deps.customerHandler.GetCustomers)
		customers.GET("/:id", deps.customerHandler.GetCustomerByID)
		customers.POST("", deps.customerHandler.CreateCustomer)
		customers.PUT("/:id", staffOnly, deps.customerHandler.UpdateCustomer)
		customers.DELETE("/:id", adminOnly, deps.customerHandler.DeleteCustomer)
	}

	users := authenticated.Group("/users", adminOnly)
	{
		users.GET("", deps.userHandler.GetUsers)
		users.GET("/roles", deps.userHandler.GetRoles)
		users.GET("/:id", deps.userHandler.GetUserByID)
		users.PUT("/:id", deps.userHandler.UpdateUser)
		users.PATCH("/:id/active", deps.userHandler.SetUserActive)
	}
	authenticated.POST("/auth/register", adminOnly, deps.authHandler.Register)

	imports := authenticated.Group("/imports", staffOnly)
	{
		imports.POST("/lots", deps.importHandler.ImportLots)
		imports.POST("/batches", deps.importHandler.ImportBatches)
	}

	reports := authenticated.Group("/reports", staffOnly)
	{
		reports.GET("/dashboard", handlers.GetDashboardSummary)
		reports.GET("/sales-by-day", handlers.GetSalesByDay)
		reports.GET("/top-products", handlers.GetTopProducts)
	}

	settings := authenticated.Group("/settings")
	{
		settings.GET("", handlers.GetSettings)
		settings.GET("/:key", handlers.GetSettingByKey)
		settings.PUT("/:key", adminOnly, handlers.UpsertSetting)
	}

	aiGroup := authenticated.Group("/ai", staffOnly)
	{
		aiGroup.POST("/interactions", deps.aiHandler.CheckInteractions)
		aiGroup.POST("/prescription-parse", deps.aiHandler.ParsePrescription)
		aiGroup.GET("/demand/:id", deps.aiHandler.PredictDemand)
	}
}
