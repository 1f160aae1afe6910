package router

import (
	"database/sql"
	"net/http"
	"time"

	"pharmacare_backend/internal/ai"
	"pharmacare_backend/internal/handlers"
	"pharmacare_backend/internal/repositories"
	"pharmacare_backend/internal/services"
	"pharmacare_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Setup builds the Gin engine with all repositories, services, handlers and
// route groups wired together.
func Setup(db *sql.DB) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.GinLogger())

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{utils.Getenv("CORS_ALLOW_ORIGIN", "*")},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	txBeginner := repositories.NewTxBeginner(db)

	productRepo := repositories.NewProductRepository(db)
	inventoryRepo := repositories.NewInventoryRepository(db)
	batchRepo := repositories.NewBatchRepository(db)
	saleRepo := repositories.NewSaleRepository(db)
	customerRepo := repositories.NewCustomerRepository(db)
	authRepo := repositories.NewAuthRepository(db)

	productService := services.NewProductService(productRepo, txBeginner)
	inventoryService := services.NewInventoryService(inventoryRepo, productRepo, txBeginner)
	batchService := services.NewBatchService(batchRepo, productRepo, txBeginner)
	saleService := services.NewSaleService(saleRepo, inventoryRepo, batchRepo, productRepo, customerRepo, txBeginner)
	customerService := services.NewCustomerService(customerRepo, saleRepo, txBeginner)
	authService := services.NewAuthService(authRepo, txBeginner)
	userService := services.NewUserService(authRepo, txBeginner)
	importService := services.NewImportService(productRepo, inventoryRepo, batchRepo, txBeginner)
	aiService := services.NewAIService(ai.NewClientFromEnv(), productRepo, inventoryRepo)

	deps := handlerDependencies{
		productHandler:   handlers.NewProductHandler(productService),
		inventoryHandler: handlers.NewInventoryHandler(inventoryService),
		batchHandler:     handlers.NewBatchHandler(batchService),
		saleHandler:      handlers.NewSaleHandler(saleService),
		customerHandler:  handlers.NewCustomerHandler(customerService),
		authHandler:      handlers.NewAuthHandler(authService),
		userHandler:      handlers.NewUserHandler(userService),
		importHandler:    handlers.NewImportHandler(importService),
		aiHandler:        handlers.NewAIHandler(aiService),
	}

	registerRoutes(engine, deps)
	return engine
}

type handlerDependencies struct {
	productHandler   *handlers.ProductHandler
	inventoryHandler *handlers.InventoryHandler
	batchHandler     *handlers.BatchHandler
	saleHandler      *handlers.SaleHandler
	customerHandler  *handlers.CustomerHandler
	authHandler      *handlers.AuthHandler
	userHandler      *handlers.UserHandler
	importHandler    *handlers.ImportHandler
	aiHandler        *handlers.AIHandler
}
