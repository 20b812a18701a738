package main

import (
	"log"
	"strings"

	"channel-inventory-service/internal/config"
	"channel-inventory-service/internal/crypto"
	"channel-inventory-service/internal/database"
	"channel-inventory-service/internal/events"
	"channel-inventory-service/internal/handlers"
	"channel-inventory-service/internal/middleware"
	"channel-inventory-service/internal/models"
	"channel-inventory-service/internal/repository"
	"channel-inventory-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "development" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.ChannelCredential{},
		&models.Product{},
		&models.InventoryItem{},
		&models.ChannelOrder{},
		&models.ChannelProduct{},
		&models.ChannelProductOption{},
		&models.ChannelStock{},
		&models.Warehouse{},
		&models.WarehouseStock{},
		&models.StockTransfer{},
		&models.StockTransferItem{},
		&models.SyncLog{},
	); err != nil {
		log.Printf("Warning: Auto-migration failed: %v", err)
	}
	log.Println("Database models migrated")

	var cipher *crypto.SecretCipher
	if cfg.CredentialEncryptionKey != "" {
		cipher, err = crypto.NewSecretCipher(cfg.CredentialEncryptionKey)
		if err != nil {
			log.Fatalf("Failed to initialize secret cipher: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Printf("Redis caching enabled (%s)", cfg.RedisAddr)
	}

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, logrus.StandardLogger())
		if err != nil {
			log.Printf("Warning: NATS unavailable, events disabled: %v", err)
		} else {
			defer publisher.Close()
		}
	}

	credentialRepo := repository.NewCredentialRepository(db, cipher)
	channelRepo := repository.NewChannelRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db, redisClient)
	syncLogRepo := repository.NewSyncLogRepository(db)
	transferRepo := repository.NewTransferRepository(db)

	syncService := services.NewSyncService(credentialRepo, channelRepo, syncLogRepo, publisher, cfg.SyncBatchSize, cfg.SyncPageSize)
	aggregationService := services.NewAggregationService(inventoryRepo, channelRepo)
	transferService := services.NewTransferService(transferRepo, inventoryRepo, publisher)

	healthHandler := handlers.NewHealthHandler(db)
	syncHandler := handlers.NewSyncHandler(syncService, syncLogRepo)
	inventoryHandler := handlers.NewInventoryHandler(aggregationService, inventoryRepo)
	warehouseHandler := handlers.NewWarehouseHandler(inventoryRepo)
	transferHandler := handlers.NewTransferHandler(transferService)
	credentialHandler := handlers.NewCredentialHandler(credentialRepo)

	router := setupRouter(cfg, healthHandler, syncHandler, inventoryHandler, warehouseHandler, transferHandler, credentialHandler)

	log.Printf("Channel Inventory Service starting on port %s (env: %s)", cfg.Port, cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	syncHandler *handlers.SyncHandler,
	inventoryHandler *handlers.InventoryHandler,
	warehouseHandler *handlers.WarehouseHandler,
	transferHandler *handlers.TransferHandler,
	credentialHandler *handlers.CredentialHandler,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())

	var origins []string
	if cfg.CORSAllowedOrigins != "" {
		origins = strings.Split(cfg.CORSAllowedOrigins, ",")
	} else {
		origins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}
	router.Use(middleware.CORS(origins))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		sync := v1.Group("/sync")
		{
			sync.POST("/:channel/orders", syncHandler.SyncOrders)
			sync.POST("/:channel/products", syncHandler.SyncProducts)
			sync.POST("/:channel/inventory", syncHandler.SyncInventory)
			sync.GET("/logs", syncHandler.ListLogs)
		}

		inventory := v1.Group("/inventory")
		{
			inventory.GET("", inventoryHandler.List)
			inventory.GET("/stats", inventoryHandler.Stats)
			inventory.GET("/:sku/history", inventoryHandler.History)
		}

		warehouses := v1.Group("/warehouses")
		{
			warehouses.GET("", warehouseHandler.List)
			warehouses.POST("", warehouseHandler.Create)
			warehouses.GET("/:id", warehouseHandler.Get)
			warehouses.PATCH("/:id", warehouseHandler.Update)
			warehouses.DELETE("/:id", warehouseHandler.Delete)
		}

		transfers := v1.Group("/transfers")
		{
			transfers.GET("", transferHandler.List)
			transfers.POST("", transferHandler.Create)
			transfers.GET("/:id", transferHandler.Get)
			transfers.POST("/:id/cancel", transferHandler.Cancel)
			transfers.PATCH("/:id/status", transferHandler.UpdateStatus)
			transfers.DELETE("/:id", transferHandler.Delete)
		}

		credentials := v1.Group("/credentials")
		{
			credentials.GET("", credentialHandler.List)
			credentials.POST("", credentialHandler.Create)
			credentials.PATCH("/:id/active", credentialHandler.SetActive)
		}
	}

	return router
}
