package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	_ "panpos/api/swagger" // swagger docs
	"panpos/internal/connectivity"
	"panpos/internal/database"
	"panpos/internal/gateway"
	"panpos/internal/handler"
	"panpos/internal/localstore"
	"panpos/internal/offline"
	"panpos/internal/repository"
	"panpos/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           PanPOS Sync API
// @version         1.0
// @description     Offline-capable POS and client ledger backend for a bakery distributor.
// @host            localhost:8080
// @BasePath        /
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "postgres")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}

	// Durable local store: cache, offline queue, suspended sales
	store, err := localstore.Open(envOr("LOCAL_DB_PATH", "panpos.db"))
	if err != nil {
		log.Fatalf("Local store initialization failed: %v", err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Gateway -> Facade -> Handler)
	txManager := repository.NewTransactionManager(db)
	productRepo := repository.NewProductRepository(db)
	clientRepo := repository.NewClientRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	suspendedRepo := repository.NewSuspendedSaleRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	appliedRepo := repository.NewAppliedActionRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	reportsRepo := repository.NewReportsRepository(db)

	gw := gateway.NewPostgresGateway(db,
		productRepo, clientRepo, saleRepo, paymentRepo, settingsRepo,
		suspendedRepo, expenseRepo, auditRepo, appliedRepo, movementRepo,
		txManager)

	gatewayTimeout := 10 * time.Second
	if raw := os.Getenv("SYNC_GATEWAY_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			gatewayTimeout = time.Duration(secs) * time.Second
		}
	}

	// Probe the backend once to decide the starting connectivity state
	probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	online := gw.Ping(probeCtx) == nil
	cancel()

	monitor := connectivity.NewMonitor(online)

	// Schema and seed data need a reachable backend; if we boot offline they
	// run on the first reconnect instead.
	var prepareOnce sync.Once
	prepareBackend := func() {
		prepareOnce.Do(func() {
			if err := database.Migrate(db); err != nil {
				log.Println("WARNING: Failed to auto-migrate models:", err)
				return
			}
			if err := database.Seed(db); err != nil {
				log.Println("WARNING: Failed to seed initial data:", err)
			}
			// Idempotency markers only matter while their action could still
			// be replayed; prune anything older than the retention window.
			cutoff := time.Now().AddDate(0, 0, -30)
			if err := appliedRepo.DeleteOlderThan(context.Background(), cutoff); err != nil {
				log.Println("WARNING: Failed to prune applied actions:", err)
			}
		})
	}
	monitor.Subscribe(func(nowOnline bool) {
		if nowOnline {
			prepareBackend()
		}
	})
	if online {
		log.Println("Connected to PostgreSQL successfully.")
		prepareBackend()
	} else {
		log.Println("Backend unreachable, starting in offline mode.")
	}

	facade := offline.New(store, gw, monitor, wsHub, offline.Config{
		GatewayTimeout: gatewayTimeout,
		User:           envOr("POS_OPERATOR", "operator"),
	})

	// Initialize Handlers
	posHandler := handler.NewPOSHandler(facade)
	adminHandler := handler.NewAdminHandler(facade, monitor, auditRepo, reportsRepo, movementRepo)
	syncHandler := handler.NewSyncHandler(facade, monitor)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK", "online": monitor.IsOnline()})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	// Register API Routes
	posHandler.RegisterRoutes(router.Group(""))
	adminHandler.RegisterRoutes(router.Group(""))
	syncHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
