package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/pkg/fileshare"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/cache"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/consumer"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/controllers"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/database"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/routes"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	"github.com/yashrajoria/abc-retailers/backend/services/common/auth"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
	"github.com/yashrajoria/abc-retailers/backend/services/common/logger"
	"github.com/yashrajoria/abc-retailers/backend/services/common/middleware"
)

const (
	serviceName    = "backoffice"
	requestTimeout = 30 * time.Second
)

func main() {
	ctx := context.Background()

	// --- 1. Configuration & logging ---

	cfg, err := LoadConfig(ctx)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		panic("failed to load AWS config: " + err.Error())
	}

	var cwWriter *awspkg.CloudWatchLogsClient
	if cfg.CloudWatchEnabled {
		cwWriter, err = awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchGroup, serviceName, true)
		if err != nil {
			panic("failed to initialize CloudWatch Logs: " + err.Error())
		}
	}
	var log *zap.Logger
	if cwWriter != nil {
		log, err = logger.New(cfg.Env, cwWriter)
	} else {
		log, err = logger.New(cfg.Env, nil)
	}
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	metrics := awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.MetricsEnabled)

	// --- 2. Stores ---

	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to connect to user database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("Failed to close user database", zap.Error(err))
		}
	}()

	ddb := dynamodb.NewClientFromConfig(awsCfg)
	productRepo := repository.NewProductRepository(dynamodb.NewTable(ddb, cfg.ProductsTable))
	customerRepo := repository.NewCustomerRepository(dynamodb.NewTable(ddb, cfg.CustomersTable))
	orderRepo := repository.NewOrderRepository(dynamodb.NewTable(ddb, cfg.OrdersTable))
	cartRepo := repository.NewCartRepository(dynamodb.NewTable(ddb, cfg.CartTable))
	userRepo := repository.NewUserRepository(db)

	blobs := awspkg.NewS3BlobStore(awspkg.NewS3Client(awsCfg))

	minioClient, err := fileshare.NewMinioClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioSecure)
	if err != nil {
		log.Fatal("Failed to create MinIO client", zap.Error(err))
	}
	share := fileshare.NewMinioShare(minioClient)

	sqsClient := awspkg.NewSQSClient(awsCfg)
	if cfg.OrderQueueURL == "" {
		cfg.OrderQueueURL, err = awspkg.GetQueueURL(ctx, sqsClient, cfg.OrderQueueName)
		if err != nil {
			log.Fatal("Failed to resolve order queue", zap.String("queue", cfg.OrderQueueName), zap.Error(err))
		}
	}
	orderQueue := awspkg.NewSQSQueue(sqsClient, cfg.OrderQueueURL, awspkg.QueueOptions{
		DeadLetterURL: cfg.OrderDLQURL,
		MaxReceives:   cfg.ConsumerMaxReceives,
		Workers:       cfg.ConsumerWorkers,
	}, log.Named("order-queue"))

	var events awspkg.SNSPublisher
	if cfg.OrderEventTopicArn != "" {
		events = awspkg.NewSNSClient(awsCfg)
	}

	var dashCache services.Cache
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			dashCache = cache.NewRedisCache(redisClient, serviceName)
		}
	}

	// --- 3. Services ---

	stock := services.NewStockReserver(productRepo, cfg.StockReserveAttempts, metrics, log)
	dispatcher := services.NewOrderDispatcher(orderQueue, events, cfg.OrderEventTopicArn, metrics, log)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)

	cartService := services.NewCartService(cartRepo, productRepo, log)
	checkoutService := services.NewCheckoutService(cartRepo, productRepo, orderRepo, customerRepo, stock, dispatcher, metrics, log)
	orderService := services.NewOrderService(orderRepo, customerRepo, productRepo, stock, dispatcher, metrics, log)
	productService := services.NewProductService(productRepo, blobs, cfg.ImagesBucket, metrics, log)
	customerService := services.NewCustomerService(customerRepo, log)
	fileService := services.NewFileService(blobs, share, services.FileLocations{
		BlobContainer:  cfg.DocumentsBucket,
		Share:          cfg.FileShare,
		ShareDirectory: cfg.ShareDirectory,
	}, metrics, log)
	authService := services.NewAuthService(userRepo, customerRepo, tokens, log)
	dashboardService := services.NewDashboardService(customerRepo, productRepo, orderRepo, orderQueue, dashCache, cfg.DashboardCacheTTL, metrics, log)

	// --- 4. Queue consumer ---

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	consumerDone := make(chan struct{})
	if cfg.ConsumerEnabled {
		confirmations := consumer.NewOrderConfirmationConsumer(orderQueue, orderService, metrics, log.Named("order-consumer"))
		go func() {
			defer close(consumerDone)
			confirmations.Start(consumerCtx)
		}()
	} else {
		close(consumerDone)
	}

	// --- 5. HTTP server ---

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
	})
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middleware.MetricsMiddleware(metrics, serviceName))
	r.Use(apperrors.ErrorMiddleware())

	validator := controllers.NewRequestValidator()
	routes.RegisterRoutes(r, routes.Controllers{
		Auth:      controllers.NewAuthController(authService, validator, tokens.TTL(), cfg.SecureCookies),
		Cart:      controllers.NewCartController(cartService, checkoutService, validator),
		Products:  controllers.NewProductController(productService, dashboardService, validator),
		Customers: controllers.NewCustomerController(customerService, dashboardService, validator),
		Orders:    controllers.NewOrderController(orderService, dashboardService, validator),
		Files:     controllers.NewFileController(fileService),
		Dashboard: controllers.NewDashboardController(dashboardService),
	}, routes.Options{
		Tokens:            tokens,
		AuthRatePerMinute: cfg.AuthRatePerMinute,
		AuthRateBurst:     cfg.AuthRateBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Back-office service starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- 6. Graceful shutdown ---

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down back-office service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	stopConsumer()
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warn("Order consumer did not stop before the shutdown deadline")
	}

	log.Info("Back-office service stopped gracefully")
}
