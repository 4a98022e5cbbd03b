package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-backend/cart"
	"storefront-backend/controllers"
	"storefront-backend/database"
	"storefront-backend/kafka"
	aws_pkg "storefront-backend/pkg/aws"
	"storefront-backend/repository"
	"storefront-backend/routes"
	"storefront-backend/sender"
	"storefront-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// --- Database ---
	if err := database.Connect(logger, cfg.DBCredentials()); err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}

	// --- Redis (server-side cart) ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	cartStore := cart.NewStore(redisClient, 7*24*time.Hour)

	// --- AWS (optional SNS fan-out) ---
	var snsClient *aws_pkg.SNSClient
	if cfg.OrderSNSTopicARN != "" {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			logger.Warn("Failed to load AWS config, SNS fan-out disabled", zap.Error(err))
		} else {
			snsClient = aws_pkg.NewSNSClient(awsCfg)
		}
	}

	// --- Kafka ---
	orderEvents := kafka.NewOrderEventProducer(cfg.KafkaBrokers, cfg.OrderEventsTopic, logger)
	defer orderEvents.Close()

	// --- Email ---
	var emailSender sender.EmailSender
	if smtpSender, err := sender.NewSMTPSender(); err != nil {
		logger.Warn("SMTP not configured, confirmation emails disabled", zap.Error(err))
	} else {
		emailSender = smtpSender
	}

	// --- Payment providers ---
	stripeService := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	infinitepayClient := services.NewInfinitePayClient(
		cfg.InfinitePayBaseURL,
		cfg.InfinitePayHandle,
		cfg.InfinitePayAPIKey,
		cfg.WebhookBaseURL+"/webhooks/infinitepay",
	)

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())

	// Structured HTTP request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	})

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// --- Dependency injection ---
	orderRepo := repository.NewGormOrderRepository(database.DB)
	productRepo := repository.NewGormProductRepository(database.DB)
	affiliateRepo := repository.NewGormAffiliateRepository(database.DB)
	commissionRepo := repository.NewGormCommissionRepository(database.DB)
	couponRepo := repository.NewGormCouponRepository(database.DB)

	stockService := services.NewStockService(productRepo, logger)
	commissionService := services.NewCommissionService(commissionRepo, affiliateRepo, logger)
	checkoutService := services.NewCheckoutService(
		orderRepo, productRepo, affiliateRepo, commissionRepo, couponRepo,
		stripeService, infinitepayClient,
		cfg.Currency, cfg.MinOrderAmount, logger,
	)
	var snsPublisher services.TopicPublisher
	if snsClient != nil {
		snsPublisher = snsClient
	}
	confirmer := services.NewPaymentConfirmer(
		orderRepo, productRepo, stockService, commissionService,
		orderEvents, snsPublisher, cfg.OrderSNSTopicARN, emailSender, logger,
	)

	checkoutController := controllers.NewCheckoutController(checkoutService, cartStore, logger)
	webhookController := controllers.NewWebhookController(confirmer, checkoutService, stripeService, logger)
	orderController := controllers.NewOrderController(orderRepo, logger)
	affiliateController := controllers.NewAffiliateController(affiliateRepo, logger)
	couponController := controllers.NewCouponController(couponRepo, logger)
	cartController := controllers.NewCartController(cartStore, logger)

	routes.Register(r, checkoutController, webhookController, orderController, affiliateController, couponController, cartController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "storefront-backend"})
	})

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Storefront backend started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	httpShutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(httpShutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := database.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	log.Println("Storefront backend stopped gracefully")
}
