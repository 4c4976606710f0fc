package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/skillhub/marketplace-api/internal/config"
	"github.com/skillhub/marketplace-api/internal/gateway"
	"github.com/skillhub/marketplace-api/internal/handler"
	"github.com/skillhub/marketplace-api/internal/middleware"
	"github.com/skillhub/marketplace-api/internal/model"
	"github.com/skillhub/marketplace-api/internal/repository"
	"github.com/skillhub/marketplace-api/internal/service"
	"github.com/skillhub/marketplace-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Payment gateway
	gatewayClient := gateway.NewClient(cfg.Gateway)

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	serviceRepo := repository.NewServiceRepository(dbPool)
	reviewRepo := repository.NewReviewRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	notificationRepo := repository.NewNotificationRepository(dbPool)
	earningsRepo := repository.NewEarningsRepository(dbPool)
	savedRepo := repository.NewSavedServiceRepository(dbPool)
	analyticsRepo := repository.NewAnalyticsRepository(dbPool)
	paymentRepo := repository.NewPaymentRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	catalogSvc := service.NewCatalogService(serviceRepo, categoryRepo, redisClient)
	reviewSvc := service.NewReviewService(reviewRepo, serviceRepo, orderRepo, redisClient, amqpCh)
	orderSvc := service.NewOrderService(orderRepo, serviceRepo, amqpCh)
	notificationSvc := service.NewNotificationService(notificationRepo)
	dashboardSvc := service.NewDashboardService(analyticsRepo, earningsRepo, savedRepo, serviceRepo)
	paymentSvc := service.NewPaymentService(paymentRepo, orderRepo, userRepo, gatewayClient, cfg.Gateway.Currency, amqpCh)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	catalogH := handler.NewCatalogHandler(catalogSvc, reviewSvc)
	reviewH := handler.NewReviewHandler(reviewSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	notificationH := handler.NewNotificationHandler(notificationSvc)
	dashboardH := handler.NewDashboardHandler(dashboardSvc, catalogSvc, reviewSvc, orderSvc)
	paymentH := handler.NewPaymentHandler(paymentSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	notificationWorker := worker.NewNotificationWorker(amqpCh, notificationRepo, redisClient, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	authed := middleware.AuthMiddleware(cfg.JWT.Secret)
	sellerOnly := middleware.RequireRole(model.RoleSeller)
	buyerOnly := middleware.RequireRole(model.RoleBuyer)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.GET("/verify-email/:token", authH.VerifyEmail)

		v1.GET("/categories", catalogH.ListCategories)

		services := v1.Group("/services")
		services.GET("", catalogH.List)
		services.GET("/:id", catalogH.GetByID)
		services.GET("/:id/reviews", catalogH.ListReviews)
		services.GET("/:id/stats", catalogH.ReviewStats)
		services.POST("", authed, sellerOnly, catalogH.Create)
		services.PUT("/:id", authed, sellerOnly, catalogH.Update)
		services.DELETE("/:id", authed, sellerOnly, catalogH.Delete)
		services.POST("/:id/reviews", authed, buyerOnly, reviewH.Create)

		v1.GET("/sellers/:id/services", catalogH.ListBySeller)

		reviews := v1.Group("/reviews", authed)
		reviews.PUT("/:id", buyerOnly, reviewH.Update)
		reviews.DELETE("/:id", buyerOnly, reviewH.Delete)
		reviews.POST("/:id/helpful", reviewH.VoteHelpful)

		orders := v1.Group("/orders", authed)
		orders.POST("", buyerOnly, orderH.Create)
		orders.GET("", orderH.List)
		orders.GET("/:id", orderH.GetByID)
		orders.PATCH("/:id/status", orderH.UpdateStatus)
		orders.GET("/:id/messages", orderH.ListMessages)
		orders.POST("/:id/messages", orderH.CreateMessage)
		orders.GET("/:id/files", orderH.ListFiles)
		orders.POST("/:id/files", orderH.CreateFile)

		notifications := v1.Group("/notifications", authed)
		notifications.GET("", notificationH.List)
		notifications.POST("/:id/read", notificationH.MarkRead)
		notifications.POST("/read-all", notificationH.MarkAllRead)

		seller := v1.Group("/seller", authed, sellerOnly)
		seller.GET("/analytics", dashboardH.SellerAnalytics)
		seller.GET("/earnings", dashboardH.SellerEarnings)
		seller.GET("/earnings/summary", dashboardH.SellerEarningsSummary)
		seller.GET("/orders", orderH.List)
		seller.GET("/services", dashboardH.SellerServices)
		seller.GET("/reviews", dashboardH.SellerReviews)

		buyer := v1.Group("/buyer", authed, buyerOnly)
		buyer.GET("/analytics", dashboardH.BuyerAnalytics)
		buyer.GET("/orders", orderH.List)
		buyer.GET("/orders/stats", dashboardH.BuyerOrderStats)
		buyer.GET("/reviews", dashboardH.BuyerReviews)
		buyer.GET("/saved-services", dashboardH.SavedServices)
		buyer.POST("/saved-services", dashboardH.SaveService)
		buyer.DELETE("/saved-services/:id", dashboardH.RemoveSaved)
		buyer.POST("/toggle-save", dashboardH.ToggleSave)
		buyer.GET("/spending-summary", dashboardH.BuyerSpendingSummary)

		payments := v1.Group("/payments")
		payments.POST("/initiate/:orderID", authed, buyerOnly, paymentH.Initiate)
		payments.GET("", authed, buyerOnly, paymentH.List)
		payments.GET("/methods", paymentH.Methods)
		payments.GET("/:id", authed, buyerOnly, paymentH.GetByID)

		// Gateway callbacks arrive from SSLCommerz without a bearer token;
		// HandleSuccess re-verifies against the validator API before trusting them.
		gatewayCallbacks := payments.Group("/gateway")
		gatewayCallbacks.POST("/success", paymentH.GatewaySuccess)
		gatewayCallbacks.POST("/failed", paymentH.GatewayFailed)
		gatewayCallbacks.POST("/cancelled", paymentH.GatewayCancelled)
		gatewayCallbacks.POST("/ipn", paymentH.GatewayIPN)
	}

	if err := notificationWorker.Start(ctx); err != nil {
		log.Error("start notification worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	notificationWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
