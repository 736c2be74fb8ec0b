package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/config"
	"marketplace/internal/api"
	"marketplace/internal/broker"
	"marketplace/internal/catalog"
	"marketplace/internal/i18n"
	"marketplace/internal/layout"
	"marketplace/internal/pages"
	"marketplace/internal/redisclient"
	"marketplace/internal/router"
	"marketplace/internal/service"
	"marketplace/internal/session"
	"marketplace/internal/store"
	"marketplace/internal/util"
	"marketplace/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const sessionSweepInterval = time.Minute

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting marketplace")

	tp, err := util.InitTracer("marketplace", cfg.Observ.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	migrateCancel()
	logger.Info("Database connected")

	// carts, checkout locks and the cross-instance cart feed all live in Redis
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		cfg.Redis.CartChannel, cfg.Redis.CartTTL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected", zap.String("origin", redisClient.Origin()))
	if cfg.Redis.CartTTL < cfg.Web.SessionTTL {
		logger.Warn("Carts expire before the sessions that own them",
			zap.Duration("cart_ttl", cfg.Redis.CartTTL),
			zap.Duration("session_ttl", cfg.Web.SessionTTL))
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

	eventPublisher := broker.NewEventPublisher(producer)

	for sub, mains := range catalog.Default.Collisions() {
		logger.Warn("Subcategory declared under several main categories; lookups use the first",
			zap.String("subcategory", sub), zap.Strings("mains", mains))
	}

	stockService := service.NewStockService(db)
	catalogService := service.NewCatalogService(db, catalog.Default)
	orderService := service.NewOrderService(db, stockService, eventPublisher, redisClient, service.PricingConfig{
		TaxRate:        cfg.Business.TaxRate,
		DepositOptions: cfg.Business.DepositOptions,
	})
	paymentService := service.NewPaymentService(db, eventPublisher, cfg.Business.PaymentSuccessRate)
	sagaOrchestrator := service.NewSagaOrchestrator(db, stockService, eventPublisher)
	invoiceService := service.NewInvoiceService(db)
	profileService := service.NewProfileService(db)
	supportService := service.NewSupportService(db)
	dashboardService := service.NewDashboardService(db)

	translator, err := i18n.New()
	if err != nil {
		logger.Fatal("Failed to load translations", zap.Error(err))
	}

	pageRouter := router.New(cfg.Web.BasePath)
	sitePages, err := pages.New(pages.Deps{
		Catalog:        catalogService,
		Orders:         orderService,
		Invoices:       invoiceService,
		Profiles:       profileService,
		Support:        supportService,
		Dashboard:      dashboardService,
		Translator:     translator,
		Router:         pageRouter,
		PageSize:       cfg.Web.PageSize,
		DepositOptions: cfg.Business.DepositOptions,
		DefaultDeposit: cfg.Business.DefaultDeposit,
		Currency:       cfg.Business.Currency,
	})
	if err != nil {
		logger.Fatal("Failed to parse page templates", zap.Error(err))
	}
	sitePages.Register(pageRouter)

	composer, err := layout.NewComposer(pageRouter, translator)
	if err != nil {
		logger.Fatal("Failed to parse layout", zap.Error(err))
	}

	sessions := session.NewManager(redisClient, pageRouter, cfg.Redis.CartKeyPrefix, cfg.Web.SessionTTL)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	orderWorker := worker.NewOrderWorker(orderConsumer, sagaOrchestrator)

	paymentConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup+"-payments")
	paymentWorker := worker.NewPaymentWorker(paymentConsumer, paymentService)

	background, bgCtx := errgroup.WithContext(workerCtx)
	background.Go(func() error { return orderWorker.Start(bgCtx) })
	background.Go(func() error { return paymentWorker.Start(bgCtx) })
	background.Go(func() error {
		// without the feed carts still work, only cross-instance widget updates stop
		if err := sessions.WatchCartChanges(bgCtx, redisClient); err != nil && bgCtx.Err() == nil {
			logger.Error("Cart change feed stopped", zap.Error(err))
		}
		return nil
	})
	background.Go(func() error {
		sessions.RunSweeper(bgCtx, sessionSweepInterval)
		return nil
	})

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ready := func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := redisClient.GetClient().Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}

	engine := gin.New()
	handler := api.NewHandler(api.Deps{
		Sessions:   sessions,
		Router:     pageRouter,
		Composer:   composer,
		Pages:      sitePages,
		Translator: translator,
		Catalog:    catalogService,
		Orders:     orderService,
		Invoices:   invoiceService,
		Profiles:   profileService,
		Support:    supportService,
		Payments:   paymentService,
		Ready:      ready,
		SessionTTL: cfg.Web.SessionTTL,
		Secure:     cfg.Web.SecureCookies,
	})
	handler.SetupRoutes(engine)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port), zap.String("base", pageRouter.Base()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := background.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Background task stopped with error", zap.Error(err))
	}
	if err := orderWorker.Stop(); err != nil {
		logger.Warn("Failed to close order consumer", zap.Error(err))
	}
	if err := paymentWorker.Stop(); err != nil {
		logger.Warn("Failed to close payment consumer", zap.Error(err))
	}

	logger.Info("Server exited")
}
