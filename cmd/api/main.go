package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/api"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/api/handler"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/api/middleware"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/application"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/config"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/payment"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/postgres"
	redisinfra "github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/infrastructure/redis"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/pkg/logger"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/pkg/metrics"
	"github.com/AliRizaSevgili/HeartPotteryStudio-WebProject/internal/worker"
)

func main() {
	cfg := config.Load()
	defer logger.Sync()

	m := metrics.Init()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗", zap.Error(err))
	}
	defer db.Close()

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
		logger.Fatal("マイグレーションに失敗", zap.Error(err))
	}

	// Redis
	redisClient, err := redisinfra.NewClient(&redisinfra.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal("Redis接続に失敗", zap.Error(err))
	}
	defer redisClient.Close()

	// リポジトリ
	txManager := postgres.NewTxManager(db)
	reservationRepo := postgres.NewReservationRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	classRepo := postgres.NewClassRepository(db)
	orderRepo := postgres.NewOrderRepository(db)

	availabilityCache := redisinfra.NewAvailabilityCache(redisClient)
	promoStore := redisinfra.NewPromoStore(redisClient)
	lockManager := redisinfra.NewLockManager(redisClient)

	// 決済ゲートウェイ
	gateway := payment.NewHTTPGateway(&payment.Config{
		BaseURL:       cfg.Payment.BaseURL,
		APIKey:        cfg.Payment.APIKey,
		WebhookSecret: cfg.Payment.WebhookSecret,
		SuccessURL:    cfg.Payment.SuccessURL,
		CancelURL:     cfg.Payment.CancelURL,
	})

	// アプリケーションサービス
	reservationService := application.NewReservationService(
		txManager, reservationRepo, slotRepo, orderRepo,
		availabilityCache,
		cfg.Reservation.HoldTTL, cfg.Reservation.AvailabilityCacheTTL,
		m,
	)
	catalogService := application.NewCatalogService(classRepo, slotRepo, reservationService)
	cartService := application.NewCartService(reservationRepo, slotRepo, classRepo, promoStore, reservationService)
	checkoutService := application.NewCheckoutService(cartService, reservationService, reservationRepo, gateway, promoStore)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Validator = api.NewValidator()
	middleware.SetupMiddleware(e)
	e.Use(middleware.SessionID())
	e.Use(middleware.PrometheusMiddleware(m))

	// ハンドラー
	healthHandler := handler.NewHealthHandler()
	catalogHandler := handler.NewCatalogHandler(catalogService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	cartHandler := handler.NewCartHandler(cartService)
	paymentHandler := handler.NewPaymentHandler(checkoutService)

	// ルーティング
	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)

	v1.GET("/classes", catalogHandler.ListClasses)
	v1.GET("/classes/:slug", catalogHandler.GetClass)
	v1.GET("/classes/:id/slots", catalogHandler.ListSlots)
	v1.GET("/slots/:id/availability", catalogHandler.GetAvailability)

	v1.POST("/holds", reservationHandler.CreateOrRenew)
	v1.GET("/holds/:id", reservationHandler.GetByID)
	v1.POST("/holds/:id/cancel", reservationHandler.Cancel)

	v1.GET("/cart", cartHandler.Get)
	v1.POST("/cart/promo", cartHandler.ApplyPromo)
	v1.DELETE("/cart/promo", cartHandler.RemovePromo)

	v1.POST("/checkout", paymentHandler.StartCheckout)
	v1.POST("/webhooks/payment", paymentHandler.Webhook)

	// 決済ゲートウェイのリダイレクト先。Webhookが欠落しても確定できる
	e.GET("/payment-success", paymentHandler.ConfirmFallback)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth())

	// 期限切れホールドスイーパー
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()

	sweeper := worker.NewExpirySweeper(reservationService, lockManager, cfg.Reservation.SweepInterval, m)
	go sweeper.Start(sweeperCtx)

	// サーバー起動
	go func() {
		addr := ":" + cfg.Server.Port
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	sweeperCancel()
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
