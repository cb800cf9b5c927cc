package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"orderkue_backend/internals/configs"
	database "orderkue_backend/internals/databases"
	catalogService "orderkue_backend/internals/features/catalog/products/service"
	"orderkue_backend/internals/features/chat/realtime"
	"orderkue_backend/internals/features/chat/sessions/scheduler"
	chatService "orderkue_backend/internals/features/chat/sessions/service"
	checkoutService "orderkue_backend/internals/features/orders/checkout/service"
	"orderkue_backend/internals/features/payments/gateway"
	webhookService "orderkue_backend/internals/features/payments/webhooks/service"
	staffService "orderkue_backend/internals/features/users/staff/service"
	helper "orderkue_backend/internals/helpers"
	middlewares "orderkue_backend/internals/middlewares"
	"orderkue_backend/internals/middlewares/auth"
	routes "orderkue_backend/internals/route"
)

func main() {
	configs.LoadEnv()
	configs.SetupLogger()
	cfg := configs.Load()

	app := fiber.New(fiber.Config{
		// 🚀 JSON super cepat
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		ErrorHandler:            helper.ErrorHandler,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
	})

	middlewares.SetupMiddlewares(app, cfg)

	// 🔌 DB connect + pool + migrate + warm-up
	db := database.ConnectDB(cfg)
	database.TunePool(db)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ migrate gagal: %v", err)
	}
	database.WarmUpQueries(db)

	// 💬 realtime hub
	chatStore := chatService.NewChatStore(db)
	hub := realtime.NewHub(chatStore, auth.NewVerifier(db, cfg.JWTSecret), cfg.ChatCleanupDelay)

	// 💳 pembayaran
	catalog := catalogService.NewClient(cfg.BackendURL)
	manager := checkoutService.NewTransactionManager(
		db,
		gateway.NewSnapGateway(cfg.MidtransServerKey, cfg.MidtransUseProd),
		catalog,
		staffService.NewFirstActiveStaff(cfg.DefaultStaffID),
		hub,
	)
	reconciler := webhookService.NewReconciler(db, catalog, hub, webhookService.Options{
		ServerKey:       cfg.MidtransServerKey,
		VerifySignature: cfg.MidtransVerifySignature,
	})

	// ⏱ janitor setelah DB siap
	janitor, err := scheduler.NewJanitor(chatStore, cfg.ChatCleanupDelay, cfg.ChatSweepSpec).Start()
	if err != nil {
		log.Fatalf("❌ janitor gagal start: %v", err)
	}

	// ✅ Routes
	routes.SetupRoutes(app, routes.Deps{
		DB:         db,
		Cfg:        cfg,
		Hub:        hub,
		Checkout:   manager,
		Reconciler: reconciler,
		ChatStore:  chatStore,
	})

	// 🔒 Keep-Alive & timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	go func() {
		log.Infof("✅ Listening on :%s", cfg.Port)
		if err := app.Listen("0.0.0.0:" + cfg.Port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: http → hub → cron → DB
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("🛑 shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.WithError(err).Warn("shutdown http")
	}
	hub.Close()
	<-janitor.Stop().Done()
	database.Close(db)
}
