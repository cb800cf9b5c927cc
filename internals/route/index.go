package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"orderkue_backend/internals/configs"
	"orderkue_backend/internals/features/chat/realtime"
	chatController "orderkue_backend/internals/features/chat/sessions/controller"
	checkoutController "orderkue_backend/internals/features/orders/checkout/controller"
	webhookController "orderkue_backend/internals/features/payments/webhooks/controller"
	"orderkue_backend/internals/middlewares"
	"orderkue_backend/internals/middlewares/auth"
	routeDetails "orderkue_backend/internals/route/details"
)

// Deps: semua komponen yang dirakit di main.
type Deps struct {
	DB         *gorm.DB
	Cfg        *configs.Config
	Hub        *realtime.Hub
	Checkout   checkoutController.Initiator
	Reconciler webhookController.Handler
	ChatStore  chatController.Store
}

var startTime time.Time

func SetupRoutes(app *fiber.App, d Deps) {
	startTime = time.Now()

	log.Info("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, d.DB)

	api := app.Group("/api", middlewares.GlobalRateLimiter())
	authMw := auth.AuthMiddleware(d.DB, d.Cfg.JWTSecret)

	log.Info("[INFO] Mounting Payment routes...")
	routeDetails.PaymentRoutes(api, d.Checkout, d.Reconciler)

	log.Info("[INFO] Mounting Chat routes...")
	routeDetails.ChatRoutes(app, api, d.ChatStore, d.Hub, authMw)
}
