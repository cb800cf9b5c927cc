package route

import (
	"github.com/gofiber/fiber/v2"

	"orderkue_backend/internals/features/payments/webhooks/controller"
)

// WebhookRoutes: tanpa auth, Midtrans memanggil langsung.
func WebhookRoutes(api fiber.Router, ctl *controller.WebhookController) {
	wh := api.Group("/payments/midtrans")
	wh.Get("/webhook", ctl.Ping)
	wh.Post("/webhook", ctl.Notify)
}
