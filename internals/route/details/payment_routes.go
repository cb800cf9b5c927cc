package details

import (
	"github.com/gofiber/fiber/v2"

	checkoutController "orderkue_backend/internals/features/orders/checkout/controller"
	checkoutRoute "orderkue_backend/internals/features/orders/checkout/route"
	webhookController "orderkue_backend/internals/features/payments/webhooks/controller"
	webhookRoute "orderkue_backend/internals/features/payments/webhooks/route"
)

func PaymentRoutes(api fiber.Router, initiator checkoutController.Initiator, handler webhookController.Handler) {
	checkoutRoute.CheckoutRoutes(api, checkoutController.NewCheckoutController(initiator))
	webhookRoute.WebhookRoutes(api, webhookController.NewWebhookController(handler))
}
