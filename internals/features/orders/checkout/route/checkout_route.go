package route

import (
	"github.com/gofiber/fiber/v2"

	"orderkue_backend/internals/features/orders/checkout/controller"
	"orderkue_backend/internals/middlewares"
)

// CheckoutRoutes: prefix /api/payments
func CheckoutRoutes(api fiber.Router, ctl *controller.CheckoutController) {
	payments := api.Group("/payments")
	payments.Post("/initiate", middlewares.PaymentRateLimiter(), ctl.InitiatePayment)
}
