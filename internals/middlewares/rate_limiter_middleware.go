package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	helper "orderkue_backend/internals/helpers"
)

func ipLimiter(max int, exp time.Duration, msg string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: exp,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		// webhook Midtrans tidak boleh kena limit
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/payments/midtrans/webhook"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return helper.JsonError(c, fiber.StatusTooManyRequests, msg)
		},
	})
}

// Global limiter: untuk semua endpoint biasa
func GlobalRateLimiter() fiber.Handler {
	return ipLimiter(100, 1*time.Minute, "❌ Terlalu banyak permintaan. Silakan coba lagi nanti.")
}

// Rate limiter untuk inisiasi pembayaran (lebih ketat)
func PaymentRateLimiter() fiber.Handler {
	return ipLimiter(10, 1*time.Minute, "❌ Terlalu banyak percobaan pembayaran. Coba beberapa saat lagi.")
}
