package middlewares

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/utils"
	log "github.com/sirupsen/logrus"

	"orderkue_backend/internals/configs"
	"orderkue_backend/internals/middlewares/logger"
)

// Batas waktu per request; inisiasi pembayaran menunggu Midtrans sampai ~20s.
const requestTimeout = 30 * time.Second

func SetupMiddlewares(app *fiber.App, cfg *configs.Config) {
	app.Use(RecoveryMiddleware())
	app.Use(RequestID())
	app.Use(logger.LoggerMiddleware("/ws/chat", "/health"))
	app.Use(CorsMiddleware(cfg.AllowedOrigins))

	// ⚙️ performa
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())
}

// RequestID: X-Request-ID + timeout context + log durasi.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)

		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
		defer cancel()
		c.SetUserContext(ctx)

		err := c.Next()
		log.WithFields(log.Fields{
			"reqid":  id,
			"method": c.Method(),
			"path":   c.OriginalURL(),
			"status": c.Response().StatusCode(),
			"dur":    time.Since(start).String(),
		}).Debug("[REQ]")
		return err
	}
}
