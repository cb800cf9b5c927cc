package middlewares

import (
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
)

// RecoveryMiddleware menangkap panic dan mengembalikan error 500
func RecoveryMiddleware() fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			log.WithFields(log.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"reqid":  c.Locals("reqid"),
				"panic":  e,
			}).Error(string(debug.Stack()))
		},
	})
}
