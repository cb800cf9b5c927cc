package logger

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// LoggerMiddleware mencatat request ke stdout; path di skip (mis. /ws/chat,
// koneksi websocket berumur panjang) tidak dicatat.
func LoggerMiddleware(skip ...string) fiber.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return logger.New(logger.Config{
		Output:     os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Jakarta",
		Format:     "[${time}] ${locals:reqid} ${ip} - ${method} ${path} - ${status} - ${latency} ${error}\n",
		Next: func(c *fiber.Ctx) bool {
			_, ok := skipped[c.Path()]
			return ok
		},
	})
}
