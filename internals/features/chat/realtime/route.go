package realtime

import "github.com/gofiber/fiber/v2"

// Routes memasang endpoint websocket /ws/chat.
func Routes(app *fiber.App, h *Hub) {
	ws := app.Group("/ws")
	ws.Use(UpgradeGuard)
	ws.Get("/chat", h.Handler())
}
