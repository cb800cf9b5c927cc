package details

import (
	"github.com/gofiber/fiber/v2"

	"orderkue_backend/internals/features/chat/realtime"
	chatController "orderkue_backend/internals/features/chat/sessions/controller"
	chatRoute "orderkue_backend/internals/features/chat/sessions/route"
)

// ChatRoutes: REST chat di /api/chat + websocket di /ws/chat.
func ChatRoutes(app *fiber.App, api fiber.Router, store chatController.Store, hub *realtime.Hub, authMw fiber.Handler) {
	chatRoute.ChatRoutes(api, chatController.NewChatController(store, hub), authMw)
	realtime.Routes(app, hub)
}
