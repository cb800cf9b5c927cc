package route

import (
	"github.com/gofiber/fiber/v2"

	"orderkue_backend/internals/features/chat/sessions/controller"
	staffModel "orderkue_backend/internals/features/users/staff/model"
	"orderkue_backend/internals/middlewares/auth"
)

// ChatRoutes: prefix /api/chat. authMw = JWT middleware.
func ChatRoutes(api fiber.Router, ctl *controller.ChatController, authMw fiber.Handler) {
	chat := api.Group("/chat")

	// sesi
	chat.Get("/sessions", authMw, auth.OnlyRoles("Hanya staff yang boleh melihat semua sesi", staffModel.RoleAdmin), ctl.ListSessions)
	chat.Get("/sessions/phone/:phone", ctl.ListSessionsByPhone)
	chat.Get("/sessions/order/:order_code", ctl.GetSessionByOrderCode)

	// pesan
	chat.Post("/messages", authMw, ctl.CreateMessage)
	chat.Put("/messages/read/:session_id", authMw, ctl.MarkRead)
}
