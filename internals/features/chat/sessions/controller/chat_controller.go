package controller

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"orderkue_backend/internals/features/chat/sessions/dto"
	"orderkue_backend/internals/features/chat/sessions/model"
	helper "orderkue_backend/internals/helpers"
	"orderkue_backend/internals/middlewares/auth"
)

type Store interface {
	ListStaffSessions(ctx context.Context) ([]dto.SessionSummary, error)
	ListBuyerSessions(ctx context.Context, phone string, staffOnline bool) ([]dto.SessionSummary, error)
	GetSessionWithHistory(ctx context.Context, orderCode string, reader model.SenderType) (*model.ChatSessionModel, error)
	AppendMessage(ctx context.Context, req dto.CreateMessageRequest) (*model.ChatMessageModel, *model.ChatSessionModel, error)
	MarkRead(ctx context.Context, sessionID uuid.UUID, reader model.SenderType) (int64, *model.ChatSessionModel, error)
}

// Realtime: bagian hub yang dipakai endpoint REST.
type Realtime interface {
	StaffOnline() bool
	PushMessage(orderCode string, msg *model.ChatMessageModel)
	PushReadReceipt(sess *model.ChatSessionModel, reader model.SenderType, updated int64)
}

type ChatController struct {
	Store    Store
	Realtime Realtime
}

func NewChatController(store Store, rt Realtime) *ChatController {
	return &ChatController{Store: store, Realtime: rt}
}

// GET /api/chat/sessions (staff)
func (ctl *ChatController) ListSessions(c *fiber.Ctx) error {
	list, err := ctl.Store.ListStaffSessions(c.UserContext())
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return c.JSON(list)
}

// GET /api/chat/sessions/phone/:phone
func (ctl *ChatController) ListSessionsByPhone(c *fiber.Ctx) error {
	phone := strings.TrimSpace(c.Params("phone"))
	if phone == "" {
		return helper.JsonError(c, fiber.StatusBadRequest, "Phone number is required")
	}
	list, err := ctl.Store.ListBuyerSessions(c.UserContext(), phone, ctl.Realtime.StaffOnline())
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return c.JSON(list)
}

// GET /api/chat/sessions/order/:order_code?reader=buyer|admin
// Default reader buyer: pesan staff ditandai sudah dibaca.
func (ctl *ChatController) GetSessionByOrderCode(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("order_code"))
	if code == "" {
		return helper.JsonError(c, fiber.StatusBadRequest, "order_code is required")
	}
	reader := model.SenderType(strings.ToLower(c.Query("reader", string(model.SenderBuyer))))
	if !reader.Valid() {
		return helper.JsonError(c, fiber.StatusBadRequest, "reader harus admin atau buyer")
	}

	sess, err := ctl.Store.GetSessionWithHistory(c.UserContext(), code, reader)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return c.JSON(sess)
}

// POST /api/chat/messages
func (ctl *ChatController) CreateMessage(c *fiber.Ctx) error {
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	// staff selalu tercatat dengan id dari token
	if req.SenderType == model.SenderStaff {
		if id, ok := auth.UserID(c); ok {
			req.SenderID = id.String()
		}
	}

	msg, sess, err := ctl.Store.AppendMessage(c.UserContext(), req)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	ctl.Realtime.PushMessage(sess.OrderCode, msg)
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// PUT /api/chat/messages/read/:session_id
func (ctl *ChatController) MarkRead(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(strings.TrimSpace(c.Params("session_id")))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "session_id tidak valid")
	}
	var req dto.MarkReadRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "user_type harus admin atau buyer")
	}

	updated, sess, err := ctl.Store.MarkRead(c.UserContext(), sessionID, req.UserType)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	ctl.Realtime.PushReadReceipt(sess, req.UserType, updated)
	return c.JSON(fiber.Map{
		"message":    "Messages marked as read",
		"session_id": sess.SessionID,
		"updated":    updated,
	})
}
