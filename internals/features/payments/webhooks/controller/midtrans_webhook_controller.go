package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"orderkue_backend/internals/features/payments/webhooks/dto"
	"orderkue_backend/internals/features/payments/webhooks/model"
	"orderkue_backend/internals/features/payments/webhooks/service"
	helper "orderkue_backend/internals/helpers"
)

type Handler interface {
	Handle(ctx context.Context, n dto.MidtransNotification, raw []byte) (*service.Result, error)
}

type WebhookController struct {
	Reconciler Handler
}

func NewWebhookController(r Handler) *WebhookController {
	return &WebhookController{Reconciler: r}
}

// GET /api/payments/midtrans/webhook, dipakai dashboard Midtrans untuk tes URL.
func (ctl *WebhookController) Ping(c *fiber.Ctx) error {
	log.Info("✅ Midtrans ping (GET) received")
	return c.Status(fiber.StatusOK).SendString("OK")
}

// POST /api/payments/midtrans/webhook
// Selalu 200 kecuali kegagalan internal (500 → Midtrans retry).
func (ctl *WebhookController) Notify(c *fiber.Ctx) error {
	var n dto.MidtransNotification
	if err := c.BodyParser(&n); err != nil {
		log.WithError(err).Warn("payload webhook tidak bisa diparse")
		return c.JSON(dto.WebhookResponse{Status: "ignored", Outcome: string(model.OutcomeIgnored)})
	}

	// body fasthttp hanya valid selama request; salin sebelum dipakai service
	raw := append([]byte(nil), c.Body()...)

	ctx, cancel := context.WithTimeout(c.UserContext(), 20*time.Second)
	defer cancel()

	res, err := ctl.Reconciler.Handle(ctx, n, raw)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to process notification")
	}

	status := "ok"
	if res.Outcome != model.OutcomeApplied && res.Outcome != model.OutcomeUnchanged {
		status = "ignored"
	}
	return c.JSON(dto.WebhookResponse{
		Status:      status,
		Outcome:     string(res.Outcome),
		OrderCode:   res.OrderCode,
		OrderStatus: string(res.To),
	})
}
