package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"orderkue_backend/internals/features/orders/checkout/dto"
	helper "orderkue_backend/internals/helpers"
)

type Initiator interface {
	Initiate(ctx context.Context, req *dto.InitiatePaymentRequest) (*dto.InitiatePaymentResponse, error)
}

type CheckoutController struct {
	Manager Initiator
	Timeout time.Duration
}

func NewCheckoutController(m Initiator) *CheckoutController {
	return &CheckoutController{Manager: m, Timeout: 20 * time.Second}
}

// POST /api/payments/initiate
// Response sengaja tidak dibungkus {success,data}: frontend Snap membaca snapToken langsung.
func (ctl *CheckoutController) InitiatePayment(c *fiber.Ctx) error {
	var req dto.InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request data")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), ctl.Timeout)
	defer cancel()

	res, err := ctl.Manager.Initiate(ctx, &req)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}
