package helper

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"orderkue_backend/internals/helpers/apperr"
)

// FromFiberError mengubah error hasil handler/Transaction (biasanya *fiber.Error
// atau *apperr.Error) menjadi response JSON konsisten via JsonError.
func FromFiberError(c *fiber.Ctx, err error) error {
	fe := apperr.ToFiber(err)
	if fe.Code >= fiber.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
			"reqid":  c.Locals("reqid"),
		}).WithError(err).Error("request failed")
	}
	return JsonError(c, fe.Code, fe.Message)
}

// ErrorHandler dipasang di fiber.Config.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return FromFiberError(c, err)
}
