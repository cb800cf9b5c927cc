package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthMiddleware memverifikasi bearer JWT (HS256) dan menyimpan klaim ke Locals:
// user_id, userRole, user_name.
func AuthMiddleware(db *gorm.DB, secret string) fiber.Handler {
	v := NewVerifier(db, secret)
	return func(c *fiber.Ctx) error {
		tokenString, err := extractBearerToken(c)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		cl, err := v.Verify(c.UserContext(), tokenString)
		if err != nil {
			return toFiberError(c, err)
		}

		c.Locals("user_id", cl.UserID)
		c.Locals("userRole", cl.Role)
		if cl.UserName != "" {
			c.Locals("user_name", cl.UserName)
		}
		return c.Next()
	}
}

func toFiberError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNoToken):
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - No token provided")
	case errors.Is(err, ErrInvalidToken):
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Token parse error")
	case errors.Is(err, ErrTokenExpired):
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Token expired")
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - User not found")
	case errors.Is(err, ErrUserInactive):
		return fiber.NewError(fiber.StatusForbidden, "Akun Anda telah dinonaktifkan")
	case errors.Is(err, errMissingSecret):
		log.Error("JWT_SECRET kosong")
		return fiber.NewError(fiber.StatusInternalServerError, "Missing JWT Secret")
	}
	log.WithError(err).WithFields(log.Fields{"method": c.Method(), "path": c.Path()}).Error("verifikasi token gagal")
	return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
}
