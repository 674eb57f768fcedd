package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// RequireAuthenticated ensures a caller was resolved for the request.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CallerFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required", ErrDecode)
		}
		return c.Next()
	}
}
