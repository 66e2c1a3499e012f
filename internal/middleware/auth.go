package middleware

import (
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/dto"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/identity"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// AdminJWT verifies the bearer ID token's signature with the identity
// provider's keys. Issuer, audience and session checks happen in
// AdminRequired.
func AdminJWT(verifier identity.TokenVerifier) fiber.Handler {
	return jwtware.New(jwtware.Config{
		KeyFunc: verifier.Keyfunc,
		Claims:  &identity.Claims{},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}
