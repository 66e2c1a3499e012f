package middleware

import (
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/dto"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/identity"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AdminSession is the part of the session bridge the admin gate needs.
type AdminSession interface {
	State() session.State
	CurrentUser() *identity.User
	Touch()
}

// AdminRequired runs after AdminJWT and checks:
// 1. Issuer and audience of the verified token
// 2. The email is on the admin allowlist
// 3. The bridged session is signed in as the token's subject
// Every request that passes counts as admin activity.
func AdminRequired(verifier identity.TokenVerifier, sess AdminSession, allowed func(email string) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return unauthorized(c, "Unauthorized")
		}

		claims, ok := token.Claims.(*identity.Claims)
		if !ok {
			return unauthorized(c, "Invalid claims")
		}
		if claims.Issuer != verifier.Issuer() || !contains(claims.Audience, verifier.Audience()) {
			return unauthorized(c, "Invalid token issuer")
		}

		if allowed != nil && !allowed(claims.Email) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}

		user := sess.CurrentUser()
		if sess.State() != session.SignedIn || user == nil || user.UID != claims.Subject {
			return unauthorized(c, "Admin session expired, please sign in again")
		}

		sess.Touch()
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
