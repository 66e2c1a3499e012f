package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/config"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/identity"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	verifier identity.TokenVerifier,
	sess middleware.AdminSession,
	healthHandler *handlers.HealthHandler,
	inviteHandler *handlers.InviteHandler,
	adminHandler *handlers.AdminHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Public invitation
	api.Get("/settings", inviteHandler.GetSettings)
	api.Post("/rsvps", inviteHandler.CreateRSVP)
	api.Get("/gifts", inviteHandler.ListGifts)
	api.Post("/gifts/:id/reservations", inviteHandler.ReserveGift)

	// Admin login: 10 req/min per IP (stricter)
	api.Post("/admin/login", limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}), adminHandler.Login)

	// Everything below, logout included, needs the bridged admin's own token.
	admin := api.Group("/admin", middleware.AdminJWT(verifier), middleware.AdminRequired(verifier, sess, cfg.AdminAllowed))
	admin.Post("/logout", adminHandler.Logout)
	admin.Get("/dashboard", adminHandler.Dashboard)
	admin.Put("/settings", adminHandler.UpdateSettings)
	admin.Post("/gifts", adminHandler.CreateGift)
	admin.Put("/gifts/:id", adminHandler.UpdateGift)
}
