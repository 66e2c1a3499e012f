package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping    func() error
	live    func() bool
	session func() string
}

// NewHealthHandler reports database reachability, whether settings come from
// the database or compiled-in defaults, and the admin session state.
func NewHealthHandler(ping func() error, live func() bool, session func() string) *HealthHandler {
	return &HealthHandler{ping: ping, live: live, session: session}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	settingsStatus := "defaults"
	if h.live() {
		settingsStatus = "live"
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Settings:  settingsStatus,
		Session:   h.session(),
	})
}
