package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/admin"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/dto"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/gifts"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/identity"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/models"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/session"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/settings"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*identity.User, error)
	SignOut(ctx context.Context) error
	IDToken(ctx context.Context, forceRefresh bool) (string, error)
}

type SessionBridge interface {
	OnLoginSuccess(ctx context.Context, u *identity.User) error
	SignOut(ctx context.Context) error
}

type AdminPanel interface {
	Open(ctx context.Context) (*admin.Dashboard, error)
	Snapshot() *admin.Dashboard
	SaveSettings(ctx context.Context, p settings.Partial) error
	CreateGift(ctx context.Context, in gifts.GiftInput) (*models.Gift, error)
	UpdateGift(ctx context.Context, giftID uuid.UUID, in gifts.GiftInput) error
}

type AdminHandler struct {
	auth    Authenticator
	bridge  SessionBridge
	panel   AdminPanel
	allowed func(email string) bool
}

func NewAdminHandler(auth Authenticator, bridge SessionBridge, panel AdminPanel, allowed func(email string) bool) *AdminHandler {
	if allowed == nil {
		allowed = func(string) bool { return true }
	}
	return &AdminHandler{auth: auth, bridge: bridge, panel: panel, allowed: allowed}
}

func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Email and password are required",
		})
	}

	ctx := c.UserContext()
	user, err := h.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidConfig):
			slog.Error("admin sign-in failed, check identity provider configuration", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Sign-in is temporarily unavailable",
			})
		case errors.Is(err, identity.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid email or password",
			})
		}
		slog.Warn("admin sign-in failed", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Sign-in failed",
		})
	}

	if !h.allowed(user.Email) {
		if err := h.auth.SignOut(ctx); err != nil {
			slog.Error("failed to sign out rejected identity", "error", err)
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}

	if err := h.bridge.OnLoginSuccess(ctx, user); err != nil {
		slog.Error("failed to establish admin session", "uid", user.UID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to establish admin session",
		})
	}

	token, err := h.auth.IDToken(ctx, false)
	if err != nil {
		slog.Error("failed to read id token after login", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to establish admin session",
		})
	}

	if _, err := h.panel.Open(ctx); err != nil {
		slog.Warn("admin panel initial load failed", "error", err)
	}

	return c.JSON(dto.LoginResponse{
		IDToken: token,
		User:    dto.UserResponse{UID: user.UID, Email: user.Email},
	})
}

func (h *AdminHandler) Logout(c *fiber.Ctx) error {
	if err := h.bridge.SignOut(c.UserContext()); err != nil {
		slog.Error("admin sign-out incomplete", "error", err)
	}
	return c.JSON(dto.MessageResponse{Message: "Signed out"})
}

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	if d := h.panel.Snapshot(); d != nil {
		return c.JSON(d)
	}

	d, err := h.panel.Open(c.UserContext())
	if err != nil {
		return h.panelError(c, err, "Failed to load dashboard")
	}
	return c.JSON(d)
}

func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var partial settings.Partial
	if err := c.BodyParser(&partial); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if err := h.panel.SaveSettings(c.UserContext(), partial); err != nil {
		return h.panelError(c, err, "Failed to save settings, please try again")
	}
	return c.JSON(dto.MessageResponse{Message: "Settings saved"})
}

func (h *AdminHandler) CreateGift(c *fiber.Ctx) error {
	var req dto.GiftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	g, err := h.panel.CreateGift(c.UserContext(), giftInput(req))
	if err != nil {
		return h.giftError(c, err, "Failed to create gift")
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

func (h *AdminHandler) UpdateGift(c *fiber.Ctx) error {
	giftID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid gift id",
		})
	}
	var req dto.GiftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if err := h.panel.UpdateGift(c.UserContext(), giftID, giftInput(req)); err != nil {
		return h.giftError(c, err, "Failed to update gift")
	}
	return c.JSON(dto.MessageResponse{Message: "Gift updated"})
}

func giftInput(req dto.GiftRequest) gifts.GiftInput {
	return gifts.GiftInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}
}

func (h *AdminHandler) giftError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, gifts.ErrInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Gift needs a name and a quantity of at least 1",
		})
	case errors.Is(err, gifts.ErrGiftNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Gift not found",
		})
	}
	return h.panelError(c, err, message)
}

func (h *AdminHandler) panelError(c *fiber.Ctx, err error, message string) error {
	if errors.Is(err, session.ErrNotAuthenticated) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin session expired, please sign in again",
		})
	}
	slog.Error(message, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}
