package handlers

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/dto"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/gifts"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/models"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/rsvp"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/settings"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SettingsSource interface {
	Settings() settings.WeddingSettings
	Live() bool
}

type RSVPCreator interface {
	Create(ctx context.Context, in rsvp.CreateInput) (*models.RSVP, error)
}

type GiftRegistry interface {
	List(ctx context.Context) ([]gifts.Availability, error)
	Reserve(ctx context.Context, giftID uuid.UUID, in gifts.ReserveInput) (*models.GiftReservation, error)
}

// InviteHandler serves the public side of the invitation: settings, RSVPs
// and the gift registry.
type InviteHandler struct {
	shell SettingsSource
	rsvps RSVPCreator
	gifts GiftRegistry
}

func NewInviteHandler(shell SettingsSource, rsvps RSVPCreator, giftRegistry GiftRegistry) *InviteHandler {
	return &InviteHandler{shell: shell, rsvps: rsvps, gifts: giftRegistry}
}

func (h *InviteHandler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(dto.SettingsResponse{
		Settings: h.shell.Settings(),
		Live:     h.shell.Live(),
	})
}

func (h *InviteHandler) CreateRSVP(c *fiber.Ctx) error {
	var req dto.RSVPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	created, err := h.rsvps.Create(c.UserContext(), rsvp.CreateInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		HasSpouse:     req.HasSpouse,
		HasChildren:   req.HasChildren,
		ChildrenCount: req.ChildrenCount,
		HasTransport:  req.HasTransport,
	})
	if err != nil {
		if errors.Is(err, rsvp.ErrInvalid) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Please fill in your name and a valid phone number",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to save your confirmation, please try again",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *InviteHandler) ListGifts(c *fiber.Ctx) error {
	list, err := h.gifts.List(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load gifts",
		})
	}
	return c.JSON(dto.GiftListResponse{Gifts: list})
}

func (h *InviteHandler) ReserveGift(c *fiber.Ctx) error {
	giftID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid gift ID",
		})
	}

	var req dto.ReserveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	res, err := h.gifts.Reserve(c.UserContext(), giftID, gifts.ReserveInput{
		GuestName: req.GuestName,
		Phone:     req.Phone,
		Message:   req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, gifts.ErrInvalid):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Please enter your name",
			})
		case errors.Is(err, gifts.ErrGiftNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, gifts.ErrCapacityExceeded):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "This gift has already been fully reserved",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to reserve gift, please try again",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(res)
}
