// Package gifts serves the gift registry and takes guest reservations
// without ever letting a gift be reserved more times than its quantity.
package gifts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrGiftNotFound     = errors.New("gift not found")
	ErrCapacityExceeded = errors.New("gift is fully reserved")
	ErrInvalid          = errors.New("invalid gift input")
)

// Availability is a gift with its reservation tally.
type Availability struct {
	models.Gift
	Reserved  int64 `json:"reserved"`
	Remaining int64 `json:"remaining"`
}

type ReserveInput struct {
	GuestName string `json:"guestName" validate:"required,max=200"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	Message   string `json:"message" validate:"max=500"`
}

// GiftInput is the editable part of a catalogue entry.
type GiftInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	ImageURL    string  `json:"imageUrl" validate:"omitempty,url,max=1000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gte=1,lte=1000"`
}

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

func (s *Service) List(ctx context.Context) ([]Availability, error) {
	list, counts, err := s.repo.ListGifts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Availability, 0, len(list))
	for _, g := range list {
		reserved := counts[g.ID]
		remaining := int64(g.Quantity) - reserved
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, Availability{Gift: g, Reserved: reserved, Remaining: remaining})
	}
	return out, nil
}

// Reserve claims one unit of giftID. It returns ErrCapacityExceeded when the
// gift already has as many reservations as its quantity.
func (s *Service) Reserve(ctx context.Context, giftID uuid.UUID, in ReserveInput) (*models.GiftReservation, error) {
	in.GuestName = strings.TrimSpace(in.GuestName)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	res := &models.GiftReservation{
		ID:        uuid.New(),
		GiftID:    giftID,
		GuestName: in.GuestName,
		Phone:     strings.TrimSpace(in.Phone),
		Message:   strings.TrimSpace(in.Message),
	}

	err := s.repo.ReserveLocked(ctx, res, func(gift models.Gift, reserved int64) error {
		if reserved >= int64(gift.Quantity) {
			return ErrCapacityExceeded
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		metrics.GiftReservationsTotal.WithLabelValues("full").Inc()
		return nil, err
	case errors.Is(err, ErrGiftNotFound):
		metrics.GiftReservationsTotal.WithLabelValues("not_found").Inc()
		return nil, err
	case err != nil:
		metrics.GiftReservationsTotal.WithLabelValues("error").Inc()
		slog.Error("gift reservation failed", "gift_id", giftID, "error", err)
		return nil, err
	}

	metrics.GiftReservationsTotal.WithLabelValues("ok").Inc()
	slog.Info("gift reserved", "gift_id", giftID, "reservation_id", res.ID)
	return res, nil
}

func (s *Service) Reservations(ctx context.Context) ([]models.GiftReservation, error) {
	return s.repo.ListReservations(ctx)
}

// Create adds a gift to the catalogue.
func (s *Service) Create(ctx context.Context, in GiftInput) (*models.Gift, error) {
	in = trimGift(in)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	g := &models.Gift{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		Quantity:    in.Quantity,
	}
	if err := s.repo.CreateGift(ctx, g); err != nil {
		slog.Error("gift create failed", "error", err)
		return nil, err
	}
	slog.Info("gift created", "gift_id", g.ID)
	return g, nil
}

// Update replaces the editable fields of giftID. Lowering the quantity below
// the current reservation count is allowed; the gift then shows as full.
func (s *Service) Update(ctx context.Context, giftID uuid.UUID, in GiftInput) error {
	in = trimGift(in)
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	err := s.repo.UpdateGift(ctx, giftID, map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"image_url":   in.ImageURL,
		"price":       in.Price,
		"quantity":    in.Quantity,
	})
	if err != nil {
		if !errors.Is(err, ErrGiftNotFound) {
			slog.Error("gift update failed", "gift_id", giftID, "error", err)
		}
		return err
	}
	slog.Info("gift updated", "gift_id", giftID)
	return nil
}

func trimGift(in GiftInput) GiftInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	return in
}
