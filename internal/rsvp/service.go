// Package rsvp records guest confirmations. Anyone may confirm; only an
// authenticated admin session can read the list back.
package rsvp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalid = errors.New("invalid rsvp")

// Scoper runs queries under the bridged session's row-level security context.
type Scoper interface {
	Scoped(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type CreateInput struct {
	FirstName     string `json:"firstName" validate:"required,max=100"`
	LastName      string `json:"lastName" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"required,min=8,max=30"`
	HasSpouse     bool   `json:"hasSpouse"`
	HasChildren   bool   `json:"hasChildren"`
	ChildrenCount int    `json:"childrenCount" validate:"gte=0,lte=20"`
	HasTransport  bool   `json:"hasTransport"`
}

type Service struct {
	db       *gorm.DB
	scoper   Scoper
	validate *validator.Validate
	now      func() time.Time
}

// NewService writes through db and reads through scoper.
func NewService(db *gorm.DB, scoper Scoper) *Service {
	return &Service{
		db:       db,
		scoper:   scoper,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.RSVP, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !in.HasChildren {
		in.ChildrenCount = 0
	}

	r := &models.RSVP{
		ID:            uuid.New(),
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Phone:         in.Phone,
		HasSpouse:     in.HasSpouse,
		HasChildren:   in.HasChildren,
		ChildrenCount: in.ChildrenCount,
		HasTransport:  in.HasTransport,
		ConfirmedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		slog.Error("failed to save rsvp", "error", err)
		return nil, fmt.Errorf("failed to save rsvp: %w", err)
	}

	slog.Info("rsvp confirmed", "rsvp_id", r.ID, "headcount", r.Headcount())
	return r, nil
}

// List returns every confirmation, newest first.
func (s *Service) List(ctx context.Context) ([]models.RSVP, error) {
	var list []models.RSVP
	err := s.scoper.Scoped(ctx, func(tx *gorm.DB) error {
		return tx.Order("confirmed_at DESC").Find(&list).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	return list, nil
}
