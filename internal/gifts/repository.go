package gifts

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scoper runs queries under the bridged session's row-level security context.
type Scoper interface {
	Scoped(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Repository interface {
	// ListGifts returns every gift and the number of reservations per gift id.
	ListGifts(ctx context.Context) ([]models.Gift, map[uuid.UUID]int64, error)
	// ReserveLocked locks r.GiftID, calls check with the gift and its current
	// reservation count and inserts r only when check returns nil. Concurrent
	// calls for the same gift are serialized.
	ReserveLocked(ctx context.Context, r *models.GiftReservation, check func(gift models.Gift, reserved int64) error) error
	// ListReservations is the admin view and runs under the bridged session.
	ListReservations(ctx context.Context) ([]models.GiftReservation, error)
	// CreateGift and UpdateGift edit the catalogue under the bridged session.
	// UpdateGift returns ErrGiftNotFound when no row matched.
	CreateGift(ctx context.Context, g *models.Gift) error
	UpdateGift(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

type GormRepository struct {
	db     *gorm.DB
	scoper Scoper
}

func NewGormRepository(db *gorm.DB, scoper Scoper) *GormRepository {
	return &GormRepository{db: db, scoper: scoper}
}

type reservedCount struct {
	GiftID   uuid.UUID
	Reserved int64
}

func (r *GormRepository) ListGifts(ctx context.Context) ([]models.Gift, map[uuid.UUID]int64, error) {
	db := r.db.WithContext(ctx)

	var list []models.Gift
	if err := db.Order("name ASC").Find(&list).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list gifts: %w", err)
	}

	var rows []reservedCount
	err := db.Model(&models.GiftReservation{}).
		Select("gift_id, count(*) AS reserved").
		Group("gift_id").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count reservations: %w", err)
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.GiftID] = row.Reserved
	}
	return list, counts, nil
}

func (r *GormRepository) ReserveLocked(ctx context.Context, res *models.GiftReservation, check func(models.Gift, int64) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gift models.Gift
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", res.GiftID).
			Take(&gift).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGiftNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock gift: %w", err)
		}

		var reserved int64
		if err := tx.Model(&models.GiftReservation{}).Where("gift_id = ?", res.GiftID).Count(&reserved).Error; err != nil {
			return fmt.Errorf("failed to count reservations: %w", err)
		}
		if err := check(gift, reserved); err != nil {
			return err
		}

		if err := tx.Create(res).Error; err != nil {
			return fmt.Errorf("failed to save reservation: %w", err)
		}
		return nil
	})
}

func (r *GormRepository) ListReservations(ctx context.Context) ([]models.GiftReservation, error) {
	var list []models.GiftReservation
	err := r.scoper.Scoped(ctx, func(tx *gorm.DB) error {
		return tx.Order("created_at DESC").Find(&list).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return list, nil
}

func (r *GormRepository) CreateGift(ctx context.Context, g *models.Gift) error {
	err := r.scoper.Scoped(ctx, func(tx *gorm.DB) error {
		return tx.Create(g).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create gift: %w", err)
	}
	return nil
}

func (r *GormRepository) UpdateGift(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	var affected int64
	err := r.scoper.Scoped(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.Gift{}).Where("id = ?", id).Updates(fields)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to update gift: %w", err)
	}
	if affected == 0 {
		return ErrGiftNotFound
	}
	return nil
}
