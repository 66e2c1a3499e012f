package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Backend is the row store behind the Store. Rows are raw column maps so the
// codec can reconcile whatever shape the table currently has.
type Backend interface {
	// Fetch returns ErrNotFound when no row has the given id.
	Fetch(ctx context.Context, id int64) (map[string]any, error)
	// Insert creates the row unless one with id already exists, in which case
	// it writes nothing and reports created=false.
	Insert(ctx context.Context, id int64, row map[string]any) (created bool, err error)
	// Upsert inserts the row or, on id conflict, updates only the given columns.
	Upsert(ctx context.Context, id int64, row map[string]any) error
	// Update writes the given columns and returns ErrNotFound when no row matched.
	Update(ctx context.Context, id int64, row map[string]any) error
}

// GormBackend stores the settings row in a Postgres table through GORM.
type GormBackend struct {
	db    *gorm.DB
	table string
}

func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db, table: "settings"}
}

func (b *GormBackend) Fetch(ctx context.Context, id int64) (map[string]any, error) {
	row := map[string]any{}
	err := b.db.WithContext(ctx).Table(b.table).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	return row, nil
}

func (b *GormBackend) Insert(ctx context.Context, id int64, row map[string]any) (bool, error) {
	conflict := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}
	result := b.db.WithContext(ctx).Table(b.table).Clauses(conflict).Create(withID(row, id))
	if result.Error != nil {
		var pgErr *pgconn.PgError
		if errors.As(result.Error, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("failed to create settings: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (b *GormBackend) Upsert(ctx context.Context, id int64, row map[string]any) error {
	values := withID(row, id)

	conflict := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}}
	if cols := Columns(row); len(cols) > 0 {
		conflict.DoUpdates = clause.AssignmentColumns(cols)
	} else {
		conflict.DoNothing = true
	}

	err := b.db.WithContext(ctx).Table(b.table).Clauses(conflict).Create(values).Error
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}

func (b *GormBackend) Update(ctx context.Context, id int64, row map[string]any) error {
	if len(row) == 0 {
		return nil
	}
	result := b.db.WithContext(ctx).Table(b.table).Where("id = ?", id).Updates(row)
	if result.Error != nil {
		return fmt.Errorf("failed to update settings: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func withID(row map[string]any, id int64) map[string]any {
	values := make(map[string]any, len(row)+1)
	for k, v := range row {
		values[k] = v
	}
	values["id"] = id
	return values
}
