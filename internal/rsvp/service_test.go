package rsvp

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type directScoper struct{ db *gorm.DB }

func (d directScoper) Scoped(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(d.db.WithContext(ctx))
}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	svc := NewService(db, directScoper{db: db})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, mock
}

func validInput() CreateInput {
	return CreateInput{
		FirstName:     " Maria ",
		LastName:      "Silva",
		Phone:         "61999990000",
		HasChildren:   false,
		ChildrenCount: 3,
	}
}

func TestCreate(t *testing.T) {
	svc, mock := newService(t)
	mock.ExpectQuery(`INSERT INTO "rsvps"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("0b8f6d1e-8a35-4a57-9c7e-2f4f4f0a1b2c"))

	r, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "Maria", r.FirstName)
	assert.Zero(t, r.ChildrenCount, "children count is dropped when hasChildren is false")
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), r.ConfirmedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Validation(t *testing.T) {
	svc, mock := newService(t)

	cases := map[string]func(*CreateInput){
		"missing first name": func(in *CreateInput) { in.FirstName = "  " },
		"missing phone":      func(in *CreateInput) { in.Phone = "" },
		"short phone":        func(in *CreateInput) { in.Phone = "123" },
		"negative children":  func(in *CreateInput) { in.ChildrenCount = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), in)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	svc, mock := newService(t)
	mock.ExpectQuery(`SELECT \* FROM "rsvps" ORDER BY confirmed_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "phone", "has_spouse", "has_children", "children_count", "has_transport", "confirmed_at"}).
			AddRow("0b8f6d1e-8a35-4a57-9c7e-2f4f4f0a1b2c", "Ana", "Souza", "61988887777", true, true, 2, false, time.Now()))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].FirstName)
	assert.Equal(t, 4, list[0].Headcount())
	assert.NoError(t, mock.ExpectationsWereMet())
}
