package models

import (
	"time"

	"github.com/google/uuid"
)

type Gift struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"type:text" json:"imageUrl"`
	Price       float64   `gorm:"type:numeric(10,2);not null;default:0" json:"price"`
	Quantity    int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GiftReservation is a guest's claim on one unit of a gift.
type GiftReservation struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GiftID    uuid.UUID `gorm:"type:uuid;not null;index" json:"giftId"`
	GuestName string    `gorm:"size:200;not null" json:"guestName"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Gift      Gift      `gorm:"foreignKey:GiftID" json:"-"`
}
