package models

import (
	"time"

	"github.com/google/uuid"
)

// RSVP is a guest's attendance confirmation. Rows are public to insert and
// readable only by an authenticated admin session.
type RSVP struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FirstName     string    `gorm:"size:100;not null" json:"firstName"`
	LastName      string    `gorm:"size:100;not null" json:"lastName"`
	Phone         string    `gorm:"size:30;not null" json:"phone"`
	HasSpouse     bool      `gorm:"not null;default:false" json:"hasSpouse"`
	HasChildren   bool      `gorm:"not null;default:false" json:"hasChildren"`
	ChildrenCount int       `gorm:"not null;default:0" json:"childrenCount"`
	HasTransport  bool      `gorm:"not null;default:false" json:"hasTransport"`
	ConfirmedAt   time.Time `gorm:"not null;index" json:"confirmedAt"`
}

func (RSVP) TableName() string { return "rsvps" }

// Headcount is the number of people this confirmation covers.
func (r RSVP) Headcount() int {
	n := 1
	if r.HasSpouse {
		n++
	}
	if r.HasChildren {
		n += r.ChildrenCount
	}
	return n
}
