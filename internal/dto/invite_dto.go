package dto

import (
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/gifts"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/settings"
)

// SettingsResponse is the public invitation. Live is false while the shell is
// still serving compiled-in defaults.
type SettingsResponse struct {
	Settings settings.WeddingSettings `json:"settings"`
	Live     bool                     `json:"live"`
}

type RSVPRequest struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Phone         string `json:"phone"`
	HasSpouse     bool   `json:"hasSpouse"`
	HasChildren   bool   `json:"hasChildren"`
	ChildrenCount int    `json:"childrenCount"`
	HasTransport  bool   `json:"hasTransport"`
}

type GiftListResponse struct {
	Gifts []gifts.Availability `json:"gifts"`
}

type ReserveRequest struct {
	GuestName string `json:"guestName"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
}

type GiftRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}
