// Package settings owns the singleton wedding settings record: the canonical
// model, the compiled-in defaults, the storage codec and the Store that loads
// and saves the record against a schema-flexible backend.
package settings

import "time"

// SingletonID is the fixed key of the only settings row.
const SingletonID int64 = 1

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WeddingSettings is the canonical, fully populated settings record.
type WeddingSettings struct {
	GroomName             string      `json:"groomName"`
	BrideName             string      `json:"brideName"`
	EventDate             time.Time   `json:"eventDate"`
	EventLocation         string      `json:"eventLocation"`
	EventAddress          string      `json:"eventAddress"`
	EventAddressReference string      `json:"eventAddressReference"`
	MapCoordinates        Coordinates `json:"mapCoordinates"`
	IntroText             string      `json:"introText"`
	InviteText            string      `json:"inviteText"`
	ThankYouText          string      `json:"thankYouText"`
	MusicURL              string      `json:"musicUrl"`
	HeroImageURL          string      `json:"heroImageUrl"`
	ColorPaletteText      string      `json:"colorPaletteText"`
	ColorPalette          []string    `json:"colorPalette"`
}

// Clone returns a copy that shares no slices with s.
func (s WeddingSettings) Clone() WeddingSettings {
	out := s
	if s.ColorPalette != nil {
		out.ColorPalette = append([]string(nil), s.ColorPalette...)
	}
	return out
}

// Partial carries a subset of fields for a save. Nil means "not being edited".
type Partial struct {
	GroomName             *string      `json:"groomName,omitempty"`
	BrideName             *string      `json:"brideName,omitempty"`
	EventDate             *time.Time   `json:"eventDate,omitempty"`
	EventLocation         *string      `json:"eventLocation,omitempty"`
	EventAddress          *string      `json:"eventAddress,omitempty"`
	EventAddressReference *string      `json:"eventAddressReference,omitempty"`
	MapCoordinates        *Coordinates `json:"mapCoordinates,omitempty"`
	IntroText             *string      `json:"introText,omitempty"`
	InviteText            *string      `json:"inviteText,omitempty"`
	ThankYouText          *string      `json:"thankYouText,omitempty"`
	MusicURL              *string      `json:"musicUrl,omitempty"`
	HeroImageURL          *string      `json:"heroImageUrl,omitempty"`
	ColorPaletteText      *string      `json:"colorPaletteText,omitempty"`
	ColorPalette          []string     `json:"colorPalette,omitempty"`
}

// Full returns a Partial with every field of s present.
func Full(s WeddingSettings) Partial {
	s = s.Clone()
	coords := s.MapCoordinates
	date := s.EventDate
	palette := s.ColorPalette
	if palette == nil {
		palette = []string{}
	}
	return Partial{
		GroomName:             &s.GroomName,
		BrideName:             &s.BrideName,
		EventDate:             &date,
		EventLocation:         &s.EventLocation,
		EventAddress:          &s.EventAddress,
		EventAddressReference: &s.EventAddressReference,
		MapCoordinates:        &coords,
		IntroText:             &s.IntroText,
		InviteText:            &s.InviteText,
		ThankYouText:          &s.ThankYouText,
		MusicURL:              &s.MusicURL,
		HeroImageURL:          &s.HeroImageURL,
		ColorPaletteText:      &s.ColorPaletteText,
		ColorPalette:          palette,
	}
}
