package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"gorm.io/datatypes"
)

// Storage column names. Most columns kept the camelCase names of the first
// schema revision; the later additions are snake_case.
const (
	colGroomName             = "groomName"
	colBrideName             = "brideName"
	colEventDate             = "eventDate"
	colEventLocation         = "eventLocation"
	colEventAddress          = "eventAddress"
	colEventAddressReference = "event_address_reference"
	colLat                   = "lat"
	colLng                   = "lng"
	colIntroText             = "introText"
	colInviteText            = "inviteText"
	colThankYouText          = "thankYouText"
	colMusicURL              = "musicUrl"
	colHeroImageURL          = "heroImageUrl"
	colColorPalette          = "colorPalette"
	colColorPaletteText      = "color_palette_text"
)

// aliases maps every spelling seen across schema revisions to the column
// name the codec reads.
var aliases = map[string]string{
	"groom_name":            colGroomName,
	"bride_name":            colBrideName,
	"event_date":            colEventDate,
	"event_location":        colEventLocation,
	"event_address":         colEventAddress,
	"eventAddressReference": colEventAddressReference,
	"intro_text":            colIntroText,
	"invite_text":           colInviteText,
	"thank_you_text":        colThankYouText,
	"music_url":             colMusicURL,
	"hero_image_url":        colHeroImageURL,
	"color_palette":         colColorPalette,
	"colorPaletteText":      colColorPaletteText,
}

// normalize renames aliased keys. When both spellings are present the
// primary column name wins.
func normalize(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if _, isAlias := aliases[k]; !isAlias {
			out[k] = v
		}
	}
	for k, v := range row {
		target, isAlias := aliases[k]
		if !isAlias {
			continue
		}
		if _, taken := out[target]; !taken {
			out[target] = v
		}
	}
	return out
}

// ToCanonical translates a raw backend row into a fully populated record.
// Fields missing from the row, null, or of the wrong type resolve to the
// matching field of defaults.
func ToCanonical(row map[string]any, defaults WeddingSettings) WeddingSettings {
	s := defaults.Clone()
	if len(row) == 0 {
		return s
	}
	row = normalize(row)

	stringField(row, colGroomName, &s.GroomName)
	stringField(row, colBrideName, &s.BrideName)
	stringField(row, colEventLocation, &s.EventLocation)
	stringField(row, colEventAddress, &s.EventAddress)
	stringField(row, colEventAddressReference, &s.EventAddressReference)
	stringField(row, colIntroText, &s.IntroText)
	stringField(row, colInviteText, &s.InviteText)
	stringField(row, colThankYouText, &s.ThankYouText)
	stringField(row, colMusicURL, &s.MusicURL)
	stringField(row, colHeroImageURL, &s.HeroImageURL)

	if text, ok := row[colColorPaletteText].(string); ok && text != "" {
		s.ColorPaletteText = text
	}

	if t, ok := toTime(row[colEventDate]); ok {
		s.EventDate = t
	}

	lat, latOK := toFloat(row[colLat])
	lng, lngOK := toFloat(row[colLng])
	if latOK && lngOK {
		s.MapCoordinates = Coordinates{Lat: lat, Lng: lng}
	}

	s.ColorPalette = decodePalette(row[colColorPalette], defaults.ColorPalette)
	return s
}

// ToStorage translates a partial record into backend columns. Only fields
// present in p are emitted, so a save never nulls a column it is not editing.
func ToStorage(p Partial) map[string]any {
	row := make(map[string]any)
	putString(row, colGroomName, p.GroomName)
	putString(row, colBrideName, p.BrideName)
	putString(row, colEventLocation, p.EventLocation)
	putString(row, colEventAddress, p.EventAddress)
	putString(row, colEventAddressReference, p.EventAddressReference)
	putString(row, colIntroText, p.IntroText)
	putString(row, colInviteText, p.InviteText)
	putString(row, colThankYouText, p.ThankYouText)
	putString(row, colMusicURL, p.MusicURL)
	putString(row, colHeroImageURL, p.HeroImageURL)
	putString(row, colColorPaletteText, p.ColorPaletteText)

	if p.EventDate != nil {
		row[colEventDate] = p.EventDate.UTC()
	}
	if p.MapCoordinates != nil {
		row[colLat] = p.MapCoordinates.Lat
		row[colLng] = p.MapCoordinates.Lng
	}
	if p.ColorPalette != nil {
		b, err := json.Marshal(p.ColorPalette)
		if err == nil {
			row[colColorPalette] = datatypes.JSON(b)
		}
	}
	return row
}

// Columns returns the sorted column names of a storage row.
func Columns(row map[string]any) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func stringField(row map[string]any, col string, dst *string) {
	switch v := row[col].(type) {
	case string:
		*dst = v
	case []byte:
		*dst = string(v)
	}
}

func putString(row map[string]any, col string, v *string) {
	if v != nil {
		row[col] = *v
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05-07", "2006-01-02"}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return t.UTC(), !t.IsZero()
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// decodePalette accepts a native array, a JSON-encoded array string or raw
// jsonb bytes. Anything else, including null and malformed JSON, resolves to
// fallback.
func decodePalette(v any, fallback []string) []string {
	def := append([]string(nil), fallback...)
	switch p := v.(type) {
	case []string:
		return append([]string{}, p...)
	case []any:
		out := make([]string, 0, len(p))
		for _, item := range p {
			s, ok := item.(string)
			if !ok {
				return def
			}
			out = append(out, s)
		}
		return out
	case string:
		return parsePalette([]byte(p), def)
	case []byte:
		return parsePalette(p, def)
	case datatypes.JSON:
		return parsePalette(p, def)
	case json.RawMessage:
		return parsePalette(p, def)
	default:
		return def
	}
}

// parsePalette reads a JSON array. A text[] column scanned without type
// information arrives as an array literal such as {#a,#b}, which is decoded
// with the pgx array codec instead.
func parsePalette(raw []byte, fallback []string) []string {
	var out []string
	err := json.Unmarshal(raw, &out)
	if err != nil {
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
			if arr, arrErr := parseTextArray(trimmed); arrErr == nil {
				return arr
			}
		}
	}
	if err != nil || out == nil {
		slog.Warn("unreadable color palette, using default", "error", err)
		return fallback
	}
	return out
}

func parseTextArray(raw []byte) ([]string, error) {
	var arr pgtype.FlatArray[pgtype.Text]
	// pgtype.Map caches scan plans and is not safe for concurrent use.
	if err := pgtype.NewMap().Scan(pgtype.TextArrayOID, pgtype.TextFormatCode, raw, &arr); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if !item.Valid {
			return nil, errors.New("null element in color palette")
		}
		out = append(out, item.String)
	}
	return out, nil
}
