package settings

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

// DefaultSettings returns the compiled-in record used on first run and as the
// fallback whenever the backend cannot be read.
func DefaultSettings() WeddingSettings {
	return WeddingSettings{
		GroomName:        "Davi Aguiar",
		BrideName:        "Rosângela de Jesus",
		EventDate:        time.Date(2024, time.December, 14, 16, 0, 0, 0, time.UTC),
		EventLocation:    "Villa Giardini",
		EventAddress:     "St. de Mansões Park Way Q 3 - Núcleo Bandeirante, Brasília - DF",
		MapCoordinates:   Coordinates{Lat: -15.8310344, Lng: -47.9546379},
		MusicURL:         "https://cdn.pixabay.com/audio/2022/02/07/audio_1947b74447.mp3",
		HeroImageURL:     "https://picsum.photos/800/1200?grayscale",
		IntroText:        "Com a bênção de Deus e de nossos pais",
		InviteText:       "Convidam para a cerimônia religiosa de seu casamento.",
		ThankYouText:     "Sua presença tornará este dia ainda mais especial.",
		ColorPaletteText: "Terracota & Verde Oliva",
		ColorPalette:     []string{"#8f3d18", "#c66530", "#79824d", "#5e5a3d"},
	}
}

// LoadDefaults overlays the YAML file at path on top of DefaultSettings.
// The file uses the storage keys (lat, lng, colorPalette, groomName, ...),
// so the same codec that reads backend rows reads the overlay. An empty path
// returns the compiled-in record.
func LoadDefaults(path string) (WeddingSettings, error) {
	base := DefaultSettings()
	if path == "" {
		return base, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return base, fmt.Errorf("failed to load settings defaults %s: %w", path, err)
	}

	return ToCanonical(k.Raw(), base), nil
}
