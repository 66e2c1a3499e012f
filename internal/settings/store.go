package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/metrics"
)

// Store is the single source of truth for the settings record. It keeps no
// cache: callers re-run Load after a Save to observe the merged state.
type Store struct {
	backend  Backend
	defaults WeddingSettings
}

func NewStore(backend Backend, defaults WeddingSettings) *Store {
	return &Store{backend: backend, defaults: defaults.Clone()}
}

// Defaults returns a copy of the fallback record.
func (s *Store) Defaults() WeddingSettings {
	return s.defaults.Clone()
}

// Load is the public read contract: it always returns a fully populated
// record and falls back to the defaults on any backend failure.
func (s *Store) Load(ctx context.Context) WeddingSettings {
	st, err := s.LoadStrict(ctx)
	if err == nil {
		return st
	}
	return s.Fallback(err)
}

// Fallback logs a failed read by its kind and returns the defaults. Network
// failures log at WARN, anything else at ERROR.
func (s *Store) Fallback(err error) WeddingSettings {
	if Classify(err) == KindNetwork {
		slog.Warn("settings backend unreachable, using defaults", "error", err)
		metrics.SettingsLoadTotal.WithLabelValues("fallback_network").Inc()
	} else {
		slog.Error("unexpected error loading settings, using defaults", "error", err)
		metrics.SettingsLoadTotal.WithLabelValues("fallback_unexpected").Inc()
	}
	return s.Defaults()
}

// LoadStrict reads the record, creating it from the defaults when the row
// does not exist yet. Backend failures are returned alongside the defaults
// so admin callers can tell live data from fallback.
func (s *Store) LoadStrict(ctx context.Context) (WeddingSettings, error) {
	row, err := s.backend.Fetch(ctx, SingletonID)
	if errors.Is(err, ErrNotFound) {
		return s.create(ctx)
	}
	if err != nil {
		return s.Defaults(), err
	}

	metrics.SettingsLoadTotal.WithLabelValues("live").Inc()
	return ToCanonical(row, s.defaults), nil
}

// create inserts the defaults. When a concurrent load or save created the row
// first, nothing is overwritten and the stored row is read back instead.
func (s *Store) create(ctx context.Context) (WeddingSettings, error) {
	slog.Info("no settings found, creating initial settings")

	defaults := s.Defaults()
	created, err := s.backend.Insert(ctx, SingletonID, ToStorage(Full(defaults)))
	if err != nil {
		return defaults, fmt.Errorf("failed to create initial settings: %w", err)
	}
	if !created {
		row, err := s.backend.Fetch(ctx, SingletonID)
		if err != nil {
			return defaults, fmt.Errorf("failed to read settings created concurrently: %w", err)
		}
		metrics.SettingsLoadTotal.WithLabelValues("live").Inc()
		return ToCanonical(row, s.defaults), nil
	}

	metrics.SettingsLoadTotal.WithLabelValues("created").Inc()
	return defaults, nil
}

// Save writes only the fields present in p. Errors are always returned so the
// caller can offer a retry.
func (s *Store) Save(ctx context.Context, p Partial) error {
	row := ToStorage(p)
	if len(row) == 0 {
		return nil
	}

	err := s.backend.Update(ctx, SingletonID, row)
	if errors.Is(err, ErrNotFound) {
		err = s.backend.Upsert(ctx, SingletonID, row)
	}
	if err != nil {
		metrics.SettingsSaveTotal.WithLabelValues("error").Inc()
		slog.Error("failed to save settings", "error", err, "columns", Columns(row))
		return fmt.Errorf("save settings: %w", err)
	}

	metrics.SettingsSaveTotal.WithLabelValues("ok").Inc()
	slog.Info("settings saved", "columns", Columns(row))
	return nil
}
