// Package app is the application shell: it owns the settings snapshot the
// public invitation renders and refreshes it when the admin saves.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/retry"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/settings"
)

type SettingsLoader interface {
	LoadStrict(ctx context.Context) (settings.WeddingSettings, error)
	// Fallback logs a failed read and returns the defaults to serve instead.
	Fallback(err error) settings.WeddingSettings
	Defaults() settings.WeddingSettings
}

type Shell struct {
	store    SettingsLoader
	attempts uint64
	delay    time.Duration

	mu      sync.RWMutex
	current settings.WeddingSettings
	live    bool

	ready     chan struct{}
	readyOnce sync.Once
}

// NewShell starts out serving the store's defaults until Start completes.
func NewShell(store SettingsLoader, attempts uint64, delay time.Duration) *Shell {
	return &Shell{
		store:    store,
		attempts: attempts,
		delay:    delay,
		current:  store.Defaults(),
		ready:    make(chan struct{}),
	}
}

// Start performs the initial load with a bounded fixed-delay retry. When every
// attempt fails the shell keeps serving defaults.
func (s *Shell) Start(ctx context.Context) {
	defer s.readyOnce.Do(func() { close(s.ready) })

	st, err := retry.Value(ctx, s.attempts, s.delay, s.store.LoadStrict)
	if err != nil {
		fallback := s.store.Fallback(err)
		s.mu.Lock()
		s.current = fallback
		s.live = false
		s.mu.Unlock()
		slog.Info("initial settings load gave up", "attempts", s.attempts)
		return
	}
	s.set(st)
	slog.Info("settings loaded")
}

// Ready is closed once Start has finished, successfully or not.
func (s *Shell) Ready() <-chan struct{} {
	return s.ready
}

func (s *Shell) Settings() settings.WeddingSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Live reports whether the snapshot came from the backend rather than the
// defaults.
func (s *Shell) Live() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// OnSettingsUpdate reloads after an admin save. A failed reload keeps the
// current snapshot.
func (s *Shell) OnSettingsUpdate(ctx context.Context) {
	st, err := s.store.LoadStrict(ctx)
	if err != nil {
		slog.Warn("settings reload after update failed, keeping current", "error", err)
		return
	}
	s.set(st)
}

func (s *Shell) set(st settings.WeddingSettings) {
	s.mu.Lock()
	s.current = st.Clone()
	s.live = true
	s.mu.Unlock()
}
