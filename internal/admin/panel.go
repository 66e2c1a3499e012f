// Package admin holds the admin panel: a dashboard over settings, RSVPs and
// gift reservations that stays current through realtime notifications while
// it is open.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/gifts"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/models"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/settings"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type SettingsStore interface {
	LoadStrict(ctx context.Context) (settings.WeddingSettings, error)
	Save(ctx context.Context, p settings.Partial) error
}

type RSVPLister interface {
	List(ctx context.Context) ([]models.RSVP, error)
}

type GiftRegistry interface {
	List(ctx context.Context) ([]gifts.Availability, error)
	Reservations(ctx context.Context) ([]models.GiftReservation, error)
	Create(ctx context.Context, in gifts.GiftInput) (*models.Gift, error)
	Update(ctx context.Context, giftID uuid.UUID, in gifts.GiftInput) error
}

type Notifier interface {
	Subscribe(collection string, fn func()) (unsubscribe func())
}

// Gate reports whether a bridging token is installed.
type Gate interface {
	RequireToken() error
}

type Totals struct {
	Confirmations int `json:"confirmations"`
	Guests        int `json:"guests"`
	Reservations  int `json:"reservations"`
}

type Dashboard struct {
	Settings     settings.WeddingSettings `json:"settings"`
	RSVPs        []models.RSVP            `json:"rsvps"`
	Gifts        []gifts.Availability     `json:"gifts"`
	Reservations []models.GiftReservation `json:"reservations"`
	Totals       Totals                   `json:"totals"`
}

func (d *Dashboard) recount() {
	d.Totals = Totals{Confirmations: len(d.RSVPs), Reservations: len(d.Reservations)}
	for _, r := range d.RSVPs {
		d.Totals.Guests += r.Headcount()
	}
}

func (d *Dashboard) clone() *Dashboard {
	c := *d
	c.Settings = d.Settings.Clone()
	c.RSVPs = append([]models.RSVP(nil), d.RSVPs...)
	c.Gifts = append([]gifts.Availability(nil), d.Gifts...)
	c.Reservations = append([]models.GiftReservation(nil), d.Reservations...)
	return &c
}

type Panel struct {
	store    SettingsStore
	rsvps    RSVPLister
	gifts    GiftRegistry
	notifier Notifier
	gate     Gate

	// onSettingsUpdate runs after every successful save.
	onSettingsUpdate func(ctx context.Context)

	mu       sync.Mutex
	open     bool
	unsubs   []func()
	snapshot *Dashboard
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewPanel(store SettingsStore, rsvps RSVPLister, giftList GiftRegistry, notifier Notifier, gate Gate, onSettingsUpdate func(ctx context.Context)) *Panel {
	if onSettingsUpdate == nil {
		onSettingsUpdate = func(context.Context) {}
	}
	return &Panel{
		store:            store,
		rsvps:            rsvps,
		gifts:            giftList,
		notifier:         notifier,
		gate:             gate,
		onSettingsUpdate: onSettingsUpdate,
	}
}

// Open subscribes to change notifications and performs the first load. Opening
// an already open panel just reloads it.
func (p *Panel) Open(ctx context.Context) (*Dashboard, error) {
	if err := p.gate.RequireToken(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if !p.open {
		p.open = true
		p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
		p.unsubs = []func(){
			p.notifier.Subscribe("rsvps", func() { go p.refresh(p.reloadRSVPs) }),
			p.notifier.Subscribe("gift_reservations", func() { go p.refresh(p.reloadGifts) }),
			p.notifier.Subscribe("gifts", func() { go p.refresh(p.reloadGifts) }),
		}
		slog.Info("admin panel opened")
	}
	p.mu.Unlock()

	return p.Dashboard(ctx)
}

// Close releases subscriptions and drops the cached dashboard. Safe to call
// when already closed.
func (p *Panel) Close() {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return
	}
	unsubs := p.unsubs
	cancel := p.cancel
	p.open = false
	p.unsubs = nil
	p.snapshot = nil
	p.mu.Unlock()

	cancel()
	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
	slog.Info("admin panel closed")
}

func (p *Panel) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Snapshot returns the last loaded dashboard, or nil when closed.
func (p *Panel) Snapshot() *Dashboard {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot == nil {
		return nil
	}
	return p.snapshot.clone()
}

// Dashboard loads settings, RSVPs and gifts concurrently. It fails fast with
// session.ErrNotAuthenticated when no bridging token is installed.
func (p *Panel) Dashboard(ctx context.Context) (*Dashboard, error) {
	if err := p.gate.RequireToken(); err != nil {
		return nil, err
	}

	d := &Dashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.store.LoadStrict(gctx)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		d.Settings = s
		return nil
	})
	g.Go(func() error {
		list, err := p.rsvps.List(gctx)
		d.RSVPs = list
		return err
	})
	g.Go(func() error {
		list, err := p.gifts.List(gctx)
		d.Gifts = list
		return err
	})
	g.Go(func() error {
		list, err := p.gifts.Reservations(gctx)
		d.Reservations = list
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("failed to load admin dashboard", "error", err)
		return nil, err
	}
	d.recount()

	p.mu.Lock()
	if p.open {
		p.snapshot = d.clone()
	}
	p.mu.Unlock()
	return d, nil
}

// SaveSettings writes a partial update and, on success, tells the
// application to reload its settings.
func (p *Panel) SaveSettings(ctx context.Context, partial settings.Partial) error {
	if err := p.gate.RequireToken(); err != nil {
		return err
	}
	if err := p.store.Save(ctx, partial); err != nil {
		return err
	}
	p.onSettingsUpdate(ctx)

	s, err := p.store.LoadStrict(ctx)
	if err != nil {
		slog.Warn("settings saved but reload failed", "error", err)
		return nil
	}
	p.update(func(d *Dashboard) { d.Settings = s })
	return nil
}

// CreateGift adds a catalogue entry and refreshes the gift lists.
func (p *Panel) CreateGift(ctx context.Context, in gifts.GiftInput) (*models.Gift, error) {
	if err := p.gate.RequireToken(); err != nil {
		return nil, err
	}
	g, err := p.gifts.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	p.refreshGiftsAfterWrite(ctx)
	return g, nil
}

func (p *Panel) UpdateGift(ctx context.Context, giftID uuid.UUID, in gifts.GiftInput) error {
	if err := p.gate.RequireToken(); err != nil {
		return err
	}
	if err := p.gifts.Update(ctx, giftID, in); err != nil {
		return err
	}
	p.refreshGiftsAfterWrite(ctx)
	return nil
}

// refreshGiftsAfterWrite reloads an open dashboard's gifts without waiting
// for the change notification. Failures leave the next notification to catch up.
func (p *Panel) refreshGiftsAfterWrite(ctx context.Context) {
	if !p.IsOpen() {
		return
	}
	if err := p.reloadGifts(ctx); err != nil {
		slog.Warn("gift list reload after write failed", "error", err)
	}
}

// refresh runs a notification-driven reload. Whole lists are replaced, so
// the last completed load wins.
func (p *Panel) refresh(reload func(ctx context.Context) error) {
	p.mu.Lock()
	ctx := p.ctx
	open := p.open
	p.mu.Unlock()
	if !open || p.gate.RequireToken() != nil {
		return
	}

	if err := reload(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("admin panel refresh failed", "error", err)
	}
}

func (p *Panel) reloadRSVPs(ctx context.Context) error {
	list, err := p.rsvps.List(ctx)
	if err != nil {
		return err
	}
	p.update(func(d *Dashboard) { d.RSVPs = list })
	return nil
}

func (p *Panel) reloadGifts(ctx context.Context) error {
	var (
		list         []gifts.Availability
		reservations []models.GiftReservation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		list, err = p.gifts.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		reservations, err = p.gifts.Reservations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	p.update(func(d *Dashboard) {
		d.Gifts = list
		d.Reservations = reservations
	})
	return nil
}

func (p *Panel) update(fn func(d *Dashboard)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open || p.snapshot == nil {
		return
	}
	fn(p.snapshot)
	p.snapshot.recount()
}
