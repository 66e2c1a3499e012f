package admin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/gifts"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/models"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/settings"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoToken = errors.New("no bridged session")

type fakeGate struct{ ok atomic.Bool }

func (g *fakeGate) RequireToken() error {
	if g.ok.Load() {
		return nil
	}
	return errNoToken
}

type fakeStore struct {
	mu    sync.Mutex
	s     settings.WeddingSettings
	loads int
	err   error
}

func (f *fakeStore) LoadStrict(context.Context) (settings.WeddingSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.s, f.err
}

func (f *fakeStore) Save(_ context.Context, p settings.Partial) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.GroomName != nil {
		f.s.GroomName = *p.GroomName
	}
	return nil
}

type fakeRSVPs struct {
	mu    sync.Mutex
	list  []models.RSVP
	calls int
}

func (f *fakeRSVPs) List(context.Context) ([]models.RSVP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]models.RSVP(nil), f.list...), nil
}

func (f *fakeRSVPs) set(list []models.RSVP) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = list
}

type fakeGifts struct {
	mu   sync.Mutex
	list []gifts.Availability
}

func newFakeGifts() *fakeGifts {
	return &fakeGifts{list: []gifts.Availability{{Gift: models.Gift{ID: uuid.New(), Quantity: 2}, Remaining: 2}}}
}

func (f *fakeGifts) List(context.Context) ([]gifts.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gifts.Availability(nil), f.list...), nil
}

func (f *fakeGifts) Reservations(context.Context) ([]models.GiftReservation, error) {
	return nil, nil
}

func (f *fakeGifts) Create(_ context.Context, in gifts.GiftInput) (*models.Gift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := models.Gift{ID: uuid.New(), Name: in.Name, Quantity: in.Quantity}
	f.list = append(f.list, gifts.Availability{Gift: g, Remaining: int64(in.Quantity)})
	return &g, nil
}

func (f *fakeGifts) Update(_ context.Context, id uuid.UUID, in gifts.GiftInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.list {
		if f.list[i].ID == id {
			f.list[i].Name = in.Name
			f.list[i].Quantity = in.Quantity
			return nil
		}
	}
	return gifts.ErrGiftNotFound
}

type fakeNotifier struct {
	mu   sync.Mutex
	subs map[string]func()
}

func (n *fakeNotifier) Subscribe(collection string, fn func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = map[string]func(){}
	}
	n.subs[collection] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, collection)
	}
}

func (n *fakeNotifier) fire(collection string) {
	n.mu.Lock()
	fn := n.subs[collection]
	n.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

type fixture struct {
	gate     *fakeGate
	store    *fakeStore
	rsvps    *fakeRSVPs
	gifts    *fakeGifts
	notifier *fakeNotifier
	updates  atomic.Int32
	panel    *Panel
}

func newFixture() *fixture {
	f := &fixture{
		gate:     &fakeGate{},
		store:    &fakeStore{s: settings.DefaultSettings()},
		rsvps:    &fakeRSVPs{list: []models.RSVP{{FirstName: "Ana", HasSpouse: true}}},
		gifts:    newFakeGifts(),
		notifier: &fakeNotifier{},
	}
	f.panel = NewPanel(f.store, f.rsvps, f.gifts, f.notifier, f.gate, func(context.Context) {
		f.updates.Add(1)
	})
	return f
}

func TestPanel_DashboardFailsFastWithoutToken(t *testing.T) {
	f := newFixture()

	_, err := f.panel.Dashboard(context.Background())
	require.ErrorIs(t, err, errNoToken)
	_, err = f.panel.Open(context.Background())
	require.ErrorIs(t, err, errNoToken)

	assert.Zero(t, f.store.loads)
	assert.Zero(t, f.rsvps.calls)
	assert.False(t, f.panel.IsOpen())
}

func TestPanel_OpenLoadsEverything(t *testing.T) {
	f := newFixture()
	f.gate.ok.Store(true)

	d, err := f.panel.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultSettings().GroomName, d.Settings.GroomName)
	assert.Len(t, d.RSVPs, 1)
	assert.Len(t, d.Gifts, 1)
	assert.Equal(t, Totals{Confirmations: 1, Guests: 2}, d.Totals)
	assert.Equal(t, 3, f.notifier.count())
	assert.NotNil(t, f.panel.Snapshot())
}

func TestPanel_NotificationReplacesList(t *testing.T) {
	f := newFixture()
	f.gate.ok.Store(true)
	_, err := f.panel.Open(context.Background())
	require.NoError(t, err)

	f.rsvps.set([]models.RSVP{{FirstName: "Ana"}, {FirstName: "Bia"}})
	f.notifier.fire("rsvps")

	require.Eventually(t, func() bool {
		s := f.panel.Snapshot()
		return s != nil && len(s.RSVPs) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, f.panel.Snapshot().Totals.Confirmations)
}

func TestPanel_CloseReleasesSubscriptions(t *testing.T) {
	f := newFixture()
	f.gate.ok.Store(true)
	_, err := f.panel.Open(context.Background())
	require.NoError(t, err)

	f.panel.Close()
	f.panel.Close()
	assert.False(t, f.panel.IsOpen())
	assert.Nil(t, f.panel.Snapshot())
	assert.Zero(t, f.notifier.count())
}

func TestPanel_SaveSettingsNotifiesApp(t *testing.T) {
	f := newFixture()
	f.gate.ok.Store(true)
	_, err := f.panel.Open(context.Background())
	require.NoError(t, err)

	name := "Novo Noivo"
	require.NoError(t, f.panel.SaveSettings(context.Background(), settings.Partial{GroomName: &name}))
	assert.Equal(t, int32(1), f.updates.Load())
	assert.Equal(t, name, f.panel.Snapshot().Settings.GroomName)

	f.gate.ok.Store(false)
	require.ErrorIs(t, f.panel.SaveSettings(context.Background(), settings.Partial{GroomName: &name}), errNoToken)
	assert.Equal(t, int32(1), f.updates.Load())
}

func TestPanel_DashboardPropagatesLoadError(t *testing.T) {
	f := newFixture()
	f.gate.ok.Store(true)
	f.store.err = errors.New("backend down")

	_, err := f.panel.Dashboard(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

func TestPanel_GiftWritesRefreshSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.panel.CreateGift(ctx, gifts.GiftInput{Name: "Panelas", Quantity: 1})
	require.ErrorIs(t, err, errNoToken)

	f.gate.ok.Store(true)
	_, err = f.panel.Open(ctx)
	require.NoError(t, err)

	g, err := f.panel.CreateGift(ctx, gifts.GiftInput{Name: "Panelas", Quantity: 1})
	require.NoError(t, err)
	require.Len(t, f.panel.Snapshot().Gifts, 2)

	require.NoError(t, f.panel.UpdateGift(ctx, g.ID, gifts.GiftInput{Name: "Panelas", Quantity: 3}))
	assert.Equal(t, 3, f.panel.Snapshot().Gifts[1].Quantity)

	require.ErrorIs(t, f.panel.UpdateGift(ctx, uuid.New(), gifts.GiftInput{Name: "X", Quantity: 1}), gifts.ErrGiftNotFound)
}
