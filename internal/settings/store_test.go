package settings

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend is an in-memory Backend that merges columns like an upsert
// with DO UPDATE on the given columns.
type memBackend struct {
	mu      sync.Mutex
	row     map[string]any
	fetchFn func() error
	// beforeInsert runs just before Insert takes effect.
	beforeInsert func(m *memBackend)

	fetches int
	inserts int
	upserts int
	updates int
}

func (m *memBackend) Fetch(_ context.Context, id int64) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.fetchFn != nil {
		if err := m.fetchFn(); err != nil {
			return nil, err
		}
	}
	if m.row == nil {
		return nil, ErrNotFound
	}
	out := make(map[string]any, len(m.row))
	for k, v := range m.row {
		out[k] = v
	}
	return out, nil
}

func (m *memBackend) Insert(_ context.Context, id int64, row map[string]any) (bool, error) {
	if m.beforeInsert != nil {
		m.beforeInsert(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.row != nil {
		return false, nil
	}
	m.row = map[string]any{"id": id}
	for k, v := range row {
		m.row[k] = v
	}
	return true, nil
}

func (m *memBackend) Upsert(_ context.Context, id int64, row map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.row == nil {
		m.row = map[string]any{"id": id}
	}
	for k, v := range row {
		m.row[k] = v
	}
	return nil
}

func (m *memBackend) Update(_ context.Context, id int64, row map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.row == nil {
		return ErrNotFound
	}
	for k, v := range row {
		m.row[k] = v
	}
	return nil
}

func TestStore_LoadCreatesOnce(t *testing.T) {
	t.Parallel()

	backend := &memBackend{}
	store := NewStore(backend, DefaultSettings())
	ctx := context.Background()

	first, err := store.LoadStrict(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), first)
	assert.Equal(t, 1, backend.inserts)

	second, err := store.LoadStrict(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, backend.inserts, "second load must not create again")
	assert.Zero(t, backend.upserts)
}

func TestStore_LoadFallsBackOnError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
	}{
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}},
		{"deadline", context.DeadlineExceeded},
		{"unexpected", errors.New("permission denied for table settings")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &memBackend{fetchFn: func() error { return tc.err }}
			store := NewStore(backend, DefaultSettings())

			got := store.Load(context.Background())
			assert.Equal(t, DefaultSettings(), got)
			assert.Zero(t, backend.inserts)
			assert.Zero(t, backend.upserts)

			_, err := store.LoadStrict(context.Background())
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestStore_SavePartialLeavesOtherFields(t *testing.T) {
	t.Parallel()

	backend := &memBackend{}
	store := NewStore(backend, DefaultSettings())
	ctx := context.Background()

	before, err := store.LoadStrict(ctx)
	require.NoError(t, err)

	name := "Carlos"
	require.NoError(t, store.Save(ctx, Partial{GroomName: &name}))

	after, err := store.LoadStrict(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Carlos", after.GroomName)
	assert.Equal(t, before.EventDate, after.EventDate)
	assert.Equal(t, before.ColorPalette, after.ColorPalette)
	assert.Equal(t, before.MapCoordinates, after.MapCoordinates)
	assert.Equal(t, before.BrideName, after.BrideName)
}

func TestStore_SaveRoundTrip(t *testing.T) {
	t.Parallel()

	backend := &memBackend{}
	store := NewStore(backend, DefaultSettings())
	ctx := context.Background()
	_, err := store.LoadStrict(ctx)
	require.NoError(t, err)

	date := time.Date(2027, 1, 2, 17, 0, 0, 0, time.UTC)
	coords := Coordinates{Lat: 10.5, Lng: -20.5}
	p := Partial{
		EventDate:      &date,
		MapCoordinates: &coords,
		ColorPalette:   []string{"#fefefe"},
	}
	require.NoError(t, store.Save(ctx, p))

	got, err := store.LoadStrict(ctx)
	require.NoError(t, err)
	assert.Equal(t, date, got.EventDate)
	assert.Equal(t, coords, got.MapCoordinates)
	assert.Equal(t, []string{"#fefefe"}, got.ColorPalette)
	assert.Equal(t, DefaultSettings().GroomName, got.GroomName)
}

func TestStore_SaveWithoutRowUpserts(t *testing.T) {
	t.Parallel()

	backend := &memBackend{}
	store := NewStore(backend, DefaultSettings())

	text := "Olá"
	require.NoError(t, store.Save(context.Background(), Partial{IntroText: &text}))
	assert.Equal(t, 1, backend.updates)
	assert.Equal(t, 1, backend.upserts)

	got := store.Load(context.Background())
	assert.Equal(t, "Olá", got.IntroText)
	assert.Equal(t, DefaultSettings().GroomName, got.GroomName)
}

func TestStore_SaveEmptyIsNoop(t *testing.T) {
	t.Parallel()

	backend := &memBackend{}
	store := NewStore(backend, DefaultSettings())
	require.NoError(t, store.Save(context.Background(), Partial{}))
	assert.Zero(t, backend.updates)
	assert.Zero(t, backend.upserts)
}

type failingBackend struct{ memBackend }

func (f *failingBackend) Update(context.Context, int64, map[string]any) error {
	return errors.New("boom")
}

func TestStore_SavePropagatesErrors(t *testing.T) {
	t.Parallel()

	store := NewStore(&failingBackend{}, DefaultSettings())
	name := "X"
	err := store.Save(context.Background(), Partial{GroomName: &name})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindNotFound, Classify(ErrNotFound))
	assert.Equal(t, KindNetwork, Classify(context.DeadlineExceeded))
	assert.Equal(t, KindNetwork, Classify(&net.DNSError{Err: "no such host", Name: "db"}))
	assert.Equal(t, KindUnexpected, Classify(errors.New("syntax error")))
}

func TestStore_LazyCreateKeepsConcurrentSave(t *testing.T) {
	t.Parallel()

	backend := &memBackend{}
	store := NewStore(backend, DefaultSettings())
	ctx := context.Background()

	// An admin save lands between the first load's fetch and its insert.
	backend.beforeInsert = func(m *memBackend) {
		m.beforeInsert = nil
		name := "Saved First"
		require.NoError(t, store.Save(ctx, Partial{GroomName: &name}))
	}

	got, err := store.LoadStrict(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Saved First", got.GroomName)

	again, err := store.LoadStrict(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Saved First", again.GroomName)
	assert.Equal(t, DefaultSettings().BrideName, again.BrideName)
}

func TestStore_FallbackReturnsDefaults(t *testing.T) {
	t.Parallel()

	store := NewStore(&memBackend{}, DefaultSettings())
	got := store.Fallback(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})
	assert.Equal(t, DefaultSettings(), got)

	got.ColorPalette[0] = "#000000"
	assert.NotEqual(t, "#000000", store.Defaults().ColorPalette[0])
}
