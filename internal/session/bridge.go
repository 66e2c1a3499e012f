// Package session bridges the identity provider's session into the data
// client's auth context. A session restored from persistence is only trusted
// when this process saw the interactive login that created it; anything else
// is treated as stale and signed out.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/identity"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/metrics"
)

var ErrNotAuthenticated = errors.New("no bridged session")

// errSuperseded is returned when a sign-out lands while a session is still
// being established.
var errSuperseded = fmt.Errorf("%w: signed out while establishing", ErrNotAuthenticated)

type State int

const (
	PendingValidation State = iota
	SignedOut
	SignedIn
)

func (s State) String() string {
	switch s {
	case PendingValidation:
		return "pending_validation"
	case SignedOut:
		return "signed_out"
	case SignedIn:
		return "signed_in"
	default:
		return "unknown"
	}
}

// DataClient is the secondary client the bridging token is installed into.
type DataClient interface {
	SetSession(ctx context.Context, token string) error
	SignOut(ctx context.Context) error
}

type Bridge struct {
	provider identity.Provider
	client   DataClient
	marker   Marker
	idle     *IdleWatchdog

	mu    sync.Mutex
	state State
	user  *identity.User
	// epoch advances on every sign-out. An establish that started in an
	// earlier epoch must not commit.
	epoch uint64
	// providerUID is the user of the provider's most recent auth event.
	providerUID string
	baseCtx     context.Context
	unsubscribe func()
	nextObs     int
	observers   map[int]func()
}

// NewBridge wires provider and client together. idleTimeout <= 0 disables
// the idle sign-out.
func NewBridge(provider identity.Provider, client DataClient, marker Marker, idleTimeout time.Duration) *Bridge {
	if marker == nil {
		marker = &MemoryMarker{}
	}
	b := &Bridge{
		provider:  provider,
		client:    client,
		marker:    marker,
		state:     PendingValidation,
		baseCtx:   context.Background(),
		observers: make(map[int]func()),
	}
	b.idle = NewIdleWatchdog(idleTimeout, b.onIdle)
	return b
}

// Start subscribes to the provider's auth stream and lets the provider
// rehydrate its persisted session. The first callback resolves the pending
// state.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	b.baseCtx = context.WithoutCancel(ctx)
	b.mu.Unlock()

	unsubscribe := b.provider.Subscribe(b.onAuthState)

	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()

	if err := b.provider.Start(ctx); err != nil {
		return fmt.Errorf("failed to start identity provider: %w", err)
	}
	return nil
}

func (b *Bridge) onAuthState(u *identity.User) {
	b.mu.Lock()
	state := b.state
	ctx := b.baseCtx
	epoch := b.epoch
	prevUID := b.providerUID
	b.providerUID = ""
	if u != nil {
		b.providerUID = u.UID
	}
	bridged := b.user != nil && b.user.UID == prevUID
	b.mu.Unlock()

	switch {
	case state == PendingValidation && u == nil:
		b.setSignedOut("no_session")

	case state == PendingValidation && !b.marker.IsSet():
		// Persisted identity without an interactive login in this process.
		slog.Warn("stale persisted session detected, signing out", "uid", u.UID)
		if err := b.signOut(ctx, "stale"); err != nil {
			slog.Error("failed to sign out stale session", "error", err)
		}

	case state == PendingValidation:
		if err := b.establish(ctx, u, "restored", epoch); err != nil {
			slog.Error("failed to restore bridged session", "error", err)
			_ = b.signOut(ctx, "bridge_failed")
		}

	case state == SignedIn && u == nil && bridged:
		slog.Info("identity provider signed out, clearing bridged session")
		_ = b.signOut(ctx, "provider_signed_out")

	case state == SignedIn && u == nil:
		// A different account (for example one rejected by the admin
		// allowlist) left the provider. The bridged admin stays signed in.
		slog.Info("ignoring provider sign-out of a non-bridged user", "uid", prevUID)
	}
}

// OnLoginSuccess is called after an interactive sign-in. It marks this
// process as having established the session and installs the bridging token.
func (b *Bridge) OnLoginSuccess(ctx context.Context, u *identity.User) error {
	if u == nil {
		return errors.New("login success without a user")
	}
	b.mu.Lock()
	epoch := b.epoch
	b.mu.Unlock()
	b.marker.Set()

	if err := b.establish(ctx, u, "login", epoch); err != nil {
		if errors.Is(err, errSuperseded) {
			return err
		}
		if soErr := b.signOut(ctx, "bridge_failed"); soErr != nil {
			slog.Error("failed to roll back after bridge failure", "error", soErr)
		}
		return err
	}
	return nil
}

// establish mints a fresh token for u and installs it into the data client.
// It commits SignedIn only if no sign-out happened since epoch; otherwise the
// token it just installed is retracted.
func (b *Bridge) establish(ctx context.Context, u *identity.User, reason string, epoch uint64) error {
	token, err := b.provider.IDToken(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to mint bridging token: %w", err)
	}
	if err := b.client.SetSession(ctx, token); err != nil {
		return fmt.Errorf("failed to install bridging token: %w", err)
	}

	user := *u
	b.mu.Lock()
	if b.epoch != epoch {
		b.mu.Unlock()
		slog.Warn("sign-out during session setup, retracting bridging token", "uid", user.UID, "reason", reason)
		if err := b.client.SignOut(ctx); err != nil {
			slog.Error("failed to retract superseded bridging token", "error", err)
		}
		return errSuperseded
	}
	b.state = SignedIn
	b.user = &user
	b.mu.Unlock()

	b.idle.Reset()
	metrics.BridgeSessionActive.Set(1)
	metrics.SessionTransitionsTotal.WithLabelValues(SignedIn.String(), reason).Inc()
	slog.Info("bridged session established", "uid", user.UID, "reason", reason)
	return nil
}

// SignOut is the explicit sign-out.
func (b *Bridge) SignOut(ctx context.Context) error {
	return b.signOut(ctx, "explicit")
}

// signOut clears the marker and the local identity, retracts the token from
// the data client, signs the provider out and notifies observers. State moves
// to SignedOut before the provider is called so its callback is a no-op.
func (b *Bridge) signOut(ctx context.Context, reason string) error {
	b.setSignedOut(reason)
	b.marker.Clear()
	b.idle.Stop()

	var errs []error
	if err := b.client.SignOut(ctx); err != nil {
		errs = append(errs, fmt.Errorf("data client sign-out: %w", err))
	}
	if err := b.provider.SignOut(ctx); err != nil {
		errs = append(errs, fmt.Errorf("identity provider sign-out: %w", err))
	}

	b.notifySignOut()
	return errors.Join(errs...)
}

func (b *Bridge) setSignedOut(reason string) {
	b.mu.Lock()
	changed := b.state != SignedOut
	b.state = SignedOut
	b.user = nil
	b.epoch++
	b.mu.Unlock()

	metrics.BridgeSessionActive.Set(0)
	if changed {
		metrics.SessionTransitionsTotal.WithLabelValues(SignedOut.String(), reason).Inc()
	}
}

func (b *Bridge) onIdle() {
	b.mu.Lock()
	signedIn := b.state == SignedIn
	ctx := b.baseCtx
	b.mu.Unlock()
	if !signedIn {
		return
	}

	slog.Info("admin session idle, signing out")
	if err := b.signOut(ctx, "idle"); err != nil {
		slog.Error("idle sign-out failed", "error", err)
	}
}

// Touch records admin activity and pushes the idle deadline back.
func (b *Bridge) Touch() {
	if b.State() == SignedIn {
		b.idle.Reset()
	}
}

// BeforeUnload clears the marker ahead of process exit so the next start
// treats any persisted identity as stale.
func (b *Bridge) BeforeUnload() {
	b.marker.Clear()
}

// Close stops observing the provider. It does not sign out.
func (b *Bridge) Close() {
	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	b.idle.Stop()
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) CurrentUser() *identity.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.user == nil {
		return nil
	}
	u := *b.user
	return &u
}

// RequireToken returns ErrNotAuthenticated unless a bridging token is
// installed. Loads that depend on RLS-gated data call it first.
func (b *Bridge) RequireToken() error {
	if b.State() != SignedIn {
		return ErrNotAuthenticated
	}
	return nil
}

// OnSignOut registers fn to run after every sign-out.
func (b *Bridge) OnSignOut(fn func()) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextObs
	b.nextObs++
	b.observers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}

func (b *Bridge) notifySignOut() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.observers))
	for _, fn := range b.observers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
