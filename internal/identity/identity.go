// Package identity is the primary identity provider: interactive sign-in,
// a persisted session that survives process restarts, an auth-state stream
// and short-lived signed ID tokens for the signed-in user.
package identity

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrInvalidCredentials means the email/password pair was rejected.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidConfig means the provider itself is misconfigured (bad API key,
	// missing secret). Operators need to fix configuration, not the user.
	ErrInvalidConfig = errors.New("identity provider misconfigured")
	// ErrAuthFailed covers every other sign-in failure.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrNoCurrentUser is returned by IDToken when nobody is signed in.
	ErrNoCurrentUser = errors.New("no signed-in user")
)

type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Provider is the contract the session bridge consumes.
type Provider interface {
	// Start rehydrates any persisted session and emits the initial auth state.
	Start(ctx context.Context) error
	// Subscribe registers fn for auth-state changes. Once Start has run, fn is
	// called immediately with the current state.
	Subscribe(fn func(*User)) (unsubscribe func())
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context) error
	// IDToken returns a signed token for the current user. forceRefresh skips
	// any cached token.
	IDToken(ctx context.Context, forceRefresh bool) (string, error)
	CurrentUser() *User
}

// authState is the observable current-user value shared by the providers.
type authState struct {
	mu      sync.Mutex
	user    *User
	started bool
	nextID  int
	subs    map[int]func(*User)
}

func newAuthState() *authState {
	return &authState{subs: make(map[int]func(*User))}
}

func (a *authState) subscribe(fn func(*User)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	started := a.started
	current := copyUser(a.user)
	a.mu.Unlock()

	if started {
		fn(current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
		})
	}
}

// set stores u and notifies subscribers outside the lock so callbacks may
// call back into the provider.
func (a *authState) set(u *User) {
	a.mu.Lock()
	a.user = copyUser(u)
	a.started = true
	fns := make([]func(*User), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(copyUser(u))
	}
}

func (a *authState) current() *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copyUser(a.user)
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
