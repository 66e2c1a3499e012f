package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	LocalIssuer   = "wedding-invite-local"
	LocalAudience = "wedding-invite"
)

type LocalConfig struct {
	Email        string
	PasswordHash string
	Secret       []byte
	TokenTTL     time.Duration
	Store        SessionStore
}

// LocalProvider authenticates a single configured admin account with a bcrypt
// hash and mints HS256 ID tokens. It stands in for Firebase in development
// and self-hosted deployments.
type LocalProvider struct {
	cfg   LocalConfig
	state *authState

	mu      sync.Mutex
	session *Session
}

func NewLocalProvider(cfg LocalConfig) *LocalProvider {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.Store == nil {
		cfg.Store = &MemorySessionStore{}
	}
	return &LocalProvider{cfg: cfg, state: newAuthState()}
}

func (p *LocalProvider) Start(ctx context.Context) error {
	s, err := p.cfg.Store.Load()
	if err != nil {
		slog.Warn("failed to load persisted identity session", "error", err)
		s = nil
	}
	// A session for an account that is no longer configured is dropped.
	if s != nil && !strings.EqualFold(s.User.Email, p.cfg.Email) {
		_ = p.cfg.Store.Clear()
		s = nil
	}

	p.mu.Lock()
	p.session = s
	p.mu.Unlock()

	if s != nil {
		p.state.set(&s.User)
	} else {
		p.state.set(nil)
	}
	return nil
}

func (p *LocalProvider) Subscribe(fn func(*User)) func() {
	return p.state.subscribe(fn)
}

func (p *LocalProvider) CurrentUser() *User {
	return p.state.current()
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*User, error) {
	if p.cfg.Email == "" || p.cfg.PasswordHash == "" || len(p.cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: local admin account is not configured", ErrInvalidConfig)
	}
	if !strings.EqualFold(strings.TrimSpace(email), p.cfg.Email) {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.cfg.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user := User{UID: LocalUID(p.cfg.Email), Email: p.cfg.Email}
	token, exp, err := p.mint(user)
	if err != nil {
		return nil, err
	}

	s := &Session{User: user, IDToken: token, ExpiresAt: exp}
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
	if err := p.cfg.Store.Save(s); err != nil {
		slog.Warn("failed to persist identity session", "error", err)
	}

	p.state.set(&user)
	return copyUser(&user), nil
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()

	err := p.cfg.Store.Clear()
	p.state.set(nil)
	return err
}

func (p *LocalProvider) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return "", ErrNoCurrentUser
	}
	if !forceRefresh && p.session.IDToken != "" && time.Now().Add(tokenRefreshMargin).Before(p.session.ExpiresAt) {
		return p.session.IDToken, nil
	}

	token, exp, err := p.mint(p.session.User)
	if err != nil {
		return "", err
	}
	p.session.IDToken = token
	p.session.ExpiresAt = exp
	return token, nil
}

func (p *LocalProvider) mint(user User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(p.cfg.TokenTTL)
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			Issuer:    LocalIssuer,
			Audience:  jwt.ClaimStrings{LocalAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign id token: %w", err)
	}
	return signed, exp, nil
}

// LocalUID derives a stable user id from the admin email.
func LocalUID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(email))).String()
}
