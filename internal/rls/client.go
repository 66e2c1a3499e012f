// Package rls is the secondary data client. It holds the session bridged in
// from the identity provider and applies it to Postgres row-level security
// by setting the request claims and role on every scoped transaction.
package rls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/identity"
	"gorm.io/gorm"
)

const (
	RoleAnon          = "anon"
	RoleAuthenticated = "authenticated"
)

var ErrEmptyToken = errors.New("empty session token")

type Client struct {
	db       *gorm.DB
	verifier identity.TokenVerifier
	enabled  bool

	mu     sync.RWMutex
	claims *identity.Claims
}

// New returns a client over db. When enabled is false, Scoped runs queries
// directly without switching roles (single-role development databases).
func New(db *gorm.DB, verifier identity.TokenVerifier, enabled bool) *Client {
	return &Client{db: db, verifier: verifier, enabled: enabled}
}

// SetSession verifies token and installs its claims for subsequent scoped
// queries.
func (c *Client) SetSession(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	claims, err := c.verifier.Verify(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	c.mu.Lock()
	c.claims = claims
	c.mu.Unlock()

	slog.Info("data client session installed", "sub", claims.Subject)
	return nil
}

// SignOut drops the installed session. Queries issued afterwards run as anon.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	had := c.claims != nil
	c.claims = nil
	c.mu.Unlock()

	if had {
		slog.Info("data client session cleared")
	}
	return nil
}

func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.claims != nil
}

// Subject returns the installed session's subject, or "" when anonymous.
func (c *Client) Subject() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.claims == nil {
		return ""
	}
	return c.claims.Subject
}

// Scoped runs fn in a transaction carrying the current session's claims and
// database role, so RLS policies see exactly what the bridge installed.
func (c *Client) Scoped(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if !c.enabled {
		return fn(c.db.WithContext(ctx))
	}

	role, claimsJSON, err := c.requestClaims()
	if err != nil {
		return err
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT set_config('request.jwt.claims', ?, true)", claimsJSON).Error; err != nil {
			return fmt.Errorf("failed to set request claims: %w", err)
		}
		if err := tx.Exec("SET LOCAL ROLE " + role).Error; err != nil {
			return fmt.Errorf("failed to set role: %w", err)
		}
		return fn(tx)
	})
}

func (c *Client) requestClaims() (string, string, error) {
	c.mu.RLock()
	claims := c.claims
	c.mu.RUnlock()

	payload := map[string]any{"role": RoleAnon}
	role := RoleAnon
	if claims != nil {
		role = RoleAuthenticated
		payload = map[string]any{
			"role":  RoleAuthenticated,
			"sub":   claims.Subject,
			"email": claims.Email,
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}
	return role, string(b), nil
}
