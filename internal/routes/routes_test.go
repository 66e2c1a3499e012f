package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/config"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/identity"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signedOut struct{}

func (signedOut) State() session.State        { return session.SignedOut }
func (signedOut) CurrentUser() *identity.User { return nil }
func (signedOut) Touch()                      {}

var secret = []byte(strings.Repeat("s", 32))

// bridged is an admin session signed in as uid-admin.
type bridged struct{ signOuts int }

func (*bridged) State() session.State { return session.SignedIn }
func (*bridged) CurrentUser() *identity.User {
	return &identity.User{UID: "uid-admin", Email: "admin@example.com"}
}
func (*bridged) Touch() {}

func (b *bridged) OnLoginSuccess(context.Context, *identity.User) error { return nil }
func (b *bridged) SignOut(context.Context) error {
	b.signOuts++
	return nil
}

func newApp() *fiber.App {
	return newAppWith(signedOut{}, nil)
}

func newAppWith(sess middleware.AdminSession, bridge handlers.SessionBridge) *fiber.App {
	app := fiber.New()
	health := handlers.NewHealthHandler(func() error { return nil }, func() bool { return true }, func() string { return "signed_out" })
	invite := handlers.NewInviteHandler(nil, nil, nil)
	adminH := handlers.NewAdminHandler(nil, bridge, nil, nil)
	Setup(app, &config.Config{}, identity.NewLocalVerifier(secret), sess, health, invite, adminH)
	return app
}

func token(t *testing.T, subject string) string {
	t.Helper()
	now := time.Now()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &identity.Claims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    identity.LocalIssuer,
			Audience:  jwt.ClaimStrings{identity.LocalAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(secret)
	require.NoError(t, err)
	return s
}

func status(t *testing.T, app *fiber.App, method, path, body string) int {
	t.Helper()
	return statusAs(t, app, method, path, body, "")
}

func statusAs(t *testing.T, app *fiber.App, method, path, body, bearer string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestSetup_Routes(t *testing.T) {
	app := newApp()

	assert.Equal(t, fiber.StatusOK, status(t, app, http.MethodGet, "/api/health", ""))
	assert.Equal(t, fiber.StatusOK, status(t, app, http.MethodGet, "/metrics", ""))

	// Login is reachable without a token and rejects an empty body itself.
	assert.Equal(t, fiber.StatusBadRequest, status(t, app, http.MethodPost, "/api/admin/login", "{}"))

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, http.MethodPost, "/api/admin/logout", ""))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, http.MethodGet, "/api/admin/dashboard", ""))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, http.MethodPut, "/api/admin/settings", "{}"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, http.MethodPost, "/api/admin/gifts", "{}"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, http.MethodPut, "/api/admin/gifts/x", "{}"))
	assert.Equal(t, fiber.StatusNotFound, status(t, app, http.MethodGet, "/api/unknown", ""))
}

func TestSetup_LogoutRequiresBridgedSubject(t *testing.T) {
	sess := &bridged{}
	app := newAppWith(sess, sess)

	assert.Equal(t, fiber.StatusUnauthorized, statusAs(t, app, http.MethodPost, "/api/admin/logout", "", token(t, "uid-guest")))
	assert.Zero(t, sess.signOuts, "another identity must not end the admin session")

	assert.Equal(t, fiber.StatusOK, statusAs(t, app, http.MethodPost, "/api/admin/logout", "", token(t, "uid-admin")))
	assert.Equal(t, 1, sess.signOuts)
}
