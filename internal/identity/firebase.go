package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenURL     = "https://securetoken.googleapis.com/v1"
	tokenRefreshMargin        = time.Minute
)

type FirebaseConfig struct {
	APIKey string
	// Overridable for the auth emulator and tests.
	IdentityToolkitURL string
	SecureTokenURL     string
	HTTPClient         *http.Client
	Store              SessionStore
}

// FirebaseProvider signs in against the Firebase Auth REST API and keeps the
// refresh token in its SessionStore, the way the web SDK keeps it in
// IndexedDB.
type FirebaseProvider struct {
	cfg   FirebaseConfig
	state *authState

	mu      sync.Mutex
	session *Session
}

func NewFirebaseProvider(cfg FirebaseConfig) *FirebaseProvider {
	if cfg.IdentityToolkitURL == "" {
		cfg.IdentityToolkitURL = defaultIdentityToolkitURL
	}
	if cfg.SecureTokenURL == "" {
		cfg.SecureTokenURL = defaultSecureTokenURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Store == nil {
		cfg.Store = &MemorySessionStore{}
	}
	return &FirebaseProvider{cfg: cfg, state: newAuthState()}
}

func (p *FirebaseProvider) Start(ctx context.Context) error {
	s, err := p.cfg.Store.Load()
	if err != nil {
		slog.Warn("failed to load persisted identity session", "error", err)
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

func (p *FirebaseProvider) Subscribe(fn func(*User)) func() {
	return p.state.subscribe(fn)
}

func (p *FirebaseProvider) CurrentUser() *User {
	return p.state.current()
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type firebaseErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*User, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, err
	}

	endpoint := p.cfg.IdentityToolkitURL + "/accounts:signInWithPassword?key=" + url.QueryEscape(p.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out signInResponse
	if err := p.do(req, &out); err != nil {
		return nil, err
	}

	s := &Session{
		User:         User{UID: out.LocalID, Email: out.Email},
		RefreshToken: out.RefreshToken,
		IDToken:      out.IDToken,
		ExpiresAt:    expiry(out.ExpiresIn),
	}
	p.install(s)
	return copyUser(&s.User), nil
}

func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()

	err := p.cfg.Store.Clear()
	p.state.set(nil)
	return err
}

func (p *FirebaseProvider) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s == nil {
		return "", ErrNoCurrentUser
	}
	if !forceRefresh && s.IDToken != "" && time.Now().Add(tokenRefreshMargin).Before(s.ExpiresAt) {
		return s.IDToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.RefreshToken)

	endpoint := p.cfg.SecureTokenURL + "/token?key=" + url.QueryEscape(p.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out refreshResponse
	if err := p.do(req, &out); err != nil {
		return "", err
	}

	refreshed := &Session{
		User:         s.User,
		RefreshToken: out.RefreshToken,
		IDToken:      out.IDToken,
		ExpiresAt:    expiry(out.ExpiresIn),
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = s.RefreshToken
	}

	p.mu.Lock()
	if p.session != nil && p.session.User.UID == s.User.UID {
		p.session = refreshed
	}
	p.mu.Unlock()
	if err := p.cfg.Store.Save(refreshed); err != nil {
		slog.Warn("failed to persist refreshed identity session", "error", err)
	}
	return refreshed.IDToken, nil
}

func (p *FirebaseProvider) install(s *Session) {
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()

	if err := p.cfg.Store.Save(s); err != nil {
		slog.Warn("failed to persist identity session", "error", err)
	}
	p.state.set(&s.User)
}

func (p *FirebaseProvider) do(req *http.Request, out any) error {
	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		var fe firebaseErrorResponse
		_ = json.Unmarshal(data, &fe)
		return mapFirebaseError(resp.StatusCode, fe)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrAuthFailed, err)
	}
	return nil
}

// mapFirebaseError turns a REST error body into one of the package sentinels.
// Messages look like "INVALID_PASSWORD" or "TOO_MANY_ATTEMPTS_TRY_LATER : ...".
func mapFirebaseError(status int, fe firebaseErrorResponse) error {
	msg := fe.Error.Message
	code, _, _ := strings.Cut(msg, " ")

	switch code {
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "USER_DISABLED", "INVALID_EMAIL":
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, code)
	case "API_KEY_INVALID", "CONFIGURATION_NOT_FOUND", "PROJECT_NOT_FOUND":
		return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
	}
	if strings.Contains(msg, "API key not valid") {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
	}
	for _, e := range fe.Error.Errors {
		if e.Reason == "keyInvalid" || e.Reason == "API_KEY_INVALID" {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
		}
	}

	if msg == "" {
		msg = "status " + strconv.Itoa(status)
	}
	return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
}

func expiry(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return time.Now().Add(time.Duration(secs) * time.Second)
}
