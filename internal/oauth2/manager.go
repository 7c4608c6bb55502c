// Package oauth2 manages the access/refresh token pair required for
// authorized Discord IPC commands: an initial authorize/exchange/
// authenticate handshake, on-disk persistence, and a double-checked
// refresh before any request that requires authorization.
package oauth2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DiscordTokenURL is Discord's OAuth2 token exchange endpoint.
const DiscordTokenURL = "https://discord.com/api/oauth2/token"

// DefaultRefreshWindow is the early-refresh margin: a token within this
// window of expiry is treated as already expired.
const DefaultRefreshWindow = 60 * time.Second

// Config configures a Manager.
type Config struct {
	ClientID      string
	ClientSecret  string
	Scopes        []string
	TokenPath     string
	RefreshWindow time.Duration

	// TokenURL overrides DiscordTokenURL. Tests point this at an
	// httptest.Server; production callers leave it empty.
	TokenURL string
}

// Manager holds the current token record behind a sync.RWMutex and
// refreshes it on demand using a double-checked pattern: callers take a
// read lock to check expiry; only a caller that observes an expired
// token escalates to a write lock, and re-checks expiry after acquiring
// it in case a concurrent refresh already completed.
type Manager struct {
	cfg    Config
	http   *retryablehttp.Client
	logger *slog.Logger

	mu      sync.RWMutex
	current Record
}

// New constructs a Manager, loading any persisted token from
// cfg.TokenPath. Returns ErrNoToken if no token has been persisted yet;
// the caller must complete Authorize before using the manager.
func New(cfg Config, logger *slog.Logger) (*Manager, error) {
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = DefaultRefreshWindow
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DiscordTokenURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	m := &Manager{cfg: cfg, http: client, logger: logger}

	rec, err := loadRecord(cfg.TokenPath)
	if err != nil {
		return m, err
	}
	m.current = rec
	return m, nil
}

// HasToken reports whether the manager holds a token record, either
// loaded from disk or obtained through Authorize.
func (m *Manager) HasToken() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.RefreshToken != ""
}

// AccessToken returns the current access token, refreshing first if it
// is expired or within the configured refresh window.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	rec := m.current
	m.mu.RUnlock()

	if !rec.Expired(time.Now(), m.cfg.RefreshWindow) {
		return rec.AccessToken, nil
	}

	if err := m.Refresh(ctx); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.AccessToken, nil
}

// Refresh exchanges the current refresh token for a new access/refresh
// pair if the token is expired, and persists the result. Double-checked
// under the write lock: a caller that loses a race to another goroutine
// already holding the write lock will observe a non-expired token once
// it acquires the lock and return immediately without a second network
// round trip.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.Expired(time.Now(), m.cfg.RefreshWindow) {
		return nil
	}

	resp, err := m.exchangeRefreshToken(ctx, m.current.RefreshToken)
	if err != nil {
		return fmt.Errorf("oauth2: refresh token exchange: %w", err)
	}

	rec, err := recordFromResponse(resp)
	if err != nil {
		return err
	}
	if err := saveRecord(m.cfg.TokenPath, rec); err != nil {
		m.logger.Error("oauth2_token_persist_failed", "error", err)
		return err
	}
	m.current = rec
	return nil
}

// Authorize exchanges an authorization code already obtained via the
// façade's AUTHORIZE command for a token record and persists it. It does
// not send AUTHENTICATE; the façade does that with the resulting token.
func (m *Manager) Authorize(ctx context.Context, code string) error {
	resp, err := m.exchangeAuthorizationCode(ctx, code)
	if err != nil {
		return fmt.Errorf("oauth2: authorization code exchange: %w", err)
	}

	rec, err := recordFromResponse(resp)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := saveRecord(m.cfg.TokenPath, rec); err != nil {
		return err
	}
	m.current = rec
	return nil
}

// ///////////////////////////////////////////////
// Token endpoint calls
// ///////////////////////////////////////////////

// tokenResponse is Discord's OAuth2 token endpoint JSON body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

func (m *Manager) exchangeAuthorizationCode(ctx context.Context, code string) (tokenResponse, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {m.cfg.ClientID},
		"client_secret": {m.cfg.ClientSecret},
	}
	return m.postForm(ctx, form)
}

func (m *Manager) exchangeRefreshToken(ctx context.Context, refreshToken string) (tokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {m.cfg.ClientID},
		"client_secret": {m.cfg.ClientSecret},
	}
	return m.postForm(ctx, form)
}

func (m *Manager) postForm(ctx context.Context, form url.Values) (tokenResponse, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("oauth2: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.http.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("oauth2: http request: %w", err)
	}
	defer resp.Body.Close()

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return tokenResponse{}, fmt.Errorf("oauth2: decode token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return tokenResponse{}, fmt.Errorf("oauth2: token endpoint returned %d: %s: %s", resp.StatusCode, body.Error, body.ErrorDesc)
	}
	if body.Error != "" {
		return tokenResponse{}, fmt.Errorf("oauth2: token endpoint error: %s: %s", body.Error, body.ErrorDesc)
	}
	return body, nil
}

func recordFromResponse(resp tokenResponse) (Record, error) {
	if resp.RefreshToken == "" {
		return Record{}, errors.New("oauth2: token response missing refresh_token")
	}
	if resp.ExpiresIn <= 0 {
		return Record{}, errors.New("oauth2: token response missing expires_in")
	}
	return Record{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}
