// Package auth owns the destination service's OAuth2 credential for the
// lifetime of a run.
//
// The manager walks a small state machine:
//
//	Unauthenticated → PendingConsent → Authenticated → (Refreshing) → Authenticated
//	                                                 ↘ Expired
//
// [Manager.Authorize] drives the interactive consent step (loopback callback,
// bounded wait, code exchange). [Manager.CurrentToken] guarantees freshness:
// it refreshes transparently inside a safety margin of expiry, collapsing
// concurrent refresh attempts into a single in-flight refresh via
// [singleflight.Group]. A failed refresh is fatal: the manager transitions
// to Expired and every subsequent call reports it.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ejmartin/freshwax/internal/server"
	"github.com/ejmartin/freshwax/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	defaultConsentTimeout = 2 * time.Minute
	defaultRefreshMargin  = 30 * time.Second
)

// State enumerates the manager's lifecycle states.
type State int

const (
	Unauthenticated State = iota
	PendingConsent
	Authenticated
	Refreshing
	Expired
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case PendingConsent:
		return "pending_consent"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	case Expired:
		return "expired"
	default:
		return ""
	}
}

// Opts contains configuration for NewManager.
type Opts struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	CallbackHost string
	CallbackPort int

	ConsentTimeout time.Duration    // bounded consent wait, default 2m
	RefreshMargin  time.Duration    // refresh when expiry is this close, default 30s
	Endpoint       *oauth2.Endpoint // override for tests
}

// Manager obtains and refreshes the destination access credential.
type Manager struct {
	config  *oauth2.Config
	timeout time.Duration
	margin  time.Duration
	host    string
	port    int

	mu    sync.Mutex
	state State
	token *oauth2.Token

	group singleflight.Group
	now   func() time.Time
}

// NewManager creates an unauthenticated Manager from OAuth2 client credentials.
func NewManager(opts Opts) (*Manager, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id/client_secret", shared.ErrMissingCredentials)
	}
	if opts.CallbackHost == "" {
		opts.CallbackHost = "127.0.0.1"
	}
	if opts.CallbackPort == 0 {
		opts.CallbackPort = 8888
	}
	if opts.RedirectURI == "" {
		opts.RedirectURI = fmt.Sprintf("http://localhost:%d/callback", opts.CallbackPort)
	}
	if opts.ConsentTimeout <= 0 {
		opts.ConsentTimeout = defaultConsentTimeout
	}
	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = defaultRefreshMargin
	}

	endpoint := oauth2.Endpoint{AuthURL: spotifyAuthURL, TokenURL: spotifyTokenURL}
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}

	config := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		RedirectURL:  opts.RedirectURI,
		Scopes: []string{
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: endpoint,
	}

	return &Manager{
		config:  config,
		timeout: opts.ConsentTimeout,
		margin:  opts.RefreshMargin,
		host:    opts.CallbackHost,
		port:    opts.CallbackPort,
		state:   Unauthenticated,
		now:     time.Now,
	}, nil
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authorize runs the interactive authorization-code flow: starts the loopback
// callback listener, reports the consent URL through onURL, waits (bounded)
// for the callback, and exchanges the code for a token.
//
// A rejected consent, a timeout, or a canceled context all surface as
// [shared.ErrAuthDenied].
func (m *Manager) Authorize(ctx context.Context, onURL func(url string)) error {
	stateToken := shared.GenerateID()
	handler := server.NewOAuthHandler(stateToken)
	srv := server.NewCallbackServer(m.host, m.port, handler)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthDenied, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	m.setState(PendingConsent)

	authURL := m.config.AuthCodeURL(stateToken, oauth2.AccessTypeOffline)
	if onURL != nil {
		onURL(authURL)
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	var code string
	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			m.setState(Unauthenticated)
			return fmt.Errorf("%w: %v", shared.ErrAuthDenied, err)
		}
		code = result.Code
	case <-timer.C:
		m.setState(Unauthenticated)
		return fmt.Errorf("%w: no callback within %s", shared.ErrAuthDenied, m.timeout)
	case <-ctx.Done():
		m.setState(Unauthenticated)
		return fmt.Errorf("%w: %v", shared.ErrAuthDenied, ctx.Err())
	}

	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		m.setState(Unauthenticated)
		return fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthDenied, err)
	}

	m.mu.Lock()
	m.token = token
	m.state = Authenticated
	m.mu.Unlock()
	return nil
}

// CurrentToken returns a currently-valid access token, refreshing first when
// expiry is within the safety margin. Concurrent callers during a refresh
// share the single in-flight refresh rather than racing their own.
func (m *Manager) CurrentToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	switch m.state {
	case Expired:
		m.mu.Unlock()
		return "", shared.ErrAuthExpired
	case Authenticated, Refreshing:
		// fall through
	default:
		m.mu.Unlock()
		return "", fmt.Errorf("%w: call Authorize first", shared.ErrNotAuthenticated)
	}

	token := m.token
	fresh := token != nil && (token.Expiry.IsZero() || token.Expiry.Sub(m.now()) > m.margin)
	m.mu.Unlock()

	if fresh {
		return token.AccessToken, nil
	}

	refreshed, err, _ := m.group.Do("refresh", func() (any, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return refreshed.(*oauth2.Token).AccessToken, nil
}

// refresh exchanges the refresh token for a new access token. Only one
// refresh runs at a time; failure is terminal.
func (m *Manager) refresh(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	current := m.token
	m.state = Refreshing
	m.mu.Unlock()

	if current == nil || current.RefreshToken == "" {
		m.setState(Expired)
		return nil, fmt.Errorf("%w: no refresh token", shared.ErrAuthExpired)
	}

	// Force the oauth2 token source to actually refresh: it only does so for
	// tokens it considers expired, and our safety margin is wider than its.
	stale := *current
	stale.Expiry = m.now().Add(-time.Hour)

	token, err := m.config.TokenSource(ctx, &stale).Token()
	if err != nil {
		m.setState(Expired)
		return nil, fmt.Errorf("%w: refresh failed: %v", shared.ErrAuthExpired, err)
	}

	m.mu.Lock()
	m.token = token
	m.state = Authenticated
	m.mu.Unlock()
	return token, nil
}

// SetToken seeds the manager with an existing token. Used by tests and by
// callers that already hold a valid credential.
func (m *Manager) SetToken(token *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	if token != nil {
		m.state = Authenticated
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
