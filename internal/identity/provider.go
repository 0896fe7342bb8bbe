package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/huddle/internal/store"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// ErrSignInFailed is reported when the provider rejects or abandons a sign-in.
var ErrSignInFailed = errors.New("failed to sign in with Google")

// Defaults used when the configuration leaves a field empty.
const (
	DefaultClientID    = "your-google-client-id.googleusercontent.com"
	DefaultRedirectURL = "http://localhost:8080/oauth/callback"
	DefaultDelay       = 500 * time.Millisecond
)

// DefaultScopes are requested by the authorize URL.
var DefaultScopes = []string{
	"openid",
	"profile",
	"email",
	"https://www.googleapis.com/auth/contacts.readonly",
}

// DemoUser is the identity every simulated sign-in returns.
var DemoUser = store.User{
	ID:       "me",
	Name:     "Demo User",
	Email:    "demo@example.com",
	Avatar:   "https://images.pexels.com/photos/220453/pexels-photo-220453.jpeg?auto=compress&cs=tinysrgb&w=150&h=150&dpr=2",
	IsOnline: true,
}

// EventType enumerates sign-in flow events.
type EventType string

const (
	EventAuthorizeURL  EventType = "authorize_url"
	EventAuthenticated EventType = "authenticated"
	EventAuthFailed    EventType = "auth_failed"
)

// Event is one step of a sign-in flow.
type Event struct {
	Type    EventType
	URL     string
	User    store.User
	Token   *oauth2.Token
	Message string
}

// Authenticator runs a sign-in flow. The returned channel is closed after an
// authenticated or auth_failed event.
type Authenticator interface {
	Authenticate(ctx context.Context) (<-chan Event, error)
}

// Config configures the provider.
type Config struct {
	ClientID    string
	RedirectURL string
	Scopes      []string
	// Delay is how long the simulated consent screen takes.
	Delay time.Duration
	// Fail makes every sign-in fail, for exercising the error path.
	Fail bool
}

// Simulated stands in for Google sign-in. It builds the real authorize URL
// but never contacts the provider; it returns DemoUser after Delay.
type Simulated struct {
	oauth *oauth2.Config
	delay time.Duration
	fail  bool
}

// NewSimulated creates a provider, filling empty fields with defaults.
func NewSimulated(cfg Config) *Simulated {
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = DefaultRedirectURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return &Simulated{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
			Endpoint:    endpoints.Google,
		},
		delay: cfg.Delay,
		fail:  cfg.Fail,
	}
}

// AuthURL returns the authorize URL a real integration would open.
func (p *Simulated) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Authenticate streams the authorize URL, waits out the simulated consent
// delay, then reports the outcome.
func (p *Simulated) Authenticate(ctx context.Context) (<-chan Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(chan Event, 3)
	out <- Event{Type: EventAuthorizeURL, URL: p.AuthURL(uuid.NewString())}

	go func() {
		defer close(out)

		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			out <- Event{Type: EventAuthFailed, Message: ctx.Err().Error()}
			return
		case <-timer.C:
		}

		if p.fail {
			out <- Event{Type: EventAuthFailed, Message: ErrSignInFailed.Error()}
			return
		}
		out <- Event{
			Type: EventAuthenticated,
			User: DemoUser,
			Token: &oauth2.Token{
				AccessToken: "demo-" + uuid.NewString(),
				TokenType:   "Bearer",
				Expiry:      time.Now().Add(time.Hour),
			},
			Message: "authenticated",
		}
	}()
	return out, nil
}

