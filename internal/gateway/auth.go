package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// AuthEvent names an auth-state transition.
type AuthEvent string

const (
	SignedIn       AuthEvent = "SIGNED_IN"
	SignedOut      AuthEvent = "SIGNED_OUT"
	TokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// refreshMargin is how close to expiry GetSession renews the token.
const refreshMargin = time.Minute

// User is the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a signed-in user and their access token.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
	User        User   `json:"user"`
}

func (s *Session) Expiry() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// Credentials are an email and password pair.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthListener receives auth-state transitions. session is nil after
// sign-out.
type AuthListener func(event AuthEvent, session *Session)

// OnAuthStateChange registers l for every later auth transition and returns
// the function that unregisters it.
func (c *Client) OnAuthStateChange(l AuthListener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// setSession stores s and notifies listeners outside the lock.
func (c *Client) setSession(event AuthEvent, s *Session) {
	c.mu.Lock()
	c.session = s
	listeners := make([]AuthListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(event, s)
	}
}

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, creds Credentials) (*Session, error) {
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/signup", creds, nil); err != nil {
		return nil, err
	}
	return c.SignIn(ctx, creds)
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	var s Session
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token", creds, &s); err != nil {
		return nil, err
	}
	c.setSession(SignedIn, &s)
	return &s, nil
}

// SignOut ends the session on the gateway. The local session is cleared
// whether or not the gateway call succeeds.
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if c.accessToken() != "" {
		err = c.doJSON(ctx, http.MethodPost, "/auth/v1/logout", nil, nil)
	}
	c.setSession(SignedOut, nil)
	return err
}

// RefreshSession trades the current token for a new one.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	if c.accessToken() == "" {
		return nil, ErrNoSession
	}
	var s Session
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/refresh", nil, &s); err != nil {
		return nil, err
	}
	c.setSession(TokenRefreshed, &s)
	return &s, nil
}

// GetSession returns the stored session, or nil when signed out. A session
// close to expiry is refreshed first; an expired one is dropped.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return nil, nil
	}

	now := time.Now()
	if !now.Before(s.Expiry()) {
		c.setSession(SignedOut, nil)
		return nil, nil
	}
	if s.Expiry().Sub(now) > refreshMargin {
		return s, nil
	}

	refreshed, err := c.RefreshSession(ctx)
	if errors.Is(err, ErrUnauthorized) {
		c.setSession(SignedOut, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return refreshed, nil
}

// GetUser asks the gateway who the current token belongs to.
func (c *Client) GetUser(ctx context.Context) (User, error) {
	var u User
	if c.accessToken() == "" {
		return u, ErrNoSession
	}
	err := c.doJSON(ctx, http.MethodGet, "/auth/v1/user", nil, &u)
	return u, err
}
