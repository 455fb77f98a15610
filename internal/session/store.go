// Package session holds the process-wide authenticated identity.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"taskboard/internal/gateway"
)

// Gateway is the part of the gateway client the store needs.
type Gateway interface {
	GetSession(ctx context.Context) (*gateway.Session, error)
	SignIn(ctx context.Context, creds gateway.Credentials) (*gateway.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(l gateway.AuthListener) (unsubscribe func())
}

// State is a snapshot of the session.
type State struct {
	User            *gateway.User
	IsAuthenticated bool
	// Loading is true until Init finishes and while a login or logout is in
	// flight.
	Loading bool
}

type action interface{ isAction() }

type (
	sessionLoaded  struct{ session *gateway.Session }
	authChanged    struct{ session *gateway.Session }
	loginStarted   struct{}
	loginSucceeded struct{ session *gateway.Session }
	loginFailed    struct{}
	logoutStarted  struct{}
	loggedOut      struct{}
)

func (sessionLoaded) isAction()  {}
func (authChanged) isAction()    {}
func (loginStarted) isAction()   {}
func (loginSucceeded) isAction() {}
func (loginFailed) isAction()    {}
func (logoutStarted) isAction()  {}
func (loggedOut) isAction()      {}

func withSession(s State, sess *gateway.Session) State {
	if sess == nil {
		s.User = nil
		s.IsAuthenticated = false
		return s
	}
	u := sess.User
	s.User = &u
	s.IsAuthenticated = true
	return s
}

// reduce is the only place state changes.
func reduce(s State, a action) State {
	switch a := a.(type) {
	case sessionLoaded:
		s = withSession(s, a.session)
		s.Loading = false
	case authChanged:
		s = withSession(s, a.session)
	case loginStarted, logoutStarted:
		s.Loading = true
	case loginSucceeded:
		s = withSession(s, a.session)
		s.Loading = false
	case loginFailed:
		s.Loading = false
	case loggedOut:
		s = withSession(s, nil)
		s.Loading = false
	}
	return s
}

// Store is the explicit session container. Create it with New, call Init at
// start-up and Close at shutdown.
type Store struct {
	gw  Gateway
	log *zap.Logger

	mu          sync.RWMutex
	state       State
	unsubscribe func()
}

func New(gw Gateway, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		gw:    gw,
		log:   log,
		state: State{Loading: true},
	}
}

func (s *Store) dispatch(a action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = reduce(s.state, a)
}

// Init loads the existing session and starts following auth transitions.
// Loading is cleared even when the lookup fails.
func (s *Store) Init(ctx context.Context) error {
	unsubscribe := s.gw.OnAuthStateChange(func(event gateway.AuthEvent, sess *gateway.Session) {
		s.log.Debug("auth state changed", zap.String("event", string(event)))
		s.dispatch(authChanged{session: sess})
	})
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	sess, err := s.gw.GetSession(ctx)
	if err != nil {
		s.dispatch(sessionLoaded{})
		return fmt.Errorf("load session: %w", err)
	}
	s.dispatch(sessionLoaded{session: sess})
	return nil
}

// Login signs in. The gateway error is returned to the caller for display;
// the store itself never reports it.
func (s *Store) Login(ctx context.Context, creds gateway.Credentials) error {
	s.dispatch(loginStarted{})
	sess, err := s.gw.SignIn(ctx, creds)
	if err != nil {
		s.dispatch(loginFailed{})
		return fmt.Errorf("login: %w", err)
	}
	s.dispatch(loginSucceeded{session: sess})
	return nil
}

// Logout signs out. Identity is cleared even if the gateway call fails.
func (s *Store) Logout(ctx context.Context) {
	s.dispatch(logoutStarted{})
	if err := s.gw.SignOut(ctx); err != nil {
		s.log.Warn("sign-out failed, clearing session anyway", zap.Error(err))
	}
	s.dispatch(loggedOut{})
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

func (s *Store) User() *gateway.User {
	return s.State().User
}

func (s *Store) IsAuthenticated() bool {
	return s.State().IsAuthenticated
}

func (s *Store) Loading() bool {
	return s.State().Loading
}

// Close stops following auth transitions.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}
