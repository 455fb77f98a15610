package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taskboard/internal/gateway"
)

type mockGateway struct {
	mock.Mock
	listener gateway.AuthListener
}

func (m *mockGateway) GetSession(ctx context.Context) (*gateway.Session, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*gateway.Session)
	return s, args.Error(1)
}

func (m *mockGateway) SignIn(ctx context.Context, creds gateway.Credentials) (*gateway.Session, error) {
	args := m.Called(ctx, creds)
	s, _ := args.Get(0).(*gateway.Session)
	return s, args.Error(1)
}

func (m *mockGateway) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGateway) OnAuthStateChange(l gateway.AuthListener) func() {
	m.listener = l
	return func() { m.listener = nil }
}

func session(id, email string) *gateway.Session {
	return &gateway.Session{AccessToken: "token-" + id, User: gateway.User{ID: id, Email: email}}
}

func TestInit_RestoresExistingSession(t *testing.T) {
	gw := &mockGateway{}
	gw.On("GetSession", mock.Anything).Return(session("u-1", "user@example.com"), nil)

	s := New(gw, nil)
	require.True(t, s.Loading())
	require.NoError(t, s.Init(context.Background()))

	st := s.State()
	require.False(t, st.Loading)
	require.True(t, st.IsAuthenticated)
	require.Equal(t, "u-1", st.User.ID)
	gw.AssertExpectations(t)
}

func TestInit_FailureClearsLoading(t *testing.T) {
	gw := &mockGateway{}
	gw.On("GetSession", mock.Anything).Return(nil, errors.New("offline"))

	s := New(gw, nil)
	require.Error(t, s.Init(context.Background()))
	require.False(t, s.Loading())
	require.False(t, s.IsAuthenticated())
}

func TestAuthStateChangesOverwriteIdentity(t *testing.T) {
	gw := &mockGateway{}
	gw.On("GetSession", mock.Anything).Return(nil, nil)

	s := New(gw, nil)
	require.NoError(t, s.Init(context.Background()))
	require.False(t, s.IsAuthenticated())

	gw.listener(gateway.SignedIn, session("u-2", "other@example.com"))
	require.Equal(t, "u-2", s.User().ID)

	gw.listener(gateway.TokenRefreshed, session("u-2", "other@example.com"))
	require.True(t, s.IsAuthenticated())

	gw.listener(gateway.SignedOut, nil)
	require.False(t, s.IsAuthenticated())
	require.Nil(t, s.User())

	s.Close()
	require.Nil(t, gw.listener)
}

func TestLogin(t *testing.T) {
	creds := gateway.Credentials{Email: "user@example.com", Password: "secret1"}
	gw := &mockGateway{}
	gw.On("SignIn", mock.Anything, creds).Return(session("u-1", creds.Email), nil).Once()

	s := New(gw, nil)
	require.NoError(t, s.Login(context.Background(), creds))
	require.True(t, s.IsAuthenticated())
	require.False(t, s.Loading())
	gw.AssertExpectations(t)
}

func TestLogin_FailurePropagates(t *testing.T) {
	creds := gateway.Credentials{Email: "user@example.com", Password: "wrong-1"}
	rejected := &gateway.Error{Status: 400, Message: "Invalid login credentials"}
	gw := &mockGateway{}
	gw.On("SignIn", mock.Anything, creds).Return(nil, rejected)

	s := New(gw, nil)
	err := s.Login(context.Background(), creds)

	var apiErr *gateway.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Invalid login credentials", apiErr.Message)
	require.False(t, s.Loading())
	require.False(t, s.IsAuthenticated())
}

func TestLogout_ClearsIdentityEvenWhenGatewayFails(t *testing.T) {
	creds := gateway.Credentials{Email: "user@example.com", Password: "secret1"}
	gw := &mockGateway{}
	gw.On("SignIn", mock.Anything, creds).Return(session("u-1", creds.Email), nil)
	gw.On("SignOut", mock.Anything).Return(errors.New("gateway down"))

	s := New(gw, nil)
	require.NoError(t, s.Login(context.Background(), creds))

	s.Logout(context.Background())
	require.False(t, s.IsAuthenticated())
	require.Nil(t, s.User())
	require.False(t, s.Loading())
	gw.AssertExpectations(t)
}

func TestReduce(t *testing.T) {
	st := reduce(State{Loading: true}, sessionLoaded{})
	require.Equal(t, State{}, st)

	st = reduce(st, loginStarted{})
	require.True(t, st.Loading)
	st = reduce(st, loginFailed{})
	require.False(t, st.Loading)
}
