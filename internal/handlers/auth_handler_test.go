package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"taskboard/internal/auth"
)

func authRouter() *gin.Engine {
	r := gin.New()
	r.POST("/auth/v1/signup", SignUp)
	r.POST("/auth/v1/token", Login)
	p := protected(r)
	p.POST("/auth/v1/logout", Logout)
	p.POST("/auth/v1/refresh", Refresh)
	p.GET("/auth/v1/user", GetUser)
	return r
}

func TestSignUpThenLogin(t *testing.T) {
	setupDB(t)
	r := authRouter()

	w := doJSON(t, r, http.MethodPost, "/auth/v1/signup", "", map[string]string{
		"email":    "Alice@Example.com",
		"password": "secret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct{ User UserResponse }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.User.ID)
	require.Equal(t, "alice@example.com", created.User.Email)

	w = doJSON(t, r, http.MethodPost, "/auth/v1/token", "", map[string]string{
		"email":    "alice@example.com",
		"password": "secret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var session SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	require.NotEmpty(t, session.AccessToken)
	require.Equal(t, created.User.ID, session.User.ID)

	claims, err := auth.ValidateToken(session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, created.User.ID, claims.UserID)
}

func TestSignUp_Duplicate(t *testing.T) {
	setupDB(t)
	r := authRouter()

	creds := map[string]string{"email": "bob@example.com", "password": "secret-pass"}
	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/auth/v1/signup", "", creds).Code)
	require.Equal(t, http.StatusConflict, doJSON(t, r, http.MethodPost, "/auth/v1/signup", "", creds).Code)
}

func TestSignUp_RejectsBadInput(t *testing.T) {
	setupDB(t)
	r := authRouter()

	w := doJSON(t, r, http.MethodPost, "/auth/v1/signup", "", map[string]string{
		"email":    "not-an-email",
		"password": "secret-pass",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/v1/signup", "", map[string]string{
		"email":    "carol@example.com",
		"password": "123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	setupDB(t)
	r := authRouter()

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/auth/v1/signup", "", map[string]string{
		"email": "dave@example.com", "password": "secret-pass",
	}).Code)

	w := doJSON(t, r, http.MethodPost, "/auth/v1/token", "", map[string]string{
		"email": "dave@example.com", "password": "wrong-pass",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Invalid login credentials")

	w = doJSON(t, r, http.MethodPost, "/auth/v1/token", "", map[string]string{
		"email": "nobody@example.com", "password": "secret-pass",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUser_NotFound(t *testing.T) {
	setupDB(t)
	r := authRouter()

	w := doJSON(t, r, http.MethodGet, "/auth/v1/user", "ghost", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
