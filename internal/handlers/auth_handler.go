package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/auth"
	"taskboard/internal/database"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
)

// CredentialsRequest is the sign-in payload
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignUpRequest is the account creation payload
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SessionResponse is returned by sign-in and refresh
type SessionResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	ExpiresAt   int64        `json:"expires_at"`
	User        UserResponse `json:"user"`
}

func newSession(userID, email string) (SessionResponse, error) {
	token, claims, err := auth.GenerateToken(userID, email)
	if err != nil {
		return SessionResponse{}, err
	}
	expiresAt := claims.ExpiresAt.Time
	return SessionResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		ExpiresAt:   expiresAt.Unix(),
		User:        UserResponse{ID: userID, Email: email},
	}, nil
}

// SignUp handles POST /auth/v1/signup
func SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "A valid email and a password of at least 6 characters are required.",
		})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	db := database.GetDB()
	var existing models.Account
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User already registered"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up account"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	account := models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}
	if err := db.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "User already registered"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": UserResponse{ID: account.ID, Email: account.Email},
	})
}

// Login handles POST /auth/v1/token
func Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. Email and password are required.",
		})
		return
	}

	var account models.Account
	err := database.GetDB().Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&account).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up account"})
		return
	}
	if err != nil || !auth.CheckPassword(account.PasswordHash, req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid login credentials"})
		return
	}

	session, err := newSession(account.ID, account.Email)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// Refresh handles POST /auth/v1/refresh. The presented token is revoked and
// a fresh one issued.
func Refresh(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	session, err := newSession(claims.UserID, claims.Email)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	auth.Revoke(claims)
	c.JSON(http.StatusOK, session)
}

// Logout handles POST /auth/v1/logout
func Logout(c *gin.Context) {
	auth.Revoke(middleware.Claims(c))
	c.Status(http.StatusNoContent)
}

// GetUser handles GET /auth/v1/user
func GetUser(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var account models.Account
	if err := database.GetDB().Where("id = ?", userID).First(&account).Error; err != nil {
		lookupFailed(c, err, "User not found", "Failed to fetch user")
		return
	}
	c.JSON(http.StatusOK, UserResponse{ID: account.ID, Email: account.Email})
}
