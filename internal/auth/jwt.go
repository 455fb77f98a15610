package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskboard/internal/cache"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token has been revoked")
)

// Settings controls token issuance and validation.
type Settings struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

var (
	mu       sync.RWMutex
	settings = Settings{
		Secret:   "development-insecure-secret-change-me",
		Issuer:   "taskboard-gateway",
		Audience: "taskboard-clients",
		TTL:      24 * time.Hour,
	}

	// revoked holds the ids of signed-out tokens until they would have
	// expired anyway.
	revoked = cache.New[string, struct{}]()
)

// Configure replaces the token settings. Zero fields keep their defaults.
func Configure(s Settings) {
	mu.Lock()
	defer mu.Unlock()
	if s.Secret != "" {
		settings.Secret = s.Secret
	}
	if s.Issuer != "" {
		settings.Issuer = s.Issuer
	}
	if s.Audience != "" {
		settings.Audience = s.Audience
	}
	if s.TTL > 0 {
		settings.TTL = s.TTL
	}
}

func current() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return settings
}

// Claims represents the JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken generates a JWT token for the given account
func GenerateToken(userID, email string) (string, *Claims, error) {
	s := current()
	issuedAt := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.TTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.Secret))
	if err != nil {
		return "", nil, err
	}
	return tokenString, claims, nil
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	s := current()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.Secret), nil
	},
		jwt.WithIssuer(s.Issuer),
		jwt.WithAudience(s.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if revoked.Has(claims.ID) {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Revoke invalidates a token before its expiry. It is used by sign-out and
// token refresh.
func Revoke(claims *Claims) {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	revoked.SetUntil(claims.ID, struct{}{}, claims.ExpiresAt.Time)
}

// RevocationList exposes the revocation cache so the server can run its
// janitor.
func RevocationList() *cache.TTLCache[string, struct{}] {
	return revoked
}
