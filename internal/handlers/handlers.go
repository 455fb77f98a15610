package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/database"
	"taskboard/internal/middleware"
	"taskboard/internal/realtime"
	"taskboard/internal/storage"
)

// Settings holds the gateway options the handlers need.
type Settings struct {
	PublicURL      string
	MaxUploadBytes int64
}

var (
	settingsMu sync.RWMutex
	settings   = Settings{
		PublicURL:      "http://localhost:8008",
		MaxUploadBytes: 5 << 20,
	}
)

// Configure replaces the handler settings. Zero fields keep their defaults.
func Configure(s Settings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	if s.PublicURL != "" {
		settings.PublicURL = s.PublicURL
	}
	if s.MaxUploadBytes > 0 {
		settings.MaxUploadBytes = s.MaxUploadBytes
	}
}

func currentSettings() Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

func objectStore() *storage.Store {
	return storage.New(database.GetDB(), currentSettings().PublicURL)
}

// requireUser returns the authenticated user id or answers 401.
func requireUser(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User ID not found in token",
		})
		return "", false
	}
	return userID, true
}

// requireParam returns a path parameter or answers 400.
func requireParam(c *gin.Context, name, message string) (string, bool) {
	v := c.Param(name)
	if v == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return "", false
	}
	return v, true
}

// lookupFailed answers 404 for a missing row and 500 otherwise.
func lookupFailed(c *gin.Context, err error, notFound, failed string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": failed})
}

// publish pushes a row change to the owner's subscriptions. Encoding
// failures are logged; the mutation itself already succeeded.
func publish(table string, typ realtime.EventType, owner string, newRow, oldRow any) {
	evt, err := realtime.NewChangeEvent(table, typ, owner, newRow, oldRow)
	if err != nil {
		zap.L().Error("failed to build change event", zap.String("table", table), zap.Error(err))
		return
	}
	realtime.GetHub().Publish(evt)
}
