package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"taskboard/internal/database"
	"taskboard/internal/models"
	"taskboard/internal/realtime"
)

// CreateProfileRequest is the users_detail insert payload. The id must be
// the caller's own account id.
type CreateProfileRequest struct {
	ID           string `json:"id" binding:"required"`
	Username     string `json:"username" binding:"required"`
	ProfileImage string `json:"profile_image"`
}

// UpdateProfileRequest represents the request payload for updating a profile
type UpdateProfileRequest struct {
	Username     *string `json:"username"`
	ProfileImage *string `json:"profile_image"`
}

// GetProfile handles GET /rest/v1/users_detail/:id
func GetProfile(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	id, ok := requireParam(c, "id", "Profile ID is required")
	if !ok {
		return
	}

	var profile models.UserProfile
	if err := database.GetDB().Where("id = ?", id).First(&profile).Error; err != nil {
		lookupFailed(c, err, "Profile not found", "Failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// CreateProfile handles POST /rest/v1/users_detail
func CreateProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. id and username are required."})
		return
	}
	if req.ID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot create a profile for another user"})
		return
	}

	profile := models.UserProfile{
		ID:           req.ID,
		Username:     strings.TrimSpace(req.Username),
		ProfileImage: req.ProfileImage,
	}
	if err := database.GetDB().Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Profile already exists"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create profile"})
		return
	}

	publish(realtime.TableProfiles, realtime.EventInsert, userID, profile, nil)
	c.JSON(http.StatusCreated, profile)
}

// UpdateProfile handles PATCH /rest/v1/users_detail/:id
func UpdateProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := requireParam(c, "id", "Profile ID is required")
	if !ok {
		return
	}
	if id != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot update another user's profile"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	db := database.GetDB()
	var profile models.UserProfile
	if err := db.Where("id = ?", id).First(&profile).Error; err != nil {
		lookupFailed(c, err, "Profile not found", "Failed to fetch profile")
		return
	}
	old := profile

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username cannot be empty"})
			return
		}
		profile.Username = username
	}
	if req.ProfileImage != nil {
		profile.ProfileImage = *req.ProfileImage
	}

	if err := db.Save(&profile).Error; err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	publish(realtime.TableProfiles, realtime.EventUpdate, userID, profile, old)
	c.JSON(http.StatusOK, profile)
}
