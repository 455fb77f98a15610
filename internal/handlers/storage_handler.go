package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/storage"
)

// RemoveObjectsRequest lists the object names to delete from a bucket
type RemoveObjectsRequest struct {
	Prefixes []string `json:"prefixes" binding:"required"`
}

// UploadObject handles POST /storage/v1/object/:bucket/:name. The request body
// is the raw object.
func UploadObject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	limit := currentSettings().MaxUploadBytes
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Object exceeds the upload limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Upload body is empty"})
		return
	}

	store := objectStore()
	obj, err := store.Upload(c.Request.Context(), models.Object{
		Bucket:      c.Param("bucket"),
		Name:        c.Param("name"),
		OwnerID:     userID,
		ContentType: c.ContentType(),
		Data:        data,
	})
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bucket or object name"})
		return
	case errors.Is(err, storage.ErrObjectExists):
		c.JSON(http.StatusConflict, gin.H{"error": "The resource already exists"})
		return
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store object"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"Key": obj.Bucket + "/" + obj.Name,
		"url": store.PublicURL(obj.Bucket, obj.Name),
	})
}

// RemoveObjects handles DELETE /storage/v1/object/:bucket. Only objects the
// caller uploaded are removed; unknown names are ignored.
func RemoveObjects(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req RemoveObjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. prefixes is required."})
		return
	}

	removed, err := objectStore().Remove(c.Request.Context(), userID, c.Param("bucket"), req.Prefixes...)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove objects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// GetPublicObject handles GET /storage/v1/object/public/:bucket/:name
func GetPublicObject(c *gin.Context) {
	obj, err := objectStore().Get(c.Request.Context(), c.Param("bucket"), c.Param("name"))
	if errors.Is(err, storage.ErrObjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Object not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch object"})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}
