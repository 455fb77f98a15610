package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/database"
	"taskboard/internal/models"
	"taskboard/internal/realtime"
)

// CreateSubTaskRequest is one row of a sub-task insert
type CreateSubTaskRequest struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
	Status bool   `json:"status"`
}

// UpdateSubTaskRequest represents the request payload for updating a sub-task
type UpdateSubTaskRequest struct {
	Title  *string `json:"title"`
	Status *bool   `json:"status"`
}

// decodeSubTaskRows accepts either a single object or an array of objects.
func decodeSubTaskRows(body []byte) ([]CreateSubTaskRequest, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var one CreateSubTaskRequest
		if err := json.Unmarshal(body, &one); err != nil {
			return nil, err
		}
		return []CreateSubTaskRequest{one}, nil
	}
	var rows []CreateSubTaskRequest
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ownedSubTask scopes a sub-task lookup to tasks owned by userID.
func ownedSubTask(db *gorm.DB, subTaskID, userID string) *gorm.DB {
	owned := db.Model(&models.Task{}).Select("id").Where("user_id = ?", userID)
	return db.Where("id = ? AND task_id IN (?)", subTaskID, owned)
}

/*
*
CreateSubTasks handles POST /rest/v1/sub_tasks
The body is one row or an array of rows; all rows are inserted in a single
transaction and every parent task must belong to the caller.
*/
func CreateSubTasks(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	rows, err := decodeSubTaskRows(body)
	if err != nil || len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. At least one sub-task is required."})
		return
	}

	taskIDs := make([]string, 0, len(rows))
	seen := make(map[string]bool)
	subTasks := make([]models.SubTask, 0, len(rows))
	for _, r := range rows {
		title := strings.TrimSpace(r.Title)
		if r.TaskID == "" || title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Every sub-task needs a task_id and a title"})
			return
		}
		if !seen[r.TaskID] {
			seen[r.TaskID] = true
			taskIDs = append(taskIDs, r.TaskID)
		}
		subTasks = append(subTasks, models.SubTask{
			ID:     uuid.NewString(),
			TaskID: r.TaskID,
			Title:  title,
			Status: r.Status,
		})
	}

	db := database.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.Task{}).
			Where("id IN ? AND user_id = ?", taskIDs, userID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned != int64(len(taskIDs)) {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&subTasks).Error
	})
	if err != nil {
		lookupFailed(c, err, "Task not found", "Failed to create sub-tasks")
		return
	}

	for _, st := range subTasks {
		publish(realtime.TableSubTasks, realtime.EventInsert, userID, st, nil)
	}
	c.JSON(http.StatusCreated, subTasks)
}

// UpdateSubTask handles PATCH /rest/v1/sub_tasks/:id
func UpdateSubTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	subTaskID, ok := requireParam(c, "id", "Sub-task ID is required")
	if !ok {
		return
	}

	var req UpdateSubTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	db := database.GetDB()
	var subTask models.SubTask
	if err := ownedSubTask(db, subTaskID, userID).First(&subTask).Error; err != nil {
		lookupFailed(c, err, "Sub-task not found", "Failed to fetch sub-task")
		return
	}
	old := subTask

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
			return
		}
		subTask.Title = title
	}
	if req.Status != nil {
		subTask.Status = *req.Status
	}

	if err := db.Save(&subTask).Error; err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update sub-task"})
		return
	}

	publish(realtime.TableSubTasks, realtime.EventUpdate, userID, subTask, old)
	c.JSON(http.StatusOK, subTask)
}

// DeleteSubTask handles DELETE /rest/v1/sub_tasks/:id
func DeleteSubTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	subTaskID, ok := requireParam(c, "id", "Sub-task ID is required")
	if !ok {
		return
	}

	db := database.GetDB()
	var subTask models.SubTask
	if err := ownedSubTask(db, subTaskID, userID).First(&subTask).Error; err != nil {
		lookupFailed(c, err, "Sub-task not found", "Failed to fetch sub-task")
		return
	}

	if err := db.Delete(&subTask).Error; err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete sub-task"})
		return
	}

	publish(realtime.TableSubTasks, realtime.EventDelete, userID, nil, subTask)
	c.Status(http.StatusNoContent)
}
