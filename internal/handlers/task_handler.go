package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/database"
	"taskboard/internal/models"
	"taskboard/internal/realtime"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description" binding:"required"`
	Priority    models.TaskPriority `json:"priority" binding:"required"`
	Category    models.TaskCategory `json:"category" binding:"required"`
	Status      models.TaskStatus   `json:"status"`
	DueDate     string              `json:"due_date" binding:"required"`
	Attachment  string              `json:"attachment"`
}

// UpdateTaskRequest represents the request payload for updating a task
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *models.TaskPriority `json:"priority"`
	Category    *models.TaskCategory `json:"category"`
	Status      *models.TaskStatus   `json:"status"`
	DueDate     *string              `json:"due_date"`
	Attachment  *string              `json:"attachment"`
}

// UpdateTaskStatusRequest represents a minimal request to change status
type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

func orderedSubTasks(db *gorm.DB) *gorm.DB {
	return db.Order("created_at asc, id asc")
}

func withSubTasks(tasks []models.Task) {
	for i := range tasks {
		if tasks[i].SubTasks == nil {
			tasks[i].SubTasks = []models.SubTask{}
		}
	}
}

// loadOwnedTask fetches a task belonging to userID, answering 404/500 itself.
func loadOwnedTask(c *gin.Context, db *gorm.DB, taskID, userID string) (models.Task, bool) {
	var task models.Task
	if err := db.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error; err != nil {
		lookupFailed(c, err, "Task not found", "Failed to fetch task")
		return models.Task{}, false
	}
	return task, true
}

/*
*
GetTasks handles GET /rest/v1/tasks
Returns the caller's tasks with their sub-tasks embedded.
Optional query params: status, sort (asc|desc on created_at, default desc),
limit and page. Without limit every task is returned.
*/
func GetTasks(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	order := "created_at desc"
	if strings.ToLower(c.DefaultQuery("sort", "desc")) == "asc" {
		order = "created_at asc"
	}

	query := database.GetDB().Model(&models.Task{}).Where("user_id = ?", userID)
	if status := c.Query("status"); status != "" {
		if !models.TaskStatus(status).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
			return
		}
		query = query.Where("status = ?", status)
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			limit = 5
		}
		if limit > 100 {
			limit = 100
		}
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}

		var total int64
		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count tasks"})
			return
		}
		c.Header("X-Total-Count", strconv.FormatInt(total, 10))
		query = query.Limit(limit).Offset((page - 1) * limit)
	}

	var tasks []models.Task
	if err := query.Order(order).Preload("SubTasks", orderedSubTasks).Find(&tasks).Error; err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}
	withSubTasks(tasks)

	c.JSON(http.StatusOK, tasks)
}

// GetTaskByID handles GET /rest/v1/tasks/:id
func GetTaskByID(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	taskID, ok := requireParam(c, "id", "Task ID is required")
	if !ok {
		return
	}

	var task models.Task
	err := database.GetDB().
		Preload("SubTasks", orderedSubTasks).
		Where("id = ? AND user_id = ?", taskID, userID).
		First(&task).Error
	if err != nil {
		lookupFailed(c, err, "Task not found", "Failed to fetch task")
		return
	}
	if task.SubTasks == nil {
		task.SubTasks = []models.SubTask{}
	}

	c.JSON(http.StatusOK, task)
}

// CreateTask handles POST /rest/v1/tasks
func CreateTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. Title, description, priority, category and due_date are required.",
		})
		return
	}

	if req.Status == "" {
		req.Status = models.StatusTodo
	}
	dueDate, msg := checkTaskFields(req.Priority, req.Category, req.Status, req.DueDate)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	task := models.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		Status:      req.Status,
		DueDate:     dueDate,
		Attachment:  req.Attachment,
		SubTasks:    []models.SubTask{},
	}

	if err := database.GetDB().Create(&task).Error; err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	publish(realtime.TableTasks, realtime.EventInsert, userID, task, nil)
	c.JSON(http.StatusCreated, task)
}

// checkTaskFields validates the enumerated fields and normalizes the due
// date. A non-empty message describes the first problem found.
func checkTaskFields(p models.TaskPriority, cat models.TaskCategory, s models.TaskStatus, due string) (string, string) {
	if !p.Valid() {
		return "", "Invalid priority value"
	}
	if !cat.Valid() {
		return "", "Invalid category value"
	}
	if !s.Valid() {
		return "", "Invalid status value"
	}
	dueDate, ok := models.NormalizeDueDate(due)
	if !ok {
		return "", "Invalid due_date value"
	}
	return dueDate, ""
}

// UpdateTask handles PATCH /rest/v1/tasks/:id
func UpdateTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	taskID, ok := requireParam(c, "id", "Task ID is required")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	db := database.GetDB()
	task, ok := loadOwnedTask(c, db, taskID, userID)
	if !ok {
		return
	}
	old := task

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
			return
		}
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}
	if req.Attachment != nil {
		task.Attachment = *req.Attachment
	}

	dueDate, msg := checkTaskFields(task.Priority, task.Category, task.Status, task.DueDate)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	task.DueDate = dueDate

	if err := db.Save(&task).Error; err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	publish(realtime.TableTasks, realtime.EventUpdate, userID, task, old)
	c.JSON(http.StatusOK, task)
}

// UpdateTaskStatus handles PATCH /rest/v1/tasks/:id/status
func UpdateTaskStatus(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	taskID, ok := requireParam(c, "id", "Task ID is required")
	if !ok {
		return
	}

	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Status is required."})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
		return
	}

	db := database.GetDB()
	task, ok := loadOwnedTask(c, db, taskID, userID)
	if !ok {
		return
	}
	old := task

	if err := db.Model(&task).Update("status", req.Status).Error; err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task status"})
		return
	}
	task.Status = req.Status

	publish(realtime.TableTasks, realtime.EventUpdate, userID, task, old)
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /rest/v1/tasks/:id. Sub-tasks go with it.
func DeleteTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	taskID, ok := requireParam(c, "id", "Task ID is required")
	if !ok {
		return
	}

	db := database.GetDB()
	task, ok := loadOwnedTask(c, db, taskID, userID)
	if !ok {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.SubTask{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	publish(realtime.TableTasks, realtime.EventDelete, userID, nil, task)
	c.Status(http.StatusNoContent)
}

/*
*
GetTaskStats handles GET /rest/v1/stats/tasks
Returns the caller's task counts per status plus a total.
*/
func GetTaskStats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	type row struct {
		Status models.TaskStatus
		Count  int64
	}
	var rows []row
	err := database.GetDB().Model(&models.Task{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task stats"})
		return
	}

	stats := gin.H{}
	for _, s := range models.Statuses {
		stats[string(s)] = int64(0)
	}
	var total int64
	for _, r := range rows {
		stats[string(r.Status)] = r.Count
		total += r.Count
	}
	stats["total"] = total

	c.JSON(http.StatusOK, stats)
}
