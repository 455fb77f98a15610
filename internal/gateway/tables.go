package gateway

import (
	"context"
	"net/http"
	"net/url"

	"taskboard/internal/models"
)

// NewTask is the insert payload of the tasks table.
type NewTask struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	Category    models.TaskCategory `json:"category"`
	Status      models.TaskStatus   `json:"status,omitempty"`
	DueDate     string              `json:"due_date"`
	Attachment  string              `json:"attachment,omitempty"`
}

// TaskPatch updates only the non-nil fields of a task.
type TaskPatch struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	Category    *models.TaskCategory `json:"category,omitempty"`
	Status      *models.TaskStatus   `json:"status,omitempty"`
	DueDate     *string              `json:"due_date,omitempty"`
	Attachment  *string              `json:"attachment,omitempty"`
}

// NewSubTask is the insert payload of the sub_tasks table.
type NewSubTask struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
	Status bool   `json:"status"`
}

// SubTaskPatch updates only the non-nil fields of a sub-task.
type SubTaskPatch struct {
	Title  *string `json:"title,omitempty"`
	Status *bool   `json:"status,omitempty"`
}

// ProfilePatch updates only the non-nil fields of a profile.
type ProfilePatch struct {
	Username     *string `json:"username,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
}

// TaskStats counts the caller's tasks per status.
type TaskStats map[string]int64

func taskPath(id string) string {
	return "/rest/v1/tasks/" + url.PathEscape(id)
}

// ListTasks returns every task of the signed-in user, oldest first, with
// sub-tasks ordered by creation. Live inserts append to the end, so a reload
// keeps the same order.
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := c.doJSON(ctx, http.MethodGet, "/rest/v1/tasks?sort=asc", nil, &tasks)
	return tasks, err
}

func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	err := c.doJSON(ctx, http.MethodGet, taskPath(id), nil, &task)
	return task, err
}

// InsertTask creates a task and returns the stored row.
func (c *Client) InsertTask(ctx context.Context, t NewTask) (models.Task, error) {
	var task models.Task
	err := c.doJSON(ctx, http.MethodPost, "/rest/v1/tasks", t, &task)
	return task, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, p TaskPatch) (models.Task, error) {
	var task models.Task
	err := c.doJSON(ctx, http.MethodPatch, taskPath(id), p, &task)
	return task, err
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	body := map[string]models.TaskStatus{"status": status}
	return c.doJSON(ctx, http.MethodPatch, taskPath(id)+"/status", body, nil)
}

// DeleteTask removes a task; the gateway removes its sub-tasks.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) TaskStats(ctx context.Context) (TaskStats, error) {
	stats := TaskStats{}
	err := c.doJSON(ctx, http.MethodGet, "/rest/v1/stats/tasks", nil, &stats)
	return stats, err
}

// InsertSubTasks inserts all rows in one request; either all are stored or
// none.
func (c *Client) InsertSubTasks(ctx context.Context, rows []NewSubTask) ([]models.SubTask, error) {
	var created []models.SubTask
	err := c.doJSON(ctx, http.MethodPost, "/rest/v1/sub_tasks", rows, &created)
	return created, err
}

func (c *Client) UpdateSubTask(ctx context.Context, id string, p SubTaskPatch) (models.SubTask, error) {
	var st models.SubTask
	err := c.doJSON(ctx, http.MethodPatch, "/rest/v1/sub_tasks/"+url.PathEscape(id), p, &st)
	return st, err
}

func (c *Client) DeleteSubTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/rest/v1/sub_tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) GetProfile(ctx context.Context, id string) (models.UserProfile, error) {
	var p models.UserProfile
	err := c.doJSON(ctx, http.MethodGet, "/rest/v1/users_detail/"+url.PathEscape(id), nil, &p)
	return p, err
}

func (c *Client) InsertProfile(ctx context.Context, p models.UserProfile) (models.UserProfile, error) {
	var created models.UserProfile
	body := map[string]string{
		"id":            p.ID,
		"username":      p.Username,
		"profile_image": p.ProfileImage,
	}
	err := c.doJSON(ctx, http.MethodPost, "/rest/v1/users_detail", body, &created)
	return created, err
}

func (c *Client) UpdateProfile(ctx context.Context, id string, p ProfilePatch) (models.UserProfile, error) {
	var updated models.UserProfile
	err := c.doJSON(ctx, http.MethodPatch, "/rest/v1/users_detail/"+url.PathEscape(id), p, &updated)
	return updated, err
}
