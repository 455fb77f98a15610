package forms

import (
	"strings"

	"taskboard/internal/models"
)

// Login is the sign-in form.
type Login struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6"`
}

// Register is the sign-up form.
type Register struct {
	Username        string `form:"username" validate:"notblank"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

// Task is the create and edit form. Priority is picked separately; see
// Validator.RequirePriority.
type Task struct {
	Title       string `form:"title" validate:"required,min=10"`
	Description string `form:"description" validate:"required,min=20"`
	Category    string `form:"category" validate:"required,category"`
	DueDate     string `form:"due_date" validate:"required,duedate"`
}

// TaskFrom fills the form from a stored task, for the edit screen.
func TaskFrom(t models.Task) Task {
	return Task{
		Title:       t.Title,
		Description: t.Description,
		Category:    string(t.Category),
		DueDate:     t.DueDate,
	}
}

// SubTask is a single checklist entry.
type SubTask struct {
	Title string `form:"title" validate:"notblank"`
}

// Profile is the rename form.
type Profile struct {
	Username string `form:"username" validate:"notblank"`
}

// PendingTitles cleans the sub-task lines typed alongside a new task,
// dropping blank ones.
func PendingTitles(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}
