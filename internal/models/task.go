package models

import (
	"fmt"
	"time"
)

// TaskStatus represents the board column a task sits in
type TaskStatus string

const (
	StatusTodo       TaskStatus = "Todo"
	StatusInWork     TaskStatus = "In Work"
	StatusInProgress TaskStatus = "In Progress"
	StatusDone       TaskStatus = "Done"
)

// Statuses lists the board columns in display order.
var Statuses = []TaskStatus{StatusTodo, StatusInWork, StatusInProgress, StatusDone}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInWork, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "High"
	PriorityMedium TaskPriority = "Medium"
	PriorityLow    TaskPriority = "Low"
)

var Priorities = []TaskPriority{PriorityHigh, PriorityMedium, PriorityLow}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TaskCategory labels what kind of work a task is
type TaskCategory string

const (
	CategoryPersonal TaskCategory = "Personal"
	CategoryAgent    TaskCategory = "Agent"
	CategoryClient   TaskCategory = "Client"
	CategoryDesign   TaskCategory = "Design"
	CategoryResearch TaskCategory = "Research"
	CategoryPlanning TaskCategory = "Planning"
	CategoryContent  TaskCategory = "Content"
)

var Categories = []TaskCategory{
	CategoryPersonal,
	CategoryAgent,
	CategoryClient,
	CategoryDesign,
	CategoryResearch,
	CategoryPlanning,
	CategoryContent,
}

func (c TaskCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Task represents a task on a user's board
type Task struct {
	ID          string       `json:"id" gorm:"primaryKey"`
	UserID      string       `json:"user_id" gorm:"column:user_id;index;not null"`
	Title       string       `json:"title" gorm:"not null"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority" gorm:"not null;default:'Low'"`
	Category    TaskCategory `json:"category" gorm:"not null;default:'Personal'"`
	Status      TaskStatus   `json:"status" gorm:"not null;default:'Todo'"`
	DueDate     string       `json:"due_date" gorm:"column:due_date"`
	Attachment  string       `json:"attachment,omitempty"`
	SubTasks    []SubTask    `json:"sub_tasks" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// SubTask is a checklist item belonging to exactly one task
type SubTask struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TaskID    string    `json:"task_id" gorm:"column:task_id;index;not null"`
	Title     string    `json:"title" gorm:"not null"`
	Status    bool      `json:"status" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for SubTask Model
func (SubTask) TableName() string {
	return "sub_tasks"
}

// Progress is the derived completion counter of a task's sub-tasks.
type Progress struct {
	Completed int
	Total     int
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Completed, p.Total)
}

// Percent returns 0 when there are no sub-tasks.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Completed * 100 / p.Total
}

// Done reports whether every sub-task is checked. A task without
// sub-tasks counts as done.
func (p Progress) Done() bool {
	return p.Completed == p.Total
}

func (t Task) Progress() Progress {
	p := Progress{Total: len(t.SubTasks)}
	for _, st := range t.SubTasks {
		if st.Status {
			p.Completed++
		}
	}
	return p
}
