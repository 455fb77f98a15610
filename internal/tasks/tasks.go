// Package tasks runs the task mutations behind the board screens and turns
// their outcomes into notifications.
package tasks

import (
	"context"

	"go.uber.org/zap"

	"taskboard/internal/forms"
	"taskboard/internal/gateway"
	"taskboard/internal/models"
	"taskboard/internal/notify"
)

// Gateway is the part of the gateway client task mutations need.
type Gateway interface {
	InsertTask(ctx context.Context, t gateway.NewTask) (models.Task, error)
	InsertSubTasks(ctx context.Context, rows []gateway.NewSubTask) ([]models.SubTask, error)
	UpdateTask(ctx context.Context, id string, p gateway.TaskPatch) (models.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error
	DeleteTask(ctx context.Context, id string) error
}

// Outcome of CreateTask.
type Outcome int

const (
	Failure Outcome = iota
	Partial
	Success
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Partial:
		return "partial"
	default:
		return "failure"
	}
}

// Result describes a CreateTask call. Errors is set when the form was
// rejected before anything was sent.
type Result struct {
	Outcome  Outcome
	Task     models.Task
	SubTasks []models.SubTask
	Errors   forms.FieldErrors
}

var (
	createdNote = notify.SuccessOf("Task Created Successfully",
		"Your task has been created. You can now proceed to complete it.")
	partialNote = notify.WarningOf("Something Went Wrong", "Failed to create a subtask.")
	failedNote  = notify.ErrorOf("Failed to Create Task", "Something went wrong while creating the task.")
	updatedNote = notify.SuccessOf("Task Updated Successfully", "Your task has been updated.")
	updateFail  = notify.ErrorOf("Update Task Failed", "Something went wrong while updating your task.")
	deletedNote = notify.SuccessOf("Task Deleted", "The task and its sub-tasks were removed.")
	deleteFail  = notify.ErrorOf("Failed to Delete Task", "Something went wrong while deleting the task.")
)

type Service struct {
	gw  Gateway
	v   *forms.Validator
	log *zap.Logger
}

func NewService(gw Gateway, v *forms.Validator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gw: gw, v: v, log: log}
}

func (s *Service) validate(form forms.Task, priority models.TaskPriority) forms.FieldErrors {
	errs := s.v.Check(form)
	if msg := s.v.RequirePriority(priority); msg != "" {
		errs["priority"] = msg
	}
	return errs
}

// CreateTask validates the form, inserts the task and then the pending
// sub-task titles in one batch tagged with the new task id.
func (s *Service) CreateTask(ctx context.Context, form forms.Task, priority models.TaskPriority, pending []string) (Result, notify.Notification) {
	if errs := s.validate(form, priority); !errs.OK() {
		return Result{Outcome: Failure, Errors: errs}, notify.Notification{}
	}

	dueDate, _ := models.NormalizeDueDate(form.DueDate)
	task, err := s.gw.InsertTask(ctx, gateway.NewTask{
		Title:       form.Title,
		Description: form.Description,
		Priority:    priority,
		Category:    models.TaskCategory(form.Category),
		DueDate:     dueDate,
	})
	if err != nil {
		s.log.Error("task insert failed", zap.Error(err))
		return Result{Outcome: Failure}, failedNote
	}

	titles := forms.PendingTitles(pending)
	if len(titles) == 0 {
		return Result{Outcome: Success, Task: task}, createdNote
	}

	rows := make([]gateway.NewSubTask, 0, len(titles))
	for _, t := range titles {
		rows = append(rows, gateway.NewSubTask{TaskID: task.ID, Title: t})
	}
	created, err := s.gw.InsertSubTasks(ctx, rows)
	if err != nil {
		s.log.Error("sub-task batch insert failed", zap.String("task_id", task.ID), zap.Error(err))
		return Result{Outcome: Partial, Task: task}, partialNote
	}
	return Result{Outcome: Success, Task: task, SubTasks: created}, createdNote
}

// UpdateStatus moves a task to another column. Failures are only logged.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) {
	if !status.Valid() {
		s.log.Warn("ignoring unknown status", zap.String("task_id", id), zap.String("status", string(status)))
		return
	}
	if err := s.gw.UpdateTaskStatus(ctx, id, status); err != nil {
		s.log.Error("status update failed", zap.String("task_id", id), zap.Error(err))
	}
}

// UpdateTask saves the edit form. On validation failure nothing is sent and
// the field errors are returned.
func (s *Service) UpdateTask(ctx context.Context, id string, form forms.Task, priority models.TaskPriority) (forms.FieldErrors, notify.Notification) {
	if errs := s.validate(form, priority); !errs.OK() {
		return errs, notify.Notification{}
	}

	dueDate, _ := models.NormalizeDueDate(form.DueDate)
	category := models.TaskCategory(form.Category)
	_, err := s.gw.UpdateTask(ctx, id, gateway.TaskPatch{
		Title:       &form.Title,
		Description: &form.Description,
		Priority:    &priority,
		Category:    &category,
		DueDate:     &dueDate,
	})
	if err != nil {
		s.log.Error("task update failed", zap.String("task_id", id), zap.Error(err))
		return nil, updateFail
	}
	return nil, updatedNote
}

// DeleteTask removes a task; the gateway removes its sub-tasks.
func (s *Service) DeleteTask(ctx context.Context, id string) notify.Notification {
	if err := s.gw.DeleteTask(ctx, id); err != nil {
		s.log.Error("task delete failed", zap.String("task_id", id), zap.Error(err))
		return deleteFail
	}
	return deletedNote
}
