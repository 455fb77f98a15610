package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"taskboard/internal/gateway"
	"taskboard/internal/models"
)

// DetailGateway is what the task view and edit screens need.
type DetailGateway interface {
	GetTask(ctx context.Context, id string) (models.Task, error)
	UpdateSubTask(ctx context.Context, id string, p gateway.SubTaskPatch) (models.SubTask, error)
	DeleteSubTask(ctx context.Context, id string) error
	InsertSubTasks(ctx context.Context, rows []gateway.NewSubTask) ([]models.SubTask, error)
}

var ErrUnknownSubTask = errors.New("sub-task not found")

// Detail holds one task for the view and edit screens. Edits go to the
// gateway first and patch the local copy only on success; ToggleSubTask
// patches first and reverts on failure.
type Detail struct {
	gw  DetailGateway
	log *zap.Logger

	mu   sync.Mutex
	task models.Task
}

func NewDetail(gw DetailGateway, task models.Task, log *zap.Logger) *Detail {
	if log == nil {
		log = zap.NewNop()
	}
	if task.SubTasks == nil {
		task.SubTasks = []models.SubTask{}
	}
	return &Detail{gw: gw, log: log, task: task}
}

// LoadDetail fetches the task with its sub-tasks.
func LoadDetail(ctx context.Context, gw DetailGateway, id string, log *zap.Logger) (*Detail, error) {
	task, err := gw.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	return NewDetail(gw, task, log), nil
}

func (d *Detail) Task() models.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneTask(&d.task)
}

func (d *Detail) indexOf(id string) int {
	for i := range d.task.SubTasks {
		if d.task.SubTasks[i].ID == id {
			return i
		}
	}
	return -1
}

// ToggleSubTask flips a sub-task's completion flag locally, then asks the
// gateway. On failure the flag is restored and the error returned. It
// returns the flag value now held locally.
func (d *Detail) ToggleSubTask(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	i := d.indexOf(id)
	if i < 0 {
		d.mu.Unlock()
		return false, ErrUnknownSubTask
	}
	previous := d.task.SubTasks[i].Status
	tentative := !previous
	d.task.SubTasks[i].Status = tentative
	d.mu.Unlock()

	_, err := d.gw.UpdateSubTask(ctx, id, gateway.SubTaskPatch{Status: &tentative})
	if err == nil {
		return tentative, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.indexOf(id); i >= 0 && d.task.SubTasks[i].Status == tentative {
		d.task.SubTasks[i].Status = previous
	}
	d.log.Warn("sub-task toggle reverted", zap.String("sub_task_id", id), zap.Error(err))
	return previous, fmt.Errorf("toggle sub-task: %w", err)
}

// Rename changes a sub-task title.
func (d *Detail) Rename(ctx context.Context, id, title string) error {
	d.mu.Lock()
	known := d.indexOf(id) >= 0
	d.mu.Unlock()
	if !known {
		return ErrUnknownSubTask
	}

	title = strings.TrimSpace(title)
	updated, err := d.gw.UpdateSubTask(ctx, id, gateway.SubTaskPatch{Title: &title})
	if err != nil {
		return fmt.Errorf("rename sub-task: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.indexOf(id); i >= 0 {
		d.task.SubTasks[i].Title = updated.Title
	}
	return nil
}

// Remove deletes a sub-task.
func (d *Detail) Remove(ctx context.Context, id string) error {
	if err := d.gw.DeleteSubTask(ctx, id); err != nil {
		return fmt.Errorf("remove sub-task: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.indexOf(id); i >= 0 {
		d.task.SubTasks = append(d.task.SubTasks[:i], d.task.SubTasks[i+1:]...)
	}
	return nil
}

// Add inserts one sub-task.
func (d *Detail) Add(ctx context.Context, title string) (models.SubTask, error) {
	created, err := d.AddBatch(ctx, []string{title})
	if err != nil {
		return models.SubTask{}, err
	}
	if len(created) == 0 {
		return models.SubTask{}, errors.New("add sub-task: gateway returned no row")
	}
	return created[0], nil
}

// AddBatch inserts several sub-tasks in one gateway call.
func (d *Detail) AddBatch(ctx context.Context, titles []string) ([]models.SubTask, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	d.mu.Lock()
	taskID := d.task.ID
	d.mu.Unlock()

	rows := make([]gateway.NewSubTask, 0, len(titles))
	for _, t := range titles {
		rows = append(rows, gateway.NewSubTask{TaskID: taskID, Title: strings.TrimSpace(t)})
	}
	created, err := d.gw.InsertSubTasks(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("add sub-tasks: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, st := range created {
		if d.indexOf(st.ID) < 0 {
			d.task.SubTasks = append(d.task.SubTasks, st)
		}
	}
	return created, nil
}
