// Package board keeps an in-memory mirror of a user's tasks and their
// sub-tasks, loaded once and then patched from gateway change events.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"taskboard/internal/models"
	"taskboard/internal/realtime"
)

// Gateway is the part of the gateway client the board needs.
type Gateway interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	Subscribe(ctx context.Context, table, filter string) (realtime.Stream, error)
}

// Column is one status lane of the board.
type Column struct {
	Status models.TaskStatus
	Tasks  []models.Task
}

// Board maps task ids to tasks. All reads return copies.
type Board struct {
	gw  Gateway
	log *zap.Logger

	mu      sync.RWMutex
	tasks   map[string]*models.Task
	order   []string
	loading bool
	version uint64

	listenMu  sync.Mutex
	listeners map[chan struct{}]struct{}

	watchMu sync.Mutex
	streams []realtime.Stream
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(gw Gateway, log *zap.Logger) *Board {
	if log == nil {
		log = zap.NewNop()
	}
	return &Board{
		gw:        gw,
		log:       log,
		tasks:     make(map[string]*models.Task),
		loading:   true,
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Load replaces the board with one bulk fetch. Loading reports true until it
// returns.
func (b *Board) Load(ctx context.Context) error {
	b.mu.Lock()
	b.loading = true
	b.mu.Unlock()

	tasks, err := b.gw.ListTasks(ctx)

	b.mu.Lock()
	b.loading = false
	if err == nil {
		b.tasks = make(map[string]*models.Task, len(tasks))
		b.order = b.order[:0]
		for i := range tasks {
			t := tasks[i]
			if t.SubTasks == nil {
				t.SubTasks = []models.SubTask{}
			}
			b.tasks[t.ID] = &t
			b.order = append(b.order, t.ID)
		}
	}
	b.version++
	b.mu.Unlock()
	b.notify()

	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	return nil
}

// Watch subscribes to the user's task and sub-task changes. One goroutine
// drains both streams, so events are applied one at a time. Close stops it.
func (b *Board) Watch(ctx context.Context, userID string) error {
	b.watchMu.Lock()
	defer b.watchMu.Unlock()
	if b.cancel != nil {
		return fmt.Errorf("board is already watching")
	}

	filter := realtime.EqFilter("user_id", userID)
	taskStream, err := b.gw.Subscribe(ctx, realtime.TableTasks, filter)
	if err != nil {
		return fmt.Errorf("subscribe to tasks: %w", err)
	}
	subTaskStream, err := b.gw.Subscribe(ctx, realtime.TableSubTasks, filter)
	if err != nil {
		_ = taskStream.Close()
		return fmt.Errorf("subscribe to sub-tasks: %w", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.streams = []realtime.Stream{taskStream, subTaskStream}
	b.wg.Add(1)
	go b.drain(watchCtx, taskStream.Events(), subTaskStream.Events())
	return nil
}

func (b *Board) drain(ctx context.Context, tasks, subTasks <-chan realtime.ChangeEvent) {
	defer b.wg.Done()
	for tasks != nil || subTasks != nil {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-tasks:
			if !ok {
				tasks = nil
				continue
			}
			b.Apply(evt)
		case evt, ok := <-subTasks:
			if !ok {
				subTasks = nil
				continue
			}
			b.Apply(evt)
		}
	}
}

// Close releases both subscriptions and waits for the drain goroutine.
func (b *Board) Close() error {
	b.watchMu.Lock()
	defer b.watchMu.Unlock()
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	var firstErr error
	for _, s := range b.streams {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.wg.Wait()
	b.cancel = nil
	b.streams = nil
	return firstErr
}

// Apply patches the board with one change event and reports whether
// anything changed. Events for unknown rows are dropped.
func (b *Board) Apply(evt realtime.ChangeEvent) bool {
	var changed bool
	var err error

	b.mu.Lock()
	switch evt.Table {
	case realtime.TableTasks:
		changed, err = b.applyTask(evt)
	case realtime.TableSubTasks:
		changed, err = b.applySubTask(evt)
	}
	if changed {
		b.version++
	}
	b.mu.Unlock()

	if err != nil {
		b.log.Warn("dropping undecodable change event",
			zap.String("table", evt.Table),
			zap.String("type", string(evt.Type)),
			zap.Error(err),
		)
	}
	if changed {
		b.notify()
	}
	return changed
}

func (b *Board) applyTask(evt realtime.ChangeEvent) (bool, error) {
	var row models.Task
	if err := json.Unmarshal(evt.Record(), &row); err != nil {
		return false, err
	}
	existing, ok := b.tasks[row.ID]

	switch evt.Type {
	case realtime.EventInsert:
		if ok {
			return false, nil
		}
		row.SubTasks = []models.SubTask{}
		b.tasks[row.ID] = &row
		b.order = append(b.order, row.ID)
		return true, nil
	case realtime.EventUpdate:
		if !ok {
			return false, nil
		}
		row.SubTasks = existing.SubTasks
		*existing = row
		return true, nil
	case realtime.EventDelete:
		if !ok {
			return false, nil
		}
		delete(b.tasks, row.ID)
		for i, id := range b.order {
			if id == row.ID {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
		return true, nil
	}
	return false, nil
}

func (b *Board) applySubTask(evt realtime.ChangeEvent) (bool, error) {
	var row models.SubTask
	if err := json.Unmarshal(evt.Record(), &row); err != nil {
		return false, err
	}
	task, ok := b.tasks[row.TaskID]
	if !ok {
		return false, nil
	}
	idx := -1
	for i := range task.SubTasks {
		if task.SubTasks[i].ID == row.ID {
			idx = i
			break
		}
	}

	switch evt.Type {
	case realtime.EventInsert:
		if idx >= 0 {
			return false, nil
		}
		task.SubTasks = append(task.SubTasks, row)
		return true, nil
	case realtime.EventUpdate:
		if idx < 0 {
			return false, nil
		}
		task.SubTasks[idx] = row
		return true, nil
	case realtime.EventDelete:
		if idx < 0 {
			return false, nil
		}
		task.SubTasks = append(task.SubTasks[:idx], task.SubTasks[idx+1:]...)
		return true, nil
	}
	return false, nil
}

func cloneTask(t *models.Task) models.Task {
	c := *t
	c.SubTasks = append([]models.SubTask{}, t.SubTasks...)
	return c
}

// Tasks returns every task in board order.
func (b *Board) Tasks() []models.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Task, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, cloneTask(b.tasks[id]))
	}
	return out
}

func (b *Board) Task(id string) (models.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return cloneTask(t), true
}

// Column returns the tasks with the given status in board order.
func (b *Board) Column(status models.TaskStatus) []models.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.Task
	for _, id := range b.order {
		if t := b.tasks[id]; t.Status == status {
			out = append(out, cloneTask(t))
		}
	}
	return out
}

// Columns returns the four status lanes in display order.
func (b *Board) Columns() []Column {
	cols := make([]Column, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		cols = append(cols, Column{Status: s, Tasks: b.Column(s)})
	}
	return cols
}

func (b *Board) Loading() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loading
}

// Version increases on every change; renderers compare it to skip work.
func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Changes returns a channel that receives a value after board changes, and
// the function that stops delivery. Bursts are coalesced.
func (b *Board) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.listenMu.Lock()
	b.listeners[ch] = struct{}{}
	b.listenMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.listenMu.Lock()
			delete(b.listeners, ch)
			b.listenMu.Unlock()
		})
	}
}

func (b *Board) notify() {
	b.listenMu.Lock()
	defer b.listenMu.Unlock()
	for ch := range b.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
