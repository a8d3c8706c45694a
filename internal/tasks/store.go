// Package tasks tracks in-flight work (parses, downloads, extractions and
// rewrites) for display, and publishes every change to subscribers.
package tasks

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SuLition/CatParse/internal/model"
)

// Status texts set by the store
const (
	StatusTextPending = "准备中..."
	StatusTextSuccess = "完成"
	StatusTextFailure = "失败"
)

// DefaultAutoRemoveDelay is how long a successful task stays listed
const DefaultAutoRemoveDelay = 3 * time.Second

// Snapshot is a consistent copy of the store state
type Snapshot struct {
	Tasks          []model.Task `json:"tasks"`
	ActiveTasks    []model.Task `json:"activeTasks"`
	HasActiveTasks bool         `json:"hasActiveTasks"`
	TaskCount      int          `json:"taskCount"`
	ShowTaskPanel  bool         `json:"showTaskPanel"`
	IsMinimized    bool         `json:"isMinimized"`
}

// Patch lists the fields Update may change; nil fields are left alone
type Patch struct {
	Progress   *int
	StatusText *string
	Status     *model.TaskStatus
	Error      *string
}

// Option configures a Store
type Option func(*Store)

// WithAutoRemoveDelay sets how long a successful task stays listed
func WithAutoRemoveDelay(d time.Duration) Option {
	return func(s *Store) { s.autoRemoveDelay = d }
}

// WithClock sets the time source used for CreatedAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// AddOption configures a new task
type AddOption func(*model.Task)

// WithStatusText sets the initial status text
func WithStatusText(text string) AddOption {
	return func(t *model.Task) { t.StatusText = text }
}

// Store is the process-wide task registry. The list is newest first.
type Store struct {
	mu        sync.RWMutex
	tasks     []*model.Task
	timers    map[string]*time.Timer
	showPanel bool
	minimized bool
	closed    bool

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int

	pubMu      sync.Mutex
	publishing bool
	pending    bool

	autoRemoveDelay time.Duration
	now             func() time.Time
	logger          *zap.Logger
}

// New creates an empty task store
func New(logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		timers:          make(map[string]*time.Timer),
		subs:            make(map[int]func(Snapshot)),
		autoRemoveDelay: DefaultAutoRemoveDelay,
		now:             time.Now,
		logger:          logger.Named("tasks"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "task-" + uuid.NewString()
	}
	return "task-" + id.String()
}

// Add creates a running task at the head of the list, surfaces the task
// panel and returns the task id
func (s *Store) Add(taskType model.TaskType, title string, opts ...AddOption) string {
	t := &model.Task{
		ID:         newTaskID(),
		Type:       taskType,
		Title:      title,
		Status:     model.TaskStatusRunning,
		StatusText: StatusTextPending,
		CreatedAt:  s.now(),
	}
	for _, opt := range opts {
		opt(t)
	}

	s.mu.Lock()
	s.tasks = append([]*model.Task{t}, s.tasks...)
	s.showPanel = true
	s.minimized = false
	s.mu.Unlock()

	s.logger.Debug("task added", zap.String("id", t.ID), zap.String("type", string(taskType)))
	s.publish()
	return t.ID
}

// find returns the task with id; callers hold the lock
func (s *Store) find(id string) *model.Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Update applies the set fields of patch to the task. Unknown ids are ignored.
func (s *Store) Update(id string, patch Patch) {
	s.mu.Lock()
	t := s.find(id)
	if t == nil {
		s.mu.Unlock()
		return
	}
	if patch.Progress != nil {
		t.Progress = model.ClampProgress(*patch.Progress)
	}
	if patch.StatusText != nil {
		t.StatusText = *patch.StatusText
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Error != nil {
		t.Error = *patch.Error
	}
	s.mu.Unlock()

	s.publish()
}

// Complete moves a task to its terminal status. On success the progress is
// forced to 100 and the task is removed after the auto-remove delay; a failed
// task stays listed with errMsg. Finished or unknown tasks are left alone,
// except that a task already marked successful gets its removal armed.
func (s *Store) Complete(id string, success bool, errMsg string) {
	s.mu.Lock()
	t := s.find(id)
	if t == nil {
		s.mu.Unlock()
		return
	}
	if t.Status.IsFinished() {
		if _, armed := s.timers[id]; success && t.Status == model.TaskStatusSuccess && !armed {
			s.scheduleRemoval(id)
		}
		s.mu.Unlock()
		return
	}
	if success {
		t.Status = model.TaskStatusSuccess
		t.Progress = 100
		t.StatusText = StatusTextSuccess
		s.scheduleRemoval(id)
	} else {
		t.Status = model.TaskStatusError
		t.Error = errMsg
		t.StatusText = errMsg
		if t.StatusText == "" {
			t.StatusText = StatusTextFailure
		}
	}
	s.mu.Unlock()

	s.publish()
}

// scheduleRemoval arms the auto-remove timer; callers hold the lock
func (s *Store) scheduleRemoval(id string) {
	if s.closed {
		return
	}
	s.stopTimer(id)
	s.timers[id] = time.AfterFunc(s.autoRemoveDelay, func() {
		s.Remove(id)
	})
}

// stopTimer cancels the pending removal of id; callers hold the lock
func (s *Store) stopTimer(id string) {
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Cancel marks an active task cancelled
func (s *Store) Cancel(id string) {
	s.mu.Lock()
	t := s.find(id)
	if t == nil || !t.Status.IsActive() {
		s.mu.Unlock()
		return
	}
	t.Status = model.TaskStatusCancelled
	t.StatusText = "已取消"
	s.stopTimer(id)
	s.mu.Unlock()

	s.publish()
}

// Remove deletes a task and its pending removal. Removing the last task
// hides the panel. Unknown ids are ignored.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	s.stopTimer(id)
	idx := -1
	for i, t := range s.tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	if len(s.tasks) == 0 {
		s.showPanel = false
	}
	s.mu.Unlock()

	s.publish()
}

// ClearCompleted removes every successful or failed task
func (s *Store) ClearCompleted() {
	s.mu.Lock()
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.Status.IsCompleted() {
			s.stopTimer(t.ID)
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = kept
	if len(s.tasks) == 0 {
		s.showPanel = false
	}
	s.mu.Unlock()

	s.publish()
}

// ToggleMinimize flips the minimized flag of the task panel
func (s *Store) ToggleMinimize() {
	s.mu.Lock()
	s.minimized = !s.minimized
	s.mu.Unlock()
	s.publish()
}

// ClosePanel hides the task panel
func (s *Store) ClosePanel() {
	s.mu.Lock()
	s.showPanel = false
	s.mu.Unlock()
	s.publish()
}

// ShowPanel shows the task panel
func (s *Store) ShowPanel() {
	s.mu.Lock()
	s.showPanel = true
	s.mu.Unlock()
	s.publish()
}

// Close stops every pending removal. The store stays readable.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id := range s.timers {
		s.stopTimer(id)
	}
}
