package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskRunning   = errors.New("task is already running")
	ErrDuplicateTask = errors.New("task already registered")
	ErrInvalidTask   = errors.New("task needs an id, an interval and a run function")
)

type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusError   TaskStatus = "error"
)

// TaskFunc performs one run and reports how many items it touched.
type TaskFunc func(ctx context.Context) (int, error)

// Task is a housekeeping job run every Interval.
type Task struct {
	ID       string
	Name     string
	Interval time.Duration
	Run      TaskFunc
}

// TaskState is the in-memory status of a registered task.
type TaskState struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Interval      string     `json:"interval"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`
	LastStatus    TaskStatus `json:"lastStatus"`
	LastError     string     `json:"lastError,omitempty"`
	ItemsAffected int        `json:"itemsAffected"`
}

// Service manages scheduled task execution
type Service struct {
	checkInterval time.Duration
	now           func() time.Time

	// Runtime state
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	taskMu      sync.RWMutex
	tasks       map[string]Task
	state       map[string]*TaskState
	taskRunning map[string]bool
}

// NewService creates a scheduler that looks for due tasks every checkInterval.
func NewService(checkInterval time.Duration) *Service {
	if checkInterval < time.Second {
		checkInterval = 60 * time.Second
	}
	return &Service{
		checkInterval: checkInterval,
		now:           time.Now,
		tasks:         make(map[string]Task),
		state:         make(map[string]*TaskState),
		taskRunning:   make(map[string]bool),
	}
}

// Register adds a task. Tasks registered after Start are picked up on the next check.
func (s *Service) Register(task Task) error {
	task.ID = strings.TrimSpace(task.ID)
	if task.ID == "" || task.Interval <= 0 || task.Run == nil {
		return ErrInvalidTask
	}
	if task.Name == "" {
		task.Name = task.ID
	}

	s.taskMu.Lock()
	defer s.taskMu.Unlock()
	if _, ok := s.tasks[task.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, task.ID)
	}
	s.tasks[task.ID] = task
	s.state[task.ID] = &TaskState{
		ID:         task.ID,
		Name:       task.Name,
		Interval:   task.Interval.String(),
		LastStatus: TaskStatusPending,
	}
	return nil
}

// Start begins the scheduler background loop
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.schedulerLoop()

	log.Println("[scheduler] Scheduler service started")
	return nil
}

// Stop cancels running tasks and waits for them until ctx expires.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[scheduler] Scheduler service stopped gracefully")
	case <-ctx.Done():
		log.Println("[scheduler] Scheduler service stopped (timeout)")
	}

	s.running = false
	return nil
}

func (s *Service) schedulerLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run check immediately on start
	s.checkAndRunTasks()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkAndRunTasks()
		}
	}
}

func (s *Service) checkAndRunTasks() {
	for _, task := range s.dueTasks() {
		s.launch(task)
	}
}

func (s *Service) dueTasks() []Task {
	s.taskMu.RLock()
	defer s.taskMu.RUnlock()

	now := s.now()
	var due []Task
	for id, task := range s.tasks {
		if s.taskRunning[id] {
			continue
		}
		st := s.state[id]
		if st.LastRunAt == nil || now.Sub(*st.LastRunAt) >= task.Interval {
			due = append(due, task)
		}
	}
	return due
}

// launch marks the task as running and executes it in the background.
// It returns false when the task is already running.
func (s *Service) launch(task Task) bool {
	s.taskMu.Lock()
	if s.taskRunning[task.ID] {
		s.taskMu.Unlock()
		return false
	}
	s.taskRunning[task.ID] = true
	s.state[task.ID].LastStatus = TaskStatusRunning
	s.taskMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.executeTask(task)
	}()
	return true
}

func (s *Service) executeTask(task Task) {
	ctx := s.runContext()
	items, err := task.Run(ctx)

	now := s.now().UTC()

	s.taskMu.Lock()
	defer s.taskMu.Unlock()
	delete(s.taskRunning, task.ID)

	st := s.state[task.ID]
	st.LastRunAt = &now
	st.ItemsAffected = items
	if err != nil {
		st.LastStatus = TaskStatusError
		st.LastError = err.Error()
		log.Printf("[scheduler] Task %s failed: %v", task.ID, err)
		return
	}
	st.LastStatus = TaskStatusSuccess
	st.LastError = ""
	if items > 0 {
		log.Printf("[scheduler] Task %s completed, %d items affected", task.ID, items)
	}
}

func (s *Service) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

// RunTaskNow triggers immediate execution of a task
func (s *Service) RunTaskNow(taskID string) error {
	s.taskMu.RLock()
	task, ok := s.tasks[taskID]
	s.taskMu.RUnlock()
	if !ok {
		return ErrTaskNotFound
	}
	if !s.launch(task) {
		return ErrTaskRunning
	}
	return nil
}

// GetTaskStatus returns every registered task ordered by id.
func (s *Service) GetTaskStatus() []TaskState {
	s.taskMu.RLock()
	defer s.taskMu.RUnlock()

	out := make([]TaskState, 0, len(s.state))
	for _, st := range s.state {
		cp := *st
		if st.LastRunAt != nil {
			t := *st.LastRunAt
			cp.LastRunAt = &t
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsTaskRunning checks if a specific task is currently running
func (s *Service) IsTaskRunning(taskID string) bool {
	s.taskMu.RLock()
	defer s.taskMu.RUnlock()
	return s.taskRunning[taskID]
}

// Wait blocks until every launched task has returned. The scheduler loop
// counts as a task while the service is started.
func (s *Service) Wait() {
	s.wg.Wait()
}
