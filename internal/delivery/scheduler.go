package delivery

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned by Schedule after Stop.
var ErrStopped = errors.New("delivery: scheduler stopped")

// Scheduler runs delayed callbacks, such as the sent -> delivered
// transition, as cancellable tasks.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	idle    *sync.Cond // signalled when running drops to zero
	tasks   map[*Task]struct{}
	running int
	stopped bool
}

// Task is a single scheduled callback.
type Task struct {
	name  string
	s     *Scheduler
	timer *time.Timer
}

// NewScheduler creates an empty scheduler. A nil logger is replaced by a no-op one.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		logger: logger,
		tasks:  make(map[*Task]struct{}),
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Schedule runs fn once after delay unless the task is cancelled first.
func (s *Scheduler) Schedule(name string, delay time.Duration, fn func()) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}

	t := &Task{name: name, s: s}
	s.tasks[t] = struct{}{}
	t.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if _, live := s.tasks[t]; !live {
			s.mu.Unlock()
			return
		}
		delete(s.tasks, t)
		s.running++
		s.mu.Unlock()

		s.run(t, fn)

		s.mu.Lock()
		s.running--
		if s.running == 0 {
			s.idle.Broadcast()
		}
		s.mu.Unlock()
	})
	return t, nil
}

func (s *Scheduler) run(t *Task, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", zap.String("task", t.name), zap.Any("panic", r))
		}
	}()
	fn()
}

// Name returns the label the task was scheduled with.
func (t *Task) Name() string { return t.name }

// Cancel prevents the task from running. It reports false when the task
// already started or was cancelled before.
func (t *Task) Cancel() bool {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t]; !ok {
		return false
	}
	delete(s.tasks, t)
	t.timer.Stop()
	return true
}

// Pending returns the number of tasks that have not started yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// CancelAll cancels every pending task and waits for callbacks already
// running to return. Callbacks must not call CancelAll themselves.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	n := len(s.tasks)
	for t := range s.tasks {
		delete(s.tasks, t)
		t.timer.Stop()
	}
	for s.running > 0 {
		s.idle.Wait()
	}
	s.mu.Unlock()

	if n > 0 {
		s.logger.Debug("cancelled pending tasks", zap.Int("count", n))
	}
	return n
}

// Stop cancels everything and refuses new work.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.CancelAll()
}
