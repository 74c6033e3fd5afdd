// Package scheduler runs periodic tasks cooperatively from a single caller.
//
// A task fires when now - lastFiredAt >= period on a monotonic millisecond
// clock. Firing sets lastFiredAt = now, so a late tick never triggers a
// burst of catch-up runs; cadence drifts instead.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Clock returns monotonic milliseconds.
type Clock interface {
	NowMillis() int64
}

// MonotonicClock counts milliseconds since it was created, using the
// runtime's monotonic reading so wall-clock jumps do not affect it.
type MonotonicClock struct {
	start time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

func (c *MonotonicClock) NowMillis() int64 {
	return time.Since(c.start).Milliseconds()
}

// ManualClock is advanced by hand.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func (c *ManualClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to ms.
func (c *ManualClock) Set(ms int64) {
	c.mu.Lock()
	c.now = ms
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d.Milliseconds()
	c.mu.Unlock()
}

// Action is the work a task performs. It runs on the caller of Tick.
type Action func(ctx context.Context)

// Task is a periodic unit of work owned by one Scheduler.
type Task struct {
	Name          string
	PeriodMs      int64
	LastFiredAtMs int64

	action  Action
	running bool
}

var (
	ErrInvalidPeriod = errors.New("task period must be positive")
	ErrNilAction     = errors.New("task action must not be nil")
	ErrDuplicateTask = errors.New("task already registered")
)

// Scheduler holds tasks in registration order.
type Scheduler struct {
	clock Clock
	tasks []*Task
}

func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = NewMonotonicClock()
	}
	return &Scheduler{clock: clock}
}

// Add registers a task. Its first firing happens one period after the
// clock's current reading.
func (s *Scheduler) Add(name string, periodMs int64, action Action) error {
	if periodMs <= 0 {
		return ErrInvalidPeriod
	}
	if action == nil {
		return ErrNilAction
	}
	for _, t := range s.tasks {
		if t.Name == name {
			return ErrDuplicateTask
		}
	}
	s.tasks = append(s.tasks, &Task{
		Name:          name,
		PeriodMs:      periodMs,
		LastFiredAtMs: s.clock.NowMillis(),
		action:        action,
	})
	return nil
}

// Tick runs every due task, in registration order, and returns the names
// of the tasks that fired. A task whose previous run has not returned
// (Tick re-entered from inside an action) is skipped.
func (s *Scheduler) Tick(ctx context.Context) []string {
	var fired []string
	for _, t := range s.tasks {
		now := s.clock.NowMillis()
		if t.running || now-t.LastFiredAtMs < t.PeriodMs {
			continue
		}
		t.LastFiredAtMs = now
		t.running = true
		t.action(ctx)
		t.running = false
		fired = append(fired, t.Name)
	}
	return fired
}

// Tasks returns a copy of the registered task descriptors.
func (s *Scheduler) Tasks() []Task {
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, Task{Name: t.Name, PeriodMs: t.PeriodMs, LastFiredAtMs: t.LastFiredAtMs})
	}
	return out
}
