package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AlreadyRunningError is the rejected-trigger outcome: a scan was already in
// flight when Trigger was called. It carries the in-flight run's start time.
type AlreadyRunningError struct {
	StartedAt time.Time
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("scan already running since %s", e.StartedAt.Format(time.RFC3339))
}

type scanner interface {
	Scan(ctx context.Context) (Result, error)
}

type (
	// Coordinator guards the shared run state so that at most one scan is
	// in flight at a time, no matter how many triggers (scheduled or
	// manual) arrive.
	Coordinator struct {
		runner scanner

		mu         sync.Mutex
		running    bool
		startedAt  time.Time
		finishedAt time.Time
		lastResult *Result
		lastError  string
	}

	// RunState is a snapshot of the coordinator for status queries.
	RunState struct {
		Running    bool       `json:"running"`
		StartedAt  *time.Time `json:"started_at,omitempty"`
		FinishedAt *time.Time `json:"finished_at,omitempty"`
		LastResult *Result    `json:"result,omitempty"`
		LastError  string     `json:"error,omitempty"`
	}
)

func NewCoordinator(runner scanner) *Coordinator {
	return &Coordinator{runner: runner}
}

// Trigger starts a scan in the background and returns immediately. If a scan
// is already in flight it returns an *AlreadyRunningError instead of queuing
// a second run.
func (c *Coordinator) Trigger(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		startedAt := c.startedAt
		c.mu.Unlock()
		return &AlreadyRunningError{StartedAt: startedAt}
	}
	c.running = true
	c.startedAt = time.Now().UTC()
	c.finishedAt = time.Time{}
	c.lastResult = nil
	c.lastError = ""
	c.mu.Unlock()

	// The run outlives the triggering request.
	go c.run(context.WithoutCancel(ctx))

	return nil
}

// State reads the shared run state without blocking any in-flight scan.
func (c *Coordinator) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := RunState{
		Running:    c.running,
		LastResult: c.lastResult,
		LastError:  c.lastError,
	}
	if !c.startedAt.IsZero() {
		t := c.startedAt
		state.StartedAt = &t
	}
	if !c.finishedAt.IsZero() {
		t := c.finishedAt
		state.FinishedAt = &t
	}

	return state
}

// run executes the scan and writes the outcome back under the mutex. Any
// error or panic is captured as the run's error state; the running flag is
// always cleared so a future run is never permanently blocked.
func (c *Coordinator) run(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("scan panicked", "panic", p)
			c.finish(nil, fmt.Errorf("panic: %v", p))
		}
	}()

	res, err := c.runner.Scan(ctx)
	if err != nil {
		slog.Error("scan failed", "error", err)
		c.finish(nil, err)
		return
	}

	c.finish(&res, nil)
}

func (c *Coordinator) finish(res *Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = false
	c.finishedAt = time.Now().UTC()
	c.lastResult = res
	c.lastError = ""
	if err != nil {
		c.lastError = err.Error()
	}
}
