package pipeline

import (
	"context"
	"sync"
)

// TaskSet tracks in-flight processing tasks keyed by an opaque id
// (the upload id before a document id exists). Tasks are independent:
// no ordering guarantee and no cross-task coordination. Each task
// carries a cancel func; nothing in the HTTP surface triggers it
// today, but the hook is structural rather than accidental.
type TaskSet struct {
	mu    sync.Mutex
	tasks map[string]context.CancelFunc
}

// NewTaskSet creates an empty task set
func NewTaskSet() *TaskSet {
	return &TaskSet{tasks: make(map[string]context.CancelFunc)}
}

// Start launches fn as a fire-and-forget task. The derived context is
// cancelled when Cancel is called for the same id; the entry is
// removed when fn returns.
func (ts *TaskSet) Start(ctx context.Context, id string, fn func(ctx context.Context)) {
	taskCtx, cancel := context.WithCancel(ctx)

	ts.mu.Lock()
	ts.tasks[id] = cancel
	ts.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			ts.mu.Lock()
			delete(ts.tasks, id)
			ts.mu.Unlock()
		}()
		fn(taskCtx)
	}()
}

// Cancel cancels the task with the given id, if running
func (ts *TaskSet) Cancel(id string) bool {
	ts.mu.Lock()
	cancel, ok := ts.tasks[id]
	ts.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Running reports whether a task with the given id is in flight
func (ts *TaskSet) Running(id string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, ok := ts.tasks[id]
	return ok
}

// Len returns the number of in-flight tasks
func (ts *TaskSet) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.tasks)
}
