package vm

import (
	"context"
	"sync"

	jsruntime "jscore/pkg/runtime"
)

// AsyncTask is one pending asynchronous operation registered with a
// Realm's Task Queue (§4.7 "AsyncTask trait: poll(self, cx, realm) ->
// Poll<Res>"). Poll drives the task forward one step: done=true retires
// it (err, if non-nil, is an uncaught failure the runner logs), done=false
// retains it for the next polling round.
type AsyncTask interface {
	Poll(ctx context.Context, vm *VM) (done bool, err error)
}

// TaskQueue is the Realm's asynchronous coordination point (§4.7): a
// microtask queue (Promise reactions, queued through the embedded
// AsyncRuntime) plus a task list for futures — timers, host I/O, anything
// an awaited Promise is waiting on.
type TaskQueue struct {
	realm   *Realm
	runtime jsruntime.AsyncRuntime

	mu    sync.Mutex
	tasks []AsyncTask
}

// NewTaskQueue wires a fresh Task Queue to r using the default Go-based
// async runtime; an embedder wanting deterministic test scheduling
// substitutes its own jsruntime.AsyncRuntime via SetRuntime.
func NewTaskQueue(r *Realm) *TaskQueue {
	return &TaskQueue{realm: r, runtime: jsruntime.NewDefaultAsyncRuntime()}
}

func (q *TaskQueue) SetRuntime(rt jsruntime.AsyncRuntime) { q.runtime = rt }

// EnqueueMicrotask schedules fn to run once the current job finishes and
// before the next task is polled (Promise `.then` reactions, queueMicrotask).
func (q *TaskQueue) EnqueueMicrotask(fn func()) {
	q.runtime.ScheduleMicrotask(fn)
}

// EnqueueTask registers t to be polled on future runner ticks.
func (q *TaskQueue) EnqueueTask(t AsyncTask) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
}

func (q *TaskQueue) IsEmpty() bool {
	q.mu.Lock()
	n := len(q.tasks)
	q.mu.Unlock()
	return n == 0 && !q.runtime.HasPendingExternalOps()
}

// drainMicrotasks runs RunUntilIdle to a fixpoint: a microtask that
// schedules another microtask must see it run before the runner proceeds
// to task polling (§4.7 "Microtasks always drain completely before the
// next async task is polled").
func (q *TaskQueue) drainMicrotasks() {
	for q.runtime.RunUntilIdle() {
	}
}

// takeLocalTasks atomically swaps out the pending task list so newly
// enqueued tasks (from a task's own Poll call) land in the *next* round
// rather than being mutated concurrently with this round's iteration.
func (q *TaskQueue) takeLocalTasks() []AsyncTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	local := q.tasks
	q.tasks = nil
	return local
}

// RunEventLoop drains microtasks and polls pending tasks until both
// queues are empty or ctx is canceled, implementing the runner loop of
// §4.7: (1) drain microtasks to fixpoint, (2) swap out the pending task
// list, (3) poll each task, re-queuing those still Pending.
func (q *TaskQueue) RunEventLoop(ctx context.Context, vm *VM) error {
	for {
		q.drainMicrotasks()

		local := q.takeLocalTasks()
		if len(local) == 0 {
			if q.runtime.HasPendingExternalOps() {
				q.runtime.WaitForExternalOp(ctx)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			return nil
		}

		for _, t := range local {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			done, err := t.Poll(ctx, vm)
			if !done {
				q.EnqueueTask(t)
				continue
			}
			if err != nil {
				q.realm.Log.Errorf("uncaught error from async task: %v", err)
			}
		}
	}
}
