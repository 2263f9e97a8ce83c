// Package runtime provides the async execution environment the VM's Task
// Queue drives: a microtask queue plus tracking of in-flight external
// operations (timers, host I/O) that keep the event loop alive between
// ticks. Pluggable so an embedder can substitute a deterministic test
// runtime for the default Go-goroutine-backed one.
package runtime

import (
	"context"
	"sync"
)

// AsyncRuntime is the async execution environment a Realm's Task Queue is
// built on (§4.7 "Task Queue"). This interface allows plugging in
// different async execution strategies (Go-based, event loop,
// deterministic testing, etc.) without the VM core depending on any one
// of them.
type AsyncRuntime interface {
	// ScheduleMicrotask queues a callback to run after the current task
	// completes. Microtasks run before the next task and are used for
	// Promise resolution.
	ScheduleMicrotask(callback func())

	// RunUntilIdle executes all pending microtasks and returns true if
	// any work was done.
	RunUntilIdle() bool

	// Reset clears all pending tasks (useful for testing).
	Reset()

	// BeginExternalOp marks the start of an external async operation
	// (HTTP, timers, etc.). The operation is not cancellable through ctx,
	// and DefaultAsyncRuntime does not consult ctx here; a caller cancels
	// a wait through WaitForExternalOp's ctx instead.
	BeginExternalOp(ctx context.Context)

	// EndExternalOp marks the completion of an external async operation.
	// This should be called when the operation completes and
	// resolves/rejects a promise.
	EndExternalOp()

	// HasPendingExternalOps returns true if there are pending external
	// operations.
	HasPendingExternalOps() bool

	// WaitForExternalOp blocks until at least one external operation
	// completes or ctx is done, whichever comes first. Returns
	// immediately if there are no pending external operations.
	WaitForExternalOp(ctx context.Context)
}

// DefaultAsyncRuntime is a simple Go-based runtime with a microtask queue
// and a condition variable tracking external operations.
type DefaultAsyncRuntime struct {
	microtasks      []func()
	mu              sync.Mutex
	pendingExternal int
	externalCond    *sync.Cond
}

func NewDefaultAsyncRuntime() *DefaultAsyncRuntime {
	rt := &DefaultAsyncRuntime{microtasks: make([]func(), 0, 16)}
	rt.externalCond = sync.NewCond(&rt.mu)
	return rt
}

func (rt *DefaultAsyncRuntime) ScheduleMicrotask(callback func()) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.microtasks = append(rt.microtasks, callback)
}

// RunUntilIdle executes all pending microtasks. New microtasks scheduled
// during execution are processed in the next call, matching JavaScript's
// "drain the queue that existed at the start of this turn" semantics.
func (rt *DefaultAsyncRuntime) RunUntilIdle() bool {
	rt.mu.Lock()
	tasks := rt.microtasks
	rt.microtasks = make([]func(), 0, 16)
	rt.mu.Unlock()

	if len(tasks) == 0 {
		return false
	}
	for _, task := range tasks {
		task()
	}
	return true
}

func (rt *DefaultAsyncRuntime) Reset() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.microtasks = make([]func(), 0, 16)
	rt.pendingExternal = 0
}

func (rt *DefaultAsyncRuntime) BeginExternalOp(ctx context.Context) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.pendingExternal++
}

func (rt *DefaultAsyncRuntime) EndExternalOp() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.pendingExternal--
	rt.externalCond.Broadcast()
}

func (rt *DefaultAsyncRuntime) HasPendingExternalOps() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.pendingExternal > 0
}

// WaitForExternalOp blocks on the condition variable until an operation
// completes, racing a goroutine that broadcasts when ctx is canceled so
// the wait never outlives the caller's deadline.
func (rt *DefaultAsyncRuntime) WaitForExternalOp(ctx context.Context) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.pendingExternal == 0 {
		return
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			rt.mu.Lock()
			rt.externalCond.Broadcast()
			rt.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)
	if ctx.Err() == nil {
		rt.externalCond.Wait()
	}
}
