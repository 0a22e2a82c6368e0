// Package task manages the goroutines that drive a link: the engine's
// receive loop, the device emulator's serve loop and its periodic pushes.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-seriallink/logger"
)

// ErrStopped is returned when starting a task on a manager that has been stopped
// and not yet waited for.
var ErrStopped = errors.New("task: manager already stopped")

// Func is one iteration of a looping task.
// It should return true to continue running the task, or false to stop the goroutine.
type Func func(ctx context.Context) bool

// Manager manages the lifecycle of goroutines (tasks).
//
// Every task observes the manager's context: Stop cancels it, and each loop
// checks it between iterations, so a task exits at its next iteration
// boundary. Wait joins all tasks and re-arms the manager so it can be reused.
//
// Example Usage:
//
//	mgr := task.NewManager(ctx, logger)
//
//	_ = mgr.Start("receiveLoop", func(ctx context.Context) bool {
//	    // ... one bounded unit of work ...
//	    return true // Return true to continue running, false to stop
//	})
//
//	mgr.Stop()
//	mgr.Wait()
type Manager struct {
	pctx      context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    logger.Logger
	count     atomic.Int32
	intervals sync.Map     // map[string]*intervalTask
	mu        sync.RWMutex // protect ctx and cancel
	taskMu    sync.RWMutex // protect task creation during Wait()
}

type intervalTask struct {
	ticker *time.Ticker
	stop   chan struct{}
}

// NewManager creates a new Manager with the given context as the parent context and logger.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	mgr := &Manager{pctx: ctx, logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context shared by the running tasks.
func (mgr *Manager) Context() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Start starts a new goroutine that calls fn repeatedly until it returns
// false or the manager is stopped.
func (mgr *Manager) Start(name string, fn Func) error {
	mgr.logger.Debug("start task", "name", name)

	ctx, err := mgr.runningContext()
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	mgr.spawn(name, func() {
		mgr.runLoop(ctx, name, fn)
	})

	return nil
}

// StartInterval starts a new goroutine that executes fn at the specified interval.
// If runNow is true, fn is executed once immediately on the task goroutine.
// The task ends when fn returns false, the interval is stopped, or the manager is stopped.
func (mgr *Manager) StartInterval(name string, fn Func, interval time.Duration, runNow bool) error {
	mgr.logger.Debug("start interval task", "name", name, "interval", interval, "runNow", runNow)

	if interval <= 0 {
		return fmt.Errorf("task: invalid interval: %v", interval)
	}

	ctx, err := mgr.runningContext()
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	it := &intervalTask{ticker: time.NewTicker(interval), stop: make(chan struct{})}
	if _, loaded := mgr.intervals.LoadOrStore(name, it); loaded {
		it.ticker.Stop()
		return fmt.Errorf("task: interval task %s already exists", name)
	}

	mgr.spawn(name, func() {
		defer func() {
			it.ticker.Stop()
			mgr.intervals.CompareAndDelete(name, it)
		}()

		if runNow && !mgr.callWithRecover(ctx, name, fn) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-it.stop:
				return
			case <-it.ticker.C:
				if !mgr.callWithRecover(ctx, name, fn) {
					return
				}
			}
		}
	})

	return nil
}

// StopInterval stops the interval task with the given name.
func (mgr *Manager) StopInterval(name string) error {
	val, ok := mgr.intervals.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("task: interval task %s not found", name)
	}

	it, _ := val.(*intervalTask)
	it.ticker.Stop()
	close(it.stop)

	return nil
}

// Stop signals all running goroutines.
func (mgr *Manager) Stop() {
	mgr.intervals.Range(func(_, value any) bool {
		if it, ok := value.(*intervalTask); ok {
			it.ticker.Stop()
		}

		return true
	})

	mgr.mu.Lock()
	if mgr.cancel != nil {
		mgr.cancel()
	}
	mgr.mu.Unlock()
}

// Wait waits for all goroutines to terminate, then re-arms the manager.
func (mgr *Manager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	mgr.wg.Wait()

	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// WaitTimeout is Wait bounded by d. It reports whether all tasks terminated in time.
func (mgr *Manager) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		mgr.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(d):
		mgr.logger.Error("task: wait timeout", "timeout", d, "task_count", mgr.TaskCount())
		return false
	}
}

// TaskCount returns the number of currently running goroutines.
func (mgr *Manager) TaskCount() int {
	return int(mgr.count.Load())
}

func (mgr *Manager) runningContext() (context.Context, error) {
	ctx := mgr.Context()

	select {
	case <-ctx.Done():
		return nil, ErrStopped
	default:
		return ctx, nil
	}
}

func (mgr *Manager) spawn(name string, body func()) {
	mgr.taskMu.RLock()
	defer mgr.taskMu.RUnlock()

	mgr.wg.Add(1)
	mgr.count.Add(1)

	go func() {
		defer mgr.wg.Done()
		defer func() {
			mgr.count.Add(-1)
			mgr.logger.Debug(fmt.Sprintf("%s task terminated", name), "task_count", mgr.TaskCount())
		}()

		body()
	}()
}

// runLoop runs fn until it returns false or ctx is cancelled.
// A panicking iteration is logged and the loop continues with the next one.
func (mgr *Manager) runLoop(ctx context.Context, name string, fn Func) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if !mgr.callWithRecover(ctx, name, fn) {
				return
			}
		}
	}
}

// callWithRecover calls fn with panic protection. A panic counts as "continue".
func (mgr *Manager) callWithRecover(ctx context.Context, name string, fn Func) (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			cont = true
		}
	}()

	return fn(ctx)
}
