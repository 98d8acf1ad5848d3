// Package worker runs one background task at a time with a safe and
// deterministic lifecycle: Start blocks until the task goroutine is live,
// stopping is cooperative, Join reports how the task ended.
//
// Typical usage:
//
//	w := worker.New(worker.TaskFunc(func(s *worker.Signal) error {
//	    for !s.Stopped() {
//	        ... do something
//	        s.Sleep(10 * time.Millisecond)
//	    }
//	    return nil
//	}))
//	defer w.Close()
//	if err := w.Start(); err != nil { ... }
package worker

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/abyssdigger/lgrkit/errs"
)

const (
	_ERROR_MESSAGE_DOUBLE_START  = "worker is allready started"
	_ERROR_MESSAGE_WORKER_CLOSED = "worker is closed"
	_ERROR_MESSAGE_NIL_TASK      = "worker task is nil"
	DEFAULT_NAME                 = "worker"
)

type State byte

const (
	STATE_IDLE State = iota
	STATE_LAUNCHING
	STATE_RUNNING
	STATE_STOP_REQUESTED
	_STATE_MAX_for_checks_only
)

var stateNames = [_STATE_MAX_for_checks_only]string{
	"idle",
	"launching",
	"running",
	"stop requested",
}

func (s State) String() string {
	if s < _STATE_MAX_for_checks_only {
		return stateNames[s]
	}
	return "unknown"
}

// Task is the body run by a Worker. Run is expected to loop until the signal
// reports a stop request and then return promptly; the worker never preempts it.
type Task interface {
	Run(s *Signal) error
}

// TaskFunc adapts an ordinary function to the Task interface.
type TaskFunc func(s *Signal) error

func (f TaskFunc) Run(s *Signal) error { return f(s) }

// ExitHook is called from the task goroutine after every task exit with the
// completion status (nil for a clean exit), before Join returns. It must not
// call Join or Start of the same worker.
type ExitHook func(name string, err error)

type Option func(*Worker)

func WithName(name string) Option {
	return func(w *Worker) {
		if len(name) > 0 {
			w.name = name
		}
	}
}

func WithExitHook(hook ExitHook) Option {
	return func(w *Worker) { w.onExit = hook }
}

// Worker owns at most one live task goroutine.
//
// Two mutexes are used: thrdMtx serializes Start and Join (Join may hold it for
// a long time), stateMtx guards the state so IsRunning never waits for Join.
type Worker struct {
	sync struct {
		thrdMtx  sync.Mutex   // serializes launching and joining
		stateMtx sync.RWMutex // guards everything below
	}
	task   Task
	name   string
	onExit ExitHook
	state  State
	signal *Signal       // stop flag of the current (or last) launch
	done   chan struct{} // closed when the current (or last) task has exited
	result error         // completion status of the last exited task
	closed bool
}

// New creates an idle worker for the task. Nothing runs until Start.
func New(task Task, opts ...Option) *Worker {
	w := &Worker{task: task, name: DEFAULT_NAME, state: STATE_IDLE}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Worker) Name() string { return w.name }

// Start launches the task and returns only when its goroutine runs, so
// IsRunning() is true for any caller that has seen Start return (until the
// task itself exits). Starting a worker that is not idle is a misuse.
func (w *Worker) Start() error {
	w.sync.thrdMtx.Lock()
	defer w.sync.thrdMtx.Unlock()
	if w.task == nil {
		return errs.Misuse(_ERROR_MESSAGE_NIL_TASK)
	}

	w.sync.stateMtx.Lock()
	if w.closed {
		w.sync.stateMtx.Unlock()
		return errs.Misuse(_ERROR_MESSAGE_WORKER_CLOSED)
	}
	if w.state != STATE_IDLE {
		w.sync.stateMtx.Unlock()
		return errs.Misuse(_ERROR_MESSAGE_DOUBLE_START + " (" + w.name + ")")
	}
	signal := newSignal()
	done := make(chan struct{})
	launched := make(chan struct{})
	w.state = STATE_LAUNCHING
	w.signal = signal
	w.done = done
	w.result = nil
	w.sync.stateMtx.Unlock()

	go w.launch(signal, done, launched)
	<-launched // rendezvous: we don't return until the task goroutine is live
	return nil
}

// launch is the task wrapper: it confirms liveness, runs the task with panic
// recovery and publishes the completion status.
func (w *Worker) launch(signal *Signal, done, launched chan struct{}) {
	w.sync.stateMtx.Lock()
	if w.state == STATE_LAUNCHING {
		w.state = STATE_RUNNING
	}
	w.sync.stateMtx.Unlock()
	close(launched)

	var err error
	var pc panics.Catcher
	pc.Try(func() { err = w.task.Run(signal) })
	if r := pc.Recovered(); r != nil {
		err = errs.Task(w.name, errs.NewPanicError(r.Value, r.Stack))
	} else if err != nil {
		err = errs.Task(w.name, err)
	}

	// A panicking exit hook must not leave the worker stuck in a live state.
	if w.onExit != nil {
		var hc panics.Catcher
		hc.Try(func() { w.onExit(w.name, err) })
		if r := hc.Recovered(); r != nil && err == nil {
			err = errs.Task(w.name, errs.NewPanicError(r.Value, r.Stack))
		}
	}

	w.sync.stateMtx.Lock()
	w.state = STATE_IDLE
	w.result = err
	w.sync.stateMtx.Unlock()
	close(done)
}

// RequestStop raises the cooperative stop flag of the live task. It never
// blocks and does nothing if no task is live.
func (w *Worker) RequestStop() {
	w.sync.stateMtx.Lock()
	defer w.sync.stateMtx.Unlock()
	if w.state == STATE_IDLE || w.signal == nil {
		return
	}
	w.signal.raise()
	w.state = STATE_STOP_REQUESTED
}

// Join blocks until the live task has exited and returns its completion
// status: nil for a clean exit, a KIND_TASK error if it returned an error or
// panicked. Without a live task it returns the status of the last task (nil
// if none ever ran).
func (w *Worker) Join() error {
	return w.JoinContext(context.Background())
}

// JoinContext is Join bounded by ctx; ctx.Err() is returned if ctx ends
// before the task exits (the task keeps running).
func (w *Worker) JoinContext(ctx context.Context) error {
	w.sync.thrdMtx.Lock()
	defer w.sync.thrdMtx.Unlock()
	w.sync.stateMtx.RLock()
	done := w.done
	w.sync.stateMtx.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.sync.stateMtx.RLock()
	defer w.sync.stateMtx.RUnlock()
	return w.result
}

// StopAndJoin is RequestStop followed by Join.
func (w *Worker) StopAndJoin() error {
	w.RequestStop()
	return w.Join()
}

// True while a task goroutine is live (between a confirmed start and its exit).
func (w *Worker) IsRunning() bool {
	w.sync.stateMtx.RLock()
	defer w.sync.stateMtx.RUnlock()
	return w.state != STATE_IDLE
}

func (w *Worker) State() State {
	w.sync.stateMtx.RLock()
	defer w.sync.stateMtx.RUnlock()
	return w.state
}

// Close is the worker teardown: it stops and joins a live task and forbids
// further starts. The completion status of the last task is returned. Safe to
// call in any state and more than once.
func (w *Worker) Close() error {
	w.sync.stateMtx.Lock()
	w.closed = true
	w.sync.stateMtx.Unlock()
	return w.StopAndJoin()
}
