package lgr

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/abyssdigger/lgrkit/errs"
	"github.com/abyssdigger/lgrkit/worker"
)

// Queued makes a listener asynchronous: Output only puts the message into a
// buffered channel and a managed worker delivers queued messages to the
// wrapped listener in order. Broadcasts block only while the buffer is full.
//
// Text listeners keep the time the message was queued as its timestamp.
// Delivery faults of the worker are recorded by the registry the wrapper was
// created with (or written to [os.Stderr] without one). The wrapper shares
// the filter of the wrapped listener, which itself must not be registered in
// the same registry.
type Queued struct {
	sync struct {
		statMtx sync.RWMutex // guards active state, channel and worker
	}
	inner   Listener
	reg     *Registry
	active  bool
	channel chan queuedMessage
	wrk     *worker.Worker
}

// NewQueued wraps inner, starts the queue with buffsize capacity
// ([DEFAULT_QUEUE_BUFF] for non-positive values) and then registers the
// wrapper in reg (if reg is not nil).
//
// Preferred usage example:
//
//	file, _ := lgr.NewFileListener(nil, "myapp.log", true)
//	q, _ := lgr.NewQueued(reg, file, -1)
//	defer q.Close()
func NewQueued(reg *Registry, inner Listener, buffsize int) (*Queued, error) {
	if inner == nil {
		return nil, errs.Parameter(1, _ERROR_MESSAGE_NIL_LISTENER)
	}
	q := &Queued{inner: inner, reg: reg}
	if err := q.Start(buffsize); err != nil {
		return nil, err
	}
	if reg != nil {
		if err := reg.Register(q); err != nil {
			q.StopAndWait()
			return nil, err
		}
	}
	return q, nil
}

// Start creates the channel and launches the delivery worker. Starting an
// active queue is a misuse. A stopped queue may be started again: Start then
// waits until the previous worker has delivered everything queued before the
// stop, so messages keep their order across a restart.
func (q *Queued) Start(buffsize int) error {
	q.sync.statMtx.RLock()
	active, prev := q.active, q.wrk
	q.sync.statMtx.RUnlock()
	if active {
		return errs.Misuse(_ERROR_MESSAGE_QUEUE_STARTED)
	}
	// Join outside the lock, the previous worker may still be delivering.
	if prev != nil {
		prev.Join()
	}
	q.sync.statMtx.Lock()
	defer q.sync.statMtx.Unlock()
	if q.active {
		return errs.Misuse(_ERROR_MESSAGE_QUEUE_STARTED)
	}
	if buffsize <= 0 {
		buffsize = DEFAULT_QUEUE_BUFF
	}
	channel := make(chan queuedMessage, buffsize)
	wrk := worker.New(worker.TaskFunc(func(*worker.Signal) error {
		q.proceed(channel)
		return nil
	}), worker.WithName("queue"))
	if err := wrk.Start(); err != nil {
		return err
	}
	q.channel, q.wrk, q.active = channel, wrk, true
	return nil
}

// Stop closes the channel: no more messages are accepted and the worker exits
// once the queued ones are delivered.
func (q *Queued) Stop() {
	q.sync.statMtx.Lock()
	defer q.sync.statMtx.Unlock()
	if q.active {
		q.active = false
		close(q.channel)
	}
}

// Wait blocks until the delivery worker has finished.
func (q *Queued) Wait() {
	q.sync.statMtx.RLock()
	wrk := q.wrk
	q.sync.statMtx.RUnlock()
	if wrk != nil {
		wrk.Join()
	}
}

func (q *Queued) StopAndWait() {
	q.Stop()
	q.Wait()
}

// Close unregisters the wrapper, delivers all queued messages and waits for
// the worker. The wrapped listener is not closed.
func (q *Queued) Close() error {
	if q.reg != nil {
		q.reg.Unregister(q)
	}
	q.StopAndWait()
	return nil
}

func (q *Queued) IsActive() bool {
	q.sync.statMtx.RLock()
	defer q.sync.statMtx.RUnlock()
	return q.active
}

// Number of messages waiting in the queue
func (q *Queued) Pending() int {
	q.sync.statMtx.RLock()
	defer q.sync.statMtx.RUnlock()
	return len(q.channel)
}

func (q *Queued) Filter() *Filter { return q.inner.Filter() }

func (q *Queued) Output(message string, s Severity) error {
	return q.push(queuedMessage{pushed: time.Now(), msgtext: message, msgtype: _MSG_SEVERITY, annex: uint32(s)})
}

func (q *Queued) OutputCode(message string, code uint32) error {
	return q.push(queuedMessage{pushed: time.Now(), msgtext: message, msgtype: _MSG_CODE, annex: code})
}

// The read lock is held while sending, so Stop can't close the channel under
// a pending send.
func (q *Queued) push(msg queuedMessage) error {
	q.sync.statMtx.RLock()
	defer q.sync.statMtx.RUnlock()
	if !q.active {
		return errs.Misuse(_ERROR_MESSAGE_QUEUE_INACTIVE)
	}
	q.channel <- msg
	return nil
}

// proceed is the body of the delivery worker, it runs until the channel is
// closed and drained.
func (q *Queued) proceed(channel <-chan queuedMessage) {
	for msg := range channel {
		var err error
		var pc panics.Catcher
		pc.Try(func() { err = q.write(&msg) })
		if rec := pc.Recovered(); rec != nil {
			err = errors.New("panic writing queued log to listener" + panicDesc(rec.Value))
		}
		if err != nil {
			q.handleDeliveryError(errs.Delivery(err))
		}
	}
}

func (q *Queued) write(msg *queuedMessage) error {
	timed, isTimed := q.inner.(timedListener)
	switch msg.msgtype {
	case _MSG_SEVERITY:
		if isTimed {
			return timed.outputAt(msg.pushed, msg.msgtext, Severity(msg.annex))
		}
		return q.inner.Output(msg.msgtext, Severity(msg.annex))
	case _MSG_CODE:
		if isTimed {
			return timed.outputCodeAt(msg.pushed, msg.msgtext, msg.annex)
		}
		return q.inner.OutputCode(msg.msgtext, msg.annex)
	}
	return errors.New("forbidden queued message type " + strconv.Itoa(int(msg.msgtype)))
}

func (q *Queued) handleDeliveryError(err *errs.Error) {
	if q.reg != nil {
		q.reg.recordFault(err)
		return
	}
	os.Stderr.WriteString(err.Error() + "\n")
}
