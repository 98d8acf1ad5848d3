package lgr

import (
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/abyssdigger/lgrkit/errs"
)

// RateLimited passes at most perSecond messages (with bursts up to burst) to
// the wrapped listener and drops the rest. Dropped messages are counted, they
// are not delivery faults. The wrapper shares the filter of the wrapped
// listener, which itself must not be registered in the same registry.
type RateLimited struct {
	inner   Listener
	reg     *Registry
	limiter *rate.Limiter
	dropped atomic.Uint64
}

// NewRateLimited wraps inner and registers the wrapper in reg (if reg is not
// nil). A nil inner listener or a non-positive rate is a parameter error.
func NewRateLimited(reg *Registry, inner Listener, perSecond float64, burst int) (*RateLimited, error) {
	if inner == nil {
		return nil, errs.Parameter(1, _ERROR_MESSAGE_NIL_LISTENER)
	}
	if perSecond <= 0 {
		return nil, errs.Parameter(2, "rate must be positive")
	}
	if burst < 1 {
		burst = 1
	}
	r := &RateLimited{
		inner:   inner,
		reg:     reg,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
	if reg != nil {
		if err := reg.Register(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *RateLimited) Filter() *Filter { return r.inner.Filter() }

func (r *RateLimited) Output(message string, s Severity) error {
	if !r.limiter.Allow() {
		r.dropped.Add(1)
		return nil
	}
	return r.inner.Output(message, s)
}

func (r *RateLimited) OutputCode(message string, code uint32) error {
	if !r.limiter.Allow() {
		r.dropped.Add(1)
		return nil
	}
	return r.inner.OutputCode(message, code)
}

// outputAt and outputCodeAt keep the queued timestamp when the wrapper is
// itself wrapped in a [Queued] listener.
func (r *RateLimited) outputAt(pushed time.Time, message string, s Severity) error {
	if !r.limiter.Allow() {
		r.dropped.Add(1)
		return nil
	}
	if timed, ok := r.inner.(timedListener); ok {
		return timed.outputAt(pushed, message, s)
	}
	return r.inner.Output(message, s)
}

func (r *RateLimited) outputCodeAt(pushed time.Time, message string, code uint32) error {
	if !r.limiter.Allow() {
		r.dropped.Add(1)
		return nil
	}
	if timed, ok := r.inner.(timedListener); ok {
		return timed.outputCodeAt(pushed, message, code)
	}
	return r.inner.OutputCode(message, code)
}

// Number of messages dropped so far
func (r *RateLimited) Dropped() uint64 { return r.dropped.Load() }

// Close unregisters the wrapper and closes the wrapped listener if it is an
// io.Closer.
func (r *RateLimited) Close() error {
	if r.reg != nil {
		r.reg.Unregister(r)
	}
	if c, ok := r.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
