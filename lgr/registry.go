// Package lgr is a thread-safe log fan-out: any part of a program emits
// messages into a Registry, which delivers them to every registered Listener
// whose filter accepts the severity.
//
// Preferred usage example:
//
//	func main() {
//	    reg := lgr.Acquire()
//	    defer lgr.Release()
//	    console, _ := lgr.NewConsoleListener(reg, "[MyApp]", os.Stdout)
//	    defer console.Close()
//	    file, err := lgr.NewFileListener(reg, "myapp.log", true)
//	    ...
//	    lgr.Warning("disk is almost full")
//	}
package lgr

import (
	"errors"
	"io"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"

	"github.com/abyssdigger/lgrkit/errs"
)

// Registry holds the registered listeners. A single mutex guards registration,
// removal, bulk filter changes and broadcast traversal, so none of them ever
// interleave.
type Registry struct {
	sync struct {
		listMtx sync.Mutex   // guards listeners and their delivery
		fbckMtx sync.RWMutex // guards access to fallback writer
	}
	listeners []Listener    // in registration order
	fallbck   io.Writer     // fallback writer used to report delivery faults
	faults    atomic.Uint64 // number of delivery faults so far
	lastFault atomic.Value  // stores *errs.Error
}

// NewRegistry creates an empty registry reporting delivery faults to [os.Stderr].
func NewRegistry() *Registry {
	return NewRegistryWithFallback(os.Stderr)
}

// NewRegistryWithFallback creates an empty registry with the given fallback
// writer for delivery fault reports (io.Discard is used for nil).
func NewRegistryWithFallback(fallback io.Writer) *Registry {
	r := new(Registry)
	r.SetFallback(fallback)
	return r
}

// Sets the fallback output used to report delivery faults, io.Discard is used
// instead of nil to silently drop fallback messages.
func (r *Registry) SetFallback(f io.Writer) *Registry {
	r.sync.fbckMtx.Lock()
	defer r.sync.fbckMtx.Unlock()
	if f != nil {
		r.fallbck = f
	} else {
		r.fallbck = io.Discard
	}
	return r
}

// Register adds a listener. A nil listener is a parameter error and a
// listener which is already registered is a misuse (it stays registered once).
func (r *Registry) Register(l Listener) error {
	if l == nil {
		return errs.Parameter(0, _ERROR_MESSAGE_NIL_LISTENER)
	}
	r.sync.listMtx.Lock()
	defer r.sync.listMtx.Unlock()
	if slices.Contains(r.listeners, l) {
		return errs.Misuse(_ERROR_MESSAGE_DUPLICATE)
	}
	r.listeners = append(r.listeners, l)
	return nil
}

// Unregister removes the listener if it is registered. Unregistering an
// unknown (or nil) listener is a no-op, so it is safe in any Close.
// Returns true if the listener was removed.
func (r *Registry) Unregister(l Listener) bool {
	if l == nil {
		return false
	}
	r.sync.listMtx.Lock()
	defer r.sync.listMtx.Unlock()
	i := slices.Index(r.listeners, l)
	if i < 0 {
		return false
	}
	r.listeners = slices.Delete(r.listeners, i, i+1)
	return true
}

// Returns whether the listener is registered
func (r *Registry) IsRegistered(l Listener) bool {
	r.sync.listMtx.Lock()
	defer r.sync.listMtx.Unlock()
	return l != nil && slices.Contains(r.listeners, l)
}

// Returns the number of registered listeners
func (r *Registry) Len() int {
	r.sync.listMtx.Lock()
	defer r.sync.listMtx.Unlock()
	return len(r.listeners)
}

// Removes all listeners (they are not closed).
func (r *Registry) Clear() *Registry {
	r.sync.listMtx.Lock()
	defer r.sync.listMtx.Unlock()
	r.listeners = nil
	return r
}

// Broadcast delivers the message to every registered listener whose filter
// accepts the severity. Listener failures, including a nil or panicking
// Filter(), are recorded (see Faults) and never stop the delivery to the
// remaining listeners. Only a severity which is not a message severity (like
// the sentinel bounds) is returned as an error.
func (r *Registry) Broadcast(message string, s Severity) error {
	if !s.IsValid() {
		return errs.Parameter(1, _ERROR_MESSAGE_BAD_SEVERITY+": "+s.String())
	}
	r.sync.listMtx.Lock()
	defer r.sync.listMtx.Unlock()
	for _, l := range r.listeners {
		r.deliver(func() error {
			flt := l.Filter()
			if flt == nil {
				return errors.New(_ERROR_MESSAGE_NIL_FILTER)
			}
			if !flt.IsEnabled(s) {
				return nil
			}
			return l.Output(message, s)
		})
	}
	return nil
}

// BroadcastCode delivers the message with a numeric user code to every
// registered listener, without filtering.
func (r *Registry) BroadcastCode(message string, code uint32) {
	r.sync.listMtx.Lock()
	defer r.sync.listMtx.Unlock()
	for _, l := range r.listeners {
		r.deliver(func() error { return l.OutputCode(message, code) })
	}
}

// Sets the severity mask of every registered listener.
func (r *Registry) SetSeverityMaskOnAll(mask uint32) *Registry {
	r.sync.listMtx.Lock()
	defer r.sync.listMtx.Unlock()
	for _, l := range r.listeners {
		r.changeFilter(l, func(f *Filter) { f.SetSeverityMask(mask) })
	}
	return r
}

// Sets the minimal severity of every registered listener.
func (r *Registry) SetMinSeverityOnAll(s Severity) *Registry {
	r.sync.listMtx.Lock()
	defer r.sync.listMtx.Unlock()
	for _, l := range r.listeners {
		r.changeFilter(l, func(f *Filter) { f.SetMinSeverity(s) })
	}
	return r
}

// Number of delivery faults (listener errors and panics) recorded so far
func (r *Registry) Faults() uint64 {
	return r.faults.Load()
}

// The last recorded delivery fault (nil if none)
func (r *Registry) LastFault() error {
	if err, ok := r.lastFault.Load().(*errs.Error); ok {
		return err
	}
	return nil
}

// changeFilter applies change to the filter of the listener; a nil filter or
// a panicking Filter() is recorded as a delivery fault. Called with listMtx held.
func (r *Registry) changeFilter(l Listener, change func(*Filter)) {
	r.deliver(func() error {
		flt := l.Filter()
		if flt == nil {
			return errors.New(_ERROR_MESSAGE_NIL_FILTER)
		}
		change(flt)
		return nil
	})
}

// deliver runs one listener call with panic recovery; errors and panics are
// recorded as delivery faults. Called with listMtx held.
func (r *Registry) deliver(output func() error) {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = output() })
	if rec := pc.Recovered(); rec != nil {
		err = errors.New("panic writing log to listener" + panicDesc(rec.Value))
	}
	if err != nil {
		r.recordFault(errs.Delivery(err))
	}
}

// recordFault counts the fault, keeps it as the last one and writes it to
// the fallback writer.
func (r *Registry) recordFault(err *errs.Error) {
	n := r.faults.Add(1)
	r.lastFault.Store(err)
	r.handleDeliveryError("[" + strconv.FormatUint(n, 10) + "] " + err.Error())
}

// handleDeliveryError writes a human-readable error message to the fallback
// writer. A read lock is used since we only need consistent access to fallbck.
func (r *Registry) handleDeliveryError(errormsg string) {
	r.sync.fbckMtx.RLock()
	defer r.sync.fbckMtx.RUnlock()
	if r.fallbck != nil {
		r.fallbck.Write([]byte(errormsg + "\n"))
	}
}
