package lgr

import "sync"

/*
The process-wide registry. It is created lazily by the first Default() or
Acquire() and is reference-counted: every Acquire() has to be paired with a
Release(), and the last Release() clears the registry and drops it, so the next
Default() starts with a fresh one. Code that only emits messages uses the
package-level helpers below and never needs a reference.
*/

var shared struct {
	mtx  sync.Mutex
	reg  *Registry
	refs int
}

// Default returns the process-wide registry, creating it if needed. It does
// not take a reference.
func Default() *Registry {
	shared.mtx.Lock()
	defer shared.mtx.Unlock()
	if shared.reg == nil {
		shared.reg = NewRegistry()
	}
	return shared.reg
}

// Acquire returns the process-wide registry and takes a reference on it.
func Acquire() *Registry {
	shared.mtx.Lock()
	defer shared.mtx.Unlock()
	if shared.reg == nil {
		shared.reg = NewRegistry()
	}
	shared.refs++
	return shared.reg
}

// Release drops a reference taken by Acquire. When the last one is dropped the
// registry is cleared (listeners are not closed) and discarded. Extra calls
// are ignored.
func Release() {
	shared.mtx.Lock()
	defer shared.mtx.Unlock()
	if shared.refs == 0 {
		return
	}
	shared.refs--
	if shared.refs == 0 && shared.reg != nil {
		shared.reg.Clear()
		shared.reg = nil
	}
}

/////////////////////////////////////////////////////////////////////////////////////////
/*
Convenience severity-specific helpers. These are thin wrappers around
Broadcast; as the severities are valid they never return errors, delivery
faults are recorded by the registry.
*/

// Log broadcasts the message into the process-wide registry.
func Log(message string, s Severity) error { return Default().Broadcast(message, s) }

// LogCode broadcasts the message with a user code into the process-wide registry.
func LogCode(message string, code uint32) { Default().BroadcastCode(message, code) }

func Debug(message string)   { Default().Debug(message) }
func Info(message string)    { Default().Info(message) }
func Warning(message string) { Default().Warning(message) }
func Error(message string)   { Default().Error(message) }
func Fatal(message string)   { Default().Fatal(message) }

// Err logs an error value at SEV_ERROR (nil errors are ignored).
func Err(e error) { Default().Err(e) }

func SetSeverityMaskOnAll(mask uint32) { Default().SetSeverityMaskOnAll(mask) }
func SetMinSeverityOnAll(s Severity)   { Default().SetMinSeverityOnAll(s) }

// Logs a message at SEV_DEBUG, intended for developer-focused output.
func (r *Registry) Debug(message string) { r.Broadcast(message, SEV_DEBUG) }

// Logs a message at SEV_INFO, used for normal operational messages.
func (r *Registry) Info(message string) { r.Broadcast(message, SEV_INFO) }

// Logs a message at SEV_WARNING, for recoverable or noteworthy conditions.
func (r *Registry) Warning(message string) { r.Broadcast(message, SEV_WARNING) }

func (r *Registry) Error(message string) { r.Broadcast(message, SEV_ERROR) }

// Logs a message at SEV_FATAL. The program is not stopped, that is up to the caller.
func (r *Registry) Fatal(message string) { r.Broadcast(message, SEV_FATAL) }

// Err calls Error() on the provided error and logs that string at SEV_ERROR.
func (r *Registry) Err(e error) {
	if e != nil {
		r.Broadcast(e.Error(), SEV_ERROR)
	}
}
