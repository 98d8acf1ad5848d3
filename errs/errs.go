// Package errs is the error-context carrier shared by the lgrkit packages.
// Every error raised on misuse or on resource failure is an *Error whose Kind
// tells what went wrong; errors.Is matches against the Err* sentinels by kind.
package errs

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
)

type Kind byte

const (
	KIND_UNKNOWN   Kind = iota
	KIND_MISUSE         // programmer error: double start, duplicate registration...
	KIND_PARAMETER      // wrong value of a parameter (index in Error.Param)
	KIND_RESOURCE       // backing resource can't be acquired (file, socket...)
	KIND_DELIVERY       // listener failed while receiving a message
	KIND_TASK           // worker task returned an error or panicked
	KIND_RUNTIME        // error state of the environment (not a misuse)
	_KIND_MAX_for_checks_only
)

// IO details a KIND_RESOURCE error
type IO byte

const (
	IO_NONE IO = iota
	IO_OPEN
	IO_READ
	IO_PARSE
	IO_WRITE
	IO_ACCESS
	_IO_MAX_for_checks_only
)

const NO_PARAM = -1 // Error.Param value for errors not related to a parameter

var kindNames = [_KIND_MAX_for_checks_only]string{
	"unknown error",
	"misuse",
	"parameter error",
	"resource error",
	"delivery error",
	"task error",
	"runtime error",
}

var ioNames = [_IO_MAX_for_checks_only]string{
	"",
	"open failed with",
	"read failed on",
	"parse error in",
	"write failed on",
	"access was wrong with",
}

// Sentinels for errors.Is(): any *Error of the same kind matches.
var (
	ErrMisuse    = &Error{Kind: KIND_MISUSE, Param: NO_PARAM}
	ErrParameter = &Error{Kind: KIND_PARAMETER, Param: NO_PARAM}
	ErrResource  = &Error{Kind: KIND_RESOURCE, Param: NO_PARAM}
	ErrDelivery  = &Error{Kind: KIND_DELIVERY, Param: NO_PARAM}
	ErrTask      = &Error{Kind: KIND_TASK, Param: NO_PARAM}
	ErrRuntime   = &Error{Kind: KIND_RUNTIME, Param: NO_PARAM}
)

// Error carries a kind, a human-readable message and optional context: the
// number of a wrong parameter, the IO operation and resource name, the cause.
type Error struct {
	Kind  Kind
	Msg   string
	Param int    // parameter number for KIND_PARAMETER, NO_PARAM otherwise
	IO    IO     // IO operation for KIND_RESOURCE
	Name  string // resource or task name
	Err   error  // cause (may be nil)
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.IO != IO_NONE && e.IO < _IO_MAX_for_checks_only {
		s += ": " + ioNames[e.IO] + " `" + e.Name + "`"
	} else if len(e.Name) > 0 {
		s += " in `" + e.Name + "`"
	}
	if e.Param != NO_PARAM {
		s += ": parameter nr. " + strconv.Itoa(e.Param)
	}
	if len(e.Msg) > 0 {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality with a sentinel (an *Error without message and cause).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

func (k Kind) String() string {
	if k < _KIND_MAX_for_checks_only {
		return kindNames[k]
	}
	return kindNames[KIND_UNKNOWN]
}

// KindOf returns the kind of the first *Error in the chain of err,
// KIND_UNKNOWN if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KIND_UNKNOWN
}

func Misuse(msg string) *Error {
	return &Error{Kind: KIND_MISUSE, Msg: msg, Param: NO_PARAM}
}

func Parameter(nr int, msg string) *Error {
	return &Error{Kind: KIND_PARAMETER, Msg: msg, Param: nr}
}

func Resource(io IO, name string, cause error) *Error {
	return &Error{Kind: KIND_RESOURCE, IO: io, Name: name, Err: cause, Param: NO_PARAM}
}

func Delivery(cause error) *Error {
	return &Error{Kind: KIND_DELIVERY, Err: cause, Param: NO_PARAM}
}

func Task(name string, cause error) *Error {
	return &Error{Kind: KIND_TASK, Name: name, Err: cause, Param: NO_PARAM}
}

func Runtime(msg string, cause error) *Error {
	return &Error{Kind: KIND_RUNTIME, Msg: msg, Err: cause, Param: NO_PARAM}
}

// PanicError wraps a recovered panic value with the stack of the panicking
// goroutine.
type PanicError struct {
	Value any
	Stack string
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Unwrap returns the panic value if it was an error.
func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}

// NewPanicError wraps a recovered value; a nil stack is replaced by the
// current one, so call it from the deferred recover in that case.
func NewPanicError(v any, stack []byte) *PanicError {
	if stack == nil {
		buf := make([]byte, 8192)
		stack = buf[:runtime.Stack(buf, false)]
	}
	return &PanicError{Value: v, Stack: string(stack)}
}
