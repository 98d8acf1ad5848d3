package lgr

import "sync/atomic"

// Listener is the capability of every log sink. The registry checks the
// listener filter before calling Output; OutputCode is delivered unfiltered.
//
// Listeners are identified by their handle, so implementations must be
// comparable (use pointer receivers). Output and OutputCode run under the
// registry lock: they must not call any method of the registry they are
// registered in, or the broadcast deadlocks.
//
// A listener registers itself only after it is completely constructed, and
// unregisters in Close.
type Listener interface {
	Filter() *Filter
	Output(message string, s Severity) error
	OutputCode(message string, code uint32) error
}

// Filtering can be embedded into custom listeners to provide the Filter()
// part of the Listener interface. The zero value is ready to use: the filter
// is created (letting every severity pass) on first use.
type Filtering struct {
	filter atomic.Pointer[Filter]
}

func (f *Filtering) Filter() *Filter {
	if flt := f.filter.Load(); flt != nil {
		return flt
	}
	f.filter.CompareAndSwap(nil, NewFilter())
	return f.filter.Load()
}

// Shortcuts for the filter of the listener, chainable on the filter.
func (f *Filtering) SetMinSeverity(s Severity) *Filter {
	return f.Filter().SetMinSeverity(s)
}

func (f *Filtering) SetSeverityMask(mask uint32) *Filter {
	return f.Filter().SetSeverityMask(mask)
}
