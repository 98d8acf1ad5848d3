package lgr

import "sync/atomic"

// Filter is the per-listener severity gate: a message passes if its severity
// is not below the minimal severity and intersects the mask.
//
// Both values are stored atomically, so they can be changed by the owning
// listener or by the registry bulk operations at any time. A change affects
// the next broadcast, never one already delivering to the listener.
type Filter struct {
	minSev atomic.Uint32
	mask   atomic.Uint32
}

// NewFilter returns a filter that lets every message severity pass.
func NewFilter() *Filter {
	f := new(Filter)
	f.minSev.Store(uint32(DEFAULT_MIN_SEVERITY))
	f.mask.Store(SEV_MASK_ALL)
	return f
}

// Returns true for severities passing both the minimal severity check and the mask.
// A zero mask disables everything.
func (f *Filter) IsEnabled(s Severity) bool {
	return uint32(s) >= f.minSev.Load() && uint32(s)&f.mask.Load() != 0
}

// Setting SEV_MAX_BOUND effectively turns the listener off.
func (f *Filter) SetMinSeverity(s Severity) *Filter {
	f.minSev.Store(uint32(s))
	return f
}

// The mask is checked after the minimal severity (see MaskOf).
func (f *Filter) SetSeverityMask(mask uint32) *Filter {
	f.mask.Store(mask)
	return f
}

func (f *Filter) MinSeverity() Severity { return Severity(f.minSev.Load()) }

func (f *Filter) SeverityMask() uint32 { return f.mask.Load() }
