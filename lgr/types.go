package lgr

/*
Defines the core data types of the log dispatch:
  - Severity: ordered bit flags of message severities with two sentinel bounds
  - SeverityMap: per-severity strings (names, prefixes, ANSI colors)
  - queuedMessage: unit kept in the queue of a Queued listener

Also defines package-wide constants and helper utilities:
  - default values
  - ANSI/color related constants
  - error messages
  - panic description helper
*/

import (
	"math/bits"
	"strings"
	"time"

	"github.com/abyssdigger/lgrkit/errs"
)

// Severity of a log message. Every message severity is a distinct power of two
// so severities can be combined into masks; the order of the values is the
// order of importance.
type Severity uint32

const (
	SEV_MIN_BOUND Severity = 1 << iota // sentinel, never a message severity
	SEV_DEBUG
	SEV_INFO
	SEV_WARNING
	SEV_ERROR
	SEV_FATAL
	SEV_MAX_BOUND // sentinel, never a message severity
)

const SEV_MASK_ALL uint32 = 0xffffffff

const (
	// Default values for short init forms
	DEFAULT_MIN_SEVERITY = SEV_MIN_BOUND
	DEFAULT_QUEUE_BUFF   = 32  // default buffer size of a Queued listener
	DEFAULT_OUT_BUFF     = 256 // initial buffer size for formatted output text
	DEFAULT_CODE_PREFIX  = " USERCODE: "
)

const (
	// ANSI colored text fragments prefix/suffix used when colors are requested.
	// For a colored piece of text the sequence will be:
	// ANSI_COL_PRFX + colorSpec + ANSI_COL_SUFX + text + ANSI_COL_RESET
	ANSI_COL_PRFX  = "\033["
	ANSI_COL_SUFX  = "m"
	ANSI_COL_RESET = ANSI_COL_PRFX + "0" + ANSI_COL_SUFX
)

const (
	_ERROR_MESSAGE_NIL_LISTENER     = "listener is nil"
	_ERROR_MESSAGE_NIL_FILTER       = "listener filter is nil"
	_ERROR_MESSAGE_DUPLICATE        = "listener is allready registered"
	_ERROR_MESSAGE_BAD_SEVERITY     = "not a message severity"
	_ERROR_MESSAGE_UNKNOWN_SEVERITY = "unknown severity name"
	_ERROR_MESSAGE_QUEUE_INACTIVE   = "queue is not active"
	_ERROR_MESSAGE_QUEUE_STARTED    = "queue is allready started"
	_ERROR_UNKNOWN_PANIC_TEXT       = "[no panic description]"
)

// Number of message severities (i.e. without sentinels)
const _SEV_COUNT = 5

// SeverityMap is a fixed-size array with one entry per message severity, from
// SEV_DEBUG to SEV_FATAL. Used for severity names, prefixes and colors.
type SeverityMap [_SEV_COUNT]string

// Full severity names (also accepted by ParseSeverity)
var SeverityFullNames = &SeverityMap{
	"DEBUG",   //SEV_DEBUG
	"INFO",    //SEV_INFO
	"WARNING", //SEV_WARNING
	"ERROR",   //SEV_ERROR
	"FATAL",   //SEV_FATAL
}

// Short severity names
var SeverityShortNames = &SeverityMap{
	"DBG", //SEV_DEBUG
	"INF", //SEV_INFO
	"WRN", //SEV_WARNING
	"ERR", //SEV_ERROR
	"FTL", //SEV_FATAL
}

// Predefined ANSI terminal colors map for ConsoleListener.SetColors
var SeverityColorOnBlackMap = &SeverityMap{
	"0;90",     //SEV_DEBUG
	"0;97",     //SEV_INFO
	"0;33",     //SEV_WARNING
	"0;91",     //SEV_ERROR
	"101;1;33", //SEV_FATAL
}

// True for the message severities SEV_DEBUG..SEV_FATAL (exactly one flag set).
func (s Severity) IsValid() bool {
	return s > SEV_MIN_BOUND && s < SEV_MAX_BOUND && bits.OnesCount32(uint32(s)) == 1
}

// index in SeverityMap, -1 for invalid severities
func (s Severity) index() int {
	if !s.IsValid() {
		return -1
	}
	return bits.TrailingZeros32(uint32(s)) - 1
}

func (s Severity) String() string {
	switch s {
	case SEV_MIN_BOUND:
		return "MIN_BOUND"
	case SEV_MAX_BOUND:
		return "MAX_BOUND"
	}
	if i := s.index(); i >= 0 {
		return SeverityFullNames[i]
	}
	return "UNKNOWN"
}

// Returns the text prefix written before a message of the severity, like
// " WARNING: ". Sentinels and other non-message values are a parameter error.
func SeverityPrefix(s Severity) (string, error) {
	i := s.index()
	if i < 0 {
		return "", errs.Parameter(0, _ERROR_MESSAGE_BAD_SEVERITY+": "+s.String())
	}
	return " " + SeverityFullNames[i] + ": ", nil
}

// Parses a severity name case-insensitively ("warn" is accepted for WARNING,
// "min"/"max" for the sentinel bounds which are useful as minimal severities).
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return SEV_DEBUG, nil
	case "INFO":
		return SEV_INFO, nil
	case "WARN", "WARNING":
		return SEV_WARNING, nil
	case "ERROR":
		return SEV_ERROR, nil
	case "FATAL":
		return SEV_FATAL, nil
	case "MIN", "ALL":
		return SEV_MIN_BOUND, nil
	case "MAX", "NONE", "OFF":
		return SEV_MAX_BOUND, nil
	}
	return 0, errs.Parameter(0, _ERROR_MESSAGE_UNKNOWN_SEVERITY+" `"+name+"`")
}

// MaskOf combines severities into a mask for SetSeverityMask.
func MaskOf(sevs ...Severity) (mask uint32) {
	for _, s := range sevs {
		mask |= uint32(s)
	}
	return mask
}

// Message kinds that can be queued.
type msgType byte

const (
	_MSG_FORBIDDEN msgType = iota // never queued, delivering it is an error
	_MSG_SEVERITY
	_MSG_CODE
	_MSG_MAX_for_checks_only
)

// queuedMessage is the unit enqueued into the channel of a Queued listener.
type queuedMessage struct {
	pushed  time.Time // timestamp when message was queued
	msgtext string
	msgtype msgType
	annex   uint32 // Severity or user code, depending on msgtype
}

// Converts a panic value into a compact readable string (used when
// translating panics into fallback messages)
func panicDesc(panic any) (errtext string) {
	switch v := panic.(type) {
	case string:
		errtext = ": `" + v + "`"
	case error:
		errtext = ": (error) `" + v.Error() + "`"
	default:
		errtext = " " + _ERROR_UNKNOWN_PANIC_TEXT
	}
	return errtext
}
