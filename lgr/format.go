package lgr

// never use fmt in listeners!

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"
)

// outContext holds formatting options of a text listener.
type outContext struct {
	appname   string       // written first, as is (usually "[AppName]")
	colormap  *SeverityMap // severity-associated ANSI terminal color fragments
	timefmt   string       // time.Format string; if empty, no timestamp is written
	showsevid bool         // whether to include numeric severity flag like "[8]"
}

// textSink is the common part of the listeners writing text lines into an
// io.Writer. Writes are serialized by its own mutex, so a text listener may
// be registered in several registries.
type textSink struct {
	Filtering
	mtx     sync.Mutex
	out     io.Writer
	context outContext
	msgbuf  *bytes.Buffer // buffer reused while building formatted output
}

func newTextSink(out io.Writer, appname string) textSink {
	return textSink{
		out:     out,
		context: outContext{appname: appname},
		msgbuf:  bytes.NewBuffer(make([]byte, 0, DEFAULT_OUT_BUFF)),
	}
}

func (t *textSink) Output(message string, s Severity) error {
	return t.outputAt(time.Now(), message, s)
}

func (t *textSink) OutputCode(message string, code uint32) error {
	return t.outputCodeAt(time.Now(), message, code)
}

// timedListener is implemented by listeners able to stamp a message with the
// time it was emitted rather than the time it is written (see Queued).
type timedListener interface {
	outputAt(pushed time.Time, message string, s Severity) error
	outputCodeAt(pushed time.Time, message string, code uint32) error
}

func (t *textSink) outputAt(pushed time.Time, message string, s Severity) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if err := buildTextMessage(t.msgbuf, pushed, &t.context, message, s); err != nil {
		return err
	}
	return t.flush()
}

func (t *textSink) outputCodeAt(pushed time.Time, message string, code uint32) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	buildCodeMessage(t.msgbuf, pushed, &t.context, message, code)
	return t.flush()
}

// Safely modifies the formatting context with a given function.
func (t *textSink) changeSettings(f func(*outContext)) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	f(&t.context)
}

func (t *textSink) flush() error {
	n, e := t.msgbuf.WriteTo(t.out)
	if e != nil {
		return errors.New("error writing log to output (" + strconv.FormatInt(n, 10) + " bytes written): " + e.Error())
	}
	return nil
}

// buildTextMessage constructs the textual representation of a message:
//
//	[time ][[id]]appname PREFIX: message\n
//
// with optional ANSI colors around the prefix and the message. The buffer is
// reset first; a severity that is not a message severity is a parameter error.
func buildTextMessage(outBuffer *bytes.Buffer, pushed time.Time, context *outContext, message string, s Severity) error {
	outBuffer.Reset()
	prefix, err := SeverityPrefix(s)
	if err != nil {
		return err
	}
	writeTime(outBuffer, pushed, context)
	if context.showsevid {
		outBuffer.WriteString("[" + strconv.FormatUint(uint64(s), 10) + "]")
	}
	outBuffer.WriteString(context.appname)
	withColor := false
	if context.colormap != nil {
		withColor = true
		outBuffer.WriteString(ANSI_COL_PRFX)
		outBuffer.WriteString(context.colormap[s.index()])
		outBuffer.WriteString(ANSI_COL_SUFX)
	}
	outBuffer.WriteString(prefix)
	outBuffer.WriteString(message)
	if withColor {
		// append reset sequence if color was used
		outBuffer.WriteString(ANSI_COL_RESET)
	}
	outBuffer.WriteByte('\n')
	return nil
}

// buildCodeMessage constructs a user code line:
//
//	[time ]appname USERCODE: code message\n
func buildCodeMessage(outBuffer *bytes.Buffer, pushed time.Time, context *outContext, message string, code uint32) {
	outBuffer.Reset()
	writeTime(outBuffer, pushed, context)
	outBuffer.WriteString(context.appname)
	outBuffer.WriteString(DEFAULT_CODE_PREFIX)
	outBuffer.WriteString(strconv.FormatUint(uint64(code), 10))
	outBuffer.WriteByte(' ')
	outBuffer.WriteString(message)
	outBuffer.WriteByte('\n')
}

// optional time prefix
func writeTime(outBuffer *bytes.Buffer, pushed time.Time, context *outContext) {
	if len(context.timefmt) > 0 {
		outBuffer.WriteString(pushed.Format(context.timefmt))
	}
}
