package lgr

import (
	"bytes"
	"io"
	"strings"
)

/*********************************************************************************
Composing messages with fmt

Stream collects formatted output of any number of writes, Sync() then emits
it as one message:

	var s lgr.Stream
	fmt.Fprintf(&s, "disk low: %d%%", percent)
	s.Sync(reg, lgr.SEV_WARNING)

Writer binds a registry and a severity into an io.Writer where every Write is
a separate message:

	log.SetOutput(reg.Writer(lgr.SEV_INFO))

Neither of them is thread-safe: use one Stream per goroutine.
*/

// Stream is a message buffer implementing io.Writer and io.StringWriter.
// The zero value is ready to use.
type Stream struct {
	buf bytes.Buffer
}

func (s *Stream) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *Stream) WriteString(str string) (int, error) { return s.buf.WriteString(str) }

// The text collected so far
func (s *Stream) String() string { return s.buf.String() }

func (s *Stream) Len() int { return s.buf.Len() }

func (s *Stream) Reset() { s.buf.Reset() }

// Sync broadcasts the collected text at the severity and resets the stream.
// The stream is kept untouched if the severity is invalid.
func (s *Stream) Sync(r *Registry, sev Severity) error {
	if err := r.Broadcast(s.buf.String(), sev); err != nil {
		return err
	}
	s.buf.Reset()
	return nil
}

// SyncCode broadcasts the collected text with a user code and resets the stream.
func (s *Stream) SyncCode(r *Registry, code uint32) {
	r.BroadcastCode(s.buf.String(), code)
	s.buf.Reset()
}

type sevWriter struct {
	reg *Registry
	sev Severity
}

// Writer returns an io.Writer broadcasting every Write as one message at the
// severity (a trailing newline is trimmed). Writes of an invalid severity fail.
func (r *Registry) Writer(s Severity) io.Writer {
	return &sevWriter{reg: r, sev: s}
}

// An empty payload is a zero-length write with no error and no message.
func (w *sevWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err = w.reg.Broadcast(strings.TrimSuffix(string(p), "\n"), w.sev); err != nil {
		return 0, err
	}
	return len(p), nil
}
