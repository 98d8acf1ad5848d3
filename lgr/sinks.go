package lgr

import (
	"io"
	"os"

	"github.com/abyssdigger/lgrkit/errs"
)

// ConsoleListener writes text lines prefixed with an application name into a
// terminal-like output ([os.Stdout] by default):
//
//	[MyApp] WARNING: disk is almost full
//	[MyApp] USERCODE: 12345 custom message
type ConsoleListener struct {
	textSink
	reg *Registry
}

// NewConsoleListener creates a console listener and, as the last step,
// registers it in reg (if reg is not nil). Nil out means [os.Stdout].
func NewConsoleListener(reg *Registry, appname string, out io.Writer) (*ConsoleListener, error) {
	if out == nil {
		out = os.Stdout
	}
	c := &ConsoleListener{textSink: newTextSink(out, appname), reg: reg}
	if reg != nil {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Assigns a color map (ANSI fragments) used for the prefix and the message
// text, nil turns colors off.
func (c *ConsoleListener) SetColors(colormap *SeverityMap) *ConsoleListener {
	c.changeSettings(func(ctx *outContext) { ctx.colormap = colormap })
	return c
}

// Sets the time.Format string used to prefix messages followed by delimiter.
// If format is empty no timestamp is written.
//
// More about time format layouts at https://pkg.go.dev/time#Layout. Example:
//
//	"2006-01-02 15:04:05"
func (c *ConsoleListener) SetTimeFormat(format, delimiter string) *ConsoleListener {
	c.changeSettings(func(ctx *outContext) {
		ctx.timefmt = ""
		if len(format) > 0 {
			ctx.timefmt = format + delimiter
		}
	})
	return c
}

// Enables printing the numeric severity flag (like "[8]") after time.
// May be useful for debugging or log filtering.
func (c *ConsoleListener) ShowSeverityCode(show bool) *ConsoleListener {
	c.changeSettings(func(ctx *outContext) { ctx.showsevid = show })
	return c
}

// Close unregisters the listener. The output is not closed.
func (c *ConsoleListener) Close() error {
	if c.reg != nil {
		c.reg.Unregister(c)
	}
	return nil
}

// FileListener writes text lines into a file it owns:
//
//	 ERROR: cannot connect
//	 USERCODE: 12345 custom message
type FileListener struct {
	textSink
	reg  *Registry
	file *os.File
	path string
}

// NewFileListener creates (or truncates, unless appendMode is set) the file
// and registers the listener in reg (if reg is not nil). A file that can't be
// opened is a KIND_RESOURCE error and nothing is registered.
func NewFileListener(reg *Registry, path string, appendMode bool) (*FileListener, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, errs.Resource(errs.IO_OPEN, path, err)
	}
	f := &FileListener{textSink: newTextSink(file, ""), reg: reg, file: file, path: path}
	if reg != nil {
		if err := reg.Register(f); err != nil {
			file.Close()
			return nil, err
		}
	}
	return f, nil
}

func (f *FileListener) Path() string { return f.path }

// Same as ConsoleListener.SetTimeFormat
func (f *FileListener) SetTimeFormat(format, delimiter string) *FileListener {
	f.changeSettings(func(ctx *outContext) {
		ctx.timefmt = ""
		if len(format) > 0 {
			ctx.timefmt = format + delimiter
		}
	})
	return f
}

// Close unregisters the listener and then closes the file, so no broadcast
// can write into a closed file. Repeated calls do nothing.
func (f *FileListener) Close() error {
	if f.reg != nil {
		f.reg.Unregister(f)
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	if err != nil {
		return errs.Resource(errs.IO_WRITE, f.path, err)
	}
	return nil
}
