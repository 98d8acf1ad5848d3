package config

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abyssdigger/lgrkit/errs"
	"github.com/abyssdigger/lgrkit/lgr"
)

// chain is one built sink: the sink itself, its optional wrappers and the
// outermost listener, which is the only one registered.
type chain struct {
	outer lgr.Listener
	queue *lgr.Queued
	base  io.Closer
}

// Setup is what Build has put into a registry.
type Setup struct {
	reg    *lgr.Registry
	chains []chain
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Build creates the sinks enabled in c, wraps them (rate limit first, then
// queue), registers them into reg and applies the filter values of c to every
// listener of reg. If any sink fails the already built ones are closed and
// nothing stays registered.
func Build(reg *lgr.Registry, c *Config) (*Setup, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s := &Setup{reg: reg}
	fail := func(err error) (*Setup, error) {
		s.Close()
		return nil, err
	}
	if c.Console.Enabled {
		cl, closer := newConsole(c)
		if err := s.add(c, cl, closer); err != nil {
			return fail(err)
		}
	}
	if c.File.Enabled {
		f, err := lgr.NewFileListener(nil, c.File.Path, c.File.Append)
		if err != nil {
			return fail(err)
		}
		f.SetTimeFormat(c.File.TimeFormat, " ")
		if err := s.add(c, f, f); err != nil {
			return fail(err)
		}
	}
	if c.Structured.Enabled {
		l, closer, err := newStructured(&c.Structured)
		if err != nil {
			return fail(err)
		}
		if err := s.add(c, l, closer); err != nil {
			return fail(err)
		}
	}
	if err := Apply(reg, c); err != nil {
		return fail(err)
	}
	return s, nil
}

func newConsole(c *Config) (lgr.Listener, io.Closer) {
	var out io.Writer = os.Stdout
	if c.Console.Stderr {
		out = os.Stderr
	}
	appname := ""
	if len(c.AppName) > 0 {
		appname = "[" + c.AppName + "]"
	}
	cl, _ := lgr.NewConsoleListener(nil, appname, out) // never fails without a registry
	cl.SetTimeFormat(c.Console.TimeFormat, " ")
	if c.Console.Colors {
		cl.SetColors(lgr.SeverityColorOnBlackMap)
	}
	return cl, cl
}

// newStructured opens the output of the structured sink and returns a closer
// flushing the backend and then closing the output.
func newStructured(sc *StructuredConfig) (lgr.Listener, io.Closer, error) {
	var out io.Writer = os.Stderr
	var file *os.File
	if len(sc.Path) > 0 {
		var err error
		file, err = os.OpenFile(sc.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, errs.Resource(errs.IO_OPEN, sc.Path, err)
		}
		out = file
	}
	closeFile := func(err error) error {
		if file != nil {
			err = errors.Join(err, file.Close())
		}
		return err
	}
	if strings.ToLower(sc.Backend) == BACKEND_ZAP {
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(out),
			zapcore.DebugLevel,
		)
		zl, err := lgr.NewZapListener(nil, zap.New(core))
		if err != nil {
			return nil, nil, closeFile(err)
		}
		return zl, closerFunc(func() error {
			err := zl.Close()
			if file == nil {
				err = nil // syncing os.Stderr fails on some terminals
			}
			return closeFile(err)
		}), nil
	}
	zl, _ := lgr.NewZerologListener(nil, zerolog.New(out).With().Timestamp().Logger())
	return zl, closerFunc(func() error { return closeFile(zl.Close()) }), nil
}

// add wraps the sink and registers the outermost listener.
func (s *Setup) add(c *Config, sink lgr.Listener, base io.Closer) error {
	ch := chain{outer: sink, base: base}
	if c.Rate.PerSec > 0 {
		rl, err := lgr.NewRateLimited(nil, ch.outer, c.Rate.PerSec, c.Rate.Burst)
		if err != nil {
			base.Close()
			return err
		}
		ch.outer = rl
	}
	if c.Queue.Enabled {
		q, err := lgr.NewQueued(nil, ch.outer, c.Queue.Buffer)
		if err != nil {
			base.Close()
			return err
		}
		ch.queue, ch.outer = q, q
	}
	if err := s.reg.Register(ch.outer); err != nil {
		if ch.queue != nil {
			ch.queue.StopAndWait()
		}
		base.Close()
		return err
	}
	s.chains = append(s.chains, ch)
	return nil
}

// Listeners returns the registered (outermost) listeners in build order.
func (s *Setup) Listeners() []lgr.Listener {
	res := make([]lgr.Listener, 0, len(s.chains))
	for _, ch := range s.chains {
		res = append(res, ch.outer)
	}
	return res
}

// Close unregisters every chain in reverse order, drains queues and closes
// the sinks. Errors of all sinks are joined.
func (s *Setup) Close() error {
	var err error
	for i := len(s.chains) - 1; i >= 0; i-- {
		ch := s.chains[i]
		s.reg.Unregister(ch.outer)
		if ch.queue != nil {
			ch.queue.StopAndWait()
		}
		err = errors.Join(err, ch.base.Close())
	}
	s.chains = nil
	return err
}
