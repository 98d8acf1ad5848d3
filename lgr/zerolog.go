package lgr

import (
	"github.com/rs/zerolog"

	"github.com/abyssdigger/lgrkit/errs"
)

// ZerologListener delivers messages into a zerolog.Logger, so the registry can
// feed structured (JSON or console) zerolog outputs. SEV_FATAL is written at
// error level with a fatal=true field (zerolog would exit at its fatal level);
// user codes are written at info level with a "code" field.
type ZerologListener struct {
	Filtering
	logger zerolog.Logger
	reg    *Registry
}

// NewZerologListener registers a listener writing into logger in reg (if reg is not nil).
func NewZerologListener(reg *Registry, logger zerolog.Logger) (*ZerologListener, error) {
	z := &ZerologListener{logger: logger, reg: reg}
	if reg != nil {
		if err := reg.Register(z); err != nil {
			return nil, err
		}
	}
	return z, nil
}

func zerologLevel(s Severity) zerolog.Level {
	switch s {
	case SEV_DEBUG:
		return zerolog.DebugLevel
	case SEV_INFO:
		return zerolog.InfoLevel
	case SEV_WARNING:
		return zerolog.WarnLevel
	case SEV_ERROR, SEV_FATAL:
		return zerolog.ErrorLevel
	}
	return zerolog.NoLevel
}

func (z *ZerologListener) Output(message string, s Severity) error {
	if !s.IsValid() {
		return errs.Parameter(1, _ERROR_MESSAGE_BAD_SEVERITY+": "+s.String())
	}
	e := z.logger.WithLevel(zerologLevel(s))
	if e == nil {
		return nil
	}
	if s == SEV_FATAL {
		e = e.Bool("fatal", true)
	}
	e.Msg(message)
	return nil
}

func (z *ZerologListener) OutputCode(message string, code uint32) error {
	if e := z.logger.Info(); e != nil {
		e.Uint32("code", code).Msg(message)
	}
	return nil
}

// Close unregisters the listener.
func (z *ZerologListener) Close() error {
	if z.reg != nil {
		z.reg.Unregister(z)
	}
	return nil
}
