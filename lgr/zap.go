package lgr

import (
	"go.uber.org/zap"

	"github.com/abyssdigger/lgrkit/errs"
)

// ZapListener delivers messages into a *zap.Logger. SEV_FATAL is written at
// error level with a fatal=true field (zap would exit at its fatal level);
// user codes are written at info level with a "code" field.
type ZapListener struct {
	Filtering
	logger *zap.Logger
	reg    *Registry
}

// NewZapListener registers a listener writing into logger in reg (if reg is
// not nil). A nil logger is a parameter error.
func NewZapListener(reg *Registry, logger *zap.Logger) (*ZapListener, error) {
	if logger == nil {
		return nil, errs.Parameter(1, "zap logger is nil")
	}
	z := &ZapListener{logger: logger, reg: reg}
	if reg != nil {
		if err := reg.Register(z); err != nil {
			return nil, err
		}
	}
	return z, nil
}

func (z *ZapListener) Output(message string, s Severity) error {
	switch s {
	case SEV_DEBUG:
		z.logger.Debug(message)
	case SEV_INFO:
		z.logger.Info(message)
	case SEV_WARNING:
		z.logger.Warn(message)
	case SEV_ERROR:
		z.logger.Error(message)
	case SEV_FATAL:
		z.logger.Error(message, zap.Bool("fatal", true))
	default:
		return errs.Parameter(1, _ERROR_MESSAGE_BAD_SEVERITY+": "+s.String())
	}
	return nil
}

func (z *ZapListener) OutputCode(message string, code uint32) error {
	z.logger.Info(message, zap.Uint32("code", code))
	return nil
}

// Close unregisters the listener and flushes the zap logger.
func (z *ZapListener) Close() error {
	if z.reg != nil {
		z.reg.Unregister(z)
	}
	if err := z.logger.Sync(); err != nil {
		return errs.Resource(errs.IO_WRITE, "zap logger", err)
	}
	return nil
}
