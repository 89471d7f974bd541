package workflow

import (
	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-pipeline/internal/config"
)

// zapLogger adapts a zap logger to the Temporal SDK logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

var _ tlog.Logger = (*zapLogger)(nil)

// NewLogger wraps l for use as a Temporal client logger.
func NewLogger(l *zap.Logger) tlog.Logger {
	return &zapLogger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z *zapLogger) Debug(msg string, keyvals ...any) { z.s.Debugw(msg, keyvals...) }
func (z *zapLogger) Info(msg string, keyvals ...any)  { z.s.Infow(msg, keyvals...) }
func (z *zapLogger) Warn(msg string, keyvals ...any)  { z.s.Warnw(msg, keyvals...) }
func (z *zapLogger) Error(msg string, keyvals ...any) { z.s.Errorw(msg, keyvals...) }

// Dial connects to the Temporal frontend described by cfg.
func Dial(cfg config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    NewLogger(zap.L().Named("temporal")),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "workflow: dial %s", cfg.HostPort)
	}
	return c, nil
}
